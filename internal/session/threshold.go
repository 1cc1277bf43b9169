package session

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"golang.org/x/text/width"

	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/normalize"
)

// ParseThreshold is the only place user-typed numbers are interpreted.
//
//	"１２．５"   -> 12.5   (full-width folded)
//	"12,5"     -> 12.5   (single comma = decimal separator)
//	"1.234,5"  -> 1234.5 (last separator is the decimal one)
//	"1,234,567"-> 1234567
//	"80 %"     -> 80
//
// Empty, non-numeric, NaN and infinite inputs are rejected with ErrInvalidThreshold.
func ParseThreshold(input string) (float64, error) {
	s := width.Narrow.String(input)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, "\u2212", "-") // unicode minus

	if s == "" {
		return 0, fmt.Errorf("%w: empty", contracts.ErrInvalidThreshold)
	}

	s = normalize.NormalizeSeparators(s)

	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", contracts.ErrInvalidThreshold, input)
	}
	return v, nil
}
