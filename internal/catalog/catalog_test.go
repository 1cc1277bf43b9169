package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptorank/internal/contracts"
)

func TestDefault(t *testing.T) {
	c := Default()

	def, ok := c.Get("vol_30d")
	require.True(t, ok)
	assert.Equal(t, "vol_30d_pct", def.SourceField)
	assert.Equal(t, contracts.DirectionMin, def.Direction)
	assert.Equal(t, contracts.KindRisk, def.Kind)

	assert.Len(t, c.IDs(), len(defaultMetrics))
	assert.Equal(t, "ret_1d", c.IDs()[0])
	assert.Contains(t, c.OfKind(contracts.KindReturn), "ret_30d")
	assert.NotContains(t, c.OfKind(contracts.KindReturn), "vol_30d")
}

func TestNew_Rejects(t *testing.T) {
	_, err := New([]contracts.MetricDefinition{
		{ID: "a", SourceField: "a"},
		{ID: "a", SourceField: "b"},
	})
	assert.Error(t, err)

	_, err = New([]contracts.MetricDefinition{{ID: "a"}})
	assert.Error(t, err)
}

func TestNew_DefaultDirection(t *testing.T) {
	c, err := New([]contracts.MetricDefinition{{ID: "a", SourceField: "a"}})
	require.NoError(t, err)
	assert.Equal(t, contracts.DirectionMax, c.MustGet("a").Direction)
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate("ret_1d", "vol_7d"))

	err := c.Validate("ret_1d", "sharpe")
	assert.True(t, errors.Is(err, contracts.ErrUnknownMetric))
}

func TestSourceFields(t *testing.T) {
	c, err := New([]contracts.MetricDefinition{
		{ID: "b", SourceField: "y"},
		{ID: "a", SourceField: "x"},
		{ID: "c", SourceField: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, c.SourceFields())
}

func TestExclusionSet(t *testing.T) {
	s := NewExclusionSet(DefaultExclusions...)
	assert.True(t, s.Contains("USDT"))
	assert.True(t, s.Contains("usdc"))
	assert.False(t, s.Contains("BTC"))
}
