package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptorank/pkg/logger"
)

type countingStopper struct {
	stops int
}

func (c *countingStopper) Stop() { c.stops++ }

func runAsync(ctx context.Context, srv *Server) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()
	return done
}

func TestServer_RunDrainsOnCancel(t *testing.T) {
	ts := newTestServer(t, true)
	reloads := &countingStopper{}
	srv := NewServer("127.0.0.1:0", ts.handler, ts.ranking, logger.Nop()).WithReloads(reloads)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, srv)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 1, reloads.stops)
}

func TestServer_RunListenError(t *testing.T) {
	ts := newTestServer(t, false)
	reloads := &countingStopper{}
	srv := NewServer("127.0.0.1:-1", ts.handler, ts.ranking, logger.Nop()).WithReloads(reloads)

	select {
	case err := <-runAsync(context.Background(), srv):
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start server")
	case <-time.After(5 * time.Second):
		t.Fatal("listen error not reported")
	}
	assert.Equal(t, 1, reloads.stops, "reloads stop even when the listener fails")
}

func TestServer_WithoutReloads(t *testing.T) {
	ts := newTestServer(t, false)
	srv := NewServer("127.0.0.1:0", ts.handler, ts.ranking, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.Run(ctx))
}
