package client

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/internal/server"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func startServer(t *testing.T, maxRounds int) string {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.Lobby.MaxRounds = maxRounds
	srv, err := server.NewServer(cfg, testLogger(), server.WithRand(randutil.New(1)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Stop)
	return ts.URL
}

func TestEndpoint(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080":     "ws://localhost:8080/ws",
		"https://poker.example/":    "wss://poker.example/ws",
		"ws://localhost:8080/ws":    "ws://localhost:8080/ws",
		"ws://localhost:8080/other": "ws://localhost:8080/other",
	}
	for in, want := range tests {
		got, err := Endpoint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Endpoint("ftp://localhost")
	assert.Error(t, err)
}

func TestClientsPlayTables(t *testing.T) {
	url := startServer(t, 3)
	req := protocol.TableRequest{Seats: 2, SmallBlind: 1, BigBlind: 2, Stack: 100, Variant: game.PotLimit}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	stats := make([]Stats, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range []string{"alice", "bob"} {
		g.Go(func() error {
			c := New(url, name, req, bot.NewCallBot(testLogger()), testLogger(), WithTables(2))
			s, err := c.Run(gctx)
			stats[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, s := range stats {
		assert.Equal(t, 2, s.Tables)
		assert.Equal(t, 6, s.Rounds)
		assert.Zero(t, s.Requeues)
	}
	assert.GreaterOrEqual(t, stats[0].Wins+stats[1].Wins, 6, "every round has a winner")
}

func TestClientRejectedRequest(t *testing.T) {
	url := startServer(t, 1)
	req := protocol.TableRequest{Seats: 99, SmallBlind: 1, BigBlind: 2, Stack: 100}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := New(url, "greedy", req, bot.NewCallBot(testLogger()), testLogger()).Run(ctx)
	require.Error(t, err)
	assert.True(t, IsRejected(err))

	var perr protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.CodeInvalidRequest, perr.Code)
}

func TestClientStopsOnCancel(t *testing.T) {
	url := startServer(t, 0)
	req := protocol.TableRequest{Seats: 3, SmallBlind: 1, BigBlind: 2, Stack: 100}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := New(url, "lonely", req, bot.NewCallBot(testLogger()), testLogger()).Run(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
}
