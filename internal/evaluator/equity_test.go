package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/randutil"
)

func TestCardSet(t *testing.T) {
	cs := NewCardSet(deck.MustParseCards("AhKd")...)
	assert.True(t, cs.Contains(deck.NewCard(deck.Ace, deck.Hearts)))
	assert.False(t, cs.Contains(deck.NewCard(deck.Ace, deck.Spades)))

	rest := cs.Remaining()
	assert.Len(t, rest, deck.Size-2)
	assert.NotContains(t, rest, deck.NewCard(deck.King, deck.Diamonds))
}

func TestEquityLockedHands(t *testing.T) {
	ctx := context.Background()

	// A made royal flush on the river cannot lose.
	eq, err := Equity(ctx, deck.MustParseCards("AhKh"), deck.MustParseCards("QhJhTh2c3d"), 3, 200, randutil.New(1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, eq, 1e-9)

	// Royal flush on the board is shared by everyone.
	eq, err = Equity(ctx, deck.MustParseCards("2c3d"), deck.MustParseCards("AsKsQsJsTs"), 1, 200, randutil.New(1))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, eq, 1e-9)
}

func TestEquityPreflopFavourite(t *testing.T) {
	ctx := context.Background()

	aces, err := Equity(ctx, deck.MustParseCards("AhAs"), nil, 1, 4000, randutil.New(7))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, aces, 0.04)

	trash, err := Equity(ctx, deck.MustParseCards("7h2c"), nil, 1, 4000, randutil.New(7))
	require.NoError(t, err)
	assert.Less(t, trash, aces)
}

func TestEquityDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	hole := deck.MustParseCards("QdJd")
	board := deck.MustParseCards("Td9c2s")

	a, err := Equity(ctx, hole, board, 2, 1000, randutil.New(99))
	require.NoError(t, err)
	b, err := Equity(ctx, hole, board, 2, 1000, randutil.New(99))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEquityValidation(t *testing.T) {
	ctx := context.Background()
	rng := randutil.New(1)

	_, err := Equity(ctx, deck.MustParseCards("Ah"), nil, 1, 10, rng)
	assert.Error(t, err)

	_, err = Equity(ctx, deck.MustParseCards("AhKh"), nil, 0, 10, rng)
	assert.Error(t, err)

	_, err = Equity(ctx, deck.MustParseCards("AhKh"), nil, 30, 10, rng)
	assert.Error(t, err)

	// 23 opponents fit beside a bare board but not beside a full one.
	_, err = Equity(ctx, deck.MustParseCards("AhKh"), nil, 23, 10, rng)
	assert.Error(t, err)

	eq, err := Equity(ctx, deck.MustParseCards("AhKh"), nil, 22, 10, rng)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, eq, 0.0)
	assert.LessOrEqual(t, eq, 1.0)
}

func TestEquityCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Equity(ctx, deck.MustParseCards("AhKh"), nil, 1, 1000, randutil.New(1))
	assert.ErrorIs(t, err, context.Canceled)
}
