package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/acpc"
	"github.com/lox/pokerabstract/internal/abstract/board"
	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
	"github.com/lox/pokerabstract/internal/abstract/translate"
)

// toyGame uses a small deck so the board tree stays cheap to enumerate in
// tests, matching internal/abstract/board's own toyGame fixture.
func toyGame() config.Game {
	g := config.Default()
	g.NumRanks = 4
	g.NumSuits = 2
	g.NumFlopCards = 2
	g.MaxStreet = config.Turn
	g.FirstToAct = []int{0, 1, 1}
	return g
}

func TestTranslateModeFromStringParsesKnownModes(t *testing.T) {
	assert.Equal(t, translate.ModeNearest, translateModeFromString("nearest"))
	assert.Equal(t, translate.ModeAlwaysLarger, translateModeFromString("always_larger"))
	assert.Equal(t, translate.ModeRandomized, translateModeFromString("randomized"))
}

func TestTranslateModeFromStringDefaultsToRandomized(t *testing.T) {
	assert.Equal(t, translate.ModeRandomized, translateModeFromString(""))
	assert.Equal(t, translate.ModeRandomized, translateModeFromString("bogus"))
}

func TestLoadStrategyMissingFileErrors(t *testing.T) {
	_, err := loadStrategy(filepath.Join(t.TempDir(), "missing.strat"))
	assert.Error(t, err)
}

func TestLoadStrategyRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := loadStrategy(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestFlattenActionsConcatenatesStreetsInOrder(t *testing.T) {
	byStreet := [][]acpc.Action{
		{{Kind: acpc.WireCall}},
		{{Kind: acpc.WireBet, To: 200}, {Kind: acpc.WireCall}},
		nil,
	}
	flat := flattenActions(byStreet)
	require.Len(t, flat, 3)
	assert.Equal(t, acpc.WireCall, flat[0].Kind)
	assert.Equal(t, acpc.WireBet, flat[1].Kind)
	assert.Equal(t, 200, flat[1].To)
	assert.Equal(t, acpc.WireCall, flat[2].Kind)
}

func TestCanonicalHandOffsetPreflopSkipsBoardLookup(t *testing.T) {
	g := toyGame()
	boardTree, err := board.Build(g)
	require.NoError(t, err)
	codec := card.NewCodec(g)

	hole, err := codec.ParseNCards("AcKd")
	require.NoError(t, err)

	gbd, hcp, err := canonicalHandOffset(g, boardTree, hole, nil, config.Preflop)
	require.NoError(t, err)
	assert.Equal(t, 0, gbd)
	assert.GreaterOrEqual(t, hcp, 0)
}

func TestCanonicalHandOffsetPostflopLooksUpRealBoard(t *testing.T) {
	g := toyGame()
	boardTree, err := board.Build(g)
	require.NoError(t, err)
	codec := card.NewCodec(g)

	boardCards, err := codec.ParseNCards("JcQc")
	require.NoError(t, err)
	hole, err := codec.ParseNCards("KcAd")
	require.NoError(t, err)

	gbd, hcp, err := canonicalHandOffset(g, boardTree, hole, boardCards, config.Flop)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, gbd, 0)
	assert.Less(t, gbd, boardTree.NumBoards(config.Flop-1))
	assert.GreaterOrEqual(t, hcp, 0)
}

func TestRealMoneyStateTracksBetsAndOpponentIncrement(t *testing.T) {
	g := config.Default()

	ms := acpc.MatchState{
		ActionsByStreet: [][]acpc.Action{
			{{Kind: acpc.WireBet, To: 300}, {Kind: acpc.WireCall}},
		},
	}

	lastBetTo, opponentIncrement := realMoneyState(g, ms, 0)
	assert.Equal(t, 300, lastBetTo)
	assert.Equal(t, 0, opponentIncrement) // seat 0 (ourSeat here) was the raiser

	lastBetTo, opponentIncrement = realMoneyState(g, ms, 1)
	assert.Equal(t, 300, lastBetTo)
	assert.Equal(t, 250, opponentIncrement) // seat 0 raised from 50 to 300
}

func TestRealMoneyStateWithNoActionsReflectsBlinds(t *testing.T) {
	g := config.Default()
	ms := acpc.MatchState{ActionsByStreet: [][]acpc.Action{{}}}

	lastBetTo, opponentIncrement := realMoneyState(g, ms, 0)
	assert.Equal(t, g.BigBlind, lastBetTo)
	assert.Equal(t, 0, opponentIncrement)
}

func TestDealCardsIsDeterministicAndDisjoint(t *testing.T) {
	g := config.Default()

	hole1, board1 := dealCards(g, 42, 7)
	hole2, board2 := dealCards(g, 42, 7)
	assert.Equal(t, hole1, hole2)
	assert.Equal(t, board1, board2)

	seen := make(map[card.Card]bool)
	for _, c := range append(append(append([]card.Card{}, hole1[0]...), hole1[1]...), board1...) {
		assert.False(t, seen[c], "card %v dealt twice", c)
		seen[c] = true
	}

	hole3, _ := dealCards(g, 42, 8)
	assert.NotEqual(t, hole1, hole3)
}
