package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/board"
	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
)

// toyGame uses a small deck so the board tree stays cheap to enumerate:
// 4 ranks x 2 suits, 2-card flop, through the turn.
func toyGame() config.Game {
	g := config.Default()
	g.NumRanks = 4
	g.NumSuits = 2
	g.NumFlopCards = 2
	g.MaxStreet = config.Turn
	return g
}

func TestBuildEnumeratesFlopBoards(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)
	assert.Greater(t, tr.NumBoards(config.Preflop), 0) // Preflop==0 street index == flop here
}

func TestBoardLookupRoundTrips(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)

	for gbd := 0; gbd < tr.NumBoards(0); gbd++ {
		cards, err := tr.Board(0, gbd)
		require.NoError(t, err)
		got, err := tr.LookupBoard(cards, 0)
		require.NoError(t, err)
		assert.Equal(t, gbd, got)
	}
}

func TestBoardOutOfRangeErrors(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)

	_, err = tr.Board(0, tr.NumBoards(0)+10)
	assert.Error(t, err)

	_, err = tr.Board(99, 0)
	assert.Error(t, err)
}

func TestLookupBoardMissingErrors(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)

	_, err = tr.LookupBoard([]card.Card{99, 99}, 0)
	assert.Error(t, err)
}

func TestBoardCountsSumToRawCombinations(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)

	var total int64
	for gbd := 0; gbd < tr.NumBoards(0); gbd++ {
		total += tr.BoardCount(0, gbd)
	}
	// C(8,2) raw flop combinations canonicalize down into however many
	// canonical buckets board.Build found, but every raw combination must be
	// accounted for exactly once.
	assert.Equal(t, int64(28), total)
}

func TestDescendantsLocalGlobalIndexRoundTrip(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)
	require.Greater(t, tr.NumBoards(0), 0)

	rootGbd := 0
	numLocal := tr.NumLocalBoards(0, rootGbd, 1)
	require.Greater(t, numLocal, 0)

	for lbd := 0; lbd < numLocal; lbd++ {
		gbd, err := tr.GlobalIndex(0, rootGbd, 1, lbd)
		require.NoError(t, err)
		back, err := tr.LocalIndex(0, rootGbd, 1, gbd)
		require.NoError(t, err)
		assert.Equal(t, lbd, back)
	}
}

func TestGlobalIndexSameStreetIsIdentity(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)
	rootGbd := tr.NumBoards(0) - 1
	require.GreaterOrEqual(t, rootGbd, 0)

	gbd, err := tr.GlobalIndex(0, rootGbd, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, rootGbd, gbd)
}

func TestSuitGroupsIsDeterministicAndInRange(t *testing.T) {
	g := toyGame()
	tr, err := board.Build(g)
	require.NoError(t, err)

	groups1 := tr.SuitGroups(0, 0)
	groups2 := tr.SuitGroups(0, 0)
	assert.Equal(t, groups1, groups2)
	assert.Len(t, groups1, g.NumSuits)
	for _, gr := range groups1 {
		assert.GreaterOrEqual(t, gr, 0)
		assert.Less(t, gr, g.NumSuits)
	}
}
