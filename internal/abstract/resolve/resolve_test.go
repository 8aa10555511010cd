package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
	"github.com/lox/pokerabstract/internal/abstract/resolve"
	"github.com/lox/pokerabstract/internal/abstract/strategy"
	"github.com/lox/pokerabstract/internal/abstract/tree"
)

// rankByFirstCard is a deterministic stand-in for a real hand-value oracle:
// rank is just the numeric value of the hand's first card, so tests can pick
// winners/losers by construction rather than real poker hand strength.
type rankByFirstCard struct{}

func (rankByFirstCard) Rank(cards []card.Card) uint32 { return uint32(cards[0]) }

func buildTwoPlayerPreflopTree(t *testing.T) *tree.Tree {
	t.Helper()
	g := config.Default()
	g.MaxStreet = config.Preflop
	g.StackSize = 1000
	abs := tree.Abstraction{EnableRaises: false, MaxActionsPerNode: 8}
	tr, err := tree.Build(g, abs)
	require.NoError(t, err)
	return tr
}

func identityBucket(h int) int { return h }

func TestReachProbsMultipliesAlongPath(t *testing.T) {
	tr := buildTwoPlayerPreflopTree(t)
	root := tr.Nodes[tree.SuccIndex(tr.Root())]

	// Two hands at the root node: hand 0 always calls, hand 1 always folds.
	// Build each hand's per-successor distribution using the real action
	// ordering (FoldSuccIndex/CallSuccIndex tell us which column is which).
	probsHand0 := make([]float64, len(root.Successors))
	probsHand0[root.CallSuccIndex] = 1
	probsHand1 := make([]float64, len(root.Successors))
	probsHand1[root.FoldSuccIndex] = 1

	base := strategy.NewMemoryStore()
	flat := append(append([]float64(nil), probsHand0...), probsHand1...)
	base.Set(0, root.Street, root.NonterminalID, flat)

	path := []resolve.PathStep{{Node: &root, SuccTaken: root.CallSuccIndex}}
	reach, err := resolve.ReachProbs(path, base, 0, 2, identityBucket)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, reach[0], 1e-9)
	assert.InDelta(t, 0.0, reach[1], 1e-9)
}

func TestReachProbsIgnoresStepsWhereOtherPlayerActed(t *testing.T) {
	tr := buildTwoPlayerPreflopTree(t)
	root := tr.Nodes[tree.SuccIndex(tr.Root())]

	base := strategy.NewMemoryStore()
	path := []resolve.PathStep{{Node: &root, SuccTaken: root.CallSuccIndex}}

	// player 1 did not act at the root (player 0 did), so reach stays at 1
	// for every hand regardless of what the store holds for player 0.
	reach, err := resolve.ReachProbs(path, base, 1, 2, identityBucket)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, reach)
}

// terminalRef builds a terminal arena reference the same way tree.Build does
// internally (high bit tags a Terms index); the bit layout is part of the
// package's documented successor-encoding contract (IsTerminalSucc/SuccIndex).
func terminalRef(i int) uint32 { return uint32(1)<<31 | uint32(i) }

func TestTValuesAtFoldTerminalIsZeroSumAndSkipsStoreLookups(t *testing.T) {
	tr := &tree.Tree{Terms: []tree.Terminal{
		{Kind: tree.TerminalFold, FoldedPlayer: 0, PotSize: 100},
	}}
	rootRef := terminalRef(0)

	ourRange := resolve.HandRange{Showdown: [][]card.Card{{1}, {2}}}
	oppRange := resolve.HandRange{Showdown: [][]card.Card{{3}, {4}}}
	ourReach := []float64{1, 1}

	// resolvingPlayer's opponent is the folded player's opponent (player 1),
	// so they win the pot: T-values should be strictly positive. The nil
	// store is never dereferenced because the walk stops at the terminal.
	vals, err := resolve.TValues(tr, rootRef, nil, 0, ourRange, oppRange, ourReach, rankByFirstCard{}, 100)
	require.NoError(t, err)
	require.Len(t, vals, oppRange.NumHands())
	for _, v := range vals {
		assert.Greater(t, v, 0.0)
	}
}

func TestResolverResolveProducesNormalizedStrategy(t *testing.T) {
	tr := buildTwoPlayerPreflopTree(t)
	rootRef := tr.Root()

	ourRange := resolve.HandRange{Showdown: [][]card.Card{{10}, {1}}}
	oppRange := resolve.HandRange{Showdown: [][]card.Card{{5}, {5}}}
	ourReach := []float64{1, 1}
	tValues := []float64{0, 0}

	r := resolve.New(resolve.Config{Iterations: 20, CFRPlus: true}, rankByFirstCard{})
	store, err := r.Resolve(tr, 0, ourRange, oppRange, ourReach, tValues)
	require.NoError(t, err)
	require.NotNil(t, store)

	root := tr.Nodes[tree.SuccIndex(rootRef)]
	probs, err := store.Probs(0, root.Street, root.NonterminalID, 0, len(root.Successors), root.DefaultSuccIndex)
	require.NoError(t, err)
	sum := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestResolverRejectsZeroIterations(t *testing.T) {
	r := resolve.New(resolve.Config{Iterations: 0}, rankByFirstCard{})
	_, err := r.Resolve(&tree.Tree{}, 0, resolve.HandRange{}, resolve.HandRange{}, nil, nil)
	assert.Error(t, err)
}
