package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/config"
	"github.com/lox/pokerabstract/internal/abstract/runtime"
	"github.com/lox/pokerabstract/internal/abstract/strategy"
	"github.com/lox/pokerabstract/internal/abstract/translate"
	"github.com/lox/pokerabstract/internal/abstract/tree"
)

func buildSmallTree(t *testing.T) *tree.Tree {
	t.Helper()
	g := config.Default()
	g.MaxStreet = config.Preflop
	g.StackSize = 1000
	abs := tree.Abstraction{EnableRaises: false, MaxActionsPerNode: 8}
	tr, err := tree.Build(g, abs)
	require.NoError(t, err)
	return tr
}

func TestResetForHandIsIdempotentForSameHandIndex(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(3)
	require.NoError(t, m.Advance(m.CurrentNode().CallSuccIndex))
	path1 := m.CurrentNodeRef()

	m.ResetForHand(3) // same hand index: no reset
	assert.Equal(t, path1, m.CurrentNodeRef())
}

func TestResetForHandReseedsOnNewHandIndex(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(3)
	require.NoError(t, m.Advance(m.CurrentNode().CallSuccIndex))

	m.ResetForHand(4)
	root := tr.Root()
	assert.Equal(t, root, m.CurrentNodeRef())
}

func TestWhoseTurnAndDecide(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)

	player, ok := m.WhoseTurn()
	require.True(t, ok)
	assert.Equal(t, 0, player)

	assert.Equal(t, runtime.DecisionNoAction, m.Decide(true, false))

	m2 := runtime.New(tr, 1, 2, translate.Config{Mode: translate.ModeNearest})
	m2.ResetForHand(0)
	assert.Equal(t, runtime.DecisionNoAction, m2.Decide(false, false))

	assert.Equal(t, runtime.DecisionSample, m.Decide(false, false))
}

func TestAdvanceErrorsAtTerminal(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)

	foldIdx := m.CurrentNode().FoldSuccIndex
	require.GreaterOrEqual(t, foldIdx, 0)
	require.NoError(t, m.Advance(foldIdx))
	assert.True(t, m.AtTerminal())

	err := m.Advance(0)
	assert.Error(t, err)

	_, ok := m.WhoseTurn()
	assert.False(t, ok)
}

func TestPathGrowsAsHandAdvancesAndResetsOnNewHand(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)

	assert.Equal(t, []uint32{tr.Root()}, m.Path())

	foldIdx := m.CurrentNode().FoldSuccIndex
	require.GreaterOrEqual(t, foldIdx, 0)
	require.NoError(t, m.Advance(foldIdx))

	path := m.Path()
	require.Len(t, path, 2)
	assert.Equal(t, tr.Root(), path[0])
	assert.True(t, tree.IsTerminalSucc(path[1]))

	m.ResetForHand(1)
	assert.Equal(t, []uint32{tr.Root()}, m.Path())
}

func TestReplayOpponentActionFoldReachesTerminal(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)

	step, err := m.ReplayOpponentAction(true, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, step.SkipAction)
	assert.True(t, tree.IsTerminalSucc(step.NodeRef))
	assert.True(t, m.AtTerminal())
}

func TestReplayOpponentActionOnTerminalMachineIsNoop(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)
	require.NoError(t, m.Advance(m.CurrentNode().FoldSuccIndex))
	require.True(t, m.AtTerminal())

	step, err := m.ReplayOpponentAction(false, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, step.SkipAction)
}

func TestStoreForUsesResolvedStoreAtOrAfterThreshold(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)

	base := strategy.NewMemoryStore()
	resolved := strategy.NewMemoryStore()
	assert.False(t, m.HasResolvedStore())

	m.UseResolvedStoreFrom(config.Flop, resolved)
	assert.True(t, m.HasResolvedStore())

	assert.Same(t, base, m.StoreFor(config.Preflop, base).(*strategy.MemoryStore))
	assert.Same(t, resolved, m.StoreFor(config.Flop, base).(*strategy.MemoryStore))
	assert.Same(t, resolved, m.StoreFor(config.Turn, base).(*strategy.MemoryStore))
}

func TestResolvedStoreClearsOnNewHand(t *testing.T) {
	tr := buildSmallTree(t)
	m := runtime.New(tr, 0, 2, translate.Config{Mode: translate.ModeNearest})
	m.ResetForHand(0)
	m.UseResolvedStoreFrom(config.Flop, strategy.NewMemoryStore())
	require.True(t, m.HasResolvedStore())

	m.ResetForHand(1)
	assert.False(t, m.HasResolvedStore())
}
