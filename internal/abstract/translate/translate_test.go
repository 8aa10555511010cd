package translate_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/translate"
	"github.com/lox/pokerabstract/internal/abstract/tree"
)

func nodeWithBetSuccs(lastBetTo int, tos ...int) *tree.Node {
	n := &tree.Node{LastBetTo: lastBetTo, CallSuccIndex: -1, FoldSuccIndex: -1}
	n.Actions = append(n.Actions, tree.Action{Kind: tree.ActionCall, To: lastBetTo})
	n.Successors = append(n.Successors, 0)
	n.CallSuccIndex = 0
	for i, to := range tos {
		n.Actions = append(n.Actions, tree.Action{Kind: tree.ActionBet, To: to})
		n.Successors = append(n.Successors, uint32(i+1))
	}
	return n
}

func TestBelowProbIsBoundedAndMonotone(t *testing.T) {
	p := translate.BelowProb(150, 100, 100, 300, 200)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)

	// An actual bet exactly at "below" should mix entirely to below.
	pBelow := translate.BelowProb(100, 100, 100, 300, 200)
	assert.InDelta(t, 1.0, pBelow, 1e-9)

	// An actual bet exactly at "above" should mix entirely to above.
	pAbove := translate.BelowProb(300, 100, 100, 300, 200)
	assert.InDelta(t, 0.0, pAbove, 1e-9)
}

func TestClosestSuccsSkipsFold(t *testing.T) {
	n := nodeWithBetSuccs(100, 200, 400)
	n.Actions = append([]tree.Action{{Kind: tree.ActionFold}}, n.Actions...)
	n.Successors = append([]uint32{99}, n.Successors...)
	n.FoldSuccIndex = 0
	n.CallSuccIndex = 1

	below, above := translate.ClosestSuccs(n, 250)
	require.NotEqual(t, n.FoldSuccIndex, below)
	require.NotEqual(t, n.FoldSuccIndex, above)
	assert.Equal(t, 200, actionTo(n, below))
	assert.Equal(t, 400, actionTo(n, above))
}

func actionTo(n *tree.Node, idx int) int {
	return n.Actions[idx].To
}

func TestTranslateFoldOrCallWhenUnambiguous(t *testing.T) {
	n := nodeWithBetSuccs(100, 200)
	n.FoldSuccIndex = -1 // no fold successor at this node

	res := translate.TranslateFoldOrCall(n, false)
	assert.Equal(t, n.CallSuccIndex, res.SuccIndex)
	assert.False(t, res.SkipAction)
}

func TestTranslateFoldOrCallSkipsWhenRoundedToAllIn(t *testing.T) {
	n := nodeWithBetSuccs(100, 200)
	n.CallSuccIndex = -1
	n.FoldSuccIndex = -1

	res := translate.TranslateFoldOrCall(n, false)
	assert.True(t, res.SkipAction)
}

func TestTranslateBetPicksBracketingSuccessor(t *testing.T) {
	n := nodeWithBetSuccs(100, 200, 400)
	cfg := translate.Config{Mode: translate.ModeAlwaysLarger}
	res, err := translate.TranslateBet(n, 250, cfg, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 400, actionTo(n, res.SuccIndex))
}

func TestTranslateBetNearestPicksCloser(t *testing.T) {
	n := nodeWithBetSuccs(100, 110, 500)
	cfg := translate.Config{Mode: translate.ModeNearest}
	res, err := translate.TranslateBet(n, 120, cfg, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 110, actionTo(n, res.SuccIndex))
}

func TestTranslateBetRandomizedIsDeterministicForFixedSeed(t *testing.T) {
	n := nodeWithBetSuccs(100, 150, 300)
	cfg := translate.Config{Mode: translate.ModeRandomized}
	rng := rand.New(rand.NewPCG(1, 2))

	res1, err := translate.TranslateBet(n, 200, cfg, rng, 0)
	require.NoError(t, err)

	rng2 := rand.New(rand.NewPCG(1, 2))
	res2, err := translate.TranslateBet(n, 200, cfg, rng2, 0)
	require.NoError(t, err)

	assert.Equal(t, res1.SuccIndex, res2.SuccIndex)
}

func TestTranslateBetErrorsWithNoSuccessors(t *testing.T) {
	n := &tree.Node{CallSuccIndex: -1, FoldSuccIndex: -1}
	cfg := translate.Config{Mode: translate.ModeAlwaysLarger}
	_, err := translate.TranslateBet(n, 100, cfg, nil, 0)
	assert.Error(t, err)
}
