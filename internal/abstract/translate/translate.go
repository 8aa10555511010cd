// Package translate implements §4.6: mapping a real game's off-tree bet
// size onto the abstraction's discrete bet set, via pseudo-harmonic
// fractional translation. Grounded on nl_agent.cpp's GetTwoClosestSuccs /
// BelowProb / Translate.
package translate

import (
	"math/rand/v2"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/tree"
)

// Mode selects how below/above are resolved into a single successor.
type Mode uint8

const (
	// ModeRandomized samples r from the per-player RNG and picks below iff
	// r < belowProb. This is the spec's default.
	ModeRandomized Mode = iota
	// ModeNearest chooses whichever fraction is closer (belowProb in {0,1}).
	ModeNearest
	// ModeAlwaysLarger deterministically picks above.
	ModeAlwaysLarger
)

// Result is the outcome of translating one opponent action.
type Result struct {
	// SuccIndex is the chosen successor's index within the node's Successors.
	SuccIndex int
	// SkipAction is true when the action was consumed as a no-op because the
	// abstract tree had already run ahead (spec §4.6 Case 1).
	SkipAction bool
	// ForceCall is true when we must respond to a sub-minimum bet with a
	// call, never a fold, per the "translate-bet-to-call" special case.
	ForceCall bool
	// RewroteToSmallestBet is true when the special case consulted our own
	// strategy and rewrote the path to the smallest-bet successor.
	RewroteToSmallestBet bool
}

// Config carries the configurable translation mode and failure policy.
type Config struct {
	Mode              Mode
	TranslateBetToCall bool
	ExitOnError       bool
}

// BelowProb computes the pseudo-harmonic mixing probability for choosing the
// "below" successor, per spec §4.6's formula. d is the pot size before this
// action (2 * lastBetTo in heads-up, matching nl_agent.cpp's
// `actual_pot_size`).
func BelowProb(actualTo, lastBetTo, belowTo, aboveTo, d int) float64 {
	if d <= 0 {
		return 0.5
	}
	fd := float64(d)
	actualFrac := float64(actualTo-lastBetTo) / fd
	belowFrac := float64(belowTo-lastBetTo) / fd
	aboveFrac := float64(aboveTo-lastBetTo) / fd

	denom := (aboveFrac - belowFrac) * (1 + actualFrac)
	if denom == 0 {
		return 0.5
	}
	p := ((aboveFrac - actualFrac) * (1 + belowFrac)) / denom
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// ClosestSuccs finds the successor with the greatest bet-to <= X (below) and
// the successor with the least bet-to > X (above), skipping the fold succ,
// matching nl_agent.cpp's GetTwoClosestSuccs. below/above are -1 when no
// such successor exists.
func ClosestSuccs(n *tree.Node, x int) (below, above int) {
	below, above = -1, -1
	bestBelowDiff, bestAboveDiff := -1, -1
	for i, a := range n.Actions {
		if i == n.FoldSuccIndex {
			continue
		}
		betTo := actionBetTo(a)
		diff := betTo - x
		if diff <= 0 {
			d := -diff
			if below == -1 || d < bestBelowDiff {
				below, bestBelowDiff = i, d
			}
		} else {
			if above == -1 || diff < bestAboveDiff {
				above, bestAboveDiff = i, diff
			}
		}
	}
	return below, above
}

func actionBetTo(a tree.Action) int {
	switch a.Kind {
	case tree.ActionCall:
		return a.To
	case tree.ActionBet:
		return a.To
	default:
		return 0
	}
}

// TranslateFoldOrCall handles spec §4.6 Case 1. The Result has
// SkipAction=true when no unambiguous successor exists, reachable only
// when a previous bet was rounded up to an all-in.
func TranslateFoldOrCall(n *tree.Node, isFold bool) Result {
	idx := n.CallSuccIndex
	if isFold {
		idx = n.FoldSuccIndex
	}
	if idx < 0 {
		// Previously rounded to all-in: consume as a no-op. A later fold of
		// a mapped all-in maps to call, per spec.
		if isFold && n.CallSuccIndex >= 0 {
			return Result{SuccIndex: n.CallSuccIndex}
		}
		return Result{SkipAction: true}
	}
	return Result{SuccIndex: idx}
}

// TranslateBet handles spec §4.6 Case 2: a bet-to amount X. rng is the
// per-player RNG (must be non-nil when cfg.Mode == ModeRandomized).
// raiseProbAtSmallestBet is this bot's own cumulative probability of any
// raise action at the node's smallest-bet successor, consulted by the
// translate-bet-to-call special case.
func TranslateBet(n *tree.Node, x int, cfg Config, rng *rand.Rand, raiseProbAtSmallestBet float64) (Result, error) {
	below, above := ClosestSuccs(n, x)
	if below == -1 && above == -1 {
		return Result{}, abserrors.Invariant("translate.TranslateBet", abserrors.ErrUnreachableState)
	}
	if below == -1 {
		return Result{SuccIndex: above}, nil
	}
	if above == -1 {
		return Result{SuccIndex: below}, nil
	}

	belowIsCheckCall := below == n.CallSuccIndex
	lastBetTo := n.LastBetTo
	d := 2 * lastBetTo
	belowTo := actionBetTo(n.Actions[below])
	aboveTo := actionBetTo(n.Actions[above])

	if belowIsCheckCall && cfg.TranslateBetToCall {
		// Special case: the opponent's bet is small enough it may be a
		// check. Consult our own strategy's raise probability at the
		// smallest-bet succ; if a random draw falls under it, rewrite to
		// that succ, else proceed as though checked and forced to call.
		r := 0.0
		if rng != nil {
			r = rng.Float64()
		}
		if raiseProbAtSmallestBet >= r {
			return Result{SuccIndex: smallestBetSucc(n), RewroteToSmallestBet: true}, nil
		}
		return Result{SuccIndex: below, ForceCall: true}, nil
	}

	belowProb := BelowProb(x, lastBetTo, belowTo, aboveTo, d)

	switch cfg.Mode {
	case ModeNearest:
		if belowProb >= 0.5 {
			return Result{SuccIndex: below}, nil
		}
		return Result{SuccIndex: above}, nil
	case ModeAlwaysLarger:
		return Result{SuccIndex: above}, nil
	default: // ModeRandomized
		r := 0.0
		if rng != nil {
			r = rng.Float64()
		}
		if r < belowProb {
			return Result{SuccIndex: below}, nil
		}
		return Result{SuccIndex: above}, nil
	}
}

func smallestBetSucc(n *tree.Node) int {
	best, bestTo := -1, -1
	for i, a := range n.Actions {
		if a.Kind != tree.ActionBet {
			continue
		}
		if best == -1 || a.To < bestTo {
			best, bestTo = i, a.To
		}
	}
	if best == -1 {
		return n.CallSuccIndex
	}
	return best
}
