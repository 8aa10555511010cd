// Package policy implements §4.9 (action selection post-processing and
// sampling) and §4.10 (legalization of a selected bet against the real
// game's stack and minimum-raise rules). Grounded on sdk/solver/runtime's
// CurrentProbs-then-sample shape, generalized to the exact five-step
// pipeline the spec's action selection requires.
package policy

import (
	"math/rand/v2"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/tree"
)

// Params carries the tunables named in spec §4.9.
type Params struct {
	// Purify replaces the distribution with a Kronecker delta on its argmax.
	Purify bool
	// FoldRoundUpTheta: if p[fold] >= Theta, fold outright.
	FoldRoundUpTheta float64
	// MinProbFloor (mu): zero any succ below this mass, then renormalize.
	MinProbFloor float64
}

// PostProcess applies the four-step pipeline from spec §4.9 in order, to a
// copy of p, and returns the result. foldIdx/callIdx are -1 when the
// corresponding action isn't legal at this node. forcedRaise is set by the
// translation layer's "forced-raise override" (§4.9 step 1).
func PostProcess(p []float64, foldIdx, callIdx int, forcedRaise bool, params Params) ([]float64, error) {
	if len(p) == 0 {
		return nil, abserrors.Invariant("policy.PostProcess", abserrors.ErrNoSuccessors)
	}
	out := append([]float64(nil), p...)

	// Step 1: forced-raise override.
	if forcedRaise {
		mass := 0.0
		saved := append([]float64(nil), out...)
		if foldIdx >= 0 {
			out[foldIdx] = 0
		}
		if callIdx >= 0 {
			out[callIdx] = 0
		}
		for _, v := range out {
			mass += v
		}
		if mass > 0 {
			for i := range out {
				out[i] /= mass
			}
		} else {
			out = saved
		}
	}

	// Step 2: purification.
	if params.Purify {
		out = purify(out)
	}

	// Step 3: fold-round-up.
	if foldIdx >= 0 && params.FoldRoundUpTheta > 0 && out[foldIdx] >= params.FoldRoundUpTheta {
		for i := range out {
			out[i] = 0
		}
		out[foldIdx] = 1
	}

	// Step 4: minimum-probability floor.
	if params.MinProbFloor > 0 {
		zeroed := 0.0
		floored := append([]float64(nil), out...)
		for i, v := range floored {
			if v < params.MinProbFloor {
				zeroed += v
				floored[i] = 0
			}
		}
		if zeroed <= 0.99 {
			mass := 0.0
			for _, v := range floored {
				mass += v
			}
			if mass > 0 {
				for i := range floored {
					floored[i] /= mass
				}
				out = floored
			}
		}
	}

	return out, nil
}

func purify(p []float64) []float64 {
	best, bestVal := 0, p[0]
	for i := 1; i < len(p); i++ {
		if p[i] > bestVal {
			best, bestVal = i, p[i]
		}
	}
	out := make([]float64, len(p))
	out[best] = 1
	return out
}

// Sample draws r ~ U[0,1) from rng and walks the cumulative distribution,
// returning the first index whose running sum exceeds r, per spec §4.9
// "Sampling".
func Sample(p []float64, rng *rand.Rand) (int, error) {
	if len(p) == 0 {
		return 0, abserrors.Invariant("policy.Sample", abserrors.ErrNoSuccessors)
	}
	r := rng.Float64()
	cum := 0.0
	for i, v := range p {
		cum += v
		if r < cum {
			return i, nil
		}
	}
	return len(p) - 1, nil
}

// Decision is the final emitted action, post-legalization.
type Decision struct {
	Kind tree.ActionKind
	To   int // valid when Kind == ActionBet
}

// Legalize implements spec §4.10: translate an abstract bet-to B, chosen at
// a node whose real-money context is (lastActualBetTo, opponentLastIncrement,
// stackSize, smallBlind), into a legal real-money action. A selected bet that
// collapses to the current bet-to after flooring/capping downgrades to Call.
func Legalize(abstractTo, lastActualBetTo, opponentLastIncrement, stackSize, smallBlind int) Decision {
	ourBetSize := abstractTo - lastActualBetTo

	minBB := 2 * smallBlind
	if ourBetSize < minBB {
		ourBetSize = minBB
	}
	if opponentLastIncrement > 0 && ourBetSize < opponentLastIncrement {
		ourBetSize = opponentLastIncrement
	}

	betTo := lastActualBetTo + ourBetSize
	if betTo > stackSize {
		betTo = stackSize
	}

	if betTo == lastActualBetTo {
		return Decision{Kind: tree.ActionCall, To: lastActualBetTo}
	}
	return Decision{Kind: tree.ActionBet, To: betTo}
}
