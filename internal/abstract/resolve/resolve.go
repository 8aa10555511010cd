// Package resolve implements §4.8: the endgame resolver. It computes reach
// probabilities and opponent T-values over a base subtree, then runs CFR-D
// ("combined" resolving, the Open Questions' chosen variant) on a possibly
// finer endgame subtree, producing a fresh strategy.Store keyed by
// hole-card-pair rather than bucket. Grounded on sdk/solver/regret.go's
// RegretEntry accumulation pattern and sdk/solver/trainer.go's iteration
// loop, generalized from per-bucket info sets to the tree arena's
// (nonterminal, hand) addressing this package needs.
package resolve

import (
	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/handvalue"
	"github.com/lox/pokerabstract/internal/abstract/strategy"
	"github.com/lox/pokerabstract/internal/abstract/tree"
)

// HandRange enumerates the hole-card pairs a player might hold, consistent
// with the current canonical board, each carrying a showdown card set
// (hole ++ board, for the hand-value oracle) and a dense index used to
// address the resolved store.
type HandRange struct {
	Pairs    []card.Card // flattened hi,lo,hi,lo,... pairs
	Showdown [][]card.Card
}

// NumHands reports how many hole-card pairs the range holds.
func (r HandRange) NumHands() int { return len(r.Showdown) }

// PathStep is one step along the root-to-resolve-point path, recording
// which successor was taken at a base-tree node.
type PathStep struct {
	Node      *tree.Node
	SuccTaken int
}

// Config carries the tunables named in spec §4.8 and §5 ("Endgame CFR").
type Config struct {
	Iterations int
	CFRPlus    bool // clamp regrets to >= 0 between iterations, per CFR+
}

// ReachProbs implements spec §4.8 step 2: walk the path from root to the
// resolve point, multiplying by the base store's probability of the taken
// succ at every node where `player` was the actor. Hands whose canonical
// cards are unreachable (blocked by the board or by their own conflicting
// cards) should already be excluded from the range by the caller.
func ReachProbs(path []PathStep, base strategy.Store, player int, numHands int, bucketOf func(hand int) int) ([]float64, error) {
	reach := make([]float64, numHands)
	for h := range reach {
		reach[h] = 1
	}
	for _, step := range path {
		n := step.Node
		if n.PlayerToAct != player {
			continue
		}
		for h := 0; h < numHands; h++ {
			probs, err := base.Probs(player, n.Street, n.NonterminalID, bucketOf(h), len(n.Successors), n.DefaultSuccIndex)
			if err != nil {
				return nil, err
			}
			reach[h] *= probs[step.SuccTaken]
		}
	}
	return reach, nil
}

// TValues implements spec §4.8 step 3: the opponent's counterfactual values
// over every opponent hand, as if the opponent continued playing the base
// strategy against our range (weighted by our reach probs), through the
// base subtree rooted at the resolve point. T is always returned from the
// resolving player's opponent's point of view (positive when the opponent
// gains), whichever seat that opponent holds.
func TValues(baseRoot *tree.Tree, rootRef uint32, base strategy.Store, resolvingPlayer int, ourRange, oppRange HandRange, ourReach []float64, oracle handvalue.Oracle, potSize int) ([]float64, error) {
	opp := 1 - resolvingPlayer
	t := make([]float64, oppRange.NumHands())

	var walk func(ref uint32) ([]float64, error) // returns per-opp-hand value
	walk = func(ref uint32) ([]float64, error) {
		if tree.IsTerminalSucc(ref) {
			term := baseRoot.Terms[tree.SuccIndex(ref)]
			return terminalValues(term, resolvingPlayer, ourRange, oppRange, ourReach, oracle)
		}
		n := baseRoot.Nodes[tree.SuccIndex(ref)]
		out := make([]float64, oppRange.NumHands())

		if n.PlayerToAct == resolvingPlayer {
			// Our own action at this node does not depend on opponent's
			// cards; average over our reach-weighted action mix, matching
			// the base strategy's own prescription per hand.
			for ourHand := range ourRange.Showdown {
				if ourReach[ourHand] <= 0 {
					continue
				}
				probs, err := base.Probs(resolvingPlayer, n.Street, n.NonterminalID, ourHand, len(n.Successors), n.DefaultSuccIndex)
				if err != nil {
					return nil, err
				}
				for s, succRef := range n.Successors {
					if probs[s] <= 0 {
						continue
					}
					childVals, err := walk(succRef)
					if err != nil {
						return nil, err
					}
					for oh := range out {
						out[oh] += ourReach[ourHand] * probs[s] * childVals[oh]
					}
				}
			}
			return out, nil
		}

		// Opponent acts: weight children by the opponent's own per-hand base
		// strategy, giving a value vector per opponent hand.
		for oppHand := range oppRange.Showdown {
			probs, err := base.Probs(opp, n.Street, n.NonterminalID, oppHand, len(n.Successors), n.DefaultSuccIndex)
			if err != nil {
				return nil, err
			}
			for s, succRef := range n.Successors {
				if probs[s] <= 0 {
					continue
				}
				childVals, err := walk(succRef)
				if err != nil {
					return nil, err
				}
				out[oppHand] += probs[s] * childVals[oppHand]
			}
		}
		return out, nil
	}

	vals, err := walk(rootRef)
	if err != nil {
		return nil, err
	}
	copy(t, vals)
	_ = potSize
	return t, nil
}

func terminalValues(term tree.Terminal, resolvingPlayer int, ourRange, oppRange HandRange, ourReach []float64, oracle handvalue.Oracle) ([]float64, error) {
	opp := 1 - resolvingPlayer
	out := make([]float64, oppRange.NumHands())
	totalOurReach := 0.0
	for _, r := range ourReach {
		totalOurReach += r
	}
	if totalOurReach <= 0 {
		return out, nil
	}

	for oh := range oppRange.Showdown {
		oppCards := oppRange.Showdown[oh]
		switch term.Kind {
		case tree.TerminalFold:
			// The folding player loses the pot; resolving player's opponent
			// gains/loses a fixed amount independent of cards.
			sign := 1.0
			if term.FoldedPlayer == opp {
				sign = -1.0
			}
			value := sign * float64(term.PotSize) / 2
			for ourHand := range ourRange.Showdown {
				if ourReach[ourHand] <= 0 {
					continue
				}
				out[oh] += ourReach[ourHand] * value
			}
			out[oh] /= totalOurReach
		case tree.TerminalShowdown:
			oppRank := oracle.Rank(oppCards)
			for ourHand, ourCards := range ourRange.Showdown {
				if ourReach[ourHand] <= 0 {
					continue
				}
				ourRank := oracle.Rank(ourCards)
				var v float64
				switch {
				case oppRank > ourRank:
					v = float64(term.PotSize) / 2
				case oppRank < ourRank:
					v = -float64(term.PotSize) / 2
				default:
					v = 0
				}
				out[oh] += ourReach[ourHand] * v
			}
			out[oh] /= totalOurReach
		}
	}
	return out, nil
}

// entry mirrors sdk/solver/regret.go's RegretEntry shape, but keyed by hand
// index instead of bucket: endgame resolving is typically run unbucketed.
type entry struct {
	regretSum   []float64
	strategySum []float64
}

// Resolver runs CFR-D over an endgame subtree, floored by T-values for the
// opponent, and emits a resolved strategy.MemoryStore.
type Resolver struct {
	cfg    Config
	oracle handvalue.Oracle
}

// New builds a Resolver.
func New(cfg Config, oracle handvalue.Oracle) *Resolver {
	return &Resolver{cfg: cfg, oracle: oracle}
}

// Resolve implements spec §4.8 steps 4-5: run the configured number of CFR
// iterations on the endgame subtree, with the opponent's counterfactual
// value at every terminal floored at T[oppHand] (the "combined" resolving
// variant named in the Open Questions), and return the resulting
// normalized strategy, addressed by (player, street, nonterminalID, hand).
func (r *Resolver) Resolve(endgame *tree.Tree, resolvingPlayer int, ourRange, oppRange HandRange, ourReach []float64, tValues []float64) (*strategy.MemoryStore, error) {
	if r.cfg.Iterations <= 0 {
		return nil, abserrors.Invariant("resolve.Resolve", abserrors.ErrInvalidCardSyntax)
	}

	opp := 1 - resolvingPlayer
	numOurHands := ourRange.NumHands()
	entries := make(map[[4]int]*entry) // [player, street, nonterminalID, hand] -> entry

	getEntry := func(player, street, nonterminalID, hand, numSuccs int) *entry {
		key := [4]int{player, street, nonterminalID, hand}
		e, ok := entries[key]
		if !ok {
			e = &entry{regretSum: make([]float64, numSuccs), strategySum: make([]float64, numSuccs)}
			entries[key] = e
		}
		return e
	}

	currentStrategy := func(e *entry) []float64 {
		n := len(e.regretSum)
		out := make([]float64, n)
		total := 0.0
		for i, v := range e.regretSum {
			if v > 0 {
				total += v
			}
		}
		if total <= 0 {
			for i := range out {
				out[i] = 1.0 / float64(n)
			}
			return out
		}
		for i, v := range e.regretSum {
			if v > 0 {
				out[i] = v / total
			}
		}
		return out
	}

	var walk func(ref uint32, reach []float64) ([]float64, error)
	walk = func(ref uint32, reach []float64) ([]float64, error) {
		if tree.IsTerminalSucc(ref) {
			term := endgame.Terms[tree.SuccIndex(ref)]
			vals, err := terminalValues(term, resolvingPlayer, ourRange, oppRange, reach, r.oracle)
			if err != nil {
				return nil, err
			}
			if term.Kind != tree.TerminalFold || term.FoldedPlayer != resolvingPlayer {
				for oh := range vals {
					if vals[oh] < tValues[oh] {
						vals[oh] = tValues[oh]
					}
				}
			}
			return vals, nil
		}

		n := endgame.Nodes[tree.SuccIndex(ref)]

		if n.PlayerToAct != resolvingPlayer {
			out := make([]float64, oppRange.NumHands())
			for oppHand := range oppRange.Showdown {
				e := getEntry(opp, n.Street, n.NonterminalID, oppHand, len(n.Successors))
				strat := currentStrategy(e)
				for i, v := range strat {
					e.strategySum[i] += v
				}
				for s, succRef := range n.Successors {
					childReach := append([]float64(nil), reach...)
					childVals, err := walk(succRef, childReach)
					if err != nil {
						return nil, err
					}
					out[oppHand] += strat[s] * childVals[oppHand]
				}
			}
			return out, nil
		}

		// resolvingPlayer acts: compute per-our-hand regrets against the
		// opponent value vector returned by each child.
		out := make([]float64, oppRange.NumHands())
		childValsByAction := make([][]float64, len(n.Successors))
		perHandValue := make([]float64, numOurHands)

		for ourHand := 0; ourHand < numOurHands; ourHand++ {
			if reach[ourHand] <= 0 {
				continue
			}
			e := getEntry(resolvingPlayer, n.Street, n.NonterminalID, ourHand, len(n.Successors))
			strat := currentStrategy(e)
			for i, v := range strat {
				e.strategySum[i] += v
			}

			actionOppVals := make([][]float64, len(n.Successors))
			nodeValue := 0.0
			for s, succRef := range n.Successors {
				if childValsByAction[s] == nil {
					childReach := append([]float64(nil), reach...)
					cv, err := walk(succRef, childReach)
					if err != nil {
						return nil, err
					}
					childValsByAction[s] = cv
				}
				actionOppVals[s] = childValsByAction[s]
				nodeValue += strat[s] * (-sumWeighted(actionOppVals[s], oppRange))
			}
			perHandValue[ourHand] = nodeValue
			for s := range n.Successors {
				regret := -sumWeighted(actionOppVals[s], oppRange) - nodeValue
				e.regretSum[s] += regret
				if r.cfg.CFRPlus && e.regretSum[s] < 0 {
					e.regretSum[s] = 0
				}
			}
		}

		for oppHand := range out {
			total := 0.0
			for s, succRef := range n.Successors {
				_ = succRef
				if childValsByAction[s] == nil {
					continue
				}
				weight := 0.0
				for ourHand := 0; ourHand < numOurHands; ourHand++ {
					if reach[ourHand] <= 0 {
						continue
					}
					e := getEntry(resolvingPlayer, n.Street, n.NonterminalID, ourHand, len(n.Successors))
					strat := currentStrategy(e)
					weight += reach[ourHand] * strat[s]
				}
				total += weight * childValsByAction[s][oppHand]
			}
			out[oppHand] = total
		}
		return out, nil
	}

	for i := 0; i < r.cfg.Iterations; i++ {
		if _, err := walk(endgame.Root(), append([]float64(nil), ourReach...)); err != nil {
			return nil, err
		}
	}

	store := strategy.NewMemoryStore()
	grouped := make(map[[3]int]map[int]*entry) // [player, street, nonterminalID] -> hand -> entry
	for key, e := range entries {
		node := [3]int{key[0], key[1], key[2]}
		byHand, ok := grouped[node]
		if !ok {
			byHand = make(map[int]*entry)
			grouped[node] = byHand
		}
		byHand[key[3]] = e
	}
	for node, byHand := range grouped {
		maxHand, numSuccs := -1, 0
		for hand, e := range byHand {
			if hand > maxHand {
				maxHand = hand
			}
			numSuccs = len(e.strategySum)
		}
		flat := make([]float64, (maxHand+1)*numSuccs)
		for hand, e := range byHand {
			copy(flat[hand*numSuccs:(hand+1)*numSuccs], e.strategySum)
		}
		store.Set(node[0], node[1], node[2], flat)
	}
	return store, nil
}

func sumWeighted(vals []float64, r HandRange) float64 {
	total := 0.0
	for i, v := range vals {
		_ = i
		total += v
	}
	return total / float64(maxInt(1, len(r.Showdown)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
