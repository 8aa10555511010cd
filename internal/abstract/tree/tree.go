// Package tree implements §4.4: the betting abstraction and the betting
// tree builder. Grounded on internal/game/betting.go's Street/Action
// enumeration and legal-action logic, and on sdk/solver.AbstractionConfig's
// bet-sizing-fraction abstraction, but re-architected per Design Note §9 as
// an arena of Node records addressed by uint32 index (not raw Node*
// pointers) so the tree can be a DAG with shared successors and serialize
// in O(1).
package tree

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/config"
)

// Street mirrors config's street indices for readability in this package.
type Street = int

// Action is the tagged variant {Fold, Call, Bet(to: amount)} from spec §3.1.
// "to" is the cumulative chips this player must put in, not the increment.
type Action struct {
	Kind ActionKind
	To   int
}

// ActionKind enumerates the action tags.
type ActionKind uint8

const (
	ActionFold ActionKind = iota
	ActionCall
	ActionBet
)

func (a Action) String() string {
	switch a.Kind {
	case ActionFold:
		return "fold"
	case ActionCall:
		return "call"
	default:
		return fmt.Sprintf("bet(to=%d)", a.To)
	}
}

// Node is an interior decision node, per spec §3.1. Successors are arena
// indices into Tree.Nodes/Tree.Terms, disambiguated by the high bit of
// the index (see IsTerminalSucc).
type Node struct {
	Street           Street
	PlayerToAct      int
	LastBetTo        int
	NumStreetBets    int
	Successors       []uint32 // indices, see IsTerminalSucc/SuccIndex
	Actions          []Action // parallel to Successors
	CallSuccIndex    int      // index into Successors, -1 if none legal
	FoldSuccIndex    int      // index into Successors, -1 if none legal
	DefaultSuccIndex int
	NonterminalID    int // dense per (street, player_acting) index
}

// TerminalKind distinguishes the two terminal shapes from spec §3.1.
type TerminalKind uint8

const (
	TerminalFold TerminalKind = iota
	TerminalShowdown
)

// Terminal is a leaf of the betting tree.
type Terminal struct {
	Kind         TerminalKind
	FoldedPlayer int // valid when Kind == TerminalFold
	PotSize      int
	TerminalID   int
}

// terminalBit marks an arena index as referring to Tree.Terminals rather
// than Tree.Nodes.
const terminalBit = uint32(1) << 31

// nodeRef and terminalRef package a node or terminal index.
func nodeRef(i int) uint32     { return uint32(i) }
func terminalRef(i int) uint32 { return terminalBit | uint32(i) }

// IsTerminalSucc reports whether a successor index refers to a Terminal.
func IsTerminalSucc(ref uint32) bool { return ref&terminalBit != 0 }

// SuccIndex strips the terminal tag, giving the index into Nodes or Terminals.
func SuccIndex(ref uint32) int { return int(ref &^ terminalBit) }

// Abstraction declares the legal bet sizes in chips for every
// (street, numBetsThisStreet, playerToAct, potSize) context, per spec §4.4.
// Asymmetric abstractions keep one Abstraction per seat.
type Abstraction struct {
	// BetSizing lists pot-fraction multipliers exposed at each decision,
	// monotonic increasing, mirroring sdk/solver.AbstractionConfig.
	BetSizing []float64
	// MaxActionsPerNode caps expansion (fold and call count toward the cap).
	MaxActionsPerNode int
	// EnableRaises toggles whether bet/raise actions are exposed at all.
	EnableRaises bool
	// MaxBetsPerStreet caps the number of raises within one street before
	// only call/fold/all-in remain legal (prevents unbounded bet escalation).
	MaxBetsPerStreet int
}

// Validate mirrors sdk/solver.AbstractionConfig.Validate.
func (a Abstraction) Validate() error {
	if a.EnableRaises {
		if len(a.BetSizing) == 0 {
			return fmt.Errorf("at least one bet sizing fraction required when raises are enabled")
		}
		last := 0.0
		for i, v := range a.BetSizing {
			if v <= 0 {
				return fmt.Errorf("bet sizing[%d] must be > 0", i)
			}
			if v <= last {
				return fmt.Errorf("bet sizing[%d] must be strictly increasing", i)
			}
			last = v
		}
	}
	if a.MaxActionsPerNode < 2 {
		return fmt.Errorf("max actions per node must allow at least fold/call")
	}
	if a.MaxBetsPerStreet < 0 {
		return fmt.Errorf("max bets per street cannot be negative")
	}
	return nil
}

// Tree is the materialized DAG of decision and terminal nodes for one seat's
// view of the abstraction (asymmetric abstractions build one Tree per seat).
type Tree struct {
	game  config.Game
	abs   Abstraction
	root  uint32
	Nodes []Node
	Terms []Terminal

	numNonterminals []int // per (street*NumPlayers + player) dense counters
}

// Build constructs the full heads-up (or NumPlayers-way) no-limit betting
// tree for the given game and abstraction, starting from preflop with
// blinds already posted.
func Build(g config.Game, abs Abstraction) (*Tree, error) {
	if err := g.Validate(); err != nil {
		return nil, abserrors.Invariant("tree.Build", err)
	}
	if err := abs.Validate(); err != nil {
		return nil, abserrors.Invariant("tree.Build", err)
	}

	t := &Tree{game: g, abs: abs, numNonterminals: make([]int, (g.MaxStreet+1)*g.NumPlayers)}

	stacks := make([]int, g.NumPlayers)
	bets := make([]int, g.NumPlayers)
	for i := range stacks {
		stacks[i] = g.StackSize
	}
	// Heads-up blind convention: seat 0 posts small blind, seat 1 big blind;
	// FirstToAct[Preflop] acts first (matches the small blind acting first
	// in heads-up preflop, per spec's FirstToAct config).
	bets[0] = min(g.SmallBlind, g.StackSize)
	stacks[0] -= bets[0]
	if g.NumPlayers > 1 {
		bets[1] = min(g.BigBlind, g.StackSize)
		stacks[1] -= bets[1]
	}

	builderState := buildState{
		stacks:        stacks,
		bets:          bets,
		street:        config.Preflop,
		numStreetBets: 0,
		lastRaiser:    -1,
		acted:         make([]bool, g.NumPlayers),
		folded:        make([]bool, g.NumPlayers),
	}

	root, err := t.buildNode(builderState, g.FirstToAct[config.Preflop])
	if err != nil {
		return nil, err
	}
	t.root = root
	return t, nil
}

// Root returns the arena reference to the tree's root node.
func (t *Tree) Root() uint32 { return t.root }

// Subtree returns a shallow copy of t rooted at ref instead of t.Root(),
// sharing the same Nodes/Terms arenas. Endgame resolving (spec §4.8) walks
// from Root(), so re-rooting the same arena at the live hand's current
// position is how a resolver call resolves "from here" without building a
// second, separately-allocated tree.
func (t *Tree) Subtree(ref uint32) *Tree {
	sub := *t
	sub.root = ref
	return &sub
}

type buildState struct {
	stacks        []int
	bets          []int
	street        Street
	numStreetBets int
	lastRaiser    int
	acted         []bool
	folded        []bool
}

func (s buildState) clone() buildState {
	c := s
	c.stacks = append([]int(nil), s.stacks...)
	c.bets = append([]int(nil), s.bets...)
	c.acted = append([]bool(nil), s.acted...)
	c.folded = append([]bool(nil), s.folded...)
	return c
}

func (s buildState) potSize() int {
	total := 0
	for _, b := range s.bets {
		total += b
	}
	return total
}

func (s buildState) numActive() int {
	n := 0
	for _, f := range s.folded {
		if !f {
			n++
		}
	}
	return n
}

func (s buildState) maxBet() int {
	m := 0
	for _, b := range s.bets {
		if b > m {
			m = b
		}
	}
	return m
}

// buildNode recursively materializes the subtree for the player to act in
// state s, returning an arena reference (node or terminal).
func (t *Tree) buildNode(s buildState, player int) (uint32, error) {
	if s.numActive() <= 1 {
		return t.addTerminal(s, true), nil
	}
	if allButOneAllIn(s) && actedEnough(s) {
		// Street-by-street auto-advance to showdown once no further
		// decisions are possible (everyone all-in or matched).
		return t.runoutToShowdown(s)
	}

	node := Node{
		Street:        s.street,
		PlayerToAct:   player,
		LastBetTo:     s.maxBet(),
		NumStreetBets: s.numStreetBets,
		CallSuccIndex: -1,
		FoldSuccIndex: -1,
	}

	toCall := s.maxBet() - s.bets[player]
	stack := s.stacks[player]

	// Fold is legal whenever there is a bet to call and folding doesn't end
	// the hand trivially (i.e., someone could still contest the pot).
	if toCall > 0 {
		ns := s.clone()
		ns.folded[player] = true
		node.Actions = append(node.Actions, Action{Kind: ActionFold})
		node.Successors = append(node.Successors, t.addTerminal(ns, true))
		node.FoldSuccIndex = len(node.Successors) - 1
	}

	// Call/check.
	{
		ns := s.clone()
		paid := min(toCall, stack)
		ns.stacks[player] -= paid
		ns.bets[player] += paid
		ns.acted[player] = true
		ref, err := t.advance(ns, player)
		if err != nil {
			return 0, err
		}
		node.Actions = append(node.Actions, Action{Kind: ActionCall, To: ns.bets[player]})
		node.Successors = append(node.Successors, ref)
		node.CallSuccIndex = len(node.Successors) - 1
	}

	// Bet/raise sizes, only while under the per-street cap and the player
	// has chips beyond a call.
	if t.abs.EnableRaises && stack > toCall && (t.abs.MaxBetsPerStreet == 0 || s.numStreetBets < t.abs.MaxBetsPerStreet) {
		totals := t.raiseTotals(s, player)
		for _, total := range totals {
			ns := s.clone()
			paid := total - ns.bets[player]
			ns.stacks[player] -= paid
			ns.bets[player] += paid
			ns.acted[player] = true
			ns.numStreetBets++
			ns.lastRaiser = player
			for i := range ns.acted {
				if i != player {
					ns.acted[i] = false
				}
			}
			ref, err := t.buildNode(ns, nextPlayer(player, ns))
			if err != nil {
				return 0, err
			}
			node.Actions = append(node.Actions, Action{Kind: ActionBet, To: total})
			node.Successors = append(node.Successors, ref)
		}
	}

	if len(node.Actions) > t.abs.MaxActionsPerNode {
		node.Actions = node.Actions[:t.abs.MaxActionsPerNode]
		node.Successors = node.Successors[:t.abs.MaxActionsPerNode]
		if node.CallSuccIndex >= len(node.Actions) {
			node.CallSuccIndex = -1
		}
		if node.FoldSuccIndex >= len(node.Actions) {
			node.FoldSuccIndex = -1
		}
	}
	node.DefaultSuccIndex = node.CallSuccIndex
	if node.DefaultSuccIndex < 0 {
		node.DefaultSuccIndex = 0
	}

	key := s.street*t.game.NumPlayers + player
	node.NonterminalID = t.numNonterminals[key]
	t.numNonterminals[key]++

	t.Nodes = append(t.Nodes, node)
	return nodeRef(len(t.Nodes) - 1), nil
}

// advance moves to the next decision after a call/check: either the next
// player on this street, or the next street's first-to-act, or a terminal
// if the street (and hand) is over.
func (t *Tree) advance(s buildState, actor int) (uint32, error) {
	allActed := true
	for i := range s.acted {
		if !s.folded[i] && !s.acted[i] {
			allActed = false
			break
		}
	}
	allMatched := allBetsMatched(s)

	if allActed && allMatched {
		if s.street >= t.game.MaxStreet {
			return t.addTerminal(s, false), nil
		}
		ns := s.clone()
		ns.street++
		ns.numStreetBets = 0
		ns.lastRaiser = -1
		for i := range ns.acted {
			ns.acted[i] = false
		}
		return t.buildNode(ns, t.game.FirstToAct[ns.street])
	}

	np := nextPlayer(actor, s)
	return t.buildNode(s, np)
}

func allBetsMatched(s buildState) bool {
	target := s.maxBet()
	for i, f := range s.folded {
		if f {
			continue
		}
		if s.bets[i] != target && s.stacks[i] != 0 {
			return false
		}
	}
	return true
}

func allButOneAllIn(s buildState) bool {
	activeWithChips := 0
	for i, f := range s.folded {
		if f {
			continue
		}
		if s.stacks[i] > 0 {
			activeWithChips++
		}
	}
	return activeWithChips <= 1 && s.numActive() > 1
}

func actedEnough(s buildState) bool {
	return allBetsMatched(s)
}

func nextPlayer(actor int, s buildState) int {
	n := len(s.folded)
	for i := 1; i <= n; i++ {
		p := (actor + i) % n
		if !s.folded[p] {
			return p
		}
	}
	return actor
}

func (t *Tree) runoutToShowdown(s buildState) (uint32, error) {
	ns := s.clone()
	for ns.street < t.game.MaxStreet {
		ns.street++
	}
	return t.addTerminal(ns, false), nil
}

func (t *Tree) addTerminal(s buildState, isFold bool) uint32 {
	term := Terminal{PotSize: s.potSize(), TerminalID: len(t.Terms)}
	if isFold {
		term.Kind = TerminalFold
		for i, f := range s.folded {
			if !f {
				term.FoldedPlayer = otherOf(i, len(s.folded))
			}
		}
		for i, f := range s.folded {
			if f {
				term.FoldedPlayer = i
			}
		}
	} else {
		term.Kind = TerminalShowdown
	}
	t.Terms = append(t.Terms, term)
	return terminalRef(len(t.Terms) - 1)
}

func otherOf(seat, n int) int { return (seat + 1) % n }

// raiseTotals returns the sorted, deduped set of legal bet-to totals for the
// player to act, derived from the pot-fraction abstraction, grounded on
// sdk/solver.Trainer.raiseAmounts.
func (t *Tree) raiseTotals(s buildState, player int) []int {
	pot := s.potSize()
	toCall := s.maxBet() - s.bets[player]
	minRaiseIncrement := t.game.BigBlind
	maxTotal := s.bets[player] + s.stacks[player]

	seen := make(map[int]bool, len(t.abs.BetSizing)+1)
	var totals []int
	for _, frac := range t.abs.BetSizing {
		raise := int(math.Round(float64(pot) * frac))
		if raise < minRaiseIncrement {
			raise = minRaiseIncrement
		}
		total := s.maxBet() + raise
		if total <= s.maxBet() || total <= s.bets[player]+toCall {
			continue
		}
		if total >= maxTotal {
			continue
		}
		if seen[total] {
			continue
		}
		seen[total] = true
		totals = append(totals, total)
	}
	sort.Ints(totals)
	// All-in is always a legal bet succ when raises are enabled.
	if maxTotal > s.maxBet() && !seen[maxTotal] {
		totals = append(totals, maxTotal)
	}
	return totals
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
