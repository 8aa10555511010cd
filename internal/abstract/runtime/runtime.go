// Package runtime implements §4.7: the hand state machine that advances
// through a match hand driven by real-game wire actions, including
// out-of-sync recovery via translation. Grounded on nl_agent.cpp's
// per-hand replay loop (ProcessOpponentAction / PrepareForNextHand) and on
// internal/game/hand.go's state-advancement style.
package runtime

import (
	"math/rand/v2"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/strategy"
	"github.com/lox/pokerabstract/internal/abstract/translate"
	"github.com/lox/pokerabstract/internal/abstract/tree"
	"github.com/lox/pokerabstract/internal/randutil"
)

// Decision is the sentinel-or-real outcome of a wire message, per spec §4.7
// step 4/5.
type Decision int

const (
	// DecisionNoAction means it is not our turn; emit nothing.
	DecisionNoAction Decision = iota
	// DecisionSafeCall is the "Call" sentinel returned when the real game
	// reached showdown/fold-all-in ahead of us, or the abstract tree
	// terminated while the real game continues.
	DecisionSafeCall
	// DecisionSample means it is genuinely our turn to sample an action.
	DecisionSample
)

// RetraceStep represents one advance through the tree during hand replay,
// per spec §3.1.
type RetraceStep struct {
	SkipAction int // 0, 1, or 2: opponent actions subsumed by prior rounding
	NodeRef    uint32
	Succ       int
}

// Machine owns one bot's exclusive per-hand state: path, action index,
// folded flags, and the last seen hand index, per spec §3.2/§3.4.
type Machine struct {
	Tree *tree.Tree
	Seat int

	path          []uint32 // node/terminal refs visited so far, path[0] = root
	actionIndex   int      // index into the real game's action stream already replayed
	folded        []bool
	lastHandIndex int64
	numPlayers    int

	seatRNG []*rand.Rand
	cfg     translate.Config

	// resolvedStore, when non-nil, is consulted for streets >= the
	// resolver's configured street instead of the base store, per §4.8 step 5.
	resolvedStore    strategy.Store
	resolvedFromStreet int
}

// New constructs a Machine bound to a betting tree for a fixed seat.
func New(t *tree.Tree, seat, numPlayers int, cfg translate.Config) *Machine {
	return &Machine{
		Tree:          t,
		Seat:          seat,
		folded:        make([]bool, numPlayers),
		numPlayers:    numPlayers,
		seatRNG:       make([]*rand.Rand, numPlayers),
		cfg:           cfg,
		lastHandIndex: -1,
		resolvedFromStreet: -1,
	}
}

// ResetForHand implements spec §4.7 step 1 / §3.4 "Hand start": if
// handIndex differs from the last seen one, reset all per-hand state and
// reseed per-player RNGs deterministically as seed = handIndex*numPlayers+seat.
func (m *Machine) ResetForHand(handIndex int64) {
	if handIndex == m.lastHandIndex {
		return
	}
	m.lastHandIndex = handIndex
	m.path = []uint32{m.Tree.Root()}
	m.actionIndex = 0
	for i := range m.folded {
		m.folded[i] = false
	}
	m.resolvedStore = nil
	m.resolvedFromStreet = -1
	for seat := 0; seat < m.numPlayers; seat++ {
		seed := handIndex*int64(m.numPlayers) + int64(seat)
		m.seatRNG[seat] = randutil.New(seed)
	}
}

// Path returns the sequence of arena refs visited so far this hand,
// path[0] == Tree.Root(), suitable for building resolve.PathStep values
// for endgame resolving (spec §4.8 step 2).
func (m *Machine) Path() []uint32 {
	return append([]uint32(nil), m.path...)
}

// CurrentNodeRef returns the arena reference to the machine's current
// position in the tree (always a Node while the hand is ongoing; may become
// a Terminal ref once the abstract hand completes).
func (m *Machine) CurrentNodeRef() uint32 {
	return m.path[len(m.path)-1]
}

// AtTerminal reports whether the current position is a terminal node.
func (m *Machine) AtTerminal() bool {
	return tree.IsTerminalSucc(m.CurrentNodeRef())
}

// CurrentNode returns the decision node at the current position; callers
// must check AtTerminal first.
func (m *Machine) CurrentNode() *tree.Node {
	return &m.Tree.Nodes[tree.SuccIndex(m.CurrentNodeRef())]
}

// ReplayOpponentAction advances the machine's abstract position in response
// to one real-game action from an opponent, per spec §4.7 step 3. It
// returns the RetraceStep taken, possibly with SkipAction set when the
// abstract tree had already run ahead due to a prior bet-rounding.
func (m *Machine) ReplayOpponentAction(isFold, isCall bool, betTo int) (RetraceStep, error) {
	if m.AtTerminal() {
		// Abstract terminal reached while the real game continues: swallow
		// as a no-op (spec §4.7 edge case).
		return RetraceStep{SkipAction: 1, NodeRef: m.CurrentNodeRef(), Succ: -1}, nil
	}

	node := m.CurrentNode()
	var result translate.Result
	var err error

	switch {
	case isFold:
		result = translate.TranslateFoldOrCall(node, true)
	case isCall:
		result = translate.TranslateFoldOrCall(node, false)
	default:
		rng := m.seatRNG[otherSeat(m.Seat, m.numPlayers)]
		result, err = translate.TranslateBet(node, betTo, m.cfg, rng, 0)
		if err != nil {
			return RetraceStep{}, err
		}
	}

	if result.SkipAction {
		return RetraceStep{SkipAction: 1, NodeRef: m.CurrentNodeRef(), Succ: -1}, nil
	}

	succRef := node.Successors[result.SuccIndex]
	m.path = append(m.path, succRef)
	m.actionIndex++
	return RetraceStep{SkipAction: 0, NodeRef: succRef, Succ: result.SuccIndex}, nil
}

// Advance commits our own sampled action (by successor index within the
// current node) to the path, mirroring the bookkeeping ReplayOpponentAction
// uses for opponent actions, per spec §4.7 step 6.
func (m *Machine) Advance(succIndex int) error {
	if m.AtTerminal() {
		return abserrors.Invariant("runtime.Advance", abserrors.ErrNoSuccessors)
	}
	node := m.CurrentNode()
	if succIndex < 0 || succIndex >= len(node.Successors) {
		return abserrors.Invariant("runtime.Advance", abserrors.ErrUnreachableState)
	}
	m.path = append(m.path, node.Successors[succIndex])
	m.actionIndex++
	return nil
}

// WhoseTurn determines whose turn it is at the current abstract position,
// or reports the hand is over. ok is false once AtTerminal() is true.
func (m *Machine) WhoseTurn() (player int, ok bool) {
	if m.AtTerminal() {
		return 0, false
	}
	return m.CurrentNode().PlayerToAct, true
}

// Decide implements spec §4.7 step 4: determine whether it is our turn,
// whether we're "actually all-in" regardless of the abstract state
// (forcing NoAction), or whether the real game has already reached a
// terminal ahead of the abstract tree (forcing the Call sentinel).
func (m *Machine) Decide(actuallyAllIn, realGameAtTerminal bool) Decision {
	if actuallyAllIn {
		return DecisionNoAction
	}
	if realGameAtTerminal || m.AtTerminal() {
		return DecisionSafeCall
	}
	player, _ := m.WhoseTurn()
	if player != m.Seat {
		return DecisionNoAction
	}
	return DecisionSample
}

// UseResolvedStoreFrom marks that, for the remainder of this hand, streets
// at or after fromStreet should be served by the resolved store rather than
// the base strategy, per spec §4.8 step 5.
func (m *Machine) UseResolvedStoreFrom(fromStreet int, store strategy.Store) {
	m.resolvedFromStreet = fromStreet
	m.resolvedStore = store
}

// StoreFor returns whichever store should answer a Probs query for the
// given street: the resolved store if one is active and the street has
// reached the resolve point, else the base store.
func (m *Machine) StoreFor(street int, base strategy.Store) strategy.Store {
	if m.resolvedStore != nil && street >= m.resolvedFromStreet {
		return m.resolvedStore
	}
	return base
}

// HasResolvedStore reports whether endgame resolution already ran this hand,
// per spec §4.8 precondition (b): "no resolved strategy yet exists".
func (m *Machine) HasResolvedStore() bool { return m.resolvedStore != nil }

func otherSeat(seat, numPlayers int) int {
	return (seat + 1) % numPlayers
}
