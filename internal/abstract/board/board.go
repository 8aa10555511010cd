// Package board implements §4.3: eager enumeration of canonical board
// states per street, with predecessor/successor indexing and local<->global
// board index conversion used during endgame subtree construction.
package board

import (
	"fmt"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
)

// Tree holds, per street, every canonical board reachable by extending a
// canonical board from the previous street, plus the indices needed to
// convert between global board indices and board indices local to a fixed
// earlier-street board (used by the endgame resolver, spec §4.8).
type Tree struct {
	game   config.Game
	codec  card.Codec
	boards [][][]card.Card // [street][gbd] -> canonical cards
	lookup []map[string]int
	// parent[street][gbd] is the first previous-street global board index
	// found to extend to gbd (-1 for street 0); each board has exactly one
	// parent. children[street][gbd] lists the next-street global board
	// indices whose parent is this board; a next-street board that also
	// extends this board but was first reached from another board is not
	// listed here.
	children [][][]int
	parent   [][]int
	// rawCount[street][gbd] is the number of raw (non-canonicalized) boards
	// on that street which canonicalize to gbd.
	rawCount [][]int64
}

// Build enumerates the board tree from street 0 (flop) through g.MaxStreet.
// Preflop (no board cards) is street -1 conceptually and is not stored here.
func Build(g config.Game) (*Tree, error) {
	codec := card.NewCodec(g)
	t := &Tree{game: g, codec: codec}

	numStreets := g.MaxStreet // Flop..River inclusive, Preflop has no board
	t.boards = make([][][]card.Card, numStreets)
	t.lookup = make([]map[string]int, numStreets)
	t.children = make([][][]int, numStreets)
	t.parent = make([][]int, numStreets)
	t.rawCount = make([][]int64, numStreets)

	deck := make([]card.Card, g.NumCardsInDeck())
	for i := range deck {
		deck[i] = card.Card(i)
	}

	// Street 0 (flop): enumerate all NumFlopCards-combinations directly.
	if numStreets > 0 {
		if err := t.buildFlop(deck); err != nil {
			return nil, err
		}
	}
	// Subsequent streets: extend each canonical board from the prior street
	// with one more card drawn from the remaining deck.
	for st := 1; st < numStreets; st++ {
		if err := t.extendStreet(st, deck); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Tree) buildFlop(deck []card.Card) error {
	n := t.game.NumFlopCards
	t.lookup[0] = make(map[string]int)
	combosDo(deck, n, func(combo []card.Card) {
		canonBlocks, _ := card.CanonicalizeCards(t.game, []card.StreetBlock{card.StreetBlock(append([]card.Card(nil), combo...))})
		canon := []card.Card(canonBlocks[0])
		key := blockKey(canon)
		if idx, ok := t.lookup[0][key]; ok {
			t.rawCount[0][idx]++
			return
		}
		idx := len(t.boards[0])
		t.boards[0] = append(t.boards[0], canon)
		t.parent[0] = append(t.parent[0], -1)
		t.children[0] = append(t.children[0], nil)
		t.rawCount[0] = append(t.rawCount[0], 1)
		t.lookup[0][key] = idx
	})
	return nil
}

func (t *Tree) extendStreet(st int, deck []card.Card) error {
	t.lookup[st] = make(map[string]int)
	prevBoards := t.boards[st-1]
	for pIdx, prevBoard := range prevBoards {
		used := make(map[card.Card]bool, len(prevBoard))
		for _, c := range prevBoard {
			used[c] = true
		}
		for _, c := range deck {
			if used[c] {
				continue
			}
			candidate := append(append([]card.Card(nil), prevBoard...), c)
			canonBlocks, _ := card.CanonicalizeCards(t.game, []card.StreetBlock{card.StreetBlock(candidate)})
			canon := []card.Card(canonBlocks[0])
			key := blockKey(canon)
			// Every raw previous-street board in pIdx's class extends to this
			// street the same way, so each extension counts rawCount[pIdx]
			// raw boards.
			if idx, ok := t.lookup[st][key]; ok {
				t.rawCount[st][idx] += t.rawCount[st-1][pIdx]
				continue
			}
			idx := len(t.boards[st])
			t.boards[st] = append(t.boards[st], canon)
			t.parent[st] = append(t.parent[st], pIdx)
			t.children[st] = append(t.children[st], nil)
			t.rawCount[st] = append(t.rawCount[st], t.rawCount[st-1][pIdx])
			t.lookup[st][key] = idx
			t.children[st-1][pIdx] = append(t.children[st-1][pIdx], idx)
		}
	}
	return nil
}

func blockKey(cards []card.Card) string {
	b := make([]byte, len(cards))
	for i, c := range cards {
		b[i] = byte(c)
	}
	return string(b)
}

func combosDo(deck []card.Card, k int, fn func([]card.Card)) {
	n := len(deck)
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]card.Card, k)
		for i, id := range idx {
			combo[i] = deck[id]
		}
		fn(combo)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// NumBoards returns the count of canonical boards on the given street.
func (t *Tree) NumBoards(street int) int {
	if street < 0 || street >= len(t.boards) {
		return 0
	}
	return len(t.boards[street])
}

// Board returns the canonical cards for (street, gbd).
func (t *Tree) Board(street, gbd int) ([]card.Card, error) {
	if street < 0 || street >= len(t.boards) || gbd < 0 || gbd >= len(t.boards[street]) {
		return nil, abserrors.Invariant("board.Board", fmt.Errorf("index out of range street=%d gbd=%d", street, gbd))
	}
	return t.boards[street][gbd], nil
}

// LookupBoard returns the global board index for canonical cards on street,
// built from the hash constructed at init, per spec §4.3.
func (t *Tree) LookupBoard(canonCards []card.Card, street int) (int, error) {
	if street < 0 || street >= len(t.lookup) {
		return 0, abserrors.Invariant("board.LookupBoard", fmt.Errorf("street %d out of range", street))
	}
	idx, ok := t.lookup[street][blockKey(canonCards)]
	if !ok {
		return 0, abserrors.Invariant("board.LookupBoard", fmt.Errorf("board not found on street %d", street))
	}
	return idx, nil
}

// BoardCount returns the number of raw boards that canonicalize to gbd.
func (t *Tree) BoardCount(street, gbd int) int64 {
	if street < 0 || street >= len(t.rawCount) || gbd < 0 || gbd >= len(t.rawCount[street]) {
		return 0
	}
	return t.rawCount[street][gbd]
}

// NumLocalBoards returns the number of target-street global boards that
// descend from (rootSt, rootGbd) through the parent links; boards that
// extend the root but have a different recorded parent are not counted.
func (t *Tree) NumLocalBoards(rootSt, rootGbd, targetSt int) int {
	return len(t.descendants(rootSt, rootGbd, targetSt))
}

// GlobalIndex converts a local board index (consistent with a fixed board
// on an earlier street) to its target-street global board index.
func (t *Tree) GlobalIndex(rootSt, rootGbd, targetSt, lbd int) (int, error) {
	desc := t.descendants(rootSt, rootGbd, targetSt)
	if lbd < 0 || lbd >= len(desc) {
		return 0, abserrors.Invariant("board.GlobalIndex", fmt.Errorf("local index %d out of range", lbd))
	}
	return desc[lbd], nil
}

// LocalIndex converts a target-street global board index back to its local
// index under the fixed (rootSt, rootGbd) ancestor.
func (t *Tree) LocalIndex(rootSt, rootGbd, targetSt, gbd int) (int, error) {
	desc := t.descendants(rootSt, rootGbd, targetSt)
	for i, d := range desc {
		if d == gbd {
			return i, nil
		}
	}
	return 0, abserrors.Invariant("board.LocalIndex", fmt.Errorf("gbd %d is not a descendant of (%d,%d)", gbd, rootSt, rootGbd))
}

// descendants returns, in stable order, the target-street global board
// indices reachable from (rootSt, rootGbd) by repeatedly following children.
func (t *Tree) descendants(rootSt, rootGbd, targetSt int) []int {
	if rootSt == targetSt {
		return []int{rootGbd}
	}
	if rootSt > targetSt || rootSt < 0 || rootSt >= len(t.children) {
		return nil
	}
	frontier := []int{rootGbd}
	for st := rootSt; st < targetSt; st++ {
		var next []int
		for _, gbd := range frontier {
			next = append(next, t.children[st][gbd]...)
		}
		frontier = next
	}
	return frontier
}

// SuitGroups returns a compact encoding of which suits are currently
// interchangeable under remaining suit symmetry for (street, gbd): suits
// that appear with identical rank sets on the board map to the same group
// id, used downstream when canonicalizing hole-card pairs against this
// board.
func (t *Tree) SuitGroups(street, gbd int) []int {
	boardCards, err := t.Board(street, gbd)
	groups := make([]int, t.game.NumSuits)
	for i := range groups {
		groups[i] = i
	}
	if err != nil {
		return groups
	}
	suitRanks := make([]map[int]bool, t.game.NumSuits)
	for i := range suitRanks {
		suitRanks[i] = make(map[int]bool)
	}
	for _, c := range boardCards {
		rank, suit := t.codec.Decode(c)
		suitRanks[suit][rank] = true
	}
	assigned := make([]bool, t.game.NumSuits)
	nextGroup := 0
	for i := 0; i < t.game.NumSuits; i++ {
		if assigned[i] {
			continue
		}
		groups[i] = nextGroup
		assigned[i] = true
		for j := i + 1; j < t.game.NumSuits; j++ {
			if assigned[j] {
				continue
			}
			if sameRankSet(suitRanks[i], suitRanks[j]) {
				groups[j] = nextGroup
				assigned[j] = true
			}
		}
		nextGroup++
	}
	return groups
}

func sameRankSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
