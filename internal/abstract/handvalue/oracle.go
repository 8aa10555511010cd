// Package handvalue treats the hand-value oracle as a well-defined external
// collaborator (spec §2, §9): "For a 7-card showdown set, return a
// totally-ordered rank value". This package defines that contract plus a
// flat, combinatorial-rank-indexed disk table (promoting the re-architected
// "tree7" from Design Note §9 to the canonical in-memory representation)
// and one concrete, in-process reference Oracle so the rest of the repo
// (and its tests) can run without a pre-built multi-gigabyte lookup table.
package handvalue

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
)

// Oracle returns a totally-ordered rank value for a 7-card showdown set.
// Higher is better. Implementations need not agree on absolute values, only
// relative order, and must be pure functions of the card set.
type Oracle interface {
	Rank(cards []card.Card) uint32
}

// ReferenceOracle is a self-contained 7-card evaluator: rank-histogram based,
// grounded on the teacher's poker.Evaluate7Cards algorithm (count ranks,
// detect straight/flush by bitmask, pack type+kickers into one ordered
// integer) but operating on card.Card (rank = c/NumSuits) instead of the
// teacher's bit-packed poker.Hand, since that package's core Card/Hand type
// definitions are not present in this corpus (see DESIGN.md).
type ReferenceOracle struct {
	game config.Game
}

// NewReferenceOracle builds a ReferenceOracle for the given game config.
func NewReferenceOracle(g config.Game) *ReferenceOracle {
	return &ReferenceOracle{game: g}
}

const (
	typeHighCard uint32 = iota
	typePair
	typeTwoPair
	typeTrips
	typeStraight
	typeFlush
	typeFullHouse
	typeQuads
	typeStraightFlush
)

// Rank implements Oracle for a best-5-of-N card set (N is typically 7).
func (o *ReferenceOracle) Rank(cards []card.Card) uint32 {
	codec := card.NewCodec(o.game)
	var rankCounts [13]uint8
	var suitMasks [4]uint16 // bit i set => rank i present in that suit
	var rankMask uint16

	for _, c := range cards {
		rank, suit := codec.Decode(c)
		rankCounts[rank]++
		rankMask |= 1 << uint(rank)
		if suit < len(suitMasks) {
			suitMasks[suit] |= 1 << uint(rank)
		}
	}

	flushSuit := -1
	for s, mask := range suitMasks {
		if popcount16(mask) >= 5 {
			flushSuit = s
			break
		}
	}

	straightHigh := straightHigh(rankMask)

	if flushSuit >= 0 {
		if sfHigh := straightHigh(suitMasks[flushSuit]); sfHigh >= 0 {
			return pack(typeStraightFlush, uint8(sfHigh))
		}
	}

	quad := findN(rankCounts, 4)
	trip := findN(rankCounts, 3)
	pairs := findAllN(rankCounts, 2)

	switch {
	case quad >= 0:
		kicker := highestExcept(rankMask, quad)
		return pack(typeQuads, uint8(quad), uint8(kicker))
	case trip >= 0 && len(pairs) > 0:
		return pack(typeFullHouse, uint8(trip), uint8(pairs[0]))
	case trip >= 0 && len(findAllN(rankCounts, 3)) > 1:
		second := secondN(rankCounts, 3, trip)
		return pack(typeFullHouse, uint8(trip), uint8(second))
	case flushSuit >= 0:
		return packRanks(typeFlush, topRanks(suitMasks[flushSuit], 5))
	case straightHigh >= 0:
		return pack(typeStraight, uint8(straightHigh))
	case trip >= 0:
		kickers := topRanksExcept(rankMask, []int{trip}, 2)
		return packRanks(typeTrips, append([]int{trip}, kickers...))
	case len(pairs) >= 2:
		kicker := topRanksExcept(rankMask, pairs[:2], 1)
		return packRanks(typeTwoPair, append(append([]int{}, pairs[:2]...), kicker...))
	case len(pairs) == 1:
		kickers := topRanksExcept(rankMask, pairs, 3)
		return packRanks(typePair, append([]int{pairs[0]}, kickers...))
	default:
		return packRanks(typeHighCard, topRanks(rankMask, 5))
	}
}

func pack(handType uint32, kickers ...uint8) uint32 {
	v := handType << 28
	shift := 24
	for _, k := range kickers {
		v |= uint32(k) << uint(shift)
		shift -= 4
	}
	return v
}

func packRanks(handType uint32, ranks []int) uint32 {
	ks := make([]uint8, len(ranks))
	for i, r := range ranks {
		ks[i] = uint8(r)
	}
	return pack(handType, ks...)
}

func popcount16(m uint16) int {
	n := 0
	for m != 0 {
		m &= m - 1
		n++
	}
	return n
}

// straightHigh returns the rank index of the straight's high card given a
// 13-bit rank-presence mask, or -1 if no straight exists. Ace (rank 12)
// counts low for the wheel (A-2-3-4-5).
func straightHigh(mask uint16) int {
	return straightHigh16(withWheelAce(mask))
}

func withWheelAce(mask uint16) uint16 {
	if mask&(1<<12) != 0 {
		mask |= 1 << 13 // virtual ace-low slot above bit 12, wheel check below
	}
	return mask
}

// straightHigh16 scans a rank-presence mask (bit 0 = deuce .. bit 12 = ace,
// plus the synthetic wheel bit 13) for 5 consecutive set bits.
func straightHigh16(mask uint16) int {
	for high := 12; high >= 4; high-- {
		need := uint16(0)
		for r := high - 4; r <= high; r++ {
			need |= 1 << uint(r)
		}
		if mask&need == need {
			return high
		}
	}
	// Wheel: 2,3,4,5 + synthetic ace at bit 13 used only for the check.
	wheelMask := uint16(1<<0 | 1<<1 | 1<<2 | 1<<3 | 1<<13)
	if mask&wheelMask == wheelMask {
		return 3 // straight "high card" is the five (rank index 3)
	}
	return -1
}

func findN(counts [13]uint8, n uint8) int {
	for r := 12; r >= 0; r-- {
		if counts[r] == n {
			return r
		}
	}
	return -1
}

func secondN(counts [13]uint8, n uint8, except int) int {
	for r := 12; r >= 0; r-- {
		if r != except && counts[r] == n {
			return r
		}
	}
	return -1
}

func findAllN(counts [13]uint8, n uint8) []int {
	var out []int
	for r := 12; r >= 0; r-- {
		if counts[r] == n {
			out = append(out, r)
		}
	}
	return out
}

func highestExcept(mask uint16, except int) int {
	for r := 12; r >= 0; r-- {
		if r != except && mask&(1<<uint(r)) != 0 {
			return r
		}
	}
	return -1
}

func topRanks(mask uint16, n int) []int {
	var out []int
	for r := 12; r >= 0 && len(out) < n; r-- {
		if mask&(1<<uint(r)) != 0 {
			out = append(out, r)
		}
	}
	return out
}

func topRanksExcept(mask uint16, except []int, n int) []int {
	ex := make(map[int]bool, len(except))
	for _, e := range except {
		ex[e] = true
	}
	var out []int
	for r := 12; r >= 0 && len(out) < n; r-- {
		if ex[r] {
			continue
		}
		if mask&(1<<uint(r)) != 0 {
			out = append(out, r)
		}
	}
	return out
}

// combRank computes the combinatorial rank (colexicographic index) of a
// sorted-ascending k-card combination drawn from an n-card deck, the
// bijection spec §6.4 requires for the flat hand-value array.
func combRank(cards []int, n int) int64 {
	rank := int64(0)
	for i, c := range cards {
		rank += choose(c, i+1)
	}
	return rank
}

func choose(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	result := int64(1)
	for i := 0; i < k; i++ {
		result = result * int64(n-i) / int64(i+1)
	}
	return result
}

// DiskTree is a flat, little-endian array of 32-bit rank values indexed by
// the combinatorial rank of a sorted 7-card tuple, per spec §6.4: "one
// contiguous array of 32-bit values indexed by a sorted-card-tuple-to-offset
// bijection".
type DiskTree struct {
	game config.Game
	data []uint32
}

// OpenDiskTree memory-maps (here: reads fully, since mmap is a platform
// concern left to the caller) a persisted hand-value table.
func OpenDiskTree(g config.Game, path string) (*DiskTree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, abserrors.TableMissing("handvalue.OpenDiskTree", err)
	}
	if len(raw)%4 != 0 {
		return nil, abserrors.TableMissing("handvalue.OpenDiskTree", fmt.Errorf("table size %d not a multiple of 4", len(raw)))
	}
	data := make([]uint32, len(raw)/4)
	for i := range data {
		data[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return &DiskTree{game: g, data: data}, nil
}

// Rank implements Oracle by looking up the combinatorial rank of the sorted
// 7-card tuple in the flat array.
func (d *DiskTree) Rank(cards []card.Card) uint32 {
	sorted := make([]int, len(cards))
	for i, c := range cards {
		sorted[i] = int(c)
	}
	// insertion sort ascending (N is always 7; avoids importing sort for a
	// handful of elements)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	idx := combRank(sorted, d.game.NumCardsInDeck())
	if idx < 0 || int(idx) >= len(d.data) {
		return 0
	}
	return d.data[idx]
}
