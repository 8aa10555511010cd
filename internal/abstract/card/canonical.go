package card

import (
	"github.com/lox/pokerabstract/internal/abstract/config"
)

// StreetBlock groups the cards dealt on one street so canonicalization can
// sort each block high-to-low independently before lexicographic
// comparison, per spec §4.2: "cards are sorted high-to-low within each
// street's block before comparison".
type StreetBlock []Card

// CanonicalizeCards computes the suit-permutation sigma that minimizes the
// concatenated (board..., hole) tuple under street-wise lexicographic
// order, and applies it. blocks is ordered [board street blocks..., hole].
// It returns the canonicalized blocks (same shape as input) and sigma: the
// suit permutation applied, sigma[oldSuit] = newSuit.
func CanonicalizeCards(g config.Game, blocks []StreetBlock) (canon []StreetBlock, sigma []int) {
	codec := NewCodec(g)
	n := g.NumSuits

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	var best []StreetBlock
	var bestSigma []int

	permute(perm, 0, func(p []int) {
		cand := applySuitPermutation(codec, blocks, p)
		for _, blk := range cand {
			SortHighToLow(blk, g)
		}
		if best == nil || lessTuple(cand, best) {
			best = cand
			bestSigma = append([]int(nil), p...)
		}
	})

	return best, bestSigma
}

func applySuitPermutation(codec Codec, blocks []StreetBlock, sigma []int) []StreetBlock {
	out := make([]StreetBlock, len(blocks))
	for i, blk := range blocks {
		nb := make(StreetBlock, len(blk))
		for j, c := range blk {
			rank, suit := codec.Decode(c)
			nb[j] = codec.Encode(rank, sigma[suit])
		}
		out[i] = nb
	}
	return out
}

// lessTuple compares two equally-shaped block slices card-by-card in
// flattened street order, returning true if a < b.
func lessTuple(a, b []StreetBlock) bool {
	for bi := range a {
		ab, bb := a[bi], b[bi]
		for i := 0; i < len(ab) && i < len(bb); i++ {
			if ab[i] != bb[i] {
				return ab[i] < bb[i]
			}
		}
	}
	return false
}

// permute calls fn with every permutation of perm[k:], generated by
// recursive swap-and-restore (perm is modified in place and restored before
// returning).
func permute(perm []int, k int, fn func([]int)) {
	if k == len(perm) {
		fn(perm)
		return
	}
	for i := k; i < len(perm); i++ {
		perm[k], perm[i] = perm[i], perm[k]
		permute(perm, k+1, fn)
		perm[k], perm[i] = perm[i], perm[k]
	}
}

// HoleCardPairIndex computes the dense HCP index for two canonical hole
// cards (hi > lo) against a canonical board, per spec §4.2: reduce each
// hole card to its position among non-board cards, then combine via
// triangular numbering.
func HoleCardPairIndex(board []Card, hi, lo Card) int {
	if hi < lo {
		hi, lo = lo, hi
	}
	loIdx := positionAmongRemaining(board, lo)
	hiIdx := positionAmongRemaining(board, hi)
	// hi was removed from consideration before counting lo's reduction in
	// the original implementation's two-card case; since hi > lo always and
	// board cards are disjoint from hole cards, reducing independently is
	// equivalent here.
	return (hiIdx-1)*hiIdx/2 + loIdx
}

// SingleHoleCardIndex reduces one hole card to its position among
// non-board cards: c - (number of board cards below c).
func SingleHoleCardIndex(board []Card, c Card) int {
	return positionAmongRemaining(board, c)
}

func positionAmongRemaining(board []Card, c Card) int {
	below := 0
	for _, b := range board {
		if b < c {
			below++
		}
	}
	return int(c) - below
}
