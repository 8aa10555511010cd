package card_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
)

func TestCanonicalizeCardsIsSuitPermutationInvariant(t *testing.T) {
	g := config.Default()
	codec := card.NewCodec(g)

	board, err := codec.ParseNCards("2s7dTc")
	require.NoError(t, err)
	hole, err := codec.ParseNCards("AhKh")
	require.NoError(t, err)

	canonA, _ := card.CanonicalizeCards(g, []card.StreetBlock{card.StreetBlock(board), card.StreetBlock(hole)})

	// Relabel every suit (s<->h, d<->c) in the input; the canonical form
	// must come out identical since canonicalization picks one
	// representative per suit-isomorphism class (spec §4.2 invariant).
	swapped, err := codec.ParseNCards("2h7cTd")
	require.NoError(t, err)
	swappedHole, err := codec.ParseNCards("AsKs")
	require.NoError(t, err)

	canonB, _ := card.CanonicalizeCards(g, []card.StreetBlock{card.StreetBlock(swapped), card.StreetBlock(swappedHole)})

	assert.Equal(t, canonA, canonB)
}

func TestHoleCardPairIndexIsSymmetric(t *testing.T) {
	g := config.Default()
	codec := card.NewCodec(g)
	board, err := codec.ParseNCards("2s7dTc")
	require.NoError(t, err)

	a, err := codec.ParseCard("Ah")
	require.NoError(t, err)
	k, err := codec.ParseCard("Kh")
	require.NoError(t, err)

	assert.Equal(t, card.HoleCardPairIndex(board, a, k), card.HoleCardPairIndex(board, k, a))
}

func TestHoleCardPairIndexIsDistinct(t *testing.T) {
	g := config.Default()
	codec := card.NewCodec(g)
	board, err := codec.ParseNCards("2s7dTc")
	require.NoError(t, err)

	remaining, err := codec.ParseNCards("4s5s6s7s8s")
	require.NoError(t, err)

	seen := make(map[int]bool)
	for i := 0; i < len(remaining); i++ {
		for j := i + 1; j < len(remaining); j++ {
			idx := card.HoleCardPairIndex(board, remaining[i], remaining[j])
			assert.False(t, seen[idx], "hole card pair index %d reused", idx)
			seen[idx] = true
		}
	}
}
