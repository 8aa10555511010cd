// Package card implements §4.2: card encoding and suit-isomorphic
// canonicalization. Cards are small integers the way cards.h's
// `Rank(card) = card / NumSuits`, `Suit(card) = card % NumSuits` encodes
// them, not the teacher's struct-pair poker.Card.
package card

import (
	"fmt"
	"sort"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/abstract/config"
)

// Card is an integer in [0, NumRanks*NumSuits). Rank = card/NumSuits,
// Suit = card%NumSuits. card_a > card_b gives a consistent high-to-low
// total order, matching invariant 3.1.
type Card uint8

// Codec binds card encode/decode and parsing to a fixed game config, since
// NumSuits varies per game.
type Codec struct {
	game config.Game
}

// NewCodec builds a Codec for the given game config.
func NewCodec(g config.Game) Codec { return Codec{game: g} }

// Encode returns the integer card for a given rank (0-indexed, 0=deuce) and
// suit (0-indexed).
func (c Codec) Encode(rank, suit int) Card {
	return Card(rank*c.game.NumSuits + suit)
}

// Decode splits a Card back into (rank, suit).
func (c Codec) Decode(card Card) (rank, suit int) {
	n := c.game.NumSuits
	return int(card) / n, int(card) % n
}

var rankChars = []byte("23456789TJQKA")
var suitChars = []byte("cdhs")

// PrintCard renders a card as a wire-format token, e.g. "Ah", "Td".
func (c Codec) PrintCard(card Card) string {
	rank, suit := c.Decode(card)
	rc := byte('?')
	if rank >= 0 && rank < len(rankChars) {
		rc = rankChars[len(rankChars)-c.game.NumRanks+rank]
	}
	sc := byte('?')
	if suit >= 0 && suit < len(suitChars) {
		sc = suitChars[suit]
	}
	return string([]byte{rc, sc})
}

// ParseCard parses a wire-format token like "Ah" into a Card.
func (c Codec) ParseCard(tok string) (Card, error) {
	if len(tok) != 2 {
		return 0, abserrors.New(abserrors.KindParse, "card.ParseCard", fmt.Errorf("%w: %q", abserrors.ErrInvalidCardSyntax, tok))
	}
	rankIdx := indexByte(rankChars, upper(tok[0]))
	// rankChars holds all 13 ranks; shift to this game's NumRanks window.
	offset := len(rankChars) - c.game.NumRanks
	if rankIdx < 0 || rankIdx < offset {
		return 0, abserrors.New(abserrors.KindParse, "card.ParseCard", fmt.Errorf("%w: rank %q", abserrors.ErrInvalidCardSyntax, tok[0:1]))
	}
	suitIdx := indexByte(suitChars, lower(tok[1]))
	if suitIdx < 0 || suitIdx >= c.game.NumSuits {
		return 0, abserrors.New(abserrors.KindParse, "card.ParseCard", fmt.Errorf("%w: suit %q", abserrors.ErrInvalidCardSyntax, tok[1:2]))
	}
	return c.Encode(rankIdx-offset, suitIdx), nil
}

// OutputNCards prints n cards sorted as given, space-free, matching
// cards.h's OutputNCards.
func (c Codec) OutputNCards(cards []Card) string {
	out := make([]byte, 0, len(cards)*2)
	for _, cd := range cards {
		out = append(out, c.PrintCard(cd)...)
	}
	return string(out)
}

// ParseNCards parses a concatenated run of 2-char card tokens.
func (c Codec) ParseNCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, abserrors.New(abserrors.KindParse, "card.ParseNCards", fmt.Errorf("%w: odd length %q", abserrors.ErrInvalidCardSyntax, s))
	}
	out := make([]Card, 0, len(s)/2)
	seen := make(map[Card]bool, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		cd, err := c.ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		if seen[cd] {
			return nil, abserrors.New(abserrors.KindParse, "card.ParseNCards", abserrors.ErrDuplicateCard)
		}
		seen[cd] = true
		out = append(out, cd)
	}
	return out, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}

// SortHighToLow sorts cards descending by the total order card_a > card_b,
// which for this encoding sorts primarily by rank then suit.
func SortHighToLow(cards []Card, g config.Game) {
	sort.Slice(cards, func(i, j int) bool {
		ri, _ := NewCodec(g).Decode(cards[i])
		rj, _ := NewCodec(g).Decode(cards[j])
		if ri != rj {
			return ri > rj
		}
		return cards[i] > cards[j]
	})
}
