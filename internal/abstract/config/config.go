// Package config loads the process-wide, immutable game description (§4.1)
// from an HCL parameter file, the way internal/server/config.go loads server
// settings: parse once with hclparse/gohcl, validate, and hand back a value
// that never mutates again.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
)

// Game is the immutable, process-wide description of the game being played.
// Every component reads it; nothing mutates it after Load returns.
type Game struct {
	Name         string `hcl:"name,optional"`
	MaxStreet    int    `hcl:"max_street,optional"`
	NumPlayers   int    `hcl:"num_players,optional"`
	NumRanks     int    `hcl:"num_ranks,optional"`
	NumSuits     int    `hcl:"num_suits,optional"`
	NumHoleCards int    `hcl:"num_hole_cards,optional"`
	NumFlopCards int    `hcl:"num_flop_cards,optional"`

	FirstToAct []int `hcl:"first_to_act,optional"`

	SmallBlind int `hcl:"small_blind,optional"`
	BigBlind   int `hcl:"big_blind,optional"`
	Ante       int `hcl:"ante,optional"`
	StackSize  int `hcl:"stack_size,optional"`
}

// Street indices, matching MaxStreet = River for the default hold'em config.
const (
	Preflop = iota
	Flop
	Turn
	River
)

// Default returns the conservative no-limit hold'em configuration used by
// the example scenarios in spec.md §8: 13 ranks, 4 suits, 2 hole cards,
// flop/turn/river, SB 50 / BB 100 / stack 20000.
func Default() Game {
	return Game{
		Name:         "holdem",
		MaxStreet:    River,
		NumPlayers:   2,
		NumRanks:     13,
		NumSuits:     4,
		NumHoleCards: 2,
		NumFlopCards: 3,
		FirstToAct:   []int{0, 1, 1, 1},
		SmallBlind:   50,
		BigBlind:     100,
		Ante:         0,
		StackSize:    20000,
	}
}

// Load reads a Game from an HCL parameter file, applying Default() for any
// attribute the file omits (an attribute written as 0 stays 0). Errors here
// are always fatal at
// initialization, per spec §4.1.
func Load(path string) (Game, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Game{}, abserrors.TableMissing("config.Load", fmt.Errorf("game config %q not found", path))
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Game{}, abserrors.Parse("config.Load", fmt.Errorf("parse hcl: %s", diags.Error()))
	}

	g := Default()
	diags = gohcl.DecodeBody(file.Body, nil, &g)
	if diags.HasErrors() {
		return Game{}, abserrors.Parse("config.Load", fmt.Errorf("decode hcl: %s", diags.Error()))
	}

	if err := g.Validate(); err != nil {
		return Game{}, abserrors.Invariant("config.Load", err)
	}
	return g, nil
}

// Validate checks the recognized options are internally consistent.
func (g Game) Validate() error {
	if g.NumRanks <= 0 || g.NumSuits <= 0 {
		return fmt.Errorf("num_ranks and num_suits must be positive")
	}
	if g.NumHoleCards <= 0 {
		return fmt.Errorf("num_hole_cards must be positive")
	}
	if g.MaxStreet < Preflop || g.MaxStreet > River {
		return fmt.Errorf("max_street out of range")
	}
	if len(g.FirstToAct) < g.MaxStreet+1 {
		return fmt.Errorf("first_to_act must have an entry for every street up to max_street")
	}
	if g.NumPlayers < 2 {
		return fmt.Errorf("num_players must be >= 2")
	}
	if g.SmallBlind <= 0 || g.BigBlind <= g.SmallBlind {
		return fmt.Errorf("blinds must be positive and big blind must exceed small blind")
	}
	if g.StackSize <= 0 {
		return fmt.Errorf("stack_size must be positive")
	}
	return nil
}

// NumCardsInDeck is a derived accessor: NumRanks * NumSuits.
func (g Game) NumCardsInDeck() int { return g.NumRanks * g.NumSuits }

// NumBoardCards returns the cumulative number of board cards dealt by the
// end of the given street (0 preflop .. river).
func (g Game) NumBoardCards(street int) int {
	switch {
	case street <= Preflop:
		return 0
	case street == Flop:
		return g.NumFlopCards
	case street == Turn:
		return g.NumFlopCards + 1
	default:
		return g.NumFlopCards + 2
	}
}

// NumHoleCardPairs returns the number of distinct ordered hole-card pairs
// dealt to one player (always NumHoleCards choose 2 for hold'em-style games).
func (g Game) NumHoleCardPairs() int {
	n := g.NumHoleCards
	return n * (n - 1) / 2
}

// NumCardPermutations returns the number of ways to deal the deck for
// sampling diagnostics: falling factorial NumCardsInDeck!/(NumCardsInDeck-k)!.
func (g Game) NumCardPermutations(k int) int64 {
	n := int64(g.NumCardsInDeck())
	result := int64(1)
	for i := int64(0); i < int64(k); i++ {
		result *= n - i
	}
	return result
}
