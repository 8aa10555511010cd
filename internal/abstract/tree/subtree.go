package tree

import "github.com/lox/pokerabstract/internal/abstract/config"

// BuildSubtree constructs a fresh betting tree rooted at an arbitrary mid-
// hand state, used by the endgame resolver (spec §4.4:
// "CreateNoLimitSubtree(street, last_bet_size, bet_to, num_street_bets,
// player_acting, target_player, out &num_terminals)"). stacks/bets give
// each player's remaining chips and current-street contribution at the
// resolve point; folded marks players already out of the hand.
func BuildSubtree(g config.Game, abs Abstraction, street, numStreetBets int, stacks, bets []int, folded []bool, playerActing int) (*Tree, int, error) {
	t := &Tree{game: g, abs: abs, numNonterminals: make([]int, (g.MaxStreet+1)*g.NumPlayers)}

	s := buildState{
		stacks:        append([]int(nil), stacks...),
		bets:          append([]int(nil), bets...),
		street:        street,
		numStreetBets: numStreetBets,
		lastRaiser:    -1,
		acted:         make([]bool, g.NumPlayers),
		folded:        append([]bool(nil), folded...),
	}

	root, err := t.buildNode(s, playerActing)
	if err != nil {
		return nil, 0, err
	}
	t.root = root
	return t, len(t.Terms), nil
}
