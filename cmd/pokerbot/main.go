package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/pokerabstract/internal/abstract/acpc"
	"github.com/lox/pokerabstract/internal/abstract/board"
	"github.com/lox/pokerabstract/internal/abstract/bucket"
	"github.com/lox/pokerabstract/internal/abstract/card"
	"github.com/lox/pokerabstract/internal/abstract/config"
	"github.com/lox/pokerabstract/internal/abstract/handvalue"
	"github.com/lox/pokerabstract/internal/abstract/match"
	"github.com/lox/pokerabstract/internal/abstract/policy"
	"github.com/lox/pokerabstract/internal/abstract/resolve"
	"github.com/lox/pokerabstract/internal/abstract/runtime"
	"github.com/lox/pokerabstract/internal/abstract/strategy"
	"github.com/lox/pokerabstract/internal/abstract/translate"
	"github.com/lox/pokerabstract/internal/abstract/tree"
	"github.com/lox/pokerabstract/internal/randutil"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Play  PlayCmd  `cmd:"" help:"play a live match over the ACPC wire protocol"`
	Match MatchCmd `cmd:"" help:"run an offline self-play match for evaluation"`
}

// PlayCmd connects to an ACPC dealer and plays one match seat using a
// precomputed strategy, resolving the endgame once the configured street is
// reached, per spec §4.7/§4.8.
type PlayCmd struct {
	Game               string  `help:"path to the HCL game configuration" required:""`
	Strategy           string  `help:"path to the base strategy store" required:""`
	BucketDir          string  `help:"directory of per-street bucket tables (not read: every street uses identity bucketing)"`
	Dealer             string  `help:"dealer host:port to connect to" required:""`
	Seat               int     `help:"our seat (0-indexed)" default:"0"`
	EndgameStreet      int     `help:"street at which to invoke the endgame resolver (-1 disables)" default:"-1"`
	EndgameIters       int     `help:"CFR iterations for endgame resolving" default:"1000"`
	Purify             bool    `help:"purify the sampled distribution to its argmax"`
	FoldRoundUp        float64 `help:"fold-round-up threshold theta" default:"0"`
	MinProbFloor       float64 `help:"minimum-probability floor mu" default:"0"`
	TranslateMode      string  `help:"bet translation mode (randomized|nearest|always_larger)" enum:"randomized,nearest,always_larger" default:"randomized"`
	TranslateBetToCall bool    `help:"enable the translate-bet-to-call special case" default:"true"`
}

// MatchCmd runs a duplicate-pair self-play match entirely in-process,
// against a second strategy file, and reports bb/100 with a confidence
// interval, per spec §8's evaluation scenarios.
type MatchCmd struct {
	Game      string `help:"path to the HCL game configuration" required:""`
	StrategyA string `help:"path to seat 0's strategy store" required:""`
	StrategyB string `help:"path to seat 1's strategy store" required:""`
	Pairs     int    `help:"number of duplicate hand pairs to play" default:"10000"`
	Seed      int64  `help:"seed for the deterministic card deal; a given seed always deals the same hands" default:"1"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("pokerbot"),
		kong.Description("No-limit hold'em agent runtime over precomputed CFR strategies"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	var err error
	switch ctx.Command() {
	case "play":
		err = cli.Play.Run()
	case "match":
		err = cli.Match.Run()
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

func translateModeFromString(s string) translate.Mode {
	switch s {
	case "nearest":
		return translate.ModeNearest
	case "always_larger":
		return translate.ModeAlwaysLarger
	default:
		return translate.ModeRandomized
	}
}

func defaultAbstraction() tree.Abstraction {
	return tree.Abstraction{
		BetSizing:         []float64{0.5, 1.0, 2.0},
		MaxActionsPerNode: 8,
		EnableRaises:      true,
		MaxBetsPerStreet:  4,
	}
}

func (cmd *PlayCmd) Run() error {
	g, err := config.Load(cmd.Game)
	if err != nil {
		return fmt.Errorf("load game config: %w", err)
	}

	t, err := tree.Build(g, defaultAbstraction())
	if err != nil {
		return fmt.Errorf("build betting tree: %w", err)
	}

	baseStore, err := loadStrategy(cmd.Strategy)
	if err != nil {
		return fmt.Errorf("load strategy: %w", err)
	}

	boardTree, err := board.Build(g)
	if err != nil {
		return fmt.Errorf("build board tree: %w", err)
	}

	buckets := bucket.NewTable(g.MaxStreet + 1)
	for street := 0; street <= g.MaxStreet; street++ {
		buckets.SetNoAbstraction(street, g.NumHoleCardPairs())
	}

	codec := card.NewCodec(g)
	oracle := handvalue.NewReferenceOracle(g)

	cfg := translate.Config{
		Mode:               translateModeFromString(cmd.TranslateMode),
		TranslateBetToCall: cmd.TranslateBetToCall,
		ExitOnError:        true,
	}

	machine := runtime.New(t, cmd.Seat, g.NumPlayers, cfg)

	dialCfg := acpc.DefaultDialConfig()
	client, err := acpc.Dial(cmd.Dealer, dialCfg, log.Logger)
	if err != nil {
		return fmt.Errorf("connect to dealer: %w", err)
	}
	defer client.Close()

	params := policy.Params{
		Purify:           cmd.Purify,
		FoldRoundUpTheta: cmd.FoldRoundUp,
		MinProbFloor:     cmd.MinProbFloor,
	}

	resolverCfg := resolve.Config{Iterations: cmd.EndgameIters, CFRPlus: true}
	resolver := resolve.New(resolverCfg, oracle)

	loop := &playLoop{
		client:        client,
		machine:       machine,
		base:          baseStore,
		buckets:       buckets,
		boardTree:     boardTree,
		codec:         codec,
		game:          g,
		oracle:        oracle,
		resolver:      resolver,
		betTree:       t,
		endgameStreet: cmd.EndgameStreet,
		params:        params,
		seat:          cmd.Seat,
		rng:           randutil.New(1),
	}
	return loop.run()
}

// loadStrategy opens a concatenated strategy file plus its on-disk index
// (spec §6.4), written alongside it at path+".idx" by strategy.WriteIndexFile.
func loadStrategy(path string) (strategy.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("strategy path %q is a directory; expected a concatenated strategy file", path)
	}
	index, err := strategy.LoadIndexFile(path + ".idx")
	if err != nil {
		return nil, fmt.Errorf("load strategy index for %q: %w", path, err)
	}
	q := strategy.U16Quantizer{}
	fs, err := strategy.OpenFileStore(path, index, q)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// playLoop bundles the fixed, per-connection state the read/decide/act
// cycle needs across iterations, so a single MATCHSTATE line can be
// handled by a short method instead of a long parameter list threaded
// through every call.
type playLoop struct {
	client    *acpc.Client
	machine   *runtime.Machine
	base      strategy.Store
	buckets   *bucket.Table
	boardTree *board.Tree
	codec     card.Codec
	game      config.Game
	oracle    handvalue.Oracle
	resolver  *resolve.Resolver
	betTree   *tree.Tree

	endgameStreet int
	params        policy.Params
	seat          int
	rng           *rand.Rand

	lastHandIndex  int64
	seenActions    int
	pendingOwnEcho bool
}

// run drives the ACPC read/decide/act cycle described by spec §4.7: one
// MATCHSTATE line in, at most one action line out.
func (l *playLoop) run() error {
	l.lastHandIndex = -1
	for {
		line, err := l.client.ReadLine()
		if err != nil {
			return err
		}
		ms, err := acpc.ParseMatchState(line)
		if err != nil {
			log.Warn().Err(err).Str("line", line).Msg("failed to parse match state")
			continue
		}

		l.machine.ResetForHand(ms.HandIndex)
		if ms.HandIndex != l.lastHandIndex {
			l.lastHandIndex = ms.HandIndex
			l.seenActions = 0
			l.pendingOwnEcho = false
		}

		if err := l.replayNewActions(ms); err != nil {
			return err
		}

		if l.machine.AtTerminal() {
			continue
		}
		player, ok := l.machine.WhoseTurn()
		if !ok || player != l.seat {
			continue
		}

		wireAction, err := l.decide(ms)
		if err != nil {
			return err
		}
		if err := l.client.SendAction(line, wireAction); err != nil {
			return err
		}
		l.pendingOwnEcho = true
	}
}

// replayNewActions flattens ms's full per-street action history and feeds
// every action this loop hasn't already processed through
// runtime.Machine.ReplayOpponentAction (spec §4.7 step 3), skipping the one
// echo of whichever action we ourselves most recently sent: the ACPC dealer
// always includes our own prior actions in the history it replays back.
func (l *playLoop) replayNewActions(ms acpc.MatchState) error {
	flat := flattenActions(ms.ActionsByStreet)
	for l.seenActions < len(flat) {
		a := flat[l.seenActions]
		l.seenActions++
		if l.pendingOwnEcho {
			l.pendingOwnEcho = false
			continue
		}
		if l.machine.AtTerminal() {
			continue
		}
		if _, err := l.machine.ReplayOpponentAction(a.Kind == acpc.WireFold, a.Kind == acpc.WireCall, a.To); err != nil {
			return err
		}
	}
	return nil
}

func flattenActions(byStreet [][]acpc.Action) []acpc.Action {
	var out []acpc.Action
	for _, s := range byStreet {
		out = append(out, s...)
	}
	return out
}

// decide implements spec §4.7 steps 4-6 plus the §4.8 endgame-resolve hook:
// sample our action at the current node, legalize it against the real
// game's money state, and commit it to the machine's path.
func (l *playLoop) decide(ms acpc.MatchState) (acpc.Action, error) {
	node := l.machine.CurrentNode()

	hole, err := parseCards(l.codec, ms.HoleCards[l.seat])
	if err != nil {
		return acpc.Action{}, err
	}
	boardCards, err := parseCards(l.codec, ms.Board)
	if err != nil {
		return acpc.Action{}, err
	}

	if l.endgameStreet >= 0 && node.Street >= l.endgameStreet && !l.machine.HasResolvedStore() {
		resolved, err := l.attemptResolve(hole, boardCards, node.Street)
		if err != nil {
			log.Warn().Err(err).Msg("endgame resolve failed; continuing with base strategy")
		} else {
			l.machine.UseResolvedStoreFrom(node.Street, resolved)
		}
	}
	store := l.machine.StoreFor(node.Street, l.base)

	_, hcp, err := canonicalHandOffset(l.game, l.boardTree, hole, boardCards, node.Street)
	if err != nil {
		return acpc.Action{}, err
	}
	bucketIdx, err := l.buckets.Bucket(node.Street, 0, hcp)
	if err != nil {
		return acpc.Action{}, err
	}

	probs, err := store.Probs(l.seat, node.Street, node.NonterminalID, bucketIdx, len(node.Successors), node.DefaultSuccIndex)
	if err != nil {
		return acpc.Action{}, err
	}
	processed, err := policy.PostProcess(probs, node.FoldSuccIndex, node.CallSuccIndex, false, l.params)
	if err != nil {
		return acpc.Action{}, err
	}
	succ, err := policy.Sample(processed, l.rng)
	if err != nil {
		return acpc.Action{}, err
	}

	action := node.Actions[succ]
	var wireAction acpc.Action
	switch action.Kind {
	case tree.ActionFold:
		wireAction = acpc.Action{Kind: acpc.WireFold}
	case tree.ActionCall:
		wireAction = acpc.Action{Kind: acpc.WireCall}
	default:
		lastBetTo, opponentIncrement := realMoneyState(l.game, ms, l.seat)
		dec := policy.Legalize(action.To, lastBetTo, opponentIncrement, l.game.StackSize, l.game.SmallBlind)
		if dec.Kind == tree.ActionCall {
			wireAction = acpc.Action{Kind: acpc.WireCall}
		} else {
			wireAction = acpc.Action{Kind: acpc.WireBet, To: dec.To}
		}
	}

	if err := l.machine.Advance(succ); err != nil {
		return acpc.Action{}, err
	}
	return wireAction, nil
}

// attemptResolve implements spec §4.8: build our singleton known-hand range
// and the opponent's range over every hand consistent with the known cards,
// reach-weight the path from root to here by the base strategy, compute the
// opponent's T-values, and run the resolver on the live subtree.
//
// The endgame subtree passed to Resolver.Resolve is the base betting tree
// re-rooted at the machine's current node (tree.Tree.Subtree), not a
// separately-built finer-grained tree: this CLI's abstraction is already
// coarse enough (§4.4's pot-fraction sizings) that building a second,
// finer abstraction purely for the endgame is out of scope here. See
// DESIGN.md.
func (l *playLoop) attemptResolve(hole, boardCards []card.Card, street int) (*strategy.MemoryStore, error) {
	path := l.machine.Path()
	if len(path) == 0 {
		return nil, fmt.Errorf("resolve: empty path")
	}
	curRef := path[len(path)-1]
	if tree.IsTerminalSucc(curRef) {
		return nil, fmt.Errorf("resolve: already at terminal")
	}

	steps := make([]resolve.PathStep, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		node := &l.betTree.Nodes[tree.SuccIndex(path[i])]
		next := path[i+1]
		succ := -1
		for s, ref := range node.Successors {
			if ref == next {
				succ = s
				break
			}
		}
		if succ < 0 {
			return nil, fmt.Errorf("resolve: path successor not found")
		}
		steps = append(steps, resolve.PathStep{Node: node, SuccTaken: succ})
	}
	curNode := &l.betTree.Nodes[tree.SuccIndex(curRef)]

	_, ourHCP, err := canonicalHandOffset(l.game, l.boardTree, hole, boardCards, curNode.Street)
	if err != nil {
		return nil, err
	}
	ourShowdown := append(append([]card.Card(nil), hole...), boardCards...)
	ourRange := resolve.HandRange{Pairs: append([]card.Card(nil), hole...), Showdown: [][]card.Card{ourShowdown}}

	oppRange, err := enumerateOppRange(l.game, l.codec, hole, boardCards)
	if err != nil {
		return nil, err
	}

	// The reach-prob walk needs a per-hand-index bucket at every step along
	// the path, but our range here is the single hand we actually hold; its
	// bucket offset is computed once at the resolve street and reused for
	// every earlier step, an approximation documented in DESIGN.md. The
	// hole-card-pair index depends on the board and its canonicalization,
	// so nodes on earlier streets are read at the resolve street's offset,
	// which in general differs from their own street's offset even under
	// this CLI's no-abstraction bucket tables.
	ourReach, err := resolve.ReachProbs(steps, l.base, l.seat, 1, func(int) int { return ourHCP })
	if err != nil {
		return nil, err
	}

	tValues, err := resolve.TValues(l.betTree, curRef, l.base, l.seat, ourRange, oppRange, ourReach, l.oracle, curNode.LastBetTo*2)
	if err != nil {
		return nil, err
	}

	endgame := l.betTree.Subtree(curRef)
	return l.resolver.Resolve(endgame, l.seat, ourRange, oppRange, ourReach, tValues)
}

// canonicalHandOffset computes the (global board index, hole-card-pair
// index) pair a strategy.Store/bucket.Table lookup needs for a decision at
// the given street, per spec §4.2/§4.3: canonicalize the board-so-far plus
// hole cards together (so suit isomorphism is resolved jointly), then look
// the canonical board up in the board tree (street-1, since board.Tree has
// no preflop entry) and compute the dense HCP index against it.
func canonicalHandOffset(g config.Game, boardTree *board.Tree, hole, fullBoard []card.Card, street int) (gbd, hcp int, err error) {
	n := g.NumBoardCards(street)
	if n > len(fullBoard) {
		n = len(fullBoard)
	}
	boardSoFar := append([]card.Card(nil), fullBoard[:n]...)

	canon, _ := card.CanonicalizeCards(g, []card.StreetBlock{
		card.StreetBlock(boardSoFar),
		card.StreetBlock(append([]card.Card(nil), hole...)),
	})
	canonBoard := []card.Card(canon[0])
	canonHole := []card.Card(canon[1])

	if street <= config.Preflop || len(canonBoard) == 0 {
		return 0, card.HoleCardPairIndex(nil, canonHole[0], canonHole[1]), nil
	}

	gbd, err = boardTree.LookupBoard(canonBoard, street-1)
	if err != nil {
		return 0, 0, err
	}
	hcp = card.HoleCardPairIndex(canonBoard, canonHole[0], canonHole[1])
	return gbd, hcp, nil
}

func parseCards(codec card.Codec, toks []string) ([]card.Card, error) {
	out := make([]card.Card, 0, len(toks))
	for _, tok := range toks {
		c, err := codec.ParseCard(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// realMoneyState replays the wire action stream to recover the real game's
// current bet-to amount and the opponent's most recent raise increment, the
// two real-money quantities policy.Legalize needs beyond what the abstract
// tree tracks (spec §4.10): the wire protocol itself carries no running
// stack/commitment total, only the sequential action string, so it must be
// rebuilt from the blinds plus every action seen so far. Heads-up only:
// within a street, action strictly alternates between the two seats once
// the street's first actor is known.
func realMoneyState(g config.Game, ms acpc.MatchState, ourSeat int) (lastBetTo, opponentIncrement int) {
	committed := make([]int, g.NumPlayers)
	sbSeat := g.FirstToAct[config.Preflop]
	bbSeat := 1 - sbSeat
	committed[sbSeat] = g.SmallBlind
	committed[bbSeat] = g.BigBlind

	lastRaiseBy, lastRaiseIncrement := -1, 0
	for street, actions := range ms.ActionsByStreet {
		if street >= len(g.FirstToAct) {
			break
		}
		firstActor := g.FirstToAct[street]
		for i, a := range actions {
			player := (firstActor + i) % g.NumPlayers
			switch a.Kind {
			case acpc.WireBet:
				increment := a.To - committed[player]
				committed[player] = a.To
				lastRaiseBy, lastRaiseIncrement = player, increment
			case acpc.WireCall:
				target := committed[0]
				for _, c := range committed {
					if c > target {
						target = c
					}
				}
				committed[player] = target
			}
		}
	}

	lastBetTo = 0
	for _, c := range committed {
		if c > lastBetTo {
			lastBetTo = c
		}
	}
	if lastRaiseBy >= 0 && lastRaiseBy != ourSeat {
		opponentIncrement = lastRaiseIncrement
	}
	return lastBetTo, opponentIncrement
}

// enumerateOppRange builds the opponent's hand range for endgame resolving:
// every unordered pair of remaining cards consistent with our hole cards and
// the board, per spec §4.8 step 1.
func enumerateOppRange(g config.Game, codec card.Codec, ourHole, fullBoard []card.Card) (resolve.HandRange, error) {
	used := make(map[card.Card]bool, len(ourHole)+len(fullBoard))
	for _, c := range ourHole {
		used[c] = true
	}
	for _, c := range fullBoard {
		used[c] = true
	}

	var deck []card.Card
	for r := 0; r < g.NumRanks; r++ {
		for s := 0; s < g.NumSuits; s++ {
			c := codec.Encode(r, s)
			if !used[c] {
				deck = append(deck, c)
			}
		}
	}

	var pairs []card.Card
	var showdown [][]card.Card
	for i := 0; i < len(deck); i++ {
		for j := i + 1; j < len(deck); j++ {
			hi, lo := deck[i], deck[j]
			pairs = append(pairs, hi, lo)
			sd := append(append([]card.Card{}, hi, lo), fullBoard...)
			showdown = append(showdown, sd)
		}
	}
	if len(showdown) == 0 {
		return resolve.HandRange{}, fmt.Errorf("resolve: no opponent hands remain consistent with known cards")
	}
	return resolve.HandRange{Pairs: pairs, Showdown: showdown}, nil
}

func (cmd *MatchCmd) Run() error {
	g, err := config.Load(cmd.Game)
	if err != nil {
		return fmt.Errorf("load game config: %w", err)
	}

	storeA, err := loadStrategy(cmd.StrategyA)
	if err != nil {
		return fmt.Errorf("load strategy A: %w", err)
	}
	storeB, err := loadStrategy(cmd.StrategyB)
	if err != nil {
		return fmt.Errorf("load strategy B: %w", err)
	}

	t, err := tree.Build(g, defaultAbstraction())
	if err != nil {
		return fmt.Errorf("build betting tree: %w", err)
	}
	boardTree, err := board.Build(g)
	if err != nil {
		return fmt.Errorf("build board tree: %w", err)
	}
	buckets := bucket.NewTable(g.MaxStreet + 1)
	for street := 0; street <= g.MaxStreet; street++ {
		buckets.SetNoAbstraction(street, g.NumHoleCardPairs())
	}
	codec := card.NewCodec(g)
	oracle := handvalue.NewReferenceOracle(g)

	sim := &selfPlaySim{
		tree:      t,
		game:      g,
		codec:     codec,
		oracle:    oracle,
		buckets:   buckets,
		boardTree: boardTree,
	}

	playHand := func(handIndex, seed int64) (match.HandOutcome, error) {
		hole, boardCards := dealCards(g, seed, handIndex)
		return sim.playHand([2]strategy.Store{storeA, storeB}, hole[0], hole[1], boardCards, seed, handIndex)
	}
	playHandSwapped := func(handIndex, seed int64) (match.HandOutcome, error) {
		hole, boardCards := dealCards(g, seed, handIndex)
		return sim.playHand([2]strategy.Store{storeB, storeA}, hole[0], hole[1], boardCards, seed, handIndex)
	}

	result, err := match.RunDuplicatePair(g, cmd.Pairs, cmd.Seed, playHand, playHandSwapped)
	if err != nil {
		return fmt.Errorf("run match: %w", err)
	}

	log.Info().
		Int("hands", result.HandsPlayed).
		Float64("bb_per_100_seat0", result.Players[0].BBPer100).
		Float64("std_err_seat0", result.Players[0].StdErr).
		Msg("match complete")
	return nil
}

// dealCards shuffles a fresh deck deterministically from (seed, handIndex)
// via match.NewDealRNG, giving each seat its hole cards and dealing the full
// river board up front so playHand/playHandSwapped see the same deal.
func dealCards(g config.Game, seed, handIndex int64) ([2][]card.Card, []card.Card) {
	rng := match.NewDealRNG(seed, handIndex)
	deck := make([]card.Card, g.NumCardsInDeck())
	for i := range deck {
		deck[i] = card.Card(i)
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	var hole [2][]card.Card
	hole[0] = append([]card.Card(nil), deck[0:g.NumHoleCards]...)
	hole[1] = append([]card.Card(nil), deck[g.NumHoleCards:2*g.NumHoleCards]...)
	n := g.NumBoardCards(g.MaxStreet)
	boardCards := append([]card.Card(nil), deck[2*g.NumHoleCards:2*g.NumHoleCards+n]...)
	return hole, boardCards
}

// selfPlaySim walks the shared betting tree for one in-process hand, using
// each seat's own strategy.Store, mirroring playLoop.decide's bucket
// addressing but without any wire protocol or translation layer: both
// seats' actions are already in the abstract tree's own terms.
type selfPlaySim struct {
	tree      *tree.Tree
	game      config.Game
	codec     card.Codec
	oracle    handvalue.Oracle
	buckets   *bucket.Table
	boardTree *board.Tree
}

func (s *selfPlaySim) playHand(stores [2]strategy.Store, hole0, hole1, boardCards []card.Card, seed, handIndex int64) (match.HandOutcome, error) {
	hole := [2][]card.Card{hole0, hole1}
	rng := randutil.New(match.DealSeed(seed, handIndex) + 1)

	ref := s.tree.Root()
	for !tree.IsTerminalSucc(ref) {
		node := &s.tree.Nodes[tree.SuccIndex(ref)]
		player := node.PlayerToAct

		_, hcp, err := canonicalHandOffset(s.game, s.boardTree, hole[player], boardCards, node.Street)
		if err != nil {
			return 0, err
		}
		bucketIdx, err := s.buckets.Bucket(node.Street, 0, hcp)
		if err != nil {
			return 0, err
		}
		probs, err := stores[player].Probs(player, node.Street, node.NonterminalID, bucketIdx, len(node.Successors), node.DefaultSuccIndex)
		if err != nil {
			return 0, err
		}
		succ, err := policy.Sample(probs, rng)
		if err != nil {
			return 0, err
		}
		ref = node.Successors[succ]
	}

	term := s.tree.Terms[tree.SuccIndex(ref)]
	switch term.Kind {
	case tree.TerminalFold:
		if term.FoldedPlayer == 0 {
			return match.HandOutcome(-term.PotSize / 2), nil
		}
		return match.HandOutcome(term.PotSize / 2), nil
	default:
		showdown0 := append(append([]card.Card(nil), hole[0]...), boardCards...)
		showdown1 := append(append([]card.Card(nil), hole[1]...), boardCards...)
		r0, r1 := s.oracle.Rank(showdown0), s.oracle.Rank(showdown1)
		switch {
		case r0 > r1:
			return match.HandOutcome(term.PotSize / 2), nil
		case r1 > r0:
			return match.HandOutcome(-term.PotSize / 2), nil
		default:
			return 0, nil
		}
	}
}
