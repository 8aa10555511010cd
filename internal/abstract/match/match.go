// Package match implements the self-play evaluation driver named in spec §4
// ("Match driver" row) and §8's duplicate-pair scenarios: run many hands of
// two seated strategies against each other, using the duplicate-pair
// technique (each dealt hand is replayed with seats swapped) for variance
// reduction, and report bb/100 with a confidence interval. Grounded on
// cmd/solver/eval_runner.go's evalResult/evalPlayer reporting shape, adapted
// from spawning a networked server+bots to calling caller-supplied
// in-process hand functions.
package match

import (
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/lox/pokerabstract/internal/abstract/config"
	"github.com/lox/pokerabstract/internal/phh"
	"github.com/lox/pokerabstract/internal/randutil"
)

// PlayerResult mirrors cmd/solver's evalPlayer DTO, naming the quantities
// spec §8 asks a match driver to report.
type PlayerResult struct {
	Name      string
	NetChips  int64
	Hands     int
	BBPerHand float64
	BBPer100  float64
	StdErr    float64 // standard error of BBPer100, in the same bb/100 units
}

// Result is the outcome of a full duplicate-pair match.
type Result struct {
	HandsPlayed int
	Players     [2]PlayerResult
}

// HandOutcome is the net chip result for seat 0 of one hand (seat 1's result
// is its negation in a two-player zero-sum game).
type HandOutcome int64

// PlayHand plays one hand to completion and returns seat 0's net chip
// result; callers provide the per-hand decision function for each seat
// (typically wrapping runtime.Machine + policy.Sample + policy.Legalize).
type PlayHand func(handIndex int64, seed int64) (HandOutcome, error)

// RunDuplicatePair implements spec §8's "duplicate-pair self-play
// evaluation": each hand index h is played once as dealt, and again with the
// same cards in the same seats but the two strategies swapped between the
// seats, so that card-luck cancels between the pair and the remaining
// variance isolates strategy differences. Both functions return seat 0's
// result; in playHandSwapped seat 0 is played by the strategy that held
// seat 1 in playHand. Both must be seeded deterministically by
// (handIndex, seed) so the swapped replay sees the same deal.
func RunDuplicatePair(g config.Game, numPairs int, seed int64, playHand PlayHand, playHandSwapped PlayHand) (Result, error) {
	diffs := make([]float64, 0, numPairs)

	for i := 0; i < numPairs; i++ {
		handIndex := int64(i)
		a, err := playHand(handIndex, seed)
		if err != nil {
			return Result{}, err
		}
		b, err := playHandSwapped(handIndex, seed)
		if err != nil {
			return Result{}, err
		}
		// b is seat 0's result when the other strategy plays seat 0 with the
		// same cards, so the first strategy's result there is -b; averaging a
		// and -b isolates strategy skill from card luck.
		diffs = append(diffs, (float64(a)-float64(b))/2)
	}

	return summarize(g, diffs), nil
}

func summarize(g config.Game, diffs []float64) Result {
	n := len(diffs)
	var sum, sumSq float64
	for _, d := range diffs {
		sum += d
		sumSq += d * d
	}

	mean := 0.0
	variance := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	if n > 1 {
		for _, d := range diffs {
			variance += (d - mean) * (d - mean)
		}
		variance /= float64(n - 1)
	}
	stdErr := 0.0
	if n > 0 {
		stdErr = math.Sqrt(variance / float64(n))
	}

	bb := float64(g.BigBlind)
	if bb == 0 {
		bb = 1
	}
	bbPerHand := mean / bb
	bbPer100 := bbPerHand * 100

	p0 := PlayerResult{
		Name:      "seat0",
		NetChips:  int64(sum),
		Hands:     n,
		BBPerHand: bbPerHand,
		BBPer100:  bbPer100,
		StdErr:    stdErr / bb * 100,
	}
	p1 := PlayerResult{
		Name:      "seat1",
		NetChips:  -int64(sum),
		Hands:     n,
		BBPerHand: -bbPerHand,
		BBPer100:  -bbPer100,
		StdErr:    p0.StdErr,
	}

	return Result{HandsPlayed: n, Players: [2]PlayerResult{p0, p1}}
}

// ConfidenceInterval returns [mean-z*se, mean+z*se] for the seat-0 bb/100
// estimate, using a normal-approximation z score (1.96 for 95%).
func (r Result) ConfidenceInterval(z float64) (low, high float64) {
	mean := r.Players[0].BBPer100
	se := r.Players[0].StdErr
	return mean - z*se, mean + z*se
}

// DealSeed derives the per-hand RNG seed used to deal cards, independent of
// the per-seat action-sampling seeds runtime.Machine owns, per spec §5's
// "one global stream for card dealing in evaluation drivers".
func DealSeed(seed, handIndex int64) int64 {
	return seed*1_000_003 + handIndex
}

// NewDealRNG builds the global card-dealing RNG for one hand.
func NewDealRNG(seed, handIndex int64) *rand.Rand {
	return randutil.New(DealSeed(seed, handIndex))
}

// HandRecord carries the bookkeeping RecordHandHistory needs beyond what
// RunDuplicatePair itself tracks: hole cards, board, and per-street wire
// actions, which only the caller's runtime.Machine/acpc wiring observes.
type HandRecord struct {
	HandIndex       int64
	HoleCards       [][]string // per-seat hole cards, PHH notation
	Board           []string
	Actions         []string // already-formatted PHH action lines, in order
	StartingStacks  []int
	FinishingStacks []int
}

// RecordHandHistory writes one hand as a PHH-format record, grounded on
// cmd/pokerforbots' hand-history export command. It is an optional sink:
// callers that don't need a written history simply never call it.
func RecordHandHistory(w io.Writer, g config.Game, rec HandRecord) error {
	hand := &phh.HandHistory{
		Variant:           "NT",
		SeatCount:         g.NumPlayers,
		BlindsOrStraddles: []int{g.SmallBlind, g.BigBlind},
		MinBet:            g.BigBlind,
		StartingStacks:    rec.StartingStacks,
		FinishingStacks:   rec.FinishingStacks,
		Actions:           rec.Actions,
		HandID:            strconv.FormatInt(rec.HandIndex, 10),
		Board:             rec.Board,
	}
	return phh.Encode(w, hand)
}
