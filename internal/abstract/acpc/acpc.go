// Package acpc implements the wire protocol spec §6.1 names: the ACPC
// text-line dialect ("MATCHSTATE:position:hand_index:actions:cards"),
// replacing the teacher's msgpack game-server protocol (internal/protocol)
// since this corpus's protocol does not speak ACPC at all — see DESIGN.md.
// The connection lifecycle (dial, VERSION handshake, retry/backoff) is
// grounded on the teacher's general approach to networked clients and uses
// an injected github.com/coder/quartz clock, the way internal/testing mocks
// time for the teacher's own server tests, so this package's own tests can
// run deterministically.
package acpc

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
)

// ActionKind mirrors tree.ActionKind for wire-level (un-abstracted) actions.
type ActionKind uint8

const (
	WireFold ActionKind = iota
	WireCall
	WireBet
)

// Action is one parsed wire-protocol action.
type Action struct {
	Kind ActionKind
	To   int // bet-to amount; meaningful only for WireBet
}

// MatchState is one parsed "MATCHSTATE:..." line.
type MatchState struct {
	Position     int // our seat, 0-indexed
	HandIndex    int64
	ActionsByStreet [][]Action
	HoleCards    [][]string // per player, empty string slice if unseen
	Board        []string   // flattened board cards dealt so far
}

// ParseMatchState parses one line of the form
// "MATCHSTATE:position:hand_index:actions:cards", per spec §6.2.
func ParseMatchState(line string) (MatchState, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, "MATCHSTATE:") {
		return MatchState{}, abserrors.Parse("acpc.ParseMatchState", fmt.Errorf("missing MATCHSTATE prefix: %q", line))
	}
	comps := strings.SplitN(strings.TrimPrefix(line, "MATCHSTATE:"), ":", 4)
	if len(comps) != 4 {
		return MatchState{}, abserrors.Parse("acpc.ParseMatchState", fmt.Errorf("expected 4 components, found %d", len(comps)))
	}

	pos, err := strconv.Atoi(comps[0])
	if err != nil {
		return MatchState{}, abserrors.Parse("acpc.ParseMatchState", fmt.Errorf("bad position %q: %w", comps[0], err))
	}
	handIdx, err := strconv.ParseInt(comps[1], 10, 64)
	if err != nil {
		return MatchState{}, abserrors.Parse("acpc.ParseMatchState", fmt.Errorf("bad hand index %q: %w", comps[1], err))
	}

	actions, err := ParseActions(comps[2])
	if err != nil {
		return MatchState{}, err
	}

	hole, board := parseCardString(comps[3])

	return MatchState{
		Position:        pos,
		HandIndex:       handIdx,
		ActionsByStreet: actions,
		HoleCards:       hole,
		Board:           board,
	}, nil
}

// ParseActions parses the slash-separated, per-street action string, per
// spec §6.2's action string grammar ("c"heck/call, "f"old, "r<N>" bet-to-N).
func ParseActions(s string) ([][]Action, error) {
	streets := strings.Split(s, "/")
	out := make([][]Action, 0, len(streets))
	for _, comp := range streets {
		var actions []Action
		i := 0
		for i < len(comp) {
			switch comp[i] {
			case 'c':
				actions = append(actions, Action{Kind: WireCall})
				i++
			case 'f':
				actions = append(actions, Action{Kind: WireFold})
				i++
			case 'r':
				i++
				j := i
				for j < len(comp) && comp[j] >= '0' && comp[j] <= '9' {
					j++
				}
				if j == i {
					return nil, abserrors.Parse("acpc.ParseActions", fmt.Errorf("missing bet amount at %d in %q", i, comp))
				}
				amount, err := strconv.Atoi(comp[i:j])
				if err != nil {
					return nil, abserrors.Parse("acpc.ParseActions", err)
				}
				actions = append(actions, Action{Kind: WireBet, To: amount})
				i = j
			default:
				return nil, abserrors.Parse("acpc.ParseActions", fmt.Errorf("unrecognized action char %q at %d in %q", comp[i], i, comp))
			}
		}
		out = append(out, actions)
	}
	return out, nil
}

// parseCardString parses the "|"-separated hole cards and "/"-separated
// board streets, per spec §6.2's card string grammar:
// "AdAc|KsKh/4s3h2d/8c/7d".
func parseCardString(s string) (hole [][]string, board []string) {
	groups := strings.Split(s, "/")
	holeGroup := groups[0]
	players := strings.Split(holeGroup, "|")
	hole = make([][]string, len(players))
	for i, p := range players {
		hole[i] = splitCards(p)
	}
	for _, streetCards := range groups[1:] {
		board = append(board, splitCards(streetCards)...)
	}
	return hole, board
}

func splitCards(s string) []string {
	out := make([]string, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		out = append(out, s[i:i+2])
	}
	return out
}

// FormatAction renders a wire-level action back into its textual form.
func FormatAction(a Action) string {
	switch a.Kind {
	case WireFold:
		return "f"
	case WireCall:
		return "c"
	default:
		return fmt.Sprintf("r%d", a.To)
	}
}

// Client is a TCP connection to an ACPC dealer: a VERSION handshake
// followed by a line-oriented MATCHSTATE/action exchange. Connection
// establishment retries with a fixed backoff, per spec §6.1.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	clock  quartz.Clock
	log    zerolog.Logger
}

// DialConfig controls the retry/backoff policy for Dial, per spec §6.1:
// "10 retries, 30s backoff" as the reference defaults.
type DialConfig struct {
	Retries int
	Backoff time.Duration
	Clock   quartz.Clock
}

// DefaultDialConfig returns the spec's reference retry policy.
func DefaultDialConfig() DialConfig {
	return DialConfig{Retries: 10, Backoff: 30 * time.Second, Clock: quartz.NewReal()}
}

// Dial connects to an ACPC dealer at addr, retrying on failure per cfg, and
// performs the "VERSION:2.0.0" handshake.
func Dial(addr string, cfg DialConfig, log zerolog.Logger) (*Client, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}

	var conn net.Conn
	var err error
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("addr", addr).Msg("acpc dial failed, retrying")
		if attempt < cfg.Retries {
			clock.Sleep(cfg.Backoff)
		}
	}
	if err != nil {
		return nil, abserrors.Resource("acpc.Dial", fmt.Errorf("dial %s after %d retries: %w", addr, cfg.Retries, err))
	}

	c := &Client{conn: conn, reader: bufio.NewReader(conn), clock: clock, log: log}
	if _, err := fmt.Fprintf(conn, "VERSION:2.0.0\r\n"); err != nil {
		conn.Close()
		return nil, abserrors.Resource("acpc.Dial", fmt.Errorf("version handshake: %w", err))
	}
	return c, nil
}

// ReadLine blocks for the next newline-terminated message from the dealer.
func (c *Client) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", abserrors.Resource("acpc.Client.ReadLine", err)
	}
	return line, nil
}

// SendAction writes one action line back to the dealer in the
// "MATCHSTATE:...:action" reply shape used by the ACPC dealer protocol.
func (c *Client) SendAction(matchStateLine string, a Action) error {
	msg := strings.TrimRight(matchStateLine, "\r\n") + ":" + FormatAction(a) + "\r\n"
	if _, err := c.conn.Write([]byte(msg)); err != nil {
		return abserrors.Resource("acpc.Client.SendAction", err)
	}
	return nil
}

// Close releases the underlying TCP connection.
func (c *Client) Close() error { return c.conn.Close() }
