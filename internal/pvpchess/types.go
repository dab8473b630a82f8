package pvpchess

import (
	"fmt"
	"time"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

// Result represents a game lifecycle state. Every value except ResultOngoing is terminal.
type Result string

const (
	ResultOngoing  Result = "ONGOING"
	ResultWhiteWin Result = "WHITE_WIN"
	ResultBlackWin Result = "BLACK_WIN"
	ResultDraw     Result = "DRAW"
	ResultAborted  Result = "ABORTED"
)

// WinFor returns the winning result for c.
func WinFor(c chess.Color) Result {
	if c == chess.White {
		return ResultWhiteWin
	}
	return ResultBlackWin
}

// Reason strings carried by finished games.
const (
	ReasonCheckmate        = "Checkmate."
	ReasonResignation      = "Resignation."
	ReasonStalemate        = "Stalemate."
	ReasonDrawAgreed       = "Draw agreed."
	ReasonTimeout          = "timeout."
	ReasonDisconnected     = "Disconnected for more than 60 seconds."
	ReasonBothDisconnected = "Both players disconnected for more than 60 seconds."
	ReasonAbortedNoMoves   = "Aborted (no moves)."
)

// TimeControl is the base time per side plus the per-move increment.
type TimeControl struct {
	Base      time.Duration
	Increment time.Duration
}

// DefaultTimeControl is five minutes, no increment.
var DefaultTimeControl = TimeControl{Base: 5 * time.Minute}

// String renders the PGN TimeControl tag value, base and increment in seconds.
func (tc TimeControl) String() string {
	return fmt.Sprintf("%d+%d", int64(tc.Base/time.Second), int64(tc.Increment/time.Second))
}

// MoveRecord is one entry of the move history.
type MoveRecord struct {
	By       chess.Color `json:"by"`
	Notation string      `json:"notation"`
	At       time.Time   `json:"at"`
}

// Game is the persisted state of a match.
type Game struct {
	ID      string `json:"id"`
	WhiteID string `json:"white_id"`
	BlackID string `json:"black_id"`

	Board chess.Board `json:"board"`
	Turn  chess.Color `json:"turn"`
	State chess.State `json:"state"`

	WhiteMs     int64  `json:"white_ms"`
	BlackMs     int64  `json:"black_ms"`
	IncrementMs int64  `json:"increment_ms"`
	TimeControl string `json:"time_control"`

	// LastTick is the instant up to which the side to move has been charged.
	LastTick time.Time `json:"last_tick"`

	Moves       []MoveRecord `json:"moves"`
	DrawOfferBy string       `json:"draw_offer_by,omitempty"`

	// Unix milliseconds; 0 means online.
	WhiteOfflineSince int64 `json:"white_offline_since"`
	BlackOfflineSince int64 `json:"black_offline_since"`

	WhiteInCheck bool `json:"white_in_check"`
	BlackInCheck bool `json:"black_in_check"`

	Result     Result    `json:"result"`
	Reason     string    `json:"reason,omitempty"`
	Rated      bool      `json:"rated"`
	CreatedAt  time.Time `json:"created_at"`
	LastUpdate time.Time `json:"last_update"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewGame returns a fresh ONGOING game with white to move.
func NewGame(id, whiteID, blackID string, tc TimeControl, rated bool, now time.Time) *Game {
	return &Game{
		ID:          id,
		WhiteID:     whiteID,
		BlackID:     blackID,
		Board:       chess.NewBoard(),
		Turn:        chess.White,
		State:       chess.NewState(),
		WhiteMs:     tc.Base.Milliseconds(),
		BlackMs:     tc.Base.Milliseconds(),
		IncrementMs: tc.Increment.Milliseconds(),
		TimeControl: tc.String(),
		LastTick:    now,
		Moves:       []MoveRecord{},
		Result:      ResultOngoing,
		Rated:       rated,
		CreatedAt:   now,
		LastUpdate:  now,
	}
}

// IsOver reports whether the game reached a terminal result.
func (g *Game) IsOver() bool { return g.Result != ResultOngoing }

// ColorOf returns the side played by user.
func (g *Game) ColorOf(user string) (chess.Color, bool) {
	switch user {
	case "":
		return chess.White, false
	case g.WhiteID:
		return chess.White, true
	case g.BlackID:
		return chess.Black, true
	}
	return chess.White, false
}

// UserOf returns the user playing c.
func (g *Game) UserOf(c chess.Color) string {
	if c == chess.White {
		return g.WhiteID
	}
	return g.BlackID
}

// Opponent returns the other participant, or "" for a non-participant.
func (g *Game) Opponent(user string) string {
	c, ok := g.ColorOf(user)
	if !ok {
		return ""
	}
	return g.UserOf(c.Opponent())
}

func (g *Game) remaining(c chess.Color) *int64 {
	if c == chess.White {
		return &g.WhiteMs
	}
	return &g.BlackMs
}

func (g *Game) offlineSince(c chess.Color) *int64 {
	if c == chess.White {
		return &g.WhiteOfflineSince
	}
	return &g.BlackOfflineSince
}

// OfflineSince returns the unix-ms timestamp at which c went offline, 0 when online.
func (g *Game) OfflineSince(c chess.Color) int64 { return *g.offlineSince(c) }

// Clocks returns the remaining times for push events.
func (g *Game) Clocks() *chessdto.Clocks {
	return &chessdto.Clocks{WhiteMs: g.WhiteMs, BlackMs: g.BlackMs, IncrementMs: g.IncrementMs}
}

// CheckFlags returns the check status of both kings.
func (g *Game) CheckFlags() *chessdto.CheckFlags {
	return &chessdto.CheckFlags{White: g.WhiteInCheck, Black: g.BlackInCheck}
}

// Notations returns the move history as notation strings.
func (g *Game) Notations() []string {
	out := make([]string, 0, len(g.Moves))
	for _, m := range g.Moves {
		out = append(out, m.Notation)
	}
	return out
}

// Clone returns a deep copy that shares no mutable state with g.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.State = g.State.Clone()
	out.Moves = append([]MoveRecord{}, g.Moves...)
	return &out
}
