package chess

import (
	"fmt"
	"strings"
)

// Move is an immutable from/to pair with an optional promotion piece.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// ParseMove parses coordinate notation: four characters "<file><rank><file><rank>"
// optionally followed by one of q, r, b, n ("e2e4", "e7e8q").
func ParseMove(s string) (Move, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if len(raw) != 4 && len(raw) != 5 {
		return Move{}, fmt.Errorf("%w: %q must be 4 or 5 characters", ErrBadNotation, s)
	}
	from, err := ParseSquare(raw[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(raw[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if len(raw) == 5 {
		switch raw[4] {
		case 'q':
			m.Promotion = Queen
		case 'r':
			m.Promotion = Rook
		case 'b':
			m.Promotion = Bishop
		case 'n':
			m.Promotion = Knight
		default:
			return Move{}, fmt.Errorf("%w: promotion %q", ErrBadNotation, raw[4])
		}
	}
	return m, nil
}

// MustMove parses notation and panics on error. Test helper.
func MustMove(s string) Move {
	m, err := ParseMove(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns coordinate notation.
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoKind {
		s += string(m.Promotion.Letter())
	}
	return s
}

// CastlingRights are the four per-color, per-side castling permissions.
type CastlingRights struct {
	WhiteKingSide  bool `json:"white_king_side"`
	WhiteQueenSide bool `json:"white_queen_side"`
	BlackKingSide  bool `json:"black_king_side"`
	BlackQueenSide bool `json:"black_queen_side"`
}

// AllCastlingRights is the starting set.
func AllCastlingRights() CastlingRights {
	return CastlingRights{WhiteKingSide: true, WhiteQueenSide: true, BlackKingSide: true, BlackQueenSide: true}
}

// Has reports whether c may still castle on the given side.
func (cr *CastlingRights) Has(c Color, kingSide bool) bool {
	switch {
	case c == White && kingSide:
		return cr.WhiteKingSide
	case c == White:
		return cr.WhiteQueenSide
	case kingSide:
		return cr.BlackKingSide
	default:
		return cr.BlackQueenSide
	}
}

// Clear permanently removes one right.
func (cr *CastlingRights) Clear(c Color, kingSide bool) {
	switch {
	case c == White && kingSide:
		cr.WhiteKingSide = false
	case c == White:
		cr.WhiteQueenSide = false
	case kingSide:
		cr.BlackKingSide = false
	default:
		cr.BlackQueenSide = false
	}
}

// ClearAll removes both rights of c.
func (cr *CastlingRights) ClearAll(c Color) {
	cr.Clear(c, true)
	cr.Clear(c, false)
}

// State is the game-level auxiliary state the rules depend on besides the board.
type State struct {
	Castling  CastlingRights `json:"castling"`
	EnPassant Square         `json:"en_passant"`
	// WhiteCaptured lists black pieces taken by white, BlackCaptured the reverse.
	WhiteCaptured []PieceKind `json:"white_captured"`
	BlackCaptured []PieceKind `json:"black_captured"`
}

// NewState returns the state of a fresh game.
func NewState() State {
	return State{
		Castling:      AllCastlingRights(),
		EnPassant:     NoSquare,
		WhiteCaptured: []PieceKind{},
		BlackCaptured: []PieceKind{},
	}
}

func (st *State) recordCapture(by Color, k PieceKind) {
	if by == White {
		st.WhiteCaptured = append(st.WhiteCaptured, k)
		return
	}
	st.BlackCaptured = append(st.BlackCaptured, k)
}

// Clone returns a deep copy.
func (st State) Clone() State {
	out := st
	out.WhiteCaptured = append([]PieceKind{}, st.WhiteCaptured...)
	out.BlackCaptured = append([]PieceKind{}, st.BlackCaptured...)
	return out
}
