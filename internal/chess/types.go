// Package chess implements the rules of standard chess for the arena server:
// board model, pseudo-move generation, attack detection, legality and move application.
package chess

import (
	"errors"
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// MarshalText encodes the color as "white" or "black".
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts "white"/"w" and "black"/"b".
func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "white", "w":
		*c = White
	case "black", "b":
		*c = Black
	default:
		return fmt.Errorf("invalid color %q", string(b))
	}
	return nil
}

// forward is the rank direction pawns of c advance in.
func (c Color) forward() int {
	if c == White {
		return 1
	}
	return -1
}

func (c Color) homeRank() int {
	if c == White {
		return 0
	}
	return 7
}

func (c Color) pawnRank() int {
	if c == White {
		return 1
	}
	return 6
}

func (c Color) lastRank() int {
	if c == White {
		return 7
	}
	return 0
}

// PieceKind is the tag of the piece union.
type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const kindLetters = " pnbrqk"

// Letter returns the lower-case algebraic letter of the kind ('p' for pawns).
func (k PieceKind) Letter() byte {
	if int(k) < len(kindLetters) {
		return kindLetters[k]
	}
	return '?'
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// MarshalText encodes the kind as its letter.
func (k PieceKind) MarshalText() ([]byte, error) {
	if k == NoKind {
		return []byte{}, nil
	}
	return []byte{k.Letter()}, nil
}

func (k *PieceKind) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = NoKind
		return nil
	}
	kind, ok := kindFromLetter(b[0])
	if !ok || len(b) != 1 {
		return fmt.Errorf("invalid piece kind %q", string(b))
	}
	*k = kind
	return nil
}

func kindFromLetter(c byte) (PieceKind, bool) {
	switch c {
	case 'p', 'P':
		return Pawn, true
	case 'n', 'N':
		return Knight, true
	case 'b', 'B':
		return Bishop, true
	case 'r', 'R':
		return Rook, true
	case 'q', 'Q':
		return Queen, true
	case 'k', 'K':
		return King, true
	}
	return NoKind, false
}

// Piece is a colored piece. The zero value (Kind == NoKind) is an empty square.
type Piece struct {
	Color Color
	Kind  PieceKind
}

// Symbol returns the FEN letter: upper case for white, lower case for black.
func (p Piece) Symbol() byte {
	if p.Kind == NoKind {
		return '.'
	}
	l := p.Kind.Letter()
	if p.Color == White {
		return l - 'a' + 'A'
	}
	return l
}

// Square is a board coordinate. File 0 is the a-file, Rank 0 is the first rank.
type Square struct {
	File int
	Rank int
}

// NoSquare marks an absent square (e.g. no en-passant target).
var NoSquare = Square{File: -1, Rank: -1}

// Sq builds a square from file and rank indexes.
func Sq(file, rank int) Square { return Square{File: file, Rank: rank} }

// MustSquare parses "e4"-style coordinates and panics on malformed input. Test and table helper.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// ParseSquare parses algebraic coordinates like "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("%w: square %q", ErrBadNotation, s)
	}
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return NoSquare, fmt.Errorf("%w: square %q", ErrBadNotation, s)
	}
	return Square{File: int(f - 'a'), Rank: int(r - '1')}, nil
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File), byte('1' + s.Rank)})
}

func (s Square) offset(df, dr int) Square { return Square{File: s.File + df, Rank: s.Rank + dr} }

// MarshalText encodes NoSquare as an empty string.
func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return []byte{}, nil
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(b []byte) error {
	if len(b) == 0 || string(b) == "-" {
		*s = NoSquare
		return nil
	}
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

var (
	// ErrBadNotation is returned for move strings that are not <file><rank><file><rank>[qrbn].
	ErrBadNotation = errors.New("bad move notation")
	// ErrNoPiece signals a move applied from an empty square, which legality checking rules out.
	ErrNoPiece = errors.New("no piece on source square")
)

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
