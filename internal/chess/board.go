package chess

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board is an 8x8 grid of optional pieces indexed [rank][file]. It is a value type;
// assignment and Copy produce independent boards.
type Board struct {
	squares [8][8]Piece
}

var backRank = [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var b Board
	for f := 0; f < 8; f++ {
		b.squares[0][f] = Piece{Color: White, Kind: backRank[f]}
		b.squares[1][f] = Piece{Color: White, Kind: Pawn}
		b.squares[6][f] = Piece{Color: Black, Kind: Pawn}
		b.squares[7][f] = Piece{Color: Black, Kind: backRank[f]}
	}
	return b
}

// Inside reports whether sq is on the board.
func (b *Board) Inside(sq Square) bool { return sq.Valid() }

// PieceAt returns the piece on sq and whether the square is occupied.
func (b *Board) PieceAt(sq Square) (Piece, bool) {
	p := b.squares[sq.Rank][sq.File]
	return p, p.Kind != NoKind
}

// SetPieceAt places p on sq; a nil piece empties the square.
func (b *Board) SetPieceAt(sq Square, p *Piece) {
	if p == nil {
		b.squares[sq.Rank][sq.File] = Piece{}
		return
	}
	b.squares[sq.Rank][sq.File] = *p
}

func (b *Board) put(sq Square, p Piece) { b.squares[sq.Rank][sq.File] = p }

func (b *Board) clear(sq Square) { b.squares[sq.Rank][sq.File] = Piece{} }

// IsEmptyAt reports whether sq holds no piece.
func (b *Board) IsEmptyAt(sq Square) bool { return b.squares[sq.Rank][sq.File].Kind == NoKind }

// SameColorAt reports whether sq holds a piece of color c.
func (b *Board) SameColorAt(sq Square, c Color) bool {
	p, ok := b.PieceAt(sq)
	return ok && p.Color == c
}

// PathClear walks the straight or diagonal line between from and to, exclusive of both
// endpoints, and reports whether every intermediate square is empty. Squares that do not
// share a rank, file or diagonal have no path.
func (b *Board) PathClear(from, to Square) bool {
	df, dr := to.File-from.File, to.Rank-from.Rank
	if df != 0 && dr != 0 && abs(df) != abs(dr) {
		return false
	}
	sf, sr := sign(df), sign(dr)
	cur := from.offset(sf, sr)
	for cur != to {
		if !b.IsEmptyAt(cur) {
			return false
		}
		cur = cur.offset(sf, sr)
	}
	return true
}

// Copy returns an independent value copy used for speculative move testing.
func (b *Board) Copy() Board { return *b }

// findKing locates the king of color c.
func (b *Board) findKing(c Color) (Square, bool) {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			p := b.squares[r][f]
			if p.Kind == King && p.Color == c {
				return Square{File: f, Rank: r}, true
			}
		}
	}
	return NoSquare, false
}

// Rows renders the board as eight strings from rank 8 down to rank 1, one symbol per
// square: upper case white, lower case black, '.' empty.
func (b *Board) Rows() []string {
	rows := make([]string, 0, 8)
	for r := 7; r >= 0; r-- {
		var sb strings.Builder
		for f := 0; f < 8; f++ {
			sb.WriteByte(b.squares[r][f].Symbol())
		}
		rows = append(rows, sb.String())
	}
	return rows
}

// BoardFromRows is the inverse of Rows.
func BoardFromRows(rows []string) (Board, error) {
	var b Board
	if len(rows) != 8 {
		return b, fmt.Errorf("board: want 8 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 8 {
			return b, fmt.Errorf("board: row %d has %d squares", i, len(row))
		}
		r := 7 - i
		for f := 0; f < 8; f++ {
			c := row[f]
			if c == '.' {
				continue
			}
			kind, ok := kindFromLetter(c)
			if !ok {
				return b, fmt.Errorf("board: bad symbol %q at %s", c, Sq(f, r))
			}
			color := Black
			if c >= 'A' && c <= 'Z' {
				color = White
			}
			b.squares[r][f] = Piece{Color: color, Kind: kind}
		}
	}
	return b, nil
}

// MustBoard builds a board from rows and panics on error. Test helper.
func MustBoard(rows ...string) Board {
	b, err := BoardFromRows(rows)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Board) MarshalJSON() ([]byte, error) { return json.Marshal(b.Rows()) }

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows []string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	nb, err := BoardFromRows(rows)
	if err != nil {
		return err
	}
	*b = nb
	return nil
}
