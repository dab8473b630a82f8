package chess

import "fmt"

// Apply plays an already-legal move on b. When updateState is true it also maintains st:
// the en-passant target, castling rights and captured-piece lists. With updateState false
// only the board changes, which is how legality previews a move on a scratch copy.
func Apply(b *Board, st *State, m Move, updateState bool) error {
	p, ok := b.PieceAt(m.From)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPiece, m)
	}
	update := updateState && st != nil
	if update {
		st.EnPassant = NoSquare
	}

	if isCastleAttempt(p, m) {
		kingSide := m.To.File > m.From.File
		rookFrom, rookTo := Sq(0, m.From.Rank), Sq(3, m.From.Rank)
		if kingSide {
			rookFrom, rookTo = Sq(7, m.From.Rank), Sq(5, m.From.Rank)
		}
		rook, _ := b.PieceAt(rookFrom)
		b.clear(m.From)
		b.clear(rookFrom)
		b.put(m.To, p)
		b.put(rookTo, rook)
		if update {
			st.Castling.ClearAll(p.Color)
		}
		return nil
	}

	// a pawn changing file onto an empty square can only be an en-passant capture
	if p.Kind == Pawn && m.From.File != m.To.File && b.IsEmptyAt(m.To) {
		victim := Sq(m.To.File, m.From.Rank)
		b.clear(victim)
		b.clear(m.From)
		b.put(m.To, p)
		if update {
			st.recordCapture(p.Color, Pawn)
		}
		return nil
	}

	if target, ok := b.PieceAt(m.To); ok && update {
		st.recordCapture(p.Color, target.Kind)
		if target.Kind == Rook {
			clearRookRight(st, target.Color, m.To)
		}
	}
	b.clear(m.From)

	if update {
		if p.Kind == Pawn && abs(m.To.Rank-m.From.Rank) == 2 {
			st.EnPassant = Sq(m.From.File, m.From.Rank+p.Color.forward())
		}
		switch p.Kind {
		case King:
			st.Castling.ClearAll(p.Color)
		case Rook:
			clearRookRight(st, p.Color, m.From)
		}
	}

	if p.Kind == Pawn && m.To.Rank == p.Color.lastRank() {
		promo := m.Promotion
		if promo == NoKind {
			promo = Queen
		}
		b.put(m.To, Piece{Color: p.Color, Kind: promo})
		return nil
	}
	b.put(m.To, p)
	return nil
}

// clearRookRight drops the castling right tied to a rook home square.
func clearRookRight(st *State, c Color, sq Square) {
	if sq.Rank != c.homeRank() {
		return
	}
	switch sq.File {
	case 0:
		st.Castling.Clear(c, false)
	case 7:
		st.Castling.Clear(c, true)
	}
}
