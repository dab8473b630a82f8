package chess

// IsLegal reports whether color c may play m in the position (b, st). The move must be on
// the board, move c's own piece, not land on a friendly piece, match the piece's movement
// pattern (or be a legal castle / en-passant capture) and must not leave c's king in check.
func IsLegal(b *Board, st *State, c Color, m Move) bool {
	if !m.From.Valid() || !m.To.Valid() || m.From == m.To {
		return false
	}
	p, ok := b.PieceAt(m.From)
	if !ok || p.Color != c {
		return false
	}
	if b.SameColorAt(m.To, c) {
		return false
	}
	if m.Promotion != NoKind {
		if p.Kind != Pawn || m.To.Rank != c.lastRank() {
			return false
		}
		if m.Promotion == Pawn || m.Promotion == King {
			return false
		}
	}

	switch {
	case isCastleAttempt(p, m):
		if !IsLegalCastle(b, st, c, m) {
			return false
		}
	case IsEnPassant(b, st, c, m):
	default:
		if !matchesPattern(b, p, m) {
			return false
		}
	}

	scratch := b.Copy()
	if err := Apply(&scratch, st, m, false); err != nil {
		return false
	}
	return !IsKingInCheck(&scratch, c)
}

func isCastleAttempt(p Piece, m Move) bool {
	return p.Kind == King && m.From.Rank == m.To.Rank && abs(m.To.File-m.From.File) == 2
}

// matchesPattern checks the piece's own movement rule. Captures of enemy pieces are
// allowed wherever the pattern allows a move, except for pawns which capture diagonally.
func matchesPattern(b *Board, p Piece, m Move) bool {
	df, dr := m.To.File-m.From.File, m.To.Rank-m.From.Rank
	switch p.Kind {
	case Pawn:
		dir := p.Color.forward()
		switch {
		case df == 0 && dr == dir:
			return b.IsEmptyAt(m.To)
		case df == 0 && dr == 2*dir:
			return m.From.Rank == p.Color.pawnRank() &&
				b.IsEmptyAt(m.From.offset(0, dir)) && b.IsEmptyAt(m.To)
		case abs(df) == 1 && dr == dir:
			target, ok := b.PieceAt(m.To)
			return ok && target.Color != p.Color
		}
		return false
	case Knight:
		return (abs(df) == 1 && abs(dr) == 2) || (abs(df) == 2 && abs(dr) == 1)
	case Bishop:
		return abs(df) == abs(dr) && b.PathClear(m.From, m.To)
	case Rook:
		return (df == 0 || dr == 0) && b.PathClear(m.From, m.To)
	case Queen:
		return (df == 0 || dr == 0 || abs(df) == abs(dr)) && b.PathClear(m.From, m.To)
	case King:
		return abs(df) <= 1 && abs(dr) <= 1
	}
	return false
}

// IsLegalCastle checks every castling condition: the right is still held, king and rook
// stand on their home squares, the squares between them are empty, and the king's
// current, transit and destination squares are all free of attack.
func IsLegalCastle(b *Board, st *State, c Color, m Move) bool {
	if st == nil {
		return false
	}
	rank := c.homeRank()
	kingHome := Sq(4, rank)
	if m.From != kingHome || m.To.Rank != rank {
		return false
	}
	var kingSide bool
	switch m.To.File {
	case 6:
		kingSide = true
	case 2:
		kingSide = false
	default:
		return false
	}
	if !st.Castling.Has(c, kingSide) {
		return false
	}
	if k, ok := b.PieceAt(kingHome); !ok || k.Color != c || k.Kind != King {
		return false
	}
	rookSq := Sq(0, rank)
	if kingSide {
		rookSq = Sq(7, rank)
	}
	if r, ok := b.PieceAt(rookSq); !ok || r.Color != c || r.Kind != Rook {
		return false
	}
	if !b.PathClear(kingHome, rookSq) {
		return false
	}
	step := 1
	if !kingSide {
		step = -1
	}
	enemy := c.Opponent()
	for i := 0; i <= 2; i++ {
		if IsSquareAttacked(b, kingHome.offset(i*step, 0), enemy) {
			return false
		}
	}
	return true
}

// IsEnPassant reports whether m is an en-passant capture by c: a pawn steps one file
// diagonally forward onto the recorded, empty en-passant target, and the square behind
// the target holds an enemy pawn.
func IsEnPassant(b *Board, st *State, c Color, m Move) bool {
	if st == nil || !st.EnPassant.Valid() || m.To != st.EnPassant {
		return false
	}
	p, ok := b.PieceAt(m.From)
	if !ok || p.Color != c || p.Kind != Pawn {
		return false
	}
	if abs(m.To.File-m.From.File) != 1 || m.To.Rank-m.From.Rank != c.forward() {
		return false
	}
	if !b.IsEmptyAt(m.To) {
		return false
	}
	victim, ok := b.PieceAt(Sq(m.To.File, m.From.Rank))
	return ok && victim.Color != c && victim.Kind == Pawn
}
