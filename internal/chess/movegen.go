package chess

// generator produces the pseudo-legal moves of the piece p standing on from.
type generator func(b *Board, st *State, from Square, p Piece, out []Move) []Move

// generators is keyed by PieceKind; NoKind has no entry.
var generators = [...]generator{
	Pawn:   pawnMoves,
	Knight: knightMoves,
	Bishop: bishopMoves,
	Rook:   rookMoves,
	Queen:  queenMoves,
	King:   kingMoves,
}

var promotionKinds = [4]PieceKind{Queen, Rook, Bishop, Knight}

// PseudoMoves lists every geometrically possible move of color c, ignoring whether the
// mover's king is left in check.
func PseudoMoves(b *Board, st *State, c Color) []Move {
	out := make([]Move, 0, 48)
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			p := b.squares[r][f]
			if p.Kind == NoKind || p.Color != c {
				continue
			}
			if gen := generators[p.Kind]; gen != nil {
				out = gen(b, st, Sq(f, r), p, out)
			}
		}
	}
	return out
}

// LegalMoves filters PseudoMoves through IsLegal.
func LegalMoves(b *Board, st *State, c Color) []Move {
	var legal []Move
	for _, m := range PseudoMoves(b, st, c) {
		if IsLegal(b, st, c, m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasAnyLegalMove reports whether c has at least one legal move. It drives checkmate and
// stalemate detection.
func HasAnyLegalMove(b *Board, st *State, c Color) bool {
	for _, m := range PseudoMoves(b, st, c) {
		if IsLegal(b, st, c, m) {
			return true
		}
	}
	return false
}

func pawnMoves(b *Board, st *State, from Square, p Piece, out []Move) []Move {
	dir := p.Color.forward()
	one := from.offset(0, dir)
	if one.Valid() && b.IsEmptyAt(one) {
		out = addPawnMove(out, from, one, p.Color)
		if from.Rank == p.Color.pawnRank() {
			two := from.offset(0, 2*dir)
			if two.Valid() && b.IsEmptyAt(two) {
				out = append(out, Move{From: from, To: two})
			}
		}
	}
	for _, df := range [2]int{-1, 1} {
		to := from.offset(df, dir)
		if !to.Valid() {
			continue
		}
		if target, ok := b.PieceAt(to); ok {
			if target.Color != p.Color {
				out = addPawnMove(out, from, to, p.Color)
			}
			continue
		}
		if st != nil && st.EnPassant.Valid() && to == st.EnPassant {
			out = append(out, Move{From: from, To: to})
		}
	}
	return out
}

// addPawnMove expands a move onto the last rank into the four promotions plus the bare
// variant, which promotes to a queen when applied.
func addPawnMove(out []Move, from, to Square, c Color) []Move {
	if to.Rank != c.lastRank() {
		return append(out, Move{From: from, To: to})
	}
	for _, k := range promotionKinds {
		out = append(out, Move{From: from, To: to, Promotion: k})
	}
	return append(out, Move{From: from, To: to})
}

func knightMoves(b *Board, _ *State, from Square, p Piece, out []Move) []Move {
	return stepMoves(b, from, p, knightOffsets[:], out)
}

func kingMoves(b *Board, st *State, from Square, p Piece, out []Move) []Move {
	out = stepMoves(b, from, p, kingOffsets[:], out)
	if st == nil || from != Sq(4, p.Color.homeRank()) {
		return out
	}
	if st.Castling.Has(p.Color, true) {
		out = append(out, Move{From: from, To: from.offset(2, 0)})
	}
	if st.Castling.Has(p.Color, false) {
		out = append(out, Move{From: from, To: from.offset(-2, 0)})
	}
	return out
}

func stepMoves(b *Board, from Square, p Piece, offsets [][2]int, out []Move) []Move {
	for _, o := range offsets {
		to := from.offset(o[0], o[1])
		if !to.Valid() || b.SameColorAt(to, p.Color) {
			continue
		}
		out = append(out, Move{From: from, To: to})
	}
	return out
}

func bishopMoves(b *Board, _ *State, from Square, p Piece, out []Move) []Move {
	return slideMoves(b, from, p, diagonalDirs[:], out)
}

func rookMoves(b *Board, _ *State, from Square, p Piece, out []Move) []Move {
	return slideMoves(b, from, p, straightDirs[:], out)
}

func queenMoves(b *Board, _ *State, from Square, p Piece, out []Move) []Move {
	return slideMoves(b, from, p, allSlidingDirs[:], out)
}

// slideMoves walks each ray until blocked: it stops before a friendly piece and after
// an enemy one.
func slideMoves(b *Board, from Square, p Piece, dirs [][2]int, out []Move) []Move {
	for _, d := range dirs {
		to := from.offset(d[0], d[1])
		for to.Valid() {
			target, occupied := b.PieceAt(to)
			if occupied && target.Color == p.Color {
				break
			}
			out = append(out, Move{From: from, To: to})
			if occupied {
				break
			}
			to = to.offset(d[0], d[1])
		}
	}
	return out
}
