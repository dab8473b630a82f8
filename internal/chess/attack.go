package chess

var (
	knightOffsets  = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets    = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightDirs   = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalDirs   = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allSlidingDirs = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// IsSquareAttacked reports whether any piece of color by attacks sq. Pawn, knight and king
// attacks are probed from sq outwards; on each ray the first occupied square decides.
func IsSquareAttacked(b *Board, sq Square, by Color) bool {
	// a pawn of color by attacks sq from one rank behind it (from by's perspective)
	pr := sq.Rank - by.forward()
	for _, df := range [2]int{-1, 1} {
		from := Sq(sq.File+df, pr)
		if from.Valid() {
			if p, ok := b.PieceAt(from); ok && p.Color == by && p.Kind == Pawn {
				return true
			}
		}
	}

	for _, o := range knightOffsets {
		from := sq.offset(o[0], o[1])
		if from.Valid() {
			if p, ok := b.PieceAt(from); ok && p.Color == by && p.Kind == Knight {
				return true
			}
		}
	}

	for _, o := range kingOffsets {
		from := sq.offset(o[0], o[1])
		if from.Valid() {
			if p, ok := b.PieceAt(from); ok && p.Color == by && p.Kind == King {
				return true
			}
		}
	}

	if rayAttacked(b, sq, by, straightDirs[:], Rook) {
		return true
	}
	return rayAttacked(b, sq, by, diagonalDirs[:], Bishop)
}

func rayAttacked(b *Board, sq Square, by Color, dirs [][2]int, slider PieceKind) bool {
	for _, d := range dirs {
		cur := sq.offset(d[0], d[1])
		for cur.Valid() {
			if p, ok := b.PieceAt(cur); ok {
				if p.Color == by && (p.Kind == slider || p.Kind == Queen) {
					return true
				}
				break
			}
			cur = cur.offset(d[0], d[1])
		}
	}
	return false
}

// IsKingInCheck reports whether the king of color c is attacked. A board without that
// king is treated as not in check.
func IsKingInCheck(b *Board, c Color) bool {
	ksq, ok := b.findKing(c)
	if !ok {
		return false
	}
	return IsSquareAttacked(b, ksq, c.Opponent())
}
