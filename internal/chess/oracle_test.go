package chess

import (
	"math/rand"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

// TestRandomPlayoutsAgreeWithReference plays seeded random games with this package and
// replays every move through corentings/chess. Each move we call legal must be accepted
// there, must not leave the mover in check, and our terminal verdicts must agree.
func TestRandomPlayoutsAgreeWithReference(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))
	for game := 0; game < 30; game++ {
		b := NewBoard()
		st := NewState()
		side := White
		ref := nchess.NewGame()

		for ply := 0; ply < 160; ply++ {
			legal := LegalMoves(&b, &st, side)
			if len(legal) == 0 {
				if ref.Outcome() == nchess.NoOutcome {
					t.Fatalf("game %d ply %d: no legal moves but reference game continues\n%v", game, ply, b.Rows())
				}
				inCheck := IsKingInCheck(&b, side)
				if inCheck && ref.Method() != nchess.Checkmate {
					t.Fatalf("game %d: checkmate here, reference method %s", game, ref.Method())
				}
				if !inCheck && ref.Method() != nchess.Stalemate {
					t.Fatalf("game %d: stalemate here, reference method %s", game, ref.Method())
				}
				break
			}
			if ref.Outcome() != nchess.NoOutcome {
				if m := ref.Method(); m == nchess.Checkmate || m == nchess.Stalemate {
					t.Fatalf("game %d ply %d: reference ended by %s but we have %d moves", game, ply, m, len(legal))
				}
				// automatic draws (insufficient material, repetition) are not our concern
				break
			}

			m := legal[rng.Intn(len(legal))]
			if m.To.Rank == side.lastRank() && m.Promotion == NoKind {
				if p, _ := b.PieceAt(m.From); p.Kind == Pawn {
					m.Promotion = Queen
				}
			}

			scratch := b.Copy()
			scratchState := st.Clone()
			if err := Apply(&scratch, &scratchState, m, true); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if IsKingInCheck(&scratch, side) {
				t.Fatalf("game %d: legal move %s leaves %s in check", game, m, side)
			}

			if err := ref.PushNotationMove(m.String(), nchess.UCINotation{}, nil); err != nil {
				t.Fatalf("game %d ply %d: reference rejected %s: %v\n%v", game, ply, m, err, b.Rows())
			}
			b, st = scratch, scratchState
			side = side.Opponent()
		}
	}
}
