package pvpchess

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

// MoveOutcome describes what an accepted MakeMove did. Applied is false when the mover's
// clock ran out before the move could count.
type MoveOutcome struct {
	By       chess.Color
	Notation string
	Applied  bool
	Finished bool
}

// MakeMove validates and plays notation for user. Validation failures return a
// chessdto.DomainError and leave the game untouched. Any other error means a broken
// invariant inside the rules engine.
func (g *Game) MakeMove(user, notation string, now time.Time) (MoveOutcome, error) {
	color, err := g.checkTurn(user)
	if err != nil {
		return MoveOutcome{}, err
	}
	m, err := chess.ParseMove(notation)
	if err != nil {
		return MoveOutcome{}, chessdto.ErrBadNotation
	}
	if !chess.IsLegal(&g.Board, &g.State, color, m) {
		return MoveOutcome{}, chessdto.DomainError{
			Code:    chessdto.CodeIllegalMove,
			Message: fmt.Sprintf("%s is not a legal move", m),
		}
	}

	if p, _ := g.Board.PieceAt(m.From); p.Kind == chess.Pawn && m.Promotion == chess.NoKind &&
		(m.To.Rank == 0 || m.To.Rank == 7) {
		m.Promotion = chess.Queen
	}

	out := MoveOutcome{By: color, Notation: m.String()}
	if g.Tick(now) {
		out.Finished = true
		return out, nil
	}

	if err := chess.Apply(&g.Board, &g.State, m, true); err != nil {
		return MoveOutcome{}, fmt.Errorf("apply %s in game %s: %w", m, g.ID, err)
	}
	out.Applied = true
	g.Moves = append(g.Moves, MoveRecord{By: color, Notation: out.Notation, At: now})
	*g.remaining(color) += g.IncrementMs
	g.Turn = color.Opponent()
	g.LastTick = now
	g.LastUpdate = now
	g.DrawOfferBy = ""
	g.WhiteInCheck = chess.IsKingInCheck(&g.Board, chess.White)
	g.BlackInCheck = chess.IsKingInCheck(&g.Board, chess.Black)

	switch {
	case *g.remaining(g.Turn) <= 0:
		*g.remaining(g.Turn) = 0
		out.Finished = g.Finish(WinFor(color), ReasonTimeout, now)
	case !chess.HasAnyLegalMove(&g.Board, &g.State, g.Turn):
		if chess.IsKingInCheck(&g.Board, g.Turn) {
			out.Finished = g.Finish(WinFor(color), ReasonCheckmate, now)
		} else {
			out.Finished = g.Finish(ResultDraw, ReasonStalemate, now)
		}
	}
	return out, nil
}

func (g *Game) checkTurn(user string) (chess.Color, error) {
	color, err := g.participant(user)
	if err != nil {
		return color, err
	}
	if color != g.Turn {
		return color, chessdto.ErrNotYourTurn
	}
	return color, nil
}

func (g *Game) participant(user string) (chess.Color, error) {
	if g.IsOver() {
		return chess.White, chessdto.ErrAlreadyFinished
	}
	color, ok := g.ColorOf(strings.TrimSpace(user))
	if !ok {
		return color, chessdto.ErrNotParticipant
	}
	return color, nil
}

// OfferDraw records user's draw offer. It returns the opponent who must answer it.
func (g *Game) OfferDraw(user string, now time.Time) (string, error) {
	color, err := g.participant(user)
	if err != nil {
		return "", err
	}
	if g.DrawOfferBy != "" {
		return "", chessdto.ErrDrawAlreadyOffered
	}
	g.DrawOfferBy = g.UserOf(color)
	g.LastUpdate = now
	return g.UserOf(color.Opponent()), nil
}

// RespondDraw answers the pending offer. Accepting finishes the game as a draw;
// declining clears the offer and returns the offeror to notify.
func (g *Game) RespondDraw(user string, accept bool, now time.Time) (offeror string, finished bool, err error) {
	color, err := g.participant(user)
	if err != nil {
		return "", false, err
	}
	switch g.DrawOfferBy {
	case "":
		return "", false, chessdto.ErrNoDrawOffer
	case g.UserOf(color):
		return "", false, chessdto.ErrOwnDrawOffer
	}
	offeror = g.DrawOfferBy
	if accept {
		return offeror, g.Finish(ResultDraw, ReasonDrawAgreed, now), nil
	}
	g.DrawOfferBy = ""
	g.LastUpdate = now
	return offeror, false, nil
}

// Resign awards the game to user's opponent.
func (g *Game) Resign(user string, now time.Time) error {
	color, err := g.participant(user)
	if err != nil {
		return err
	}
	g.Finish(WinFor(color.Opponent()), ReasonResignation, now)
	return nil
}

// Finish moves an ONGOING game to a terminal result. It returns false, changing nothing,
// when the game is already finished.
func (g *Game) Finish(result Result, reason string, now time.Time) bool {
	if g.IsOver() || result == ResultOngoing {
		return false
	}
	g.Result = result
	g.Reason = reason
	g.DrawOfferBy = ""
	g.FinishedAt = now
	g.LastUpdate = now
	return true
}

// Tick charges the time elapsed since LastTick to the side to move and finishes the game
// on a flag fall. A side marked offline is not charged while it is away.
func (g *Game) Tick(now time.Time) bool {
	if g.IsOver() {
		return false
	}
	elapsed := now.Sub(g.LastTick)
	if elapsed <= 0 {
		return false
	}
	if g.OfflineSince(g.Turn) != 0 {
		g.LastTick = now
		return false
	}
	ms := elapsed.Milliseconds()
	g.LastTick = g.LastTick.Add(time.Duration(ms) * time.Millisecond)
	left := g.remaining(g.Turn)
	*left -= ms
	if *left > 0 {
		return false
	}
	*left = 0
	return g.Finish(WinFor(g.Turn.Opponent()), ReasonTimeout, now)
}

// MarkOffline stamps user's side as offline at now, keeping an earlier stamp if present.
func (g *Game) MarkOffline(user string, now time.Time) (chess.Color, error) {
	color, err := g.participant(user)
	if err != nil {
		return color, err
	}
	if at := g.offlineSince(color); *at == 0 {
		*at = now.UnixMilli()
		g.LastUpdate = now
	}
	return color, nil
}

// MarkOnline clears user's offline stamp. The clock anchor moves to now so the absence
// is not charged.
func (g *Game) MarkOnline(user string, now time.Time) (chess.Color, error) {
	color, err := g.participant(user)
	if err != nil {
		return color, err
	}
	if at := g.offlineSince(color); *at != 0 {
		*at = 0
		if g.Turn == color {
			g.LastTick = now
		}
		g.LastUpdate = now
	}
	return color, nil
}

// ResolveDisconnect finishes a game whose reconnection grace expired. It is a no-op when
// every side is back online. A game without moves is aborted; two absent sides draw.
func (g *Game) ResolveDisconnect(now time.Time) bool {
	if g.IsOver() {
		return false
	}
	whiteAway, blackAway := g.WhiteOfflineSince != 0, g.BlackOfflineSince != 0
	switch {
	case !whiteAway && !blackAway:
		return false
	case len(g.Moves) == 0:
		return g.Finish(ResultAborted, ReasonAbortedNoMoves, now)
	case whiteAway && blackAway:
		return g.Finish(ResultDraw, ReasonBothDisconnected, now)
	case whiteAway:
		return g.Finish(ResultBlackWin, ReasonDisconnected, now)
	default:
		return g.Finish(ResultWhiteWin, ReasonDisconnected, now)
	}
}

// IsStructural reports whether err came from a broken rules-engine invariant rather than
// from validating the request.
func IsStructural(err error) bool {
	var de chessdto.DomainError
	return err != nil && !errors.As(err, &de)
}
