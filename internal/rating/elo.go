package rating

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"go.uber.org/zap"
)

const (
	DefaultRating = 1200
	kFactor       = 24
)

// ProfileStore loads and saves rating profiles. GetProfile returns nil, nil for an
// unknown player.
type ProfileStore interface {
	GetProfile(ctx context.Context, playerID string) (*domain.ChessProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.ChessProfile) error
}

// Elo updates both players' profiles with the standard Elo formula.
type Elo struct {
	store ProfileStore
}

func NewElo(store ProfileStore) *Elo {
	return &Elo{store: store}
}

func (e *Elo) OnGameFinished(ctx context.Context, g *pvpchess.Game) error {
	if !counts(g) {
		return nil
	}
	ended := g.FinishedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	white, err := e.load(ctx, g.WhiteID, ended)
	if err != nil {
		return err
	}
	black, err := e.load(ctx, g.BlackID, ended)
	if err != nil {
		return err
	}

	var whiteScore float64
	switch g.Result {
	case pvpchess.ResultWhiteWin:
		whiteScore = 1
	case pvpchess.ResultDraw:
		whiteScore = 0.5
	}
	whiteBefore, blackBefore := white.Rating, black.Rating
	applyGameResult(white, blackBefore, whiteScore, g.ID, ended)
	applyGameResult(black, whiteBefore, 1-whiteScore, g.ID, ended)

	if err := e.store.UpsertProfile(ctx, white); err != nil {
		return fmt.Errorf("save profile %s: %w", white.PlayerID, err)
	}
	if err := e.store.UpsertProfile(ctx, black); err != nil {
		return fmt.Errorf("save profile %s: %w", black.PlayerID, err)
	}
	obslog.L().Info("rating_update",
		zap.String("game_id", g.ID),
		zap.String("result", string(g.Result)),
		zap.Int("white_rating", white.Rating),
		zap.Int("white_delta", white.Rating-whiteBefore),
		zap.Int("black_rating", black.Rating),
		zap.Int("black_delta", black.Rating-blackBefore),
	)
	return nil
}

func (e *Elo) load(ctx context.Context, playerID string, now time.Time) (*domain.ChessProfile, error) {
	p, err := e.store.GetProfile(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", playerID, err)
	}
	if p == nil {
		p = &domain.ChessProfile{PlayerID: playerID, Rating: DefaultRating, CreatedAt: now}
	}
	return p, nil
}

// applyGameResult records one game scored against an opponent rated opponentRating.
func applyGameResult(profile *domain.ChessProfile, opponentRating int, score float64, gameID string, endedAt time.Time) int {
	prevRating := profile.Rating

	profile.GamesPlayed++
	profile.LastGameID = gameID
	profile.LastPlayedAt = endedAt
	profile.UpdatedAt = endedAt

	resultType := "draw"
	switch score {
	case 1:
		profile.Wins++
		resultType = "win"
	case 0:
		profile.Losses++
		resultType = "loss"
	default:
		profile.Draws++
	}
	if profile.StreakType == resultType {
		profile.Streak++
	} else {
		profile.Streak = 1
		profile.StreakType = resultType
	}

	expected := 1 / (1 + math.Pow(10, float64(opponentRating-profile.Rating)/400))
	newRating := float64(profile.Rating) + kFactor*(score-expected)
	profile.Rating = int(math.Round(newRating))
	return profile.Rating - prevRating
}
