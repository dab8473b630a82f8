package rating

import (
	"context"
	"errors"

	"github.com/park285/cheese-chess-server/internal/pvpchess"
)

// Hook is told about every finished game. A failure never changes the game's result.
type Hook interface {
	OnGameFinished(ctx context.Context, g *pvpchess.Game) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, g *pvpchess.Game) error

func (f HookFunc) OnGameFinished(ctx context.Context, g *pvpchess.Game) error { return f(ctx, g) }

// Chain runs every hook in order and joins their errors.
type Chain []Hook

func (c Chain) OnGameFinished(ctx context.Context, g *pvpchess.Game) error {
	var errs []error
	for _, h := range c {
		if h == nil {
			continue
		}
		if err := h.OnGameFinished(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// counts reports whether g should move ratings.
func counts(g *pvpchess.Game) bool {
	if g == nil || !g.Rated {
		return false
	}
	switch g.Result {
	case pvpchess.ResultWhiteWin, pvpchess.ResultBlackWin, pvpchess.ResultDraw:
		return true
	}
	return false
}
