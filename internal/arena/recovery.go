package arena

import (
	"context"
	"time"

	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"go.uber.org/zap"
)

type heartbeatReader interface {
	LastHeartbeat(ctx context.Context) (time.Time, bool, error)
}

// EstimateDownSince guesses when the previous process stopped: the store's last heartbeat
// when there is one, otherwise the newest LastUpdate among games, otherwise now.
func EstimateDownSince(ctx context.Context, store pvpchess.GameStore, games []*pvpchess.Game, now time.Time) time.Time {
	if r, ok := store.(heartbeatReader); ok {
		at, found, err := r.LastHeartbeat(ctx)
		if err == nil && found && !at.After(now) {
			return at
		}
	}
	var latest time.Time
	for _, g := range games {
		if g != nil && g.LastUpdate.After(latest) {
			latest = g.LastUpdate
		}
	}
	if latest.IsZero() || latest.After(now) {
		return now
	}
	return latest
}

// RecoverOngoingGames puts persisted live games back under management after a restart.
// Both players count as offline since downSince, clocks resume from now, and whatever is
// left of each side's grace is armed. Finished games are skipped. It returns the number of
// games recovered.
func (c *Coordinator) RecoverOngoingGames(ctx context.Context, games []*pvpchess.Game, downSince time.Time) int {
	now := c.now()
	if downSince.IsZero() || downSince.After(now) {
		downSince = now
	}
	since := downSince.UnixMilli()

	recovered := 0
	for _, stored := range games {
		if stored == nil || stored.IsOver() {
			continue
		}
		g := stored.Clone()
		if g.WhiteOfflineSince == 0 {
			g.WhiteOfflineSince = since
		}
		if g.BlackOfflineSince == 0 {
			g.BlackOfflineSince = since
		}
		g.LastTick = now
		id, white, black, plies := g.ID, g.WhiteID, g.BlackID, len(g.Moves)
		whiteLeft := c.remainingGrace(g.WhiteOfflineSince, now)
		blackLeft := c.remainingGrace(g.BlackOfflineSince, now)

		s := &session{game: g}
		if !c.register(s) {
			c.log.Warn("game_recover_conflict", zap.String("game_id", id))
			continue
		}
		_ = c.transition(ctx, s, func(*pvpchess.Game, time.Time) (effects, error) {
			return effects{persist: true}, nil
		})
		c.scheduleDrop(id, white, whiteLeft)
		c.scheduleDrop(id, black, blackLeft)
		recovered++
		c.log.Info("game_recovered",
			zap.String("game_id", id),
			zap.Int("plies", plies),
			zap.Time("down_since", downSince),
		)
	}
	return recovered
}
