package arena

import (
	"context"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"go.uber.org/zap"
)

// OnUserOnline registers h as user's live connection and resumes their game, if any.
func (c *Coordinator) OnUserOnline(user string, h Handle) {
	c.TryReconnect(user, h)
}

// TryReconnect attaches h to user's live game, cancels the pending forfeit and replays the
// full game state. It reports whether a live game was found.
func (c *Coordinator) TryReconnect(user string, h Handle) bool {
	user = strings.TrimSpace(user)
	if user == "" || h == nil {
		return false
	}
	c.mu.Lock()
	c.online[user] = h
	c.mu.Unlock()

	s := c.sessionOf(user)
	if s == nil {
		return false
	}
	var (
		gameID  string
		resumed bool
	)
	_ = c.transition(context.Background(), s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		color, ok := g.ColorOf(user)
		if !ok || g.IsOver() {
			return effects{}, nil
		}
		gameID, resumed = g.ID, true
		s.handles[side(color)] = h
		fx := effects{out: []delivery{
			{h, stateEvent(chessdto.EventGameState, g, color)},
			{h, c.info("game.resumed", map[string]any{"GameID": g.ID})},
		}}
		if g.OfflineSince(color) != 0 {
			if _, err := g.MarkOnline(user, now); err != nil {
				return effects{}, err
			}
			fx.persist = true
			fx.out = append(fx.out, delivery{
				s.handles[side(color.Opponent())],
				c.info("game.opponent_reconnected", map[string]any{"Opponent": user}),
			})
		}
		return fx, nil
	})
	if !resumed {
		return false
	}
	c.cancelDrop(gameID, user)
	c.log.Info("player_reconnect", zap.String("game_id", gameID), zap.String("user", user))
	return true
}

// Disconnect handles the close of connection h. A close of a connection that was already
// replaced by a newer one is ignored.
func (c *Coordinator) Disconnect(user string, h Handle) {
	user = strings.TrimSpace(user)
	c.mu.Lock()
	if c.online[user] != h {
		c.mu.Unlock()
		return
	}
	delete(c.online, user)
	c.mu.Unlock()
	c.goOffline(user, h)
}

// OnUserOffline drops user from the queue and, during a live game, stamps their side
// offline and starts the reconnection grace.
func (c *Coordinator) OnUserOffline(user string) {
	user = strings.TrimSpace(user)
	c.mu.Lock()
	delete(c.online, user)
	c.mu.Unlock()
	c.goOffline(user, nil)
}

// goOffline marks user's side offline unless a connection other than gone is attached.
func (c *Coordinator) goOffline(user string, gone Handle) {
	if c.queue.Remove(user) {
		c.log.Info("queue_leave", zap.String("user", user), zap.String("cause", "offline"))
	}
	s := c.sessionOf(user)
	if s == nil {
		return
	}
	var (
		gameID string
		since  int64
	)
	_ = c.transition(context.Background(), s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		if g.IsOver() {
			return effects{}, nil
		}
		color, ok := g.ColorOf(user)
		if !ok {
			return effects{}, nil
		}
		if cur := s.handles[side(color)]; gone != nil && cur != nil && cur != gone {
			return effects{}, nil
		}
		if _, err := g.MarkOffline(user, now); err != nil {
			return effects{}, err
		}
		gameID, since = g.ID, g.OfflineSince(color)
		s.handles[side(color)] = nil
		msg := c.info("game.opponent_disconnected", map[string]any{
			"Opponent":     user,
			"GraceSeconds": int(c.opts.Grace / time.Second),
		})
		return effects{persist: true, out: []delivery{{s.handles[side(color.Opponent())], msg}}}, nil
	})
	if gameID == "" {
		return
	}
	c.scheduleDrop(gameID, user, c.remainingGrace(since, c.now()))
	c.log.Info("player_offline", zap.String("game_id", gameID), zap.String("user", user))
}

// remainingGrace is what is left of the grace period for a side offline since sinceMs.
func (c *Coordinator) remainingGrace(sinceMs int64, now time.Time) time.Duration {
	left := c.opts.Grace - now.Sub(time.UnixMilli(sinceMs))
	if left < 0 {
		return 0
	}
	return left
}

// scheduleDrop arms the forfeit for user, replacing any earlier timer for the same side.
func (c *Coordinator) scheduleDrop(gameID, user string, after time.Duration) {
	key := timerKey{gameID: gameID, user: user}
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if old, ok := c.timers[key]; ok {
		old.t.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timers[key] = dropTimer{gen: gen, t: time.AfterFunc(after, func() { c.dropFired(key, gen) })}
}

func (c *Coordinator) cancelDrop(gameID, user string) {
	key := timerKey{gameID: gameID, user: user}
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if dt, ok := c.timers[key]; ok {
		dt.t.Stop()
		delete(c.timers, key)
	}
}

// Stop disarms every pending forfeit. Live games stay persisted for the next start.
func (c *Coordinator) Stop() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	for key, dt := range c.timers {
		dt.t.Stop()
		delete(c.timers, key)
	}
}

// pendingDrops is the number of armed forfeit timers.
func (c *Coordinator) pendingDrops() int {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	return len(c.timers)
}

// dropFired resolves a grace expiry. It does nothing when the side came back in time.
func (c *Coordinator) dropFired(key timerKey, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("drop_timer_panic", zap.String("game_id", key.gameID), zap.Any("panic", r))
		}
	}()
	c.timerMu.Lock()
	dt, ok := c.timers[key]
	if !ok || dt.gen != gen {
		c.timerMu.Unlock()
		return
	}
	delete(c.timers, key)
	c.timerMu.Unlock()

	s := c.session(key.gameID)
	if s == nil {
		return
	}
	_ = c.transition(context.Background(), s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		color, ok := g.ColorOf(key.user)
		if !ok || g.IsOver() || g.OfflineSince(color) == 0 {
			return effects{}, nil
		}
		if !g.ResolveDisconnect(now) {
			return effects{}, nil
		}
		c.log.Info("player_dropped",
			zap.String("game_id", g.ID),
			zap.String("user", key.user),
			zap.Bool("opponent_offline", g.OfflineSince(color.Opponent()) != 0),
		)
		return effects{finished: true}, nil
	})
}

func sides() []chess.Color { return []chess.Color{chess.White, chess.Black} }
