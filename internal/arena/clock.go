package arena

import (
	"context"
	"time"

	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"go.uber.org/zap"
)

type heartbeater interface {
	Heartbeat(ctx context.Context, now time.Time) error
}

// Run drives the game clocks until ctx is done. When the store supports it, a liveness
// heartbeat is written so the next start can estimate how long the server was down.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	var beat <-chan time.Time
	hb, ok := c.opts.Store.(heartbeater)
	if ok {
		c.heartbeat(ctx, hb)
		t := time.NewTicker(c.opts.HeartbeatInterval)
		defer t.Stop()
		beat = t.C
	}

	c.log.Info("clock_loop_start", zap.Duration("tick", c.opts.TickInterval), zap.Bool("heartbeat", ok))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.TickAll(ctx)
		case <-beat:
			c.heartbeat(ctx, hb)
		}
	}
}

// TickAll charges every live game's running clock once.
func (c *Coordinator) TickAll(ctx context.Context) {
	for _, s := range c.liveSessions() {
		c.tick(ctx, s)
	}
}

// tick isolates one game: a panic is logged and the loop moves on.
func (c *Coordinator) tick(ctx context.Context, s *session) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("clock_tick_panic", zap.Any("panic", r))
		}
	}()
	_ = c.transition(ctx, s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		return effects{finished: g.Tick(now)}, nil
	})
}

func (c *Coordinator) heartbeat(ctx context.Context, hb heartbeater) {
	if err := hb.Heartbeat(ctx, c.now()); err != nil {
		c.log.Warn("heartbeat_error", zap.Error(err))
	}
}
