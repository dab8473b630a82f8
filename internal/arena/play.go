package arena

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"go.uber.org/zap"
)

// effects is what a locked transition leaves to do once the session lock is released.
type effects struct {
	out      []delivery
	persist  bool
	finished bool
}

// transition runs fn under the session lock, persists its result, and then delivers the
// collected events and completes a game that fn finished. It always returns fn's error.
func (c *Coordinator) transition(ctx context.Context, s *session, fn func(g *pvpchess.Game, now time.Time) (effects, error)) error {
	var (
		fx    effects
		final *pvpchess.Game
	)
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		var err error
		fx, err = fn(s.game, c.now())
		if err != nil {
			return err
		}
		if fx.persist || fx.finished {
			c.persistLocked(ctx, s.game)
		}
		if fx.finished {
			final = s.game.Clone()
		}
		return nil
	}()
	if err != nil {
		return err
	}
	c.deliver(fx.out)
	if final != nil {
		c.complete(ctx, s, final)
	}
	return nil
}

// complete runs the once-per-game finishing path: rating, archive, gameOver, cleanup.
func (c *Coordinator) complete(ctx context.Context, s *session, g *pvpchess.Game) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	statsOK := true
	if c.opts.Rating != nil {
		if err := c.opts.Rating.OnGameFinished(hookCtx, g); err != nil {
			statsOK = false
			c.log.Warn("rating_hook_error", zap.String("game_id", g.ID), zap.Error(err))
		}
	}
	if c.opts.Archive != nil {
		if err := c.opts.Archive.SaveResult(hookCtx, g); err != nil {
			c.log.Warn("archive_error", zap.String("game_id", g.ID), zap.Error(err))
		}
	}

	s.mu.Lock()
	handles := s.handles
	s.mu.Unlock()
	ev := chessdto.GameOverEvent(g.ID, string(g.Result), g.Reason, statsOK)
	c.deliver([]delivery{{handles[0], ev}, {handles[1], ev}})

	c.cancelDrop(g.ID, g.WhiteID)
	c.cancelDrop(g.ID, g.BlackID)
	c.unregister(g.ID, g.WhiteID, g.BlackID)
	c.log.Info("game_over",
		zap.String("game_id", g.ID),
		zap.String("result", string(g.Result)),
		zap.String("reason", g.Reason),
		zap.Int("plies", len(g.Moves)),
		zap.Bool("stats_ok", statsOK),
	)
}

func (c *Coordinator) lookup(gameID string) (*session, error) {
	s := c.session(strings.TrimSpace(gameID))
	if s == nil {
		return nil, chessdto.ErrNoGame
	}
	return s, nil
}

// RequestGame pairs user with the longest-waiting player, or parks user in the queue.
func (c *Coordinator) RequestGame(ctx context.Context, user string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return chessdto.ErrNotParticipant
	}
	if c.ActiveGame(user) != "" {
		return chessdto.ErrAlreadyInGame
	}
	if c.queue.Contains(user) {
		c.deliver([]delivery{{c.handleOf(user), c.info("lobby.already_waiting", nil)}})
		return nil
	}
	opponent, paired, err := c.queue.Enqueue(user)
	if err != nil {
		return chessdto.ErrNotParticipant
	}
	if !paired {
		c.log.Info("queue_join", zap.String("user", user), zap.Int("waiting", c.queue.Len()))
		c.deliver([]delivery{{c.handleOf(user), c.info("lobby.waiting", nil)}})
		return nil
	}
	return c.startGame(ctx, opponent, user)
}

// CancelRequest takes user out of the matchmaking queue.
func (c *Coordinator) CancelRequest(user string) bool {
	user = strings.TrimSpace(user)
	if !c.queue.Remove(user) {
		return false
	}
	c.log.Info("queue_leave", zap.String("user", user))
	c.deliver([]delivery{{c.handleOf(user), c.info("lobby.left_queue", nil)}})
	return true
}

// startGame creates the game for a freshly paired couple; waited is the player who queued first.
func (c *Coordinator) startGame(ctx context.Context, waited, joined string) error {
	white, black := waited, joined
	if c.opts.Intn(2) == 1 {
		white, black = joined, waited
	}
	g := pvpchess.NewGame(c.opts.NewID(), white, black, c.opts.TimeControl, c.opts.Rated, c.now())
	s := &session{game: g}
	if !c.register(s) {
		return chessdto.ErrAlreadyInGame
	}

	var missing []string
	_ = c.transition(ctx, s, func(g *pvpchess.Game, _ time.Time) (effects, error) {
		fx := effects{persist: true}
		for _, color := range sides() {
			h := s.handles[side(color)]
			if h == nil {
				missing = append(missing, g.UserOf(color))
				continue
			}
			fx.out = append(fx.out, delivery{h, stateEvent(chessdto.EventGameStarted, g, color)})
		}
		return fx, nil
	})
	c.log.Info("game_start",
		zap.String("game_id", g.ID),
		zap.String("white", white),
		zap.String("black", black),
		zap.String("time_control", g.TimeControl),
	)
	// a player who dropped between pairing and creation starts on the grace timer
	for _, u := range missing {
		c.OnUserOffline(u)
	}
	return nil
}

// MakeMove plays notation for user in gameID. Rejections come back as chessdto.DomainError.
func (c *Coordinator) MakeMove(ctx context.Context, gameID, user, notation string) error {
	s, err := c.lookup(gameID)
	if err != nil {
		return err
	}
	return c.transition(ctx, s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		out, err := g.MakeMove(user, notation, now)
		if err != nil {
			if pvpchess.IsStructural(err) {
				c.log.Error("engine_invariant_broken", zap.String("game_id", g.ID), zap.Error(err))
				return effects{}, fmt.Errorf("%w: %v", chessdto.ErrInternal, err)
			}
			return effects{}, err
		}
		fx := effects{persist: true, finished: out.Finished}
		if out.Applied {
			ev := chessdto.Event{
				Type:       chessdto.EventMove,
				GameID:     g.ID,
				By:         g.UserOf(out.By),
				Notation:   out.Notation,
				Turn:       g.Turn.String(),
				CheckFlags: g.CheckFlags(),
				Clocks:     g.Clocks(),
				Board:      g.Board.Rows(),
			}
			fx.out = []delivery{{s.handles[0], ev}, {s.handles[1], ev}}
		}
		return fx, nil
	})
}

// OfferDraw records a draw offer and notifies the opponent.
func (c *Coordinator) OfferDraw(ctx context.Context, gameID, user string) error {
	s, err := c.lookup(gameID)
	if err != nil {
		return err
	}
	return c.transition(ctx, s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		opponent, err := g.OfferDraw(user, now)
		if err != nil {
			return effects{}, err
		}
		oc, _ := g.ColorOf(opponent)
		ev := chessdto.Event{Type: chessdto.EventDrawOffered, GameID: g.ID, By: g.DrawOfferBy}
		return effects{persist: true, out: []delivery{{s.handles[side(oc)], ev}}}, nil
	})
}

// RespondDraw accepts or declines the opponent's pending offer.
func (c *Coordinator) RespondDraw(ctx context.Context, gameID, user string, accept bool) error {
	s, err := c.lookup(gameID)
	if err != nil {
		return err
	}
	return c.transition(ctx, s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		offeror, finished, err := g.RespondDraw(user, accept, now)
		if err != nil {
			return effects{}, err
		}
		fx := effects{persist: true, finished: finished}
		if !accept {
			oc, _ := g.ColorOf(offeror)
			ev := chessdto.Event{Type: chessdto.EventDrawDeclined, GameID: g.ID, By: g.Opponent(offeror)}
			fx.out = []delivery{{s.handles[side(oc)], ev}}
		}
		return fx, nil
	})
}

// Resign ends gameID with a win for user's opponent.
func (c *Coordinator) Resign(ctx context.Context, gameID, user string) error {
	s, err := c.lookup(gameID)
	if err != nil {
		return err
	}
	return c.transition(ctx, s, func(g *pvpchess.Game, now time.Time) (effects, error) {
		if err := g.Resign(user, now); err != nil {
			return effects{}, err
		}
		return effects{finished: true}, nil
	})
}
