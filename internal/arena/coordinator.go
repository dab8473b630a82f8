package arena

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/msgcat"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"github.com/park285/cheese-chess-server/internal/pvp"
	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"github.com/park285/cheese-chess-server/internal/rating"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"go.uber.org/zap"
)

// Handle is a player's outbound channel, owned by the connection layer. Send must not block.
type Handle interface {
	Send(ev chessdto.Event) error
}

// Archiver keeps finished games, e.g. pvpchess.Repository.
type Archiver interface {
	SaveResult(ctx context.Context, g *pvpchess.Game) error
}

type Options struct {
	Store    pvpchess.GameStore
	Rating   rating.Hook
	Archive  Archiver
	Messages *msgcat.Catalog
	Logger   *zap.Logger

	TimeControl       pvpchess.TimeControl
	Rated             bool
	TickInterval      time.Duration
	Grace             time.Duration
	HeartbeatInterval time.Duration

	Now   func() time.Time
	NewID func() string
	// Intn picks the color assignment; 0 makes the longest-waiting player white.
	Intn func(n int) int
}

const (
	DefaultTickInterval      = 200 * time.Millisecond
	DefaultGrace             = 60 * time.Second
	DefaultHeartbeatInterval = 5 * time.Second

	hookTimeout = 10 * time.Second
)

// session pairs a live game with its players' current handles. Every field is guarded by mu.
type session struct {
	mu      sync.Mutex
	game    *pvpchess.Game
	handles [2]Handle
}

func side(c chess.Color) int {
	if c == chess.White {
		return 0
	}
	return 1
}

type delivery struct {
	h  Handle
	ev chessdto.Event
}

type timerKey struct {
	gameID string
	user   string
}

type dropTimer struct {
	t   *time.Timer
	gen uint64
}

// Coordinator owns matchmaking and every live game. The session index and each game's
// lock are never held together.
type Coordinator struct {
	opts  Options
	log   *zap.Logger
	msgs  *msgcat.Catalog
	queue *pvp.Queue

	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[string]string
	online   map[string]Handle

	timerMu  sync.Mutex
	timers   map[timerKey]dropTimer
	timerGen uint64
}

func New(opts Options) *Coordinator {
	if opts.Store == nil {
		opts.Store = pvpchess.NewMemoryStore()
	}
	if opts.TimeControl.Base <= 0 {
		opts.TimeControl = pvpchess.DefaultTimeControl
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Intn == nil {
		opts.Intn = rand.Intn
	}
	logger := opts.Logger
	if logger == nil {
		logger = obslog.L()
	}
	msgs := opts.Messages
	if msgs == nil {
		msgs = msgcat.MustDefault()
	}
	return &Coordinator{
		opts:     opts,
		log:      logger,
		msgs:     msgs,
		queue:    pvp.NewQueue(),
		sessions: make(map[string]*session),
		byUser:   make(map[string]string),
		online:   make(map[string]Handle),
		timers:   make(map[timerKey]dropTimer),
	}
}

func (c *Coordinator) now() time.Time { return c.opts.Now() }

// ActiveGame returns the id of user's live game, or "".
func (c *Coordinator) ActiveGame(user string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byUser[strings.TrimSpace(user)]
}

// Snapshot returns a copy of a live game.
func (c *Coordinator) Snapshot(gameID string) (*pvpchess.Game, bool) {
	s := c.session(gameID)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone(), true
}

// LiveGames returns the number of games in the live index.
func (c *Coordinator) LiveGames() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Waiting returns the matchmaking queue length.
func (c *Coordinator) Waiting() int { return c.queue.Len() }

func (c *Coordinator) session(gameID string) *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[gameID]
}

func (c *Coordinator) sessionOf(user string) *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[c.byUser[user]]
}

func (c *Coordinator) handleOf(user string) Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online[user]
}

func (c *Coordinator) liveSessions() []*session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}

// register adds s to the index. It fails when either player is already indexed.
func (c *Coordinator) register(s *session) bool {
	g := s.game
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byUser[g.WhiteID] != "" || c.byUser[g.BlackID] != "" {
		return false
	}
	s.handles[side(chess.White)] = c.online[g.WhiteID]
	s.handles[side(chess.Black)] = c.online[g.BlackID]
	c.sessions[g.ID] = s
	c.byUser[g.WhiteID] = g.ID
	c.byUser[g.BlackID] = g.ID
	return true
}

func (c *Coordinator) unregister(gameID, white, black string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, gameID)
	for _, u := range []string{white, black} {
		if c.byUser[u] == gameID {
			delete(c.byUser, u)
		}
	}
}

func (c *Coordinator) deliver(out []delivery) {
	for _, d := range out {
		if d.h == nil {
			continue
		}
		if err := d.h.Send(d.ev); err != nil {
			c.log.Debug("event_send_error", zap.String("type", string(d.ev.Type)), zap.Error(err))
		}
	}
}

func (c *Coordinator) info(key string, data any) chessdto.Event {
	return chessdto.InfoEvent(c.msgs.Text(key, data))
}

// persistLocked saves g; a failure is logged and the in-memory transition stands.
func (c *Coordinator) persistLocked(ctx context.Context, g *pvpchess.Game) {
	if err := c.opts.Store.Save(ctx, g); err != nil {
		c.log.Error("game_persist_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func stateEvent(typ chessdto.EventType, g *pvpchess.Game, c chess.Color) chessdto.Event {
	return chessdto.Event{
		Type:       typ,
		GameID:     g.ID,
		Color:      c.String(),
		Opponent:   g.UserOf(c.Opponent()),
		Turn:       g.Turn.String(),
		Moves:      g.Notations(),
		DrawBy:     g.DrawOfferBy,
		CheckFlags: g.CheckFlags(),
		Clocks:     g.Clocks(),
		Board:      g.Board.Rows(),
	}
}
