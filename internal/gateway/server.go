package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess-server/internal/arena"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Coordinator is the part of arena.Coordinator the gateway drives.
type Coordinator interface {
	RequestGame(ctx context.Context, user string) error
	CancelRequest(user string) bool
	MakeMove(ctx context.Context, gameID, user, notation string) error
	OfferDraw(ctx context.Context, gameID, user string) error
	RespondDraw(ctx context.Context, gameID, user string, accept bool) error
	Resign(ctx context.Context, gameID, user string) error
	OnUserOnline(user string, h arena.Handle)
	Disconnect(user string, h arena.Handle)
	ActiveGame(user string) string
}

// UserHeader carries the authenticated player id set by the fronting proxy.
const UserHeader = "X-User-Id"

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("outbound buffer full")
)

type Options struct {
	Logger         *zap.Logger
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	OriginPatterns []string
}

// Server upgrades HTTP requests to player connections. One connection is one player.
type Server struct {
	coord Coordinator
	opts  Options
	log   *zap.Logger
}

func NewServer(coord Coordinator, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = obslog.L()
	}
	return &Server{coord: coord, opts: opts, log: logger}
}

// Handler serves the websocket endpoint at /ws and a liveness probe at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func userFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(UserHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("user"))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  s.opts.OriginPatterns,
	})
	if err != nil {
		s.log.Warn("ws_accept_error", zap.String("user", user), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{user: user, ws: ws, out: make(chan chessdto.Event, s.opts.SendBuffer), done: make(chan struct{})}
	s.log.Info("ws_connected", zap.String("user", user))
	s.coord.OnUserOnline(user, c)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx, c)
	}()
	go func() {
		defer wg.Done()
		s.pingLoop(ctx, c)
	}()

	s.readLoop(ctx, c)
	cancel()
	c.close(websocket.StatusNormalClosure, "bye")
	wg.Wait()
	s.coord.Disconnect(user, c)
	s.log.Info("ws_disconnected", zap.String("user", user))
}

func (s *Server) readLoop(ctx context.Context, c *conn) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Debug("ws_read_error", zap.String("user", c.user), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			_ = c.Send(chessdto.ErrorEvent(chessdto.ErrBadCommand))
			continue
		}
		var cmd chessdto.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			_ = c.Send(chessdto.ErrorEvent(chessdto.ErrBadCommand))
			continue
		}
		if err := s.dispatch(ctx, c.user, cmd); err != nil {
			_ = c.Send(chessdto.ErrorEvent(err))
		}
	}
}

func (s *Server) dispatch(ctx context.Context, user string, cmd chessdto.Command) error {
	gameID := strings.TrimSpace(cmd.GameID)
	if gameID == "" {
		gameID = s.coord.ActiveGame(user)
	}
	switch cmd.Type {
	case chessdto.CommandPlay:
		return s.coord.RequestGame(ctx, user)
	case chessdto.CommandCancel:
		s.coord.CancelRequest(user)
		return nil
	case chessdto.CommandMove:
		return s.coord.MakeMove(ctx, gameID, user, cmd.Move)
	case chessdto.CommandOfferDraw:
		return s.coord.OfferDraw(ctx, gameID, user)
	case chessdto.CommandRespondDraw:
		return s.coord.RespondDraw(ctx, gameID, user, cmd.Accept)
	case chessdto.CommandResign:
		return s.coord.Resign(ctx, gameID, user)
	default:
		return chessdto.ErrBadCommand
	}
}

func (s *Server) writeLoop(ctx context.Context, c *conn) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case ev := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := wsjson.Write(wctx, c.ws, ev)
			cancel()
			if err != nil {
				s.log.Debug("ws_write_error", zap.String("user", c.user), zap.Error(err))
				c.close(websocket.StatusGoingAway, "write failure")
				return
			}
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, c *conn) {
	t := time.NewTicker(s.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.ws.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				c.close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// conn is a player's arena.Handle. Send never blocks: a client that stops reading is dropped.
type conn struct {
	user      string
	ws        *websocket.Conn
	out       chan chessdto.Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *conn) Send(ev chessdto.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.out <- ev:
		return nil
	default:
		c.close(websocket.StatusPolicyViolation, "slow consumer")
		return errSlowConsumer
	}
}

func (c *conn) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		// the close handshake waits for the peer; callers may be delivering events
		go func() { _ = c.ws.Close(code, reason) }()
	})
}
