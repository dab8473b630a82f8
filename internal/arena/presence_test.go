package arena

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"github.com/redis/go-redis/v9"
)

func shortGrace(o *Options) { o.Grace = 40 * time.Millisecond }

func TestReconnectWithinGraceKeepsGame(t *testing.T) {
	f := newArena(t, shortGrace)
	f.start(t)
	ctx := context.Background()

	f.c.Disconnect("alice", f.alice)
	if msg, ok := f.bob.last(chessdto.EventInfo); !ok || !strings.Contains(msg.Message, "alice disconnected") {
		t.Fatalf("bob info = %+v", msg)
	}
	if f.c.pendingDrops() != 1 {
		t.Fatalf("pending drops = %d", f.c.pendingDrops())
	}

	// the absent side to move is not charged
	f.clock.Advance(10 * time.Second)
	f.c.TickAll(ctx)

	fresh := &recorder{}
	if !f.c.TryReconnect("alice", fresh) {
		t.Fatalf("TryReconnect found no game")
	}
	state, ok := fresh.last(chessdto.EventGameState)
	if !ok || state.Color != "white" || state.Clocks.WhiteMs != 300000 || state.GameID != f.gameID {
		t.Fatalf("gameState = %+v", state)
	}
	if msg, ok := f.bob.last(chessdto.EventInfo); !ok || !strings.Contains(msg.Message, "alice is back") {
		t.Fatalf("bob info = %+v", msg)
	}

	time.Sleep(100 * time.Millisecond)
	g, ok := f.c.Snapshot(f.gameID)
	if !ok || g.IsOver() || g.WhiteOfflineSince != 0 || f.c.pendingDrops() != 0 {
		t.Fatalf("game should continue: %+v", g)
	}

	f.clock.Advance(time.Second)
	f.c.TickAll(ctx)
	g, _ = f.c.Snapshot(f.gameID)
	if g.WhiteMs != 299000 {
		t.Fatalf("white clock = %d; want 299000", g.WhiteMs)
	}
	if err := f.c.MakeMove(ctx, f.gameID, "alice", "e2e4"); err != nil {
		t.Fatalf("move after reconnect: %v", err)
	}
	if len(fresh.of(chessdto.EventMove)) != 1 {
		t.Fatalf("new handle did not receive the move")
	}
}

func TestDropForfeitsToOpponent(t *testing.T) {
	f := newArena(t, shortGrace)
	f.start(t)
	f.play(t, "e2e4")
	f.c.Disconnect("bob", f.bob)

	waitFor(t, "forfeit", func() bool { return f.c.ActiveGame("alice") == "" })
	ev, ok := f.alice.last(chessdto.EventGameOver)
	if !ok || ev.Result != "WHITE_WIN" || ev.Reason != pvpchess.ReasonDisconnected {
		t.Fatalf("gameOver = %+v", ev)
	}
	if len(f.bob.of(chessdto.EventGameOver)) != 0 {
		t.Fatalf("offline player must not receive events")
	}
	if f.c.pendingDrops() != 0 {
		t.Fatalf("timers left behind: %d", f.c.pendingDrops())
	}
}

func TestDropWithoutMovesAborts(t *testing.T) {
	f := newArena(t, shortGrace)
	f.start(t)
	f.c.OnUserOffline("alice")

	waitFor(t, "abort", func() bool { return f.c.ActiveGame("bob") == "" })
	ev, ok := f.bob.last(chessdto.EventGameOver)
	if !ok || ev.Result != "ABORTED" || ev.Reason != pvpchess.ReasonAbortedNoMoves {
		t.Fatalf("gameOver = %+v", ev)
	}
}

func TestBothOfflineEndsInDraw(t *testing.T) {
	f := newArena(t, shortGrace)
	f.start(t)
	f.play(t, "e2e4", "e7e5")
	f.c.OnUserOffline("alice")
	f.c.OnUserOffline("bob")

	waitFor(t, "draw", func() bool { return f.c.LiveGames() == 0 })
	g := f.archived(t)
	if g.Result != pvpchess.ResultDraw || g.Reason != pvpchess.ReasonBothDisconnected {
		t.Fatalf("archived = %s %q", g.Result, g.Reason)
	}
}

func TestStaleDisconnectIsIgnored(t *testing.T) {
	f := newArena(t, nil)
	f.start(t)
	replacement := &recorder{}
	f.c.OnUserOnline("alice", replacement)
	f.c.Disconnect("alice", f.alice)

	g, _ := f.c.Snapshot(f.gameID)
	if g.WhiteOfflineSince != 0 || f.c.pendingDrops() != 0 {
		t.Fatalf("closing a replaced connection marked alice offline")
	}
	f.play(t, "d2d4")
	if len(replacement.of(chessdto.EventMove)) != 1 || len(f.alice.of(chessdto.EventMove)) != 0 {
		t.Fatalf("events should go to the replacement handle only")
	}
}

func TestOfflineLeavesQueue(t *testing.T) {
	f := newArena(t, nil)
	h := &recorder{}
	f.c.OnUserOnline("alice", h)
	_ = f.c.RequestGame(context.Background(), "alice")
	f.c.Disconnect("alice", h)
	if f.c.Waiting() != 0 {
		t.Fatalf("offline user still queued")
	}
}

func TestRecoverOngoingGamesArmsRemainingGrace(t *testing.T) {
	f := newArena(t, nil)
	ctx := context.Background()

	live := pvpchess.NewGame("live", "alice", "bob", pvpchess.DefaultTimeControl, true, t0)
	if _, err := live.MakeMove("alice", "e2e4", t0.Add(time.Second)); err != nil {
		t.Fatalf("seed move: %v", err)
	}
	done := pvpchess.NewGame("done", "carol", "dave", pvpchess.DefaultTimeControl, true, t0)
	done.Resign("carol", t0)

	f.clock.Advance(30 * time.Second)
	downSince := t0.Add(10 * time.Second)
	if n := f.c.RecoverOngoingGames(ctx, []*pvpchess.Game{live, done}, downSince); n != 1 {
		t.Fatalf("recovered = %d; want 1", n)
	}
	if f.c.ActiveGame("carol") != "" {
		t.Fatalf("finished game must not be recovered")
	}
	g, ok := f.c.Snapshot("live")
	if !ok {
		t.Fatalf("live game missing")
	}
	if g.WhiteOfflineSince != downSince.UnixMilli() || g.BlackOfflineSince != downSince.UnixMilli() {
		t.Fatalf("offline stamps = %d/%d", g.WhiteOfflineSince, g.BlackOfflineSince)
	}
	if !g.LastTick.Equal(f.clock.Now()) || f.c.pendingDrops() != 2 {
		t.Fatalf("lastTick=%v drops=%d", g.LastTick, f.c.pendingDrops())
	}
	if got := f.c.remainingGrace(g.WhiteOfflineSince, f.clock.Now()); got != 40*time.Second {
		t.Fatalf("remaining grace = %v", got)
	}

	h := &recorder{}
	if !f.c.TryReconnect("bob", h) {
		t.Fatalf("bob could not reconnect")
	}
	state, _ := h.last(chessdto.EventGameState)
	if state.Color != "black" || len(state.Moves) != 1 || state.Turn != "black" {
		t.Fatalf("gameState = %+v", state)
	}
	if f.c.pendingDrops() != 1 {
		t.Fatalf("bob's drop should be cancelled, pending=%d", f.c.pendingDrops())
	}
	if stored, _ := f.store.Load(ctx, "live"); stored == nil || stored.BlackOfflineSince != 0 {
		t.Fatalf("reconnect not persisted: %+v", stored)
	}
}

func TestRecoverAfterLongOutageResolvesImmediately(t *testing.T) {
	f := newArena(t, nil)
	live := pvpchess.NewGame("live", "alice", "bob", pvpchess.DefaultTimeControl, true, t0)
	_, _ = live.MakeMove("alice", "e2e4", t0)
	f.clock.Advance(5 * time.Minute)

	f.c.RecoverOngoingGames(context.Background(), []*pvpchess.Game{live}, t0)
	waitFor(t, "resolution", func() bool { return f.c.LiveGames() == 0 })
	if g := f.archived(t); g.Result != pvpchess.ResultDraw || g.Reason != pvpchess.ReasonBothDisconnected {
		t.Fatalf("archived = %s %q", g.Result, g.Reason)
	}
}

func newRedisStore(t *testing.T) *pvpchess.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return pvpchess.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), pvpchess.DefaultRetention)
}

func TestEstimateDownSince(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)
	a := pvpchess.NewGame("a", "alice", "bob", pvpchess.DefaultTimeControl, true, t0)
	b := pvpchess.NewGame("b", "carol", "dave", pvpchess.DefaultTimeControl, true, t0.Add(5*time.Minute))

	if got := EstimateDownSince(ctx, pvpchess.NewMemoryStore(), []*pvpchess.Game{a, b}, now); !got.Equal(b.LastUpdate) {
		t.Fatalf("without heartbeat = %v; want %v", got, b.LastUpdate)
	}
	if got := EstimateDownSince(ctx, pvpchess.NewMemoryStore(), nil, now); !got.Equal(now) {
		t.Fatalf("empty = %v; want now", got)
	}

	rs := newRedisStore(t)
	beat := t0.Add(30 * time.Minute)
	if err := rs.Heartbeat(ctx, beat); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if got := EstimateDownSince(ctx, rs, []*pvpchess.Game{a, b}, now); !got.Equal(beat) {
		t.Fatalf("with heartbeat = %v; want %v", got, beat)
	}
}

func TestRunWritesHeartbeat(t *testing.T) {
	rs := newRedisStore(t)
	f := newArena(t, func(o *Options) {
		o.Store = rs
		o.TickInterval = 5 * time.Millisecond
	})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.c.Run(ctx) }()

	waitFor(t, "heartbeat", func() bool {
		_, ok, _ := rs.LastHeartbeat(context.Background())
		return ok
	})
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}
