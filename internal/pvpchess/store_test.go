package pvpchess

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-chess-server/internal/chess"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewRedisStore(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func playedGame(t *testing.T, id string, created time.Time) *Game {
	t.Helper()
	g := NewGame(id, "alice", "bob", DefaultTimeControl, true, created)
	mustPlay(t, g, created, "e2e4", "d7d5", "e4d5")
	g.MarkOffline("bob", created.Add(time.Second))
	return g
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	g := playedGame(t, "g1", t0)
	if err := s.Save(ctx, g); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "g1")
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if diff := cmp.Diff(g, got, cmp.AllowUnexported(chess.Board{})); diff != "" {
		t.Fatalf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestRedisStoreOngoingIndex(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	a := playedGame(t, "a", t0)
	b := playedGame(t, "b", t0.Add(time.Minute))
	for _, g := range []*Game{b, a} {
		if err := s.Save(ctx, g); err != nil {
			t.Fatalf("save %s: %v", g.ID, err)
		}
	}
	list, err := s.LoadOngoing(ctx)
	if err != nil {
		t.Fatalf("LoadOngoing: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("ongoing = %v; want [a b] by creation", ids(list))
	}

	b.Resign("alice", t0.Add(2*time.Minute))
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("save finished: %v", err)
	}
	if ok, _ := mr.SIsMember(ongoingSetKey, "b"); ok {
		t.Fatalf("finished game still indexed")
	}
	if ttl := mr.TTL(gameKey("b")); ttl != time.Hour {
		t.Fatalf("finished ttl = %v; want retention", ttl)
	}
	if ttl := mr.TTL(gameKey("a")); ttl != 0 {
		t.Fatalf("ongoing game must not expire, ttl = %v", ttl)
	}
	list, _ = s.LoadOngoing(ctx)
	if len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("ongoing = %v; want [a]", ids(list))
	}
}

func TestRedisStorePrunesDanglingIndex(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	if _, err := mr.SAdd(ongoingSetKey, "ghost"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, err := s.LoadOngoing(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("list=%v err=%v", ids(list), err)
	}
	if ok, _ := mr.SIsMember(ongoingSetKey, "ghost"); ok {
		t.Fatalf("dangling id not pruned")
	}
}

func TestRedisStoreHeartbeat(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	if _, ok, err := s.LastHeartbeat(ctx); ok || err != nil {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}
	if err := s.Heartbeat(ctx, t0); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	at, ok, err := s.LastHeartbeat(ctx)
	if err != nil || !ok || !at.Equal(t0) {
		t.Fatalf("last heartbeat = %v ok=%v err=%v", at, ok, err)
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := playedGame(t, "g1", t0)
	if err := s.Save(ctx, g); err != nil {
		t.Fatalf("save: %v", err)
	}
	g.Moves = append(g.Moves, MoveRecord{Notation: "x"})
	got, _ := s.Load(ctx, "g1")
	if len(got.Moves) != 3 {
		t.Fatalf("stored game aliased caller memory: %d moves", len(got.Moves))
	}
	list, _ := s.LoadOngoing(ctx)
	if len(list) != 1 {
		t.Fatalf("ongoing = %d", len(list))
	}
	got.Resign("bob", t0)
	_ = s.Save(ctx, got)
	if list, _ := s.LoadOngoing(ctx); len(list) != 0 {
		t.Fatalf("finished game listed as ongoing")
	}
}

func ids(list []*Game) []string {
	out := make([]string, 0, len(list))
	for _, g := range list {
		out = append(out, g.ID)
	}
	return out
}
