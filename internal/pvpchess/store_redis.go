package pvpchess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ongoingSetKey = "arena:games:ongoing"
	heartbeatKey  = "arena:heartbeat"

	// DefaultRetention keeps finished games around for late readers.
	DefaultRetention = 24 * time.Hour
)

// RedisStore persists games as JSON values. Ongoing game ids are indexed in a set that
// is updated in the same MULTI/EXEC as the value.
type RedisStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(redisURL string, retention time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, retention), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{rdb: rdb, retention: retention}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) Save(ctx context.Context, g *Game) error {
	if g == nil {
		return nil
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	pipe := s.rdb.TxPipeline()
	if g.IsOver() {
		pipe.Set(ctx, gameKey(g.ID), raw, s.retention)
		pipe.SRem(ctx, ongoingSetKey, g.ID)
	} else {
		pipe.Set(ctx, gameKey(g.ID), raw, 0)
		pipe.SAdd(ctx, ongoingSetKey, g.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return nil
}

// Load returns the game by id, or nil when it is unknown or expired.
func (s *RedisStore) Load(ctx context.Context, id string) (*Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

// LoadOngoing returns every indexed ONGOING game. Index entries whose value vanished or
// already finished are pruned; undecodable values are logged and skipped.
func (s *RedisStore) LoadOngoing(ctx context.Context) ([]*Game, error) {
	ids, err := s.rdb.SMembers(ctx, ongoingSetKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*Game
	for _, id := range ids {
		g, err := s.Load(ctx, id)
		if err != nil {
			obslog.L().Warn("game_store_load_skip", zap.String("game_id", id), zap.Error(err))
			continue
		}
		if g == nil || g.IsOver() {
			_ = s.rdb.SRem(ctx, ongoingSetKey, id).Err()
			continue
		}
		out = append(out, g)
	}
	sortByCreation(out)
	return out, nil
}

// Heartbeat records that the process was alive at now.
func (s *RedisStore) Heartbeat(ctx context.Context, now time.Time) error {
	return s.rdb.Set(ctx, heartbeatKey, now.UnixMilli(), 0).Err()
}

// LastHeartbeat returns the last recorded heartbeat; ok is false when none exists.
func (s *RedisStore) LastHeartbeat(ctx context.Context) (at time.Time, ok bool, err error) {
	ms, err := s.rdb.Get(ctx, heartbeatKey).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func gameKey(id string) string { return "arena:game:" + strings.TrimSpace(id) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
