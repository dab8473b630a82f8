package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr     string
	AllowedOrigins []string

	RedisURL    string
	DatabaseURL string

	RatingWebhookURL   string
	RatingWebhookToken string

	TimeControlBase      time.Duration
	TimeControlIncrement time.Duration
	RatedGames           bool

	ClockTick      time.Duration
	ReconnectGrace time.Duration
	GameRetention  time.Duration

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":8080",
		TimeControlBase: 5 * time.Minute,
		RatedGames:      true,
		ClockTick:       200 * time.Millisecond,
		ReconnectGrace:  60 * time.Second,
		GameRetention:   24 * time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RatingWebhookURL = strings.TrimSpace(os.Getenv("RATING_WEBHOOK_URL"))
	cfg.RatingWebhookToken = strings.TrimSpace(os.Getenv("RATING_WEBHOOK_TOKEN"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("TIME_CONTROL")); v != "" {
		base, inc, err := ParseTimeControl(v)
		if err != nil {
			return nil, err
		}
		cfg.TimeControlBase, cfg.TimeControlIncrement = base, inc
	}
	if v := strings.TrimSpace(os.Getenv("RATED_GAMES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.RatedGames = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLOCK_TICK_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClockTick = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("RECONNECT_GRACE_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectGrace = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("GAME_RETENTION_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameRetention = time.Duration(n) * time.Second
		}
	}

	return cfg, nil
}

// ParseTimeControl reads "minutes+seconds", e.g. "5+0" or "3+2". A bare "10" means no increment.
func ParseTimeControl(s string) (base, increment time.Duration, err error) {
	s = strings.TrimSpace(s)
	mins, secs, hasInc := strings.Cut(s, "+")
	m, err := strconv.Atoi(strings.TrimSpace(mins))
	if err != nil || m <= 0 {
		return 0, 0, fmt.Errorf("invalid TIME_CONTROL %q: base minutes must be a positive integer", s)
	}
	base = time.Duration(m) * time.Minute
	if !hasInc {
		return base, 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(secs))
	if err != nil || n < 0 {
		return 0, 0, fmt.Errorf("invalid TIME_CONTROL %q: increment must be whole seconds", s)
	}
	return base, time.Duration(n) * time.Second, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
