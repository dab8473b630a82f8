package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"github.com/valyala/fasthttp"
)

// GameReport is the payload posted to an external rating service.
type GameReport struct {
	GameID     string    `json:"gameId"`
	White      string    `json:"white"`
	Black      string    `json:"black"`
	Result     string    `json:"result"`
	Reason     string    `json:"reason"`
	Rated      bool      `json:"rated"`
	Moves      []string  `json:"moves"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Webhook posts finished games to an HTTP endpoint, retrying transient failures.
type Webhook struct {
	url     string
	http    *fasthttp.Client
	headers map[string]string

	defaultTimeout time.Duration
	retryMax       int
}

type WebhookOption func(*Webhook)

func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.defaultTimeout = d }
}

func WithRetry(max int) WebhookOption {
	return func(w *Webhook) { w.retryMax = max }
}

func WithHeader(k, v string) WebhookOption {
	return func(w *Webhook) { w.headers[k] = v }
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:            strings.TrimSpace(url),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		headers:        make(map[string]string),
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) OnGameFinished(ctx context.Context, g *pvpchess.Game) error {
	if g == nil || !g.IsOver() || w.url == "" {
		return nil
	}
	report := GameReport{
		GameID:     g.ID,
		White:      g.WhiteID,
		Black:      g.BlackID,
		Result:     string(g.Result),
		Reason:     g.Reason,
		Rated:      g.Rated,
		Moves:      g.Notations(),
		StartedAt:  g.CreatedAt,
		FinishedAt: g.FinishedAt,
	}
	return w.postJSON(ctx, report)
}

func (w *Webhook) postJSON(ctx context.Context, in any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.url)
	req.Header.SetContentType("application/json")
	for k, v := range w.headers {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
	req.SetBody(payload)

	attempts := w.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := w.http.DoDeadline(req, resp, w.computeDeadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			err = fmt.Errorf("rating webhook: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return err
			}
		} else {
			err = fmt.Errorf("rating webhook: %w", err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (w *Webhook) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(w.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
