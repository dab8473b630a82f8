package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateFailed       ConnState = "failed"
)

type EventCallback func(ev chessdto.Event)

type StateCallback func(state ConnState)

type callbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

var ErrNotConnected = errors.New("not connected")

// Client is a player-side connection that redials after a drop, so a short network
// blip is absorbed by the server's reconnection grace.
type Client struct {
	url  string
	user string

	conn  *websocket.Conn
	connM sync.Mutex

	state  ConnState
	stateM sync.RWMutex

	eventCbs []callbackEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewClient(url, user string, maxReconnectAttempts int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:                  url,
		user:                 strings.TrimSpace(user),
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	switch c.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	c.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.dial(dialCtx); err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	hdr := http.Header{}
	hdr.Set(UserHeader, c.user)
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      hdr,
	})
	if err != nil {
		return err
	}
	c.connM.Lock()
	if c.isStopping() {
		c.connM.Unlock()
		_ = conn.CloseNow()
		return ErrNotConnected
	}
	c.conn = conn
	c.wg.Add(2)
	c.connM.Unlock()
	c.setState(StateConnected)

	go c.listen(conn)
	go c.pingLoop(conn)
	return nil
}

// Send writes one command on the current connection.
func (c *Client) Send(ctx context.Context, cmd chessdto.Command) error {
	c.connM.Lock()
	conn := c.conn
	c.connM.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, cmd)
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var ev chessdto.Event
		if err := wsjson.Read(c.rootCtx, conn, &ev); err != nil {
			if c.isStopping() {
				return
			}
			c.setState(StateDisconnected)
			c.closeConn(conn, websocket.StatusGoingAway, "reconnect")
			c.scheduleReconnect()
			return
		}
		c.cbM.RLock()
		callbacks := make([]callbackEntry, len(c.eventCbs))
		copy(callbacks, c.eventCbs)
		c.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(ev)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
			if c.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// listen notices the close and schedules the redial
				c.closeConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 {
		c.setState(StateFailed)
		return
	}
	c.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(c.rootCtx, 10*time.Second)
			err := c.dial(dialCtx)
			cancel()
			if err == nil {
				return
			}
		}
		c.setState(StateFailed)
	}()
}

func (c *Client) OnEvent(cb EventCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.eventCbs = append(c.eventCbs, callbackEntry{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *Client) RemoveEventCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, cb := range c.eventCbs {
		if cb.id == id {
			c.eventCbs = append(c.eventCbs[:i], c.eventCbs[i+1:]...)
			break
		}
	}
}

func (c *Client) OnStateChange(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.stateCbs = append(c.stateCbs, stateCallbackEntry{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *Client) State() ConnState {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) setState(state ConnState) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(c.stateCbs))
	copy(callbacks, c.stateCbs)
	c.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

// Drop closes the current connection without stopping the client, as a network failure would.
func (c *Client) Drop() {
	if conn := c.current(); conn != nil {
		_ = conn.CloseNow()
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if conn := c.current(); conn != nil {
		c.closeConn(conn, websocket.StatusNormalClosure, "close")
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.rootCancel()
		return nil
	}
}

func (c *Client) current() *websocket.Conn {
	c.connM.Lock()
	defer c.connM.Unlock()
	return c.conn
}

func (c *Client) closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	c.connM.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
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
