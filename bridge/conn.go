package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/zeu5/dino-rl/dino"
)

const (
	opQuery = "query"
	opStart = "start"
	opInput = "input"
)

type request struct {
	ID      uint64 `json:"id"`
	Op      string `json:"op"`
	Key     string `json:"key,omitempty"`
	KeyCode int    `json:"keyCode,omitempty"`
	HoldMs  int64  `json:"holdMs,omitempty"`
}

type response struct {
	ID        uint64          `json:"id"`
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Telemetry json.RawMessage `json:"telemetry,omitempty"`
}

var ErrConnClosed = errors.New("bridge connection closed")

// Conn is a dino.Transport talking to a game page over a websocket
type Conn struct {
	ws     *websocket.Conn
	logger log.Logger

	writeLock *sync.Mutex
	lock      *sync.Mutex
	nextID    uint64
	pending   map[uint64]chan response

	closed    chan struct{}
	closeOnce sync.Once
}

var _ dino.Transport = &Conn{}

func newConn(ws *websocket.Conn, logger log.Logger) *Conn {
	c := &Conn{
		ws:        ws,
		logger:    logger,
		writeLock: new(sync.Mutex),
		lock:      new(sync.Mutex),
		pending:   make(map[uint64]chan response),
		closed:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer c.close()
	for {
		var resp response
		if err := c.ws.ReadJSON(&resp); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				level.Debug(c.logger).Log("msg", "bridge read failed", "err", err)
			}
			return
		}
		c.lock.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.lock.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

// Closed reports whether the page has gone away
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) call(ctx context.Context, req request) (response, error) {
	ch := make(chan response, 1)
	c.lock.Lock()
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = ch
	c.lock.Unlock()

	defer func() {
		c.lock.Lock()
		delete(c.pending, req.ID)
		c.lock.Unlock()
	}()

	if c.Closed() {
		return response{}, ErrConnClosed
	}

	c.writeLock.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetWriteDeadline(deadline)
	} else {
		c.ws.SetWriteDeadline(time.Time{})
	}
	err := c.ws.WriteJSON(req)
	c.writeLock.Unlock()
	if err != nil {
		return response{}, errors.Wrapf(err, "bridge %s", req.Op)
	}

	select {
	case resp := <-ch:
		if !resp.OK && resp.Error != "" {
			return resp, errors.Errorf("bridge %s: %s", req.Op, resp.Error)
		}
		return resp, nil
	case <-c.closed:
		return response{}, ErrConnClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (c *Conn) StartOrResume(ctx context.Context) error {
	resp, err := c.call(ctx, request{Op: opStart})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New("bridge start: page has no game instance")
	}
	return nil
}

func (c *Conn) QueryState(ctx context.Context) (*dino.RawTelemetry, error) {
	resp, err := c.call(ctx, request{Op: opQuery})
	if err != nil {
		return nil, err
	}
	if !resp.OK || len(resp.Telemetry) == 0 || string(resp.Telemetry) == "null" {
		return nil, nil
	}
	t := &dino.RawTelemetry{}
	if err := json.Unmarshal(resp.Telemetry, t); err != nil {
		return nil, errors.Wrap(err, "failed to decode telemetry")
	}
	return t, nil
}

func (c *Conn) SendInput(ctx context.Context, key dino.InputKey, hold time.Duration) error {
	_, err := c.call(ctx, request{
		Op:      opInput,
		Key:     string(key),
		KeyCode: key.KeyCode(),
		HoldMs:  hold.Milliseconds(),
	})
	return err
}

// Teardown closes the socket. The page reconnects on its own and becomes
// available to the hub again.
func (c *Conn) Teardown() error {
	if c.Closed() {
		return nil
	}
	c.writeLock.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "teardown"),
		time.Now().Add(time.Second))
	c.writeLock.Unlock()
	c.close()
	return nil
}
