package bridge

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/zeu5/dino-rl/dino"
)

//go:embed bridge.js
var bridgeScript []byte

const (
	ScriptPath = "/bridge/bridge.js"
	SocketPath = "/bridge/ws"
)

type HubConfig struct {
	// how long a transport factory waits for a page to connect
	WaitTimeout time.Duration
	// number of idle pages kept for later sessions
	MaxIdle int
	Logger  log.Logger
}

func (c *HubConfig) SetDefaults() {
	if c.WaitTimeout == 0 {
		c.WaitTimeout = 10 * time.Second
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 16
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
}

// Hub accepts game pages connecting over websocket and hands each one out as
// a transport
type Hub struct {
	config   *HubConfig
	logger   log.Logger
	upgrader websocket.Upgrader
	pages    chan *Conn
}

func NewHub(config *HubConfig) *Hub {
	config.SetDefaults()
	return &Hub{
		config: config,
		logger: log.With(config.Logger, "component", "bridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		pages: make(chan *Conn, config.MaxIdle),
	}
}

func (h *Hub) HandleScript(c *gin.Context) {
	c.Data(http.StatusOK, "application/javascript", bridgeScript)
}

func (h *Hub) HandleSocket(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		level.Warn(h.logger).Log("msg", "websocket upgrade failed", "err", err)
		return
	}
	conn := newConn(ws, h.logger)
	select {
	case h.pages <- conn:
		level.Debug(h.logger).Log("msg", "page connected", "remote", c.Request.RemoteAddr)
	default:
		level.Warn(h.logger).Log("msg", "too many idle pages, dropping connection")
		conn.Teardown()
	}
}

// Register adds the bridge routes to r
func (h *Hub) Register(r gin.IRoutes) {
	r.GET(ScriptPath, h.HandleScript)
	r.GET(SocketPath, h.HandleSocket)
}

// Take waits for a live page connection
func (h *Hub) Take(ctx context.Context) (*Conn, error) {
	timeout := time.After(h.config.WaitTimeout)
	for {
		select {
		case conn := <-h.pages:
			if conn.Closed() {
				continue
			}
			return conn, nil
		case <-timeout:
			return nil, errors.New("no game page connected to the bridge")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Factory returns a transport factory backed by connected pages
func (h *Hub) Factory() dino.TransportFactory {
	return func(ctx context.Context) (dino.Transport, error) {
		return h.Take(ctx)
	}
}

// Close drops every idle page
func (h *Hub) Close() {
	for {
		select {
		case conn := <-h.pages:
			conn.Teardown()
		default:
			return
		}
	}
}
