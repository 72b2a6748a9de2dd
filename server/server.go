package server

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeu5/dino-rl/bridge"
)

type Config struct {
	Addr    string
	GameDir string
	// Hub, when set, exposes the bridge and injects its script into the game page
	Hub      *bridge.Hub
	Gatherer prometheus.Gatherer
	Logger   log.Logger
}

func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:8000"
	}
	if c.GameDir == "" {
		c.GameDir = "t-rex-runner"
	}
	if c.Gatherer == nil {
		c.Gatherer = prometheus.DefaultGatherer
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
}

// Server serves the game files along with health and metrics endpoints
type Server struct {
	config *Config
	logger log.Logger
	ctx    context.Context
	engine *gin.Engine
	server *http.Server
}

func New(ctx context.Context, config *Config) *Server {
	config.SetDefaults()
	s := &Server{
		config: config,
		logger: log.With(config.Logger, "component", "server"),
		ctx:    ctx,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/", s.handleIndex)
	r.GET("/index.html", s.handleIndex)
	if config.Hub != nil {
		config.Hub.Register(r)
	}
	r.NoRoute(gin.WrapH(http.FileServer(http.Dir(config.GameDir))))

	s.engine = r
	s.server = &http.Server{
		Addr:    config.Addr,
		Handler: r,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var bodyClose = []byte("</body>")

func (s *Server) handleIndex(c *gin.Context) {
	page, err := os.ReadFile(filepath.Join(s.config.GameDir, "index.html"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	if s.config.Hub != nil {
		tag := []byte(`<script src="` + bridge.ScriptPath + `"></script>`)
		if i := bytes.LastIndex(page, bodyClose); i >= 0 {
			injected := make([]byte, 0, len(page)+len(tag))
			injected = append(injected, page[:i]...)
			injected = append(injected, tag...)
			injected = append(injected, page[i:]...)
			page = injected
		} else {
			page = append(page, tag...)
		}
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// Start listens in the background until the server context is done
func (s *Server) Start() {
	go func() {
		level.Info(s.logger).Log("msg", "serving game", "addr", s.config.Addr, "dir", s.config.GameDir)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(s.logger).Log("msg", "server stopped", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}()
}

// URL is the address of the game page
func (s *Server) URL() string {
	return "http://" + s.config.Addr + "/"
}
