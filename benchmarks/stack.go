package benchmarks

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeu5/dino-rl/bridge"
	"github.com/zeu5/dino-rl/chrome"
	"github.com/zeu5/dino-rl/dino"
	"github.com/zeu5/dino-rl/server"
)

// gameStack is the transport factory with whatever it needs running: the
// shared browser, the bridge hub and the local game server
type gameStack struct {
	factory  dino.TransportFactory
	registry *prometheus.Registry
	server   *server.Server
	closers  []func()
}

type stackConfig struct {
	Transport string
	GameURL   string
	GameDir   string
	Addr      string
	Headless  bool
	Logger    log.Logger
}

func newGameStack(ctx context.Context, config stackConfig) (*gameStack, error) {
	s := &gameStack{
		registry: prometheus.NewRegistry(),
	}
	serverConfig := &server.Config{
		Addr:     config.Addr,
		GameDir:  config.GameDir,
		Gatherer: s.registry,
		Logger:   config.Logger,
	}

	switch config.Transport {
	case "chrome":
		url := config.GameURL
		if url == "" {
			s.server = server.New(ctx, serverConfig)
			s.server.Start()
			url = s.server.URL()
		}
		browser := chrome.NewBrowser(&chrome.BrowserConfig{
			Headless: config.Headless,
			Logger:   config.Logger,
		})
		s.factory = chrome.Factory(browser, url, config.Logger)
	case "bridge":
		hub := bridge.NewHub(&bridge.HubConfig{Logger: config.Logger})
		serverConfig.Hub = hub
		s.server = server.New(ctx, serverConfig)
		s.server.Start()
		s.factory = hub.Factory()
		s.closers = append(s.closers, hub.Close)
		level.Info(config.Logger).Log("msg", "open the game page to connect it", "url", s.server.URL())
	default:
		return nil, fmt.Errorf("unknown transport %q, expected chrome or bridge", config.Transport)
	}
	return s, nil
}

func (s *gameStack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
