package chrome

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

type BrowserConfig struct {
	Headless bool
	// ExecPath overrides the chrome binary lookup
	ExecPath     string
	WindowWidth  int
	WindowHeight int
	Logger       log.Logger
}

func (c *BrowserConfig) SetDefaults() {
	if c.WindowWidth == 0 {
		c.WindowWidth = 800
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = 600
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
}

func (c *BrowserConfig) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", c.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(c.WindowWidth, c.WindowHeight),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	return opts
}

// Browser is a chrome process shared by every tab session. The process is
// launched by the first Acquire and stopped when the last reference is released.
type Browser struct {
	config *BrowserConfig
	logger log.Logger

	lock          *sync.Mutex
	refs          int
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewBrowser(config *BrowserConfig) *Browser {
	config.SetDefaults()
	return &Browser{
		config: config,
		logger: log.With(config.Logger, "component", "browser"),
		lock:   new(sync.Mutex),
	}
}

// Acquire returns the browser context, launching chrome if needed. Every
// successful Acquire must be paired with a Release.
func (b *Browser) Acquire() (context.Context, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.refs == 0 {
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.config.allocatorOptions()...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			return nil, errors.Wrap(err, "failed to launch chrome")
		}
		b.allocCancel = allocCancel
		b.browserCtx = browserCtx
		b.browserCancel = browserCancel
		level.Info(b.logger).Log("msg", "browser started", "headless", b.config.Headless)
	}
	b.refs++
	return b.browserCtx, nil
}

func (b *Browser) Release() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.refs == 0 {
		return
	}
	b.refs--
	if b.refs == 0 {
		b.browserCancel()
		b.allocCancel()
		b.browserCtx = nil
		level.Info(b.logger).Log("msg", "browser stopped")
	}
}

func (b *Browser) Refs() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.refs
}
