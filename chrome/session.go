package chrome

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/zeu5/dino-rl/dino"
)

// Session is a dino.Transport driving the game in one browser tab
type Session struct {
	browser *Browser
	url     string
	logger  log.Logger

	tabCtx    context.Context
	tabCancel context.CancelFunc
	once      sync.Once
}

var _ dino.Transport = &Session{}

// NewSession opens a new tab in browser. The game is loaded by StartOrResume.
func NewSession(browser *Browser, url string, logger log.Logger) (*Session, error) {
	browserCtx, err := browser.Acquire()
	if err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	// the first run creates the tab and ties its lifetime to tabCtx
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		browser.Release()
		return nil, errors.Wrap(err, "failed to open tab")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Session{
		browser:   browser,
		url:       url,
		logger:    log.With(logger, "component", "chrome"),
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
	}, nil
}

// Factory creates a tab session per call, all sharing browser
func Factory(browser *Browser, url string, logger log.Logger) dino.TransportFactory {
	return func(context.Context) (dino.Transport, error) {
		return NewSession(browser, url, logger)
	}
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		cancel()
		runCtx, cancel = context.WithDeadline(s.tabCtx, deadline)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) StartOrResume(ctx context.Context) error {
	present := false
	if err := s.run(ctx, chromedp.Evaluate(runnerPresentScript, &present)); err != nil {
		level.Debug(s.logger).Log("msg", "runner probe failed", "err", err)
		present = false
	}
	if present {
		return nil
	}
	level.Debug(s.logger).Log("msg", "loading game", "url", s.url)
	err := s.run(ctx,
		chromedp.Navigate(s.url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return errors.Wrapf(err, "failed to load %s", s.url)
}

func (s *Session) QueryState(ctx context.Context) (*dino.RawTelemetry, error) {
	var raw []byte
	if err := s.run(ctx, chromedp.Evaluate(telemetryScript, &raw)); err != nil {
		return nil, err
	}
	return decodeTelemetry(raw)
}

func decodeTelemetry(raw []byte) (*dino.RawTelemetry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	t := &dino.RawTelemetry{}
	if err := json.Unmarshal(trimmed, t); err != nil {
		return nil, errors.Wrap(err, "failed to decode telemetry")
	}
	return t, nil
}

type keyDefinition struct {
	key  string
	code string
}

var keyDefinitions = map[dino.InputKey]keyDefinition{
	dino.KeySpace:     {key: " ", code: "Space"},
	dino.KeyArrowUp:   {key: "ArrowUp", code: "ArrowUp"},
	dino.KeyArrowDown: {key: "ArrowDown", code: "ArrowDown"},
}

func keyEvent(t input.KeyType, key dino.InputKey) (*input.DispatchKeyEventParams, error) {
	def, ok := keyDefinitions[key]
	if !ok {
		return nil, errors.Errorf("unsupported key %q", key)
	}
	code := int64(key.KeyCode())
	return input.DispatchKeyEvent(t).
		WithKey(def.key).
		WithCode(def.code).
		WithWindowsVirtualKeyCode(code).
		WithNativeVirtualKeyCode(code), nil
}

func (s *Session) SendInput(ctx context.Context, key dino.InputKey, hold time.Duration) error {
	down, err := keyEvent(input.KeyRawDown, key)
	if err != nil {
		return err
	}
	up, _ := keyEvent(input.KeyUp, key)
	return errors.Wrapf(s.run(ctx, down, chromedp.Sleep(hold), up), "failed to press %s", key)
}

// Teardown closes the tab and releases the browser reference
func (s *Session) Teardown() error {
	s.once.Do(func() {
		s.tabCancel()
		s.browser.Release()
	})
	return nil
}
