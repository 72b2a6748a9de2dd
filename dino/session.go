package dino

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session owns the transport and hides its flakiness behind bounded retries,
// handshakes and restarts. A Session is not safe for concurrent use.
type Session struct {
	id        string
	config    *Config
	factory   TransportFactory
	transport Transport

	dispatcher *Dispatcher
	logger     log.Logger
	observer   Observer

	episodesSinceRestart int
	restarts             int
	closed               bool

	sleep func(context.Context, time.Duration) error
}

func NewSession(config *Config, factory TransportFactory) (*Session, error) {
	space, err := NewActionSpace(config.ActionSpace)
	if err != nil {
		return nil, err
	}
	return &Session{
		config:     config,
		factory:    factory,
		dispatcher: NewDispatcher(space, config.HoldDuration),
		logger:     log.With(config.Logger, "component", "session"),
		observer:   config.Observer,
		sleep:      sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ID identifies the current transport generation
func (s *Session) ID() string {
	return s.id
}

// Restarts counts every restart and in-place resume so far
func (s *Session) Restarts() int {
	return s.restarts
}

// query reads and normalizes the state once. Transport errors are treated
// like unavailable state.
func (s *Session) query(ctx context.Context) *Observation {
	if s.transport == nil {
		return nil
	}
	raw, err := s.transport.QueryState(ctx)
	if err != nil {
		level.Debug(s.logger).Log("msg", "query failed", "err", err)
		return nil
	}
	obs, malformed := Normalize(raw, s.config.MaxObstacles)
	for _, field := range malformed {
		level.Warn(s.logger).Log("msg", "malformed telemetry, using default", "kind", KindMalformedTelemetry, "field", field)
	}
	return obs
}

// EnsureReady polls until the transport reports a live game instance
func (s *Session) EnsureReady(ctx context.Context) error {
	for i := 0; i < s.config.ReadyAttempts; i++ {
		if obs := s.query(ctx); obs != nil {
			return nil
		}
		if err := s.sleep(ctx, s.config.ReadyInterval); err != nil {
			return err
		}
	}
	return newError(KindTransientStateUnavailable, "ensure ready",
		errors.Errorf("no game instance after %d attempts", s.config.ReadyAttempts))
}

// Handshake loads the game, presses the start key and waits for the character
// to be running. A game that stays in Waiting is accepted as live; one that
// stays Crashed or unreadable is not.
func (s *Session) Handshake(ctx context.Context) error {
	if s.transport == nil {
		return errors.New("handshake: no transport")
	}
	if err := s.transport.StartOrResume(ctx); err != nil {
		return errors.Wrap(err, "handshake: start")
	}
	if err := s.EnsureReady(ctx); err != nil {
		return errors.Wrap(err, "handshake")
	}
	if err := s.transport.SendInput(ctx, KeySpace, s.config.HoldDuration); err != nil {
		return errors.Wrap(err, "handshake: start key")
	}

	var last *Observation
	for i := 0; i < s.config.ReadyAttempts; i++ {
		obs := s.query(ctx)
		if obs != nil {
			last = obs
			if obs.Status.Alive() {
				return nil
			}
			if obs.Status == Crashed {
				if err := s.transport.SendInput(ctx, KeySpace, s.config.HoldDuration); err != nil {
					return errors.Wrap(err, "handshake: restart key")
				}
			}
		}
		if err := s.sleep(ctx, s.config.ReadyInterval); err != nil {
			return err
		}
	}
	if last != nil && last.Status == Waiting {
		level.Debug(s.logger).Log("msg", "game did not start running, continuing from waiting")
		return nil
	}
	if last == nil {
		return errors.New("handshake: state unavailable")
	}
	return errors.Errorf("handshake: game stuck in %s", last.Status)
}

func (s *Session) teardown() {
	if s.transport == nil {
		return
	}
	if err := s.transport.Teardown(); err != nil {
		level.Warn(s.logger).Log("msg", "teardown failed", "session", s.id, "err", err)
	}
	s.transport = nil
}

// Restart replaces the transport with a fresh one and runs the handshake on
// it. Failing every start attempt returns a TransportUnavailable error.
func (s *Session) Restart(ctx context.Context, reason string) error {
	if s.closed {
		return ErrClosed
	}
	s.teardown()
	s.restarts++
	s.episodesSinceRestart = 0
	s.observer.OnRestart(reason)
	level.Info(s.logger).Log("msg", "restarting session", "reason", reason, "restarts", s.restarts)

	var lastErr error
	for attempt := 1; attempt <= s.config.StartAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, s.config.RetryDelay); err != nil {
				return newError(KindTransportUnavailable, "restart", err)
			}
		}
		t, err := s.factory(ctx)
		if err != nil {
			lastErr = errors.Wrap(err, "create transport")
			level.Warn(s.logger).Log("msg", "failed to create transport", "attempt", attempt, "err", err)
			continue
		}
		s.transport = NewSerialTransport(t, s.config.CallTimeout)
		s.id = uuid.NewString()
		if err := s.Handshake(ctx); err != nil {
			lastErr = err
			level.Warn(s.logger).Log("msg", "handshake failed", "attempt", attempt, "err", err)
			s.teardown()
			continue
		}
		return nil
	}
	return newError(KindTransportUnavailable, "restart", lastErr)
}

// BeginEpisode prepares the session for a new episode. The transport is
// created on first use and recreated every RestartEveryNEpisodes episodes,
// unless that is negative.
func (s *Session) BeginEpisode(ctx context.Context) error {
	switch {
	case s.closed:
		return ErrClosed
	case s.transport == nil:
		return s.Restart(ctx, RestartStartup)
	case s.config.RestartEveryNEpisodes > 0 && s.episodesSinceRestart >= s.config.RestartEveryNEpisodes:
		return s.Restart(ctx, RestartPeriodic)
	}
	if err := s.Handshake(ctx); err != nil {
		level.Warn(s.logger).Log("msg", "handshake on live session failed", "err", err)
		return s.Restart(ctx, RestartHandshake)
	}
	return nil
}

func (s *Session) episodeStarted() {
	s.episodesSinceRestart++
}

// resume restarts the game on the current transport without replacing it
func (s *Session) resume(ctx context.Context) error {
	s.restarts++
	s.observer.OnRestart(RestartResume)
	level.Info(s.logger).Log("msg", "state unavailable after retries, resuming game", "session", s.id)
	if s.transport == nil {
		return errors.New("resume: no transport")
	}
	if err := s.transport.StartOrResume(ctx); err != nil {
		return errors.Wrap(err, "resume")
	}
	if err := s.transport.SendInput(ctx, KeySpace, s.config.HoldDuration); err != nil {
		return errors.Wrap(err, "resume: start key")
	}
	return s.sleep(ctx, s.config.RetryDelay)
}

// GetStateWithRetry reads the state, retrying up to RetryBudget times. When
// every attempt fails the game is resumed once and read one last time. If
// that fails too the session is stale and ErrSessionStale is returned.
func (s *Session) GetStateWithRetry(ctx context.Context) (*Observation, error) {
	for attempt := 0; attempt <= s.config.RetryBudget; attempt++ {
		if attempt > 0 {
			s.observer.OnRetry(attempt)
			if err := s.sleep(ctx, s.config.RetryDelay); err != nil {
				return nil, err
			}
		}
		if obs := s.query(ctx); obs != nil {
			return obs, nil
		}
	}
	if err := s.resume(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(KindSessionStale, "get state", err)
	}
	if obs := s.query(ctx); obs != nil {
		return obs, nil
	}
	return nil, newError(KindSessionStale, "get state",
		errors.Errorf("state unavailable after %d retries and a resume", s.config.RetryBudget))
}

// Dispatch performs action against the current transport. A failed send is
// logged and reported as not performed.
func (s *Session) Dispatch(ctx context.Context, action ActionCode, status GameStatus) DispatchResult {
	if s.transport == nil {
		return DispatchResult{Legal: Legal(action, status)}
	}
	res, err := s.dispatcher.Dispatch(ctx, s.transport, action, status)
	if err != nil {
		level.Warn(s.logger).Log("msg", "failed to send input", "action", action, "err", err)
	}
	return res
}

// Close tears down the transport. Later calls do nothing.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.transport == nil {
		return nil
	}
	err := s.transport.Teardown()
	s.transport = nil
	return err
}
