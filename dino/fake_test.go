package dino

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeTransport returns queued telemetry in order, then repeats fallback.
// A nil entry in the queue means the state is unavailable for that poll.
type fakeTransport struct {
	mu        sync.Mutex
	queue     []*RawTelemetry
	fallback  *RawTelemetry
	inputs    []InputKey
	starts    int
	queries   int
	teardowns int
	startErr  error
	block     chan struct{}
}

func newFakeTransport(fallback *RawTelemetry) *fakeTransport {
	return &fakeTransport{fallback: fallback}
}

func (f *fakeTransport) push(states ...*RawTelemetry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, states...)
}

func (f *fakeTransport) setFallback(t *RawTelemetry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = t
}

func (f *fakeTransport) StartOrResume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeTransport) QueryState(ctx context.Context) (*RawTelemetry, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if len(f.queue) > 0 {
		t := f.queue[0]
		f.queue = f.queue[1:]
		return t, nil
	}
	return f.fallback, nil
}

func (f *fakeTransport) SendInput(_ context.Context, key InputKey, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, key)
	return nil
}

func (f *fakeTransport) Teardown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	return nil
}

func (f *fakeTransport) sentInputs() []InputKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]InputKey, len(f.inputs))
	copy(out, f.inputs)
	return out
}

// fakeFactory hands out a new fakeTransport per call
type fakeFactory struct {
	mu        sync.Mutex
	created   []*fakeTransport
	fallback  *RawTelemetry
	err       error
	configure func(*fakeTransport)
}

func (f *fakeFactory) factory() TransportFactory {
	return func(context.Context) (Transport, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.err != nil {
			return nil, f.err
		}
		t := newFakeTransport(f.fallback)
		if f.configure != nil {
			f.configure(t)
		}
		f.created = append(f.created, t)
		return t, nil
	}
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var errNoBrowser = errors.New("no browser")

type countingObserver struct {
	retries      int
	restarts     map[string]int
	forcedResets int
	illegal      int
	episodes     []EpisodeSummary
}

func newCountingObserver() *countingObserver {
	return &countingObserver{restarts: make(map[string]int)}
}

func (c *countingObserver) OnRetry(int)                            { c.retries++ }
func (c *countingObserver) OnRestart(reason string)                { c.restarts[reason]++ }
func (c *countingObserver) OnForcedReset()                         { c.forcedResets++ }
func (c *countingObserver) OnIllegalAction(ActionCode, GameStatus) { c.illegal++ }
func (c *countingObserver) OnEpisodeEnd(s EpisodeSummary)          { c.episodes = append(c.episodes, s) }

func (c *countingObserver) totalRestarts() int {
	n := 0
	for _, v := range c.restarts {
		n += v
	}
	return n
}

func noSleep(context.Context, time.Duration) error { return nil }

func telemetry(status string, distance interface{}, obstacles ...RawObstacle) *RawTelemetry {
	return &RawTelemetry{
		Status:       status,
		Distance:     distance,
		Speed:        6.0,
		JumpVelocity: 0.0,
		YPos:         93.0,
		Obstacles:    obstacles,
	}
}

func running(distance float64) *RawTelemetry {
	return telemetry("RUNNING", distance)
}
