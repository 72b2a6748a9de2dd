package dino

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Transport is a live connection to one running game page
type Transport interface {
	// StartOrResume loads the game if needed. Calling it on a page that is
	// already loaded is a no-op.
	StartOrResume(context.Context) error
	// QueryState returns nil telemetry when the game state cannot be read right now
	QueryState(context.Context) (*RawTelemetry, error)
	// SendInput presses key for hold and releases it before returning
	SendInput(context.Context, InputKey, time.Duration) error
	// Teardown releases the page. Safe to call more than once.
	Teardown() error
}

// TransportFactory creates a fresh transport. It is called once at startup and
// again on every restart.
type TransportFactory func(context.Context) (Transport, error)

var errWorkerStopped = errors.New("transport worker stopped")

type workerResult struct {
	telemetry *RawTelemetry
	err       error
}

type workerRequest struct {
	ctx   context.Context
	run   func(context.Context) (*RawTelemetry, error)
	reply chan workerResult
}

// SerialTransport runs every call of the wrapped transport on a single worker
// goroutine, one at a time and in submission order. Callers block until the
// worker answers or the call timeout expires. A call that times out is left
// to finish on the worker; its reply is dropped.
type SerialTransport struct {
	inner   Transport
	timeout time.Duration

	requests chan *workerRequest
	quit     chan struct{}
	stopped  chan error
	once     sync.Once
	stopErr  error
}

var _ Transport = &SerialTransport{}

func NewSerialTransport(inner Transport, timeout time.Duration) *SerialTransport {
	s := &SerialTransport{
		inner:    inner,
		timeout:  timeout,
		requests: make(chan *workerRequest),
		quit:     make(chan struct{}),
		stopped:  make(chan error, 1),
	}
	go s.work()
	return s
}

func (s *SerialTransport) work() {
	for {
		select {
		case <-s.quit:
			s.stopped <- s.inner.Teardown()
			return
		case req := <-s.requests:
			t, err := req.run(req.ctx)
			req.reply <- workerResult{telemetry: t, err: err}
		}
	}
}

func (s *SerialTransport) call(ctx context.Context, op string, run func(context.Context) (*RawTelemetry, error)) (*RawTelemetry, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &workerRequest{
		ctx:   callCtx,
		run:   run,
		reply: make(chan workerResult, 1),
	}
	select {
	case s.requests <- req:
	case <-s.quit:
		return nil, errors.Wrap(errWorkerStopped, op)
	case <-callCtx.Done():
		return nil, errors.Wrapf(callCtx.Err(), "%s: waiting for worker", op)
	}

	select {
	case res := <-req.reply:
		if res.err != nil {
			return nil, errors.Wrap(res.err, op)
		}
		return res.telemetry, nil
	case <-callCtx.Done():
		return nil, errors.Wrapf(callCtx.Err(), "%s: waiting for reply", op)
	}
}

func (s *SerialTransport) StartOrResume(ctx context.Context) error {
	_, err := s.call(ctx, "start", func(c context.Context) (*RawTelemetry, error) {
		return nil, s.inner.StartOrResume(c)
	})
	return err
}

func (s *SerialTransport) QueryState(ctx context.Context) (*RawTelemetry, error) {
	return s.call(ctx, "query", s.inner.QueryState)
}

func (s *SerialTransport) SendInput(ctx context.Context, key InputKey, hold time.Duration) error {
	_, err := s.call(ctx, "input", func(c context.Context) (*RawTelemetry, error) {
		return nil, s.inner.SendInput(c, key, hold)
	})
	return err
}

// Teardown stops the worker and tears down the wrapped transport once the
// in-flight call, if any, has returned.
func (s *SerialTransport) Teardown() error {
	s.once.Do(func() {
		close(s.quit)
		select {
		case s.stopErr = <-s.stopped:
		case <-time.After(s.timeout):
			s.stopErr = errors.New("teardown: timed out waiting for worker")
		}
	})
	return s.stopErr
}
