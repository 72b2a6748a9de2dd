package recorder

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/dino-rl/dino"
	"github.com/zeu5/dino-rl/util"
)

// Recorder persists episode summaries
type Recorder interface {
	Record(context.Context, dino.EpisodeSummary) error
	Close() error
}

// FileRecorder appends summaries to a JSON lines file
type FileRecorder struct {
	Path string
}

var _ Recorder = &FileRecorder{}

func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{Path: path}
}

func (f *FileRecorder) Record(_ context.Context, s dino.EpisodeSummary) error {
	return util.AppendJSONLine(f.Path, s)
}

func (f *FileRecorder) Close() error {
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, dino.EpisodeSummary) error { return nil }
func (nopRecorder) Close() error                                      { return nil }

// Nop discards every summary
func Nop() Recorder {
	return nopRecorder{}
}

// observer records each finished episode as it is reported
type observer struct {
	dino.NopObserver
	recorder Recorder
	timeout  time.Duration
	logger   log.Logger
}

// Observer adapts a recorder to the environment's observer hook. Failed
// writes are logged and dropped.
func Observer(r Recorder, timeout time.Duration, logger log.Logger) dino.Observer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &observer{
		recorder: r,
		timeout:  timeout,
		logger:   log.With(logger, "component", "recorder"),
	}
}

func (o *observer) OnEpisodeEnd(s dino.EpisodeSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.recorder.Record(ctx, s); err != nil {
		level.Warn(o.logger).Log("msg", "failed to record episode", "episode", s.Episode, "err", err)
	}
}
