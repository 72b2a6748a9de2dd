package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeu5/dino-rl/dino"
)

const namespace = "dino"

// Collector exports session lifecycle events as prometheus metrics
type Collector struct {
	StateRetries    prometheus.Counter
	Restarts        *prometheus.CounterVec
	ForcedResets    prometheus.Counter
	IllegalActions  *prometheus.CounterVec
	Episodes        *prometheus.CounterVec
	BestDistance    prometheus.Gauge
	EpisodeDistance prometheus.Histogram

	lock *sync.Mutex
	best float64
}

var _ dino.Observer = &Collector{}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		StateRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_retries_total",
			Help:      "State queries retried after the game state was unavailable.",
		}),
		Restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Session restarts by reason.",
		}, []string{"reason"}),
		ForcedResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_resets_total",
			Help:      "Episodes cut short by a stale session.",
		}),
		IllegalActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "illegal_actions_total",
			Help:      "Actions rejected for the character status.",
		}, []string{"action", "status"}),
		Episodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Finished episodes by outcome.",
		}, []string{"outcome"}),
		BestDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_distance",
			Help:      "Best distance reached so far.",
		}),
		EpisodeDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_distance",
			Help:      "Distance reached per episode.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}),
		lock: new(sync.Mutex),
	}
	for _, m := range []prometheus.Collector{
		c.StateRetries, c.Restarts, c.ForcedResets, c.IllegalActions,
		c.Episodes, c.BestDistance, c.EpisodeDistance,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OnRetry(int) {
	c.StateRetries.Inc()
}

func (c *Collector) OnRestart(reason string) {
	c.Restarts.WithLabelValues(reason).Inc()
}

func (c *Collector) OnForcedReset() {
	c.ForcedResets.Inc()
}

func (c *Collector) OnIllegalAction(action dino.ActionCode, status dino.GameStatus) {
	c.IllegalActions.WithLabelValues(action.String(), status.String()).Inc()
}

func (c *Collector) OnEpisodeEnd(s dino.EpisodeSummary) {
	c.Episodes.WithLabelValues(s.Outcome()).Inc()
	c.EpisodeDistance.Observe(s.Distance)

	c.lock.Lock()
	defer c.lock.Unlock()
	best := s.BestDistance
	if s.Distance > best {
		best = s.Distance
	}
	if best > c.best {
		c.best = best
		c.BestDistance.Set(best)
	}
}
