package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/dino-rl/dino"
)

func TestCollectorCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.OnRetry(1)
	c.OnRetry(2)
	c.OnRestart(dino.RestartPeriodic)
	c.OnRestart(dino.RestartStale)
	c.OnRestart(dino.RestartStale)
	c.OnForcedReset()
	c.OnIllegalAction(dino.Duck, dino.Jumping)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.StateRetries))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Restarts.WithLabelValues(dino.RestartStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Restarts.WithLabelValues(dino.RestartPeriodic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ForcedResets))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IllegalActions.WithLabelValues("duck", "JUMPING")))
}

func TestCollectorBestDistanceNeverDecreases(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.OnEpisodeEnd(dino.EpisodeSummary{Distance: 120, BestDistance: 120, Crashed: true})
	c.OnEpisodeEnd(dino.EpisodeSummary{Distance: 40, BestDistance: 40, Truncated: true})

	assert.Equal(t, 120.0, testutil.ToFloat64(c.BestDistance))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Episodes.WithLabelValues("crashed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Episodes.WithLabelValues("truncated")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.EpisodeDistance))
}

func TestCollectorDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	assert.Error(t, err)
}
