package dino

import "time"

// Restart reasons passed to Observer.OnRestart
const (
	RestartStartup   = "startup"
	RestartPeriodic  = "periodic"
	RestartHandshake = "handshake"
	RestartStale     = "stale"
	RestartResume    = "resume"
)

// EpisodeSummary is emitted once per finished episode
type EpisodeSummary struct {
	SessionID      string    `json:"session_id"`
	Episode        int       `json:"episode"`
	Steps          int       `json:"steps"`
	Distance       float64   `json:"distance"`
	BestDistance   float64   `json:"best_distance"`
	TotalReward    float64   `json:"total_reward"`
	IllegalActions int       `json:"illegal_actions"`
	Crashed        bool      `json:"crashed"`
	Truncated      bool      `json:"truncated"`
	ForcedReset    bool      `json:"forced_reset"`
	EndedAt        time.Time `json:"ended_at"`
}

func (s EpisodeSummary) Outcome() string {
	switch {
	case s.ForcedReset:
		return "forced_reset"
	case s.Crashed:
		return "crashed"
	case s.Truncated:
		return "truncated"
	}
	return "unknown"
}

// Observer is notified of lifecycle events. Implementations must not block.
type Observer interface {
	OnRetry(attempt int)
	OnRestart(reason string)
	OnForcedReset()
	OnIllegalAction(action ActionCode, status GameStatus)
	OnEpisodeEnd(EpisodeSummary)
}

type NopObserver struct{}

func (NopObserver) OnRetry(int)                            {}
func (NopObserver) OnRestart(string)                       {}
func (NopObserver) OnForcedReset()                         {}
func (NopObserver) OnIllegalAction(ActionCode, GameStatus) {}
func (NopObserver) OnEpisodeEnd(EpisodeSummary)            {}

// MultiObserver forwards every event to each observer in order
type MultiObserver []Observer

var _ Observer = MultiObserver{}

func (m MultiObserver) OnRetry(attempt int) {
	for _, o := range m {
		o.OnRetry(attempt)
	}
}

func (m MultiObserver) OnRestart(reason string) {
	for _, o := range m {
		o.OnRestart(reason)
	}
}

func (m MultiObserver) OnForcedReset() {
	for _, o := range m {
		o.OnForcedReset()
	}
}

func (m MultiObserver) OnIllegalAction(action ActionCode, status GameStatus) {
	for _, o := range m {
		o.OnIllegalAction(action, status)
	}
}

func (m MultiObserver) OnEpisodeEnd(s EpisodeSummary) {
	for _, o := range m {
		o.OnEpisodeEnd(s)
	}
}
