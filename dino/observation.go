package dino

import (
	"fmt"
	"math"
)

// scaling applied by Vector, chosen so that typical values land near [0, 1]
const (
	distanceScale     = 1000.0
	speedScale        = 10.0
	jumpVelocityScale = 50.0
	yPositionScale    = 100.0
	obstacleXScale    = 600.0
	obstacleYScale    = 150.0
	obstacleDimScale  = 100.0
)

// ObstacleFeature is one obstacle relative to the character.
// X <= 0 means the obstacle was passed or the slot is padding.
type ObstacleFeature struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (o ObstacleFeature) IsZero() bool {
	return o.X == 0 && o.Y == 0 && o.Width == 0 && o.Height == 0
}

// Observation is the fixed shape state handed to policies
type Observation struct {
	Status       GameStatus        `json:"status"`
	Distance     float64           `json:"distance"`
	Speed        float64           `json:"speed"`
	JumpVelocity float64           `json:"jump_velocity"`
	YPosition    float64           `json:"y_position"`
	Obstacles    []ObstacleFeature `json:"obstacles"`
}

func (o *Observation) Copy() *Observation {
	if o == nil {
		return nil
	}
	n := *o
	n.Obstacles = make([]ObstacleFeature, len(o.Obstacles))
	copy(n.Obstacles, o.Obstacles)
	return &n
}

// Nearest returns the first obstacle ahead of the character
func (o *Observation) Nearest() (ObstacleFeature, bool) {
	for _, obs := range o.Obstacles {
		if obs.X > 0 && !obs.IsZero() {
			return obs, true
		}
	}
	return ObstacleFeature{}, false
}

// Vector flattens the observation into a scaled feature vector of length
// VectorLen(len(o.Obstacles))
func (o *Observation) Vector() []float64 {
	out := make([]float64, 0, VectorLen(len(o.Obstacles)))
	out = append(out,
		float64(o.Status),
		o.Distance/distanceScale,
		o.Speed/speedScale,
		o.JumpVelocity/jumpVelocityScale,
		o.YPosition/yPositionScale,
	)
	for _, obs := range o.Obstacles {
		out = append(out, obs.X/obstacleXScale, obs.Y/obstacleYScale, obs.Width/obstacleDimScale, obs.Height/obstacleDimScale)
	}
	return out
}

func VectorLen(maxObstacles int) int {
	return 5 + 4*maxObstacles
}

// Hash buckets the observation for tabular policies. Distance is left out
// so that states repeat across an episode.
func (o *Observation) Hash() string {
	gap := -1
	tall := false
	if n, ok := o.Nearest(); ok {
		gap = int(math.Min(n.X, 600) / 25)
		tall = n.Height > 40
	}
	return fmt.Sprintf("%d_%d_%d_%d_%t", o.Status, int(o.Speed), int(o.YPosition/20), gap, tall)
}

func (o *Observation) String() string {
	return fmt.Sprintf("status=%s distance=%.1f speed=%.2f jv=%.2f y=%.1f obstacles=%v",
		o.Status, o.Distance, o.Speed, o.JumpVelocity, o.YPosition, o.Obstacles)
}
