package dino

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalize converts raw telemetry into an Observation with exactly
// maxObstacles obstacle slots. Obstacles keep the transport's order; extra
// entries are dropped and missing ones are zero padded.
//
// The second return names the fields that could not be parsed and were
// replaced by 0. Normalize does not log; reporting is up to the caller.
// A nil raw value yields a nil Observation.
func Normalize(raw *RawTelemetry, maxObstacles int) (*Observation, []string) {
	if raw == nil {
		return nil, nil
	}
	if maxObstacles < 0 {
		maxObstacles = 0
	}
	p := &fieldParser{}

	status, ok := ParseStatus(raw.Status)
	if !ok && raw.Status != "" {
		p.malformed = append(p.malformed, "status")
	}

	obs := &Observation{
		Status:       status,
		Distance:     nonNegative(p.float("distance", raw.Distance)),
		Speed:        nonNegative(p.float("speed", raw.Speed)),
		JumpVelocity: p.float("jumpVelocity", raw.JumpVelocity),
		YPosition:    nonNegative(p.float("yPos", raw.YPos)),
		Obstacles:    make([]ObstacleFeature, maxObstacles),
	}
	for i := 0; i < maxObstacles && i < len(raw.Obstacles); i++ {
		r := raw.Obstacles[i]
		obs.Obstacles[i] = ObstacleFeature{
			X:      p.float("obstacles.x", r.X),
			Y:      p.float("obstacles.y", r.Y),
			Width:  p.float("obstacles.width", r.Width),
			Height: p.float("obstacles.height", r.Height),
		}
	}
	return obs, p.malformed
}

type fieldParser struct {
	malformed []string
}

func (p *fieldParser) float(name string, v interface{}) float64 {
	f, ok := parseFloat(v)
	if !ok {
		p.malformed = append(p.malformed, name)
		return 0
	}
	return f
}

// parseFloat treats absent values and empty strings as 0. The boolean is
// false only for values that are present but not a finite number.
func parseFloat(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
