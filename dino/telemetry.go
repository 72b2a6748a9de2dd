package dino

// RawTelemetry is one unnormalized snapshot read from the transport.
// Numeric fields are left loosely typed since pages report numbers,
// numeric strings, or nothing at all depending on game state.
type RawTelemetry struct {
	Status       string        `json:"status"`
	Distance     interface{}   `json:"distance"`
	Speed        interface{}   `json:"speed"`
	JumpVelocity interface{}   `json:"jumpVelocity"`
	YPos         interface{}   `json:"yPos"`
	Obstacles    []RawObstacle `json:"obstacles"`
}

type RawObstacle struct {
	X      interface{} `json:"x"`
	Y      interface{} `json:"y"`
	Width  interface{} `json:"width"`
	Height interface{} `json:"height"`
}
