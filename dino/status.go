package dino

import "strings"

// GameStatus is the character state reported by the game
type GameStatus int

const (
	Waiting GameStatus = iota
	Running
	Jumping
	Ducking
	Crashed
)

var statusNames = map[GameStatus]string{
	Waiting: "WAITING",
	Running: "RUNNING",
	Jumping: "JUMPING",
	Ducking: "DUCKING",
	Crashed: "CRASHED",
}

// statusTable maps the transport status strings to GameStatus.
// Lookups that miss fall back to Waiting.
var statusTable = map[string]GameStatus{
	"WAITING": Waiting,
	"RUNNING": Running,
	"JUMPING": Jumping,
	"DUCKING": Ducking,
	"CRASHED": Crashed,
}

func (s GameStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseStatus maps a raw status string. The second return is false when the
// string is not recognized, in which case Waiting is returned.
func ParseStatus(raw string) (GameStatus, bool) {
	s, ok := statusTable[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return Waiting, false
	}
	return s, true
}

// Alive is true for statuses in which the game accepts gameplay input
func (s GameStatus) Alive() bool {
	return s == Running || s == Jumping || s == Ducking
}
