package dino

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ActionCode is a discrete gameplay action
type ActionCode int

const (
	Run ActionCode = iota
	Jump
	Duck
	Fall
	Stand
)

var actionNames = []string{"run", "jump", "duck", "fall", "stand"}

func (a ActionCode) String() string {
	if int(a) >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Hash lets ActionCode index Q tables
func (a ActionCode) Hash() string {
	return a.String()
}

func ParseAction(s string) (ActionCode, error) {
	for i, n := range actionNames {
		if strings.EqualFold(n, s) {
			return ActionCode(i), nil
		}
	}
	return Run, fmt.Errorf("unknown action %q", s)
}

// ActionSpace is the set of actions an environment accepts
type ActionSpace []ActionCode

const (
	ActionSpaceBasic    = "basic"
	ActionSpaceExtended = "extended"
)

func NewActionSpace(variant string) (ActionSpace, error) {
	switch variant {
	case "", ActionSpaceBasic:
		return ActionSpace{Run, Jump}, nil
	case ActionSpaceExtended:
		return ActionSpace{Run, Jump, Duck, Fall, Stand}, nil
	}
	return nil, fmt.Errorf("unknown action space %q", variant)
}

func (s ActionSpace) Contains(a ActionCode) bool {
	for _, c := range s {
		if c == a {
			return true
		}
	}
	return false
}

// InputKey identifies a key that can be injected into the game page
type InputKey string

const (
	KeySpace     InputKey = "Space"
	KeyArrowUp   InputKey = "ArrowUp"
	KeyArrowDown InputKey = "ArrowDown"
)

// KeyCode is the legacy DOM keyCode the game listens for
func (k InputKey) KeyCode() int {
	switch k {
	case KeySpace:
		return 32
	case KeyArrowUp:
		return 38
	case KeyArrowDown:
		return 40
	}
	return 0
}

// legality lists the actions allowed in each status
var legality = map[GameStatus][]ActionCode{
	Waiting: {Jump},
	Running: {Run, Jump, Duck},
	Jumping: {Run, Fall},
	Ducking: {Run, Duck, Stand},
	Crashed: {},
}

// Legal reports whether action may be taken while the character is in status
func Legal(action ActionCode, status GameStatus) bool {
	for _, a := range legality[status] {
		if a == action {
			return true
		}
	}
	return false
}

// inputFor returns the key pulse for an action, or false for no-op actions
func inputFor(action ActionCode) (InputKey, bool) {
	switch action {
	case Jump:
		return KeyArrowUp, true
	case Duck, Fall:
		return KeyArrowDown, true
	}
	return "", false
}

// DispatchResult describes what the dispatcher did with an action
type DispatchResult struct {
	Performed bool
	Legal     bool
	// Sent is the action whose input reached the transport, nil for no-ops
	Sent *ActionCode
}

// Dispatcher turns actions into at most one input pulse each
type Dispatcher struct {
	space ActionSpace
	hold  time.Duration
}

func NewDispatcher(space ActionSpace, hold time.Duration) *Dispatcher {
	return &Dispatcher{space: space, hold: hold}
}

// Dispatch sends the input for action if it is legal in status.
// Illegal actions send nothing and come back with Performed false.
func (d *Dispatcher) Dispatch(ctx context.Context, t Transport, action ActionCode, status GameStatus) (DispatchResult, error) {
	if !d.space.Contains(action) || !Legal(action, status) {
		return DispatchResult{}, nil
	}
	key, ok := inputFor(action)
	if !ok {
		return DispatchResult{Performed: true, Legal: true}, nil
	}
	if err := t.SendInput(ctx, key, d.hold); err != nil {
		return DispatchResult{Legal: true}, err
	}
	sent := action
	return DispatchResult{Performed: true, Legal: true, Sent: &sent}, nil
}
