package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/gray-logic-threshold/internal/control"
)

// State is the lifecycle stage of a trigger.
type State int

const (
	StateIdle State = iota
	StatePending
	StateActive
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	default:
		return "idle"
	}
}

// TriggerKey identifies one trigger.
type TriggerKey struct {
	Device     int64
	SensorType int
	RuleID     string
}

func (k TriggerKey) String() string {
	return fmt.Sprintf("%d/%d/%s", k.Device, k.SensorType, k.RuleID)
}

// Trigger tracks one threshold episode. Timestamps in milliseconds are
// reading times; Expiry is wall clock.
type Trigger struct {
	State         State
	FirstExceeded int64
	Expiry        time.Time
	LastValue     float64
	ActivatedAt   int64

	// rule is the definition the trigger was created under.
	rule control.Definition
}

// boundTo reports whether def still drives this trigger the same way it
// did at creation.
func (t *Trigger) boundTo(def control.Definition, key TriggerKey) bool {
	return def.AppliesTo(key.Device, key.SensorType) &&
		def.Direction == t.rule.Direction &&
		def.Channel == t.rule.Channel &&
		def.ControlFunc == t.rule.ControlFunc
}

// Exceeded reports whether value is past the rule's threshold.
func Exceeded(def control.Definition, value float64) (bool, error) {
	switch def.Direction {
	case control.Overshoot:
		return value > def.Threshold, nil
	case control.Undershoot:
		return value < def.Threshold, nil
	default:
		return false, fmt.Errorf("%w: rule %s has %d", ErrInvalidDirection, def.ID, def.Direction)
	}
}

// HysteresisCleared reports whether value has recovered past the
// hysteresis margin.
func HysteresisCleared(def control.Definition, value float64) (bool, error) {
	switch def.Direction {
	case control.Overshoot:
		return value < def.Threshold-def.Hysteresis, nil
	case control.Undershoot:
		return value > def.Threshold+def.Hysteresis, nil
	default:
		return false, fmt.Errorf("%w: rule %s has %d", ErrInvalidDirection, def.ID, def.Direction)
	}
}

// DurationMet reports whether a trigger first exceeded at first has been
// sustained long enough at now. A shortfall smaller than the rule's fuzz
// counts as met.
func DurationMet(def control.Definition, first, now int64) bool {
	slack := float64(now-first) - float64(def.DurationMillis)
	if slack >= 0 {
		return true
	}
	return math.Abs(slack) < def.FuzzMillis
}
