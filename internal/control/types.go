package control

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Direction says which side of the threshold counts as exceeded.
type Direction int

const (
	// Overshoot rules fire when the value rises above the threshold.
	Overshoot Direction = 1
	// Undershoot rules fire when the value falls below the threshold.
	Undershoot Direction = -1
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == Overshoot || d == Undershoot
}

func (d Direction) String() string {
	switch d {
	case Overshoot:
		return "overshoot"
	case Undershoot:
		return "undershoot"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Command is the state a relay channel is driven to.
type Command int

const (
	CommandOff Command = 0
	CommandOn  Command = 1
)

// Valid reports whether c is CommandOn or CommandOff.
func (c Command) Valid() bool {
	return c == CommandOn || c == CommandOff
}

// On reports whether the command drives the channel on.
func (c Command) On() bool {
	return c == CommandOn
}

// Inverse returns the opposite command.
func (c Command) Inverse() Command {
	if c == CommandOn {
		return CommandOff
	}
	return CommandOn
}

func (c Command) String() string {
	if c == CommandOn {
		return "on"
	}
	return "off"
}

// expiryFactor scales the required duration into the trigger expiry lifetime.
const expiryFactor = 1.2

// Definition is a single threshold control rule.
type Definition struct {
	ID                string
	Devices           []int64
	SensorTypes       []int
	Threshold         float64
	Hysteresis        float64
	Direction         Direction
	DurationMillis    int64
	FuzzMillis        float64
	ControlFunc       Command
	Channel           int
	BackToNormalFunc  Command
	AllowBackToNormal bool
}

// Duration returns the required sustained-exceed time.
func (d Definition) Duration() time.Duration {
	return time.Duration(d.DurationMillis) * time.Millisecond
}

// ExpiryLifetime returns 1.2x the required duration.
func (d Definition) ExpiryLifetime() time.Duration {
	return time.Duration(float64(d.DurationMillis)*expiryFactor) * time.Millisecond
}

// AppliesTo reports whether the rule watches this device and sensor type.
func (d Definition) AppliesTo(device int64, sensorType int) bool {
	return slices.Contains(d.Devices, device) && slices.Contains(d.SensorTypes, sensorType)
}

// Clone returns a deep copy.
func (d Definition) Clone() Definition {
	c := d
	c.Devices = slices.Clone(d.Devices)
	c.SensorTypes = slices.Clone(d.SensorTypes)
	return c
}

// ObservableSet maps a device to the sensor types some rule references.
type ObservableSet map[int64]map[int]struct{}

// DeriveObservables builds the observable set for defs.
// An empty list yields an empty set.
func DeriveObservables(defs []Definition) ObservableSet {
	set := make(ObservableSet)
	for _, def := range defs {
		for _, device := range def.Devices {
			types, ok := set[device]
			if !ok {
				types = make(map[int]struct{})
				set[device] = types
			}
			for _, st := range def.SensorTypes {
				types[st] = struct{}{}
			}
		}
	}
	return set
}

// Contains reports whether (device, sensorType) is observed.
func (o ObservableSet) Contains(device int64, sensorType int) bool {
	types, ok := o[device]
	if !ok {
		return false
	}
	_, ok = types[sensorType]
	return ok
}

// Devices returns the observed devices in ascending order.
func (o ObservableSet) Devices() []int64 {
	devices := make([]int64, 0, len(o))
	for device := range o {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	return devices
}

// Pairs returns the number of (device, sensor type) pairs in the set.
func (o ObservableSet) Pairs() int {
	n := 0
	for _, types := range o {
		n += len(types)
	}
	return n
}

func (o ObservableSet) clone() ObservableSet {
	c := make(ObservableSet, len(o))
	for device, types := range o {
		ct := make(map[int]struct{}, len(types))
		for st := range types {
			ct[st] = struct{}{}
		}
		c[device] = ct
	}
	return c
}
