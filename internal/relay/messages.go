package relay

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChannelState is the last known state of an actuator channel.
type ChannelState int

const (
	StateUnknown ChannelState = iota
	StateOff
	StateOn
)

// Value returns the telemetry encoding: 1 on, 0 off, -1 unknown.
func (s ChannelState) Value() int {
	switch s {
	case StateOn:
		return 1
	case StateOff:
		return 0
	default:
		return -1
	}
}

func (s ChannelState) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}

func stateFor(on bool) ChannelState {
	if on {
		return StateOn
	}
	return StateOff
}

// CommandMessage is published to a channel's command topic.
type CommandMessage struct {
	ID        string    `json:"id"`
	Channel   int       `json:"channel"`
	On        bool      `json:"on"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// StateMessage is received on a channel's state topic.
type StateMessage struct {
	Channel *int  `json:"channel"`
	On      *bool `json:"on"`
}

// parseStateMessage decodes a state payload. Both fields are required.
func parseStateMessage(payload []byte) (int, bool, error) {
	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrInvalidStateMessage, err)
	}
	if msg.Channel == nil || msg.On == nil {
		return 0, false, fmt.Errorf("%w: channel and on are required", ErrInvalidStateMessage)
	}
	return *msg.Channel, *msg.On, nil
}
