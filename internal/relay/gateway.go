package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/mqtt"
)

// SourceController tags commands issued by the threshold controller.
const SourceController = "thresholdctl"

// Publisher is the subset of the MQTT client the gateway needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger defines the logging interface used by the Gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gateway sends switch commands and tracks channel state.
//
// Thread Safety:
//   - SetChannel and ChannelStates may be called concurrently with state
//     messages arriving on MQTT goroutines.
type Gateway struct {
	pub      Publisher
	protocol string
	qos      byte
	topics   mqtt.Topics
	logger   Logger
	now      func() time.Time

	mu     sync.RWMutex
	states map[int]ChannelState
}

// NewGateway creates a gateway publishing under protocol with qos.
func NewGateway(pub Publisher, protocol string, qos byte) *Gateway {
	return &Gateway{
		pub:      pub,
		protocol: protocol,
		qos:      qos,
		logger:   noopLogger{},
		now:      time.Now,
		states:   make(map[int]ChannelState),
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// Start subscribes to the state topics of every channel.
func (g *Gateway) Start() error {
	topic := g.topics.AllStates(g.protocol)
	if err := g.pub.Subscribe(topic, g.qos, g.handleState); err != nil {
		return fmt.Errorf("subscribing to relay state: %w", err)
	}
	g.logger.Info("relay gateway started", "protocol", g.protocol, "topic", topic)
	return nil
}

// SetChannel commands channel on or off. The commanded state is recorded
// only when the publish succeeds.
func (g *Gateway) SetChannel(ctx context.Context, channel int, on bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrActuation, err)
	}

	msg := CommandMessage{
		ID:        uuid.NewString(),
		Channel:   channel,
		On:        on,
		Source:    SourceController,
		Timestamp: g.now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrActuation, err)
	}

	topic := g.topics.Command(g.protocol, strconv.Itoa(channel))
	if err := g.pub.Publish(topic, payload, g.qos, false); err != nil {
		return fmt.Errorf("%w: channel %d: %w", ErrActuation, channel, err)
	}

	g.setState(channel, stateFor(on))
	g.logger.Info("relay command sent", "channel", channel, "on", on, "command_id", msg.ID)
	return nil
}

// ChannelStates returns a copy of every known channel state.
func (g *Gateway) ChannelStates() map[int]ChannelState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return maps.Clone(g.states)
}

// State returns the state of one channel.
func (g *Gateway) State(channel int) ChannelState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.states[channel]
}

func (g *Gateway) setState(channel int, state ChannelState) {
	g.mu.Lock()
	g.states[channel] = state
	g.mu.Unlock()
}

// handleState applies a state report. The topic address must agree with
// the payload channel.
func (g *Gateway) handleState(topic string, payload []byte) error {
	channel, on, err := parseStateMessage(payload)
	if err != nil {
		g.logger.Warn("ignoring relay state message", "topic", topic, "error", err)
		return err
	}

	if _, address, ok := mqtt.ParseAddress(topic); ok && address != strconv.Itoa(channel) {
		g.logger.Warn("relay state channel does not match topic", "topic", topic, "channel", channel)
		return fmt.Errorf("%w: channel %d on topic %s", ErrInvalidStateMessage, channel, topic)
	}

	g.setState(channel, stateFor(on))
	g.logger.Debug("relay state updated", "channel", channel, "on", on)
	return nil
}
