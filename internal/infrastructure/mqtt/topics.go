package mqtt

import (
	"fmt"
	"strings"
)

// Topics follow the flat scheme graylogic/{category}/{protocol}/{address}.
const (
	TopicPrefix = "graylogic"

	// TopicPrefixSystem is the base for controller status topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the topics the controller uses.
//
//	topics := mqtt.Topics{}
//	topics.Command("relay", "3") // graylogic/command/relay/3
type Topics struct{}

// Command returns the topic a gateway listens on for commands.
func (Topics) Command(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocol, address)
}

// State returns the topic a gateway reports confirmed state on.
func (Topics) State(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocol, address)
}

// AllStates returns a wildcard matching every state topic of a protocol.
func (Topics) AllStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, protocol)
}

// ControllerStatus returns the retained online/offline status topic.
func (Topics) ControllerStatus() string {
	return TopicPrefixSystem + "/thresholdctl/status"
}

// ParseAddress extracts the address segment from a
// graylogic/{category}/{protocol}/{address} topic.
func ParseAddress(topic string) (protocol, address string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
