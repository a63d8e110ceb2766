// Package relay drives actuator channels over MQTT.
//
// The Gateway publishes switch commands to
// graylogic/command/{protocol}/{channel} and tracks channel state. A
// channel's state is whatever was last commanded or last reported on
// graylogic/state/{protocol}/{channel}, whichever came later. Channels
// nothing has touched yet are Unknown.
package relay
