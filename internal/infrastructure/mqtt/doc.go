// Package mqtt provides the broker connection used by the relay gateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and a Last Will
//   - Publishing relay commands with QoS acknowledgement
//   - Subscriptions to relay state topics, restored after reconnect
//
// Topic scheme:
//
//	graylogic/command/{protocol}/{address}   controller -> gateway
//	graylogic/state/{protocol}/{address}     gateway -> controller
//	graylogic/system/thresholdctl/status     retained online/offline
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package mqtt
