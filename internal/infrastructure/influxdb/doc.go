// Package influxdb provides the InfluxDB v2 connection used by the
// telemetry reporter to store actuator channel states.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry goes elsewhere
//	}
//	defer client.Close()
//
//	err = client.WritePoints(ctx, []influxdb.Point{...})
package influxdb
