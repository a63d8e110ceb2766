// Package redis connects to the sensor reading cache.
//
// Readings are stored one hash per device: the key is the decimal device
// id, each field is a sensor type and each value a serialized reading.
//
//	client, err := redis.Connect(cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	fields, err := client.FetchAll(ctx, "303721692")
package redis
