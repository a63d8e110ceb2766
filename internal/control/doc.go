// Package control loads threshold control definitions and derives the set
// of (device, sensor type) pairs the ingestion layer must watch.
//
// A definition names the devices and sensor types it watches, a threshold
// with a direction (overshoot or undershoot), a hysteresis margin, how long
// the threshold must stay exceeded before acting, and which relay channel
// to drive to which state on activation and on return to normal.
//
// Definitions are read from a JSON or YAML list:
//
//	[
//	  {
//	    "uuid": "941a5640-82ac-11ee-b962-0242ac120002",
//	    "macs": [303721692],
//	    "sensor_types": [248],
//	    "threshold_value": 23.0,
//	    "hysteresis": 0.5,
//	    "threshold_type": 1,
//	    "threshold_duration_millis": 30000,
//	    "fuzz_ms": 500,
//	    "control_func": 1,
//	    "control_channel": 3,
//	    "back_to_normal_func": 0,
//	    "allow_back_to_normal": true
//	  }
//	]
//
// Loading is all or nothing: any invalid entry rejects the whole file with
// an error wrapping ErrInvalidDefinition.
package control
