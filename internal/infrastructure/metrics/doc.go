// Package metrics exposes controller counters and gauges to Prometheus.
//
// A single Metrics value implements the recorder interfaces of the ingest
// and engine packages, so those packages do not import Prometheus.
// Collectors are registered on a private registry served by Handler.
package metrics
