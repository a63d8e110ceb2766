// Package telemetry uploads actuator channel state.
//
// The control engine builds a batch of Records on its telemetry interval
// and hands it to a Reporter. A failed upload is logged and the batch is
// dropped; the next interval sends fresh state.
//
// Two reporters are provided:
//   - InfluxReporter writes one "actuator_state" point per record.
//   - MongoReporter inserts one document per record.
package telemetry
