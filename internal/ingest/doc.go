// Package ingest polls the sensor reading cache and forwards each new
// reading to the control engine exactly once.
//
// Per poll cycle the Monitor fetches, for every observed device, all
// stored (sensor type -> reading) pairs, drops sensor types no rule
// watches, merges the rest into a newest-wins table and forwards every
// entry not yet forwarded. A reading replaced by a newer one before it was
// forwarded is dropped silently, so the engine only ever sees
// non-decreasing timestamps per (device, sensor type).
//
// A failing device fetch or an undecodable entry is logged and skipped;
// it never aborts the cycle.
package ingest
