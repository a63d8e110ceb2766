// Package engine runs the threshold trigger state machine.
//
// Readings drained from the transfer queue are routed to every rule that
// watches their device and sensor type. Each (device, sensor type, rule)
// key owns at most one Trigger:
//
//	Idle ──exceeded──▶ Pending ──sustained for duration (± fuzz)──▶ Active
//	  ▲                   │                                          │
//	  └──── recovered past hysteresis (back-to-normal command) ◀─────┘
//
// An Active trigger ignores further exceeding readings, so each episode
// issues at most one activation and one back-to-normal command.
//
// The engine is single-threaded. Cycle, Process and Snapshot must be
// called from one goroutine; Run does this itself.
package engine
