// Package daemon provides the top-level scheduler loop. It runs one
// scan-and-process cycle per tick on a fixed minimum cadence, absorbs
// per-cycle failures so the process keeps scheduling, reports overruns, and
// stops cooperatively: a stop signal prevents future ticks but never
// interrupts a tick in progress.
package daemon
