// Package tasks turns watchlist edits into commits.
//
// # Save Scheduling
//
// [Saver] batches "save the whole document" requests into single writes. Each call to [Saver.Schedule]
// returns a [SaveTicket]; every ticket of a cycle settles with the same [SaveResult] or the same error.
//
//   - Calls within the coalescing window join one cycle and restart the window; the newest snapshot wins.
//   - A call made while a write is in flight opens the next cycle, so nothing changed during a write is lost.
//   - Cycles are strictly sequential: a write never starts before the previous one has settled.
//   - Failures are not retried. Schedule again with fresh data to start a new cycle.
//
// # Controller
//
// [Controller] owns the in-memory document and the session. Mutations check that the signed-in user owns the
// repository, validate, re-sort, and schedule a save. Its write step either refreshes the revision before
// writing (conflict_mode "refresh") or uses the tracked one (conflict_mode "strict").
//
// # Progress Reporting
//
// Both types report phases through an optional channel of [ProgressUpdate]. Sends use select with default, so a
// slow reader drops updates rather than blocking a save.
package tasks
