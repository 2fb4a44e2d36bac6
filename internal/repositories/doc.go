// Package repositories implements SQLite persistence for the local side of the watchlist.
//
// The watchlist document itself lives in GitHub; the database only holds data that is cheaper to keep
// locally than to refetch or that GitHub does not record.
//
// Key Implementations:
//   - [TitleRepository] : OMDB details keyed by IMDb id, with fetch timestamps for expiry
//   - [TitleCacheAdapter] : the services.TitleCache view of [TitleRepository]
//   - [SaveRepository] : journal of save cycles, one row per underlying write
//
// Sequence numbers provide stable, human-readable ordering (e.g. save #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
