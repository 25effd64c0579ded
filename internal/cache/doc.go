// Package cache holds the client's two read caches.
//
// ResponseCache is a memory-only, time-boxed cache for completion reads
// (status, stats, weekly view). It is advisory: dropping it only costs
// extra requests. The one correctness rule is on the write path, where the
// caller must call InvalidateForEntity both before and after the network
// write so a read racing the write cannot repopulate pre-write data.
//
// TrackerCache holds whole-tracker snapshots in memory and in durable
// storage, bounded to a fixed number of trackers. Storage failures are
// logged and the cache carries on in memory.
package cache
