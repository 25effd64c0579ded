// Package store provides durable local storage for the client: the place the
// offline retry queue and the tracker snapshot cache survive a restart.
//
// Storage is a small key/value contract. Values are opaque bytes (the
// callers store JSON). Two implementations exist:
//   - Store: SQLite-backed, one row per key in the kv table
//   - Memory: process-local map, used in tests and for ":memory:" setups
//
// # Failure Policy
//
// Callers treat every Storage error as "storage unavailable" and degrade to
// in-memory operation. Implementations therefore return errors instead of
// retrying or panicking.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
