// Package repositories implements durable key-value persistence for client session state.
//
// Key Implementations:
//   - [KVRepository] : SQLite-backed slots in the kv table, created by the shared migrations
//   - [MemoryStore] : process-local map used by tests and ephemeral runs
//
// Both satisfy [KeyValueStore]. A missing key is not an error: Get reports it through its bool result.
package repositories
