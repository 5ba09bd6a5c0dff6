// Package tasks runs long catalogue operations with progress reporting.
//
// [BulkDetails] fetches many movie details through a worker pool. Requests are paced by a
// token-bucket limiter and share one gateway, so a burst of 401s during the run collapses into
// a single token refresh.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never block: when the
// channel is full the update is dropped.
package tasks
