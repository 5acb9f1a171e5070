// Package store persists the reminder collection and the notification
// ledger.
//
// Both collections are read and written as a whole; nothing is cached between
// calls, so every operation observes the latest persisted state. Three
// backends are available:
//
//   - file: one JSON document per collection under the data directory,
//     replaced atomically on save (default)
//   - memory: process-local, used by tests and ephemeral runs
//   - valkey: one hash per collection, replaced inside MULTI/EXEC
//
// Load failures caused by undecodable data never lose the data: the file
// backend renames the document aside and the valkey backend copies bad
// records into a separate hash.
package store
