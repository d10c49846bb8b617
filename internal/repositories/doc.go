// Package repositories implements the key/value persistence used by the local library.
//
// Each backend implements [KVStore], the synchronous get/set contract the library store commits through:
//   - [SQLiteStore] : a single kv table in the application database (migrated by shared.RunMigrations)
//   - [FileStore] : one "{key}.json" file per key, replaced atomically on every write
//   - [MemoryStore] : map-backed, for tests and ephemeral sessions
//
// [JSONCollection] layers a typed [Collection] over any KVStore and key. Every Save overwrites the
// whole serialized collection; there are no incremental writes and no transactions across keys.
// A value that fails to decode is reported as [shared.ErrCorrupt] so callers can degrade to an empty collection.
package repositories
