// Package tasks runs long library operations with real-time progress reporting.
//
// # Operations
//
//  1. [Importer.Import] : copy a catalog entity into the local library
//     - Fetches an album, catalog playlist, artist top tracks, or the chart
//     - Creates a local playlist named after the entity unless a name is given
//     - Adds each track, counting tracks already present as skipped
//
//  2. [BulkExport] : write local playlists to disk
//     - A bounded worker pool renders each playlist with [formatter]
//     - Cover downloads share one rate limiter
//     - A manifest summarizing every result is written last
//
// # Progress Reporting
//
// Every operation accepts an optional progress channel. Sends use select with default, so a slow
// or absent reader never stalls the operation; updates may be dropped instead.
package tasks
