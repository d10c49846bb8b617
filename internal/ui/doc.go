// Package ui implements the interactive terminal player using bubbletea's Elm architecture.
//
// Five views share one now-playing bar:
//  1. [ChartsView] : global top tracks from the catalog
//  2. [SearchView] : track search results (press / to search)
//  3. [LibraryView] : local playlists; the highlighted one receives "add" actions
//  4. [LikedView] : liked tracks
//  5. [QueueView] : the engine's current queue
//
// The [Model] never owns player or library state. It subscribes to [playback.Engine] and
// [library.Store] and turns their notifications into messages, so changes made elsewhere (such as
// a track ending and the queue advancing) show up without polling.
//
// Volume changes are clamped to [0, 1] here; the engine accepts any value.
package ui
