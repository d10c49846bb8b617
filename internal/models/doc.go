// Package models defines the catalog entities and local library types shared by deezr's packages.
//
// The package contains two categories of types:
//
// 1. Catalog entities: read-only values decoded from the Deezer API
//   - [Track] : a playable item with a preview URL and embedded [TrackArtist] / [TrackAlbum] references
//   - [Album] : album metadata with an optional embedded [TrackList]
//   - [Artist] : artist metadata with fan count
//   - [CatalogPlaylist] : an editorial or user playlist from the catalog
//
// 2. Library entities: user-owned values persisted locally
//   - [Playlist] : a named, ordered collection of tracks with unique track IDs
//
// JSON tags follow the catalog's field names so collections persisted by older versions of the
// web front-end decode unchanged.
package models
