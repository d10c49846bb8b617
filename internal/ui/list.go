package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/deezr/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	target   bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.target {
		return "+ " + i.playlist.Name
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", len(i.playlist.Tracks), models.FormatDuration(i.playlist.TotalDuration()))
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track   models.Track
	liked   bool
	playing bool
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string {
	title := i.track.Title
	if i.liked {
		title = "♥ " + title
	}
	if i.playing {
		title = "▶ " + title
	}
	return title
}
func (i trackItem) Description() string {
	desc := i.track.Artist.Name
	if i.track.Album.Title != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Title)
	}
	return fmt.Sprintf("%s • %s", desc, models.FormatDuration(i.track.Duration))
}
