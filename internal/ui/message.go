package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/deezr/internal/library"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgChartFetched MsgKind = iota
	MsgSearchFetched
	MsgPlayerState
	MsgLibraryChanged
	MsgSubscriptionClosed
)

type tracksResult struct {
	tracks []models.Track
	err    error
}

// chartFetchedMsg is the constructor for [MsgChartFetched]
func chartFetchedMsg(tracks []models.Track, err error) Msg {
	return Msg{kind: MsgChartFetched, data: tracksResult{tracks, err}}
}

// searchFetchedMsg is the constructor for [MsgSearchFetched]
func searchFetchedMsg(tracks []models.Track, err error) Msg {
	return Msg{kind: MsgSearchFetched, data: tracksResult{tracks, err}}
}

// playerStateMsg is the constructor for [MsgPlayerState]
func playerStateMsg(state playback.State) Msg {
	return Msg{kind: MsgPlayerState, data: state}
}

// libraryChangedMsg is the constructor for [MsgLibraryChanged]
func libraryChangedMsg(e library.Event) Msg {
	return Msg{kind: MsgLibraryChanged, data: e}
}

// subscriptionClosedMsg is sent once a state or event channel closes.
func subscriptionClosedMsg() Msg {
	return Msg{kind: MsgSubscriptionClosed}
}
