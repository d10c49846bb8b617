package ui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/catalog"
	"github.com/desertthunder/deezr/internal/library"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/playback"
	"github.com/desertthunder/deezr/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChartsView ViewState = iota
	SearchView
	LibraryView
	LikedView
	QueueView
	viewCount
)

func (v ViewState) String() string {
	switch v {
	case ChartsView:
		return "Charts"
	case SearchView:
		return "Search"
	case LibraryView:
		return "Library"
	case LikedView:
		return "Liked"
	case QueueView:
		return "Queue"
	default:
		return ""
	}
}

const (
	seekStep   = 5.0
	volumeStep = 0.1
	// chrome is the number of rows outside the active list.
	chrome = 9
)

// Options holds the TUI dependencies.
type Options struct {
	Catalog catalog.Catalog
	Engine  *playback.Engine
	Store   *library.Store
	Logger  *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	catalog catalog.Catalog
	engine  *playback.Engine
	store   *library.Store
	logger  *log.Logger

	view   ViewState
	width  int
	height int
	lists  [viewCount]list.Model

	chart     []models.Track
	results   []models.Track
	playlists []models.Playlist
	liked     []models.Track
	player    playback.State
	target    string // playlist receiving "add" actions

	input     textinput.Model
	searching bool
	query     string

	bar    progress.Model
	help   help.Model
	keys   keyMap
	status string
	err    error

	states  <-chan playback.State
	events  <-chan library.Event
	closers []func()
}

// NewModel creates a new TUI model subscribed to engine and store changes. Call [Model.Close] when done.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	input := textinput.New()
	input.Placeholder = "Search tracks"
	input.Prompt = "/ "
	input.CharLimit = 120

	m := &Model{
		ctx:     ctx,
		catalog: opts.Catalog,
		engine:  opts.Engine,
		store:   opts.Store,
		logger:  opts.Logger,
		view:    ChartsView,
		input:   input,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:    help.New(),
		keys:    newKeyMap(),
	}

	for v := range viewCount {
		l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
		l.Title = v.String()
		l.SetShowHelp(false)
		l.SetFilteringEnabled(false)
		l.DisableQuitKeybindings()
		m.lists[v] = l
	}

	states, unsubscribe := m.engine.Subscribe(16)
	m.states = states
	m.closers = append(m.closers, unsubscribe)

	events, unsubscribe := m.store.Subscribe(16)
	m.events = events
	m.closers = append(m.closers, unsubscribe)

	m.player = m.engine.State()
	m.playlists = m.store.Playlists()
	m.liked = m.store.LikedTracks()
	m.rebuild()
	return m
}

// Close drops the engine and store subscriptions.
func (m *Model) Close() {
	for _, fn := range m.closers {
		fn()
	}
	m.closers = nil
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := NewModel(ctx, opts)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init fetches the chart and starts listening for player and library changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchChart(), m.waitForState(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgChartFetched:
		res := msg.data.(tracksResult)
		if res.err != nil {
			m.fail("chart", res.err)
			return m, nil
		}
		m.chart = res.tracks
		m.rebuild()

	case MsgSearchFetched:
		res := msg.data.(tracksResult)
		if res.err != nil {
			m.fail("search", res.err)
			return m, nil
		}
		m.results = res.tracks
		m.view = SearchView
		m.lists[SearchView].Title = fmt.Sprintf("Search: %s", m.query)
		m.lists[SearchView].Select(0)
		m.status = fmt.Sprintf("%d results for %q", len(res.tracks), m.query)
		m.rebuild()

	case MsgPlayerState:
		m.player = msg.data.(playback.State)
		m.rebuild()
		return m, m.waitForState()

	case MsgLibraryChanged:
		m.playlists = m.store.Playlists()
		m.liked = m.store.LikedTracks()
		m.rebuild()
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		m.report("toggle", m.engine.TogglePlay())
	case key.Matches(msg, m.keys.next):
		m.report("next", m.engine.Next())
	case key.Matches(msg, m.keys.prev):
		m.report("previous", m.engine.Previous())
	case key.Matches(msg, m.keys.back5):
		m.seek(-seekStep)
	case key.Matches(msg, m.keys.forward5):
		m.seek(seekStep)
	case key.Matches(msg, m.keys.volUp):
		m.changeVolume(volumeStep)
	case key.Matches(msg, m.keys.volDown):
		m.changeVolume(-volumeStep)
	case key.Matches(msg, m.keys.like):
		m.like()
	case key.Matches(msg, m.keys.add):
		m.addToPlaylist()
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.tab):
		m.view = (m.view + 1) % viewCount
	case key.Matches(msg, m.keys.enter):
		m.play()
	case key.Matches(msg, m.keys.cancel):
		m.err = nil
		m.status = ""
	default:
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		m.query = q
		m.status = "Searching..."
		return m, m.searchTracks(q)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.lists[m.view], cmd = m.lists[m.view].Update(msg)
	if m.view == LibraryView {
		if item, ok := m.lists[LibraryView].SelectedItem().(playlistItem); ok && item.playlist.ID != m.target {
			m.target = item.playlist.ID
			m.rebuild()
		}
	}
	return m, cmd
}

// report refreshes the player snapshot and notes skipped operations in the status line.
func (m *Model) report(op string, outcome shared.Outcome) {
	m.player = m.engine.State()
	m.rebuild()
	if outcome.Changed() {
		m.status = ""
		return
	}
	m.status = fmt.Sprintf("%s: nothing to do", op)
}

func (m *Model) fail(op string, err error) {
	m.logger.Warn("tui operation failed", "op", op, "err", err)
	m.err = fmt.Errorf("%s: %w", op, err)
}

func (m *Model) seek(delta float64) {
	if m.player.CurrentTrack == nil {
		return
	}
	t := max(m.player.CurrentTime+delta, 0)
	if m.player.Duration > 0 {
		t = min(t, m.player.Duration)
	}
	m.report("seek", m.engine.SeekTo(t))
}

// changeVolume clamps to [0, 1]; the engine passes any value through.
func (m *Model) changeVolume(delta float64) {
	v := math.Round((m.player.Volume+delta)*100) / 100
	v = min(max(v, 0), 1)
	m.report("volume", m.engine.SetVolume(v))
	if m.status == "" {
		m.status = fmt.Sprintf("Volume %d%%", int(math.Round(v*100)))
	}
}

// selectedTrack returns the highlighted track, falling back to the current one.
func (m *Model) selectedTrack() (models.Track, bool) {
	if item, ok := m.lists[m.view].SelectedItem().(trackItem); ok {
		return item.track, true
	}
	if m.player.CurrentTrack != nil {
		return *m.player.CurrentTrack, true
	}
	return models.Track{}, false
}

func (m *Model) like() {
	track, ok := m.selectedTrack()
	if !ok {
		m.status = "like: no track selected"
		return
	}

	liked, err := m.store.ToggleLike(track)
	if err != nil {
		m.fail("like", err)
		return
	}
	if liked {
		m.status = fmt.Sprintf("♥ Liked %s", track)
	} else {
		m.status = fmt.Sprintf("Removed %s from liked tracks", track)
	}
}

// targetPlaylist is the playlist last highlighted in the library, or the first one.
func (m *Model) targetPlaylist() (models.Playlist, bool) {
	for _, pl := range m.playlists {
		if pl.ID == m.target {
			return pl, true
		}
	}
	if len(m.playlists) > 0 {
		return m.playlists[0], true
	}
	return models.Playlist{}, false
}

func (m *Model) addToPlaylist() {
	track, ok := m.selectedTrack()
	if !ok {
		m.status = "add: no track selected"
		return
	}
	pl, ok := m.targetPlaylist()
	if !ok {
		m.status = "add: create a playlist first (deezr library create)"
		return
	}

	outcome, err := m.store.AddTrack(pl.ID, track)
	switch {
	case err != nil:
		m.fail("add", err)
	case outcome.Changed():
		m.status = fmt.Sprintf("Added %s to %s", track, pl.Name)
	default:
		m.status = fmt.Sprintf("%s is already in %s", track, pl.Name)
	}
}

// play starts the highlighted selection: a track list from the cursor, or a whole playlist.
// In the queue view the current queue is kept and playback jumps to the cursor.
func (m *Model) play() {
	idx := m.lists[m.view].Index()

	switch m.view {
	case LibraryView:
		item, ok := m.lists[LibraryView].SelectedItem().(playlistItem)
		if !ok {
			return
		}
		if len(item.playlist.Tracks) == 0 {
			m.status = fmt.Sprintf("%s is empty", item.playlist.Name)
			return
		}
		_, err := m.engine.PlayQueue(item.playlist.Tracks, 0)
		if err != nil {
			m.fail("play", err)
			return
		}
		m.report("play", shared.Applied)

	default:
		tracks := m.tracksFor(m.view)
		if len(tracks) == 0 {
			return
		}
		outcome, err := m.engine.PlayQueue(tracks, idx)
		if err != nil {
			m.fail("play", err)
			return
		}
		m.report("play", outcome)
	}
}

func (m *Model) tracksFor(v ViewState) []models.Track {
	switch v {
	case ChartsView:
		return m.chart
	case SearchView:
		return m.results
	case LikedView:
		return m.liked
	case QueueView:
		return m.player.Queue
	default:
		return nil
	}
}

// rebuild refreshes every list from the current snapshots.
func (m *Model) rebuild() {
	var current int64 = -1
	if m.player.CurrentTrack != nil {
		current = m.player.CurrentTrack.ID
	}

	for _, v := range []ViewState{ChartsView, SearchView, LikedView, QueueView} {
		tracks := m.tracksFor(v)
		items := make([]list.Item, len(tracks))
		for i, t := range tracks {
			items[i] = trackItem{track: t, liked: m.store.IsLiked(t.ID), playing: t.ID == current}
		}
		m.lists[v].SetItems(items)
	}

	target, _ := m.targetPlaylist()
	items := make([]list.Item, len(m.playlists))
	for i, pl := range m.playlists {
		items[i] = playlistItem{playlist: pl, target: pl.ID == target.ID}
	}
	m.lists[LibraryView].SetItems(items)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	for v := range viewCount {
		m.lists[v].SetSize(w-2, max(h-chrome, 3))
	}
	m.bar.Width = min(max(w-4, 10), 80)
	m.help.Width = w
}

func (m *Model) fetchChart() tea.Cmd {
	ctx, c := m.ctx, m.catalog
	return func() tea.Msg {
		tracks, err := c.ChartTracks(ctx, 0)
		return chartFetchedMsg(tracks, err)
	}
}

func (m *Model) searchTracks(query string) tea.Cmd {
	ctx, c := m.ctx, m.catalog
	return func() tea.Msg {
		tracks, err := c.SearchTracks(ctx, query)
		return searchFetchedMsg(tracks, err)
	}
}

func (m *Model) waitForState() tea.Cmd {
	ch := m.states
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return subscriptionClosedMsg()
		}
		return playerStateMsg(state)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return subscriptionClosedMsg()
		}
		return libraryChangedMsg(e)
	}
}

// View renders the tabs, the active list, the now-playing bar and the status line.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.lists[m.view].View())
	b.WriteString("\n")
	b.WriteString(styles.bar.Render(m.renderNowPlaying()))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.status != "":
		b.WriteString(styles.warn.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for v := range viewCount {
		if v == m.view {
			tabs = append(tabs, styles.active.Render(v.String()))
		} else {
			tabs = append(tabs, styles.tab.Render(v.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderNowPlaying() string {
	s := m.player
	if s.CurrentTrack == nil {
		return styles.help.Render("Nothing playing")
	}

	icon := "⏸"
	if s.IsPlaying {
		icon = "▶"
	}

	ratio := 0.0
	if s.Duration > 0 {
		ratio = min(s.CurrentTime/s.Duration, 1)
	}

	line := fmt.Sprintf("%s %s  %s / %s  vol %d%%",
		icon,
		styles.ok.Render(s.CurrentTrack.String()),
		models.FormatDuration(int(s.CurrentTime)),
		models.FormatDuration(int(s.Duration)),
		int(math.Round(s.Volume*100)),
	)
	return line + "\n" + m.bar.ViewAs(ratio)
}
