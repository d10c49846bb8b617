package playback

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/models"
	"github.com/desertthunder/deezr/internal/shared"
)

// DefaultVolume is the engine's initial volume.
const DefaultVolume = 0.7

// Status is the engine's transport state.
type Status int

const (
	Idle Status = iota
	Paused
	Playing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return ""
	}
}

// State is a snapshot of the engine's read surface.
type State struct {
	CurrentTrack *models.Track
	IsPlaying    bool
	Queue        []models.Track
	CurrentTime  float64
	Duration     float64
	Volume       float64
}

// Status derives the transport state from the snapshot.
func (s State) Status() Status {
	switch {
	case s.CurrentTrack == nil:
		return Idle
	case s.IsPlaying:
		return Playing
	default:
		return Paused
	}
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	// Output is bound immediately when set.
	Output Output
	// NewOutput creates the output on the first play-initiating operation when Output is nil.
	NewOutput func() Output
	Logger    *log.Logger
	// Volume is the initial volume; nil selects [DefaultVolume].
	Volume *float64
	// OnEnded is called with the finished track when the current source ends, before the engine
	// advances.
	OnEnded func(track models.Track)
	// OnFailed is called when the current source fails to load. The engine does not advance.
	OnFailed func(track models.Track, err error)
}

// Engine owns the play queue, the current track and the transport state, and drives a single [Output].
//
// Operations whose preconditions are missing (no bound output, empty queue) leave the state untouched,
// log a warning and return [shared.Skipped].
type Engine struct {
	mu          sync.Mutex
	current     *models.Track
	playing     bool
	queue       []models.Track
	currentTime float64
	duration    float64
	volume      float64
	source      SourceID

	output    Output
	newOutput func() Output
	logger    *log.Logger
	states    *shared.Broadcaster[State]
	onEnded   func(models.Track)
	onFailed  func(models.Track, error)
}

// NewEngine creates an idle engine.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	volume := DefaultVolume
	if opts.Volume != nil {
		volume = *opts.Volume
	}

	e := &Engine{
		volume:    volume,
		newOutput: opts.NewOutput,
		logger:    opts.Logger,
		states:    shared.NewBroadcaster[State](),
		onEnded:   opts.OnEnded,
		onFailed:  opts.OnFailed,
	}
	if opts.Output != nil {
		e.bind(opts.Output)
	}
	return e
}

func (e *Engine) bind(o Output) {
	o.SetVolume(e.volume)
	o.SetListener(e)
	e.output = o
}

// ensureOutput binds an output from the factory if none is bound yet. Callers hold e.mu.
func (e *Engine) ensureOutput() {
	if e.output != nil || e.newOutput == nil {
		return
	}
	o := e.newOutput()
	if o == nil {
		return
	}
	e.bind(o)
	e.logger.Debug("audio output initialized", "type", fmt.Sprintf("%T", o))
}

// load makes track current and starts it on the output. Callers hold e.mu.
func (e *Engine) load(track models.Track) {
	e.current = &track
	e.playing = true
	e.currentTime = 0
	e.duration = 0

	e.ensureOutput()
	if e.output == nil {
		return
	}
	if track.Preview == "" {
		e.logger.Warn("track has no preview", "track", track.ID)
	}
	e.source++
	e.output.SetSource(e.source, track.Preview)
	e.output.Play()
}

// accepts reports whether a notification tagged id belongs to the current source. Callers hold e.mu.
func (e *Engine) accepts(id SourceID) bool {
	return e.current != nil && e.output != nil && id == e.source
}

func (e *Engine) stale(event string, id SourceID) {
	current := e.source
	e.mu.Unlock()
	e.logger.Debug("ignoring stale notification", "event", event, "source", id, "current", current)
}

// Bound reports whether an output is bound.
func (e *Engine) Bound() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output != nil
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Status returns the current transport state.
func (e *Engine) Status() Status {
	return e.State().Status()
}

// Subscribe registers for state snapshots published after every applied change.
func (e *Engine) Subscribe(buffer int) (<-chan State, func()) {
	return e.states.Subscribe(buffer)
}

func (e *Engine) snapshot() State {
	s := State{
		IsPlaying:   e.playing,
		Queue:       append([]models.Track(nil), e.queue...),
		CurrentTime: e.currentTime,
		Duration:    e.duration,
		Volume:      e.volume,
	}
	if e.current != nil {
		t := *e.current
		s.CurrentTrack = &t
	}
	return s
}

// commit snapshots the state, releases e.mu and publishes the snapshot.
func (e *Engine) commit() shared.Outcome {
	s := e.snapshot()
	e.mu.Unlock()
	e.states.Publish(s)
	return shared.Applied
}

func (e *Engine) skip(op, reason string) shared.Outcome {
	e.mu.Unlock()
	e.logger.Warn(op+" skipped", "reason", reason)
	return shared.Skipped
}

// PlayTrack replaces the queue with track alone and starts it.
func (e *Engine) PlayTrack(track models.Track) shared.Outcome {
	e.mu.Lock()
	e.queue = []models.Track{track}
	e.load(track)
	e.logger.Info("playing track", "track", track.ID, "title", track.Title)
	return e.commit()
}

// PlayQueue replaces the queue with tracks and starts the track at startIndex.
//
// An empty tracks slice is skipped. An out-of-range startIndex returns [shared.ErrInvalidIndex] and
// leaves the state unchanged.
func (e *Engine) PlayQueue(tracks []models.Track, startIndex int) (shared.Outcome, error) {
	if len(tracks) == 0 {
		e.logger.Warn("play queue skipped", "reason", "empty queue")
		return shared.Skipped, nil
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		return shared.Skipped, fmt.Errorf("%w: start %d for queue of %d", shared.ErrInvalidIndex, startIndex, len(tracks))
	}

	e.mu.Lock()
	e.queue = append([]models.Track(nil), tracks...)
	e.load(tracks[startIndex])
	e.logger.Info("playing queue", "size", len(tracks), "start", startIndex)
	return e.commit(), nil
}

// TogglePlay pauses a playing track or resumes a paused one.
func (e *Engine) TogglePlay() shared.Outcome {
	e.mu.Lock()
	if e.output == nil {
		return e.skip("toggle", "no audio output")
	}
	if e.current == nil {
		return e.skip("toggle", "nothing loaded")
	}

	e.playing = !e.playing
	if e.playing {
		e.output.Play()
	} else {
		e.output.Pause()
	}
	return e.commit()
}

// Next advances to the following queue entry, wrapping to the start.
//
// When the current track is not in the queue the first entry is selected.
func (e *Engine) Next() shared.Outcome {
	e.mu.Lock()
	return e.advance(1)
}

// Previous moves to the preceding queue entry, wrapping to the end.
//
// When the current track is not in the queue the last entry is selected.
func (e *Engine) Previous() shared.Outcome {
	e.mu.Lock()
	return e.advance(-1)
}

// advance moves by step through the queue. Callers hold e.mu; it is released on return.
func (e *Engine) advance(step int) shared.Outcome {
	n := len(e.queue)
	if n == 0 {
		return e.skip("skip", "empty queue")
	}

	i := -1
	if e.current != nil {
		i = models.IndexOf(e.queue, e.current.ID)
	}

	var next int
	switch {
	case i < 0 && step > 0:
		next = 0
	case i < 0:
		next = n - 1
	default:
		next = ((i+step)%n + n) % n
	}

	e.load(e.queue[next])
	e.logger.Debug("queue position changed", "from", i, "to", next)
	return e.commit()
}

// SeekTo moves the output to the given position in seconds. The position is not validated.
func (e *Engine) SeekTo(seconds float64) shared.Outcome {
	e.mu.Lock()
	if e.output == nil {
		return e.skip("seek", "no audio output")
	}
	e.output.Seek(seconds)
	e.currentTime = seconds
	return e.commit()
}

// SetVolume sets the output volume. The value is not clamped.
func (e *Engine) SetVolume(v float64) shared.Outcome {
	e.mu.Lock()
	if e.output == nil {
		return e.skip("volume", "no audio output")
	}
	e.output.SetVolume(v)
	e.volume = v
	return e.commit()
}

// Stop clears the queue and current track, returning the engine to [Idle]. The output stays bound.
func (e *Engine) Stop() shared.Outcome {
	e.mu.Lock()
	if e.current == nil && len(e.queue) == 0 {
		return e.skip("stop", "already idle")
	}

	e.current = nil
	e.queue = nil
	e.playing = false
	e.currentTime = 0
	e.duration = 0
	if e.output != nil {
		e.source++
		e.output.Pause()
		e.output.SetSource(e.source, "")
	}
	e.logger.Info("playback stopped")
	return e.commit()
}

// TimeUpdate mirrors the output position into the state.
func (e *Engine) TimeUpdate(id SourceID, seconds float64) {
	e.mu.Lock()
	if !e.accepts(id) {
		e.stale("time", id)
		return
	}
	e.currentTime = seconds
	e.commit()
}

// MetadataLoaded mirrors the loaded duration into the state.
func (e *Engine) MetadataLoaded(id SourceID, duration float64) {
	e.mu.Lock()
	if !e.accepts(id) {
		e.stale("metadata", id)
		return
	}
	e.duration = duration
	e.commit()
}

// Ended auto-advances exactly as [Engine.Next] does. Notifications for a replaced source are dropped,
// so a track that ends while the user skips advances only once.
func (e *Engine) Ended(id SourceID) {
	e.mu.Lock()
	if !e.accepts(id) {
		e.stale("ended", id)
		return
	}
	track := *e.current
	hook := e.onEnded
	e.mu.Unlock()

	e.logger.Debug("track ended", "track", track.ID)
	if hook != nil {
		hook(track)
	}

	e.mu.Lock()
	if !e.accepts(id) {
		e.stale("ended", id)
		return
	}
	e.advance(1)
}

// Failed logs a source that could not be loaded and reports it through OnFailed. The state is left
// as is.
func (e *Engine) Failed(id SourceID, err error) {
	e.mu.Lock()
	if !e.accepts(id) {
		e.stale("failed", id)
		return
	}
	track := *e.current
	hook := e.onFailed
	e.mu.Unlock()

	e.logger.Warn("track failed to load", "track", track.ID, "err", err)
	if hook != nil {
		hook(track, err)
	}
}

// Close releases the output and all subscribers.
func (e *Engine) Close() error {
	e.mu.Lock()
	o := e.output
	e.output = nil
	e.newOutput = nil
	e.playing = false
	e.mu.Unlock()

	e.states.Close()
	if o == nil {
		return nil
	}
	return o.Close()
}
