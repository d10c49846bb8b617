package playback

import "sync"

// SourceID identifies one [Output.SetSource] call. Outputs tag every notification about a source with
// the ID it was set with, so listeners can drop notifications that arrive after the source changed.
type SourceID uint64

// Listener receives notifications from an [Output].
//
// Outputs call listener methods from their own goroutines and never while holding their own locks.
type Listener interface {
	// TimeUpdate reports the current playback position in seconds.
	TimeUpdate(id SourceID, seconds float64)
	// MetadataLoaded reports the duration of a newly loaded source.
	MetadataLoaded(id SourceID, duration float64)
	// Ended reports that the source played to completion.
	Ended(id SourceID)
	// Failed reports that the source could not be fetched or decoded. No further notifications
	// follow for id.
	Failed(id SourceID, err error)
}

// Output is the single audio resource an [Engine] drives.
//
// Changing the source while playing starts the new source once it has loaded. An empty source
// unloads the current one.
type Output interface {
	SetSource(id SourceID, url string)
	Play()
	Pause()
	Position() float64
	Seek(seconds float64)
	Duration() float64
	Volume() float64
	SetVolume(v float64)
	SetListener(l Listener)
	Close() error
}

// NullOutput is an [Output] that produces no sound. It records every call and lets callers emit
// listener notifications by hand.
type NullOutput struct {
	mu       sync.Mutex
	id       SourceID
	source   string
	playing  bool
	position float64
	duration float64
	volume   float64
	listener Listener
	calls    []string
	closed   bool
}

// NewNullOutput creates a silent output at full volume.
func NewNullOutput() *NullOutput {
	return &NullOutput{volume: 1}
}

func (n *NullOutput) record(call string) {
	n.calls = append(n.calls, call)
}

func (n *NullOutput) SetSource(id SourceID, url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("set_source")
	n.id = id
	n.source = url
	n.position = 0
	n.duration = 0
}

func (n *NullOutput) Play() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("play")
	n.playing = true
}

func (n *NullOutput) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("pause")
	n.playing = false
}

func (n *NullOutput) Position() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

func (n *NullOutput) Seek(seconds float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("seek")
	n.position = seconds
}

func (n *NullOutput) Duration() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.duration
}

func (n *NullOutput) Volume() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.volume
}

func (n *NullOutput) SetVolume(v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("set_volume")
	n.volume = v
}

func (n *NullOutput) SetListener(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = l
}

func (n *NullOutput) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("close")
	n.closed = true
	n.playing = false
	return nil
}

// Source returns the current source URL.
func (n *NullOutput) Source() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.source
}

// SourceID returns the ID of the current source.
func (n *NullOutput) SourceID() SourceID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

// Playing reports whether Play was called more recently than Pause.
func (n *NullOutput) Playing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

// Closed reports whether Close was called.
func (n *NullOutput) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Calls returns the recorded method names in call order.
func (n *NullOutput) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// Load simulates metadata arriving for the current source.
func (n *NullOutput) Load(duration float64) {
	n.mu.Lock()
	n.duration = duration
	l, id := n.listener, n.id
	n.mu.Unlock()

	if l != nil {
		l.MetadataLoaded(id, duration)
	}
}

// Advance simulates playback progressing to the given position.
func (n *NullOutput) Advance(seconds float64) {
	n.mu.Lock()
	n.position = seconds
	l, id := n.listener, n.id
	n.mu.Unlock()

	if l != nil {
		l.TimeUpdate(id, seconds)
	}
}

// Finish simulates the current source ending.
func (n *NullOutput) Finish() {
	n.mu.Lock()
	n.playing = false
	l, id := n.listener, n.id
	n.mu.Unlock()

	if l != nil {
		l.Ended(id)
	}
}

// Fail simulates the current source failing to load.
func (n *NullOutput) Fail(err error) {
	n.mu.Lock()
	n.playing = false
	l, id := n.listener, n.id
	n.mu.Unlock()

	if l != nil {
		l.Failed(id, err)
	}
}
