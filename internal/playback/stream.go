package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to interleaved 16-bit little-endian stereo.
const bytesPerFrame = 4

// StreamOptions configures a [StreamOutput].
type StreamOptions struct {
	Client *http.Client
	// Sink receives decoded PCM in real time. Defaults to [io.Discard].
	Sink   io.Writer
	Logger *log.Logger
	// Tick is the PCM chunk period. Defaults to 50ms.
	Tick time.Duration
	// UpdateEvery is how many ticks pass between time updates. Defaults to 5.
	UpdateEvery int
}

// StreamOutput is an [Output] that downloads an mp3 preview, decodes it with go-mp3 and writes PCM to
// a sink at playback speed.
type StreamOutput struct {
	mu       sync.Mutex
	client   *http.Client
	sink     io.Writer
	logger   *log.Logger
	tick     time.Duration
	every    int
	listener Listener

	gen     uint64
	cancel  context.CancelFunc
	dec     *mp3.Decoder
	rate    int
	length  int64
	pos     int64
	playing bool
	volume  float64
	closed  bool
}

// NewStreamOutput creates an unloaded output at full volume.
func NewStreamOutput(opts StreamOptions) *StreamOutput {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Sink == nil {
		opts.Sink = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Tick <= 0 {
		opts.Tick = 50 * time.Millisecond
	}
	if opts.UpdateEvery <= 0 {
		opts.UpdateEvery = 5
	}

	return &StreamOutput{
		client: opts.Client,
		sink:   opts.Sink,
		logger: opts.Logger,
		tick:   opts.Tick,
		every:  opts.UpdateEvery,
		volume: 1,
	}
}

// SetSource abandons the current stream and starts loading url in the background. Notifications
// about the new stream carry id.
func (s *StreamOutput) SetSource(id SourceID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.dec = nil
	s.rate = 0
	s.length = 0
	s.pos = 0

	if url == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.stream(ctx, s.gen, id, url)
}

// Play starts or resumes output. A source that is still loading starts once it is decoded.
func (s *StreamOutput) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

func (s *StreamOutput) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// Position returns the number of seconds written to the sink for the current source.
func (s *StreamOutput) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds(s.pos)
}

// Duration returns the decoded length of the current source, or zero while loading.
func (s *StreamOutput) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds(s.length)
}

// Seek moves within the loaded source, clamping to its bounds. It does nothing while loading.
func (s *StreamOutput) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dec == nil {
		return
	}
	offset := int64(seconds*float64(s.rate)) * bytesPerFrame
	offset = max(0, min(offset, s.length))

	pos, err := s.dec.Seek(offset, io.SeekStart)
	if err != nil {
		s.logger.Warn("seek failed", "offset", offset, "err", err)
		return
	}
	s.pos = pos
}

func (s *StreamOutput) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *StreamOutput) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *StreamOutput) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Close stops the current stream. The output cannot be reused.
func (s *StreamOutput) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.closed = true
	s.playing = false
	s.dec = nil
	if c, ok := s.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *StreamOutput) seconds(n int64) float64 {
	if s.rate == 0 {
		return 0
	}
	return float64(n) / float64(s.rate*bytesPerFrame)
}

// current reports whether gen still identifies the active source. Callers hold s.mu.
func (s *StreamOutput) current(gen uint64) bool {
	return !s.closed && s.gen == gen
}

// listenerFor returns the listener while gen is still the active source. Callers hold s.mu.
func (s *StreamOutput) listenerFor(gen uint64) Listener {
	if !s.current(gen) {
		return nil
	}
	return s.listener
}

// fail reports err for the source unless it has been replaced.
func (s *StreamOutput) fail(gen uint64, id SourceID, err error) {
	s.mu.Lock()
	l := s.listenerFor(gen)
	if l != nil {
		s.playing = false
	}
	s.mu.Unlock()

	s.logger.Warn("preview playback failed", "source", id, "err", err)
	if l != nil {
		l.Failed(id, err)
	}
}

func (s *StreamOutput) stream(ctx context.Context, gen uint64, id SourceID, url string) {
	dec, err := fetchPreview(ctx, s.client, url)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(gen, id, err)
		}
		return
	}

	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	s.dec = dec
	s.rate = dec.SampleRate()
	s.length = dec.Length()
	duration := s.seconds(s.length)
	l := s.listener
	s.mu.Unlock()

	s.logger.Debug("preview loaded", "url", url, "duration", duration)
	if l != nil {
		l.MetadataLoaded(id, duration)
	}

	s.run(ctx, gen, id)
}

// run writes one chunk of PCM per tick while playing, until the source ends or is replaced.
//
// Listeners may receive one notification for a source that is replaced concurrently; the id lets
// them discard it.
func (s *StreamOutput) run(ctx context.Context, gen uint64, id SourceID) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	chunk := make([]byte, 0)
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if !s.current(gen) {
			s.mu.Unlock()
			return
		}
		if !s.playing {
			s.mu.Unlock()
			continue
		}

		size := int(float64(s.rate)*s.tick.Seconds()) * bytesPerFrame
		if cap(chunk) < size {
			chunk = make([]byte, size)
		}
		n, err := io.ReadFull(s.dec, chunk[:size])
		s.pos += int64(n)
		volume := s.volume
		position := s.seconds(s.pos)
		l := s.listener
		s.mu.Unlock()

		if n > 0 {
			scalePCM(chunk[:n], volume)
			if _, werr := s.sink.Write(chunk[:n]); werr != nil {
				s.logger.Warn("audio sink write failed", "err", werr)
			}
		}

		ended := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !ended {
			s.fail(gen, id, fmt.Errorf("preview decode failed: %w", err))
			return
		}

		ticks++
		if l != nil && (ticks%s.every == 0 || ended) {
			l.TimeUpdate(id, position)
		}

		if ended {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			s.playing = false
			s.mu.Unlock()

			if l != nil {
				l.Ended(id)
			}
			return
		}
	}
}

func fetchPreview(ctx context.Context, client *http.Client, url string) (*mp3.Decoder, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preview fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("preview fetch status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("preview read failed: %w", err)
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("preview decode failed: %w", err)
	}
	return dec, nil
}

// scalePCM multiplies 16-bit little-endian samples in place by volume, clamped to [0, 1].
func scalePCM(buf []byte, volume float64) {
	volume = max(0, min(volume, 1))
	if volume == 1 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		sample := int16(buf[i]) | int16(buf[i+1])<<8
		scaled := int16(float64(sample) * volume)
		buf[i] = byte(scaled)
		buf[i+1] = byte(scaled >> 8)
	}
}
