package playback

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/deezr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingListener struct {
	updates, loads, ends, fails atomic.Int32
	last                        atomic.Uint64
}

func (c *countingListener) TimeUpdate(id SourceID, _ float64) {
	c.last.Store(uint64(id))
	c.updates.Add(1)
}

func (c *countingListener) MetadataLoaded(id SourceID, _ float64) {
	c.last.Store(uint64(id))
	c.loads.Add(1)
}

func (c *countingListener) Ended(id SourceID) {
	c.last.Store(uint64(id))
	c.ends.Add(1)
}

func (c *countingListener) Failed(id SourceID, _ error) {
	c.last.Store(uint64(id))
	c.fails.Add(1)
}

type countingWriter struct {
	n atomic.Int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n.Add(int64(len(p)))
	return len(p), nil
}

// previewServer serves testdata/silence.mp3, about 0.3s of silence, at every path.
func previewServer(t *testing.T) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile("testdata/silence.mp3")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamOutput(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		s := NewStreamOutput(StreamOptions{})
		defer s.Close()

		assert.Equal(t, 1.0, s.Volume())
		assert.Zero(t, s.Position())
		assert.Zero(t, s.Duration())
	})

	t.Run("Failed Fetch Never Loads", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		l := &countingListener{}
		s := NewStreamOutput(StreamOptions{Client: srv.Client()})
		defer s.Close()
		s.SetListener(l)

		s.SetSource(3, srv.URL+"/preview.mp3")
		s.Play()

		require.Eventually(t, func() bool { return l.fails.Load() == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, uint64(3), l.last.Load())
		assert.Zero(t, l.loads.Load())
		assert.Zero(t, l.ends.Load())
		assert.Zero(t, s.Duration())
	})

	t.Run("Undecodable Body Never Loads", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("definitely not an mp3"))
		}))
		defer srv.Close()

		l := &countingListener{}
		s := NewStreamOutput(StreamOptions{Client: srv.Client()})
		defer s.Close()
		s.SetListener(l)

		s.SetSource(1, srv.URL)
		require.Eventually(t, func() bool { return l.fails.Load() == 1 }, time.Second, 10*time.Millisecond)
		assert.Zero(t, l.loads.Load())
	})

	t.Run("Seek Without Source Is Ignored", func(t *testing.T) {
		s := NewStreamOutput(StreamOptions{})
		defer s.Close()

		s.Seek(10)
		assert.Zero(t, s.Position())
	})

	t.Run("Closed Output Ignores Sources", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		s := NewStreamOutput(StreamOptions{Client: srv.Client()})
		require.NoError(t, s.Close())

		s.SetSource(1, srv.URL)
		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, hits.Load())
	})

	t.Run("Plays Decoded Preview To The End", func(t *testing.T) {
		srv := previewServer(t)
		sink := &countingWriter{}
		l := &countingListener{}

		s := NewStreamOutput(StreamOptions{Client: srv.Client(), Sink: sink, Tick: 10 * time.Millisecond, UpdateEvery: 1})
		defer s.Close()
		s.SetListener(l)
		s.SetSource(7, srv.URL+"/a.mp3")
		s.Play()

		require.Eventually(t, func() bool { return l.ends.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), l.loads.Load())
		assert.Positive(t, l.updates.Load())
		assert.Zero(t, l.fails.Load())
		assert.Equal(t, uint64(7), l.last.Load())
		assert.Greater(t, s.Duration(), 0.0)
		assert.InDelta(t, s.Duration(), s.Position(), 0.05)
		assert.Positive(t, sink.n.Load())
	})

	t.Run("Replaced Source Stays Silent", func(t *testing.T) {
		srv := previewServer(t)
		l := &countingListener{}

		s := NewStreamOutput(StreamOptions{Client: srv.Client(), Tick: 10 * time.Millisecond, UpdateEvery: 1})
		defer s.Close()
		s.SetListener(l)
		s.SetSource(1, srv.URL+"/a.mp3")
		s.SetSource(2, srv.URL+"/b.mp3")
		s.Play()

		require.Eventually(t, func() bool { return l.ends.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, uint64(2), l.last.Load())
		assert.Equal(t, int32(1), l.loads.Load())
	})

	t.Run("Drives Engine Through Queue", func(t *testing.T) {
		srv := previewServer(t)
		var ended atomic.Int32

		s := NewStreamOutput(StreamOptions{Client: srv.Client(), Tick: 10 * time.Millisecond, UpdateEvery: 1})
		e := NewEngine(EngineOpts{
			Output:  s,
			OnEnded: func(models.Track) { ended.Add(1) },
		})
		defer e.Close()

		queue := []models.Track{
			{ID: 1, Title: "First", Preview: srv.URL + "/1.mp3"},
			{ID: 2, Title: "Second", Preview: srv.URL + "/2.mp3"},
		}
		_, err := e.PlayQueue(queue, 0)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return e.State().Duration > 0 }, 5*time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool {
			st := e.State()
			return st.CurrentTrack != nil && st.CurrentTrack.ID == 2
		}, 5*time.Second, 5*time.Millisecond)

		assert.GreaterOrEqual(t, ended.Load(), int32(1))
		st := e.State()
		assert.True(t, st.IsPlaying)
		assert.Len(t, st.Queue, 2)
	})
}

func TestScalePCM(t *testing.T) {
	pcm := func(samples ...int16) []byte {
		var b bytes.Buffer
		for _, s := range samples {
			b.WriteByte(byte(s))
			b.WriteByte(byte(s >> 8))
		}
		return b.Bytes()
	}

	tests := []struct {
		name   string
		volume float64
		in     []int16
		want   []int16
	}{
		{name: "Full Volume", volume: 1, in: []int16{1000, -1000}, want: []int16{1000, -1000}},
		{name: "Half Volume", volume: 0.5, in: []int16{1000, -1000, 32767}, want: []int16{500, -500, 16383}},
		{name: "Muted", volume: 0, in: []int16{1000, -32768}, want: []int16{0, 0}},
		{name: "Above One Clamps", volume: 2, in: []int16{1000}, want: []int16{1000}},
		{name: "Negative Clamps", volume: -1, in: []int16{1000}, want: []int16{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := pcm(tt.in...)
			scalePCM(buf, tt.volume)
			assert.Equal(t, pcm(tt.want...), buf)
		})
	}
}
