package music

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu        sync.Mutex
	alive     bool
	listeners int
	destroyed int
}

func (c *fakeConn) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed++
	c.alive = false
	return nil
}

func (c *fakeConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *fakeConn) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listeners
}

func (c *fakeConn) setListeners(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = n
}

type fakeProvider struct {
	mu    sync.Mutex
	conn  *fakeConn
	opens int
	err   error
}

func (p *fakeProvider) Open(_ context.Context, _, _ string) (Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens++
	if p.err != nil {
		return nil, p.err
	}
	p.conn.mu.Lock()
	p.conn.alive = true
	p.conn.mu.Unlock()
	return p.conn, nil
}

type fakeSink struct {
	mu       sync.Mutex
	plays    int
	stops    int
	lastIdle func()
}

func (s *fakeSink) Play(stream io.ReadCloser, onIdle func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	s.lastIdle = onIdle
	stream.Close()
	return nil
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

// fireIdle simulates the sink reporting that the stream ended on its own.
func (s *fakeSink) fireIdle() {
	s.mu.Lock()
	idle := s.lastIdle
	s.mu.Unlock()
	if idle != nil {
		idle()
	}
}

type fakeSinkFactory struct {
	mu    sync.Mutex
	sink  *fakeSink
	binds int
}

func (f *fakeSinkFactory) Bind(_ Connection) (Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds++
	return f.sink, nil
}

type fakeResolver struct {
	mu         sync.Mutex
	songs      map[string][]Song // input -> resolved songs
	skipped    map[string]int    // input -> dropped playlist entries
	resolveErr error
	streamErr  map[string]error // url -> open failure
	openCalls  int
}

func (r *fakeResolver) Resolve(_ context.Context, input string) ([]Song, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolveErr != nil {
		return nil, 0, r.resolveErr
	}
	return r.songs[input], r.skipped[input], nil
}

func (r *fakeResolver) OpenStream(_ context.Context, url string) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openCalls++
	if err := r.streamErr[url]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader("pcm")), nil
}

func (r *fakeResolver) Search(_ context.Context, _ string, _ int) ([]Candidate, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Send(_ ChannelRef, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type fakeHistory struct {
	mu     sync.Mutex
	played []Song
}

func (h *fakeHistory) RecordPlayed(_ string, song Song) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.played = append(h.played, song)
}

type harness struct {
	registry *Registry
	provider *fakeProvider
	conn     *fakeConn
	sink     *fakeSink
	resolver *fakeResolver
	notify   *fakeNotifier
	history  *fakeHistory
}

func newHarness() *harness {
	h := &harness{
		conn:     &fakeConn{listeners: 1},
		sink:     &fakeSink{},
		notify:   &fakeNotifier{},
		history:  &fakeHistory{},
		resolver: &fakeResolver{songs: map[string][]Song{}, skipped: map[string]int{}, streamErr: map[string]error{}},
	}
	h.provider = &fakeProvider{conn: h.conn}
	cfg := DefaultConfig()
	cfg.ReconnectGrace = 10 * time.Millisecond
	h.registry = NewRegistry(Deps{
		Provider: h.provider,
		Sinks:    &fakeSinkFactory{sink: h.sink},
		Resolver: h.resolver,
		Notify:   h.notify,
		History:  h.history,
	}, cfg)
	return h
}

func (h *harness) addSingle(input, title string, duration int) {
	h.resolver.songs[input] = []Song{{Title: title, Duration: duration, URL: "https://example.com/" + input}}
}

func TestSession_EnqueueStartsPlaying(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	assert.Equal(t, StateIdle, sess.State())

	res, err := sess.AddSong(context.Background(), "vc1", "text1", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	assert.Equal(t, StatePlaying, sess.State())
	current, _, playing := sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "Song A", current.Title)
	assert.NotZero(t, current.StartedAt)
	assert.Equal(t, 0, sess.QueueLen())

	// A second enqueue while playing only queues.
	h.addSingle("b", "Song B", 90)
	_, err = sess.AddSong(context.Background(), "vc1", "text1", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.QueueLen())
	current, _, _ = sess.NowPlaying()
	assert.Equal(t, "Song A", current.Title)
}

func TestSession_ConnectionAndSinkAreIdempotent(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)
	_, err = sess.AddSong(context.Background(), "vc1", "t", "b")
	require.NoError(t, err)

	assert.Equal(t, 1, h.provider.opens)
}

func TestSession_EnqueueFromDifferentChannelRestartsPlayback(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	h.sink.mu.Lock()
	staleIdle := h.sink.lastIdle
	h.sink.mu.Unlock()

	// Requester moved channels; the old connection is torn down and the
	// new song must actually start playing on the new one.
	_, err = sess.AddSong(context.Background(), "vc2", "t", "b")
	require.NoError(t, err)

	assert.Equal(t, StatePlaying, sess.State())
	current, _, playing := sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "Song B", current.Title)
	assert.Equal(t, 0, sess.QueueLen())
	assert.Equal(t, 2, h.provider.opens)
	assert.Equal(t, 1, h.conn.destroyed)
	h.sink.mu.Lock()
	assert.Equal(t, 2, h.sink.plays)
	h.sink.mu.Unlock()

	// An idle event from the abandoned playback is stale and must not
	// disturb the new one.
	staleIdle()
	current, _, playing = sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "Song B", current.Title)
}

func TestSession_AddSongReportsSkippedPlaylistEntries(t *testing.T) {
	h := newHarness()
	h.resolver.songs["pl"] = []Song{
		{Title: "One", Duration: 60, URL: "https://example.com/1"},
		{Title: "Two", Duration: 60, URL: "https://example.com/2"},
	}
	h.resolver.skipped["pl"] = 3

	sess := h.registry.GetOrCreate("g1")
	res, err := sess.AddSong(context.Background(), "vc1", "t", "pl")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, "One", res.Title)
}

func TestSession_SinkIdleAdvances(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)
	_, err = sess.AddSong(context.Background(), "vc1", "t", "b")
	require.NoError(t, err)
	require.Equal(t, 1, sess.QueueLen())

	h.sink.fireIdle()

	current, _, playing := sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "Song B", current.Title)
	assert.Equal(t, 0, sess.QueueLen())
}

func TestSession_SinkIdleEmptyQueueSettlesConnectedIdle(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	h.sink.fireIdle()

	assert.Equal(t, StateConnectedIdle, sess.State())
	_, _, playing := sess.NowPlaying()
	assert.False(t, playing)
}

func TestSession_SinkIdleNoListenersTearsDown(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	h.conn.setListeners(0)
	h.sink.fireIdle()

	assert.Equal(t, StateTornDown, sess.State())
	assert.Equal(t, 1, h.conn.destroyed)

	// The registry hands out a fresh session afterwards.
	fresh := h.registry.GetOrCreate("g1")
	assert.NotSame(t, sess, fresh)
	assert.Equal(t, StateIdle, fresh.State())
}

func TestSession_BoundedRetryOnStreamFailures(t *testing.T) {
	h := newHarness()
	playlist := make([]Song, 0, 4)
	for _, title := range []string{"p1", "p2", "p3", "p4"} {
		url := "https://example.com/" + title
		playlist = append(playlist, Song{Title: title, Duration: 60, URL: url})
		h.resolver.streamErr[url] = errors.New("boom")
	}
	h.resolver.songs["playlist"] = playlist

	sess := h.registry.GetOrCreate("g1")
	res, err := sess.AddSong(context.Background(), "vc1", "t", "playlist")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Added)

	// One open attempt per queued song, then connected-idle. No loop.
	assert.Equal(t, 4, h.resolver.openCalls)
	assert.Equal(t, StateConnectedIdle, sess.State())
	assert.Equal(t, 0, sess.QueueLen())

	msgs := h.notify.messages()
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.Contains(t, m, "Failed stream")
	}
}

func TestSession_AdvanceSkipsFailingSong(t *testing.T) {
	h := newHarness()
	h.resolver.songs["mix"] = []Song{
		{Title: "bad", Duration: 60, URL: "https://example.com/bad"},
		{Title: "good", Duration: 60, URL: "https://example.com/good"},
	}
	h.resolver.streamErr["https://example.com/bad"] = errors.New("gone")

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "mix")
	require.NoError(t, err)

	current, _, playing := sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "good", current.Title)
}

func TestSession_SkipNothingPlaying(t *testing.T) {
	h := newHarness()
	sess := h.registry.GetOrCreate("g1")

	_, ok := sess.Skip()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, sess.State())
}

func TestSession_SkipAdvancesAndDropsStaleIdle(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	h.sink.mu.Lock()
	staleIdle := h.sink.lastIdle
	h.sink.mu.Unlock()

	_, err = sess.AddSong(context.Background(), "vc1", "t", "b")
	require.NoError(t, err)

	title, ok := sess.Skip()
	require.True(t, ok)
	assert.Equal(t, "Song A", title)

	current, _, playing := sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "Song B", current.Title)

	// An idle event from the skipped playback must not disturb Song B.
	staleIdle()
	current, _, playing = sess.NowPlaying()
	require.True(t, playing)
	assert.Equal(t, "Song B", current.Title)
}

func TestSession_SkipLastSongStopsPlayback(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	title, ok := sess.Skip()
	require.True(t, ok)
	assert.Equal(t, "Song A", title)
	assert.Equal(t, StateConnectedIdle, sess.State())
}

func TestSession_StopClearsQueueKeepsConnection(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)
	_, err = sess.AddSong(context.Background(), "vc1", "t", "b")
	require.NoError(t, err)

	assert.True(t, sess.Stop())
	assert.Equal(t, StateConnectedIdle, sess.State())
	assert.Equal(t, 0, sess.QueueLen())
	assert.Zero(t, h.conn.destroyed)

	// Stop with nothing playing and nothing queued reports no effect.
	assert.False(t, sess.Stop())
}

func TestSession_ClearQueue(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)
	h.addSingle("c", "Song C", 30)

	sess := h.registry.GetOrCreate("g1")
	for _, in := range []string{"a", "b", "c"} {
		_, err := sess.AddSong(context.Background(), "vc1", "t", in)
		require.NoError(t, err)
	}
	require.Equal(t, 2, sess.QueueLen()) // "a" is playing

	pos := 5
	assert.Equal(t, RemoveOutOfRange, sess.ClearQueue(&pos))

	pos = 1
	assert.Equal(t, RemovedOne, sess.ClearQueue(&pos))
	assert.Equal(t, 1, sess.QueueLen())

	assert.Equal(t, ClearedAll, sess.ClearQueue(nil))
	assert.Equal(t, 0, sess.QueueLen())
	assert.Equal(t, ClearEmpty, sess.ClearQueue(nil))
}

func TestSession_LeaveTearsDown(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	sess.Leave()
	assert.Equal(t, StateTornDown, sess.State())
	assert.Equal(t, 1, h.conn.destroyed)

	_, err = sess.AddSong(context.Background(), "vc1", "t", "a")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_LeaveIfAbandoned(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	assert.False(t, sess.LeaveIfAbandoned(), "listeners still present")

	h.conn.setListeners(0)
	assert.True(t, sess.LeaveIfAbandoned())
	assert.Equal(t, StateTornDown, sess.State())
}

func TestSession_ConnectionLossGraceWindow(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)

	t.Run("recovered connection survives", func(t *testing.T) {
		sess.HandleConnectionLoss()
		assert.Equal(t, StatePlaying, sess.State())
	})

	t.Run("dead connection is torn down", func(t *testing.T) {
		h.conn.mu.Lock()
		h.conn.alive = false
		h.conn.mu.Unlock()
		sess.HandleConnectionLoss()
		assert.Equal(t, StateTornDown, sess.State())
	})
}

func TestSession_ResolveFailureLeavesQueueUntouched(t *testing.T) {
	h := newHarness()
	h.resolver.resolveErr = errors.New("resolver down")

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.Error(t, err)
	assert.Equal(t, 0, sess.QueueLen())
	assert.Equal(t, StateIdle, sess.State())
	assert.Zero(t, h.provider.opens)
}

func TestSession_HistoryRecordsStartedSongs(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)
	h.addSingle("b", "Song B", 90)

	sess := h.registry.GetOrCreate("g1")
	_, err := sess.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)
	_, err = sess.AddSong(context.Background(), "vc1", "t", "b")
	require.NoError(t, err)
	h.sink.fireIdle()

	h.history.mu.Lock()
	defer h.history.mu.Unlock()
	require.Len(t, h.history.played, 2)
	assert.Equal(t, "Song A", h.history.played[0].Title)
	assert.Equal(t, "Song B", h.history.played[1].Title)
}

func TestRegistry_ReplaceWithoutExistingSession(t *testing.T) {
	h := newHarness()
	sess := h.registry.Replace("never-seen")
	require.NotNil(t, sess)
	assert.Equal(t, StateIdle, sess.State())
}

func TestRegistry_GetDoesNotCreate(t *testing.T) {
	h := newHarness()

	_, ok := h.registry.Get("g1")
	assert.False(t, ok)

	created := h.registry.GetOrCreate("g1")
	got, ok := h.registry.Get("g1")
	require.True(t, ok)
	assert.Same(t, created, got)

	created.Leave()
	_, ok = h.registry.Get("g1")
	assert.False(t, ok, "torn-down session counts as absent")
}

func TestRegistry_IsolatedPerGuild(t *testing.T) {
	h := newHarness()
	h.addSingle("a", "Song A", 120)

	s1 := h.registry.GetOrCreate("g1")
	s2 := h.registry.GetOrCreate("g2")
	require.NotSame(t, s1, s2)

	_, err := s1.AddSong(context.Background(), "vc1", "t", "a")
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, s1.State())
	assert.Equal(t, StateIdle, s2.State())
}
