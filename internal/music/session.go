package music

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// State names the phase a session is in. It is derived from the session's
// handles, not stored separately.
type State int

const (
	StateIdle          State = iota // no connection, nothing playing
	StateConnectedIdle              // connected, nothing playing
	StatePlaying                    // connection and sink active, current set
	StateTornDown                   // terminal, session awaits replacement
)

func (st State) String() string {
	switch st {
	case StateIdle:
		return "idle"
	case StateConnectedIdle:
		return "connected-idle"
	case StatePlaying:
		return "playing"
	default:
		return "torn-down"
	}
}

var ErrSessionClosed = errors.New("session is torn down")

// Config holds per-session policy knobs.
type Config struct {
	PreviewLimit     int           // max entries a queue preview renders
	SearchLimit      int           // candidates offered by a search
	SelectionTimeout time.Duration // how long a selection flow waits
	ReconnectGrace   time.Duration // wait before declaring a lost connection dead
}

func DefaultConfig() Config {
	return Config{
		PreviewLimit:     DefaultPreviewLimit,
		SearchLimit:      5,
		SelectionTimeout: 300 * time.Second,
		ReconnectGrace:   5 * time.Second,
	}
}

// Deps are the external collaborators a session drives.
type Deps struct {
	Provider ConnectionProvider
	Sinks    SinkFactory
	Resolver Resolver
	Notify   Notifier
	History  HistoryRecorder // optional
}

// Session orchestrates playback for one guild: it owns the queue, at most one
// voice connection and one sink, and the playing/current pair. Every
// transition runs under one mutex; asynchronous sink-idle and connection-loss
// signals funnel through the same lock as user commands.
type Session struct {
	mu      sync.Mutex
	guildID string
	queue   *Queue
	playing bool
	current *Song

	conn      Connection
	sink      Sink
	channelID string // voice channel the connection is bound to
	closed    bool
	playGen   uint64 // bumped on every start/stop; stale idle events carry an old value

	deps Deps
	cfg  Config
	log  zerolog.Logger
}

func newSession(guildID string, deps Deps, cfg Config) *Session {
	return &Session{
		guildID: guildID,
		queue:   NewQueue(),
		deps:    deps,
		cfg:     cfg,
		log:     zlog.With().Str("component", "session").Str("guild", guildID).Logger(),
	}
}

// AddResult reports what an AddSong call queued.
type AddResult struct {
	Added   int    // songs appended to the queue
	Skipped int    // playlist entries that failed to resolve
	Title   string // title of the first added song
}

// AddSong resolves input, appends the result to the queue, makes sure a
// connection and sink exist for voiceChannelID, and starts playback when the
// session is idle. The resolver call runs outside the session lock.
func (s *Session) AddSong(ctx context.Context, voiceChannelID string, origin ChannelRef, input string) (AddResult, error) {
	songs, skipped, err := s.deps.Resolver.Resolve(ctx, input)
	if err != nil {
		s.log.Warn().Err(err).Str("input", input).Msg("resolve failed")
		return AddResult{}, err
	}
	if len(songs) == 0 {
		return AddResult{}, errors.New("nothing resolved for input")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return AddResult{}, ErrSessionClosed
	}

	res := AddResult{Title: songs[0].Title, Skipped: skipped}
	for _, song := range songs {
		song.Origin = origin
		s.queue.Enqueue(song)
		res.Added++
	}
	s.log.Info().Int("added", res.Added).Int("queue_len", s.queue.Len()).Msg("songs queued")

	if err := s.ensureConnectionLocked(ctx, voiceChannelID); err != nil {
		return res, err
	}
	if err := s.ensureSinkLocked(); err != nil {
		return res, err
	}
	if !s.playing {
		s.advanceLocked(ctx)
	}
	return res, nil
}

// ensureConnectionLocked opens a voice connection if none usable exists.
// Creating a new connection always destroys the prior one first, so at most
// one exists at any time.
func (s *Session) ensureConnectionLocked(ctx context.Context, channelID string) error {
	if s.conn != nil && s.conn.Alive() && s.channelID == channelID {
		return nil
	}
	if s.conn != nil {
		if s.sink != nil {
			s.sink.Stop()
			s.sink = nil
		}
		// Stopping the sink here produces no idle event, so playback state
		// has to be reset now or the session would claim Playing forever.
		// The caller's advance restarts playback on the new connection.
		if s.playing {
			s.playGen++
			s.playing = false
			s.current = nil
		}
		s.conn.Destroy()
		s.conn = nil
	}
	conn, err := s.deps.Provider.Open(ctx, s.guildID, channelID)
	if err != nil {
		return err
	}
	s.conn = conn
	s.channelID = channelID
	s.log.Info().Str("channel", channelID).Msg("voice connection opened")
	return nil
}

func (s *Session) ensureSinkLocked() error {
	if s.sink != nil {
		return nil
	}
	sink, err := s.deps.Sinks.Bind(s.conn)
	if err != nil {
		return err
	}
	s.sink = sink
	return nil
}

// advanceLocked pops songs off the queue until one starts playing or the
// queue drains. A failed stream open never aborts the pass; the loop is
// bounded because every iteration consumes a queue entry.
func (s *Session) advanceLocked(ctx context.Context) {
	for {
		song, ok := s.queue.Next()
		if !ok {
			s.log.Debug().Msg("queue drained, settling idle")
			return
		}

		stream, err := s.deps.Resolver.OpenStream(ctx, song.URL)
		if err != nil {
			s.log.Warn().Err(err).Str("title", song.Title).Msg("stream open failed, trying next")
			s.deps.Notify.Send(song.Origin, "Failed stream: "+song.Title)
			continue
		}

		song.StartedAt = time.Now().Unix()
		s.playGen++
		gen := s.playGen
		if err := s.sink.Play(stream, func() { s.handleSinkIdle(gen) }); err != nil {
			stream.Close()
			s.log.Warn().Err(err).Str("title", song.Title).Msg("sink rejected stream, trying next")
			s.deps.Notify.Send(song.Origin, "Failed stream: "+song.Title)
			continue
		}

		s.current = &song
		s.playing = true
		if s.deps.History != nil {
			s.deps.History.RecordPlayed(s.guildID, song)
		}
		s.log.Info().Str("title", song.Title).Int("queue_len", s.queue.Len()).Msg("playing")
		s.deps.Notify.Send(song.Origin, "Playing: "+song.Title)
		return
	}
}

// handleSinkIdle runs when a stream ended on its own. It advances the queue,
// or tears the session down when the channel has no listeners left. Idle
// events from a playback that Skip or Stop already ended are stale and
// dropped.
func (s *Session) handleSinkIdle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.playGen {
		return
	}
	s.playing = false
	s.current = nil

	if s.conn != nil && s.conn.ListenerCount() == 0 {
		s.log.Info().Msg("no listeners left, tearing down")
		s.teardownLocked()
		return
	}
	if s.queue.Len() > 0 {
		s.advanceLocked(context.Background())
	}
}

// Skip stops the current song and advances. Returns the skipped title; ok is
// false when nothing was playing.
func (s *Session) Skip() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || s.current == nil {
		return "", false
	}
	title := s.current.Title
	s.sink.Stop()
	s.playGen++
	s.playing = false
	s.current = nil

	if s.queue.Len() > 0 {
		s.advanceLocked(context.Background())
	}
	s.log.Info().Str("title", title).Msg("skipped")
	return title, true
}

// Stop halts playback and clears the queue. The connection stays up. Returns
// false when there was neither playback to stop nor a queue to clear.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.playing
	if s.sink != nil {
		s.sink.Stop()
	}
	s.playGen++
	s.playing = false
	s.current = nil
	cleared := s.queue.Clear()
	s.log.Info().Bool("was_playing", stopped).Bool("queue_cleared", cleared).Msg("stopped")
	return stopped || cleared
}

// Shuffle permutes the queued songs. Returns false when the queue is empty.
func (s *Session) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Shuffle()
}

// ClearResult distinguishes the outcomes of ClearQueue.
type ClearResult int

const (
	ClearEmpty       ClearResult = iota // nothing queued to clear
	ClearedAll                          // whole queue emptied
	RemovedOne                          // entry at position removed
	RemoveOutOfRange                    // position outside the queue
)

// ClearQueue empties the whole queue when position is nil, or removes the
// 1-based entry it points at. Invalid positions are reported, never fatal.
func (s *Session) ClearQueue(position *int) ClearResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position == nil {
		if s.queue.Clear() {
			return ClearedAll
		}
		return ClearEmpty
	}
	if s.queue.Remove(*position) {
		return RemovedOne
	}
	return RemoveOutOfRange
}

// NowPlaying returns the current song and its remaining seconds.
func (s *Session) NowPlaying() (Song, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || s.current == nil {
		return Song{}, 0, false
	}
	elapsed := int(time.Now().Unix() - s.current.StartedAt)
	remaining := s.current.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return *s.current, remaining, true
}

// QueuePreview renders the queue, seeding the total with the time left on
// the current song.
func (s *Session) QueuePreview() Preview {
	s.mu.Lock()
	defer s.mu.Unlock()

	extra := 0
	if s.playing && s.current != nil {
		elapsed := int(time.Now().Unix() - s.current.StartedAt)
		if extra = s.current.Duration - elapsed; extra < 0 {
			extra = 0
		}
	}
	return s.queue.Preview(s.cfg.PreviewLimit, extra)
}

// Leave stops playback, destroys the connection and discards the queue. The
// session is terminal afterwards; the registry hands out a fresh one.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// LeaveIfAbandoned tears down only when the bound channel has no listeners
// left. Returns whether a teardown happened.
func (s *Session) LeaveIfAbandoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.conn == nil || s.conn.ListenerCount() > 0 {
		return false
	}
	s.teardownLocked()
	return true
}

// HandleConnectionLoss reacts to an unexpected transport drop: it waits one
// grace window for an automatic reconnect and tears down if the connection
// did not come back. Run it from its own goroutine.
func (s *Session) HandleConnectionLoss() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	time.Sleep(s.cfg.ReconnectGrace)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conn == nil || s.conn.Alive() {
		return
	}
	s.log.Warn().Msg("connection did not recover, tearing down")
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	if s.closed {
		return
	}
	s.playGen++
	if s.sink != nil {
		s.sink.Stop()
		s.sink = nil
	}
	if s.conn != nil {
		s.conn.Destroy()
		s.conn = nil
	}
	s.queue = NewQueue()
	s.playing = false
	s.current = nil
	s.channelID = ""
	s.closed = true
	s.log.Info().Msg("session torn down")
}

// Closed reports whether the session is terminal.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// State derives the named session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return StateTornDown
	case s.playing:
		return StatePlaying
	case s.conn != nil:
		return StateConnectedIdle
	default:
		return StateIdle
	}
}

// QueueLen reports the number of queued songs.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Config returns the session's policy knobs.
func (s *Session) Config() Config {
	return s.cfg
}
