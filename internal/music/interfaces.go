package music

import (
	"context"
	"io"
)

// Connection is an established voice transport to one channel.
type Connection interface {
	// Destroy tears the transport down. Safe to call more than once.
	Destroy() error
	// Alive reports whether the transport is currently usable.
	Alive() bool
	// ListenerCount returns how many real listeners share the channel,
	// excluding the bot itself.
	ListenerCount() int
}

// ConnectionProvider opens voice connections on demand.
type ConnectionProvider interface {
	Open(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Sink plays decoded audio into a Connection. Play replaces whatever was
// playing before. onIdle is invoked from the sink's playback goroutine when
// the stream ends on its own (EOF or read error), never in response to Stop.
type Sink interface {
	Play(stream io.ReadCloser, onIdle func()) error
	Stop()
}

// SinkFactory binds a Sink to a Connection.
type SinkFactory interface {
	Bind(conn Connection) (Sink, error)
}

// Candidate is one search result offered to the requester.
type Candidate struct {
	Title    string
	Author   string
	Duration int // seconds
	Views    int
	URL      string
}

// Resolver turns locators into playable songs.
type Resolver interface {
	// Resolve expands input (URL, playlist URL or free text) into one or
	// more songs in source order. The int reports playlist entries that
	// were dropped as unplayable. Origin is left empty for the caller to
	// fill in.
	Resolve(ctx context.Context, input string) ([]Song, int, error)
	// OpenStream opens a PCM stream (s16le, 48 kHz, stereo) for a song URL.
	OpenStream(ctx context.Context, url string) (io.ReadCloser, error)
	// Search returns up to limit candidates for a free-text query.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Notifier delivers status text to a channel. Fire and forget: delivery
// failures are the implementation's problem, never the caller's.
type Notifier interface {
	Send(ch ChannelRef, text string)
}

// HistoryRecorder is told about every song that reaches playback.
type HistoryRecorder interface {
	RecordPlayed(guildID string, song Song)
}
