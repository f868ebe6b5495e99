// Package storage keeps per-guild play history on top of the datastore.
// Queue contents are never persisted; history only records songs that
// actually started playing.
package storage

import (
	"time"

	"quaver/internal/datastore"
	"quaver/internal/music"
)

const historyLimit = 12

type Storage struct {
	ds *datastore.DataStore
}

// PlayedRecord is one history entry, newest first.
type PlayedRecord struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Duration int       `json:"duration"`
	PlayedAt time.Time `json:"played_at"`
}

type guildRecord struct {
	History []PlayedRecord `json:"history"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// RecordPlayed implements music.HistoryRecorder. Write failures are logged by
// the datastore and never bubble into playback.
func (s *Storage) RecordPlayed(guildID string, song music.Song) {
	var rec guildRecord
	_, _ = s.ds.Get(guildID, &rec)

	rec.History = append([]PlayedRecord{{
		Title:    song.Title,
		URL:      song.URL,
		Duration: song.Duration,
		PlayedAt: time.Unix(song.StartedAt, 0).UTC(),
	}}, rec.History...)
	if len(rec.History) > historyLimit {
		rec.History = rec.History[:historyLimit]
	}

	_ = s.ds.Set(guildID, &rec)
}

// ClearHistory erases the guild's play history.
func (s *Storage) ClearHistory(guildID string) {
	s.ds.Delete(guildID)
}

// History returns the guild's play history, newest first.
func (s *Storage) History(guildID string) []PlayedRecord {
	var rec guildRecord
	if ok, err := s.ds.Get(guildID, &rec); !ok || err != nil {
		return nil
	}
	return rec.History
}
