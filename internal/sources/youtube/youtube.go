// Package youtube resolves YouTube locators into playable songs. Metadata,
// playlists and stream URLs come from the YouTube client; free-text search
// scrapes the results page; decoding to PCM goes through ffmpeg.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"quaver/internal/music"

	yt "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var (
	ErrNotYouTube   = errors.New("input is not a YouTube URL")
	ErrNoVideoMatch = errors.New("no video found for the given query")
)

type Resolver struct {
	client  *yt.Client
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

func New() *Resolver {
	return &Resolver{
		client:  &yt.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}},
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://www.youtube.com",
		log:     zlog.With().Str("component", "youtube").Logger(),
	}
}

// Resolve expands input into songs: a video URL yields one song, a playlist
// URL yields every entry in playlist order, free text yields the top search
// hit. Playlist entries without usable metadata are skipped; the int reports
// how many.
func (r *Resolver) Resolve(ctx context.Context, input string) ([]music.Song, int, error) {
	switch {
	case isPlaylistURL(input):
		return r.resolvePlaylist(ctx, input)
	case isVideoURL(input):
		songs, err := r.resolveVideo(ctx, input)
		return songs, 0, err
	case isURL(input):
		return nil, 0, ErrNotYouTube
	default:
		ids, err := r.searchVideoIDs(ctx, input, 1)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return nil, 0, ErrNoVideoMatch
		}
		songs, err := r.resolveVideo(ctx, watchURL(ids[0]))
		return songs, 0, err
	}
}

func (r *Resolver) resolveVideo(ctx context.Context, url string) ([]music.Song, error) {
	id, err := extractVideoID(url)
	if err != nil {
		return nil, err
	}
	video, err := r.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", id, err)
	}
	return []music.Song{{
		Title:    video.Title,
		Duration: int(video.Duration.Seconds()),
		URL:      watchURL(video.ID),
	}}, nil
}

func (r *Resolver) resolvePlaylist(ctx context.Context, url string) ([]music.Song, int, error) {
	playlist, err := r.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch playlist: %w", err)
	}

	songs := make([]music.Song, 0, len(playlist.Videos))
	skipped := 0
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			skipped++
			continue
		}
		songs = append(songs, music.Song{
			Title:    entry.Title,
			Duration: int(entry.Duration.Seconds()),
			URL:      watchURL(entry.ID),
		})
	}
	if len(songs) == 0 {
		return nil, skipped, errors.New("playlist has no playable entries")
	}
	r.log.Debug().Int("entries", len(songs)).Int("skipped", skipped).Msg("playlist resolved")
	return songs, skipped, nil
}

// Search returns up to limit candidates for a free-text query. Videos whose
// metadata cannot be fetched are dropped rather than failing the search.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]music.Candidate, error) {
	ids, err := r.searchVideoIDs(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]music.Candidate, 0, len(ids))
	for _, id := range ids {
		video, err := r.client.GetVideoContext(ctx, id)
		if err != nil {
			r.log.Debug().Err(err).Str("video", id).Msg("dropping search hit")
			continue
		}
		candidates = append(candidates, music.Candidate{
			Title:    video.Title,
			Author:   video.Author,
			Duration: int(video.Duration.Seconds()),
			Views:    video.Views,
			URL:      watchURL(video.ID),
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoVideoMatch
	}
	return candidates, nil
}
