package music

import "fmt"

// ChannelRef identifies the text channel a song was requested from. Status
// messages about the song are sent there.
type ChannelRef string

// Song describes one queued track. All fields except StartedAt are fixed at
// resolve time; StartedAt is set once, when playback of the song begins.
type Song struct {
	Title     string
	Duration  int // seconds
	URL       string
	Origin    ChannelRef
	StartedAt int64 // epoch seconds, 0 until playback starts
}

// FormatDuration renders a second count as HH:MM:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
