package music

import "math/rand"

// DefaultPreviewLimit caps how many queue entries a preview renders.
const DefaultPreviewLimit = 20

// Queue is the ordered song list for one guild. It is not safe for concurrent
// use on its own; the owning Session serializes access.
type Queue struct {
	songs []Song
}

func NewQueue() *Queue {
	return &Queue{songs: make([]Song, 0)}
}

// Enqueue appends a song to the tail.
func (q *Queue) Enqueue(s Song) {
	q.songs = append(q.songs, s)
}

// Next removes and returns the head of the queue. The second return value is
// false when the queue is empty.
func (q *Queue) Next() (Song, bool) {
	if len(q.songs) == 0 {
		return Song{}, false
	}
	s := q.songs[0]
	q.songs = q.songs[1:]
	return s, true
}

func (q *Queue) Len() int {
	return len(q.songs)
}

// Remove deletes the entry at a 1-based position. Positions outside
// [1, Len()] leave the queue untouched and report false.
func (q *Queue) Remove(position int) bool {
	if position < 1 || position > len(q.songs) {
		return false
	}
	q.songs = append(q.songs[:position-1], q.songs[position:]...)
	return true
}

// Clear empties the queue. Returns false when there was nothing to clear.
func (q *Queue) Clear() bool {
	if len(q.songs) == 0 {
		return false
	}
	q.songs = make([]Song, 0)
	return true
}

// Shuffle randomly permutes the queued songs in place. Returns false when the
// queue is empty.
func (q *Queue) Shuffle() bool {
	if len(q.songs) == 0 {
		return false
	}
	rand.Shuffle(len(q.songs), func(i, j int) {
		q.songs[i], q.songs[j] = q.songs[j], q.songs[i]
	})
	return true
}

// PreviewEntry is one rendered queue line.
type PreviewEntry struct {
	Position int
	Title    string
}

// Preview is a bounded rendering of the queue: at most limit entries, a count
// of what was cut off, and the total seconds left to play including
// extraSeconds (time remaining on the currently playing track).
type Preview struct {
	Entries   []PreviewEntry
	Omitted   int
	Remaining int
}

func (q *Queue) Preview(limit, extraSeconds int) Preview {
	p := Preview{Remaining: extraSeconds}
	for i, s := range q.songs {
		if i < limit {
			p.Entries = append(p.Entries, PreviewEntry{Position: i + 1, Title: s.Title})
		}
		p.Remaining += s.Duration
	}
	if len(q.songs) > limit {
		p.Omitted = len(q.songs) - limit
	}
	return p
}
