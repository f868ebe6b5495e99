package music

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NoneValue is the selection value meaning "none of the candidates".
const NoneValue = "none"

// SelectionOutcome is the single terminal event of a selection flow.
type SelectionOutcome int

const (
	SelectionChosen SelectionOutcome = iota
	SelectionNone
	SelectionTimeout
	SelectionCanceled
)

// Selection is a transient flow offering candidates to one requester. It
// resolves exactly once: with the requester's choice, with "none", or by
// timeout. Choices from anyone but the requester are ignored.
type Selection struct {
	ID          string
	RequesterID string
	Candidates  []Candidate

	mu       sync.Mutex
	resolved bool
	choice   chan string
}

func NewSelection(requesterID string, candidates []Candidate) *Selection {
	return &Selection{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Candidates:  candidates,
		choice:      make(chan string, 1),
	}
}

// Offer submits a choice. It reports false when the chooser is not the
// requester or the flow already resolved; such offers have no effect.
func (f *Selection) Offer(userID, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolved || userID != f.RequesterID {
		return false
	}
	f.resolved = true
	f.choice <- value
	return true
}

// Await blocks until the flow resolves. After a timeout fires, any late
// Offer is ignored.
func (f *Selection) Await(ctx context.Context, timeout time.Duration) (string, SelectionOutcome) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-f.choice:
		return f.outcome(v)
	case <-timer.C:
		// A choice that won the race against the timer still counts.
		select {
		case v := <-f.choice:
			return f.outcome(v)
		default:
		}
		f.mu.Lock()
		f.resolved = true
		f.mu.Unlock()
		return "", SelectionTimeout
	case <-ctx.Done():
		f.mu.Lock()
		f.resolved = true
		f.mu.Unlock()
		return "", SelectionCanceled
	}
}

func (f *Selection) outcome(v string) (string, SelectionOutcome) {
	if v == NoneValue {
		return "", SelectionNone
	}
	return v, SelectionChosen
}
