package analytics

import (
	"sync"
	"time"
)

const (
	sessionIdleTTL    = 30 * time.Minute
	sessionPruneAbove = 1024
)

type sessionMark struct {
	seq  uint64
	seen time.Time
}

// Sequencer numbers dashboard requests so a response that finishes after a
// newer request from the same session can be flagged as superseded.
type Sequencer struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]sessionMark
	now    func() time.Time
}

func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]sessionMark), now: time.Now}
}

// Begin issues the next sequence number and makes it the latest for session.
// An empty session is numbered but not tracked.
func (s *Sequencer) Begin(session string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	if session == "" {
		return s.next
	}
	now := s.now()
	if len(s.latest) >= sessionPruneAbove {
		s.prune(now)
	}
	s.latest[session] = sessionMark{seq: s.next, seen: now}
	return s.next
}

// Superseded reports whether a newer request for session began after seq.
func (s *Sequencer) Superseded(session string, seq uint64) bool {
	if session == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.latest[session]
	return ok && mark.seq > seq
}

func (s *Sequencer) prune(now time.Time) {
	for session, mark := range s.latest {
		if now.Sub(mark.seen) > sessionIdleTTL {
			delete(s.latest, session)
		}
	}
}
