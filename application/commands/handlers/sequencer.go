package handlers

import (
	"sync"

	"mathops/application/ports"
	"mathops/domain/core/valueobjects"
)

// sequencerPruneSize bounds the per-owner map; entries older than the
// current clock reading are no longer needed to break ties.
const sequencerPruneSize = 4096

// TimestampSequencer hands out record timestamps that strictly increase
// per owner within this process. Cross-process collisions are caught by
// the store's uniqueness condition.
type TimestampSequencer struct {
	clock ports.Clock
	mu    sync.Mutex
	last  map[string]int64
}

func NewTimestampSequencer(clock ports.Clock) *TimestampSequencer {
	return &TimestampSequencer{clock: clock, last: make(map[string]int64)}
}

// Next returns a timestamp greater than any previously issued for owner.
func (s *TimestampSequencer) Next(owner valueobjects.Identity) int64 {
	now := s.clock.NowMillis()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.last) >= sequencerPruneSize {
		s.prune(now)
	}

	key := owner.String()
	if prev, ok := s.last[key]; ok && now <= prev {
		now = prev + 1
	}
	s.last[key] = now
	return now
}

// prune drops owners whose last timestamp is already behind the clock.
func (s *TimestampSequencer) prune(clockNow int64) {
	for k, v := range s.last {
		if v < clockNow {
			delete(s.last, k)
		}
	}
}
