package residual

import "bead-fixer/internal/alignlog"

// LookedSet remembers which points have been shown. Entries are never
// physically removed while the set is in use: Remove marks them dead so
// positions of other entries stay stable.
type LookedSet struct {
	entries []lookedEntry
}

type lookedEntry struct {
	key     alignlog.Key
	removed bool
}

// Contains reports whether a live entry matches k exactly.
func (s *LookedSet) Contains(k alignlog.Key) bool {
	for _, e := range s.entries {
		if !e.removed && e.key == k {
			return true
		}
	}
	return false
}

// Add records k.
func (s *LookedSet) Add(k alignlog.Key) {
	s.entries = append(s.entries, lookedEntry{key: k})
}

// Remove marks every live entry matching k as removed and returns how many
// it marked.
func (s *LookedSet) Remove(k alignlog.Key) int {
	n := 0
	for i := range s.entries {
		if !s.entries[i].removed && s.entries[i].key == k {
			s.entries[i].removed = true
			n++
		}
	}
	return n
}

// Len returns the number of live entries.
func (s *LookedSet) Len() int {
	n := 0
	for _, e := range s.entries {
		if !e.removed {
			n++
		}
	}
	return n
}

// Reset empties the set.
func (s *LookedSet) Reset() {
	s.entries = s.entries[:0]
}
