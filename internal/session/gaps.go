package session

import (
	"bead-fixer/internal/gap"
	"bead-fixer/internal/status"
)

// NextGap jumps to the next gap in the model.
func (s *Session) NextGap() (*gap.Gap, error) {
	return s.findGap(gap.Forward)
}

// PrevGap jumps to the previous gap in the model.
func (s *Session) PrevGap() (*gap.Gap, error) {
	return s.findGap(gap.Backward)
}

func (s *Session) findGap(dir gap.Direction) (*gap.Gap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.gaps.FindNext(&s.cursor, dir)
	if err != nil {
		return nil, err
	}
	s.marker = g.Arrow
	if p, ok := s.model.Point(g.Index()); ok {
		s.section = p.Section()
	}
	return g, nil
}

// Reattach selects the point at the last gap again, so points inserted
// next go into its contour.
func (s *Session) Reattach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gaps.Reattach(&s.cursor) {
		return false
	}
	if g, ok := s.gaps.Last(&s.cursor); ok {
		s.marker = g.Arrow
	}
	return true
}

// ResetStart makes the next gap search start from the beginning.
func (s *Session) ResetStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.Reset()
}

// ResetCurrent makes the next gap search resume from the current point.
func (s *Session) ResetCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gaps.ResetToCurrent(&s.cursor)
	if s.cursor.Initialized {
		status.Infof(s.sink, "Gap search resumes at %s", s.model.CurrentIndex())
	}
}

// GapCursor returns where the gap search stands.
func (s *Session) GapCursor() gap.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
