package session

import (
	"errors"

	"bead-fixer/internal/alignlog"
	"bead-fixer/internal/residual"
	"bead-fixer/internal/status"
)

// LogPath returns the open alignment log, or "".
func (s *Session) LogPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logPath
}

// Residuals returns the number of residuals loaded and how many are still
// to be examined.
func (s *Session) Residuals() (total, toExamine int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Len(), s.nav.ToExamine()
}

// OpenLog opens an alignment log and reads its residuals.
func (s *Session) OpenLog(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logPath = path
	return s.reread()
}

// Reread reads the open log again, keeping the record of points already
// examined.
func (s *Session) Reread() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reread()
}

func (s *Session) reread() error {
	if s.logPath == "" {
		return ErrNoLogFile
	}
	s.marker = nil

	idx, err := alignlog.ParseFile(s.logPath)
	switch {
	case errors.Is(err, alignlog.ErrIO):
		s.nav.Load(nil)
		status.Alertf(s.sink, "Error opening file!")
		return err
	case errors.Is(err, alignlog.ErrNoResidualData):
		s.nav.Load(idx)
		status.Alertf(s.sink, "Residual data not found")
		return err
	case err != nil:
		s.nav.Load(nil)
		return err
	}

	s.nav.Load(idx)
	if invalid := idx.InvalidCount(); invalid > 0 {
		s.logger.Warn("residual rows with unreadable fields", "log", s.logPath, "rows", invalid)
	}
	if s.settings.LookOnce {
		status.Infof(s.sink, " %d total residuals, %d to examine.", idx.Len(), s.nav.ToExamine())
	} else {
		status.Infof(s.sink, " %d total residuals.", idx.Len())
	}
	s.logger.Info("alignment log read", "log", s.logPath, "residuals", idx.Len(), "areas", len(idx.Areas))
	return nil
}

// NextResidual shows the next residual and selects its point.
func (s *Session) NextResidual() (*residual.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.show(s.nav.Next())
}

// BackUp shows the previous residual again.
func (s *Session) BackUp() (*residual.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.show(s.nav.Previous())
}

// NextLocal skips to the first residual of the next local area.
func (s *Session) NextLocal() (*residual.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.show(s.nav.NextLocal())
}

// show moves the view to a resolved residual and draws its arrow.
func (s *Session) show(v *residual.Visit, err error) (*residual.Visit, error) {
	s.marker = nil
	if v != nil && v.Resolved {
		s.marker = v.Arrow
		if p, ok := s.model.Point(v.Index); ok {
			s.section = p.Section()
		}
	}
	return v, err
}

// MovePoint moves the point of the last residual shown by its residual.
func (s *Session) MovePoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mover.MoveByResidual()
}

// UndoMove puts the last moved point back.
func (s *Session) UndoMove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mover.Undo()
}

// MoveAll moves every remaining point in the current local area.
func (s *Session) MoveAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := residual.MoveAll(s.nav, s.mover)
	s.marker = nil
	if res, ok := s.nav.Resolved(); ok {
		s.marker = res.Arrow
	}
	return n, err
}

// ClearLooked forgets which points have been examined.
func (s *Session) ClearLooked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.ResetLookedAt()
}

// SetLookOnce sets whether examined points are skipped.
func (s *Session) SetLookOnce(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.LookOnce = on
	s.nav.SetLookOnce(on)
}

// Navigator returns the residual navigator. Callers must not use it
// concurrently with the session.
func (s *Session) Navigator() *residual.Navigator { return s.nav }
