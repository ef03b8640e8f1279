package residual

import (
	"errors"
	"fmt"

	"bead-fixer/internal/alignlog"
)

var (
	ErrNoResidualData  = alignlog.ErrNoResidualData
	ErrNoMoreResiduals = errors.New("no more residuals")
	ErrNoPrevious      = errors.New("no previous residual")
	ErrNoSuchArea      = errors.New("no such area")
	ErrNoMoreAreas     = errors.New("no more local areas")
	ErrNotInLocalArea  = errors.New("not in a local area")

	// ErrUnresolvable is the class of failures to match a log row to a
	// model point.
	ErrUnresolvable    = errors.New("residual does not match a model point")
	ErrObjectNotFound  = errors.New("object not found")
	ErrContourNotFound = errors.New("contour not found")
	ErrPointNotFound   = errors.New("point not found in contour")
	ErrTooFar          = errors.New("point too far from logged position")

	ErrNothingResolved     = errors.New("no residual point to move")
	ErrAlreadyMoved        = errors.New("point already moved by its residual")
	ErrStalePointSelection = errors.New("current point is not the point with the last residual examined")
	ErrNotRevertible       = errors.New("moved point no longer exists or is not close enough to where it was moved to")
)

// UnresolvableError reports a log row that could not be matched to a live
// model point.
type UnresolvableError struct {
	Row    int
	Key    alignlog.Key
	Reason error
}

func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("residual %d (%s): %v", e.Row+1, e.Key, e.Reason)
}

// Unwrap lets errors.Is match both ErrUnresolvable and the reason.
func (e *UnresolvableError) Unwrap() []error {
	return []error{ErrUnresolvable, e.Reason}
}
