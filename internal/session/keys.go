package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// HandleKey runs the action bound to key in the current mode. It reports
// whether the key is bound; the error is the action's result.
//
//	'   next residual        (residual mode)
//	"   back up              (residual mode)
//	;   move point           (residual mode)
//	:   move all in area     (residual mode)
//	u   undo move            (residual mode)
//	sp  next gap             (gap mode)
//	/   toggle overlay       (seed mode)
func (s *Session) HandleKey(key rune) (bool, error) {
	mode := s.Mode()
	switch {
	case mode == ModeResidual:
		switch key {
		case '\'':
			_, err := s.NextResidual()
			return true, err
		case '"':
			_, err := s.BackUp()
			return true, err
		case ';':
			return true, s.MovePoint()
		case ':':
			_, err := s.MoveAll()
			return true, err
		case 'u', 'U':
			return true, s.UndoMove()
		}
	case mode == ModeGap && key == ' ':
		_, err := s.NextGap()
		return true, err
	case mode == ModeSeed && key == '/':
		s.ToggleOverlay()
		return true, nil
	}
	return false, nil
}

// Action is a remote request, as sent by a controlling program.
type Action int

const (
	// ActionOpenFile opens a log unless one is already open; arg: path.
	ActionOpenFile Action = iota + 1
	// ActionReread rereads the open log; ignored when none is open.
	ActionReread
	// ActionSeedMode sets automatic new contours; arg: 0 or 1.
	ActionSeedMode
	// ActionAutoCenter sets autocentering; arg: 0 or 1.
	ActionAutoCenter
	// ActionDiameter sets the bead diameter; arg: pixels.
	ActionDiameter
	// ActionOperation selects the mode; arg: 0 seed, 1 gap, 2 residual.
	ActionOperation
)

var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrMissingArgument = errors.New("missing argument")
)

// Execute runs a remote action.
func (s *Session) Execute(action Action, args ...string) error {
	arg := func() (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("action %d: %w", action, ErrMissingArgument)
		}
		return args[0], nil
	}
	intArg := func() (int, error) {
		a, err := arg()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(a)
		if err != nil {
			return 0, fmt.Errorf("action %d: %w", action, err)
		}
		return n, nil
	}

	switch action {
	case ActionOpenFile:
		path, err := arg()
		if err != nil {
			return err
		}
		if s.LogPath() != "" {
			return nil
		}
		return s.OpenLog(path)

	case ActionReread:
		if s.LogPath() == "" {
			return nil
		}
		return s.Reread()

	case ActionSeedMode:
		n, err := intArg()
		if err != nil {
			return err
		}
		s.UpdateSettings(func(st *Settings) { st.AutoNewContour = n != 0 })
		return nil

	case ActionAutoCenter:
		n, err := intArg()
		if err != nil {
			return err
		}
		s.UpdateSettings(func(st *Settings) { st.AutoCenter = n != 0 })
		return nil

	case ActionDiameter:
		a, err := arg()
		if err != nil {
			return err
		}
		d, err := strconv.ParseFloat(a, 64)
		if err != nil || !(d > 0) || math.IsInf(d, 1) {
			return fmt.Errorf("action %d: bad diameter %q", action, a)
		}
		s.UpdateSettings(func(st *Settings) { st.Diameter = d })
		return nil

	case ActionOperation:
		n, err := intArg()
		if err != nil {
			return err
		}
		s.SetMode(Mode(min(2, max(0, n))))
		return nil
	}
	return fmt.Errorf("action %d: %w", action, ErrUnknownAction)
}

// ExecuteFields runs a message given as text fields: an action number
// followed by its argument.
func (s *Session) ExecuteFields(fields []string) error {
	if len(fields) == 0 {
		return ErrMissingArgument
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("action %q: %w", fields[0], ErrUnknownAction)
	}
	return s.Execute(Action(n), fields[1:]...)
}
