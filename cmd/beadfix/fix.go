package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"bead-fixer/internal/config"
	"bead-fixer/internal/model"
	"bead-fixer/internal/prefs"
	"bead-fixer/internal/project"
	"bead-fixer/internal/session"
	"bead-fixer/internal/status"
	"bead-fixer/internal/volume"
)

var (
	fixModel   string
	fixLog     string
	fixProject string
	fixImages  []string
	fixMode    string
	fixWatch   bool
	fixOpenCV  bool
	fixNoPrefs bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Fix a model interactively",
	Long: `Fix a fiducial model interactively. Commands are read one per line from
standard input; a line holding a single key runs that key's hotkey.

Residual mode:  '  next residual   "  back up   ;  move point
                :  move all points in this local area   u  undo move
Gap mode:       space  next gap
Seed mode:      /  toggle overlay

Commands:
  next back local move moveall undo
  gap prevgap reattach restart resume
  click X Y      add a point on the current section
  modify X Y     recenter the current point
  center X Y     show the bead center nearest X Y
  section Z      view section Z
  mode seed|gap|residual
  once on|off    skip points already examined
  clear          forget which points were examined
  open LOG       open an alignment log
  reread         read the alignment log again
  msg N [ARG]    run remote action N
  undoedit redo  undo or redo the last model edit
  where save quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := settings()
		st := session.SettingsFrom(cfg)

		mode, err := session.ParseMode(cfg.Mode)
		if err != nil {
			return err
		}

		var p *prefs.Prefs
		if !fixNoPrefs {
			p = prefs.Load()
			st.ApplyPrefs(p)
			if p.Has(prefs.KeyMode) {
				mode = session.Mode(p.Int(prefs.KeyMode, int(mode)))
			}
		}

		if fixProject != "" {
			proj, err := project.Load(fixProject)
			if err != nil {
				return err
			}
			if fixLog == "" {
				fixLog = proj.GetLogPath(fixProject)
			}
			if fixModel == "" {
				fixModel = proj.GetModelPath(fixProject)
			}
			if len(fixImages) == 0 {
				fixImages = proj.GetImagePaths(fixProject)
			}
			if proj.Settings.Diameter > 0 {
				st.Diameter = proj.Settings.Diameter
			}
			st.LightBeads = proj.Settings.LightBeads
		}
		if fixMode != "" {
			if mode, err = session.ParseMode(fixMode); err != nil {
				return err
			}
		}
		if fixModel == "" {
			return errors.New("no model: use --model or --project")
		}

		m, err := openModel(fixModel)
		if err != nil {
			return err
		}

		var images volume.Source
		if len(fixImages) > 0 {
			src, closeImages, err := loadImages(fixImages, fixOpenCV)
			if err != nil {
				return err
			}
			defer closeImages()
			images = src
		} else if st.AutoCenter {
			logger.Info("no images given, autocentering is off")
			st.AutoCenter = false
		}

		out := cmd.OutOrStdout()
		sess := session.New(session.Options{
			Model:    m,
			Images:   images,
			Sink:     status.NewWriterSink(out, true),
			Logger:   logger,
			Prefs:    p,
			Settings: st,
			Mode:     mode,
		})
		defer func() {
			if err := sess.Close(); err != nil {
				logger.Warn("saving preferences failed", "error", err)
			}
		}()

		if fixLog != "" {
			if err := sess.OpenLog(fixLog); err != nil {
				logger.Warn("alignment log not loaded", "log", fixLog, "error", err)
			}
		}

		if cfgManager != nil && cfgManager.File() != "" {
			cfgManager.OnChange(func(c *config.Config) {
				next := session.SettingsFrom(c)
				sess.UpdateSettings(func(s *session.Settings) {
					s.Tolerance = next.Tolerance
					s.UndoDistance = next.UndoDistance
					s.Sections = next.Sections
				})
				logger.Info("config reloaded", "file", cfgManager.File())
			})
			cfgManager.WatchConfig(logger)
		}

		if fixWatch && sess.LogPath() != "" {
			go func() {
				if err := sess.Watch(ctx); err != nil {
					logger.Warn("log watch stopped", "error", err)
				}
			}()
		}

		r := &repl{sess: sess, modelPath: fixModel, out: out}
		return r.run(ctx, cmd.InOrStdin())
	},
}

func init() {
	fixCmd.Flags().StringVarP(&fixModel, "model", "m", "", "fiducial model file; created when missing")
	fixCmd.Flags().StringVarP(&fixLog, "log", "l", "", "alignment log")
	fixCmd.Flags().StringVarP(&fixProject, "project", "p", "", "project file giving the model, log and images")
	fixCmd.Flags().StringSliceVarP(&fixImages, "images", "i", nil, "image files, one per section")
	fixCmd.Flags().StringVar(&fixMode, "mode", "", "seed, gap or residual (default: mode setting)")
	fixCmd.Flags().BoolVarP(&fixWatch, "watch", "w", false, "reread the log when it changes")
	fixCmd.Flags().BoolVar(&fixOpenCV, "opencv", false, "decode images with OpenCV")
	fixCmd.Flags().BoolVar(&fixNoPrefs, "no-prefs", false, "ignore and do not save preferences")
}

func openModel(path string) (*model.Model, error) {
	m, err := model.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("starting a new model", "model", path)
		return model.New(), nil
	}
	return m, err
}

// repl runs fix commands against a session.
type repl struct {
	sess      *session.Session
	modelPath string
	out       io.Writer
}

var errQuit = errors.New("quit")

// run executes lines from in until quit, end of input or ctx is done. The
// model is saved on the way out if it was edited.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return r.saveIfEdited()
		case line, ok := <-lines:
			if !ok {
				return r.saveIfEdited()
			}
			err := r.exec(line)
			if errors.Is(err, errQuit) {
				return r.saveIfEdited()
			}
			if err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
	}
}

func (r *repl) saveIfEdited() error {
	if r.modelPath == "" || !r.sess.Model().CanUndo() {
		return nil
	}
	return r.save()
}

func (r *repl) save() error {
	if err := r.sess.Model().Save(r.modelPath); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	fmt.Fprintf(r.out, "Saved %s\n", r.modelPath)
	return nil
}

func (r *repl) exec(line string) error {
	if line == "" {
		return nil
	}
	if utf8.RuneCountInString(line) == 1 {
		key, _ := utf8.DecodeRuneInString(line)
		handled, err := r.sess.HandleKey(key)
		if !handled {
			return fmt.Errorf("key %q does nothing in %s mode", key, r.sess.Mode())
		}
		return err
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	s := r.sess

	switch cmd {
	case "next":
		_, err := s.NextResidual()
		return err
	case "back":
		_, err := s.BackUp()
		return err
	case "local":
		_, err := s.NextLocal()
		return err
	case "move":
		return s.MovePoint()
	case "moveall":
		_, err := s.MoveAll()
		return err
	case "undo":
		return s.UndoMove()
	case "gap":
		_, err := s.NextGap()
		return err
	case "prevgap":
		_, err := s.PrevGap()
		return err
	case "reattach":
		if !s.Reattach() {
			return errors.New("no gap to reattach to")
		}
		return nil
	case "restart":
		s.ResetStart()
		return nil
	case "resume":
		s.ResetCurrent()
		return nil

	case "click", "modify", "center":
		x, y, err := parseXY(args)
		if err != nil {
			return err
		}
		switch cmd {
		case "click":
			handled, err := s.InsertPoint(x, y)
			if !handled && err == nil {
				return fmt.Errorf("points cannot be added in %s mode", s.Mode())
			}
			return err
		case "modify":
			_, err := s.ModifyPoint(x, y)
			return err
		default:
			c, err := s.CenterAt(x, y)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "%.2f %.2f\n", c.X, c.Y)
			return nil
		}

	case "section":
		if len(args) != 1 {
			return errors.New("usage: section Z")
		}
		z, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		s.SetSection(z)
		return nil
	case "mode":
		if len(args) != 1 {
			return errors.New("usage: mode seed|gap|residual")
		}
		m, err := session.ParseMode(args[0])
		if err != nil {
			return err
		}
		s.SetMode(m)
		return nil
	case "once":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: once on|off")
		}
		s.SetLookOnce(args[0] == "on")
		return nil
	case "clear":
		s.ClearLooked()
		return nil
	case "open":
		if len(args) != 1 {
			return errors.New("usage: open LOG")
		}
		return s.OpenLog(args[0])
	case "reread":
		return s.Reread()
	case "msg":
		return s.ExecuteFields(args)
	case "undoedit":
		if !s.Model().Undo() {
			return errors.New("nothing to undo")
		}
		return nil
	case "redo":
		if !s.Model().Redo() {
			return errors.New("nothing to redo")
		}
		return nil
	case "where":
		r.where()
		return nil
	case "save":
		if r.modelPath == "" {
			return errors.New("no model file")
		}
		return r.save()
	case "quit", "exit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (r *repl) where() {
	s := r.sess
	idx := s.Model().CurrentIndex()
	fmt.Fprintf(r.out, "%s mode, section %d", s.Mode(), s.Section())
	if p, ok := s.Model().Point(idx); ok {
		fmt.Fprintf(r.out, ", %s at %.2f %.2f %.0f", idx, p.X, p.Y, p.Z)
	}
	if total, left := s.Residuals(); total > 0 {
		fmt.Fprintf(r.out, ", %d residuals (%d to examine)", total, left)
	}
	fmt.Fprintln(r.out)
}

func parseXY(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("need X and Y")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad X %q: %w", args[0], err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad Y %q: %w", args[1], err)
	}
	return x, y, nil
}
