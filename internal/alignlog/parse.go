package alignlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bead-fixer/pkg/geometry"
)

// Column headings that open a residual table.
const (
	objectContourHeader = "   #     #     #      X         Y        X"
	legacyHeader        = "   #     #      X         Y        X"
	areaMarker          = "Doing local area"
)

const maxLineLength = 1 << 20

var (
	// ErrIO marks failures to read the log at all.
	ErrIO = errors.New("alignment log unreadable")

	// ErrNoResidualData means no residual table was found. Parse still
	// returns a usable, empty Index with it.
	ErrNoResidualData = errors.New("residual data not found")
)

// ParseError reports an unreadable log.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read alignment log: %v", e.Err)
	}
	return fmt.Sprintf("read alignment log %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the underlying error to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// ParseFile opens and parses a log file.
func ParseFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	idx, err := Parse(f)
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Path = path
	}
	return idx, err
}

// Parse reads residual tables from r.
//
// Each table starts after a header line and ends at the first blank line.
// Rows before the first "Doing local area" line belong to the global
// solution (area 0); each marker line opens a new area. Parsing stops when
// no marker follows a table. The layout of the first header seen is used
// for the whole log.
//
// If no table is found the returned Index is empty and the error is
// ErrNoResidualData. Bad numbers in a row never stop the parse; the row is
// kept with Valid cleared. The index passes Check before it is returned.
func Parse(r io.Reader) (*Index, error) {
	idx := &Index{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)

	gotHeader := false
	for sc.Scan() {
		style := headerStyle(sc.Text())
		if style == StyleUnknown {
			continue
		}
		if idx.Style == StyleUnknown {
			idx.Style = style
		}
		gotHeader = true

		// Global area
		if len(idx.Areas) == 0 {
			idx.Areas = append(idx.Areas, Area{})
		}

		for sc.Scan() {
			line := sc.Text()
			if isBlank(line) {
				break
			}
			area := len(idx.Areas) - 1
			row := parseRow(line, idx.Style)
			row.Area = area
			idx.Residuals = append(idx.Residuals, row)
			idx.Areas[area].NumPoints++
		}

		found := false
		for !found && sc.Scan() {
			line := sc.Text()
			pos := strings.Index(line, areaMarker)
			if pos < 0 {
				continue
			}
			found = true
			x, y := parseAreaCoords(line[pos+len(areaMarker):])
			idx.Areas = append(idx.Areas, Area{X: x, Y: y, FirstResidual: len(idx.Residuals)})
		}
		if !found {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Err: err}
	}
	if err := idx.Check(); err != nil {
		return nil, fmt.Errorf("inconsistent residual index: %w", err)
	}

	if !gotHeader {
		return idx, ErrNoResidualData
	}
	return idx, nil
}

func headerStyle(line string) Style {
	if strings.Contains(line, objectContourHeader) {
		return StyleObjectContour
	}
	if strings.Contains(line, legacyHeader) {
		return StyleLegacy
	}
	return StyleUnknown
}

func isBlank(line string) bool {
	return len(strings.TrimRight(line, "\r\n")) < 2 || strings.TrimSpace(line) == ""
}

// parseRow reads the numeric fields of a table row in order, stopping at
// the first one that does not parse.
func parseRow(line string, style Style) Residual {
	f := &fieldScanner{fields: strings.Fields(line)}
	var r Residual
	var cx, cy, rx, ry float64

	if style == StyleLegacy {
		r.Object = 1
		f.int(&r.Contour)
	} else {
		f.int(&r.Object)
		f.int(&r.Contour)
	}
	f.int(&r.View)
	f.float(&cx)
	f.float(&cy)
	f.float(&rx)
	f.float(&ry)
	f.float(&r.StdDevs)

	r.Center = geometry.Point2D{X: cx, Y: cy}
	r.Residual = geometry.Point2D{X: rx, Y: ry}
	r.Valid = !f.failed
	return r
}

type fieldScanner struct {
	fields []string
	pos    int
	failed bool
}

func (f *fieldScanner) next() (string, bool) {
	if f.failed || f.pos >= len(f.fields) {
		f.failed = true
		return "", false
	}
	s := f.fields[f.pos]
	f.pos++
	return s, true
}

func (f *fieldScanner) int(dst *int) {
	s, ok := f.next()
	if !ok {
		return
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f.failed = true
		return
	}
	*dst = v
}

func (f *fieldScanner) float(dst *float64) {
	s, ok := f.next()
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.failed = true
		return
	}
	*dst = v
}

// parseAreaCoords reads the two integers after the area marker. Commas are
// accepted as separators; missing values read as zero.
func parseAreaCoords(rest string) (int, int) {
	fields := strings.Fields(strings.ReplaceAll(rest, ",", " "))
	var coords [2]int
	for i := 0; i < 2 && i < len(fields); i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			break
		}
		coords[i] = v
	}
	return coords[0], coords[1]
}
