package goquad

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ============================================================
// SampleSet
// ============================================================

// SampleSet is the ordered (x, f(x)) pairs of one quadrature run, held as
// two parallel columns.
type SampleSet struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Point is a single sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s SampleSet) Len() int { return len(s.X) }

// Points returns the samples as pairs. It assumes len(X) == len(Y).
func (s SampleSet) Points() []Point {
	pts := make([]Point, len(s.X))
	for i := range s.X {
		pts[i] = Point{X: s.X[i], Y: s.Y[i]}
	}
	return pts
}

// MarshalJSON encodes non-finite values as null, which JSON cannot
// otherwise represent. Samples next to a singular point are often ±Inf.
func (s SampleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X []*float64 `json:"x"`
		Y []*float64 `json:"y"`
	}{nullables(s.X), nullables(s.Y)})
}

func nullable(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func nullables(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = nullable(v)
	}
	return out
}

func (s SampleSet) check() error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("%w: %d x values, %d y values", ErrSampleLength, len(s.X), len(s.Y))
	}
	return nil
}

func (s SampleSet) clone() SampleSet {
	return SampleSet{
		X: append([]float64(nil), s.X...),
		Y: append([]float64(nil), s.Y...),
	}
}

// FormatError reports a stored line that is not exactly two decimal fields.
type FormatError struct {
	Line int    // 1-based
	Text string // offending field or record, if known
	Err  error
}

func (e *FormatError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("goquad: malformed sample on line %d (%q): %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("goquad: malformed sample on line %d: %v", e.Line, e.Err)
}

func (e *FormatError) Unwrap() error         { return e.Err }
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ============================================================
// Text encoding: one "<x>,<y>\n" line per sample, no header
// ============================================================

// EncodeSamples writes s to w, one comma-separated x,y line per sample, in
// order. Values use the shortest decimal text that parses back exactly.
func EncodeSamples(w io.Writer, s SampleSet) error {
	if err := s.check(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	record := make([]string, 2)
	for i := range s.X {
		record[0] = strconv.FormatFloat(s.X[i], 'g', -1, 64)
		record[1] = strconv.FormatFloat(s.Y[i], 'g', -1, 64)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeSamples reads the format written by EncodeSamples. Blank lines are
// skipped; any other line must hold exactly two decimal fields.
func DecodeSamples(r io.Reader) (SampleSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	var s SampleSet
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return SampleSet{}, &FormatError{Line: pe.Line, Err: pe.Err}
			}
			return SampleSet{}, err
		}
		line, _ := cr.FieldPos(0)
		x, err := parseField(record[0], line)
		if err != nil {
			return SampleSet{}, err
		}
		y, err := parseField(record[1], line)
		if err != nil {
			return SampleSet{}, err
		}
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
	}
}

var errNotDecimal = errors.New("not a decimal number")

// parseField accepts plain decimal text (optionally with an exponent) and
// the three non-finite spellings EncodeSamples writes. Hex floats, digit
// separators and other spellings of infinity are rejected.
func parseField(text string, line int) (float64, error) {
	switch text {
	case "NaN", "+Inf", "-Inf":
	default:
		if text != "" && strings.Trim(text, "0123456789+-.eE") != "" {
			return 0, &FormatError{Line: line, Text: text, Err: errNotDecimal}
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) {
			err = ne.Err
		}
		return 0, &FormatError{Line: line, Text: text, Err: err}
	}
	return v, nil
}

// ============================================================
// SampleStore
// ============================================================

// SampleStore is a single-slot store for the most recent SampleSet.
type SampleStore interface {
	// Write replaces the stored samples entirely.
	Write(s SampleSet) error
	// Read returns the stored samples in the order they were written.
	Read() (SampleSet, error)
}

// DefaultStorePath is the file the samples are kept in when no path is configured.
const DefaultStorePath = "graphics_info.csv"

// FileStore keeps samples in a plain-text file. Writes go to a temporary
// file in the same directory which is then renamed over Path, so a reader
// sees either the previous table or the new one. Concurrent writers are not
// serialized; the last rename wins.
type FileStore struct {
	Path string
	Perm fs.FileMode
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStorePath
	}
	return &FileStore{Path: path, Perm: 0o644}
}

func (st *FileStore) Write(s SampleSet) (err error) {
	if err := s.check(); err != nil {
		return err
	}
	dir, base := filepath.Split(st.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("goquad: write samples to %s: %w", st.Path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = EncodeSamples(tmp, s); err != nil {
		return fmt.Errorf("goquad: write samples to %s: %w", st.Path, err)
	}
	if err = tmp.Chmod(st.perm()); err != nil {
		return fmt.Errorf("goquad: write samples to %s: %w", st.Path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("goquad: write samples to %s: %w", st.Path, err)
	}
	if err = os.Rename(tmp.Name(), st.Path); err != nil {
		return fmt.Errorf("goquad: write samples to %s: %w", st.Path, err)
	}
	return nil
}

func (st *FileStore) Read() (SampleSet, error) {
	f, err := os.Open(st.Path)
	if err != nil {
		return SampleSet{}, fmt.Errorf("goquad: read samples from %s: %w", st.Path, err)
	}
	defer f.Close()
	s, err := DecodeSamples(f)
	if err != nil {
		return SampleSet{}, fmt.Errorf("goquad: read samples from %s: %w", st.Path, err)
	}
	return s, nil
}

func (st *FileStore) perm() fs.FileMode {
	if st.Perm == 0 {
		return 0o644
	}
	return st.Perm
}

// MemoryStore keeps samples in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	samples SampleSet
	written bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Write(s SampleSet) error {
	if err := s.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = s.clone()
	m.written = true
	return nil
}

// Read returns a copy of the stored samples, or an error matching
// fs.ErrNotExist if nothing has been written yet.
func (m *MemoryStore) Read() (SampleSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.written {
		return SampleSet{}, fmt.Errorf("goquad: read samples from memory: %w", fs.ErrNotExist)
	}
	return m.samples.clone(), nil
}
