package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRosterMissing reports that no roster file exists yet.
var ErrRosterMissing = errors.New("student roster missing")

// Student is one roster entry. Entries are append-only and never mutated.
type Student struct {
	Enrollment string
	Name       string
}

// Roster is the append-only student list backed by a CSV file with the
// columns Enrollment, Name. The header is written exactly once.
type Roster struct {
	path string
}

// NewRoster points at the roster file. The file is created lazily on the
// first append.
func NewRoster(path string) *Roster {
	return &Roster{path: path}
}

// Path returns the backing file path.
func (r *Roster) Path() string {
	return r.path
}

// Exists reports whether the roster file exists and is non-empty.
func (r *Roster) Exists() bool {
	info, err := os.Stat(r.path)
	return err == nil && info.Size() > 0
}

// Append adds one student row, writing the header first if the file is new
// or empty. Duplicate enrollment IDs are not rejected; the roster preserves
// the historical append-only behavior and Lookup resolves to the first row.
func (r *Roster) Append(student Student) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create roster directory: %w", err)
	}

	needHeader := !r.Exists()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write([]string{"Enrollment", "Name"}); err != nil {
			return fmt.Errorf("failed to write roster header: %w", err)
		}
	}
	if err := w.Write([]string{student.Enrollment, student.Name}); err != nil {
		return fmt.Errorf("failed to write roster row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush roster: %w", err)
	}
	return nil
}

// Load reads all roster entries in file order, skipping the header.
func (r *Roster) Load() ([]Student, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRosterMissing, r.path)
		}
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	var students []Student
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "Enrollment" {
			continue
		}
		if len(row) < 2 {
			continue
		}
		students = append(students, Student{
			Enrollment: NormalizeEnrollment(row[0]),
			Name:       row[1],
		})
	}
	return students, nil
}

// Index is a point-in-time lookup table over the roster, keyed by
// normalized enrollment ID. The first row for an ID wins.
type Index map[string]Student

// LoadIndex loads the roster into a lookup table.
func (r *Roster) LoadIndex() (Index, error) {
	students, err := r.Load()
	if err != nil {
		return nil, err
	}
	idx := make(Index, len(students))
	for _, s := range students {
		if _, taken := idx[s.Enrollment]; !taken {
			idx[s.Enrollment] = s
		}
	}
	return idx, nil
}

// Lookup finds a student by enrollment token, normalizing it first.
func (idx Index) Lookup(enrollment string) (Student, bool) {
	s, ok := idx[NormalizeEnrollment(enrollment)]
	return s, ok
}
