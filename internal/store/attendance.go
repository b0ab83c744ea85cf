package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Record is one attendance row: a student seen during a session.
type Record struct {
	Enrollment string
	Name       string
}

// WriteAttendance persists one session's attendance set to
// {dir}/{subject}/{subject}_{date}_{time}.csv and returns the path.
// When a file for the same subject and second already exists, a numeric
// suffix is appended before the extension instead of overwriting it; the
// attendance name decoder ignores the extra field.
func WriteAttendance(dir, subject, date, timeOfDay string, records []Record) (string, error) {
	subjectDir := filepath.Join(dir, SanitizeName(subject))
	if err := os.MkdirAll(subjectDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create attendance directory: %w", err)
	}

	name := EncodeAttendanceName(subject, date, timeOfDay)
	path := filepath.Join(subjectDir, name)
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		suffixed := strings.TrimSuffix(name, ".csv") + fmt.Sprintf("_%d.csv", n)
		path = filepath.Join(subjectDir, suffixed)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create attendance file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Enrollment", "Name"}); err != nil {
		return "", fmt.Errorf("failed to write attendance header: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.Enrollment, r.Name}); err != nil {
			return "", fmt.Errorf("failed to write attendance row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush attendance file: %w", err)
	}

	return path, nil
}

// ReadAttendance loads the records of a persisted attendance file.
func ReadAttendance(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attendance file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read attendance file: %w", err)
	}

	var records []Record
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "Enrollment" {
			continue
		}
		if len(row) < 2 {
			continue
		}
		records = append(records, Record{Enrollment: row[0], Name: row[1]})
	}
	return records, nil
}

// ListAttendanceFiles returns the attendance files for a subject, sorted by
// name (which sorts chronologically given the date/time encoding). An empty
// subject lists every subject's files.
func ListAttendanceFiles(dir, subject string) ([]string, error) {
	root := dir
	if subject != "" {
		root = filepath.Join(dir, SanitizeName(subject))
	}

	var paths []string
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list attendance files: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			sub, err := ListAttendanceFiles(root, e.Name())
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
			continue
		}
		if strings.HasSuffix(e.Name(), ".csv") {
			paths = append(paths, filepath.Join(root, e.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}
