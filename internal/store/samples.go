package store

import (
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SampleSet writes the face sample dataset for one student. Samples are
// owned by the capture session that produces them and are never mutated
// afterwards.
type SampleSet struct {
	dir        string
	name       string
	enrollment int64
	count      int
}

// NewSampleSet creates the per-student dataset directory under trainingDir.
func NewSampleSet(trainingDir string, enrollment int64, name string) (*SampleSet, error) {
	dir := filepath.Join(trainingDir, StudentDirName(enrollment, name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}
	return &SampleSet{dir: dir, name: name, enrollment: enrollment}, nil
}

// Write persists the next-sequenced grayscale sample and returns its path.
// The sequence counter increases monotonically per set.
func (s *SampleSet) Write(crop *image.Gray) (string, error) {
	s.count++
	path := filepath.Join(s.dir, EncodeSampleName(s.name, s.enrollment, s.count))

	f, err := os.Create(path)
	if err != nil {
		s.count--
		return "", fmt.Errorf("failed to create sample file: %w", err)
	}
	if err := jpeg.Encode(f, crop, &jpeg.Options{Quality: 90}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		s.count--
		return "", fmt.Errorf("failed to encode sample: %w", err)
	}
	if err := f.Close(); err != nil {
		s.count--
		return "", fmt.Errorf("failed to close sample file: %w", err)
	}
	return path, nil
}

// Count returns the number of samples written so far.
func (s *SampleSet) Count() int {
	return s.count
}

// Enrollment returns the student's enrollment ID.
func (s *SampleSet) Enrollment() int64 {
	return s.enrollment
}

// Name returns the student's name as given at capture time.
func (s *SampleSet) Name() string {
	return s.name
}

// ListSampleFiles enumerates all image files under the training root,
// recursively. A missing root yields an empty list rather than an error.
func ListSampleFiles(trainingDir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(trainingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to enumerate samples: %w", err)
	}
	return paths, nil
}
