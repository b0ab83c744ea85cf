package trainer

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/model"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// fakeEmbedder returns a per-student embedding derived from nothing but the
// call order, so every sample of a run gets a deterministic vector.
type fakeEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (f *fakeEmbedder) DetectBytes(ctx context.Context, imageData []byte) ([]vision.Detection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []vision.Detection{{Score: 0.9, Embedding: f.embedding}}, nil
}

func writeSamples(t *testing.T, root string, enrollment int64, name string, n int) {
	t.Helper()
	set, err := store.NewSampleSet(root, enrollment, name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	crop := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := 0; i < n; i++ {
		if _, err := set.Write(crop); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestTrainer_EmptyDataset(t *testing.T) {
	dir := t.TempDir()
	tr := New(&fakeEmbedder{embedding: []float32{1, 0}})

	_, err := tr.Run(context.Background(), filepath.Join(dir, "TrainingImage"), filepath.Join(dir, "model.gob"), Options{})
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestTrainer_FitsAndSaves(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "TrainingImage")
	modelPath := filepath.Join(dir, "TrainingImageLabel", "model.gob")
	writeSamples(t, root, 42, "Ada", 3)

	embedder := &fakeEmbedder{embedding: []float32{1, 0}}
	tr := New(embedder)

	var lastProgress float64
	result, err := tr.Run(context.Background(), root, modelPath, Options{
		OnProgress: func(p float64) { lastProgress = p },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Images != 3 {
		t.Errorf("expected 3 images trained, got %d", result.Images)
	}
	if result.Skipped != 0 {
		t.Errorf("expected no skips, got %d", result.Skipped)
	}
	if embedder.calls != 3 {
		t.Errorf("expected 3 embedding calls, got %d", embedder.calls)
	}
	if lastProgress != 1 {
		t.Errorf("expected final progress 1, got %f", lastProgress)
	}

	m, err := model.Load(modelPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enrollment, _, ok := m.Search([]float32{1, 0})
	if !ok {
		t.Fatal("expected search on trained model to hit")
	}
	if enrollment != 42 {
		t.Errorf("expected enrollment 42, got %d", enrollment)
	}
}

func TestTrainer_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "TrainingImage")
	writeSamples(t, root, 42, "Ada", 2)

	// A stray image whose name carries no enrollment ID.
	stray := filepath.Join(root, "notes.jpg")
	f, err := os.Create(stray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = f.Close()

	var msgs []string
	tr := New(&fakeEmbedder{embedding: []float32{1, 0}})
	result, err := tr.Run(context.Background(), root, filepath.Join(dir, "model.gob"), Options{
		OnStatus: func(msg string) { msgs = append(msgs, msg) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Images != 2 {
		t.Errorf("expected 2 images trained, got %d", result.Images)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skip, got %d", result.Skipped)
	}

	found := false
	for _, msg := range msgs {
		if len(msg) > 8 && msg[:8] == "Skipping" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skip status, got %v", msgs)
	}
}

func TestTrainer_AllSamplesUnusable(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "TrainingImage")
	writeSamples(t, root, 42, "Ada", 2)

	tr := New(&fakeEmbedder{err: errors.New("service down")})
	_, err := tr.Run(context.Background(), root, filepath.Join(dir, "model.gob"), Options{})
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset when nothing survives, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "model.gob")); !os.IsNotExist(err) {
		t.Error("expected no model file for a failed run")
	}
}

func TestTrainer_Cancelled(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "TrainingImage")
	writeSamples(t, root, 42, "Ada", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(&fakeEmbedder{embedding: []float32{1, 0}})
	_, err := tr.Run(ctx, root, filepath.Join(dir, "model.gob"), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
