// Package trainer aggregates the captured face sample sets into a fitted
// recognition model.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attendance/internal/model"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// ErrEmptyDataset reports that no usable training images were found.
// Capture samples for at least one student first.
var ErrEmptyDataset = errors.New("no images found to train")

// Options configures one training run. Both callbacks are optional.
type Options struct {
	// OnStatus receives human-readable progress messages.
	OnStatus func(string)
	// OnProgress receives completion in 0..1. Loading and embedding the
	// dataset advances 0 to 0.5; the fit itself is opaque, so the value
	// jumps to 1 when it completes.
	OnProgress func(float64)
}

// Result summarizes a finished training run.
type Result struct {
	Images  int
	Skipped int
}

// Trainer builds recognition models from the sample dataset.
type Trainer struct {
	embedder model.FaceEmbedder
}

// New creates a Trainer over the face embedding service.
func New(embedder model.FaceEmbedder) *Trainer {
	return &Trainer{embedder: embedder}
}

// Run enumerates every sample under datasetRoot, embeds each face, fits the
// model and persists it to modelPath. A single unreadable or unparsable
// file is skipped and logged; the job only fails when nothing survives.
// The model file is replaced atomically, never observed half-written.
func (t *Trainer) Run(ctx context.Context, datasetRoot, modelPath string, opts Options) (Result, error) {
	onStatus := opts.OnStatus
	if onStatus == nil {
		onStatus = func(string) {}
	}
	onProgress := opts.OnProgress
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	onStatus("Loading images for training...")
	onProgress(0)

	paths, err := store.ListSampleFiles(datasetRoot)
	if err != nil {
		return Result{}, err
	}
	if len(paths) == 0 {
		return Result{}, ErrEmptyDataset
	}

	m := model.New()
	skipped := 0
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if err := t.addSample(ctx, m, path); err != nil {
			skipped++
			onStatus(fmt.Sprintf("Skipping file %s: %v", filepath.Base(path), err))
		}

		onProgress(float64(i+1) / float64(len(paths)) * 0.5)
	}

	if m.Len() == 0 {
		return Result{Skipped: skipped}, ErrEmptyDataset
	}

	onStatus(fmt.Sprintf("Training model on %d images... This may take a moment.", m.Len()))
	if err := m.Save(modelPath); err != nil {
		return Result{Images: m.Len(), Skipped: skipped}, err
	}
	onProgress(1)

	return Result{Images: m.Len(), Skipped: skipped}, nil
}

// addSample decodes one sample file, extracts its face embedding and
// enrolls it under the enrollment ID encoded in the file name.
func (t *Trainer) addSample(ctx context.Context, m *model.Model, path string) error {
	enrollment, err := store.DecodeSampleEnrollment(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read sample: %w", err)
	}

	detections, err := t.embedder.DetectBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to embed sample: %w", err)
	}

	embedding := bestEmbedding(detections)
	if len(embedding) == 0 {
		return errors.New("no face found in sample")
	}

	m.Add(enrollment, embedding)
	return nil
}

func bestEmbedding(detections []vision.Detection) []float32 {
	var best []float32
	bestScore := -1.0
	for _, d := range detections {
		if d.Score > bestScore && len(d.Embedding) > 0 {
			bestScore = d.Score
			best = d.Embedding
		}
	}
	return best
}
