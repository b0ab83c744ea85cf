package model

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// FaceEmbedder extracts face embeddings from encoded image data.
// *vision.Client satisfies it.
type FaceEmbedder interface {
	DetectBytes(ctx context.Context, imageData []byte) ([]vision.Detection, error)
}

// Recognizer classifies a grayscale face crop against the enrolled model.
type Recognizer struct {
	model    *Model
	embedder FaceEmbedder
}

// NewRecognizer wires a trained model to the embedding service.
func NewRecognizer(m *Model, embedder FaceEmbedder) *Recognizer {
	return &Recognizer{model: m, embedder: embedder}
}

// Predict returns the nearest enrollment and its distance for a face crop.
// When no embedding can be extracted from the crop the distance is +Inf,
// which callers reject against any finite threshold.
func (r *Recognizer) Predict(ctx context.Context, crop *image.Gray) (int64, float64, error) {
	data, err := vision.EncodeJPEG(crop)
	if err != nil {
		return 0, math.Inf(1), fmt.Errorf("failed to encode crop: %w", err)
	}

	detections, err := r.embedder.DetectBytes(ctx, data)
	if err != nil {
		return 0, math.Inf(1), fmt.Errorf("embedding crop: %w", err)
	}

	embedding := bestEmbedding(detections)
	if len(embedding) == 0 {
		return 0, math.Inf(1), nil
	}

	enrollment, distance, ok := r.model.Search(embedding)
	if !ok {
		return 0, math.Inf(1), nil
	}
	return enrollment, distance, nil
}

// bestEmbedding picks the embedding of the highest-scored detection.
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
