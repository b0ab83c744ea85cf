// Package model holds the trained face recognition artifact: an HNSW graph
// over enrolled sample embeddings. Prediction is a nearest-neighbour search
// in embedding space; the reported distance is cosine distance scaled to the
// 0-200 range so the accept threshold of 75 applies directly.
package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// ErrModelMissing reports that no trained model exists at the given path.
var ErrModelMissing = errors.New("recognition model missing")

// DistanceScale maps cosine distance (0..2) onto the prediction distance
// range (0..200). The accept threshold of 75 therefore corresponds to a
// cosine distance of 0.75.
const DistanceScale = 100.0

const hnswMaxNeighbors = 16

// Entry is one enrolled face sample in the model.
type Entry struct {
	ID         int64 // graph node key, assigned sequentially during fit
	Enrollment int64
	Embedding  []float32
}

// artifact is the on-disk representation of a trained model.
type artifact struct {
	Version   int
	TrainedAt time.Time
	Entries   []Entry
}

const artifactVersion = 1

// Model is a trained recognition artifact. It is safe for concurrent
// readers; retraining produces a new Model and replaces the file atomically
// rather than mutating a loaded one.
type Model struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	entries   map[int64]Entry
	nextID    int64
	trainedAt time.Time
}

// New creates an empty model ready for fitting.
func New() *Model {
	return &Model{
		entries: make(map[int64]Entry),
	}
}

// Add enrolls one sample embedding under an enrollment ID.
func (m *Model) Add(enrollment int64, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.graph == nil {
		m.graph = newGraph()
	}

	id := m.nextID
	m.nextID++
	m.graph.Add(hnsw.MakeNode(id, embedding))
	m.entries[id] = Entry{ID: id, Enrollment: enrollment, Embedding: embedding}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Len returns the number of enrolled samples.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// TrainedAt returns when the model was fitted. Zero for an unfitted model.
func (m *Model) TrainedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainedAt
}

// Search finds the enrollment whose sample is nearest to the query
// embedding. The returned distance is scaled by DistanceScale. ok is false
// when the model is empty or the query unusable.
func (m *Model) Search(embedding []float32) (enrollment int64, distance float64, ok bool) {
	if len(embedding) == 0 {
		return 0, 0, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.graph == nil {
		return 0, 0, false
	}

	neighbors := m.graph.Search(embedding, 1)
	if len(neighbors) == 0 {
		return 0, 0, false
	}

	entry, found := m.entries[neighbors[0].Key]
	if !found {
		return 0, 0, false
	}

	return entry.Enrollment, CosineDistance(embedding, neighbors[0].Value) * DistanceScale, true
}

// Save persists the model to path, creating parent directories as needed.
// The write goes to a temporary file first and is renamed into place so a
// concurrent reader never observes a partial artifact.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	art := artifact{
		Version:   artifactVersion,
		TrainedAt: time.Now(),
		Entries:   entries,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(art); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace model file: %w", err)
	}

	m.mu.Lock()
	m.trainedAt = art.TrainedAt
	m.mu.Unlock()

	return nil
}

// Load reads a model artifact and rebuilds its search graph. The loaded
// model is a fixed snapshot: a retrain replaces the file, never the loaded
// instance.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, path)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var art artifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&art); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %w", err)
	}

	m := New()
	m.trainedAt = art.TrainedAt
	for _, e := range art.Entries {
		if len(e.Embedding) == 0 {
			continue
		}
		if m.graph == nil {
			m.graph = newGraph()
		}
		m.graph.Add(hnsw.MakeNode(e.ID, e.Embedding))
		m.entries[e.ID] = e
		if e.ID >= m.nextID {
			m.nextID = e.ID + 1
		}
	}

	return m, nil
}
