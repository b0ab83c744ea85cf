// Package remote implements the remote attendance store. Backends are
// selected by URI scheme: mongodb:// (the default deployment), postgres://
// and mysql://. Records are batch-inserted under a per-subject collection
// or table.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ErrConfigMissing reports that no remote URI is configured. Sync is
// disabled; callers defer to the pending log instead of failing.
var ErrConfigMissing = errors.New("remote store not configured")

// StatusPresent is the status value recorded for every synced student.
const StatusPresent = "Present"

// Document is one attendance row in its remote wire form.
type Document struct {
	Enrollment string `bson:"enrollment"`
	Name       string `bson:"name"`
	Subject    string `bson:"subject"`
	Date       string `bson:"date"`
	Timestamp  string `bson:"timestamp"`
	Status     string `bson:"status"`
	BatchID    string `bson:"batch_id"`
}

// Store accepts attendance batches. Implementations must make Insert
// all-or-nothing per call so a retried batch never half-lands.
type Store interface {
	// Insert stores the batch under the subject's collection/table.
	Insert(ctx context.Context, subject string, docs []Document) error
	// Close releases the connection.
	Close(ctx context.Context) error
}

// Open connects to the remote store named by the configured URI.
func Open(ctx context.Context, cfg config.RemoteConfig) (Store, error) {
	if cfg.URI == "" {
		return nil, ErrConfigMissing
	}

	switch {
	case strings.HasPrefix(cfg.URI, "mongodb://"), strings.HasPrefix(cfg.URI, "mongodb+srv://"):
		return openMongo(ctx, cfg.URI, cfg.Database)
	case strings.HasPrefix(cfg.URI, "postgres://"), strings.HasPrefix(cfg.URI, "postgresql://"):
		return openPostgres(ctx, cfg.URI)
	case strings.HasPrefix(cfg.URI, "mysql://"):
		return openMySQL(ctx, strings.TrimPrefix(cfg.URI, "mysql://"))
	default:
		return nil, fmt.Errorf("unsupported remote store URI scheme: %s", cfg.URI)
	}
}
