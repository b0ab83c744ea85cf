// Package syncer owns the offline-first persistence protocol: attendance
// batches are written locally first, pushed to the remote store best-effort,
// and replayed from the pending log until confirmed.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/remote"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// OpenFunc connects to the remote store. remote.Open bound to a config
// satisfies it; tests substitute fakes.
type OpenFunc func(ctx context.Context) (remote.Store, error)

// Syncer persists attendance batches and replays failed uploads.
type Syncer struct {
	attendanceDir string
	log           *store.PendingLog
	open          OpenFunc
}

// New creates a Syncer over the local attendance directory and pending log.
func New(attendanceDir string, log *store.PendingLog, open OpenFunc) *Syncer {
	return &Syncer{attendanceDir: attendanceDir, log: log, open: open}
}

// Persist writes the attendance set for one session to its per-subject file
// and returns the path.
func (s *Syncer) Persist(records []store.Record, subject, date, timeOfDay string) (string, error) {
	return store.WriteAttendance(s.attendanceDir, subject, date, timeOfDay, records)
}

// Upload pushes one attendance batch to the remote store. Any failure —
// missing configuration, connection, insert — appends sourcePath to the
// pending log and returns false; upload failure is never fatal to the
// calling session.
func (s *Syncer) Upload(ctx context.Context, records []store.Record, subject, date, timeOfDay, sourcePath string) bool {
	st, err := s.open(ctx)
	if err != nil {
		s.deferToLog(sourcePath)
		return false
	}
	defer func() { _ = st.Close(ctx) }()

	if err := s.insert(ctx, st, records, subject, date, timeOfDay); err != nil {
		s.deferToLog(sourcePath)
		return false
	}
	return true
}

func (s *Syncer) insert(ctx context.Context, st remote.Store, records []store.Record, subject, date, timeOfDay string) error {
	batchID := uuid.NewString()
	docs := make([]remote.Document, len(records))
	for i, r := range records {
		docs[i] = remote.Document{
			Enrollment: r.Enrollment,
			Name:       r.Name,
			Subject:    subject,
			// Dates travel with ':' separators, as the established
			// consumers of the remote collections expect.
			Date:      strings.ReplaceAll(date, "-", ":"),
			Timestamp: timeOfDay,
			Status:    remote.StatusPresent,
			BatchID:   batchID,
		}
	}
	return st.Insert(ctx, subject, docs)
}

func (s *Syncer) deferToLog(sourcePath string) {
	// Best effort: a failing log write leaves the batch on disk either way.
	_ = s.log.Append(sourcePath)
}

// Result summarizes one sync pass.
type Result struct {
	Synced    int
	Remaining int
}

// SyncPending replays the pending log. Entries whose file no longer exists
// are vacuously resolved; entries whose name cannot be decoded count as
// failed and stay in the log. After the pass the log holds exactly the
// entries that failed this time.
func (s *Syncer) SyncPending(ctx context.Context, onStatus func(string)) (Result, error) {
	if onStatus == nil {
		onStatus = func(string) {}
	}

	st, err := s.open(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrConfigMissing) {
			onStatus("Remote store not configured. Please set it in settings.")
		} else {
			onStatus(fmt.Sprintf("Remote store connection failed: %v", err))
		}
		return Result{}, err
	}
	defer func() { _ = st.Close(ctx) }()

	pending, err := s.log.Read()
	if err != nil {
		return Result{}, err
	}
	if len(pending) == 0 {
		onStatus("No pending files to sync.")
		return Result{}, nil
	}

	onStatus(fmt.Sprintf("Starting sync for %d file(s)...", len(pending)))

	var failed []string
	synced := 0
	for i, path := range pending {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			// The batch is gone; nothing left to upload.
			synced++
			continue
		}

		onStatus(fmt.Sprintf("Syncing %d/%d: %s", i+1, len(pending), filepath.Base(path)))

		subject, date, timeOfDay, err := store.DecodeAttendanceName(path)
		if err != nil {
			failed = append(failed, path)
			continue
		}

		records, err := store.ReadAttendance(path)
		if err != nil {
			failed = append(failed, path)
			continue
		}

		if err := s.insert(ctx, st, records, subject, date, timeOfDay); err != nil {
			failed = append(failed, path)
			continue
		}
		synced++
	}

	if err := s.log.Rewrite(failed); err != nil {
		return Result{}, err
	}

	res := Result{Synced: synced, Remaining: len(failed)}
	onStatus(fmt.Sprintf("Sync complete. Synced: %d, Remaining: %d.", res.Synced, res.Remaining))
	return res, nil
}
