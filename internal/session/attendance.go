package session

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/syncer"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// ErrPrerequisitesMissing reports that the trained model or the roster does
// not exist yet. Students must be registered and the model trained first.
var ErrPrerequisitesMissing = errors.New("model or roster missing; register students and train first")

// Recognizer classifies a grayscale face crop against the enrolled
// students. *model.Recognizer satisfies it.
type Recognizer interface {
	Predict(ctx context.Context, crop *image.Gray) (enrollment int64, distance float64, err error)
}

// AttendanceSession runs one timed live-recognition pass and accrues an
// attendance set with at most one record per enrollment.
type AttendanceSession struct {
	openDevice         OpenDeviceFunc
	detector           vision.Detector
	recognizer         Recognizer
	roster             store.Index
	sync               *syncer.Syncer
	detectThreshold    float64
	recognizeThreshold float64
}

// NewAttendanceSession wires an attendance session's collaborators. The
// recognizer must be loaded from a fixed model snapshot before the session
// starts; the session never reloads it mid-run.
func NewAttendanceSession(
	openDevice OpenDeviceFunc,
	detector vision.Detector,
	recognizer Recognizer,
	roster store.Index,
	sync *syncer.Syncer,
	detectThreshold, recognizeThreshold float64,
) *AttendanceSession {
	return &AttendanceSession{
		openDevice:         openDevice,
		detector:           detector,
		recognizer:         recognizer,
		roster:             roster,
		sync:               sync,
		detectThreshold:    detectThreshold,
		recognizeThreshold: recognizeThreshold,
	}
}

// AttendanceResult reports the accrued attendance set and where it went.
type AttendanceResult struct {
	Records  []store.Record
	FilePath string
	Uploaded bool
}

// Run executes the session loop until the duration elapses, the context is
// cancelled, or a frame read fails. On exit a non-empty attendance set is
// persisted and best-effort uploaded. The device is released and the events
// channel closed exactly once on every exit path.
func (s *AttendanceSession) Run(ctx context.Context, subject string, duration time.Duration, events chan<- Event) (AttendanceResult, error) {
	out := emitter{ch: events}
	defer out.close()

	if s.recognizer == nil || len(s.roster) == 0 {
		return AttendanceResult{}, ErrPrerequisitesMissing
	}

	device, err := s.openDevice()
	if err != nil {
		return AttendanceResult{}, err
	}
	defer func() { _ = device.Close() }()

	out.status("Camera started for %s.", duration)

	recognized := make(map[int64]struct{})
	var records []store.Record

	start := time.Now()
	deadline := start.Add(duration)
	lastRemaining := -1

	for {
		if ctx.Err() != nil {
			break
		}
		now := time.Now()
		if now.After(deadline) {
			out.status("Attendance session timed out.")
			break
		}

		// Surface remaining time once per second.
		if remaining := int(deadline.Sub(now).Seconds()); remaining != lastRemaining {
			lastRemaining = remaining
			out.progress(float64(now.Sub(start)) / float64(duration))
		}

		frame, err := device.ReadFrame(ctx)
		if err != nil {
			break
		}

		detections, err := s.detector.Detect(ctx, frame)
		if err != nil {
			// Frame-local failure; the next frame may succeed.
			continue
		}

		bounds := frame.Bounds()
		for _, d := range detections {
			if d.Score <= s.detectThreshold {
				continue
			}
			region, valid := vision.ClipBox(d.BBox, bounds.Dx(), bounds.Dy())
			if !valid {
				continue
			}

			crop := vision.CropGray(frame, region)
			predicted, distance, err := s.recognizer.Predict(ctx, crop)
			if err != nil {
				continue
			}
			if distance >= s.recognizeThreshold {
				// Unknown person, never recorded.
				continue
			}

			student, found := s.roster.Lookup(strconv.FormatInt(predicted, 10))
			if !found {
				// Model knows an ID the roster does not; neither a
				// record nor an error.
				continue
			}
			if _, seen := recognized[predicted]; seen {
				continue
			}
			recognized[predicted] = struct{}{}
			records = append(records, store.Record{Enrollment: student.Enrollment, Name: student.Name})
			out.status("Recognized: %s", student.Name)
		}
	}

	return s.conclude(ctx, subject, start, records, out)
}

// conclude persists and uploads a non-empty attendance set.
func (s *AttendanceSession) conclude(ctx context.Context, subject string, start time.Time, records []store.Record, out emitter) (AttendanceResult, error) {
	if len(records) == 0 {
		out.status("No students were recognized during the session.")
		return AttendanceResult{}, nil
	}

	date := start.Format(store.DateLayout)
	timeOfDay := start.Format(store.TimeLayout)

	path, err := s.sync.Persist(records, subject, date, timeOfDay)
	if err != nil {
		return AttendanceResult{Records: records}, err
	}
	out.status("Attendance saved to %s", filepath.Base(path))

	uploaded := s.sync.Upload(ctx, records, subject, date, timeOfDay, path)
	return AttendanceResult{Records: records, FilePath: path, Uploaded: uploaded}, nil
}
