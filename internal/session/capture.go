package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// ErrNoFacesDetected reports a capture run that ended without a single
// usable sample. The user must retry the enrollment step.
var ErrNoFacesDetected = errors.New("no faces were detected")

// maxConsecutiveDetectorErrors bounds how long a session keeps retrying a
// failing detection service before giving up.
const maxConsecutiveDetectorErrors = 10

// OpenDeviceFunc acquires the capture device for a session. The session
// owns the returned source and releases it on every exit path.
type OpenDeviceFunc func() (camera.FrameSource, error)

// CaptureSession builds the labeled face sample set for one student.
type CaptureSession struct {
	openDevice      OpenDeviceFunc
	detector        vision.Detector
	roster          *store.Roster
	trainingDir     string
	detectThreshold float64
}

// NewCaptureSession wires a capture session's collaborators.
func NewCaptureSession(openDevice OpenDeviceFunc, detector vision.Detector, roster *store.Roster, trainingDir string, detectThreshold float64) *CaptureSession {
	return &CaptureSession{
		openDevice:      openDevice,
		detector:        detector,
		roster:          roster,
		trainingDir:     trainingDir,
		detectThreshold: detectThreshold,
	}
}

// CaptureResult reports how a capture run ended.
type CaptureResult struct {
	Samples int
	Success bool
}

// Run captures target face samples for the student, appends the roster
// entry once at least one sample exists, and reports progress after every
// accepted sample. Cancellation is observed at the top of each frame
// iteration. The events channel is closed exactly once on return.
func (s *CaptureSession) Run(ctx context.Context, enrollment int64, name string, target int, events chan<- Event) (CaptureResult, error) {
	out := emitter{ch: events}
	defer out.close()

	device, err := s.openDevice()
	if err != nil {
		return CaptureResult{}, err
	}
	defer func() { _ = device.Close() }()

	samples, err := store.NewSampleSet(s.trainingDir, enrollment, name)
	if err != nil {
		return CaptureResult{}, err
	}

	out.status("Look at the camera. Capturing images...")
	out.progress(0)

	detectorErrors := 0
	for samples.Count() < target {
		if ctx.Err() != nil {
			break
		}

		frame, err := device.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			out.status("Failed to grab frame from camera.")
			break
		}

		detections, err := s.detector.Detect(ctx, frame)
		if err != nil {
			detectorErrors++
			if detectorErrors >= maxConsecutiveDetectorErrors {
				return s.finish(samples, out, fmt.Errorf("face detection failed repeatedly: %w", err))
			}
			continue
		}
		detectorErrors = 0

		best, found := bestDetection(detections, s.detectThreshold)
		if !found {
			continue
		}

		bounds := frame.Bounds()
		region, valid := vision.ClipBox(best.BBox, bounds.Dx(), bounds.Dy())
		if !valid {
			continue
		}

		crop := vision.CropGray(frame, region)
		if _, err := samples.Write(crop); err != nil {
			return s.finish(samples, out, err)
		}

		out.progress(float64(samples.Count()) / float64(target))
	}

	return s.finish(samples, out, nil)
}

// finish applies the end-of-run policy: any captured samples make the run a
// success and append the student to the roster; zero samples is a failure.
func (s *CaptureSession) finish(samples *store.SampleSet, out emitter, runErr error) (CaptureResult, error) {
	if runErr != nil {
		return CaptureResult{Samples: samples.Count()}, runErr
	}

	if samples.Count() == 0 {
		out.status("No faces were detected. Please try again.")
		return CaptureResult{}, ErrNoFacesDetected
	}

	student := store.Student{
		Enrollment: strconv.FormatInt(samples.Enrollment(), 10),
		Name:       samples.Name(),
	}
	if err := s.roster.Append(student); err != nil {
		return CaptureResult{Samples: samples.Count()}, err
	}

	out.status("Successfully captured %d images.", samples.Count())
	return CaptureResult{Samples: samples.Count(), Success: true}, nil
}

// bestDetection selects the single highest-confidence detection above the
// threshold. The first of equally scored detections wins.
func bestDetection(detections []vision.Detection, threshold float64) (vision.Detection, bool) {
	var best vision.Detection
	found := false
	maxScore := threshold
	for _, d := range detections {
		if d.Score > maxScore {
			maxScore = d.Score
			best = d
			found = true
		}
	}
	return best, found
}
