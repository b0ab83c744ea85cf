package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/model"
	"github.com/kozaktomas/face-attendance/internal/remote"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/speech"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/syncer"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

var attendCmd = &cobra.Command{
	Use:   "attend [subject]",
	Short: "Run a live attendance session",
	Long: `Run a live attendance session for a subject. The camera runs for the
requested duration and every recognized student is recorded once.
Attendance is always written to a local CSV file first, then uploaded
to the remote store when one is configured. Failed uploads are queued
for 'face-attendance sync'.`,
	Args: cobra.ExactArgs(1),
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().Int("duration", 1, "Session duration in minutes")
}

func runAttend(cmd *cobra.Command, args []string) error {
	subject := args[0]
	if subject == "" {
		return errors.New("subject must not be empty")
	}

	cfg := config.Load()
	minutes := mustGetInt(cmd, "duration")
	if minutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d", minutes)
	}

	m, err := model.Load(cfg.Storage.ModelPath())
	if err != nil {
		if errors.Is(err, model.ErrModelMissing) {
			return errors.New("no trained model found, run 'face-attendance train' first")
		}
		return fmt.Errorf("failed to load model: %w", err)
	}

	roster, err := store.NewRoster(cfg.Storage.RosterPath()).LoadIndex()
	if err != nil {
		if errors.Is(err, store.ErrRosterMissing) {
			return errors.New("no students registered, run 'face-attendance register' first")
		}
		return fmt.Errorf("failed to load roster: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	detector := vision.NewClient(cfg.Vision.URL)
	openDevice := func() (camera.FrameSource, error) {
		return camera.Open(cfg.Camera.Index)
	}
	openRemote := func(ctx context.Context) (remote.Store, error) {
		return remote.Open(ctx, cfg.Remote)
	}
	sync := syncer.New(cfg.Storage.AttendanceDir(), store.NewPendingLog(cfg.Storage.PendingLogPath()), openRemote)

	narrator := speech.NewCommandNarrator(cfg.Speech.Command)
	defer narrator.Close()

	sess := session.NewAttendanceSession(
		openDevice,
		detector,
		model.NewRecognizer(m, detector),
		roster,
		sync,
		cfg.Vision.DetectThreshold,
		cfg.Vision.RecognizeThreshold,
	)

	fmt.Printf("Taking attendance for %s (%d minute session, %d students enrolled)\n",
		subject, minutes, len(roster))

	events := make(chan session.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Kind == session.EventStatus {
				fmt.Println(ev.Message)
				narrator.Say(ev.Message)
			}
		}
	}()

	result, err := sess.Run(ctx, subject, time.Duration(minutes)*time.Minute, events)
	<-done

	if err != nil {
		if errors.Is(err, session.ErrPrerequisitesMissing) {
			return errors.New("model or roster missing, register students and train first")
		}
		return fmt.Errorf("attendance session failed: %w", err)
	}

	fmt.Printf("\nRecognized %d students\n", len(result.Records))
	for _, rec := range result.Records {
		fmt.Printf("  %s  %s\n", rec.Enrollment, rec.Name)
	}
	if result.FilePath != "" {
		fmt.Printf("Saved to %s\n", result.FilePath)
		if result.Uploaded {
			fmt.Println("Uploaded to remote store.")
		} else {
			fmt.Println("Upload deferred, run 'face-attendance sync' when online.")
		}
	}
	return nil
}
