package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/speech"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

var registerCmd = &cobra.Command{
	Use:   "register [enrollment] [name]",
	Short: "Enroll a student by capturing face samples",
	Long: `Enroll a student by capturing face samples from the camera.
The camera runs until the requested number of face samples has been
captured. Samples are stored under the training directory and the
student is added to the local roster.`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().Int("samples", config.DefaultSampleTarget, "Number of face samples to capture")
}

func runRegister(cmd *cobra.Command, args []string) error {
	enrollment, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("enrollment must be a number: %q", args[0])
	}
	name := args[1]
	if name == "" {
		return errors.New("name must not be empty")
	}

	cfg := config.Load()
	target := mustGetInt(cmd, "samples")
	if target <= 0 {
		return fmt.Errorf("samples must be positive, got %d", target)
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	detector := vision.NewClient(cfg.Vision.URL)
	roster := store.NewRoster(cfg.Storage.RosterPath())
	openDevice := func() (camera.FrameSource, error) {
		return camera.Open(cfg.Camera.Index)
	}

	narrator := speech.NewCommandNarrator(cfg.Speech.Command)
	defer narrator.Close()

	sess := session.NewCaptureSession(openDevice, detector, roster, cfg.Storage.TrainingDir(), cfg.Vision.DetectThreshold)

	bar := progressbar.NewOptions(target,
		progressbar.OptionSetDescription("Capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	fmt.Printf("Enrolling %s (%d), target %d samples\n", name, enrollment, target)

	events := make(chan session.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.Kind {
			case session.EventStatus:
				fmt.Println(ev.Message)
				narrator.Say(ev.Message)
			case session.EventProgress:
				_ = bar.Set(int(ev.Progress * float64(target)))
			}
		}
	}()

	result, err := sess.Run(ctx, enrollment, name, target, events)
	<-done
	fmt.Println()

	if err != nil {
		if errors.Is(err, session.ErrNoFacesDetected) {
			return errors.New("no faces were detected, try again with better lighting")
		}
		return fmt.Errorf("capture failed: %w", err)
	}

	fmt.Printf("Captured %d samples for %s (%d)\n", result.Samples, name, enrollment)
	fmt.Println("Run 'face-attendance train' to update the recognition model.")
	return nil
}
