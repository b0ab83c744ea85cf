package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/trainer"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the recognition model from captured samples",
	Long: `Train the face recognition model from all captured samples in the
training directory. The resulting model file replaces any previous
model atomically, so a crash during training never corrupts it.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Training model"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	tr := trainer.New(vision.NewClient(cfg.Vision.URL))
	result, err := tr.Run(ctx, cfg.Storage.TrainingDir(), cfg.Storage.ModelPath(), trainer.Options{
		OnStatus: func(msg string) {
			fmt.Println(msg)
		},
		OnProgress: func(p float64) {
			_ = bar.Set(int(p * 100))
		},
	})
	fmt.Println()

	if err != nil {
		if errors.Is(err, trainer.ErrEmptyDataset) {
			return errors.New("no training samples found, run 'face-attendance register' first")
		}
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Model trained on %d images (%d skipped)\n", result.Images, result.Skipped)
	fmt.Printf("Model saved to %s\n", cfg.Storage.ModelPath())
	return nil
}
