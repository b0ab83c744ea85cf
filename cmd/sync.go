package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/remote"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload pending attendance files to the remote store",
	Long: `Upload attendance files that failed to reach the remote store. Each
pending file is retried once; files that fail again stay queued for
the next run.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
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

	openRemote := func(ctx context.Context) (remote.Store, error) {
		return remote.Open(ctx, cfg.Remote)
	}
	s := syncer.New(cfg.Storage.AttendanceDir(), store.NewPendingLog(cfg.Storage.PendingLogPath()), openRemote)

	result, err := s.SyncPending(ctx, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		if errors.Is(err, remote.ErrConfigMissing) {
			return errors.New("remote store not configured, set REMOTE_URI first")
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	if result.Remaining > 0 {
		fmt.Printf("%d files still pending, run sync again when online.\n", result.Remaining)
	}
	return nil
}
