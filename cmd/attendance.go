package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance [subject]",
	Short: "Show recorded attendance",
	Long: `Show recorded attendance files. Without arguments all subjects are
listed. With a subject the sessions for that subject are printed,
optionally filtered by date.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Only show sessions from this date (YYYY-MM-DD)")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	date := mustGetString(cmd, "date")

	subject := ""
	if len(args) == 1 {
		subject = args[0]
	}

	files, err := store.ListAttendanceFiles(cfg.Storage.AttendanceDir(), subject)
	if err != nil {
		return fmt.Errorf("failed to list attendance files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No attendance recorded yet.")
		return nil
	}

	if subject == "" {
		// Subject overview only
		counts := map[string]int{}
		for _, f := range files {
			sub, _, _, err := store.DecodeAttendanceName(f)
			if err != nil {
				continue
			}
			counts[sub]++
		}
		fmt.Printf("%-20s %s\n", "SUBJECT", "SESSIONS")
		for sub, n := range counts {
			fmt.Printf("%-20s %d\n", sub, n)
		}
		return nil
	}

	shown := 0
	for _, f := range files {
		_, fileDate, timeOfDay, err := store.DecodeAttendanceName(f)
		if err != nil {
			continue
		}
		if date != "" && fileDate != date {
			continue
		}

		records, err := store.ReadAttendance(f)
		if err != nil {
			fmt.Printf("Skipping unreadable file %s: %v\n", filepath.Base(f), err)
			continue
		}

		fmt.Printf("%s %s (%d students)\n", fileDate, timeOfDay, len(records))
		for _, rec := range records {
			fmt.Printf("  %-12s %s\n", rec.Enrollment, rec.Name)
		}
		fmt.Println()
		shown++
	}

	if shown == 0 {
		fmt.Println("No attendance found for the given filter.")
	}
	return nil
}
