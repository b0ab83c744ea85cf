package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List registered students",
	Args:  cobra.NoArgs,
	RunE:  runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
}

func runStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	students, err := store.NewRoster(cfg.Storage.RosterPath()).Load()
	if err != nil {
		if errors.Is(err, store.ErrRosterMissing) {
			fmt.Println("No students registered yet.")
			return nil
		}
		return fmt.Errorf("failed to load roster: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students registered yet.")
		return nil
	}

	fmt.Printf("%-12s %s\n", "ENROLLMENT", "NAME")
	for _, s := range students {
		fmt.Printf("%-12s %s\n", s.Enrollment, s.Name)
	}
	fmt.Printf("\nTotal: %d students\n", len(students))
	return nil
}
