package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Classroom attendance via face recognition",
	Long: `Face Attendance is a CLI application that takes classroom attendance
from a live camera feed. Students are enrolled through a guided capture
workflow, a recognition model is trained from the captured samples, and
live sessions record who was present. Attendance is stored locally first
and synced to a remote store when one is configured.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
