// Command lola runs the always-listening voice assistant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lola",
	Short: "Lola, an always-listening voice assistant",
	Long: `Lola listens for its wake phrase, forwards what you asked to the
conversation backend, speaks the answer and performs the actions the backend
asks for on this machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to lola.yaml (default ./lola.yaml or the user config dir)")
	rootCmd.AddCommand(runCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
