package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "tether"
	appVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Multi-client TCP command-and-control server",
	Long: `Tether accepts many agent connections at once and lets an operator
address one agent or all of them from a console:
  - !list             show connected agents
  - !switch <id>      target a single agent
  - !all              target every agent
  - anything else     sent verbatim to the current target (INFO, ECHO|msg, EXIT)`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addConfigFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(agentCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
