// Package cmd wires the CLI. The root command enters interactive chat;
// subcommands cover version output.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kratt",
	Short: "Kratt - a local AI chat assistant",
	Long: `Kratt is a chat assistant backed by local Ollama models.

Running kratt without arguments enters interactive chat mode. Chat turns
can call file-search tools, describe attached images with a vision model,
and ground answers in live web search results.`,
	RunE:          runChat,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
