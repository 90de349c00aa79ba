package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "topicrelay",
	Short: "Relay private chats into forum topics of an admin group",
	Long: `topicrelay forwards every private message sent to the bot into a forum
topic of one admin supergroup, one topic per user, and sends replies made
inside a topic back to that user.

Available commands:
  run       Start the relay
  routes    Inspect the user -> topic table
  version   Print build information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/topicrelay.local.yaml", "path to config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load before expanding the config (default .env)")
}
