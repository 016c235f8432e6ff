// Package main is the emocircle entry point: the HTTP/WebSocket server and a
// small CLI for facilitators.
//
// Wire-up lives in app.go and init_*.go; each command lives in its own
// cmd_*.go file and registers itself on rootCmd in init().
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	envServer = "EMOCIRCLE_SERVER"
	envToken  = "EMOCIRCLE_TOKEN"
)

var (
	version = "dev"

	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "emocircle",
	Short: "Emotion check-in sessions for groups",
	Long: `emocircle - run emotion check-in sessions for a group

A facilitator opens a session and shares its code; members join with the
code, report how they feel and post anonymous messages. The facilitator
watches the live emotion summary until the session is ended.

Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.Version = version

	defaultServer := os.Getenv(envServer)
	if defaultServer == "" {
		defaultServer = "http://localhost:5000"
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "Server base URL (env "+envServer+")")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv(envToken), "Facilitator token (env "+envToken+")")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
