package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/akinalp/emocircle/client"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg/logger"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a session's participants and emotions",
	Long: `Poll a session on a fixed interval and print its participants, emotion
summary and message count until the session ends.

The interval defaults to the one the server advertises on /api/health.

Examples:
  emocircle watch 12
  emocircle watch 12 --interval 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default: server advertised)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	sessionID, err := parseSessionID(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c := client.New(serverURL, client.WithToken(authToken))

	interval := watchInterval
	if interval <= 0 {
		if health, err := c.Health(ctx); err == nil {
			interval = health.PollInterval()
		}
	}

	log := logger.New(logger.Config{Level: "warn", Output: os.Stderr})
	out := cmd.OutOrStdout()

	w := client.NewFacilitatorWatcher(c, sessionID, interval, log)
	w.OnUpdate = func(snap client.Snapshot) {
		printSnapshot(out, snap)
	}
	w.OnClosed = func(s models.Session) {
		ended := "just now"
		if s.EndedAt != nil {
			ended = humanize.Time(*s.EndedAt)
		}
		fmt.Fprintf(out, "Session %d ended %s.\n", s.ID, ended)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to watch session %d: %w", sessionID, err)
	}
	return nil
}

func printSnapshot(out io.Writer, snap client.Snapshot) {
	if snap.Detail == nil {
		return
	}

	s := snap.Detail.Session
	fmt.Fprintf(out, "%s  %s [%s] code %s", snap.FetchedAt.Format("15:04:05"), s.Name, s.Status, s.Code)
	if snap.Stale {
		fmt.Fprint(out, " (stale)")
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "  %d participant(s), %d message(s)\n", len(snap.Participants), len(snap.Detail.Messages))
	if len(snap.Detail.Emotions) > 0 {
		fmt.Fprintf(out, "  %s\n", formatEmotions(snap.Detail.Emotions))
	}
	for _, p := range snap.Participants {
		fmt.Fprintf(out, "  %s %-20s %s, joined %s\n", p.Emotion, p.Name, p.EmotionLabel, humanize.Time(p.JoinedAt))
	}
	fmt.Fprintln(out)
}
