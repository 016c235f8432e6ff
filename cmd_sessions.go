package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/akinalp/emocircle/client"
	"github.com/akinalp/emocircle/models"
)

var (
	listStatus  string
	listHistory bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage your sessions on a running server",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your sessions",
	Long: `List your sessions, newest first.

Examples:
  emocircle sessions list
  emocircle sessions list --status active
  emocircle sessions list --history`,
	Args: cobra.NoArgs,
	RunE: runSessionsList,
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Open a new session and print its join code",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSessionsCreate,
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsEnd,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsCreateCmd, sessionsEndCmd)

	sessionsListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: active or closed")
	sessionsListCmd.Flags().BoolVar(&listHistory, "history", false, "Show closed sessions with their final emotions")
}

// apiClient builds a client from the global --server and --token flags.
func apiClient() (*client.Client, error) {
	if authToken == "" {
		return nil, fmt.Errorf("a facilitator token is required: pass --token or set %s", envToken)
	}
	return client.New(serverURL, client.WithToken(authToken)), nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}

	var sessions []models.SessionSummary
	if listHistory {
		sessions, err = c.History(cmd.Context())
	} else {
		var status models.SessionStatus
		status, err = models.ParseSessionStatus(listStatus)
		if err != nil {
			return err
		}
		sessions, err = c.ListSessions(cmd.Context(), status)
	}
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found. Create one with 'emocircle sessions create <name>'.")
		return nil
	}

	fmt.Fprintf(out, "Showing %d session(s)\n\n", len(sessions))
	for _, s := range sessions {
		printSummary(out, s)
	}
	return nil
}

func printSummary(out io.Writer, s models.SessionSummary) {
	fmt.Fprintf(out, "[%d] %s (%s)\n", s.ID, s.Name, s.Status)
	fmt.Fprintf(out, "    Code: %s\n", s.Code)
	fmt.Fprintf(out, "    Participants: %d, Messages: %d\n", s.ParticipantCount, s.MessageCount)
	fmt.Fprintf(out, "    Created: %s %s (%s)\n", s.Date, s.Time, humanize.Time(s.CreatedAt))
	if s.EndedAt != nil {
		fmt.Fprintf(out, "    Ended: %s\n", humanize.Time(*s.EndedAt))
	}
	if len(s.Emotions) > 0 {
		fmt.Fprintf(out, "    Emotions: %s\n", formatEmotions(s.Emotions))
	}
	fmt.Fprintln(out)
}

func formatEmotions(summary []models.EmotionSummary) string {
	parts := make([]string, 0, len(summary))
	for _, e := range summary {
		parts = append(parts, fmt.Sprintf("%s %s %d%%", e.Emoji, e.Emotion, e.Percentage))
	}
	return strings.Join(parts, ", ")
}

func runSessionsCreate(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}

	session, err := c.CreateSession(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session %d created. Join code: %s\n", session.ID, session.Code)
	return nil
}

func runSessionsEnd(cmd *cobra.Command, args []string) error {
	sessionID, err := parseSessionID(args[0])
	if err != nil {
		return err
	}

	c, err := apiClient()
	if err != nil {
		return err
	}

	session, err := c.EndSession(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session %d (%s) ended.\n", session.ID, session.Name)
	return nil
}

func parseSessionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", raw)
	}
	return id, nil
}
