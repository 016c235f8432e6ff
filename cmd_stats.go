package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/akinalp/emocircle/client"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show activity counters of a running server",
	Long: `Scrape the server's /metrics endpoint and print its activity counters
since start.

Examples:
  emocircle stats
  emocircle stats --server http://emocircle.internal:5000`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := client.New(serverURL).Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read server stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Live subscribers:  %s\n", humanize.Comma(int64(stats.Subscribers)))
	fmt.Fprintf(out, "HTTP requests:     %s\n", humanize.Comma(int64(stats.Requests)))
	fmt.Fprintf(out, "Sessions created:  %s\n", humanize.Comma(int64(stats.SessionsCreated)))
	fmt.Fprintf(out, "Sessions ended:    %s\n", humanize.Comma(int64(stats.SessionsEnded)))
	fmt.Fprintf(out, "Joins:             %s\n", humanize.Comma(int64(stats.Joins)))
	fmt.Fprintf(out, "Emotion reports:   %s\n", humanize.Comma(int64(stats.EmotionReports)))
	fmt.Fprintf(out, "Messages:          %s\n", humanize.Comma(int64(stats.Messages)))
	fmt.Fprintf(out, "Replies:           %s\n", humanize.Comma(int64(stats.Replies)))

	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		fmt.Fprintf(out, "Detail cache hits: %d%% of %s\n",
			stats.CacheHits*100/lookups, humanize.Comma(int64(lookups)))
	}
	return nil
}
