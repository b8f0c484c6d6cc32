package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"greencheck/internal/usecase"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and audit log statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsRecent int

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 0, "also list the N most recent detections")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	logger, err := newQuietLogger()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := usecase.Stats(cmd.Context(), a.store, cfg.Corpus.SourceTag)
	if err != nil {
		return err
	}

	fmt.Printf("Store:        %s\n", cfg.Store.Driver)
	fmt.Printf("Source tag:   %s\n", stats.SourceTag)
	if stats.DocumentID == "" {
		fmt.Printf("Document:     (none, run 'greencheck seed' or 'greencheck ingest')\n")
	} else {
		fmt.Printf("Document:     %s\n", stats.DocumentID)
		fmt.Printf("Content hash: %s\n", stats.ContentHash)
	}
	fmt.Printf("Chunks:       %d\n", stats.Chunks)
	fmt.Printf("Detections:   %d\n", stats.Detections)
	fmt.Printf("LLM enabled:  %v\n", a.llmEnabled)

	if statsRecent > 0 {
		recent, err := a.detect.Recent(cmd.Context(), statsRecent)
		if err != nil {
			return err
		}
		fmt.Printf("\nRecent detections:\n")
		for _, d := range recent {
			fmt.Printf("  %s  %-6s  %-13s  %s\n", d.CreatedAt.Format(time.RFC3339), d.Label, d.Method, truncate(d.Text, 60))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
