package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"greencheck/internal/adapter/fs"
)

var adaptCmd = &cobra.Command{
	Use:   "adapt [text]",
	Short: "Rewrite marketing text with specific claims",
	Long: `Rewrite marketing text, replacing vague environmental claims with specific ones.

Examples:
  greencheck adapt "Our planet-safe, non-toxic cleaner"
  greencheck adapt --file campaign.txt --json`,
	Args: cobra.ArbitraryArgs,
	RunE: runAdapt,
}

var (
	adaptFile string
	adaptJSON bool
)

func init() {
	adaptCmd.Flags().StringVarP(&adaptFile, "file", "f", "", "read the text from a file")
	adaptCmd.Flags().BoolVar(&adaptJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(adaptCmd)
}

func runAdapt(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if adaptFile != "" {
		var err error
		text, err = fs.ReadFile(adaptFile, fs.DefaultMaxFileSize)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", adaptFile, err)
		}
	}

	logger, err := newQuietLogger()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.adapt.Adapt(cmd.Context(), text)
	if err != nil {
		return err
	}

	if adaptJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Before: %s\n", res.Before)
	fmt.Printf("After:  %s\n", res.After)
	fmt.Printf("Improvement score: %d (%s)\n", res.ImprovementScore, res.Method)
	if len(res.Changes) > 0 {
		fmt.Printf("\nChanges:\n")
		for _, c := range res.Changes {
			fmt.Printf("  %q -> %q\n      %s\n", c.OriginalPhrase, c.NewPhrase, c.Reason)
		}
	}
	if res.Error != "" {
		fmt.Printf("\nNote: language model unavailable (%s)\n", res.Error)
	}
	return nil
}
