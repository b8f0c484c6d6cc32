package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"greencheck/internal/adapter/extract"
	"greencheck/internal/adapter/fs"
	"greencheck/internal/usecase"
)

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Check marketing text for greenwashing",
	Long: `Check marketing text against the reference corpus and print a verdict.

Examples:
  greencheck detect "Our eco-friendly packaging is 100% natural."
  greencheck detect --file campaign.txt
  greencheck detect --glob "campaigns/**/*.txt" --json
  greencheck detect --dir campaigns --include "**/*.md" --exclude "drafts/**"`,
	Args: cobra.ArbitraryArgs,
	RunE: runDetect,
}

var (
	detectFile string
	detectGlob    string
	detectDir     string
	detectInclude []string
	detectExclude []string
	detectJSON    bool
)

func init() {
	detectCmd.Flags().StringVarP(&detectFile, "file", "f", "", "read the text from a file")
	detectCmd.Flags().StringVar(&detectGlob, "glob", "", "check every file matching a doublestar pattern")
	detectCmd.Flags().StringVar(&detectDir, "dir", "", "check every text, markdown or HTML file under a directory")
	detectCmd.Flags().StringSliceVar(&detectInclude, "include", nil, "doublestar patterns to include with --dir")
	detectCmd.Flags().StringSliceVar(&detectExclude, "exclude", nil, "doublestar patterns to skip with --dir")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(detectCmd)
}

type detectInput struct {
	name string
	text string
}

func runDetect(cmd *cobra.Command, args []string) error {
	inputs, err := detectInputs(args)
	if err != nil {
		return err
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

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, in := range inputs {
		resp, err := a.detect.Detect(cmd.Context(), in.text)
		if err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}

		if detectJSON {
			if err := enc.Encode(struct {
				Source string `json:"source"`
				usecase.DetectResponse
			}{in.name, resp}); err != nil {
				return err
			}
			continue
		}
		printVerdict(in.name, resp)
	}
	return nil
}

func detectInputs(args []string) ([]detectInput, error) {
	switch {
	case detectDir != "":
		files, err := fs.NewWalker(detectInclude, detectExclude).Walk(detectDir)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no matching files under %s", detectDir)
		}
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		return readInputs(paths)

	case detectGlob != "":
		paths, err := fs.Glob(detectGlob)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no files match %s", detectGlob)
		}
		return readInputs(paths)

	case detectFile != "":
		in, err := readInput(detectFile)
		if err != nil {
			return nil, err
		}
		return []detectInput{in}, nil

	case len(args) > 0:
		return []detectInput{{name: "argument", text: strings.Join(args, " ")}}, nil
	}
	return nil, fmt.Errorf("provide text, --file, --glob or --dir")
}

func readInputs(paths []string) ([]detectInput, error) {
	inputs := make([]detectInput, 0, len(paths))
	for _, p := range paths {
		in, err := readInput(p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func readInput(path string) (detectInput, error) {
	raw, err := fs.ReadFile(path, fs.DefaultMaxFileSize)
	if err != nil {
		return detectInput{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, err := extract.Text(path, raw)
	if err != nil {
		return detectInput{}, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return detectInput{name: path, text: text}, nil
}

func printVerdict(name string, resp usecase.DetectResponse) {
	fmt.Printf("=== %s ===\n", name)
	fmt.Printf("Risk: %s (%d)  method: %s  context chunks: %d\n", resp.Label, resp.Score, resp.AnalysisMethod, resp.ContextUsed)
	if resp.Justification != "" {
		fmt.Printf("%s\n", resp.Justification)
	}

	if len(resp.FlaggedPhrases) > 0 {
		fmt.Printf("\nFlagged:\n")
		for _, fp := range resp.FlaggedPhrases {
			fmt.Printf("  [%s] %q\n", fp.RiskLevel, fp.Phrase)
			fmt.Printf("      why: %s\n", fp.Justification)
			fmt.Printf("      fix: %s\n", fp.Suggestion)
		}
	}
	if len(resp.SupportedClaims) > 0 {
		fmt.Printf("\nSupported:\n")
		for _, sc := range resp.SupportedClaims {
			fmt.Printf("  %q\n", sc.Phrase)
			fmt.Printf("      evidence: %s\n", truncate(strings.ReplaceAll(sc.SupportingEvidence, "\n", " "), 100))
		}
	}
	for _, w := range resp.Warnings {
		fmt.Printf("\nWarning: %s\n", w)
	}
	fmt.Println()
}
