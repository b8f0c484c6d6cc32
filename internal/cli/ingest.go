package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"greencheck/internal/adapter/fs"
	"greencheck/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Replace the reference corpus with a document",
	Long: `Replace the reference corpus of the configured source tag with the given
document. Plain text passes through; .html files are reduced to visible text.
Reads standard input when no file is given.

Examples:
  greencheck ingest annual_report.txt
  greencheck ingest report.html --tag ACME_2025
  cat report.txt | greencheck ingest --filename report.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var (
	ingestFilename string
	ingestNoBar    bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestFilename, "filename", "", "filename recorded with the document (default is the file's base name)")
	ingestCmd.Flags().BoolVar(&ingestNoBar, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	var content string
	filename := ingestFilename
	if len(args) == 1 {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		content, err = fs.ReadFile(path, fs.DefaultMaxFileSize)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		if filename == "" {
			filename = filepath.Base(path)
		}
	} else {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, fs.DefaultMaxFileSize+1))
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) > fs.DefaultMaxFileSize {
			return fmt.Errorf("input exceeds %d bytes", fs.DefaultMaxFileSize)
		}
		content = string(data)
		if filename == "" {
			filename = "stdin.txt"
		}
	}

	logger, err := newQuietLogger()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	opts := usecase.IngestOptions{}
	if !ingestNoBar {
		opts.Progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Inserting chunks"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}
	}

	fmt.Printf("Ingesting %s into %s...\n", filename, cfg.Corpus.SourceTag)
	res, err := a.ingest.IngestWithOptions(cmd.Context(), content, filename, cfg.Corpus.SourceTag, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Document ID:    %s\n", res.DocumentID)
	fmt.Printf("  Chunks created: %d of %d\n", res.ChunksCreated, res.ChunksProduced)
	fmt.Printf("  Content length: %d characters\n", res.ContentLength)
	if res.ChunksCreated < res.ChunksProduced {
		fmt.Printf("  Warning: %d chunks failed to insert\n", res.ChunksProduced-res.ChunksCreated)
	}
	return nil
}
