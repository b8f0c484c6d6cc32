package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"greencheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API exposing /detect, /process-document, /adapt, /seed,
/detections, /health and /metrics.

Examples:
  greencheck serve
  GREENCHECK_SERVER_ADDR=:9000 greencheck serve --store sqlite`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveSeed bool

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "load the bundled reference report on startup if the corpus is empty")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	logger, err := newLogger(cfg.Logging, verbose)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveSeed {
		res, err := a.seed.Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed corpus: %w", err)
		}
		logger.Info("seed finished",
			zap.String("status", res.Status),
			zap.String("document_id", res.DocumentID))
	}

	srv := server.New(cfg.Server, server.Options{
		Detector:    a.detect,
		Ingester:    a.ingest,
		Adapter:     a.adapt,
		Seeder:      a.seed,
		SourceTag:   cfg.Corpus.SourceTag,
		StoreDriver: cfg.Store.Driver,
		LLMEnabled:  a.llmEnabled,
		Logger:      logger,
		Metrics:     a.metrics,
	})
	return srv.Run(ctx)
}
