package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"greencheck/config"
)

const envPrefix = "GREENCHECK"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "greencheck",
	Short: "Greenwashing claim checker backed by a reference corpus",
	Long: `greencheck flags vague or unsubstantiated environmental claims in marketing
text by comparing them with a reference sustainability report.

Example usage:
  greencheck seed                                 # Load the bundled reference report
  greencheck ingest report.txt                    # Replace the reference corpus
  greencheck detect "Our eco-friendly bottle"     # Check a claim
  greencheck adapt "A planet-safe cleaner"        # Suggest a specific rewrite
  greencheck serve                                # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		applyOverrides(v, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./greencheck.yaml)")
	flags.StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	flags.String("store", "", "store driver: bolt, sqlite, postgres or memory")
	flags.String("dsn", "", "postgres connection string")
	flags.String("tag", "", "corpus source tag")

	_ = v.BindPFlag("store.driver", flags.Lookup("store"))
	_ = v.BindPFlag("store.dsn", flags.Lookup("dsn"))
	_ = v.BindPFlag("corpus.source_tag", flags.Lookup("tag"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(replacer())
	v.AutomaticEnv()
}

// applyOverrides copies flag and GREENCHECK_* environment values onto cfg.
// Only keys that were explicitly set are applied.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	strs := map[string]*string{
		"store.driver":      &cfg.Store.Driver,
		"store.path":        &cfg.Store.Path,
		"store.dsn":         &cfg.Store.DSN,
		"corpus.source_tag": &cfg.Corpus.SourceTag,
		"server.addr":       &cfg.Server.Addr,
		"llm.provider":      &cfg.LLM.Provider,
		"llm.api_key":       &cfg.LLM.APIKey,
		"llm.base_url":      &cfg.LLM.BaseURL,
		"llm.model":         &cfg.LLM.Model,
		"logging.level":     &cfg.Logging.Level,
		"logging.format":    &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			if val := v.GetString(key); val != "" {
				*dst = val
			}
		}
	}

	ints := map[string]*int{
		"ingest.chunk_size": &cfg.Ingest.ChunkSize,
		"ingest.batch_size": &cfg.Ingest.BatchSize,
		"retrieve.top_k":    &cfg.Retrieve.TopK,
		"llm.timeout_sec":   &cfg.LLM.TimeoutSec,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			if val := v.GetInt(key); val > 0 {
				*dst = val
			}
		}
	}
}

func replacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
