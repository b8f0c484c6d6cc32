package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"greencheck/internal/usecase"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the bundled reference report if the corpus is empty",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	logger, err := newQuietLogger()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.seed.Seed(cmd.Context())
	if err != nil {
		return err
	}

	switch res.Status {
	case usecase.SeedStatusPresent:
		fmt.Printf("Corpus already seeded (document %s)\n", res.DocumentID)
	default:
		fmt.Printf("Seeded document %s with %d chunks\n", res.DocumentID, res.ChunksCreated)
	}
	return nil
}
