package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"greencheck/config"
	"greencheck/internal/adapter/analyzer"
	"greencheck/internal/adapter/chunker"
	"greencheck/internal/adapter/fs"
	"greencheck/internal/adapter/memstore"
	"greencheck/internal/adapter/retriever"
	"greencheck/internal/adapter/store"
	"greencheck/internal/adapter/verifier"
	"greencheck/internal/domain"
	"greencheck/internal/port"
	"greencheck/internal/usecase"
)

func main() {
	corpusPath := flag.String("corpus", "", "Reference document to ingest (default is the bundled report)")
	queriesPath := flag.String("queries", "", "File with one claim per line")
	driver := flag.String("store", "memory", "Store driver: memory or bolt")
	runs := flag.Int("n", 20, "Repetitions per claim")
	flag.Parse()

	ctx := context.Background()
	cfg := config.DefaultConfig()

	content, filename := usecase.SeedReport(), "annual_report_2024.txt"
	if *corpusPath != "" {
		var err error
		content, err = fs.ReadFile(*corpusPath, fs.DefaultMaxFileSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading corpus: %v\n", err)
			os.Exit(1)
		}
		filename = *corpusPath
	}

	claims := defaultClaims
	if *queriesPath != "" {
		data, err := os.ReadFile(*queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queries: %v\n", err)
			os.Exit(1)
		}
		claims = nil
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				claims = append(claims, line)
			}
		}
	}

	st, cleanup, err := openStore(*driver, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ingest := usecase.NewIngestUseCase(st, chunker.NewParagraphChunker(cfg.Ingest.ChunkSize), cfg.Corpus, cfg.Ingest, nil, nil, nil)
	start := time.Now()
	res, err := ingest.Ingest(ctx, content, filename, cfg.Corpus.SourceTag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error ingesting corpus: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL AND LOCAL VERIFIER BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Store: %s\n", *driver)
	fmt.Printf("Chunks: %d (ingested in %v)\n", res.ChunksCreated, time.Since(start).Round(time.Microsecond))
	fmt.Printf("Claims: %d x %d runs\n\n", len(claims), *runs)

	ret := retriever.NewTieredRetriever(st, retriever.DefaultOptions(), nil)
	local := verifier.NewLocalVerifier(nil)

	var retrieveTimes, verifyTimes []time.Duration
	for _, claim := range claims {
		var chunks []domain.Chunk
		for i := 0; i < *runs; i++ {
			t0 := time.Now()
			chunks, err = ret.Retrieve(ctx, claim, cfg.Corpus.SourceTag, cfg.Retrieve.TopK)
			retrieveTimes = append(retrieveTimes, time.Since(t0))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Retrieve error: %v\n", err)
				os.Exit(1)
			}
		}

		var verdict domain.Verdict
		for i := 0; i < *runs; i++ {
			t0 := time.Now()
			verdict = local.Analyze(claim, chunks)
			verifyTimes = append(verifyTimes, time.Since(t0))
		}

		fmt.Printf("%-55s %-6s flagged=%d supported=%d context=%d\n",
			truncate(claim, 55), verdict.Label, len(verdict.FlaggedPhrases), len(verdict.SupportedClaims), len(chunks))
		for _, kw := range analyzer.Keywords(claim, cfg.Retrieve.MinKeywordLen, cfg.Retrieve.MaxKeywords) {
			fmt.Printf("    keyword: %s\n", kw)
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 70))
	printLatency("retrieve", retrieveTimes)
	printLatency("verify", verifyTimes)
}

var defaultClaims = []string{
	"Our eco-friendly packaging is 100% natural.",
	"Powered by renewable energy at every site.",
	"A biodegradable formula that is non-toxic and planet-safe.",
	"We cut water usage per unit of production.",
	"Carbon-neutral shipping for a greener future.",
	"Recyclable packaging made from post-consumer recycled materials.",
}

func openStore(driver string, cfg *config.Config) (port.Store, func(), error) {
	switch driver {
	case "memory":
		st := memstore.NewMemoryStore()
		return st, func() { st.Close() }, nil
	case "bolt":
		dir, err := os.MkdirTemp("", "greencheck-bench-*")
		if err != nil {
			return nil, nil, err
		}
		st, err := store.NewBoltStore(dir+"/corpus.db", analyzer.NewTokenizer(), cfg.Retrieve.K1, cfg.Retrieve.B)
		if err != nil {
			os.RemoveAll(dir)
			return nil, nil, err
		}
		return st, func() {
			st.Close()
			os.RemoveAll(dir)
		}, nil
	}
	return nil, nil, fmt.Errorf("unsupported driver %q", driver)
}

func printLatency(name string, samples []time.Duration) {
	if len(samples) == 0 {
		return
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	p := func(q float64) time.Duration {
		return sorted[int(q*float64(len(sorted)-1))]
	}
	fmt.Printf("%-9s avg=%-10v p50=%-10v p95=%-10v max=%v\n",
		name, total/time.Duration(len(sorted)), p(0.5), p(0.95), sorted[len(sorted)-1])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
