// Command pipeline prepares the dialogue corpus locally: it extracts pairs,
// stores the pair artifacts and builds the vocabulary in one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a JSON or YAML configuration file")
	baseDir := flag.String("base-dir", "", "directory holding the corpus directory")
	corpusName := flag.String("corpus", "", "corpus directory name")
	minCount := flag.Int("min-count", 0, "vocabulary trim threshold (0 keeps the configured value)")
	backend := flag.String("backend", "", "artifact backend: file or git")
	samples := flag.Int("samples", 10, "number of formatted lines to print")
	flag.Parse()

	fmt.Println("🚀 CAIA CORPUS PIPELINE")
	fmt.Println("=======================")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		return 1
	}
	if *baseDir != "" {
		cfg.Corpus.BaseDir = *baseDir
	}
	if *corpusName != "" {
		cfg.Corpus.CorpusName = *corpusName
	}
	if *minCount > 0 {
		cfg.Processing.MinCount = *minCount
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		return 1
	}

	closer, err := logging.SetupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to setup logging: %v\n", err)
		return 1
	}
	defer closer.Close()

	logger := logging.GetLogger("pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := storage.NewSimpleMetricsCollector()
	store, err := storage.NewBackend(cfg.Storage, metrics)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage")
		return 1
	}

	fmt.Printf("📂 Corpus: %s\n", cfg.Corpus.CorpusDir())
	fmt.Printf("💾 Backend: %s\n", cfg.Storage.Backend)

	runner := pipeline.NewRunner(cfg, store)
	result, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Run %s failed: %v\n", runner.RunID(), err)
		return 1
	}

	fmt.Println()
	fmt.Printf("✅ Run %s completed in %s\n", result.RunID, result.Duration)
	fmt.Printf("   Records:       %d\n", result.Prepare.Records)
	fmt.Printf("   Conversations: %d\n", result.Prepare.Conversations)
	fmt.Printf("   Pairs:         %d (%d skipped)\n", result.Prepare.Pairs.Emitted, result.Prepare.Pairs.Skipped)
	fmt.Printf("   Kept words:    %d / %d = %.4f\n", result.Vocabulary.Trim.Kept, result.Vocabulary.Trim.Total, result.Vocabulary.Trim.Ratio)
	fmt.Printf("   Vocabulary:    %d indices\n", result.Vocabulary.Words)

	if *samples > 0 {
		lines, err := pipeline.SampleArtifact(ctx, store, cfg.Storage.FormattedFile, *samples)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to read sample lines")
		} else {
			fmt.Printf("\n📄 Sample lines from %s:\n", cfg.Storage.FormattedFile)
			for _, line := range lines {
				fmt.Println(line)
			}
		}
	}

	summary := metrics.GetMetricsSummary()
	for backendName, ops := range summary.ByBackend {
		for op, stats := range ops {
			logger.Debug().
				Str("backend", backendName).
				Str("operation", op).
				Int("count", stats.Count).
				Float64("avg_ms", stats.GetAvgDurationMs()).
				Msg("Storage operation stats")
		}
	}
	return 0
}
