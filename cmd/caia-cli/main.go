package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/processing"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/workflows"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(os.Getenv("CAIA_CONFIG"))
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	switch os.Args[1] {
	case "prepare":
		corpusName := ""
		if len(os.Args) > 2 {
			corpusName = os.Args[2]
		}
		prepare(cfg, corpusName)

	case "show":
		if len(os.Args) < 3 {
			fmt.Println("❌ Usage: caia-cli show <workflow-id>")
			os.Exit(1)
		}
		showWorkflow(cfg, os.Args[2])

	case "lookup":
		if len(os.Args) < 3 {
			fmt.Println("❌ Usage: caia-cli lookup <word>")
			os.Exit(1)
		}
		lookup(cfg, os.Args[2])

	case "sample":
		if len(os.Args) < 3 {
			fmt.Println("❌ Usage: caia-cli sample <artifact> [n]")
			os.Exit(1)
		}
		n := 10
		if len(os.Args) > 3 {
			if n, err = strconv.Atoi(os.Args[3]); err != nil || n <= 0 {
				fmt.Println("❌ n must be a positive integer")
				os.Exit(1)
			}
		}
		sample(cfg, os.Args[2], n)

	default:
		showHelp()
	}
}

func dialTemporal(cfg *config.PipelineConfig) client.Client {
	temporalClient, err := client.Dial(client.Options{
		HostPort: cfg.Server.TemporalHost,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to Temporal: %v", err)
	}
	return temporalClient
}

func openStorage(cfg *config.PipelineConfig) storage.Backend {
	backend, err := storage.NewBackend(cfg.Storage, nil)
	if err != nil {
		log.Fatalf("❌ Failed to open storage: %v", err)
	}
	return backend
}

func prepare(cfg *config.PipelineConfig, corpusName string) {
	temporalClient := dialTemporal(cfg)
	defer temporalClient.Close()

	runID := uuid.New().String()
	workflowID := fmt.Sprintf("cli-corpus-%s", runID)
	fmt.Printf("🔄 Preparing corpus (run %s)\n", runID)

	workflowRun, err := temporalClient.ExecuteWorkflow(
		context.Background(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: cfg.Server.TaskQueue,
		},
		workflows.CorpusPreparationWorkflow,
		workflows.PreparationInput{RunID: runID, CorpusName: corpusName},
	)
	if err != nil {
		log.Fatalf("❌ Failed to start workflow: %v", err)
	}

	fmt.Printf("✅ Workflow started: %s\n", workflowRun.GetID())
	fmt.Printf("   Waiting for completion...\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var result workflows.PreparationResult
	if err := workflowRun.Get(ctx, &result); err != nil {
		fmt.Printf("❌ Workflow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🎉 Corpus prepared!\n")
	fmt.Printf("   Pairs:      %d\n", result.Prepare.Pairs)
	fmt.Printf("   Kept words: %d / %d = %.4f\n", result.Vocabulary.KeptWords, result.Vocabulary.TotalWords, result.Vocabulary.KeptRatio)
	fmt.Printf("   Artifacts:  %s, %s\n", result.Prepare.FormattedArtifact, result.Vocabulary.VocabularyArtifact)
}

func showWorkflow(cfg *config.PipelineConfig, workflowID string) {
	temporalClient := dialTemporal(cfg)
	defer temporalClient.Close()

	resp, err := temporalClient.DescribeWorkflowExecution(context.Background(), workflowID, "")
	if err != nil {
		log.Fatalf("❌ Failed to describe workflow: %v", err)
	}

	info := resp.GetWorkflowExecutionInfo()
	fmt.Printf("📋 Workflow: %s\n", workflowID)
	fmt.Printf("   Status:  %s\n", info.GetStatus().String())
	fmt.Printf("   Started: %s\n", info.GetStartTime().AsTime().Format(time.RFC3339))
	if info.GetCloseTime() != nil {
		fmt.Printf("   Closed:  %s\n", info.GetCloseTime().AsTime().Format(time.RFC3339))
	}
}

func lookup(cfg *config.PipelineConfig, sentence string) {
	backend := openStorage(cfg)

	v, err := pipeline.LoadVocabulary(context.Background(), backend, cfg.Storage.VocabularyFile)
	if err != nil {
		log.Fatalf("❌ Failed to load vocabulary: %v", err)
	}

	normalized := processing.NewNormalizerFromConfig(cfg.Processing).Normalize(sentence)
	if normalized == "" {
		fmt.Println("❌ Nothing left after normalization")
		os.Exit(1)
	}

	found := true
	for _, word := range strings.Fields(normalized) {
		index, ok := v.Index(word)
		if !ok {
			fmt.Printf("   %-20s not in vocabulary\n", word)
			found = false
			continue
		}
		fmt.Printf("   %-20s index=%d count=%d\n", word, index, v.Count(word))
	}
	if !found {
		os.Exit(2)
	}
}

func sample(cfg *config.PipelineConfig, artifact string, n int) {
	backend := openStorage(cfg)

	lines, err := pipeline.SampleArtifact(context.Background(), backend, artifact, n)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", artifact, err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}

func showHelp() {
	fmt.Println("🔧 Caia Corpus CLI")
	fmt.Println("==================")
	fmt.Println("")
	fmt.Println("Usage: caia-cli [command] [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  prepare [corpus-name]    - Run the corpus preparation workflow")
	fmt.Println("  show <workflow-id>       - Show workflow details")
	fmt.Println("  lookup <word>            - Look up a normalized word in the vocabulary")
	fmt.Println("  sample <artifact> [n]    - Print the first n lines of an artifact")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  caia-cli prepare")
	fmt.Println("  caia-cli lookup \"What's up?\"")
	fmt.Println("  caia-cli sample formatted_movie_lines.txt 10")
	fmt.Println("")
	fmt.Println("Configuration is read from $CAIA_CONFIG and CAIA_* variables.")
	fmt.Println("")
}
