// Package pipeline runs the corpus preparation stages in order and reports
// progress on an event bus.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Caia-Tech/caia-corpus/internal/loader"
	"github.com/Caia-Tech/caia-corpus/internal/processing"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/Caia-Tech/caia-corpus/pkg/vocab"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PrepareResult summarises load, assembly, extraction and the formatted artifact
type PrepareResult struct {
	RunID         string           `json:"run_id"`
	Records       int              `json:"records"`
	Conversations int              `json:"conversations"`
	Pairs         loader.PairStats `json:"pairs"`
	FormattedRef  string           `json:"formatted_ref"`
}

// VocabularyResult summarises normalization and vocabulary construction
type VocabularyResult struct {
	RunID         string                    `json:"run_id"`
	Normalize     processing.NormalizeStats `json:"normalize"`
	NormalizedRef string                    `json:"normalized_ref,omitempty"`
	Trim          vocab.TrimReport          `json:"trim"`
	Words         int                       `json:"words"` // after trimming, sentinels included
	VocabularyRef string                    `json:"vocabulary_ref"`
}

// Result is the outcome of a full run
type Result struct {
	RunID      string            `json:"run_id"`
	Prepare    *PrepareResult    `json:"prepare"`
	Vocabulary *VocabularyResult `json:"vocabulary"`
	Duration   time.Duration     `json:"duration"`

	Vocab *vocab.Vocabulary `json:"-"`
}

// Runner executes the stages sequentially against one configuration.
// A Runner is used for a single run; every run starts from the raw files.
type Runner struct {
	cfg        *config.PipelineConfig
	backend    storage.Backend
	normalizer *processing.Normalizer
	bus        *EventBus
	runID      string
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithEventBus publishes stage events to bus
func WithEventBus(bus *EventBus) RunnerOption {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithRunID overrides the generated run id
func WithRunID(runID string) RunnerOption {
	return func(r *Runner) {
		if runID != "" {
			r.runID = runID
		}
	}
}

// NewRunner creates a runner. The normalizer is built from the processing config.
func NewRunner(cfg *config.PipelineConfig, backend storage.Backend, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:        cfg,
		backend:    backend,
		normalizer: processing.NewNormalizerFromConfig(cfg.Processing),
		runID:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the id attached to every log line and event of this run
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes every stage and stores all artifacts. Any error aborts the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger := logging.GetPipelineLogger(r.runID, "run")
	logger.Info().
		Str("corpus", r.cfg.Corpus.CorpusDir()).
		Str("backend", r.cfg.Storage.Backend).
		Msg("Starting corpus preparation")
	r.publish(NewStageEvent(EventRunStarted, r.runID, ""))

	prepared, pairs, err := r.Prepare(ctx)
	if err != nil {
		return nil, r.fail(logger, err)
	}

	built, v, err := r.BuildVocabulary(ctx, pairs)
	if err != nil {
		return nil, r.fail(logger, err)
	}

	result := &Result{
		RunID:      r.runID,
		Prepare:    prepared,
		Vocabulary: built,
		Duration:   time.Since(start),
		Vocab:      v,
	}
	logger.Info().
		Int("pairs", prepared.Pairs.Emitted).
		Int("words", built.Words).
		Dur("duration", result.Duration).
		Msg("Corpus preparation completed")
	r.publish(NewStageEvent(EventRunCompleted, r.runID, "").
		WithMetadata("pairs", prepared.Pairs.Emitted).
		WithMetadata("words", built.Words))
	return result, nil
}

// Prepare loads the records, assembles conversations, extracts pairs and
// stores the formatted pair artifact
func (r *Runner) Prepare(ctx context.Context) (*PrepareResult, []corpus.Pair, error) {
	opts := r.loaderOptions()
	result := &PrepareResult{RunID: r.runID}

	var records corpus.RecordTable
	err := r.stage(ctx, StageLoadRecords, func(logger zerolog.Logger) (map[string]interface{}, error) {
		var err error
		records, err = loader.LoadRecords(ctx, r.cfg.Corpus.LinesPath(), corpus.MovieLinesSchema, append(opts, loader.WithLogger(logger))...)
		if err != nil {
			return nil, err
		}
		result.Records = len(records)
		return map[string]interface{}{"records": len(records)}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var conversations []corpus.Conversation
	err = r.stage(ctx, StageAssemble, func(logger zerolog.Logger) (map[string]interface{}, error) {
		var err error
		conversations, err = loader.AssembleConversations(ctx, r.cfg.Corpus.ConversationsPath(), records, corpus.MovieConversationsSchema, append(opts, loader.WithLogger(logger))...)
		if err != nil {
			return nil, err
		}
		result.Conversations = len(conversations)
		return map[string]interface{}{"conversations": len(conversations)}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var pairs []corpus.Pair
	err = r.stage(ctx, StageExtractPairs, func(logger zerolog.Logger) (map[string]interface{}, error) {
		pairs, result.Pairs = loader.ExtractPairsWithStats(conversations)
		if result.Pairs.Skipped > 0 {
			logger.Debug().Int("skipped", result.Pairs.Skipped).Msg("Skipped pairs with an empty side")
		}
		return map[string]interface{}{"pairs": result.Pairs.Emitted, "skipped": result.Pairs.Skipped}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = r.stage(ctx, StageStoreFormatted, func(logger zerolog.Logger) (map[string]interface{}, error) {
		ref, err := r.storePairs(ctx, r.cfg.Storage.FormattedFile, pairs, "formatted")
		if err != nil {
			return nil, err
		}
		result.FormattedRef = ref
		return map[string]interface{}{"artifact": r.cfg.Storage.FormattedFile, "ref": ref}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return result, pairs, nil
}

// BuildVocabulary normalizes pairs, stores the normalized artifact when enabled,
// then builds, trims and stores the vocabulary
func (r *Runner) BuildVocabulary(ctx context.Context, pairs []corpus.Pair) (*VocabularyResult, *vocab.Vocabulary, error) {
	result := &VocabularyResult{RunID: r.runID}

	var normalized []corpus.Pair
	err := r.stage(ctx, StageNormalize, func(logger zerolog.Logger) (map[string]interface{}, error) {
		normalized, result.Normalize = r.normalizer.NormalizePairs(pairs)
		return map[string]interface{}{
			"pairs":           result.Normalize.Pairs,
			"skipped":         result.Normalize.Skipped,
			"empty_inputs":    result.Normalize.EmptyInputs,
			"empty_responses": result.Normalize.EmptyResponses,
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if r.cfg.Processing.WriteNormalized {
		err = r.stage(ctx, StageStoreNormalized, func(logger zerolog.Logger) (map[string]interface{}, error) {
			ref, err := r.storePairs(ctx, r.cfg.Storage.NormalizedFile, normalized, "normalized")
			if err != nil {
				return nil, err
			}
			result.NormalizedRef = ref
			return map[string]interface{}{"artifact": r.cfg.Storage.NormalizedFile, "ref": ref}, nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	v := vocab.New(r.cfg.Processing.VocabularyName)
	err = r.stage(ctx, StageBuildVocabulary, func(logger zerolog.Logger) (map[string]interface{}, error) {
		for _, p := range normalized {
			v.AddSentence(p.Input)
			v.AddSentence(p.Response)
		}
		return map[string]interface{}{"words": v.Len()}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = r.stage(ctx, StageTrimVocabulary, func(logger zerolog.Logger) (map[string]interface{}, error) {
		result.Trim = v.Trim(r.cfg.Processing.MinCount)
		result.Words = v.Len()
		logger.Info().Msgf("kept_words %d / %d = %.4f", result.Trim.Kept, result.Trim.Total, result.Trim.Ratio)
		return map[string]interface{}{"kept": result.Trim.Kept, "total": result.Trim.Total}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = r.stage(ctx, StageStoreVocabulary, func(logger zerolog.Logger) (map[string]interface{}, error) {
		var buf bytes.Buffer
		if err := v.WriteJSON(&buf); err != nil {
			return nil, fmt.Errorf("failed to encode vocabulary: %w", err)
		}
		ref, err := r.backend.StoreArtifact(ctx, &storage.Artifact{
			Name: r.cfg.Storage.VocabularyFile,
			Kind: storage.KindVocabulary,
			Data: buf.Bytes(),
			Metadata: map[string]string{
				"run_id":    r.runID,
				"words":     strconv.Itoa(v.Len()),
				"min_count": strconv.Itoa(r.cfg.Processing.MinCount),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store vocabulary: %w", err)
		}
		result.VocabularyRef = ref
		return map[string]interface{}{"artifact": r.cfg.Storage.VocabularyFile, "ref": ref}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return result, v, nil
}

// LoadPairs reads a stored pair artifact back
func LoadPairs(ctx context.Context, backend storage.Backend, name string) ([]corpus.Pair, error) {
	artifact, err := backend.GetArtifact(ctx, name)
	if err != nil {
		return nil, err
	}
	pairs, err := corpus.ReadPairs(bytes.NewReader(artifact.Data))
	if err != nil {
		var cerr *corpus.Error
		if errors.As(err, &cerr) && cerr.File == "" {
			cerr.File = name
		}
		return nil, err
	}
	return pairs, nil
}

// LoadVocabulary reads a stored vocabulary artifact back
func LoadVocabulary(ctx context.Context, backend storage.Backend, name string) (*vocab.Vocabulary, error) {
	artifact, err := backend.GetArtifact(ctx, name)
	if err != nil {
		return nil, err
	}
	v, err := vocab.ReadJSON(bytes.NewReader(artifact.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return v, nil
}

func (r *Runner) loaderOptions() []loader.Option {
	return []loader.Option{
		loader.WithEncoding(r.cfg.Corpus.Encoding),
		loader.WithDelimiter(r.cfg.Corpus.Delimiter),
	}
}

func (r *Runner) storePairs(ctx context.Context, name string, pairs []corpus.Pair, variant string) (string, error) {
	var buf bytes.Buffer
	if err := corpus.WritePairs(&buf, pairs); err != nil {
		var cerr *corpus.Error
		if errors.As(err, &cerr) {
			cerr.File = name
		}
		return "", err
	}
	ref, err := r.backend.StoreArtifact(ctx, &storage.Artifact{
		Name: name,
		Kind: storage.KindPairs,
		Data: buf.Bytes(),
		Metadata: map[string]string{
			"run_id":  r.runID,
			"variant": variant,
			"pairs":   strconv.Itoa(len(pairs)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	r.publish(NewStageEvent(EventArtifactStored, r.runID, "").
		WithMetadata("artifact", name).
		WithMetadata("ref", ref))
	return ref, nil
}

// stage runs fn with a stage logger and publishes started/completed events
func (r *Runner) stage(ctx context.Context, name string, fn func(logger zerolog.Logger) (map[string]interface{}, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := logging.GetPipelineLogger(r.runID, name)
	start := time.Now()
	r.publish(NewStageEvent(EventStageStarted, r.runID, name))

	metadata, err := fn(logger)
	if err != nil {
		logger.Error().Err(err).Msg("Stage failed")
		return err
	}

	event := logger.Info().Dur("duration", time.Since(start))
	completed := NewStageEvent(EventStageCompleted, r.runID, name)
	for k, v := range metadata {
		event = event.Interface(k, v)
		completed.WithMetadata(k, v)
	}
	event.Msg("Stage completed")
	r.publish(completed)
	return nil
}

func (r *Runner) fail(logger zerolog.Logger, err error) error {
	event := NewStageEvent(EventRunFailed, r.runID, "")
	event.Error = err.Error()
	if kind, ok := corpus.KindOf(err); ok {
		event.WithMetadata("kind", string(kind))
	}
	r.publish(event)
	logger.Error().Err(err).Msg("Corpus preparation failed")
	return err
}

func (r *Runner) publish(event *StageEvent) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event); err != nil {
		logger := logging.GetPipelineLogger(r.runID, event.Stage)
		logger.Debug().Err(err).Msg("Event not published")
	}
}

// SampleArtifact returns up to n raw lines from the start of a stored artifact
func SampleArtifact(ctx context.Context, backend storage.Backend, name string, n int) ([]string, error) {
	artifact, err := backend.GetArtifact(ctx, name)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, n)
	for _, line := range strings.SplitAfter(string(artifact.Data), "\n") {
		if len(lines) == n || line == "" {
			break
		}
		lines = append(lines, strings.TrimSuffix(line, "\n"))
	}
	return lines, nil
}
