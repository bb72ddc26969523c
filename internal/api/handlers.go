// Package api exposes the control API: starting preparation runs and querying
// the stored vocabulary.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/processing"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/workflows"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	"github.com/Caia-Tech/caia-corpus/pkg/vocab"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
)

// WorkflowClient is the part of the Temporal client the handlers use
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
}

// Handlers contains the HTTP handlers for the API
type Handlers struct {
	temporal       WorkflowClient
	taskQueue      string
	backend        storage.Backend
	vocabularyFile string
	normalizer     *processing.Normalizer
	logger         zerolog.Logger

	mu    sync.RWMutex
	vocab *vocab.Vocabulary
}

// NewHandlers creates a new handlers instance. The vocabulary is read from
// backend on first use; normalizer must match the one it was built with.
func NewHandlers(temporal WorkflowClient, taskQueue string, backend storage.Backend, vocabularyFile string, normalizer *processing.Normalizer) *Handlers {
	if normalizer == nil {
		normalizer = processing.NewNormalizer()
	}
	return &Handlers{
		temporal:       temporal,
		taskQueue:      taskQueue,
		backend:        backend,
		vocabularyFile: vocabularyFile,
		normalizer:     normalizer,
		logger:         logging.GetLogger("api"),
	}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "caia-corpus",
		"version":   "0.1.0",
		"timestamp": time.Now().UTC(),
	})
}

// StartRunRequest represents a corpus preparation request
type StartRunRequest struct {
	CorpusName string `json:"corpus_name"`
	MinCount   int    `json:"min_count"`
	Schedule   string `json:"schedule"` // optional cron expression
}

// StartRunResponse represents the response for a started run
type StartRunResponse struct {
	WorkflowID    string `json:"workflow_id"`
	RunID         string `json:"run_id"`
	PipelineRunID string `json:"pipeline_run_id"`
}

// StartRun starts a new corpus preparation workflow
func (h *Handlers) StartRun(c *fiber.Ctx) error {
	var req StartRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
		}
	}

	if err := validateStartRun(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	runID := uuid.New().String()
	workflowID := fmt.Sprintf("corpus-%s", runID)

	we, err := h.temporal.ExecuteWorkflow(c.UserContext(), client.StartWorkflowOptions{
		ID:           workflowID,
		TaskQueue:    h.taskQueue,
		CronSchedule: req.Schedule,
	}, workflows.CorpusPreparationWorkflow, workflows.PreparationInput{
		RunID:      runID,
		CorpusName: req.CorpusName,
		MinCount:   req.MinCount,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("Failed to start workflow")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to start corpus preparation",
			"details": err.Error(),
		})
	}

	h.logger.Info().
		Str("workflow_id", workflowID).
		Str("pipeline_run_id", runID).
		Str("corpus", req.CorpusName).
		Msg("Started corpus preparation workflow")

	return c.Status(fiber.StatusAccepted).JSON(StartRunResponse{
		WorkflowID:    we.GetID(),
		RunID:         we.GetRunID(),
		PipelineRunID: runID,
	})
}

func validateStartRun(req *StartRunRequest) error {
	req.CorpusName = strings.TrimSpace(req.CorpusName)
	req.Schedule = strings.TrimSpace(req.Schedule)

	if strings.ContainsAny(req.CorpusName, `/\`) || req.CorpusName == "." || req.CorpusName == ".." {
		return fmt.Errorf("corpus_name must be a directory name, got %q", req.CorpusName)
	}
	if req.MinCount < 0 {
		return fmt.Errorf("min_count must not be negative")
	}
	if req.Schedule != "" && len(strings.Fields(req.Schedule)) != 5 {
		return fmt.Errorf("schedule must be a five field cron expression")
	}
	return nil
}

// WorkflowStatusResponse represents workflow status
type WorkflowStatusResponse struct {
	WorkflowID string     `json:"workflow_id"`
	Status     string     `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// GetRun returns the status of a preparation workflow
func (h *Handlers) GetRun(c *fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Workflow ID is required",
		})
	}

	resp, err := h.temporal.DescribeWorkflowExecution(c.UserContext(), workflowID, "")
	if err != nil || resp.GetWorkflowExecutionInfo() == nil {
		h.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("Failed to describe workflow")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":       "Workflow not found",
			"workflow_id": workflowID,
		})
	}

	info := resp.GetWorkflowExecutionInfo()
	response := WorkflowStatusResponse{
		WorkflowID: workflowID,
		Status:     info.GetStatus().String(),
		StartTime:  info.GetStartTime().AsTime(),
	}
	if info.GetCloseTime() != nil {
		closeTime := info.GetCloseTime().AsTime()
		response.CloseTime = &closeTime
	}
	if response.Status == "Failed" {
		response.Error = "Workflow failed - check Temporal UI for details"
	}

	return c.JSON(response)
}

// VocabularyStats returns the name and size of the stored vocabulary
func (h *Handlers) VocabularyStats(c *fiber.Ctx) error {
	v, err := h.vocabulary(c.UserContext())
	if err != nil {
		return h.vocabularyError(c, err)
	}
	return c.JSON(fiber.Map{
		"name":    v.Name(),
		"words":   v.Len(),
		"trimmed": v.Trimmed(),
	})
}

// LookupWord returns the index and count of a word
func (h *Handlers) LookupWord(c *fiber.Ctx) error {
	word, err := url.PathUnescape(c.Params("word"))
	if err != nil || word == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid word",
		})
	}

	v, err := h.vocabulary(c.UserContext())
	if err != nil {
		return h.vocabularyError(c, err)
	}

	index, ok := v.Index(word)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Word not in vocabulary",
			"word":  word,
		})
	}
	return c.JSON(fiber.Map{
		"word":  word,
		"index": index,
		"count": v.Count(word),
	})
}

// LookupIndex returns the word at an index, sentinels included
func (h *Handlers) LookupIndex(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Index must be a non-negative integer",
		})
	}

	v, err := h.vocabulary(c.UserContext())
	if err != nil {
		return h.vocabularyError(c, err)
	}

	word, ok := v.Word(index)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Index not in vocabulary",
			"index": index,
		})
	}
	return c.JSON(fiber.Map{
		"index": index,
		"word":  word,
	})
}

// EncodeRequest carries a raw sentence
type EncodeRequest struct {
	Sentence string `json:"sentence"`
}

// EncodeResponse is the normalized sentence and its indices
type EncodeResponse struct {
	Normalized string   `json:"normalized"`
	Indices    []int    `json:"indices"`
	Unknown    []string `json:"unknown,omitempty"`
}

// Encode normalizes a sentence and maps it to vocabulary indices
func (h *Handlers) Encode(c *fiber.Ctx) error {
	var req EncodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	v, err := h.vocabulary(c.UserContext())
	if err != nil {
		return h.vocabularyError(c, err)
	}

	normalized := h.normalizer.Normalize(req.Sentence)
	resp := EncodeResponse{
		Normalized: normalized,
		Indices:    v.Encode(normalized),
	}
	for _, word := range strings.Fields(normalized) {
		if _, ok := v.Index(word); !ok {
			resp.Unknown = append(resp.Unknown, word)
		}
	}
	return c.JSON(resp)
}

// ReloadVocabulary drops the cached vocabulary so the next request reads the artifact again
func (h *Handlers) ReloadVocabulary(c *fiber.Ctx) error {
	h.mu.Lock()
	h.vocab = nil
	h.mu.Unlock()

	v, err := h.vocabulary(c.UserContext())
	if err != nil {
		return h.vocabularyError(c, err)
	}
	return c.JSON(fiber.Map{
		"reloaded": true,
		"words":    v.Len(),
	})
}

func (h *Handlers) vocabulary(ctx context.Context) (*vocab.Vocabulary, error) {
	h.mu.RLock()
	v := h.vocab
	h.mu.RUnlock()
	if v != nil {
		return v, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.vocab != nil {
		return h.vocab, nil
	}
	loaded, err := pipeline.LoadVocabulary(ctx, h.backend, h.vocabularyFile)
	if err != nil {
		return nil, err
	}
	h.vocab = loaded
	h.logger.Info().Str("artifact", h.vocabularyFile).Int("words", loaded.Len()).Msg("Vocabulary loaded")
	return loaded, nil
}

func (h *Handlers) vocabularyError(c *fiber.Ctx, err error) error {
	if errors.Is(err, storage.ErrArtifactNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No vocabulary has been built yet",
		})
	}
	h.logger.Error().Err(err).Msg("Failed to load vocabulary")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "Failed to load vocabulary",
		"details": err.Error(),
	})
}
