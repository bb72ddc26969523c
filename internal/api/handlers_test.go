package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/processing"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/workflows"
	"github.com/Caia-Tech/caia-corpus/internal/testutil"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type testServer struct {
	app     *fiber.App
	client  *mocks.Client
	backend storage.Backend
	metrics *storage.SimpleMetricsCollector
}

// newTestServer builds the app over a backend holding the fixture artifacts
func newTestServer(t *testing.T, withArtifacts bool) *testServer {
	t.Helper()
	cfg := testutil.WriteCorpus(t)
	cfg.Processing.MinCount = 2
	return newTestServerWithConfig(t, cfg, withArtifacts)
}

func newTestServerWithConfig(t *testing.T, cfg *config.PipelineConfig, withArtifacts bool) *testServer {
	t.Helper()

	metrics := storage.NewSimpleMetricsCollector()
	backend, err := storage.NewFileBackend(cfg.Storage.OutputDir, metrics)
	require.NoError(t, err)

	if withArtifacts {
		_, err = pipeline.NewRunner(cfg, backend).Run(context.Background())
		require.NoError(t, err)
	}

	tc := &mocks.Client{}
	app := NewApp("test")
	SetupRoutes(app,
		NewHandlers(tc, cfg.Server.TaskQueue, backend, cfg.Storage.VocabularyFile,
			processing.NewNormalizerFromConfig(cfg.Processing)),
		NewStorageHandler(backend, metrics),
	)
	return &testServer{app: app, client: tc, backend: backend, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "caia-corpus", body["service"])
}

func TestStartRun(t *testing.T) {
	s := newTestServer(t, false)

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("corpus-wf")
	run.On("GetRunID").Return("temporal-run")

	var started workflows.PreparationInput
	s.client.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return strings.HasPrefix(o.ID, "corpus-") && o.TaskQueue == "caia-corpus" && o.CronSchedule == ""
		}),
		mock.Anything,
		mock.AnythingOfType("workflows.PreparationInput"),
	).Run(func(args mock.Arguments) {
		started = args.Get(3).(workflows.PreparationInput)
	}).Return(run, nil).Once()

	status, body := s.do(t, http.MethodPost, "/api/v1/runs", `{"corpus_name":"cornell movie-dialogs corpus","min_count":2}`)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "corpus-wf", body["workflow_id"])
	assert.Equal(t, "temporal-run", body["run_id"])
	assert.Equal(t, started.RunID, body["pipeline_run_id"])
	assert.Len(t, started.RunID, 36)
	assert.Equal(t, 2, started.MinCount)
	assert.Equal(t, "cornell movie-dialogs corpus", started.CorpusName)

	s.client.AssertExpectations(t)
	run.AssertExpectations(t)
}

func TestStartRunEmptyBodyUsesDefaults(t *testing.T) {
	s := newTestServer(t, false)

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("corpus-wf")
	run.On("GetRunID").Return("temporal-run")
	s.client.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(in workflows.PreparationInput) bool {
			return in.CorpusName == "" && in.MinCount == 0
		}),
	).Return(run, nil).Once()

	status, _ := s.do(t, http.MethodPost, "/api/v1/runs", "")
	assert.Equal(t, http.StatusAccepted, status)
	s.client.AssertExpectations(t)
}

func TestStartRunValidation(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		body string
	}{
		{"path traversal", `{"corpus_name":"../etc"}`},
		{"negative min count", `{"min_count":-1}`},
		{"bad schedule", `{"schedule":"every day"}`},
		{"invalid json", `{"corpus_name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
	s.client.AssertNotCalled(t, "ExecuteWorkflow")
}

func TestStartRunTemporalFailure(t *testing.T) {
	s := newTestServer(t, false)
	s.client.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("temporal unavailable")).Once()

	status, body := s.do(t, http.MethodPost, "/api/v1/runs", `{}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "temporal unavailable", body["details"])
}

func TestGetRun(t *testing.T) {
	s := newTestServer(t, false)

	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.client.On("DescribeWorkflowExecution", mock.Anything, "corpus-wf", "").Return(
		&workflowservice.DescribeWorkflowExecutionResponse{
			WorkflowExecutionInfo: &workflowpb.WorkflowExecutionInfo{
				Status:    enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED,
				StartTime: timestamppb.New(started),
				CloseTime: timestamppb.New(started.Add(time.Minute)),
			},
		}, nil).Once()
	s.client.On("DescribeWorkflowExecution", mock.Anything, "missing", "").
		Return(nil, errors.New("not found")).Once()

	status, body := s.do(t, http.MethodGet, "/api/v1/runs/corpus-wf", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Completed", body["status"])
	assert.NotNil(t, body["close_time"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVocabularyEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	status, body := s.do(t, http.MethodGet, "/api/v1/vocabulary", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(12), body["words"])
	assert.Equal(t, true, body["trimmed"])

	status, body = s.do(t, http.MethodGet, "/api/v1/vocabulary/words/we", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["index"])
	assert.Equal(t, float64(1), body["count"])

	status, body = s.do(t, http.MethodGet, "/api/v1/vocabulary/words/%3F", "")
	assert.Equal(t, http.StatusNotFound, status, "? appears once and is trimmed")
	assert.Equal(t, "?", body["word"])

	status, body = s.do(t, http.MethodGet, "/api/v1/vocabulary/indices/2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "EOS", body["word"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/vocabulary/indices/99", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/vocabulary/indices/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEncode(t *testing.T) {
	s := newTestServer(t, true)

	status, body := s.do(t, http.MethodPost, "/api/v1/vocabulary/encode", `{"sentence":"Well, we thought... Café!"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "well we thought . . . cafe !", body["normalized"])
	// well=4 we=3 thought=6 .=11 EOS=2
	assert.Equal(t, []interface{}{float64(4), float64(3), float64(6), float64(11), float64(11), float64(11), float64(2)}, body["indices"])
	assert.Equal(t, []interface{}{"cafe", "!"}, body["unknown"])
}

func TestEncodeUsesConfiguredMarkupStrip(t *testing.T) {
	cfg := testutil.WriteCorpus(t)
	cfg.Processing.StripMarkup = true
	s := newTestServerWithConfig(t, cfg, true)

	status, body := s.do(t, http.MethodPost, "/api/v1/vocabulary/encode", `{"sentence":"<i>Can</i> we?"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "can we ?", body["normalized"])
	// can=3 we=4 ?=8 EOS=2
	assert.Equal(t, []interface{}{float64(3), float64(4), float64(8), float64(2)}, body["indices"])
	assert.Nil(t, body["unknown"])
}

func TestVocabularyMissing(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, http.MethodGet, "/api/v1/vocabulary", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No vocabulary has been built yet", body["error"])
}

func TestStorageEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	status, body := s.do(t, http.MethodGet, "/api/v1/storage/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["healthy"])

	status, body = s.do(t, http.MethodGet, "/api/v1/storage/artifacts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["artifacts"], 3)

	status, body = s.do(t, http.MethodGet, "/api/v1/storage/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body["metrics_summary"])

	status, _ = s.do(t, http.MethodDelete, "/api/v1/storage/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, s.metrics.GetMetrics())
}
