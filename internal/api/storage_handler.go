package api

import (
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// StorageHandler provides HTTP endpoints for artifact storage monitoring
type StorageHandler struct {
	backend storage.Backend
	metrics *storage.SimpleMetricsCollector
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(backend storage.Backend, metrics *storage.SimpleMetricsCollector) *StorageHandler {
	return &StorageHandler{
		backend: backend,
		metrics: metrics,
	}
}

// GetStorageMetrics returns per backend and operation statistics
func (h *StorageHandler) GetStorageMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"metrics_summary": h.metrics.GetMetricsSummary(),
	})
}

// GetStorageHealth checks the artifact backend
func (h *StorageHandler) GetStorageHealth(c *fiber.Ctx) error {
	if err := h.backend.Health(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"healthy": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"healthy": true,
	})
}

// ListArtifacts lists stored artifacts
func (h *StorageHandler) ListArtifacts(c *fiber.Ctx) error {
	infos, err := h.backend.ListArtifacts(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"artifacts": infos,
	})
}

// ClearMetrics clears all collected metrics
func (h *StorageHandler) ClearMetrics(c *fiber.Ctx) error {
	h.metrics.ClearMetrics()
	return c.JSON(fiber.Map{
		"message": "Metrics cleared successfully",
	})
}
