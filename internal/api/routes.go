package api

import (
	"github.com/gofiber/fiber/v2"
)

// NewApp creates the fiber app with JSON errors
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h *Handlers, storageHandler *StorageHandler) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	runs := v1.Group("/runs")
	runs.Post("/", h.StartRun)
	runs.Get("/:id", h.GetRun)

	vocabulary := v1.Group("/vocabulary")
	vocabulary.Get("/", h.VocabularyStats)
	vocabulary.Get("/words/:word", h.LookupWord)
	vocabulary.Get("/indices/:index", h.LookupIndex)
	vocabulary.Post("/encode", h.Encode)
	vocabulary.Post("/reload", h.ReloadVocabulary)

	if storageHandler != nil {
		storage := v1.Group("/storage")
		storage.Get("/artifacts", storageHandler.ListArtifacts)
		storage.Get("/metrics", storageHandler.GetStorageMetrics)
		storage.Get("/health", storageHandler.GetStorageHealth)
		storage.Delete("/metrics", storageHandler.ClearMetrics)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Caia Corpus",
			"version": "0.1.0",
		})
	})
}
