package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-ingest/internal/storage"
)

// JobsHandler exposes the background frame-job journal
type JobsHandler struct {
	journal *storage.Journal
}

// NewJobsHandler creates the jobs handler
func NewJobsHandler(journal *storage.Journal) *JobsHandler {
	return &JobsHandler{journal: journal}
}

// List returns the most recent frame jobs
func (h *JobsHandler) List(c *fiber.Ctx) error {
	jobs, err := h.journal.ListJobs(50)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

// Get returns one frame job by its id
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, err := h.journal.GetJob(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(job)
}
