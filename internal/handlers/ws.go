package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-ingest/internal/storage"
	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// ProgressHandler streams frame-job progress over a websocket. The
// client sends a job id as a text message and receives the journal row
// as JSON once a second until the job reaches a terminal state.
type ProgressHandler struct {
	journal *storage.Journal
}

// NewProgressHandler creates the websocket progress handler
func NewProgressHandler(journal *storage.Journal) *ProgressHandler {
	return &ProgressHandler{journal: journal}
}

// Handle serves one websocket connection
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	_, message, err := c.ReadMessage()
	if err != nil {
		log.Printf("Progress websocket read error: %v", err)
		return
	}
	jobID := string(message)

	for {
		job, err := h.journal.GetJob(jobID)
		if err != nil {
			c.WriteMessage(websocket.TextMessage, []byte(`{"error":"job not found"}`))
			return
		}

		payload, err := json.Marshal(job)
		if err != nil {
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}

		if job.Status == types.StatusCompleted || job.Status == types.StatusFailed {
			return
		}

		time.Sleep(time.Second)
	}
}
