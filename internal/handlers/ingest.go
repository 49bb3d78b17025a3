package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-ingest/internal/ingest"
	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// IngestHandler accepts one batch of media submissions, as multipart
// form data (uploaded files and/or URLs) or as a JSON body of URLs.
type IngestHandler struct {
	coordinator *ingest.Coordinator
	maxSizeMB   int
}

// NewIngestHandler creates the ingest handler
func NewIngestHandler(coordinator *ingest.Coordinator, maxSizeMB int) *IngestHandler {
	return &IngestHandler{
		coordinator: coordinator,
		maxSizeMB:   maxSizeMB,
	}
}

// ingestRequest is the JSON request shape
type ingestRequest struct {
	Name     string   `json:"name"`
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	Address  string   `json:"address"`
	URLs     []string `json:"urls"`
	Video    string   `json:"video"`
}

// Handle parses the request into a submitter and items and runs the batch
func (h *IngestHandler) Handle(c *fiber.Ctx) error {
	submitter, items, err := h.parseRequest(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_BAD_REQUEST",
		})
	}

	result, err := h.coordinator.IngestBatch(c.Context(), submitter, items)
	if err != nil {
		var ve *types.ValidationError
		if errors.As(err, &ve) {
			return c.Status(400).JSON(fiber.Map{
				"error": ve.Error(),
				"code":  "ERR_VALIDATION",
			})
		}
		log.Printf("Batch ingestion failed: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Internal server error",
			"code":  "ERR_INTERNAL",
		})
	}

	return c.JSON(fiber.Map{
		"upload_number":  result.UploadNumber,
		"transcript_ids": result.TranscriptIDs,
		"failed_count":   result.FailedCount,
		"frame_status":   "processing",
	})
}

// parseRequest extracts submitter identity and submission items from
// either a multipart form or a JSON body
func (h *IngestHandler) parseRequest(c *fiber.Ctx) (*types.Submitter, []*types.SubmissionItem, error) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		return h.parseMultipart(form)
	}

	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid request body")
	}

	name := req.Name
	if name == "" {
		name = req.FullName
	}

	urls := req.URLs
	if req.Video != "" {
		urls = append(urls, req.Video)
	}

	items := make([]*types.SubmissionItem, 0, len(urls))
	for _, u := range urls {
		items = append(items, &types.SubmissionItem{SourceKind: types.SourceURL, URL: u})
	}

	return &types.Submitter{Name: name, Phone: req.Phone, Address: req.Address}, items, nil
}

// parseMultipart handles form uploads: repeated "video" files plus
// repeated "url" values, in that order
func (h *IngestHandler) parseMultipart(form *multipart.Form) (*types.Submitter, []*types.SubmissionItem, error) {
	submitter := &types.Submitter{
		Name:    firstValue(form, "name", "full_name"),
		Phone:   firstValue(form, "phone"),
		Address: firstValue(form, "address"),
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	var items []*types.SubmissionItem

	for _, file := range form.File["video"] {
		if maxSize > 0 && file.Size > maxSize {
			return nil, nil, fmt.Errorf("file %s too large (max %dMB)", file.Filename, h.maxSizeMB)
		}

		data, err := readFormFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read uploaded file %s", file.Filename)
		}

		items = append(items, &types.SubmissionItem{
			SourceKind:   types.SourceUpload,
			Data:         data,
			DeclaredType: file.Header.Get("Content-Type"),
		})
	}

	for _, u := range form.Value["url"] {
		if u == "" {
			continue
		}
		items = append(items, &types.SubmissionItem{SourceKind: types.SourceURL, URL: u})
	}

	return submitter, items, nil
}

// firstValue returns the first non-empty form value among keys
func firstValue(form *multipart.Form, keys ...string) string {
	for _, key := range keys {
		if vals := form.Value[key]; len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return ""
}

// readFormFile reads one multipart file into memory
func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
