package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// DefaultEndpoint is the OpenAI audio transcription endpoint
const DefaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// audioExtractor produces normalized audio from video bytes, or nil
// when the video has no audio track
type audioExtractor interface {
	Extract(ctx context.Context, videoBytes []byte) ([]byte, error)
}

// Transcriber sends extracted audio to the remote speech-to-text
// service and parses the timed segments out of its verbose JSON reply.
type Transcriber struct {
	apiKey    string
	model     string
	endpoint  string
	extractor audioExtractor
	client    *http.Client
}

// NewTranscriber creates a transcriber. An empty endpoint selects the
// OpenAI default.
func NewTranscriber(apiKey, model, endpoint string, extractor audioExtractor) *Transcriber {
	if model == "" {
		model = "whisper-1"
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Transcriber{
		apiKey:    apiKey,
		model:     model,
		endpoint:  endpoint,
		extractor: extractor,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// verboseResponse matches the service's verbose_json response format
type verboseResponse struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Segments []types.Segment `json:"segments"`
}

// Transcribe extracts audio from the video and transcribes it. Returns
// (nil, nil) without any network call when no audio track exists. The
// single network attempt is never retried; a non-200 response surfaces
// as a TranscriptionError.
func (t *Transcriber) Transcribe(ctx context.Context, videoBytes []byte) ([]types.Segment, error) {
	audio, err := t.extractor.Extract(ctx, videoBytes)
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return nil, nil // no audio track, skip the service entirely
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", t.model); err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}

	fw, err := mw.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &types.TranscriptionError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &types.TranscriptionError{Status: resp.StatusCode, Body: string(b)}
	}

	var vr verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, &types.TranscriptionError{Status: resp.StatusCode, Body: err.Error()}
	}

	log.Printf("Transcription completed: %d segments, language %q", len(vr.Segments), vr.Language)
	return vr.Segments, nil
}
