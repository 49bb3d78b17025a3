package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// secondsOrDefault converts a configured timeout to a duration,
// substituting def when the value is zero or negative
func secondsOrDefault(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// Fetcher resolves submitted media (raw upload bytes or a remote URL)
// into an in-memory buffer plus a detected content kind.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with the given timeout on URL downloads
func NewFetcher(timeout int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: secondsOrDefault(timeout, 60),
		},
	}
}

// FetchUpload wraps directly uploaded bytes. The kind is image when the
// bytes sniff as an image or the caller declared an image content type.
func (f *Fetcher) FetchUpload(data []byte, declaredType string) (*types.Media, error) {
	if len(data) == 0 {
		return nil, &types.FetchError{Source: types.SourceUpload, Err: fmt.Errorf("uploaded file is empty")}
	}

	kind := types.KindVideo
	if strings.HasPrefix(declaredType, "image/") || strings.HasPrefix(http.DetectContentType(data), "image/") {
		kind = types.KindImage
	}

	return &types.Media{Data: data, Kind: kind}, nil
}

// FetchURL downloads media from a remote URL. Only http and https
// schemes are accepted.
func (f *Fetcher) FetchURL(ctx context.Context, url string) (*types.Media, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, &types.FetchError{Source: url, Err: fmt.Errorf("invalid URL scheme")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.FetchError{Source: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &types.FetchError{Source: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.FetchError{Source: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.FetchError{Source: url, Err: err}
	}
	if len(data) == 0 {
		return nil, &types.FetchError{Source: url, Err: fmt.Errorf("downloaded body is empty")}
	}

	kind := types.KindVideo
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		kind = types.KindImage
	}

	return &types.Media{Data: data, Kind: kind}, nil
}
