package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func TestFetchUploadKindDetection(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		declaredType string
		wantKind     types.MediaKind
	}{
		{"png magic bytes", pngHeader, "", types.KindImage},
		{"jpeg magic bytes", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}, "", types.KindImage},
		{"declared image type", []byte("not-really-an-image"), "image/webp", types.KindImage},
		{"opaque bytes default to video", []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}, "", types.KindVideo},
		{"declared video type", []byte("some-container"), "video/mp4", types.KindVideo},
	}

	f := NewFetcher(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media, err := f.FetchUpload(tt.data, tt.declaredType)
			if err != nil {
				t.Fatalf("FetchUpload returned error: %v", err)
			}
			if media.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", media.Kind, tt.wantKind)
			}
		})
	}
}

func TestFetchUploadEmpty(t *testing.T) {
	f := NewFetcher(0)
	_, err := f.FetchUpload(nil, "")
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for empty upload, got %v", err)
	}
}

func TestFetchURLRejectsBadScheme(t *testing.T) {
	f := NewFetcher(0)
	for _, url := range []string{"ftp://example.com/a.mp4", "file:///etc/passwd", "example.com/a.mp4", ""} {
		_, err := f.FetchURL(context.Background(), url)
		var fe *types.FetchError
		if !errors.As(err, &fe) {
			t.Errorf("FetchURL(%q): expected FetchError, got %v", url, err)
		}
	}
}

func TestFetchURLSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("video-bytes"))
	}))
	defer server.Close()

	f := NewFetcher(0)
	media, err := f.FetchURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchURL returned error: %v", err)
	}
	if media.Kind != types.KindVideo {
		t.Errorf("kind = %q, want video", media.Kind)
	}
	if string(media.Data) != "video-bytes" {
		t.Errorf("data = %q", media.Data)
	}
}

func TestFetchURLImageContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(pngHeader)
	}))
	defer server.Close()

	f := NewFetcher(0)
	media, err := f.FetchURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchURL returned error: %v", err)
	}
	if media.Kind != types.KindImage {
		t.Errorf("kind = %q, want image", media.Kind)
	}
}

func TestFetchURLNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(0)
	_, err := f.FetchURL(context.Background(), server.URL)
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for 404, got %v", err)
	}
}

func TestFetchURLEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := NewFetcher(0)
	_, err := f.FetchURL(context.Background(), server.URL)
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for empty body, got %v", err)
	}
}
