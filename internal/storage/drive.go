package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveArchive mirrors finished transcripts to a dated Google Drive
// folder tree. Entirely optional: the pipeline never depends on it.
type DriveArchive struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveArchive creates the archive client from OAuth credentials.
// The token must already exist on disk; this is a server process and
// never runs an interactive consent flow.
func NewDriveArchive(credentialsFile, tokenFile, folderName string) (*DriveArchive, error) {
	ctx := context.Background()

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client, err := clientFromToken(config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %v", err)
	}

	da := &DriveArchive{
		service:    srv,
		folderName: folderName,
	}

	if err := da.ensureFolder(); err != nil {
		return nil, err
	}

	return da, nil
}

// clientFromToken builds an HTTP client from a cached OAuth token
func clientFromToken(config *oauth2.Config, tokenFile string) (*http.Client, error) {
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("drive token not available (run the token bootstrap first): %v", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to decode drive token: %v", err)
	}

	return config.Client(context.Background(), tok), nil
}

// ensureFolder finds or creates the archive's root folder
func (da *DriveArchive) ensureFolder() error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		da.folderName)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %v", err)
	}

	if len(r.Files) > 0 {
		da.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     da.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}

	file, err := da.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %v", err)
	}

	da.folderID = file.Id
	return nil
}

// ArchiveTranscript uploads the transcript text plus a metadata JSON
// sidecar and returns a shareable link to the transcript file.
func (da *DriveArchive) ArchiveTranscript(submitter string, transcriptID int64, transcript string, meta map[string]interface{}) (string, error) {
	now := time.Now()
	folderID, err := da.ensureDateFolder(now)
	if err != nil {
		return "", err
	}

	baseFilename := fmt.Sprintf("%s_%d_%s", now.Format("20060102_150405"), transcriptID, sanitizeFilename(submitter))

	txtFile := &drive.File{
		Name:    baseFilename + ".txt",
		Parents: []string{folderID},
	}

	created, err := da.service.Files.Create(txtFile).Media(bytes.NewReader([]byte(transcript))).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %v", err)
	}

	metaJSON, _ := json.MarshalIndent(meta, "", "  ")

	metaFile := &drive.File{
		Name:    baseFilename + "_meta.json",
		Parents: []string{folderID},
	}

	if _, err := da.service.Files.Create(metaFile).Media(bytes.NewReader(metaJSON)).Do(); err != nil {
		return "", fmt.Errorf("failed to upload metadata: %v", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// ensureDateFolder creates nested year/month/day folders
func (da *DriveArchive) ensureDateFolder(t time.Time) (string, error) {
	yearID, err := da.findOrCreateFolder(fmt.Sprintf("%d", t.Year()), da.folderID)
	if err != nil {
		return "", err
	}

	monthID, err := da.findOrCreateFolder(fmt.Sprintf("%02d", t.Month()), yearID)
	if err != nil {
		return "", err
	}

	return da.findOrCreateFolder(fmt.Sprintf("%02d", t.Day()), monthID)
}

// findOrCreateFolder finds or creates a folder with the given parent
func (da *DriveArchive) findOrCreateFolder(name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false",
		name, parentID)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Do()
	if err != nil {
		return "", err
	}

	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	}

	file, err := da.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return "", err
	}

	return file.Id, nil
}

// sanitizeFilename strips path separators and caps the length
func sanitizeFilename(name string) string {
	result := filepath.Base(name)
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
