package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveUploader publishes rendered videos to a Google Drive folder so edits
// can be shared without moving files around by hand.
type DriveUploader struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveUploader creates a Drive client rooted at the named folder,
// creating it if needed.
func NewDriveUploader(credentialsFile, tokenFile, folderName string) (*DriveUploader, error) {
	ctx := context.Background()

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client, err := driveHTTPClient(config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %v", err)
	}

	du := &DriveUploader{
		service:    srv,
		folderName: folderName,
	}

	if err := du.ensureFolder(); err != nil {
		return nil, err
	}

	return du, nil
}

// driveHTTPClient loads a cached token or runs the device auth flow once.
func driveHTTPClient(config *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = tokenFromWeb(config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(context.Background(), tok), nil
}

// tokenFromWeb requests a token interactively.
func tokenFromWeb(config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)
	fmt.Print("Enter authorization code: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %v", err)
	}

	tok, err := config.Exchange(context.Background(), authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %v", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %v", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// ensureFolder finds or creates the root folder.
func (du *DriveUploader) ensureFolder() error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		du.folderName)

	r, err := du.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %v", err)
	}

	if len(r.Files) > 0 {
		du.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     du.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}

	file, err := du.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %v", err)
	}

	du.folderID = file.Id
	return nil
}

// UploadRender uploads the rendered video and its subtitle sidecar (if one
// exists next to it) into a dated subfolder, returning a shareable link.
func (du *DriveUploader) UploadRender(videoPath, projectName string) (string, error) {
	now := time.Now()
	folderID, err := du.ensureDateFolder(now)
	if err != nil {
		return "", err
	}

	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(projectName))

	vf, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open render: %v", err)
	}
	defer vf.Close()

	videoFile := &drive.File{
		Name:     baseFilename + filepath.Ext(videoPath),
		Parents:  []string{folderID},
		MimeType: "video/mp4",
	}

	created, err := du.service.Files.Create(videoFile).Media(vf).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload render: %v", err)
	}

	srtPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".srt"
	if sf, err := os.Open(srtPath); err == nil {
		srtFile := &drive.File{
			Name:    baseFilename + ".srt",
			Parents: []string{folderID},
		}
		_, upErr := du.service.Files.Create(srtFile).Media(sf).Do()
		sf.Close()
		if upErr != nil {
			return "", fmt.Errorf("failed to upload subtitles: %v", upErr)
		}
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// ensureDateFolder creates nested year/month/day folders.
func (du *DriveUploader) ensureDateFolder(t time.Time) (string, error) {
	yearID, err := du.findOrCreateFolder(fmt.Sprintf("%d", t.Year()), du.folderID)
	if err != nil {
		return "", err
	}

	monthID, err := du.findOrCreateFolder(fmt.Sprintf("%02d", t.Month()), yearID)
	if err != nil {
		return "", err
	}

	dayID, err := du.findOrCreateFolder(fmt.Sprintf("%02d", t.Day()), monthID)
	if err != nil {
		return "", err
	}

	return dayID, nil
}

// findOrCreateFolder finds or creates a folder with the given parent.
func (du *DriveUploader) findOrCreateFolder(name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false",
		name, parentID)

	r, err := du.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Do()
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

	file, err := du.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return "", err
	}

	return file.Id, nil
}
