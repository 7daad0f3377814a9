package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scratch owns the working area for intermediates: canonical media, analysis
// WAVs, concat lists, cut files and unfinished renders. Everything under it
// can be purged between runs without affecting a completed render.
type Scratch struct {
	Root string
}

// NewScratch creates the scratch area.
func NewScratch(root string) (*Scratch, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{Root: root}, nil
}

// Path joins a file name onto the scratch root.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// ProjectDir returns (and creates) a per-project subdirectory.
func (s *Scratch) ProjectDir(projectID string) (string, error) {
	dir := filepath.Join(s.Root, projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Publish moves a finished artifact from scratch to its final destination.
// The rename is atomic on the same filesystem; across filesystems it falls
// back to copy-then-delete, writing the copy to a temporary name first so a
// partial file never sits at the destination.
func Publish(tempPath, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err == nil {
		return nil
	}

	src, err := os.Open(tempPath)
	if err != nil {
		return fmt.Errorf("open render artifact: %w", err)
	}
	defer src.Close()

	staging := finalPath + ".partial"
	dst, err := os.Create(staging)
	if err != nil {
		return fmt.Errorf("stage output: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(staging)
		return fmt.Errorf("copy output: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(staging)
		return fmt.Errorf("flush output: %w", err)
	}
	if err := os.Rename(staging, finalPath); err != nil {
		os.Remove(staging)
		return fmt.Errorf("publish output: %w", err)
	}
	os.Remove(tempPath)
	return nil
}

// sanitizeFilename strips path separators and characters Drive and common
// filesystems reject, and caps the length.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, c := range invalid {
		name = strings.ReplaceAll(name, c, "_")
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// DatedOutputPath builds outputs/YYYY/MM/DD/name for server-mode renders
// that do not name an explicit destination.
func DatedOutputPath(outputDir, name string) string {
	now := time.Now()
	return filepath.Join(outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		name)
}
