// Package storage keeps uploaded images on local disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pinboard/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

var formatExt = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
}

// Disk stores uploads under a single directory with generated names.
type Disk struct {
	dir      string
	maxBytes int64
}

// NewDisk creates dir if needed.
func NewDisk(dir string, maxBytes int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the upload directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Save validates that fh holds a supported image and writes it under a
// fresh uuid name. The returned name is relative to Dir.
func (d *Disk) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > d.maxBytes {
		return "", d.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer f.Close()

	return d.Store(f)
}

// Store is Save for content that did not arrive as a multipart file.
func (d *Disk) Store(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if int64(len(data)) > d.maxBytes {
		return "", d.tooLarge()
	}

	ext, err := detectImage(data)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return name, nil
}

func (d *Disk) tooLarge() error {
	return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", d.maxBytes/(1024*1024)))
}

// Remove deletes a stored upload. Missing files are not an error.
func (d *Disk) Remove(name string) error {
	if name == "" {
		return nil
	}
	if filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid upload name %q", name)
	}
	err := os.Remove(filepath.Join(d.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func detectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("Uploaded file is empty")
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return "", models.NewValidationError("Uploaded file is not an image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return "", models.NewValidationError("Uploaded file is not a supported image")
	}
	ext, ok := formatExt[format]
	if !ok {
		return "", models.NewValidationError("Unsupported image format")
	}
	return ext, nil
}
