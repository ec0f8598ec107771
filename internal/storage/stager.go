package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingUserID        = errors.New("user id is required")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
)

// Stager validates an upload and writes it to the local staging area
// under a fresh UUID filename. Nothing touches disk until all checks pass.
type Stager struct {
	dir      string
	maxBytes int64
	allowed  map[string]bool
}

type StagedFile struct {
	ID           string
	Path         string
	OriginalName string
	MediaType    string
	SizeBytes    int64
}

func NewStager(dir string, maxBytes int64, allowedMediaTypes []string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir failed: %w", err)
	}
	allowed := make(map[string]bool, len(allowedMediaTypes))
	for _, mt := range allowedMediaTypes {
		allowed[mt] = true
	}
	return &Stager{dir: dir, maxBytes: maxBytes, allowed: allowed}, nil
}

// Stage checks user id, media type and declared size, then copies the
// stream to disk. The copy is capped at maxBytes as a second line of
// defense against clients that lie about Content-Length.
func (s *Stager) Stage(userID, originalName, mediaType string, declaredSize int64, r io.Reader) (*StagedFile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if mediaType == "" || !s.allowed[mediaType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mediaType)
	}
	if declaredSize > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, declaredSize, s.maxBytes)
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id+safeExt(originalName))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staged file failed: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write staged file failed: %w", err)
	}
	if n > s.maxBytes {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: stream exceeds %d bytes", ErrPayloadTooLarge, s.maxBytes)
	}

	return &StagedFile{
		ID:           id,
		Path:         path,
		OriginalName: originalName,
		MediaType:    mediaType,
		SizeBytes:    n,
	}, nil
}

// Remove deletes a staged file. A missing file is not an error.
func (s *Stager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file failed: %w", err)
	}
	return nil
}

// safeExt keeps the original extension only when it is plain
// alphanumeric, so staged filenames stay safe regardless of input.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
