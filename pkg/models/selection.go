package models

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// ErrSelectionTooLarge is returned when a candidate file exceeds the upload limit
var ErrSelectionTooLarge = errors.New("selected file exceeds the upload limit")

// Selection is a single file chosen by the user and pending submission.
// The bytes are only read when the selection is opened for upload.
type Selection struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`

	open func() (io.ReadCloser, error)
}

// NewSelection wraps an in-memory file, e.g. one received from a browser form
func NewSelection(name string, data []byte) *Selection {
	buf := bytes.Clone(data)
	return &Selection{
		Name:        filepath.Base(name),
		Size:        int64(len(buf)),
		ContentType: mimetype.Detect(buf).String(),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		},
	}
}

// OpenSelection references a file on disk. The file is re-opened on every upload.
func OpenSelection(path string) (*Selection, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}

	return &Selection{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mtype.String(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Open returns a reader over the selected bytes
func (s *Selection) Open() (io.ReadCloser, error) {
	if s == nil || s.open == nil {
		return nil, errors.New("selection has no content")
	}
	return s.open()
}

// CheckSize rejects selections larger than maxBytes
func (s *Selection) CheckSize(maxBytes int64) error {
	if maxBytes > 0 && s.Size > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrSelectionTooLarge, s.Size, maxBytes)
	}
	return nil
}
