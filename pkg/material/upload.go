package material

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	ErrTitleRequired = fmt.Errorf("enter a title for the material")
	ErrFileRequired  = fmt.Errorf("select a file to upload")
	ErrFileTooLarge  = fmt.Errorf("the selected file is too large")
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 50 << 20

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type UploadRequest struct {
	Title   string
	Content string
	// File is the first selected file. Further files are never sent.
	File *File
}

// Validate checks req before anything is sent. maxBytes <= 0 disables the size check.
func Validate(req UploadRequest, maxBytes int64) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrTitleRequired
	}
	if req.File == nil || req.File.Name == "" {
		return ErrFileRequired
	}
	if maxBytes > 0 && int64(len(req.File.Data)) > maxBytes {
		return fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge,
			humanize.Bytes(uint64(len(req.File.Data))), humanize.Bytes(uint64(maxBytes)))
	}
	return nil
}
