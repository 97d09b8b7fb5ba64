package shared

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// Upload is one file read from a multipart form.
type Upload struct {
	FileName    string
	ContentType string
	Content     []byte
}

var ErrTooManyFiles = errors.New("too many files")

// ReadUploads reads every file under field, rejecting empty or oversized
// parts.
func ReadUploads(files []*multipart.FileHeader, maxFiles int, maxBytes int64) ([]Upload, error) {
	if len(files) > maxFiles {
		return nil, ErrTooManyFiles
	}
	out := make([]Upload, 0, len(files))
	for _, header := range files {
		if header == nil {
			continue
		}
		if header.Size > maxBytes {
			return nil, fmt.Errorf("file exceeds maximum size")
		}
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file")
		}
		content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		closeErr := file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read file")
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close file")
		}
		if int64(len(content)) > maxBytes {
			return nil, fmt.Errorf("file exceeds maximum size")
		}
		if len(content) == 0 {
			return nil, fmt.Errorf("empty file is not allowed")
		}
		contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(content)
		}
		out = append(out, Upload{FileName: header.Filename, ContentType: contentType, Content: content})
	}
	return out, nil
}

// IsMultipart reports whether the request carries a multipart form body.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type"))), "multipart/form-data")
}
