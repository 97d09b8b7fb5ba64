package shared

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"timesheet/internal/domain/errs"
)

const (
	maxCSVBytes   = 5 << 20
	csvFilesField = "file"
)

// CSVBody returns the CSV sent either as the "file" part of a multipart
// form or as a text/csv request body.
func CSVBody(r *http.Request) (io.Reader, error) {
	if IsMultipart(r) {
		if err := r.ParseMultipartForm(MaxMultipartBytes); err != nil {
			return nil, errs.Invalid("file", "invalid multipart payload")
		}
		files := r.MultipartForm.File[csvFilesField]
		if len(files) != 1 {
			return nil, errs.Invalid("file", "exactly one csv file is required")
		}
		uploads, err := ReadUploads(files, 1, maxCSVBytes)
		if err != nil {
			return nil, errs.Invalid("file", err.Error())
		}
		return bytes.NewReader(uploads[0].Content), nil
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/csv" {
		return nil, errs.Invalid("body", "send text/csv or a multipart form with a file part")
	}
	return io.LimitReader(r.Body, maxCSVBytes), nil
}
