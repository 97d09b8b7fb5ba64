package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/platform/crypto"
)

const MaxAttachmentBytes = 5 << 20

// Store keeps attachment blobs on the local filesystem, encrypted at rest.
// Each blob has a JSON sidecar holding its metadata.
type Store struct {
	dir    string
	cipher *crypto.Service
	now    func() time.Time
}

func New(dir string, cipher *crypto.Service) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("attachment dir: %w", err)
	}
	return &Store{dir: dir, cipher: cipher, now: time.Now}, nil
}

func (s *Store) Put(_ context.Context, owner, fileName, contentType string, data []byte) (core.Attachment, error) {
	if len(data) == 0 {
		return core.Attachment{}, errs.Invalid("file", "empty file is not allowed")
	}
	if len(data) > MaxAttachmentBytes {
		return core.Attachment{}, errs.Invalid("file", "file exceeds maximum size")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(data)
	}
	fileType, ok := DetectFileType(fileName, contentType)
	if !ok {
		return core.Attachment{}, errs.Invalid("file", "only pdf, image and office documents are accepted")
	}

	sealed, err := s.cipher.Encrypt(data)
	if err != nil {
		return core.Attachment{}, err
	}
	id := uuid.NewString()
	att := core.Attachment{
		ID:          id,
		FileName:    SanitizeFileName(fileName),
		FileType:    fileType,
		ContentType: contentType,
		URL:         "/api/v1/attachments/" + id,
		UploadedBy:  owner,
		UploadedAt:  s.now().UTC(),
	}
	meta, err := json.Marshal(att)
	if err != nil {
		return core.Attachment{}, err
	}
	if err := os.WriteFile(s.blobPath(id), sealed, 0o640); err != nil {
		return core.Attachment{}, err
	}
	if err := os.WriteFile(s.metaPath(id), meta, 0o640); err != nil {
		_ = os.Remove(s.blobPath(id))
		return core.Attachment{}, err
	}
	return att, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Attachment, []byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Attachment{}, nil, errs.ErrNotFound
	}
	raw, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return core.Attachment{}, nil, errs.ErrNotFound
	}
	if err != nil {
		return core.Attachment{}, nil, err
	}
	var att core.Attachment
	if err := json.Unmarshal(raw, &att); err != nil {
		return core.Attachment{}, nil, err
	}
	sealed, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		return core.Attachment{}, nil, err
	}
	data, err := s.cipher.Decrypt(sealed)
	if err != nil {
		return core.Attachment{}, nil, fmt.Errorf("decrypt attachment %s: %w", id, err)
	}
	return att, data, nil
}

// Delete removes a blob and its metadata. Deleting a missing id is a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.ErrNotFound
	}
	for _, path := range []string{s.metaPath(id), s.blobPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *Store) blobPath(id string) string { return filepath.Join(s.dir, id+".bin") }
func (s *Store) metaPath(id string) string { return filepath.Join(s.dir, id+".json") }

// DetectFileType maps an upload to one of the accepted attachment kinds.
func DetectFileType(fileName, contentType string) (core.FileType, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case ct == "application/pdf":
		return core.FilePDF, true
	case strings.HasPrefix(ct, "image/"):
		return core.FileImage, true
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return core.FilePDF, true
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return core.FileImage, true
	case ".doc", ".docx", ".xls", ".xlsx", ".odt", ".txt", ".csv":
		return core.FileDocument, true
	}
	return "", false
}

func SanitizeFileName(name string) string {
	cleaned := strings.TrimSpace(filepath.Base(name))
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")
	if cleaned == "" || cleaned == "." || cleaned == string(filepath.Separator) {
		return "document.bin"
	}
	return cleaned
}
