package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/platform/crypto"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	root, err := crypto.New(hex.EncodeToString(bytes.Repeat([]byte{1}, 32)))
	require.NoError(t, err)
	cipher, err := root.Derive("attachments")
	require.NoError(t, err)
	dir := t.TempDir()
	s, err := New(dir, cipher)
	require.NoError(t, err)
	return s, dir
}

func TestPutEncryptsAndGetDecrypts(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	body := []byte("%PDF-1.4 medical certificate")

	att, err := s.Put(ctx, "user-1", "../cert.pdf", "", body)
	require.NoError(t, err)
	assert.Equal(t, core.FilePDF, att.FileType)
	assert.Equal(t, "cert.pdf", att.FileName)
	assert.Equal(t, "/api/v1/attachments/"+att.ID, att.URL)

	onDisk, err := os.ReadFile(filepath.Join(dir, att.ID+".bin"))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(onDisk, []byte("medical certificate")))

	meta, data, err := s.Get(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, "user-1", meta.UploadedBy)
}

func TestPutRejects(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "u", "empty.pdf", "application/pdf", nil)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Put(ctx, "u", "tool.exe", "application/octet-stream", []byte{0x4d, 0x5a})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Put(ctx, "u", "big.pdf", "application/pdf", make([]byte, MaxAttachmentBytes+1))
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestGetUnknown(t *testing.T) {
	s, _ := newStore(t)
	_, _, err := s.Get(context.Background(), "../../etc/passwd")
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, _, err = s.Get(context.Background(), "0b6d1a8e-5a57-4f44-9d39-1f1c0c5f0b7e")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDetectFileType(t *testing.T) {
	cases := []struct {
		name, ct string
		want     core.FileType
		ok       bool
	}{
		{"scan.pdf", "application/pdf", core.FilePDF, true},
		{"photo", "image/jpeg", core.FileImage, true},
		{"roster.xlsx", "application/octet-stream", core.FileDocument, true},
		{"notes.txt", "text/plain; charset=utf-8", core.FileDocument, true},
		{"run.sh", "text/x-shellscript", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectFileType(tc.name, tc.ct)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestDeleteRemovesBlobAndMetadata(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	att, err := s.Put(ctx, "user-1", "scan.pdf", "application/pdf", []byte("%PDF-1.4 scan"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, att.ID))

	_, _, err = s.Get(ctx, att.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.Delete(ctx, att.ID), "deleting twice is harmless")
	require.ErrorIs(t, s.Delete(ctx, "not-a-uuid"), errs.ErrNotFound)
}
