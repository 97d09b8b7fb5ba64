package shared

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
)

const (
	MaxUploadFiles      = 5
	MaxUploadFileBytes  = 5 << 20
	MaxMultipartBytes   = 16 << 20
	multipartFilesField = "documents"
)

type AttachmentStore interface {
	Put(ctx context.Context, owner, fileName, contentType string, data []byte) (core.Attachment, error)
	Get(ctx context.Context, id string) (core.Attachment, []byte, error)
	Delete(ctx context.Context, id string) error
}

// ResolveAttachments looks up previously uploaded attachments by ID. Only
// the uploader may attach a file to their own request.
func ResolveAttachments(ctx context.Context, store AttachmentStore, owner string, ids []string) ([]core.Attachment, error) {
	out := make([]core.Attachment, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		att, _, err := store.Get(ctx, id)
		if err != nil {
			return nil, errs.Invalid("attachmentIds", fmt.Sprintf("unknown attachment %s", id))
		}
		if att.UploadedBy != "" && att.UploadedBy != owner {
			return nil, errs.Invalid("attachmentIds", fmt.Sprintf("attachment %s belongs to another user", id))
		}
		out = append(out, att)
	}
	return out, nil
}

// StoreUploads reads the "documents" parts of a parsed multipart form and
// stores each one. A failed part discards the parts stored before it.
func StoreUploads(r *http.Request, store AttachmentStore, owner string) ([]core.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	uploads, err := ReadUploads(r.MultipartForm.File[multipartFilesField], MaxUploadFiles, MaxUploadFileBytes)
	if err != nil {
		return nil, errs.Invalid(multipartFilesField, err.Error())
	}
	out := make([]core.Attachment, 0, len(uploads))
	for _, up := range uploads {
		att, err := store.Put(r.Context(), owner, up.FileName, up.ContentType, up.Content)
		if err != nil {
			DiscardUploads(r.Context(), store, out)
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}

// DiscardUploads deletes attachments stored for a request that was then
// refused.
func DiscardUploads(ctx context.Context, store AttachmentStore, uploaded []core.Attachment) {
	for _, att := range uploaded {
		if err := store.Delete(ctx, att.ID); err != nil {
			slog.Warn("discard upload failed", "attachmentId", att.ID, "err", err)
		}
	}
}

// SplitList splits a comma separated form value.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
