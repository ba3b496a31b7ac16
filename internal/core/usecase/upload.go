package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

// UploadUseCase runs the intake pipeline: inspect, persist bytes, persist
// metadata. Validation happens before any side effect; a metadata failure
// rolls the stored file back.
type UploadUseCase struct {
	inspector ports.FileInspector
	store     ports.FileStore
	repo      ports.MetadataStore
	events    ports.EventPublisher
	now       func() time.Time
}

func NewUploadUseCase(
	inspector ports.FileInspector,
	store ports.FileStore,
	repo ports.MetadataStore,
	events ports.EventPublisher,
) *UploadUseCase {
	return &UploadUseCase{
		inspector: inspector,
		store:     store,
		repo:      repo,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *UploadUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if !req.Type.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unknown document type %q", req.Type))
	}
	if req.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("empty request body"))
	}

	content, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("read body: %w", err))
	}

	report, err := uc.inspector.Inspect(ctx, req.Filename, req.ClaimedMIME, content)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := uc.now()
	key := storageKey(req.Type, report, id, now)

	result, err := uc.store.Write(ctx, key, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	status := domain.StatusAvailable
	if report.Verdict == domain.VerdictQuarantine {
		status = domain.StatusQuarantined
	}

	doc := &domain.Document{
		ID:               id,
		Filename:         report.SanitizedName,
		OriginalFilename: req.Filename,
		FilePath:         key,
		FileSize:         result.Size,
		MimeType:         report.DetectedMIME,
		FileExtension:    report.Extension,
		Type:             req.Type,
		Status:           status,
		Description:      req.Description,
		Tags:             req.Tags,
		Checksum:         result.Checksum,
		IsPublic:         req.IsPublic,
		CreatedAt:        now,
		UpdatedAt:        now,
		Associations:     req.Associations,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		if delErr := uc.store.Delete(ctx, key); delErr != nil {
			slog.Error("rollback of stored file failed", "key", key, "error", delErr)
		}
		return nil, err
	}

	if status == domain.StatusQuarantined {
		qe := domain.QuarantineEvent{DocumentID: id, Reason: report.QuarantineReason, At: now}
		if err := uc.repo.AppendQuarantineEvent(ctx, qe); err != nil {
			slog.Error("append quarantine event failed", "document_id", id, "error", err)
		}
		uc.publish(ctx, domain.Event{
			Type:       domain.EventQuarantined,
			DocumentID: id,
			Filename:   doc.Filename,
			Reason:     report.QuarantineReason,
			At:         now,
		})
	}

	uc.publish(ctx, domain.Event{
		Type:       domain.EventUploaded,
		DocumentID: id,
		Filename:   doc.Filename,
		At:         now,
	})

	return doc, nil
}

// publish is advisory: a dead feed must not fail the pipeline operation
// that produced the event.
func (uc *UploadUseCase) publish(ctx context.Context, ev domain.Event) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentEvent(ctx, ev); err != nil {
		slog.Warn("lifecycle event publish failed", "type", string(ev.Type), "document_id", ev.DocumentID, "error", err)
	}
}

// storageKey shards files by category and upload month, and suffixes the
// sanitized name with the id prefix so two uploads of the same filename
// never collide.
func storageKey(docType domain.DocumentType, report domain.InspectionReport, id string, now time.Time) string {
	base := report.SanitizedName
	if report.Extension != "" {
		base = strings.TrimSuffix(base, "."+report.Extension)
	}
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	name := fmt.Sprintf("%s_%s", base, suffix)
	if report.Extension != "" {
		name += "." + report.Extension
	}
	return fmt.Sprintf("%s/%04d/%02d/%s", docType.StorageCategory(), now.Year(), int(now.Month()), name)
}
