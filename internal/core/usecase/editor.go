package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

// EditUseCase mutates metadata and drives the lifecycle state machine.
type EditUseCase struct {
	repo   ports.MetadataStore
	cache  ports.MetadataCache
	events ports.EventPublisher
	now    func() time.Time
}

func NewEditUseCase(
	repo ports.MetadataStore,
	cache ports.MetadataCache,
	events ports.EventPublisher,
) *EditUseCase {
	return &EditUseCase{
		repo:   repo,
		cache:  cache,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *EditUseCase) UpdateMetadata(ctx context.Context, id string, patch ports.MetadataPatch) (*domain.Document, error) {
	if patch.FilePath != nil || patch.FileSize != nil || patch.Checksum != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update metadata",
			fmt.Errorf("file_path, file_size and checksum are immutable"))
	}

	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.StatusDeleted {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update metadata", fmt.Errorf("id=%s", id))
	}

	expected := doc.UpdatedAt

	if patch.Description != nil {
		doc.Description = *patch.Description
	}
	if patch.Tags != nil {
		doc.Tags = *patch.Tags
	}
	if patch.IsPublic != nil {
		doc.IsPublic = *patch.IsPublic
	}
	if patch.ProjectID.Set {
		doc.ProjectID = patch.ProjectID.Value
	}
	if patch.ResourceID.Set {
		doc.ResourceID = patch.ResourceID.Value
	}
	if patch.MaintenanceTicketID.Set {
		doc.MaintenanceTicketID = patch.MaintenanceTicketID.Value
	}
	if patch.LocationID.Set {
		doc.LocationID = patch.LocationID.Value
	}
	if patch.SensorSiteID.Set {
		doc.SensorSiteID = patch.SensorSiteID.Value
	}
	if patch.UploadedByUserID.Set {
		doc.UploadedByUserID = patch.UploadedByUserID.Value
	}
	doc.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, doc, expected); err != nil {
		return nil, err
	}
	uc.invalidate(id)
	return doc, nil
}

// Delete soft-deletes the row; the stored bytes stay behind and are reaped
// by the next reconciliation pass. That keeps deletion a single cheap
// metadata write even when the storage backend is slow or down. Calling it
// on an already-deleted document is a no-op.
func (uc *EditUseCase) Delete(ctx context.Context, id string) error {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status == domain.StatusDeleted {
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, id, domain.StatusDeleted); err != nil {
		return err
	}
	uc.invalidate(id)

	uc.publish(ctx, domain.Event{
		Type:       domain.EventDeleted,
		DocumentID: id,
		Filename:   doc.Filename,
		At:         uc.now(),
	})
	return nil
}

func (uc *EditUseCase) Quarantine(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.WrapError(domain.ErrInvalidInput, "quarantine document",
			fmt.Errorf("reason is required"))
	}

	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Operator quarantine is forced: any live status can be isolated, and
	// re-quarantining only appends another reason to the side log.
	if doc.Status == domain.StatusDeleted {
		return domain.WrapError(domain.ErrInvalidTransition, "quarantine document",
			fmt.Errorf("cannot quarantine document in status %s", doc.Status))
	}

	if doc.Status != domain.StatusQuarantined {
		if err := uc.repo.UpdateStatus(ctx, id, domain.StatusQuarantined); err != nil {
			return err
		}
	}
	now := uc.now()
	if err := uc.repo.AppendQuarantineEvent(ctx, domain.QuarantineEvent{
		DocumentID: id,
		Reason:     reason,
		At:         now,
	}); err != nil {
		slog.Error("append quarantine event failed", "document_id", id, "error", err)
	}
	uc.invalidate(id)

	uc.publish(ctx, domain.Event{
		Type:       domain.EventQuarantined,
		DocumentID: id,
		Filename:   doc.Filename,
		Reason:     reason,
		At:         now,
	})
	return nil
}

func (uc *EditUseCase) Release(ctx context.Context, id string) error {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusQuarantined || !doc.Status.CanTransitionTo(domain.StatusAvailable) {
		return domain.WrapError(domain.ErrInvalidTransition, "release document",
			fmt.Errorf("cannot release document in status %s", doc.Status))
	}

	if err := uc.repo.UpdateStatus(ctx, id, domain.StatusAvailable); err != nil {
		return err
	}
	uc.invalidate(id)

	uc.publish(ctx, domain.Event{
		Type:       domain.EventReleased,
		DocumentID: id,
		Filename:   doc.Filename,
		At:         uc.now(),
	})
	return nil
}

func (uc *EditUseCase) invalidate(id string) {
	if uc.cache != nil {
		uc.cache.Remove(id)
	}
}

func (uc *EditUseCase) publish(ctx context.Context, ev domain.Event) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentEvent(ctx, ev); err != nil {
		slog.Warn("lifecycle event publish failed", "type", string(ev.Type), "document_id", ev.DocumentID, "error", err)
	}
}
