package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

const defaultSafetyMargin = time.Hour

// CleanupUseCase reconciles the file store against the metadata store:
// stored objects without an active row are orphans and get removed,
// active rows without a stored object are marked corrupted.
type CleanupUseCase struct {
	repo   ports.MetadataStore
	store  ports.FileStore
	events ports.EventPublisher
	// safetyMargin protects uploads that are mid-flight during a pass:
	// an unmatched object younger than the margin is skipped, not removed.
	safetyMargin time.Duration
	now          func() time.Time
}

func NewCleanupUseCase(
	repo ports.MetadataStore,
	store ports.FileStore,
	events ports.EventPublisher,
	safetyMargin time.Duration,
) *CleanupUseCase {
	if safetyMargin <= 0 {
		safetyMargin = defaultSafetyMargin
	}
	return &CleanupUseCase{
		repo:         repo,
		store:        store,
		events:       events,
		safetyMargin: safetyMargin,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CleanupUseCase) CleanupOrphans(ctx context.Context) (domain.CleanupSummary, error) {
	var summary domain.CleanupSummary
	passStart := uc.now()

	active, err := uc.repo.ListActiveFiles(ctx)
	if err != nil {
		return summary, err
	}
	activeByPath := make(map[string]ports.ActiveFile, len(active))
	for _, f := range active {
		activeByPath[f.Path] = f
	}

	objects, err := uc.store.List(ctx)
	if err != nil {
		return summary, err
	}
	stored := make(map[string]struct{}, len(objects))

	for _, obj := range objects {
		stored[obj.Key] = struct{}{}
		if _, ok := activeByPath[obj.Key]; ok {
			continue
		}
		if passStart.Sub(obj.ModifiedAt) < uc.safetyMargin {
			summary.KeysSkipped++
			continue
		}
		if err := uc.store.Delete(ctx, obj.Key); err != nil {
			slog.Warn("orphan removal failed", "key", obj.Key, "error", err)
			summary.KeysSkipped++
			continue
		}
		summary.OrphansRemoved++
		summary.BytesReclaimed += obj.Size
	}

	for _, f := range active {
		if _, ok := stored[f.Path]; ok {
			continue
		}
		// Rows still being written have no file yet; only settled
		// statuses can be declared corrupted.
		if !f.Status.CanTransitionTo(domain.StatusCorrupted) {
			continue
		}
		if err := uc.repo.UpdateStatus(ctx, f.DocumentID, domain.StatusCorrupted); err != nil {
			slog.Warn("mark corrupted failed", "document_id", f.DocumentID, "error", err)
			continue
		}
		summary.CorruptedMarked++
		uc.publish(ctx, domain.Event{
			Type:       domain.EventCorrupted,
			DocumentID: f.DocumentID,
			Reason:     "stored file missing",
			At:         uc.now(),
		})
	}

	return summary, nil
}

func (uc *CleanupUseCase) publish(ctx context.Context, ev domain.Event) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentEvent(ctx, ev); err != nil {
		slog.Warn("lifecycle event publish failed", "type", string(ev.Type), "document_id", ev.DocumentID, "error", err)
	}
}
