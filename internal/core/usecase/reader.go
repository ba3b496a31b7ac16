package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

// ReadUseCase serves metadata and content reads. A read-through cache sits
// in front of the metadata store; the access gate and lifecycle checks run
// on every call regardless of cache state.
type ReadUseCase struct {
	repo  ports.MetadataStore
	store ports.FileStore
	authz ports.Authorizer
	cache ports.MetadataCache
	now   func() time.Time
}

func NewReadUseCase(
	repo ports.MetadataStore,
	store ports.FileStore,
	authz ports.Authorizer,
	cache ports.MetadataCache,
) *ReadUseCase {
	return &ReadUseCase{
		repo:  repo,
		store: store,
		authz: authz,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ReadUseCase) Get(ctx context.Context, id, userID string) (*domain.Document, error) {
	doc, err := uc.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !uc.authz.CanAccess(ctx, userID, doc) {
		return nil, domain.WrapError(domain.ErrAccessDenied, "get document", fmt.Errorf("id=%s", id))
	}
	return doc, nil
}

func (uc *ReadUseCase) Download(ctx context.Context, id, userID string) (io.ReadCloser, *domain.Document, error) {
	doc, err := uc.fetch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !uc.authz.CanAccess(ctx, userID, doc) {
		return nil, nil, domain.WrapError(domain.ErrAccessDenied, "download document", fmt.Errorf("id=%s", id))
	}

	switch doc.Status {
	case domain.StatusAvailable:
	case domain.StatusQuarantined:
		return nil, nil, domain.WrapError(domain.ErrAccessDenied, "download document",
			fmt.Errorf("id=%s is quarantined", id))
	default:
		return nil, nil, domain.WrapError(domain.ErrDocumentNotFound, "download document",
			fmt.Errorf("id=%s has status %s", id, doc.Status))
	}

	reader, err := uc.store.Read(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, err
	}

	// Accounting is best effort; serving the bytes wins over the counter.
	if err := uc.repo.RecordDownload(ctx, id, uc.now()); err != nil {
		slog.Warn("record download failed", "document_id", id, "error", err)
	}
	if uc.cache != nil {
		uc.cache.Remove(id)
	}

	return reader, doc, nil
}

func (uc *ReadUseCase) Search(ctx context.Context, filter ports.SearchFilter, page ports.Page) ([]domain.Document, int64, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "search documents",
			fmt.Errorf("unknown document type %q", filter.Type))
	}
	return uc.repo.Search(ctx, filter, page)
}

func (uc *ReadUseCase) QuarantineLog(ctx context.Context, id string) ([]domain.QuarantineEvent, error) {
	if _, err := uc.fetch(ctx, id); err != nil {
		return nil, err
	}
	return uc.repo.ListQuarantineEvents(ctx, id)
}

// fetch loads a document through the cache and hides soft-deleted rows.
func (uc *ReadUseCase) fetch(ctx context.Context, id string) (*domain.Document, error) {
	if uc.cache != nil {
		if doc, ok := uc.cache.Get(id); ok {
			if doc.Status == domain.StatusDeleted {
				return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
			}
			return doc, nil
		}
	}

	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.StatusDeleted {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}

	if uc.cache != nil {
		uc.cache.Set(id, doc)
	}
	return doc, nil
}
