package ports

import (
	"context"
	"io"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
)

// SearchFilter narrows metadata queries. Zero values mean "no constraint".
type SearchFilter struct {
	Text          string
	Type          domain.DocumentType
	Status        domain.DocumentStatus
	MimeType      string
	FileExtension string
	IsPublic      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	MinFileSize   int64
	MaxFileSize   int64

	domain.Associations
}

type Page struct {
	Limit    int
	Offset   int
	SortBy   string
	SortDesc bool
}

// MetadataStore persists and reads document rows. Implementations surface
// domain.ErrConflict when an optimistic update loses a race, and
// domain.ErrConstraint when an association references a missing entity.
type MetadataStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	// Update writes mutable fields; expectedUpdatedAt implements the
	// optimistic concurrency check.
	Update(ctx context.Context, doc *domain.Document, expectedUpdatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	// RecordDownload increments download_count and stamps last_accessed_at.
	RecordDownload(ctx context.Context, id string, at time.Time) error
	Search(ctx context.Context, filter SearchFilter, page Page) ([]domain.Document, int64, error)
	// ListActiveFiles returns id, path and status for every non-deleted row.
	ListActiveFiles(ctx context.Context) ([]ActiveFile, error)
	AppendQuarantineEvent(ctx context.Context, ev domain.QuarantineEvent) error
	ListQuarantineEvents(ctx context.Context, documentID string) ([]domain.QuarantineEvent, error)
	Stats(ctx context.Context) (*domain.StorageStats, error)
}

// ActiveFile is one non-deleted metadata row as seen by reconciliation.
type ActiveFile struct {
	DocumentID string
	Path       string
	Status     domain.DocumentStatus
}

// StoredObject is one file-store entry as seen by reconciliation.
type StoredObject struct {
	Key        string
	Size       int64
	ModifiedAt time.Time
}

// WriteResult carries what the file store observed while persisting a stream.
type WriteResult struct {
	Size     int64
	Checksum string
}

// FileStore persists document bytes. Write is atomic: on error nothing is
// left behind at the key.
type FileStore interface {
	Write(ctx context.Context, key string, data io.Reader) (WriteResult, error)
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]StoredObject, error)
}

// FileInspector validates an upload before any bytes are persisted.
type FileInspector interface {
	Inspect(ctx context.Context, filename, claimedMIME string, content []byte) (domain.InspectionReport, error)
}

// Authorizer decides access to private documents; the pipeline only enforces
// the public/private gate and delegates the rest.
type Authorizer interface {
	CanAccess(ctx context.Context, userID string, doc *domain.Document) bool
}

// EventPublisher emits lifecycle events to the audit/notification feed.
type EventPublisher interface {
	PublishDocumentEvent(ctx context.Context, ev domain.Event) error
}

// EventSubscriber consumes the lifecycle feed (janitor side).
type EventSubscriber interface {
	SubscribeDocumentEvents(ctx context.Context, handler func(context.Context, domain.Event) error) error
}

// MetadataCache is a read-through cache for document rows on the hot path.
type MetadataCache interface {
	Get(id string) (*domain.Document, bool)
	Set(id string, doc *domain.Document)
	Remove(id string)
}
