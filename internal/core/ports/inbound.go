package ports

import (
	"context"
	"io"

	"github.com/campusops/docvault/internal/core/domain"
)

// UploadRequest carries one incoming file and its claimed metadata.
type UploadRequest struct {
	Filename    string
	ClaimedMIME string
	Body        io.Reader
	Type        domain.DocumentType
	Description string
	Tags        string
	IsPublic    bool

	domain.Associations
}

// IDPatch is a three-state association update: zero value leaves the link
// alone, Set with a nil Value clears it, Set with a value rewires it.
type IDPatch struct {
	Set   bool
	Value *int64
}

// MetadataPatch is a partial update. Pointer fields distinguish "absent" from
// "set to zero"; associations use IDPatch so they can also be cleared.
// FilePath, FileSize and Checksum are carried only so the service can reject
// attempts to change them.
type MetadataPatch struct {
	Description *string
	Tags        *string
	IsPublic    *bool

	ProjectID           IDPatch
	ResourceID          IDPatch
	MaintenanceTicketID IDPatch
	LocationID          IDPatch
	SensorSiteID        IDPatch
	UploadedByUserID    IDPatch

	FilePath *string
	FileSize *int64
	Checksum *string
}

// DocumentIngestor is the inbound contract for upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// DocumentReader serves metadata and content reads with the access gate.
type DocumentReader interface {
	Get(ctx context.Context, id, userID string) (*domain.Document, error)
	Download(ctx context.Context, id, userID string) (io.ReadCloser, *domain.Document, error)
	Search(ctx context.Context, filter SearchFilter, page Page) ([]domain.Document, int64, error)
	QuarantineLog(ctx context.Context, id string) ([]domain.QuarantineEvent, error)
}

// DocumentEditor mutates metadata and lifecycle state.
type DocumentEditor interface {
	UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
	Quarantine(ctx context.Context, id, reason string) error
	Release(ctx context.Context, id string) error
}

// Reconciler runs one orphan-cleanup pass; triggering is the caller's job.
type Reconciler interface {
	CleanupOrphans(ctx context.Context) (domain.CleanupSummary, error)
}

// Reporter aggregates storage statistics for operators.
type Reporter interface {
	Stats(ctx context.Context) (*domain.StorageStats, error)
	ExportStats(ctx context.Context) ([]byte, error)
}
