package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

func seedEditable(t *testing.T, repo *fakeMetadataStore, store *fakeFileStore, status domain.DocumentStatus) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:        "doc-1",
		Filename:  "report_abc123.pdf",
		FilePath:  "documents/2026/08/report_abc123.pdf",
		FileSize:  42,
		Checksum:  "deadbeef",
		Type:      domain.TypeMaintenanceReport,
		Status:    status,
		UpdatedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if store != nil {
		seedFile(t, store, doc.FilePath, "content")
	}
	return doc
}

func TestUpdateMetadataAppliesPatchFields(t *testing.T) {
	repo := newFakeMetadataStore()
	cache := newFakeCache()
	seedEditable(t, repo, nil, domain.StatusAvailable)
	uc := NewEditUseCase(repo, cache, &fakePublisher{})

	description := "updated description"
	public := true
	projectID := int64(11)
	doc, err := uc.UpdateMetadata(context.Background(), "doc-1", ports.MetadataPatch{
		Description: &description,
		IsPublic:    &public,
		ProjectID:   ports.IDPatch{Set: true, Value: &projectID},
	})
	if err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}

	if doc.Description != description || !doc.IsPublic {
		t.Fatalf("patch not applied: %+v", doc)
	}
	if doc.ProjectID == nil || *doc.ProjectID != 11 {
		t.Fatalf("project association not applied: %+v", doc.ProjectID)
	}
	if len(cache.removed) != 1 {
		t.Fatalf("expected cache invalidation, removed = %v", cache.removed)
	}

	stored := repo.docs["doc-1"]
	if stored.Description != description {
		t.Fatalf("stored description = %q", stored.Description)
	}
}

func TestUpdateMetadataClearsAssociation(t *testing.T) {
	repo := newFakeMetadataStore()
	doc := seedEditable(t, repo, nil, domain.StatusAvailable)
	projectID := int64(7)
	doc.ProjectID = &projectID
	repo.docs["doc-1"] = doc
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	updated, err := uc.UpdateMetadata(context.Background(), "doc-1", ports.MetadataPatch{
		ProjectID: ports.IDPatch{Set: true},
	})
	if err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	if updated.ProjectID != nil {
		t.Fatalf("project association = %v, want cleared", *updated.ProjectID)
	}
	if repo.docs["doc-1"].ProjectID != nil {
		t.Fatalf("stored association must be cleared")
	}
}

func TestUpdateMetadataRejectsImmutableFields(t *testing.T) {
	repo := newFakeMetadataStore()
	seedEditable(t, repo, nil, domain.StatusAvailable)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	path := "elsewhere/evil.pdf"
	_, err := uc.UpdateMetadata(context.Background(), "doc-1", ports.MetadataPatch{FilePath: &path})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if repo.docs["doc-1"].FilePath != "documents/2026/08/report_abc123.pdf" {
		t.Fatalf("file path must not change")
	}
}

func TestUpdateMetadataSurfacesConcurrentConflict(t *testing.T) {
	repo := newFakeMetadataStore()
	seedEditable(t, repo, nil, domain.StatusAvailable)
	// Another writer bumps the row between read and write.
	repo.failUpdate = domain.WrapError(domain.ErrConflict, "update document", context.DeadlineExceeded)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	description := "mine"
	_, err := uc.UpdateMetadata(context.Background(), "doc-1", ports.MetadataPatch{Description: &description})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteSoftDeletesAndDefersFileRemoval(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	publisher := &fakePublisher{}
	doc := seedEditable(t, repo, store, domain.StatusAvailable)
	uc := NewEditUseCase(repo, newFakeCache(), publisher)

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if repo.docs["doc-1"].Status != domain.StatusDeleted {
		t.Fatalf("status = %q, want deleted", repo.docs["doc-1"].Status)
	}
	// Deletion is a metadata write only; the bytes wait for the reconciler.
	if _, ok := store.objects[doc.FilePath]; !ok {
		t.Fatalf("stored file must survive the delete call")
	}
	if len(store.deleted) != 0 {
		t.Fatalf("no storage deletes expected, got %v", store.deleted)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != domain.EventDeleted {
		t.Fatalf("events = %+v", publisher.events)
	}

	// The next reconciliation pass reaps the now-orphaned object.
	store.objects[doc.FilePath] = fakeObject{
		data:       store.objects[doc.FilePath].data,
		modifiedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	cleanup := NewCleanupUseCase(repo, store, publisher, time.Hour)
	summary, err := cleanup.CleanupOrphans(context.Background())
	if err != nil {
		t.Fatalf("CleanupOrphans() error = %v", err)
	}
	if summary.OrphansRemoved != 1 {
		t.Fatalf("OrphansRemoved = %d, want 1", summary.OrphansRemoved)
	}
	if _, ok := store.objects[doc.FilePath]; ok {
		t.Fatalf("reconciler must reap the deleted document's file")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	seedEditable(t, repo, store, domain.StatusAvailable)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestQuarantineRecordsReasonAndTransitions(t *testing.T) {
	repo := newFakeMetadataStore()
	publisher := &fakePublisher{}
	seedEditable(t, repo, nil, domain.StatusAvailable)
	uc := NewEditUseCase(repo, newFakeCache(), publisher)

	if err := uc.Quarantine(context.Background(), "doc-1", "reported by user"); err != nil {
		t.Fatalf("Quarantine() error = %v", err)
	}

	if repo.docs["doc-1"].Status != domain.StatusQuarantined {
		t.Fatalf("status = %q", repo.docs["doc-1"].Status)
	}
	events, _ := repo.ListQuarantineEvents(context.Background(), "doc-1")
	if len(events) != 1 || events[0].Reason != "reported by user" {
		t.Fatalf("quarantine log = %+v", events)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != domain.EventQuarantined {
		t.Fatalf("events = %+v", publisher.events)
	}
}

func TestQuarantineForcesFromAnyLiveStatus(t *testing.T) {
	statuses := []domain.DocumentStatus{
		domain.StatusUploading,
		domain.StatusProcessing,
		domain.StatusValidationFailed,
		domain.StatusCorrupted,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			repo := newFakeMetadataStore()
			seedEditable(t, repo, nil, status)
			uc := NewEditUseCase(repo, nil, &fakePublisher{})

			if err := uc.Quarantine(context.Background(), "doc-1", "operator isolation"); err != nil {
				t.Fatalf("Quarantine() from %q error = %v", status, err)
			}
			if repo.docs["doc-1"].Status != domain.StatusQuarantined {
				t.Fatalf("status = %q, want quarantined", repo.docs["doc-1"].Status)
			}
			events, _ := repo.ListQuarantineEvents(context.Background(), "doc-1")
			if len(events) != 1 || events[0].Reason != "operator isolation" {
				t.Fatalf("quarantine log = %+v", events)
			}
		})
	}
}

func TestQuarantineAgainAppendsAnotherReason(t *testing.T) {
	repo := newFakeMetadataStore()
	seedEditable(t, repo, nil, domain.StatusQuarantined)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	if err := uc.Quarantine(context.Background(), "doc-1", "second report"); err != nil {
		t.Fatalf("Quarantine() error = %v", err)
	}
	if repo.docs["doc-1"].Status != domain.StatusQuarantined {
		t.Fatalf("status = %q", repo.docs["doc-1"].Status)
	}
	events, _ := repo.ListQuarantineEvents(context.Background(), "doc-1")
	if len(events) != 1 || events[0].Reason != "second report" {
		t.Fatalf("quarantine log = %+v", events)
	}
}

func TestQuarantineRequiresReason(t *testing.T) {
	repo := newFakeMetadataStore()
	seedEditable(t, repo, nil, domain.StatusAvailable)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	if err := uc.Quarantine(context.Background(), "doc-1", "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQuarantineDeletedDocumentIsInvalidTransition(t *testing.T) {
	repo := newFakeMetadataStore()
	seedEditable(t, repo, nil, domain.StatusDeleted)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	if err := uc.Quarantine(context.Background(), "doc-1", "late report"); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReleaseQuarantinedDocument(t *testing.T) {
	repo := newFakeMetadataStore()
	publisher := &fakePublisher{}
	seedEditable(t, repo, nil, domain.StatusQuarantined)
	uc := NewEditUseCase(repo, newFakeCache(), publisher)

	if err := uc.Release(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if repo.docs["doc-1"].Status != domain.StatusAvailable {
		t.Fatalf("status = %q", repo.docs["doc-1"].Status)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != domain.EventReleased {
		t.Fatalf("events = %+v", publisher.events)
	}
}

func TestReleaseNonQuarantinedDocumentFails(t *testing.T) {
	repo := newFakeMetadataStore()
	seedEditable(t, repo, nil, domain.StatusAvailable)
	uc := NewEditUseCase(repo, nil, &fakePublisher{})

	if err := uc.Release(context.Background(), "doc-1"); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
