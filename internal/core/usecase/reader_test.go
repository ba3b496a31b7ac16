package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

func seedFile(t *testing.T, store *fakeFileStore, key, content string) {
	t.Helper()
	store.objects[key] = fakeObject{data: []byte(content), modifiedAt: time.Now().UTC()}
}

func TestDownloadStreamsContentAndCountsAccess(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	doc := &domain.Document{
		ID: "doc-1", FilePath: "documents/2026/08/doc-1.txt",
		Status: domain.StatusAvailable, IsPublic: true,
		Type: domain.TypeMaintenanceReport, UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedFile(t, store, doc.FilePath, "hello")

	uc := NewReadUseCase(repo, store, allowAllAuthorizer{}, nil)
	reader, got, err := uc.Download(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer reader.Close()

	content, _ := io.ReadAll(reader)
	if string(content) != "hello" {
		t.Fatalf("content = %q", content)
	}
	if got.ID != "doc-1" {
		t.Fatalf("document id = %q", got.ID)
	}
	if len(repo.downloads) != 1 {
		t.Fatalf("downloads recorded = %d, want 1", len(repo.downloads))
	}
	if repo.docs["doc-1"].DownloadCount != 1 {
		t.Fatalf("download count = %d, want 1", repo.docs["doc-1"].DownloadCount)
	}
}

func TestDownloadQuarantinedDocumentIsDenied(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	doc := &domain.Document{
		ID: "doc-1", FilePath: "documents/2026/08/doc-1.txt",
		Status: domain.StatusQuarantined, IsPublic: true,
		Type: domain.TypeMaintenanceReport, UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedFile(t, store, doc.FilePath, "payload")

	uc := NewReadUseCase(repo, store, allowAllAuthorizer{}, nil)
	_, _, err := uc.Download(context.Background(), "doc-1", "")
	if !domain.IsKind(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if len(repo.downloads) != 0 {
		t.Fatalf("denied download must not be counted")
	}
}

func TestGetPrivateDocumentRequiresIdentifiedUser(t *testing.T) {
	repo := newFakeMetadataStore()
	doc := &domain.Document{
		ID: "doc-1", Status: domain.StatusAvailable, IsPublic: false,
		Type: domain.TypeMaintenanceReport, UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	uc := NewReadUseCase(repo, newFakeFileStore(), publicOnlyAuthorizer{}, nil)

	if _, err := uc.Get(context.Background(), "doc-1", ""); !domain.IsKind(err, domain.ErrAccessDenied) {
		t.Fatalf("anonymous access: expected ErrAccessDenied, got %v", err)
	}
	if _, err := uc.Get(context.Background(), "doc-1", "user-7"); err != nil {
		t.Fatalf("identified access: error = %v", err)
	}
}

func TestGetDeletedDocumentReportsNotFound(t *testing.T) {
	repo := newFakeMetadataStore()
	doc := &domain.Document{
		ID: "doc-1", Status: domain.StatusDeleted, IsPublic: true,
		Type: domain.TypeMaintenanceReport, UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	uc := NewReadUseCase(repo, newFakeFileStore(), allowAllAuthorizer{}, nil)
	if _, err := uc.Get(context.Background(), "doc-1", ""); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetServesFromCacheAndDownloadInvalidates(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	cache := newFakeCache()
	doc := &domain.Document{
		ID: "doc-1", FilePath: "documents/2026/08/doc-1.txt",
		Status: domain.StatusAvailable, IsPublic: true,
		Type: domain.TypeMaintenanceReport, UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedFile(t, store, doc.FilePath, "hello")

	uc := NewReadUseCase(repo, store, allowAllAuthorizer{}, cache)

	if _, err := uc.Get(context.Background(), "doc-1", ""); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := cache.entries["doc-1"]; !ok {
		t.Fatalf("expected cache to be populated after Get")
	}

	reader, _, err := uc.Download(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	reader.Close()
	if _, ok := cache.entries["doc-1"]; ok {
		t.Fatalf("expected cache entry to be invalidated after download accounting")
	}
}

func TestSearchFiltersByStatus(t *testing.T) {
	repo := newFakeMetadataStore()
	for i, status := range []domain.DocumentStatus{domain.StatusAvailable, domain.StatusQuarantined} {
		doc := &domain.Document{
			ID: string(rune('a' + i)), Status: status, FilePath: string(rune('a' + i)),
			Type: domain.TypeMaintenanceReport, UpdatedAt: time.Now().UTC(),
		}
		if err := repo.Create(context.Background(), doc); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	uc := NewReadUseCase(repo, newFakeFileStore(), allowAllAuthorizer{}, nil)
	docs, total, err := uc.Search(context.Background(), ports.SearchFilter{Status: domain.StatusQuarantined}, ports.Page{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 1 || len(docs) != 1 || docs[0].Status != domain.StatusQuarantined {
		t.Fatalf("Search() = %+v, total %d", docs, total)
	}
}
