package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

type fakeMetadataStore struct {
	docs             map[string]*domain.Document
	quarantineEvents []domain.QuarantineEvent
	downloads        []string

	failCreate       error
	failUpdate       error
	failUpdateStatus error
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{docs: make(map[string]*domain.Document)}
}

func (f *fakeMetadataStore) Create(_ context.Context, doc *domain.Document) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	for _, existing := range f.docs {
		if existing.FilePath == doc.FilePath {
			return domain.WrapError(domain.ErrConstraint, "insert document", fmt.Errorf("duplicate path"))
		}
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeMetadataStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeMetadataStore) Update(_ context.Context, doc *domain.Document, expectedUpdatedAt time.Time) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	existing, ok := f.docs[doc.ID]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", doc.ID))
	}
	if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.WrapError(domain.ErrConflict, "update document", fmt.Errorf("id=%s changed concurrently", doc.ID))
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeMetadataStore) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	if f.failUpdateStatus != nil {
		return f.failUpdateStatus
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", fmt.Errorf("id=%s", id))
	}
	if doc.Status == domain.StatusDeleted {
		return domain.WrapError(domain.ErrConflict, "update document status", fmt.Errorf("id=%s is deleted", id))
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeMetadataStore) RecordDownload(_ context.Context, id string, at time.Time) error {
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "record download", fmt.Errorf("id=%s", id))
	}
	doc.DownloadCount++
	doc.LastAccessedAt = &at
	f.downloads = append(f.downloads, id)
	return nil
}

func (f *fakeMetadataStore) Search(_ context.Context, filter ports.SearchFilter, _ ports.Page) ([]domain.Document, int64, error) {
	var out []domain.Document
	for _, doc := range f.docs {
		if filter.Type != "" && doc.Type != filter.Type {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeMetadataStore) ListActiveFiles(_ context.Context) ([]ports.ActiveFile, error) {
	var files []ports.ActiveFile
	for _, doc := range f.docs {
		if doc.Status == domain.StatusDeleted {
			continue
		}
		files = append(files, ports.ActiveFile{DocumentID: doc.ID, Path: doc.FilePath, Status: doc.Status})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].DocumentID < files[j].DocumentID })
	return files, nil
}

func (f *fakeMetadataStore) AppendQuarantineEvent(_ context.Context, ev domain.QuarantineEvent) error {
	f.quarantineEvents = append(f.quarantineEvents, ev)
	return nil
}

func (f *fakeMetadataStore) ListQuarantineEvents(_ context.Context, documentID string) ([]domain.QuarantineEvent, error) {
	var out []domain.QuarantineEvent
	for _, ev := range f.quarantineEvents {
		if ev.DocumentID == documentID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeMetadataStore) Stats(_ context.Context) (*domain.StorageStats, error) {
	stats := &domain.StorageStats{
		ByType:   make(map[domain.DocumentType]int64),
		ByStatus: make(map[domain.DocumentStatus]int64),
	}
	for _, doc := range f.docs {
		stats.ByStatus[doc.Status]++
		if doc.Status == domain.StatusDeleted {
			continue
		}
		stats.TotalDocuments++
		stats.TotalSizeBytes += doc.FileSize
		stats.ByType[doc.Type]++
	}
	return stats, nil
}

type fakeObject struct {
	data       []byte
	modifiedAt time.Time
}

type fakeFileStore struct {
	objects map[string]fakeObject
	deleted []string

	failWrite error
	failRead  error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{objects: make(map[string]fakeObject)}
}

func (f *fakeFileStore) Write(_ context.Context, key string, data io.Reader) (ports.WriteResult, error) {
	if f.failWrite != nil {
		return ports.WriteResult{}, f.failWrite
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return ports.WriteResult{}, domain.WrapError(domain.ErrStorageWrite, "write file", err)
	}
	f.objects[key] = fakeObject{data: content, modifiedAt: time.Now().UTC()}
	sum := sha256.Sum256(content)
	return ports.WriteResult{Size: int64(len(content)), Checksum: hex.EncodeToString(sum[:])}, nil
}

func (f *fakeFileStore) Read(_ context.Context, key string) (io.ReadCloser, error) {
	if f.failRead != nil {
		return nil, f.failRead
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "read file", fmt.Errorf("key=%s", key))
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (f *fakeFileStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeFileStore) List(_ context.Context) ([]ports.StoredObject, error) {
	var out []ports.StoredObject
	for key, obj := range f.objects {
		out = append(out, ports.StoredObject{Key: key, Size: int64(len(obj.data)), ModifiedAt: obj.modifiedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type fakeInspector struct {
	report domain.InspectionReport
	err    error
	calls  int
}

func (f *fakeInspector) Inspect(_ context.Context, _, _ string, _ []byte) (domain.InspectionReport, error) {
	f.calls++
	if f.err != nil {
		return domain.InspectionReport{}, f.err
	}
	return f.report, nil
}

type fakePublisher struct {
	events []domain.Event
	err    error
}

func (f *fakePublisher) PublishDocumentEvent(_ context.Context, ev domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CanAccess(context.Context, string, *domain.Document) bool { return true }

type publicOnlyAuthorizer struct{}

func (publicOnlyAuthorizer) CanAccess(_ context.Context, userID string, doc *domain.Document) bool {
	return doc.IsPublic || userID != ""
}

type fakeCache struct {
	entries map[string]*domain.Document
	removed []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.Document)}
}

func (f *fakeCache) Get(id string) (*domain.Document, bool) {
	doc, ok := f.entries[id]
	return doc, ok
}

func (f *fakeCache) Set(id string, doc *domain.Document) {
	f.entries[id] = doc
}

func (f *fakeCache) Remove(id string) {
	delete(f.entries, id)
	f.removed = append(f.removed, id)
}
