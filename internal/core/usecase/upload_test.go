package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

func textReport() domain.InspectionReport {
	return domain.InspectionReport{
		SanitizedName: "a.txt",
		Extension:     "txt",
		DetectedMIME:  "text/plain",
		Verdict:       domain.VerdictAccepted,
	}
}

func TestUploadPersistsFileAndMetadata(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	publisher := &fakePublisher{}
	inspector := &fakeInspector{report: textReport()}
	uc := NewUploadUseCase(inspector, store, repo, publisher)

	doc, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename:    "a.txt",
		ClaimedMIME: "text/plain",
		Body:        strings.NewReader("hello world\n"),
		Type:        domain.TypeMaintenanceReport,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if doc.Status != domain.StatusAvailable {
		t.Fatalf("status = %q, want %q", doc.Status, domain.StatusAvailable)
	}
	if doc.FileSize != 12 {
		t.Fatalf("file size = %d, want 12", doc.FileSize)
	}
	if doc.Checksum == "" {
		t.Fatalf("expected checksum to be recorded")
	}
	if !strings.HasPrefix(doc.FilePath, "documents/") {
		t.Fatalf("file path = %q, want documents/ prefix", doc.FilePath)
	}
	if !strings.Contains(doc.FilePath, "a_") || !strings.HasSuffix(doc.FilePath, ".txt") {
		t.Fatalf("file path = %q, want sanitized name with id suffix", doc.FilePath)
	}

	if _, ok := store.objects[doc.FilePath]; !ok {
		t.Fatalf("expected file at %q", doc.FilePath)
	}
	if _, err := repo.GetByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("metadata row missing: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != domain.EventUploaded {
		t.Fatalf("events = %+v, want one uploaded event", publisher.events)
	}
}

func TestUploadRejectionLeavesNoSideEffects(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	inspector := &fakeInspector{
		err: domain.WrapError(domain.ErrMimeMismatch, "inspect file", errors.New("claimed text/plain, detected application/pdf")),
	}
	uc := NewUploadUseCase(inspector, store, repo, &fakePublisher{})

	_, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename:    "a.txt",
		ClaimedMIME: "text/plain",
		Body:        strings.NewReader("%PDF-1.4"),
		Type:        domain.TypeMaintenanceReport,
	})
	if !domain.IsKind(err, domain.ErrMimeMismatch) {
		t.Fatalf("expected ErrMimeMismatch, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected no stored files, got %d", len(store.objects))
	}
	if len(repo.docs) != 0 {
		t.Fatalf("expected no metadata rows, got %d", len(repo.docs))
	}
}

func TestUploadRollsBackFileWhenMetadataInsertFails(t *testing.T) {
	repo := newFakeMetadataStore()
	repo.failCreate = domain.WrapError(domain.ErrConstraint, "insert document", errors.New("fk violation"))
	store := newFakeFileStore()
	uc := NewUploadUseCase(&fakeInspector{report: textReport()}, store, repo, &fakePublisher{})

	_, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename: "a.txt",
		Body:     strings.NewReader("hello world\n"),
		Type:     domain.TypeMaintenanceReport,
	})
	if !domain.IsKind(err, domain.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected stored file to be rolled back, %d left", len(store.objects))
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected one rollback delete, got %d", len(store.deleted))
	}
}

func TestUploadQuarantineVerdictCreatesQuarantinedDocument(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	publisher := &fakePublisher{}
	inspector := &fakeInspector{report: domain.InspectionReport{
		SanitizedName:    "notes.txt",
		Extension:        "txt",
		DetectedMIME:     "text/plain",
		Verdict:          domain.VerdictQuarantine,
		QuarantineReason: "signature match: eval call",
	}}
	uc := NewUploadUseCase(inspector, store, repo, publisher)

	doc, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename: "notes.txt",
		Body:     strings.NewReader("eval(payload)"),
		Type:     domain.TypeGeneralDocument,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusQuarantined {
		t.Fatalf("status = %q, want %q", doc.Status, domain.StatusQuarantined)
	}
	if _, ok := store.objects[doc.FilePath]; !ok {
		t.Fatalf("quarantined file must still be stored")
	}

	events, err := repo.ListQuarantineEvents(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("ListQuarantineEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Reason != "signature match: eval call" {
		t.Fatalf("quarantine log = %+v", events)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected quarantined + uploaded events, got %+v", publisher.events)
	}
	if publisher.events[0].Type != domain.EventQuarantined {
		t.Fatalf("first event = %q, want %q", publisher.events[0].Type, domain.EventQuarantined)
	}
}

func TestUploadSameFilenameTwiceYieldsDistinctPaths(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	uc := NewUploadUseCase(&fakeInspector{report: textReport()}, store, repo, &fakePublisher{})

	first, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename: "a.txt",
		Body:     strings.NewReader("first"),
		Type:     domain.TypeMaintenanceReport,
	})
	if err != nil {
		t.Fatalf("first Upload() error = %v", err)
	}
	second, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename: "a.txt",
		Body:     strings.NewReader("second"),
		Type:     domain.TypeMaintenanceReport,
	})
	if err != nil {
		t.Fatalf("second Upload() error = %v", err)
	}

	if first.FilePath == second.FilePath {
		t.Fatalf("expected distinct storage paths, both %q", first.FilePath)
	}
	if len(store.objects) != 2 {
		t.Fatalf("expected 2 stored files, got %d", len(store.objects))
	}
}

func TestUploadSucceedsWhenEventFeedIsDown(t *testing.T) {
	repo := newFakeMetadataStore()
	store := newFakeFileStore()
	publisher := &fakePublisher{err: errors.New("nats: no servers")}
	uc := NewUploadUseCase(&fakeInspector{report: textReport()}, store, repo, publisher)

	doc, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename: "a.txt",
		Body:     strings.NewReader("hello world\n"),
		Type:     domain.TypeMaintenanceReport,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusAvailable {
		t.Fatalf("status = %q", doc.Status)
	}
}

func TestUploadRejectsUnknownDocumentType(t *testing.T) {
	uc := NewUploadUseCase(&fakeInspector{report: textReport()}, newFakeFileStore(), newFakeMetadataStore(), &fakePublisher{})

	_, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename: "a.txt",
		Body:     strings.NewReader("hello"),
		Type:     domain.DocumentType("mystery"),
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
