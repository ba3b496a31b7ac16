package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/janitor startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_path TEXT NOT NULL UNIQUE,
	file_size BIGINT NOT NULL CHECK (file_size > 0),
	mime_type TEXT NOT NULL,
	file_extension TEXT NOT NULL,
	document_type TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL DEFAULT '',
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	download_count BIGINT NOT NULL DEFAULT 0,
	last_accessed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	project_id BIGINT,
	resource_id BIGINT,
	maintenance_ticket_id BIGINT,
	location_id BIGINT,
	sensor_site_id BIGINT,
	uploaded_by_user_id BIGINT
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS document_quarantine_events (
	id BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	reason TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quarantine_events_document ON document_quarantine_events(document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, filename, original_filename, file_path, file_size, mime_type, file_extension,
document_type, status, description, tags, checksum, is_public, download_count, last_accessed_at,
created_at, updated_at, project_id, resource_id, maintenance_ticket_id, location_id, sensor_site_id, uploaded_by_user_id`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
`,
		doc.ID, doc.Filename, doc.OriginalFilename, doc.FilePath, doc.FileSize, doc.MimeType, doc.FileExtension,
		string(doc.Type), string(doc.Status), doc.Description, doc.Tags, doc.Checksum, doc.IsPublic,
		doc.DownloadCount, doc.LastAccessedAt, doc.CreatedAt, doc.UpdatedAt,
		doc.ProjectID, doc.ResourceID, doc.MaintenanceTicketID, doc.LocationID, doc.SensorSiteID, doc.UploadedByUserID,
	)
	if err != nil {
		if isIntegrityViolation(err) {
			return domain.WrapError(domain.ErrConstraint, "insert document", err)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

// Update writes the mutable metadata fields. The expectedUpdatedAt predicate
// is the optimistic concurrency check: a row that moved on underneath the
// caller yields domain.ErrConflict, never a silent overwrite.
func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document, expectedUpdatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET description = $2, tags = $3, is_public = $4, status = $5,
	project_id = $6, resource_id = $7, maintenance_ticket_id = $8,
	location_id = $9, sensor_site_id = $10, uploaded_by_user_id = $11,
	updated_at = $12
WHERE id = $1 AND updated_at = $13
`,
		doc.ID, doc.Description, doc.Tags, doc.IsPublic, string(doc.Status),
		doc.ProjectID, doc.ResourceID, doc.MaintenanceTicketID,
		doc.LocationID, doc.SensorSiteID, doc.UploadedByUserID,
		doc.UpdatedAt, expectedUpdatedAt,
	)
	if err != nil {
		if isIntegrityViolation(err) {
			return domain.WrapError(domain.ErrConstraint, "update document", err)
		}
		return fmt.Errorf("update document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if affected == 0 {
		return r.classifyMissedUpdate(ctx, doc.ID, "update document")
	}
	return nil
}

// UpdateStatus flips the lifecycle status. Deleted rows are excluded from
// the predicate so a racing quarantine or release can never resurrect one;
// the miss surfaces as a conflict instead.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1 AND status <> $4
`, id, string(status), time.Now().UTC(), string(domain.StatusDeleted))
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status rows affected: %w", err)
	}
	if affected == 0 {
		return r.classifyMissedUpdate(ctx, id, "update document status")
	}
	return nil
}

func (r *DocumentRepository) RecordDownload(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET download_count = download_count + 1, last_accessed_at = $2, updated_at = $2
WHERE id = $1 AND status <> $3
`, id, at, string(domain.StatusDeleted))
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record download rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "record download", fmt.Errorf("id=%s", id))
	}
	return nil
}

var sortColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"filename":       "filename",
	"file_size":      "file_size",
	"download_count": "download_count",
}

func (r *DocumentRepository) Search(ctx context.Context, filter ports.SearchFilter, page ports.Page) ([]domain.Document, int64, error) {
	where, args := buildSearchPredicate(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM documents` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	sortBy, ok := sortColumns[page.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	order := " ORDER BY " + sortBy
	if page.SortDesc || page.SortBy == "" {
		order += " DESC"
	}

	limit := page.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	query := `SELECT ` + documentColumns + ` FROM documents` + where + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func buildSearchPredicate(filter ports.SearchFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Text != "" {
		pattern := "%" + filter.Text + "%"
		args = append(args, pattern)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(filename ILIKE $%d OR description ILIKE $%d OR tags ILIKE $%d)", n, n, n))
	}
	if filter.Type != "" {
		add("document_type = $%d", string(filter.Type))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.MimeType != "" {
		add("mime_type = $%d", filter.MimeType)
	}
	if filter.FileExtension != "" {
		add("file_extension = $%d", filter.FileExtension)
	}
	if filter.IsPublic != nil {
		add("is_public = $%d", *filter.IsPublic)
	}
	if filter.CreatedAfter != nil {
		add("created_at >= $%d", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		add("created_at <= $%d", *filter.CreatedBefore)
	}
	if filter.MinFileSize > 0 {
		add("file_size >= $%d", filter.MinFileSize)
	}
	if filter.MaxFileSize > 0 {
		add("file_size <= $%d", filter.MaxFileSize)
	}
	if filter.ProjectID != nil {
		add("project_id = $%d", *filter.ProjectID)
	}
	if filter.ResourceID != nil {
		add("resource_id = $%d", *filter.ResourceID)
	}
	if filter.MaintenanceTicketID != nil {
		add("maintenance_ticket_id = $%d", *filter.MaintenanceTicketID)
	}
	if filter.LocationID != nil {
		add("location_id = $%d", *filter.LocationID)
	}
	if filter.SensorSiteID != nil {
		add("sensor_site_id = $%d", *filter.SensorSiteID)
	}
	if filter.UploadedByUserID != nil {
		add("uploaded_by_user_id = $%d", *filter.UploadedByUserID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *DocumentRepository) ListActiveFiles(ctx context.Context) ([]ports.ActiveFile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, file_path, status FROM documents WHERE status <> $1
`, string(domain.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("list active files: %w", err)
	}
	defer rows.Close()

	var files []ports.ActiveFile
	for rows.Next() {
		var f ports.ActiveFile
		var status string
		if err := rows.Scan(&f.DocumentID, &f.Path, &status); err != nil {
			return nil, fmt.Errorf("scan active file: %w", err)
		}
		f.Status = domain.DocumentStatus(status)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active files: %w", err)
	}
	return files, nil
}

func (r *DocumentRepository) AppendQuarantineEvent(ctx context.Context, ev domain.QuarantineEvent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_quarantine_events (document_id, reason, created_at)
VALUES ($1, $2, $3)
`, ev.DocumentID, ev.Reason, ev.At)
	if err != nil {
		if isIntegrityViolation(err) {
			return domain.WrapError(domain.ErrConstraint, "append quarantine event", err)
		}
		return fmt.Errorf("append quarantine event: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListQuarantineEvents(ctx context.Context, documentID string) ([]domain.QuarantineEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id, reason, created_at
FROM document_quarantine_events
WHERE document_id = $1
ORDER BY created_at
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list quarantine events: %w", err)
	}
	defer rows.Close()

	var events []domain.QuarantineEvent
	for rows.Next() {
		var ev domain.QuarantineEvent
		if err := rows.Scan(&ev.DocumentID, &ev.Reason, &ev.At); err != nil {
			return nil, fmt.Errorf("scan quarantine event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarantine events: %w", err)
	}
	return events, nil
}

func (r *DocumentRepository) Stats(ctx context.Context) (*domain.StorageStats, error) {
	stats := &domain.StorageStats{
		ByType:   make(map[domain.DocumentType]int64),
		ByStatus: make(map[domain.DocumentStatus]int64),
	}

	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM documents WHERE status <> $1
`, string(domain.StatusDeleted)).Scan(&stats.TotalDocuments, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("stats totals: %w", err)
	}

	typeRows, err := r.db.QueryContext(ctx, `
SELECT document_type, COUNT(*) FROM documents WHERE status <> $1 GROUP BY document_type
`, string(domain.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("stats by type: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t string
		var n int64
		if err := typeRows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan type stat: %w", err)
		}
		stats.ByType[domain.DocumentType(t)] = n
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type stats: %w", err)
	}

	statusRows, err := r.db.QueryContext(ctx, `
SELECT status, COUNT(*) FROM documents GROUP BY status
`)
	if err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var s string
		var n int64
		if err := statusRows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status stat: %w", err)
		}
		stats.ByStatus[domain.DocumentStatus(s)] = n
	}
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status stats: %w", err)
	}

	mostDownloaded, err := r.topDocuments(ctx, "download_count DESC", 10)
	if err != nil {
		return nil, err
	}
	stats.MostDownloaded = mostDownloaded

	recent, err := r.topDocuments(ctx, "created_at DESC", 10)
	if err != nil {
		return nil, err
	}
	stats.RecentUploads = recent

	return stats, nil
}

func (r *DocumentRepository) topDocuments(ctx context.Context, order string, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE status <> $1
ORDER BY `+order+`
LIMIT $2
`, string(domain.StatusDeleted), limit)
	if err != nil {
		return nil, fmt.Errorf("query top documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// classifyMissedUpdate separates "row gone" from "row moved" after an
// optimistic update matched nothing.
func (r *DocumentRepository) classifyMissedUpdate(ctx context.Context, id, operation string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: classify miss: %w", operation, err)
	}
	if exists {
		return domain.WrapError(domain.ErrConflict, operation, fmt.Errorf("id=%s changed concurrently", id))
	}
	return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var lastAccessed sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.OriginalFilename, &doc.FilePath, &doc.FileSize, &doc.MimeType, &doc.FileExtension,
		&docType, &status, &doc.Description, &doc.Tags, &doc.Checksum, &doc.IsPublic, &doc.DownloadCount, &lastAccessed,
		&doc.CreatedAt, &doc.UpdatedAt,
		&doc.ProjectID, &doc.ResourceID, &doc.MaintenanceTicketID, &doc.LocationID, &doc.SensorSiteID, &doc.UploadedByUserID,
	)
	if err != nil {
		return nil, err
	}

	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.DocumentStatus(status)
	if lastAccessed.Valid {
		t := lastAccessed.Time
		doc.LastAccessedAt = &t
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

// isIntegrityViolation matches Postgres unique (23505) and foreign key
// (23503) violations, both of which surface as domain.ErrConstraint.
func isIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23503"
}
