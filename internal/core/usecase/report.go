package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

// ReportUseCase aggregates storage statistics and renders the operator
// XLSX export.
type ReportUseCase struct {
	repo ports.MetadataStore
}

func NewReportUseCase(repo ports.MetadataStore) *ReportUseCase {
	return &ReportUseCase{repo: repo}
}

func (uc *ReportUseCase) Stats(ctx context.Context) (*domain.StorageStats, error) {
	return uc.repo.Stats(ctx)
}

func (uc *ReportUseCase) ExportStats(ctx context.Context) ([]byte, error) {
	stats, err := uc.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	const overview = "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return nil, fmt.Errorf("rename overview sheet: %w", err)
	}
	setCells(f, overview, [][]any{
		{"Metric", "Value"},
		{"Total documents", stats.TotalDocuments},
		{"Total size (bytes)", stats.TotalSizeBytes},
	})

	if err := writeCountSheet(f, "By Type", "Document type", typeRows(stats.ByType)); err != nil {
		return nil, err
	}
	if err := writeCountSheet(f, "By Status", "Status", statusRows(stats.ByStatus)); err != nil {
		return nil, err
	}
	if err := writeDocumentSheet(f, "Top Downloads", stats.MostDownloaded); err != nil {
		return nil, err
	}
	if err := writeDocumentSheet(f, "Recent Uploads", stats.RecentUploads); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render stats workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type countRow struct {
	label string
	count int64
}

func typeRows(byType map[domain.DocumentType]int64) []countRow {
	rows := make([]countRow, 0, len(byType))
	for t, n := range byType {
		rows = append(rows, countRow{label: string(t), count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].label < rows[j].label })
	return rows
}

func statusRows(byStatus map[domain.DocumentStatus]int64) []countRow {
	rows := make([]countRow, 0, len(byStatus))
	for s, n := range byStatus {
		rows = append(rows, countRow{label: string(s), count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].label < rows[j].label })
	return rows
}

func writeCountSheet(f *excelize.File, sheet, header string, rows []countRow) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	cells := [][]any{{header, "Count"}}
	for _, row := range rows {
		cells = append(cells, []any{row.label, row.count})
	}
	setCells(f, sheet, cells)
	return nil
}

func writeDocumentSheet(f *excelize.File, sheet string, docs []domain.Document) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	cells := [][]any{{"ID", "Filename", "Type", "Status", "Size", "Downloads", "Created"}}
	for _, doc := range docs {
		cells = append(cells, []any{
			doc.ID, doc.Filename, string(doc.Type), string(doc.Status),
			doc.FileSize, doc.DownloadCount, doc.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	setCells(f, sheet, cells)
	return nil
}

func setCells(f *excelize.File, sheet string, rows [][]any) {
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				continue
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
}
