package domain

// CleanupSummary reports one reconciliation pass between the metadata store
// and the file store.
type CleanupSummary struct {
	OrphansRemoved  int   `json:"orphans_removed"`
	BytesReclaimed  int64 `json:"bytes_reclaimed"`
	CorruptedMarked int   `json:"corrupted_marked"`
	KeysSkipped     int   `json:"keys_skipped"`
}

// StorageStats aggregates document metadata for operator reporting.
type StorageStats struct {
	TotalDocuments int64                    `json:"total_documents"`
	TotalSizeBytes int64                    `json:"total_size_bytes"`
	ByType         map[DocumentType]int64   `json:"documents_by_type"`
	ByStatus       map[DocumentStatus]int64 `json:"documents_by_status"`
	MostDownloaded []Document               `json:"most_downloaded"`
	RecentUploads  []Document               `json:"recent_uploads"`
}
