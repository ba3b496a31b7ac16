package domain

import (
	"fmt"
	"time"
)

type DocumentType string

const (
	// Project-related documents.
	TypeProjectProposal     DocumentType = "project_proposal"
	TypeProjectReport       DocumentType = "project_report"
	TypeProjectPresentation DocumentType = "project_presentation"
	TypeProjectPhoto        DocumentType = "project_photo"

	// Resource-related documents.
	TypeManual        DocumentType = "manual"
	TypeWarranty      DocumentType = "warranty"
	TypeCertificate   DocumentType = "certificate"
	TypeInvoice       DocumentType = "invoice"
	TypeReceipt       DocumentType = "receipt"
	TypeSpecification DocumentType = "specification"
	TypeResourcePhoto DocumentType = "resource_photo"

	// Maintenance-related documents.
	TypeMaintenanceReport    DocumentType = "maintenance_report"
	TypeWorkOrder            DocumentType = "work_order"
	TypeTroubleshootingGuide DocumentType = "troubleshooting_guide"
	TypeMaintenancePhoto     DocumentType = "maintenance_photo"

	// Location-related documents.
	TypeFloorPlan         DocumentType = "floor_plan"
	TypeLocationPhoto     DocumentType = "location_photo"
	TypeSiteDocumentation DocumentType = "site_documentation"

	// Sensor-related documents.
	TypeCalibrationData     DocumentType = "calibration_data"
	TypeInstallationPhoto   DocumentType = "installation_photo"
	TypeSensorSpecification DocumentType = "sensor_specification"

	// General documents.
	TypeGeneralDocument DocumentType = "general_document"
	TypeSpreadsheet     DocumentType = "spreadsheet"
	TypePresentation    DocumentType = "presentation"
	TypeImage           DocumentType = "image"
	TypeArchive         DocumentType = "archive"
)

var documentTypes = map[DocumentType]struct{}{
	TypeProjectProposal: {}, TypeProjectReport: {}, TypeProjectPresentation: {}, TypeProjectPhoto: {},
	TypeManual: {}, TypeWarranty: {}, TypeCertificate: {}, TypeInvoice: {}, TypeReceipt: {},
	TypeSpecification: {}, TypeResourcePhoto: {},
	TypeMaintenanceReport: {}, TypeWorkOrder: {}, TypeTroubleshootingGuide: {}, TypeMaintenancePhoto: {},
	TypeFloorPlan: {}, TypeLocationPhoto: {}, TypeSiteDocumentation: {},
	TypeCalibrationData: {}, TypeInstallationPhoto: {}, TypeSensorSpecification: {},
	TypeGeneralDocument: {}, TypeSpreadsheet: {}, TypePresentation: {}, TypeImage: {}, TypeArchive: {},
}

func (t DocumentType) Valid() bool {
	_, ok := documentTypes[t]
	return ok
}

var photoTypes = map[DocumentType]struct{}{
	TypeProjectPhoto: {}, TypeResourcePhoto: {}, TypeMaintenancePhoto: {},
	TypeLocationPhoto: {}, TypeInstallationPhoto: {}, TypeImage: {},
}

func (t DocumentType) IsImage() bool {
	_, ok := photoTypes[t]
	return ok
}

// StorageCategory maps the document type to the top-level storage directory.
func (t DocumentType) StorageCategory() string {
	switch {
	case t.IsImage():
		return "images"
	case t == TypeArchive:
		return "archives"
	default:
		return "documents"
	}
}

// Associations holds the optional links from a document to platform entities.
// A document with no associations is a general upload.
type Associations struct {
	ProjectID           *int64 `json:"project_id,omitempty"`
	ResourceID          *int64 `json:"resource_id,omitempty"`
	MaintenanceTicketID *int64 `json:"maintenance_ticket_id,omitempty"`
	LocationID          *int64 `json:"location_id,omitempty"`
	SensorSiteID        *int64 `json:"sensor_site_id,omitempty"`
	UploadedByUserID    *int64 `json:"uploaded_by_user_id,omitempty"`
}

type Document struct {
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	OriginalFilename string         `json:"original_filename"`
	FilePath         string         `json:"file_path"`
	FileSize         int64          `json:"file_size"`
	MimeType         string         `json:"mime_type"`
	FileExtension    string         `json:"file_extension"`
	Type             DocumentType   `json:"document_type"`
	Status           DocumentStatus `json:"status"`
	Description      string         `json:"description,omitempty"`
	Tags             string         `json:"tags,omitempty"`
	Checksum         string         `json:"checksum,omitempty"`
	IsPublic         bool           `json:"is_public"`
	DownloadCount    int64          `json:"download_count"`
	LastAccessedAt   *time.Time     `json:"last_accessed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Associations
}

// HumanSize renders the file size for operator-facing output.
func (d *Document) HumanSize() string {
	size := float64(d.FileSize)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", size)
}
