package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rt.recordUpload("rejected", 0)
			writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	req := ports.UploadRequest{
		Filename:    header.Filename,
		ClaimedMIME: header.Header.Get("Content-Type"),
		Body:        file,
		Type:        domain.DocumentType(r.FormValue("document_type")),
		Description: r.FormValue("description"),
		Tags:        r.FormValue("tags"),
		IsPublic:    r.FormValue("is_public") == "true",
	}
	for field, target := range map[string]**int64{
		"project_id":            &req.ProjectID,
		"resource_id":           &req.ResourceID,
		"maintenance_ticket_id": &req.MaintenanceTicketID,
		"location_id":           &req.LocationID,
		"sensor_site_id":        &req.SensorSiteID,
	} {
		value, err := optionalInt64(r.FormValue(field))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", field))
			return
		}
		*target = value
	}
	if uploader, err := optionalInt64(callerID(r)); err == nil {
		req.UploadedByUserID = uploader
	}

	doc, err := rt.ingestor.Upload(r.Context(), req)
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeDomainError(w, err)
		return
	}

	if doc.Status == domain.StatusQuarantined {
		rt.recordUpload("quarantined", doc.FileSize)
		rt.recordQuarantine("validator")
	} else {
		rt.recordUpload("accepted", doc.FileSize)
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, total, err := rt.reader.Search(r.Context(), filter, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
		"limit":     page.Limit,
		"offset":    page.Offset,
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.reader.Get(r.Context(), id, callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request, id string) {
	reader, doc, err := rt.reader.Download(r.Context(), id, callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("download stream interrupted", "document_id", id, "error", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDownload(rt.cfg.ServiceName)
	}
}

// optionalID distinguishes an absent key from an explicit null in a patch
// body: null clears the association, a number rewires it.
type optionalID struct {
	set   bool
	value *int64
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.value = &n
	return nil
}

func (o optionalID) patch() ports.IDPatch {
	return ports.IDPatch{Set: o.set, Value: o.value}
}

type metadataPatchRequest struct {
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
	IsPublic    *bool   `json:"is_public"`

	ProjectID           optionalID `json:"project_id"`
	ResourceID          optionalID `json:"resource_id"`
	MaintenanceTicketID optionalID `json:"maintenance_ticket_id"`
	LocationID          optionalID `json:"location_id"`
	SensorSiteID        optionalID `json:"sensor_site_id"`
	UploadedByUserID    optionalID `json:"uploaded_by_user_id"`

	FilePath *string `json:"file_path"`
	FileSize *int64  `json:"file_size"`
	Checksum *string `json:"checksum"`
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request, id string) {
	var body metadataPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	doc, err := rt.editor.UpdateMetadata(r.Context(), id, ports.MetadataPatch{
		Description:         body.Description,
		Tags:                body.Tags,
		IsPublic:            body.IsPublic,
		ProjectID:           body.ProjectID.patch(),
		ResourceID:          body.ResourceID.patch(),
		MaintenanceTicketID: body.MaintenanceTicketID.patch(),
		LocationID:          body.LocationID.patch(),
		SensorSiteID:        body.SensorSiteID.patch(),
		UploadedByUserID:    body.UploadedByUserID.patch(),
		FilePath:            body.FilePath,
		FileSize:            body.FileSize,
		Checksum:            body.Checksum,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := rt.editor.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) quarantineDocument(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := rt.editor.Quarantine(r.Context(), id, body.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	rt.recordQuarantine("manual")
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusQuarantined)})
}

func (rt *Router) releaseDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := rt.editor.Release(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusAvailable)})
}

func (rt *Router) quarantineLog(w http.ResponseWriter, r *http.Request, id string) {
	events, err := rt.reader.QuarantineLog(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []domain.QuarantineEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (rt *Router) recordUpload(outcome string, size int64) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.cfg.ServiceName, outcome, size)
	}
}

func (rt *Router) recordQuarantine(origin string) {
	if rt.metrics != nil {
		rt.metrics.RecordQuarantine(rt.cfg.ServiceName, origin)
	}
}

func parseSearchQuery(r *http.Request) (ports.SearchFilter, ports.Page, error) {
	q := r.URL.Query()

	filter := ports.SearchFilter{
		Text:          q.Get("q"),
		Type:          domain.DocumentType(q.Get("type")),
		Status:        domain.DocumentStatus(q.Get("status")),
		MimeType:      q.Get("mime_type"),
		FileExtension: q.Get("extension"),
	}

	if raw := q.Get("is_public"); raw != "" {
		value := raw == "true"
		filter.IsPublic = &value
	}
	if raw := q.Get("created_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, ports.Page{}, fmt.Errorf("invalid created_after, want RFC3339")
		}
		filter.CreatedAfter = &t
	}
	if raw := q.Get("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, ports.Page{}, fmt.Errorf("invalid created_before, want RFC3339")
		}
		filter.CreatedBefore = &t
	}
	if raw := q.Get("min_size"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return filter, ports.Page{}, fmt.Errorf("invalid min_size")
		}
		filter.MinFileSize = n
	}
	if raw := q.Get("max_size"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return filter, ports.Page{}, fmt.Errorf("invalid max_size")
		}
		filter.MaxFileSize = n
	}
	for field, target := range map[string]**int64{
		"project_id":            &filter.ProjectID,
		"resource_id":           &filter.ResourceID,
		"maintenance_ticket_id": &filter.MaintenanceTicketID,
		"location_id":           &filter.LocationID,
		"sensor_site_id":        &filter.SensorSiteID,
		"uploaded_by":           &filter.UploadedByUserID,
	} {
		value, err := optionalInt64(q.Get(field))
		if err != nil {
			return filter, ports.Page{}, fmt.Errorf("invalid %s", field)
		}
		*target = value
	}

	page := ports.Page{
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("sort_desc") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, page, fmt.Errorf("invalid limit")
		}
		page.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, page, fmt.Errorf("invalid offset")
		}
		page.Offset = n
	}

	return filter, page, nil
}

func optionalInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
