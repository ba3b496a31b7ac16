package httpadapter

import (
	"net/http"

	"github.com/campusops/docvault/internal/core/domain"
)

// httpError is what a failed pipeline call looks like to the client: a
// status code and a canned message. The wrapped cause stays in the server
// log; file-store failures in particular carry on-disk paths that must
// never reach a response body.
type httpError struct {
	status  int
	message string
}

var errorResponses = []struct {
	kind error
	httpError
}{
	{domain.ErrFileTooLarge, httpError{http.StatusRequestEntityTooLarge, "file exceeds the maximum allowed size"}},
	{domain.ErrUnsupportedFileType, httpError{http.StatusUnsupportedMediaType, "file type is not allowed"}},
	{domain.ErrMimeMismatch, httpError{http.StatusUnprocessableEntity, "file content does not match its declared type"}},
	{domain.ErrConstraint, httpError{http.StatusUnprocessableEntity, "a referenced entity does not exist"}},
	{domain.ErrDocumentNotFound, httpError{http.StatusNotFound, "document not found"}},
	{domain.ErrAccessDenied, httpError{http.StatusForbidden, "access denied"}},
	{domain.ErrInvalidTransition, httpError{http.StatusConflict, "operation is not allowed in the document's current status"}},
	{domain.ErrConflict, httpError{http.StatusConflict, "document was modified concurrently, retry with fresh data"}},
	{domain.ErrInvalidInput, httpError{http.StatusBadRequest, "invalid request"}},
	{domain.ErrStorageRead, httpError{http.StatusBadGateway, "file storage is unavailable"}},
	{domain.ErrStorageWrite, httpError{http.StatusServiceUnavailable, "file storage is unavailable"}},
	{domain.ErrTemporary, httpError{http.StatusServiceUnavailable, "service temporarily unavailable"}},
}

// classifyError resolves an error kind to its client-facing shape. Order
// matters: the validation kinds are checked before the broad ones.
func classifyError(err error) httpError {
	for _, entry := range errorResponses {
		if domain.IsKind(err, entry.kind) {
			return entry.httpError
		}
	}
	return httpError{http.StatusInternalServerError, "internal error"}
}
