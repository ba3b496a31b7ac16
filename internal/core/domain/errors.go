package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrMimeMismatch        = errors.New("mime type mismatch")
	ErrStorageWrite        = errors.New("storage write failed")
	ErrStorageRead         = errors.New("storage read failed")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("concurrent modification")
	ErrConstraint          = errors.New("constraint violation")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsValidation reports whether the error is one of the upload validation kinds.
func IsValidation(err error) bool {
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedFileType) ||
		errors.Is(err, ErrMimeMismatch)
}
