// Package authz implements the document access policy. Authentication
// happens upstream at the platform gateway; this layer only decides
// whether an already-identified caller may read a given document.
package authz

import (
	"context"

	"github.com/campusops/docvault/internal/core/domain"
)

type StaticAuthorizer struct{}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{}
}

// CanAccess allows public documents for everyone, including anonymous
// callers. Non-public documents require an identified caller.
func (a *StaticAuthorizer) CanAccess(_ context.Context, userID string, doc *domain.Document) bool {
	if doc == nil {
		return false
	}
	if doc.IsPublic {
		return true
	}
	return userID != ""
}
