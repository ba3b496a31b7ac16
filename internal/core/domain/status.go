package domain

type DocumentStatus string

const (
	StatusUploading        DocumentStatus = "uploading"
	StatusProcessing       DocumentStatus = "processing"
	StatusAvailable        DocumentStatus = "available"
	StatusValidationFailed DocumentStatus = "validation_failed"
	StatusCorrupted        DocumentStatus = "corrupted"
	StatusQuarantined      DocumentStatus = "quarantined"
	StatusDeleted          DocumentStatus = "deleted"
)

// allowedTransitions is the lifecycle graph. Deletion and quarantine are
// reachable from every non-deleted status: deletion is terminal, quarantine
// is the only reversible edge (an operator clears it after review).
// validation_failed and corrupted otherwise stay dead ends: retrying means
// ingesting a new document, never reviving the row.
var allowedTransitions = map[DocumentStatus]map[DocumentStatus]struct{}{
	StatusUploading: {
		StatusProcessing: {}, StatusQuarantined: {}, StatusDeleted: {},
	},
	StatusProcessing: {
		StatusAvailable: {}, StatusValidationFailed: {}, StatusCorrupted: {}, StatusQuarantined: {}, StatusDeleted: {},
	},
	StatusAvailable: {
		StatusQuarantined: {}, StatusCorrupted: {}, StatusDeleted: {},
	},
	StatusQuarantined: {
		StatusAvailable: {}, StatusCorrupted: {}, StatusDeleted: {},
	},
	StatusValidationFailed: {
		StatusQuarantined: {}, StatusDeleted: {},
	},
	StatusCorrupted: {
		StatusQuarantined: {}, StatusDeleted: {},
	},
	StatusDeleted: {},
}

func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	targets, ok := allowedTransitions[s]
	if !ok {
		return false
	}
	_, ok = targets[next]
	return ok
}

func (s DocumentStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}
