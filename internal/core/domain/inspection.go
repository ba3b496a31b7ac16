package domain

type Verdict string

const (
	VerdictAccepted   Verdict = "accepted"
	VerdictQuarantine Verdict = "accepted_but_quarantine"
)

// InspectionReport is the validator's output for an accepted byte stream.
// Rejections are returned as errors, not reports.
type InspectionReport struct {
	SanitizedName string
	Extension     string
	DetectedMIME  string
	Verdict       Verdict
	// QuarantineReason names the matched signature when Verdict is
	// VerdictQuarantine.
	QuarantineReason string
}
