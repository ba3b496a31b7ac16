package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/campusops/docvault/internal/core/domain"
)

// Inspector applies the upload policy to an incoming byte stream. Checks run
// in a fixed order and short-circuit on the first failure; the signature scan
// never rejects, it only downgrades the verdict to quarantine.
type Inspector struct {
	policy Policy
}

func New(policy Policy) *Inspector {
	return &Inspector{policy: policy}
}

func (i *Inspector) Inspect(_ context.Context, filename, claimedMIME string, content []byte) (domain.InspectionReport, error) {
	if len(content) == 0 {
		return domain.InspectionReport{}, domain.WrapError(domain.ErrInvalidInput, "inspect upload", errors.New("empty file"))
	}
	if int64(len(content)) > i.policy.MaxSizeBytes {
		return domain.InspectionReport{}, domain.WrapError(
			domain.ErrFileTooLarge,
			"inspect upload",
			fmt.Errorf("%d bytes exceeds limit of %d", len(content), i.policy.MaxSizeBytes),
		)
	}

	ext := extractExtension(filename)
	if !i.policy.extensionAllowed(ext) {
		return domain.InspectionReport{}, domain.WrapError(
			domain.ErrUnsupportedFileType,
			"inspect upload",
			fmt.Errorf("extension %q is not allowed", ext),
		)
	}

	detected := detectMIME(content)
	if !i.policy.mimeAllowed(ext, detected) {
		return domain.InspectionReport{}, domain.WrapError(
			domain.ErrMimeMismatch,
			"inspect upload",
			fmt.Errorf("claimed %q, detected %q for extension %q", claimedMIME, detected, ext),
		)
	}

	if detected == "application/pdf" {
		if err := probePDF(content); err != nil {
			return domain.InspectionReport{}, domain.WrapError(
				domain.ErrMimeMismatch,
				"inspect upload",
				fmt.Errorf("pdf structure check: %w", err),
			)
		}
	}

	report := domain.InspectionReport{
		SanitizedName: SanitizeFilename(filename),
		Extension:     ext,
		DetectedMIME:  detected,
		Verdict:       domain.VerdictAccepted,
	}

	if name, matched := i.scanPrefix(content); matched {
		report.Verdict = domain.VerdictQuarantine
		report.QuarantineReason = "signature match: " + name
	}
	return report, nil
}

func extractExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func detectMIME(content []byte) string {
	mime := http.DetectContentType(content)
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.TrimSpace(mime)
}

// SanitizeFilename reduces an uploaded name to a safe display form: no path
// components, no control or reserved characters, bounded length. It never
// fails; an unusable name degrades to "document".
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.ReplaceAll(base, "..", "_")

	var b strings.Builder
	for _, r := range base {
		switch {
		case r < 0x20 || r == 0x7f:
			// drop control characters entirely
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()

	if len(out) > 200 {
		ext := filepath.Ext(out)
		out = out[:200-len(ext)] + ext
	}
	if out == "" || out == "." || out == "_" {
		return "document"
	}
	return out
}

func (i *Inspector) scanPrefix(content []byte) (string, bool) {
	prefix := content
	if len(prefix) > i.policy.ScanPrefixBytes {
		prefix = prefix[:i.policy.ScanPrefixBytes]
	}
	lowered := bytes.ToLower(prefix)

	for _, sig := range i.policy.DenySignatures {
		pattern := []byte(strings.ToLower(sig.Pattern))
		if sig.AtStart {
			if bytes.HasPrefix(lowered, pattern) {
				return sig.Name, true
			}
			continue
		}
		if bytes.Contains(lowered, pattern) {
			return sig.Name, true
		}
	}
	return "", false
}

// probePDF verifies the cross-reference structure so corrupt uploads are
// caught before they are stored.
func probePDF(content []byte) error {
	_, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	return err
}
