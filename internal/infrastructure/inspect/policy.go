package inspect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is the upload acceptance rule set. It can be overridden from a YAML
// file so operators adjust limits without a rebuild.
type Policy struct {
	MaxSizeBytes      int64               `yaml:"max_size_bytes"`
	AllowedExtensions []string            `yaml:"allowed_extensions"`
	MIMEByExtension   map[string][]string `yaml:"mime_by_extension"`
	DenySignatures    []DenySignature     `yaml:"deny_signatures"`
	ScanPrefixBytes   int                 `yaml:"scan_prefix_bytes"`
}

// DenySignature is one denylist entry matched against the scanned prefix.
type DenySignature struct {
	Name string `yaml:"name"`
	// Pattern is matched case-insensitively anywhere in the prefix unless
	// AtStart is set, in which case it must be the very first bytes.
	Pattern string `yaml:"pattern"`
	AtStart bool   `yaml:"at_start"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSizeBytes: 50 << 20,
		AllowedExtensions: []string{
			"pdf", "doc", "docx", "txt", "csv",
			"jpg", "jpeg", "png", "gif", "bmp", "tiff",
			"xls", "xlsx", "ppt", "pptx",
			"zip", "rar", "7z",
		},
		MIMEByExtension: map[string][]string{
			"pdf":  {"application/pdf"},
			"doc":  {"application/msword"},
			"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
			"txt":  {"text/plain"},
			"csv":  {"text/csv", "text/plain"},
			"jpg":  {"image/jpeg"},
			"jpeg": {"image/jpeg"},
			"png":  {"image/png"},
			"gif":  {"image/gif"},
			"bmp":  {"image/bmp"},
			"tiff": {"image/tiff"},
			"xls":  {"application/vnd.ms-excel"},
			"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
			"ppt":  {"application/vnd.ms-powerpoint"},
			"pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "application/zip"},
			"zip":  {"application/zip"},
			"rar":  {"application/vnd.rar", "application/x-rar-compressed"},
			"7z":   {"application/x-7z-compressed"},
		},
		DenySignatures: []DenySignature{
			{Name: "windows_executable", Pattern: "MZ", AtStart: true},
			{Name: "elf_executable", Pattern: "\x7fELF", AtStart: true},
			{Name: "shell_script", Pattern: "#!", AtStart: true},
			{Name: "html_script_tag", Pattern: "<script"},
			{Name: "javascript_uri", Pattern: "javascript:"},
			{Name: "vbscript_uri", Pattern: "vbscript:"},
			{Name: "html_iframe", Pattern: "<iframe"},
			{Name: "html_object", Pattern: "<object"},
			{Name: "html_embed", Pattern: "<embed"},
			{Name: "eval_call", Pattern: "eval("},
		},
		ScanPrefixBytes: 4096,
	}
}

// LoadPolicy reads a YAML policy file and merges it over the defaults.
// Missing fields keep their default values.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	var override Policy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}

	if override.MaxSizeBytes > 0 {
		policy.MaxSizeBytes = override.MaxSizeBytes
	}
	if len(override.AllowedExtensions) > 0 {
		policy.AllowedExtensions = override.AllowedExtensions
	}
	if len(override.MIMEByExtension) > 0 {
		for ext, types := range override.MIMEByExtension {
			policy.MIMEByExtension[strings.ToLower(ext)] = types
		}
	}
	if len(override.DenySignatures) > 0 {
		policy.DenySignatures = override.DenySignatures
	}
	if override.ScanPrefixBytes > 0 {
		policy.ScanPrefixBytes = override.ScanPrefixBytes
	}
	return policy, nil
}

func (p Policy) extensionAllowed(ext string) bool {
	for _, allowed := range p.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func (p Policy) mimeAllowed(ext, detected string) bool {
	expected, ok := p.MIMEByExtension[ext]
	if !ok {
		// Extension passed the allow list but has no MIME mapping; accept
		// whatever the sniffer saw.
		return true
	}
	for _, mime := range expected {
		if strings.EqualFold(mime, detected) {
			return true
		}
	}
	return false
}
