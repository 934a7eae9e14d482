// Package baseline suppresses findings an operator has already accepted.
// Fingerprints are stable across runs so a known-bloated workspace does not
// page on every investigation.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/flowmedic/internal/models"
)

const (
	// DefaultPath is used when --update-baseline is enabled without an
	// explicit --baseline path.
	DefaultPath = ".flowmedic-baseline.json"
	fileVersion = 1
)

// Set stores baseline fingerprints.
type Set map[string]struct{}

// File is the persisted baseline JSON payload.
type File struct {
	Version      int      `json:"version"`
	Fingerprints []string `json:"fingerprints"`
}

// Load reads a baseline file. Missing files return an empty set.
func Load(path string) (Set, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("baseline path is empty")
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read baseline file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse baseline file: %w", err)
	}
	if file.Version != 0 && file.Version != fileVersion {
		return nil, fmt.Errorf("unsupported baseline version: %d", file.Version)
	}

	set := Set{}
	for _, fingerprint := range file.Fingerprints {
		if fingerprint == "" {
			continue
		}
		set[fingerprint] = struct{}{}
	}

	return set, nil
}

// Save writes a baseline file with sorted, unique fingerprints.
func Save(path string, set Set) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("baseline path is empty")
	}

	dir := filepath.Dir(trimmed)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create baseline directory: %w", err)
		}
	}

	payload := File{
		Version:      fileVersion,
		Fingerprints: Sorted(set),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline file: %w", err)
	}

	if err := os.WriteFile(trimmed, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write baseline file: %w", err)
	}

	return nil
}

// AddAll inserts fingerprints into the target set.
func AddAll(target Set, fingerprints []string) {
	for _, fingerprint := range fingerprints {
		if fingerprint == "" {
			continue
		}
		target[fingerprint] = struct{}{}
	}
}

// Sorted returns sorted fingerprints from a set.
func Sorted(set Set) []string {
	fingerprints := make([]string, 0, len(set))
	for fingerprint := range set {
		fingerprints = append(fingerprints, fingerprint)
	}
	sort.Strings(fingerprints)
	return fingerprints
}

// Fingerprint returns a stable fingerprint for a finding in a workspace.
// Metric values stay out of the hash: the same category at the same severity
// is the same known condition even as the numbers drift.
func Fingerprint(workspace string, finding models.Finding) string {
	return hash("finding", workspace, string(finding.Category), finding.Severity.String())
}

// CollectFingerprints extracts fingerprints for all findings in the result.
func CollectFingerprints(result *models.InvestigationResult) []string {
	set := Set{}
	if result == nil {
		return []string{}
	}

	for _, finding := range result.Findings {
		set[Fingerprint(result.Target.Workspace, finding)] = struct{}{}
	}

	return Sorted(set)
}

// SuppressKnown removes findings already present in the baseline set.
func SuppressKnown(result *models.InvestigationResult, known Set) (suppressed int, remaining int) {
	if result == nil {
		return 0, 0
	}
	if len(known) == 0 {
		return 0, len(result.Findings)
	}

	filtered := make([]models.Finding, 0, len(result.Findings))
	for _, finding := range result.Findings {
		fingerprint := Fingerprint(result.Target.Workspace, finding)
		if _, exists := known[fingerprint]; exists {
			suppressed++
			continue
		}
		filtered = append(filtered, finding)
	}
	result.Findings = filtered

	return suppressed, len(result.Findings)
}

func hash(parts ...string) string {
	canonical := strings.Join(parts, "\x1f")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
