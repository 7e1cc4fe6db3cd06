package run

import (
	"errors"
	"time"

	"oddsrules/domain/core"
)

// Manifest describes one mining run. It travels with the exported rule set so
// a later import can be traced back to its inputs.
type Manifest struct {
	RunID       core.RunID  `json:"run_id"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Groups      []string    `json:"groups"`
	CaseCount   int         `json:"case_count"`
	CatalogSize int         `json:"catalog_size"`
	CreatedAt   time.Time   `json:"generated_at"`
}

// NewManifest stamps a run with a fresh ID and the current time
func NewManifest(fp Fingerprint, groups []string, caseCount int) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Fingerprint: fp,
		Groups:      append([]string(nil), groups...),
		CaseCount:   caseCount,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return errors.New("manifest: run_id cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return errors.New("manifest: fingerprint cannot be empty")
	}
	if m.CreatedAt.IsZero() {
		return errors.New("manifest: generated_at cannot be empty")
	}
	return nil
}
