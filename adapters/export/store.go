package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"oddsrules/domain/core"
	"oddsrules/domain/rules"
	"oddsrules/internal"
)

// Write encodes rs as indented rules.json
func Write(w io.Writer, rs *rules.RuleSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewDocument(rs)); err != nil {
		return fmt.Errorf("encode rule set: %w", err)
	}
	return nil
}

// Read decodes a rules.json document and rebuilds its rule set
func Read(r io.Reader) (*rules.RuleSet, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRuleSet, err)
	}
	return doc.RuleSet()
}

// FileStore keeps the published rule set in a single JSON file
type FileStore struct {
	path   string
	logger *internal.Logger
}

// NewFileStore creates a store backed by path
func NewFileStore(path string, logger *internal.Logger) *FileStore {
	if logger == nil {
		logger = internal.DefaultLogger.Named("export")
	}
	return &FileStore{path: path, logger: logger}
}

// Save writes to a temp file next to the target and renames it into place
func (s *FileStore) Save(ctx context.Context, rs *rules.RuleSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".rules-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, rs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("publish %s: %w", s.path, err)
	}

	m := rs.Manifest()
	s.logger.Info("Saved rule set %s (%d modes) to %s", m.RunID, len(rs.Modes()), s.path)
	return nil
}

// Load reads the saved rule set
func (s *FileStore) Load(ctx context.Context) (*rules.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrRuleSetNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	rs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	s.logger.Debug("Loaded rule set %s from %s", rs.Manifest().RunID, s.path)
	return rs, nil
}
