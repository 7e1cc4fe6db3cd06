package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/internal"
)

// File is the on-disk catalog document:
//
//	[[predicate]]
//	name = "K<3"
//	feature = "K"
//	condition = "<3"
type File struct {
	Predicates []Entry `toml:"predicate"`
}

// Entry is one human-written predicate
type Entry struct {
	Name      string `toml:"name"`
	Feature   string `toml:"feature"`
	Condition string `toml:"condition"`
}

// Source loads the predicate catalog from a TOML file, or serves the built-in
// catalog when no path is configured
type Source struct {
	path   string
	schema dataset.Schema
	logger *internal.Logger
}

// NewSource creates a catalog source
func NewSource(path string, schema dataset.Schema, logger *internal.Logger) *Source {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Source{path: path, schema: schema, logger: logger.Named("Catalog")}
}

// LoadCatalog implements ports.CatalogSource. Entries with unparsable
// conditions or unknown features are skipped and returned; the rest keep
// their file order.
func (s *Source) LoadCatalog(ctx context.Context) (*predicate.Catalog, []error, error) {
	if s.path == "" {
		c := predicate.DefaultCatalog()
		s.logger.Info("using built-in catalog (%d predicates)", c.Len())
		return c, nil, nil
	}

	var doc File
	md, err := toml.DecodeFile(s.path, &doc)
	if err != nil {
		return nil, nil, core.NewMalformedSourceError(s.path, err.Error())
	}
	for _, key := range md.Undecoded() {
		s.logger.Warn("ignoring unknown key %s", key)
	}

	preds, skipped := s.parse(doc.Predicates)
	c, invalid := predicate.NewCatalog(preds)
	skipped = append(skipped, invalid...)
	for _, err := range skipped {
		s.logger.Warn("skipping predicate: %v", err)
	}
	if c.Len() == 0 {
		return nil, skipped, core.NewMalformedSourceError(s.path, "catalog has no usable predicates")
	}
	s.logger.Info("loaded %d predicates from %s (%d skipped)", c.Len(), s.path, len(skipped))
	return c, skipped, nil
}

func (s *Source) parse(entries []Entry) ([]predicate.Predicate, []error) {
	var preds []predicate.Predicate
	var skipped []error
	for _, e := range entries {
		if !s.schema.HasFeature(e.Feature) {
			skipped = append(skipped, core.NewUnknownFeatureError(e.Feature, e.Condition))
			continue
		}
		p, err := predicate.Parse(e.Name, e.Feature, e.Condition)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		preds = append(preds, p)
	}
	return preds, skipped
}

// Encode writes c as a catalog document that LoadCatalog reads back unchanged
func Encode(w io.Writer, c *predicate.Catalog) error {
	doc := File{Predicates: make([]Entry, 0, c.Len())}
	for _, p := range c.All() {
		doc.Predicates = append(doc.Predicates, Entry{Name: p.Label(), Feature: p.Feature, Condition: p.Condition()})
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return nil
}
