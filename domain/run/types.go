package run

import (
	"fmt"
	"strings"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
)

// EngineVersion is folded into every fingerprint; bump it when mining semantics change
const EngineVersion = "1"

// Fingerprint ensures deterministic replay: identical inputs give identical
// fingerprints, and identical fingerprints give identical rule sets.
type Fingerprint struct {
	DatasetHash   core.Hash `json:"dataset_hash"`
	CatalogHash   core.Hash `json:"catalog_hash"`
	PolicyHash    core.Hash `json:"policy_hash"`
	MaxPredicates int       `json:"max_predicates"`
	CodeVersion   string    `json:"code_version"`
	Fingerprint   core.Hash `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(datasetHash, catalogHash, policyHash core.Hash, maxPredicates int, codeVersion string) Fingerprint {
	return Fingerprint{
		DatasetHash:   datasetHash,
		CatalogHash:   catalogHash,
		PolicyHash:    policyHash,
		MaxPredicates: maxPredicates,
		CodeVersion:   codeVersion,
		Fingerprint:   computeFingerprint(datasetHash, catalogHash, policyHash, maxPredicates, codeVersion),
	}
}

func computeFingerprint(datasetHash, catalogHash, policyHash core.Hash, maxPredicates int, codeVersion string) core.Hash {
	data := fmt.Sprintf("dataset:%s|catalog:%s|policy:%s|max:%d|code:%s",
		datasetHash, catalogHash, policyHash, maxPredicates, codeVersion)
	return core.NewHash([]byte(data))
}

// HashCases hashes deduplicated cases with their outcomes, independent of order
func HashCases(cases []dataset.Case) core.Hash {
	members := make([]string, len(cases))
	for i, c := range cases {
		members[i] = string(dataset.CanonicalKey(c)) + "\x1d" + string(c.Outcome)
	}
	return core.SetHash(members)
}

// HashCatalog hashes predicates in catalog order; order is part of the catalog
func HashCatalog(preds []predicate.Predicate) core.Hash {
	var b strings.Builder
	for _, p := range preds {
		b.WriteString(p.Label())
		b.WriteByte(0)
		b.WriteString(p.Feature)
		b.WriteString(p.Condition())
		b.WriteByte('\n')
	}
	return core.NewHash([]byte(b.String()))
}

// HashPolicies hashes ordered policy identities
func HashPolicies(names []string) core.Hash {
	return core.NewHash([]byte(strings.Join(names, "\n")))
}
