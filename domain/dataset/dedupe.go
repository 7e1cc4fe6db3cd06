package dataset

import (
	"sort"
	"strconv"
	"strings"

	"oddsrules/domain/core"
)

// Key is the canonical identity of a case: group plus every feature value.
// Outcome and auxiliary fields are excluded.
type Key string

// CanonicalKey builds the dedup identity of c
func CanonicalKey(c Case) Key {
	var b strings.Builder
	b.WriteString(c.Group[0])
	b.WriteByte(0x1f)
	b.WriteString(c.Group[1])
	b.WriteByte(0x1f)
	b.WriteString(c.Group[2])
	for _, name := range c.FeatureNames() {
		b.WriteByte(0x1e)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(c.Features[name], 'g', -1, 64))
	}
	return Key(b.String())
}

// Dedupe keeps the first case per canonical key, preserving relative order
func Dedupe(cases []Case) []Case {
	seen := make(map[Key]struct{}, len(cases))
	out := make([]Case, 0, len(cases))
	for _, c := range cases {
		k := CanonicalKey(c)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// OutcomeSet is the frozen set of case keys matched by a rule. Two sets are
// equal exactly when their IDs are equal.
type OutcomeSet struct {
	id   core.Hash
	keys []Key
	n    int
}

// NewOutcomeSet freezes the canonical keys of cases
func NewOutcomeSet(cases []Case) OutcomeSet {
	uniq := make(map[Key]struct{}, len(cases))
	for _, c := range cases {
		uniq[CanonicalKey(c)] = struct{}{}
	}
	keys := make([]Key, 0, len(uniq))
	members := make([]string, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
		members = append(members, string(k))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return OutcomeSet{id: core.SetHash(members), keys: keys, n: len(keys)}
}

// RestoreOutcomeSet rebuilds a set from its exported identity and size.
// Restored sets compare and count like the original but have no members.
func RestoreOutcomeSet(id core.Hash, size int) OutcomeSet {
	return OutcomeSet{id: id, n: size}
}

// ID is the equality key of the set
func (s OutcomeSet) ID() core.Hash { return s.id }

// Len returns the number of distinct cases
func (s OutcomeSet) Len() int { return s.n }

// Keys returns a copy of the sorted members
func (s OutcomeSet) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Contains reports membership
func (s OutcomeSet) Contains(k Key) bool {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= k })
	return i < len(s.keys) && s.keys[i] == k
}

// Equal compares two sets by identity
func (s OutcomeSet) Equal(other OutcomeSet) bool {
	return s.id == other.id
}
