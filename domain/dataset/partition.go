package dataset

import "sort"

// Partition is a read-only view of cases stratified by group, in first-seen
// group order. Cases inside a group keep their source order.
type Partition struct {
	order  []Group
	groups map[Group][]Case
}

// NewPartition groups cases by their categorical key
func NewPartition(cases []Case) *Partition {
	p := &Partition{groups: make(map[Group][]Case)}
	for _, c := range cases {
		if _, ok := p.groups[c.Group]; !ok {
			p.order = append(p.order, c.Group)
		}
		p.groups[c.Group] = append(p.groups[c.Group], c)
	}
	return p
}

// Groups returns groups in first-seen order
func (p *Partition) Groups() []Group {
	out := make([]Group, len(p.order))
	copy(out, p.order)
	return out
}

// BySize returns groups ordered by descending case count, then by key
func (p *Partition) BySize() []Group {
	out := p.Groups()
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := len(p.groups[out[i]]), len(p.groups[out[j]])
		if ni != nj {
			return ni > nj
		}
		return out[i].String() < out[j].String()
	})
	return out
}

// Cases returns the cases of g (nil when absent). Callers must not mutate the slice.
func (p *Partition) Cases(g Group) []Case {
	return p.groups[g]
}

// Len returns the number of groups
func (p *Partition) Len() int { return len(p.order) }
