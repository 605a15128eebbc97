package models

import "sort"

// WarrantyPolicy is the resolved warranty for a product. The JSON shape matches the
// products file kept by earlier deployments.
type WarrantyPolicy struct {
	Title    string   `json:"title"`
	Duration Duration `json:"warranty_duration"`
}

// PolicySet maps product identifiers to their policy.
type PolicySet map[string]WarrantyPolicy

// ExclusionSet holds product identifiers barred from automatic registration.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from ids.
func NewExclusionSet(ids ...string) ExclusionSet {
	set := make(ExclusionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is excluded.
func (s ExclusionSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the excluded ids in sorted order.
func (s ExclusionSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
