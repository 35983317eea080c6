package core

import (
	"context"
	"sort"
	"strings"
)

// Taxonomy is an immutable, case-insensitive name -> ship type lookup built
// once per call and passed explicitly through the pipeline.
type Taxonomy struct {
	byKey map[string]ShipType
	names []string
}

// NewTaxonomy builds a snapshot from the given rows.
func NewTaxonomy(types []ShipType) Taxonomy {
	t := Taxonomy{byKey: make(map[string]ShipType, len(types))}
	for _, st := range types {
		t.byKey[taxonomyKey(st.Name)] = st
		t.names = append(t.names, st.Name)
	}
	sort.Strings(t.names)
	return t
}

// LoadTaxonomy fetches a fresh snapshot from q.
func LoadTaxonomy(ctx context.Context, q Querier) (Taxonomy, error) {
	types, err := q.ListShipTypes(ctx)
	if err != nil {
		return Taxonomy{}, err
	}
	return NewTaxonomy(types), nil
}

// Lookup resolves name ignoring case and surrounding whitespace.
func (t Taxonomy) Lookup(name string) (ShipType, bool) {
	st, ok := t.byKey[taxonomyKey(name)]
	return st, ok
}

// Names returns the ship-type names in sorted order.
func (t Taxonomy) Names() []string {
	return append([]string(nil), t.names...)
}

// Len returns the number of entries.
func (t Taxonomy) Len() int { return len(t.byKey) }

func taxonomyKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
