package domains

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/amengaji/Keel/internal/core"
)

func init() {
	registerVessels()
}

func registerVessels() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         "vessels",
			Label:       "Vessels",
			Description: "Fleet vessels keyed by IMO number. Unseen vessel types are created on commit.",
			Policy:      core.PolicyLenient,
		},
		Columns: []core.ColumnSpec{
			{Name: "imo_number", Type: core.FieldText, Required: true},
			{Name: "vessel_name", Type: core.FieldText, Required: true},
			{Name: "vessel_type", Type: core.FieldText, Required: true},
			{Name: "flag_state", Type: core.FieldText},
			{Name: "class_society", Type: core.FieldText},
		},
		Normalize:       func(row *core.ImportRow) { checkIMO(row, "imo_number") },
		Prepare:         prepareVessels,
		NaturalKey:      func(row *core.ImportRow) string { return row.Normalized.Text("imo_number") },
		ResolveDeps:     resolveVesselType,
		Insert:          insertVessel,
		TaxonomyColumns: []string{"vessel_type"},
		CreatesTaxonomy: true,
	})
}

func prepareVessels(ctx context.Context, q core.Querier, rows []*core.ImportRow) (core.Resolver, error) {
	taxonomy, err := core.LoadTaxonomy(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	vessels, err := q.FindVesselsByIMO(ctx, distinct(rows, "imo_number"))
	if err != nil {
		return nil, fmt.Errorf("find vessels by imo: %w", err)
	}

	r := &vesselResolver{
		taxonomy: taxonomy,
		existing: make(map[string]core.VesselRef, len(vessels)),
	}
	for _, v := range vessels {
		r.existing[v.IMO] = v
	}

	seen := map[string]bool{}
	for _, name := range distinct(rows, "vessel_type") {
		clean := strings.Join(strings.Fields(name), " ")
		if _, ok := taxonomy.Lookup(clean); ok || seen[strings.ToLower(clean)] {
			continue
		}
		seen[strings.ToLower(clean)] = true
		r.newTypes = append(r.newTypes, clean)
	}
	sort.Strings(r.newTypes)
	return r, nil
}

type vesselResolver struct {
	taxonomy core.Taxonomy
	existing map[string]core.VesselRef
	newTypes []string
}

// Resolve maps vessel_type onto a known ship type. Unknown names stay
// unresolved until the commit creates them.
func (r *vesselResolver) Resolve(row *core.ImportRow) {
	name := row.Normalized.Text("vessel_type")
	if name == "" {
		return
	}
	if st, ok := r.taxonomy.Lookup(name); ok {
		row.Derived["ship_type_id"] = st.ID
		row.Derived["ship_type"] = st.Name
		return
	}
	row.Derived["ship_type_id"] = nil
	row.Derived["ship_type"] = strings.Join(strings.Fields(name), " ")
}

func (r *vesselResolver) Exists(row *core.ImportRow) (string, bool) {
	imo := row.Normalized.Text("imo_number")
	v, ok := r.existing[imo]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Vessel with IMO %s already exists (%s)", imo, v.Name), true
}

func (r *vesselResolver) Notes() []string {
	if len(r.newTypes) == 0 {
		return nil
	}
	return []string{"new vessel types will be created on commit: " + strings.Join(r.newTypes, ", ")}
}

func resolveVesselType(ctx context.Context, b *core.Batch, row *core.ImportRow) error {
	id, err := b.ShipTypeID(ctx, row.Derived.Text("ship_type"))
	if err != nil {
		return fmt.Errorf("ensure ship type %q: %w", row.Derived.Text("ship_type"), err)
	}
	row.Derived["ship_type_id"] = id
	return nil
}

func insertVessel(ctx context.Context, b *core.Batch, row *core.ImportRow) (int64, error) {
	shipTypeID, ok := row.Derived.ID("ship_type_id")
	if !ok {
		return 0, fmt.Errorf("row %d: ship type not resolved", row.RowNumber)
	}
	return b.Tx.CreateVessel(ctx, core.NewVessel{
		IMO:          row.Normalized.Text("imo_number"),
		Name:         row.Normalized.Text("vessel_name"),
		ShipTypeID:   shipTypeID,
		FlagState:    row.Normalized.TextPtr("flag_state"),
		ClassSociety: row.Normalized.TextPtr("class_society"),
	})
}
