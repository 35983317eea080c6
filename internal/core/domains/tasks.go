package domains

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/amengaji/Keel/internal/core"
)

func init() {
	registerTasks()
}

func registerTasks() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         "tasks",
			Label:       "Training Tasks",
			Description: "Training record book tasks keyed by title and ship type.",
			Policy:      core.PolicyStrict,
		},
		Columns: []core.ColumnSpec{
			{Name: "part_number", Type: core.FieldInt, Required: true},
			{Name: "section_name", Type: core.FieldText},
			{Name: "title", Type: core.FieldText, Required: true},
			{Name: "description", Type: core.FieldText},
			{Name: "stcw_reference", Type: core.FieldText},
			{Name: "mandatory_for_all", Type: core.FieldBool},
			{Name: "ship_type", Type: core.FieldText},
			{Name: "department", Type: core.FieldText},
			{Name: "trainee_type", Type: core.FieldEnum, EnumValues: TraineeTypeNames()},
			{Name: "instructions", Type: core.FieldText},
			{Name: "safety_requirements", Type: core.FieldText},
			{Name: "evidence_type", Type: core.FieldText},
			{Name: "verification_method", Type: core.FieldText},
			{Name: "frequency", Type: core.FieldText},
		},
		Normalize: func(row *core.ImportRow) {
			if n, ok := row.Normalized.Int("part_number"); ok && n < 1 {
				row.Fail(fmt.Sprintf("Invalid part_number: %d (must be 1 or greater)", n))
			}
		},
		Prepare:         prepareTasks,
		NaturalKey:      taskKey,
		Insert:          insertTask,
		TaxonomyColumns: []string{"ship_type"},
	})
}

// taskKey is the lower-cased title plus the resolved ship type id; generic
// tasks use 0.
func taskKey(row *core.ImportRow) string {
	title := strings.ToLower(row.Normalized.Text("title"))
	if title == "" {
		return ""
	}
	id, _ := row.Derived.ID("ship_type_id")
	return title + "|" + strconv.FormatInt(id, 10)
}

func prepareTasks(ctx context.Context, q core.Querier, rows []*core.ImportRow) (core.Resolver, error) {
	taxonomy, err := core.LoadTaxonomy(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	titles := distinct(rows, "title")
	for i, t := range titles {
		titles[i] = strings.ToLower(t)
	}
	keys, err := q.FindTaskKeys(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("find tasks by title: %w", err)
	}

	r := &taskResolver{taxonomy: taxonomy, existing: make(map[string]bool, len(keys))}
	for _, k := range keys {
		var id int64
		if k.ShipTypeID != nil {
			id = *k.ShipTypeID
		}
		r.existing[strings.ToLower(k.Title)+"|"+strconv.FormatInt(id, 10)] = true
	}
	return r, nil
}

type taskResolver struct {
	noNotes
	taxonomy core.Taxonomy
	existing map[string]bool
}

// Resolve maps ship_type onto the taxonomy. An unknown name fails the row
// rather than silently producing a generic task.
func (r *taskResolver) Resolve(row *core.ImportRow) {
	name := row.Normalized.Text("ship_type")
	if name == "" {
		row.Derived["ship_type_id"] = nil
		return
	}
	st, ok := r.taxonomy.Lookup(name)
	if !ok {
		row.Derived["ship_type_id"] = nil
		row.Fail(fmt.Sprintf("Unknown ship_type: %q", name))
		return
	}
	row.Derived["ship_type_id"] = st.ID
	row.Derived["ship_type"] = st.Name
}

func (r *taskResolver) Exists(row *core.ImportRow) (string, bool) {
	if !r.existing[taskKey(row)] {
		return "", false
	}
	if st := row.Derived.Text("ship_type"); st != "" {
		return fmt.Sprintf("Task %q already exists for ship type %s", row.Normalized.Text("title"), st), true
	}
	return fmt.Sprintf("Task %q already exists for all ship types", row.Normalized.Text("title")), true
}

func insertTask(ctx context.Context, b *core.Batch, row *core.ImportRow) (int64, error) {
	part, _ := row.Normalized.Int("part_number")
	mandatory, _ := row.Normalized.Bool("mandatory_for_all")
	n := row.Normalized
	return b.Tx.CreateTask(ctx, core.NewTask{
		PartNumber:         part,
		SectionName:        n.TextPtr("section_name"),
		Title:              n.Text("title"),
		Description:        n.TextPtr("description"),
		STCWReference:      n.TextPtr("stcw_reference"),
		MandatoryForAll:    mandatory,
		ShipTypeID:         idPtr(row.Derived, "ship_type_id"),
		Department:         n.TextPtr("department"),
		TraineeType:        n.TextPtr("trainee_type"),
		Instructions:       n.TextPtr("instructions"),
		SafetyRequirements: n.TextPtr("safety_requirements"),
		EvidenceType:       n.TextPtr("evidence_type"),
		VerificationMethod: n.TextPtr("verification_method"),
		Frequency:          n.TextPtr("frequency"),
	})
}
