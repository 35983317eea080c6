package domains

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amengaji/Keel/internal/core"
)

func init() {
	registerAssignments()
}

func registerAssignments() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         "assignments",
			Label:       "Vessel Assignments",
			Description: "Cadet sign-on periods, matched to existing cadets by email and vessels by IMO.",
			Policy:      core.PolicyStrict,
		},
		Columns: []core.ColumnSpec{
			{Name: "cadet_email", Type: core.FieldEmail, Required: true},
			{Name: "vessel_imo", Type: core.FieldText, Required: true},
			{Name: "date_joined", Type: core.FieldDate, Required: true},
			{Name: "date_left", Type: core.FieldDate},
			{Name: "rank", Type: core.FieldText},
		},
		Normalize:  normalizeAssignment,
		Prepare:    prepareAssignments,
		NaturalKey: assignmentKey,
		Insert:     insertAssignment,
	})
}

func normalizeAssignment(row *core.ImportRow) {
	checkIMO(row, "vessel_imo")

	joined, ok := row.Normalized.Date("date_joined")
	left := row.Normalized.DatePtr("date_left")
	if ok && left != nil && left.Before(joined) {
		row.Fail("date_left must not be before date_joined")
	}
}

func assignmentKey(row *core.ImportRow) string {
	cadet, ok1 := row.Derived.ID("cadet_id")
	vessel, ok2 := row.Derived.ID("vessel_id")
	joined, ok3 := row.Normalized.Date("date_joined")
	if !ok1 || !ok2 || !ok3 {
		return ""
	}
	return fmt.Sprintf("%d|%d|%s", cadet, vessel, joined.Format(time.DateOnly))
}

func prepareAssignments(ctx context.Context, q core.Querier, rows []*core.ImportRow) (core.Resolver, error) {
	users, err := q.FindUsersByEmail(ctx, distinct(rows, "cadet_email"))
	if err != nil {
		return nil, fmt.Errorf("find users by email: %w", err)
	}
	vessels, err := q.FindVesselsByIMO(ctx, distinct(rows, "vessel_imo"))
	if err != nil {
		return nil, fmt.Errorf("find vessels by imo: %w", err)
	}

	r := &assignmentResolver{
		users:    make(map[string]core.UserRef, len(users)),
		vessels:  make(map[string]core.VesselRef, len(vessels)),
		existing: make(map[int64][]core.Assignment),
		today:    today(),
	}
	cadetIDs := make([]int64, 0, len(users))
	for _, u := range users {
		r.users[strings.ToLower(u.Email)] = u
		if u.Role == core.RoleCadet {
			cadetIDs = append(cadetIDs, u.ID)
		}
	}
	for _, v := range vessels {
		r.vessels[v.IMO] = v
	}

	assignments, err := q.FindAssignmentsByCadet(ctx, cadetIDs)
	if err != nil {
		return nil, fmt.Errorf("find assignments by cadet: %w", err)
	}
	for _, a := range assignments {
		r.existing[a.CadetID] = append(r.existing[a.CadetID], a)
	}
	return r, nil
}

type assignmentResolver struct {
	noNotes
	users    map[string]core.UserRef
	vessels  map[string]core.VesselRef
	existing map[int64][]core.Assignment
	today    time.Time
}

// Resolve looks up the cadet and vessel, derives the assignment status and
// fails rows that overlap an active assignment of the same cadet. An exact
// match on cadet, vessel and date_joined is left for Exists.
func (r *assignmentResolver) Resolve(row *core.ImportRow) {
	email := row.Normalized.Text("cadet_email")
	imo := row.Normalized.Text("vessel_imo")

	cadet, ok := r.users[email]
	switch {
	case email == "":
	case !ok:
		row.Fail("Cadet not found for email: " + email)
	case cadet.Role != core.RoleCadet:
		row.Fail(fmt.Sprintf("User %s is not a cadet (role %s)", email, cadet.Role))
	default:
		row.Derived["cadet_id"] = cadet.ID
	}

	if imo != "" {
		if v, ok := r.vessels[imo]; ok {
			row.Derived["vessel_id"] = v.ID
			row.Derived["vessel_name"] = v.Name
		} else {
			row.Fail("Vessel not found for IMO: " + imo)
		}
	}

	joined, ok := row.Normalized.Date("date_joined")
	if !ok {
		return
	}
	left := row.Normalized.DatePtr("date_left")
	if left == nil || left.After(r.today) {
		row.Derived["status"] = core.AssignmentActive
	} else {
		row.Derived["status"] = core.AssignmentCompleted
	}

	cadetID, hasCadet := row.Derived.ID("cadet_id")
	vesselID, _ := row.Derived.ID("vessel_id")
	if !hasCadet {
		return
	}
	for _, a := range r.existing[cadetID] {
		if a.VesselID == vesselID && a.DateJoined.Equal(joined) {
			continue
		}
		if a.Status == core.AssignmentActive && overlaps(joined, left, a.DateJoined, a.DateLeft) {
			row.Fail("Dates overlap with existing assignment")
			return
		}
	}
}

func (r *assignmentResolver) Exists(row *core.ImportRow) (string, bool) {
	cadetID, _ := row.Derived.ID("cadet_id")
	vesselID, _ := row.Derived.ID("vessel_id")
	joined, _ := row.Normalized.Date("date_joined")
	for _, a := range r.existing[cadetID] {
		if a.VesselID == vesselID && a.DateJoined.Equal(joined) {
			return "Assignment already exists", true
		}
	}
	return "", false
}

// CheckBatch fails a row whose dates overlap an earlier eligible row of the
// same cadet in this file.
func (r *assignmentResolver) CheckBatch(rows []*core.ImportRow) {
	accepted := make(map[int64][]*core.ImportRow)
	for _, row := range rows {
		cadetID, ok := row.Derived.ID("cadet_id")
		if !ok {
			continue
		}
		joined, _ := row.Normalized.Date("date_joined")
		left := row.Normalized.DatePtr("date_left")

		clash := 0
		for _, prev := range accepted[cadetID] {
			pJoined, _ := prev.Normalized.Date("date_joined")
			if overlaps(joined, left, pJoined, prev.Normalized.DatePtr("date_left")) {
				clash = prev.RowNumber
				break
			}
		}
		if clash > 0 {
			row.Fail(fmt.Sprintf("Dates overlap with row %d in this file", clash))
			continue
		}
		accepted[cadetID] = append(accepted[cadetID], row)
	}
}

func insertAssignment(ctx context.Context, b *core.Batch, row *core.ImportRow) (int64, error) {
	cadetID, _ := row.Derived.ID("cadet_id")
	vesselID, _ := row.Derived.ID("vessel_id")
	joined, _ := row.Normalized.Date("date_joined")
	return b.Tx.CreateAssignment(ctx, core.NewAssignment{
		CadetID:    cadetID,
		VesselID:   vesselID,
		DateJoined: joined,
		DateLeft:   row.Normalized.DatePtr("date_left"),
		Rank:       row.Normalized.TextPtr("rank"),
		Status:     row.Derived.Text("status"),
	})
}
