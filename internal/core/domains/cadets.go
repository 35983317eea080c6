package domains

import (
	"context"
	"fmt"
	"strings"

	"github.com/amengaji/Keel/internal/core"
)

func init() {
	registerCadets()
}

func registerCadets() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         "cadets",
			Label:       "Cadets",
			Description: "Cadet user accounts and trainee profiles, keyed by email.",
			Policy:      core.PolicyStrict,
		},
		Columns: []core.ColumnSpec{
			{Name: "full_name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldEmail, Required: true},
			{Name: "trainee_type", Type: core.FieldEnum, Required: true, EnumValues: TraineeTypeNames()},
			{Name: "nationality", Type: core.FieldText},
			{Name: "notes", Type: core.FieldText},
			{Name: "rank_label", Type: core.FieldText},
			{Name: "category", Type: core.FieldText},
			{Name: "trb_applicable", Type: core.FieldBool},
		},
		Normalize:  deriveCadetProfile,
		Prepare:    prepareCadets,
		NaturalKey: func(row *core.ImportRow) string { return row.Normalized.Text("email") },
		Insert: func(ctx context.Context, b *core.Batch, row *core.ImportRow) (int64, error) {
			trb, _ := row.Derived.Bool("trb_applicable")
			return b.Tx.CreateCadet(ctx, core.NewCadet{
				FullName:      row.Normalized.Text("full_name"),
				Email:         row.Normalized.Text("email"),
				TraineeType:   row.Normalized.Text("trainee_type"),
				RankLabel:     row.Derived.Text("rank_label"),
				Category:      row.Derived.Text("category"),
				TRBApplicable: trb,
				Nationality:   row.Normalized.TextPtr("nationality"),
				Notes:         row.Normalized.TextPtr("notes"),
			})
		},
	})
}

// deriveCadetProfile fills rank_label, category and trb_applicable from the
// trainee type. Explicit values that disagree are kept as warnings; the
// derived values are what gets stored.
func deriveCadetProfile(row *core.ImportRow) {
	profile, ok := TraineeTypes[row.Normalized.Text("trainee_type")]
	if !ok {
		return
	}
	row.Derived["rank_label"] = profile.RankLabel
	row.Derived["category"] = profile.Category
	row.Derived["trb_applicable"] = profile.TRBApplicable

	if v := row.Normalized.Text("rank_label"); v != "" && !strings.EqualFold(v, profile.RankLabel) {
		row.Warn(mismatch("rank_label", v, profile.RankLabel))
	}
	if v := row.Normalized.Text("category"); v != "" && !strings.EqualFold(v, profile.Category) {
		row.Warn(mismatch("category", v, profile.Category))
	}
	if v, set := row.Normalized.Bool("trb_applicable"); set && v != profile.TRBApplicable {
		row.Warn(mismatch("trb_applicable", yesNo(v), yesNo(profile.TRBApplicable)))
	}
}

func mismatch(column, given, derived string) string {
	return fmt.Sprintf("%s %q does not match trainee_type (expected %q); derived value will be used", column, given, derived)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func prepareCadets(ctx context.Context, q core.Querier, rows []*core.ImportRow) (core.Resolver, error) {
	users, err := q.FindUsersByEmail(ctx, distinct(rows, "email"))
	if err != nil {
		return nil, fmt.Errorf("find users by email: %w", err)
	}
	r := &cadetResolver{users: make(map[string]core.UserRef, len(users))}
	for _, u := range users {
		r.users[strings.ToLower(u.Email)] = u
	}
	return r, nil
}

type cadetResolver struct {
	noNotes
	users map[string]core.UserRef
}

func (r *cadetResolver) Resolve(*core.ImportRow) {}

// Exists treats any existing user with the email as a conflict, whatever
// its role.
func (r *cadetResolver) Exists(row *core.ImportRow) (string, bool) {
	email := row.Normalized.Text("email")
	u, ok := r.users[email]
	if !ok {
		return "", false
	}
	if u.Role != core.RoleCadet {
		return fmt.Sprintf("User with email %s already exists (role %s)", email, u.Role), true
	}
	return fmt.Sprintf("User with email %s already exists", email), true
}
