package memory

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/amengaji/Keel/internal/core"
)

// Read helpers shared by Store (under its read lock) and Tx (on its working
// copy).

func (s *Snapshot) listShipTypes() []core.ShipType {
	return slices.Clone(s.ShipTypes)
}

func (s *Snapshot) findUsersByEmail(emails []string) []core.UserRef {
	want := lowerSet(emails)
	var out []core.UserRef
	for _, u := range s.Users {
		if want[strings.ToLower(u.Email)] {
			out = append(out, core.UserRef{ID: u.ID, Email: u.Email, Role: u.Role})
		}
	}
	return out
}

func (s *Snapshot) findVesselsByIMO(imos []string) []core.VesselRef {
	want := lowerSet(imos)
	var out []core.VesselRef
	for _, v := range s.Vessels {
		if want[strings.ToLower(v.IMO)] {
			out = append(out, core.VesselRef{ID: v.ID, IMO: v.IMO, Name: v.Name})
		}
	}
	return out
}

func (s *Snapshot) findTaskKeys(titles []string) []core.TaskKey {
	want := lowerSet(titles)
	var out []core.TaskKey
	for _, t := range s.Tasks {
		title := strings.ToLower(t.Title)
		if want[title] {
			out = append(out, core.TaskKey{Title: title, ShipTypeID: t.ShipTypeID})
		}
	}
	return out
}

func (s *Snapshot) findAssignmentsByCadet(ids []int64) []core.Assignment {
	var out []core.Assignment
	for _, a := range s.Assignments {
		if slices.Contains(ids, a.CadetID) {
			out = append(out, a.Assignment)
		}
	}
	return out
}

func (s *Snapshot) listImportBatches(importType string, limit int) []core.ImportBatch {
	var out []core.ImportBatch
	for i := len(s.Batches) - 1; i >= 0; i-- {
		b := s.Batches[i]
		if importType != "" && b.ImportType != importType {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Snapshot) getImportBatch(id string) (core.ImportBatch, error) {
	for _, b := range s.Batches {
		if b.ID == id {
			return b, nil
		}
	}
	return core.ImportBatch{}, fmt.Errorf("%w: %s", core.ErrBatchNotFound, id)
}

// Writes enforce the same unique and foreign keys as the SQL schema.

func (s *Snapshot) ensureShipType(name string) (int64, bool) {
	for _, st := range s.ShipTypes {
		if strings.EqualFold(st.Name, name) {
			return st.ID, false
		}
	}
	id := s.nextID("ship_types")
	s.ShipTypes = append(s.ShipTypes, core.ShipType{ID: id, Name: name})
	return id, true
}

func (s *Snapshot) createCadet(c core.NewCadet) (int64, error) {
	email := strings.ToLower(c.Email)
	for _, u := range s.Users {
		if strings.EqualFold(u.Email, email) {
			return 0, fmt.Errorf("users email %s: %w", email, core.ErrDuplicate)
		}
	}
	id := s.nextID("users")
	s.Users = append(s.Users, User{ID: id, FullName: c.FullName, Email: email, Role: core.RoleCadet, CreatedAt: time.Now().UTC()})
	s.Profiles = append(s.Profiles, CadetProfile{
		UserID:        id,
		TraineeType:   c.TraineeType,
		RankLabel:     c.RankLabel,
		Category:      c.Category,
		TRBApplicable: c.TRBApplicable,
		Nationality:   c.Nationality,
		Notes:         c.Notes,
	})
	return id, nil
}

func (s *Snapshot) createVessel(v core.NewVessel) (int64, error) {
	for _, existing := range s.Vessels {
		if existing.IMO == v.IMO {
			return 0, fmt.Errorf("vessels imo %s: %w", v.IMO, core.ErrDuplicate)
		}
	}
	if !s.hasShipType(v.ShipTypeID) {
		return 0, fmt.Errorf("vessels: ship type %d does not exist", v.ShipTypeID)
	}
	id := s.nextID("vessels")
	s.Vessels = append(s.Vessels, Vessel{
		ID:           id,
		IMO:          v.IMO,
		Name:         v.Name,
		ShipTypeID:   v.ShipTypeID,
		FlagState:    v.FlagState,
		ClassSociety: v.ClassSociety,
	})
	return id, nil
}

func (s *Snapshot) createTask(t core.NewTask) (int64, error) {
	if t.ShipTypeID != nil && !s.hasShipType(*t.ShipTypeID) {
		return 0, fmt.Errorf("training_tasks: ship type %d does not exist", *t.ShipTypeID)
	}
	for _, existing := range s.Tasks {
		if strings.EqualFold(existing.Title, t.Title) && shipTypeOrZero(existing.ShipTypeID) == shipTypeOrZero(t.ShipTypeID) {
			return 0, fmt.Errorf("training_tasks title %q: %w", t.Title, core.ErrDuplicate)
		}
	}
	id := s.nextID("training_tasks")
	s.Tasks = append(s.Tasks, Task{ID: id, NewTask: t})
	return id, nil
}

func (s *Snapshot) createAssignment(a core.NewAssignment) (int64, error) {
	if !slices.ContainsFunc(s.Users, func(u User) bool { return u.ID == a.CadetID }) {
		return 0, fmt.Errorf("cadet_vessel_assignments: cadet %d does not exist", a.CadetID)
	}
	if !slices.ContainsFunc(s.Vessels, func(v Vessel) bool { return v.ID == a.VesselID }) {
		return 0, fmt.Errorf("cadet_vessel_assignments: vessel %d does not exist", a.VesselID)
	}
	for _, existing := range s.Assignments {
		if existing.CadetID == a.CadetID && existing.VesselID == a.VesselID && existing.DateJoined.Equal(a.DateJoined) {
			return 0, fmt.Errorf("cadet_vessel_assignments: %w", core.ErrDuplicate)
		}
	}
	id := s.nextID("cadet_vessel_assignments")
	s.Assignments = append(s.Assignments, Assignment{
		Assignment: core.Assignment{
			ID:         id,
			CadetID:    a.CadetID,
			VesselID:   a.VesselID,
			DateJoined: a.DateJoined,
			DateLeft:   a.DateLeft,
			Status:     a.Status,
		},
		Rank: a.Rank,
	})
	return id, nil
}

func (s *Snapshot) recordImportBatch(b core.ImportBatch) error {
	for _, existing := range s.Batches {
		if existing.ID == b.ID {
			return fmt.Errorf("import_batches id %s: %w", b.ID, core.ErrDuplicate)
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.Batches = append(s.Batches, b)
	return nil
}

func (s *Snapshot) hasShipType(id int64) bool {
	return slices.ContainsFunc(s.ShipTypes, func(st core.ShipType) bool { return st.ID == id })
}

func shipTypeOrZero(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}
