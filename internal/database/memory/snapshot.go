package memory

import (
	"maps"
	"slices"
	"time"

	"github.com/amengaji/Keel/internal/core"
)

// User is a stored user account.
type User struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CadetProfile holds the trainee details of a cadet user.
type CadetProfile struct {
	UserID        int64   `json:"user_id"`
	TraineeType   string  `json:"trainee_type"`
	RankLabel     string  `json:"rank_label"`
	Category      string  `json:"category"`
	TRBApplicable bool    `json:"trb_applicable"`
	Nationality   *string `json:"nationality,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// Vessel is a stored vessel.
type Vessel struct {
	ID           int64   `json:"id"`
	IMO          string  `json:"imo_number"`
	Name         string  `json:"vessel_name"`
	ShipTypeID   int64   `json:"ship_type_id"`
	FlagState    *string `json:"flag_state,omitempty"`
	ClassSociety *string `json:"class_society,omitempty"`
}

// Task is a stored training task.
type Task struct {
	ID int64 `json:"id"`
	core.NewTask
}

// Assignment is a stored cadet-to-vessel assignment.
type Assignment struct {
	core.Assignment
	Rank *string `json:"rank,omitempty"`
}

// Snapshot is the complete state of the store. Rows are only ever appended.
type Snapshot struct {
	Seq         map[string]int64   `json:"seq"`
	ShipTypes   []core.ShipType    `json:"ship_types"`
	Users       []User             `json:"users"`
	Profiles    []CadetProfile     `json:"cadet_profiles"`
	Vessels     []Vessel           `json:"vessels"`
	Tasks       []Task             `json:"training_tasks"`
	Assignments []Assignment       `json:"assignments"`
	Batches     []core.ImportBatch `json:"import_batches"`
}

// Counts is the number of rows per table.
type Counts struct {
	ShipTypes   int
	Users       int
	Vessels     int
	Tasks       int
	Assignments int
	Batches     int
}

func newSnapshot() *Snapshot {
	return &Snapshot{Seq: map[string]int64{}}
}

func (s *Snapshot) clone() *Snapshot {
	seq := maps.Clone(s.Seq)
	if seq == nil {
		seq = map[string]int64{}
	}
	return &Snapshot{
		Seq:         seq,
		ShipTypes:   slices.Clone(s.ShipTypes),
		Users:       slices.Clone(s.Users),
		Profiles:    slices.Clone(s.Profiles),
		Vessels:     slices.Clone(s.Vessels),
		Tasks:       slices.Clone(s.Tasks),
		Assignments: slices.Clone(s.Assignments),
		Batches:     slices.Clone(s.Batches),
	}
}

func (s *Snapshot) counts() Counts {
	return Counts{
		ShipTypes:   len(s.ShipTypes),
		Users:       len(s.Users),
		Vessels:     len(s.Vessels),
		Tasks:       len(s.Tasks),
		Assignments: len(s.Assignments),
		Batches:     len(s.Batches),
	}
}

func (s *Snapshot) nextID(table string) int64 {
	s.Seq[table]++
	return s.Seq[table]
}

// mark records table lengths and sequences. Inserts only append, so rolling
// back to a mark is a truncation.
type mark struct {
	seq      map[string]int64
	counts   Counts
	profiles int
}

func (s *Snapshot) mark() mark {
	return mark{seq: maps.Clone(s.Seq), counts: s.counts(), profiles: len(s.Profiles)}
}

func (s *Snapshot) truncate(m mark) {
	s.Seq = maps.Clone(m.seq)
	s.ShipTypes = s.ShipTypes[:m.counts.ShipTypes]
	s.Users = s.Users[:m.counts.Users]
	s.Profiles = s.Profiles[:m.profiles]
	s.Vessels = s.Vessels[:m.counts.Vessels]
	s.Tasks = s.Tasks[:m.counts.Tasks]
	s.Assignments = s.Assignments[:m.counts.Assignments]
	s.Batches = s.Batches[:m.counts.Batches]
}
