package core

import (
	"context"
	"time"
)

// Roles a user row can carry.
const (
	RoleCadet = "CADET"
	RoleAdmin = "ADMIN"
)

// Assignment statuses.
const (
	AssignmentActive    = "ACTIVE"
	AssignmentCompleted = "COMPLETED"
)

// ShipType is one row of the ship-type taxonomy.
type ShipType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserRef identifies an existing user by email.
type UserRef struct {
	ID    int64
	Email string
	Role  string
}

// VesselRef identifies an existing vessel by IMO number.
type VesselRef struct {
	ID   int64
	IMO  string
	Name string
}

// TaskKey is the stored natural key of a training task.
// Title is lower-cased; ShipTypeID is nil for generic tasks.
type TaskKey struct {
	Title      string
	ShipTypeID *int64
}

// Assignment is an existing cadet-to-vessel assignment.
type Assignment struct {
	ID         int64
	CadetID    int64
	VesselID   int64
	DateJoined time.Time
	DateLeft   *time.Time
	Status     string
}

// NewCadet holds the values for creating a cadet user and profile.
type NewCadet struct {
	FullName      string
	Email         string
	TraineeType   string
	RankLabel     string
	Category      string
	TRBApplicable bool
	Nationality   *string
	Notes         *string
}

// NewVessel holds the values for creating a vessel.
type NewVessel struct {
	IMO          string
	Name         string
	ShipTypeID   int64
	FlagState    *string
	ClassSociety *string
}

// NewTask holds the values for creating a training task.
type NewTask struct {
	PartNumber         int
	SectionName        *string
	Title              string
	Description        *string
	STCWReference      *string
	MandatoryForAll    bool
	ShipTypeID         *int64
	Department         *string
	TraineeType        *string
	Instructions       *string
	SafetyRequirements *string
	EvidenceType       *string
	VerificationMethod *string
	Frequency          *string
}

// NewAssignment holds the values for creating an assignment.
type NewAssignment struct {
	CadetID    int64
	VesselID   int64
	DateJoined time.Time
	DateLeft   *time.Time
	Rank       *string
	Status     string
}

// ImportBatch records one committed import.
type ImportBatch struct {
	ID         string    `json:"batch_id"`
	ImportType string    `json:"import_type"`
	FileName   string    `json:"file_name"`
	FileSHA256 string    `json:"file_sha256"`
	Total      int       `json:"total"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	ArchiveKey string    `json:"archive_key,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Querier is the read side of the authoritative store. Every lookup is a
// single set-membership query over all keys passed in.
type Querier interface {
	ListShipTypes(ctx context.Context) ([]ShipType, error)
	FindUsersByEmail(ctx context.Context, emails []string) ([]UserRef, error)
	FindVesselsByIMO(ctx context.Context, imos []string) ([]VesselRef, error)
	FindTaskKeys(ctx context.Context, titles []string) ([]TaskKey, error)
	FindAssignmentsByCadet(ctx context.Context, cadetIDs []int64) ([]Assignment, error)
	ListImportBatches(ctx context.Context, importType string, limit int) ([]ImportBatch, error)
	GetImportBatch(ctx context.Context, id string) (ImportBatch, error)
}

// Tx is a unit of work. Inserts that hit a unique constraint return an
// error wrapping ErrDuplicate.
type Tx interface {
	Querier

	EnsureShipType(ctx context.Context, name string) (id int64, created bool, err error)
	CreateCadet(ctx context.Context, c NewCadet) (int64, error)
	CreateVessel(ctx context.Context, v NewVessel) (int64, error)
	CreateTask(ctx context.Context, t NewTask) (int64, error)
	CreateAssignment(ctx context.Context, a NewAssignment) (int64, error)
	RecordImportBatch(ctx context.Context, b ImportBatch) error

	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
}

// Store is the authoritative store and transaction provider.
type Store interface {
	Querier

	// InTx runs fn inside one transaction. The transaction commits only if
	// fn returns nil and ctx is still live; otherwise it rolls back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}
