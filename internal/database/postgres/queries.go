package postgres

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/amengaji/Keel/internal/core"
)

// queries holds the read side, shared by Store and Tx. Every lookup is one
// set-membership query over all keys.
type queries struct {
	db dbtx
}

func (q queries) ListShipTypes(ctx context.Context) ([]core.ShipType, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name FROM ship_types ORDER BY name`)
	if err != nil {
		return nil, gerrors.Wrap(err, "list ship types")
	}
	types, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ShipType, error) {
		var st core.ShipType
		err := row.Scan(&st.ID, &st.Name)
		return st, err
	})
	if err != nil {
		return nil, gerrors.Wrap(err, "scan ship types")
	}
	return types, nil
}

func (q queries) FindUsersByEmail(ctx context.Context, emails []string) ([]core.UserRef, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, lower(email), role FROM users WHERE lower(email) = ANY($1)`,
		lowerAll(emails))
	if err != nil {
		return nil, gerrors.Wrap(err, "find users by email")
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.UserRef, error) {
		var u core.UserRef
		err := row.Scan(&u.ID, &u.Email, &u.Role)
		return u, err
	})
	if err != nil {
		return nil, gerrors.Wrap(err, "scan users")
	}
	return users, nil
}

func (q queries) FindVesselsByIMO(ctx context.Context, imos []string) ([]core.VesselRef, error) {
	if len(imos) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, imo_number, vessel_name FROM vessels WHERE imo_number = ANY($1)`, imos)
	if err != nil {
		return nil, gerrors.Wrap(err, "find vessels by imo")
	}
	vessels, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.VesselRef, error) {
		var v core.VesselRef
		err := row.Scan(&v.ID, &v.IMO, &v.Name)
		return v, err
	})
	if err != nil {
		return nil, gerrors.Wrap(err, "scan vessels")
	}
	return vessels, nil
}

func (q queries) FindTaskKeys(ctx context.Context, titles []string) ([]core.TaskKey, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT lower(title), ship_type_id FROM training_tasks WHERE lower(title) = ANY($1)`,
		lowerAll(titles))
	if err != nil {
		return nil, gerrors.Wrap(err, "find task keys")
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.TaskKey, error) {
		var k core.TaskKey
		err := row.Scan(&k.Title, &k.ShipTypeID)
		return k, err
	})
	if err != nil {
		return nil, gerrors.Wrap(err, "scan task keys")
	}
	return keys, nil
}

func (q queries) FindAssignmentsByCadet(ctx context.Context, cadetIDs []int64) ([]core.Assignment, error) {
	if len(cadetIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, cadet_id, vessel_id, date_joined, date_left, status
		   FROM cadet_vessel_assignments
		  WHERE cadet_id = ANY($1)`, cadetIDs)
	if err != nil {
		return nil, gerrors.Wrap(err, "find assignments by cadet")
	}
	assignments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Assignment, error) {
		var a core.Assignment
		err := row.Scan(&a.ID, &a.CadetID, &a.VesselID, &a.DateJoined, &a.DateLeft, &a.Status)
		return a, err
	})
	if err != nil {
		return nil, gerrors.Wrap(err, "scan assignments")
	}
	return assignments, nil
}

const batchColumns = `id::text, import_type, file_name, file_sha256, total, created, skipped, failed,
	archive_key, client_ip, user_agent, created_at`

func scanBatch(row pgx.Row) (core.ImportBatch, error) {
	var b core.ImportBatch
	err := row.Scan(&b.ID, &b.ImportType, &b.FileName, &b.FileSHA256, &b.Total, &b.Created,
		&b.Skipped, &b.Failed, &b.ArchiveKey, &b.ClientIP, &b.UserAgent, &b.CreatedAt)
	return b, err
}

func (q queries) ListImportBatches(ctx context.Context, importType string, limit int) ([]core.ImportBatch, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+batchColumns+`
		   FROM import_batches
		  WHERE $1 = '' OR import_type = $1
		  ORDER BY created_at DESC
		  LIMIT $2`, importType, limit)
	if err != nil {
		return nil, gerrors.Wrap(err, "list import batches")
	}
	batches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ImportBatch, error) {
		return scanBatch(row)
	})
	if err != nil {
		return nil, gerrors.Wrap(err, "scan import batches")
	}
	return batches, nil
}

func (q queries) GetImportBatch(ctx context.Context, id string) (core.ImportBatch, error) {
	b, err := scanBatch(q.db.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM import_batches WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ImportBatch{}, fmt.Errorf("%w: %s", core.ErrBatchNotFound, id)
	}
	if err != nil {
		return core.ImportBatch{}, gerrors.Wrap(err, "get import batch")
	}
	return b, nil
}

// EnsureShipType returns the id of the ship type named name, creating it if
// needed. A concurrent creator wins through the unique index.
func (t *Tx) EnsureShipType(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO ship_types (name) VALUES ($1)
		 ON CONFLICT ((lower(name))) DO NOTHING
		 RETURNING id`, name).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, translate(err, "insert ship type")
	}

	err = t.tx.QueryRow(ctx, `SELECT id FROM ship_types WHERE lower(name) = lower($1)`, name).Scan(&id)
	if err != nil {
		return 0, false, gerrors.Wrap(err, "select ship type")
	}
	return id, false, nil
}

func (t *Tx) CreateCadet(ctx context.Context, c core.NewCadet) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO users (full_name, email, role) VALUES ($1, lower($2), $3) RETURNING id`,
		c.FullName, c.Email, core.RoleCadet).Scan(&id)
	if err != nil {
		return 0, translate(err, "insert user")
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO cadet_profiles (user_id, trainee_type, rank_label, category, trb_applicable, nationality, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, c.TraineeType, c.RankLabel, c.Category, c.TRBApplicable, c.Nationality, c.Notes)
	if err != nil {
		return 0, translate(err, "insert cadet profile")
	}
	return id, nil
}

func (t *Tx) CreateVessel(ctx context.Context, v core.NewVessel) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO vessels (imo_number, vessel_name, ship_type_id, flag_state, class_society)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		v.IMO, v.Name, v.ShipTypeID, v.FlagState, v.ClassSociety).Scan(&id)
	if err != nil {
		return 0, translate(err, "insert vessel")
	}
	return id, nil
}

func (t *Tx) CreateTask(ctx context.Context, task core.NewTask) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO training_tasks (part_number, section_name, title, description, stcw_reference,
		    mandatory_for_all, ship_type_id, department, trainee_type, instructions,
		    safety_requirements, evidence_type, verification_method, frequency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		task.PartNumber, task.SectionName, task.Title, task.Description, task.STCWReference,
		task.MandatoryForAll, task.ShipTypeID, task.Department, task.TraineeType, task.Instructions,
		task.SafetyRequirements, task.EvidenceType, task.VerificationMethod, task.Frequency).Scan(&id)
	if err != nil {
		return 0, translate(err, "insert training task")
	}
	return id, nil
}

func (t *Tx) CreateAssignment(ctx context.Context, a core.NewAssignment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO cadet_vessel_assignments (cadet_id, vessel_id, date_joined, date_left, rank, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.CadetID, a.VesselID, a.DateJoined, a.DateLeft, a.Rank, a.Status).Scan(&id)
	if err != nil {
		return 0, translate(err, "insert assignment")
	}
	return id, nil
}

func (t *Tx) RecordImportBatch(ctx context.Context, b core.ImportBatch) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO import_batches (id, import_type, file_name, file_sha256, total, created, skipped,
		    failed, archive_key, client_ip, user_agent)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.ImportType, b.FileName, b.FileSHA256, b.Total, b.Created, b.Skipped,
		b.Failed, b.ArchiveKey, b.ClientIP, b.UserAgent)
	if err != nil {
		return translate(err, "insert import batch")
	}
	return nil
}
