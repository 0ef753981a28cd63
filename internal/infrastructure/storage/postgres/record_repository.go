package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"childhealth/internal/domain/record"
	"childhealth/internal/model"
)

const recordColumns = `
	id, health_id, local_id, child_name, age, gender, weight, height,
	guardian_name, relation, phone, parents_consent, health_observations, photo,
	date_collected, location, uploaded_by, uploader_owner_id, uploader_employee_id,
	uploaded_at, is_offline, created_at, updated_at`

type RecordRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewRecordRepository(pool *pgxpool.Pool, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		pool: pool,
		log:  log.With("component", "record_repository"),
	}
}

// Upsert relies on the unique health_id constraint, so concurrent writes to
// the same key serialize in Postgres and the last one wins.
func (r *RecordRepository) Upsert(ctx context.Context, rec *record.Record) (bool, error) {
	const query = `
		INSERT INTO records (
			health_id, local_id, child_name, age, gender, weight, height,
			guardian_name, relation, phone, parents_consent, health_observations, photo,
			date_collected, location, uploaded_by, uploader_owner_id, uploader_employee_id,
			uploaded_at, is_offline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (health_id) DO UPDATE SET
			local_id = EXCLUDED.local_id,
			child_name = EXCLUDED.child_name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			weight = EXCLUDED.weight,
			height = EXCLUDED.height,
			guardian_name = EXCLUDED.guardian_name,
			relation = EXCLUDED.relation,
			phone = EXCLUDED.phone,
			parents_consent = EXCLUDED.parents_consent,
			health_observations = EXCLUDED.health_observations,
			photo = EXCLUDED.photo,
			date_collected = EXCLUDED.date_collected,
			location = EXCLUDED.location,
			uploaded_by = EXCLUDED.uploaded_by,
			uploader_owner_id = EXCLUDED.uploader_owner_id,
			uploader_employee_id = EXCLUDED.uploader_employee_id,
			uploaded_at = EXCLUDED.uploaded_at,
			is_offline = EXCLUDED.is_offline,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	args, err := recordArgs(rec.Record)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &inserted)
	if err != nil {
		if isUniqueViolation(err) {
			return false, record.ErrDuplicateKey
		}
		r.log.Error("failed to upsert record", "health_id", rec.HealthID, "error", err)
		return false, fmt.Errorf("upsert record: %w", err)
	}

	return inserted, nil
}

func (r *RecordRepository) Update(ctx context.Context, rec *record.Record) error {
	const query = `
		UPDATE records SET
			local_id = $2, child_name = $3, age = $4, gender = $5, weight = $6, height = $7,
			guardian_name = $8, relation = $9, phone = $10, parents_consent = $11,
			health_observations = $12, photo = $13, date_collected = $14, location = $15,
			uploaded_by = $16, uploader_owner_id = $17, uploader_employee_id = $18,
			uploaded_at = $19, is_offline = $20, updated_at = NOW()
		WHERE health_id = $1
		RETURNING id, created_at, updated_at`

	args, err := recordArgs(rec.Record)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return record.ErrNotFound
		case isUniqueViolation(err):
			return record.ErrDuplicateKey
		}
		r.log.Error("failed to update record", "health_id", rec.HealthID, "error", err)
		return fmt.Errorf("update record: %w", err)
	}

	return nil
}

func (r *RecordRepository) GetByHealthID(ctx context.Context, healthID string) (*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE health_id = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, healthID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		r.log.Error("failed to get record", "health_id", healthID, "error", err)
		return nil, fmt.Errorf("get record: %w", err)
	}

	return rec, nil
}

func (r *RecordRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]record.Record, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE uploader_owner_id = $1`, ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	query := `SELECT ` + recordColumns + `
		FROM records
		WHERE uploader_owner_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, ownerID, offset, limit)
	if err != nil {
		r.log.Error("failed to list records", "owner_id", ownerID, "error", err)
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan records: %w", err)
	}

	return records, total, nil
}

func recordArgs(m model.Record) ([]any, error) {
	location, err := encodeLocation(m.Location)
	if err != nil {
		return nil, err
	}

	return []any{
		m.HealthID, m.LocalID, m.ChildName, m.Age, m.Gender, m.Weight, m.Height,
		m.GuardianName, m.Relation, m.Phone, m.ParentsConsent, m.HealthObservations, m.Photo,
		m.DateCollected, location, m.UploadedBy, m.UploaderOwnerID, m.UploaderEmployeeID,
		m.UploadedAt, m.IsOffline,
	}, nil
}

func encodeLocation(loc *model.Location) ([]byte, error) {
	if loc == nil {
		return nil, nil
	}
	b, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}
	return b, nil
}

func decodeLocation(b []byte) (*model.Location, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var loc model.Location
	if err := json.Unmarshal(b, &loc); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	return &loc, nil
}

func scanRecords(rows pgx.Rows) ([]record.Record, error) {
	var records []record.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*record.Record, error) {
	var (
		rec      record.Record
		location []byte
	)

	err := row.Scan(
		&rec.ID, &rec.HealthID, &rec.LocalID, &rec.ChildName, &rec.Age, &rec.Gender,
		&rec.Weight, &rec.Height, &rec.GuardianName, &rec.Relation, &rec.Phone,
		&rec.ParentsConsent, &rec.HealthObservations, &rec.Photo, &rec.DateCollected,
		&location, &rec.UploadedBy, &rec.UploaderOwnerID, &rec.UploaderEmployeeID,
		&rec.UploadedAt, &rec.IsOffline, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Location, err = decodeLocation(location); err != nil {
		return nil, err
	}

	return &rec, nil
}
