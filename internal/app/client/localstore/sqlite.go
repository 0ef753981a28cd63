package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores each record as a JSON document with the columns
// needed for lookups kept alongside.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := &SQLiteBackend{db: db}

	if err := b.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return b, nil
}

// health_id is indexed but not unique: the store enforces one record per
// health id and cleanup repairs anything that slipped through.
func (b *SQLiteBackend) initTables() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			local_id   TEXT PRIMARY KEY,
			health_id  TEXT NOT NULL DEFAULT '',
			synced     BOOLEAN NOT NULL DEFAULT 0,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_records_health_id ON records(health_id);
		CREATE INDEX IF NOT EXISTS idx_records_synced ON records(synced);
	`)
	return err
}

func (b *SQLiteBackend) Load(ctx context.Context, localID string) (Record, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT data FROM records WHERE local_id = ?`, localID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load record: %w", err)
	}

	return decodeRow(data)
}

func (b *SQLiteBackend) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT data FROM records ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (b *SQLiteBackend) FindByHealthID(ctx context.Context, healthID string) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT data FROM records WHERE health_id = ? ORDER BY rowid`, healthID)
	if err != nil {
		return nil, fmt.Errorf("find by health id: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (b *SQLiteBackend) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO records (local_id, health_id, synced, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			health_id = excluded.health_id,
			synced = excluded.synced,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, rec.LocalID, rec.HealthID, rec.Synced, string(data), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	return nil
}

func (b *SQLiteBackend) Remove(ctx context.Context, localID string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM records WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func scanRows(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRow(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeRow(data string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
