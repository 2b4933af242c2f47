package cache

import (
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/record"
)

// UpsertAll inserts or overwrites the given records inside one transaction.
func UpsertAll(db *sql.DB, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO records (
			id, content, stage, category, completed,
			ai_assist_class, timestamp, created_at, updated_at, extra_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			stage = excluded.stage,
			category = excluded.category,
			completed = excluded.completed,
			ai_assist_class = excluded.ai_assist_class,
			timestamp = excluded.timestamp,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			extra_json = excluded.extra_json
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, r := range records {
		extraJSON, err := marshalExtra(r.Extra)
		if err != nil {
			return err
		}
		completed := 0
		if r.Completed {
			completed = 1
		}
		_, err = stmt.Exec(
			r.ID, r.Content, r.Stage, r.Category, completed,
			r.AIAssistClass, r.Timestamp, r.CreatedAt, r.UpdatedAt, extraJSON,
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// List returns all cached records, newest first by creation time.
func List(db *sql.DB) ([]record.Record, error) {
	query := `
		SELECT id, content, stage, category, completed,
			ai_assist_class, timestamp, created_at, updated_at, extra_json
		FROM records
		ORDER BY created_at DESC
	`
	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// GetByID retrieves one cached record.
func GetByID(db *sql.DB, id string) (*record.Record, error) {
	query := `
		SELECT id, content, stage, category, completed,
			ai_assist_class, timestamp, created_at, updated_at, extra_json
		FROM records
		WHERE id = ?
	`
	r, err := scanRecord(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &r, nil
}

// Delete removes one cached record. Deleting an absent id is a no-op.
func Delete(db *sql.DB, id string) error {
	if _, err := db.Exec("DELETE FROM records WHERE id = ?", id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Replace swaps the entire cache contents for the given records atomically.
func Replace(db *sql.DB, records []record.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO records (
			id, content, stage, category, completed,
			ai_assist_class, timestamp, created_at, updated_at, extra_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, r := range records {
		extraJSON, err := marshalExtra(r.Extra)
		if err != nil {
			return err
		}
		completed := 0
		if r.Completed {
			completed = 1
		}
		_, err = stmt.Exec(
			r.ID, r.Content, r.Stage, r.Category, completed,
			r.AIAssistClass, r.Timestamp, r.CreatedAt, r.UpdatedAt, extraJSON,
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRecord scans a single row into a Record.
func scanRecord(row scannable) (record.Record, error) {
	var (
		r         record.Record
		completed int
		extraJSON sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.Content, &r.Stage, &r.Category, &completed,
		&r.AIAssistClass, &r.Timestamp, &r.CreatedAt, &r.UpdatedAt, &extraJSON,
	)
	if err != nil {
		return record.Record{}, err
	}

	r.Completed = completed != 0
	if extraJSON.Valid && extraJSON.String != "" {
		if err := json.Unmarshal([]byte(extraJSON.String), &r.Extra); err != nil {
			return record.Record{}, err
		}
	}
	return r, nil
}

// marshalExtra converts opaque extra fields to JSON, NULL when empty.
func marshalExtra(extra map[string]any) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, errors.NewInternal(err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
