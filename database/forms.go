package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/mbolis/quick-forms/model"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// InsertForm stores a new form with a fresh id at version 1.
func InsertForm(ctx context.Context, db *sql.DB, s model.Schema) (model.Schema, error) {
	id, err := newID()
	if err != nil {
		return s, err
	}
	s = s.Clone()
	s.ID = id
	s.Version = 1
	s.CreatedAt = time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return s, fmt.Errorf("db.begin_tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO form (
			id, version, title, description,
			event_date, event_end_time, event_location, banner_image,
			accepting_responses, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Version, s.Title, s.Description,
		nullTime(s.EventDate), nullTime(s.EventEndTime), s.EventLocation, s.BannerImage,
		s.AcceptingResponses, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		return s, fmt.Errorf("db.insert_form: %w", err)
	}

	if err = insertFields(ctx, tx, s.ID, s.Fields); err != nil {
		return s, err
	}

	if err = tx.Commit(); err != nil {
		return s, fmt.Errorf("db.insert_form.commit: %w", err)
	}
	return s, nil
}

func insertFields(ctx context.Context, tx *sql.Tx, formID string, fields []model.Field) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO form_field (form_id, position, id, type, label, required, options, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db.insert_form.fields.prepare: %w", err)
	}
	defer stmt.Close()

	for i, f := range fields {
		var optionsJson []byte
		if f.Type().IsChoice() {
			optionsJson, err = json.Marshal(f.Options())
			if err != nil {
				return fmt.Errorf("db.insert_form.fields.parse_options: %w", err)
			}
		}
		_, err = stmt.ExecContext(ctx, formID, i, f.ID, string(f.Type()), f.Label, f.Required, string(optionsJson), f.Image)
		if err != nil {
			return fmt.Errorf("db.insert_form.fields.insert: %w", err)
		}
	}
	return nil
}

const selectForm = `
	SELECT
		id, version, title, description,
		event_date, event_end_time, event_location, banner_image,
		accepting_responses, created_by, created_at
	FROM form`

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (model.Schema, error) {
	var s model.Schema
	var eventDate, eventEnd sql.NullTime
	err := row.Scan(
		&s.ID, &s.Version, &s.Title, &s.Description,
		&eventDate, &eventEnd, &s.EventLocation, &s.BannerImage,
		&s.AcceptingResponses, &s.CreatedBy, &s.CreatedAt,
	)
	s.EventDate = timePtr(eventDate)
	s.EventEndTime = timePtr(eventEnd)
	return s, err
}

// GetForm loads a form with its fields in display order.
func GetForm(ctx context.Context, q Querier, id string) (model.Schema, error) {
	s, err := scanForm(q.QueryRowContext(ctx, selectForm+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return s, fmt.Errorf("db.get_form: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, type, label, required, options, image
		FROM form_field
		WHERE form_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return s, fmt.Errorf("db.get_form.fields: %w", err)
	}
	defer rows.Close()

	s.Fields = []model.Field{}
	for rows.Next() {
		var f model.Field
		var typ, opts string
		if err = rows.Scan(&f.ID, &typ, &f.Label, &f.Required, &opts, &f.Image); err != nil {
			return s, fmt.Errorf("db.get_form.fields.scan: %w", err)
		}

		t, err := model.ParseFieldType(typ)
		if err != nil {
			return s, fmt.Errorf("db.get_form.fields.type: %w", err)
		}
		var options []string
		if opts != "" {
			if err = json.Unmarshal([]byte(opts), &options); err != nil {
				return s, fmt.Errorf("db.get_form.fields.parse_options: %w", err)
			}
		}
		if f.Input, err = model.NewInput(t, options); err != nil {
			return s, err
		}

		s.Fields = append(s.Fields, f)
	}
	return s, rows.Err()
}

// ListForms returns every form, newest first, without fields.
func ListForms(ctx context.Context, db *sql.DB) ([]model.Schema, error) {
	rows, err := db.QueryContext(ctx, selectForm+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("db.get_forms: %w", err)
	}
	defer rows.Close()

	forms := []model.Schema{}
	for rows.Next() {
		s, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("db.get_forms.scan: %w", err)
		}
		forms = append(forms, s)
	}
	return forms, rows.Err()
}

// UpdateForm replaces a form and its fields. s.Version must be the stored
// version; the returned schema carries the next one. The accepting flag is
// left alone, see SetAcceptingResponses.
func UpdateForm(ctx context.Context, db *sql.DB, s model.Schema) (model.Schema, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return s, fmt.Errorf("db.begin_tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE form SET
			version = version + 1,
			title = ?, description = ?,
			event_date = ?, event_end_time = ?, event_location = ?, banner_image = ?
		WHERE id = ?
			AND version = ?`,
		s.Title, s.Description,
		nullTime(s.EventDate), nullTime(s.EventEndTime), s.EventLocation, s.BannerImage,
		s.ID, s.Version,
	)
	if err != nil {
		return s, fmt.Errorf("db.update_form: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return s, fmt.Errorf("db.update_form.rows: %w", err)
	} else if n == 0 {
		var version int
		err = tx.QueryRowContext(ctx, `SELECT version FROM form WHERE id = ?`, s.ID).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return s, fmt.Errorf("form %s: %w", s.ID, ErrNotFound)
		}
		if err != nil {
			return s, fmt.Errorf("db.update_form.version: %w", err)
		}
		return s, fmt.Errorf("form %s at version %d, got %d: %w", s.ID, version, s.Version, ErrConflict)
	}

	// recreate all fields
	_, err = tx.ExecContext(ctx, `DELETE FROM form_field WHERE form_id = ?`, s.ID)
	if err != nil {
		return s, fmt.Errorf("db.update_form.delete_fields: %w", err)
	}
	if err = insertFields(ctx, tx, s.ID, s.Fields); err != nil {
		return s, err
	}

	updated, err := GetForm(ctx, tx, s.ID)
	if err != nil {
		return s, err
	}
	if err = tx.Commit(); err != nil {
		return s, fmt.Errorf("db.update_form.commit: %w", err)
	}
	return updated, nil
}

// DeleteForm removes a form with its responses and fields.
func DeleteForm(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.begin_tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []struct{ code, query string }{
		{"db.delete_form.responses", `DELETE FROM form_response WHERE form_id = ?`},
		{"db.delete_form.fields", `DELETE FROM form_field WHERE form_id = ?`},
	} {
		if _, err = tx.ExecContext(ctx, stmt.query, id); err != nil {
			return fmt.Errorf("%s: %w", stmt.code, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM form WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db.delete_form: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("db.delete_form.rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("form %s: %w", id, ErrNotFound)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("db.delete_form.commit: %w", err)
	}
	return nil
}

// SetAcceptingResponses opens or closes a form to new responses. The form
// version is left alone.
func SetAcceptingResponses(ctx context.Context, db *sql.DB, id string, accepting bool) error {
	res, err := db.ExecContext(ctx, `UPDATE form SET accepting_responses = ? WHERE id = ?`, accepting, id)
	if err != nil {
		return fmt.Errorf("db.set_accepting: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("db.set_accepting.rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	return nil
}
