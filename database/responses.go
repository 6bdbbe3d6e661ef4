package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/quick-forms/model"
)

// InsertResponse appends a response. Responses are never updated.
func InsertResponse(ctx context.Context, db *sql.DB, resp model.Response) (model.Response, error) {
	id, err := newID()
	if err != nil {
		return resp, err
	}
	resp.ID = id
	resp.SubmittedAt = time.Now().UTC()

	answers := resp.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	answersJson, err := json.Marshal(answers)
	if err != nil {
		return resp, fmt.Errorf("db.insert_response.parse_answers: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO form_response (id, form_id, user_id, ip, answers, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.FormID, resp.UserID, resp.IP, string(answersJson), resp.SubmittedAt,
	)
	if err != nil {
		return resp, fmt.Errorf("db.insert_response: %w", err)
	}
	return resp, nil
}

// ListResponses returns the responses to a form in submission order.
func ListResponses(ctx context.Context, db *sql.DB, formID string) ([]model.Response, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, form_id, user_id, ip, answers, submitted_at
		FROM form_response
		WHERE form_id = ?
		ORDER BY submitted_at, id`,
		formID,
	)
	if err != nil {
		return nil, fmt.Errorf("db.get_responses: %w", err)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var resp model.Response
		var answers string
		err = rows.Scan(&resp.ID, &resp.FormID, &resp.UserID, &resp.IP, &answers, &resp.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("db.get_responses.scan: %w", err)
		}
		if err = json.Unmarshal([]byte(answers), &resp.Answers); err != nil {
			return nil, fmt.Errorf("db.get_responses.parse_answers: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func HasResponseFromIP(ctx context.Context, db *sql.DB, formID, ip string) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, `
		SELECT 1 FROM form_response
		WHERE form_id = ?
			AND ip = ?
		LIMIT 1`,
		formID,
		ip,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db.get_ip: %w", err)
	}
	return found, nil
}
