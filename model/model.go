package model

import "time"

// Schema is a form definition, persisted as a whole.
type Schema struct {
	ID                 string     `json:"id,omitempty"`
	Version            int        `json:"version,omitempty"`
	Title              string     `json:"title" validate:"rich_required"`
	Description        string     `json:"description"`
	Fields             []Field    `json:"fields" validate:"min=1,dive"`
	AcceptingResponses bool       `json:"accepting_responses"`
	EventDate          *time.Time `json:"event_date,omitempty"`
	EventEndTime       *time.Time `json:"event_end_time,omitempty"`
	EventLocation      string     `json:"event_location,omitempty"`
	BannerImage        string     `json:"banner_image,omitempty" validate:"omitempty,image_ref"`
	CreatedBy          string     `json:"created_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Response is one submission. Answers are keyed by Field.ID.
type Response struct {
	ID          string         `json:"id"`
	FormID      string         `json:"form_id"`
	UserID      string         `json:"user_id,omitempty"`
	IP          string         `json:"ip,omitempty"`
	Answers     map[string]any `json:"responses"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// FieldIndex returns the position of the field with the given id, or -1.
func (s Schema) FieldIndex(id string) int {
	for i, f := range s.Fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}
