package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCheck_EventRange(t *testing.T) {
	s := threeFields()
	s.EventDate = at("2024-01-01T10:00")
	s.EventEndTime = at("2024-01-01T09:00")

	err := Check(s)
	assert.ErrorIs(t, err, ErrInvalidEventRange)
	assert.ErrorIs(t, Validate(s), ErrInvalidEventRange)

	s.EventEndTime = at("2024-01-01T10:00")
	assert.ErrorIs(t, Check(s), ErrInvalidEventRange, "equal times are rejected")

	s.EventEndTime = at("2024-01-01T12:00")
	assert.NoError(t, Check(s))

	s.EventDate = nil
	assert.NoError(t, Check(s), "end time alone is fine")
}

func TestCheck_DuplicateIDsAndOptions(t *testing.T) {
	s := Schema{Fields: []Field{
		{ID: "x", Input: TextInput{}},
		{ID: "x", Input: ChoiceInput{Options: []string{"A", "A", " "}}},
	}}

	err := Check(s)
	assert.ErrorIs(t, err, ErrDuplicateFieldID)
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Len(t, Problems(err), 3)
}

func TestCheck_EmptyDraftIsFine(t *testing.T) {
	assert.NoError(t, Check(Schema{}))
}

func TestValidate_Complete(t *testing.T) {
	assert.NoError(t, Validate(threeFields()))
}

func TestValidate_Problems(t *testing.T) {
	s := Schema{
		Title:       "<p><br></p>",
		BannerImage: "javascript:alert(1)",
	}

	problems := Problems(Validate(s))
	assert.Contains(t, problems, "title: must not be blank")
	assert.Contains(t, problems, "fields: at least one field is required")
	assert.Contains(t, problems, "banner_image: must be an http(s) URL or an absolute path")
}

func TestValidate_FieldProblems(t *testing.T) {
	s := Schema{
		Title: "Party",
		Fields: []Field{
			{ID: "a", Label: "", Input: TextInput{}},
			{ID: "b", Label: "Pick", Input: ChoiceInput{Options: []string{}}},
			{ID: "c", Label: `<img src="/uploads/forms/x.png">`, Image: "ftp://nope", Input: ImageInput{}},
		},
	}

	problems := Problems(Validate(s))
	assert.Contains(t, problems, "fields[0].label: must not be blank")
	assert.Contains(t, problems, "fields[1].options: needs at least one option")
	assert.Contains(t, problems, "fields[2].image: must be an http(s) URL or an absolute path")
	assert.Len(t, problems, 3)
}

func TestIsImageRef(t *testing.T) {
	assert.True(t, IsImageRef("https://cdn.example.com/a.png"))
	assert.True(t, IsImageRef("http://example.com/a.png"))
	assert.True(t, IsImageRef("/uploads/forms/form-images/a.png"))
	assert.False(t, IsImageRef(""))
	assert.False(t, IsImageRef("//evil.example.com/a.png"))
	assert.False(t, IsImageRef("javascript:alert(1)"))
	assert.False(t, IsImageRef("data:image/png;base64,AAAA"))
	assert.False(t, IsImageRef("relative/a.png"))
}

func TestValidateAnswers(t *testing.T) {
	s := Schema{Fields: []Field{
		{ID: "name", Label: "Name", Required: true, Input: TextInput{}},
		{ID: "age", Label: "Age", Input: NumberInput{}},
		{ID: "mail", Label: "Email", Input: EmailInput{}},
		{ID: "one", Label: "One", Input: ChoiceInput{Options: []string{"Yes", "No"}}},
		{ID: "many", Label: "Many", Input: ChoiceInput{Multiple: true, Options: []string{"A", "B", "C"}}},
		{ID: "pic", Label: "Pic", Input: ImageInput{}},
	}}

	tests := []struct {
		name     string
		answers  map[string]any
		wantErr  error
		problems int
	}{
		{
			name: "all good",
			answers: map[string]any{
				"name": "Ada", "age": "36", "mail": "ada@example.com",
				"one": "Yes", "many": []any{"A", "C"}, "pic": "/uploads/public/form-responses/x.png",
			},
		},
		{
			name:    "only required",
			answers: map[string]any{"name": "Ada"},
		},
		{
			name:     "missing required",
			answers:  map[string]any{"name": "  "},
			wantErr:  ErrMissingAnswer,
			problems: 1,
		},
		{
			name:     "unknown field",
			answers:  map[string]any{"name": "Ada", "ghost": "boo"},
			wantErr:  ErrUnknownAnswer,
			problems: 1,
		},
		{
			name: "bad values",
			answers: map[string]any{
				"name": "Ada", "age": "old", "mail": "not-an-email",
				"one": "Maybe", "many": []any{"A", "Z"}, "pic": "javascript:x",
			},
			wantErr:  ErrInvalidAnswer,
			problems: 5,
		},
		{
			name:     "wrong shapes",
			answers:  map[string]any{"name": 12.0, "one": []any{"Yes"}, "many": "A"},
			wantErr:  ErrInvalidAnswer,
			problems: 3,
		},
		{
			name:    "numbers from json",
			answers: map[string]any{"name": "Ada", "age": 36.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnswers(s, tt.answers)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, Problems(err), tt.problems)
		})
	}
}

func TestField_JSON(t *testing.T) {
	in := `{"id":"q1","type":"dropdown","label":"<b>Size</b>","required":true,"options":["S","M"],"image":"/uploads/forms/a.png"}`

	var f Field
	require.NoError(t, json.Unmarshal([]byte(in), &f))

	assert.Equal(t, FieldSelect, f.Type())
	assert.Equal(t, []string{"S", "M"}, f.Options())
	assert.True(t, f.Required)
	assert.Equal(t, "/uploads/forms/a.png", f.Image)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"q1","type":"select","label":"<b>Size</b>","required":true,"options":["S","M"],"image":"/uploads/forms/a.png"}`, string(out))
}

func TestField_JSONDropsStrayOptions(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"id":"q","type":"text","label":"x","options":["stray"]}`), &f))

	assert.Equal(t, TextInput{}, f.Input)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "options")
}

func TestField_JSONUnknownType(t *testing.T) {
	var f Field
	err := json.Unmarshal([]byte(`{"id":"q","type":"radio"}`), &f)
	assert.ErrorIs(t, err, ErrUnknownFieldType)
}

func TestFieldUpdate_LegacyType(t *testing.T) {
	var upd FieldUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"type":"checkbox"}`), &upd))
	require.NotNil(t, upd.Type)
	assert.Equal(t, FieldMultiselect, *upd.Type)
}
