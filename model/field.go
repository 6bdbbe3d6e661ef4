package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldEmail       FieldType = "email"
	FieldTextarea    FieldType = "textarea"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldImage       FieldType = "image"
)

var ErrUnknownFieldType = errors.New("unknown field type")

// FieldTypes returns every supported field type in display order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldText,
		FieldNumber,
		FieldEmail,
		FieldTextarea,
		FieldSelect,
		FieldMultiselect,
		FieldImage,
	}
}

// ParseFieldType accepts the current type names plus the legacy
// "dropdown" and "checkbox" aliases.
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "dropdown":
		return FieldSelect, nil
	case "checkbox":
		return FieldMultiselect, nil
	}
	for _, t := range FieldTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}

func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t FieldType) IsChoice() bool {
	return t == FieldSelect || t == FieldMultiselect
}

// Input is the response control of a field. The set of implementations is
// closed; only ChoiceInput carries options.
type Input interface {
	Type() FieldType
	isInput()
}

type TextInput struct{}
type NumberInput struct{}
type EmailInput struct{}
type TextareaInput struct{}
type ImageInput struct{}

type ChoiceInput struct {
	Multiple bool
	Options  []string
}

func (TextInput) Type() FieldType     { return FieldText }
func (NumberInput) Type() FieldType   { return FieldNumber }
func (EmailInput) Type() FieldType    { return FieldEmail }
func (TextareaInput) Type() FieldType { return FieldTextarea }
func (ImageInput) Type() FieldType    { return FieldImage }

func (c ChoiceInput) Type() FieldType {
	if c.Multiple {
		return FieldMultiselect
	}
	return FieldSelect
}

func (TextInput) isInput()     {}
func (NumberInput) isInput()   {}
func (EmailInput) isInput()    {}
func (TextareaInput) isInput() {}
func (ImageInput) isInput()    {}
func (ChoiceInput) isInput()   {}

// NewInput builds the input for t. Options are only kept for choice types.
func NewInput(t FieldType, options []string) (Input, error) {
	switch t {
	case FieldText:
		return TextInput{}, nil
	case FieldNumber:
		return NumberInput{}, nil
	case FieldEmail:
		return EmailInput{}, nil
	case FieldTextarea:
		return TextareaInput{}, nil
	case FieldImage:
		return ImageInput{}, nil
	case FieldSelect, FieldMultiselect:
		opts := make([]string, len(options))
		copy(opts, options)
		return ChoiceInput{Multiple: t == FieldMultiselect, Options: opts}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
}

// Field is one question of a form. Label is rich HTML and may embed images;
// Image is a separately attached picture.
type Field struct {
	ID       string `validate:"required"`
	Label    string `validate:"rich_required"`
	Required bool
	Image    string `validate:"omitempty,image_ref"`
	Input    Input  `validate:"-"`
}

func (f Field) Type() FieldType {
	if f.Input == nil {
		return FieldText
	}
	return f.Input.Type()
}

// Options returns a copy of the choice options, nil for other types.
func (f Field) Options() []string {
	c, ok := f.Input.(ChoiceInput)
	if !ok {
		return nil
	}
	opts := make([]string, len(c.Options))
	copy(opts, c.Options)
	return opts
}

func (f Field) clone() Field {
	if c, ok := f.Input.(ChoiceInput); ok {
		c.Options = append([]string{}, c.Options...)
		f.Input = c
	}
	return f
}

type fieldJSON struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
	Image    string    `json:"image,omitempty"`
}

func (f Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		ID:       f.ID,
		Type:     f.Type(),
		Label:    f.Label,
		Required: f.Required,
		Image:    f.Image,
	}
	if c, ok := f.Input.(ChoiceInput); ok {
		out.Options = c.Options
		if out.Options == nil {
			out.Options = []string{}
		}
	}
	return json.Marshal(out)
}

func (f *Field) UnmarshalJSON(data []byte) error {
	var in struct {
		fieldJSON
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	t := FieldText
	if in.Type != "" {
		var err error
		if t, err = ParseFieldType(in.Type); err != nil {
			return err
		}
	}
	input, err := NewInput(t, in.Options)
	if err != nil {
		return err
	}

	*f = Field{
		ID:       in.ID,
		Label:    in.Label,
		Required: in.Required,
		Image:    in.Image,
		Input:    input,
	}
	return nil
}
