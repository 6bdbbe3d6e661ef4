package model

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
)

var ErrIndexOutOfRange = errors.New("field index out of range")

type Direction int

const (
	Up Direction = iota
	Down
)

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// NewFieldID generates field identifiers. Tests may replace it.
var NewFieldID = func() string {
	return uuid.Must(uuid.NewV4()).String()
}

// FieldUpdate is a partial update; nil members are left untouched.
// Options only apply when the resulting type is a choice type.
type FieldUpdate struct {
	Type     *FieldType `json:"type,omitempty"`
	Label    *string    `json:"label,omitempty"`
	Required *bool      `json:"required,omitempty"`
	Options  []string   `json:"options,omitempty"`
	Image    *string    `json:"image,omitempty"`
}

// Clone returns a copy of s that shares no slices with it.
func (s Schema) Clone() Schema {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = f.clone()
		}
	}
	if s.EventDate != nil {
		d := *s.EventDate
		out.EventDate = &d
	}
	if s.EventEndTime != nil {
		d := *s.EventEndTime
		out.EventEndTime = &d
	}
	return out
}

func checkIndex(s Schema, index int) error {
	if index < 0 || index >= len(s.Fields) {
		return fmt.Errorf("%w: %d (fields: %d)", ErrIndexOutOfRange, index, len(s.Fields))
	}
	return nil
}

// AddField appends an empty, optional text field with a fresh id.
func AddField(s Schema) Schema {
	out := s.Clone()
	out.Fields = append(out.Fields, Field{
		ID:    NewFieldID(),
		Input: TextInput{},
	})
	return out
}

func UpdateField(s Schema, index int, upd FieldUpdate) (Schema, error) {
	if err := checkIndex(s, index); err != nil {
		return s, err
	}

	out := s.Clone()
	if upd.Type != nil {
		var err error
		if out, err = SetFieldType(out, index, *upd.Type); err != nil {
			return s, err
		}
	}

	f := &out.Fields[index]
	if upd.Label != nil {
		f.Label = *upd.Label
	}
	if upd.Required != nil {
		f.Required = *upd.Required
	}
	if upd.Image != nil {
		f.Image = *upd.Image
	}
	if upd.Options != nil {
		if c, ok := f.Input.(ChoiceInput); ok {
			c.Options = append([]string{}, upd.Options...)
			f.Input = c
		}
	}
	return out, nil
}

// MoveField swaps the field at index with its neighbour. Moves that would
// leave the field list are ignored.
func MoveField(s Schema, index int, dir Direction) Schema {
	target := index - 1
	if dir == Down {
		target = index + 1
	}
	if checkIndex(s, index) != nil || checkIndex(s, target) != nil {
		return s
	}

	out := s.Clone()
	out.Fields[index], out.Fields[target] = out.Fields[target], out.Fields[index]
	return out
}

func DeleteField(s Schema, index int) (Schema, error) {
	if err := checkIndex(s, index); err != nil {
		return s, err
	}

	out := s.Clone()
	out.Fields = append(out.Fields[:index:index], out.Fields[index+1:]...)
	return out, nil
}

// SetFieldType changes the input of a field. Options survive a switch
// between select and multiselect and are dropped for any other type.
func SetFieldType(s Schema, index int, t FieldType) (Schema, error) {
	if err := checkIndex(s, index); err != nil {
		return s, err
	}

	f := s.Fields[index]
	if f.Type() == t {
		return s.Clone(), nil
	}

	input, err := NewInput(t, f.Options())
	if err != nil {
		return s, err
	}

	out := s.Clone()
	out.Fields[index].Input = input
	return out, nil
}
