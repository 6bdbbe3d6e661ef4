package model

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/quick-forms/sanitize"
)

var (
	ErrInvalidEventRange = errors.New("event_end_time must be after event_date")
	ErrDuplicateFieldID  = errors.New("duplicate field id")
	ErrInvalidOption     = errors.New("invalid option")
	ErrUnknownAnswer     = errors.New("answer for unknown field")
	ErrMissingAnswer     = errors.New("answer required")
	ErrInvalidAnswer     = errors.New("invalid answer")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return strings.ToLower(fld.Name)
			}
			return name
		})
		validate.RegisterValidation("rich_required", func(fl validator.FieldLevel) bool {
			return !sanitize.IsBlank(fl.Field().String())
		})
		validate.RegisterValidation("image_ref", func(fl validator.FieldLevel) bool {
			return IsImageRef(fl.Field().String())
		})
		validate.RegisterStructValidation(validateFieldOptions, Field{})
	})
	return validate
}

func validateFieldOptions(sl validator.StructLevel) {
	f := sl.Current().Interface().(Field)
	if c, ok := f.Input.(ChoiceInput); ok && len(c.Options) == 0 {
		sl.ReportError(c.Options, "options", "Options", "min_options", "")
	}
}

// IsImageRef accepts absolute http(s) URLs and server-absolute paths.
func IsImageRef(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "":
		return u.Host == "" && strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//")
	}
	return false
}

// Check verifies the structural invariants of a schema, which hold for
// drafts as well as for complete forms.
func Check(s Schema) error {
	var errs *multierror.Error

	if s.EventDate != nil && s.EventEndTime != nil && !s.EventEndTime.After(*s.EventDate) {
		errs = multierror.Append(errs, ErrInvalidEventRange)
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.ID != "" {
			if seen[f.ID] {
				errs = multierror.Append(errs, fmt.Errorf("fields[%d]: %w %q", i, ErrDuplicateFieldID, f.ID))
			}
			seen[f.ID] = true
		}

		c, ok := f.Input.(ChoiceInput)
		if !ok {
			continue
		}
		opts := make(map[string]bool, len(c.Options))
		for j, o := range c.Options {
			switch {
			case strings.TrimSpace(o) == "":
				errs = multierror.Append(errs, fmt.Errorf("fields[%d].options[%d]: %w: blank", i, j, ErrInvalidOption))
			case opts[o]:
				errs = multierror.Append(errs, fmt.Errorf("fields[%d].options[%d]: %w: duplicate %q", i, j, ErrInvalidOption, o))
			}
			opts[o] = true
		}
	}

	return errs.ErrorOrNil()
}

// Validate runs Check plus the completeness rules a form must satisfy
// before it is submitted as a whole.
func Validate(s Schema) error {
	var errs *multierror.Error
	if err := Check(s); err != nil {
		errs = multierror.Append(errs, err)
	}

	err := getValidator().Struct(s)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			errs = multierror.Append(errs, errors.New(describe(fe)))
		}
	} else if err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}

	switch fe.Tag() {
	case "rich_required":
		return path + ": must not be blank"
	case "required":
		return path + ": is required"
	case "min":
		if fe.Field() == "fields" {
			return "fields: at least one field is required"
		}
		return fmt.Sprintf("%s: needs at least %s items", path, fe.Param())
	case "min_options":
		return path + ": needs at least one option"
	case "image_ref":
		return path + ": must be an http(s) URL or an absolute path"
	}
	return fmt.Sprintf("%s: failed %q", path, fe.Tag())
}

// ValidateAnswers checks a submission against the schema it answers.
func ValidateAnswers(s Schema, answers map[string]any) error {
	var errs *multierror.Error

	for id := range answers {
		if s.FieldIndex(id) < 0 {
			errs = multierror.Append(errs, fmt.Errorf("%w %q", ErrUnknownAnswer, id))
		}
	}

	for _, f := range s.Fields {
		v, ok := answers[f.ID]
		if !ok || isEmptyAnswer(v) {
			if f.Required {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", fieldName(f), ErrMissingAnswer))
			}
			continue
		}
		if msg := checkAnswer(f, v); msg != "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w: %s", fieldName(f), ErrInvalidAnswer, msg))
		}
	}

	return errs.ErrorOrNil()
}

func fieldName(f Field) string {
	if text := sanitize.PlainText(f.Label); text != "" {
		return fmt.Sprintf("%q", text)
	}
	return f.ID
}

func isEmptyAnswer(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func checkAnswer(f Field, v any) string {
	switch in := f.Input.(type) {
	case NumberInput:
		switch n := v.(type) {
		case float64, int, int64:
			return ""
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return ""
			}
		}
		return "not a number"

	case EmailInput:
		str, ok := v.(string)
		if !ok || getValidator().Var(strings.TrimSpace(str), "email") != nil {
			return "not a valid email address"
		}

	case ImageInput:
		str, ok := v.(string)
		if !ok || !IsImageRef(str) {
			return "not an image reference"
		}

	case ChoiceInput:
		values, ok := choiceValues(v, in.Multiple)
		if !ok {
			if in.Multiple {
				return "expected a list of options"
			}
			return "expected a single option"
		}
		for _, value := range values {
			if !contains(in.Options, value) {
				return fmt.Sprintf("%q is not an option", value)
			}
		}

	default:
		if _, ok := v.(string); !ok {
			return "expected text"
		}
	}
	return ""
}

func choiceValues(v any, multiple bool) ([]string, bool) {
	if !multiple {
		str, ok := v.(string)
		return []string{str}, ok
	}

	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Problems flattens a validation error into one message per problem.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}

	var out []string
	for _, e := range merr.Errors {
		out = append(out, Problems(e)...)
	}
	return out
}
