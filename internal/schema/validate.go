package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid matches every *ValidationError.
var ErrInvalid = errors.New("schema validation failed")

// FieldIssue is one failing field. Path uses JSON names, e.g. "days[2].date".
type FieldIssue struct {
	Path  string `json:"path"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldIssue) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", f.Path, f.Rule, f.Param)
	}
	return fmt.Sprintf("%s failed %s", f.Path, f.Rule)
}

// ValidationError enumerates every field of an entity that failed validation.
type ValidationError struct {
	Entity string
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
			_, ok := CalendarDate(fl.Field().String())
			return ok
		})
		v.RegisterStructValidation(planDateOrder, Plan{}, PlanCreate{}, PlanPreview{})
		validate = v
	})
	return validate
}

func planDateOrder(sl validator.StructLevel) {
	var start, end string
	switch p := sl.Current().Interface().(type) {
	case Plan:
		start, end = p.StartDate, p.EndDate
	case PlanCreate:
		start, end = p.StartDate, p.EndDate
	case PlanPreview:
		start, end = p.StartDate, p.EndDate
	}
	s, okStart := CalendarDate(start)
	e, okEnd := CalendarDate(end)
	if okStart && okEnd && e < s {
		sl.ReportError(end, "endDate", "EndDate", "date_order", "startDate")
	}
}

// CalendarDate truncates s to its calendar date (YYYY-MM-DD). It accepts a bare
// date or a date followed by a time component ("2026-07-01T10:00:00Z").
func CalendarDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return "", false
	}
	date := s[:len(time.DateOnly)]
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", false
	}
	if rest := s[len(time.DateOnly):]; rest != "" && rest[0] != 'T' && rest[0] != ' ' {
		return "", false
	}
	return date, true
}

// Validate runs the struct rules of v. entity names the value in the error.
func Validate(entity string, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", entity, err)
	}
	return &ValidationError{Entity: entity, Issues: issuesFrom(fieldErrs, "")}
}

func issuesFrom(fieldErrs validator.ValidationErrors, prefix string) []FieldIssue {
	issues := make([]FieldIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, FieldIssue{
			Path:  prefix + fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return issues
}

// fieldPath drops the root struct name: "Forecast.days[2].date" -> "days[2].date".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// Decode parses data as T and validates it. Malformed JSON and JSON type
// mismatches are reported as *ValidationError so callers see one error kind for
// "the server answered with the wrong shape".
func Decode[T any](entity string, data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, decodeError(entity, err)
	}
	if err := Validate(entity, v); err != nil {
		return v, err
	}
	return v, nil
}

// DecodeList parses a JSON array of T and validates every element. Issue paths
// are prefixed with the element index, e.g. "[1].title".
func DecodeList[T any](entity string, data []byte) ([]T, error) {
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, decodeError(entity, err)
	}
	if list == nil {
		list = []T{}
	}

	var issues []FieldIssue
	for i, item := range list {
		err := validatorInstance().Struct(item)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("validate %s[%d]: %w", entity, i, err)
		}
		issues = append(issues, issuesFrom(fieldErrs, fmt.Sprintf("[%d].", i))...)
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Entity: entity, Issues: issues}
	}
	return list, nil
}

func decodeError(entity string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := typeErr.Field
		if path == "" {
			path = "$"
		}
		return &ValidationError{
			Entity: entity,
			Issues: []FieldIssue{{Path: path, Rule: "type", Param: typeErr.Type.String()}},
		}
	}
	return &ValidationError{
		Entity: entity,
		Issues: []FieldIssue{{Path: "$", Rule: "json", Param: err.Error()}},
	}
}
