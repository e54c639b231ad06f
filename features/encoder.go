package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Columns is the canonical feature order. Trained networks consume vectors
// positionally, so this order must never change between versions.
var Columns = []string{
	"age",
	"gender",
	"day_of_week",
	"time_of_day",
	"previous_no_shows",
	"days_since_last_visit",
	"appointment_type",
	"insurance_type",
	"distance_to_clinic",
	"weather_condition",
}

var appointmentTypes = map[string]float64{
	"routine":   0,
	"urgent":    1,
	"follow_up": 2,
}

var insuranceTypes = map[string]float64{
	"private": 0,
	"public":  1,
	"none":    2,
}

const (
	defaultAppointmentType = 0
	defaultInsuranceType   = 2
)

// ErrInvalidValue is wrapped by every encoding failure so callers can map it
// to a client-input error.
var ErrInvalidValue = errors.New("invalid feature value")

type FieldError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feature %q: cannot convert %v: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("feature %q: cannot convert %v", e.Field, e.Value)
}

func (e *FieldError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidValue, e.Err}
	}
	return []error{ErrInvalidValue}
}

// Encoder maps loosely typed attribute maps to fixed-order vectors.
type Encoder struct {
	columns []string
}

func NewEncoder(columns []string) *Encoder {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Encoder{columns: cols}
}

// Default returns an encoder over the canonical columns.
func Default() *Encoder {
	return NewEncoder(Columns)
}

func (e *Encoder) Columns() []string {
	cols := make([]string, len(e.columns))
	copy(cols, e.columns)
	return cols
}

func (e *Encoder) Size() int {
	return len(e.columns)
}

// Encode returns one slot per column. Missing or null attributes encode as 0
// and attributes outside the column list are ignored.
func (e *Encoder) Encode(attrs map[string]interface{}) ([]float64, error) {
	vec := make([]float64, len(e.columns))
	for i, column := range e.columns {
		raw, ok := attrs[column]
		if !ok || raw == nil {
			continue
		}
		v, err := encodeValue(column, raw)
		if err != nil {
			return nil, err
		}
		vec[i] = v
	}
	return vec, nil
}

// EncodeBatch encodes every row, reporting the failing row index.
func (e *Encoder) EncodeBatch(rows []map[string]interface{}) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		vec, err := e.Encode(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func encodeValue(column string, raw interface{}) (float64, error) {
	if s, ok := raw.(string); ok {
		return encodeString(column, s)
	}

	f, err := toFloat(raw)
	if err == nil {
		err = checkFinite(f)
	}
	if err != nil {
		return 0, &FieldError{Field: column, Value: raw, Err: err}
	}
	if column == "day_of_week" {
		return dayOfWeek(f), nil
	}
	return f, nil
}

// encodeString applies the column rules to a string value. Only gender is
// case-insensitive; categorical keys must match exactly.
func encodeString(column, s string) (float64, error) {
	value := strings.TrimSpace(s)

	switch column {
	case "gender":
		if strings.EqualFold(s, "male") {
			return 1, nil
		}
		return 0, nil

	case "day_of_week":
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, &FieldError{Field: column, Value: s, Err: err}
		}
		return dayOfWeek(float64(n)), nil

	case "time_of_day":
		hourPart, _, _ := strings.Cut(value, ":")
		hour, err := strconv.Atoi(strings.TrimSpace(hourPart))
		if err != nil {
			return 0, &FieldError{Field: column, Value: s, Err: err}
		}
		return float64(hour) / 24.0, nil

	case "appointment_type":
		if v, ok := appointmentTypes[s]; ok {
			return v, nil
		}
		return defaultAppointmentType, nil

	case "insurance_type":
		if v, ok := insuranceTypes[s]; ok {
			return v, nil
		}
		return defaultInsuranceType, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err == nil {
		err = checkFinite(f)
	}
	if err != nil {
		return 0, &FieldError{Field: column, Value: s, Err: err}
	}
	return f, nil
}

var errNotFinite = errors.New("value is not a finite number")

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errNotFinite
	}
	return nil
}

// dayOfWeek truncates to an integer and folds it into 0..6.
func dayOfWeek(f float64) float64 {
	n := int64(math.Trunc(f)) % 7
	if n < 0 {
		n += 7
	}
	return float64(n)
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
