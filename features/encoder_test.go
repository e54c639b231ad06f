package features

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func indexOf(t *testing.T, column string) int {
	t.Helper()
	for i, c := range Columns {
		if c == column {
			return i
		}
	}
	t.Fatalf("column %q not in Columns", column)
	return -1
}

func TestEncodeMissingAttributesDefaultToZero(t *testing.T) {
	vec, err := Default().Encode(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(vec) != len(Columns) {
		t.Fatalf("len = %d, want %d", len(vec), len(Columns))
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("slot %d (%s) = %v, want 0", i, Columns[i], v)
		}
	}
}

func TestEncodeNullCountsAsMissing(t *testing.T) {
	vec, err := Default().Encode(map[string]interface{}{"age": nil, "insurance_type": nil})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if vec[indexOf(t, "age")] != 0 || vec[indexOf(t, "insurance_type")] != 0 {
		t.Errorf("null attributes should encode to 0, got %v", vec)
	}
}

func TestEncodeGender(t *testing.T) {
	tests := []struct {
		value interface{}
		want  float64
	}{
		{"Male", 1},
		{"male", 1},
		{"MALE", 1},
		{" male", 0},
		{"female", 0},
		{"other", 0},
		{1, 1},
		{0.0, 0},
	}
	for _, tt := range tests {
		vec, err := Default().Encode(map[string]interface{}{"gender": tt.value})
		if err != nil {
			t.Fatalf("Encode(gender=%v) error: %v", tt.value, err)
		}
		if got := vec[indexOf(t, "gender")]; got != tt.want {
			t.Errorf("gender=%v encoded to %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestEncodeDayOfWeek(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
	}{
		{"int wraps", 9, 2},
		{"float wraps", 9.0, 2},
		{"string wraps", "9", 2},
		{"in range", 3, 3},
		{"seven is zero", 7, 0},
		{"negative folds positive", -1, 6},
		{"json number", json.Number("15"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := Default().Encode(map[string]interface{}{"day_of_week": tt.value})
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if got := vec[indexOf(t, "day_of_week")]; got != tt.want {
				t.Errorf("day_of_week=%v encoded to %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestEncodeTimeOfDay(t *testing.T) {
	vec, err := Default().Encode(map[string]interface{}{"time_of_day": "14:30"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got := vec[indexOf(t, "time_of_day")]
	if math.Abs(got-14.0/24.0) > 1e-9 {
		t.Errorf("time_of_day = %v, want %v", got, 14.0/24.0)
	}

	vec, err = Default().Encode(map[string]interface{}{"time_of_day": "09"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := vec[indexOf(t, "time_of_day")]; math.Abs(got-9.0/24.0) > 1e-9 {
		t.Errorf("time_of_day without minutes = %v, want %v", got, 9.0/24.0)
	}

	if _, err := Default().Encode(map[string]interface{}{"time_of_day": "noon"}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for unparseable hour, got %v", err)
	}
}

func TestEncodeCategoricalLookups(t *testing.T) {
	tests := []struct {
		column string
		value  string
		want   float64
	}{
		{"appointment_type", "routine", 0},
		{"appointment_type", "urgent", 1},
		{"appointment_type", "follow_up", 2},
		{"appointment_type", "Urgent", 0},
		{"appointment_type", "URGENT", 0},
		{"insurance_type", "Public", 2},
		{"appointment_type", "telehealth", 0},
		{"insurance_type", "private", 0},
		{"insurance_type", "public", 1},
		{"insurance_type", "none", 2},
		{"insurance_type", "unknown-plan", 2},
	}
	for _, tt := range tests {
		vec, err := Default().Encode(map[string]interface{}{tt.column: tt.value})
		if err != nil {
			t.Fatalf("Encode(%s=%s) error: %v", tt.column, tt.value, err)
		}
		if got := vec[indexOf(t, tt.column)]; got != tt.want {
			t.Errorf("%s=%q encoded to %v, want %v", tt.column, tt.value, got, tt.want)
		}
	}
}

func TestEncodeNumericStrings(t *testing.T) {
	vec, err := Default().Encode(map[string]interface{}{
		"age":                "42",
		"distance_to_clinic": " 3.5 ",
		"weather_condition":  2,
	})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if vec[indexOf(t, "age")] != 42 {
		t.Errorf("age = %v, want 42", vec[indexOf(t, "age")])
	}
	if vec[indexOf(t, "distance_to_clinic")] != 3.5 {
		t.Errorf("distance_to_clinic = %v, want 3.5", vec[indexOf(t, "distance_to_clinic")])
	}
	if vec[indexOf(t, "weather_condition")] != 2 {
		t.Errorf("weather_condition = %v, want 2", vec[indexOf(t, "weather_condition")])
	}
}

func TestEncodeMalformedNumericFails(t *testing.T) {
	_, err := Default().Encode(map[string]interface{}{"age": "forty"})
	if err == nil {
		t.Fatal("expected error for non-numeric age")
	}
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("error should wrap ErrInvalidValue, got %v", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error should be a *FieldError, got %T", err)
	}
	if fe.Field != "age" {
		t.Errorf("Field = %q, want %q", fe.Field, "age")
	}
}

func TestEncodeRejectsNonFinite(t *testing.T) {
	tests := []struct {
		column string
		value  interface{}
	}{
		{"age", "NaN"},
		{"age", "Inf"},
		{"distance_to_clinic", "-Infinity"},
		{"previous_no_shows", math.NaN()},
		{"days_since_last_visit", math.Inf(1)},
		{"day_of_week", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			_, err := Default().Encode(map[string]interface{}{tt.column: tt.value})
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("%s=%v: expected ErrInvalidValue, got %v", tt.column, tt.value, err)
			}
		})
	}
}

func TestEncodeDayOfWeekStringMustBeInteger(t *testing.T) {
	for _, v := range []string{"9.5", "Monday", "NaN"} {
		if _, err := Default().Encode(map[string]interface{}{"day_of_week": v}); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("day_of_week=%q: expected ErrInvalidValue, got %v", v, err)
		}
	}
}

func TestEncodeUnsupportedType(t *testing.T) {
	_, err := Default().Encode(map[string]interface{}{"age": []int{1, 2}})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for slice value, got %v", err)
	}
}

func TestEncodeIgnoresExtraFields(t *testing.T) {
	vec, err := Default().Encode(map[string]interface{}{
		"age":         30,
		"shoe_size":   "not-a-number",
		"favourite":   map[string]interface{}{"colour": "blue"},
		"appointment": "routine",
	})
	if err != nil {
		t.Fatalf("extra fields should be ignored, got error: %v", err)
	}
	if len(vec) != len(Columns) {
		t.Errorf("len = %d, want %d", len(vec), len(Columns))
	}
}

func TestEncodeBatchReportsRow(t *testing.T) {
	rows := []map[string]interface{}{
		{"age": 20},
		{"age": "bad"},
	}
	if _, err := Default().EncodeBatch(rows); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue from batch, got %v", err)
	}

	out, err := Default().EncodeBatch(rows[:1])
	if err != nil {
		t.Fatalf("EncodeBatch() error: %v", err)
	}
	if len(out) != 1 || out[0][0] != 20 {
		t.Errorf("EncodeBatch() = %v", out)
	}
}

func TestEncoderColumnsAreCopied(t *testing.T) {
	cols := []string{"age", "gender"}
	enc := NewEncoder(cols)
	cols[0] = "mutated"
	if enc.Columns()[0] != "age" {
		t.Error("encoder should not alias the caller's column slice")
	}
	if enc.Size() != 2 {
		t.Errorf("Size() = %d, want 2", enc.Size())
	}
}
