package assessment

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeValidated_LearningUnit(t *testing.T) {
	var unit LearningUnit
	err := decodeValidated(learningUnitSchema, `{"title":"T","summary":"S","kiu":1.5}`, &unit)
	if err != nil {
		t.Fatalf("decodeValidated() error = %v", err)
	}
	if unit.Title != "T" || unit.KIU != 1.5 {
		t.Errorf("unit = %+v", unit)
	}

	if err := decodeValidated(learningUnitSchema, `{"title":"","summary":"S"}`, &unit); err == nil {
		t.Error("empty title should fail validation")
	}
	if err := decodeValidated(learningUnitSchema, `not json`, &unit); err == nil {
		t.Error("non-JSON should fail")
	}
}
