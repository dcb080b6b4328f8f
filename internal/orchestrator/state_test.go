package orchestrator

import (
	"encoding/json"
	"testing"
)

func TestStateJSONRoundTrip(t *testing.T) {
	for s := Idle; s <= Interrupted; s++ {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", s, err)
		}
		var got State
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", b, err)
		}
		if got != s {
			t.Errorf("round trip of %v = %v", s, got)
		}
	}
}

func TestStateUnmarshalUnknown(t *testing.T) {
	tests := []string{`"UNKNOWN"`, `"recording"`, `""`}
	for _, in := range tests {
		var s State
		if err := json.Unmarshal([]byte(in), &s); err == nil {
			t.Errorf("Unmarshal(%s) = %v, want error", in, s)
		}
	}
}
