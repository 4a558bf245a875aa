package plans

import (
	"testing"

	"botcraft/internal/domain/models"
)

func TestNewRegistry_EmbeddedPlans(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		id       models.PlanTier
		bots     int
		requests int64
	}{
		{models.PlanFree, 2, 100},
		{models.PlanPro, 10, 15000},
	}
	for _, tt := range tests {
		p, err := r.Get(tt.id)
		if err != nil {
			t.Fatalf("Get(%s): %v", tt.id, err)
		}
		if p.BotsLimit != tt.bots || p.RequestsLimit != tt.requests {
			t.Errorf("%s = %d bots / %d requests, want %d / %d", tt.id, p.BotsLimit, p.RequestsLimit, tt.bots, tt.requests)
		}
	}

	if r.Default().ID != models.PlanFree {
		t.Errorf("default plan = %s, want FREE", r.Default().ID)
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("List returned %d plans", got)
	}
	if _, err := r.Get("ENTERPRISE"); err == nil {
		t.Error("expected error for unknown plan")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "plans: []"},
		{"duplicate", "plans:\n  - id: A\n  - id: A\n"},
		{"missing id", "plans:\n  - bots_limit: 1\n"},
		{"negative", "plans:\n  - id: A\n    bots_limit: -1\n"},
		{"unknown default", "default: B\nplans:\n  - id: A\n"},
		{"malformed", "plans: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
