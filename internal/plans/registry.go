// Package plans loads the billing plan table embedded in the binary.
package plans

import (
	"embed"
	"fmt"
	"sync"

	"botcraft/internal/domain/models"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Plan is one billing tier.
type Plan struct {
	ID            models.PlanTier `yaml:"id" json:"id"`
	DisplayName   string          `yaml:"display_name" json:"displayName"`
	BotsLimit     int             `yaml:"bots_limit" json:"botsLimit"`
	RequestsLimit int64           `yaml:"requests_limit" json:"requestsLimit"`
	PriceINR      float64         `yaml:"price_inr" json:"price"`
}

type planFile struct {
	Default models.PlanTier `yaml:"default"`
	Plans   []Plan          `yaml:"plans"`
}

// Registry answers plan lookups.
type Registry struct {
	mu          sync.RWMutex
	plans       map[models.PlanTier]Plan
	order       []models.PlanTier
	defaultPlan models.PlanTier
}

// NewRegistry loads the embedded plan table.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/plans.yaml")
	if err != nil {
		return nil, fmt.Errorf("read plans.yaml: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal plans: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("no plans defined")
	}

	r := &Registry{plans: make(map[models.PlanTier]Plan, len(file.Plans))}
	for _, p := range file.Plans {
		if p.ID == "" {
			return nil, fmt.Errorf("plan without id")
		}
		if _, dup := r.plans[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan %s", p.ID)
		}
		if p.BotsLimit < 0 || p.RequestsLimit < 0 {
			return nil, fmt.Errorf("plan %s has negative limits", p.ID)
		}
		r.plans[p.ID] = p
		r.order = append(r.order, p.ID)
	}

	r.defaultPlan = file.Default
	if r.defaultPlan == "" {
		r.defaultPlan = r.order[0]
	}
	if _, ok := r.plans[r.defaultPlan]; !ok {
		return nil, fmt.Errorf("default plan %s is not defined", r.defaultPlan)
	}
	return r, nil
}

// Get returns the plan with id.
func (r *Registry) Get(id models.PlanTier) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan: %s", id)
	}
	return p, nil
}

// Default returns the plan assigned to new users.
func (r *Registry) Default() Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plans[r.defaultPlan]
}

// List returns the plans in file order.
func (r *Registry) List() []Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plan, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plans[id])
	}
	return out
}
