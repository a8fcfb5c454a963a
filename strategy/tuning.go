// Package strategy is the bot's decision core: a heuristic scorer, a
// cluster-based target selector and the forage/return policy that turns a
// target into a single step.
//
// Everything here is a pure function of the snapshot plus the small goal
// cache owned by each Bot. Nothing in this package performs I/O apart from
// LoadTuning.
package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Metric selects the distance used for neighborhood tests.
type Metric string

const (
	Manhattan Metric = "manhattan"
	Chebyshev Metric = "chebyshev"
)

// Tuning collects every constant the strategy uses.
type Tuning struct {
	// Inventory
	InventoryCapacity int `yaml:"inventory_capacity"`
	IgnoreHighValueAt int `yaml:"ignore_high_value_at"`

	// Item weights
	LowValueWeight      float64 `yaml:"low_value_weight"`
	HighValueWeight     float64 `yaml:"high_value_weight"`
	BonusWeight         float64 `yaml:"bonus_weight"`
	BonusStarvedWeight  float64 `yaml:"bonus_starved_weight"`
	StarvedRadius       int     `yaml:"starved_radius"`
	StarvedMaxHighValue int     `yaml:"starved_max_high_value"`

	// Scorer
	DensityRadius    int     `yaml:"density_radius"`
	DensityMetric    Metric  `yaml:"density_metric"`
	DensityScale     float64 `yaml:"density_scale"`
	TimePenaltyScale float64 `yaml:"time_penalty_scale"`

	// Selector
	ClusterRadius  int    `yaml:"cluster_radius"`
	ClusterMetric  Metric `yaml:"cluster_metric"`
	NearBaseRadius int    `yaml:"near_base_radius"`

	// Return-to-base policy
	ReturnMarginSeconds int `yaml:"return_margin_seconds"`
	BankInventory       int `yaml:"bank_inventory"`
	BankBaseRadius      int `yaml:"bank_base_radius"`
	NearbyRadius        int `yaml:"nearby_radius"`
	LastChanceSeconds   int `yaml:"last_chance_seconds"`

	// Search
	MaxRouteLength int `yaml:"max_route_length"`
}

// DefaultTuning returns the constants the bot ships with.
func DefaultTuning() Tuning {
	return Tuning{
		InventoryCapacity: 5,
		IgnoreHighValueAt: 4,

		LowValueWeight:      1,
		HighValueWeight:     2,
		BonusWeight:         1,
		BonusStarvedWeight:  4,
		StarvedRadius:       4,
		StarvedMaxHighValue: 2,

		DensityRadius:    2,
		DensityMetric:    Chebyshev,
		DensityScale:     0.5,
		TimePenaltyScale: 0.5,

		ClusterRadius:  2,
		ClusterMetric:  Manhattan,
		NearBaseRadius: 5,

		ReturnMarginSeconds: 5,
		BankInventory:       2,
		BankBaseRadius:      5,
		NearbyRadius:        3,
		LastChanceSeconds:   5,

		MaxRouteLength: 200,
	}
}

// LoadTuning reads a YAML file over DefaultTuning, so a file only needs the
// keys it changes.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.InventoryCapacity <= 0 {
		return fmt.Errorf("inventory_capacity must be positive, got %d", t.InventoryCapacity)
	}
	if t.MaxRouteLength <= 0 {
		return fmt.Errorf("max_route_length must be positive, got %d", t.MaxRouteLength)
	}
	for name, m := range map[string]Metric{"density_metric": t.DensityMetric, "cluster_metric": t.ClusterMetric} {
		if m != Manhattan && m != Chebyshev {
			return fmt.Errorf("%s must be %q or %q, got %q", name, Manhattan, Chebyshev, m)
		}
	}
	for name, r := range map[string]int{
		"starved_radius":   t.StarvedRadius,
		"density_radius":   t.DensityRadius,
		"cluster_radius":   t.ClusterRadius,
		"near_base_radius": t.NearBaseRadius,
		"nearby_radius":    t.NearbyRadius,
		"bank_base_radius": t.BankBaseRadius,
	} {
		if r < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, r)
		}
	}
	return nil
}
