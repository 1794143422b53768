package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`

	DefaultMaxStack int `yaml:"default_max_stack" json:"default_max_stack"`
	HopperSlots     int `yaml:"hopper_slots" json:"hopper_slots"`
	ChestSlots      int `yaml:"chest_slots" json:"chest_slots"`
	MaxPowerNodes   int `yaml:"max_power_nodes" json:"max_power_nodes"`

	IndexEnabled bool `yaml:"index_enabled" json:"index_enabled"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		SnapshotEveryTicks: 3000,
		DefaultMaxStack:    64,
		HopperSlots:        5,
		ChestSlots:         27,
		MaxPowerNodes:      256,
		IndexEnabled:       true,
	}
}

// Load reads a tuning file over Defaults; keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.DefaultMaxStack <= 0 || t.DefaultMaxStack > 64 {
		return fmt.Errorf("default_max_stack must be in 1..64")
	}
	if t.HopperSlots <= 0 || t.ChestSlots <= 0 {
		return fmt.Errorf("container slots must be > 0")
	}
	if t.MaxPowerNodes <= 0 {
		return fmt.Errorf("max_power_nodes must be > 0")
	}
	return nil
}

// Digest hashes the canonical JSON of the applied values.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
