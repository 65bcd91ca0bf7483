package rulebook

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"skaila.com/gamification/internal/entity"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is the on-disk shape of the rule tables.
type Catalog struct {
	Actions       map[entity.ActionKind]Action `yaml:"actions"`
	Caps          map[entity.Source]*int64     `yaml:"caps"`
	Ranks         []RankTier                   `yaml:"ranks"`
	StreakBonuses map[int]int64                `yaml:"streak_bonuses"`
	Modifiers     map[string]float64           `yaml:"modifiers"`
	Badges        []Badge                      `yaml:"badges"`
	Challenges    []Challenge                  `yaml:"challenges"`
	PowerUps      []PowerUp                    `yaml:"power_ups"`
	Events        []Event                      `yaml:"events"`
}

type Action struct {
	Source    entity.Source    `yaml:"source"`
	BaseXP    int64            `yaml:"base_xp"`
	Overrides []Override       `yaml:"overrides"`
	Bonuses   map[string]int64 `yaml:"bonuses"`
}

// Override replaces the base XP when all of its flags are set.
type Override struct {
	Flags  []string `yaml:"flags"`
	BaseXP int64    `yaml:"base_xp"`
}

type RankTier struct {
	Name  string `yaml:"name" json:"name"`
	MinXP int64  `yaml:"min_xp" json:"min_xp"`
	Icon  string `yaml:"icon" json:"icon"`
	Color string `yaml:"color" json:"color"`
}

type Badge struct {
	Code        string    `yaml:"code"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Icon        string    `yaml:"icon"`
	Rarity      string    `yaml:"rarity"`
	Predicate   Predicate `yaml:"predicate"`
	RewardXP    int64     `yaml:"reward_xp"`
}

// Predicate is written in YAML as a flat mapping of stat minimums plus an
// optional min_rank, e.g. {messages_sent: 100} or {min_rank: Cavaliere}.
type Predicate struct {
	Min     map[string]int64
	MinRank string
}

func (p *Predicate) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: predicate must be a mapping", value.Line)
	}
	p.Min = make(map[string]int64, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if key.Value == "min_rank" {
			p.MinRank = val.Value
			continue
		}
		var n int64
		if err := val.Decode(&n); err != nil {
			return fmt.Errorf("line %d: predicate %q: %w", val.Line, key.Value, err)
		}
		p.Min[key.Value] = n
	}
	return nil
}

type Challenge struct {
	Code        string               `yaml:"code"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Kind        entity.ChallengeKind `yaml:"kind"`
	Difficulty  entity.Difficulty    `yaml:"difficulty"`
	Objectives  entity.Objectives    `yaml:"objectives"`
	RewardXP    int64                `yaml:"reward_xp"`
	Active      *bool                `yaml:"active"`
}

func (c Challenge) IsActive() bool { return c.Active == nil || *c.Active }

// Satisfied reports whether progress meets every objective.
func (c Challenge) Satisfied(progress entity.Objectives) bool {
	for action, target := range c.Objectives {
		if progress[action] < target {
			return false
		}
	}
	return true
}

type PowerUp struct {
	Code            string  `yaml:"code"`
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	XPMultiplier    float64 `yaml:"xp_multiplier"`
	DurationMinutes int     `yaml:"duration_minutes"`
}

type Event struct {
	Code         string    `yaml:"code"`
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description"`
	XPMultiplier float64   `yaml:"xp_multiplier"`
	StartsAt     time.Time `yaml:"starts_at"`
	EndsAt       time.Time `yaml:"ends_at"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Rulebook, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(cat)
}

// LoadFile reads the catalog at path. An empty path selects the embedded
// default catalog.
func LoadFile(path string) (*Rulebook, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Default() (*Rulebook, error) {
	return Parse(defaultCatalog)
}
