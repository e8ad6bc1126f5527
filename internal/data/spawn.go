package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldcore/internal/world"
)

// SpawnInfo defines where and how many creatures to spawn.
type SpawnInfo struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind,omitempty"` // "monster" (default) or "npc"
	X       int32  `yaml:"x"`
	Y       int32  `yaml:"y"`
	Z       int32  `yaml:"z"`
	Count   int    `yaml:"count,omitempty"`
	RandomX int32  `yaml:"randomx,omitempty"`
	RandomY int32  `yaml:"randomy,omitempty"`
	Heading int    `yaml:"heading,omitempty"` // 0=N .. 7=NW

	// AI is the Lua function that decides the monster's action. Empty
	// uses the built-in chase rule.
	AI string `yaml:"ai,omitempty"`
	// Range is the distance the monster tries to keep from its target.
	Range int32 `yaml:"range,omitempty"`

	Immune        []string `yaml:"immune,omitempty"`
	FieldWalk     []string `yaml:"field_walk,omitempty"`
	PushItems     bool     `yaml:"push_items,omitempty"`
	PushCreatures bool     `yaml:"push_creatures,omitempty"`
	Pushable      bool     `yaml:"pushable,omitempty"`
}

type spawnListFile struct {
	Spawns []SpawnInfo `yaml:"spawns"`
}

// LoadSpawns loads the spawn list from a YAML file.
func LoadSpawns(path string) ([]SpawnInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	for i := range f.Spawns {
		s := &f.Spawns[i]
		if s.Count <= 0 {
			s.Count = 1
		}
		if s.Range <= 0 {
			s.Range = 1
		}
		if _, err := s.CreatureKind(); err != nil {
			return nil, fmt.Errorf("spawn %d (%s): %w", i, s.Name, err)
		}
		if _, err := s.Traits(); err != nil {
			return nil, fmt.Errorf("spawn %d (%s): %w", i, s.Name, err)
		}
		if s.Heading < 0 || s.Heading > 7 {
			return nil, fmt.Errorf("spawn %d (%s): heading %d out of range", i, s.Name, s.Heading)
		}
	}
	return f.Spawns, nil
}

func (s *SpawnInfo) Position() world.Position {
	return world.Pos(s.X, s.Y, s.Z)
}

func (s *SpawnInfo) CreatureKind() (world.CreatureKind, error) {
	switch s.Kind {
	case "", "monster":
		return world.KindMonster, nil
	case "npc":
		return world.KindNpc, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s.Kind)
}

// Traits converts the movement fields into world.Traits.
func (s *SpawnInfo) Traits() (world.Traits, error) {
	immune, err := combatMask(s.Immune)
	if err != nil {
		return world.Traits{}, fmt.Errorf("immune: %w", err)
	}
	walk, err := combatMask(s.FieldWalk)
	if err != nil {
		return world.Traits{}, fmt.Errorf("field_walk: %w", err)
	}
	return world.Traits{
		Pushable:      s.Pushable,
		PushItems:     s.PushItems,
		PushCreatures: s.PushCreatures,
		Immune:        immune,
		FieldWalk:     walk,
	}, nil
}

func combatMask(names []string) (world.CombatMask, error) {
	var mask world.CombatMask
	for _, n := range names {
		ct, ok := world.ParseCombatType(n)
		if !ok {
			return 0, fmt.Errorf("unknown combat type %q", n)
		}
		mask |= world.MaskOf(ct)
	}
	return mask, nil
}
