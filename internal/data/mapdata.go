package data

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldcore/internal/world"
)

// Layer file formats.
const (
	FormatItems = "items" // cells are ground[/item...] ids
	FormatFlags = "flags" // cells are legacy passability bytes
)

// MapInfo holds the manifest of a map, loaded from map.yaml.
type MapInfo struct {
	Name    string      `yaml:"name"`
	Width   int32       `yaml:"width"`
	Height  int32       `yaml:"height"`
	OriginX int32       `yaml:"origin_x,omitempty"`
	OriginY int32       `yaml:"origin_y,omitempty"`
	TileDir string      `yaml:"tile_dir,omitempty"`
	Legacy  LegacyItems `yaml:"legacy,omitempty"`
	Layers  []LayerInfo `yaml:"layers"`
	Zones   []ZoneInfo  `yaml:"zones,omitempty"`

	// filled in by LoadMap
	Tiles     int      `yaml:"-"`
	ZoneTiles int      `yaml:"-"`
	Skipped   []string `yaml:"-"` // layer files that were missing
}

// LayerInfo names the tile file of one floor.
type LayerInfo struct {
	Z      int32  `yaml:"z"`
	File   string `yaml:"file"`
	Format string `yaml:"format,omitempty"` // FormatItems when empty
}

// ZoneInfo flags every existing tile inside an inclusive box.
type ZoneInfo struct {
	Kind string `yaml:"kind"`
	X1   int32  `yaml:"x1"`
	Y1   int32  `yaml:"y1"`
	X2   int32  `yaml:"x2"`
	Y2   int32  `yaml:"y2"`
	Z    int32  `yaml:"z"`
}

// LegacyItems maps the passability bytes of flag-format layers onto item
// types. Fence is used for tiles that stop walkers but not missiles; when
// unset those tiles get a Wall.
type LegacyItems struct {
	Ground uint16 `yaml:"ground"`
	Wall   uint16 `yaml:"wall"`
	Fence  uint16 `yaml:"fence,omitempty"`
}

// Passability byte layout of flag-format layers.
const (
	tilePassableEast  byte = 0x01 // bit 0
	tilePassableNorth byte = 0x02 // bit 1
	tileArrowEast     byte = 0x04 // bit 2
	tileArrowNorth    byte = 0x08 // bit 3
	tileZoneMask      byte = 0x30 // bits 4-5
	tileZoneSafety    byte = 0x10
	tileZoneCombat    byte = 0x20
)

// LoadOptions controls LoadMap.
type LoadOptions struct {
	// Strict turns a missing layer file into an error.
	Strict bool
	Log    *zap.Logger
}

type cellFunc func(cell string) (*world.Tile, error)

// LoadMap reads the manifest at path and stores its tiles and zones in m.
// Layer files are resolved relative to the manifest's directory. On error
// m may hold the layers read so far.
func LoadMap(path string, items *ItemTable, m *world.Map, opts LoadOptions) (*MapInfo, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map manifest %s: %w", path, err)
	}
	var info MapInfo
	if err := yaml.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parse map manifest: %w", err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("map %q: invalid size %dx%d", info.Name, info.Width, info.Height)
	}
	m.SetSize(info.Width, info.Height)

	dir := filepath.Join(filepath.Dir(path), info.TileDir)
	var errs error
	for _, layer := range info.Layers {
		if layer.Z < world.LayerLowerLimit || layer.Z > world.LayerUpperLimit {
			errs = multierr.Append(errs, fmt.Errorf("layer %s: z %d out of range", layer.File, layer.Z))
			continue
		}
		cells, err := info.layerCells(layer, items)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		file := filepath.Join(dir, layer.File)
		n, err := loadTileFile(file, info, layer.Z, cells, m)
		switch {
		case err == nil:
			info.Tiles += n
			log.Debug("layer loaded", zap.String("file", layer.File), zap.Int32("z", layer.Z), zap.Int("tiles", n))
		case errors.Is(err, fs.ErrNotExist) && !opts.Strict:
			// a missing layer file is non-fatal: log and skip
			log.Warn("layer file missing", zap.String("file", file))
			info.Skipped = append(info.Skipped, layer.File)
		default:
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}

	for _, z := range info.Zones {
		n, err := applyZone(m, z)
		if err != nil {
			return nil, err
		}
		info.ZoneTiles += n
	}

	log.Info("map loaded",
		zap.String("name", info.Name),
		zap.Int("tiles", info.Tiles),
		zap.Int("zone_tiles", info.ZoneTiles),
		zap.Int("skipped_layers", len(info.Skipped)))
	return &info, nil
}

func (info *MapInfo) layerCells(layer LayerInfo, items *ItemTable) (cellFunc, error) {
	switch layer.Format {
	case "", FormatItems:
		return func(cell string) (*world.Tile, error) {
			return itemCell(items, cell)
		}, nil
	case FormatFlags:
		ground := items.Get(info.Legacy.Ground)
		if ground == nil {
			return nil, fmt.Errorf("layer %s: legacy ground %d: %w", layer.File, info.Legacy.Ground, ErrUnknownItem)
		}
		wall := items.Get(info.Legacy.Wall)
		if wall == nil {
			return nil, fmt.Errorf("layer %s: legacy wall %d: %w", layer.File, info.Legacy.Wall, ErrUnknownItem)
		}
		fence := wall
		if info.Legacy.Fence != 0 {
			if fence = items.Get(info.Legacy.Fence); fence == nil {
				return nil, fmt.Errorf("layer %s: legacy fence %d: %w", layer.File, info.Legacy.Fence, ErrUnknownItem)
			}
		}
		return func(cell string) (*world.Tile, error) {
			val, err := strconv.ParseUint(cell, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("bad tile byte %q", cell)
			}
			return flagTile(byte(val), ground, wall, fence), nil
		}, nil
	}
	return nil, fmt.Errorf("layer %s: unknown format %q", layer.File, layer.Format)
}

// itemCell parses "ground[/item...]". "0" and "" are empty cells.
func itemCell(items *ItemTable, cell string) (*world.Tile, error) {
	if cell == "" || cell == "0" {
		return nil, nil
	}
	parts := strings.Split(cell, "/")
	stack := make([]*world.Item, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad item id %q", p)
		}
		it, err := items.NewItem(uint16(id))
		if err != nil {
			return nil, err
		}
		stack = append(stack, it)
	}
	return world.NewTile(stack[0], stack[1:]...), nil
}

// flagTile converts a legacy passability byte. 0 is an empty cell.
func flagTile(b byte, ground, wall, fence *world.ItemType) *world.Tile {
	if b == 0 {
		return nil
	}
	var t *world.Tile
	switch {
	case b&(tilePassableEast|tilePassableNorth) != 0:
		t = world.NewTile(world.NewItem(ground))
	case b&(tileArrowEast|tileArrowNorth) != 0:
		t = world.NewTile(world.NewItem(ground), world.NewItem(fence))
	default:
		t = world.NewTile(world.NewItem(ground), world.NewItem(wall))
	}
	switch b & tileZoneMask {
	case tileZoneSafety:
		t.SetZone(world.ZoneProtection)
	case tileZoneCombat:
		t.SetZone(world.ZonePvP)
	}
	return t
}

// loadTileFile reads a CSV tile file: each line is a row of comma-separated cells.
// File rows = Y lines, columns = X values, both offset by the map origin.
func loadTileFile(path string, info MapInfo, z int32, cells cellFunc, m *world.Map) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// wide maps produce long lines
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	placed := 0
	row := int32(0)
	lineNo := 0
	for scanner.Scan() && row < info.Height {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		col := int32(0)
		for _, tok := range strings.Split(line, ",") {
			if col >= info.Width {
				break
			}
			x, y := info.OriginX+col, info.OriginY+row
			col++
			t, err := cells(strings.TrimSpace(tok))
			if err != nil {
				return placed, fmt.Errorf("%s:%d: column %d: %w", filepath.Base(path), lineNo, col, err)
			}
			if t == nil {
				continue
			}
			if err := m.SetTile(world.Pos(x, y, z), t); err != nil {
				return placed, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err)
			}
			placed++
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return placed, fmt.Errorf("scan %s: %w", path, err)
	}
	return placed, nil
}

func applyZone(m *world.Map, z ZoneInfo) (int, error) {
	flag, ok := world.ParseZone(z.Kind)
	if !ok {
		return 0, fmt.Errorf("zone %q: unknown kind", z.Kind)
	}
	x1, x2 := min(z.X1, z.X2), max(z.X1, z.X2)
	y1, y2 := min(z.Y1, z.Y2), max(z.Y1, z.Y2)
	n := 0
	for x := x1; x <= x2; x++ {
		for y := y1; y <= y2; y++ {
			if t := m.GetTile(world.Pos(x, y, z.Z)); t != nil {
				t.SetZone(flag)
				n++
			}
		}
	}
	return n, nil
}
