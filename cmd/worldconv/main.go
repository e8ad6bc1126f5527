// worldconv converts L1J database dumps and map files into worldcore YAML.
//
// Usage:
//
//	go run ./cmd/worldconv <command> -mapid N [-z 7] [-sqldir path] [-outdir path]
//
// Commands: map, spawn
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldcore/internal/data"
)

type options struct {
	sqlDir string
	mapDir string
	outDir string
	mapID  int
	z      int32
	ground uint16
	wall   uint16
	fence  uint16
	ai     string
	big5   bool // dumps of the Taiwan data set are Big5 encoded
}

// ---------------------------------------------------------------------------
// map
// ---------------------------------------------------------------------------

// mapManifest builds the manifest of one map from its mapids.sql row:
// 0:mapid 1:locationname 2:startX 3:endX 4:startY 5:endY
func mapManifest(rows [][]string, o options) (*data.MapInfo, error) {
	for _, r := range rows {
		if len(r) < 6 || parseInt(r[0]) != o.mapID {
			continue
		}
		startX, endX := parseInt32(r[2]), parseInt32(r[3])
		startY, endY := parseInt32(r[4]), parseInt32(r[5])
		if endX < startX || endY < startY {
			return nil, fmt.Errorf("map %d: bad bounds %d-%d x %d-%d", o.mapID, startX, endX, startY, endY)
		}
		name := r[1]
		if name == "" {
			name = fmt.Sprintf("map %d", o.mapID)
		}
		return &data.MapInfo{
			Name:    name,
			Width:   endX - startX + 1,
			Height:  endY - startY + 1,
			OriginX: startX,
			OriginY: startY,
			TileDir: o.mapDir,
			Legacy:  data.LegacyItems{Ground: o.ground, Wall: o.wall, Fence: o.fence},
			Layers: []data.LayerInfo{{
				Z:      o.z,
				File:   fmt.Sprintf("%d.txt", o.mapID),
				Format: data.FormatFlags,
			}},
		}, nil
	}
	return nil, fmt.Errorf("map %d not found in mapids.sql", o.mapID)
}

func convertMap(o options) error {
	rows, err := readInserts(o, filepath.Join(o.sqlDir, "mapids.sql"))
	if err != nil {
		return err
	}
	info, err := mapManifest(rows, o)
	if err != nil {
		return err
	}
	fmt.Printf("  map: %s, %dx%d at (%d,%d)\n", info.Name, info.Width, info.Height, info.OriginX, info.OriginY)
	return writeYAML(filepath.Join(o.outDir, "map.yaml"), info,
		fmt.Sprintf("# Map manifest - converted from L1J mapids.sql (map %d)", o.mapID))
}

// ---------------------------------------------------------------------------
// spawn
// ---------------------------------------------------------------------------

type npcTemplate struct {
	name   string
	ranged int32
}

// npcTemplates indexes npc.sql: 0:npcid 1:name ... 20:ranged
func npcTemplates(rows [][]string) map[int]npcTemplate {
	out := make(map[int]npcTemplate, len(rows))
	for _, r := range rows {
		if len(r) < 21 {
			continue
		}
		out[parseInt(r[0])] = npcTemplate{name: r[1], ranged: parseInt32(r[20])}
	}
	return out
}

func spawnName(npcs map[int]npcTemplate, id int) string {
	if t, ok := npcs[id]; ok && t.name != "" {
		return t.name
	}
	return fmt.Sprintf("npc %d", id)
}

// monsterSpawns converts spawnlist.sql rows of one map:
// 2:count 3:npc_templateid 5:locx 6:locy 7:randomx 8:randomy 13:heading 16:mapid
func monsterSpawns(rows [][]string, npcs map[int]npcTemplate, o options) []data.SpawnInfo {
	var out []data.SpawnInfo
	for _, r := range rows {
		if len(r) < 17 || parseInt(r[16]) != o.mapID {
			continue
		}
		count := parseInt(r[2])
		if count == 0 {
			continue
		}
		id := parseInt(r[3])
		s := data.SpawnInfo{
			Name:    spawnName(npcs, id),
			X:       parseInt32(r[5]),
			Y:       parseInt32(r[6]),
			Z:       o.z,
			Count:   count,
			RandomX: parseInt32(r[7]),
			RandomY: parseInt32(r[8]),
			Heading: parseInt(r[13]) & 7,
			AI:      o.ai,
		}
		if t, ok := npcs[id]; ok && t.ranged > 1 {
			s.Range = t.ranged
		}
		out = append(out, s)
	}
	return out
}

// npcSpawns converts spawnlist_npc.sql rows of one map:
// 2:count 3:npc_templateid 4:locx 5:locy 6:randomx 7:randomy 8:heading 10:mapid
func npcSpawns(rows [][]string, npcs map[int]npcTemplate, o options) []data.SpawnInfo {
	var out []data.SpawnInfo
	for _, r := range rows {
		if len(r) < 11 || parseInt(r[10]) != o.mapID {
			continue
		}
		count := parseInt(r[2])
		if count == 0 {
			continue
		}
		out = append(out, data.SpawnInfo{
			Name:    spawnName(npcs, parseInt(r[3])),
			Kind:    "npc",
			X:       parseInt32(r[4]),
			Y:       parseInt32(r[5]),
			Z:       o.z,
			Count:   count,
			RandomX: parseInt32(r[6]),
			RandomY: parseInt32(r[7]),
			Heading: parseInt(r[8]) & 7,
		})
	}
	return out
}

func convertSpawn(o options) error {
	npcRows, err := readInserts(o, filepath.Join(o.sqlDir, "npc.sql"))
	if err != nil {
		fmt.Printf("  npc.sql: skipped (%v), spawns get numeric names\n", err)
	}
	npcs := npcTemplates(npcRows)

	rows, err := readInserts(o, filepath.Join(o.sqlDir, "spawnlist.sql"))
	if err != nil {
		return err
	}
	spawns := monsterSpawns(rows, npcs, o)
	fmt.Printf("  spawn (monsters): %d entries (from %d rows)\n", len(spawns), len(rows))

	if npcRows, err := readInserts(o, filepath.Join(o.sqlDir, "spawnlist_npc.sql")); err != nil {
		fmt.Printf("  spawn (npcs): skipped (file not found)\n")
	} else {
		n := npcSpawns(npcRows, npcs, o)
		spawns = append(spawns, n...)
		fmt.Printf("  spawn (npcs): %d entries (from %d rows)\n", len(n), len(npcRows))
	}

	sort.SliceStable(spawns, func(i, j int) bool {
		if spawns[i].Kind != spawns[j].Kind {
			return spawns[i].Kind < spawns[j].Kind
		}
		return spawns[i].Name < spawns[j].Name
	})
	return writeYAML(filepath.Join(o.outDir, "spawns.yaml"),
		struct {
			Spawns []data.SpawnInfo `yaml:"spawns"`
		}{spawns},
		fmt.Sprintf("# Spawn list - converted from L1J spawnlist.sql + spawnlist_npc.sql (map %d)", o.mapID))
}

// ---------------------------------------------------------------------------
// main
// ---------------------------------------------------------------------------

func writeYAML(path string, v any, comment string) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	var b strings.Builder
	if comment != "" {
		b.WriteString(comment + "\n\n")
	}
	b.Write(out)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: worldconv <command> -mapid N [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  map       Convert mapids.sql -> map.yaml with a flags layer for <mapid>.txt")
	fmt.Println("  spawn     Convert spawnlist.sql + spawnlist_npc.sql -> spawns.yaml")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	var o options
	var z, ground, wall, fence int
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&o.sqlDir, "sqldir", filepath.Join("..", "..", "l1j_java", "db", "Taiwan"), "SQL source directory")
	fs.StringVar(&o.mapDir, "mapdir", "maps", "legacy map text directory, relative to the manifest")
	fs.StringVar(&o.outDir, "outdir", filepath.Join("data", "yaml"), "YAML output directory")
	fs.IntVar(&o.mapID, "mapid", 4, "legacy map id to convert")
	fs.IntVar(&z, "z", 7, "layer the map is placed on")
	fs.IntVar(&ground, "ground", 100, "item id for walkable cells")
	fs.IntVar(&wall, "wall", 200, "item id for blocked cells")
	fs.IntVar(&fence, "fence", 201, "item id for cells only missiles cross")
	fs.StringVar(&o.ai, "ai", "ai_melee", "Lua AI function for converted monsters")
	fs.BoolVar(&o.big5, "big5", false, "decode the SQL dumps from Big5")
	_ = fs.Parse(os.Args[2:])
	o.z = int32(z)
	o.ground, o.wall, o.fence = uint16(ground), uint16(wall), uint16(fence)

	converters := map[string]func(options) error{
		"map":   convertMap,
		"spawn": convertSpawn,
	}
	fn, ok := converters[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err := fn(o); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Done!")
}
