package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/world"
)

func TestParseTuples(t *testing.T) {
	rows := parseTuples("INSERT INTO `npc` VALUES ('45000', 'Orc''s (Chief)', NULL, 7, '', 'null');")
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"45000", "Orc's (Chief)", "", "7", "", "null"}, rows[0])
	assert.Nil(t, parseTuples("CREATE TABLE npc (id int);"))

	rows = parseTuples(`INSERT INTO a VALUES (1,'x\'y'),(2,'b, c');`)
	assert.Equal(t, [][]string{{"1", "x'y"}, {"2", "b, c"}}, rows)

	rows = parseInserts("-- dump\nINSERT INTO `a` VALUES ('1');\n\ninsert into `a` values ('2');\n")
	assert.Equal(t, [][]string{{"1"}, {"2"}}, rows)
}

func testOptions(t *testing.T) options {
	return options{outDir: t.TempDir(), mapDir: "maps", mapID: 4, z: 7, ground: 100, wall: 200, fence: 201, ai: "ai_melee"}
}

func TestMapManifest(t *testing.T) {
	rows := parseInserts(`
INSERT INTO mapids VALUES ('0', 'Talking Island', '32256', '32767', '32768', '33279', '1', '1');
INSERT INTO mapids VALUES ('4', 'Mainland', '32704', '34303', '32128', '33535', '1', '1');
`)
	o := testOptions(t)
	info, err := mapManifest(rows, o)
	require.NoError(t, err)
	assert.Equal(t, "Mainland", info.Name)
	assert.Equal(t, int32(1600), info.Width)
	assert.Equal(t, int32(1408), info.Height)
	assert.Equal(t, int32(32704), info.OriginX)
	require.Len(t, info.Layers, 1)
	assert.Equal(t, "4.txt", info.Layers[0].File)
	assert.Equal(t, data.FormatFlags, info.Layers[0].Format)

	o.mapID = 99
	_, err = mapManifest(rows, o)
	assert.ErrorContains(t, err, "not found")
}

func TestConvertedManifestLoads(t *testing.T) {
	o := testOptions(t)
	info := &data.MapInfo{
		Name: "tiny", Width: 3, Height: 1, OriginX: 10, OriginY: 20, TileDir: o.mapDir,
		Legacy: data.LegacyItems{Ground: o.ground, Wall: o.wall, Fence: o.fence},
		Layers: []data.LayerInfo{{Z: 7, File: "4.txt", Format: data.FormatFlags}},
	}
	manifest := filepath.Join(o.outDir, "map.yaml")
	require.NoError(t, writeYAML(manifest, info, "# test"))
	require.NoError(t, os.MkdirAll(filepath.Join(o.outDir, "maps"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(o.outDir, "maps", "4.txt"), []byte("3,48,12\n"), 0o644))
	items := filepath.Join(o.outDir, "items.yaml")
	require.NoError(t, os.WriteFile(items, []byte(`
items:
  - {id: 100, name: floor, ground: true}
  - {id: 200, name: wall, block_solid: true, block_projectile: true}
  - {id: 201, name: fence, block_solid: true}
`), 0o644))

	table, err := data.LoadItemTypes(items)
	require.NoError(t, err)
	m := world.NewMap(nil)
	loaded, err := data.LoadMap(manifest, table, m, data.LoadOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Tiles)
	assert.True(t, m.GetTile(world.Pos(11, 20, 7)).BlocksProjectile())
}

func TestSpawnConversion(t *testing.T) {
	npcs := npcTemplates(parseInserts(`
INSERT INTO npc VALUES ('45008', 'orc', '$1', '', 'L1Monster', '0', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', 'small', '0', '1');
INSERT INTO npc VALUES ('45009', 'orc archer', '$2', '', 'L1Monster', '0', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', 'small', '0', '6');
INSERT INTO npc VALUES ('70001', 'guard', '$3', '', 'L1Guard', '0', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', '1', 'small', '0', '1');
`))
	require.Len(t, npcs, 3)

	o := testOptions(t)
	monsters := monsterSpawns(parseInserts(`
INSERT INTO spawnlist VALUES ('1', 'field', '3', '45008', '0', '32800', '32900', '5', '5', '0', '0', '0', '0', '2', '60', '120', '4');
INSERT INTO spawnlist VALUES ('2', 'field', '1', '45009', '0', '32810', '32910', '0', '0', '0', '0', '0', '0', '9', '60', '120', '4');
INSERT INTO spawnlist VALUES ('3', 'other', '1', '45008', '0', '1', '1', '0', '0', '0', '0', '0', '0', '0', '60', '120', '0');
INSERT INTO spawnlist VALUES ('4', 'empty', '0', '45008', '0', '1', '1', '0', '0', '0', '0', '0', '0', '0', '60', '120', '4');
`), npcs, o)
	require.Len(t, monsters, 2)
	assert.Equal(t, "orc", monsters[0].Name)
	assert.Equal(t, 3, monsters[0].Count)
	assert.Equal(t, int32(5), monsters[0].RandomX)
	assert.Equal(t, world.Pos(32800, 32900, 7), monsters[0].Position())
	assert.Equal(t, int32(6), monsters[1].Range)
	assert.Equal(t, 1, monsters[1].Heading, "heading wraps to 0-7")

	guards := npcSpawns(parseInserts(`
INSERT INTO spawnlist_npc VALUES ('1', 'gate', '1', '70001', '32805', '32905', '0', '0', '4', '0', '4');
INSERT INTO spawnlist_npc VALUES ('2', 'gate', '1', '70002', '32806', '32905', '0', '0', '4', '0', '4');
`), npcs, o)
	require.Len(t, guards, 2)
	assert.Equal(t, "guard", guards[0].Name)
	assert.Equal(t, "npc 70002", guards[1].Name)

	path := filepath.Join(o.outDir, "spawns.yaml")
	require.NoError(t, writeYAML(path, struct {
		Spawns []data.SpawnInfo `yaml:"spawns"`
	}{append(monsters, guards...)}, ""))
	loaded, err := data.LoadSpawns(path)
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	kind, err := loaded[2].CreatureKind()
	require.NoError(t, err)
	assert.Equal(t, world.KindNpc, kind)
	assert.Equal(t, "ai_melee", loaded[0].AI)
}

func TestReadInsertsBig5(t *testing.T) {
	encoded, err := traditionalchinese.Big5.NewEncoder().String("INSERT INTO `npc` VALUES ('45000', '歐克戰士');\n")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "npc.sql")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	rows, err := readInserts(options{big5: true}, path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"45000", "歐克戰士"}}, rows)

	rows, err = readInserts(options{}, path)
	require.NoError(t, err)
	assert.NotEqual(t, "歐克戰士", rows[0][1])
}
