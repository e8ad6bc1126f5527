package world

// The spatial index is a fixed-depth quad tree over 16-bit coordinates.
// Each level consumes one bit of x and one bit of y, from bit 15 down to
// bit floorBits, so a leaf covers a FloorSize x FloorSize block. Nodes and
// leaves live in two arenas and refer to each other by index.

const (
	floorBits = 3
	FloorSize = 1 << floorBits
	floorMask = FloorSize - 1

	topBit = 15
	noNode = -1
)

// Floor is the tile storage of one layer inside one leaf.
type Floor struct {
	tiles [FloorSize][FloorSize]*Tile
}

func (f *Floor) tile(x, y int32) *Tile {
	return f.tiles[x&floorMask][y&floorMask]
}

func (f *Floor) setTile(x, y int32, t *Tile) {
	f.tiles[x&floorMask][y&floorMask] = t
}

func (f *Floor) count() int {
	n := 0
	for x := range f.tiles {
		for y := range f.tiles[x] {
			if f.tiles[x][y] != nil {
				n++
			}
		}
	}
	return n
}

type nodeKind uint8

const (
	nodeInternal nodeKind = iota
	nodeLeaf
)

type qnode struct {
	kind  nodeKind
	child [4]int32 // node arena indexes, noNode when absent
	leaf  int32    // leaf arena index when kind == nodeLeaf
}

type qleaf struct {
	originX, originY int32
	floors           [MaxLayers]*Floor
	creatures        []Creature
	players          []Creature
	south, east      int32 // neighbouring leaves, noNode when not yet created
}

func (l *qleaf) addCreature(c Creature) {
	l.creatures = append(l.creatures, c)
	if isPlayer(c) {
		l.players = append(l.players, c)
	}
}

func (l *qleaf) removeCreature(c Creature) bool {
	ok := false
	l.creatures, ok = removeByID(l.creatures, c.ID())
	if isPlayer(c) {
		l.players, _ = removeByID(l.players, c.ID())
	}
	return ok
}

func removeByID(list []Creature, id uint32) ([]Creature, bool) {
	for i, c := range list {
		if c.ID() == id {
			last := len(list) - 1
			list[i] = list[last]
			list[last] = nil
			return list[:last], true
		}
	}
	return list, false
}

type quadTree struct {
	nodes  []qnode
	leaves []qleaf
}

func newQuadTree() *quadTree {
	t := &quadTree{}
	t.nodes = append(t.nodes, emptyNode(nodeInternal))
	return t
}

func emptyNode(kind nodeKind) qnode {
	return qnode{kind: kind, child: [4]int32{noNode, noNode, noNode, noNode}, leaf: noNode}
}

func quadrant(x, y int32, bit uint) int {
	return int((uint32(x)>>bit)&1) | int(((uint32(y)>>bit)&1)<<1)
}

func inBounds(x, y int32) bool {
	return x >= 0 && x <= MaxCoord && y >= 0 && y <= MaxCoord
}

// leafAt returns the leaf index owning (x, y), or noNode.
func (t *quadTree) leafAt(x, y int32) int32 {
	if !inBounds(x, y) {
		return noNode
	}
	n := int32(0)
	for bit := uint(topBit); ; bit-- {
		n = t.nodes[n].child[quadrant(x, y, bit)]
		if n == noNode {
			return noNode
		}
		if t.nodes[n].kind == nodeLeaf {
			return t.nodes[n].leaf
		}
	}
}

// createLeaf descends to (x, y), creating every missing node, and returns
// the leaf index. A new leaf is linked to the leaves around it.
func (t *quadTree) createLeaf(x, y int32) int32 {
	n := int32(0)
	for bit := uint(topBit); ; bit-- {
		q := quadrant(x, y, bit)
		child := t.nodes[n].child[q]
		if child == noNode {
			kind := nodeInternal
			if bit == floorBits {
				kind = nodeLeaf
			}
			child = int32(len(t.nodes))
			t.nodes = append(t.nodes, emptyNode(kind))
			t.nodes[n].child[q] = child
			if kind == nodeLeaf {
				t.nodes[child].leaf = t.newLeaf(x, y)
			}
		}
		if t.nodes[child].kind == nodeLeaf {
			return t.nodes[child].leaf
		}
		n = child
	}
}

func (t *quadTree) newLeaf(x, y int32) int32 {
	idx := int32(len(t.leaves))
	ox, oy := x&^floorMask, y&^floorMask
	t.leaves = append(t.leaves, qleaf{originX: ox, originY: oy, south: noNode, east: noNode})

	if north := t.leafAt(ox, oy-FloorSize); north != noNode {
		t.leaves[north].south = idx
	}
	if west := t.leafAt(ox-FloorSize, oy); west != noNode {
		t.leaves[west].east = idx
	}
	t.leaves[idx].south = t.leafAt(ox, oy+FloorSize)
	t.leaves[idx].east = t.leafAt(ox+FloorSize, oy)
	return idx
}

func (t *quadTree) leaf(idx int32) *qleaf {
	return &t.leaves[idx]
}

// floor returns the layer storage of a leaf, creating it when create is set.
func (t *quadTree) floor(leaf int32, z int32, create bool) *Floor {
	l := &t.leaves[leaf]
	if l.floors[z] == nil && create {
		l.floors[z] = &Floor{}
	}
	return l.floors[z]
}
