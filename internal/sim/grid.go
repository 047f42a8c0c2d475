package sim

import "math"

// TileKind classifies a grid cell surface.
type TileKind uint8

const (
	TileGrass TileKind = iota // plain walkable ground
	TileSidewalk
	TileRoad     // straight lane
	TileRoadTurn // junction body
	TileBuilding
	TileWater
)

// IsRoad reports whether vehicles may occupy this kind of tile.
func (k TileKind) IsRoad() bool { return k == TileRoad || k == TileRoadTurn }

// IsWalkable reports whether pedestrians may freely occupy this kind of tile.
func (k TileKind) IsWalkable() bool { return k == TileGrass || k == TileSidewalk }

func (k TileKind) String() string {
	switch k {
	case TileGrass:
		return "grass"
	case TileSidewalk:
		return "sidewalk"
	case TileRoad:
		return "road"
	case TileRoadTurn:
		return "junction"
	case TileBuilding:
		return "building"
	default:
		return "water"
	}
}

// Tile is one grid cell. Road cells belong to a 2x2 lane block; only the
// block's origin cell carries direction metadata, the rest point at it.
type Tile struct {
	Kind       TileKind
	LaneOrigin bool
	OriginX    int
	OriginY    int
	Dir        Direction // meaningful only on road lane origins
}

// Grid is the static city snapshot, indexed [row][col]. It is never mutated
// during a tick; both agent systems hold a shared read-only reference.
type Grid struct {
	Tiles [][]Tile
}

func NewGrid(w, h int) *Grid {
	tiles := make([][]Tile, h)
	for y := range tiles {
		tiles[y] = make([]Tile, w)
	}
	return &Grid{Tiles: tiles}
}

func (g *Grid) Width() int {
	if len(g.Tiles) == 0 {
		return 0
	}
	return len(g.Tiles[0])
}

func (g *Grid) Height() int { return len(g.Tiles) }

func (g *Grid) InBounds(tx, ty int) bool {
	return ty >= 0 && ty < len(g.Tiles) && tx >= 0 && tx < len(g.Tiles[ty])
}

// KindAt returns the tile kind under a continuous position.
func (g *Grid) KindAt(x, y float64) (TileKind, bool) {
	tx := int(math.Floor(x))
	ty := int(math.Floor(y))
	if !g.InBounds(tx, ty) {
		return 0, false
	}
	return g.Tiles[ty][tx].Kind, true
}

// Lane is the resolved 2x2-block view of a road position; decisions operate
// on lanes, never on individual cells.
type Lane struct {
	OriginX int
	OriginY int
	Dir     Direction
	Kind    TileKind
}

// LaneAt resolves a continuous position to the lane block containing it.
// It fails off the grid, off the road, or when the block origin is missing
// its metadata.
func (g *Grid) LaneAt(x, y float64) (Lane, bool) {
	tx := int(math.Floor(x))
	ty := int(math.Floor(y))
	if !g.InBounds(tx, ty) {
		return Lane{}, false
	}
	t := &g.Tiles[ty][tx]
	if !t.Kind.IsRoad() {
		return Lane{}, false
	}
	ox, oy := t.OriginX, t.OriginY
	if !g.InBounds(ox, oy) {
		return Lane{}, false
	}
	o := &g.Tiles[oy][ox]
	if !o.LaneOrigin || !o.Kind.IsRoad() {
		return Lane{}, false
	}
	return Lane{OriginX: ox, OriginY: oy, Dir: o.Dir, Kind: o.Kind}, true
}

// LaneCenter is the geometric center of a lane block, the point where an
// agent re-evaluates its heading.
func LaneCenter(originX, originY int) (float64, float64) {
	half := float64(LaneBlockSize) / 2
	return float64(originX) + half, float64(originY) + half
}

// NextLane steps exactly one lane-block length from the given origin.
func (g *Grid) NextLane(originX, originY int, dir Direction) (Lane, bool) {
	dx, dy := dir.Offset()
	nx := originX + dx*LaneBlockSize
	ny := originY + dy*LaneBlockSize
	if !g.InBounds(nx, ny) {
		return Lane{}, false
	}
	t := &g.Tiles[ny][nx]
	if !t.Kind.IsRoad() || !t.LaneOrigin {
		return Lane{}, false
	}
	return Lane{OriginX: nx, OriginY: ny, Dir: t.Dir, Kind: t.Kind}, true
}

// CanEnterLane rejects only an exact head-on entry. Any other combination is
// allowed; the lane's own direction takes over once the agent is inside.
func CanEnterLane(l Lane, dir Direction) bool { return l.Dir != dir.Opposite() }

// StraightLaneOrigins lists every straight-lane block origin, the legal
// spawn and relocation points for vehicles.
func (g *Grid) StraightLaneOrigins() [][2]int {
	pts := make([][2]int, 0, 64)
	for y := range g.Tiles {
		for x := range g.Tiles[y] {
			t := &g.Tiles[y][x]
			if t.LaneOrigin && t.Kind == TileRoad {
				pts = append(pts, [2]int{x, y})
			}
		}
	}
	return pts
}

// WalkableTiles lists every tile pedestrians may freely occupy.
func (g *Grid) WalkableTiles() [][2]int {
	pts := make([][2]int, 0, 256)
	for y := range g.Tiles {
		for x := range g.Tiles[y] {
			if g.Tiles[y][x].Kind.IsWalkable() {
				pts = append(pts, [2]int{x, y})
			}
		}
	}
	return pts
}
