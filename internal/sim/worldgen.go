package sim

// BuildCity generates the default road network: two-lane-block road
// corridors every period blocks (right-hand traffic), junction blocks where
// corridors cross, sidewalks ringing each city block, and building parcels
// scattered through block interiors. Dimensions are in tiles and are rounded
// down to whole lane blocks; leftover edge tiles become grass.
func BuildCity(w, h, period int, seed uint64) *Grid {
	if w < 4*LaneBlockSize {
		w = GridWidth
	}
	if h < 4*LaneBlockSize {
		h = GridHeight
	}
	if period < 4 {
		period = 6
	}
	g := NewGrid(w, h)

	bw := w / LaneBlockSize
	bh := h / LaneBlockSize
	// Corridors sit one block in from the edge so every road has frontage.
	roadCol := func(bx int) bool { m := bx % period; return m == 1 || m == 2 }
	roadRow := func(by int) bool { m := by % period; return m == 1 || m == 2 }

	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			vert := roadCol(bx)
			horiz := roadRow(by)

			var kind TileKind
			var dir Direction
			switch {
			case vert && horiz:
				kind = TileRoadTurn
				dir = junctionDir(bx, period)
			case vert:
				kind = TileRoad
				dir = verticalDir(bx, period)
			case horiz:
				kind = TileRoad
				dir = horizontalDir(by, period)
			case nextToRoad(bx, by, bw, bh, roadCol, roadRow):
				kind = TileSidewalk
			default:
				kind = interiorKind(seed, bx, by)
			}

			fillBlock(g, bx, by, kind, dir)
		}
	}
	return g
}

// verticalDir keeps northbound traffic on the east column of a corridor.
func verticalDir(bx, period int) Direction {
	if bx%period == 1 {
		return South
	}
	return North
}

// horizontalDir keeps eastbound traffic on the south row of a corridor.
func horizontalDir(by, period int) Direction {
	if by%period == 1 {
		return West
	}
	return East
}

// junctionDir assigns nominal metadata to junction blocks; motion through a
// junction follows the committed heading, not the block direction.
func junctionDir(bx, period int) Direction {
	return verticalDir(bx, period)
}

func nextToRoad(bx, by, bw, bh int, roadCol, roadRow func(int) bool) bool {
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx := bx + d[0]
		ny := by + d[1]
		if nx < 0 || ny < 0 || nx >= bw || ny >= bh {
			continue
		}
		if roadCol(nx) || roadRow(ny) {
			return true
		}
	}
	return false
}

func interiorKind(seed uint64, bx, by int) TileKind {
	roll := hash2D(seed, bx, by) % 100
	switch {
	case roll < 30:
		return TileBuilding
	case roll < 34:
		return TileWater
	default:
		return TileGrass
	}
}

// fillBlock writes one lane block worth of tiles. Only the block origin
// carries lane direction metadata; the rest resolve to it.
func fillBlock(g *Grid, bx, by int, kind TileKind, dir Direction) {
	ox := bx * LaneBlockSize
	oy := by * LaneBlockSize
	for dy := 0; dy < LaneBlockSize; dy++ {
		for dx := 0; dx < LaneBlockSize; dx++ {
			t := &g.Tiles[oy+dy][ox+dx]
			t.Kind = kind
			t.OriginX = ox
			t.OriginY = oy
			if dx == 0 && dy == 0 && kind.IsRoad() {
				t.LaneOrigin = true
				t.Dir = dir
			}
		}
	}
}
