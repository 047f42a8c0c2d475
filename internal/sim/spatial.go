package sim

import "math"

// agentIndex buckets agent positions for neighbor queries. It is rebuilt
// from the list at the start of every update pass, so queries made while the
// pass mutates the list still see every agent where it stood when the tick
// began. That keeps proximity outcomes independent of iteration order.
type agentIndex struct {
	cellSize   int
	cols, rows int
	cells      [][]int
	xs, ys     []float64
}

func newAgentIndex(w, h, cellSize int) *agentIndex {
	if cellSize <= 0 {
		cellSize = indexCellSize
	}
	ai := &agentIndex{cellSize: cellSize}
	ai.cols = (w + cellSize - 1) / cellSize
	ai.rows = (h + cellSize - 1) / cellSize
	if ai.cols < 1 {
		ai.cols = 1
	}
	if ai.rows < 1 {
		ai.rows = 1
	}
	ai.cells = make([][]int, ai.cols*ai.rows)
	return ai
}

// rebuild snapshots n agent positions via at.
func (ai *agentIndex) rebuild(n int, at func(int) (float64, float64)) {
	for i := range ai.cells {
		ai.cells[i] = ai.cells[i][:0]
	}
	ai.xs = ai.xs[:0]
	ai.ys = ai.ys[:0]
	for i := 0; i < n; i++ {
		x, y := at(i)
		ai.xs = append(ai.xs, x)
		ai.ys = append(ai.ys, y)
		cx := clamp(int(x)/ai.cellSize, 0, ai.cols-1)
		cy := clamp(int(y)/ai.cellSize, 0, ai.rows-1)
		ai.cells[cy*ai.cols+cx] = append(ai.cells[cy*ai.cols+cx], i)
	}
}

// forNear calls fn for every snapshotted agent within radius of (x, y).
func (ai *agentIndex) forNear(x, y, radius float64, fn func(idx int, ax, ay float64)) {
	minCX := clamp(int(math.Floor((x-radius)/float64(ai.cellSize))), 0, ai.cols-1)
	minCY := clamp(int(math.Floor((y-radius)/float64(ai.cellSize))), 0, ai.rows-1)
	maxCX := clamp(int(math.Floor((x+radius)/float64(ai.cellSize))), 0, ai.cols-1)
	maxCY := clamp(int(math.Floor((y+radius)/float64(ai.cellSize))), 0, ai.rows-1)
	r2 := radius * radius
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, idx := range ai.cells[cy*ai.cols+cx] {
				dx := ai.xs[idx] - x
				dy := ai.ys[idx] - y
				if dx*dx+dy*dy <= r2 {
					fn(idx, ai.xs[idx], ai.ys[idx])
				}
			}
		}
	}
}

// anyNear reports whether any snapshotted agent other than exclude lies
// within radius of (x, y). Pass exclude < 0 to consider all agents.
func (ai *agentIndex) anyNear(x, y, radius float64, exclude int) bool {
	found := false
	ai.forNear(x, y, radius, func(idx int, _, _ float64) {
		if idx == exclude {
			return
		}
		found = true
	})
	return found
}
