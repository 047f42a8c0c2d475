// Package signal runs the traffic lights and walk signals for a city grid.
// It discovers junctions from the road layout, drives a global phase cycle,
// and tracks which crosswalks currently hold pedestrians.
package signal

import (
	"math"

	"github.com/google/uuid"

	"github.com/twofactor/pogicity-demo/internal/sim"
)

// Plan holds the phase durations of the light cycle, in ticks.
type Plan struct {
	GreenTicks  int
	YellowTicks int
	AllRedTicks int
}

// DefaultPlan returns the stock cycle timing.
func DefaultPlan() Plan {
	return Plan{GreenTicks: 120, YellowTicks: 20, AllRedTicks: 30}
}

func (p Plan) normalized() Plan {
	d := DefaultPlan()
	if p.GreenTicks <= 0 {
		p.GreenTicks = d.GreenTicks
	}
	if p.YellowTicks <= 0 {
		p.YellowTicks = d.YellowTicks
	}
	if p.AllRedTicks <= 0 {
		p.AllRedTicks = d.AllRedTicks
	}
	return p
}

// phase walks the cycle NS green, NS yellow, all red, EW green, EW yellow,
// all red, and wraps. Both all-red phases behave identically.
type phase uint8

const (
	phaseNSGreen phase = iota
	phaseNSYellow
	phaseAllRedAfterNS
	phaseEWGreen
	phaseEWYellow
	phaseAllRedAfterEW
)

func (p phase) String() string {
	switch p {
	case phaseNSGreen:
		return "ns-green"
	case phaseNSYellow:
		return "ns-yellow"
	case phaseEWGreen:
		return "ew-green"
	case phaseEWYellow:
		return "ew-yellow"
	default:
		return "all-red"
	}
}

func (p phase) allRed() bool {
	return p == phaseAllRedAfterNS || p == phaseAllRedAfterEW
}

// crosswalk is one strip of straight-lane blocks flanking a junction.
type crosswalk struct {
	id sim.CrosswalkID
	// verticalTraffic is set when the strip lies on a north-south road, so
	// the north-south vehicle light governs it.
	verticalTraffic bool
}

// Controller implements sim.Signals over a fixed grid. All junctions share
// one global phase; per-junction plans are not modeled.
type Controller struct {
	plan      Plan
	phase     phase
	ticksLeft int

	junctions int
	walks     map[sim.CrosswalkID]crosswalk
	tiles     map[[2]int]sim.CrosswalkID
	occ       map[sim.CrosswalkID]map[uuid.UUID]struct{}
}

var _ sim.Signals = (*Controller)(nil)

// NewController scans the grid for junctions and builds the crosswalk map.
// Zero or negative plan fields fall back to the default timing.
func NewController(g *sim.Grid, plan Plan) *Controller {
	c := &Controller{
		plan:  plan.normalized(),
		phase: phaseNSGreen,
		walks: make(map[sim.CrosswalkID]crosswalk),
		tiles: make(map[[2]int]sim.CrosswalkID),
		occ:   make(map[sim.CrosswalkID]map[uuid.UUID]struct{}),
	}
	c.ticksLeft = c.plan.GreenTicks
	if g != nil {
		c.discover(g)
	}
	return c
}

// discover flood-fills connected junction blocks and attaches one crosswalk
// per junction side where a straight lane block sits just beyond the bounds.
func (c *Controller) discover(g *sim.Grid) {
	bw := g.Width() / sim.LaneBlockSize
	bh := g.Height() / sim.LaneBlockSize

	kindAtBlock := func(bx, by int) (sim.TileKind, bool) {
		if bx < 0 || by < 0 || bx >= bw || by >= bh {
			return 0, false
		}
		t := g.Tiles[by*sim.LaneBlockSize][bx*sim.LaneBlockSize]
		if !t.LaneOrigin {
			return t.Kind, false
		}
		return t.Kind, true
	}
	isJunction := func(bx, by int) bool {
		k, lane := kindAtBlock(bx, by)
		return lane && k == sim.TileRoadTurn
	}
	isStraight := func(bx, by int) bool {
		k, lane := kindAtBlock(bx, by)
		return lane && k == sim.TileRoad
	}

	nextID := sim.CrosswalkID(1)
	seen := make(map[[2]int]bool)
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			if !isJunction(bx, by) || seen[[2]int{bx, by}] {
				continue
			}
			// Flood-fill one junction in block space.
			minX, minY := bx, by
			maxX, maxY := bx, by
			stack := [][2]int{{bx, by}}
			seen[[2]int{bx, by}] = true
			for len(stack) > 0 {
				b := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				minX = min(minX, b[0])
				maxX = max(maxX, b[0])
				minY = min(minY, b[1])
				maxY = max(maxY, b[1])
				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					n := [2]int{b[0] + d[0], b[1] + d[1]}
					if !seen[n] && isJunction(n[0], n[1]) {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
			c.junctions++

			// Strips on the north and south sides carry vertical traffic,
			// east and west sides horizontal.
			addStrip := func(blocks [][2]int, vertical bool) {
				var hit [][2]int
				for _, b := range blocks {
					if isStraight(b[0], b[1]) {
						hit = append(hit, b)
					}
				}
				if len(hit) == 0 {
					return
				}
				cw := crosswalk{id: nextID, verticalTraffic: vertical}
				nextID++
				c.walks[cw.id] = cw
				c.occ[cw.id] = make(map[uuid.UUID]struct{})
				for _, b := range hit {
					ox := b[0] * sim.LaneBlockSize
					oy := b[1] * sim.LaneBlockSize
					for dy := 0; dy < sim.LaneBlockSize; dy++ {
						for dx := 0; dx < sim.LaneBlockSize; dx++ {
							c.tiles[[2]int{ox + dx, oy + dy}] = cw.id
						}
					}
				}
			}

			var north, south, west, east [][2]int
			for x := minX; x <= maxX; x++ {
				north = append(north, [2]int{x, minY - 1})
				south = append(south, [2]int{x, maxY + 1})
			}
			for y := minY; y <= maxY; y++ {
				west = append(west, [2]int{minX - 1, y})
				east = append(east, [2]int{maxX + 1, y})
			}
			addStrip(north, true)
			addStrip(south, true)
			addStrip(west, false)
			addStrip(east, false)
		}
	}
}

// Step advances the phase clock one tick.
func (c *Controller) Step() {
	c.ticksLeft--
	if c.ticksLeft > 0 {
		return
	}
	c.phase = (c.phase + 1) % 6
	switch c.phase {
	case phaseNSGreen, phaseEWGreen:
		c.ticksLeft = c.plan.GreenTicks
	case phaseNSYellow, phaseEWYellow:
		c.ticksLeft = c.plan.YellowTicks
	default:
		c.ticksLeft = c.plan.AllRedTicks
	}
}

// Phase names the current phase for logs and stream frames.
func (c *Controller) Phase() string { return c.phase.String() }

// Junctions reports how many junctions the grid scan found.
func (c *Controller) Junctions() int { return c.junctions }

// Crosswalks reports how many crosswalk strips were attached.
func (c *Controller) Crosswalks() int { return len(c.walks) }

func (c *Controller) axisLight(vertical bool) sim.LightColor {
	switch c.phase {
	case phaseNSGreen:
		if vertical {
			return sim.LightGreen
		}
	case phaseNSYellow:
		if vertical {
			return sim.LightYellow
		}
	case phaseEWGreen:
		if !vertical {
			return sim.LightGreen
		}
	case phaseEWYellow:
		if !vertical {
			return sim.LightYellow
		}
	}
	return sim.LightRed
}

// LightFacing returns the light a vehicle heading dir sees. All junctions
// share the global phase, so the position only matters for future per-plan
// controllers and is ignored here.
func (c *Controller) LightFacing(x, y float64, dir sim.Direction) sim.LightColor {
	return c.axisLight(dir.Vertical())
}

func (c *Controller) CrosswalkAt(x, y float64) (sim.CrosswalkID, bool) {
	id, ok := c.tiles[[2]int{int(math.Floor(x)), int(math.Floor(y))}]
	return id, ok
}

// CanCross allows pedestrians onto a strip while its vehicle axis shows red.
func (c *Controller) CanCross(id sim.CrosswalkID) bool {
	cw, ok := c.walks[id]
	if !ok {
		return false
	}
	return c.axisLight(cw.verticalTraffic) == sim.LightRed
}

func (c *Controller) CrosswalkOccupied(id sim.CrosswalkID) bool {
	return len(c.occ[id]) > 0
}

// CanWalkThrough admits pedestrians into a junction body only while every
// axis is red.
func (c *Controller) CanWalkThrough(x, y float64) bool {
	return c.phase.allRed()
}

func (c *Controller) RegisterPedestrian(id uuid.UUID, x, y float64) {
	cw, ok := c.CrosswalkAt(x, y)
	if !ok {
		return
	}
	c.occ[cw][id] = struct{}{}
}

func (c *Controller) DeregisterPedestrian(id uuid.UUID) {
	for _, set := range c.occ {
		delete(set, id)
	}
}
