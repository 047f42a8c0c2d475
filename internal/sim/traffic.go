package sim

import (
	"math"

	"github.com/google/uuid"
)

// VehicleClass tags a vehicle for presentation purposes.
type VehicleClass uint8

const (
	ClassSedan VehicleClass = iota
	ClassTaxi
	ClassVan
	ClassBus
)

func (c VehicleClass) String() string {
	switch c {
	case ClassSedan:
		return "sedan"
	case ClassTaxi:
		return "taxi"
	case ClassVan:
		return "van"
	default:
		return "bus"
	}
}

type Vehicle struct {
	ID             uuid.UUID
	X, Y           float64
	Dir            Direction
	Speed          float64 // per-tick displacement, jittered per instance
	Waiting        int     // consecutive ticks without forward progress
	Class          VehicleClass
	InIntersection bool // a turn is already committed for this junction pass
}

// TrafficSystem owns every vehicle and advances each one tick at a time.
// It reads the grid and the signal collaborator and mutates only its own
// list; there is no fatal condition anywhere in the update path.
type TrafficSystem struct {
	grid        *Grid
	signals     Signals
	vehicles    []Vehicle
	rng         *Rand
	yieldToPeds bool
	index       *agentIndex
}

func NewTrafficSystem(seed uint64) *TrafficSystem {
	return &TrafficSystem{
		vehicles:    make([]Vehicle, 0, 64),
		rng:         NewRand(seed),
		yieldToPeds: true,
	}
}

func (ts *TrafficSystem) SetGrid(g *Grid) {
	ts.grid = g
	ts.index = nil
}

func (ts *TrafficSystem) SetSignals(s Signals) { ts.signals = s }

// SetYieldToPedestrians toggles whether vehicles hold short of a crosswalk
// that has pedestrians registered on it. On by default.
func (ts *TrafficSystem) SetYieldToPedestrians(on bool) { ts.yieldToPeds = on }

// Vehicles exposes the live list for rendering. Callers must not keep the
// slice across an Update.
func (ts *TrafficSystem) Vehicles() []Vehicle { return ts.vehicles }

func (ts *TrafficSystem) Count() int { return len(ts.vehicles) }

func (ts *TrafficSystem) Clear() { ts.vehicles = ts.vehicles[:0] }

// Spawn places one vehicle at the center of a random straight-lane block,
// aligned with the lane. It fails when the grid has no straight lanes or the
// chosen point is too close to an existing vehicle; callers may retry.
func (ts *TrafficSystem) Spawn() bool {
	if ts.grid == nil {
		return false
	}
	origins := ts.grid.StraightLaneOrigins()
	if len(origins) == 0 {
		return false
	}
	o := origins[ts.rng.Intn(len(origins))]
	x, y := LaneCenter(o[0], o[1])
	for j := range ts.vehicles {
		dx := ts.vehicles[j].X - x
		dy := ts.vehicles[j].Y - y
		if dx*dx+dy*dy < VehicleSpawnGap*VehicleSpawnGap {
			return false
		}
	}
	lane, ok := ts.grid.LaneAt(x, y)
	if !ok {
		return false
	}
	ts.vehicles = append(ts.vehicles, Vehicle{
		ID:    uuid.New(),
		X:     x,
		Y:     y,
		Dir:   lane.Dir,
		Speed: VehicleBaseSpeed + ts.rng.RangeF(0, VehicleSpeedJitter),
		Class: VehicleClass(ts.rng.Intn(4)),
	})
	return true
}

// Update advances every vehicle exactly one tick.
func (ts *TrafficSystem) Update() {
	if ts.grid == nil || len(ts.vehicles) == 0 {
		return
	}
	if ts.index == nil {
		ts.index = newAgentIndex(ts.grid.Width(), ts.grid.Height(), indexCellSize)
	}
	// Snapshot positions; proximity checks below read tick-start state.
	ts.index.rebuild(len(ts.vehicles), func(i int) (float64, float64) {
		return ts.vehicles[i].X, ts.vehicles[i].Y
	})
	for i := range ts.vehicles {
		ts.step(i)
	}
}

func (ts *TrafficSystem) step(i int) {
	v := &ts.vehicles[i]

	lane, ok := ts.grid.LaneAt(v.X, v.Y)
	if !ok {
		// Off any road, e.g. after a map edit. Not an error: relocate.
		ts.relocate(v)
		return
	}

	if ts.blockedAhead(i) {
		v.Waiting++
		if v.Waiting > VehicleDeadlockTicks && lane.Kind == TileRoadTurn {
			ts.escape(v, lane)
		}
		return
	}

	heading := v.Dir
	if lane.Kind == TileRoad {
		// The lane's own direction governs motion inside a straight block,
		// not the heading the vehicle entered with.
		heading = lane.Dir
	}

	cx, cy := LaneCenter(lane.OriginX, lane.OriginY)
	window := 2 * v.Speed
	atCenter := math.Abs(v.X-cx) < window && math.Abs(v.Y-cy) < window

	if atCenter && lane.Kind == TileRoad && ts.holdForJunction(lane, heading) {
		v.Waiting++
		return
	}

	if atCenter {
		d, open := ts.decide(v, lane, heading)
		if !open {
			// Dead end. Hold until the surrounding topology changes.
			v.Dir = d
			v.Waiting++
			return
		}
		heading = d
	}

	dx, dy := heading.Vector()
	nx := v.X + dx*v.Speed
	ny := v.Y + dy*v.Speed
	v.Dir = heading
	if _, ok := ts.grid.LaneAt(nx, ny); !ok {
		// Heading recorded, movement withheld: the step would leave the road.
		return
	}
	v.X = nx
	v.Y = ny
	v.Waiting = 0
}

// blockedAhead probes a point ahead along the heading and reports whether
// another vehicle sits near it. Vehicles behind the probe owner are ignored.
func (ts *TrafficSystem) blockedAhead(i int) bool {
	v := &ts.vehicles[i]
	dx, dy := v.Dir.Vector()
	px := v.X + dx*VehicleLookahead
	py := v.Y + dy*VehicleLookahead
	blocked := false
	ts.index.forNear(px, py, VehicleBlockRadius, func(j int, ox, oy float64) {
		if j == i || blocked {
			return
		}
		if (ox-v.X)*dx+(oy-v.Y)*dy < 0 {
			return
		}
		blocked = true
	})
	return blocked
}

// holdForJunction looks one and two lane steps ahead from a straight-lane
// decision point. It holds the vehicle on a non-green light at an upcoming
// junction, and optionally short of an occupied crosswalk on the approach.
func (ts *TrafficSystem) holdForJunction(lane Lane, heading Direction) bool {
	if ts.signals == nil {
		return false
	}
	probe := lane
	for s := 0; s < 2; s++ {
		next, ok := ts.grid.NextLane(probe.OriginX, probe.OriginY, heading)
		if !ok {
			return false
		}
		nx, ny := LaneCenter(next.OriginX, next.OriginY)
		if s == 0 && ts.yieldToPeds && next.Kind == TileRoad {
			if cw, ok := ts.signals.CrosswalkAt(nx, ny); ok && ts.signals.CrosswalkOccupied(cw) {
				return true
			}
		}
		if next.Kind == TileRoadTurn {
			return ts.signals.LightFacing(nx, ny, heading) != LightGreen
		}
		probe = next
	}
	return false
}

// decide picks the heading to leave the current decision point with.
// The second return is false at a dead end.
func (ts *TrafficSystem) decide(v *Vehicle, lane Lane, heading Direction) (Direction, bool) {
	if lane.Kind == TileRoadTurn {
		if !v.InIntersection {
			// First block of a junction pass: roll the turn once and commit.
			v.InIntersection = true
			if d, ok := ts.rollTurn(lane, heading); ok {
				return d, true
			}
		}
	} else {
		v.InIntersection = false
	}

	if next, ok := ts.grid.NextLane(lane.OriginX, lane.OriginY, heading); ok && CanEnterLane(next, heading) {
		return heading, true
	}
	for _, d := range [4]Direction{heading, heading.Right(), heading.Left(), heading.Opposite()} {
		if next, ok := ts.grid.NextLane(lane.OriginX, lane.OriginY, d); ok && CanEnterLane(next, d) {
			return d, true
		}
	}
	return heading, false
}

// rollTurn makes the one-shot probabilistic turn decision on entering a
// junction. A turn only commits when its target lane is free near its center.
func (ts *TrafficSystem) rollTurn(lane Lane, heading Direction) (Direction, bool) {
	if ts.rng.Float64() >= VehicleTurnChance {
		return heading, false
	}
	first, second := heading.Left(), heading.Right()
	if ts.rng.Intn(2) == 0 {
		first, second = second, first
	}
	for _, d := range [2]Direction{first, second} {
		next, ok := ts.grid.NextLane(lane.OriginX, lane.OriginY, d)
		if !ok || !CanEnterLane(next, d) || ts.laneClaimed(next) {
			continue
		}
		return d, true
	}
	return heading, false
}

func (ts *TrafficSystem) laneClaimed(l Lane) bool {
	cx, cy := LaneCenter(l.OriginX, l.OriginY)
	return ts.index.anyNear(cx, cy, LaneClaimRadius, -1)
}

// escape forces a fresh exit direction after a long wait inside a junction.
// Directions are tried in random order, skipping the current heading.
func (ts *TrafficSystem) escape(v *Vehicle, lane Lane) {
	order := [4]Direction{North, East, South, West}
	for k := len(order) - 1; k > 0; k-- {
		j := ts.rng.Intn(k + 1)
		order[k], order[j] = order[j], order[k]
	}
	for _, d := range order {
		if d == v.Dir {
			continue
		}
		next, ok := ts.grid.NextLane(lane.OriginX, lane.OriginY, d)
		if !ok || !CanEnterLane(next, d) || ts.laneClaimed(next) {
			continue
		}
		v.Dir = d
		v.Waiting = 0
		return
	}
}

// relocate drops an off-road vehicle onto a random straight lane.
func (ts *TrafficSystem) relocate(v *Vehicle) {
	origins := ts.grid.StraightLaneOrigins()
	if len(origins) == 0 {
		v.Waiting++
		return
	}
	o := origins[ts.rng.Intn(len(origins))]
	x, y := LaneCenter(o[0], o[1])
	lane, ok := ts.grid.LaneAt(x, y)
	if !ok {
		v.Waiting++
		return
	}
	v.X = x
	v.Y = y
	v.Dir = lane.Dir
	v.Waiting = 0
	v.InIntersection = false
}
