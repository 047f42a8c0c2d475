package sim

import (
	"math"

	"github.com/google/uuid"
)

// PedKind tags a pedestrian for presentation purposes.
type PedKind uint8

const (
	PedAdult PedKind = iota
	PedKid
	PedElder
	PedJogger
)

func (k PedKind) String() string {
	switch k {
	case PedAdult:
		return "adult"
	case PedKid:
		return "kid"
	case PedElder:
		return "elder"
	default:
		return "jogger"
	}
}

type Pedestrian struct {
	ID    uuid.UUID
	X, Y  float64
	Dir   Direction
	Speed float64
	Kind  PedKind
	// Crossing means the pedestrian stands on a road tile and is committed
	// to finishing the crossing. It clears only on reaching a non-road tile.
	Crossing bool
}

// entryVerdict classifies why the tile ahead can or cannot be entered.
type entryVerdict uint8

const (
	entryOK entryVerdict = iota
	entryBlockedTerrain
	entryBlockedSignal
)

// PedestrianSystem owns every pedestrian and advances each one tick at a
// time. It is the sole writer of the collaborator's crosswalk occupancy.
type PedestrianSystem struct {
	grid    *Grid
	signals Signals
	peds    []Pedestrian
	rng     *Rand
	index   *agentIndex
}

func NewPedestrianSystem(seed uint64) *PedestrianSystem {
	return &PedestrianSystem{
		peds: make([]Pedestrian, 0, 128),
		rng:  NewRand(seed),
	}
}

func (ps *PedestrianSystem) SetGrid(g *Grid) {
	ps.grid = g
	ps.index = nil
}

func (ps *PedestrianSystem) SetSignals(s Signals) { ps.signals = s }

// Pedestrians exposes the live list for rendering. Callers must not keep the
// slice across an Update.
func (ps *PedestrianSystem) Pedestrians() []Pedestrian { return ps.peds }

func (ps *PedestrianSystem) Count() int { return len(ps.peds) }

// Spawn places one pedestrian at the center of a random walkable tile.
// It fails only when the grid has no walkable tile at all.
func (ps *PedestrianSystem) Spawn() (Pedestrian, bool) {
	if ps.grid == nil {
		return Pedestrian{}, false
	}
	tiles := ps.grid.WalkableTiles()
	if len(tiles) == 0 {
		return Pedestrian{}, false
	}
	t := tiles[ps.rng.Intn(len(tiles))]
	p := Pedestrian{
		ID:    uuid.New(),
		X:     float64(t[0]) + 0.5,
		Y:     float64(t[1]) + 0.5,
		Dir:   Directions[ps.rng.Intn(4)],
		Speed: PedBaseSpeed + ps.rng.RangeF(0, PedSpeedJitter),
		Kind:  PedKind(ps.rng.Intn(4)),
	}
	ps.peds = append(ps.peds, p)
	return p, true
}

// Remove deletes the pedestrian with the given id, dropping its crosswalk
// registrations first so no stale occupancy survives it.
func (ps *PedestrianSystem) Remove(id uuid.UUID) bool {
	for i := range ps.peds {
		if ps.peds[i].ID != id {
			continue
		}
		if ps.signals != nil {
			ps.signals.DeregisterPedestrian(id)
		}
		ps.peds[i] = ps.peds[len(ps.peds)-1]
		ps.peds = ps.peds[:len(ps.peds)-1]
		return true
	}
	return false
}

// Clear removes every pedestrian, deregistering each from all crosswalks.
func (ps *PedestrianSystem) Clear() {
	if ps.signals != nil {
		for i := range ps.peds {
			ps.signals.DeregisterPedestrian(ps.peds[i].ID)
		}
	}
	ps.peds = ps.peds[:0]
}

// Update advances every pedestrian exactly one tick.
func (ps *PedestrianSystem) Update() {
	if ps.grid == nil || len(ps.peds) == 0 {
		return
	}
	if ps.index == nil {
		ps.index = newAgentIndex(ps.grid.Width(), ps.grid.Height(), indexCellSize)
	}
	// Snapshot positions; avoidance checks below read tick-start state.
	ps.index.rebuild(len(ps.peds), func(i int) (float64, float64) {
		return ps.peds[i].X, ps.peds[i].Y
	})
	for i := range ps.peds {
		ps.step(i)
	}
}

func (ps *PedestrianSystem) step(i int) {
	p := &ps.peds[i]

	ps.syncRegistry(p)

	if !ps.canStand(p.X, p.Y, p.Crossing) {
		ps.relocate(p)
		return
	}

	tx := math.Floor(p.X)
	ty := math.Floor(p.Y)
	cx := tx + 0.5
	cy := ty + 0.5
	window := 2 * p.Speed
	atCenter := math.Abs(p.X-cx) < window && math.Abs(p.Y-cy) < window

	if atCenter {
		adx, ady := p.Dir.Vector()
		switch ps.classifyEntry(cx+adx, cy+ady, p.Crossing) {
		case entryBlockedSignal:
			// Wait at the center without turning; never abandon a crossing.
			return
		case entryBlockedTerrain:
			if p.Crossing {
				return
			}
			d, ok := ps.searchDirection(p, cx, cy)
			if !ok {
				// No exit at all; keep the heading and retry next tick.
				return
			}
			p.Dir = d
		default:
			ps.maybeWander(p, cx, cy)
		}
	}

	dx, dy := p.Dir.Vector()
	nx := p.X + dx*p.Speed
	ny := p.Y + dy*p.Speed

	// Soft avoidance. Crossing pedestrians ignore crowding so crosswalk
	// flow never stalls; walkers usually dodge, sometimes squeeze through.
	if !p.Crossing && ps.index.anyNear(nx, ny, PedAvoidRadius, i) {
		if ps.rng.Float64() < PedDodgeChance {
			alt, ok := ps.dodge(p, i)
			if !ok {
				return
			}
			p.Dir = alt
			adx, ady := alt.Vector()
			nx = p.X + adx*p.Speed
			ny = p.Y + ady*p.Speed
		}
	}

	if ps.classifyEntry(nx, ny, p.Crossing) != entryOK {
		// Landing tile rejected: heading stays, position snaps to center.
		p.X = cx
		p.Y = cy
		return
	}
	p.X = nx
	p.Y = ny
	if k, ok := ps.grid.KindAt(nx, ny); ok {
		p.Crossing = k.IsRoad()
	}
	// The move may have left or entered a crosswalk; vehicles read occupancy
	// between pedestrian ticks, so the registry must track the committed
	// position, not the tick-start one.
	ps.syncRegistry(p)
}

// syncRegistry aligns the crosswalk registry with the exact position. Moving
// between crosswalks re-registers; the junction body and any non-road tile
// clear every registration, so no ghost occupancy is left behind.
func (ps *PedestrianSystem) syncRegistry(p *Pedestrian) {
	if ps.signals == nil {
		return
	}
	ps.signals.DeregisterPedestrian(p.ID)
	if kind, ok := ps.grid.KindAt(p.X, p.Y); ok && kind.IsRoad() {
		if _, ok := ps.signals.CrosswalkAt(p.X, p.Y); ok {
			ps.signals.RegisterPedestrian(p.ID, p.X, p.Y)
		}
	}
}

// canStand is the walkability gate for the tile currently occupied.
func (ps *PedestrianSystem) canStand(x, y float64, crossing bool) bool {
	tx := int(math.Floor(x))
	ty := int(math.Floor(y))
	if !ps.grid.InBounds(tx, ty) {
		return false
	}
	k := ps.grid.Tiles[ty][tx].Kind
	switch {
	case k.IsWalkable():
		return true
	case !k.IsRoad():
		return false
	case crossing:
		// A crossing in progress is never interrupted for terrain reasons.
		return true
	case k == TileRoadTurn:
		return ps.signals != nil && ps.signals.CanWalkThrough(x, y)
	default:
		if ps.signals == nil {
			return false
		}
		_, ok := ps.signals.CrosswalkAt(x, y)
		return ok
	}
}

// classifyEntry reports whether the tile under (x, y) may be stepped onto,
// distinguishing signal denials from plain unwalkable terrain.
func (ps *PedestrianSystem) classifyEntry(x, y float64, crossing bool) entryVerdict {
	tx := int(math.Floor(x))
	ty := int(math.Floor(y))
	if !ps.grid.InBounds(tx, ty) {
		return entryBlockedTerrain
	}
	k := ps.grid.Tiles[ty][tx].Kind
	switch {
	case k.IsWalkable():
		return entryOK
	case !k.IsRoad():
		return entryBlockedTerrain
	case crossing:
		return entryOK
	case k == TileRoadTurn:
		if ps.signals != nil && ps.signals.CanWalkThrough(x, y) {
			return entryOK
		}
		return entryBlockedSignal
	default:
		if ps.signals == nil {
			return entryBlockedTerrain
		}
		cw, ok := ps.signals.CrosswalkAt(x, y)
		if !ok {
			return entryBlockedTerrain
		}
		if ps.signals.CanCross(cw) {
			return entryOK
		}
		return entryBlockedSignal
	}
}

// openDirections lists every heading whose neighboring tile passes the gate.
func (ps *PedestrianSystem) openDirections(p *Pedestrian, cx, cy float64) []Direction {
	open := make([]Direction, 0, 4)
	for _, d := range Directions {
		dx, dy := d.Vector()
		if ps.classifyEntry(cx+dx, cy+dy, p.Crossing) == entryOK {
			open = append(open, d)
		}
	}
	return open
}

// searchDirection picks a new heading after a terrain denial. The direct
// reverse is taken only when nothing else is open; continuing straight is
// preferred when still possible.
func (ps *PedestrianSystem) searchDirection(p *Pedestrian, cx, cy float64) (Direction, bool) {
	open := ps.openDirections(p, cx, cy)
	if len(open) == 0 {
		return p.Dir, false
	}
	rev := p.Dir.Opposite()
	cands := make([]Direction, 0, len(open))
	for _, d := range open {
		if d != rev {
			cands = append(cands, d)
		}
	}
	if len(cands) == 0 {
		return rev, true
	}
	if len(cands) == 1 {
		return cands[0], true
	}
	straight := false
	for _, d := range cands {
		if d == p.Dir {
			straight = true
			break
		}
	}
	if straight && ps.rng.Float64() < PedKeepStraightBias {
		return p.Dir, true
	}
	rest := make([]Direction, 0, len(cands))
	for _, d := range cands {
		if !straight || d != p.Dir {
			rest = append(rest, d)
		}
	}
	return rest[ps.rng.Intn(len(rest))], true
}

// maybeWander occasionally re-rolls the heading at a junction of three or
// more open directions even though straight ahead is fine.
func (ps *PedestrianSystem) maybeWander(p *Pedestrian, cx, cy float64) {
	open := ps.openDirections(p, cx, cy)
	if len(open) <= 2 || ps.rng.Float64() >= PedWanderChance {
		return
	}
	others := make([]Direction, 0, len(open))
	for _, d := range open {
		if d != p.Dir {
			others = append(others, d)
		}
	}
	if len(others) > 0 {
		p.Dir = others[ps.rng.Intn(len(others))]
	}
}

// dodge looks for a sideways heading whose test point is clear of other
// pedestrians. The blocked heading and its reverse are excluded.
func (ps *PedestrianSystem) dodge(p *Pedestrian, i int) (Direction, bool) {
	for _, d := range Directions {
		if d == p.Dir || d == p.Dir.Opposite() {
			continue
		}
		dx, dy := d.Vector()
		ax := p.X + dx*p.Speed
		ay := p.Y + dy*p.Speed
		if ps.index.anyNear(ax, ay, PedAvoidRadius, i) {
			continue
		}
		if ps.classifyEntry(ax, ay, p.Crossing) != entryOK {
			continue
		}
		return d, true
	}
	return p.Dir, false
}

// relocate drops an invalidly placed pedestrian onto a random walkable tile
// with its crossing state and registrations cleared.
func (ps *PedestrianSystem) relocate(p *Pedestrian) {
	if ps.signals != nil {
		ps.signals.DeregisterPedestrian(p.ID)
	}
	p.Crossing = false
	tiles := ps.grid.WalkableTiles()
	if len(tiles) == 0 {
		return
	}
	t := tiles[ps.rng.Intn(len(tiles))]
	p.X = float64(t[0]) + 0.5
	p.Y = float64(t[1]) + 0.5
}
