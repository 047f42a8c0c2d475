package sim

import (
	"math"

	"github.com/google/uuid"
)

// stubSignals is a hand-driven signal collaborator for tests.
type stubSignals struct {
	light       LightColor
	walkThrough bool
	crosswalks  map[[2]int]CrosswalkID // tile -> crosswalk
	deny        map[CrosswalkID]bool   // crossings currently forbidden
	occupants   map[CrosswalkID]map[uuid.UUID]struct{}
}

func newStubSignals() *stubSignals {
	return &stubSignals{
		light:       LightGreen,
		walkThrough: true,
		crosswalks:  make(map[[2]int]CrosswalkID),
		deny:        make(map[CrosswalkID]bool),
		occupants:   make(map[CrosswalkID]map[uuid.UUID]struct{}),
	}
}

// addCrosswalk marks a rectangle of tiles as one crosswalk zone.
func (s *stubSignals) addCrosswalk(id CrosswalkID, minX, minY, maxX, maxY int) {
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			s.crosswalks[[2]int{x, y}] = id
		}
	}
	if s.occupants[id] == nil {
		s.occupants[id] = make(map[uuid.UUID]struct{})
	}
}

func (s *stubSignals) LightFacing(x, y float64, dir Direction) LightColor { return s.light }

func (s *stubSignals) CrosswalkAt(x, y float64) (CrosswalkID, bool) {
	id, ok := s.crosswalks[[2]int{int(math.Floor(x)), int(math.Floor(y))}]
	return id, ok
}

func (s *stubSignals) CanCross(id CrosswalkID) bool { return !s.deny[id] }

func (s *stubSignals) CrosswalkOccupied(id CrosswalkID) bool { return len(s.occupants[id]) > 0 }

func (s *stubSignals) CanWalkThrough(x, y float64) bool { return s.walkThrough }

func (s *stubSignals) RegisterPedestrian(id uuid.UUID, x, y float64) {
	cw, ok := s.CrosswalkAt(x, y)
	if !ok {
		return
	}
	if s.occupants[cw] == nil {
		s.occupants[cw] = make(map[uuid.UUID]struct{})
	}
	s.occupants[cw][id] = struct{}{}
}

func (s *stubSignals) DeregisterPedestrian(id uuid.UUID) {
	for _, set := range s.occupants {
		delete(set, id)
	}
}

// registrations counts how many crosswalks currently hold id.
func (s *stubSignals) registrations(id uuid.UUID) int {
	n := 0
	for _, set := range s.occupants {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}

// grassGrid returns a w x h grid of plain walkable ground.
func grassGrid(w, h int) *Grid { return NewGrid(w, h) }

// eastCorridor builds a grid with one eastbound road row of n lane blocks,
// starting at block row 1, surrounded by grass. Junction block indexes in
// turns are made junction bodies instead of straight lanes.
func eastCorridor(n int, turns ...int) *Grid {
	g := NewGrid(n*LaneBlockSize, 3*LaneBlockSize)
	for bx := 0; bx < n; bx++ {
		kind := TileRoad
		for _, t := range turns {
			if bx == t {
				kind = TileRoadTurn
			}
		}
		fillBlock(g, bx, 1, kind, East)
	}
	return g
}

// ringCircuit builds an n x n block rectangular road circuit whose lane
// directions chain clockwise: east along the top, south down the right side,
// west along the bottom, north up the left side.
func ringCircuit(n int) *Grid {
	g := NewGrid(n*LaneBlockSize, n*LaneBlockSize)
	for b := 0; b < n; b++ {
		fillBlock(g, b, 0, TileRoad, East)    // top row
		fillBlock(g, n-1, b, TileRoad, South) // right column
		fillBlock(g, b, n-1, TileRoad, West)  // bottom row
		fillBlock(g, 0, b, TileRoad, North)   // left column
	}
	// Corner blocks redirect the circuit clockwise.
	fillBlock(g, n-1, 0, TileRoad, South)
	fillBlock(g, n-1, n-1, TileRoad, West)
	fillBlock(g, 0, n-1, TileRoad, North)
	fillBlock(g, 0, 0, TileRoad, East)
	return g
}

func addVehicle(ts *TrafficSystem, x, y float64, dir Direction, speed float64) *Vehicle {
	ts.vehicles = append(ts.vehicles, Vehicle{
		ID:    uuid.New(),
		X:     x,
		Y:     y,
		Dir:   dir,
		Speed: speed,
	})
	return &ts.vehicles[len(ts.vehicles)-1]
}

func addPedestrian(ps *PedestrianSystem, x, y float64, dir Direction, speed float64) *Pedestrian {
	ps.peds = append(ps.peds, Pedestrian{
		ID:    uuid.New(),
		X:     x,
		Y:     y,
		Dir:   dir,
		Speed: speed,
	})
	return &ps.peds[len(ps.peds)-1]
}
