package sim

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnFailsWithoutStraightLanes(t *testing.T) {
	ts := NewTrafficSystem(1)
	ts.SetGrid(grassGrid(8, 8))

	assert.False(t, ts.Spawn())
	assert.Equal(t, 0, ts.Count())

	ts = NewTrafficSystem(1)
	assert.False(t, ts.Spawn(), "no grid")
}

func TestSpawnPlacesVehicleOnLaneCenter(t *testing.T) {
	ts := NewTrafficSystem(7)
	ts.SetGrid(eastCorridor(6))

	require.True(t, ts.Spawn())
	v := ts.Vehicles()[0]
	lane, ok := ts.grid.LaneAt(v.X, v.Y)
	require.True(t, ok)
	cx, cy := LaneCenter(lane.OriginX, lane.OriginY)
	assert.Equal(t, cx, v.X)
	assert.Equal(t, cy, v.Y)
	assert.Equal(t, lane.Dir, v.Dir)
	assert.Greater(t, v.Speed, 0.0)
}

func TestSpawnRejectsCrowdedPoint(t *testing.T) {
	ts := NewTrafficSystem(3)
	ts.SetGrid(eastCorridor(1))

	require.True(t, ts.Spawn())
	assert.False(t, ts.Spawn(), "single lane block is already taken")
	assert.Equal(t, 1, ts.Count())
}

func TestVehicleCruisesStraight(t *testing.T) {
	ts := NewTrafficSystem(1)
	ts.SetGrid(eastCorridor(10))
	addVehicle(ts, 3.0, 3.0, East, 0.05)

	for i := 0; i < 40; i++ {
		ts.Update()
	}
	v := ts.Vehicles()[0]
	assert.InDelta(t, 5.0, v.X, 1e-9)
	assert.Equal(t, 3.0, v.Y)
	assert.Equal(t, East, v.Dir)
	assert.Equal(t, 0, v.Waiting)
}

func TestTrailingVehicleBlocks(t *testing.T) {
	ts := NewTrafficSystem(1)
	ts.SetGrid(eastCorridor(10))
	addVehicle(ts, 5.5, 3.0, East, 0.05) // leader
	addVehicle(ts, 4.3, 3.0, East, 0.05) // trailer, inside the lookahead zone

	ts.Update()

	leader := ts.Vehicles()[0]
	trailer := ts.Vehicles()[1]
	assert.InDelta(t, 5.55, leader.X, 1e-9)
	assert.Equal(t, 0, leader.Waiting)
	assert.Equal(t, 4.3, trailer.X, "trailer holds position")
	assert.Equal(t, 1, trailer.Waiting)
}

func TestVehicleIgnoresTrafficBehind(t *testing.T) {
	ts := NewTrafficSystem(1)
	ts.SetGrid(eastCorridor(10))
	addVehicle(ts, 5.5, 3.0, East, 0.05)
	// Oncoming car close behind the probe point never counts as traffic.
	addVehicle(ts, 4.8, 3.0, West, 0.05)

	ts.Update()
	assert.Equal(t, 0, ts.Vehicles()[0].Waiting)
	assert.InDelta(t, 5.55, ts.Vehicles()[0].X, 1e-9)
}

func TestRedLightHoldsVehicleAtDecisionPoint(t *testing.T) {
	sig := newStubSignals()
	sig.light = LightRed
	ts := NewTrafficSystem(1)
	ts.SetGrid(eastCorridor(8, 4)) // junction two lane steps ahead of block 2
	ts.SetSignals(sig)
	addVehicle(ts, 5.0, 3.0, East, 0.05)

	for i := 0; i < 3; i++ {
		ts.Update()
	}
	v := ts.Vehicles()[0]
	assert.Equal(t, 5.0, v.X, "held at the lane center")
	assert.Equal(t, 3, v.Waiting)

	sig.light = LightYellow
	ts.Update()
	assert.Equal(t, 5.0, ts.Vehicles()[0].X, "yellow holds too")

	sig.light = LightGreen
	ts.Update()
	v = ts.Vehicles()[0]
	assert.InDelta(t, 5.05, v.X, 1e-9)
	assert.Equal(t, 0, v.Waiting)
}

func TestVehicleYieldsToOccupiedCrosswalk(t *testing.T) {
	sig := newStubSignals()
	sig.addCrosswalk(1, 6, 2, 7, 3) // on the lane block directly ahead
	sig.occupants[1][uuid.New()] = struct{}{}
	ts := NewTrafficSystem(1)
	ts.SetGrid(eastCorridor(8, 4))
	ts.SetSignals(sig)
	addVehicle(ts, 5.0, 3.0, East, 0.05)

	ts.Update()
	assert.Equal(t, 5.0, ts.Vehicles()[0].X, "held short of the crosswalk")
	assert.Equal(t, 1, ts.Vehicles()[0].Waiting)

	ts.SetYieldToPedestrians(false)
	ts.Update()
	assert.InDelta(t, 5.05, ts.Vehicles()[0].X, 1e-9)
}

func TestDeadlockEscapePicksFreeExit(t *testing.T) {
	g := NewGrid(12, 12)
	fillBlock(g, 2, 2, TileRoadTurn, East)
	fillBlock(g, 3, 2, TileRoad, East)
	fillBlock(g, 1, 2, TileRoad, West)
	fillBlock(g, 2, 1, TileRoad, North)
	fillBlock(g, 2, 3, TileRoad, South)

	ts := NewTrafficSystem(42)
	ts.SetGrid(g)
	stuck := addVehicle(ts, 5.0, 5.0, East, 0.05)
	stuck.InIntersection = true
	stuck.Waiting = VehicleDeadlockTicks
	addVehicle(ts, 6.2, 5.0, East, 0.05) // blocks the eastern exit

	ts.Update()

	v := ts.Vehicles()[0]
	assert.NotEqual(t, East, v.Dir, "escape turned the vehicle")
	assert.Equal(t, 0, v.Waiting)
}

func TestOffRoadVehicleRelocates(t *testing.T) {
	ts := NewTrafficSystem(5)
	ts.SetGrid(eastCorridor(4))
	addVehicle(ts, 0.7, 0.7, North, 0.05) // stranded on grass

	ts.Update()

	v := ts.Vehicles()[0]
	lane, ok := ts.grid.LaneAt(v.X, v.Y)
	require.True(t, ok, "back on a road lane")
	assert.Equal(t, lane.Dir, v.Dir)
	assert.Equal(t, 0, v.Waiting)
	assert.False(t, v.InIntersection)
}

func TestVehicleFollowsRingCircuit(t *testing.T) {
	ts := NewTrafficSystem(9)
	ts.SetGrid(ringCircuit(4))
	addVehicle(ts, 1.0, 1.0, East, 0.05)

	seen := map[Direction]bool{}
	for i := 0; i < 600; i++ {
		ts.Update()
		v := ts.Vehicles()[0]
		_, ok := ts.grid.LaneAt(v.X, v.Y)
		require.True(t, ok, "tick %d: left the road at (%v, %v)", i, v.X, v.Y)
		require.Equal(t, 0, v.Waiting, "tick %d: nothing ever blocks the loop", i)
		seen[v.Dir] = true
	}
	assert.Len(t, seen, 4, "a full circuit uses all four headings")
}

func TestDeadEndHaltsVehicle(t *testing.T) {
	g := NewGrid(8, 8)
	fillBlock(g, 1, 1, TileRoad, East) // a single isolated block
	ts := NewTrafficSystem(1)
	ts.SetGrid(g)
	addVehicle(ts, 3.0, 3.0, East, 0.05)

	ts.Update()
	v := ts.Vehicles()[0]
	assert.Equal(t, 3.0, v.X)
	assert.Equal(t, 3.0, v.Y)
	assert.Equal(t, 1, v.Waiting)
}

func TestClearAndEmptyUpdate(t *testing.T) {
	ts := NewTrafficSystem(1)
	ts.SetGrid(eastCorridor(4))
	require.True(t, ts.Spawn())

	ts.Clear()
	assert.Equal(t, 0, ts.Count())
	ts.Update() // no-op with zero vehicles
	assert.Equal(t, 0, ts.Count())
}
