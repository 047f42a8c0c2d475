package sim

// Default city dimensions (in tiles).
const (
	GridWidth  = 64
	GridHeight = 48
)

// LaneBlockSize is the side of the square tile block forming one lane.
// Every road tile belongs to exactly one block aligned to this size.
const LaneBlockSize = 2

// Vehicle tuning (grid units per tick unless noted).
const (
	VehicleBaseSpeed     = 0.05
	VehicleSpeedJitter   = 0.03
	VehicleLookahead     = 1.2 // distance of the blocked-ahead probe point
	VehicleBlockRadius   = 0.9 // proximity radius around the probe point
	VehicleSpawnGap      = 2.5 // min distance to existing vehicles at spawn
	VehicleDeadlockTicks = 90  // blocked ticks inside a junction before escaping
	VehicleTurnChance    = 0.40
	LaneClaimRadius      = 0.6 // a lane counts as taken within this of its center
)

// Pedestrian tuning.
const (
	PedBaseSpeed        = 0.02
	PedSpeedJitter      = 0.015
	PedAvoidRadius      = 0.35
	PedWanderChance     = 0.10
	PedKeepStraightBias = 0.60
	PedDodgeChance      = 0.70
)

// Spatial index bucket size (tiles).
const indexCellSize = 8
