package sim

import "github.com/google/uuid"

// LightColor is a traffic light state as seen by an approaching vehicle.
type LightColor uint8

const (
	LightRed LightColor = iota
	LightYellow
	LightGreen
)

func (c LightColor) String() string {
	switch c {
	case LightRed:
		return "red"
	case LightYellow:
		return "yellow"
	default:
		return "green"
	}
}

// CrosswalkID identifies one marked crossing within the signal collaborator.
type CrosswalkID int

// Signals is the traffic-signal collaborator shared by both agent systems.
// The pedestrian system is the sole writer of crosswalk occupancy; the
// vehicle system reads light colors and occupancy. A nil collaborator
// degrades to always-green with no crosswalk zones.
type Signals interface {
	// LightFacing returns the light shown to traffic heading dir at the
	// junction containing (x, y). Uncontrolled positions read green.
	LightFacing(x, y float64, dir Direction) LightColor

	// CrosswalkAt resolves a continuous position to the crosswalk zone
	// containing it, if any.
	CrosswalkAt(x, y float64) (CrosswalkID, bool)

	// CanCross reports whether pedestrians may currently enter the crosswalk.
	CanCross(id CrosswalkID) bool

	// CrosswalkOccupied reports whether any pedestrian is registered on it.
	CrosswalkOccupied(id CrosswalkID) bool

	// CanWalkThrough reports whether pedestrians may currently traverse the
	// junction body containing (x, y).
	CanWalkThrough(x, y float64) bool

	// RegisterPedestrian records a pedestrian standing on the crosswalk at
	// (x, y). A position outside any crosswalk is a no-op.
	RegisterPedestrian(id uuid.UUID, x, y float64)

	// DeregisterPedestrian removes a pedestrian from every crosswalk.
	DeregisterPedestrian(id uuid.UUID)
}
