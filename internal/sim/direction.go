package sim

// Direction is one of the four cardinal headings. Grid y grows southwards,
// so North steps towards smaller row indices.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists all headings in clockwise order.
var Directions = [4]Direction{North, East, South, West}

// Vector returns the unit displacement for one step in d.
func (d Direction) Vector() (dx, dy float64) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	default:
		return -1, 0
	}
}

// Offset returns the integer tile step for d.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	default:
		return -1, 0
	}
}

func (d Direction) Opposite() Direction { return (d + 2) % 4 }

// Right is a clockwise quarter turn, Left a counter-clockwise one.
func (d Direction) Right() Direction { return (d + 1) % 4 }
func (d Direction) Left() Direction  { return (d + 3) % 4 }

// Vertical reports whether d runs along the north-south axis.
func (d Direction) Vertical() bool { return d == North || d == South }

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	default:
		return "west"
	}
}
