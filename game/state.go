// Package game defines the core state types for the arcade snake game.
//
// These types hold everything the rules need to advance a round by one tick
// and everything a renderer needs to draw it. The state is cheap to clone so
// transitions can be applied to a copy and compared in tests.
package game

import "time"

// Point is a board coordinate.
// (0,0) is the top-left cell; y grows downward, matching screen rows.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Direction) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// FoodKind distinguishes regular food from the time-limited bonus variant.
type FoodKind uint8

const (
	FoodNormal FoodKind = iota
	FoodBonus
)

func (k FoodKind) String() string {
	switch k {
	case FoodNormal:
		return "normal"
	case FoodBonus:
		return "bonus"
	default:
		return "unknown"
	}
}

// Food is the single food item on the board.
// A zero ExpiresAt means the food never expires.
type Food struct {
	Pos       Point
	Kind      FoodKind
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expires reports whether the food carries an expiry timestamp.
func (f Food) Expires() bool {
	return !f.ExpiresAt.IsZero()
}

// Status is the round lifecycle state.
type Status uint8

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Cause records why a round terminated.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseOutOfBounds
	CauseObstacleHit
	CauseSelfCollision
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseOutOfBounds:
		return "out_of_bounds"
	case CauseObstacleHit:
		return "obstacle_hit"
	case CauseSelfCollision:
		return "self_collision"
	default:
		return "unknown"
	}
}

// State is the complete mutable state of one round.
//
// Snake is ordered tail first: Snake[0] is the tail, Snake[len-1] the head.
// Obstacles is a set; membership is all that matters.
type State struct {
	Grid      Grid
	Snake     []Point
	Dir       Direction
	Food      *Food
	Obstacles map[Point]struct{}

	Score    int
	Moves    int
	TickRate int

	// FoodClearedAt is when the food slot was last emptied. Zero means never,
	// which lets the very first spawn skip the cooldown.
	FoodClearedAt time.Time

	Status Status
	Cause  Cause
}

// Head returns the head segment. The snake always has at least one segment.
func (s *State) Head() Point {
	return s.Snake[len(s.Snake)-1]
}

// InSnake reports whether p is occupied by any snake segment.
func (s *State) InSnake(p Point) bool {
	for _, b := range s.Snake {
		if b == p {
			return true
		}
	}
	return false
}

// InObstacles reports whether p is an obstacle cell.
func (s *State) InObstacles(p Point) bool {
	_, ok := s.Obstacles[p]
	return ok
}

// FoodAt reports whether the food currently sits on p.
func (s *State) FoodAt(p Point) bool {
	return s.Food != nil && s.Food.Pos == p
}

// Clone performs a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := *s

	if len(s.Snake) > 0 {
		out.Snake = make([]Point, len(s.Snake))
		copy(out.Snake, s.Snake)
	}

	if s.Food != nil {
		f := *s.Food
		out.Food = &f
	}

	if s.Obstacles != nil {
		out.Obstacles = make(map[Point]struct{}, len(s.Obstacles))
		for p := range s.Obstacles {
			out.Obstacles[p] = struct{}{}
		}
	}

	return &out
}

// NewState returns a fresh Idle round on grid g: a three segment snake
// centred on the board heading right, no food and no obstacles.
func NewState(g Grid) *State {
	cx, cy := g.Cols/2, g.Rows/2
	return &State{
		Grid: g,
		Snake: []Point{
			{X: cx - 1, Y: cy},
			{X: cx, Y: cy},
			{X: cx + 1, Y: cy},
		},
		Dir:       Right,
		Obstacles: map[Point]struct{}{},
		Status:    StatusIdle,
	}
}
