package game

import (
	"sort"
	"time"
)

// FoodView is the renderer-facing description of the food slot.
type FoodView struct {
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	Kind string `json:"kind"`
	// AgeMs drives the pulse animation; ExpiresInMs is 0 for food that never expires.
	AgeMs       int64 `json:"age_ms"`
	ExpiresInMs int64 `json:"expires_in_ms,omitempty"`
}

// Snapshot is a self-contained, read-only copy of a round for renderers and
// spectators. It shares no memory with the State it was taken from.
type Snapshot struct {
	RoundID   string    `json:"round_id,omitempty"`
	Cols      int32     `json:"cols"`
	Rows      int32     `json:"rows"`
	Snake     []Point   `json:"snake"`
	Food      *FoodView `json:"food,omitempty"`
	Obstacles []Point   `json:"obstacles"`
	Score     int       `json:"score"`
	Best      int       `json:"best"`
	Moves     int       `json:"moves"`
	Length    int       `json:"length"`
	TickRate  int       `json:"tick_rate"`
	Status    string    `json:"status"`
	Cause     string    `json:"cause,omitempty"`
	Mode      string    `json:"mode"`
}

// Snapshot copies the drawable parts of the state. Obstacles are sorted
// row-major so equal states produce equal snapshots.
func (s *State) Snapshot(now time.Time) Snapshot {
	out := Snapshot{
		Cols:     s.Grid.Cols,
		Rows:     s.Grid.Rows,
		Score:    s.Score,
		Moves:    s.Moves,
		Length:   len(s.Snake),
		TickRate: s.TickRate,
		Status:   s.Status.String(),
	}
	if s.Cause != CauseNone {
		out.Cause = s.Cause.String()
	}

	out.Snake = make([]Point, len(s.Snake))
	copy(out.Snake, s.Snake)

	out.Obstacles = make([]Point, 0, len(s.Obstacles))
	for p := range s.Obstacles {
		out.Obstacles = append(out.Obstacles, p)
	}
	sort.Slice(out.Obstacles, func(i, j int) bool {
		a, b := out.Obstacles[i], out.Obstacles[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	if f := s.Food; f != nil {
		fv := &FoodView{
			X:     f.Pos.X,
			Y:     f.Pos.Y,
			Kind:  f.Kind.String(),
			AgeMs: now.Sub(f.CreatedAt).Milliseconds(),
		}
		if f.Expires() {
			if left := f.ExpiresAt.Sub(now).Milliseconds(); left > 0 {
				fv.ExpiresInMs = left
			}
		}
		out.Food = fv
	}

	return out
}

// Head returns the head cell of the snapshot's snake.
func (s Snapshot) Head() (Point, bool) {
	if len(s.Snake) == 0 {
		return Point{}, false
	}
	return s.Snake[len(s.Snake)-1], true
}
