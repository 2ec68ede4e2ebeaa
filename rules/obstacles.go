package rules

import (
	"math/rand"

	"github.com/brensch/snekcade/game"
)

// GenerateObstacles samples a fresh obstacle set of up to count cells.
//
// The target is capped at a sixth of the board. Cells come from the interior
// (the outer ring is never used) and must not touch the snake, the food or a
// cell already picked. Sampling stops after settings.MaxAttempts draws, so a
// crowded board yields a partial set rather than a hang.
func GenerateObstacles(state *game.State, count int, settings ObstacleSettings, rng *rand.Rand) map[game.Point]struct{} {
	out := make(map[game.Point]struct{})
	if state == nil {
		return out
	}

	limit := count
	if capped := state.Grid.Area() / 6; limit > capped {
		limit = capped
	}
	spanX, spanY := state.Grid.Cols-2, state.Grid.Rows-2
	if limit <= 0 || spanX <= 0 || spanY <= 0 {
		return out
	}
	if rng == nil {
		rng = Env{}.rand(state, obstacleSalt)
	}

	for tries := 0; len(out) < limit && tries < settings.MaxAttempts; tries++ {
		p := game.Point{X: 1 + rng.Int31n(spanX), Y: 1 + rng.Int31n(spanY)}
		if state.InSnake(p) {
			continue
		}
		if _, ok := out[p]; ok {
			continue
		}
		if state.FoodAt(p) {
			continue
		}
		out[p] = struct{}{}
	}
	return out
}

const obstacleSalt = 0x4F4253545F534E4B // "OBST_SNK"

// WithObstacles returns a copy of state with obstacles switched on or off.
// Switching on replaces the set with InitialCount fresh obstacles; switching
// off clears it. A terminated round is returned unchanged.
func WithObstacles(state *game.State, enabled bool, cfg Config, env Env) *game.State {
	next := state.Clone()
	if next == nil || next.Status == game.StatusTerminated {
		return next
	}
	if !enabled {
		next.Obstacles = make(map[game.Point]struct{})
		return next
	}
	next.Obstacles = GenerateObstacles(next, cfg.Obstacle.InitialCount, cfg.Obstacle, env.rand(next, obstacleSalt))
	return next
}
