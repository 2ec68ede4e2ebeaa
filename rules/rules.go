package rules

import (
	"github.com/brensch/snekcade/game"
)

// MaxTickRate caps the simulation speed in ticks per second.
const MaxTickRate = 30

// ScorePerSpeedStep is how many points raise the tick rate by one.
const ScorePerSpeedStep = 6

// TickRate derives ticks per second from the base speed and score.
// It is nondecreasing in score and never exceeds MaxTickRate.
func TickRate(baseSpeed, score int) int {
	if baseSpeed < 1 {
		baseSpeed = 1
	}
	if score < 0 {
		score = 0
	}
	rate := baseSpeed + score/ScorePerSpeedStep
	if rate > MaxTickRate {
		rate = MaxTickRate
	}
	return rate
}

// Result describes what happened during one tick.
type Result struct {
	Ate    bool
	Eaten  game.FoodKind
	Points int

	Spawned              bool
	Expired              bool
	ObstaclesRegenerated bool

	Terminated bool
	Cause      game.Cause
}

const tickSalt = 0x5449434B5F534E4B // "TICK_SNK"

// NextState advances the round by one tick and returns the new state.
// The input state is not modified.
//
// pending is the buffered direction (nil for none); an exact reversal of the
// current direction is discarded. A collision yields a Terminated state that
// is otherwise identical to the input, and further calls are no-ops.
func NextState(state *game.State, pending *game.Direction, cfg Config, env Env) (*game.State, Result) {
	newState := state.Clone()
	var res Result

	if newState.Status == game.StatusTerminated {
		res.Terminated = true
		res.Cause = newState.Cause
		return newState, res
	}

	dir := newState.Dir
	if pending != nil && pending.Valid() && !pending.IsReverseOf(dir) {
		dir = *pending
	}

	newHead := newState.Head().Add(dir)
	if cfg.Wrap {
		newHead = newState.Grid.Wrap(newHead)
	} else if !newState.Grid.Contains(newHead) {
		return terminate(newState, game.CauseOutOfBounds)
	}

	if newState.InObstacles(newHead) {
		return terminate(newState, game.CauseObstacleHit)
	}

	// Checked against the whole pre-move body, tail included: the tail cell
	// is not yet vacated when the head arrives.
	if newState.InSnake(newHead) {
		return terminate(newState, game.CauseSelfCollision)
	}

	now := env.now()
	rng := env.rand(newState, tickSalt)

	newState.Dir = dir
	newState.Moves++
	newState.Snake = append(newState.Snake, newHead)

	if newState.FoodAt(newHead) {
		kind := newState.Food.Kind
		pts := cfg.Food.Points(kind)
		newState.Score += pts
		res.Ate = true
		res.Eaten = kind
		res.Points = pts
		ClearFood(newState, now)

		if kind == game.FoodBonus && cfg.Obstacles && rng.Float64() > cfg.Obstacle.RegenThreshold {
			newState.Obstacles = GenerateObstacles(newState, cfg.Obstacle.RegenCount(newState.Score), cfg.Obstacle, rng)
			res.ObstaclesRegenerated = true
		}
	} else {
		newState.Snake = append(newState.Snake[:0], newState.Snake[1:]...)
	}

	if newState.Food == nil {
		res.Spawned = TrySpawn(newState, nil, cfg.Food, now, rng)
	}

	if f := newState.Food; f != nil && f.Expires() && now.After(f.ExpiresAt) {
		ClearFood(newState, now)
		res.Expired = true
	}

	newState.TickRate = TickRate(cfg.BaseSpeed, newState.Score)
	return newState, res
}

func terminate(state *game.State, cause game.Cause) (*game.State, Result) {
	state.Status = game.StatusTerminated
	state.Cause = cause
	return state, Result{Terminated: true, Cause: cause}
}

// NewRound builds a fresh Idle round: the starting snake, obstacles when
// enabled, and an initial food item.
func NewRound(grid game.Grid, cfg Config, env Env) *game.State {
	state := game.NewState(grid)
	state.TickRate = TickRate(cfg.BaseSpeed, 0)

	rng := env.rand(state, roundSalt)
	if cfg.Obstacles {
		state.Obstacles = GenerateObstacles(state, cfg.Obstacle.InitialCount, cfg.Obstacle, rng)
	}
	TrySpawn(state, nil, cfg.Food, env.now(), rng)
	return state
}

const roundSalt = 0x524F554E445F494E // "ROUND_IN"
