package rules

import (
	"math/rand"
	"time"

	"github.com/brensch/snekcade/game"
)

// TrySpawn places food if the slot is empty and the cooldown since the last
// clear has elapsed. force selects the kind; nil draws it at random.
//
// The cell is drawn uniformly from cells free of snake and obstacles. A full
// board is not an error: nothing spawns and a later tick tries again.
func TrySpawn(state *game.State, force *game.FoodKind, settings FoodSettings, now time.Time, rng *rand.Rand) bool {
	if state == nil || state.Food != nil {
		return false
	}
	if !state.FoodClearedAt.IsZero() && now.Sub(state.FoodClearedAt) < settings.Cooldown {
		return false
	}
	if rng == nil {
		rng = Env{}.rand(state, foodSalt)
	}

	kind := game.FoodNormal
	if force != nil {
		kind = *force
	} else if rng.Float64() > settings.BonusThreshold {
		kind = game.FoodBonus
	}

	available := freeCells(state)
	if len(available) == 0 {
		return false
	}
	pick := available[rng.Intn(len(available))]

	food := &game.Food{Pos: pick, Kind: kind, CreatedAt: now}
	if kind == game.FoodBonus {
		ttl := settings.BonusMinTTL
		if settings.BonusJitter > 0 {
			jitterMs := rng.Int63n(settings.BonusJitter.Milliseconds() + 1)
			ttl += time.Duration(jitterMs) * time.Millisecond
		}
		food.ExpiresAt = now.Add(ttl)
	}

	state.Food = food
	state.FoodClearedAt = time.Time{}
	return true
}

// ClearFood empties the food slot and starts the respawn cooldown.
func ClearFood(state *game.State, now time.Time) {
	state.Food = nil
	state.FoodClearedAt = now
}

const foodSalt = 0x464F4F445F534E4B // "FOOD_SNK"

func freeCells(state *game.State) []game.Point {
	occupied := make(map[game.Point]struct{}, len(state.Snake)+len(state.Obstacles))
	for _, p := range state.Snake {
		occupied[p] = struct{}{}
	}
	for p := range state.Obstacles {
		occupied[p] = struct{}{}
	}

	available := make([]game.Point, 0, state.Grid.Area()-len(occupied))
	for _, p := range state.Grid.Cells() {
		if _, ok := occupied[p]; ok {
			continue
		}
		available = append(available, p)
	}
	return available
}
