package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/brensch/snekcade/game"
)

// Config holds the player-facing round options.
type Config struct {
	Wrap      bool // torus topology instead of walls
	Obstacles bool
	BaseSpeed int // ticks per second before score scaling

	Food     FoodSettings
	Obstacle ObstacleSettings
}

// DefaultConfig is a walled board at 8 ticks/s without obstacles.
func DefaultConfig() Config {
	return Config{
		BaseSpeed: 8,
		Food:      DefaultFoodSettings,
		Obstacle:  DefaultObstacleSettings,
	}
}

// Mode is the leaderboard label for the topology.
func (c Config) Mode() string {
	if c.Wrap {
		return "Wrap"
	}
	return "Classic"
}

// FoodSettings controls the food lifecycle.
type FoodSettings struct {
	// Cooldown is the minimum time between a clear and the next spawn.
	Cooldown time.Duration
	// BonusThreshold: a uniform draw above this yields bonus food.
	BonusThreshold float64
	// Bonus food lives BonusMinTTL plus up to BonusJitter.
	BonusMinTTL time.Duration
	BonusJitter time.Duration

	NormalPoints int
	BonusPoints  int
}

// DefaultFoodSettings gives roughly 8% bonus food living 3.0-5.2s.
var DefaultFoodSettings = FoodSettings{
	Cooldown:       200 * time.Millisecond,
	BonusThreshold: 0.92,
	BonusMinTTL:    3000 * time.Millisecond,
	BonusJitter:    2200 * time.Millisecond,
	NormalPoints:   1,
	BonusPoints:    3,
}

// Points returns the score awarded for eating food of kind k.
func (s FoodSettings) Points(k game.FoodKind) int {
	if k == game.FoodBonus {
		return s.BonusPoints
	}
	return s.NormalPoints
}

// ObstacleSettings controls obstacle generation.
type ObstacleSettings struct {
	// InitialCount is generated at round start when obstacles are enabled.
	InitialCount int
	// After eating bonus food, a uniform draw above RegenThreshold replaces the
	// obstacle set with RegenBase + score/RegenScoreStep obstacles.
	RegenThreshold float64
	RegenBase      int
	RegenScoreStep int
	// MaxAttempts bounds rejection sampling; a partial set is accepted.
	MaxAttempts int
}

var DefaultObstacleSettings = ObstacleSettings{
	InitialCount:   6,
	RegenThreshold: 0.85,
	RegenBase:      6,
	RegenScoreStep: 5,
	MaxAttempts:    5000,
}

// RegenCount is the obstacle target after a regeneration at the given score.
func (s ObstacleSettings) RegenCount(score int) int {
	step := s.RegenScoreStep
	if step <= 0 {
		step = 1
	}
	return s.RegenBase + score/step
}

// Clock is a monotonic time source. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock (which carries a monotonic reading).
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Env carries the injected effects a transition needs.
//
// If Rng is nil, a generator is seeded from a hash of the state so the same
// state always produces the same outcome. If Clock is nil, SystemClock is used.
type Env struct {
	Rng   *rand.Rand
	Clock Clock
}

func (e Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e Env) rand(state *game.State, salt uint64) *rand.Rand {
	if e.Rng != nil {
		return e.Rng
	}
	seed := int64(deterministicU64Fast(state, salt))
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

func deterministicU64Fast(state *game.State, salt uint64) uint64 {
	// Mix board size, progress counters and the head; enough to decorrelate ticks.
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(state.Grid.Cols))|(uint64(uint32(state.Grid.Rows))<<32))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(state.Moves))|(uint64(uint32(state.Score))<<32))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], salt)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(len(state.Snake))|(uint64(len(state.Obstacles))<<32))
	_, _ = h.Write(buf[:])

	if len(state.Snake) > 0 {
		head := state.Head()
		binary.LittleEndian.PutUint64(buf[:], (uint64(uint32(head.X))<<32)|uint64(uint32(head.Y)))
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}
