// Package round drives a single player's rounds: the Idle, Running, Paused
// and Terminated lifecycle, the frame loop, and the side effects of a round
// ending (scores, sound, history).
package round

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/rules"
	"github.com/brensch/snekcade/store"
)

// Event is a sound cue.
type Event int

const (
	EventEat Event = iota
	EventGameOver
)

func (e Event) String() string {
	if e == EventGameOver {
		return "game_over"
	}
	return "eat"
}

// Renderer receives a snapshot whenever the visible state changes.
type Renderer interface {
	Render(snap game.Snapshot)
}

// Notifier plays sound cues.
type Notifier interface {
	Notify(e Event)
}

// ScoreStore persists the best score and the leaderboard.
type ScoreStore interface {
	LoadBestScore() int
	SaveBestScore(best int) error
	LoadLeaderboard() []store.Entry
	SaveLeaderboard(board []store.Entry) error
}

// HistoryRecorder archives finished rounds.
type HistoryRecorder interface {
	Record(row store.RoundRow)
}

// Options are the player-facing settings.
type Options struct {
	Rules rules.Config
	Grid  game.Grid
	Sound bool
}

func DefaultOptions() Options {
	return Options{
		Rules: rules.DefaultConfig(),
		Grid:  game.DefaultGrid,
		Sound: true,
	}
}

// Deps are the collaborators a Session reports to. Any of them may be nil.
type Deps struct {
	Renderer Renderer
	Notifier Notifier
	Scores   ScoreStore
	History  HistoryRecorder
	Logger   *slog.Logger
}

// Session owns the current round. It is not safe for concurrent use: the
// host calls every method from one goroutine (the UI loop).
type Session struct {
	opts Options
	env  rules.Env
	deps Deps
	log  *slog.Logger

	state   *game.State
	pending game.DirectionBuffer
	loop    Loop

	roundID     string
	startedAt   time.Time
	normalEaten int
	bonusEaten  int

	best        int
	leaderboard []store.Entry
}

// NewSession loads persisted scores and prepares an Idle round.
// A nil env.Rng is replaced with a time-seeded generator.
func NewSession(opts Options, env rules.Env, deps Deps) *Session {
	if opts.Grid.Cols <= 0 || opts.Grid.Rows <= 0 {
		opts.Grid = game.DefaultGrid
	}
	if opts.Rules.BaseSpeed < 1 {
		opts.Rules.BaseSpeed = 1
	}
	if env.Clock == nil {
		env.Clock = rules.SystemClock{}
	}
	if env.Rng == nil {
		env.Rng = rand.New(rand.NewSource(env.Clock.Now().UnixNano()))
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{opts: opts, env: env, deps: deps, log: logger}
	if deps.Scores != nil {
		s.best = deps.Scores.LoadBestScore()
		s.leaderboard = deps.Scores.LoadLeaderboard()
	}
	s.Reset()
	return s
}

// Reset discards the current round and prepares a fresh Idle one.
func (s *Session) Reset() {
	s.state = rules.NewRound(s.opts.Grid, s.opts.Rules, s.env)
	s.pending.Clear()
	s.roundID = uuid.NewString()
	s.startedAt = time.Time{}
	s.normalEaten, s.bonusEaten = 0, 0
	s.log.Debug("round reset", "round_id", s.roundID, "mode", s.opts.Rules.Mode(), "obstacles", len(s.state.Obstacles))
	s.render()
}

// Start moves an Idle round to Running. Other states are left alone.
func (s *Session) Start() {
	if s.state.Status != game.StatusIdle {
		return
	}
	now := s.env.Clock.Now()
	s.state.Status = game.StatusRunning
	s.startedAt = now
	s.loop.Start(now)
	s.log.Info("round started", "round_id", s.roundID, "mode", s.opts.Rules.Mode(), "speed", s.opts.Rules.BaseSpeed)
	s.render()
}

// Restart resets and immediately starts a new round.
func (s *Session) Restart() {
	s.Reset()
	s.Start()
}

func (s *Session) Pause() {
	if s.state.Status != game.StatusRunning {
		return
	}
	s.state.Status = game.StatusPaused
	s.render()
}

// Resume continues a Paused round; the paused interval is not replayed.
func (s *Session) Resume() {
	if s.state.Status != game.StatusPaused {
		return
	}
	s.state.Status = game.StatusRunning
	s.loop.Hold(s.env.Clock.Now())
	s.render()
}

// TogglePause flips Running and Paused. The pending direction is untouched.
func (s *Session) TogglePause() {
	switch s.state.Status {
	case game.StatusRunning:
		s.Pause()
	case game.StatusPaused:
		s.Resume()
	}
}

// Input buffers a direction for the next tick. The first input of an Idle
// round also starts it.
func (s *Session) Input(d game.Direction) {
	if !d.Valid() {
		return
	}
	s.pending.Set(d)
	if s.state.Status == game.StatusIdle {
		s.Start()
	}
}

// Tap starts a round that is not running and otherwise toggles pause.
// Tapping a finished round starts a new one.
func (s *Session) Tap() {
	switch s.state.Status {
	case game.StatusIdle:
		s.Start()
	case game.StatusTerminated:
		s.Restart()
	default:
		s.TogglePause()
	}
}

// Frame is the per-frame callback. It runs every tick that has come due and
// returns how many ran.
func (s *Session) Frame() int {
	now := s.env.Clock.Now()
	if s.state.Status != game.StatusRunning {
		s.loop.Hold(now)
		return 0
	}

	due := s.loop.Advance(now, s.state.TickRate)
	ran := 0
	for ; ran < due; ran++ {
		s.tick()
		if s.state.Status == game.StatusTerminated {
			ran++
			break
		}
	}
	if ran > 0 {
		s.render()
	}
	return ran
}

func (s *Session) tick() {
	var pending *game.Direction
	if d, ok := s.pending.Take(); ok {
		pending = &d
	}

	next, res := rules.NextState(s.state, pending, s.opts.Rules, s.env)
	s.state = next

	if res.Ate {
		if res.Eaten == game.FoodBonus {
			s.bonusEaten++
		} else {
			s.normalEaten++
		}
		s.notify(EventEat)
	}
	if res.ObstaclesRegenerated {
		s.log.Debug("obstacles regenerated", "round_id", s.roundID, "count", len(next.Obstacles))
	}
	if res.Terminated {
		s.finish(res.Cause)
	}
}

func (s *Session) finish(cause game.Cause) {
	now := s.env.Clock.Now()
	st := s.state

	s.log.Info("round over",
		"round_id", s.roundID,
		"cause", cause.String(),
		"score", st.Score,
		"length", len(st.Snake),
		"moves", st.Moves,
	)

	if st.Score > s.best {
		s.best = st.Score
		if s.deps.Scores != nil {
			if err := s.deps.Scores.SaveBestScore(s.best); err != nil {
				s.log.Warn("save best score failed", "err", err)
			}
		}
	}

	s.leaderboard = store.InsertEntry(s.leaderboard, store.Entry{
		Score:  st.Score,
		Mode:   s.opts.Rules.Mode(),
		Speed:  s.opts.Rules.BaseSpeed,
		Length: len(st.Snake),
		Date:   now,
	})
	if s.deps.Scores != nil {
		if err := s.deps.Scores.SaveLeaderboard(s.leaderboard); err != nil {
			s.log.Warn("save leaderboard failed", "err", err)
		}
	}

	s.notify(EventGameOver)

	if s.deps.History != nil {
		s.deps.History.Record(store.RoundRow{
			RoundID:     s.roundID,
			StartedAt:   s.startedAt.UnixMilli(),
			EndedAt:     now.UnixMilli(),
			Mode:        s.opts.Rules.Mode(),
			BaseSpeed:   int32(s.opts.Rules.BaseSpeed),
			TickRate:    int32(st.TickRate),
			Cols:        st.Grid.Cols,
			Rows:        st.Grid.Rows,
			Obstacles:   int32(len(st.Obstacles)),
			Score:       int32(st.Score),
			Moves:       int32(st.Moves),
			Length:      int32(len(st.Snake)),
			NormalEaten: int32(s.normalEaten),
			BonusEaten:  int32(s.bonusEaten),
			Cause:       cause.String(),
		})
	}
}

func (s *Session) notify(e Event) {
	if !s.opts.Sound || s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Notify(e)
}

func (s *Session) render() {
	if s.deps.Renderer == nil {
		return
	}
	s.deps.Renderer.Render(s.Snapshot())
}

// Snapshot is the current view of the round.
func (s *Session) Snapshot() game.Snapshot {
	snap := s.state.Snapshot(s.env.Clock.Now())
	snap.RoundID = s.roundID
	snap.Best = s.best
	snap.Mode = s.opts.Rules.Mode()
	return snap
}

// SetBaseSpeed changes the base tick rate; it applies from the next frame.
func (s *Session) SetBaseSpeed(speed int) {
	if speed < 1 {
		speed = 1
	}
	if speed > rules.MaxTickRate {
		speed = rules.MaxTickRate
	}
	s.opts.Rules.BaseSpeed = speed
	if s.state.Status != game.StatusTerminated {
		s.state.TickRate = rules.TickRate(speed, s.state.Score)
	}
	s.render()
}

// SetWrap switches topology; it applies from the next tick.
func (s *Session) SetWrap(on bool) {
	s.opts.Rules.Wrap = on
	s.render()
}

// SetObstacles regenerates a fresh obstacle set (on) or clears it (off).
func (s *Session) SetObstacles(on bool) {
	s.opts.Rules.Obstacles = on
	s.state = rules.WithObstacles(s.state, on, s.opts.Rules, s.env)
	s.render()
}

func (s *Session) SetSound(on bool) { s.opts.Sound = on }

// ClearLeaderboard empties the stored leaderboard. The best score is kept.
func (s *Session) ClearLeaderboard() {
	s.leaderboard = nil
	if s.deps.Scores != nil {
		if err := s.deps.Scores.SaveLeaderboard(nil); err != nil {
			s.log.Warn("clear leaderboard failed", "err", err)
		}
	}
}

func (s *Session) Status() game.Status { return s.state.Status }
func (s *Session) Options() Options    { return s.opts }
func (s *Session) Best() int           { return s.best }
func (s *Session) RoundID() string     { return s.roundID }

// Leaderboard returns a copy of the current leaderboard.
func (s *Session) Leaderboard() []store.Entry {
	return append([]store.Entry(nil), s.leaderboard...)
}

// PendingDirection reports the buffered direction, if any.
func (s *Session) PendingDirection() (game.Direction, bool) {
	return s.pending.Pending()
}
