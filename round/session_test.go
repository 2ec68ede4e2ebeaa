package round

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/logging"
	"github.com/brensch/snekcade/rules"
	"github.com/brensch/snekcade/store"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingRenderer struct {
	frames []game.Snapshot
}

func (r *recordingRenderer) Render(s game.Snapshot) { r.frames = append(r.frames, s) }

func (r *recordingRenderer) last() game.Snapshot { return r.frames[len(r.frames)-1] }

type recordingNotifier struct {
	events []Event
}

func (n *recordingNotifier) Notify(e Event) { n.events = append(n.events, e) }

type memScores struct {
	best      int
	board     []store.Entry
	bestSaves int
	failSaves bool
}

func (m *memScores) LoadBestScore() int { return m.best }
func (m *memScores) SaveBestScore(b int) error {
	if m.failSaves {
		return errors.New("disk full")
	}
	m.best = b
	m.bestSaves++
	return nil
}
func (m *memScores) LoadLeaderboard() []store.Entry { return append([]store.Entry(nil), m.board...) }
func (m *memScores) SaveLeaderboard(b []store.Entry) error {
	if m.failSaves {
		return errors.New("disk full")
	}
	m.board = append([]store.Entry(nil), b...)
	return nil
}

type memHistory struct {
	rows []store.RoundRow
}

func (h *memHistory) Record(r store.RoundRow) { h.rows = append(h.rows, r) }

type harness struct {
	clock    *fakeClock
	renderer *recordingRenderer
	notifier *recordingNotifier
	scores   *memScores
	history  *memHistory
	session  *Session
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock:    &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		renderer: &recordingRenderer{},
		notifier: &recordingNotifier{},
		scores:   &memScores{},
		history:  &memHistory{},
	}
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	h.session = NewSession(opts, rules.Env{Rng: rand.New(rand.NewSource(11)), Clock: h.clock}, Deps{
		Renderer: h.renderer,
		Notifier: h.notifier,
		Scores:   h.scores,
		History:  h.history,
		Logger:   logging.Discard(),
	})
	return h
}

// clearBoard removes food and keeps it from respawning so a test controls
// exactly what the snake meets.
func (h *harness) clearBoard() {
	h.session.opts.Rules.Food.Cooldown = 24 * time.Hour
	h.session.state.Food = nil
	h.session.state.FoodClearedAt = h.clock.Now()
}

func TestSession_StartsIdleWithFood(t *testing.T) {
	h := newHarness(t, nil)
	snap := h.session.Snapshot()
	if snap.Status != "idle" {
		t.Fatalf("status=%s want idle", snap.Status)
	}
	if snap.Food == nil {
		t.Fatalf("fresh round has no food")
	}
	if snap.RoundID == "" || snap.Mode != "Classic" {
		t.Fatalf("round id=%q mode=%q", snap.RoundID, snap.Mode)
	}
	if len(h.renderer.frames) == 0 {
		t.Fatalf("reset did not render")
	}
	if n := h.session.Frame(); n != 0 {
		t.Fatalf("idle frame ran %d ticks", n)
	}
}

func TestSession_InputAutoStartsAndPauseFreezes(t *testing.T) {
	h := newHarness(t, nil)
	h.clearBoard()

	h.session.Input(game.Up)
	if h.session.Status() != game.StatusRunning {
		t.Fatalf("status=%s want running", h.session.Status())
	}

	h.session.TogglePause()
	if h.session.Status() != game.StatusPaused {
		t.Fatalf("status=%s want paused", h.session.Status())
	}
	if d, ok := h.session.PendingDirection(); !ok || d != game.Up {
		t.Fatalf("pause dropped the pending direction: %s,%v", d, ok)
	}

	h.clock.Advance(5 * time.Second)
	if n := h.session.Frame(); n != 0 {
		t.Fatalf("paused frame ran %d ticks", n)
	}

	h.session.TogglePause()
	h.clock.Advance(125 * time.Millisecond)
	if n := h.session.Frame(); n != 1 {
		t.Fatalf("ticks=%d want=1 (paused time must not be replayed)", n)
	}
	snap := h.session.Snapshot()
	if head, _ := snap.Head(); head != (game.Point{X: 11, Y: 9}) {
		t.Fatalf("head=%v want (11,9)", head)
	}
	if snap.Moves != 1 {
		t.Fatalf("moves=%d want=1", snap.Moves)
	}
}

func TestSession_PauseResumeAreIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.session.Pause()
	if h.session.Status() != game.StatusIdle {
		t.Fatalf("pause moved an idle round to %s", h.session.Status())
	}
	h.session.Start()
	h.session.Resume()
	if h.session.Status() != game.StatusRunning {
		t.Fatalf("resume of running round gave %s", h.session.Status())
	}
	h.session.Pause()
	h.session.Pause()
	if h.session.Status() != game.StatusPaused {
		t.Fatalf("status=%s want paused", h.session.Status())
	}
}

func TestSession_WallEndsRoundAndRecords(t *testing.T) {
	h := newHarness(t, nil)
	h.clearBoard()
	firstID := h.session.RoundID()

	h.session.Start()
	h.clock.Advance(2 * time.Second) // 16 ticks due at 8/s
	ran := h.session.Frame()
	if ran != 9 {
		t.Fatalf("ticks=%d want=9 (8 moves then the wall)", ran)
	}

	snap := h.session.Snapshot()
	if snap.Status != "terminated" || snap.Cause != "out_of_bounds" {
		t.Fatalf("status=%s cause=%s", snap.Status, snap.Cause)
	}
	if head, _ := snap.Head(); head != (game.Point{X: 19, Y: 10}) {
		t.Fatalf("head=%v want (19,10)", head)
	}

	if len(h.scores.board) != 1 {
		t.Fatalf("leaderboard=%v", h.scores.board)
	}
	e := h.scores.board[0]
	if e.Score != 0 || e.Mode != "Classic" || e.Speed != 8 || e.Length != 3 || !e.Date.Equal(h.clock.Now()) {
		t.Fatalf("entry=%+v", e)
	}
	if h.scores.bestSaves != 0 {
		t.Fatalf("best saved for a score that does not beat it")
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0] != EventGameOver {
		t.Fatalf("events=%v", h.notifier.events)
	}
	if len(h.history.rows) != 1 {
		t.Fatalf("history rows=%d", len(h.history.rows))
	}
	row := h.history.rows[0]
	if row.RoundID != firstID || row.Cause != "out_of_bounds" || row.Moves != 8 || row.Length != 3 || row.Mode != "Classic" {
		t.Fatalf("history row=%+v", row)
	}
	if h.renderer.last().Status != "terminated" {
		t.Fatalf("terminal state not rendered")
	}

	// Frozen until reset.
	h.session.Input(game.Up)
	h.clock.Advance(time.Second)
	if n := h.session.Frame(); n != 0 {
		t.Fatalf("terminated round ran %d ticks", n)
	}
	if h.session.Status() != game.StatusTerminated {
		t.Fatalf("input revived a terminated round")
	}

	h.session.Tap()
	if h.session.Status() != game.StatusRunning || h.session.RoundID() == firstID {
		t.Fatalf("tap did not start a new round: %s %s", h.session.Status(), h.session.RoundID())
	}
}

func TestSession_EatNotifiesAndBestScoreStrictlyGreater(t *testing.T) {
	h := newHarness(t, nil)
	h.scores.best = 1
	h.session.best = 1
	h.clearBoard()
	h.session.state.Food = &game.Food{Pos: game.Point{X: 12, Y: 10}, Kind: game.FoodNormal, CreatedAt: h.clock.Now()}

	h.session.Start()
	h.clock.Advance(125 * time.Millisecond)
	h.session.Frame()

	snap := h.session.Snapshot()
	if snap.Score != 1 || snap.Length != 4 {
		t.Fatalf("score=%d length=%d want 1,4", snap.Score, snap.Length)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0] != EventEat {
		t.Fatalf("events=%v", h.notifier.events)
	}

	h.clock.Advance(2 * time.Second)
	h.session.Frame()
	if h.session.Status() != game.StatusTerminated {
		t.Fatalf("status=%s want terminated", h.session.Status())
	}
	if h.scores.bestSaves != 0 || h.session.Best() != 1 {
		t.Fatalf("equal score replaced best: saves=%d best=%d", h.scores.bestSaves, h.session.Best())
	}
	if h.history.rows[0].NormalEaten != 1 {
		t.Fatalf("normal eaten=%d", h.history.rows[0].NormalEaten)
	}

	h.session.Restart()
	h.clearBoard()
	h.session.state.Food = &game.Food{Pos: game.Point{X: 12, Y: 10}, Kind: game.FoodBonus, CreatedAt: h.clock.Now(), ExpiresAt: h.clock.Now().Add(4 * time.Second)}
	h.clock.Advance(2 * time.Second)
	h.session.Frame()
	if h.session.Best() != 3 || h.scores.best != 3 || h.scores.bestSaves != 1 {
		t.Fatalf("best=%d stored=%d saves=%d want 3,3,1", h.session.Best(), h.scores.best, h.scores.bestSaves)
	}
	if lb := h.session.Leaderboard(); len(lb) != 2 || lb[0].Score != 3 {
		t.Fatalf("leaderboard=%+v", lb)
	}
}

func TestSession_SoundOffIsSilent(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Sound = false })
	h.clearBoard()
	h.session.state.Food = &game.Food{Pos: game.Point{X: 12, Y: 10}, Kind: game.FoodNormal}
	h.session.Start()
	h.clock.Advance(2 * time.Second)
	h.session.Frame()
	if len(h.notifier.events) != 0 {
		t.Fatalf("events=%v with sound off", h.notifier.events)
	}

	h.session.SetSound(true)
	h.session.Restart()
	h.clearBoard()
	h.clock.Advance(2 * time.Second)
	h.session.Frame()
	if len(h.notifier.events) != 1 || h.notifier.events[0] != EventGameOver {
		t.Fatalf("events=%v after enabling sound", h.notifier.events)
	}
}

func TestSession_PersistenceFailuresDoNotStopTheRound(t *testing.T) {
	h := newHarness(t, nil)
	h.scores.failSaves = true
	h.clearBoard()
	h.session.state.Food = &game.Food{Pos: game.Point{X: 12, Y: 10}, Kind: game.FoodNormal}
	h.session.Start()
	h.clock.Advance(2 * time.Second)
	h.session.Frame()
	if h.session.Status() != game.StatusTerminated || h.session.Best() != 1 {
		t.Fatalf("status=%s best=%d", h.session.Status(), h.session.Best())
	}
	if len(h.session.Leaderboard()) != 1 {
		t.Fatalf("in-memory leaderboard not updated")
	}
}

func TestSession_LiveOptionChanges(t *testing.T) {
	h := newHarness(t, nil)

	h.session.SetObstacles(true)
	if got := len(h.session.Snapshot().Obstacles); got != rules.DefaultObstacleSettings.InitialCount {
		t.Fatalf("obstacles=%d after enabling", got)
	}
	h.session.SetObstacles(false)
	if got := len(h.session.Snapshot().Obstacles); got != 0 {
		t.Fatalf("obstacles=%d after disabling", got)
	}

	h.session.SetBaseSpeed(12)
	if got := h.session.Snapshot().TickRate; got != 12 {
		t.Fatalf("tick rate=%d want=12", got)
	}
	h.session.SetBaseSpeed(100)
	if got := h.session.Options().Rules.BaseSpeed; got != rules.MaxTickRate {
		t.Fatalf("base speed=%d want clamp to %d", got, rules.MaxTickRate)
	}
	h.session.SetBaseSpeed(8)

	h.session.SetWrap(true)
	if h.session.Snapshot().Mode != "Wrap" {
		t.Fatalf("mode=%s want Wrap", h.session.Snapshot().Mode)
	}
	h.clearBoard()
	h.session.Start()
	h.clock.Advance(2 * time.Second)
	h.session.Frame()
	if h.session.Status() != game.StatusRunning {
		t.Fatalf("wrap round ended: %s", h.session.Snapshot().Cause)
	}
	if head, _ := h.session.Snapshot().Head(); head != (game.Point{X: 7, Y: 10}) {
		t.Fatalf("head=%v want (7,10) after 16 wrapped ticks", head)
	}
}

func TestSession_ClearLeaderboardKeepsBest(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	scores := &memScores{best: 9, board: []store.Entry{{Score: 9}, {Score: 2}}}
	s := NewSession(DefaultOptions(), rules.Env{Rng: rand.New(rand.NewSource(3)), Clock: clock}, Deps{Scores: scores, Logger: logging.Discard()})

	if s.Best() != 9 || len(s.Leaderboard()) != 2 {
		t.Fatalf("loaded best=%d board=%v", s.Best(), s.Leaderboard())
	}
	s.ClearLeaderboard()
	if len(scores.board) != 0 || len(s.Leaderboard()) != 0 {
		t.Fatalf("leaderboard not cleared")
	}
	if s.Best() != 9 || scores.best != 9 {
		t.Fatalf("best changed by clearing the board")
	}
}

func TestSession_TapTogglesPause(t *testing.T) {
	h := newHarness(t, nil)
	h.session.Tap()
	if h.session.Status() != game.StatusRunning {
		t.Fatalf("first tap: %s", h.session.Status())
	}
	h.session.Tap()
	if h.session.Status() != game.StatusPaused {
		t.Fatalf("second tap: %s", h.session.Status())
	}
	h.session.Tap()
	if h.session.Status() != game.StatusRunning {
		t.Fatalf("third tap: %s", h.session.Status())
	}
}

func TestLoop_Accumulates(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var l Loop
	if n := l.Advance(t0, 10); n != 0 {
		t.Fatalf("unanchored advance=%d", n)
	}
	if n := l.Advance(t0.Add(250*time.Millisecond), 10); n != 2 {
		t.Fatalf("ticks=%d want=2", n)
	}
	if l.Pending() != 50*time.Millisecond {
		t.Fatalf("pending=%v want=50ms", l.Pending())
	}
	if n := l.Advance(t0.Add(300*time.Millisecond), 10); n != 1 {
		t.Fatalf("ticks=%d want=1", n)
	}

	l.Hold(t0.Add(10 * time.Second))
	if n := l.Advance(t0.Add(10*time.Second+99*time.Millisecond), 10); n != 0 {
		t.Fatalf("held time leaked into the accumulator")
	}

	if n := l.Advance(t0.Add(11*time.Second), 0); n == 0 {
		t.Fatalf("rate 0 treated as 1/s should still tick")
	}

	l.Start(t0)
	if n := l.Advance(t0.Add(time.Second), 1000); n != 1000 {
		t.Fatalf("ticks=%d want=1000 at a high rate", n)
	}
}
