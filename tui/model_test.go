package tui

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/logging"
	"github.com/brensch/snekcade/round"
	"github.com/brensch/snekcade/rules"
	"github.com/brensch/snekcade/store"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newModel(t *testing.T) (Model, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
	opts := round.DefaultOptions()
	opts.Sound = false
	s := round.NewSession(opts, rules.Env{Rng: rand.New(rand.NewSource(9)), Clock: clock}, round.Deps{Logger: logging.Discard()})
	return New(s, clock.Now), clock
}

func press(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func frame(m Model, clock *fakeClock, d time.Duration) Model {
	clock.Advance(d)
	next, cmd := m.Update(FrameMsg(clock.Now()))
	if cmd == nil {
		panic("frame did not schedule the next frame")
	}
	return next.(Model)
}

func mouse(m Model, action tea.MouseAction, x, y int) Model {
	next, _ := m.Update(tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft})
	return next.(Model)
}

func TestModel_KeysDriveTheSession(t *testing.T) {
	m, clock := newModel(t)

	m = press(m, "up")
	if m.session.Status() != game.StatusRunning {
		t.Fatalf("status=%s want running after a direction key", m.session.Status())
	}
	m = press(m, " ")
	if m.session.Status() != game.StatusPaused {
		t.Fatalf("status=%s want paused", m.session.Status())
	}
	if d, ok := m.session.PendingDirection(); !ok || d != game.Up {
		t.Fatalf("pause lost the pending direction")
	}
	m = press(m, " ")

	m = frame(m, clock, 125*time.Millisecond)
	if head, _ := m.session.Snapshot().Head(); head != (game.Point{X: 11, Y: 9}) {
		t.Fatalf("head=%v want (11,9)", head)
	}

	m = press(m, "o")
	if !m.session.Options().Rules.Obstacles || len(m.session.Snapshot().Obstacles) == 0 {
		t.Fatalf("o did not enable obstacles")
	}
	m = press(m, "o")
	if len(m.session.Snapshot().Obstacles) != 0 {
		t.Fatalf("o did not clear obstacles")
	}

	m = press(m, "+")
	if m.session.Options().Rules.BaseSpeed != 9 {
		t.Fatalf("speed=%d want=9", m.session.Options().Rules.BaseSpeed)
	}
	m = press(m, "-")
	m = press(m, "t")
	if !m.session.Options().Rules.Wrap {
		t.Fatalf("t did not enable wrap")
	}
	m = press(m, "m")
	if !m.session.Options().Sound {
		t.Fatalf("m did not enable sound")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}

func TestModel_GameOverFlashesAndRestarts(t *testing.T) {
	m, clock := newModel(t)
	m = press(m, "up")
	m = frame(m, clock, 2*time.Second)

	if m.session.Status() != game.StatusTerminated {
		t.Fatalf("status=%s want terminated", m.session.Status())
	}
	if !m.flashing() {
		t.Fatalf("no flash right after game over")
	}
	view := m.View()
	if !strings.Contains(view, "Game over (out of bounds)") {
		t.Fatalf("view missing game over line:\n%s", view)
	}
	if strings.Contains(view, "No scores yet") {
		t.Fatalf("leaderboard not shown after a round:\n%s", view)
	}

	m = frame(m, clock, FlashDuration)
	if m.flashing() {
		t.Fatalf("flash still on after %v", FlashDuration)
	}

	m = press(m, "r")
	if m.session.Status() != game.StatusRunning {
		t.Fatalf("r gave status %s", m.session.Status())
	}

	m = press(m, "x")
	if len(m.session.Leaderboard()) != 0 {
		t.Fatalf("x did not clear the leaderboard")
	}
}

func TestModel_MouseSwipeTapAndPad(t *testing.T) {
	m, _ := newModel(t)

	// Tap inside the board starts the round.
	m = mouse(m, tea.MouseActionPress, 10, 5)
	m = mouse(m, tea.MouseActionRelease, 10, 5)
	if m.session.Status() != game.StatusRunning {
		t.Fatalf("tap gave status %s", m.session.Status())
	}

	// Vertical drag of four rows is a swipe up.
	m = mouse(m, tea.MouseActionPress, 10, 8)
	m = mouse(m, tea.MouseActionRelease, 11, 4)
	if d, ok := m.session.PendingDirection(); !ok || d != game.Up {
		t.Fatalf("pending=%s,%v want up", d, ok)
	}

	// Down button on the pad.
	rows := int(m.session.Snapshot().Rows)
	x, y := padIndent+padWidth+1, rows+3
	m = mouse(m, tea.MouseActionPress, x, y)
	m = mouse(m, tea.MouseActionRelease, x, y)
	if d, ok := m.session.PendingDirection(); !ok || d != game.Down {
		t.Fatalf("pending=%s,%v want down from the pad", d, ok)
	}
	if m.session.Status() != game.StatusRunning {
		t.Fatalf("pad press toggled pause")
	}

	// A second plain tap pauses.
	m = mouse(m, tea.MouseActionPress, 10, 5)
	m = mouse(m, tea.MouseActionRelease, 10, 5)
	if m.session.Status() != game.StatusPaused {
		t.Fatalf("second tap gave %s", m.session.Status())
	}
}

func TestView_IdleBoard(t *testing.T) {
	m, _ := newModel(t)
	view := m.View()
	for _, want := range []string{"SNAKE", "Score", "No scores yet", "Press a direction to start", padUp, cellHead} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	t.Logf("\n%s", view)
}

func TestRenderScoreboard_Entries(t *testing.T) {
	out := renderScoreboard([]store.Entry{
		{Score: 12, Mode: "Wrap", Speed: 10, Length: 15, Date: time.Date(2026, 5, 1, 18, 0, 0, 0, time.Local)},
	})
	if !strings.Contains(out, "1. 12 — Wrap — 10 — 2026-05-01 18:00") {
		t.Fatalf("scoreboard=%q", out)
	}
}
