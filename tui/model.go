// Package tui hosts a round in the terminal: it turns key and mouse events
// into session controls, drives the frame loop with tea.Tick, and draws the
// board with lipgloss.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/round"
)

// FrameInterval is the display cadence; simulation speed is independent of it.
const FrameInterval = 16 * time.Millisecond

// FlashDuration is how long the board border stays red after a game over.
const FlashDuration = 400 * time.Millisecond

// MouseSwipeThreshold is the drag distance, in board cells, below which a
// press and release count as a tap.
const MouseSwipeThreshold = 2.0

// FrameMsg asks the model to advance the session.
type FrameMsg time.Time

func frameCmd() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

type Model struct {
	session *round.Session
	now     func() time.Time

	lastStatus game.Status
	flashUntil time.Time

	pressing bool
	pressX   int
	pressY   int

	width, height int
}

// New wraps session. now is the clock used for the game-over flash; nil
// means time.Now.
func New(session *round.Session, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		session:    session,
		now:        now,
		lastStatus: session.Status(),
	}
}

func (m Model) Init() tea.Cmd {
	return frameCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if quit := m.handleKey(msg.String()); quit {
			return m, tea.Quit
		}
	case tea.MouseMsg:
		m = m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case FrameMsg:
		m.session.Frame()
		m = m.observe()
		return m, frameCmd()
	}
	return m.observe(), nil
}

// observe starts the flash when the round has just ended.
func (m Model) observe() Model {
	status := m.session.Status()
	if status == game.StatusTerminated && m.lastStatus != game.StatusTerminated {
		m.flashUntil = m.now().Add(FlashDuration)
	}
	m.lastStatus = status
	return m
}

func (m Model) flashing() bool {
	return m.now().Before(m.flashUntil)
}

func (m Model) handleKey(key string) (quit bool) {
	s := m.session
	if d, ok := keyDirections[key]; ok {
		s.Input(d)
		return false
	}

	opts := s.Options()
	switch key {
	case "q", "ctrl+c":
		return true
	case " ", "p":
		s.TogglePause()
	case "enter":
		s.Tap()
	case "r":
		s.Restart()
	case "o":
		s.SetObstacles(!opts.Rules.Obstacles)
	case "t":
		s.SetWrap(!opts.Rules.Wrap)
	case "m":
		s.SetSound(!opts.Sound)
	case "+", "=":
		s.SetBaseSpeed(opts.Rules.BaseSpeed + 1)
	case "-", "_":
		s.SetBaseSpeed(opts.Rules.BaseSpeed - 1)
	case "x":
		s.ClearLeaderboard()
	}
	return false
}

var keyDirections = map[string]game.Direction{
	"up": game.Up, "w": game.Up, "k": game.Up,
	"down": game.Down, "s": game.Down, "j": game.Down,
	"left": game.Left, "a": game.Left, "h": game.Left,
	"right": game.Right, "d": game.Right, "l": game.Right,
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		m.pressing = true
		m.pressX, m.pressY = msg.X, msg.Y
	case tea.MouseActionRelease:
		if !m.pressing {
			return m
		}
		m.pressing = false

		// Cells are drawn two columns wide.
		dx := float64(msg.X-m.pressX) / 2
		dy := float64(msg.Y - m.pressY)
		if d, ok := game.ClassifySwipe(dx, dy, MouseSwipeThreshold); ok {
			m.session.Input(d)
			return m
		}
		if d, ok := m.buttonAt(msg.X, msg.Y); ok {
			m.session.Input(d)
			return m
		}
		m.session.Tap()
	}
	return m
}
