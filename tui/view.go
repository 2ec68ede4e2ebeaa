package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/store"
)

var (
	colorBorder   = lipgloss.Color("#334155")
	colorFlash    = lipgloss.Color("#dc2626")
	colorHead     = lipgloss.Color("#a7f3d0")
	colorBody     = lipgloss.Color("#10b981")
	colorFood     = lipgloss.Color("#fb923c")
	colorBonus    = lipgloss.Color("#f472b6")
	colorObstacle = lipgloss.Color("#64748b")
	colorDim      = lipgloss.Color("#1e293b")
	colorLabel    = lipgloss.Color("#94a3b8")

	headStyle     = lipgloss.NewStyle().Foreground(colorHead).Bold(true)
	bodyStyle     = lipgloss.NewStyle().Foreground(colorBody)
	foodStyle     = lipgloss.NewStyle().Foreground(colorFood).Bold(true)
	bonusStyle    = lipgloss.NewStyle().Foreground(colorBonus).Bold(true)
	obstacleStyle = lipgloss.NewStyle().Foreground(colorObstacle)
	emptyStyle    = lipgloss.NewStyle().Foreground(colorDim)
	labelStyle    = lipgloss.NewStyle().Foreground(colorLabel)
	titleStyle    = lipgloss.NewStyle().Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

const (
	cellHead     = "██"
	cellBody     = "▓▓"
	cellFood     = "()"
	cellBonus    = "<>"
	cellObstacle = "##"
	cellEmpty    = " ·"

	// The direction pad sits under the board, indented by padIndent columns.
	padIndent = 1
	padUp     = "[^]"
	padLeft   = "[<]"
	padDown   = "[v]"
	padRight  = "[>]"
	padWidth  = 3
)

func (m Model) View() string {
	snap := m.session.Snapshot()

	border := colorBorder
	if m.flashing() {
		border = colorFlash
	}
	board := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Render(renderBoard(snap))

	left := lipgloss.JoinVertical(lipgloss.Left, board, renderPad())
	right := lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Render(m.renderStats(snap)),
		panelStyle.Render(renderScoreboard(m.session.Leaderboard())),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right) + "\n" + helpLine + "\n"
}

func renderBoard(snap game.Snapshot) string {
	cells := make([][]string, snap.Rows)
	for y := range cells {
		row := make([]string, snap.Cols)
		for x := range row {
			row[x] = emptyStyle.Render(cellEmpty)
		}
		cells[y] = row
	}
	put := func(p game.Point, s string) {
		if p.Y >= 0 && p.Y < snap.Rows && p.X >= 0 && p.X < snap.Cols {
			cells[p.Y][p.X] = s
		}
	}

	for _, p := range snap.Obstacles {
		put(p, obstacleStyle.Render(cellObstacle))
	}
	if f := snap.Food; f != nil {
		cell := foodStyle.Render(cellFood)
		if f.Kind == game.FoodBonus.String() {
			cell = bonusStyle.Render(cellBonus)
			// Blink during the last second.
			if f.ExpiresInMs > 0 && f.ExpiresInMs < 1000 && (f.ExpiresInMs/125)%2 == 0 {
				cell = emptyStyle.Render(cellEmpty)
			}
		}
		put(game.Point{X: f.X, Y: f.Y}, cell)
	}
	for i, p := range snap.Snake {
		if i == len(snap.Snake)-1 {
			put(p, headStyle.Render(cellHead))
		} else {
			put(p, bodyStyle.Render(cellBody))
		}
	}

	lines := make([]string, len(cells))
	for y, row := range cells {
		lines[y] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

func renderPad() string {
	indent := strings.Repeat(" ", padIndent)
	return indent + strings.Repeat(" ", padWidth) + padUp + "\n" +
		indent + padLeft + padDown + padRight
}

// buttonAt maps a screen position to a direction pad button. The pad starts
// on the line after the board's bottom border.
func (m Model) buttonAt(x, y int) (game.Direction, bool) {
	rows := int(m.session.Snapshot().Rows)
	upLine := rows + 2
	x -= padIndent

	switch {
	case y == upLine && x >= padWidth && x < 2*padWidth:
		return game.Up, true
	case y == upLine+1 && x >= 0 && x < padWidth:
		return game.Left, true
	case y == upLine+1 && x >= padWidth && x < 2*padWidth:
		return game.Down, true
	case y == upLine+1 && x >= 2*padWidth && x < 3*padWidth:
		return game.Right, true
	}
	return game.Direction{}, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func statusLine(snap game.Snapshot) string {
	switch snap.Status {
	case game.StatusIdle.String():
		return "Press a direction to start"
	case game.StatusPaused.String():
		return "Paused"
	case game.StatusTerminated.String():
		return "Game over (" + strings.ReplaceAll(snap.Cause, "_", " ") + "), r to restart"
	default:
		return "Running"
	}
}

func (m Model) renderStats(snap game.Snapshot) string {
	opts := m.session.Options()
	row := func(label string, v any) string {
		return labelStyle.Render(fmt.Sprintf("%-10s", label)) + fmt.Sprint(v)
	}
	return strings.Join([]string{
		titleStyle.Render("SNAKE"),
		row("Score", snap.Score),
		row("Best", snap.Best),
		row("Moves", snap.Moves),
		row("Length", snap.Length),
		row("Speed", fmt.Sprintf("%d/s (base %d)", snap.TickRate, opts.Rules.BaseSpeed)),
		row("Mode", snap.Mode),
		row("Obstacles", onOff(opts.Rules.Obstacles)),
		row("Sound", onOff(opts.Sound)),
		"",
		statusLine(snap),
	}, "\n")
}

func renderScoreboard(board []store.Entry) string {
	lines := []string{titleStyle.Render("Top scores")}
	if len(board) == 0 {
		return strings.Join(append(lines, labelStyle.Render("No scores yet")), "\n")
	}
	for i, e := range board {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, e))
	}
	return strings.Join(lines, "\n")
}

const helpLine = "arrows/wasd move · space pause · r restart · o obstacles · t wrap · m sound · +/- speed · x clear scores · q quit"
