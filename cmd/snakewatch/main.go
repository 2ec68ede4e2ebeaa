package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/spectator"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Base URL of a snake started with -listen")
	scores := flag.Bool("scores", false, "Print the scoreboard and exit instead of following the game")
	plain := flag.Bool("plain", false, "Append frames instead of redrawing the terminal")
	readTimeout := flag.Duration("read-timeout", spectator.DefaultWatchConfig().ReadTimeout, "Give up when no frame arrives for this long")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *scores {
		if err := printScores(ctx, *server); err != nil {
			log.Fatalf("Failed to fetch scores: %v", err)
		}
		return
	}

	wsURL, err := websocketURL(*server)
	if err != nil {
		log.Fatalf("Bad server URL: %v", err)
	}

	cfg := spectator.DefaultWatchConfig()
	cfg.ReadTimeout = *readTimeout

	log.Printf("Watching %s", wsURL)
	frames := 0
	err = spectator.Watch(ctx, wsURL, cfg, func(snap game.Snapshot) error {
		frames++
		if !*plain {
			// Clear screen and home the cursor.
			fmt.Print("\x1b[H\x1b[2J")
		}
		fmt.Print(renderFrame(snap))
		return nil
	})
	if err != nil {
		log.Fatalf("Watch ended: %v", err)
	}
	log.Printf("Disconnected after %d frames", frames)
}

func printScores(ctx context.Context, server string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	best, entries, err := spectator.FetchScoreboard(ctx, nil, server)
	if errors.Is(err, spectator.ErrNoScores) {
		fmt.Printf("Best: %d\nNo scores yet\n", best)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Best: %d\n", best)
	for i, e := range entries {
		fmt.Printf("  %d. %s\n", i+1, e)
	}
	fmt.Println("═══════════════════════════════════════════════════════════════")
	return nil
}

// websocketURL turns http(s)://host[/prefix] into ws(s)://host[/prefix]/ws.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// renderFrame draws the board in plain ASCII:
// H head, o body, * food, $ bonus food, # obstacle.
func renderFrame(s game.Snapshot) string {
	if s.Cols <= 0 || s.Rows <= 0 {
		return ""
	}
	grid := make([][]byte, s.Rows)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(s.Cols)))
	}
	put := func(p game.Point, c byte) {
		if p.X >= 0 && p.X < s.Cols && p.Y >= 0 && p.Y < s.Rows {
			grid[p.Y][p.X] = c
		}
	}

	for _, p := range s.Obstacles {
		put(p, '#')
	}
	if f := s.Food; f != nil {
		c := byte('*')
		if f.Kind == game.FoodBonus.String() {
			c = '$'
		}
		put(game.Point{X: f.X, Y: f.Y}, c)
	}
	for _, p := range s.Snake {
		put(p, 'o')
	}
	if h, ok := s.Head(); ok {
		put(h, 'H')
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s | score %d | best %d | length %d | moves %d | %d ticks/s | %s",
		s.Mode, s.Score, s.Best, s.Length, s.Moves, s.TickRate, s.Status)
	if s.Cause != "" {
		fmt.Fprintf(&b, " (%s)", s.Cause)
	}
	b.WriteByte('\n')

	border := "+" + strings.Repeat("-", int(s.Cols)) + "+\n"
	b.WriteString(border)
	for _, row := range grid {
		b.WriteByte('|')
		b.Write(row)
		b.WriteString("|\n")
	}
	b.WriteString(border)
	return b.String()
}
