package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/logging"
	"github.com/brensch/snekcade/round"
	"github.com/brensch/snekcade/rules"
	"github.com/brensch/snekcade/sound"
	"github.com/brensch/snekcade/spectator"
	"github.com/brensch/snekcade/store"
	"github.com/brensch/snekcade/tui"
)

func main() {
	wrap := flag.Bool("wrap", getEnvBoolOrDefault("SNAKE_WRAP", false), "Wrap around the board edges instead of walls")
	obstacles := flag.Bool("obstacles", getEnvBoolOrDefault("SNAKE_OBSTACLES", false), "Place obstacles on the board")
	speed := flag.Int("speed", getEnvIntOrDefault("SNAKE_SPEED", rules.DefaultConfig().BaseSpeed), "Base speed in ticks per second")
	soundOn := flag.Bool("sound", getEnvBoolOrDefault("SNAKE_SOUND", true), "Play sound cues")
	volume := flag.Float64("volume", 0.6, "Sound volume (0-1]")
	gridSize := flag.Int("grid", getEnvIntOrDefault("SNAKE_GRID", int(game.DefaultGrid.Cols)), "Board size in cells (square)")
	scoresPath := flag.String("scores", getEnvOrDefault("SNAKE_SCORES", defaultScoresPath()), "Best score and leaderboard JSON file")
	historyDir := flag.String("history-dir", getEnvOrDefault("SNAKE_HISTORY_DIR", "snake-history"), "Directory for round history .parquet batches (empty disables)")
	historyFlush := flag.Int("history-flush", getEnvIntOrDefault("SNAKE_HISTORY_FLUSH", 10), "Rounds buffered per history parquet batch")
	listen := flag.String("listen", getEnvOrDefault("SNAKE_LISTEN", ""), "Spectator HTTP address, e.g. :8080 (empty disables)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time based)")
	logFile := flag.String("log-file", getEnvOrDefault("SNAKE_LOG_FILE", "snake.log"), "Log file; the terminal belongs to the game")
	logFormat := flag.String("log-format", getEnvOrDefault("SNAKE_LOG_FORMAT", logging.FormatText), "Log format: text, json or pretty")
	logLevel := flag.String("log-level", getEnvOrDefault("SNAKE_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	stats := flag.Bool("stats", false, "Print the round history summary and exit")
	flag.Parse()

	if *stats {
		if err := printStats(*historyDir); err != nil {
			log.Fatalf("stats: %v", err)
		}
		return
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logOut, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logOut.Close()
	logger, err := logging.New(logOut, *logFormat, level)
	if err != nil {
		log.Fatalf("%v", err)
	}
	slog.SetDefault(logger)

	opts := round.DefaultOptions()
	opts.Rules.Wrap = *wrap
	opts.Rules.Obstacles = *obstacles
	opts.Rules.BaseSpeed = clamp(*speed, 1, rules.MaxTickRate)
	size := clamp(*gridSize, 5, 100)
	opts.Grid = game.Grid{Cols: int32(size), Rows: int32(size)}
	opts.Sound = *soundOn

	env := rules.Env{Clock: rules.SystemClock{}}
	if *seed != 0 {
		env.Rng = rand.New(rand.NewSource(*seed))
	}

	scores := store.NewScoreFile(*scoresPath, logger)
	deps := round.Deps{
		Scores: scores,
		// Opened even when sound starts off; `m` toggles it mid-game.
		Notifier: sound.Open(*volume, logger),
		Logger:   logger,
	}

	var statsSrc spectator.StatsSource
	if *historyDir != "" {
		hw, err := store.NewHistoryWriter(*historyDir, *historyFlush, logger)
		if err != nil {
			logger.Warn("round history disabled", "dir", *historyDir, "err", err)
		} else {
			defer func() {
				if err := hw.Close(); err != nil {
					logger.Warn("flush round history", "err", err)
				}
			}()
			deps.History = hw

			if *listen != "" {
				h, err := store.OpenHistory(*historyDir)
				if err != nil {
					logger.Warn("history stats unavailable", "err", err)
				} else {
					defer h.Close()
					statsSrc = h
				}
			}
		}
	}

	var hub *spectator.Hub
	if *listen != "" {
		hub = spectator.NewHub(logger)
		deps.Renderer = hub
	}

	session := round.NewSession(opts, env, deps)
	logger.Info("snake starting",
		"mode", opts.Rules.Mode(),
		"speed", opts.Rules.BaseSpeed,
		"grid", size,
		"obstacles", opts.Rules.Obstacles,
		"best", session.Best(),
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if hub != nil {
		srv := spectator.NewServer(hub, scores, statsSrc, logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, *listen)
		})
	}

	p := tea.NewProgram(
		tui.New(session, time.Now),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(gctx),
	)
	g.Go(func() error {
		// Quitting the game stops everything else in the group.
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run game: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("snake exited with error", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Info("snake stopped", "best", session.Best())
}

func printStats(dir string) error {
	if dir == "" {
		return errors.New("no history directory configured")
	}
	h, err := store.OpenHistory(dir)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := h.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Rounds played: %d\n", s.Rounds)
	if s.Rounds == 0 {
		return nil
	}
	fmt.Printf("Best score:    %d\n", s.BestScore)
	fmt.Printf("Average score: %.2f\n", s.AvgScore)
	fmt.Printf("Average length: %.2f\n", s.AvgLength)
	fmt.Printf("Total moves:   %d\n", s.TotalMoves)

	fmt.Println("\nBy mode:")
	for _, m := range s.ByMode {
		fmt.Printf("  %-8s rounds=%-5d best=%-4d avg=%.2f\n", m.Mode, m.Rounds, m.BestScore, m.AvgScore)
	}
	fmt.Println("\nBy cause:")
	for _, c := range s.ByCause {
		fmt.Printf("  %-15s %d\n", c.Cause, c.Rounds)
	}

	recent, err := h.Recent(ctx, 5)
	if err != nil {
		return err
	}
	fmt.Println("\nRecent rounds:")
	for _, r := range recent {
		ended := time.UnixMilli(r.EndedAt).Local().Format(store.DateLayout)
		fmt.Printf("  %s  %-7s score=%-4d length=%-4d moves=%-5d %s\n", ended, r.Mode, r.Score, r.Length, r.Moves, r.Cause)
	}
	return nil
}

func defaultScoresPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "snake-scores.json"
	}
	return filepath.Join(dir, "snekcade", "scores.json")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
