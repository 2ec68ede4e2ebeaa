// Package store persists scores and round history.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MaxLeaderboard is the number of entries kept on the leaderboard.
const MaxLeaderboard = 5

// Entry is one finished round on the leaderboard.
type Entry struct {
	Score  int       `json:"score"`
	Mode   string    `json:"mode"`
	Speed  int       `json:"speed"`
	Length int       `json:"length"`
	Date   time.Time `json:"date"`
}

// DateLayout is how leaderboard dates are shown.
const DateLayout = "2006-01-02 15:04"

// String renders the entry as a scoreboard line: score, mode, speed, date.
func (e Entry) String() string {
	return fmt.Sprintf("%d — %s — %d — %s", e.Score, e.Mode, e.Speed, e.Date.Local().Format(DateLayout))
}

// InsertEntry returns a new leaderboard with e added, ordered by descending
// score and truncated to MaxLeaderboard. Equal scores keep insertion order,
// so an older entry stays ahead of a newer one with the same score.
func InsertEntry(board []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(board)+1)
	out = append(out, board...)
	out = append(out, e)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxLeaderboard {
		out = out[:MaxLeaderboard]
	}
	return out
}

type scoreDoc struct {
	Best        int     `json:"best"`
	Leaderboard []Entry `json:"leaderboard"`
}

// ScoreFile keeps the best score and the leaderboard in one JSON document.
//
// Loads are tolerant: a missing or corrupt file reads as zero/empty and logs a
// warning. Saves rewrite the whole document through a temp file and rename.
type ScoreFile struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

func NewScoreFile(path string, logger *slog.Logger) *ScoreFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreFile{path: path, logger: logger}
}

func (f *ScoreFile) Path() string { return f.path }

func (f *ScoreFile) LoadBestScore() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load().Best
}

func (f *ScoreFile) SaveBestScore(best int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	doc.Best = best
	return f.save(doc)
}

func (f *ScoreFile) LoadLeaderboard() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	board := f.load().Leaderboard
	if len(board) > MaxLeaderboard {
		board = board[:MaxLeaderboard]
	}
	return board
}

// SaveLeaderboard stores board after re-applying the ordering rules.
func (f *ScoreFile) SaveLeaderboard(board []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ordered := append([]Entry(nil), board...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })
	if len(ordered) > MaxLeaderboard {
		ordered = ordered[:MaxLeaderboard]
	}

	doc := f.load()
	doc.Leaderboard = ordered
	return f.save(doc)
}

func (f *ScoreFile) load() scoreDoc {
	var doc scoreDoc
	b, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("read score file; using defaults", "path", f.path, "err", err)
		}
		return scoreDoc{}
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		f.logger.Warn("corrupt score file; using defaults", "path", f.path, "err", err)
		return scoreDoc{}
	}
	if doc.Best < 0 {
		doc.Best = 0
	}
	return doc
}

func (f *ScoreFile) save(doc scoreDoc) error {
	if doc.Leaderboard == nil {
		doc.Leaderboard = []Entry{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create score dir: %w", err)
		}
	}

	tmpPath := f.path + ".tmp"
	_ = os.Remove(tmpPath)
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write scores: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename scores: %w", err)
	}
	return nil
}
