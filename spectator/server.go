package spectator

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/brensch/snekcade/store"
)

// ScoreSource reads persisted scores. It must be safe for concurrent use;
// store.ScoreFile is.
type ScoreSource interface {
	LoadBestScore() int
	LoadLeaderboard() []store.Entry
}

// StatsSource summarises round history.
type StatsSource interface {
	Summary(ctx context.Context) (store.Summary, error)
}

// Server holds shared state for the spectator HTTP handlers.
type Server struct {
	hub    *Hub
	scores ScoreSource
	stats  StatsSource
	logger *slog.Logger
}

// NewServer wires the handlers. scores and stats may be nil, in which case
// their endpoints report 404.
func NewServer(hub *Hub, scores ScoreSource, stats StatsSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{hub: hub, scores: scores, stats: stats, logger: logger}
}

// RegisterRoutes sets up all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/scores", s.handleScoresJSON)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/scores", s.handleScoresPage)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("spectator server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("spectator server: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown spectator server: %w", err)
	}
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	snap, ok := s.hub.Latest()
	if !ok {
		http.Error(w, "no round yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

type scoresResponse struct {
	Best        int           `json:"best"`
	Leaderboard []store.Entry `json:"leaderboard"`
}

func (s *Server) handleScoresJSON(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.scores == nil {
		http.NotFound(w, r)
		return
	}
	board := s.scores.LoadLeaderboard()
	if board == nil {
		board = []store.Entry{}
	}
	writeJSON(w, scoresResponse{Best: s.scores.LoadBestScore(), Leaderboard: board})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.stats == nil {
		http.NotFound(w, r)
		return
	}
	summary, err := s.stats.Summary(r.Context())
	if err != nil {
		s.logger.Warn("history summary failed", "err", err)
		http.Error(w, fmt.Sprintf("history summary: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

var scoresPage = template.Must(template.New("scores").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Snake scores</title></head>
<body>
<h1>Top scores</h1>
<p id="best">Best: <span class="best" data-best="{{.Best}}">{{.Best}}</span></p>
{{if .Entries}}<ol id="scores">
{{range .Entries}}<li class="score-entry" data-score="{{.Score}}" data-mode="{{.Mode}}" data-speed="{{.Speed}}" data-length="{{.Length}}" data-date="{{.Date.Format "2006-01-02T15:04:05Z07:00"}}">{{.String}}</li>
{{end}}</ol>{{else}}<p id="scores" class="empty">No scores yet</p>{{end}}
</body>
</html>
`))

func (s *Server) handleScoresPage(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.scores == nil {
		http.NotFound(w, r)
		return
	}
	data := struct {
		Best    int
		Entries []store.Entry
	}{Best: s.scores.LoadBestScore(), Entries: s.scores.LoadLeaderboard()}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := scoresPage.Execute(w, data); err != nil {
		s.logger.Warn("render scores page", "err", err)
	}
}
