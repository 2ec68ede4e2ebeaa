package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
)

// History answers aggregate questions over the parquet round archive using
// an in-memory DuckDB with a view over the batch files.
type History struct {
	dir string

	mu sync.Mutex
	db *sql.DB
}

// Summary aggregates every archived round.
type Summary struct {
	Rounds     int64   `json:"rounds"`
	BestScore  int64   `json:"best_score"`
	AvgScore   float64 `json:"avg_score"`
	AvgLength  float64 `json:"avg_length"`
	TotalMoves int64   `json:"total_moves"`

	ByMode  []ModeStat  `json:"by_mode"`
	ByCause []CauseStat `json:"by_cause"`
}

type ModeStat struct {
	Mode      string  `json:"mode"`
	Rounds    int64   `json:"rounds"`
	BestScore int64   `json:"best_score"`
	AvgScore  float64 `json:"avg_score"`
}

type CauseStat struct {
	Cause  string `json:"cause"`
	Rounds int64  `json:"rounds"`
}

func OpenHistory(dir string) (*History, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	_, _ = db.Exec("PRAGMA threads=2")
	return &History{dir: dir, db: db}, nil
}

func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// refreshViewLocked points the rounds view at the batch files currently on
// disk. read_parquet fails on a glob with no matches, so an empty archive
// gets an empty typed view instead.
func (h *History) refreshViewLocked(ctx context.Context) error {
	if h.db == nil {
		return fmt.Errorf("history is closed")
	}

	glob := filepath.Join(h.dir, "*.parquet")
	matches, err := filepath.Glob(glob)
	if err != nil {
		return fmt.Errorf("glob history: %w", err)
	}

	var q string
	if strings.TrimSpace(h.dir) == "" || len(matches) == 0 {
		q = `CREATE OR REPLACE VIEW rounds AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS round_id,
					NULL::BIGINT AS started_at_ms,
					NULL::BIGINT AS ended_at_ms,
					NULL::VARCHAR AS mode,
					NULL::INTEGER AS base_speed,
					NULL::INTEGER AS final_tick_rate,
					NULL::INTEGER AS board_cols,
					NULL::INTEGER AS board_rows,
					NULL::INTEGER AS obstacles,
					NULL::INTEGER AS score,
					NULL::INTEGER AS moves,
					NULL::INTEGER AS length,
					NULL::INTEGER AS normal_eaten,
					NULL::INTEGER AS bonus_eaten,
					NULL::VARCHAR AS cause
			) WHERE 1=0`
	} else {
		q = fmt.Sprintf(`CREATE OR REPLACE VIEW rounds AS
			SELECT * FROM read_parquet('%s', union_by_name=true)`, escapeSQLString(glob))
	}

	if _, err := h.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create rounds view: %w", err)
	}
	return nil
}

func (h *History) Summary(ctx context.Context) (Summary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var s Summary
	if err := h.refreshViewLocked(ctx); err != nil {
		return s, err
	}

	row := h.db.QueryRowContext(ctx, `
		SELECT
			count(*),
			CAST(coalesce(max(score), 0) AS BIGINT),
			coalesce(avg(score), 0)::DOUBLE,
			coalesce(avg(length), 0)::DOUBLE,
			CAST(coalesce(sum(moves), 0) AS BIGINT)
		FROM rounds`)
	if err := row.Scan(&s.Rounds, &s.BestScore, &s.AvgScore, &s.AvgLength, &s.TotalMoves); err != nil {
		return s, fmt.Errorf("query totals: %w", err)
	}

	modes, err := h.db.QueryContext(ctx, `
		SELECT mode, count(*), CAST(max(score) AS BIGINT), avg(score)::DOUBLE
		FROM rounds
		GROUP BY mode
		ORDER BY mode`)
	if err != nil {
		return s, fmt.Errorf("query modes: %w", err)
	}
	defer modes.Close()
	for modes.Next() {
		var m ModeStat
		if err := modes.Scan(&m.Mode, &m.Rounds, &m.BestScore, &m.AvgScore); err != nil {
			return s, fmt.Errorf("scan mode: %w", err)
		}
		s.ByMode = append(s.ByMode, m)
	}
	if err := modes.Err(); err != nil {
		return s, fmt.Errorf("iterate modes: %w", err)
	}

	causes, err := h.db.QueryContext(ctx, `
		SELECT cause, count(*)
		FROM rounds
		GROUP BY cause
		ORDER BY count(*) DESC, cause`)
	if err != nil {
		return s, fmt.Errorf("query causes: %w", err)
	}
	defer causes.Close()
	for causes.Next() {
		var c CauseStat
		if err := causes.Scan(&c.Cause, &c.Rounds); err != nil {
			return s, fmt.Errorf("scan cause: %w", err)
		}
		s.ByCause = append(s.ByCause, c)
	}
	if err := causes.Err(); err != nil {
		return s, fmt.Errorf("iterate causes: %w", err)
	}

	return s, nil
}

// Recent returns the latest rounds, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]RoundRow, error) {
	if limit <= 0 {
		limit = 10
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.refreshViewLocked(ctx); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT round_id, started_at_ms, ended_at_ms, mode, base_speed, final_tick_rate,
			board_cols, board_rows, obstacles, score, moves, length, normal_eaten, bonus_eaten, cause
		FROM rounds
		ORDER BY ended_at_ms DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []RoundRow
	for rows.Next() {
		var r RoundRow
		if err := rows.Scan(&r.RoundID, &r.StartedAt, &r.EndedAt, &r.Mode, &r.BaseSpeed, &r.TickRate,
			&r.Cols, &r.Rows, &r.Obstacles, &r.Score, &r.Moves, &r.Length, &r.NormalEaten, &r.BonusEaten, &r.Cause); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
