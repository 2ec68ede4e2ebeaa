package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// RoundRow is one finished round in the history archive.
// Timestamps are unix milliseconds.
type RoundRow struct {
	RoundID   string `parquet:"round_id,dict"`
	StartedAt int64  `parquet:"started_at_ms"`
	EndedAt   int64  `parquet:"ended_at_ms"`

	Mode      string `parquet:"mode,dict"`
	BaseSpeed int32  `parquet:"base_speed"`
	TickRate  int32  `parquet:"final_tick_rate"`
	Cols      int32  `parquet:"board_cols"`
	Rows      int32  `parquet:"board_rows"`
	Obstacles int32  `parquet:"obstacles"`

	Score       int32 `parquet:"score"`
	Moves       int32 `parquet:"moves"`
	Length      int32 `parquet:"length"`
	NormalEaten int32 `parquet:"normal_eaten"`
	BonusEaten  int32 `parquet:"bonus_eaten"`

	Cause string `parquet:"cause,dict"`
}

const historySchema = "round_history_v1"

var batchSeq atomic.Uint64

// WriteRoundsParquetAtomic writes rows to a new batch file under outDir.
// The file is written in outDir/tmp and renamed into place, so readers
// globbing outDir never see a partial file.
func WriteRoundsParquetAtomic(outDir string, rows []RoundRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("rounds_%d_%d.parquet", time.Now().UnixNano(), batchSeq.Add(1))
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", historySchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadRounds loads every row of one history file.
func ReadRounds(path string) ([]RoundRow, error) {
	rows, err := parquet.ReadFile[RoundRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// HistoryWriter batches finished rounds and flushes them to parquet from a
// background goroutine, so Record never touches the disk.
type HistoryWriter struct {
	outDir    string
	perFlush  int
	logger    *slog.Logger
	in        chan RoundRow
	done      chan struct{}
	closeOnce sync.Once
}

// NewHistoryWriter starts the flush loop. A batch is written every
// roundsPerFlush rounds and once more on Close.
func NewHistoryWriter(outDir string, roundsPerFlush int, logger *slog.Logger) (*HistoryWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("history dir is required")
	}
	if roundsPerFlush <= 0 {
		roundsPerFlush = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	w := &HistoryWriter{
		outDir:   outDir,
		perFlush: roundsPerFlush,
		logger:   logger,
		in:       make(chan RoundRow, 64),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *HistoryWriter) Dir() string { return w.outDir }

// Record queues a row. If the queue is full the row is dropped with a warning.
func (w *HistoryWriter) Record(row RoundRow) {
	select {
	case w.in <- row:
	default:
		w.logger.Warn("history queue full; dropping round", "round_id", row.RoundID)
	}
}

// Close flushes pending rows and waits for the loop to exit.
// Record must not be called after Close.
func (w *HistoryWriter) Close() error {
	w.closeOnce.Do(func() { close(w.in) })
	<-w.done
	return nil
}

func (w *HistoryWriter) loop() {
	defer close(w.done)

	pending := make([]RoundRow, 0, w.perFlush)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		outPath, err := WriteRoundsParquetAtomic(w.outDir, pending)
		if err != nil {
			w.logger.Error("history flush failed", "rounds", len(pending), "err", err)
		} else {
			w.logger.Info("history flush ok", "path", outPath, "rounds", len(pending))
		}
		pending = pending[:0]
	}

	for row := range w.in {
		pending = append(pending, row)
		if len(pending) >= w.perFlush {
			flush()
		}
	}
	flush()
}
