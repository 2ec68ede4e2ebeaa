package spectator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"

	"github.com/brensch/snekcade/game"
	"github.com/brensch/snekcade/store"
)

// WatchConfig controls a websocket follower.
type WatchConfig struct {
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for the next frame; the server only sends
	// when the board changes, so keep it generous.
	ReadTimeout time.Duration
}

func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    5 * time.Minute,
	}
}

// Watch follows the snapshot stream at wsURL and calls onSnap for every
// frame until ctx is cancelled, the server closes, or onSnap returns an error.
func Watch(ctx context.Context, wsURL string, cfg WatchConfig, onSnap func(game.Snapshot) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		if msg.Type != MsgSnapshot {
			continue
		}

		var snap game.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		if err := onSnap(snap); err != nil {
			return err
		}
	}
}

// ErrNoScores is returned by FetchScoreboard when the page lists no entries.
var ErrNoScores = errors.New("no scores yet")

// FetchScoreboard scrapes the /scores page at baseURL.
func FetchScoreboard(ctx context.Context, client *http.Client, baseURL string) (best int, entries []store.Entry, err error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/scores", nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", "snakewatch/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("parse scores page: %w", err)
	}

	if v, ok := doc.Find("span.best").Attr("data-best"); ok {
		best, _ = strconv.Atoi(v)
	}

	var parseErr error
	doc.Find("li.score-entry").EachWithBreak(func(i int, s *goquery.Selection) bool {
		e, err := entryFromSelection(s)
		if err != nil {
			parseErr = fmt.Errorf("entry %d: %w", i+1, err)
			return false
		}
		entries = append(entries, e)
		return true
	})
	if parseErr != nil {
		return best, nil, parseErr
	}

	if len(entries) == 0 && doc.Find("#scores.empty").Length() > 0 {
		return best, nil, ErrNoScores
	}
	return best, entries, nil
}

func entryFromSelection(s *goquery.Selection) (store.Entry, error) {
	var e store.Entry
	ints := []struct {
		attr string
		dst  *int
	}{
		{"data-score", &e.Score},
		{"data-speed", &e.Speed},
		{"data-length", &e.Length},
	}
	for _, f := range ints {
		v, ok := s.Attr(f.attr)
		if !ok {
			return e, fmt.Errorf("missing %s", f.attr)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return e, fmt.Errorf("bad %s %q: %w", f.attr, v, err)
		}
		*f.dst = n
	}

	e.Mode, _ = s.Attr("data-mode")
	if v, ok := s.Attr("data-date"); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return e, fmt.Errorf("bad data-date %q: %w", v, err)
		}
		e.Date = t
	}
	return e, nil
}
