// Package sound plays the procedural Eat and GameOver cues.
package sound

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/brensch/snekcade/round"
)

// maxVoices bounds overlapping cues so rapid eating does not pile up players.
const maxVoices = 4

// Player renders cues through an oto context.
type Player struct {
	ctx    *oto.Context
	ready  chan struct{}
	volume float64
	logger *slog.Logger

	eat      []byte
	gameOver []byte
	voices   atomic.Int32
}

// NewPlayer opens the audio device. It fails when no output is available;
// callers fall back to Silent.
func NewPlayer(volume float64, logger *slog.Logger) (*Player, error) {
	ctx, ready, err := oto.NewContext(SampleRate, ChannelCount, BitDepth)
	if err != nil {
		return nil, fmt.Errorf("open audio context: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if volume <= 0 || volume > 1 {
		volume = 0.6
	}
	return &Player{
		ctx:      ctx,
		ready:    ready,
		volume:   volume,
		logger:   logger,
		eat:      genEat(),
		gameOver: genGameOver(),
	}, nil
}

// Notify starts the cue for e and returns immediately. Cues requested before
// the device is ready, or beyond maxVoices, are dropped.
func (p *Player) Notify(e round.Event) {
	select {
	case <-p.ready:
	default:
		return
	}

	samples := p.eat
	if e == round.EventGameOver {
		samples = p.gameOver
	}

	if p.voices.Add(1) > maxVoices {
		p.voices.Add(-1)
		return
	}
	go func() {
		defer p.voices.Add(-1)
		player := p.ctx.NewPlayer(&soundReader{data: samples})
		player.SetVolume(p.volume)
		player.Play()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			p.logger.Debug("close audio player", "event", e.String(), "err", err)
		}
	}()
}

// Silent is the notifier used when audio is unavailable or disabled.
type Silent struct{}

func (Silent) Notify(round.Event) {}

// Open returns a Player, or Silent when the device cannot be opened.
func Open(volume float64, logger *slog.Logger) round.Notifier {
	p, err := NewPlayer(volume, logger)
	if err != nil {
		if logger != nil {
			logger.Warn("audio unavailable; playing silently", "err", err)
		}
		return Silent{}
	}
	return p
}
