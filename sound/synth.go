package sound

import (
	"io"
	"math"
)

const (
	SampleRate   = 44100
	ChannelCount = 2
	// BitDepth 0 selects 32-bit float little endian in oto.
	BitDepth = 0

	bytesPerFrame = 4 * ChannelCount
)

type soundReader struct {
	data []byte
	pos  int
}

func (r *soundReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both channels of frame i.
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	for ch := 0; ch < ChannelCount; ch++ {
		off := i*bytesPerFrame + ch*4
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
}

// sampleAt decodes the left channel of frame i.
func sampleAt(buf []byte, i int) float64 {
	off := i * bytesPerFrame
	v := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	return float64(math.Float32frombits(v))
}

// expRamp moves from a to b exponentially over span seconds, then holds b.
func expRamp(a, b, t, span float64) float64 {
	if t >= span {
		return b
	}
	return a * math.Pow(b/a, t/span)
}

func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/x
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

type wave func(phase float64) float64

func sine(phase float64) float64 { return math.Sin(2 * math.Pi * phase) }

func saw(phase float64) float64 { return 2 * (phase - math.Floor(phase+0.5)) }

// sweep renders a tone whose pitch glides from f0 to f1 over glide seconds
// and whose gain decays from peak towards silence over fade seconds.
func sweep(w wave, f0, f1, glide, peak, fade, duration float64) []byte {
	frames := int(math.Round(duration * SampleRate))
	buf := make([]byte, frames*bytesPerFrame)

	phase := 0.0
	for i := 0; i < frames; i++ {
		t := float64(i) / SampleRate
		gain := expRamp(peak, peak/25, t, fade)
		if t >= fade {
			gain = peak / 25 * (1 - (t-fade)/(duration-fade+1e-9))
		}
		// A short linear tail avoids a click when the buffer stops.
		if tail := duration - t; tail < 0.005 {
			gain *= tail / 0.005
		}
		putStereoF32(buf, i, softSat(w(phase)*gain))
		phase += expRamp(f0, f1, t, glide) / SampleRate
		phase -= math.Floor(phase)
	}
	return buf
}

// genEat is a short rising sine chirp, 700 to 1400 Hz.
func genEat() []byte {
	return sweep(sine, 700, 1400, 0.08, 0.35, 0.10, 0.12)
}

// genGameOver is a falling sawtooth, 220 to 80 Hz.
func genGameOver() []byte {
	return sweep(saw, 220, 80, 0.30, 0.45, 0.30, 0.32)
}
