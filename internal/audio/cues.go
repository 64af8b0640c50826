// Package audio synthesizes the match's sound cues with beep. Nothing here
// is loaded from disk; every cue is a generator.
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

const sampleRate = beep.SampleRate(44100)

// LaunchGenerator is a short descending whistle. Trident volleys stack a
// detuned second voice.
type LaunchGenerator struct {
	sr     beep.SampleRate
	pos    int
	n      int
	voices int
}

func NewLaunchGenerator(sr beep.SampleRate, bombs int) *LaunchGenerator {
	return &LaunchGenerator{
		sr:     sr,
		n:      sr.N(350 * time.Millisecond),
		voices: min(max(bombs, 1), 2),
	}
}

func (g *LaunchGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if g.pos >= g.n {
			return i, i > 0
		}
		t := float64(g.pos) / float64(g.sr)
		progress := float64(g.pos) / float64(g.n)
		freq := 1400 - 900*progress
		env := math.Min(t/0.01, 1) * (1 - progress)

		s := math.Sin(2 * math.Pi * freq * t)
		if g.voices > 1 {
			s = 0.6*s + 0.4*math.Sin(2*math.Pi*freq*1.07*t)
		}
		s *= 0.18 * env
		samples[i][0] = s
		samples[i][1] = s
		g.pos++
	}
	return len(samples), true
}

func (g *LaunchGenerator) Err() error { return nil }

// ExplosionGenerator is filtered noise over a low rumble. Bigger craters
// last longer and sound lower; hits on an entity add a sharper crack.
type ExplosionGenerator struct {
	sr    beep.SampleRate
	pos   int
	n     int
	decay float64
	pitch float64
	crack bool
	seed  int64
	prev  float64
}

func NewExplosionGenerator(sr beep.SampleRate, radius float64, hit bool, seed int64) *ExplosionGenerator {
	radius = math.Max(radius, 5)
	dur := time.Duration(300+6*radius) * time.Millisecond
	return &ExplosionGenerator{
		sr:    sr,
		n:     sr.N(dur),
		decay: 4 + 200/radius,
		pitch: math.Max(30, 110-radius),
		crack: hit,
		seed:  seed,
	}
}

func (g *ExplosionGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if g.pos >= g.n {
			return i, i > 0
		}
		t := float64(g.pos) / float64(g.sr)
		env := math.Exp(-t * g.decay)

		g.seed = (g.seed*1103515245 + 12345) & 0x7fffffff
		noise := float64(g.seed)/float64(0x7fffffff)*2 - 1
		g.prev = 0.85*g.prev + 0.15*noise

		s := 0.35*g.prev + 0.3*math.Sin(2*math.Pi*g.pitch*t)
		if g.crack && t < 0.05 {
			s += 0.25 * noise
		}
		s = clampSample(s * env)
		samples[i][0] = s
		samples[i][1] = s
		g.pos++
	}
	return len(samples), true
}

func (g *ExplosionGenerator) Err() error { return nil }

func clampSample(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}
