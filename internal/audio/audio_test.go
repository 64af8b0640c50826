package audio

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/Garsondee/Crater-Duel/internal/game"
)

// drain streams s to the end and returns the sample count and peak level.
func drain(t *testing.T, s beep.Streamer) (int, float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for i := 0; i < 10_000; i++ {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			if math.IsNaN(smp[0]) || smp[0] != smp[1] {
				t.Fatalf("bad sample %v at %d", smp, total)
			}
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
	t.Fatal("cue never ended")
	return 0, 0
}

// --- Cues ---

func TestLaunchGenerator_EndsAndStaysInRange(t *testing.T) {
	n, peak := drain(t, NewLaunchGenerator(sampleRate, 1))
	if want := sampleRate.N(350 * time.Millisecond); n != want {
		t.Fatalf("samples = %d, want %d", n, want)
	}
	if peak == 0 || peak > 1 {
		t.Fatalf("peak = %v", peak)
	}
}

func TestExplosionGenerator_BiggerCratersLastLonger(t *testing.T) {
	small, _ := drain(t, NewExplosionGenerator(sampleRate, 10, false, 1))
	big, peak := drain(t, NewExplosionGenerator(sampleRate, 80, true, 1))
	if big <= small {
		t.Fatalf("r=80 lasts %d samples, r=10 lasts %d", big, small)
	}
	if peak > 1 {
		t.Fatalf("peak = %v, want clamped", peak)
	}
}

func TestExplosionGenerator_Deterministic(t *testing.T) {
	a := NewExplosionGenerator(sampleRate, 40, true, 99)
	b := NewExplosionGenerator(sampleRate, 40, true, 99)
	bufA := make([][2]float64, 256)
	bufB := make([][2]float64, 256)
	a.Stream(bufA)
	b.Stream(bufB)
	for i := range bufA {
		if bufA[i] != bufB[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

// --- Manager ---

func TestManager_SilentWithoutInit(t *testing.T) {
	m := NewManager()
	m.Launch(3)
	m.Explosion(50, true, 1)
	m.SetMuted(true)
	m.SetMuted(false)
	m.Close()
	if m.Played() != 0 {
		t.Fatalf("played %d cues without a speaker", m.Played())
	}
}

func TestManager_InitAndClose(t *testing.T) {
	m := NewManager()
	if err := m.Init(); err != nil {
		t.Logf("no audio device (expected on CI): %v", err)
		return
	}
	defer m.Close()
	if err := m.Init(); err != nil {
		t.Fatalf("second init: %v", err)
	}
	m.Launch(1)
	m.SetMuted(true)
	m.Explosion(50, false, 1)
	if m.Played() != 1 {
		t.Fatalf("played = %d, muted cues are dropped", m.Played())
	}
}

func TestManager_HooksChain(t *testing.T) {
	m := NewManager()
	var launched, landed int
	h := m.Hooks(game.Hooks{
		OnLaunch: func(*game.Volley) { launched++ },
		OnImpact: func(*game.Bomb, []game.Hit) { landed++ },
	})
	h.OnLaunch(&game.Volley{Bombs: []*game.Bomb{{}}})
	h.OnImpact(&game.Bomb{DamageRadius: 50}, nil)
	h.OnImpact(&game.Bomb{OutOfBounds: true}, nil)
	if launched != 1 || landed != 2 {
		t.Fatalf("launched=%d landed=%d", launched, landed)
	}

	bare := m.Hooks(game.Hooks{})
	bare.OnLaunch(&game.Volley{})
	bare.OnImpact(&game.Bomb{}, nil)
}
