package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/sasha-s/go-deadlock"

	"github.com/Garsondee/Crater-Duel/internal/game"
)

// Manager plays cues through one speaker mixer. Every method is safe to call
// before Init or after Close; cues are then dropped, so a machine without an
// audio device runs the match silently.
type Manager struct {
	mu          deadlock.Mutex
	mixer       *beep.Mixer
	volume      *beep.Ctrl
	initialized bool
	muted       bool
	cues        int
}

func NewManager() *Manager {
	mixer := &beep.Mixer{}
	return &Manager{
		mixer:  mixer,
		volume: &beep.Ctrl{Streamer: mixer},
	}
}

// Init opens the speaker. Calling it twice is a no-op.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	speaker.Play(m.volume)
	m.initialized = true
	return nil
}

// Close silences everything still playing.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return
	}
	speaker.Lock()
	m.mixer.Clear()
	speaker.Unlock()
	m.initialized = false
}

// SetMuted pauses or resumes output without dropping queued cues.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	if m.initialized {
		speaker.Lock()
	}
	m.volume.Paused = muted
	if m.initialized {
		speaker.Unlock()
	}
}

func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// Played counts cues handed to the mixer since construction.
func (m *Manager) Played() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cues
}

func (m *Manager) play(s beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized || m.muted {
		return
	}
	speaker.Lock()
	m.mixer.Add(s)
	speaker.Unlock()
	m.cues++
}

// Launch plays the whistle for a volley of the given size.
func (m *Manager) Launch(bombs int) {
	m.play(NewLaunchGenerator(sampleRate, bombs))
}

// Explosion plays a blast sized to the crater radius.
func (m *Manager) Explosion(radius float64, hit bool, seed int64) {
	m.play(NewExplosionGenerator(sampleRate, radius, hit, seed))
}

// Hooks wraps next so the match's launches and impacts also play cues.
func (m *Manager) Hooks(next game.Hooks) game.Hooks {
	h := next
	h.OnLaunch = func(v *game.Volley) {
		m.Launch(len(v.Bombs))
		if next.OnLaunch != nil {
			next.OnLaunch(v)
		}
	}
	h.OnImpact = func(b *game.Bomb, hits []game.Hit) {
		if !b.OutOfBounds {
			m.Explosion(b.DamageRadius, len(hits) > 0, int64(b.Target.X)*31+int64(b.Target.Y))
		}
		if next.OnImpact != nil {
			next.OnImpact(b, hits)
		}
	}
	return h
}
