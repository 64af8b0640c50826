package game

import "fmt"

// Resolution is a selectable viewport size preset.
type Resolution struct {
	ID     string
	Width  int
	Height int
}

// Resolutions lists the viewport presets offered by the client.
var Resolutions = []Resolution{
	{ID: "1", Width: 800, Height: 600},
	{ID: "2", Width: 1024, Height: 768},
	{ID: "3", Width: 1280, Height: 720},
}

// ResolutionByID returns the preset with the given id.
func ResolutionByID(id string) (Resolution, error) {
	for _, r := range Resolutions {
		if r.ID == id {
			return r, nil
		}
	}
	return Resolution{}, fmt.Errorf("unknown resolution %q", id)
}

// Config holds the tunables of a match. Distances are logical pixels, times
// are milliseconds unless the name says otherwise.
type Config struct {
	ViewportWidth    int
	ViewportHeight   int
	DevicePixelRatio float64
	MinimapWidth     int

	Gravity       float64 // Cartesian-up, px/s²
	StepSec       float64 // trajectory sample interval
	BoundaryGap   float64 // safety margin beyond left/right/bottom map edges
	TridentSpread float64 // degrees between trident bombs
	PowerScale    float64 // initial speed per point of firing power

	BoxLength      int     // entity footprint side
	FallStep       float64 // horizontal step taken when walking off an edge
	FallEdgeMargin float64 // leading contact this close to center means a fall
	MaxClimbAngle  float64 // degrees
	LineWidth      float64 // terrain outline width
	CraterSegments int     // polygon edges used to approximate a crater disc

	MoveDurationMs   int64
	TransitionMs     int64
	ShotIntervalMs   int64
	TurnDelayMs      int64
	AmbientParticles int
}

// DefaultConfig returns the tuning used by the shipped client.
func DefaultConfig() Config {
	return Config{
		ViewportWidth:    1280,
		ViewportHeight:   720,
		DevicePixelRatio: 1,
		MinimapWidth:     240,

		Gravity:       -500,
		StepSec:       0.001,
		BoundaryGap:   100,
		TridentSpread: 15,
		PowerScale:    10,

		BoxLength:      30,
		FallStep:       5,
		FallEdgeMargin: 5,
		MaxClimbAngle:  65,
		LineWidth:      2,
		CraterSegments: 48,

		MoveDurationMs:   100,
		TransitionMs:     1000,
		ShotIntervalMs:   2000,
		TurnDelayMs:      2000,
		AmbientParticles: 60,
	}
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithResolution sets the viewport size from a preset.
func WithResolution(r Resolution) Option {
	return func(c *Config) {
		c.ViewportWidth = r.Width
		c.ViewportHeight = r.Height
	}
}

// WithViewport sets the viewport size in logical pixels.
func WithViewport(w, h int) Option {
	return func(c *Config) {
		c.ViewportWidth = w
		c.ViewportHeight = h
	}
}

// WithDevicePixelRatio sets the display scale of the device surface.
func WithDevicePixelRatio(dpr float64) Option {
	return func(c *Config) {
		if dpr > 0 {
			c.DevicePixelRatio = dpr
		}
	}
}

// WithTiming overrides the shot interval and turn-advance delay.
func WithTiming(shotIntervalMs, turnDelayMs int64) Option {
	return func(c *Config) {
		c.ShotIntervalMs = shotIntervalMs
		c.TurnDelayMs = turnDelayMs
	}
}

// WithTransition sets the eased viewport transition duration.
func WithTransition(ms int64) Option {
	return func(c *Config) {
		c.TransitionMs = ms
	}
}

// WithAmbientParticles sets the background particle count (0 disables).
func WithAmbientParticles(n int) Option {
	return func(c *Config) {
		c.AmbientParticles = n
	}
}

// NewConfig applies opts over DefaultConfig.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return c
}
