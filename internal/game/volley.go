package game

import (
	"cmp"
	"math"
	"slices"

	"github.com/google/uuid"
)

// Footprints of the hit test, in pixels per side. The single shot samples a
// 2×2 square so it cannot slip through one-pixel features.
const (
	primaryFootprint = 2
	tridentFootprint = 1
)

// Volley is the set of bombs released by one fire action.
type Volley struct {
	ID      string  `msgpack:"id"`
	OwnerID string  `msgpack:"owner"`
	Trident bool    `msgpack:"trident,omitempty"`
	Bombs   []*Bomb `msgpack:"bombs"`

	FiredAtMs int64 `msgpack:"-"`
}

// PrecomputeVolley builds the bombs for p's current aim and power. Every
// target is resolved against one clone of live; each bomb carves its crater
// into that clone before the next is resolved. live is never modified.
func PrecomputeVolley(p *Player, live *Terrain, trident bool, cfg Config) *Volley {
	scratch := live.Clone()
	angle := p.LaunchAngle()
	angles := []float64{angle}
	footprint := primaryFootprint
	if trident {
		angles = []float64{angle - cfg.TridentSpread, angle, angle + cfg.TridentSpread}
		footprint = tridentFootprint
	}
	v0 := float64(p.FiringPower) * cfg.PowerScale
	launch := p.LaunchPoint(cfg)

	v := &Volley{ID: uuid.NewString(), OwnerID: p.ID, Trident: trident}
	for _, a := range angles {
		rad := Radians(a)
		b := &Bomb{
			ID:           uuid.NewString(),
			OwnerID:      p.ID,
			Launch:       launch,
			V0Horizontal: v0 * math.Cos(rad),
			V0Vertical:   v0 * math.Sin(rad),
			SizePx:       p.Weapon.ProjectileSize,
			Footprint:    footprint,
			Damage:       p.Weapon.Damage,
			DamageRadius: p.Weapon.DamageRadius,
		}
		b.Track = ComputeTrack(launch, b.V0Horizontal, b.V0Vertical, live.Width(), live.Height(), cfg)
		b.ResolveTarget(scratch)
		if !b.OutOfBounds {
			scratch.ApplyCrater(b.Target, b.DamageRadius)
		}
		v.Bombs = append(v.Bombs, b)
	}
	return v
}

// Start stamps the local firing time on the volley and its bombs.
func (v *Volley) Start(nowMs int64) {
	v.FiredAtMs = nowMs
	for _, b := range v.Bombs {
		b.FiredAtMs = nowMs
		b.Landed = false
	}
}

// Advance marks and returns the bombs that have arrived by nowMs, ordered by
// flight time and then bomb index, so the landing order does not depend on
// how often the caller ticks. Each bomb is returned once.
func (v *Volley) Advance(nowMs int64) []*Bomb {
	var out []*Bomb
	for _, b := range v.Bombs {
		if b.Landed || !b.Arrived(nowMs) {
			continue
		}
		b.Landed = true
		out = append(out, b)
	}
	// Stable keeps bomb order among equal flight times.
	slices.SortStableFunc(out, func(a, b *Bomb) int {
		return cmp.Compare(a.FlightMs(), b.FlightMs())
	})
	return out
}

// maxFlightMs is the flight time of the longest bomb.
func (v *Volley) maxFlightMs() int64 {
	var ms int64
	for _, b := range v.Bombs {
		ms = max(ms, b.FlightMs())
	}
	return ms
}

// Done reports whether every bomb has landed.
func (v *Volley) Done() bool {
	for _, b := range v.Bombs {
		if !b.Landed {
			return false
		}
	}
	return true
}

// BombFrame is the drawable state of an in-flight bomb.
type BombFrame struct {
	Bomb   *Bomb
	Sample TrackSample
}

// InFlight returns the current position of every bomb still in the air.
func (v *Volley) InFlight(nowMs int64) []BombFrame {
	var out []BombFrame
	for _, b := range v.Bombs {
		if b.Landed {
			continue
		}
		if s, ok := b.SampleAt(nowMs - b.FiredAtMs); ok {
			out = append(out, BombFrame{Bomb: b, Sample: s})
		}
	}
	return out
}

// Lead returns the in-flight sample the camera should follow: the bomb
// with the longest remaining flight.
func (v *Volley) Lead(nowMs int64) (TrackSample, bool) {
	var best TrackSample
	var bestMs int64 = -1
	for _, f := range v.InFlight(nowMs) {
		if ms := f.Bomb.FlightMs(); ms > bestMs {
			best, bestMs = f.Sample, ms
		}
	}
	return best, bestMs >= 0
}
