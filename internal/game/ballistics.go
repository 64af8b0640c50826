package game

import (
	"math"
	"slices"
	"sort"
)

// maxTrackSamples caps a trajectory when the configured physics would never
// leave the safety boundary (zero gravity, for instance).
const maxTrackSamples = 60_000

// TrackSample is one precomputed projectile position. X and Y are canvas-down
// whole pixels, T is seconds since launch and Heading is the Cartesian-up
// flight direction in degrees.
type TrackSample struct {
	X       float64 `msgpack:"x"`
	Y       float64 `msgpack:"y"`
	T       float64 `msgpack:"t"`
	Heading float64 `msgpack:"h"`
}

// Point returns the sample position.
func (s TrackSample) Point() Point { return Point{X: s.X, Y: s.Y} }

// Bomb is a single projectile with its full precomputed flight. Peers adopt
// the Track verbatim; only FiredAtMs is local.
type Bomb struct {
	ID           string        `msgpack:"id"`
	OwnerID      string        `msgpack:"owner"`
	Launch       Point         `msgpack:"launch"`
	V0Horizontal float64       `msgpack:"v0h"`
	V0Vertical   float64       `msgpack:"v0v"`
	SizePx       int           `msgpack:"size"`
	Footprint    int           `msgpack:"footprint"`
	Damage       float64       `msgpack:"damage"`
	DamageRadius float64       `msgpack:"radius"`
	Track        []TrackSample `msgpack:"track"`
	Target       Point         `msgpack:"target"`
	FlightSec    float64       `msgpack:"flightSec"`
	OutOfBounds  bool          `msgpack:"oob,omitempty"`

	FiredAtMs int64 `msgpack:"-"`
	Landed    bool  `msgpack:"-"`
}

// ComputeTrack samples the flight of a projectile launched from launch with
// the given initial velocity until it leaves the safety boundary. The result
// depends only on its inputs.
func ComputeTrack(launch Point, v0h, v0v float64, mapW, mapH int, cfg Config) []TrackSample {
	h := float64(mapH)
	y0 := CartesianY(launch.Y, h)
	var track []TrackSample
	for i := 0; i < maxTrackSamples; i++ {
		t := float64(i) * cfg.StepSec
		x := math.Floor(launch.X + v0h*t)
		yc := y0 + v0v*t + 0.5*cfg.Gravity*t*t
		y := math.Floor(CanvasY(yc, h))
		if PointOutOfMap(Point{X: x, Y: y}, mapW, mapH, cfg.BoundaryGap) {
			break
		}
		track = append(track, TrackSample{
			X:       x,
			Y:       y,
			T:       t,
			Heading: Degrees(math.Atan2(v0v+cfg.Gravity*t, v0h)),
		})
	}
	return track
}

// ResolveTarget scans the track against terrain and records the first
// sample whose footprint touches an occupied pixel. The track is cut after
// that sample so volley-sync carries only the visible flight. Without a hit
// the bomb is out of bounds and expires at its final sample.
func (b *Bomb) ResolveTarget(t *Terrain) {
	fp := max(b.Footprint, 1)
	for i, s := range b.Track {
		if footprintHits(t, int(s.X), int(s.Y), fp) {
			b.Target = s.Point()
			b.FlightSec = s.T
			b.OutOfBounds = false
			b.Track = slices.Clip(b.Track[:i+1])
			return
		}
	}
	b.OutOfBounds = true
	if n := len(b.Track); n > 0 {
		b.Target = b.Track[n-1].Point()
		b.FlightSec = b.Track[n-1].T
	} else {
		b.Target = b.Launch
		b.FlightSec = 0
	}
}

func footprintHits(t *Terrain, x, y, size int) bool {
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			if t.Occupied(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

// FlightMs is the whole-millisecond flight time used to decide arrival.
func (b *Bomb) FlightMs() int64 {
	return int64(math.Round(b.FlightSec * 1000))
}

// Arrived reports whether the bomb has reached its target at nowMs.
func (b *Bomb) Arrived(nowMs int64) bool {
	return nowMs-b.FiredAtMs >= b.FlightMs()
}

// SampleAt returns the track sample for elapsedMs after launch: the last
// sample whose time is not after the elapsed time.
func (b *Bomb) SampleAt(elapsedMs int64) (TrackSample, bool) {
	if len(b.Track) == 0 {
		return TrackSample{}, false
	}
	sec := float64(elapsedMs) / 1000
	i := sort.Search(len(b.Track), func(i int) bool { return b.Track[i].T > sec }) - 1
	if i < 0 {
		i = 0
	}
	return b.Track[i], true
}
