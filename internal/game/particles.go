package game

import (
	"image/color"
	"math/rand"
)

const (
	explosionGravity   = 200 // canvas-down px/s²
	spaceMsPerPixel    = 50
	spaceContinueRatio = 0.65
)

func randBetween(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Particle is one drawable square.
type Particle struct {
	Pos   Point
	Size  float64
	Color color.RGBA
}

type debris struct {
	origin Point
	v0x    float64
	v0y    float64
	size   float64
	lifeMs float64
	pos    Point
}

// ExplosionEffect is the debris thrown from one impact. It is cosmetic and
// never shared between peers.
type ExplosionEffect struct {
	startMs int64 // -1 until first tick
	debris  []debris
}

// NewExplosionEffect spawns 3-15 debris particles at target.
func NewExplosionEffect(target Point, rng *rand.Rand) *ExplosionEffect {
	n := 3 + rng.Intn(13)
	e := &ExplosionEffect{startMs: -1, debris: make([]debris, n)}
	for i := range e.debris {
		e.debris[i] = debris{
			origin: target,
			size:   randBetween(rng, 1, 8),
			v0x:    randBetween(rng, -250, 250),
			v0y:    randBetween(rng, -250, 0),
			lifeMs: randBetween(rng, 500, 3000),
			pos:    target,
		}
	}
	return e
}

// Tick moves the debris and drops expired particles.
func (e *ExplosionEffect) Tick(nowMs int64) {
	if e.startMs < 0 {
		e.startMs = nowMs
	}
	elapsed := float64(nowMs - e.startMs)
	s := elapsed / 1000
	alive := e.debris[:0]
	for _, d := range e.debris {
		if elapsed > d.lifeMs {
			continue
		}
		d.pos = Point{
			X: d.origin.X + d.v0x*s,
			Y: d.origin.Y + d.v0y*s + 0.5*explosionGravity*s*s,
		}
		alive = append(alive, d)
	}
	e.debris = alive
}

// Done reports whether every particle has expired.
func (e *ExplosionEffect) Done() bool { return len(e.debris) == 0 }

// Particles returns the drawable state.
func (e *ExplosionEffect) Particles() []Particle {
	out := make([]Particle, len(e.debris))
	for i, d := range e.debris {
		out[i] = Particle{Pos: d.pos, Size: d.size, Color: color.RGBA{R: 60, G: 60, B: 60, A: 255}}
	}
	return out
}

type drifter struct {
	from, to Point
	startMs  int64
	durMs    int64
	size     float64
	shade    uint8
	pos      Point
}

// AmbientEffect is a field of slowly drifting background particles.
type AmbientEffect struct {
	bounds Size
	rng    *rand.Rand
	parts  []drifter
}

// NewAmbientEffect scatters n particles over bounds.
func NewAmbientEffect(bounds Size, n int, rng *rand.Rand) *AmbientEffect {
	a := &AmbientEffect{bounds: bounds, rng: rng, parts: make([]drifter, n)}
	for i := range a.parts {
		a.respawn(&a.parts[i])
	}
	return a
}

func (a *AmbientEffect) randomPoint() Point {
	return Point{X: randBetween(a.rng, 0, a.bounds.Width), Y: randBetween(a.rng, 0, a.bounds.Height)}
}

func (a *AmbientEffect) respawn(d *drifter) {
	d.size = randBetween(a.rng, 1, 6)
	d.shade = uint8(randBetween(a.rng, 180, 200))
	d.from = a.randomPoint()
	a.retarget(d)
}

func (a *AmbientEffect) retarget(d *drifter) {
	d.to = a.randomPoint()
	d.durMs = int64(Distance(d.from, d.to)) * spaceMsPerPixel
	d.startMs = -1
	d.pos = d.from
}

// Tick moves every particle; arrivals continue from their endpoint most of
// the time and otherwise respawn elsewhere.
func (a *AmbientEffect) Tick(nowMs int64) {
	for i := range a.parts {
		d := &a.parts[i]
		if d.startMs < 0 {
			d.startMs = nowMs
		}
		elapsed := nowMs - d.startMs
		if elapsed >= d.durMs {
			if a.rng.Float64() < spaceContinueRatio {
				d.from = d.to
				a.retarget(d)
			} else {
				a.respawn(d)
			}
			continue
		}
		f := float64(elapsed) / float64(d.durMs)
		d.pos = Point{X: d.from.X + (d.to.X-d.from.X)*f, Y: d.from.Y + (d.to.Y-d.from.Y)*f}
	}
}

// Particles returns the drawable state.
func (a *AmbientEffect) Particles() []Particle {
	out := make([]Particle, len(a.parts))
	for i, d := range a.parts {
		out[i] = Particle{Pos: d.pos, Size: d.size, Color: color.RGBA{R: d.shade, G: d.shade, B: d.shade, A: 255}}
	}
	return out
}
