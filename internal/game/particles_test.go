package game

import (
	"math/rand"
	"testing"
)

func TestExplosionEffect_ExpiresWithinLifetime(t *testing.T) {
	e := NewExplosionEffect(Point{X: 100, Y: 100}, rand.New(rand.NewSource(7)))
	n := len(e.Particles())
	if n < 3 || n > 15 {
		t.Fatalf("debris count = %d, want 3..15", n)
	}
	e.Tick(1000)
	e.Tick(1500)
	for _, p := range e.Particles() {
		if p.Pos == (Point{X: 100, Y: 100}) {
			t.Fatal("debris did not move")
		}
	}
	e.Tick(1000 + 3001)
	if !e.Done() {
		t.Fatalf("%d debris outlived the 3s maximum", len(e.Particles()))
	}
}

func TestAmbientEffect_StaysInBounds(t *testing.T) {
	bounds := Size{Width: 300, Height: 200}
	a := NewAmbientEffect(bounds, 25, rand.New(rand.NewSource(3)))
	for now := int64(0); now < 60_000; now += 250 {
		a.Tick(now)
		for _, p := range a.Particles() {
			if p.Pos.X < 0 || p.Pos.Y < 0 || p.Pos.X > bounds.Width || p.Pos.Y > bounds.Height {
				t.Fatalf("particle at %s left the %vx%v field", p.Pos, bounds.Width, bounds.Height)
			}
		}
	}
	if len(a.Particles()) != 25 {
		t.Fatalf("particle count = %d", len(a.Particles()))
	}
}
