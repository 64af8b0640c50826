package game

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// drawContactPoints marks each entity's left/right contact points and the
// segment the stand angle is measured along.
func (g *Game) drawContactPoints(screen *ebiten.Image) {
	for _, p := range g.match.Roster().All() {
		if p.OutOfMap {
			continue
		}
		lx, ly := g.screenPoint(p.Left)
		rx, ry := g.screenPoint(p.Right)
		cx, cy := g.screenPoint(p.Center)
		vector.StrokeLine(screen, lx, ly, rx, ry, 1.0, color.RGBA{R: 255, G: 240, B: 60, A: 160}, false)
		vector.FillRect(screen, lx-1, ly-1, 3, 3, color.RGBA{R: 60, G: 220, B: 255, A: 255}, false)
		vector.FillRect(screen, rx-1, ry-1, 3, 3, color.RGBA{R: 255, G: 80, B: 200, A: 255}, false)

		// Sample box.
		half := float32(g.match.Config().BoxLength) / 2
		vector.StrokeRect(screen, cx-half, cy-half, half*2, half*2, 1.0, color.RGBA{R: 255, G: 255, B: 255, A: 50}, false)

		label := fmt.Sprintf("%s %+.0f°", p.Motion, p.StandAngle)
		g.hud.Draw(screen, label, float64(cx)-g.hud.Width(label)/2, float64(cy)+6, color.RGBA{R: 220, G: 220, B: 220, A: 200})
	}
}

// drawVolleyTracks draws the precomputed path of every bomb in the current
// volley as a dashed line, with a marker at its resolved target.
func (g *Game) drawVolleyTracks(screen *ebiten.Image) {
	v := g.match.Volley()
	if v == nil {
		return
	}
	lineCol := color.RGBA{R: 255, G: 255, B: 255, A: 60}
	markerCol := color.RGBA{R: 255, G: 240, B: 60, A: 140}
	const stride = 20 // samples per dash
	for _, b := range v.Bombs {
		for i := 0; i+stride < len(b.Track); i += stride * 2 {
			x1, y1 := g.screenPoint(b.Track[i].Point())
			x2, y2 := g.screenPoint(b.Track[i+stride].Point())
			vector.StrokeLine(screen, x1, y1, x2, y2, 1.0, lineCol, false)
		}

		ex, ey := g.screenPoint(b.Target)
		if b.OutOfBounds {
			vector.StrokeLine(screen, ex-4, ey-4, ex+4, ey+4, 1.0, markerCol, false)
			vector.StrokeLine(screen, ex-4, ey+4, ex+4, ey-4, 1.0, markerCol, false)
			continue
		}
		r := float32(b.DamageRadius)
		for a := 0; a < 16; a++ {
			ang0 := float64(a) / 16.0 * 2 * math.Pi
			ang1 := float64(a+1) / 16.0 * 2 * math.Pi
			vector.StrokeLine(screen,
				ex+r*float32(math.Cos(ang0)),
				ey+r*float32(math.Sin(ang0)),
				ex+r*float32(math.Cos(ang1)),
				ey+r*float32(math.Sin(ang1)),
				1.0, markerCol, false)
		}
	}
}
