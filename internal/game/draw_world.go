package game

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Entity sprite dimensions in logical pixels.
const (
	bodyWidth    = 22
	bodyHeight   = 12
	barrelLength = 20
	healthBarW   = 30
)

var (
	bodyColors = []color.RGBA{
		{R: 210, G: 80, B: 60, A: 255},
		{R: 70, G: 130, B: 220, A: 255},
		{R: 230, G: 190, B: 70, A: 255},
		{R: 150, G: 90, B: 200, A: 255},
	}
	bombColor = color.RGBA{R: 250, G: 250, B: 250, A: 255}
)

// screenPoint converts a map point to overlay coordinates.
func (g *Game) screenPoint(p Point) (float32, float32) {
	s := g.match.Viewport().WorldToScreen(p)
	return float32(s.X), float32(s.Y)
}

func (g *Game) drawAmbient(dst *ebiten.Image) {
	amb := g.match.Ambient()
	if amb == nil {
		return
	}
	for _, p := range amb.Particles() {
		x, y := g.screenPoint(p.Pos)
		vector.FillRect(dst, x, y, float32(p.Size), float32(p.Size), p.Color, false)
	}
}

// drawEntities draws each entity as a body tilted with the ground, a barrel
// at the launch angle and a health bar.
func (g *Game) drawEntities(dst *ebiten.Image) {
	r := g.match.Roster()
	for i, p := range r.All() {
		if p.OutOfMap {
			continue
		}
		col := bodyColors[i%len(bodyColors)]
		if p.Health <= 0 {
			col = color.RGBA{R: 90, G: 90, B: 90, A: 255}
		}
		cx, cy := g.screenPoint(p.Center)

		// Body: a quad resting on the slope, Cartesian angle flipped for canvas.
		slope := Radians(-p.StandAngle)
		cos, sin := float32(math.Cos(slope)), float32(math.Sin(slope))
		hw := float32(bodyWidth) / 2
		corner := func(dx, dy float32) (float32, float32) {
			return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
		}
		var path vector.Path
		x0, y0 := corner(-hw, 0)
		path.MoveTo(x0, y0)
		x1, y1 := corner(hw, 0)
		path.LineTo(x1, y1)
		x2, y2 := corner(hw, -bodyHeight)
		path.LineTo(x2, y2)
		x3, y3 := corner(-hw, -bodyHeight)
		path.LineTo(x3, y3)
		path.Close()
		op := &vector.DrawPathOptions{}
		op.ColorScale.ScaleWithColor(col)
		vector.FillPath(dst, &path, &vector.FillOptions{}, op)

		// Barrel from the launch point.
		lx, ly := g.screenPoint(p.LaunchPoint(g.match.Config()))
		a := Radians(p.LaunchAngle())
		bx := lx + float32(math.Cos(a))*barrelLength
		by := ly - float32(math.Sin(a))*barrelLength
		vector.StrokeLine(dst, cx, cy-bodyHeight, lx, ly, 2, col, false)
		vector.StrokeLine(dst, lx, ly, bx, by, 3, col, false)

		// Health bar above the barrel root.
		frac := float32(0)
		if p.HealthMax > 0 {
			frac = float32(p.Health / p.HealthMax)
		}
		hx, hy := cx-healthBarW/2, ly-14
		vector.FillRect(dst, hx, hy, healthBarW, 4, color.RGBA{R: 40, G: 40, B: 40, A: 200}, false)
		vector.FillRect(dst, hx, hy, healthBarW*frac, 4, color.RGBA{R: 90, G: 220, B: 90, A: 255}, false)

		if p.ID == r.ActiveID {
			vector.StrokeCircle(dst, cx, cy-bodyHeight/2, bodyWidth, 1, color.RGBA{R: 255, G: 255, B: 255, A: 90}, true)
		}
	}
}

// drawBombs draws each in-flight bomb as a short streak along its heading.
func (g *Game) drawBombs(dst *ebiten.Image) {
	v := g.match.Volley()
	if v == nil {
		return
	}
	for _, f := range v.InFlight(g.match.NowMs()) {
		x, y := g.screenPoint(f.Sample.Point())
		h := Radians(f.Sample.Heading)
		size := float32(max(f.Bomb.SizePx, 1))
		tx := x - float32(math.Cos(h))*size*3
		ty := y + float32(math.Sin(h))*size*3
		vector.StrokeLine(dst, tx, ty, x, y, size, bombColor, true)
	}
}

func (g *Game) drawExplosions(dst *ebiten.Image) {
	for _, e := range g.match.Explosions() {
		for _, p := range e.Particles() {
			x, y := g.screenPoint(p.Pos)
			vector.FillRect(dst, x, y, float32(p.Size), float32(p.Size), p.Color, false)
		}
	}
}
