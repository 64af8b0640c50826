package game

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const hudMargin = 8

// minimapOrigin is the top-right corner placement of the minimap.
func (g *Game) minimapOrigin() Point {
	s := g.match.Minimap().Size()
	return Point{X: float64(g.viewW) - s.Width - hudMargin, Y: hudMargin}
}

// drawMinimap draws the scaled terrain and the draggable viewport frame.
func (g *Game) drawMinimap(dst *ebiten.Image) {
	mini := g.match.Minimap()
	o := g.minimapOrigin()
	s := mini.Size()
	ox, oy := float32(o.X), float32(o.Y)

	vector.FillRect(dst, ox, oy, float32(s.Width), float32(s.Height), color.RGBA{R: 0, G: 0, B: 0, A: 160}, false)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(mini.Scale(), mini.Scale())
	op.GeoM.Translate(o.X, o.Y)
	dst.DrawImage(g.device.Image(), op)

	for i, p := range g.match.Roster().All() {
		if p.OutOfMap {
			continue
		}
		mp := mini.ToMinimap(p.Center)
		vector.FillRect(dst, ox+float32(mp.X)-2, oy+float32(mp.Y)-2, 4, 4, bodyColors[i%len(bodyColors)], false)
	}

	f, fs := mini.FrameTranslate(), mini.FrameSize()
	frameCol := color.RGBA{R: 255, G: 255, B: 255, A: 140}
	if g.match.Viewport().Mode() == ViewDragging {
		frameCol = color.RGBA{R: 255, G: 240, B: 60, A: 220}
	}
	vector.StrokeRect(dst, ox+float32(f.X), oy+float32(f.Y), float32(fs.Width), float32(fs.Height), 1.0, frameCol, false)
	vector.StrokeRect(dst, ox, oy, float32(s.Width), float32(s.Height), 1.0, color.RGBA{R: 90, G: 110, B: 140, A: 200}, false)
}

// drawHUD renders the turn panel in the top-left corner.
func (g *Game) drawHUD(dst *ebiten.Image) {
	m := g.match
	lines := []string{}
	if a := m.Roster().Active(); a != nil {
		lines = append(lines, fmt.Sprintf("TURN: %s", a.Name))
	}
	if c := m.Roster().Client(); c != nil {
		lines = append(lines,
			fmt.Sprintf("%s  hp %.0f/%.0f", c.Name, c.Health, c.HealthMax),
			fmt.Sprintf("aim %2.0f/%.0f  launch %.0f°", c.WeaponAngle, c.Weapon.AngleRange, c.LaunchAngle()),
			fmt.Sprintf("fires %d  trident %t", c.RemainingFires, c.Trident),
		)
	} else {
		lines = append(lines, "spectating")
	}
	if winner, over := m.Over(); over {
		if winner == "" {
			lines = append(lines, "MATCH OVER: no survivors")
		} else {
			lines = append(lines, "MATCH OVER: "+winner+" wins")
		}
	}
	if m.Disconnected() {
		lines = append(lines, "DISCONNECTED  R=reconnect")
	}
	lines = append(lines,
		"arrows=move/aim  space=charge+fire",
		"1=+1 shot  2=trident  tab=debug  C=copy report",
	)

	const padX, padY = 6, 4
	lineH := g.hud.LineHeight()
	maxW := 0.0
	for _, l := range lines {
		maxW = max(maxW, g.hud.Width(l))
	}
	boxW := float32(maxW + padX*2)
	boxH := float32(float64(len(lines))*lineH + padY*2 + 10)
	bx, by := float32(hudMargin), float32(hudMargin)

	vector.FillRect(dst, bx, by, boxW, boxH, color.RGBA{R: 6, G: 10, B: 18, A: 210}, false)
	vector.StrokeRect(dst, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 90, B: 140, A: 180}, false)
	for i, l := range lines {
		g.hud.Draw(dst, l, float64(bx)+padX, float64(by)+padY+float64(i)*lineH, color.White)
	}

	// Power bar.
	power := 0
	if c := m.Roster().Client(); c != nil {
		power = c.FiringPower
	}
	py := by + boxH - 8
	vector.FillRect(dst, bx+padX, py, boxW-padX*2, 4, color.RGBA{R: 40, G: 40, B: 40, A: 220}, false)
	vector.FillRect(dst, bx+padX, py, (boxW-padX*2)*float32(power)/100, 4, color.RGBA{R: 240, G: 140, B: 40, A: 255}, false)
}

func (g *Game) drawStatus(dst *ebiten.Image) {
	if g.status == "" || g.match.NowMs() > g.statusUntil {
		return
	}
	w := g.hud.Width(g.status)
	x := (float64(g.viewW) - w) / 2
	y := float64(g.viewH) - 40
	vector.FillRect(dst, float32(x-6), float32(y-3), float32(w+12), float32(g.hud.LineHeight()+6), color.RGBA{R: 60, G: 10, B: 10, A: 200}, false)
	g.hud.Draw(dst, g.status, x, y, color.RGBA{R: 255, G: 220, B: 220, A: 255})
}
