package game

import (
	"errors"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// statusMs is how long an input error stays on screen.
const statusMs = 2500

// Host connects the window to the process around it.
type Host struct {
	Poll       func() []Event            // inbound events, nil when there is no link
	CopyReport func(report string) error // clipboard sink for the debug report
	ToggleMute func() bool               // flips sound, returns the new muted state
	Redial     func() error              // replaces a dropped link before a reconnect
	Now        func() int64              // match clock in ms; nil uses wall time since New
}

// Game is the ebiten front end of one Match.
type Game struct {
	match   *Match
	host    Host
	device  *DeviceSurface
	overlay *ebiten.Image // logical-size sprites and HUD, scaled on blit
	hud     *HUDText
	dpr     float64
	viewW   int
	viewH   int
	start   time.Time

	prevKeys      map[ebiten.Key]bool
	prevMouseLeft bool
	showHUD       bool
	showDebug     bool
	charging      bool
	walking       Direction
	dragging      bool
	lastCursor    Point

	status      string
	statusUntil int64
}

// New wraps m in a window-ready Game.
func New(m *Match, host Host) *Game {
	cfg := m.Config()
	dpr := cfg.DevicePixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	t := m.Terrain()
	g := &Game{
		match:    m,
		host:     host,
		device:   NewDeviceSurface(t.Width(), t.Height(), dpr),
		overlay:  ebiten.NewImage(cfg.ViewportWidth, cfg.ViewportHeight),
		hud:      NewHUDText(),
		dpr:      dpr,
		viewW:    cfg.ViewportWidth,
		viewH:    cfg.ViewportHeight,
		start:    time.Now(),
		prevKeys: make(map[ebiten.Key]bool),
		showHUD:  true,
	}
	return g
}

// WindowSize is the outer window size in device pixels.
func (g *Game) WindowSize() (int, int) {
	return int(float64(g.viewW) * g.dpr), int(float64(g.viewH) * g.dpr)
}

func (g *Game) now() int64 {
	if g.host.Now != nil {
		return g.host.Now()
	}
	return time.Since(g.start).Milliseconds()
}

func (g *Game) Update() error {
	nowMs := g.now()
	if g.host.Poll != nil {
		for _, ev := range g.host.Poll() {
			g.match.Deliver(ev)
		}
	}
	g.handleInput(nowMs)
	g.match.Tick(nowMs)
	g.device.Sync(g.match.Terrain())
	return nil
}

// handleInput maps keys onto match requests. Movement, aim and charge are
// level-triggered; everything else fires on the key edge.
func (g *Game) handleInput(nowMs int64) {
	currentKeys := map[ebiten.Key]bool{}
	down := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k]
	}
	edge := func(k ebiten.Key) bool {
		return down(k) && !g.prevKeys[k]
	}

	// Walk: arrows left/right, one step per motion slot.
	switch {
	case down(ebiten.KeyArrowLeft):
		g.walk(Left, nowMs)
	case down(ebiten.KeyArrowRight):
		g.walk(Right, nowMs)
	default:
		if g.walking != "" {
			g.walking = ""
			g.report(g.match.RequestMoveEnd(), nowMs)
		}
	}

	// Aim: arrows up/down.
	if down(ebiten.KeyArrowUp) {
		g.report(g.match.AdjustAim(1), nowMs)
	}
	if down(ebiten.KeyArrowDown) {
		g.report(g.match.AdjustAim(-1), nowMs)
	}

	// Charge while space is held, fire on release.
	if down(ebiten.KeySpace) {
		if err := g.match.ChargePower(); err == nil {
			g.charging = true
		}
	} else if g.charging {
		g.charging = false
		g.report(g.match.RequestFire(), nowMs)
	}

	// Skills.
	if edge(ebiten.Key1) {
		g.report(g.match.RequestSkill(SkillExtraShot), nowMs)
	}
	if edge(ebiten.Key2) {
		g.report(g.match.RequestSkill(SkillTrident), nowMs)
	}

	// H: toggle HUD. Tab: debug overlay. C: copy debug report. M: sound.
	if edge(ebiten.KeyH) {
		g.showHUD = !g.showHUD
	}
	if edge(ebiten.KeyTab) {
		g.showDebug = !g.showDebug
	}
	if edge(ebiten.KeyC) && g.host.CopyReport != nil {
		if err := g.host.CopyReport(g.match.DebugReport(60)); err != nil {
			g.report(err, nowMs)
		} else {
			g.setStatus("debug report copied", nowMs)
		}
	}
	if edge(ebiten.KeyM) && g.host.ToggleMute != nil {
		if g.host.ToggleMute() {
			g.setStatus("sound off", nowMs)
		} else {
			g.setStatus("sound on", nowMs)
		}
	}
	// R: ask for the match state again after a dropped link.
	if edge(ebiten.KeyR) && g.match.Disconnected() {
		g.report(g.reconnect(), nowMs)
	}

	g.handleMinimapDrag()
	g.prevKeys = currentKeys
}

func (g *Game) walk(dir Direction, nowMs int64) {
	g.walking = dir
	g.report(g.match.RequestMove(dir), nowMs)
}

// handleMinimapDrag moves the viewport while the minimap frame is dragged.
func (g *Game) handleMinimapDrag() {
	mx, my := ebiten.CursorPosition()
	cursor := Point{X: float64(mx) / g.dpr, Y: float64(my) / g.dpr}
	mini := g.match.Minimap()
	origin := g.minimapOrigin()
	local := Point{X: cursor.X - origin.X, Y: cursor.Y - origin.Y}

	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	switch {
	case pressed && !g.prevMouseLeft:
		if mini.Contains(local) {
			g.dragging = mini.BeginDrag()
		}
	case pressed && g.dragging:
		mini.DragBy(cursor.X-g.lastCursor.X, cursor.Y-g.lastCursor.Y)
	case !pressed && g.dragging:
		g.dragging = false
		mini.EndDrag()
	}
	g.lastCursor = cursor
	g.prevMouseLeft = pressed
}

// report shows input errors that the player should see. Pending operations
// and off-turn presses are routine and stay silent.
func (g *Game) report(err error, nowMs int64) {
	if err == nil || errors.Is(err, ErrOperationPending) || errors.Is(err, ErrNotActive) {
		return
	}
	g.setStatus(err.Error(), nowMs)
}

func (g *Game) reconnect() error {
	if g.host.Redial != nil {
		if err := g.host.Redial(); err != nil {
			return err
		}
	}
	return g.match.Reconnect()
}

func (g *Game) setStatus(msg string, nowMs int64) {
	g.status = msg
	g.statusUntil = nowMs + statusMs
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 8, G: 10, B: 22, A: 255})
	vp := g.match.Viewport()

	g.overlay.Clear()
	g.drawAmbient(g.overlay)
	g.blitOverlay(screen)

	// Terrain goes straight to the screen at device resolution.
	g.device.Draw(screen, vp.Translate())

	g.overlay.Clear()
	g.drawEntities(g.overlay)
	g.drawBombs(g.overlay)
	g.drawExplosions(g.overlay)
	if g.showDebug {
		g.drawContactPoints(g.overlay)
		g.drawVolleyTracks(g.overlay)
	}
	g.drawMinimap(g.overlay)
	if g.showHUD {
		g.drawHUD(g.overlay)
	}
	g.match.Feed().Draw(g.overlay, g.hud, g.viewH)
	g.drawStatus(g.overlay)
	g.blitOverlay(screen)
}

func (g *Game) blitOverlay(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(g.dpr, g.dpr)
	screen.DrawImage(g.overlay, op)
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.WindowSize()
}
