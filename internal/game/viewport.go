package game

import "math"

// ViewportMode is the camera state.
type ViewportMode int

const (
	ViewFollowing ViewportMode = iota
	ViewAnimating
	ViewDragging
)

func (m ViewportMode) String() string {
	switch m {
	case ViewFollowing:
		return "following"
	case ViewAnimating:
		return "animating"
	case ViewDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

type viewAnim struct {
	active   bool
	start    Point
	target   Point
	startMs  int64 // -1 until the first tick after the transition begins
	duration int64
	onDone   func()
}

// Viewport maps logical map coordinates onto the screen. Translate is the
// offset added to a map point to get its screen position.
type Viewport struct {
	mapW, mapH   float64
	viewW, viewH float64

	translate   Point
	dragging    bool
	anim        viewAnim
	durationMs  int64
	previewDone bool
}

// NewViewport returns a viewport centred on the map.
func NewViewport(mapSize Size, viewW, viewH int, transitionMs int64) *Viewport {
	v := &Viewport{
		mapW:       mapSize.Width,
		mapH:       mapSize.Height,
		viewW:      float64(viewW),
		viewH:      float64(viewH),
		durationMs: transitionMs,
	}
	v.translate = v.Clamp(v.MapCenter())
	return v
}

// MapCenter is the middle of the logical map.
func (v *Viewport) MapCenter() Point {
	return Point{X: v.mapW / 2, Y: v.mapH / 2}
}

func (v *Viewport) Translate() Point { return v.translate }
func (v *Viewport) ViewSize() Size   { return Size{Width: v.viewW, Height: v.viewH} }
func (v *Viewport) MapSize() Size    { return Size{Width: v.mapW, Height: v.mapH} }

// Mode returns the current state. Dragging wins over a suspended animation.
func (v *Viewport) Mode() ViewportMode {
	switch {
	case v.dragging:
		return ViewDragging
	case v.anim.active:
		return ViewAnimating
	default:
		return ViewFollowing
	}
}

// PreviewDone reports whether the opening map preview has finished.
func (v *Viewport) PreviewDone() bool { return v.previewDone }

// ClampFocus limits a focus point so the view stays inside the map. On an
// axis where the map is smaller than the view the map centre is used.
func (v *Viewport) ClampFocus(p Point) Point {
	return Point{
		X: clampAxis(p.X, v.viewW, v.mapW),
		Y: clampAxis(p.Y, v.viewH, v.mapH),
	}
}

func clampAxis(p, view, size float64) float64 {
	lo, hi := view/2, size-view/2
	if lo > hi {
		return size / 2
	}
	return clampF(p, lo, hi)
}

// Clamp returns the translate that centres the view on target, clamped.
func (v *Viewport) Clamp(target Point) Point {
	f := v.ClampFocus(target)
	return Point{X: v.viewW/2 - f.X, Y: v.viewH/2 - f.Y}
}

// FocusOn jumps to target. Ignored while dragging or animating.
func (v *Viewport) FocusOn(target Point) {
	if v.dragging || v.anim.active {
		return
	}
	v.translate = v.Clamp(target)
}

// TransitionTo eases the view onto target over the configured duration and
// calls onDone once when it arrives. Ignored while dragging.
func (v *Viewport) TransitionTo(target Point, onDone func()) {
	if v.dragging {
		return
	}
	v.anim = viewAnim{
		active:   true,
		start:    v.translate,
		target:   v.Clamp(target),
		startMs:  -1,
		duration: v.durationMs,
		onDone:   onDone,
	}
}

// BeginPreview starts the opening transition from the map centre to target.
// Dragging stays disabled until it completes.
func (v *Viewport) BeginPreview(target Point, onDone func()) {
	v.translate = v.Clamp(v.MapCenter())
	v.TransitionTo(target, func() {
		v.previewDone = true
		if onDone != nil {
			onDone()
		}
	})
}

// Tick advances a running transition.
func (v *Viewport) Tick(nowMs int64) {
	if !v.anim.active || v.dragging {
		return
	}
	a := &v.anim
	if a.startMs < 0 {
		a.startMs = nowMs
	}
	progress := 1.0
	if a.duration > 0 {
		progress = EaseOut(math.Min(float64(nowMs-a.startMs)/float64(a.duration), 1))
	}
	v.translate = Point{
		X: math.Floor(a.start.X + (a.target.X-a.start.X)*progress),
		Y: math.Floor(a.start.Y + (a.target.Y-a.start.Y)*progress),
	}
	if progress >= 1 {
		done := a.onDone
		v.anim = viewAnim{}
		if done != nil {
			done()
		}
	}
}

// CancelAnimation stops a transition without calling its callback.
func (v *Viewport) CancelAnimation() {
	v.anim = viewAnim{}
}

// BeginDrag enters the dragging state. It is refused until the preview has
// finished.
func (v *Viewport) BeginDrag() bool {
	if !v.previewDone {
		return false
	}
	v.dragging = true
	return true
}

// DragTo sets the translate directly while dragging.
func (v *Viewport) DragTo(translate Point) {
	if !v.dragging {
		return
	}
	v.translate = translate
}

// EndDrag leaves the dragging state. A suspended transition resumes from the
// current position.
func (v *Viewport) EndDrag() {
	if !v.dragging {
		return
	}
	v.dragging = false
	if v.anim.active {
		v.anim.start = v.translate
		v.anim.startMs = -1
	}
}

// WorldToScreen converts a map point to logical screen coordinates.
func (v *Viewport) WorldToScreen(p Point) Point {
	return p.Add(v.translate)
}

// ScreenToWorld converts logical screen coordinates to a map point.
func (v *Viewport) ScreenToWorld(p Point) Point {
	return Point{X: p.X - v.translate.X, Y: p.Y - v.translate.Y}
}

// Window returns the visible map rectangle as min and max corners.
func (v *Viewport) Window() (Point, Point) {
	lo := Point{X: -v.translate.X, Y: -v.translate.Y}
	return lo, Point{X: lo.X + v.viewW, Y: lo.Y + v.viewH}
}
