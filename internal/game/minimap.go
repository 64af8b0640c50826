package game

// Minimap is a scaled overview of the whole map with a frame showing the
// viewport window. Dragging the frame moves the viewport.
type Minimap struct {
	vp     *Viewport
	width  float64
	height float64
	scale  float64
}

// NewMinimap returns a minimap width pixels wide for vp.
func NewMinimap(vp *Viewport, width int) *Minimap {
	ms := vp.MapSize()
	scale := float64(width) / ms.Width
	return &Minimap{vp: vp, width: float64(width), height: ms.Height * scale, scale: scale}
}

func (m *Minimap) Size() Size     { return Size{Width: m.width, Height: m.height} }
func (m *Minimap) Scale() float64 { return m.scale }

// FrameTranslate is the frame offset inside the minimap.
func (m *Minimap) FrameTranslate() Point {
	t := m.vp.Translate()
	return Point{X: -t.X * m.scale, Y: -t.Y * m.scale}
}

// FrameSize is the frame extent inside the minimap.
func (m *Minimap) FrameSize() Size {
	vs := m.vp.ViewSize()
	return Size{Width: vs.Width * m.scale, Height: vs.Height * m.scale}
}

// Contains reports whether p (minimap-local) is inside the frame.
func (m *Minimap) Contains(p Point) bool {
	f, s := m.FrameTranslate(), m.FrameSize()
	return p.X >= f.X && p.Y >= f.Y && p.X <= f.X+s.Width && p.Y <= f.Y+s.Height
}

// BeginDrag starts dragging the frame.
func (m *Minimap) BeginDrag() bool { return m.vp.BeginDrag() }

// EndDrag releases the frame.
func (m *Minimap) EndDrag() { m.vp.EndDrag() }

// DragBy moves the frame by (dx, dy) minimap pixels. Moves that would push
// the frame outside the minimap are rejected.
func (m *Minimap) DragBy(dx, dy float64) bool {
	if m.vp.Mode() != ViewDragging {
		return false
	}
	f, s := m.FrameTranslate(), m.FrameSize()
	nx, ny := f.X+dx, f.Y+dy
	if nx < 0 || ny < 0 || nx > m.width-s.Width || ny > m.height-s.Height {
		return false
	}
	m.vp.DragTo(Point{X: -nx / m.scale, Y: -ny / m.scale})
	return true
}

// ToMinimap converts a map point to minimap-local coordinates.
func (m *Minimap) ToMinimap(p Point) Point {
	return Point{X: p.X * m.scale, Y: p.Y * m.scale}
}
