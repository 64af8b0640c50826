package game

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// CompositeMode selects the Porter-Duff operator used when a shape or a
// whole surface is drawn onto a LogicalSurface.
type CompositeMode int

const (
	SourceOver CompositeMode = iota
	DestinationOut
	SourceAtop
)

func (m CompositeMode) String() string {
	switch m {
	case SourceOver:
		return "source-over"
	case DestinationOut:
		return "destination-out"
	case SourceAtop:
		return "source-atop"
	default:
		return "unknown"
	}
}

// Path is an ordered polyline; Closed joins the last point back to the first.
type Path struct {
	Points []Point
	Closed bool
}

// coverageThreshold is the minimum rasterizer coverage (0-255) for a pixel to
// count as inside a shape. Edges are hard so every peer derives the same
// occupancy from the same shapes.
const coverageThreshold = 0x80

// joinSegments is the polygon resolution of the round stroke joins.
const joinSegments = 8

// LogicalSurface is an RGBA raster at logical (1:1) resolution. It is the
// authoritative surface that collision and footing queries read; the device
// surface only mirrors it for display.
type LogicalSurface struct {
	img *image.RGBA
}

// NewLogicalSurface returns a transparent surface of w×h pixels.
func NewLogicalSurface(w, h int) *LogicalSurface {
	return &LogicalSurface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (s *LogicalSurface) Width() int  { return s.img.Rect.Dx() }
func (s *LogicalSurface) Height() int { return s.img.Rect.Dy() }

// Image exposes the backing buffer for read-only use (uploads, reports).
func (s *LogicalSurface) Image() *image.RGBA { return s.img }

// Pix returns the premultiplied RGBA bytes, row-major.
func (s *LogicalSurface) Pix() []byte { return s.img.Pix }

// Clear resets every pixel to transparent.
func (s *LogicalSurface) Clear() {
	clear(s.img.Pix)
}

// At returns the pixel at (x, y); out-of-range reads are transparent.
func (s *LogicalSurface) At(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}.In(s.img.Rect)) {
		return color.RGBA{}
	}
	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+4 : i+4]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Clone returns an independent copy of the surface.
func (s *LogicalSurface) Clone() *LogicalSurface {
	c := NewLogicalSurface(s.Width(), s.Height())
	draw.Copy(c.img, image.Point{}, s.img, s.img.Rect, draw.Src, nil)
	return c
}

// Fill paints the interior of a closed path with c using mode.
func (s *LogicalSurface) Fill(p Path, c color.RGBA, mode CompositeMode) {
	if len(p.Points) < 3 {
		return
	}
	r, ok := s.shapeBounds(p.Points, 0)
	if !ok {
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	addPolygon(z, p.Points, r.Min)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	s.applyMask(mask, r.Min, c, mode)
}

// Stroke paints the outline of p with the given line width. Each segment is
// rasterized as a quad and each vertex gets a round join; the pieces are
// unioned into one mask before compositing so overlaps are painted once.
func (s *LogicalSurface) Stroke(p Path, width float64, c color.RGBA, mode CompositeMode) {
	n := len(p.Points)
	if n == 0 || width <= 0 {
		return
	}
	half := width / 2
	r, ok := s.shapeBounds(p.Points, half+1)
	if !ok {
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	paint := func(pts []Point) {
		z.Reset(r.Dx(), r.Dy())
		addPolygon(z, pts, r.Min)
		z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	}

	segs := n - 1
	if p.Closed {
		segs = n
	}
	for i := 0; i < segs; i++ {
		a := p.Points[i]
		b := p.Points[(i+1)%n]
		if quad, ok := segmentQuad(a, b, half); ok {
			paint(quad)
		}
	}
	for _, v := range p.Points {
		paint(circlePath(v, half, joinSegments).Points)
	}
	s.applyMask(mask, r.Min, c, mode)
}

// Composite draws src over the whole of s using mode.
func (s *LogicalSurface) Composite(src *LogicalSurface, mode CompositeMode) {
	r := s.img.Rect.Intersect(src.img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			si := src.img.PixOffset(x, y)
			sp := src.img.Pix[si : si+4 : si+4]
			if sp[3] == 0 {
				continue
			}
			di := s.img.PixOffset(x, y)
			composePixel(s.img.Pix[di:di+4:di+4], sp[0], sp[1], sp[2], sp[3], mode)
		}
	}
}

// shapeBounds returns the integer bounding box of pts grown by pad and
// clipped to the surface.
func (s *LogicalSurface) shapeBounds(pts []Point, pad float64) (image.Rectangle, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	r := image.Rect(
		int(math.Floor(minX-pad)), int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)), int(math.Ceil(maxY+pad)),
	).Intersect(s.img.Rect)
	return r, !r.Empty()
}

func (s *LogicalSurface) applyMask(mask *image.Alpha, origin image.Point, c color.RGBA, mode CompositeMode) {
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A < coverageThreshold {
				continue
			}
			di := s.img.PixOffset(origin.X+x, origin.Y+y)
			composePixel(s.img.Pix[di:di+4:di+4], c.R, c.G, c.B, c.A, mode)
		}
	}
}

func addPolygon(z *vector.Rasterizer, pts []Point, origin image.Point) {
	ox, oy := float64(origin.X), float64(origin.Y)
	z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
}

func segmentQuad(a, b Point, half float64) ([]Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil, false
	}
	nx, ny := -dy/l*half, dx/l*half
	return []Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, true
}

// composePixel applies a premultiplied Porter-Duff operator in place.
func composePixel(d []byte, sr, sg, sb, sa uint8, mode CompositeMode) {
	inv := 255 - uint32(sa)
	switch mode {
	case SourceOver:
		d[0] = uint8(uint32(sr) + mul255(uint32(d[0]), inv))
		d[1] = uint8(uint32(sg) + mul255(uint32(d[1]), inv))
		d[2] = uint8(uint32(sb) + mul255(uint32(d[2]), inv))
		d[3] = uint8(uint32(sa) + mul255(uint32(d[3]), inv))
	case DestinationOut:
		d[0] = uint8(mul255(uint32(d[0]), inv))
		d[1] = uint8(mul255(uint32(d[1]), inv))
		d[2] = uint8(mul255(uint32(d[2]), inv))
		d[3] = uint8(mul255(uint32(d[3]), inv))
	case SourceAtop:
		da := uint32(d[3])
		d[0] = uint8(mul255(uint32(sr), da) + mul255(uint32(d[0]), inv))
		d[1] = uint8(mul255(uint32(sg), da) + mul255(uint32(d[1]), inv))
		d[2] = uint8(mul255(uint32(sb), da) + mul255(uint32(d[2]), inv))
		d[3] = uint8(mul255(uint32(sa), da) + mul255(da, inv))
	}
}

func mul255(a, b uint32) uint32 {
	return (a*b + 127) / 255
}
