package game

import (
	"fmt"
	"hash/fnv"
	"math"
	"slices"
)

// Impact is one validated crater; the ordered impact log folded over the
// initial polygons reproduces the terrain exactly.
type Impact struct {
	Center Point   `msgpack:"center"`
	Radius float64 `msgpack:"radius"`
}

// Terrain is the destructible map raster. It is built once from polygons and
// afterwards only changes through ApplyCrater.
type Terrain struct {
	width, height int
	polygons      []Path
	lineWidth     float64
	segments      int

	surface *LogicalSurface
	scratch *LogicalSurface
	impacts []Impact
	version uint64
}

// NewTerrain renders polygons onto a fresh w×h surface.
func NewTerrain(w, h int, polygons []Path, cfg Config) *Terrain {
	t := &Terrain{
		width:     w,
		height:    h,
		polygons:  polygons,
		lineWidth: cfg.LineWidth,
		segments:  cfg.CraterSegments,
		surface:   NewLogicalSurface(w, h),
		scratch:   NewLogicalSurface(w, h),
	}
	t.build()
	return t
}

func (t *Terrain) build() {
	t.surface.Clear()
	BuildProgram(t.polygons, t.lineWidth).Run(t.scratch, t.surface)
	t.version++
}

func (t *Terrain) Width() int  { return t.width }
func (t *Terrain) Height() int { return t.height }

// Surface exposes the logical raster for display uploads.
func (t *Terrain) Surface() *LogicalSurface { return t.surface }

// Version increases on every mutation.
func (t *Terrain) Version() uint64 { return t.version }

// Impacts returns a copy of the impact log in application order.
func (t *Terrain) Impacts() []Impact { return slices.Clone(t.impacts) }

// ApplyCrater carves a disc of radius around center and appends it to the
// impact log.
func (t *Terrain) ApplyCrater(center Point, radius float64) {
	CraterProgram(center, radius, t.segments, t.lineWidth).Run(t.scratch, t.surface)
	t.impacts = append(t.impacts, Impact{Center: center, Radius: radius})
	t.version++
}

// Rebuild re-renders the terrain from its polygons and replays impacts in
// order, discarding any local history.
func (t *Terrain) Rebuild(impacts []Impact) {
	t.impacts = nil
	t.build()
	for _, im := range impacts {
		t.ApplyCrater(im.Center, im.Radius)
	}
}

// Clone returns an independent terrain with the same pixels and impact log.
func (t *Terrain) Clone() *Terrain {
	return &Terrain{
		width:     t.width,
		height:    t.height,
		polygons:  t.polygons,
		lineWidth: t.lineWidth,
		segments:  t.segments,
		surface:   t.surface.Clone(),
		scratch:   NewLogicalSurface(t.width, t.height),
		impacts:   slices.Clone(t.impacts),
		version:   t.version,
	}
}

// Occupied reports whether the pixel holds any terrain.
func (t *Terrain) Occupied(x, y int) bool {
	return t.surface.At(x, y).A > 0
}

// Standable reports whether the pixel is outline (walkable surface).
func (t *Terrain) Standable(x, y int) bool {
	return t.surface.At(x, y).R == 255
}

// OccupiedCount returns the number of occupied pixels.
func (t *Terrain) OccupiedCount() int {
	n := 0
	pix := t.surface.Pix()
	for i := 3; i < len(pix); i += 4 {
		if pix[i] > 0 {
			n++
		}
	}
	return n
}

// Checksum is an FNV-64a digest of the raster, used to compare terrains
// across peers.
func (t *Terrain) Checksum() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(t.surface.Pix())
	return h.Sum64()
}

// SurfacePoints samples the boxLength² box centred on center. Each column is
// scanned top to bottom: the first outline pixel is recorded, a fill pixel
// seen first ends the column without a record.
func (t *Terrain) SurfacePoints(center Point, boxLength int) []Point {
	half := boxLength / 2
	cx := int(math.Floor(center.X))
	cy := int(math.Floor(center.Y))
	x0, y0 := cx-half, cy-half

	var pts []Point
	for col := 0; col < boxLength; col++ {
		for row := 0; row < boxLength; row++ {
			c := t.surface.At(x0+col, y0+row)
			if c.R == 255 {
				pts = append(pts, Point{X: float64(x0 + col + 1), Y: float64(y0 + row + 1)})
				break
			}
			if c.G == 255 {
				break
			}
		}
	}
	return pts
}

// ContactPoints returns the leftmost and rightmost surface points of the box
// around center. It fails with ErrUnresolvablePosition when they cannot be
// told apart.
func (t *Terrain) ContactPoints(center Point, boxLength int) (left, right Point, err error) {
	pts := t.SurfacePoints(center, boxLength)
	if len(pts) == 0 {
		return Point{}, Point{}, fmt.Errorf("no surface around %s: %w", center, ErrUnresolvablePosition)
	}
	left, right = pts[0], pts[len(pts)-1]
	if left.X == right.X {
		return left, right, fmt.Errorf("single contact column at x=%.0f: %w", left.X, ErrUnresolvablePosition)
	}
	return left, right, nil
}

// FirstSurfaceBelow scans column x downward from fromY and returns the first
// standable pixel.
func (t *Terrain) FirstSurfaceBelow(x, fromY float64) (Point, bool) {
	px := int(math.Floor(x))
	if px < 0 || px >= t.width {
		return Point{}, false
	}
	for y := max(int(math.Floor(fromY)), 0); y < t.height; y++ {
		if t.Standable(px, y) {
			return Point{X: float64(px), Y: float64(y)}, true
		}
	}
	return Point{}, false
}

// ColumnTop returns the top row of the solid run in column x nearest to
// fromY: it climbs while the pixel above is occupied, or descends to the
// first occupied pixel when fromY is empty. Either walk gives up after reach
// rows.
func (t *Terrain) ColumnTop(x, fromY float64, reach int) (float64, bool) {
	px, y := int(math.Floor(x)), int(math.Floor(fromY))
	if px < 0 || px >= t.width {
		return 0, false
	}
	if t.Occupied(px, y) {
		for i := 0; i < reach && t.Occupied(px, y-1); i++ {
			y--
		}
		return float64(y), true
	}
	for i := 0; i < reach; i++ {
		y++
		if t.Occupied(px, y) {
			return float64(y), true
		}
	}
	return 0, false
}

// AngleBetween returns the floored slope angle in degrees of the segment from
// a (left) to b (right), measured in Cartesian-up space.
func AngleBetween(a, b Point, mapH float64) float64 {
	dy := CartesianY(b.Y, mapH) - CartesianY(a.Y, mapH)
	dx := b.X - a.X
	return math.Floor(Degrees(math.Atan2(dy, dx)))
}

// PointOutOfMap reports whether p is beyond the safety boundary. There is no
// upper limit: shots may leave the top of the map and come back down.
func PointOutOfMap(p Point, w, h int, gap float64) bool {
	return p.X < -gap || p.X > float64(w)+gap || p.Y > float64(h)+gap
}
