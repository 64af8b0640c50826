package game

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Display palette for the terrain. The logical raster stays pure green and
// red; only the uploaded copy is tinted.
var (
	groundFill    = color.RGBA{R: 92, G: 74, B: 58, A: 255}
	groundShade   = color.RGBA{R: 58, G: 46, B: 38, A: 255}
	groundOutline = color.RGBA{R: 128, G: 186, B: 88, A: 255}
)

// DeviceSurface is the GPU copy of the terrain. It re-uploads only when the
// terrain version changes and is drawn scaled by the device pixel ratio.
type DeviceSurface struct {
	img     *ebiten.Image
	buf     []byte
	mapH    int
	dpr     float64
	version uint64
	synced  bool
}

// NewDeviceSurface allocates a w×h logical surface.
func NewDeviceSurface(w, h int, dpr float64) *DeviceSurface {
	if dpr <= 0 {
		dpr = 1
	}
	return &DeviceSurface{
		img:  ebiten.NewImage(w, h),
		buf:  make([]byte, w*h*4),
		mapH: h,
		dpr:  dpr,
	}
}

// Image returns the uploaded texture.
func (d *DeviceSurface) Image() *ebiten.Image { return d.img }

// Sync uploads the terrain when it changed since the last call and reports
// whether it did.
func (d *DeviceSurface) Sync(t *Terrain) bool {
	if d.synced && t.Version() == d.version {
		return false
	}
	tintPixels(d.buf, t.Surface().Pix(), t.Width(), d.mapH)
	d.img.WritePixels(d.buf)
	d.version = t.Version()
	d.synced = true
	return true
}

// Draw blits the terrain onto dst at the viewport translate.
func (d *DeviceSurface) Draw(dst *ebiten.Image, translate Point) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(translate.X, translate.Y)
	op.GeoM.Scale(d.dpr, d.dpr)
	dst.DrawImage(d.img, op)
}

// tintPixels maps the logical terrain colours onto the display palette.
// Fill darkens with depth so craters read as holes.
func tintPixels(dst, src []byte, w, h int) {
	for i := 0; i+3 < len(src); i += 4 {
		a := src[i+3]
		if a == 0 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = 0, 0, 0, 0
			continue
		}
		c := groundOutline
		if src[i] != 255 {
			y := (i / 4) / max(w, 1)
			c = lerpRGBA(groundFill, groundShade, float64(y)/float64(max(h, 1)))
		}
		// Premultiplied: scale by coverage.
		dst[i] = uint8(uint16(c.R) * uint16(a) / 255)
		dst[i+1] = uint8(uint16(c.G) * uint16(a) / 255)
		dst[i+2] = uint8(uint16(c.B) * uint16(a) / 255)
		dst[i+3] = a
	}
}

func lerpRGBA(a, b color.RGBA, t float64) color.RGBA {
	t = clampF(t, 0, 1)
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
