package game

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

// HUDText draws monospace HUD strings with the basic 7×13 face.
type HUDText struct {
	face  text.Face
	lineH float64
}

// NewHUDText returns a HUD writer. Text is drawn in logical pixels; the
// overlay it lands on is scaled to the device afterwards.
func NewHUDText() *HUDText {
	return &HUDText{face: text.NewGoXFace(basicfont.Face7x13), lineH: 13}
}

// LineHeight is the height of one line in logical pixels.
func (h *HUDText) LineHeight() float64 { return h.lineH }

// Draw writes s with its top-left corner at logical (x, y).
func (h *HUDText) Draw(dst *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = h.lineH
	text.Draw(dst, s, h.face, op)
}

// Width returns the logical width of s.
func (h *HUDText) Width(s string) float64 {
	w, _ := text.Measure(s, h.face, h.lineH)
	return w
}
