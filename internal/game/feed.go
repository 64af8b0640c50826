package game

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	feedPanelWidth = 300
	feedMaxEntries = 40
	feedLineHeight = 14
	feedVisible    = 8
)

// FeedEntry is a single line in the event feed.
type FeedEntry struct {
	AtMs    int64
	Label   string
	Tone    FeedTone
	Message string
}

// FeedTone picks the marker colour of a feed line.
type FeedTone int

const (
	ToneInfo FeedTone = iota
	ToneHit
	ToneWarn
)

// Feed is a ring buffer of match events rendered on-screen.
type Feed struct {
	entries []FeedEntry
	head    int
	count   int
}

// NewFeed creates a feed with a fixed capacity.
func NewFeed() *Feed {
	return &Feed{
		entries: make([]FeedEntry, feedMaxEntries),
	}
}

// Add appends an entry to the feed.
func (f *Feed) Add(atMs int64, label string, tone FeedTone, msg string) {
	f.entries[f.head] = FeedEntry{
		AtMs:    atMs,
		Label:   label,
		Tone:    tone,
		Message: msg,
	}
	f.head = (f.head + 1) % feedMaxEntries
	if f.count < feedMaxEntries {
		f.count++
	}
}

// Recent returns entries in chronological order (oldest first).
func (f *Feed) Recent() []FeedEntry {
	result := make([]FeedEntry, f.count)
	for i := 0; i < f.count; i++ {
		idx := (f.head - f.count + i + feedMaxEntries) % feedMaxEntries
		result[i] = f.entries[idx]
	}
	return result
}

// Draw renders the newest entries in a panel anchored at the bottom-left.
func (f *Feed) Draw(screen *ebiten.Image, hud *HUDText, panelH int) {
	entries := f.Recent()
	if len(entries) > feedVisible {
		entries = entries[len(entries)-feedVisible:]
	}
	h := len(entries)*feedLineHeight + 8
	y0 := panelH - h - 8
	vector.FillRect(screen, 8, float32(y0), feedPanelWidth, float32(h), color.RGBA{R: 10, G: 12, B: 16, A: 200}, false)

	y := y0 + 4
	for i, e := range entries {
		var dot color.RGBA
		switch e.Tone {
		case ToneHit:
			dot = color.RGBA{R: 230, G: 90, B: 60, A: 255}
		case ToneWarn:
			dot = color.RGBA{R: 230, G: 200, B: 60, A: 255}
		default:
			dot = color.RGBA{R: 90, G: 160, B: 230, A: 255}
		}
		vector.FillRect(screen, 13, float32(y+4), 3, 5, dot, false)

		clr := color.RGBA{R: 160, G: 160, B: 160, A: 255}
		if i >= len(entries)-3 {
			clr = color.RGBA{R: 240, G: 240, B: 240, A: 255}
		}
		hud.Draw(screen, fmt.Sprintf("%6.1fs [%s] %s", float64(e.AtMs)/1000, e.Label, e.Message), 20, float64(y), clr)
		y += feedLineHeight
	}
}
