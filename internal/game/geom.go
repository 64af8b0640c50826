package game

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a position in logical pixels, canvas-down (origin top-left).
type Point struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
}

// Size is a logical width/height pair.
type Size struct {
	Width  float64 `msgpack:"width" json:"width"`
	Height float64 `msgpack:"height" json:"height"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.0f,%.0f)", p.X, p.Y)
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Floor snaps both coordinates down to whole pixels.
func (p Point) Floor() Point {
	return Point{X: math.Floor(p.X), Y: math.Floor(p.Y)}
}

// UnmarshalJSON accepts {"x":..,"y":..}, [x, y] and the legacy "x,y" form.
func (p *Point) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("point: want 2 coordinates, got %d", len(pair))
		}
		p.X, p.Y = pair[0], pair[1]
		return nil
	case strings.HasPrefix(trimmed, "\""):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return fmt.Errorf("point: malformed %q", s)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return fmt.Errorf("point %q: %w", s, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("point %q: %w", s, err)
		}
		p.X, p.Y = x, y
		return nil
	default:
		type plain Point
		var q plain
		if err := json.Unmarshal(data, &q); err != nil {
			return err
		}
		*p = Point(q)
		return nil
	}
}

// CartesianY converts a canvas-down Y into a Cartesian-up Y for a map of
// height mapH. The conversion is its own inverse, see CanvasY.
func CartesianY(y, mapH float64) float64 {
	return mapH - y
}

// CanvasY converts a Cartesian-up Y back to canvas-down.
func CanvasY(y, mapH float64) float64 {
	return mapH - y
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return math.Pi / 180 * deg
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return 180 / math.Pi * rad
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// EaseOut is a cubic ease-out curve over t in [0,1].
func EaseOut(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	inv := 1 - t
	return 1 - inv*inv*inv
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// circlePath approximates a circle with n straight edges, starting at angle 0
// and winding clockwise in canvas space.
func circlePath(center Point, radius float64, n int) Path {
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	return Path{Points: pts, Closed: true}
}
