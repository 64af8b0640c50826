package game

import (
	"errors"
	"testing"
)

// --- Helpers ---

func poly(pts ...float64) Path {
	var p Path
	for i := 0; i+1 < len(pts); i += 2 {
		p.Points = append(p.Points, Point{X: pts[i], Y: pts[i+1]})
	}
	p.Closed = true
	return p
}

// groundTerrain is 200×200 with flat ground whose top edge is y=100.
func groundTerrain() *Terrain {
	return NewTerrain(200, 200, []Path{poly(0, 100, 200, 100, 200, 200, 0, 200)}, DefaultConfig())
}

func flatsTerrain(t *testing.T) *Terrain {
	t.Helper()
	m, err := LoadMap("flats")
	if err != nil {
		t.Fatalf("load flats: %v", err)
	}
	tr, err := m.NewTerrain("day", DefaultConfig())
	if err != nil {
		t.Fatalf("flats terrain: %v", err)
	}
	return tr
}

// --- Pixel classes ---

func TestTerrain_OutlineSitsOnTopOfFill(t *testing.T) {
	tr := groundTerrain()

	if tr.Occupied(50, 97) {
		t.Fatal("pixel above the outline should be empty")
	}
	for _, y := range []int{99, 100} {
		if !tr.Standable(50, y) {
			t.Fatalf("row %d should be outline, got %v", y, tr.Surface().At(50, y))
		}
	}
	if !tr.Occupied(50, 120) || tr.Standable(50, 120) {
		t.Fatalf("row 120 should be fill, got %v", tr.Surface().At(50, 120))
	}
	if c := tr.Surface().At(50, 120); c != TerrainFill {
		t.Fatalf("fill color = %v, want %v", c, TerrainFill)
	}
}

func TestTerrain_OutOfRangeReadsAreEmpty(t *testing.T) {
	tr := groundTerrain()
	for _, p := range [][2]int{{-1, 150}, {200, 150}, {50, -5}, {50, 200}} {
		if tr.Occupied(p[0], p[1]) {
			t.Fatalf("(%d,%d) outside the raster reported occupied", p[0], p[1])
		}
	}
}

// --- Footing queries ---

func TestTerrain_ColumnTop(t *testing.T) {
	tr := groundTerrain()
	for _, from := range []float64{150, 99, 20} {
		top, ok := tr.ColumnTop(50, from, 100)
		if !ok || top != 99 {
			t.Fatalf("from row %v: top = %v ok=%v, want 99", from, top, ok)
		}
	}
	if _, ok := tr.ColumnTop(50, 20, 10); ok {
		t.Fatal("descent past the reach should fail")
	}
	if top, _ := tr.ColumnTop(50, 150, 10); top != 140 {
		t.Fatalf("climb capped at reach = %v, want 140", top)
	}
	if _, ok := tr.ColumnTop(-1, 150, 100); ok {
		t.Fatal("column outside the raster should fail")
	}
}

func TestTerrain_FirstSurfaceBelow(t *testing.T) {
	tr := groundTerrain()

	p, ok := tr.FirstSurfaceBelow(50.7, 0)
	if !ok {
		t.Fatal("expected ground below x=50")
	}
	if p != (Point{X: 50, Y: 99}) {
		t.Fatalf("ground = %s, want (50,99)", p)
	}
	if _, ok := tr.FirstSurfaceBelow(-3, 0); ok {
		t.Fatal("column left of the map should have no surface")
	}
	if _, ok := tr.FirstSurfaceBelow(250, 0); ok {
		t.Fatal("column right of the map should have no surface")
	}
}

func TestTerrain_ContactPointsOnFlatGround(t *testing.T) {
	tr := groundTerrain()

	left, right, err := tr.ContactPoints(Point{X: 100, Y: 99}, 30)
	if err != nil {
		t.Fatalf("contact points: %v", err)
	}
	if left != (Point{X: 86, Y: 100}) || right != (Point{X: 115, Y: 100}) {
		t.Fatalf("contacts = %s %s, want (86,100) (115,100)", left, right)
	}
	if a := AngleBetween(left, right, 200); a != 0 {
		t.Fatalf("flat stand angle = %v, want 0", a)
	}
}

func TestTerrain_ContactPointsInTheAir(t *testing.T) {
	tr := groundTerrain()
	_, _, err := tr.ContactPoints(Point{X: 100, Y: 20}, 30)
	if !errors.Is(err, ErrUnresolvablePosition) {
		t.Fatalf("err = %v, want ErrUnresolvablePosition", err)
	}
}

func TestTerrain_SurfacePointsSkipBuriedColumns(t *testing.T) {
	tr := groundTerrain()
	// Box centred well inside the fill: every column starts on fill.
	if pts := tr.SurfacePoints(Point{X: 100, Y: 150}, 30); len(pts) != 0 {
		t.Fatalf("buried box recorded %d points", len(pts))
	}
}

func TestAngleBetween_Floors(t *testing.T) {
	up := AngleBetween(Point{X: 0, Y: 100}, Point{X: 10, Y: 95}, 200)
	if up != 26 {
		t.Fatalf("rising slope = %v, want 26", up)
	}
	down := AngleBetween(Point{X: 0, Y: 95}, Point{X: 10, Y: 100}, 200)
	if down != -27 {
		t.Fatalf("falling slope = %v, want -27 (floored)", down)
	}
}

func TestPointOutOfMap_NoUpperLimit(t *testing.T) {
	if PointOutOfMap(Point{X: 50, Y: -10000}, 200, 200, 100) {
		t.Fatal("points above the map must stay in play")
	}
	for _, p := range []Point{{X: -101, Y: 0}, {X: 301, Y: 0}, {X: 50, Y: 301}} {
		if !PointOutOfMap(p, 200, 200, 100) {
			t.Fatalf("%s should be beyond the boundary", p)
		}
	}
	if PointOutOfMap(Point{X: -100, Y: 300}, 200, 200, 100) {
		t.Fatal("the boundary itself is still inside")
	}
}

// --- Craters ---

func TestTerrain_CraterRemovesAndRims(t *testing.T) {
	tr := groundTerrain()
	before := tr.OccupiedCount()
	v := tr.Version()

	tr.ApplyCrater(Point{X: 100, Y: 100}, 30)

	if tr.OccupiedCount() >= before {
		t.Fatalf("crater did not remove terrain: %d -> %d", before, tr.OccupiedCount())
	}
	if tr.Version() == v {
		t.Fatal("version should change on mutation")
	}
	if tr.Occupied(100, 110) {
		t.Fatal("crater interior should be empty")
	}
	// The rim below the centre becomes standable again.
	p, ok := tr.FirstSurfaceBelow(100, 100)
	if !ok || p.Y < 128 || p.Y > 131 {
		t.Fatalf("rim below crater = %s ok=%v, want y≈129", p, ok)
	}
	if got := tr.Impacts(); len(got) != 1 || got[0].Radius != 30 {
		t.Fatalf("impact log = %+v", got)
	}
}

func TestTerrain_CraterInTheSkyChangesNothing(t *testing.T) {
	tr := groundTerrain()
	sum := tr.Checksum()
	tr.ApplyCrater(Point{X: 100, Y: 20}, 15)
	if tr.Checksum() != sum {
		t.Fatal("a crater with no terrain under it must not add pixels")
	}
}

func TestTerrain_CratersNeverAddTerrain(t *testing.T) {
	tr := flatsTerrain(t)
	prev := tr.OccupiedCount()
	for i, c := range []Point{{X: 300, Y: 600}, {X: 320, Y: 630}, {X: 900, Y: 598}, {X: 310, Y: 660}, {X: 0, Y: 700}} {
		tr.ApplyCrater(c, 50)
		n := tr.OccupiedCount()
		if n > prev {
			t.Fatalf("crater %d at %s grew the terrain: %d -> %d", i, c, prev, n)
		}
		prev = n
	}
}

func TestTerrain_RebuildMatchesIncremental(t *testing.T) {
	live := flatsTerrain(t)
	for _, c := range []Point{{X: 400, Y: 600}, {X: 430, Y: 640}, {X: 1000, Y: 610}} {
		live.ApplyCrater(c, 50)
	}

	replayed := flatsTerrain(t)
	replayed.ApplyCrater(Point{X: 10, Y: 10}, 5) // local history that must be discarded
	replayed.Rebuild(live.Impacts())

	if live.Checksum() != replayed.Checksum() {
		t.Fatal("replaying the impact log must reproduce the raster")
	}
	if len(replayed.Impacts()) != 3 {
		t.Fatalf("impacts after rebuild = %d, want 3", len(replayed.Impacts()))
	}
}

func TestTerrain_RebuildFollowsLogOrder(t *testing.T) {
	a := groundTerrain()
	a.ApplyCrater(Point{X: 100, Y: 100}, 30)
	a.ApplyCrater(Point{X: 120, Y: 110}, 20)

	c := groundTerrain()
	c.Rebuild(a.Impacts())
	if c.Checksum() != a.Checksum() {
		t.Fatal("rebuild must follow log order")
	}
	if got := c.Impacts(); got[0].Center != (Point{X: 100, Y: 100}) {
		t.Fatalf("first impact = %+v", got[0])
	}
}

func TestTerrain_CloneIsIndependent(t *testing.T) {
	tr := groundTerrain()
	cp := tr.Clone()
	cp.ApplyCrater(Point{X: 100, Y: 100}, 30)

	if tr.Checksum() == cp.Checksum() {
		t.Fatal("clone shares pixels with the original")
	}
	if len(tr.Impacts()) != 0 {
		t.Fatal("clone shares the impact log with the original")
	}
}
