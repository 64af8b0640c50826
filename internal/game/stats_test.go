package game

import (
	"math"
	"strings"
	"testing"
)

// --- PlayerStats ---

func TestAccuracy_NoShots(t *testing.T) {
	if a := (PlayerStats{}).Accuracy(); a != 0 {
		t.Fatalf("expected 0 with no shots, got %.2f", a)
	}
}

func TestAccuracy_Ratio(t *testing.T) {
	s := PlayerStats{Shots: 4, Hits: 1}
	if math.Abs(s.Accuracy()-0.25) > 1e-9 {
		t.Fatalf("expected 0.25, got %.4f", s.Accuracy())
	}
}

// --- MatchStats ---

func TestRecordLaunch_CountsBombs(t *testing.T) {
	m := NewMatchStats()
	m.RecordLaunch(&Volley{OwnerID: "p1", Bombs: []*Bomb{{}, {}, {}}})
	if m.For("p1").Shots != 3 {
		t.Fatalf("shots = %d, want 3", m.For("p1").Shots)
	}
}

func TestRecordLanding_HitsAndSelfHits(t *testing.T) {
	m := NewMatchStats()
	b := &Bomb{OwnerID: "p1"}
	m.RecordLanding(b, []Hit{
		{EntityID: "p1", Damage: 25},
		{EntityID: "p2", Damage: 25},
	})
	p1, p2 := m.For("p1"), m.For("p2")
	if p1.Hits != 1 || p1.SelfHits != 1 {
		t.Fatalf("p1 hits=%d self=%d", p1.Hits, p1.SelfHits)
	}
	if p1.DamageDealt != 25 || p1.DamageTaken != 25 || p2.DamageTaken != 25 {
		t.Fatalf("dealt=%v taken=%v/%v", p1.DamageDealt, p1.DamageTaken, p2.DamageTaken)
	}

	m.RecordLanding(b, []Hit{{EntityID: "p1", Damage: 25}})
	if p1.Hits != 1 {
		t.Fatal("a self-only blast is not a hit")
	}
}

func TestRecordLanding_OutOfBounds(t *testing.T) {
	m := NewMatchStats()
	m.RecordLanding(&Bomb{OwnerID: "p1", OutOfBounds: true}, nil)
	if m.For("p1").OutOfBounds != 1 || m.For("p1").Hits != 0 {
		t.Fatalf("stats = %+v", *m.For("p1"))
	}
}

func TestMatchStats_FormatSorted(t *testing.T) {
	m := NewMatchStats()
	m.For("zed").Turns = 2
	m.For("amy").Turns = 1
	out := m.Format(nil)
	if !strings.HasPrefix(out, "entity") {
		t.Fatalf("missing header:\n%s", out)
	}
	if strings.Index(out, "amy") > strings.Index(out, "zed") {
		t.Fatalf("rows not sorted:\n%s", out)
	}
	if only := m.Format([]string{"zed"}); strings.Contains(only, "amy") {
		t.Fatalf("explicit ids ignored:\n%s", only)
	}
}

// --- MatchReporter ---

func TestMatchReporter_CollectsTurns(t *testing.T) {
	tr := flatsTerrain(t)
	p := NewPlayer("p1", "Pat", Right, 100, DefaultWeapon())
	_ = p.Settle(tr, Point{X: 200, Y: 100}, DefaultConfig())
	r := NewRoster(p)
	rep := NewMatchReporter()

	if rep.Latest() != nil || rep.FormatLatest() != "No data.\n" {
		t.Fatal("fresh reporter should be empty")
	}
	rep.Collect(100, "p1", tr, r)
	tr.ApplyCrater(Point{X: 600, Y: 600}, 50)
	p.Health = 0
	rep.Collect(200, "p1", tr, r)

	if len(rep.History()) != 2 {
		t.Fatalf("history = %d", len(rep.History()))
	}
	last := rep.Latest()
	if last.Turn != 2 || last.Impacts != 1 || last.Checksum != tr.Checksum() {
		t.Fatalf("latest = %+v", *last)
	}
	if rep.History()[0].OccupiedCount <= last.OccupiedCount {
		t.Fatal("occupied count should drop after a crater")
	}
	out := rep.FormatLatest()
	if !strings.Contains(out, "Turn 2") || !strings.Contains(out, "defeated") {
		t.Fatalf("format:\n%s", out)
	}
}

// --- MatchLog and Feed ---

func TestMatchLog_FilterAndTail(t *testing.T) {
	ml := NewMatchLog(false)
	ml.Add(1, 10, "p1", "fire", "request", "aim=30", 30)
	ml.Add(2, 20, "", "turn", "advance", "p2", 2)
	ml.AddVerbose(3, 30, "p1", "net", "send", "entity-fire", 0)
	ml.Add(4, 40, "p1", "fire", "request", "aim=40", 40)

	if n := len(ml.Entries()); n != 3 {
		t.Fatalf("entries = %d, verbose entry should be skipped", n)
	}
	if ml.CountCategory("fire", "request") != 2 {
		t.Fatal("filter by category and key")
	}
	if e, ok := ml.LastOf("fire", "request"); !ok || e.NumVal != 40 {
		t.Fatalf("last = %+v", e)
	}
	if got := ml.FilterEntity("--"); len(got) != 1 {
		t.Fatalf("match-wide entries = %d", len(got))
	}
	if !ml.HasEntry("turn", "", "p2") || ml.HasEntry("turn", "", "p9") {
		t.Fatal("HasEntry substring match")
	}
	if tail := ml.FormatTail(1); strings.Count(tail, "\n") != 1 || !strings.Contains(tail, "aim=40") {
		t.Fatalf("tail:\n%s", tail)
	}
}

func TestFeed_RingBuffer(t *testing.T) {
	f := NewFeed()
	for i := 0; i < feedMaxEntries+5; i++ {
		f.Add(int64(i), "x", ToneInfo, "m")
	}
	got := f.Recent()
	if len(got) != feedMaxEntries {
		t.Fatalf("entries = %d", len(got))
	}
	if got[0].AtMs != 5 || got[len(got)-1].AtMs != int64(feedMaxEntries+4) {
		t.Fatalf("oldest=%d newest=%d", got[0].AtMs, got[len(got)-1].AtMs)
	}
}
