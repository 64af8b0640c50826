package game

import (
	"errors"
	"testing"
)

// dumpLog prints every peer's MatchLog to t.Log so it appears in `go test -v` output.
func dumpLog(t *testing.T, td *TestDuel) {
	t.Helper()
	for _, p := range td.Peers {
		t.Logf("--- peer %s (latency %dms) ---", p.ID, p.LatencyMs)
		entries := p.Journal.Entries()
		if len(entries) == 0 {
			t.Log("(no log entries)")
			continue
		}
		for _, e := range entries {
			t.Log(e.String())
		}
	}
}

// dumpSummary prints the per-peer terrain digest and stats table.
func dumpSummary(t *testing.T, td *TestDuel) {
	t.Helper()
	for _, p := range td.Peers {
		m := p.Match
		t.Logf("peer %s: active=%s impacts=%d checksum=%016x", p.ID, m.Roster().ActiveID, len(m.Terrain().Impacts()), m.Terrain().Checksum())
	}
	t.Log(td.Peers[0].Match.Stats().Format(nil))
	t.Log(td.Peers[0].Match.Reporter().FormatLatest())
}

func newDuel(t *testing.T, opts ...DuelOption) *TestDuel {
	t.Helper()
	td, err := NewTestDuel(opts...)
	if err != nil {
		t.Fatalf("new duel: %v", err)
	}
	return td
}

// aimAndFire sets the client's aim and power on peer id and fires.
func aimAndFire(t *testing.T, td *TestDuel, id string, aim float64, power int) {
	t.Helper()
	m := td.Peer(id).Match
	p := m.Roster().Client()
	if err := m.AdjustAim(aim - p.WeaponAngle); err != nil {
		t.Fatalf("aim: %v", err)
	}
	for p.FiringPower < power {
		if err := m.ChargePower(); err != nil {
			t.Fatalf("charge: %v", err)
		}
	}
	if err := m.RequestFire(); err != nil {
		t.Fatalf("fire: %v", err)
	}
}

// turnPassedTo waits until every peer agrees id holds the turn and nothing
// is in flight.
func turnPassedTo(id string) func(*TestDuel) bool {
	return func(td *TestDuel) bool {
		if !td.Quiet() {
			return false
		}
		for _, p := range td.Peers {
			if p.Match.Roster().ActiveID != id {
				return false
			}
		}
		return true
	}
}

func sentKinds(p *DuelPeer) []EventKind {
	out := make([]EventKind, len(p.Sent))
	for i, ev := range p.Sent {
		out[i] = ev.Kind
	}
	return out
}

func countSent(p *DuelPeer, kind EventKind) int {
	n := 0
	for _, ev := range p.Sent {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// --- Scenario: Single Shot ---

func TestScenario_SingleShotTurnFlow(t *testing.T) {
	t.Log("=== TestScenario_SingleShotTurnFlow ===")
	t.Log("--- Setup: flats, p1 fires 45°/50 at open ground ---")

	td := newDuel(t)
	p1 := td.Peer("p1")
	aimAndFire(t, td, "p1", 45, 50)

	if err := p1.Match.RequestFire(); !errors.Is(err, ErrOperationPending) {
		t.Fatalf("second fire err = %v, want ErrOperationPending", err)
	}
	if err := p1.Match.AdjustAim(1); !errors.Is(err, ErrOperationPending) {
		t.Fatalf("aim during fire err = %v, want ErrOperationPending", err)
	}

	at := td.RunUntil(turnPassedTo("p2"), 20_000)
	dumpLog(t, td)
	dumpSummary(t, td)
	if at < 0 {
		t.Fatal("turn never passed to p2")
	}

	if !td.Converged() {
		t.Fatal("peers diverged")
	}
	for _, p := range td.Peers {
		m := p.Match
		if n := len(m.Terrain().Impacts()); n != 1 {
			t.Fatalf("peer %s impacts = %d, want 1", p.ID, n)
		}
		shooter, _ := m.Roster().Find("p1")
		if shooter.FiringPower != 0 || shooter.RemainingFires != 0 {
			t.Fatalf("peer %s: shooter power=%d fires=%d after the volley", p.ID, shooter.FiringPower, shooter.RemainingFires)
		}
		next := m.Roster().Active()
		if next.RemainingFires != 1 || next.Trident || !next.OperationDone {
			t.Fatalf("peer %s: new turn owner not reset: %+v", p.ID, next)
		}
		if rpt := m.Reporter().Latest(); rpt == nil || rpt.ActiveID != "p2" || rpt.Impacts != 1 {
			t.Fatalf("peer %s turn report = %+v", p.ID, rpt)
		}
	}

	want := []EventKind{KindEntityFire, KindVolleySync, KindCollisionReport, KindTurnAdvance}
	got := sentKinds(p1)
	if len(got) != len(want) {
		t.Fatalf("p1 sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("p1 sent %v, want %v", got, want)
		}
	}
	if n := len(td.Peer("p2").Sent); n != 0 {
		t.Fatalf("p2 sent %d events, want none", n)
	}
	if s := p1.Match.Stats().For("p1"); s.Shots != 1 || s.Turns != 1 {
		t.Fatalf("p1 stats = %+v", *s)
	}
}

// --- Scenario: Trident under clock skew ---

func TestScenario_TridentWithClockSkew(t *testing.T) {
	t.Log("=== TestScenario_TridentWithClockSkew ===")
	t.Log("--- Setup: p2's peer hears everything 300ms late ---")

	td := newDuel(t, WithPeer("p1", 0), WithPeer("p2", 300))
	p1, p2 := td.Peer("p1"), td.Peer("p2")

	if err := p1.Match.RequestSkill(SkillTrident); err != nil {
		t.Fatalf("skill: %v", err)
	}
	td.RunFor(50)
	if c := p1.Match.Roster().Client(); !c.Trident {
		t.Fatal("trident echo not applied on the owner's peer")
	}
	aimAndFire(t, td, "p1", 45, 50)

	// Somewhere in the replay the lagging peer must be behind.
	sawSkew := false
	at := td.RunUntil(func(td *TestDuel) bool {
		if len(p1.Match.Terrain().Impacts()) != len(p2.Match.Terrain().Impacts()) {
			sawSkew = true
		}
		return turnPassedTo("p2")(td)
	}, 30_000)
	dumpLog(t, td)
	dumpSummary(t, td)
	if at < 0 {
		t.Fatal("turn never passed to p2")
	}
	if !sawSkew {
		t.Fatal("the lagging peer never fell behind; skew not modelled")
	}

	sums := td.Checksums()
	if sums[0] != sums[1] {
		t.Fatalf("checksums differ: %016x vs %016x", sums[0], sums[1])
	}
	for _, p := range td.Peers {
		if n := len(p.Match.Terrain().Impacts()); n != 3 {
			t.Fatalf("peer %s impacts = %d, want 3", p.ID, n)
		}
		if n := p.Journal.CountCategory("desync", ""); n != 0 {
			t.Fatalf("peer %s logged %d desync entries", p.ID, n)
		}
		if n := countSent(p, KindResyncRequest); n != 0 {
			t.Fatalf("peer %s asked for a resync", p.ID)
		}
	}
	if s := p2.Match.Stats().For("p1"); s.Shots != 3 {
		t.Fatalf("p2 counted %d shots, want 3", s.Shots)
	}
}

// --- Scenario: turn-advance overtakes a lagging replay ---

func TestScenario_TurnAdvanceLandsRemainingBombs(t *testing.T) {
	t.Log("=== TestScenario_TurnAdvanceLandsRemainingBombs ===")

	td := newDuel(t)
	p1, p2 := td.Peer("p1"), td.Peer("p2")
	if err := p1.Match.RequestSkill(SkillTrident); err != nil {
		t.Fatalf("skill: %v", err)
	}
	td.RunFor(50)
	aimAndFire(t, td, "p1", 45, 50)
	if td.RunUntil(func(*TestDuel) bool { return p2.Match.Volley() != nil }, 1000) < 0 {
		t.Fatal("volley never reached p2")
	}

	if err := p2.Match.HandleEvent(Event{Kind: KindTurnAdvance, ActiveID: "p2"}); err != nil {
		t.Fatalf("turn-advance: %v", err)
	}
	if p2.Match.Volley() != nil {
		t.Fatal("volley still in flight after turn-advance")
	}
	if n := len(p2.Match.Terrain().Impacts()); n != 3 {
		t.Fatalf("impacts = %d, want all 3 landed", n)
	}
	if p2.Match.Roster().ActiveID != "p2" {
		t.Fatal("turn did not advance")
	}

	if td.RunUntil(turnPassedTo("p2"), 20_000) < 0 {
		dumpLog(t, td)
		t.Fatal("owner never finished its turn")
	}
	if !td.Converged() {
		dumpSummary(t, td)
		t.Fatal("peers diverged after the early turn-advance")
	}
}

// --- Scenario: Extra shot ---

func TestScenario_ExtraShotFiresTwice(t *testing.T) {
	t.Log("=== TestScenario_ExtraShotFiresTwice ===")

	td := newDuel(t)
	p1 := td.Peer("p1")
	if err := p1.Match.RequestSkill(SkillExtraShot); err != nil {
		t.Fatalf("skill: %v", err)
	}
	td.RunFor(50)
	if f := p1.Match.Roster().Client().RemainingFires; f != 2 {
		t.Fatalf("fires = %d after +1, want 2", f)
	}
	aimAndFire(t, td, "p1", 40, 45)

	if td.RunUntil(turnPassedTo("p2"), 30_000) < 0 {
		dumpLog(t, td)
		t.Fatal("turn never passed to p2")
	}
	dumpSummary(t, td)

	if n := countSent(p1, KindEntityFire); n != 2 {
		t.Fatalf("entity-fire sent %d times, want 2", n)
	}
	if n := countSent(p1, KindTurnAdvance); n != 1 {
		t.Fatalf("turn-advance sent %d times, want 1", n)
	}
	for _, p := range td.Peers {
		if n := p.Journal.CountCategory("volley", "launch"); n != 2 {
			t.Fatalf("peer %s saw %d launches, want 2", p.ID, n)
		}
		if n := len(p.Match.Terrain().Impacts()); n != 2 {
			t.Fatalf("peer %s impacts = %d", p.ID, n)
		}
	}

	// The second volley waits the shot interval after the first one lands.
	launches := p1.Journal.Filter("volley", "launch")
	craters := p1.Journal.Filter("impact", "crater")
	if gap := launches[1].AtMs - craters[0].AtMs; gap < td.Config.ShotIntervalMs {
		t.Fatalf("re-shot after %dms, want at least %dms", gap, td.Config.ShotIntervalMs)
	}
	if !td.Converged() {
		t.Fatal("peers diverged")
	}
}

// --- Scenario: Movement ---

func TestScenario_MoveEchoAppliesOnEveryPeer(t *testing.T) {
	t.Log("=== TestScenario_MoveEchoAppliesOnEveryPeer ===")

	td := newDuel(t)
	p1, p2 := td.Peer("p1"), td.Peer("p2")

	if err := p1.Match.RequestMove(Right); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := p1.Match.RequestMove(Right); !errors.Is(err, ErrOperationPending) {
		t.Fatalf("second move before echo err = %v, want ErrOperationPending", err)
	}
	if err := p2.Match.RequestMove(Left); !errors.Is(err, ErrNotActive) {
		t.Fatalf("off-turn move err = %v, want ErrNotActive", err)
	}

	td.Step()
	for _, p := range td.Peers {
		e, _ := p.Match.Roster().Find("p1")
		if e.Center.X != 215 || e.Motion != MotionMoving {
			t.Fatalf("peer %s: p1 at %s motion %s", p.ID, e.Center, e.Motion)
		}
	}

	td.RunFor(td.Config.MoveDurationMs + td.StepMs)
	if err := p1.Match.RequestMove(Right); err != nil {
		t.Fatalf("move after motion ended: %v", err)
	}
	td.RunFor(200)
	if err := p1.Match.RequestMoveEnd(); err != nil {
		t.Fatalf("move end: %v", err)
	}
	td.RunFor(50)

	if !td.Converged() {
		dumpLog(t, td)
		t.Fatal("peers disagree after walking")
	}
	if s := p2.Match.Stats().For("p1"); s.Moves != 2 {
		t.Fatalf("p2 counted %d moves, want 2", s.Moves)
	}
}

func TestScenario_WalkingOffTheMapEndsMatch(t *testing.T) {
	t.Log("=== TestScenario_WalkingOffTheMapEndsMatch ===")

	cliff := &MapDef{
		ID:   "cliff",
		Size: Size{Width: 1000, Height: 1000},
		Terrain: map[string][][]Point{
			"day": {{{X: 0, Y: 300}, {X: 503, Y: 300}, {X: 503, Y: 1000}, {X: 0, Y: 1000}}},
		},
	}
	td := newDuel(t,
		WithMapDef(cliff),
		WithEntity("p1", Right, &Point{X: 500, Y: 100}),
		WithEntity("p2", Left, &Point{X: 100, Y: 100}),
	)
	if err := td.Peer("p1").Match.RequestMove(Right); err != nil {
		t.Fatalf("move: %v", err)
	}
	td.RunFor(100)
	dumpLog(t, td)

	for _, p := range td.Peers {
		winner, over := p.Match.Over()
		if !over || winner != "p2" {
			t.Fatalf("peer %s: over=%v winner=%q, want p2", p.ID, over, winner)
		}
		e, _ := p.Match.Roster().Find("p1")
		if !e.OutOfMap {
			t.Fatalf("peer %s: p1 still on the map at %s", p.ID, e.Center)
		}
	}
	if n := countSent(td.Peer("p1"), KindEntityFall); n != 1 {
		t.Fatalf("entity-fall sent %d times", n)
	}
	if err := td.Peer("p2").Match.AdjustAim(1); !errors.Is(err, ErrMatchOver) {
		t.Fatalf("input after match over err = %v", err)
	}
}

// --- Scenario: Match over by damage ---

func TestScenario_LastSurvivorWins(t *testing.T) {
	t.Log("=== TestScenario_LastSurvivorWins ===")
	t.Log("--- Setup: p2 stands 30px from p1 with 20hp; p1 drops a shell at its feet ---")

	td := newDuel(t,
		WithEntity("p1", Right, &Point{X: 200, Y: 100}),
		WithEntity("p2", Left, &Point{X: 230, Y: 100}),
	)
	for _, p := range td.Peers {
		e, _ := p.Match.Roster().Find("p2")
		e.Health = 20
	}
	if err := td.Peer("p1").Match.RequestFire(); err != nil {
		t.Fatalf("fire: %v", err)
	}
	td.RunFor(2000)
	dumpLog(t, td)
	dumpSummary(t, td)

	for _, p := range td.Peers {
		winner, over := p.Match.Over()
		if !over || winner != "p1" {
			t.Fatalf("peer %s: over=%v winner=%q, want p1", p.ID, over, winner)
		}
		self, _ := p.Match.Roster().Find("p1")
		if self.Health != 75 {
			t.Fatalf("peer %s: p1 health %v, want 75 after its own blast", p.ID, self.Health)
		}
		if len(p.Match.PendingTimers()) != 0 {
			t.Fatalf("peer %s: timers pending after match over: %v", p.ID, p.Match.PendingTimers())
		}
	}
	if n := countSent(td.Peer("p1"), KindTurnAdvance); n != 0 {
		t.Fatal("turn advanced after the match ended")
	}
	if s := td.Peer("p1").Match.Stats().For("p1"); s.Hits != 1 || s.SelfHits != 1 {
		t.Fatalf("p1 stats = %+v", *s)
	}
	if err := td.Peer("p1").Match.RequestFire(); !errors.Is(err, ErrMatchOver) {
		t.Fatalf("fire after match over err = %v", err)
	}
}

// --- Scenario: Desync recovery ---

func TestScenario_DroppedEventsRequestOneResync(t *testing.T) {
	t.Log("=== TestScenario_DroppedEventsRequestOneResync ===")

	td := newDuel(t)
	p2 := td.Peer("p2")
	td.RunFor(100)

	// Events that do not fit p2's view of the match: p2 does not hold the turn.
	p2.Match.Deliver(Event{Kind: KindEntityFire, EntityID: "p2", Power: 10, Fires: 1})
	p2.Match.Deliver(Event{Kind: KindEntityUsesSkill, EntityID: "p2", Skill: SkillTrident})
	p2.Match.Deliver(Event{Kind: KindEntityMove, EntityID: "ghost", Direction: Left})
	td.Step()

	if n := p2.Journal.CountCategory("desync", ""); n != 4 {
		t.Fatalf("desync entries = %d, want 3 drops and 1 request", n)
	}
	if n := p2.Journal.CountCategory("desync", "resync-request"); n != 1 {
		t.Fatalf("journaled requests = %d, want 1", n)
	}
	if n := countSent(p2, KindResyncRequest); n != 1 {
		t.Fatalf("resync requests = %d, want exactly 1", n)
	}

	td.RunFor(200)
	dumpLog(t, td)
	if !p2.Journal.HasEntry("net", "reconnect-sync", "") {
		t.Fatal("p2 never received the state")
	}
	if n := countSent(td.Peer("p1"), KindReconnectSync); n != 1 {
		t.Fatalf("p1 answered %d times", n)
	}
	if n := countSent(p2, KindResyncRequest); n != 1 {
		t.Fatalf("resync requests = %d after recovery, want 1", n)
	}
	if !td.Converged() {
		t.Fatal("peers diverged after resync")
	}
}

func TestScenario_ChecksumMismatchRebuildsTerrain(t *testing.T) {
	t.Log("=== TestScenario_ChecksumMismatchRebuildsTerrain ===")
	t.Log("--- Setup: p2's raster is corrupted while the shell is in the air ---")

	td := newDuel(t)
	p2 := td.Peer("p2")
	aimAndFire(t, td, "p1", 45, 50)
	if td.RunUntil(func(*TestDuel) bool { return p2.Match.Volley() != nil }, 1000) < 0 {
		t.Fatal("volley never reached p2")
	}
	pix := p2.Match.Terrain().Surface().Pix()
	pix[3] = 255 // top-left pixel, far from every track

	if td.RunUntil(turnPassedTo("p2"), 20_000) < 0 {
		dumpLog(t, td)
		t.Fatal("turn never passed to p2")
	}
	td.RunFor(200)
	dumpLog(t, td)

	if !p2.Journal.HasEntry("desync", string(KindCollisionReport), "checksum") {
		t.Fatal("mismatch not detected")
	}
	if n := countSent(p2, KindResyncRequest); n != 1 {
		t.Fatalf("resync requests = %d, want 1", n)
	}
	if pix[3] != 0 {
		t.Fatal("corrupted pixel survived the rebuild")
	}
	if !td.Converged() {
		t.Fatal("peers diverged after the rebuild")
	}
}

// --- Scenario: Disconnect and reconnect ---

func TestScenario_DisconnectAndReconnect(t *testing.T) {
	t.Log("=== TestScenario_DisconnectAndReconnect ===")

	td := newDuel(t)
	p1, p2 := td.Peer("p1"), td.Peer("p2")

	td.Disconnect("p2")
	if !p2.Match.Disconnected() {
		t.Fatal("p2 should be disconnected")
	}
	if err := p2.Match.AdjustAim(1); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("input while disconnected err = %v", err)
	}

	aimAndFire(t, td, "p1", 45, 50)
	if td.RunUntil(func(*TestDuel) bool {
		return p1.Match.Roster().ActiveID == "p2" && !p1.Match.Busy()
	}, 20_000) < 0 {
		dumpLog(t, td)
		t.Fatal("p1 never passed the turn")
	}
	if td.Converged() {
		t.Fatal("a disconnected peer cannot have seen the crater")
	}

	if err := td.Reconnect("p2"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if td.RunUntil(func(td *TestDuel) bool { return !p2.Match.Disconnected() && td.Converged() }, 2000) < 0 {
		dumpLog(t, td)
		t.Fatal("p2 never recovered the match state")
	}
	if n := len(p2.Match.Terrain().Impacts()); n != 1 {
		t.Fatalf("p2 impacts = %d, want 1", n)
	}
	if err := p2.Match.AdjustAim(1); err != nil {
		t.Fatalf("p2 should hold the turn after reconnecting: %v", err)
	}
}
