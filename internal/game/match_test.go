package game

import (
	"errors"
	"strings"
	"testing"
)

func flatsSession(t *testing.T, client string, out Outbox) Session {
	t.Helper()
	m, err := LoadMap("flats")
	if err != nil {
		t.Fatalf("load flats: %v", err)
	}
	return Session{Config: DefaultConfig(), Map: m, ClientID: client, Outbox: out}
}

var duelists = []EntityInit{
	{ID: "p1", Direction: Right},
	{ID: "p2", Direction: Left},
}

// --- Construction ---

func TestNewMatch_Rejects(t *testing.T) {
	var lb Loopback
	cases := map[string]struct {
		mutate   func(*Session)
		entities []EntityInit
		want     string
	}{
		"no map":         {func(s *Session) { s.Map = nil }, duelists, "no map"},
		"no outbox":      {func(s *Session) { s.Outbox = nil }, duelists, "no outbox"},
		"no entities":    {func(*Session) {}, nil, "no entities"},
		"duplicate":      {func(*Session) {}, []EntityInit{{ID: "p1"}, {ID: "p1"}}, "duplicate"},
		"unknown client": {func(s *Session) { s.ClientID = "p9" }, duelists, "client"},
		"bad variant":    {func(s *Session) { s.Variant = "storm" }, duelists, "storm"},
	}
	for name, tc := range cases {
		s := flatsSession(t, "p1", &lb)
		tc.mutate(&s)
		_, err := NewMatch(s, tc.entities, Hooks{})
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want mention of %q", name, err, tc.want)
		}
	}
}

func TestNewMatch_SettlesAndStarts(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p2", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	if m.Roster().ActiveID != "p1" || m.Roster().ClientID != "p2" {
		t.Fatalf("active=%q client=%q", m.Roster().ActiveID, m.Roster().ClientID)
	}
	if m.Variant() != "day" {
		t.Fatalf("variant = %q, want the first one", m.Variant())
	}
	for _, p := range m.Roster().All() {
		if p.OutOfMap || p.StandAngle != 0 || p.Center.Y != 599 {
			t.Fatalf("%s not settled on the flats: %s angle %v", p.ID, p.Center, p.StandAngle)
		}
	}
	if m.Busy() {
		t.Fatal("fresh match should be idle")
	}
	if _, over := m.Over(); over {
		t.Fatal("fresh match is not over")
	}
}

// --- Input gating ---

func TestMatch_OffTurnInput(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p2", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	inputs := map[string]func() error{
		"move":   func() error { return m.RequestMove(Right) },
		"aim":    func() error { return m.AdjustAim(5) },
		"charge": m.ChargePower,
		"fire":   m.RequestFire,
		"skill":  func() error { return m.RequestSkill(SkillTrident) },
	}
	for name, in := range inputs {
		if err := in(); !errors.Is(err, ErrNotActive) {
			t.Errorf("%s: err = %v, want ErrNotActive", name, err)
		}
	}
	if q := lb.Drain(); len(q) != 0 {
		t.Fatalf("off-turn input sent %d events", len(q))
	}
}

func TestMatch_SpectatorHasNoInput(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	if err := m.RequestFire(); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("spectator fire err = %v", err)
	}
}

func TestMatch_UnknownSkill(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p1", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	if err := m.RequestSkill("IV"); !errors.Is(err, ErrUnknownSkill) {
		t.Fatalf("err = %v", err)
	}
	if err := m.RequestMove(Direction("up")); err == nil {
		t.Fatal("invalid direction accepted")
	}
}

// --- Inbound validation ---

func TestMatch_HandleEventDrops(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p2", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	bad := []Event{
		{Kind: "teleport", EntityID: "p1"},
		{Kind: KindVolleySync, EntityID: "p1"},
		{Kind: KindVolleySync, EntityID: "p2", Volley: &Volley{OwnerID: "p2", Bombs: []*Bomb{{}}}},
		{Kind: KindTurnAdvance, ActiveID: "nobody"},
		{Kind: KindEntityUsesSkill, EntityID: "p1", Skill: "IV"},
		{Kind: KindCollisionReport, EntityID: "p1"},
		{Kind: KindReconnectSync},
	}
	for _, ev := range bad {
		if err := m.HandleEvent(ev); err == nil {
			t.Errorf("%s accepted: %+v", ev.Kind, ev)
		}
	}
	if m.Roster().ActiveID != "p1" || m.Volley() != nil {
		t.Fatal("rejected events changed the match")
	}
}

func TestMatch_SkillEchoAppliesToOwner(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p1", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	if err := m.RequestSkill(SkillExtraShot); err != nil {
		t.Fatalf("skill: %v", err)
	}
	for _, ev := range lb.Drain() {
		if err := m.HandleEvent(ev); err != nil {
			t.Fatalf("echo: %v", err)
		}
	}
	p := m.Roster().Active()
	if p.RemainingFires != 2 || m.Stats().For("p1").SkillsUsed != 1 {
		t.Fatalf("fires=%d skills=%d", p.RemainingFires, m.Stats().For("p1").SkillsUsed)
	}
}

func TestMatch_ResponderFor(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p1", &lb), []EntityInit{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	if got := m.responderFor("p3"); got != "p1" {
		t.Fatalf("responder for p3 = %q, want the turn owner", got)
	}
	if got := m.responderFor("p1"); got != "p2" {
		t.Fatalf("responder for the owner = %q, want p2", got)
	}
}

func TestMatch_DisconnectRejectsEverythingButSync(t *testing.T) {
	var lb Loopback
	m, err := NewMatch(flatsSession(t, "p2", &lb), duelists, Hooks{})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	sync := m.SyncEvent()
	m.Disconnect()
	if err := m.HandleEvent(Event{Kind: KindTurnAdvance, ActiveID: "p2"}); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("err = %v", err)
	}
	if err := m.Reconnect(); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if q := lb.Drain(); len(q) != 1 || q[0].Kind != KindResyncRequest || q[0].Reason != "reconnect" {
		t.Fatalf("reconnect sent %+v", q)
	}
	sync.EntityID = "p2"
	if err := m.HandleEvent(sync); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if m.Disconnected() {
		t.Fatal("still disconnected after reconnect-sync")
	}
}
