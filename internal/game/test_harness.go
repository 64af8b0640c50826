package game

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// TestDuel is a headless multi-peer harness used by tests and the volley
// report. Every peer runs its own Match; events travel over an in-memory bus
// that delays delivery per receiving peer, which is how clock skew between
// peers is modelled.
type TestDuel struct {
	Map     *MapDef
	Variant string
	Config  Config
	Peers   []*DuelPeer
	NowMs   int64
	StepMs  int64

	entities []EntityInit
	peerOpts []peerSpec
	seed     int64
	verbose  bool
	logger   *slog.Logger

	bus     []inflight
	nextSeq int
}

// DuelPeer is one participant of a TestDuel.
type DuelPeer struct {
	ID        string // entity controlled from this peer
	LatencyMs int64  // delay added to everything this peer receives
	Match     *Match
	Journal   *MatchLog
	Sent      []Event

	duel   *TestDuel
	index  int
	linkUp bool
}

type peerSpec struct {
	id        string
	latencyMs int64
}

type inflight struct {
	to    int
	dueMs int64
	seq   int
	ev    Event
}

// duelOptionKind controls the pass in which an option is applied.
type duelOptionKind int

const (
	duelOptInfra  duelOptionKind = iota // map, config, seed, verbose, frame step
	duelOptEntity                       // roster slots, after the map is known
	duelOptPeer                         // peers, after the roster exists
)

// DuelOption is a builder function applied to a TestDuel during construction.
type DuelOption struct {
	kind duelOptionKind
	fn   func(*TestDuel) error
}

// WithMap loads an embedded map by id.
func WithMap(id string) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		m, err := LoadMap(id)
		if err != nil {
			return err
		}
		td.Map = m
		return nil
	}}
}

// WithMapDef uses a map built by the caller.
func WithMapDef(m *MapDef) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		td.Map = m
		return nil
	}}
}

// WithVariant picks the terrain variant.
func WithVariant(v string) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		td.Variant = v
		return nil
	}}
}

// WithConfig applies configuration options on top of DefaultConfig.
func WithConfig(opts ...Option) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		for _, o := range opts {
			o(&td.Config)
		}
		return nil
	}}
}

// WithSeed sets the particle seed of every peer.
func WithSeed(seed int64) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		td.seed = seed
		return nil
	}}
}

// WithVerbose records per-event network entries in every journal.
func WithVerbose(v bool) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		td.verbose = v
		return nil
	}}
}

// WithLogger routes operational logs of every peer to l.
func WithLogger(l *slog.Logger) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		td.logger = l
		return nil
	}}
}

// WithFrameStep sets the simulated frame length.
func WithFrameStep(ms int64) DuelOption {
	return DuelOption{duelOptInfra, func(td *TestDuel) error {
		if ms <= 0 {
			return fmt.Errorf("frame step %dms", ms)
		}
		td.StepMs = ms
		return nil
	}}
}

// WithEntity adds a roster slot. A nil spawn uses the map spawn point.
func WithEntity(id string, dir Direction, spawn *Point) DuelOption {
	return DuelOption{duelOptEntity, func(td *TestDuel) error {
		td.entities = append(td.entities, EntityInit{ID: id, Name: id, Direction: dir, Spawn: spawn})
		return nil
	}}
}

// WithPeer adds a peer controlling entity id whose inbound traffic arrives
// latencyMs late.
func WithPeer(id string, latencyMs int64) DuelOption {
	return DuelOption{duelOptPeer, func(td *TestDuel) error {
		td.peerOpts = append(td.peerOpts, peerSpec{id: id, latencyMs: latencyMs})
		return nil
	}}
}

// NewTestDuel builds the duel in three ordered passes: infrastructure,
// roster, peers. Without entities it seats "p1" and "p2" facing each other;
// without peers every entity gets a peer with no latency.
func NewTestDuel(opts ...DuelOption) (*TestDuel, error) {
	td := &TestDuel{
		Config: DefaultConfig(),
		StepMs: 16,
		seed:   1,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, kind := range []duelOptionKind{duelOptInfra, duelOptEntity, duelOptPeer} {
		for _, o := range opts {
			if o.kind != kind {
				continue
			}
			if err := o.fn(td); err != nil {
				return nil, fmt.Errorf("test duel: %w", err)
			}
		}
	}
	if td.Map == nil {
		m, err := LoadMap("flats")
		if err != nil {
			return nil, fmt.Errorf("test duel: %w", err)
		}
		td.Map = m
	}
	if len(td.entities) == 0 {
		td.entities = []EntityInit{
			{ID: "p1", Name: "p1", Direction: Right},
			{ID: "p2", Name: "p2", Direction: Left},
		}
	}
	if len(td.peerOpts) == 0 {
		for _, e := range td.entities {
			td.peerOpts = append(td.peerOpts, peerSpec{id: e.ID})
		}
	}

	for i, ps := range td.peerOpts {
		peer := &DuelPeer{
			ID:        ps.id,
			LatencyMs: ps.latencyMs,
			Journal:   NewMatchLog(td.verbose),
			duel:      td,
			index:     i,
			linkUp:    true,
		}
		m, err := NewMatch(Session{
			Config:   td.Config,
			Map:      td.Map,
			Variant:  td.Variant,
			ClientID: ps.id,
			Outbox:   peer,
			Logger:   td.logger.With("peer", ps.id),
			Journal:  peer.Journal,
			Seed:     td.seed + int64(i),
		}, td.entities, Hooks{})
		if err != nil {
			return nil, fmt.Errorf("test duel: peer %s: %w", ps.id, err)
		}
		peer.Match = m
		td.Peers = append(td.Peers, peer)
	}
	return td, nil
}

// Send implements Outbox: the event is broadcast to every connected peer,
// the sender included, as an independent copy.
func (p *DuelPeer) Send(ev Event) error {
	if !p.linkUp {
		return fmt.Errorf("peer %s: %w", p.ID, ErrDisconnected)
	}
	p.Sent = append(p.Sent, ev)
	td := p.duel
	for _, to := range td.Peers {
		if !to.linkUp {
			continue
		}
		cp, err := copyEvent(ev)
		if err != nil {
			return fmt.Errorf("peer %s: %w", p.ID, err)
		}
		td.nextSeq++
		td.bus = append(td.bus, inflight{to: to.index, dueMs: td.NowMs + to.LatencyMs, seq: td.nextSeq, ev: cp})
	}
	return nil
}

// copyEvent round-trips ev through the wire encoding so peers never share
// volley or roster pointers.
func copyEvent(ev Event) (Event, error) {
	data, err := msgpack.Marshal(&ev)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", ev.Kind, err)
	}
	var out Event
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", ev.Kind, err)
	}
	return out, nil
}

// Peer returns the peer controlling id, or nil.
func (td *TestDuel) Peer(id string) *DuelPeer {
	for _, p := range td.Peers {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Step advances every peer by one frame: due events are delivered, then
// each match ticks.
func (td *TestDuel) Step() {
	td.NowMs += td.StepMs
	var due []inflight
	td.bus = slices.DeleteFunc(td.bus, func(f inflight) bool {
		if f.dueMs <= td.NowMs {
			due = append(due, f)
			return true
		}
		return false
	})
	slices.SortFunc(due, func(a, b inflight) int {
		if a.dueMs != b.dueMs {
			if a.dueMs < b.dueMs {
				return -1
			}
			return 1
		}
		return a.seq - b.seq
	})
	for _, f := range due {
		peer := td.Peers[f.to]
		if peer.linkUp {
			peer.Match.Deliver(f.ev)
		}
	}
	for _, p := range td.Peers {
		p.Match.Tick(td.NowMs)
	}
}

// RunFor advances the duel by at least ms.
func (td *TestDuel) RunFor(ms int64) {
	end := td.NowMs + ms
	for td.NowMs < end {
		td.Step()
	}
}

// RunUntil steps until predicate holds or maxMs elapses. It returns the
// time at which predicate held, or -1.
func (td *TestDuel) RunUntil(predicate func(*TestDuel) bool, maxMs int64) int64 {
	end := td.NowMs + maxMs
	for td.NowMs < end {
		td.Step()
		if predicate(td) {
			return td.NowMs
		}
	}
	return -1
}

// Quiet reports whether nothing is in flight: no queued events and no peer
// with a busy turn owner.
func (td *TestDuel) Quiet() bool {
	if len(td.bus) > 0 {
		return false
	}
	for _, p := range td.Peers {
		if p.Match.Busy() || p.Match.Volley() != nil {
			return false
		}
	}
	return true
}

// Disconnect drops the peer's link; traffic to it is lost.
func (td *TestDuel) Disconnect(id string) {
	p := td.Peer(id)
	if p == nil {
		return
	}
	p.linkUp = false
	td.bus = slices.DeleteFunc(td.bus, func(f inflight) bool { return f.to == p.index })
	p.Match.Disconnect()
}

// Reconnect restores the peer's link and asks for the match state.
func (td *TestDuel) Reconnect(id string) error {
	p := td.Peer(id)
	if p == nil {
		return fmt.Errorf("peer %q: %w", id, ErrUnknownEntity)
	}
	p.linkUp = true
	return p.Match.Reconnect()
}

// Checksums returns every peer's terrain checksum in peer order.
func (td *TestDuel) Checksums() []uint64 {
	out := make([]uint64, len(td.Peers))
	for i, p := range td.Peers {
		out[i] = p.Match.Terrain().Checksum()
	}
	return out
}

// Converged reports whether every peer has the same terrain and the same
// health and position for every entity.
func (td *TestDuel) Converged() bool {
	if len(td.Peers) < 2 {
		return true
	}
	ref := td.Peers[0].Match
	for _, p := range td.Peers[1:] {
		m := p.Match
		if m.Terrain().Checksum() != ref.Terrain().Checksum() {
			return false
		}
		if m.Roster().ActiveID != ref.Roster().ActiveID {
			return false
		}
		for _, a := range ref.Roster().All() {
			b, err := m.Roster().Find(a.ID)
			if err != nil || a.Health != b.Health || a.Center != b.Center || a.OutOfMap != b.OutOfMap {
				return false
			}
		}
	}
	return true
}
