package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
)

// Session is what the host hands to a match: map, identity and the outbound
// seam. Nothing in the match reaches for globals.
type Session struct {
	Config   Config
	Map      *MapDef
	Variant  string // empty picks the map's first variant
	ClientID string // local entity; empty on a spectator peer
	HotSeat  bool   // the local entity follows the turn owner
	Outbox   Outbox
	Logger   *slog.Logger
	Journal  *MatchLog
	Seed     int64 // cosmetic particles only
}

// EntityInit describes one roster slot.
type EntityInit struct {
	ID        string
	Name      string
	Direction Direction
	HealthMax float64 // 0 means 100
	Weapon    *Weapon // nil means DefaultWeapon
	Spawn     *Point  // nil means the map spawn point of the slot
}

// Hooks are optional display callbacks. They run inside Tick or HandleEvent
// and must not call back into the match.
type Hooks struct {
	OnLaunch    func(v *Volley)
	OnImpact    func(b *Bomb, hits []Hit)
	OnTurn      func(activeID string)
	OnMatchOver func(winnerID string)
}

type peerReport struct {
	from     string
	checksum uint64
}

// Match is one duel as seen by one peer. It is single-threaded: the host
// calls Tick once per frame and everything else from the same goroutine.
type Match struct {
	cfg     Config
	mapDef  *MapDef
	variant string
	hotSeat bool
	outbox  Outbox
	log     *slog.Logger
	journal *MatchLog
	hooks   Hooks
	rng     *rand.Rand

	terrain   *Terrain
	roster    *Roster
	viewport  *Viewport
	minimap   *Minimap
	scheduler Scheduler
	resync    *resyncPolicy
	stats     *MatchStats
	reporter  *MatchReporter
	feed      *Feed

	volley      *Volley
	firing      bool // entity-fire sent, volley-sync not yet adopted
	movePending bool // entity-move sent, echo not yet applied
	turnEnding  bool
	syncQueue   []string

	localSums map[int]uint64
	reported  map[int]peerReport

	explosions []*ExplosionEffect
	ambient    *AmbientEffect

	inbox        []Event
	nowMs        int64
	tick         int
	started      bool
	disconnected bool
	over         bool
	winnerID     string
}

// NewMatch renders the terrain, settles every entity on its spawn point and
// makes the first entity the turn owner.
func NewMatch(s Session, entities []EntityInit, hooks Hooks) (*Match, error) {
	if s.Map == nil {
		return nil, errors.New("new match: no map")
	}
	if s.Outbox == nil {
		return nil, errors.New("new match: no outbox")
	}
	if len(entities) == 0 {
		return nil, errors.New("new match: no entities")
	}
	cfg := s.Config
	if cfg.StepSec <= 0 {
		cfg = DefaultConfig()
	}
	variant := s.Variant
	if variant == "" {
		if vs := s.Map.Variants(); len(vs) > 0 {
			variant = vs[0]
		}
	}
	terrain, err := s.Map.NewTerrain(variant, cfg)
	if err != nil {
		return nil, fmt.Errorf("new match on %s: %w", s.Map.ID, err)
	}

	players := make([]*Player, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for i, e := range entities {
		if e.ID == "" || seen[e.ID] {
			return nil, fmt.Errorf("new match: slot %d: missing or duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		dir := e.Direction
		if !dir.Valid() {
			dir = Right
		}
		hp := e.HealthMax
		if hp <= 0 {
			hp = 100
		}
		w := DefaultWeapon()
		if e.Weapon != nil {
			w = *e.Weapon
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		p := NewPlayer(e.ID, name, dir, hp, w)
		spawn := s.Map.Spawn(i)
		if e.Spawn != nil {
			spawn = *e.Spawn
		}
		if err := p.Settle(terrain, spawn, cfg); err != nil {
			return nil, fmt.Errorf("new match: spawning %s: %w", e.ID, err)
		}
		players = append(players, p)
	}

	roster := NewRoster(players...)
	roster.ActiveID = players[0].ID
	clientID := s.ClientID
	if s.HotSeat {
		clientID = roster.ActiveID
	}
	if clientID != "" {
		if _, err := roster.Find(clientID); err != nil {
			return nil, fmt.Errorf("new match: client: %w", err)
		}
	}
	roster.ClientID = clientID

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	journal := s.Journal
	if journal == nil {
		journal = NewMatchLog(false)
	}
	rng := rand.New(rand.NewSource(s.Seed))
	vp := NewViewport(s.Map.Size, cfg.ViewportWidth, cfg.ViewportHeight, cfg.TransitionMs)

	m := &Match{
		cfg:       cfg,
		mapDef:    s.Map,
		variant:   variant,
		hotSeat:   s.HotSeat,
		outbox:    s.Outbox,
		log:       logger.With("map", s.Map.ID, "client", clientID),
		journal:   journal,
		hooks:     hooks,
		rng:       rng,
		terrain:   terrain,
		roster:    roster,
		viewport:  vp,
		minimap:   NewMinimap(vp, cfg.MinimapWidth),
		resync:    newResyncPolicy(),
		stats:     NewMatchStats(),
		reporter:  NewMatchReporter(),
		feed:      NewFeed(),
		localSums: make(map[int]uint64),
		reported:  make(map[int]peerReport),
		ambient:   NewAmbientEffect(s.Map.Size, cfg.AmbientParticles, rng),
	}
	m.stats.For(roster.ActiveID).Turns++
	m.note("", "turn", "start", roster.ActiveID, 0)
	return m, nil
}

// --- Accessors ---

func (m *Match) Config() Config           { return m.cfg }
func (m *Match) Map() *MapDef             { return m.mapDef }
func (m *Match) Variant() string          { return m.variant }
func (m *Match) Terrain() *Terrain        { return m.terrain }
func (m *Match) Roster() *Roster          { return m.roster }
func (m *Match) Viewport() *Viewport      { return m.viewport }
func (m *Match) Minimap() *Minimap        { return m.minimap }
func (m *Match) Volley() *Volley          { return m.volley }
func (m *Match) Stats() *MatchStats       { return m.stats }
func (m *Match) Reporter() *MatchReporter { return m.reporter }
func (m *Match) Feed() *Feed              { return m.feed }
func (m *Match) Journal() *MatchLog       { return m.journal }
func (m *Match) Ambient() *AmbientEffect  { return m.ambient }
func (m *Match) NowMs() int64             { return m.nowMs }
func (m *Match) Disconnected() bool       { return m.disconnected }
func (m *Match) PendingTimers() []string  { return m.scheduler.Pending() }

// Explosions returns the debris groups still animating.
func (m *Match) Explosions() []*ExplosionEffect { return m.explosions }

// Over reports whether the match has ended and who won. The winner is empty
// when nobody survived.
func (m *Match) Over() (winnerID string, over bool) {
	return m.winnerID, m.over
}

// Busy reports whether the turn owner has an operation in progress.
func (m *Match) Busy() bool {
	if m.firing || m.volley != nil || m.turnEnding {
		return true
	}
	a := m.roster.Active()
	return a != nil && !a.OperationDone
}

// --- Frame loop ---

// Deliver queues an inbound event for the next Tick.
func (m *Match) Deliver(ev Event) {
	m.inbox = append(m.inbox, ev)
}

// Tick advances the match to nowMs: queued events, timers, the in-flight
// volley, motion, particles and the camera, in that order.
func (m *Match) Tick(nowMs int64) {
	m.nowMs = nowMs
	m.tick++
	if !m.started {
		m.started = true
		if a := m.roster.Active(); a != nil {
			m.viewport.BeginPreview(a.Center, nil)
		}
	}

	inbox := m.inbox
	m.inbox = nil
	for _, ev := range inbox {
		_ = m.HandleEvent(ev)
	}

	if !m.disconnected {
		m.scheduler.Run(nowMs)
		m.advanceVolley(nowMs)
	}
	for _, p := range m.roster.All() {
		p.TickMotion(nowMs)
	}
	m.tickEffects(nowMs)
	m.viewport.Tick(nowMs)
	m.follow(nowMs)
	m.flushResync()
}

func (m *Match) tickEffects(nowMs int64) {
	live := m.explosions[:0]
	for _, e := range m.explosions {
		e.Tick(nowMs)
		if !e.Done() {
			live = append(live, e)
		}
	}
	m.explosions = live
	if m.ambient != nil {
		m.ambient.Tick(nowMs)
	}
}

// follow keeps the camera on the lead bomb, or on the active entity while it
// walks. It yields to transitions and dragging.
func (m *Match) follow(nowMs int64) {
	if !m.viewport.PreviewDone() || m.viewport.Mode() != ViewFollowing {
		return
	}
	if m.volley != nil {
		if s, ok := m.volley.Lead(nowMs); ok {
			m.viewport.FocusOn(s.Point())
		}
		return
	}
	if a := m.roster.Active(); a != nil && !a.OutOfMap && a.Motion != MotionIdle {
		m.viewport.FocusOn(a.Center)
	}
}

func (m *Match) flushResync() {
	sig, ok := m.resync.consume()
	if !ok {
		return
	}
	m.log.Warn("requesting resync", "summary", sig.Summary())
	m.note(m.roster.ClientID, "desync", "resync-request", sig.Summary(), float64(sig.Dropped))
	m.feed.Add(m.nowMs, "net", ToneWarn, "out of sync, requesting state")
	_ = m.send(Event{Kind: KindResyncRequest, EntityID: m.roster.ClientID, Reason: sig.Summary()})
}

// --- Local input ---

func (m *Match) inputPlayer() (*Player, error) {
	if m.disconnected {
		return nil, ErrDisconnected
	}
	if m.over {
		return nil, ErrMatchOver
	}
	p := m.roster.Client()
	if p == nil {
		return nil, fmt.Errorf("client %q: %w", m.roster.ClientID, ErrUnknownEntity)
	}
	if !m.roster.IsClientActive() {
		return nil, fmt.Errorf("client %s: %w", p.ID, ErrNotActive)
	}
	return p, nil
}

// RequestMove asks to walk one step. The step is applied when the echo
// comes back, on every peer alike.
func (m *Match) RequestMove(dir Direction) error {
	p, err := m.inputPlayer()
	if err != nil {
		return err
	}
	if !dir.Valid() {
		return fmt.Errorf("move %s: invalid direction %q", p.ID, dir)
	}
	if m.Busy() || m.movePending || p.Motion != MotionIdle || !p.Alive() {
		return ErrOperationPending
	}
	m.movePending = true
	if err := m.send(Event{Kind: KindEntityMove, EntityID: p.ID, Direction: dir}); err != nil {
		m.movePending = false
		return err
	}
	return nil
}

// RequestMoveEnd publishes the resting position after the move key is
// released so peers can correct drift.
func (m *Match) RequestMoveEnd() error {
	p, err := m.inputPlayer()
	if err != nil {
		return err
	}
	pt := p.Center
	return m.send(Event{Kind: KindEntityMoveEnd, EntityID: p.ID, Direction: p.Direction, Point: &pt, OutOfMap: p.OutOfMap})
}

// AdjustAim turns the weapon by delta degrees within its range.
func (m *Match) AdjustAim(delta float64) error {
	p, err := m.inputPlayer()
	if err != nil {
		return err
	}
	if m.Busy() {
		return ErrOperationPending
	}
	p.AdjustAim(delta)
	return nil
}

// ChargePower adds one point of firing power.
func (m *Match) ChargePower() error {
	p, err := m.inputPlayer()
	if err != nil {
		return err
	}
	if m.Busy() {
		return ErrOperationPending
	}
	p.ChargePower()
	return nil
}

// RequestFire fires with the current aim and power. Only one fire action
// can be outstanding; repeats return ErrOperationPending and change nothing.
func (m *Match) RequestFire() error {
	p, err := m.inputPlayer()
	if err != nil {
		return err
	}
	if m.Busy() || p.RemainingFires <= 0 || !p.Alive() {
		return ErrOperationPending
	}
	return m.fire(p)
}

func (m *Match) fire(p *Player) error {
	m.firing = true
	p.OperationDone = false
	err := m.send(Event{
		Kind:     KindEntityFire,
		EntityID: p.ID,
		AimAngle: p.WeaponAngle,
		Power:    p.FiringPower,
		Fires:    p.RemainingFires,
		Trident:  p.Trident,
	})
	if err != nil {
		m.firing = false
		p.OperationDone = true
	}
	return err
}

// RequestSkill uses a skill before firing.
func (m *Match) RequestSkill(skill string) error {
	p, err := m.inputPlayer()
	if err != nil {
		return err
	}
	if skill != SkillExtraShot && skill != SkillTrident {
		return fmt.Errorf("skill %q: %w", skill, ErrUnknownSkill)
	}
	if m.Busy() {
		return ErrOperationPending
	}
	return m.send(Event{Kind: KindEntityUsesSkill, EntityID: p.ID, Skill: skill})
}

// Disconnect freezes the match: timers, the volley, animations and debris
// are dropped and local input fails with ErrDisconnected until a
// reconnect-sync arrives.
func (m *Match) Disconnect() {
	if m.disconnected {
		return
	}
	m.disconnected = true
	m.scheduler.CancelAll()
	m.volley = nil
	m.firing = false
	m.movePending = false
	m.turnEnding = false
	m.syncQueue = nil
	m.explosions = nil
	m.inbox = nil
	m.viewport.EndDrag()
	m.viewport.CancelAnimation()
	for _, p := range m.roster.All() {
		p.Motion = MotionIdle
	}
	m.log.Warn("disconnected")
	m.note(m.roster.ClientID, "net", "disconnect", "", 0)
	m.feed.Add(m.nowMs, "net", ToneWarn, "connection lost")
}

// Reconnect asks the turn owner for the full match state.
func (m *Match) Reconnect() error {
	if !m.disconnected {
		return nil
	}
	m.resync.requested = true
	m.resync.pending = false
	m.note(m.roster.ClientID, "net", "reconnect", "", 0)
	return m.send(Event{Kind: KindResyncRequest, EntityID: m.roster.ClientID, Reason: "reconnect"})
}

// SyncEvent is a reconnect-sync carrying the whole match state to every peer.
func (m *Match) SyncEvent() Event {
	return Event{
		Kind:     KindReconnectSync,
		ActiveID: m.roster.ActiveID,
		Impacts:  m.terrain.Impacts(),
		Roster:   m.roster.Snapshot(),
	}
}

// --- Inbound events ---

// HandleEvent applies one inbound event immediately. Events that do not fit
// the local state are dropped, counted, and eventually answered with one
// resync-request; the returned error says why.
func (m *Match) HandleEvent(ev Event) error {
	if m.disconnected && ev.Kind != KindReconnectSync {
		return fmt.Errorf("%s: %w", ev.Kind, ErrDisconnected)
	}
	m.resync.noteEvent()
	m.journal.AddVerbose(m.tick, m.nowMs, ev.EntityID, "net", "recv", string(ev.Kind), 0)

	switch ev.Kind {
	case KindEntityMove:
		return m.onMove(ev)
	case KindEntityMoveEnd:
		return m.onMoveEnd(ev)
	case KindEntityFall:
		return m.onFall(ev)
	case KindEntityFire:
		return m.onFire(ev)
	case KindVolleySync:
		return m.onVolleySync(ev)
	case KindTurnAdvance:
		return m.onTurnAdvance(ev)
	case KindEntityUsesSkill:
		return m.onSkill(ev)
	case KindReconnectSync:
		return m.onReconnectSync(ev)
	case KindCollisionReport:
		return m.onCollisionReport(ev)
	case KindResyncRequest:
		return m.onResyncRequest(ev)
	default:
		m.log.Warn("unknown event kind", "kind", ev.Kind)
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (m *Match) drop(ev Event, entityID string, cause error) error {
	m.resync.noteDropped(ev.Kind, entityID, cause.Error())
	m.note(entityID, "desync", string(ev.Kind), cause.Error(), 0)
	m.log.Warn("dropping event", "kind", ev.Kind, "entity", entityID, "err", cause)
	return fmt.Errorf("%s: %w", ev.Kind, cause)
}

// turnOwner resolves the event's entity and checks that it holds the turn.
func (m *Match) turnOwner(ev Event) (*Player, error) {
	p, err := m.roster.Find(ev.EntityID)
	if err != nil {
		return nil, m.drop(ev, ev.EntityID, err)
	}
	if p.ID != m.roster.ActiveID {
		return nil, m.drop(ev, p.ID, fmt.Errorf("turn belongs to %q: %w", m.roster.ActiveID, ErrNotActive))
	}
	return p, nil
}

func (m *Match) onMove(ev Event) error {
	p, err := m.turnOwner(ev)
	if err != nil {
		return err
	}
	if p.ID == m.roster.ClientID {
		m.movePending = false
	}
	if !ev.Direction.Valid() {
		return m.drop(ev, p.ID, fmt.Errorf("invalid direction %q", ev.Direction))
	}
	if !p.Alive() {
		return nil
	}
	res, err := p.Move(m.terrain, ev.Direction, m.cfg)
	if err != nil {
		m.log.Warn("no footing after move", "entity", p.ID, "err", err)
	}
	m.note(p.ID, "move", res.String(), p.Center.String(), p.StandAngle)

	switch res {
	case MoveStepped:
		p.BeginMotion(MotionMoving, m.nowMs, m.cfg.MoveDurationMs)
		m.stats.For(p.ID).Moves++
	case MoveFell, MoveOutOfMap:
		p.BeginMotion(MotionFalling, m.nowMs, m.cfg.MoveDurationMs)
		m.stats.For(p.ID).Falls++
		if p.ID == m.roster.ClientID {
			pt := p.Center
			_ = m.send(Event{Kind: KindEntityFall, EntityID: p.ID, Point: &pt, OutOfMap: p.OutOfMap})
		}
		if res == MoveOutOfMap {
			m.entityLost(p)
		}
	}
	return nil
}

func (m *Match) onMoveEnd(ev Event) error {
	p, err := m.roster.Find(ev.EntityID)
	if err != nil {
		return m.drop(ev, ev.EntityID, err)
	}
	if ev.Direction.Valid() {
		p.Direction = ev.Direction
	}
	p.Motion = MotionIdle
	if ev.Point == nil || p.OutOfMap || *ev.Point == p.Center {
		return nil
	}
	if err := p.LocateAt(m.terrain, *ev.Point, m.cfg); err != nil {
		m.log.Warn("move-end position rejected", "entity", p.ID, "err", err)
		return nil
	}
	m.note(p.ID, "move", "corrected", p.Center.String(), 0)
	return nil
}

func (m *Match) onFall(ev Event) error {
	p, err := m.roster.Find(ev.EntityID)
	if err != nil {
		return m.drop(ev, ev.EntityID, err)
	}
	if ev.OutOfMap {
		if !p.OutOfMap {
			p.OutOfMap = true
			if ev.Point != nil {
				p.Center = *ev.Point
			}
			m.entityLost(p)
		}
		return nil
	}
	if ev.Point == nil || *ev.Point == p.Center {
		return nil
	}
	if err := p.LocateAt(m.terrain, *ev.Point, m.cfg); err != nil {
		m.log.Warn("fall position rejected", "entity", p.ID, "err", err)
		return nil
	}
	m.note(p.ID, "move", "fall-corrected", p.Center.String(), 0)
	return nil
}

func (m *Match) onFire(ev Event) error {
	p, err := m.turnOwner(ev)
	if err != nil {
		return err
	}
	if m.volley != nil {
		return m.drop(ev, p.ID, fmt.Errorf("volley %s in flight: %w", m.volley.ID, ErrOperationPending))
	}
	p.WeaponAngle = clampF(ev.AimAngle, 0, p.Weapon.AngleRange)
	p.FiringPower = clampInt(ev.Power, 0, 100)
	p.RemainingFires = ev.Fires
	p.Trident = ev.Trident
	p.OperationDone = false
	m.note(p.ID, "fire", "request",
		fmt.Sprintf("aim=%.0f power=%d fires=%d trident=%t", p.WeaponAngle, p.FiringPower, p.RemainingFires, p.Trident),
		float64(p.FiringPower))

	// Only the turn owner's own peer computes the flight.
	if p.ID != m.roster.ClientID {
		return nil
	}
	v := PrecomputeVolley(p, m.terrain, p.Trident, m.cfg)
	m.log.Debug("volley precomputed", "entity", p.ID, "volley", v.ID, "bombs", len(v.Bombs))
	return m.send(Event{Kind: KindVolleySync, EntityID: p.ID, Volley: v, Trident: v.Trident})
}

func (m *Match) onVolleySync(ev Event) error {
	v := ev.Volley
	if v == nil || len(v.Bombs) == 0 {
		return m.drop(ev, ev.EntityID, errors.New("volley-sync without bombs"))
	}
	if m.volley != nil {
		return m.drop(ev, v.OwnerID, fmt.Errorf("volley %s in flight: %w", m.volley.ID, ErrOperationPending))
	}
	p, err := m.roster.Find(v.OwnerID)
	if err != nil {
		return m.drop(ev, v.OwnerID, err)
	}
	if p.ID != m.roster.ActiveID {
		return m.drop(ev, p.ID, fmt.Errorf("turn belongs to %q: %w", m.roster.ActiveID, ErrNotActive))
	}

	p.RemainingFires = max(p.RemainingFires-1, 0)
	p.OperationDone = false
	m.firing = false
	v.Start(m.nowMs)
	m.volley = v
	m.stats.RecordLaunch(v)
	m.note(p.ID, "volley", "launch", fmt.Sprintf("%s bombs=%d", v.ID, len(v.Bombs)), float64(len(v.Bombs)))
	m.feed.Add(m.nowMs, p.Name, ToneInfo, fmt.Sprintf("fires at %.0f° power %d", p.LaunchAngle(), p.FiringPower))
	if m.hooks.OnLaunch != nil {
		m.hooks.OnLaunch(v)
	}
	return nil
}

func (m *Match) onTurnAdvance(ev Event) error {
	if _, err := m.roster.Find(ev.ActiveID); err != nil {
		return m.drop(ev, ev.ActiveID, err)
	}
	if m.volley != nil {
		// A lagging peer still replaying; land the rest now.
		m.advanceVolley(m.volley.FiredAtMs + m.volley.maxFlightMs())
	}
	m.advanceTurn(ev.ActiveID)
	return nil
}

func (m *Match) advanceTurn(id string) {
	if err := m.roster.SetActive(id); err != nil {
		m.log.Error("turn advance", "entity", id, "err", err)
		return
	}
	p := m.roster.Active()
	p.RemainingFires = 1
	p.Trident = false
	p.OperationDone = true
	p.FiringPower = 0
	m.firing = false
	m.movePending = false
	m.turnEnding = false
	if m.hotSeat {
		m.roster.ClientID = id
	}
	m.stats.For(id).Turns++
	m.reporter.Collect(m.nowMs, id, m.terrain, m.roster)
	m.viewport.TransitionTo(p.Center, nil)
	m.note(id, "turn", "advance", p.Name, float64(m.reporter.Latest().Turn))
	m.feed.Add(m.nowMs, p.Name, ToneInfo, "takes the turn")
	if m.hooks.OnTurn != nil {
		m.hooks.OnTurn(id)
	}
}

func (m *Match) onSkill(ev Event) error {
	p, err := m.turnOwner(ev)
	if err != nil {
		return err
	}
	switch ev.Skill {
	case SkillExtraShot:
		p.RemainingFires++
	case SkillTrident:
		p.Trident = true
	default:
		return m.drop(ev, p.ID, fmt.Errorf("skill %q: %w", ev.Skill, ErrUnknownSkill))
	}
	m.stats.For(p.ID).SkillsUsed++
	m.note(p.ID, "skill", ev.Skill, fmt.Sprintf("fires=%d trident=%t", p.RemainingFires, p.Trident), float64(p.RemainingFires))
	m.feed.Add(m.nowMs, p.Name, ToneInfo, "uses skill "+ev.Skill)
	return nil
}

func (m *Match) onReconnectSync(ev Event) error {
	if ev.EntityID != "" && ev.EntityID != m.roster.ClientID {
		return nil
	}
	if len(ev.Roster) == 0 {
		m.log.Warn("reconnect-sync without roster")
		return errors.New("reconnect-sync without roster")
	}
	m.terrain.Rebuild(ev.Impacts)
	m.roster.Restore(ev.Roster)
	if err := m.roster.SetActive(ev.ActiveID); err != nil {
		m.log.Warn("reconnect-sync active entity", "err", err)
	}
	if m.hotSeat {
		m.roster.ClientID = m.roster.ActiveID
	}

	m.scheduler.CancelAll()
	m.volley = nil
	m.firing = false
	m.movePending = false
	m.turnEnding = false
	m.syncQueue = nil
	m.explosions = nil
	clear(m.localSums)
	clear(m.reported)
	m.disconnected = false
	m.resync.resolved()
	m.over, m.winnerID = false, ""
	m.checkOver()

	m.log.Info("state restored", "impacts", len(ev.Impacts), "active", m.roster.ActiveID)
	m.note(m.roster.ClientID, "net", "reconnect-sync",
		fmt.Sprintf("impacts=%d checksum=%016x", len(ev.Impacts), m.terrain.Checksum()), float64(len(ev.Impacts)))
	m.feed.Add(m.nowMs, "net", ToneInfo, "match state restored")
	return nil
}

func (m *Match) onCollisionReport(ev Event) error {
	if ev.Impact == nil || ev.Seq <= 0 {
		return fmt.Errorf("collision-report from %q without impact", ev.EntityID)
	}
	if ev.EntityID == m.roster.ClientID {
		return nil
	}
	if local, ok := m.localSums[ev.Seq]; ok {
		return m.verifyChecksum(ev.EntityID, ev.Seq, local, ev.Checksum)
	}
	m.reported[ev.Seq] = peerReport{from: ev.EntityID, checksum: ev.Checksum}
	return nil
}

func (m *Match) verifyChecksum(from string, seq int, local, remote uint64) error {
	delete(m.reported, seq)
	if local == remote {
		m.journal.AddVerbose(m.tick, m.nowMs, from, "impact", "checksum-ok", fmt.Sprintf("seq=%d", seq), 0)
		return nil
	}
	detail := fmt.Sprintf("impact %d checksum %016x, owner has %016x", seq, local, remote)
	return m.drop(Event{Kind: KindCollisionReport}, from, errors.New(detail))
}

func (m *Match) onResyncRequest(ev Event) error {
	me := m.roster.ClientID
	if me == "" || ev.EntityID == me {
		return nil
	}
	if m.responderFor(ev.EntityID) != me {
		return nil
	}
	if m.volley != nil || m.firing {
		m.syncQueue = append(m.syncQueue, ev.EntityID)
		return nil
	}
	return m.answerSync(ev.EntityID)
}

// responderFor picks the peer that answers a resync request: the turn owner,
// or the next entity when the owner itself is asking.
func (m *Match) responderFor(requester string) string {
	if requester != m.roster.ActiveID {
		return m.roster.ActiveID
	}
	return m.roster.NextAfter(requester)
}

func (m *Match) answerSync(to string) error {
	sync := m.SyncEvent()
	sync.EntityID = to
	m.note(to, "net", "answer-sync", fmt.Sprintf("impacts=%d", len(sync.Impacts)), 0)
	return m.send(sync)
}

// --- Volley replay ---

func (m *Match) advanceVolley(nowMs int64) {
	v := m.volley
	if v == nil {
		return
	}
	for _, b := range v.Advance(nowMs) {
		m.land(b)
	}
	if v.Done() {
		m.volley = nil
		m.onVolleyDone(v)
	}
}

func (m *Match) land(b *Bomb) {
	if b.OutOfBounds {
		m.stats.RecordLanding(b, nil)
		m.note(b.OwnerID, "impact", "out-of-bounds", b.Target.String(), b.FlightSec)
		if m.hooks.OnImpact != nil {
			m.hooks.OnImpact(b, nil)
		}
		return
	}

	m.terrain.ApplyCrater(b.Target, b.DamageRadius)
	seq := len(m.terrain.impacts)
	sum := m.terrain.Checksum()
	m.localSums[seq] = sum
	m.explosions = append(m.explosions, NewExplosionEffect(b.Target, m.rng))
	m.note(b.OwnerID, "impact", "crater", fmt.Sprintf("%s r=%.0f", b.Target, b.DamageRadius), b.FlightSec)

	hits := ResolveImpact(m.roster, m.terrain, b.Target, b, m.cfg)
	for _, h := range hits {
		if h.FootingErr != nil {
			m.log.Warn("footing kept after impact", "entity", h.EntityID, "bomb", b.ID, "err", h.FootingErr)
		}
		m.note(h.EntityID, "damage", "hit", fmt.Sprintf("-%.0f hp=%.0f", h.Damage, h.HealthAfter), h.HealthAfter)
		name := h.EntityID
		if p, err := m.roster.Find(h.EntityID); err == nil {
			name = p.Name
		}
		switch {
		case h.OutOfMap:
			m.feed.Add(m.nowMs, name, ToneWarn, "blown off the map")
		case h.Defeated:
			m.feed.Add(m.nowMs, name, ToneHit, "is defeated")
		default:
			m.feed.Add(m.nowMs, name, ToneHit, fmt.Sprintf("takes %.0f damage", h.Damage))
		}
	}
	m.stats.RecordLanding(b, hits)
	if m.hooks.OnImpact != nil {
		m.hooks.OnImpact(b, hits)
	}

	if b.OwnerID == m.roster.ClientID {
		im := Impact{Center: b.Target, Radius: b.DamageRadius}
		_ = m.send(Event{Kind: KindCollisionReport, EntityID: b.OwnerID, Impact: &im, Seq: seq, Checksum: sum})
		return
	}
	if r, ok := m.reported[seq]; ok {
		_ = m.verifyChecksum(r.from, seq, sum, r.checksum)
	}
}

func (m *Match) onVolleyDone(v *Volley) {
	for _, id := range m.syncQueue {
		_ = m.answerSync(id)
	}
	m.syncQueue = nil

	p, err := m.roster.Find(v.OwnerID)
	if err != nil {
		return
	}
	if m.checkOver() {
		return
	}
	owner := p.ID == m.roster.ClientID
	if p.Alive() && p.RemainingFires > 0 {
		if owner {
			id := p.ID
			m.scheduler.After(m.nowMs, m.cfg.ShotIntervalMs, "reshot", func(int64) {
				a := m.roster.Active()
				if m.volley != nil || m.over || a == nil || a.ID != id || !a.Alive() {
					return
				}
				if err := m.fire(a); err != nil {
					m.log.Error("re-shot", "entity", id, "err", err)
				}
			})
		}
		return
	}
	p.FiringPower = 0
	if owner {
		m.scheduleTurnEnd(p.ID)
	}
}

func (m *Match) scheduleTurnEnd(from string) {
	if m.turnEnding {
		return
	}
	m.turnEnding = true
	m.scheduler.After(m.nowMs, m.cfg.TurnDelayMs, "turn-advance", func(int64) {
		next := m.roster.NextAfter(from)
		if next == "" || m.over {
			return
		}
		_ = m.send(Event{Kind: KindTurnAdvance, ActiveID: next})
	})
}

// entityLost handles an entity leaving the map outside of a volley.
func (m *Match) entityLost(p *Player) {
	m.note(p.ID, "move", "out-of-map", p.Center.String(), 0)
	m.feed.Add(m.nowMs, p.Name, ToneWarn, "fell off the map")
	if m.checkOver() {
		return
	}
	if p.ID == m.roster.ActiveID && p.ID == m.roster.ClientID && m.volley == nil {
		m.scheduleTurnEnd(p.ID)
	}
}

func (m *Match) checkOver() bool {
	if m.over {
		return true
	}
	if m.roster.Len() < 2 {
		return false
	}
	alive := m.roster.Alive()
	if len(alive) > 1 {
		return false
	}
	m.over = true
	if len(alive) == 1 {
		m.winnerID = alive[0].ID
	}
	m.scheduler.CancelAll()
	m.turnEnding = false
	m.log.Info("match over", "winner", m.winnerID)
	m.note(m.winnerID, "turn", "match-over", m.winnerID, 0)
	msg := "nobody survived"
	if m.winnerID != "" {
		msg = m.winnerID + " wins"
	}
	m.feed.Add(m.nowMs, "match", ToneInfo, msg)
	if m.hooks.OnMatchOver != nil {
		m.hooks.OnMatchOver(m.winnerID)
	}
	return true
}

// --- Outbound ---

func (m *Match) send(ev Event) error {
	if err := m.outbox.Send(ev); err != nil {
		m.log.Error("send failed", "kind", ev.Kind, "entity", ev.EntityID, "err", err)
		return fmt.Errorf("send %s: %w", ev.Kind, err)
	}
	m.journal.AddVerbose(m.tick, m.nowMs, ev.EntityID, "net", "send", string(ev.Kind), 0)
	return nil
}

func (m *Match) note(entity, category, key, value string, num float64) {
	m.journal.Add(m.tick, m.nowMs, entity, category, key, value, num)
}
