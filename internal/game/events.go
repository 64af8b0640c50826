package game

//go:generate go tool mockgen -source=events.go -destination=./mocks/mock_outbox.go -package=mocks

// EventKind names a message exchanged between peers.
type EventKind string

const (
	KindEntityMove      EventKind = "entity-move"
	KindEntityMoveEnd   EventKind = "entity-move-end"
	KindEntityFall      EventKind = "entity-fall"
	KindEntityFire      EventKind = "entity-fire"
	KindVolleySync      EventKind = "volley-sync"
	KindTurnAdvance     EventKind = "turn-advance"
	KindEntityUsesSkill EventKind = "entity-uses-skill"
	KindReconnectSync   EventKind = "reconnect-sync"
	KindCollisionReport EventKind = "collision-report"
	KindResyncRequest   EventKind = "resync-request"
)

// Skill names understood by entity-uses-skill.
const (
	SkillExtraShot = "+1"
	SkillTrident   = "III"
)

// Event is the wire envelope. Kind selects which of the optional fields are
// meaningful:
//
//	entity-move        EntityID, Direction
//	entity-move-end    EntityID, Direction, Point
//	entity-fall        EntityID, Point, OutOfMap
//	entity-fire        EntityID, AimAngle, Power, Fires, Trident
//	volley-sync        EntityID, Volley, Trident
//	turn-advance       ActiveID
//	entity-uses-skill  EntityID, Skill
//	reconnect-sync     EntityID (recipient, empty for all), ActiveID, Impacts, Roster
//	collision-report   EntityID, Impact, Seq, Checksum
//	resync-request     EntityID, Reason
type Event struct {
	Kind      EventKind `msgpack:"kind"`
	EntityID  string    `msgpack:"entity,omitempty"`
	Direction Direction `msgpack:"dir,omitempty"`
	Point     *Point    `msgpack:"point,omitempty"`
	OutOfMap  bool      `msgpack:"oom,omitempty"`

	AimAngle float64 `msgpack:"aim,omitempty"`
	Power    int     `msgpack:"power,omitempty"`
	Fires    int     `msgpack:"fires,omitempty"`
	Trident  bool    `msgpack:"trident,omitempty"`
	Volley   *Volley `msgpack:"volley,omitempty"`

	ActiveID string   `msgpack:"active,omitempty"`
	Skill    string   `msgpack:"skill,omitempty"`
	Impacts  []Impact `msgpack:"impacts,omitempty"`
	Roster   []Player `msgpack:"roster,omitempty"`

	Impact   *Impact `msgpack:"impact,omitempty"`
	Seq      int     `msgpack:"seq,omitempty"` // impact log length after the impact
	Checksum uint64  `msgpack:"checksum,omitempty"`
	Reason   string  `msgpack:"reason,omitempty"`
}

// Outbox is the match's only outbound seam. Send must not call back into the
// match synchronously; echoes are delivered on a later tick.
type Outbox interface {
	Send(ev Event) error
}

// OutboxFunc adapts a function to Outbox.
type OutboxFunc func(ev Event) error

func (f OutboxFunc) Send(ev Event) error { return f(ev) }

// Loopback is an Outbox for a single-process match: everything sent is
// queued and handed back to the match on its next tick.
type Loopback struct {
	queue []Event
}

func (l *Loopback) Send(ev Event) error {
	l.queue = append(l.queue, ev)
	return nil
}

// Drain returns and clears the queued events.
func (l *Loopback) Drain() []Event {
	q := l.queue
	l.queue = nil
	return q
}
