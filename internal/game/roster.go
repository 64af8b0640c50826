package game

import "fmt"

// Roster owns every entity of a match. The active (turn owner) and client
// (local human) entities are held as ids and looked up on demand.
type Roster struct {
	players  []*Player
	byID     map[string]*Player
	ActiveID string
	ClientID string
}

// NewRoster returns a roster holding players in turn order.
func NewRoster(players ...*Player) *Roster {
	r := &Roster{byID: make(map[string]*Player, len(players))}
	for _, p := range players {
		r.players = append(r.players, p)
		r.byID[p.ID] = p
	}
	return r
}

// Find returns the entity with id.
func (r *Roster) Find(id string) (*Player, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, ErrUnknownEntity)
	}
	return p, nil
}

// All returns the entities in turn order.
func (r *Roster) All() []*Player { return r.players }

// Len is the number of entities.
func (r *Roster) Len() int { return len(r.players) }

// Active returns the turn owner, or nil when none is set.
func (r *Roster) Active() *Player { return r.byID[r.ActiveID] }

// Client returns the local human's entity, or nil on a spectator peer.
func (r *Roster) Client() *Player { return r.byID[r.ClientID] }

// IsClientActive reports whether the local human owns the turn.
func (r *Roster) IsClientActive() bool {
	return r.ClientID != "" && r.ClientID == r.ActiveID
}

// SetActive makes id the turn owner.
func (r *Roster) SetActive(id string) error {
	if _, err := r.Find(id); err != nil {
		return err
	}
	r.ActiveID = id
	return nil
}

// Alive returns the entities still in the match.
func (r *Roster) Alive() []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// NextAfter returns the id of the first alive entity after id in turn order,
// wrapping around. It returns "" when nobody else is alive.
func (r *Roster) NextAfter(id string) string {
	start := -1
	for i, p := range r.players {
		if p.ID == id {
			start = i
			break
		}
	}
	n := len(r.players)
	for k := 1; k <= n; k++ {
		p := r.players[(start+k+n)%n]
		if p.ID != id && p.Alive() {
			return p.ID
		}
	}
	return ""
}

// Snapshot copies every entity's state.
func (r *Roster) Snapshot() []Player {
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
		out[i].Motion = MotionIdle
	}
	return out
}

// Restore replaces the roster contents with snap, keeping the client id.
func (r *Roster) Restore(snap []Player) {
	r.players = r.players[:0]
	r.byID = make(map[string]*Player, len(snap))
	for i := range snap {
		p := snap[i]
		p.Motion = MotionIdle
		r.players = append(r.players, &p)
		r.byID[p.ID] = &p
	}
}
