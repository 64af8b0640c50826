package game

import (
	"fmt"
	"slices"
	"strings"
)

// --- Per-entity counters ---

// PlayerStats accumulates what one entity did during a match.
type PlayerStats struct {
	Turns       int
	Shots       int // bombs launched
	Hits        int // bombs whose blast reached another entity
	SelfHits    int
	OutOfBounds int
	DamageDealt float64
	DamageTaken float64
	Moves       int
	Falls       int
	SkillsUsed  int
}

// Accuracy is the share of launched bombs that hit another entity.
func (s PlayerStats) Accuracy() float64 {
	if s.Shots == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Shots)
}

// MatchStats holds counters for every entity seen in a match.
type MatchStats struct {
	byID map[string]*PlayerStats
}

// NewMatchStats returns empty counters.
func NewMatchStats() *MatchStats {
	return &MatchStats{byID: make(map[string]*PlayerStats)}
}

// For returns the counters of id, creating them on first use.
func (m *MatchStats) For(id string) *PlayerStats {
	s, ok := m.byID[id]
	if !ok {
		s = &PlayerStats{}
		m.byID[id] = s
	}
	return s
}

// RecordLaunch counts the bombs of a volley.
func (m *MatchStats) RecordLaunch(v *Volley) {
	m.For(v.OwnerID).Shots += len(v.Bombs)
}

// RecordLanding counts one bomb arrival and the hits it caused.
func (m *MatchStats) RecordLanding(b *Bomb, hits []Hit) {
	owner := m.For(b.OwnerID)
	if b.OutOfBounds {
		owner.OutOfBounds++
		return
	}
	hitOther := false
	for _, h := range hits {
		m.For(h.EntityID).DamageTaken += h.Damage
		if h.EntityID == b.OwnerID {
			owner.SelfHits++
			continue
		}
		owner.DamageDealt += h.Damage
		hitOther = true
	}
	if hitOther {
		owner.Hits++
	}
}

// Format lists the counters of ids in the given order. A nil ids lists every
// entity sorted by id.
func (m *MatchStats) Format(ids []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-10s %5s %5s %5s %5s %7s %7s %6s\n",
		"entity", "turns", "shots", "hits", "oob", "dealt", "taken", "acc")
	if ids == nil {
		for id := range m.byID {
			ids = append(ids, id)
		}
		slices.Sort(ids)
	}
	for _, id := range ids {
		s := m.For(id)
		fmt.Fprintf(&sb, "%-10s %5d %5d %5d %5d %7.0f %7.0f %5.0f%%\n",
			id, s.Turns, s.Shots, s.Hits, s.OutOfBounds, s.DamageDealt, s.DamageTaken, s.Accuracy()*100)
	}
	return sb.String()
}
