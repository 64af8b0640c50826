package game

import (
	"fmt"
	"strings"
)

// --- Snapshot types ---

// PlayerReport captures a single entity's state at one point in time.
type PlayerReport struct {
	ID          string
	Name        string
	Center      Point
	Direction   Direction
	StandAngle  float64
	Health      float64
	HealthMax   float64
	WeaponAngle float64
	OutOfMap    bool
}

// TurnReport is a snapshot of the match taken when a turn ends.
type TurnReport struct {
	Turn          int
	AtMs          int64
	ActiveID      string
	Impacts       int
	OccupiedCount int
	Checksum      uint64
	Players       []PlayerReport
}

// MatchReporter keeps the turn-by-turn history of a match.
type MatchReporter struct {
	history []TurnReport
}

// NewMatchReporter creates an empty reporter.
func NewMatchReporter() *MatchReporter {
	return &MatchReporter{}
}

// Collect snapshots the match. Call it once per turn advance.
func (r *MatchReporter) Collect(atMs int64, activeID string, t *Terrain, roster *Roster) {
	rpt := TurnReport{
		Turn:          len(r.history) + 1,
		AtMs:          atMs,
		ActiveID:      activeID,
		Impacts:       len(t.impacts),
		OccupiedCount: t.OccupiedCount(),
		Checksum:      t.Checksum(),
	}
	for _, p := range roster.All() {
		rpt.Players = append(rpt.Players, PlayerReport{
			ID:          p.ID,
			Name:        p.Name,
			Center:      p.Center,
			Direction:   p.Direction,
			StandAngle:  p.StandAngle,
			Health:      p.Health,
			HealthMax:   p.HealthMax,
			WeaponAngle: p.WeaponAngle,
			OutOfMap:    p.OutOfMap,
		})
	}
	r.history = append(r.history, rpt)
}

// Latest returns the most recent report, or nil.
func (r *MatchReporter) Latest() *TurnReport {
	if len(r.history) == 0 {
		return nil
	}
	return &r.history[len(r.history)-1]
}

// History returns all collected reports.
func (r *MatchReporter) History() []TurnReport {
	return r.history
}

// FormatLatest returns a concise snapshot of the most recent report.
func (r *MatchReporter) FormatLatest() string {
	rpt := r.Latest()
	if rpt == nil {
		return "No data.\n"
	}
	return rpt.Format()
}

// Format renders one turn report.
func (rpt *TurnReport) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Turn %d @%dms (active %s) ---\n", rpt.Turn, rpt.AtMs, rpt.ActiveID)
	fmt.Fprintf(&sb, "terrain: impacts=%d occupied=%d checksum=%016x\n", rpt.Impacts, rpt.OccupiedCount, rpt.Checksum)
	for _, p := range rpt.Players {
		state := "ok"
		switch {
		case p.OutOfMap:
			state = "out-of-map"
		case p.Health <= 0:
			state = "defeated"
		}
		fmt.Fprintf(&sb, "  %-8s %-10s hp=%3.0f/%3.0f at=%s dir=%-5s slope=%+3.0f aim=%2.0f %s\n",
			p.ID, p.Name, p.Health, p.HealthMax, p.Center, p.Direction, p.StandAngle, p.WeaponAngle, state)
	}
	return sb.String()
}
