package game

import (
	"fmt"
	"strings"
)

// DebugReport renders the match state for bug reports: map, terrain digest,
// impact log, roster and the tail of the journal.
func (m *Match) DebugReport(lastEntries int) string {
	if lastEntries <= 0 {
		lastEntries = 40
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- Crater Duel debug report ---\n")
	fmt.Fprintf(&b, "map=%s variant=%s size=%.0fx%.0f tick=%d now=%dms\n",
		m.mapDef.ID, m.variant, m.mapDef.Size.Width, m.mapDef.Size.Height, m.tick, m.nowMs)
	fmt.Fprintf(&b, "client=%q active=%q disconnected=%t busy=%t\n",
		m.roster.ClientID, m.roster.ActiveID, m.disconnected, m.Busy())
	if winner, over := m.Over(); over {
		fmt.Fprintf(&b, "match over, winner=%q\n", winner)
	}
	fmt.Fprintf(&b, "terrain: version=%d occupied=%d checksum=%016x\n\n",
		m.terrain.Version(), m.terrain.OccupiedCount(), m.terrain.Checksum())

	b.WriteString("== impacts ==\n")
	impacts := m.terrain.Impacts()
	if len(impacts) == 0 {
		b.WriteString("(none)\n")
	}
	for i, im := range impacts {
		fmt.Fprintf(&b, "  %02d) %s r=%.0f\n", i+1, im.Center, im.Radius)
	}
	b.WriteByte('\n')

	b.WriteString("== roster ==\n")
	for _, p := range m.roster.All() {
		tag := ""
		if p.ID == m.roster.ActiveID {
			tag += " [ACTIVE]"
		}
		if p.ID == m.roster.ClientID {
			tag += " [CLIENT]"
		}
		fmt.Fprintf(&b, "  %s (%s)%s hp=%.0f/%.0f motion=%s out=%t\n",
			p.ID, p.Name, tag, p.Health, p.HealthMax, p.Motion, p.OutOfMap)
		fmt.Fprintf(&b, "      center=%s left=%s right=%s dir=%s slope=%.0f launch=%.0f\n",
			p.Center, p.Left, p.Right, p.Direction, p.StandAngle, p.LaunchAngle())
		fmt.Fprintf(&b, "      aim=%.0f/%.0f power=%d fires=%d trident=%t done=%t\n",
			p.WeaponAngle, p.Weapon.AngleRange, p.FiringPower, p.RemainingFires, p.Trident, p.OperationDone)
	}
	b.WriteByte('\n')

	if v := m.volley; v != nil {
		fmt.Fprintf(&b, "== volley %s (owner %s, fired %dms) ==\n", v.ID, v.OwnerID, v.FiredAtMs)
		for _, bomb := range v.Bombs {
			fmt.Fprintf(&b, "  %s samples=%d target=%s flight=%dms oob=%t landed=%t\n",
				bomb.ID, len(bomb.Track), bomb.Target, bomb.FlightMs(), bomb.OutOfBounds, bomb.Landed)
		}
		b.WriteByte('\n')
	}

	if pending := m.scheduler.Pending(); len(pending) > 0 {
		fmt.Fprintf(&b, "timers: %s\n\n", strings.Join(pending, ", "))
	}

	b.WriteString("== stats ==\n")
	ids := make([]string, 0, m.roster.Len())
	for _, p := range m.roster.All() {
		ids = append(ids, p.ID)
	}
	b.WriteString(m.stats.Format(ids))
	b.WriteByte('\n')

	fmt.Fprintf(&b, "== journal (last %d) ==\n", lastEntries)
	b.WriteString(m.journal.FormatTail(lastEntries))
	return b.String()
}
