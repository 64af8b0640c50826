package game

// Hit is the effect of one impact on one entity.
type Hit struct {
	EntityID    string
	Damage      float64
	HealthAfter float64
	Defeated    bool
	OutOfMap    bool
	FootingErr  error // footing could not be re-resolved; previous kept
}

// ResolveImpact applies b's damage to every entity whose center is within
// the damage radius of impact and re-resolves their footing on t. The
// crater is expected to be carved into t already.
func ResolveImpact(r *Roster, t *Terrain, impact Point, b *Bomb, cfg Config) []Hit {
	var hits []Hit
	for _, p := range r.All() {
		if p.OutOfMap {
			continue
		}
		if Distance(impact, p.Center) > b.DamageRadius {
			continue
		}
		p.Health -= b.Damage
		if p.Health < 0 {
			p.Health = 0
		}
		h := Hit{EntityID: p.ID, Damage: b.Damage, HealthAfter: p.Health, Defeated: p.Health == 0}
		if err := p.Reposition(t, cfg); err != nil {
			h.FootingErr = err
		}
		h.OutOfMap = p.OutOfMap
		hits = append(hits, h)
	}
	return hits
}
