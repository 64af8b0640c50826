package game

import (
	"fmt"
	"math"
)

// Direction is the facing of an entity.
type Direction string

const (
	Right Direction = "right"
	Left  Direction = "left"
)

// Valid reports whether d is one of the two facings.
func (d Direction) Valid() bool { return d == Right || d == Left }

// MotionState is the entity's animation state.
type MotionState int

const (
	MotionIdle MotionState = iota
	MotionMoving
	MotionFalling
)

func (m MotionState) String() string {
	switch m {
	case MotionIdle:
		return "idle"
	case MotionMoving:
		return "moving"
	case MotionFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// MoveResult is the outcome of a single movement step.
type MoveResult int

const (
	MoveStepped MoveResult = iota
	MoveBlocked
	MoveFell
	MoveOutOfMap
)

func (r MoveResult) String() string {
	switch r {
	case MoveStepped:
		return "stepped"
	case MoveBlocked:
		return "blocked"
	case MoveFell:
		return "fell"
	case MoveOutOfMap:
		return "out-of-map"
	default:
		return "unknown"
	}
}

// Weapon describes what an entity fires.
type Weapon struct {
	Name           string  `msgpack:"name"`
	AngleRange     float64 `msgpack:"angleRange"`
	Damage         float64 `msgpack:"damage"`
	DamageRadius   float64 `msgpack:"damageRadius"`
	ProjectileSize int     `msgpack:"projectileSize"`
}

// DefaultWeapon is the standard cannon.
func DefaultWeapon() Weapon {
	return Weapon{
		Name:           "cannon",
		AngleRange:     60,
		Damage:         25,
		DamageRadius:   50,
		ProjectileSize: 2,
	}
}

// maxFallSteps bounds how far an entity slides sideways while looking for a
// resolvable footing during a fall.
const maxFallSteps = 32

// Player is one combatant. Position fields are canvas-down logical pixels;
// Center always sits on a standable surface pixel unless OutOfMap is set.
type Player struct {
	ID   string `msgpack:"id"`
	Name string `msgpack:"name"`

	Center     Point     `msgpack:"center"`
	Direction  Direction `msgpack:"direction"`
	Left       Point     `msgpack:"left"`
	Right      Point     `msgpack:"right"`
	StandAngle float64   `msgpack:"standAngle"` // slope of Left→Right, not direction-relative

	Health    float64 `msgpack:"health"`
	HealthMax float64 `msgpack:"healthMax"`

	Weapon         Weapon  `msgpack:"weapon"`
	WeaponAngle    float64 `msgpack:"weaponAngle"`
	FiringPower    int     `msgpack:"firingPower"`
	RemainingFires int     `msgpack:"remainingFires"`
	Trident        bool    `msgpack:"trident"`
	OperationDone  bool    `msgpack:"operationDone"`
	OutOfMap       bool    `msgpack:"outOfMap"`

	Motion        MotionState `msgpack:"-"`
	motionUntilMs int64
}

// NewPlayer returns an entity with full health, aim at the middle of its
// weapon's range and one shot available. Its footing is unresolved until
// Settle or LocateAt succeeds.
func NewPlayer(id, name string, dir Direction, healthMax float64, w Weapon) *Player {
	return &Player{
		ID:             id,
		Name:           name,
		Direction:      dir,
		Health:         healthMax,
		HealthMax:      healthMax,
		Weapon:         w,
		WeaponAngle:    math.Floor(w.AngleRange / 2),
		RemainingFires: 1,
		OperationDone:  true,
	}
}

// Alive reports whether the entity can still take turns.
func (p *Player) Alive() bool {
	return p.Health > 0 && !p.OutOfMap
}

// LocateAt places the entity on pt and recomputes its contact points and
// stand angle. On failure the previous footing is kept.
func (p *Player) LocateAt(t *Terrain, pt Point, cfg Config) error {
	left, right, err := t.ContactPoints(pt, cfg.BoxLength)
	if err != nil {
		return fmt.Errorf("entity %s at %s: %w", p.ID, pt, err)
	}
	p.Center = pt
	p.Left = left
	p.Right = right
	p.StandAngle = AngleBetween(left, right, float64(t.Height()))
	p.OutOfMap = false
	return nil
}

// Settle drops the entity from pt onto the first surface below it.
func (p *Player) Settle(t *Terrain, pt Point, cfg Config) error {
	ground, ok := t.FirstSurfaceBelow(pt.X, pt.Y)
	if !ok {
		p.Center = pt
		p.OutOfMap = true
		return nil
	}
	return p.LocateAt(t, ground, cfg)
}

// Reposition re-resolves footing straight below the current center, used
// after the ground under the entity may have been carved away.
func (p *Player) Reposition(t *Terrain, cfg Config) error {
	ground, ok := t.FirstSurfaceBelow(p.Center.X, p.Center.Y)
	if !ok {
		p.OutOfMap = true
		return nil
	}
	return p.LocateAt(t, ground, cfg)
}

// RelativeStandAngle is the slope as seen in the facing direction.
func (p *Player) RelativeStandAngle() float64 {
	if p.Direction == Left {
		return -p.StandAngle
	}
	return p.StandAngle
}

// LaunchAngle is the firing angle in degrees, Cartesian-up, 0 pointing right.
func (p *Player) LaunchAngle() float64 {
	a := p.RelativeStandAngle() + p.WeaponAngle
	if p.Direction == Left {
		return 180 - a
	}
	return a
}

// LaunchPoint is where projectiles leave the entity.
func (p *Player) LaunchPoint(cfg Config) Point {
	return Point{X: p.Center.X, Y: p.Center.Y - float64(cfg.BoxLength)}
}

// AdjustAim changes the weapon angle, clamped to the weapon's range.
func (p *Player) AdjustAim(delta float64) {
	p.WeaponAngle = clampF(p.WeaponAngle+delta, 0, p.Weapon.AngleRange)
}

// ChargePower adds one point of firing power, wrapping from 100 back to 0.
func (p *Player) ChargePower() {
	p.FiringPower++
	if p.FiringPower > 100 {
		p.FiringPower = 0
	}
}

func (p *Player) leading() Point {
	if p.Direction == Left {
		return p.Left
	}
	return p.Right
}

func (p *Player) trailing() Point {
	if p.Direction == Left {
		return p.Right
	}
	return p.Left
}

// ahead returns how far x is in front of the center along the facing.
func (p *Player) ahead(x float64) float64 {
	if p.Direction == Left {
		return p.Center.X - x
	}
	return x - p.Center.X
}

// climbRun is the horizontal run, in pixels, over which the slope at the
// leading contact is measured.
const climbRun = 4

// IsBlocked reports whether a step in the facing direction is impossible:
// the ground ahead rises past the climb limit, either from the center to the
// leading contact or right at the leading contact. The second measure uses
// the full column height, so a slope that leaves the top of the box still
// counts at its real angle.
func (p *Player) IsBlocked(t *Terrain, cfg Config) bool {
	if p.Left.X == p.Right.X {
		return true
	}
	lead := p.leading()
	dx := p.ahead(lead.X)
	rise := p.Center.Y - lead.Y
	if rise > 0 && dx <= 0 {
		return true
	}
	if rise > 0 && Degrees(math.Atan2(rise, dx)) > cfg.MaxClimbAngle {
		return true
	}
	return p.leadSlope(t, cfg) > cfg.MaxClimbAngle
}

// leadSlope is the climb angle over the last climbRun columns before the
// leading contact, in degrees. Falling ground reads as negative.
func (p *Player) leadSlope(t *Terrain, cfg Config) float64 {
	lead := p.leading()
	// Contact points sit one pixel right of and below their pixel.
	col, row := lead.X-1, lead.Y-1
	back := col - climbRun
	if p.Direction == Left {
		back = col + climbRun
	}
	reach := 2 * cfg.BoxLength
	top, ok := t.ColumnTop(col, row, reach)
	if !ok {
		return 0
	}
	behind, ok := t.ColumnTop(back, row, reach)
	if !ok {
		return 0
	}
	return Degrees(math.Atan2(behind-top, climbRun))
}

// WillFall reports whether the ground ends just in front of the entity.
func (p *Player) WillFall(cfg Config) bool {
	if p.Left.X == p.Right.X {
		return p.ahead(p.Left.X) <= 0
	}
	return p.ahead(p.leading().X) <= cfg.FallEdgeMargin
}

// Move attempts one step in dir.
func (p *Player) Move(t *Terrain, dir Direction, cfg Config) (MoveResult, error) {
	p.Direction = dir
	if p.IsBlocked(t, cfg) {
		return MoveBlocked, nil
	}
	if p.WillFall(cfg) {
		return p.Fall(t, cfg)
	}
	lead, trail := p.leading(), p.trailing()
	if err := p.LocateAt(t, lead, cfg); err != nil {
		// The next position would be degenerate; the current slope decides.
		if lead.Y > trail.Y {
			return p.Fall(t, cfg)
		}
		return MoveBlocked, nil
	}
	return MoveStepped, nil
}

// Fall slides FallStep in the facing direction and drops onto the first
// surface below. It keeps sliding while the landing spot is unresolvable.
func (p *Player) Fall(t *Terrain, cfg Config) (MoveResult, error) {
	step := cfg.FallStep
	if p.Direction == Left {
		step = -step
	}
	x := p.Center.X
	var lastErr error
	for i := 0; i < maxFallSteps; i++ {
		x += step
		ground, ok := t.FirstSurfaceBelow(x, p.Center.Y)
		if !ok {
			p.Center = Point{X: x, Y: p.Center.Y}
			p.OutOfMap = true
			return MoveOutOfMap, nil
		}
		if err := p.LocateAt(t, ground, cfg); err != nil {
			lastErr = err
			continue
		}
		return MoveFell, nil
	}
	return MoveBlocked, lastErr
}

// BeginMotion puts the entity into a timed motion state.
func (p *Player) BeginMotion(m MotionState, nowMs, durationMs int64) {
	p.Motion = m
	p.motionUntilMs = nowMs + durationMs
}

// TickMotion returns the entity to idle once its motion has elapsed.
func (p *Player) TickMotion(nowMs int64) {
	if p.Motion != MotionIdle && nowMs >= p.motionUntilMs {
		p.Motion = MotionIdle
	}
}
