package game

import "errors"

var (
	// ErrUnresolvablePosition is returned when the terrain around a point
	// cannot yield distinct left and right contact points (slope too steep
	// for the sample box, or no surface at all).
	ErrUnresolvablePosition = errors.New("unresolvable position")

	// ErrUnknownEntity means an event referenced an entity not in the roster.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrNotActive means the entity is not the current turn owner.
	ErrNotActive = errors.New("entity is not the turn owner")

	// ErrDisconnected is returned for local input while the link is down.
	ErrDisconnected = errors.New("disconnected")

	// ErrOperationPending means the turn owner already fired this turn and
	// the volley has not resolved.
	ErrOperationPending = errors.New("operation pending")

	// ErrUnknownVariant is returned when a map has no terrain for a variant.
	ErrUnknownVariant = errors.New("unknown terrain variant")

	// ErrUnknownSkill is returned for skill names the core does not know.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrMatchOver is returned for input after a winner has been decided.
	ErrMatchOver = errors.New("match over")
)
