package game

import "fmt"

// DesyncReason records one inbound event that could not be applied.
type DesyncReason struct {
	Kind     EventKind
	EntityID string
	Detail   string
}

// ResyncSignal is handed out once per detected desync episode.
type ResyncSignal struct {
	Dropped     uint64
	TotalEvents uint64
	Reasons     []DesyncReason
}

func (s ResyncSignal) Summary() string {
	if s.Dropped == 0 && s.TotalEvents == 0 {
		return ""
	}
	return fmt.Sprintf("dropped=%d total_events=%d reasons=%v", s.Dropped, s.TotalEvents, s.Reasons)
}

const resyncReasonLimit = 8

// resyncPolicy counts dropped inbound events and raises a single pending
// signal until it is consumed, so a burst of bad events yields one resync
// request. Requested stays set until the reconnect-sync arrives.
type resyncPolicy struct {
	totalEvents uint64
	dropped     uint64
	pending     bool
	requested   bool
	reasons     []DesyncReason
}

func newResyncPolicy() *resyncPolicy {
	return &resyncPolicy{reasons: make([]DesyncReason, 0, resyncReasonLimit)}
}

func (p *resyncPolicy) noteEvent() {
	if p.totalEvents == ^uint64(0) {
		p.totalEvents /= 2
		p.dropped /= 2
	}
	p.totalEvents++
}

func (p *resyncPolicy) noteDropped(kind EventKind, entityID, detail string) {
	p.dropped++
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, DesyncReason{Kind: kind, EntityID: entityID, Detail: detail})
	}
	if !p.requested {
		p.pending = true
	}
}

func (p *resyncPolicy) consume() (ResyncSignal, bool) {
	if !p.pending {
		return ResyncSignal{}, false
	}
	sig := ResyncSignal{
		Dropped:     p.dropped,
		TotalEvents: p.totalEvents,
		Reasons:     append([]DesyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.requested = true
	p.totalEvents = 0
	p.dropped = 0
	p.reasons = p.reasons[:0]
	return sig, true
}

// resolved clears the outstanding request after a reconnect-sync.
func (p *resyncPolicy) resolved() {
	p.requested = false
	p.pending = false
}
