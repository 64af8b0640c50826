package game

import (
	"fmt"
	"slices"
	"strings"
)

// MatchLogEntry is one recorded event of a match.
type MatchLogEntry struct {
	Tick     int
	AtMs     int64
	Entity   string  // entity id, or "--" for match-wide events
	Category string  // move, fire, volley, impact, damage, turn, skill, desync, net
	Key      string  // event name within the category
	Value    string
	NumVal   float64
}

// String renders one aligned journal line:
//
//	[T=042 +1234ms] p1       impact   crater           (812,655) r=50
func (e MatchLogEntry) String() string {
	return fmt.Sprintf("[T=%03d +%dms] %-8s %-8s %-16s %s",
		e.Tick, e.AtMs, e.Entity, e.Category, e.Key, e.Value)
}

// MatchLog collects structured events of a match. Unlike Feed (the on-screen
// ring buffer), it is unbounded and machine-readable; tests and the headless
// report read it.
type MatchLog struct {
	entries []MatchLogEntry
	verbose bool
}

// NewMatchLog creates a journal; verbose also keeps AddVerbose entries.
func NewMatchLog(verbose bool) *MatchLog {
	return &MatchLog{verbose: verbose}
}

// Add appends an entry; an empty entity is recorded as "--".
func (ml *MatchLog) Add(tick int, atMs int64, entity, category, key, value string, numVal float64) {
	if entity == "" {
		entity = "--"
	}
	ml.entries = append(ml.entries, MatchLogEntry{
		Tick:     tick,
		AtMs:     atMs,
		Entity:   entity,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose is Add for chatty entries such as per-event network traffic.
func (ml *MatchLog) AddVerbose(tick int, atMs int64, entity, category, key, value string, numVal float64) {
	if !ml.verbose {
		return
	}
	ml.Add(tick, atMs, entity, category, key, value, numVal)
}

func (ml *MatchLog) Entries() []MatchLogEntry {
	return ml.entries
}

// matches reports whether e has the given category, key and value
// substring; empty arguments match anything.
func (e MatchLogEntry) matches(category, key, valueSubstr string) bool {
	return (category == "" || e.Category == category) &&
		(key == "" || e.Key == key) &&
		(valueSubstr == "" || strings.Contains(e.Value, valueSubstr))
}

// Filter selects entries by category and key; an empty argument is a
// wildcard.
func (ml *MatchLog) Filter(category, key string) []MatchLogEntry {
	var out []MatchLogEntry
	for _, e := range ml.entries {
		if e.matches(category, key, "") {
			out = append(out, e)
		}
	}
	return out
}

// FilterEntity selects the entries of one entity; "--" selects match-wide
// entries.
func (ml *MatchLog) FilterEntity(id string) []MatchLogEntry {
	var out []MatchLogEntry
	for _, e := range ml.entries {
		if e.Entity == id {
			out = append(out, e)
		}
	}
	return out
}

func (ml *MatchLog) CountCategory(category, key string) int {
	return len(ml.Filter(category, key))
}

// LastOf returns the newest entry with category and key.
func (ml *MatchLog) LastOf(category, key string) (MatchLogEntry, bool) {
	for i := len(ml.entries) - 1; i >= 0; i-- {
		if ml.entries[i].matches(category, key, "") {
			return ml.entries[i], true
		}
	}
	return MatchLogEntry{}, false
}

// HasEntry reports whether any entry matches category, key and a substring
// of its value.
func (ml *MatchLog) HasEntry(category, key, valueSubstr string) bool {
	return slices.ContainsFunc(ml.entries, func(e MatchLogEntry) bool {
		return e.matches(category, key, valueSubstr)
	})
}

// Format renders the whole journal.
func (ml *MatchLog) Format() string {
	return ml.FormatTail(len(ml.entries))
}

// FormatTail returns the last n entries, one per line.
func (ml *MatchLog) FormatTail(n int) string {
	var sb strings.Builder
	start := max(len(ml.entries)-n, 0)
	for _, e := range ml.entries[start:] {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
