package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/Garsondee/Crater-Duel/internal/game"
)

type options struct {
	mapID     string
	variant   string
	turns     int
	latencyMs int64
	trident   bool
	extraShot bool
}

type runStats struct {
	runIndex int
	seed     int64

	turns     int
	launches  int
	impacts   int
	oob       int
	endMs     int64
	converged bool
	checksums []uint64

	desyncs  int
	resyncs  int
	over     bool
	winnerID string

	shots map[string]int
	hits  map[string]int
}

var errStalled = errors.New("duel stalled")

func main() {
	var o options
	var runs int
	var seedBase int64
	var seedStep int64

	flag.IntVar(&runs, "runs", 5, "number of headless duels")
	flag.IntVar(&o.turns, "turns", 8, "turns per duel")
	flag.Int64Var(&seedBase, "seed-base", 42, "base seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&o.mapID, "map", "ridgeline", "map id")
	flag.StringVar(&o.variant, "variant", "", "terrain variant")
	flag.Int64Var(&o.latencyMs, "latency", 300, "extra delivery delay for the second peer in ms")
	flag.BoolVar(&o.trident, "trident", true, "use the trident skill on even turns")
	flag.BoolVar(&o.extraShot, "extra-shot", false, "use the +1 skill on odd turns")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if o.turns <= 0 {
		fmt.Println("error: -turns must be > 0")
		return
	}

	fmt.Printf("=== Volley Determinism Report ===\n")
	fmt.Printf("map=%s runs=%d turns=%d latency=%dms trident=%t extra_shot=%t seed_base=%d seed_step=%d\n\n",
		o.mapID, runs, o.turns, o.latencyMs, o.trident, o.extraShot, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		rs, err := runDuel(o, i+1, seed)
		if err != nil {
			fmt.Printf("--- Run %d (seed=%d) failed: %v ---\n\n", i+1, seed, err)
			continue
		}
		all = append(all, rs)
		printRun(rs)
	}
	printAggregate(all)
}

// runDuel plays o.turns turns between two peers, the second one lagging by
// o.latencyMs, with aim and power drawn from seed.
func runDuel(o options, runIndex int, seed int64) (runStats, error) {
	td, err := game.NewTestDuel(
		game.WithMap(o.mapID),
		game.WithVariant(o.variant),
		game.WithSeed(seed),
		game.WithPeer("p1", 0),
		game.WithPeer("p2", o.latencyMs),
	)
	if err != nil {
		return runStats{}, err
	}
	rng := rand.New(rand.NewSource(seed))

	rs := runStats{runIndex: runIndex, seed: seed}
	for turn := 0; turn < o.turns; turn++ {
		if td.RunUntil(settled, 60_000) < 0 {
			return rs, fmt.Errorf("turn %d: %w", turn+1, errStalled)
		}
		if allOver(td) {
			break
		}
		active := td.Peers[0].Match.Roster().ActiveID
		peer := td.Peer(active)
		if peer == nil {
			return rs, fmt.Errorf("turn %d: no peer for %q", turn+1, active)
		}
		skill := ""
		switch {
		case o.trident && turn%2 == 0:
			skill = game.SkillTrident
		case o.extraShot && turn%2 == 1:
			skill = game.SkillExtraShot
		}
		if err := takeShot(td, peer, skill, rng); err != nil {
			return rs, fmt.Errorf("turn %d: %w", turn+1, err)
		}
		rs.turns++
	}
	if td.RunUntil(settled, 60_000) < 0 {
		return rs, fmt.Errorf("final volley: %w", errStalled)
	}
	collect(&rs, td)
	return rs, nil
}

// takeShot aims, charges and fires from the turn owner's own peer.
func takeShot(td *game.TestDuel, peer *game.DuelPeer, skill string, rng *rand.Rand) error {
	m := peer.Match
	p := m.Roster().Client()
	if skill != "" {
		fires := p.RemainingFires
		if err := m.RequestSkill(skill); err != nil {
			return fmt.Errorf("skill %s: %w", skill, err)
		}
		// The skill applies on its echo, which a lagging peer hears late.
		applied := func(*game.TestDuel) bool { return p.Trident || p.RemainingFires > fires }
		if td.RunUntil(applied, 10_000) < 0 {
			return fmt.Errorf("skill %s: %w", skill, errStalled)
		}
	}
	aim := 10 + rng.Float64()*(p.Weapon.AngleRange-10)
	power := 35 + rng.Intn(45)
	if err := m.AdjustAim(aim - p.WeaponAngle); err != nil {
		return fmt.Errorf("aim: %w", err)
	}
	for p.FiringPower < power {
		if err := m.ChargePower(); err != nil {
			return fmt.Errorf("charge: %w", err)
		}
	}
	if err := m.RequestFire(); err != nil {
		return fmt.Errorf("fire: %w", err)
	}
	return nil
}

func settled(td *game.TestDuel) bool {
	if allOver(td) {
		return true
	}
	if !td.Quiet() {
		return false
	}
	ref := td.Peers[0].Match.Roster().ActiveID
	for _, p := range td.Peers[1:] {
		if p.Match.Roster().ActiveID != ref {
			return false
		}
	}
	return true
}

func allOver(td *game.TestDuel) bool {
	for _, p := range td.Peers {
		if _, over := p.Match.Over(); !over {
			return false
		}
	}
	return true
}

func collect(rs *runStats, td *game.TestDuel) {
	ref := td.Peers[0]
	rs.endMs = td.NowMs
	rs.converged = td.Converged()
	rs.checksums = td.Checksums()
	rs.impacts = len(ref.Match.Terrain().Impacts())
	rs.launches = ref.Journal.CountCategory("volley", "launch")
	rs.oob = ref.Journal.CountCategory("impact", "out-of-bounds")
	rs.winnerID, rs.over = ref.Match.Over()
	for _, p := range td.Peers {
		rs.desyncs += p.Journal.CountCategory("desync", "") - p.Journal.CountCategory("desync", "resync-request")
		for _, ev := range p.Sent {
			if ev.Kind == game.KindResyncRequest {
				rs.resyncs++
			}
		}
	}
	rs.shots = map[string]int{}
	rs.hits = map[string]int{}
	for _, pl := range ref.Match.Roster().All() {
		s := ref.Match.Stats().For(pl.ID)
		rs.shots[pl.ID] = s.Shots
		rs.hits[pl.ID] = s.Hits
	}
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("turns=%d launches=%d impacts=%d out_of_bounds=%d end=%dms\n",
		rs.turns, rs.launches, rs.impacts, rs.oob, rs.endMs)
	fmt.Printf("converged=%t checksums=%s desyncs=%d resync_requests=%d\n",
		rs.converged, formatChecksums(rs.checksums), rs.desyncs, rs.resyncs)
	if rs.over {
		fmt.Printf("outcome: %s\n", winnerLabel(rs.winnerID))
	} else {
		fmt.Println("outcome: undecided")
	}
	fmt.Printf("shots/hits: %s\n", joinCounts(rs.shots, rs.hits))
	fmt.Println()
}

func printAggregate(all []runStats) {
	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d\n", len(all))
	if len(all) == 0 {
		return
	}
	converged, desyncs, resyncs, impacts, decided := 0, 0, 0, 0, 0
	wins := map[string]int{}
	for _, rs := range all {
		if rs.converged {
			converged++
		}
		desyncs += rs.desyncs
		resyncs += rs.resyncs
		impacts += rs.impacts
		if rs.over {
			decided++
			wins[winnerLabel(rs.winnerID)]++
		}
	}
	fmt.Printf("converged=%d/%d desyncs=%d resync_requests=%d\n", converged, len(all), desyncs, resyncs)
	fmt.Printf("avg_impacts_per_run=%.1f decided=%d/%d\n", avg(impacts, len(all)), decided, len(all))
	fmt.Printf("wins: %s\n", joinWins(wins))
}

func winnerLabel(id string) string {
	if id == "" {
		return "nobody survived"
	}
	return id + " wins"
}

func formatChecksums(sums []uint64) string {
	parts := make([]string, len(sums))
	for i, s := range sums {
		parts[i] = fmt.Sprintf("%016x", s)
	}
	return strings.Join(parts, ",")
}

func joinCounts(shots, hits map[string]int) string {
	ids := make([]string, 0, len(shots))
	for id := range shots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%d/%d", id, shots[id], hits[id])
	}
	return strings.Join(parts, " ")
}

func joinWins(wins map[string]int) string {
	if len(wins) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(wins))
	for k := range wins {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s(%d)", l, wins[l])
	}
	return strings.Join(parts, ",")
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
