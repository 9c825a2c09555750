// Package balance redistributes stores among clusters so every cluster's size
// lands inside a configured band, trading a bounded amount of cluster quality
// for the operational constraint. The procedure is a deterministic greedy
// heuristic: worst offender first, centroids recomputed in batches.
package balance

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config bounds cluster sizes and tunes the move loop.
type Config struct {
	TargetSize int
	MinSize    int
	MaxSize    int

	// RecomputeBatch is how many moves may happen between full centroid
	// recomputations. Centroids are allowed to go stale inside a batch.
	RecomputeBatch int
}

// DefaultConfig returns the default balancing configuration.
func DefaultConfig() Config {
	return Config{
		TargetSize:     50,
		MinSize:        50,
		MaxSize:        50,
		RecomputeBatch: 25,
	}
}

func (c Config) validate() error {
	if c.TargetSize <= 0 {
		return fmt.Errorf("balance: target size must be positive, got %d", c.TargetSize)
	}
	if c.MinSize <= 0 || c.MaxSize < c.MinSize {
		return fmt.Errorf("balance: invalid size band [%d, %d]", c.MinSize, c.MaxSize)
	}
	if c.TargetSize < c.MinSize || c.TargetSize > c.MaxSize {
		return fmt.Errorf("balance: target size %d outside band [%d, %d]",
			c.TargetSize, c.MinSize, c.MaxSize)
	}
	return nil
}

// Result describes the balanced partition and what it cost to reach it.
type Result struct {
	// Labels holds one contiguous cluster label per input row.
	Labels []int

	// Sizes holds the member count per final cluster.
	Sizes []int

	// Undersized lists final cluster ids below MinSize; at most one.
	Undersized []int

	// Moves is the number of store relocations performed.
	Moves int

	// Removed is the number of clusters dissolved to avoid leaving more
	// than one under-sized cluster.
	Removed int

	// Created is the number of overflow clusters opened when every
	// existing cluster was already at capacity.
	Created int
}

// Balancer rebalances an initial partition into the configured size band.
type Balancer struct {
	cfg    Config
	logger zerolog.Logger
}

// New builds a Balancer, validating the configuration.
func New(cfg Config) (*Balancer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RecomputeBatch <= 0 {
		cfg.RecomputeBatch = DefaultConfig().RecomputeBatch
	}
	return &Balancer{
		cfg:    cfg,
		logger: log.With().Str("component", "balance").Logger(),
	}, nil
}

// group is mutable working state for one cluster.
type group struct {
	id       int
	members  []int // indices into points, ascending
	centroid []float64
}

// Balance moves stores between the clusters described by labels until every
// cluster size lies in [MinSize, MaxSize], except at most one remainder
// cluster which may stay below MinSize. No store is dropped or duplicated and
// no cluster is left empty. Given identical points, labels, and configuration
// the result is identical.
func (b *Balancer) Balance(points [][]float64, labels []int) (*Result, error) {
	if len(points) != len(labels) {
		return nil, fmt.Errorf("balance: %d points but %d labels", len(points), len(labels))
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("balance: no points")
	}

	groups := buildGroups(points, labels)
	res := &Result{}

	b.shedOverflow(points, groups, res)
	recompute(points, groups)
	b.dissolveUndersized(points, groups, res)

	b.finish(points, groups, res)
	return res, nil
}

// shedOverflow empties every cluster above MaxSize one member at a time:
// worst offender first, farthest member out, nearest cluster with spare
// capacity in. When no cluster can receive, a fresh overflow cluster is
// opened; the last one opened ends up absorbing the true remainder.
func (b *Balancer) shedOverflow(points [][]float64, groups *groupSet, res *Result) {
	sinceRecompute := 0
	// Each move shrinks total overflow by one, so len(points) bounds the loop.
	for moves := 0; moves <= len(points); moves++ {
		off := b.pickOffender(points, groups)
		if off == nil {
			return
		}
		mi := farthestMember(points, off)

		recv := b.pickReceiver(points, groups, off)
		if recv == nil {
			recv = groups.add(points[mi])
			res.Created++
			b.logger.Debug().Int("cluster", recv.id).Msg("opened overflow cluster")
		}

		off.remove(mi)
		recv.insert(mi)
		res.Moves++
		sinceRecompute++
		if sinceRecompute >= b.cfg.RecomputeBatch {
			recompute(points, groups)
			sinceRecompute = 0
		}
	}
}

// pickOffender returns the cluster to fix next: largest size above MaxSize,
// ties broken by the larger farthest-member distance, then by lower id.
func (b *Balancer) pickOffender(points [][]float64, groups *groupSet) *group {
	var worst *group
	worstDist := -1.0
	for _, g := range groups.ordered() {
		if len(g.members) <= b.cfg.MaxSize {
			continue
		}
		if worst == nil || len(g.members) > len(worst.members) {
			worst = g
			worstDist = memberDistance(points, g, farthestMember(points, g))
			continue
		}
		if len(g.members) == len(worst.members) {
			if d := memberDistance(points, g, farthestMember(points, g)); d > worstDist {
				worst = g
				worstDist = d
			}
		}
	}
	return worst
}

// pickReceiver returns the nearest cluster with spare capacity, preferring
// clusters still below MinSize over merely non-full ones.
func (b *Balancer) pickReceiver(points [][]float64, groups *groupSet, off *group) *group {
	mi := farthestMember(points, off)
	var underMin, underMax *group
	underMinDist, underMaxDist := math.MaxFloat64, math.MaxFloat64
	for _, g := range groups.ordered() {
		if g == off || len(g.members) >= b.cfg.MaxSize {
			continue
		}
		d := squaredDistance(points[mi], g.centroid)
		if len(g.members) < b.cfg.MinSize {
			if d < underMinDist {
				underMin, underMinDist = g, d
			}
		} else if d < underMaxDist {
			underMax, underMaxDist = g, d
		}
	}
	if underMin != nil {
		return underMin
	}
	return underMax
}

// dissolveUndersized removes clusters below MinSize until at most one
// remains, smallest first, scattering their members to the nearest clusters
// that still have room. The survivor is the cohort's remainder cluster.
func (b *Balancer) dissolveUndersized(points [][]float64, groups *groupSet, res *Result) {
	for {
		under := groups.below(b.cfg.MinSize)
		if len(under) <= 1 {
			return
		}
		// Smallest first; under is id-ordered so ties pick the lower id.
		sort.SliceStable(under, func(i, j int) bool {
			return len(under[i].members) < len(under[j].members)
		})
		victim := under[0]

		for len(victim.members) > 0 {
			mi := victim.members[len(victim.members)-1]
			recv := b.nearestWithRoom(points, groups, victim, mi)
			if recv == nil {
				// Every other cluster is at capacity, which means none
				// of them is under-sized: the partially drained victim
				// is the cohort's remainder cluster.
				return
			}
			victim.remove(mi)
			recv.insert(mi)
			res.Moves++
		}
		groups.drop(victim)
		res.Removed++
		recompute(points, groups)
		b.logger.Debug().Int("cluster", victim.id).Msg("dissolved undersized cluster")
	}
}

func (b *Balancer) nearestWithRoom(points [][]float64, groups *groupSet, skip *group, mi int) *group {
	var best *group
	bestDist := math.MaxFloat64
	for _, g := range groups.ordered() {
		if g == skip || len(g.members) >= b.cfg.MaxSize {
			continue
		}
		if d := squaredDistance(points[mi], g.centroid); d < bestDist {
			best, bestDist = g, d
		}
	}
	return best
}

// finish relabels clusters contiguously in id order and fills the result.
func (b *Balancer) finish(points [][]float64, groups *groupSet, res *Result) {
	ordered := groups.ordered()
	res.Labels = make([]int, len(points))
	res.Sizes = make([]int, len(ordered))
	for next, g := range ordered {
		res.Sizes[next] = len(g.members)
		for _, mi := range g.members {
			res.Labels[mi] = next
		}
		if len(g.members) < b.cfg.MinSize {
			res.Undersized = append(res.Undersized, next)
		}
	}
	b.logger.Info().
		Int("clusters", len(ordered)).
		Int("moves", res.Moves).
		Int("removed", res.Removed).
		Int("created", res.Created).
		Ints("undersized", res.Undersized).
		Msg("balanced partition")
}

// groupSet keeps clusters in deterministic id order.
type groupSet struct {
	byID   map[int]*group
	ids    []int // ascending
	nextID int
	dims   int
}

func buildGroups(points [][]float64, labels []int) *groupSet {
	gs := &groupSet{byID: make(map[int]*group), dims: len(points[0])}
	for i, l := range labels {
		g, ok := gs.byID[l]
		if !ok {
			g = &group{id: l}
			gs.byID[l] = g
			gs.ids = append(gs.ids, l)
		}
		g.members = append(g.members, i)
	}
	sort.Ints(gs.ids)
	for _, id := range gs.ids {
		sort.Ints(gs.byID[id].members)
		if id >= gs.nextID {
			gs.nextID = id + 1
		}
	}
	recompute(points, gs)
	return gs
}

func (gs *groupSet) ordered() []*group {
	out := make([]*group, len(gs.ids))
	for i, id := range gs.ids {
		out[i] = gs.byID[id]
	}
	return out
}

func (gs *groupSet) below(size int) []*group {
	var out []*group
	for _, g := range gs.ordered() {
		if len(g.members) < size {
			out = append(out, g)
		}
	}
	return out
}

func (gs *groupSet) add(seed []float64) *group {
	g := &group{id: gs.nextID, centroid: append([]float64(nil), seed...)}
	gs.byID[g.id] = g
	gs.ids = append(gs.ids, g.id)
	gs.nextID++
	return g
}

func (gs *groupSet) drop(g *group) {
	delete(gs.byID, g.id)
	for i, id := range gs.ids {
		if id == g.id {
			gs.ids = append(gs.ids[:i], gs.ids[i+1:]...)
			break
		}
	}
}

func (g *group) insert(mi int) {
	at := sort.SearchInts(g.members, mi)
	g.members = append(g.members, 0)
	copy(g.members[at+1:], g.members[at:])
	g.members[at] = mi
}

func (g *group) remove(mi int) {
	at := sort.SearchInts(g.members, mi)
	g.members = append(g.members[:at], g.members[at+1:]...)
}

func recompute(points [][]float64, gs *groupSet) {
	for _, g := range gs.ordered() {
		if len(g.members) == 0 {
			continue
		}
		if g.centroid == nil {
			g.centroid = make([]float64, gs.dims)
		}
		for d := range g.centroid {
			g.centroid[d] = 0
		}
		for _, mi := range g.members {
			for d, v := range points[mi] {
				g.centroid[d] += v
			}
		}
		for d := range g.centroid {
			g.centroid[d] /= float64(len(g.members))
		}
	}
}

func farthestMember(points [][]float64, g *group) int {
	worst, worstDist := g.members[0], -1.0
	for _, mi := range g.members {
		if d := squaredDistance(points[mi], g.centroid); d > worstDist {
			worst, worstDist = mi, d
		}
	}
	return worst
}

func memberDistance(points [][]float64, g *group, mi int) float64 {
	return squaredDistance(points[mi], g.centroid)
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
