package balance

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/darionyaphet/nebula-storage/internal/log"
)

// LeaderTransfer is one entry of a LeaderBalancePlan: a purely advisory
// (space, part, from, to) tuple whose execution is a single TransLeader
// RPC, with no state machine.
type LeaderTransfer struct {
	SpaceID GraphSpaceID
	PartID  PartitionID
	From    HostAddr
	To      HostAddr
}

// LeaderBalancePlan is the ordered list of transfers a leader-balance
// pass produces.
type LeaderBalancePlan []LeaderTransfer

// hostBounds is a host's target leader-count window.
type hostBounds struct {
	lower int
	upper int
}

// LeaderBalancer computes leader-handoff plans: it equalizes Raft
// leadership, not data location, across the hosts holding a space's
// partitions.
type LeaderBalancer struct {
	SpaceID GraphSpaceID
	Props   SpaceProperties
	Topo    *Topology

	// UseDeviation selects the bound formula: ±ceil(P*deviation/H) when
	// true, else a flat ±1.
	UseDeviation bool
	Deviation    float64

	// MaxPasses bounds the fixed-point iteration; convergence isn't
	// guaranteed when the deviation window is zero.
	MaxPasses int

	lastDeviation int

	logger zerolog.Logger
}

// LastDeviation returns the number of hosts left outside their
// [lowerBound, upperBound] leader-count window after the most recent
// BuildLeaderBalancePlan call: the score callers report on the
// balancer_leader_deviation_hosts gauge.
func (b *LeaderBalancer) LastDeviation() int {
	return b.lastDeviation
}

// NewLeaderBalancer builds a LeaderBalancer with the default 3-pass cap.
func NewLeaderBalancer(props SpaceProperties, topo *Topology, useDeviation bool, deviation float64) *LeaderBalancer {
	return &LeaderBalancer{
		SpaceID:      props.SpaceID,
		Props:        props,
		Topo:         topo,
		UseDeviation: useDeviation,
		Deviation:    deviation,
		MaxPasses:    3,
		logger:       log.WithComponent("leaderbalancer"),
	}
}

// calculateHostBounds computes each host's (lowerBound, upperBound)
// leader-count window.
func (b *LeaderBalancer) calculateHostBounds(activeHosts []HostAddr) map[HostAddr]hostBounds {
	p := float64(b.Props.PartitionNum)
	h := len(activeHosts)
	bounds := make(map[HostAddr]hostBounds, h)
	if h == 0 {
		return bounds
	}

	ideal := p / float64(h)
	var dev int
	if b.UseDeviation {
		dev = int(math.Ceil(p * b.Deviation / float64(h)))
	} else {
		dev = 1
	}

	idealFloor := int(math.Floor(ideal))
	for _, host := range activeHosts {
		bounds[host] = hostBounds{lower: idealFloor - dev, upper: idealFloor + dev}
	}
	return bounds
}

// peersMap builds PartitionID -> replica hosts from the placement map.
func peersMap(placement HostParts) map[PartitionID][]HostAddr {
	out := make(map[PartitionID][]HostAddr)
	for h, parts := range placement {
		for _, p := range parts {
			out[p] = append(out[p], h)
		}
	}
	return out
}

// leaderCount derives the current leader count per host from a
// HostLeaderMap for this space.
func (b *LeaderBalancer) leaderCount(dist HostLeaderMap) map[HostAddr]int {
	out := make(map[HostAddr]int)
	for h, bySpace := range dist {
		out[h] = len(bySpace[b.SpaceID])
	}
	return out
}

// BuildLeaderBalancePlan runs up to MaxPasses iterations of give-up /
// acquire leader reassignment, each continuing from the leader counts the
// previous pass left, and returns the transfers of every pass that lowered
// the imbalance score, combined and simplified.
func (b *LeaderBalancer) BuildLeaderBalancePlan(placement HostParts, activeHosts []HostAddr, dist HostLeaderMap, zp ZoneParts) LeaderBalancePlan {
	b.Topo.RLock()
	defer b.Topo.RUnlock()

	peers := peersMap(placement)
	bounds := b.calculateHostBounds(activeHosts)
	counts := b.leaderCount(dist)
	leaderOf := make(map[PartitionID]HostAddr, len(peers))
	for h, bySpace := range dist {
		for _, part := range bySpace[b.SpaceID] {
			leaderOf[part] = h
		}
	}

	var best LeaderBalancePlan
	bestImbalance := deviationScore(counts, bounds)

	for pass := 0; pass < b.MaxPasses; pass++ {
		plan := b.onePass(peers, bounds, counts, leaderOf, zp)
		if len(plan) == 0 {
			break
		}
		applyPlan(plan, counts, leaderOf)
		imbalance := deviationScore(counts, bounds)
		if best == nil || imbalance < bestImbalance {
			best = append(best, plan...)
			bestImbalance = imbalance
		}
		if imbalance == 0 {
			break
		}
	}

	outside := 0
	for h, bd := range bounds {
		if c := counts[h]; c < bd.lower || c > bd.upper {
			outside++
		}
	}
	b.lastDeviation = outside
	return simplifyLeaderBalancePlan(best)
}

func deviationScore(counts map[HostAddr]int, bounds map[HostAddr]hostBounds) int {
	score := 0
	for h, b := range bounds {
		c := counts[h]
		if c > b.upper {
			score += c - b.upper
		} else if c < b.lower {
			score += b.lower - c
		}
	}
	return score
}

func applyPlan(plan LeaderBalancePlan, counts map[HostAddr]int, leaderOf map[PartitionID]HostAddr) {
	for _, t := range plan {
		counts[t.From]--
		counts[t.To]++
		leaderOf[t.PartID] = t.To
	}
}

// onePass performs one give-up/acquire sweep: hosts above upperBound
// give up leaders to peers below lowerBound; hosts below lowerBound
// acquire from peers above upperBound.
func (b *LeaderBalancer) onePass(peers map[PartitionID][]HostAddr, bounds map[HostAddr]hostBounds, counts map[HostAddr]int, leaderOf map[PartitionID]HostAddr, zp ZoneParts) LeaderBalancePlan {
	var plan LeaderBalancePlan
	spaceID := b.SpaceID

	hosts := make([]HostAddr, 0, len(bounds))
	for h := range bounds {
		hosts = append(hosts, h)
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Less(hosts[j]) })

	workingCounts := make(map[HostAddr]int, len(counts))
	for h, c := range counts {
		workingCounts[h] = c
	}

	for _, host := range hosts {
		b := bounds[host]
		for workingCounts[host] > b.upper {
			part, ok := pickLeaderOf(host, leaderOf)
			if !ok {
				break
			}
			dst, ok := pickAcquirer(peers[part], host, bounds, workingCounts, zp, part)
			if !ok {
				break
			}
			plan = append(plan, LeaderTransfer{SpaceID: spaceID, PartID: part, From: host, To: dst})
			workingCounts[host]--
			workingCounts[dst]++
			leaderOf[part] = dst
		}
	}

	for _, host := range hosts {
		b := bounds[host]
		for workingCounts[host] < b.lower {
			part, dst, ok := pickGiver(host, peers, leaderOf, bounds, workingCounts, zp)
			if !ok {
				break
			}
			plan = append(plan, LeaderTransfer{SpaceID: spaceID, PartID: part, From: dst, To: host})
			workingCounts[dst]--
			workingCounts[host]++
			leaderOf[part] = host
		}
	}

	return plan
}

func pickLeaderOf(host HostAddr, leaderOf map[PartitionID]HostAddr) (PartitionID, bool) {
	for part, h := range leaderOf {
		if h == host {
			return part, true
		}
	}
	return 0, false
}

func pickAcquirer(candidates []HostAddr, from HostAddr, bounds map[HostAddr]hostBounds, counts map[HostAddr]int, zp ZoneParts, part PartitionID) (HostAddr, bool) {
	best := -1
	var chosen HostAddr
	found := false
	for _, h := range candidates {
		if h == from {
			continue
		}
		b, ok := bounds[h]
		if !ok || counts[h] >= b.lower {
			continue
		}
		if zp != nil && !checkZoneLegal(zp, from, h, part) {
			continue
		}
		if best == -1 || counts[h] < best {
			best = counts[h]
			chosen = h
			found = true
		}
	}
	return chosen, found
}

func pickGiver(host HostAddr, peers map[PartitionID][]HostAddr, leaderOf map[PartitionID]HostAddr, bounds map[HostAddr]hostBounds, counts map[HostAddr]int, zp ZoneParts) (PartitionID, HostAddr, bool) {
	for part, replicas := range peers {
		if !containsHost(replicas, host) {
			continue
		}
		giver, ok := leaderOf[part]
		if !ok || giver == host {
			continue
		}
		b, ok := bounds[giver]
		if !ok || counts[giver] <= b.upper {
			continue
		}
		if zp != nil && !checkZoneLegal(zp, giver, host, part) {
			continue
		}
		return part, giver, true
	}
	return 0, HostAddr{}, false
}

func containsHost(hosts []HostAddr, h HostAddr) bool {
	for _, x := range hosts {
		if x == h {
			return true
		}
	}
	return false
}

// simplifyLeaderBalancePlan cancels a->b entries with a later b->a on
// the same partition, and compresses chains a->b, b->c into a->c.
func simplifyLeaderBalancePlan(plan LeaderBalancePlan) LeaderBalancePlan {
	byPart := make(map[PartitionID][]int)
	for i, t := range plan {
		byPart[t.PartID] = append(byPart[t.PartID], i)
	}

	var out LeaderBalancePlan
	for part, idxs := range byPart {
		chain := make([]LeaderTransfer, len(idxs))
		for i, idx := range idxs {
			chain[i] = plan[idx]
		}
		out = append(out, compressChain(part, chain)...)
	}
	return out
}

// compressChain folds a sequence of transfers for one partition down to
// the minimal set of net moves: cancel direct reversals and collapse
// multi-hop chains to a single hop from the first source to the final
// destination.
func compressChain(part PartitionID, chain []LeaderTransfer) LeaderBalancePlan {
	if len(chain) == 0 {
		return nil
	}
	from := chain[0].From
	to := chain[len(chain)-1].To
	space := chain[0].SpaceID
	if from == to {
		return nil
	}
	return LeaderBalancePlan{{SpaceID: space, PartID: part, From: from, To: to}}
}
