package balance

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/darionyaphet/nebula-storage/internal/log"
)

// DataBalancer generates a set of replica-relocation tasks from a
// space's current placement, its topology, and an optional explicit
// list of lost hosts. Planning runs synchronously on the caller's
// goroutine; only execution (BalancePlan) is concurrent.
type DataBalancer struct {
	JobID   JobID
	SpaceID GraphSpaceID
	Props   SpaceProperties
	Topo    *Topology

	logger zerolog.Logger
}

// NewDataBalancer builds a DataBalancer for one planning pass.
func NewDataBalancer(jobID JobID, props SpaceProperties, topo *Topology) *DataBalancer {
	return &DataBalancer{
		JobID:   jobID,
		SpaceID: props.SpaceID,
		Props:   props,
		Topo:    topo,
		logger:  log.WithComponent("databalancer").With().Int64("job_id", jobID).Int64("space_id", props.SpaceID).Logger(),
	}
}

// GenTasks is DataBalancer::genTasks: diff the caller-loaded placement
// against active hosts and explicit lost hosts, relocate what's lost, then
// equalize. Returns the task list and the final placement (for
// persistence/inspection), or an *Error with E_NO_VALID_HOST or
// E_BALANCED (the latter still returns the final placement).
func (b *DataBalancer) GenTasks(placement HostParts, totalParts int, active ActiveHosts, lostHosts []HostAddr) ([]*BalanceTask, HostParts, error) {
	b.Topo.RLock()
	defer b.Topo.RUnlock()

	// Placement loading already happened in the caller: placement and
	// totalParts (partition-slots, i.e. partitionNum*replicaFactor) were
	// built there, and the distinct-partition-count check against
	// Props.PartitionNum already ran.

	var zp ZoneParts
	var zones map[string]Zone
	var groupHosts map[HostAddr]struct{}
	if b.Props.DependentOnGroup {
		zones = b.Topo.GroupZones(b.Props.GroupName)
		zp = assembleZoneParts(placement, zones)
		groupHosts = b.Topo.GroupHosts(b.Props.GroupName)
	}

	confirmed, lost := b.calDiff(placement, active, lostHosts, groupHosts)

	var tasks []*BalanceTask
	var cst *constraints
	if b.Props.DependentOnGroup {
		cst = newConstraints(zones, zp)
	}

	for _, lostHost := range lost {
		parts := append([]PartitionID(nil), placement[lostHost]...)
		for _, part := range parts {
			if err := b.checkReplica(confirmed, part, lost); err != nil {
				return nil, nil, err
			}

			candidates := make([]HostAddr, 0, len(confirmed))
			for h := range confirmed {
				candidates = append(candidates, h)
			}

			var target HostAddr
			var ok bool
			if b.Props.DependentOnGroup {
				target, ok = cst.bestCandidate(confirmed, candidates, lostHost, part)
			} else {
				target, ok = hostWithMinimalParts(confirmed, candidates, part)
			}
			if !ok {
				b.logger.Warn().Int32("part_id", part).Str("lost_host", lostHost.String()).Msg("no legal destination for lost replica")
				return nil, nil, NewError(CodeNoValidHost, fmt.Sprintf("no legal destination for part %d", part))
			}

			confirmed[target] = append(confirmed[target], part)
			// target was chosen precisely because it does not already
			// hold part, so neither construction fast path can apply:
			// src != dst, and dst never already carries the replica.
			tasks = append(tasks, NewBalanceTask(b.JobID, b.SpaceID, part, lostHost, target, nil))
		}
		delete(confirmed, lostHost)
	}

	if len(confirmed) < 2 {
		return nil, nil, NewError(CodeNoValidHost, "fewer than two hosts remain")
	}

	balanceTasks := b.balanceParts(confirmed, totalParts, cst)
	tasks = append(tasks, balanceTasks...)

	if len(tasks) == 0 && len(lostHosts) == 0 {
		return nil, confirmed, ErrBalanced
	}

	return tasks, confirmed, nil
}

// calDiff computes the expand/lost diff and the confirmed starting map:
// confirmed = hostParts ∪ {h -> [] for h in expand} \ lost. lostHosts is
// deduplicated against the KV-store-derived lost set: hostParts-derived
// hosts come first, in map iteration order, then explicit ones in the
// order given.
func (b *DataBalancer) calDiff(placement HostParts, active ActiveHosts, explicitLost []HostAddr, groupHosts map[HostAddr]struct{}) (confirmed HostParts, lost []HostAddr) {
	inGroup := func(h HostAddr) bool {
		if groupHosts == nil {
			return true
		}
		_, ok := groupHosts[h]
		return ok
	}

	seenLost := make(map[HostAddr]struct{})
	for h := range placement {
		if !active.Contains(h) {
			if _, ok := seenLost[h]; !ok {
				lost = append(lost, h)
				seenLost[h] = struct{}{}
			}
		}
	}
	for _, h := range explicitLost {
		if _, ok := seenLost[h]; !ok {
			lost = append(lost, h)
			seenLost[h] = struct{}{}
		}
	}

	confirmed = placement.Clone()
	for h := range active {
		if _, ok := confirmed[h]; ok {
			continue
		}
		if !inGroup(h) {
			continue
		}
		confirmed[h] = []PartitionID{}
	}
	for _, h := range lost {
		delete(confirmed, h)
	}

	return confirmed, lost
}

// checkReplica is the majority/quorum check: the number of alive hosts
// still holding part must be >= replicaFactor/2+1.
// alreadyLost is the full lost-host list so a partition's count of
// "still alive holders" excludes every host being relocated this pass,
// not just the one currently being processed.
func (b *DataBalancer) checkReplica(confirmed HostParts, part PartitionID, alreadyLost []HostAddr) error {
	lostSet := make(map[HostAddr]struct{}, len(alreadyLost))
	for _, h := range alreadyLost {
		lostSet[h] = struct{}{}
	}

	alive := 0
	for h, parts := range confirmed {
		if _, isLost := lostSet[h]; isLost {
			continue
		}
		if containsPart(parts, part) {
			alive++
		}
	}

	need := int(b.Props.ReplicaFactor)/2 + 1
	if alive < need {
		return NewError(CodeNoValidHost, fmt.Sprintf("part %d has only %d alive replicas, need %d", part, alive, need))
	}
	return nil
}

// balanceParts equalizes per-host partition counts within
// minLoad/maxLoad, mutating confirmed in place and returning the
// emitted move tasks. cst, if non-nil, is the same live zone-occupancy
// tracker used for lost-replica relocation, so equalization moves stay
// zone-legal against the plan's actual (post-relocation) state rather
// than the placement snapshot taken at plan start.
func (b *DataBalancer) balanceParts(confirmed HostParts, totalParts int, cst *constraints) []*BalanceTask {
	if len(confirmed) == 0 {
		return nil
	}
	avg := float64(totalParts) / float64(len(confirmed))
	minLoad := int(avg) // floor
	maxLoad := minLoad
	if avg > float64(minLoad) {
		maxLoad = minLoad + 1
	}

	var tasks []*BalanceTask
	for {
		hosts := sortedHostsByParts(confirmed)
		lo, hi := hosts[0], hosts[len(hosts)-1]

		if len(confirmed[hi]) <= maxLoad && len(confirmed[lo]) >= minLoad {
			break
		}

		diff := setDiff(confirmed[hi], confirmed[lo])
		moved := 0
		for _, part := range diff {
			// Intentional early break, not a bug: stopping as soon as
			// the gap narrows to 1 can leave hi/lo a partition short of
			// minLoad/maxLoad, trading that gap for not oscillating the
			// same partition back and forth across passes.
			if len(confirmed[hi]) == len(confirmed[lo])+1 {
				break
			}
			if len(confirmed[hi]) == minLoad {
				break
			}
			if len(confirmed[lo]) == maxLoad {
				break
			}

			if b.Props.DependentOnGroup && cst != nil && !cst.passes(hi, lo, part) {
				continue
			}

			confirmed[hi] = removePart(confirmed[hi], part)
			confirmed[lo] = append(confirmed[lo], part)
			if b.Props.DependentOnGroup && cst != nil {
				// Only records the new zone as holding part; doesn't
				// clear hi's zone, so a later candidate is conservatively
				// rejected if hi's zone still looks occupied after this
				// move.
				cst.add(lo, part)
			}
			tasks = append(tasks, NewBalanceTask(b.JobID, b.SpaceID, part, hi, lo, nil))
			moved++
		}

		if moved == 0 {
			// No further progress possible without violating a
			// constraint; a normal termination, not an error.
			break
		}
	}
	return tasks
}
