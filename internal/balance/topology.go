package balance

import "sync"

// Zone is a named failure domain: a set of hosts.
type Zone struct {
	Name  string
	Hosts map[HostAddr]struct{}
}

// Group is an ordered set of zone names a space may be bound to.
type Group struct {
	Name  string
	Zones []string
}

// ZoneRecord is the per-host cache entry ZoneParts builds: which zone a
// host belongs to, and which partitions already live anywhere in that
// zone.
type ZoneRecord struct {
	ZoneName string
	Parts    map[PartitionID]struct{}
}

// ZoneParts maps a host to its ZoneRecord. Built once per planning pass
// by assembleZoneParts and used only for zone-legality checks.
type ZoneParts map[HostAddr]ZoneRecord

// HasPart reports whether the zone record for h already carries part.
func (zp ZoneParts) HasPart(h HostAddr, part PartitionID) bool {
	rec, ok := zp[h]
	if !ok {
		return false
	}
	_, ok = rec.Parts[part]
	return ok
}

// SameZone reports whether a and b are in the same zone. Both must have
// a zone record.
func (zp ZoneParts) SameZone(a, b HostAddr) bool {
	ra, ok := zp[a]
	if !ok {
		return false
	}
	rb, ok := zp[b]
	if !ok {
		return false
	}
	return ra.ZoneName == rb.ZoneName
}

// assembleZoneParts builds, for each host in placement, a record of its
// zone name and the partitions already held anywhere in that zone.
// Hosts not belonging to any known zone are simply absent from the
// result, which checkZoneLegal then treats as "no zone record".
func assembleZoneParts(placement HostParts, zones map[string]Zone) ZoneParts {
	hostZone := make(map[HostAddr]string, len(placement))
	for name, z := range zones {
		for h := range z.Hosts {
			hostZone[h] = name
		}
	}

	out := make(ZoneParts, len(placement))
	for h, parts := range placement {
		zoneName, ok := hostZone[h]
		if !ok {
			continue
		}
		rec, ok := out[h]
		if !ok {
			rec = ZoneRecord{ZoneName: zoneName, Parts: make(map[PartitionID]struct{})}
		}
		for _, p := range parts {
			rec.Parts[p] = struct{}{}
		}
		out[h] = rec
	}

	// A zone's partition set is shared by every host in it: propagate
	// each host's contribution to every sibling host's record so
	// HasPart reflects "anywhere in the zone", not just on h itself.
	byZone := make(map[string]map[PartitionID]struct{})
	for _, rec := range out {
		set, ok := byZone[rec.ZoneName]
		if !ok {
			set = make(map[PartitionID]struct{})
			byZone[rec.ZoneName] = set
		}
		for p := range rec.Parts {
			set[p] = struct{}{}
		}
	}
	for h, rec := range out {
		rec.Parts = byZone[rec.ZoneName]
		out[h] = rec
	}

	return out
}

// AssembleZoneParts is the exported entry point to assembleZoneParts, for
// callers outside this package (internal/jobs) that need to build the
// zone-occupancy cache before calling LeaderBalancer.BuildLeaderBalancePlan
// for a group-bound space.
func AssembleZoneParts(placement HostParts, zones map[string]Zone) ZoneParts {
	return assembleZoneParts(placement, zones)
}

// checkZoneLegal reports whether moving part from src to dst is
// zone-legal: both hosts must have a zone record, and either they share
// a zone (intra-zone moves are always legal) or dst's zone does not
// already hold part.
func checkZoneLegal(zp ZoneParts, src, dst HostAddr, part PartitionID) bool {
	if _, ok := zp[src]; !ok {
		return false
	}
	if _, ok := zp[dst]; !ok {
		return false
	}
	if zp.SameZone(src, dst) {
		return true
	}
	return !zp.HasPart(dst, part)
}

// Topology holds a space's zone/group bindings plus the reader lock that
// guards placement reads while a schema-change collaborator outside this
// repository would hold the writer side.
type Topology struct {
	mu sync.RWMutex

	Zones  map[string]Zone
	Groups map[string]Group
}

// NewTopology returns an empty Topology.
func NewTopology() *Topology {
	return &Topology{
		Zones:  make(map[string]Zone),
		Groups: make(map[string]Group),
	}
}

// RLock acquires the reader side for the duration of a placement read.
func (t *Topology) RLock()   { t.mu.RLock() }
func (t *Topology) RUnlock() { t.mu.RUnlock() }

// Lock acquires the writer side, reserved for a schema-change
// collaborator this repository does not implement.
func (t *Topology) Lock()   { t.mu.Lock() }
func (t *Topology) Unlock() { t.mu.Unlock() }

// GroupZones returns the zone set that backs a group's bound hosts, used
// to filter ActiveHosts to group membership.
func (t *Topology) GroupZones(groupName string) map[string]Zone {
	g, ok := t.Groups[groupName]
	if !ok {
		return nil
	}
	out := make(map[string]Zone, len(g.Zones))
	for _, zn := range g.Zones {
		if z, ok := t.Zones[zn]; ok {
			out[zn] = z
		}
	}
	return out
}

// GroupHosts returns every host bound to a group through its zones.
func (t *Topology) GroupHosts(groupName string) map[HostAddr]struct{} {
	out := make(map[HostAddr]struct{})
	for _, z := range t.GroupZones(groupName) {
		for h := range z.Hosts {
			out[h] = struct{}{}
		}
	}
	return out
}
