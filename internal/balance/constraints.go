package balance

// constraints tracks, for a single planning pass, which zone already
// holds a replica of a partition: state that must be updated as genTasks
// appends destinations to the confirmed map, unlike the static ZoneParts
// snapshot built once at plan start.
type constraints struct {
	zoneOf map[HostAddr]string
	used   map[PartitionID]map[string]struct{}
}

// newConstraints seeds a constraints tracker from a static ZoneParts
// snapshot: it owns a mutable copy of "which zones hold which partition"
// that bestCandidate/add keep current as the plan progresses.
func newConstraints(zones map[string]Zone, zp ZoneParts) *constraints {
	c := &constraints{
		zoneOf: make(map[HostAddr]string),
		used:   make(map[PartitionID]map[string]struct{}),
	}
	for name, z := range zones {
		for h := range z.Hosts {
			c.zoneOf[h] = name
		}
	}
	for _, rec := range zp {
		for p := range rec.Parts {
			c.markUsed(rec.ZoneName, p)
		}
	}
	return c
}

func (c *constraints) markUsed(zone string, part PartitionID) {
	set, ok := c.used[part]
	if !ok {
		set = make(map[string]struct{})
		c.used[part] = set
	}
	set[zone] = struct{}{}
}

// passes reports whether placing part on dst is zone-legal given every
// assignment recorded so far: dst must have a known zone, and either src
// shares dst's zone or dst's zone does not yet hold part.
func (c *constraints) passes(src, dst HostAddr, part PartitionID) bool {
	dstZone, ok := c.zoneOf[dst]
	if !ok {
		return false
	}
	srcZone, ok := c.zoneOf[src]
	if ok && srcZone == dstZone {
		return true
	}
	if zones, ok := c.used[part]; ok {
		if _, used := zones[dstZone]; used {
			return false
		}
	}
	return true
}

// add records that host now carries a replica of part, so subsequent
// passes calls see it.
func (c *constraints) add(host HostAddr, part PartitionID) {
	zone, ok := c.zoneOf[host]
	if !ok {
		return
	}
	c.markUsed(zone, part)
}

// bestCandidate picks the lowest-loaded host among candidates that both
// lacks part already and passes the zone constraint for (src, part),
// then records the placement via add. ok is false if none qualifies.
func (c *constraints) bestCandidate(hp HostParts, candidates []HostAddr, src HostAddr, part PartitionID) (host HostAddr, ok bool) {
	best := -1
	for _, h := range candidates {
		if containsPart(hp[h], part) {
			continue
		}
		if !c.passes(src, h, part) {
			continue
		}
		if cnt := len(hp[h]); best == -1 || cnt < best {
			best = cnt
			host = h
			ok = true
		}
	}
	if ok {
		c.add(host, part)
	}
	return host, ok
}

// mergeConstraints folds other's used-zone state into c, for combining a
// group's static zone bindings with a second tracker built mid-plan.
func (c *constraints) mergeConstraints(other *constraints) {
	for h, z := range other.zoneOf {
		if _, ok := c.zoneOf[h]; !ok {
			c.zoneOf[h] = z
		}
	}
	for part, zones := range other.used {
		for zone := range zones {
			c.markUsed(zone, part)
		}
	}
}
