package balance

import "testing"

// TestConstraintsPassesRejectsDuplicateZone checks the core zone-affinity
// rule constraints.passes implements: a destination whose zone already
// holds the partition fails, unless src shares that zone.
func TestConstraintsPassesRejectsDuplicateZone(t *testing.T) {
	a, b, c := h("10.0.0.0", 9779), h("10.0.0.1", 9779), h("10.0.0.2", 9779)
	zones := map[string]Zone{
		"z0": {Name: "z0", Hosts: map[HostAddr]struct{}{a: {}}},
		"z1": {Name: "z1", Hosts: map[HostAddr]struct{}{b: {}, c: {}}},
	}
	c2 := newConstraints(zones, ZoneParts{})
	c2.add(b, 1)

	if c2.passes(a, c, 1) {
		t.Error("placing a duplicate into c's zone (shared with b) reported as passing")
	}
	if !c2.passes(b, c, 1) {
		t.Error("intra-zone placement (src shares dst's zone) reported as failing")
	}
	if !c2.passes(a, c, 2) {
		t.Error("a fresh partition into an unused zone reported as failing")
	}
}

// TestConstraintsBestCandidatePicksLeastLoadedLegalHost checks
// bestCandidate skips hosts that already hold the partition or fail the
// zone check, then picks the lowest-loaded survivor.
func TestConstraintsBestCandidatePicksLeastLoadedLegalHost(t *testing.T) {
	a, b, c := h("10.0.0.0", 9779), h("10.0.0.1", 9779), h("10.0.0.2", 9779)
	zones := map[string]Zone{
		"z0": {Name: "z0", Hosts: map[HostAddr]struct{}{a: {}}},
		"z1": {Name: "z1", Hosts: map[HostAddr]struct{}{b: {}}},
		"z2": {Name: "z2", Hosts: map[HostAddr]struct{}{c: {}}},
	}
	hp := HostParts{
		a: {1},
		b: {2, 3},
		c: {},
	}
	c2 := newConstraints(zones, ZoneParts{})
	c2.add(a, 1)

	host, ok := c2.bestCandidate(hp, []HostAddr{a, b, c}, a, 1)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if host != c {
		t.Errorf("got %v, want c (a already holds part 1, b is more loaded)", host)
	}
}

// TestConstraintsBestCandidateNoneQualifies checks the ok=false path when
// every candidate either already holds the partition or fails zone legality.
func TestConstraintsBestCandidateNoneQualifies(t *testing.T) {
	a, b := h("10.0.0.0", 9779), h("10.0.0.1", 9779)
	zones := map[string]Zone{
		"z0": {Name: "z0", Hosts: map[HostAddr]struct{}{a: {}}},
		"z1": {Name: "z1", Hosts: map[HostAddr]struct{}{b: {}}},
	}
	hp := HostParts{a: {1}, b: {1}}
	c2 := newConstraints(zones, ZoneParts{})

	_, ok := c2.bestCandidate(hp, []HostAddr{a, b}, a, 1)
	if ok {
		t.Error("expected no candidate: both hosts already hold part 1")
	}
}

// TestConstraintsMergeConstraintsCombinesState checks that merging folds
// in zone bindings and used-partition state the receiver didn't already
// have, without clobbering entries it does.
func TestConstraintsMergeConstraintsCombinesState(t *testing.T) {
	a, b := h("10.0.0.0", 9779), h("10.0.0.1", 9779)
	base := &constraints{
		zoneOf: map[HostAddr]string{a: "z0"},
		used:   map[PartitionID]map[string]struct{}{1: {"z0": {}}},
	}
	other := &constraints{
		zoneOf: map[HostAddr]string{a: "z9", b: "z1"},
		used:   map[PartitionID]map[string]struct{}{1: {"z1": {}}, 2: {"z1": {}}},
	}
	base.mergeConstraints(other)

	if base.zoneOf[a] != "z0" {
		t.Errorf("existing zoneOf entry clobbered: got %q, want z0", base.zoneOf[a])
	}
	if base.zoneOf[b] != "z1" {
		t.Errorf("new zoneOf entry missing: got %q, want z1", base.zoneOf[b])
	}
	if _, ok := base.used[1]["z1"]; !ok {
		t.Error("expected used[1] to gain z1 from other")
	}
	if _, ok := base.used[2]["z1"]; !ok {
		t.Error("expected used[2] to be merged in from other")
	}
}
