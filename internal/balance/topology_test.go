package balance

import "testing"

// zonesOf builds a zones map with one host per zone, named a, b, c, ...
func zonesOf(hosts ...HostAddr) map[string]Zone {
	zones := make(map[string]Zone, len(hosts))
	for i, hh := range hosts {
		name := string(rune('a' + i))
		zones[name] = Zone{Name: name, Hosts: map[HostAddr]struct{}{hh: {}}}
	}
	return zones
}

// TestAssembleZonePartsSharesWithinZone: 4 hosts in 4 distinct zones,
// one partition per host. ZoneParts must report each host's own
// partition as already held in its zone, and nothing else.
func TestAssembleZonePartsSharesWithinZone(t *testing.T) {
	h0, h1, h2, h3 := h("10.0.0.0", 9779), h("10.0.0.1", 9779), h("10.0.0.2", 9779), h("10.0.0.3", 9779)
	placement := HostParts{
		h0: {1},
		h1: {2},
		h2: {3},
		h3: {4},
	}
	zp := assembleZoneParts(placement, zonesOf(h0, h1, h2, h3))

	if !zp.HasPart(h0, 1) || zp.HasPart(h0, 2) {
		t.Errorf("h0 zone record wrong: %+v", zp[h0])
	}
	if zp.SameZone(h0, h1) {
		t.Error("h0 and h1 are in distinct zones, SameZone returned true")
	}
}

// TestCheckZoneLegalAllowsIntraZoneMove checks that moving within the
// same zone is always legal regardless of existing occupancy.
func TestCheckZoneLegalAllowsIntraZoneMove(t *testing.T) {
	a, b := h("10.0.0.0", 9779), h("10.0.0.1", 9779)
	zones := map[string]Zone{
		"z0": {Name: "z0", Hosts: map[HostAddr]struct{}{a: {}, b: {}}},
	}
	placement := HostParts{a: {1}, b: {1}}
	zp := assembleZoneParts(placement, zones)

	if !checkZoneLegal(zp, a, b, 1) {
		t.Error("intra-zone move reported illegal")
	}
}

// TestCheckZoneLegalRejectsDuplicateCrossZonePlacement covers the core
// rule: a cross-zone move is illegal when the destination zone already
// holds a replica of that partition.
func TestCheckZoneLegalRejectsDuplicateCrossZonePlacement(t *testing.T) {
	a, b, c := h("10.0.0.0", 9779), h("10.0.0.1", 9779), h("10.0.0.2", 9779)
	zones := map[string]Zone{
		"z0": {Name: "z0", Hosts: map[HostAddr]struct{}{a: {}}},
		"z1": {Name: "z1", Hosts: map[HostAddr]struct{}{b: {}, c: {}}},
	}
	// b already holds part 1, and b,c share zone z1.
	placement := HostParts{a: {}, b: {1}, c: {}}
	zp := assembleZoneParts(placement, zones)

	if checkZoneLegal(zp, a, c, 1) {
		t.Error("cross-zone move into a zone already holding the partition reported legal")
	}
	if !checkZoneLegal(zp, a, b, 2) {
		t.Error("cross-zone move of a fresh partition reported illegal")
	}
}

// TestCheckZoneLegalRejectsUnknownHost covers the "no zone record" guard:
// a host absent from any zone can never be a legal src or dst.
func TestCheckZoneLegalRejectsUnknownHost(t *testing.T) {
	a, stray := h("10.0.0.0", 9779), h("10.0.0.9", 9779)
	zones := map[string]Zone{
		"z0": {Name: "z0", Hosts: map[HostAddr]struct{}{a: {}}},
	}
	placement := HostParts{a: {1}}
	zp := assembleZoneParts(placement, zones)

	if checkZoneLegal(zp, stray, a, 1) {
		t.Error("move from a zone-less host reported legal")
	}
	if checkZoneLegal(zp, a, stray, 1) {
		t.Error("move to a zone-less host reported legal")
	}
}
