package balance

import "testing"

// TestBuildLeaderBalancePlanGivesUpOverloadedLeader covers the basic
// give-up/acquire sweep: a host leading every partition of a 2-host
// space gives up leaders to its peer until both are within bounds.
func TestBuildLeaderBalancePlanGivesUpOverloadedLeader(t *testing.T) {
	a, b := h("10.0.0.0", 9779), h("10.0.0.1", 9779)
	placement := HostParts{
		a: {0, 1, 2, 3},
		b: {0, 1, 2, 3},
	}
	dist := HostLeaderMap{
		a: {0: {0, 1, 2, 3}},
	}
	props := propsOf(0, 4, 2)
	lb := NewLeaderBalancer(props, NewTopology(), false, 0)

	plan := lb.BuildLeaderBalancePlan(placement, []HostAddr{a, b}, dist, nil)
	if len(plan) == 0 {
		t.Fatal("expected at least one leader transfer")
	}
	for _, tr := range plan {
		if tr.From != a || tr.To != b {
			t.Errorf("transfer %+v: want from=a to=b", tr)
		}
	}

	// Applying the plan must leave both hosts within their bounds.
	counts := map[HostAddr]int{a: 4, b: 0}
	for _, tr := range plan {
		counts[tr.From]--
		counts[tr.To]++
	}
	bounds := lb.calculateHostBounds([]HostAddr{a, b})
	for host, c := range counts {
		bd := bounds[host]
		if c < bd.lower || c > bd.upper {
			t.Errorf("host %v ends with %d leaders, want in [%d,%d]", host, c, bd.lower, bd.upper)
		}
	}
}

// TestBuildLeaderBalancePlanAlreadyBalancedIsEmpty checks the no-op case:
// a space whose leaders are already within bounds produces no transfers.
func TestBuildLeaderBalancePlanAlreadyBalancedIsEmpty(t *testing.T) {
	a, b := h("10.0.0.0", 9779), h("10.0.0.1", 9779)
	placement := HostParts{
		a: {0, 1},
		b: {0, 1},
	}
	dist := HostLeaderMap{
		a: {0: {0}},
		b: {0: {1}},
	}
	props := propsOf(0, 2, 2)
	lb := NewLeaderBalancer(props, NewTopology(), false, 0)

	plan := lb.BuildLeaderBalancePlan(placement, []HostAddr{a, b}, dist, nil)
	if len(plan) != 0 {
		t.Errorf("got %d transfers, want 0: %+v", len(plan), plan)
	}
}

// TestSimplifyLeaderBalancePlanCancelsReversal checks that a->b followed
// by b->a on the same partition cancels out entirely.
func TestSimplifyLeaderBalancePlanCancelsReversal(t *testing.T) {
	a, b := h("10.0.0.0", 9779), h("10.0.0.1", 9779)
	plan := LeaderBalancePlan{
		{SpaceID: 0, PartID: 1, From: a, To: b},
		{SpaceID: 0, PartID: 1, From: b, To: a},
	}
	out := simplifyLeaderBalancePlan(plan)
	if len(out) != 0 {
		t.Errorf("got %+v, want empty (cancelling reversal)", out)
	}
}

// TestSimplifyLeaderBalancePlanCompressesChain checks that a->b, b->c
// compresses to a single a->c hop.
func TestSimplifyLeaderBalancePlanCompressesChain(t *testing.T) {
	a, b, c := h("10.0.0.0", 9779), h("10.0.0.1", 9779), h("10.0.0.2", 9779)
	plan := LeaderBalancePlan{
		{SpaceID: 0, PartID: 1, From: a, To: b},
		{SpaceID: 0, PartID: 1, From: b, To: c},
	}
	out := simplifyLeaderBalancePlan(plan)
	if len(out) != 1 {
		t.Fatalf("got %d transfers, want 1: %+v", len(out), out)
	}
	if out[0].From != a || out[0].To != c {
		t.Errorf("got %+v, want from=a to=c", out[0])
	}
}
