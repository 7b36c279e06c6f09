package jobs

import (
	"context"
	"testing"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
)

// TestLeaderBalanceJobEndToEndDispatchesTransfers seeds a 2-host space
// where one host leads every partition, and checks Execute issues
// TransLeader calls that move leadership toward balance.
func TestLeaderBalanceJobEndToEndDispatchesTransfers(t *testing.T) {
	store := metastore.NewMemStore()
	seedSpace(t, store, 1, "myspace", 4, 2, map[int32][]string{
		1: {"10.0.0.0:9779", "10.0.0.1:9779"},
		2: {"10.0.0.0:9779", "10.0.0.1:9779"},
		3: {"10.0.0.0:9779", "10.0.0.1:9779"},
		4: {"10.0.0.0:9779", "10.0.0.1:9779"},
	})

	client := balance.NewFakeAdminClient()
	a := balance.HostAddr{IP: "10.0.0.0", Port: 9779}
	for _, part := range []balance.PartitionID{1, 2, 3, 4} {
		client.TransLeader(context.Background(), 1, part, balance.HostAddr{}, a)
	}
	client.Calls = nil // reset call log so test assertions see only Execute's own RPCs

	job := NewLeaderBalanceJob(1, store, client, DefaultConfig())
	if err := job.Prepare([]string{"myspace"}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	transLeaderCalls := 0
	for _, c := range client.Calls {
		if c == "transLeader" {
			transLeaderCalls++
		}
	}
	if transLeaderCalls == 0 {
		t.Error("expected at least one transLeader RPC to rebalance leadership")
	}
}

// TestLeaderBalanceJobRejectsHostList checks that a leader-balance job
// given a lost-hosts parameter (meaningful only to data balance) fails
// fast in Prepare, per its own doc comment.
func TestLeaderBalanceJobRejectsHostList(t *testing.T) {
	store := metastore.NewMemStore()
	client := balance.NewFakeAdminClient()
	job := NewLeaderBalanceJob(1, store, client, DefaultConfig())

	err := job.Prepare([]string{"10.0.0.1:9779", "myspace"})
	if balance.CodeOf(err) != balance.CodeInvalidParm {
		t.Fatalf("got %v, want E_INVALID_PARM", err)
	}
}

// TestLeaderBalanceJobAlreadyBalancedDispatchesNothing checks the no-op
// path: a space whose leaders are already within bounds issues zero
// TransLeader calls.
func TestLeaderBalanceJobAlreadyBalancedDispatchesNothing(t *testing.T) {
	store := metastore.NewMemStore()
	seedSpace(t, store, 1, "myspace", 2, 2, map[int32][]string{
		1: {"10.0.0.0:9779", "10.0.0.1:9779"},
		2: {"10.0.0.0:9779", "10.0.0.1:9779"},
	})
	client := balance.NewFakeAdminClient()
	client.TransLeader(context.Background(), 1, 1, balance.HostAddr{}, balance.HostAddr{IP: "10.0.0.0", Port: 9779})
	client.TransLeader(context.Background(), 1, 2, balance.HostAddr{}, balance.HostAddr{IP: "10.0.0.1", Port: 9779})
	client.Calls = nil

	job := NewLeaderBalanceJob(1, store, client, DefaultConfig())
	if err := job.Prepare([]string{"myspace"}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, c := range client.Calls {
		if c == "transLeader" {
			t.Errorf("unexpected transLeader call on an already-balanced space: %v", client.Calls)
		}
	}
}
