package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
)

// seedSpace writes a space's SpaceRecord, PartRecords, and a HostRecord
// per host (heartbeating now) into store.
func seedSpace(t *testing.T, store metastore.Store, spaceID int64, name string, partitionNum, replicaFactor int32, placement map[int32][]string) {
	t.Helper()
	var kvs []metastore.KV
	kvs = append(kvs, metastore.KV{
		Key: metastore.SpaceKey(spaceID),
		Value: metastore.EncodeSpace(metastore.SpaceRecord{
			SpaceID: spaceID, Name: name, PartitionNum: partitionNum, ReplicaFactor: replicaFactor,
		}),
	})
	seenHosts := make(map[string]struct{})
	for partID, hosts := range placement {
		kvs = append(kvs, metastore.KV{
			Key:   metastore.PartKey(spaceID, partID),
			Value: metastore.EncodePart(metastore.PartRecord{SpaceID: spaceID, PartID: partID, Hosts: hosts}),
		})
		for _, hs := range hosts {
			seenHosts[hs] = struct{}{}
		}
	}
	now := time.Now().UnixNano()
	for hs := range seenHosts {
		kvs = append(kvs, metastore.KV{
			Key:   metastore.HostKey(hs),
			Value: metastore.EncodeHost(metastore.HostRecord{Host: hs, LastHeartbeat: now}),
		})
	}
	if err := store.AsyncMultiPut(kvs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// TestDataBalanceJobEndToEndSucceeds runs a fill-the-empty-host balance
// through the full Prepare/Execute path against a MemStore and
// FakeAdminClient.
func TestDataBalanceJobEndToEndSucceeds(t *testing.T) {
	store := metastore.NewMemStore()
	seedSpace(t, store, 1, "myspace", 4, 3, map[int32][]string{
		1: {"10.0.0.0:9779", "10.0.0.1:9779", "10.0.0.2:9779"},
		2: {"10.0.0.0:9779", "10.0.0.1:9779", "10.0.0.2:9779"},
		3: {"10.0.0.0:9779", "10.0.0.1:9779", "10.0.0.2:9779"},
		4: {"10.0.0.0:9779", "10.0.0.1:9779", "10.0.0.2:9779"},
	})
	// h3 is a 4th active host with no partitions yet.
	if err := store.AsyncMultiPut([]metastore.KV{{
		Key:   metastore.HostKey("10.0.0.3:9779"),
		Value: metastore.EncodeHost(metastore.HostRecord{Host: "10.0.0.3:9779", LastHeartbeat: time.Now().UnixNano()}),
	}}); err != nil {
		t.Fatalf("seed h3: %v", err)
	}

	client := balance.NewFakeAdminClient()
	cfg := DefaultConfig()
	job := NewDataBalanceJob(100, store, client, cfg, nil, nil)

	if err := job.Prepare([]string{"myspace"}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		b, err := store.Get(metastore.LastUpdateTimeKey())
		if err == nil && len(b) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("plan never finished persisting")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestDataBalanceJobUnknownSpaceIsNotFound checks that resolving a
// nonexistent space name surfaces E_NOT_FOUND without touching placement.
func TestDataBalanceJobUnknownSpaceIsNotFound(t *testing.T) {
	store := metastore.NewMemStore()
	client := balance.NewFakeAdminClient()
	job := NewDataBalanceJob(1, store, client, DefaultConfig(), nil, nil)

	if err := job.Prepare([]string{"ghost"}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := job.Execute(context.Background())
	if balance.CodeOf(err) != balance.CodeNotFound {
		t.Fatalf("got %v, want E_NOT_FOUND", err)
	}
}

// TestDataBalanceJobPrepareRejectsBadParasBeforeExecute checks that
// Prepare fails before any state is touched: Execute is never reached,
// so no RPCs happen.
func TestDataBalanceJobPrepareRejectsBadParasBeforeExecute(t *testing.T) {
	store := metastore.NewMemStore()
	client := balance.NewFakeAdminClient()
	job := NewDataBalanceJob(1, store, client, DefaultConfig(), nil, nil)

	err := job.Prepare([]string{"bad-host", "myspace"})
	if balance.CodeOf(err) != balance.CodeInvalidParm {
		t.Fatalf("got %v, want E_INVALID_PARM", err)
	}
	if len(client.Calls) != 0 {
		t.Errorf("expected no RPCs after a failed Prepare, got %v", client.Calls)
	}
}

// TestDataBalanceJobAlreadyBalancedSucceeds checks that a balanced space
// (E_BALANCED) is treated as success by Execute, not an error.
func TestDataBalanceJobAlreadyBalancedSucceeds(t *testing.T) {
	store := metastore.NewMemStore()
	seedSpace(t, store, 1, "myspace", 2, 3, map[int32][]string{
		1: {"10.0.0.0:9779", "10.0.0.1:9779", "10.0.0.2:9779"},
		2: {"10.0.0.0:9779", "10.0.0.1:9779", "10.0.0.2:9779"},
	})
	client := balance.NewFakeAdminClient()
	job := NewDataBalanceJob(1, store, client, DefaultConfig(), nil, nil)

	if err := job.Prepare([]string{"myspace"}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v, want nil (E_BALANCED treated as success)", err)
	}

	rec, err := LoadJobStatus(store, 1)
	if err != nil {
		t.Fatalf("LoadJobStatus after no-op run: %v", err)
	}
	if rec.Status != "FINISHED" {
		t.Errorf("no-op job status = %q, want FINISHED", rec.Status)
	}
}
