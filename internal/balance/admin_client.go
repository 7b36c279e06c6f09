package balance

import "context"

// Status is the outcome of an AdminClient RPC: ok, or an error string.
type Status struct {
	OK  bool
	Err string
}

// StatusOK is the zero-error success value.
var StatusOK = Status{OK: true}

// StatusErr builds a failed Status.
func StatusErr(msg string) Status {
	return Status{OK: false, Err: msg}
}

// AdminClient is the Raft-level admin RPC surface. It is an external
// collaborator; this repository depends only on the method contract, not
// the wire protocol or transport behind it. Every
// method is idempotent from the planner's point of view: a resumed task
// re-invokes the same method for its current state rather than replaying
// history.
type AdminClient interface {
	// TransLeader asks from to hand Raft leadership to to. A zero to
	// HostAddr means "any follower". Must return ok if from is already
	// not the leader.
	TransLeader(ctx context.Context, space GraphSpaceID, part PartitionID, from, to HostAddr) Status

	// AddPart creates a partition replica on host; asLearner=true means
	// join without voting rights.
	AddPart(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr, asLearner bool) Status

	// AddLearner promotes/introduces host as a learner.
	AddLearner(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status

	// WaitingForCatchUpData blocks until host's replica log is within a
	// small lag of the leader.
	WaitingForCatchUpData(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status

	// MemberChange issues a Raft configuration change adding (add=true)
	// or removing host.
	MemberChange(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr, add bool) Status

	// UpdateMeta atomically replaces from with to in the replica-set
	// record.
	UpdateMeta(ctx context.Context, space GraphSpaceID, part PartitionID, from, to HostAddr) Status

	// RemovePart deletes the replica on host.
	RemovePart(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status

	// CheckPeers health-probes every replica of a partition.
	CheckPeers(ctx context.Context, space GraphSpaceID, part PartitionID) Status

	// GetLeaderDist gathers host -> space -> [partitions led].
	GetLeaderDist(ctx context.Context) (HostLeaderMap, Status)
}

// HostLeaderMap is host -> space -> list of partitions that host leads.
type HostLeaderMap map[HostAddr]map[GraphSpaceID][]PartitionID
