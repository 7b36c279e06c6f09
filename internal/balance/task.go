package balance

import "context"

// TaskState is one state of the BalanceTask machine.
type TaskState string

const (
	TaskStart            TaskState = "START"
	TaskChangeLeader     TaskState = "CHANGE_LEADER"
	TaskAddPartAsLearner TaskState = "ADD_PART_AS_LEARNER"
	TaskCatchUpData      TaskState = "CATCH_UP_DATA"
	TaskMemberChangeAdd  TaskState = "MEMBER_CHANGE_ADD"
	TaskMemberChangeDrop TaskState = "MEMBER_CHANGE_REMOVE"
	TaskUpdatePartInfo   TaskState = "UPDATE_PART_INFO"
	TaskRemovePart       TaskState = "REMOVE_PART"
	TaskEnd              TaskState = "END"
)

// stateOrder is the linear transition graph: a flat sequence rather
// than a handler-per-state dispatch table, since the graph is small and
// has no branches beyond the construction-time fast paths.
var stateOrder = []TaskState{
	TaskStart,
	TaskChangeLeader,
	TaskAddPartAsLearner,
	TaskCatchUpData,
	TaskMemberChangeAdd,
	TaskMemberChangeDrop,
	TaskUpdatePartInfo,
	TaskRemovePart,
	TaskEnd,
}

func nextState(s TaskState) TaskState {
	for i, st := range stateOrder {
		if st == s {
			if i+1 < len(stateOrder) {
				return stateOrder[i+1]
			}
			return s
		}
	}
	return s
}

// TaskResult is the outcome of a BalanceTask.
type TaskResult string

const (
	ResultInProgress TaskResult = "IN_PROGRESS"
	ResultSucceeded  TaskResult = "SUCCEEDED"
	ResultFailed     TaskResult = "FAILED"
	ResultInvalid    TaskResult = "INVALID"
)

// BalanceTask is a single (space, part, src -> dst) move and its state
// machine. Mutable fields are written only by the bucket goroutine that
// owns the task; BalancePlan never touches two tasks' fields
// concurrently.
type BalanceTask struct {
	JobID   JobID
	SpaceID GraphSpaceID
	PartID  PartitionID
	Src     HostAddr
	Dst     HostAddr

	State   TaskState
	Result  TaskResult
	StartMs int64
	EndMs   int64
}

// NewBalanceTask builds a task, applying two fast paths: src==dst
// completes immediately with no RPCs, and a destination
// that's already the authoritative replica (without src still present)
// skips straight to UPDATE_PART_INFO.
func NewBalanceTask(jobID JobID, space GraphSpaceID, part PartitionID, src, dst HostAddr, currentReplicas []HostAddr) *BalanceTask {
	t := &BalanceTask{
		JobID: jobID, SpaceID: space, PartID: part,
		Src: src, Dst: dst,
		State: TaskStart, Result: ResultInProgress,
	}
	if src == dst {
		t.State = TaskEnd
		t.Result = ResultSucceeded
		return t
	}
	hasDst, hasSrc := false, false
	for _, h := range currentReplicas {
		if h == dst {
			hasDst = true
		}
		if h == src {
			hasSrc = true
		}
	}
	if hasDst && !hasSrc {
		t.State = TaskUpdatePartInfo
	}
	return t
}

// Done reports whether the task has reached a terminal result.
func (t *BalanceTask) Done() bool {
	return t.Result != ResultInProgress
}

// Invalidate marks a not-yet-started task INVALID, used when a plan
// stop() request reaches tasks queued behind the one currently running
// in a bucket.
func (t *BalanceTask) Invalidate() {
	if t.Done() {
		return
	}
	t.Result = ResultInvalid
}

// step runs the single RPC associated with the task's current state and
// advances it. It returns the
// Status of the RPC invoked; END re-verifies the partition via CheckPeers.
func (t *BalanceTask) step(ctx context.Context, client AdminClient) Status {
	switch t.State {
	case TaskStart:
		return client.CheckPeers(ctx, t.SpaceID, t.PartID)
	case TaskChangeLeader:
		// transLeader is contractually a no-op success when src isn't
		// currently the leader, so it's always safe to call rather than
		// plumbing a separate leader query.
		return client.TransLeader(ctx, t.SpaceID, t.PartID, t.Src, HostAddr{})
	case TaskAddPartAsLearner:
		return client.AddPart(ctx, t.SpaceID, t.PartID, t.Dst, true)
	case TaskCatchUpData:
		return client.WaitingForCatchUpData(ctx, t.SpaceID, t.PartID, t.Dst)
	case TaskMemberChangeAdd:
		return client.MemberChange(ctx, t.SpaceID, t.PartID, t.Dst, true)
	case TaskMemberChangeDrop:
		return client.MemberChange(ctx, t.SpaceID, t.PartID, t.Src, false)
	case TaskUpdatePartInfo:
		return client.UpdateMeta(ctx, t.SpaceID, t.PartID, t.Src, t.Dst)
	case TaskRemovePart:
		return client.RemovePart(ctx, t.SpaceID, t.PartID, t.Src)
	case TaskEnd:
		return client.CheckPeers(ctx, t.SpaceID, t.PartID)
	}
	return StatusOK
}

// Run drives the task from its current state to a terminal result,
// calling now() to stamp StartMs/EndMs. It's idempotent: resuming a task
// persisted mid-flight re-enters step() at its last-attempted state,
// relying on the AdminClient contract that every method is safe to
// re-invoke.
func (t *BalanceTask) Run(ctx context.Context, client AdminClient, nowMs func() int64) {
	if t.Done() {
		// Re-invoking a terminal task is a no-op; END reads back as
		// SUCCEEDED unless it already recorded a different terminal
		// result.
		return
	}
	if t.StartMs == 0 {
		t.StartMs = nowMs()
	}

	for {
		s := t.step(ctx, client)
		if !s.OK {
			t.Result = ResultFailed
			t.EndMs = nowMs()
			return
		}
		if t.State == TaskEnd {
			t.Result = ResultSucceeded
			t.EndMs = nowMs()
			return
		}
		t.State = nextState(t.State)
	}
}
