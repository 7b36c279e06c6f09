package balance

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/darionyaphet/nebula-storage/internal/log"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
	"github.com/darionyaphet/nebula-storage/internal/metrics"
)

// PlanStatus is a BalancePlan's coarse lifecycle state.
type PlanStatus string

const (
	PlanRunning  PlanStatus = "RUNNING"
	PlanFinished PlanStatus = "FINISHED"
	PlanFailed   PlanStatus = "FAILED"
	PlanStopped  PlanStatus = "STOPPED"
)

// bucketKey identifies the (space, part) group two tasks must never have
// dispatched concurrently.
type bucketKey struct {
	space GraphSpaceID
	part  PartitionID
}

// bucketTasks groups tasks sharing a (space, part) first, then assigns
// whole groups round-robin to min(concurrency, distinct groups) buckets,
// so a single partition is never touched by two buckets.
func bucketTasks(tasks []*BalanceTask, concurrency int) [][]int {
	if concurrency < 1 {
		concurrency = 1
	}

	var order []bucketKey
	groups := make(map[bucketKey][]int)
	for i, t := range tasks {
		k := bucketKey{t.SpaceID, t.PartID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	numBuckets := min(concurrency, len(order))
	if numBuckets == 0 {
		return nil
	}

	buckets := make([][]int, numBuckets)
	for gi, k := range order {
		b := gi % numBuckets
		buckets[b] = append(buckets[b], groups[k]...)
	}
	return buckets
}

// BalancePlan is a bucketed concurrent executor over BalanceTasks. It
// owns the tasks from dispatch onward; the DataBalancer that generated
// them does not touch them again.
type BalancePlan struct {
	JobID   JobID
	SpaceID GraphSpaceID

	mu      sync.Mutex
	tasks   []*BalanceTask
	buckets [][]int
	status  PlanStatus

	finishedCount int64
	stopRequested int32

	store      metastore.Store
	client     AdminClient
	catchUpSem *semaphore.Weighted
	nowMs      func() int64

	onFinished func(*BalancePlan)
	observer   PlanObserver

	logger zerolog.Logger
}

// PlanObserver receives task and plan lifecycle events as they happen, for
// an out-of-band audit trail (internal/audit) a real metadata service
// would keep alongside its authoritative persistence. Optional; nil by
// default, checked for nil before every call.
type PlanObserver interface {
	// OnTaskTransition fires once per task, after the record of its
	// terminal result (SUCCEEDED, FAILED or INVALID) has been persisted.
	OnTaskTransition(t *BalanceTask)
	// OnPlanStatus fires once, after the plan reaches a terminal status.
	OnPlanStatus(p *BalancePlan, status PlanStatus)
}

// SetObserver attaches o to the plan. Must be called before Invoke.
func (p *BalancePlan) SetObserver(o PlanObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = o
}

// NewBalancePlan builds a plan and computes its bucket assignment.
// catchUpSem, if non-nil, bounds the number of simultaneously in-flight
// WaitingForCatchUpData-carrying task runs across every bucket (and,
// since callers are expected to share one semaphore.Weighted across
// concurrently active plans, across the whole process).
func NewBalancePlan(jobID JobID, spaceID GraphSpaceID, tasks []*BalanceTask, concurrency int, store metastore.Store, client AdminClient, catchUpSem *semaphore.Weighted, nowMs func() int64) *BalancePlan {
	return &BalancePlan{
		JobID:      jobID,
		SpaceID:    spaceID,
		tasks:      tasks,
		buckets:    bucketTasks(tasks, concurrency),
		status:     PlanRunning,
		store:      store,
		client:     client,
		catchUpSem: catchUpSem,
		nowMs:      nowMs,
		logger:     log.WithComponent("plan").With().Int64("job_id", jobID).Logger(),
	}
}

// Tasks returns the plan's tasks in emission order.
func (p *BalancePlan) Tasks() []*BalanceTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*BalanceTask(nil), p.tasks...)
}

// Buckets returns the bucket assignment as task-index slices, for tests.
func (p *BalancePlan) Buckets() [][]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]int, len(p.buckets))
	for i, b := range p.buckets {
		out[i] = append([]int(nil), b...)
	}
	return out
}

// Status returns the plan's current status.
func (p *BalancePlan) Status() PlanStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// FinishedCount returns how many tasks have reached a terminal state.
func (p *BalancePlan) FinishedCount() int64 {
	return atomic.LoadInt64(&p.finishedCount)
}

// Stop requests the plan halt between task transitions: in-flight RPCs
// run to completion, but every task not yet started is marked INVALID
// and the plan ends STOPPED.
func (p *BalancePlan) Stop() {
	atomic.StoreInt32(&p.stopRequested, 1)
}

func (p *BalancePlan) stopping() bool {
	return atomic.LoadInt32(&p.stopRequested) == 1
}

// persistTask writes one task's current record.
func (p *BalancePlan) persistTask(t *BalanceTask) error {
	rec := metastore.BalanceTaskRecord{
		JobID: t.JobID, SpaceID: t.SpaceID, PartID: t.PartID,
		Src: t.Src.String(), Dst: t.Dst.String(),
		State: string(t.State), Result: string(t.Result),
	}
	return p.store.AsyncMultiPut([]metastore.KV{
		{Key: metastore.BalanceTaskKey(t.JobID, t.SpaceID, t.PartID), Value: metastore.EncodeBalanceTask(rec)},
	})
}

func (p *BalancePlan) persistJobStatus(status PlanStatus) error {
	rec := metastore.JobRecord{JobID: p.JobID, SpaceID: p.SpaceID, Kind: "data", Status: string(status)}
	return p.store.AsyncMultiPut([]metastore.KV{
		{Key: metastore.JobKey(p.JobID), Value: metastore.EncodeJob(rec)},
	})
}

func (p *BalancePlan) persistLastUpdateTime() error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(p.nowMs()))
	return p.store.AsyncMultiPut([]metastore.KV{{Key: metastore.LastUpdateTimeKey(), Value: b}})
}

// Invoke persists the plan's initial RUNNING status and every task
// record, then dispatches every bucket concurrently in the background.
// It returns once the initial
// persistence barrier completes, not once execution finishes.
func (p *BalancePlan) Invoke(ctx context.Context) error {
	p.mu.Lock()
	tasks := append([]*BalanceTask(nil), p.tasks...)
	p.mu.Unlock()

	if err := p.persistJobStatus(PlanRunning); err != nil {
		p.logger.Error().Err(err).Msg("persist initial job status failed")
		return balanceStoreErr(err)
	}
	for _, t := range tasks {
		if err := p.persistTask(t); err != nil {
			p.logger.Error().Err(err).Msg("persist initial task record failed")
			return balanceStoreErr(err)
		}
	}

	p.logger.Info().Int("tasks", len(tasks)).Int("buckets", len(p.buckets)).Msg("plan dispatching")
	metrics.PlansRunning.Inc()
	go p.run(ctx)
	return nil
}

func balanceStoreErr(err error) error {
	return NewError(CodeStoreFailure, err.Error())
}

// run executes every bucket concurrently; within a bucket, tasks run
// strictly serially.
func (p *BalancePlan) run(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	p.mu.Lock()
	buckets := p.buckets
	p.mu.Unlock()

	var anyFailed int32
	for _, bucket := range buckets {
		bucket := bucket
		g.Go(func() error {
			p.runBucket(ctx, bucket, &anyFailed)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	switch {
	case p.stopping():
		p.status = PlanStopped
	case atomic.LoadInt32(&anyFailed) == 1:
		p.status = PlanFailed
	default:
		p.status = PlanFinished
	}
	status := p.status
	p.mu.Unlock()

	metrics.PlansRunning.Dec()
	metrics.PlansTotal.WithLabelValues(string(status)).Inc()
	p.logger.Info().Str("status", string(status)).Int64("finished", p.FinishedCount()).Msg("plan finished")

	if err := p.persistJobStatus(status); err != nil {
		p.logger.Error().Err(err).Msg("persist final job status failed")
	}
	if err := p.persistLastUpdateTime(); err != nil {
		p.logger.Error().Err(err).Msg("persist last update time failed")
	}

	if p.observer != nil {
		p.observer.OnPlanStatus(p, status)
	}
	if p.onFinished != nil {
		p.onFinished(p)
	}
}

func (p *BalancePlan) runBucket(ctx context.Context, bucket []int, anyFailed *int32) {
	for _, idx := range bucket {
		p.mu.Lock()
		t := p.tasks[idx]
		p.mu.Unlock()

		if p.stopping() {
			t.Invalidate()
			p.persistAndCount(t)
			continue
		}

		if p.catchUpSem != nil {
			if err := p.catchUpSem.Acquire(ctx, 1); err != nil {
				t.Invalidate()
				p.persistAndCount(t)
				continue
			}
		}
		t.Run(ctx, p.client, p.nowMs)
		if p.catchUpSem != nil {
			p.catchUpSem.Release(1)
		}

		if t.Result == ResultFailed {
			atomic.StoreInt32(anyFailed, 1)
		}
		p.persistAndCount(t)
	}
}

func (p *BalancePlan) persistAndCount(t *BalanceTask) {
	if err := p.persistTask(t); err != nil {
		p.logger.Error().Err(err).Int32("part_id", t.PartID).Msg("persist task record failed")
	}
	atomic.AddInt64(&p.finishedCount, 1)
	metrics.TasksDispatched.WithLabelValues(string(t.Result)).Inc()
	if t.StartMs != 0 && t.EndMs != 0 {
		metrics.TaskDuration.Observe(float64(t.EndMs-t.StartMs) / 1000.0)
	}
	if p.observer != nil {
		p.observer.OnTaskTransition(t)
	}
}

// String is used in log fields and test failure messages.
func (p *BalancePlan) String() string {
	return fmt.Sprintf("plan(job=%d,space=%d,status=%s)", p.JobID, p.SpaceID, p.Status())
}
