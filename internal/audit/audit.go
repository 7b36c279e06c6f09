// Package audit publishes balance plan/task lifecycle events to Kafka via
// franz-go, for the out-of-band audit trail a real metadata service keeps
// alongside its authoritative KV persistence. It's entirely optional: a
// nil/Noop Publisher leaves the balancer's behavior unchanged with no
// audit trail. Events carry the balancer's own (space, part) pair as an
// opaque payload field, not an attempt at Kafka-partition placement.
package audit

import (
	"time"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/log"
)

// TaskEvent is the JSON record published when a BalanceTask reaches a
// terminal result.
type TaskEvent struct {
	JobID     int64  `json:"job_id"`
	SpaceID   int64  `json:"space_id"`
	PartID    int32  `json:"part_id"`
	Src       string `json:"src"`
	Dst       string `json:"dst"`
	State     string `json:"state"`
	Result    string `json:"result"`
	Timestamp int64  `json:"timestamp_ms"`
}

// PlanEvent is the JSON record published once a plan reaches a terminal
// status.
type PlanEvent struct {
	JobID         int64  `json:"job_id"`
	SpaceID       int64  `json:"space_id"`
	Status        string `json:"status"`
	FinishedCount int64  `json:"finished_count"`
	Timestamp     int64  `json:"timestamp_ms"`
}

// Publisher is the audit sink. It satisfies balance.PlanObserver directly
// so a BalancePlan can be wired to publish without any adapter.
type Publisher interface {
	balance.PlanObserver
	Close() error
}

// NowMs is overridable in tests; defaults to wall-clock time.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Noop is a Publisher that discards every event, the default when no
// Kafka topic is configured.
type Noop struct{}

// OnTaskTransition implements balance.PlanObserver.
func (Noop) OnTaskTransition(*balance.BalanceTask) {}

// OnPlanStatus implements balance.PlanObserver.
func (Noop) OnPlanStatus(*balance.BalancePlan, balance.PlanStatus) {}

// Close implements Publisher.
func (Noop) Close() error { return nil }

var _ Publisher = Noop{}

func taskEventOf(t *balance.BalanceTask) TaskEvent {
	return TaskEvent{
		JobID: t.JobID, SpaceID: t.SpaceID, PartID: t.PartID,
		Src: t.Src.String(), Dst: t.Dst.String(),
		State: string(t.State), Result: string(t.Result),
		Timestamp: NowMs(),
	}
}

func planEventOf(p *balance.BalancePlan, status balance.PlanStatus) PlanEvent {
	return PlanEvent{
		JobID: p.JobID, SpaceID: p.SpaceID,
		Status: string(status), FinishedCount: p.FinishedCount(),
		Timestamp: NowMs(),
	}
}

var auditLog = log.WithComponent("audit")
