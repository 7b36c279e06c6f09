package balance

import (
	"context"
	"time"

	"github.com/darionyaphet/nebula-storage/internal/metrics"
)

// InstrumentedAdminClient wraps an AdminClient, recording per-method
// latency and failure counts to internal/metrics. Every plan built by
// this repository's cmd/balancerd wires its AdminClient through this
// decorator.
type InstrumentedAdminClient struct {
	inner AdminClient
}

// Instrument wraps c with Prometheus observability.
func Instrument(c AdminClient) *InstrumentedAdminClient {
	return &InstrumentedAdminClient{inner: c}
}

func observe(method string, ok bool, start time.Time) {
	metrics.AdminClientLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if !ok {
		metrics.AdminClientErrors.WithLabelValues(method).Inc()
	}
}

func (c *InstrumentedAdminClient) TransLeader(ctx context.Context, space GraphSpaceID, part PartitionID, from, to HostAddr) Status {
	start := time.Now()
	s := c.inner.TransLeader(ctx, space, part, from, to)
	observe("transLeader", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) AddPart(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr, asLearner bool) Status {
	start := time.Now()
	s := c.inner.AddPart(ctx, space, part, host, asLearner)
	observe("addPart", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) AddLearner(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status {
	start := time.Now()
	s := c.inner.AddLearner(ctx, space, part, host)
	observe("addLearner", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) WaitingForCatchUpData(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status {
	start := time.Now()
	s := c.inner.WaitingForCatchUpData(ctx, space, part, host)
	observe("waitingForCatchUpData", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) MemberChange(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr, add bool) Status {
	start := time.Now()
	s := c.inner.MemberChange(ctx, space, part, host, add)
	observe("memberChange", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) UpdateMeta(ctx context.Context, space GraphSpaceID, part PartitionID, from, to HostAddr) Status {
	start := time.Now()
	s := c.inner.UpdateMeta(ctx, space, part, from, to)
	observe("updateMeta", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) RemovePart(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status {
	start := time.Now()
	s := c.inner.RemovePart(ctx, space, part, host)
	observe("removePart", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) CheckPeers(ctx context.Context, space GraphSpaceID, part PartitionID) Status {
	start := time.Now()
	s := c.inner.CheckPeers(ctx, space, part)
	observe("checkPeers", s.OK, start)
	return s
}

func (c *InstrumentedAdminClient) GetLeaderDist(ctx context.Context) (HostLeaderMap, Status) {
	start := time.Now()
	m, s := c.inner.GetLeaderDist(ctx)
	observe("getLeaderDist", s.OK, start)
	return m, s
}
