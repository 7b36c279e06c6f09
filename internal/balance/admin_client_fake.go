package balance

import (
	"context"
	"sync"
)

// FakeAdminClient is an in-memory AdminClient for tests.
//
// Every call succeeds unless explicitly configured to fail via Fail.
// GetLeaderDist reads from Leaders, which tests seed directly and
// TransLeader updates.
type FakeAdminClient struct {
	mu sync.Mutex

	// Fail, if set for a method name, makes that call return a failed
	// Status. Method names use the lower-camelCase RPC names
	// ("transLeader", "addPart", ...).
	Fail map[string]bool

	// Leaders tracks the current leader of each (space, part), defaulting
	// to the zero HostAddr (unknown) until set.
	Leaders map[GraphSpaceID]map[PartitionID]HostAddr

	// Calls records every invocation in order, for assertions.
	Calls []string
}

// NewFakeAdminClient returns an empty FakeAdminClient.
func NewFakeAdminClient() *FakeAdminClient {
	return &FakeAdminClient{
		Fail:    make(map[string]bool),
		Leaders: make(map[GraphSpaceID]map[PartitionID]HostAddr),
	}
}

func (c *FakeAdminClient) record(method string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, method)
	if c.Fail[method] {
		return StatusErr(method + " failed")
	}
	return StatusOK
}

func (c *FakeAdminClient) leaderOf(space GraphSpaceID, part PartitionID) HostAddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.Leaders[space]; ok {
		return m[part]
	}
	return HostAddr{}
}

func (c *FakeAdminClient) setLeader(space GraphSpaceID, part PartitionID, host HostAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.Leaders[space]
	if !ok {
		m = make(map[PartitionID]HostAddr)
		c.Leaders[space] = m
	}
	m[part] = host
}

func (c *FakeAdminClient) TransLeader(ctx context.Context, space GraphSpaceID, part PartitionID, from, to HostAddr) Status {
	s := c.record("transLeader")
	if s.OK && c.leaderOf(space, part) == from {
		c.setLeader(space, part, to)
	}
	return s
}

func (c *FakeAdminClient) AddPart(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr, asLearner bool) Status {
	return c.record("addPart")
}

func (c *FakeAdminClient) AddLearner(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status {
	return c.record("addLearner")
}

func (c *FakeAdminClient) WaitingForCatchUpData(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status {
	return c.record("waitingForCatchUpData")
}

func (c *FakeAdminClient) MemberChange(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr, add bool) Status {
	return c.record("memberChange")
}

func (c *FakeAdminClient) UpdateMeta(ctx context.Context, space GraphSpaceID, part PartitionID, from, to HostAddr) Status {
	return c.record("updateMeta")
}

func (c *FakeAdminClient) RemovePart(ctx context.Context, space GraphSpaceID, part PartitionID, host HostAddr) Status {
	return c.record("removePart")
}

func (c *FakeAdminClient) CheckPeers(ctx context.Context, space GraphSpaceID, part PartitionID) Status {
	return c.record("checkPeers")
}

func (c *FakeAdminClient) GetLeaderDist(ctx context.Context) (HostLeaderMap, Status) {
	s := c.record("getLeaderDist")
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(HostLeaderMap)
	for space, parts := range c.Leaders {
		for part, host := range parts {
			if host.Zero() {
				continue
			}
			if out[host] == nil {
				out[host] = make(map[GraphSpaceID][]PartitionID)
			}
			out[host][space] = append(out[host][space], part)
		}
	}
	return out, s
}
