package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/log"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
	"github.com/darionyaphet/nebula-storage/internal/metrics"
)

// LeaderBalanceJob is the JobExecutor for the leader-balance path: it
// bypasses BalanceTask's state machine entirely and issues a flat set of
// TransLeader RPCs.
type LeaderBalanceJob struct {
	JobID  balance.JobID
	Store  metastore.Store
	Client balance.AdminClient
	Config Config

	paras  ParsedParas
	logger zerolog.Logger
}

// NewLeaderBalanceJob builds a job bound to one jobID.
func NewLeaderBalanceJob(jobID balance.JobID, store metastore.Store, client balance.AdminClient, cfg Config) *LeaderBalanceJob {
	return &LeaderBalanceJob{JobID: jobID, Store: store, Client: client, Config: cfg, logger: log.WithJob(jobID)}
}

// Prepare implements jobs.Executor.
func (j *LeaderBalanceJob) Prepare(paras []string) error {
	p, err := ParseParas(paras)
	if err != nil {
		return err
	}
	if len(p.LostHosts) != 0 {
		// Leader balance never relocates data, so an explicit lost-hosts
		// list (meaningful only to data balance) is a caller mistake.
		return balance.NewError(balance.CodeInvalidParm, "leader balance does not accept a host list")
	}
	j.paras = p
	return nil
}

// Execute builds a LeaderBalancePlan and dispatches every transfer
// concurrently, bounded by Config.TaskConcurrency. A failed TransLeader
// call is logged and counted but does not abort the remaining transfers;
// leader balance has no state machine or all-or-nothing semantics,
// unlike data balance's BalancePlan.
func (j *LeaderBalanceJob) Execute(ctx context.Context) error {
	spaceID, err := ResolveSpaceID(j.Store, j.paras.SpaceName)
	if err != nil {
		return err
	}

	props, err := LoadSpace(j.Store, spaceID)
	if err != nil {
		return err
	}

	placement, _, err := LoadPlacement(j.Store, props)
	if err != nil {
		return err
	}

	topo, err := LoadTopology(j.Store)
	if err != nil {
		return err
	}

	active, err := LoadActiveHosts(j.Store, j.Config.HeartbeatTTL(), time.Now())
	if err != nil {
		return err
	}

	var zp balance.ZoneParts
	activeHosts := make([]balance.HostAddr, 0, len(active))
	if props.DependentOnGroup {
		groupHosts := topo.GroupHosts(props.GroupName)
		for h := range active {
			if _, ok := groupHosts[h]; ok {
				activeHosts = append(activeHosts, h)
			}
		}
		zp = balance.AssembleZoneParts(placement, topo.GroupZones(props.GroupName))
	} else {
		for h := range active {
			activeHosts = append(activeHosts, h)
		}
	}

	dist, status := j.Client.GetLeaderDist(ctx)
	if !status.OK {
		return balance.NewError(balance.CodeStoreFailure, "getLeaderDist: "+status.Err)
	}

	lb := balance.NewLeaderBalancer(props, topo, j.Config.UseDeviation, j.Config.LeaderBalanceDeviation)
	plan := lb.BuildLeaderBalancePlan(placement, activeHosts, dist, zp)
	metrics.LeaderDeviation.Set(float64(lb.LastDeviation()))

	if err := j.saveJobStatus(spaceID, "RUNNING"); err != nil {
		return err
	}
	dispatchErr := j.dispatch(ctx, plan)
	finalStatus := "FINISHED"
	if dispatchErr != nil {
		finalStatus = "FAILED"
	}
	if err := j.saveJobStatus(spaceID, finalStatus); err != nil {
		return err
	}
	return dispatchErr
}

// saveJobStatus persists a __jobs__ record, mirroring BalancePlan's own
// job-status bookkeeping so "balancerd status" reports consistently for
// both job kinds.
func (j *LeaderBalanceJob) saveJobStatus(spaceID balance.GraphSpaceID, status string) error {
	rec := metastore.JobRecord{JobID: j.JobID, SpaceID: spaceID, Kind: "leader", Status: status}
	err := j.Store.AsyncMultiPut([]metastore.KV{
		{Key: metastore.JobKey(j.JobID), Value: metastore.EncodeJob(rec)},
	})
	if err != nil {
		return balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	return nil
}

func (j *LeaderBalanceJob) dispatch(ctx context.Context, plan balance.LeaderBalancePlan) error {
	if len(plan) == 0 {
		j.logger.Info().Msg("leader balance: already balanced")
		return nil
	}

	sem := semaphore.NewWeighted(int64(max(j.Config.TaskConcurrency, 1)))
	g, ctx := errgroup.WithContext(ctx)

	for _, t := range plan {
		t := t
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			status := j.Client.TransLeader(ctx, t.SpaceID, t.PartID, t.From, t.To)
			if !status.OK {
				metrics.LeaderTransfersTotal.WithLabelValues("failed").Inc()
				j.logger.Warn().Int32("part_id", t.PartID).Str("from", t.From.String()).Str("to", t.To.String()).Str("err", status.Err).Msg("transLeader failed")
				return nil
			}
			metrics.LeaderTransfersTotal.WithLabelValues("succeeded").Inc()
			return nil
		})
	}

	return g.Wait()
}
