package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/darionyaphet/nebula-storage/internal/audit"
	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/log"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
)

// DataBalanceJob is the JobExecutor for the data-balance path: load
// placement+topology, run DataBalancer.GenTasks, dispatch the resulting
// BalancePlan. Prepare never touches the metastore before paras are
// validated.
type DataBalanceJob struct {
	JobID      balance.JobID
	Store      metastore.Store
	Client     balance.AdminClient
	Config     Config
	Audit      audit.Publisher
	CatchUpSem *semaphore.Weighted
	NowMs      func() int64

	paras  ParsedParas
	logger zerolog.Logger
}

// NewDataBalanceJob builds a job bound to one jobID.
func NewDataBalanceJob(jobID balance.JobID, store metastore.Store, client balance.AdminClient, cfg Config, pub audit.Publisher, catchUpSem *semaphore.Weighted) *DataBalanceJob {
	if pub == nil {
		pub = audit.Noop{}
	}
	return &DataBalanceJob{
		JobID: jobID, Store: store, Client: client, Config: cfg, Audit: pub,
		CatchUpSem: catchUpSem,
		NowMs:      func() int64 { return time.Now().UnixMilli() },
		logger:     log.WithJob(jobID),
	}
}

// Prepare implements jobs.Executor.
func (j *DataBalanceJob) Prepare(paras []string) error {
	p, err := ParseParas(paras)
	if err != nil {
		return err
	}
	j.paras = p
	return nil
}

// Execute loads placement and topology, generates tasks, and dispatches
// the plan. It returns once BalancePlan.Invoke's persistence barrier
// completes, not once every task finishes. balance.ErrBalanced is
// treated as success rather than an error, since it's informational.
func (j *DataBalanceJob) Execute(ctx context.Context) error {
	spaceID, err := ResolveSpaceID(j.Store, j.paras.SpaceName)
	if err != nil {
		return err
	}

	props, err := LoadSpace(j.Store, spaceID)
	if err != nil {
		return err
	}

	placement, totalParts, err := LoadPlacement(j.Store, props)
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
	if props.DependentOnGroup {
		groupHosts := topo.GroupHosts(props.GroupName)
		for h := range active {
			if _, ok := groupHosts[h]; !ok {
				delete(active, h)
			}
		}
	}

	db := balance.NewDataBalancer(j.JobID, props, topo)
	tasks, _, err := db.GenTasks(placement, totalParts, active, j.paras.LostHosts)
	if err != nil {
		if balance.CodeOf(err) == balance.CodeBalanced {
			// A no-op run still records its job status, so a later
			// status query sees the job rather than a hole.
			j.logger.Info().Str("space", j.paras.SpaceName).Msg("space already balanced")
			return j.saveJobStatus(spaceID, string(balance.PlanFinished))
		}
		return err
	}

	plan := balance.NewBalancePlan(j.JobID, spaceID, tasks, j.Config.TaskConcurrency, j.Store, j.Client, j.CatchUpSem, j.NowMs)
	plan.SetObserver(j.Audit)
	return plan.Invoke(ctx)
}

func (j *DataBalanceJob) saveJobStatus(spaceID balance.GraphSpaceID, status string) error {
	rec := metastore.JobRecord{JobID: j.JobID, SpaceID: spaceID, Kind: "data", Status: status}
	err := j.Store.AsyncMultiPut([]metastore.KV{
		{Key: metastore.JobKey(j.JobID), Value: metastore.EncodeJob(rec)},
	})
	if err != nil {
		return balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	return nil
}
