package jobs

import "context"

// Executor is the balance-job contract: Prepare validates and parses
// paras without touching any state, Execute runs the job to completion
// (or, for a DataBalanceJob, to dispatch; see DataBalanceJob.Execute).
type Executor interface {
	Prepare(paras []string) error
	Execute(ctx context.Context) error
}
