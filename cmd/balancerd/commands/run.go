package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/jobs"
	"github.com/darionyaphet/nebula-storage/internal/log"
)

// runCmd drives a DataBalanceJob, taking a space name plus an optional
// comma-separated lost-host list.
var runCmd = &cobra.Command{
	Use:   "run <spaceName> [lostHost,lostHost,...]",
	Short: "Generate and dispatch a data-balance plan for a graph space",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runData,
}

func runData(cmd *cobra.Command, args []string) error {
	paras := []string{args[0]}
	if len(args) == 2 {
		paras = []string{args[1], args[0]}
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer store.Close()

	cfg := buildConfig()
	pub, err := openAudit(cfg)
	if err != nil {
		return fmt.Errorf("open audit publisher: %w", err)
	}
	defer pub.Close()

	jobID := resolveJobID()
	// The Raft-level admin RPC transport is an external collaborator
	// this repository doesn't implement; FakeAdminClient stands in
	// until a real one is wired.
	client := balance.Instrument(balance.NewFakeAdminClient())
	job := jobs.NewDataBalanceJob(jobID, store, client, cfg, pub, newCatchUpSem())

	if err := job.Prepare(paras); err != nil {
		return err
	}
	if err := job.Execute(cmd.Context()); err != nil {
		return err
	}

	log.Logger.Info().Int64("job_id", jobID).Msg("data balance plan dispatched")
	fmt.Printf("job %d dispatched\n", jobID)
	return nil
}
