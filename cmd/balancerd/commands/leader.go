package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/jobs"
	"github.com/darionyaphet/nebula-storage/internal/log"
)

// leaderCmd drives a LeaderBalanceJob: a flat, stateless pass of
// TransLeader calls, no host-list parameter accepted.
var leaderCmd = &cobra.Command{
	Use:   "leader <spaceName>",
	Short: "Rebalance Raft leadership for a graph space",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeader,
}

func runLeader(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer store.Close()

	jobID := resolveJobID()
	client := balance.Instrument(balance.NewFakeAdminClient())
	job := jobs.NewLeaderBalanceJob(jobID, store, client, buildConfig())

	if err := job.Prepare(args); err != nil {
		return err
	}
	if err := job.Execute(cmd.Context()); err != nil {
		return err
	}

	log.Logger.Info().Int64("job_id", jobID).Msg("leader balance pass complete")
	fmt.Printf("job %d complete\n", jobID)
	return nil
}
