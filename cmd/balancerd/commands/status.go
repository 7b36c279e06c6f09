package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/darionyaphet/nebula-storage/internal/jobs"
)

// statusCmd reads back a job's __jobs__ record.
var statusCmd = &cobra.Command{
	Use:   "status <jobID>",
	Short: "Print a balance job's last known status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	jobID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer store.Close()

	rec, err := jobs.LoadJobStatus(store, jobID)
	if err != nil {
		return err
	}

	fmt.Printf("job %d  space %d  kind %s  status %s\n", rec.JobID, rec.SpaceID, rec.Kind, rec.Status)
	return nil
}
