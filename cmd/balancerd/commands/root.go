// Package commands implements balancerd's cobra command tree: one
// process invocation drives a single balance job to dispatch and exits,
// rather than running a long-lived daemon loop.
package commands

import (
	"flag"
	"strings"
	"time"

	"github.com/jamiealquiza/envy"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/darionyaphet/nebula-storage/internal/audit"
	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/jobs"
	"github.com/darionyaphet/nebula-storage/internal/log"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
)

// flags holds every persistent flag. Registered on flag.CommandLine (not
// a private FlagSet) because envy.Parse only walks the default flag set.
var flags struct {
	storePath   string
	logLevel    string
	logJSON     bool
	metricsAddr string

	jobID              int64
	taskConcurrency    int
	catchUpConcurrency int64
	heartbeatSecs      int
	heartbeatTTLMul    int
	leaderDeviation    float64
	useDeviation       bool

	kafkaBrokers string
	kafkaTopic   string
}

// RootCmd is balancerd's entrypoint command.
var RootCmd = &cobra.Command{
	Use:   "balancerd",
	Short: "Partition and leader balancer for the graph metadata store",
}

func init() {
	flag.StringVar(&flags.storePath, "store", "balancer.db", "path to the boltdb metastore file")
	flag.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")
	flag.StringVar(&flags.metricsAddr, "metrics-addr", "", "address to serve /metrics on; empty disables it")

	flag.Int64Var(&flags.jobID, "job-id", 0, "job id to use; 0 picks one from the current time")
	flag.IntVar(&flags.taskConcurrency, "task-concurrency", 10, "number of BalancePlan buckets run concurrently")
	flag.Int64Var(&flags.catchUpConcurrency, "catchup-concurrency", 16, "max simultaneously in-flight waitingForCatchUpData calls")
	flag.IntVar(&flags.heartbeatSecs, "heartbeat-interval-secs", 10, "expected host heartbeat interval in seconds")
	flag.IntVar(&flags.heartbeatTTLMul, "heartbeat-ttl-multiple", 3, "heartbeat intervals a host may miss before it's inactive")
	flag.Float64Var(&flags.leaderDeviation, "leader-deviation", 0.05, "fractional deviation for leader-count bounds")
	flag.BoolVar(&flags.useDeviation, "use-deviation", true, "use the deviation-scaled bound instead of a flat +/-1")

	flag.StringVar(&flags.kafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers for the audit publisher; empty disables it")
	flag.StringVar(&flags.kafkaTopic, "kafka-topic", "", "audit topic name; empty disables publishing even if brokers are set")

	envy.Parse("BALANCERD")
	RootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cobra.OnInitialize(initLogging)

	RootCmd.AddCommand(runCmd, leaderCmd, statusCmd)
}

func initLogging() {
	level := log.InfoLevel
	switch flags.logLevel {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	log.Init(log.Config{Level: level, JSONOutput: flags.logJSON})

	if flags.metricsAddr != "" {
		go serveMetrics(flags.metricsAddr)
	}
}

func buildConfig() jobs.Config {
	return jobs.Config{
		TaskConcurrency:        flags.taskConcurrency,
		CatchUpConcurrency:     flags.catchUpConcurrency,
		HeartbeatIntervalSecs:  flags.heartbeatSecs,
		HeartbeatTTLMultiple:   flags.heartbeatTTLMul,
		LeaderBalanceDeviation: flags.leaderDeviation,
		UseDeviation:           flags.useDeviation,
		KafkaTopicName:         flags.kafkaTopic,
		KafkaBrokers:           splitCommaList(flags.kafkaBrokers),
	}
}

// splitCommaList parses a comma-separated flag value into its non-empty,
// trimmed elements, the same idiom parseHostList uses for lost-host lists.
func splitCommaList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func resolveJobID() balance.JobID {
	if flags.jobID != 0 {
		return flags.jobID
	}
	return time.Now().UnixNano()
}

func openStore() (metastore.Store, error) {
	return metastore.OpenBolt(flags.storePath)
}

func openAudit(cfg jobs.Config) (audit.Publisher, error) {
	if cfg.KafkaTopicName == "" || len(cfg.KafkaBrokers) == 0 {
		return audit.Noop{}, nil
	}
	return audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicName)
}

func newCatchUpSem() *semaphore.Weighted {
	return semaphore.NewWeighted(flags.catchUpConcurrency)
}
