package audit

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/darionyaphet/nebula-storage/internal/balance"
)

// KafkaPublisher publishes TaskEvent/PlanEvent records to a single Kafka
// topic via franz-go: one JSON record per task terminal result and one
// per plan terminal status.
// Produces are fire-and-forget from the caller's point of view (async,
// with an error callback that only logs) so a slow or unavailable audit
// topic never adds latency to the bucket goroutine driving real RPCs.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher dials brokers and returns a Publisher producing to
// topic. Closing the returned Publisher closes the underlying client.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (k *KafkaPublisher) produce(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		auditLog.Error().Err(err).Msg("marshal audit event failed")
		return
	}
	k.client.Produce(context.Background(), &kgo.Record{Topic: k.topic, Value: b}, func(_ *kgo.Record, err error) {
		if err != nil {
			auditLog.Warn().Err(err).Str("topic", k.topic).Msg("publish audit event failed")
		}
	})
}

// OnTaskTransition implements balance.PlanObserver.
func (k *KafkaPublisher) OnTaskTransition(t *balance.BalanceTask) {
	k.produce(taskEventOf(t))
}

// OnPlanStatus implements balance.PlanObserver.
func (k *KafkaPublisher) OnPlanStatus(p *balance.BalancePlan, status balance.PlanStatus) {
	k.produce(planEventOf(p, status))
}

// Close flushes in-flight produces and closes the client.
func (k *KafkaPublisher) Close() error {
	if err := k.client.Flush(context.Background()); err != nil {
		return err
	}
	k.client.Close()
	return nil
}

var _ Publisher = (*KafkaPublisher)(nil)
