package branchsync

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/mmdatafocus/jewellery_backend/config"
)

// BranchChangeEvent tells other branches that new rows are in the cloud store.
type BranchChangeEvent struct {
	BranchId string    `json:"branch_id"`
	Tables   []string  `json:"tables"`
	Count    int       `json:"count"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	NotifyChanges(ctx context.Context, event BranchChangeEvent) error
}

// PubSubNotifier publishes branch change events to a Pub/Sub topic.
type PubSubNotifier struct {
	Topic       string
	CreateTopic bool
}

// NewPubSubNotifierFromEnv returns nil unless Pub/Sub and SYNC_NOTIFY_TOPIC
// are configured.
func NewPubSubNotifierFromEnv() *PubSubNotifier {
	topic := strings.TrimSpace(os.Getenv("SYNC_NOTIFY_TOPIC"))
	if topic == "" || !config.PubSubEnabled() {
		return nil
	}
	return &PubSubNotifier{
		Topic:       topic,
		CreateTopic: config.EnvBoolDefault("SYNC_NOTIFY_CREATE_TOPIC", false),
	}
}

func (n *PubSubNotifier) NotifyChanges(ctx context.Context, event BranchChangeEvent) error {
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}
	topic := client.Topic(n.Topic)
	if n.CreateTopic {
		topic, err = config.CreateTopicIfNotExists(ctx, client, n.Topic)
		if err != nil {
			return err
		}
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	res := topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"branch_id": event.BranchId},
	})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushEnvelope is the body Pub/Sub posts to a push subscription.
type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePushEnvelope extracts the branch change event from a push body.
func DecodePushEnvelope(body []byte) (BranchChangeEvent, error) {
	var envelope PubSubPushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return BranchChangeEvent{}, err
	}
	var event BranchChangeEvent
	if err := json.Unmarshal(envelope.Message.Data, &event); err != nil {
		return BranchChangeEvent{}, err
	}
	if event.BranchId == "" {
		return BranchChangeEvent{}, errors.New("branch change event has no branch id")
	}
	return event, nil
}
