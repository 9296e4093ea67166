// Package notifications provides best-effort lifecycle event delivery.
// Delivery is strictly decoupled from pass correctness: a failed publish is
// logged and counted, never propagated to the transition that caused it.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPattern = "passes:user:*"
	gateChannel        = "passes:gate"
)

// PassEvent is the payload published for lifecycle transitions. It carries
// identifiers and state only; the bearer token is never serialized here.
type PassEvent struct {
	Event     string            `json:"event"`
	PassID    string            `json:"pass_id"`
	Status    models.PassStatus `json:"status"`
	StudentID uint              `json:"student_id"`
	MentorID  uint              `json:"mentor_id"`
	Reason    string            `json:"reason,omitempty"`
	At        time.Time         `json:"at"`
}

// Notifier publishes pass events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPassEvent fans a lifecycle event out to the interested parties:
// the student, the assigned mentor, and the gate activity feed.
func (n *Notifier) PublishPassEvent(ctx context.Context, event string, pass *models.GatePass) {
	if n == nil || n.rdb == nil || pass == nil {
		return
	}

	payload, err := json.Marshal(PassEvent{
		Event:     event,
		PassID:    pass.ID,
		Status:    pass.Status,
		StudentID: pass.StudentID,
		MentorID:  pass.MentorID,
		Reason:    pass.Reason,
		At:        time.Now().UTC(),
	})
	if err != nil {
		log.Printf("notification marshal failed for %s: %v", event, err)
		observability.NotificationPublishFailures.WithLabelValues(event).Inc()
		return
	}

	for _, channel := range []string{
		fmt.Sprintf("passes:user:%d", pass.StudentID),
		fmt.Sprintf("passes:user:%d", pass.MentorID),
		gateChannel,
	} {
		if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			log.Printf("notification publish failed on %s: %v", channel, err)
			observability.NotificationPublishFailures.WithLabelValues(event).Inc()
		}
	}
}

// StartPatternSubscriber subscribes to the pass channels and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern, gateChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
