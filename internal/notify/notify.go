// Package notify is the thin client for the external notification service.
// The core treats every send as fire-and-forget: a failed notification is
// logged by the caller, never rolled back into the triggering operation.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kind identifies the notification template the downstream dispatcher
// renders (push/email is its concern, not ours).
type Kind string

const (
	KindApplicationReceived Kind = "application_received"
	KindApplicationSeen     Kind = "application_seen"
	KindApplicationFavorite Kind = "application_favorite"
	KindApplicationAccepted Kind = "application_accepted"
	KindApplicationRejected Kind = "application_rejected"
	KindInterviewRequested  Kind = "interview_requested"
	KindContractProposed    Kind = "contract_proposed"
	KindCandidateHired      Kind = "candidate_hired"
)

// Notifier sends a templated notification to one recipient.
type Notifier interface {
	Send(ctx context.Context, recipientID string, kind Kind, payload any) error
}

// channel the dispatcher subscribes to.
const channel = "notifications"

// event is the wire shape published to Redis.
type event struct {
	RecipientID string    `json:"recipientId"`
	Kind        Kind      `json:"kind"`
	Payload     any       `json:"payload,omitempty"`
	At          time.Time `json:"at"`
}

// RedisNotifier publishes notification events to a Redis channel consumed
// by the dispatcher service.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier returns a Notifier backed by the given Redis client.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Send publishes one event. Errors are returned for the caller to log;
// callers must not treat them as fatal.
func (n *RedisNotifier) Send(ctx context.Context, recipientID string, kind Kind, payload any) error {
	msg, err := json.Marshal(event{
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     payload,
		At:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, channel, msg).Err()
}
