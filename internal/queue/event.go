// Package queue defines the outing activity events exchanged over RabbitMQ
// together with the publisher and the consumer that records them.
package queue

import "time"

// ActivityQueueName is the durable queue every activity event is routed to.
const ActivityQueueName = "outing.activity"

// Activity event types.
const (
    EventOutingCreated     = "outing.created"
    EventOutingClosed      = "outing.closed"
    EventInterestRequested = "interest.requested"
    EventInterestDecided   = "interest.decided"
)

// ActivityEvent is published after a mutation has been committed.  It
// carries enough context for downstream consumers to audit what happened
// without querying the primary database.  RequestID and Status are empty
// for outing-level events.
type ActivityEvent struct {
    Type        string    `json:"type"`
    OutingID    string    `json:"outing_id"`
    OutingTitle string    `json:"outing_title,omitempty"`
    RequestID   string    `json:"interest_request_id,omitempty"`
    ActorUserID string    `json:"actor_user_id"`
    Status      string    `json:"status,omitempty"`
    OccurredAt  time.Time `json:"occurred_at"`
}
