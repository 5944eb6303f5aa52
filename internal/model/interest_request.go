package model

import "time"

// RequestStatus is the lifecycle state of an interest request.
type RequestStatus string

const (
    StatusPending  RequestStatus = "pending"
    StatusAccepted RequestStatus = "accepted"
    StatusRejected RequestStatus = "rejected"
)

// IsDecision reports whether s is a status a host may move a pending
// request into.  Only accepted and rejected qualify.
func (s RequestStatus) IsDecision() bool {
    return s == StatusAccepted || s == StatusRejected
}

// IsTerminal reports whether no further transition is possible from s.
func (s RequestStatus) IsTerminal() bool {
    return s.IsDecision()
}

// InterestRequest records a guest's wish to join an outing.  Requests
// start pending and are decided exactly once by the outing's host.
//
// Fields:
//  ID              – opaque identifier.
//  OutingID        – outing the request targets.
//  RequesterUserID – identity of the guest.
//  Status          – pending, accepted or rejected.
//  CreatedAt       – creation timestamp (UTC).
type InterestRequest struct {
    ID              string        `json:"id"`                // interest_requests.id
    OutingID        string        `json:"outing_id"`         // interest_requests.outing_id
    RequesterUserID string        `json:"requester_user_id"` // interest_requests.requester_user_id
    Status          RequestStatus `json:"status"`            // interest_requests.status
    CreatedAt       time.Time     `json:"created_at"`        // interest_requests.created_at
}

// InterestRequestDetail is a request joined with the descriptive fields of
// its outing.  It backs the guest's "my requests" view.
type InterestRequestDetail struct {
    ID           string        `json:"id"`
    OutingID     string        `json:"outing_id"`
    Status       RequestStatus `json:"status"`
    CreatedAt    time.Time     `json:"created_at"`
    Title        string        `json:"title"`
    ActivityType string        `json:"activity_type"`
    DateTime     string        `json:"date_time"`
    Location     *string       `json:"location"`
    IsClosed     bool          `json:"is_closed"`
}
