package model

import "time"

// OutingModeInPerson is the only mode outings are created with today.
const OutingModeInPerson = "in_person"

// Outing is a hosted social event that guests can express interest in.
// HostUserID is fixed at creation and IsClosed only ever moves from
// false to true.
//
// Fields:
//  ID           – opaque identifier generated at creation.
//  Title        – short name of the outing.
//  ActivityType – free-form category (coffee, hike, board games...).
//  DateTime     – when the outing happens, as supplied by the host.
//  Location     – optional meeting place.
//  OutingMode   – always "in_person" for now.
//  HostUserID   – identity of the creator.
//  IsClosed     – true once the host stops accepting new requests.
//  CreatedAt    – creation timestamp (UTC).
type Outing struct {
    ID           string    `json:"id"`            // outings.id
    Title        string    `json:"title"`         // outings.title
    ActivityType string    `json:"activity_type"` // outings.activity_type
    DateTime     string    `json:"date_time"`     // outings.date_time
    Location     *string   `json:"location"`      // outings.location (nullable)
    OutingMode   string    `json:"outing_mode"`   // outings.outing_mode
    HostUserID   string    `json:"host_user_id"`  // outings.host_user_id
    IsClosed     bool      `json:"is_closed"`     // outings.is_closed
    CreatedAt    time.Time `json:"created_at"`    // outings.created_at
}

// HostedBy reports whether userID created the outing.
func (o Outing) HostedBy(userID string) bool {
    return o.HostUserID == userID
}
