package model

import (
	"time"
)

const (
	PermissionTypeForward  = "forward"
	PermissionTypeDownload = "download"

	PermissionStatusPending = "pending"
	PermissionStatusGranted = "granted"
	PermissionStatusDenied  = "denied"
)

// PermissionRequest is a requester's ask for a forward or download
// capability. It is resolved exactly once by the resource owner; re-asking
// creates a new row. The subject is the message for forward requests and
// the media item for download requests.
type PermissionRequest struct {
	ID          string    `db:"id"`
	MessageID   *string   `db:"message_id"`
	MediaID     *string   `db:"media_id"`
	RequesterID string    `db:"requester_id"`
	OwnerID     string    `db:"owner_id"`
	Type        string    `db:"type"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}
