package model

import (
	"time"
)

// ForwardTrace is an audit record linking an original message to its
// forwarded copy. It is never consulted for access control.
type ForwardTrace struct {
	ID                   string    `db:"id"`
	OriginalMessageID    string    `db:"original_message_id"`
	ForwardedMessageID   string    `db:"forwarded_message_id"`
	ForwardedBy          string    `db:"forwarded_by"`
	TargetConversationID string    `db:"target_conversation_id"`
	PermissionGranted    bool      `db:"permission_granted"`
	LedgerTx             *string   `db:"ledger_tx"`
	CreatedAt            time.Time `db:"created_at"`
}
