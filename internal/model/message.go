package model

import (
	"time"
)

// Message carries an opaque AES-GCM ciphertext. The server never decrypts
// payloads; forwarding copies ciphertext, IV and auth tag verbatim.
type Message struct {
	ID               string    `db:"id"`
	ConversationID   string    `db:"conversation_id"`
	SenderID         string    `db:"sender_id"`
	PayloadEncrypted []byte    `db:"payload_encrypted"`
	IV               []byte    `db:"iv"`
	AuthTag          []byte    `db:"auth_tag"`
	LedgerTx         *string   `db:"ledger_tx"`
	CreatedAt        time.Time `db:"created_at"`
}
