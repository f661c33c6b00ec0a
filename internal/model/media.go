package model

import (
	"strings"
	"time"
)

// Media is one uploaded blob. KillSwitchActive is monotonic: once true it
// never reverts, and there is no un-kill operation.
type Media struct {
	ID               string    `db:"id"`
	OwnerID          string    `db:"owner_id"`
	MessageID        *string   `db:"message_id"` // Null until the media is attached to a sent message
	FingerprintHash  string    `db:"fingerprint_hash"`
	MimeType         string    `db:"mime_type"`
	StoragePath      string    `db:"storage_path"`
	Size             int64     `db:"size"`
	KillSwitchActive bool      `db:"kill_switch_active"`
	LedgerTx         *string   `db:"ledger_tx"`      // Fingerprint registration, best effort
	LedgerKillTx     *string   `db:"ledger_kill_tx"` // Kill event, best effort
	CreatedAt        time.Time `db:"created_at"`
}

// MediaType is the coarse client-facing category ("image" or "file").
func (m *Media) MediaType() string {
	if strings.HasPrefix(m.MimeType, "image/") {
		return "image"
	}
	return "file"
}
