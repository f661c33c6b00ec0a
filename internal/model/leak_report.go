package model

import (
	"time"
)

// LeakReport records a user-reported sighting of their content outside the
// app. Anchored on the leak evidence registry when the ledger is enabled.
type LeakReport struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	MediaID   string    `db:"media_id"`
	SourceURL string    `db:"source_url"`
	LedgerTx  *string   `db:"ledger_tx"`
	CreatedAt time.Time `db:"created_at"`
}
