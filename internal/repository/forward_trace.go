package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

type ForwardTraceRepository interface {
	Create(trace *model.ForwardTrace) error
	SetLedgerTx(id, tx string) error
}

type forwardTraceRepository struct {
	db *sqlx.DB
}

func NewForwardTraceRepository(db *sqlx.DB) ForwardTraceRepository {
	return &forwardTraceRepository{db: db}
}

func (r *forwardTraceRepository) Create(trace *model.ForwardTrace) error {
	query := `INSERT INTO forward_traces (id, original_message_id, forwarded_message_id, forwarded_by, target_conversation_id, permission_granted, ledger_tx, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		trace.ID,
		trace.OriginalMessageID,
		trace.ForwardedMessageID,
		trace.ForwardedBy,
		trace.TargetConversationID,
		trace.PermissionGranted,
		trace.LedgerTx,
		trace.CreatedAt,
	)

	return err
}

func (r *forwardTraceRepository) SetLedgerTx(id, tx string) error {
	query := `UPDATE forward_traces SET ledger_tx = $1 WHERE id = $2`
	_, err := r.db.Exec(query, tx, id)
	return err
}
