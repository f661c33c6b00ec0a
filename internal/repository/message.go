package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

var (
	ErrMessageNotFound = errors.New("message not found")
)

type MessageRepository interface {
	Create(msg *model.Message) error
	ByID(id string) (*model.Message, error)
	ByConversation(conversationID string, limit int) ([]*model.Message, error)
	SetLedgerTx(id, tx string) error
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(msg *model.Message) error {
	query := `INSERT INTO messages (id, conversation_id, sender_id, payload_encrypted, iv, auth_tag, ledger_tx, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.PayloadEncrypted,
		msg.IV,
		msg.AuthTag,
		msg.LedgerTx,
		msg.CreatedAt,
	)

	return err
}

func (r *messageRepository) ByID(id string) (*model.Message, error) {
	msg := &model.Message{}
	query := `SELECT * FROM messages WHERE id = $1`

	err := r.db.Get(msg, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}

	return msg, err
}

func (r *messageRepository) ByConversation(conversationID string, limit int) ([]*model.Message, error) {
	var msgs []*model.Message
	query := `SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC LIMIT $2`

	err := r.db.Select(&msgs, query, conversationID, limit)
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

func (r *messageRepository) SetLedgerTx(id, tx string) error {
	query := `UPDATE messages SET ledger_tx = $1 WHERE id = $2`
	_, err := r.db.Exec(query, tx, id)
	return err
}
