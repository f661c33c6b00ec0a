package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
)

type ConversationRepository interface {
	Create(conv *model.Conversation, participantIDs []string) error
	ByID(id string) (*model.Conversation, error)
	ForUser(userID string) ([]*model.Conversation, error)
	IsParticipant(conversationID, userID string) (bool, error)
	ParticipantIDs(conversationID string) ([]string, error)
}

type conversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create inserts the conversation and its participant rows in one
// transaction so a half-created conversation is never visible.
func (r *conversationRepository) Create(conv *model.Conversation, participantIDs []string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO conversations (id, type, created_at) VALUES ($1, $2, $3)`,
		conv.ID, conv.Type, conv.CreatedAt)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, userID := range participantIDs {
		_, err = tx.Exec(`INSERT INTO conversation_participants (conversation_id, user_id, role, joined_at)
		                  VALUES ($1, $2, $3, $4)`,
			conv.ID, userID, "member", now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *conversationRepository) ByID(id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	query := `SELECT * FROM conversations WHERE id = $1`

	err := r.db.Get(conv, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}

	return conv, err
}

func (r *conversationRepository) ForUser(userID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	query := `SELECT c.* FROM conversations c
	          JOIN conversation_participants cp ON cp.conversation_id = c.id
	          WHERE cp.user_id = $1
	          ORDER BY c.created_at DESC`

	err := r.db.Select(&convs, query, userID)
	if err != nil {
		return nil, err
	}

	return convs, nil
}

func (r *conversationRepository) IsParticipant(conversationID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`

	err := r.db.Get(&exists, query, conversationID, userID)
	return exists, err
}

func (r *conversationRepository) ParticipantIDs(conversationID string) ([]string, error) {
	var ids []string
	query := `SELECT user_id FROM conversation_participants WHERE conversation_id = $1`

	err := r.db.Select(&ids, query, conversationID)
	if err != nil {
		return nil, err
	}

	return ids, nil
}
