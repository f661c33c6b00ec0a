package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/monmlabs/monm-server/internal/fingerprint"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
)

// messageHistoryLimit caps a single history fetch.
const messageHistoryLimit = 100

type MessageService struct {
	messageRepository      repository.MessageRepository
	conversationRepository repository.ConversationRepository
	ledger                 ledger.Client
	ledgerTimeout          time.Duration
	notifier               Notifier
}

func NewMessageService(
	messageRepository repository.MessageRepository,
	conversationRepository repository.ConversationRepository,
	ledgerClient ledger.Client,
	ledgerTimeout time.Duration,
	notifier Notifier,
) *MessageService {
	return &MessageService{
		messageRepository:      messageRepository,
		conversationRepository: conversationRepository,
		ledger:                 ledgerClient,
		ledgerTimeout:          ledgerTimeout,
		notifier:               notifier,
	}
}

// Send stores an encrypted message and fans it out to the other
// participants. The payload hash is anchored on the ledger asynchronously;
// a ledger outage never fails the send.
func (s *MessageService) Send(conversationID, senderID, payloadB64, ivB64, authTagB64 string) (*model.Message, error) {
	ok, err := s.conversationRepository.IsParticipant(conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	payload, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	authTag, err := base64.StdEncoding.DecodeString(authTagB64)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	msg := &model.Message{
		ID:               uuid.New().String(),
		ConversationID:   conversationID,
		SenderID:         senderID,
		PayloadEncrypted: payload,
		IV:               iv,
		AuthTag:          authTag,
		CreatedAt:        time.Now(),
	}

	err = s.messageRepository.Create(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	// Ciphertext hash over payload||iv||tag; detached from the send path.
	hash := fingerprint.Sum(append(append(append([]byte{}, payload...), iv...), authTag...))
	go s.anchorMessageHash(msg.ID, hash)

	recipients, err := s.conversationRepository.ParticipantIDs(conversationID)
	if err != nil {
		slog.Warn("failed to load participants for fan-out", "error", err, "conversation_id", conversationID)
	} else {
		others := recipients[:0]
		for _, id := range recipients {
			if id != senderID {
				others = append(others, id)
			}
		}
		s.notifier.NewMessage(msg, others)
	}

	return msg, nil
}

func (s *MessageService) anchorMessageHash(messageID, hash string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.ledgerTimeout)
	defer cancel()

	tx, err := s.ledger.LogMessageHash(ctx, messageID, hash)
	if err != nil {
		slog.Warn("ledger message hash anchoring failed", "error", err, "message_id", messageID)
		return
	}
	if tx == "" {
		return
	}

	err = s.messageRepository.SetLedgerTx(messageID, tx)
	if err != nil {
		slog.Warn("failed to record message ledger tx", "error", err, "message_id", messageID)
	}
}

func (s *MessageService) List(conversationID, userID string) ([]*model.Message, error) {
	ok, err := s.conversationRepository.IsParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	return s.messageRepository.ByConversation(conversationID, messageHistoryLimit)
}
