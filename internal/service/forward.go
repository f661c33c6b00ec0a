package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
)

// ForwardService re-inserts a message into another conversation. The
// ciphertext, IV and auth tag are copied verbatim; the payload is opaque
// to this layer and is never re-encrypted on forward.
type ForwardService struct {
	messageRepository      repository.MessageRepository
	conversationRepository repository.ConversationRepository
	traceRepository        repository.ForwardTraceRepository
	permissions            *PermissionService
	ledger                 ledger.Client
	ledgerTimeout          time.Duration
}

func NewForwardService(
	messageRepository repository.MessageRepository,
	conversationRepository repository.ConversationRepository,
	traceRepository repository.ForwardTraceRepository,
	permissions *PermissionService,
	ledgerClient ledger.Client,
	ledgerTimeout time.Duration,
) *ForwardService {
	return &ForwardService{
		messageRepository:      messageRepository,
		conversationRepository: conversationRepository,
		traceRepository:        traceRepository,
		permissions:            permissions,
		ledger:                 ledgerClient,
		ledgerTimeout:          ledgerTimeout,
	}
}

// Forward copies messageID into targetConversationID on behalf of actorID.
// The original sender may always forward; anyone else needs a granted
// forward request. Returns the new message and the ledger trace tx (empty
// when the ledger is unavailable — the forward itself still succeeds).
func (s *ForwardService) Forward(messageID, targetConversationID, actorID string) (*model.Message, string, error) {
	msg, err := s.messageRepository.ByID(messageID)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	ok, err := s.conversationRepository.IsParticipant(targetConversationID, actorID)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrForbidden
	}

	if msg.SenderID != actorID {
		allowed, err := s.permissions.CanForward(messageID, actorID)
		if err != nil {
			return nil, "", err
		}
		if !allowed {
			return nil, "", ErrForwardNotGranted
		}
	}

	forwarded := &model.Message{
		ID:               uuid.New().String(),
		ConversationID:   targetConversationID,
		SenderID:         actorID,
		PayloadEncrypted: msg.PayloadEncrypted,
		IV:               msg.IV,
		AuthTag:          msg.AuthTag,
		CreatedAt:        time.Now(),
	}

	err = s.messageRepository.Create(forwarded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store forwarded message: %w", err)
	}

	trace := &model.ForwardTrace{
		ID:                   uuid.New().String(),
		OriginalMessageID:    messageID,
		ForwardedMessageID:   forwarded.ID,
		ForwardedBy:          actorID,
		TargetConversationID: targetConversationID,
		PermissionGranted:    true,
		CreatedAt:            time.Now(),
	}
	err = s.traceRepository.Create(trace)
	if err != nil {
		slog.Warn("failed to store forward trace", "error", err, "message_id", messageID)
	}

	// Awaited for the response's audit metadata, but failure is swallowed:
	// the local forward already committed.
	ctx, cancel := context.WithTimeout(context.Background(), s.ledgerTimeout)
	defer cancel()

	tx, err := s.ledger.TraceForward(ctx, messageID, forwarded.ID, true)
	if err != nil {
		slog.Warn("ledger forward trace failed", "error", err, "message_id", messageID)
		return forwarded, "", nil
	}
	if tx != "" {
		err = s.traceRepository.SetLedgerTx(trace.ID, tx)
		if err != nil {
			slog.Warn("failed to record forward trace ledger tx", "error", err, "trace_id", trace.ID)
		}
	}

	return forwarded, tx, nil
}
