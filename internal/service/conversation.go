package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
)

var (
	ErrParticipantsRequired = errors.New("at least one other participant is required")
)

type ConversationService struct {
	conversationRepository repository.ConversationRepository
}

func NewConversationService(conversationRepository repository.ConversationRepository) *ConversationService {
	return &ConversationService{conversationRepository: conversationRepository}
}

// Create starts a conversation between the creator and the given
// participants. Two members make a direct conversation, more a group.
func (s *ConversationService) Create(creatorID string, participantIDs []string) (*model.Conversation, error) {
	members := map[string]bool{creatorID: true}
	for _, id := range participantIDs {
		if id != "" {
			members[id] = true
		}
	}
	if len(members) < 2 {
		return nil, ErrParticipantsRequired
	}

	convType := model.ConversationTypeDirect
	if len(members) > 2 {
		convType = model.ConversationTypeGroup
	}

	conv := &model.Conversation{
		ID:        uuid.New().String(),
		Type:      convType,
		CreatedAt: time.Now(),
	}

	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}

	err := s.conversationRepository.Create(conv, ids)
	if err != nil {
		return nil, err
	}

	return conv, nil
}

func (s *ConversationService) ForUser(userID string) ([]*model.Conversation, error) {
	return s.conversationRepository.ForUser(userID)
}

func (s *ConversationService) IsParticipant(conversationID, userID string) (bool, error) {
	return s.conversationRepository.IsParticipant(conversationID, userID)
}
