package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
)

// PermissionService runs the request/grant state machine gating forward
// and download capabilities. Per (subject, requester, type) the states are
// None -> Pending -> {Granted, Denied}; resolved rows never mutate again,
// re-asking creates a new row.
type PermissionService struct {
	permissionRepository repository.PermissionRepository
	mediaRepository      repository.MediaRepository
	messageRepository    repository.MessageRepository
}

func NewPermissionService(
	permissionRepository repository.PermissionRepository,
	mediaRepository repository.MediaRepository,
	messageRepository repository.MessageRepository,
) *PermissionService {
	return &PermissionService{
		permissionRepository: permissionRepository,
		mediaRepository:      mediaRepository,
		messageRepository:    messageRepository,
	}
}

// RequestDownload opens a pending download request against a media item.
// Prior granted/denied rows do not block a fresh request.
func (s *PermissionService) RequestDownload(mediaID, requesterID string) (*model.PermissionRequest, error) {
	media, err := s.mediaRepository.ByID(mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if media.OwnerID == requesterID {
		return nil, ErrSelfRequest
	}

	pending, err := s.permissionRepository.PendingExists(model.PermissionTypeDownload, mediaID, requesterID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrRequestPending
	}

	pr := &model.PermissionRequest{
		ID:          uuid.New().String(),
		MessageID:   media.MessageID,
		MediaID:     &media.ID,
		RequesterID: requesterID,
		OwnerID:     media.OwnerID,
		Type:        model.PermissionTypeDownload,
		Status:      model.PermissionStatusPending,
		CreatedAt:   time.Now(),
	}

	err = s.permissionRepository.Create(pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission request: %w", err)
	}

	return pr, nil
}

// RequestForward opens a pending forward request against a message.
func (s *PermissionService) RequestForward(messageID, requesterID string) (*model.PermissionRequest, error) {
	msg, err := s.messageRepository.ByID(messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if msg.SenderID == requesterID {
		return nil, ErrSelfRequest
	}

	pending, err := s.permissionRepository.PendingExists(model.PermissionTypeForward, messageID, requesterID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrRequestPending
	}

	pr := &model.PermissionRequest{
		ID:          uuid.New().String(),
		MessageID:   &msg.ID,
		RequesterID: requesterID,
		OwnerID:     msg.SenderID,
		Type:        model.PermissionTypeForward,
		Status:      model.PermissionStatusPending,
		CreatedAt:   time.Now(),
	}

	err = s.permissionRepository.Create(pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission request: %w", err)
	}

	return pr, nil
}

// ResolveDownload resolves every pending download request for a media item
// in one sweep. Only the media owner may resolve.
func (s *PermissionService) ResolveDownload(mediaID, resolverID string, granted bool) (string, error) {
	media, err := s.mediaRepository.ByID(mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if media.OwnerID != resolverID {
		return "", ErrForbidden
	}

	return s.resolve(model.PermissionTypeDownload, mediaID, granted)
}

// ResolveForward resolves every pending forward request for a message in
// one sweep. Only the original sender may resolve.
func (s *PermissionService) ResolveForward(messageID, resolverID string, granted bool) (string, error) {
	msg, err := s.messageRepository.ByID(messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if msg.SenderID != resolverID {
		return "", ErrForbidden
	}

	return s.resolve(model.PermissionTypeForward, messageID, granted)
}

func (s *PermissionService) resolve(permType, subjectID string, granted bool) (string, error) {
	status := model.PermissionStatusDenied
	if granted {
		status = model.PermissionStatusGranted
	}

	_, err := s.permissionRepository.ResolvePending(permType, subjectID, status)
	if err != nil {
		return "", fmt.Errorf("failed to resolve permission requests: %w", err)
	}

	return status, nil
}

// CanDownload reports whether userID may download the media item right
// now. Owners always may; otherwise the newest resolved request decides.
func (s *PermissionService) CanDownload(mediaID, userID string) (bool, error) {
	media, err := s.mediaRepository.ByID(mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	if media.OwnerID == userID {
		return true, nil
	}

	return s.latestGranted(model.PermissionTypeDownload, mediaID, userID)
}

// CanForward reports whether userID may forward the message right now.
func (s *PermissionService) CanForward(messageID, userID string) (bool, error) {
	msg, err := s.messageRepository.ByID(messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	if msg.SenderID == userID {
		return true, nil
	}

	return s.latestGranted(model.PermissionTypeForward, messageID, userID)
}

func (s *PermissionService) latestGranted(permType, subjectID, userID string) (bool, error) {
	pr, err := s.permissionRepository.LatestResolved(permType, subjectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionRequestNotFound) {
			return false, nil
		}
		return false, err
	}

	return pr.Status == model.PermissionStatusGranted, nil
}
