package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/monmlabs/monm-server/internal/fingerprint"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/protected"
	"github.com/monmlabs/monm-server/internal/repository"
	"github.com/monmlabs/monm-server/internal/storage"
)

type MediaService struct {
	mediaRepository        repository.MediaRepository
	messageRepository      repository.MessageRepository
	conversationRepository repository.ConversationRepository
	storage                storage.Storage
	ledger                 ledger.Client
	ledgerTimeout          time.Duration
	appName                string
	appURL                 string
	maxProtectedSize       int64
}

func NewMediaService(
	mediaRepository repository.MediaRepository,
	messageRepository repository.MessageRepository,
	conversationRepository repository.ConversationRepository,
	blobStorage storage.Storage,
	ledgerClient ledger.Client,
	ledgerTimeout time.Duration,
	appName, appURL string,
	maxProtectedSize int64,
) *MediaService {
	return &MediaService{
		mediaRepository:        mediaRepository,
		messageRepository:      messageRepository,
		conversationRepository: conversationRepository,
		storage:                blobStorage,
		ledger:                 ledgerClient,
		ledgerTimeout:          ledgerTimeout,
		appName:                appName,
		appURL:                 appURL,
		maxProtectedSize:       maxProtectedSize,
	}
}

// Upload fingerprints and stores a blob for a conversation participant.
// The fingerprint is registered on the ledger asynchronously; the upload
// response never waits for the chain.
func (s *MediaService) Upload(ownerID, conversationID string, file multipart.File, header *multipart.FileHeader) (*model.Media, error) {
	ok, err := s.conversationRepository.IsParticipant(conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	buf, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(buf)
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".bin"
	}

	media := &model.Media{
		ID:               uuid.New().String(),
		OwnerID:          ownerID,
		FingerprintHash:  fingerprint.Sum(buf),
		MimeType:         mimeType,
		Size:             int64(len(buf)),
		KillSwitchActive: false,
		CreatedAt:        time.Now(),
	}
	media.StoragePath = media.ID + ext

	err = s.storage.Save(media.StoragePath, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to save blob: %w", err)
	}

	err = s.mediaRepository.Create(media)
	if err != nil {
		// If DB insert fails, try to cleanup the stored blob
		delErr := s.storage.Delete(media.StoragePath)
		if delErr != nil {
			slog.Error("failed to delete blob during cleanup", "error", delErr, "path", media.StoragePath)
		}
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}

	go s.registerFingerprint(media.ID, media.FingerprintHash, media.StoragePath)

	return media, nil
}

func (s *MediaService) registerFingerprint(mediaID, fp, locationHint string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.ledgerTimeout)
	defer cancel()

	tx, err := s.ledger.RegisterFingerprint(ctx, fp, locationHint)
	if err != nil {
		slog.Warn("ledger fingerprint registration failed", "error", err, "media_id", mediaID)
		return
	}
	if tx == "" {
		return
	}

	err = s.mediaRepository.SetLedgerTx(mediaID, tx)
	if err != nil {
		slog.Warn("failed to record fingerprint ledger tx", "error", err, "media_id", mediaID)
	}
}

func (s *MediaService) ByID(mediaID string) (*model.Media, error) {
	media, err := s.mediaRepository.ByID(mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return media, nil
}

// AttachToMessage links an uploaded blob to a sent message. Only the
// uploader may attach their media.
func (s *MediaService) AttachToMessage(mediaID, messageID, actorID string) error {
	media, err := s.ByID(mediaID)
	if err != nil {
		return err
	}
	if media.OwnerID != actorID {
		return ErrForbidden
	}

	return s.mediaRepository.AttachToMessage(mediaID, messageID)
}

// ActivateKillSwitch flips the media item from live to killed. The flag
// flip is synchronous so every later access check sees it; the ledger kill
// event is fire-and-forget. Killing an already-killed item succeeds
// without a second ledger event.
func (s *MediaService) ActivateKillSwitch(mediaID, actorID string) error {
	media, err := s.ByID(mediaID)
	if err != nil {
		return err
	}
	if media.OwnerID != actorID {
		return ErrForbidden
	}
	if media.KillSwitchActive {
		return nil
	}

	err = s.mediaRepository.ActivateKillSwitch(mediaID)
	if err != nil {
		return fmt.Errorf("failed to activate kill switch: %w", err)
	}

	slog.Info("kill switch activated", "media_id", mediaID, "fingerprint", media.FingerprintHash)
	go s.anchorKill(mediaID, media.FingerprintHash)

	return nil
}

func (s *MediaService) anchorKill(mediaID, fp string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.ledgerTimeout)
	defer cancel()

	tx, err := s.ledger.KillFingerprint(ctx, fp)
	if err != nil {
		slog.Warn("ledger kill event failed", "error", err, "media_id", mediaID)
		return
	}
	if tx == "" {
		return
	}

	err = s.mediaRepository.SetLedgerKillTx(mediaID, tx)
	if err != nil {
		slog.Warn("failed to record kill ledger tx", "error", err, "media_id", mediaID)
	}
}

// IsFingerprintKilled answers the public kill check. Granularity is the
// fingerprint, not the media row: killing one copy disables every
// identical upload, including other owners' copies.
func (s *MediaService) IsFingerprintKilled(hash string) (bool, error) {
	return s.mediaRepository.IsFingerprintKilled(hash)
}

func (s *MediaService) KilledFingerprints() ([]string, error) {
	return s.mediaRepository.KilledFingerprints()
}

func (s *MediaService) SharedFiles(conversationID, ownerID string) ([]*model.Media, error) {
	ok, err := s.conversationRepository.IsParticipant(conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	return s.mediaRepository.SharedFiles(conversationID, ownerID)
}

// authorizeAccess is the single owner-or-participant policy for viewing a
// blob: the owner always may; anyone else must share a conversation with
// the message the media is attached to.
func (s *MediaService) authorizeAccess(media *model.Media, userID string) error {
	if media.OwnerID == userID {
		return nil
	}
	if media.MessageID == nil {
		return ErrForbidden
	}

	msg, err := s.messageRepository.ByID(*media.MessageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrForbidden
		}
		return err
	}

	ok, err := s.conversationRepository.IsParticipant(msg.ConversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}

	return nil
}

// OpenBlob streams the raw blob to an authorized viewer. Killed content is
// gone for everyone, including the owner.
func (s *MediaService) OpenBlob(mediaID, userID string) (*model.Media, io.ReadCloser, error) {
	media, err := s.ByID(mediaID)
	if err != nil {
		return nil, nil, err
	}
	if media.KillSwitchActive {
		return nil, nil, ErrGone
	}

	err = s.authorizeAccess(media, userID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.storage.Open(media.StoragePath)
	if err != nil {
		return nil, nil, ErrNotFound
	}

	return media, rc, nil
}

// ProtectedDownload renders the self-verifying artifact for mediaID. The
// embedded content stays sealed behind the artifact's open-time kill
// check; this method only gates who may download the artifact at all.
func (s *MediaService) ProtectedDownload(mediaID, userID string) (string, []byte, error) {
	media, err := s.ByID(mediaID)
	if err != nil {
		return "", nil, err
	}
	if media.KillSwitchActive {
		return "", nil, ErrGone
	}

	err = s.authorizeAccess(media, userID)
	if err != nil {
		return "", nil, err
	}

	if media.Size > s.maxProtectedSize {
		return "", nil, ErrPayloadTooLarge
	}

	rc, err := s.storage.Open(media.StoragePath)
	if err != nil {
		return "", nil, ErrNotFound
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if int64(len(content)) > s.maxProtectedSize {
		return "", nil, ErrPayloadTooLarge
	}

	ext := filepath.Ext(media.StoragePath)
	artifact := protected.NewArtifact(s.appName, media.FingerprintHash, s.appURL, media.MimeType, ext, content)

	var buf bytes.Buffer
	err = protected.Render(&buf, artifact)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render artifact: %w", err)
	}

	return protected.Filename(ext), buf.Bytes(), nil
}
