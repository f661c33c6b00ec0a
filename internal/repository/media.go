package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

var (
	ErrMediaNotFound = errors.New("media not found")
)

type MediaRepository interface {
	Create(media *model.Media) error
	ByID(id string) (*model.Media, error)
	AttachToMessage(mediaID, messageID string) error
	ActivateKillSwitch(id string) error
	SetLedgerTx(id, tx string) error
	SetLedgerKillTx(id, tx string) error
	IsFingerprintKilled(hash string) (bool, error)
	KilledFingerprints() ([]string, error)
	SharedFiles(conversationID, ownerID string) ([]*model.Media, error)
}

type mediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(media *model.Media) error {
	query := `INSERT INTO media (id, owner_id, message_id, fingerprint_hash, mime_type, storage_path, size, kill_switch_active, ledger_tx, ledger_kill_tx, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		media.ID,
		media.OwnerID,
		media.MessageID,
		media.FingerprintHash,
		media.MimeType,
		media.StoragePath,
		media.Size,
		media.KillSwitchActive,
		media.LedgerTx,
		media.LedgerKillTx,
		media.CreatedAt,
	)

	return err
}

func (r *mediaRepository) ByID(id string) (*model.Media, error) {
	media := &model.Media{}
	query := `SELECT * FROM media WHERE id = $1`

	err := r.db.Get(media, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrMediaNotFound
	}

	return media, err
}

func (r *mediaRepository) AttachToMessage(mediaID, messageID string) error {
	query := `UPDATE media SET message_id = $1 WHERE id = $2`
	_, err := r.db.Exec(query, messageID, mediaID)
	return err
}

// ActivateKillSwitch flips the flag in a single statement. Racing
// activations are safe: both updates set the same terminal state.
func (r *mediaRepository) ActivateKillSwitch(id string) error {
	query := `UPDATE media SET kill_switch_active = TRUE WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *mediaRepository) SetLedgerTx(id, tx string) error {
	query := `UPDATE media SET ledger_tx = $1 WHERE id = $2`
	_, err := r.db.Exec(query, tx, id)
	return err
}

func (r *mediaRepository) SetLedgerKillTx(id, tx string) error {
	query := `UPDATE media SET ledger_kill_tx = $1 WHERE id = $2`
	_, err := r.db.Exec(query, tx, id)
	return err
}

// IsFingerprintKilled answers at fingerprint granularity: killing one media
// row disables every row sharing the same content hash, across owners.
func (r *mediaRepository) IsFingerprintKilled(hash string) (bool, error) {
	var killed bool
	query := `SELECT EXISTS (SELECT 1 FROM media WHERE fingerprint_hash = $1 AND kill_switch_active = TRUE)`

	err := r.db.Get(&killed, query, hash)
	return killed, err
}

func (r *mediaRepository) KilledFingerprints() ([]string, error) {
	var hashes []string
	query := `SELECT DISTINCT fingerprint_hash FROM media WHERE kill_switch_active = TRUE`

	err := r.db.Select(&hashes, query)
	if err != nil {
		return nil, err
	}

	return hashes, nil
}

func (r *mediaRepository) SharedFiles(conversationID, ownerID string) ([]*model.Media, error) {
	var items []*model.Media
	query := `SELECT m.* FROM media m
	          JOIN messages msg ON msg.id = m.message_id
	          WHERE msg.conversation_id = $1 AND m.owner_id = $2 AND m.message_id IS NOT NULL
	          ORDER BY msg.created_at DESC`

	err := r.db.Select(&items, query, conversationID, ownerID)
	if err != nil {
		return nil, err
	}

	return items, nil
}
