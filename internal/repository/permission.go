package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

var (
	ErrPermissionRequestNotFound = errors.New("permission request not found")
)

// subjectColumn maps a permission type to the column holding its subject:
// forward requests act on a message, download requests on a media item.
func subjectColumn(permType string) string {
	if permType == model.PermissionTypeForward {
		return "message_id"
	}
	return "media_id"
}

type PermissionRepository interface {
	Create(pr *model.PermissionRequest) error
	PendingExists(permType, subjectID, requesterID string) (bool, error)
	ResolvePending(permType, subjectID, status string) (int64, error)
	LatestResolved(permType, subjectID, requesterID string) (*model.PermissionRequest, error)
}

type permissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) Create(pr *model.PermissionRequest) error {
	query := `INSERT INTO permission_requests (id, message_id, media_id, requester_id, owner_id, type, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		pr.ID,
		pr.MessageID,
		pr.MediaID,
		pr.RequesterID,
		pr.OwnerID,
		pr.Type,
		pr.Status,
		pr.CreatedAt,
	)

	return err
}

func (r *permissionRepository) PendingExists(permType, subjectID, requesterID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM permission_requests
	          WHERE ` + subjectColumn(permType) + ` = $1 AND requester_id = $2 AND type = $3 AND status = $4)`

	err := r.db.Get(&exists, query, subjectID, requesterID, permType, model.PermissionStatusPending)
	return exists, err
}

// ResolvePending sweeps every pending row for the subject in one UPDATE, so
// a request inserted concurrently is either fully resolved or fully left
// pending. Returns the number of rows resolved.
func (r *permissionRepository) ResolvePending(permType, subjectID, status string) (int64, error) {
	query := `UPDATE permission_requests SET status = $1
	          WHERE ` + subjectColumn(permType) + ` = $2 AND type = $3 AND status = $4`

	res, err := r.db.Exec(query, status, subjectID, permType, model.PermissionStatusPending)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// LatestResolved returns the newest granted/denied row for the tuple; that
// row is authoritative for "can this requester act now".
func (r *permissionRepository) LatestResolved(permType, subjectID, requesterID string) (*model.PermissionRequest, error) {
	pr := &model.PermissionRequest{}
	query := `SELECT * FROM permission_requests
	          WHERE ` + subjectColumn(permType) + ` = $1 AND requester_id = $2 AND type = $3 AND status != $4
	          ORDER BY created_at DESC LIMIT 1`

	err := r.db.Get(pr, query, subjectID, requesterID, permType, model.PermissionStatusPending)
	if err == sql.ErrNoRows {
		return nil, ErrPermissionRequestNotFound
	}

	return pr, err
}
