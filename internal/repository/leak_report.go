package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

type LeakReportRepository interface {
	Create(report *model.LeakReport) error
	SetLedgerTx(id, tx string) error
}

type leakReportRepository struct {
	db *sqlx.DB
}

func NewLeakReportRepository(db *sqlx.DB) LeakReportRepository {
	return &leakReportRepository{db: db}
}

func (r *leakReportRepository) Create(report *model.LeakReport) error {
	query := `INSERT INTO leak_reports (id, user_id, media_id, source_url, ledger_tx, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		report.ID,
		report.UserID,
		report.MediaID,
		report.SourceURL,
		report.LedgerTx,
		report.CreatedAt,
	)

	return err
}

func (r *leakReportRepository) SetLedgerTx(id, tx string) error {
	query := `UPDATE leak_reports SET ledger_tx = $1 WHERE id = $2`
	_, err := r.db.Exec(query, tx, id)
	return err
}
