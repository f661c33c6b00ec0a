package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
)

var (
	ErrSourceURLRequired = errors.New("sourceUrl is required")
)

// LeakService records owner-reported sightings of their content outside
// the app and anchors the evidence on the ledger.
type LeakService struct {
	leakRepository  repository.LeakReportRepository
	mediaRepository repository.MediaRepository
	ledger          ledger.Client
	ledgerTimeout   time.Duration
}

func NewLeakService(
	leakRepository repository.LeakReportRepository,
	mediaRepository repository.MediaRepository,
	ledgerClient ledger.Client,
	ledgerTimeout time.Duration,
) *LeakService {
	return &LeakService{
		leakRepository:  leakRepository,
		mediaRepository: mediaRepository,
		ledger:          ledgerClient,
		ledgerTimeout:   ledgerTimeout,
	}
}

func (s *LeakService) Report(mediaID, reporterID, sourceURL string) (*model.LeakReport, string, error) {
	if sourceURL == "" {
		return nil, "", ErrSourceURLRequired
	}
	if len(sourceURL) > 500 {
		sourceURL = sourceURL[:500]
	}

	media, err := s.mediaRepository.ByID(mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if media.OwnerID != reporterID {
		return nil, "", ErrForbidden
	}

	report := &model.LeakReport{
		ID:        uuid.New().String(),
		UserID:    reporterID,
		MediaID:   mediaID,
		SourceURL: sourceURL,
		CreatedAt: time.Now(),
	}

	err = s.leakRepository.Create(report)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create leak report: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ledgerTimeout)
	defer cancel()

	tx, err := s.ledger.ReportLeak(ctx, report.ID, media.FingerprintHash, sourceURL)
	if err != nil {
		slog.Warn("ledger leak report failed", "error", err, "report_id", report.ID)
		return report, "", nil
	}
	if tx != "" {
		err = s.leakRepository.SetLedgerTx(report.ID, tx)
		if err != nil {
			slog.Warn("failed to record leak report ledger tx", "error", err, "report_id", report.ID)
		}
	}

	return report, tx, nil
}
