package postgres

import (
	"context"
	"fmt"

	"auctionWatch/domain"

	"gorm.io/gorm"
)

type EvidenceRepository struct {
	DB *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{DB: db}
}

func (r *EvidenceRepository) Append(ctx context.Context, rows []domain.AnalysisEvidence) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert analysis_evidence: %w", err)
	}
	return nil
}

func (r *EvidenceRepository) ByRun(ctx context.Context, runID string) ([]domain.AnalysisEvidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.AnalysisEvidence
	err := r.DB.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("confidence desc, entity_login asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis_evidence: %w", err)
	}
	return rows, nil
}
