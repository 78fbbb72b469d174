package postgres

import (
	"context"
	"fmt"

	"auctionWatch/domain"

	"gorm.io/gorm"
)

type LotRepository struct {
	DB *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{DB: db}
}

func (r *LotRepository) LotsInWindow(ctx context.Context, w domain.AnalysisWindow) ([]domain.AuctionLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.AuctionLot{})
	if !w.From.IsZero() {
		q = q.Where("auction_end_date >= ?", w.From)
	}
	if !w.To.IsZero() {
		q = q.Where("auction_end_date <= ?", w.To)
	}

	var lots []domain.AuctionLot
	if err := q.Order("auction_end_date asc").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to query auction_lots: %w", err)
	}
	return lots, nil
}
