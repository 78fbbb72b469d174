package postgres

import (
	"context"
	"fmt"

	"auctionWatch/domain"

	"gorm.io/gorm"
)

type BidRepository struct {
	DB *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{DB: db}
}

func (r *BidRepository) windowed(ctx context.Context, w domain.AnalysisWindow) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&domain.LotBid{})
	if !w.From.IsZero() {
		q = q.Where("bid_timestamp >= ?", w.From)
	}
	if !w.To.IsZero() {
		q = q.Where("bid_timestamp <= ?", w.To)
	}
	return q
}

func (r *BidRepository) BidsInWindow(ctx context.Context, w domain.AnalysisWindow) ([]domain.LotBid, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var bids []domain.LotBid
	if err := r.windowed(ctx, w).Order("bid_timestamp asc").Find(&bids).Error; err != nil {
		return nil, fmt.Errorf("failed to query lot_bids: %w", err)
	}
	return bids, nil
}

// HasHistory reports whether any bid rows exist in the window. The parser
// only captures bid history for recent auctions, so this gates the
// bid-level detectors.
func (r *BidRepository) HasHistory(ctx context.Context, w domain.AnalysisWindow) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var count int64
	if err := r.windowed(ctx, w).Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count lot_bids: %w", err)
	}
	return count > 0, nil
}
