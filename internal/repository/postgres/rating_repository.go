package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auctionWatch/business/scoring"
	"auctionWatch/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository struct {
	DB *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{DB: db}
}

// compositeExpr sums every score column in detector order. Built once from
// the same allowlist that guards the upsert, so a new detector column only
// has to be added in one place.
var compositeExpr = func() string {
	cols := make([]string, 0, len(domain.AllDetectors))
	for _, det := range domain.AllDetectors {
		cols = append(cols, domain.ScoreColumns[det])
	}
	return strings.Join(cols, " + ")
}()

// UpsertScores inserts or updates the rating row for one login. Only the
// detector columns present in scores are written; the rest keep their
// stored values. The composite is recomputed from all stored columns inside
// the same transaction, so concurrent upserts for different detectors never
// leave a stale sum.
func (r *RatingRepository) UpsertScores(ctx context.Context, login string, scores map[string]float64, analyzedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if login == "" {
		return errors.New("empty login")
	}

	assignments := map[string]interface{}{"last_analysis_date": analyzedAt}
	for det, score := range scores {
		col, ok := domain.ScoreColumns[det]
		if !ok {
			return fmt.Errorf("unknown detector score key %q", det)
		}
		if score < 0 || score > 50 {
			return fmt.Errorf("detector %s score %.2f outside [0, 50]", det, score)
		}
		assignments[col] = score
	}

	rating := domain.WinnerRating{WinnerLogin: login, LastAnalysisDate: analyzedAt}
	applyScores(&rating, scores)

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "winner_login"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&rating).Error
		if err != nil {
			return fmt.Errorf("failed to upsert winner_ratings: %w", err)
		}

		err = tx.Model(&domain.WinnerRating{}).
			Where("winner_login = ?", login).
			Update("suspicious_score", gorm.Expr(compositeExpr)).Error
		if err != nil {
			return fmt.Errorf("failed to recompute suspicious_score: %w", err)
		}
		return nil
	})
}

func applyScores(rating *domain.WinnerRating, scores map[string]float64) {
	for det, score := range scores {
		switch det {
		case domain.DetectorFastBids:
			rating.FastBidsScore = score
		case domain.DetectorAutobidTraps:
			rating.AutobidTrapsScore = score
		case domain.DetectorCarousel:
			rating.CarouselScore = score
		case domain.DetectorMultiAccounts:
			rating.MultiAccountsScore = score
		case domain.DetectorSyncBidding:
			rating.SyncBiddingScore = score
		case domain.DetectorBaiting:
			rating.BaitingScore = score
		case domain.DetectorDeadLots:
			rating.DeadLotsScore = score
		}
		rating.SuspiciousScore += score
	}
}

func (r *RatingRepository) ByLogin(ctx context.Context, login string) (domain.WinnerRating, error) {
	if err := ctx.Err(); err != nil {
		return domain.WinnerRating{}, fmt.Errorf("context error: %w", err)
	}

	var rating domain.WinnerRating
	err := r.DB.WithContext(ctx).First(&rating, "winner_login = ?", login).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.WinnerRating{}, scoring.ErrRatingNotFound
	}
	if err != nil {
		return domain.WinnerRating{}, fmt.Errorf("failed to query winner_ratings: %w", err)
	}
	return rating, nil
}

// firedExpr counts non-zero score columns, the second ranking key at equal
// composite score.
var firedExpr = func() string {
	terms := make([]string, 0, len(domain.AllDetectors))
	for _, det := range domain.AllDetectors {
		terms = append(terms, fmt.Sprintf("(%s > 0)::int", domain.ScoreColumns[det]))
	}
	return strings.Join(terms, " + ")
}()

func (r *RatingRepository) Top(ctx context.Context, threshold float64, limit int) ([]domain.WinnerRating, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Order(fmt.Sprintf("suspicious_score desc, (%s) desc, winner_login asc", firedExpr)).
		Limit(limit)
	if threshold > 0 {
		q = q.Where("suspicious_score >= ?", threshold)
	}

	var ratings []domain.WinnerRating
	if err := q.Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top winner_ratings: %w", err)
	}
	return ratings, nil
}

func (r *RatingRepository) FlaggedLogins(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var logins []string
	err := r.DB.WithContext(ctx).
		Model(&domain.WinnerRating{}).
		Where("suspicious_score > 0").
		Pluck("winner_login", &logins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged logins: %w", err)
	}
	return logins, nil
}
