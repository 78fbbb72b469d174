package domain

import (
	"time"
)

// Detector names. These double as the score keys accepted by the rating
// upsert; anything outside this set is rejected before it reaches SQL.
const (
	DetectorFastBids      = "fast_bids"
	DetectorAutobidTraps  = "autobid_traps"
	DetectorCarousel      = "carousel"
	DetectorMultiAccounts = "multi_accounts"
	DetectorSyncBidding   = "sync_bidding"
	DetectorBaiting       = "baiting"
	DetectorDeadLots      = "dead_lots"
)

// AllDetectors lists every detector in report order.
var AllDetectors = []string{
	DetectorFastBids,
	DetectorAutobidTraps,
	DetectorCarousel,
	DetectorMultiAccounts,
	DetectorSyncBidding,
	DetectorBaiting,
	DetectorDeadLots,
}

// ScoreColumns maps detector names to winner_ratings columns. The map is the
// allowlist guarding dynamic column names in the upsert.
var ScoreColumns = map[string]string{
	DetectorFastBids:      "fast_bids_score",
	DetectorAutobidTraps:  "autobid_traps_score",
	DetectorCarousel:      "carousel_score",
	DetectorMultiAccounts: "multi_accounts_score",
	DetectorSyncBidding:   "sync_bidding_score",
	DetectorBaiting:       "baiting_score",
	DetectorDeadLots:      "dead_lots_score",
}

// WinnerRating is the persisted suspicion record for one login (bidder or
// seller). SuspiciousScore is always the plain sum of the component columns;
// it is recomputed inside the upsert transaction and nowhere else. Rows are
// never deleted so that manipulation history survives for audit.
type WinnerRating struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	WinnerLogin        string    `gorm:"column:winner_login;unique;not null" json:"winner_login"`
	FastBidsScore      float64   `gorm:"column:fast_bids_score;default:0" json:"fast_bids_score"`
	AutobidTrapsScore  float64   `gorm:"column:autobid_traps_score;default:0" json:"autobid_traps_score"`
	CarouselScore      float64   `gorm:"column:carousel_score;default:0" json:"carousel_score"`
	MultiAccountsScore float64   `gorm:"column:multi_accounts_score;default:0" json:"multi_accounts_score"`
	SyncBiddingScore   float64   `gorm:"column:sync_bidding_score;default:0" json:"sync_bidding_score"`
	BaitingScore       float64   `gorm:"column:baiting_score;default:0" json:"baiting_score"`
	DeadLotsScore      float64   `gorm:"column:dead_lots_score;default:0" json:"dead_lots_score"`
	SuspiciousScore    float64   `gorm:"column:suspicious_score;default:0;index" json:"suspicious_score"`
	LastAnalysisDate   time.Time `gorm:"column:last_analysis_date" json:"last_analysis_date"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WinnerRating) TableName() string {
	return "winner_ratings"
}

// ComponentScores returns the stored per-detector scores as a map keyed by
// detector name. Zero-valued components are included: a missing detector is
// a 0 contribution, never "unknown".
func (r WinnerRating) ComponentScores() map[string]float64 {
	return map[string]float64{
		DetectorFastBids:      r.FastBidsScore,
		DetectorAutobidTraps:  r.AutobidTrapsScore,
		DetectorCarousel:      r.CarouselScore,
		DetectorMultiAccounts: r.MultiAccountsScore,
		DetectorSyncBidding:   r.SyncBiddingScore,
		DetectorBaiting:       r.BaitingScore,
		DetectorDeadLots:      r.DeadLotsScore,
	}
}

// FiredDetectors counts components with a non-zero score. Used as the second
// key when ranking entities at equal composite score.
func (r WinnerRating) FiredDetectors() int {
	n := 0
	for _, v := range r.ComponentScores() {
		if v > 0 {
			n++
		}
	}
	return n
}
