package domain

import (
	"fmt"
	"strings"
	"time"
)

// AuctionLot is one closed lot. Rows are written by the parser/ingestion side
// and are immutable here except for enrichment fields (PredictedPrice).
type AuctionLot struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AuctionNumber   int        `gorm:"column:auction_number;not null;index" json:"auction_number"`
	LotNumber       int        `gorm:"column:lot_number;not null" json:"lot_number"`
	CoinDescription string     `gorm:"column:coin_description" json:"coin_description"`
	Year            int        `gorm:"column:year" json:"year"`
	Condition       string     `gorm:"column:condition" json:"condition"`
	Category        string     `gorm:"column:category" json:"category"`
	StartingBid     float64    `gorm:"column:starting_bid" json:"starting_bid"`
	WinningBid      *float64   `gorm:"column:winning_bid" json:"winning_bid"`
	WinnerLogin     *string    `gorm:"column:winner_login;index" json:"winner_login"`
	SellerLogin     *string    `gorm:"column:seller_login;index" json:"seller_login"`
	AuctionEndDate  time.Time  `gorm:"column:auction_end_date;index" json:"auction_end_date"`
	PredictedPrice  *float64   `gorm:"column:predicted_price" json:"predicted_price"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuctionLot) TableName() string {
	return "auction_lots"
}

// Validate checks the price sanity invariant. A failing lot is a malformed
// record: skipped with a warning, never fatal.
func (l AuctionLot) Validate() error {
	if l.StartingBid < 0 {
		return fmt.Errorf("lot %d/%d: negative starting bid %.2f", l.AuctionNumber, l.LotNumber, l.StartingBid)
	}
	if l.WinningBid != nil && *l.WinningBid < l.StartingBid {
		return fmt.Errorf("lot %d/%d: winning bid %.2f below starting bid %.2f", l.AuctionNumber, l.LotNumber, *l.WinningBid, l.StartingBid)
	}
	return nil
}

// ItemKey normalizes a lot into the identity key used to recognize the same
// coin across listings: description + year + condition.
func (l AuctionLot) ItemKey() string {
	desc := strings.ToLower(strings.Join(strings.Fields(l.CoinDescription), " "))
	return fmt.Sprintf("%s|%d|%s", desc, l.Year, strings.ToUpper(strings.TrimSpace(l.Condition)))
}

// IsDead reports whether the lot closed without a real sale: no winner, zero
// final price, or final price equal to the starting price.
func (l AuctionLot) IsDead() bool {
	if l.WinnerLogin == nil || *l.WinnerLogin == "" {
		return true
	}
	if l.WinningBid == nil || *l.WinningBid == 0 {
		return true
	}
	return *l.WinningBid == l.StartingBid
}

// AnalysisWindow bounds one batch run. A zero From means full history.
type AnalysisWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w AnalysisWindow) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}
