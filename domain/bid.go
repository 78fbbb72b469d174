package domain

import (
	"fmt"
	"time"
)

// LotBid is one bidding event. Bids are append-only; the collector never
// rewrites history.
type LotBid struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LotID         uint      `gorm:"column:lot_id;not null;index" json:"lot_id"`
	AuctionNumber int       `gorm:"column:auction_number;not null;index" json:"auction_number"`
	LotNumber     int       `gorm:"column:lot_number;not null" json:"lot_number"`
	BidderLogin   string    `gorm:"column:bidder_login;not null;index" json:"bidder_login"`
	BidAmount     float64   `gorm:"column:bid_amount;not null" json:"bid_amount"`
	BidTimestamp  time.Time `gorm:"column:bid_timestamp;not null;index" json:"bid_timestamp"`
	IsAutoBid     bool      `gorm:"column:is_auto_bid;default:false" json:"is_auto_bid"`
	SourceIP      *string   `gorm:"column:source_ip" json:"source_ip"`
	SessionID     *string   `gorm:"column:session_id" json:"session_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LotBid) TableName() string {
	return "lot_bids"
}

func (b LotBid) Validate() error {
	if b.BidAmount < 0 {
		return fmt.Errorf("bid %d on lot %d: negative amount %.2f", b.ID, b.LotID, b.BidAmount)
	}
	if b.BidderLogin == "" {
		return fmt.Errorf("bid %d on lot %d: empty bidder login", b.ID, b.LotID)
	}
	return nil
}

// Origin returns the grouping key for shared-origin detection: the source IP
// when collected, otherwise the session id. Empty when neither was tracked.
func (b LotBid) Origin() string {
	if b.SourceIP != nil && *b.SourceIP != "" {
		return *b.SourceIP
	}
	if b.SessionID != nil && *b.SessionID != "" {
		return *b.SessionID
	}
	return ""
}
