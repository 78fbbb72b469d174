package scoring

import (
	"auctionWatch/domain"
)

// DetectBaiting scores bidders who drive one lot's price up in large steps,
// the classic way a planted account inflates a sale. For every (bidder, lot)
// pair with enough bids, the percentage increase between the bidder's lowest
// and highest bid is tiered; the bidder keeps the worst lot's score.
func DetectBaiting(cfg BaitingConfig, bids []domain.LotBid) ResultSet {
	if len(bids) == 0 {
		return nil
	}

	type pairKey struct {
		login string
		lotID uint
	}
	type pairStats struct {
		count    int
		min, max float64
	}
	pairs := make(map[pairKey]*pairStats)
	for _, b := range bids {
		if b.BidAmount <= 0 {
			continue
		}
		k := pairKey{login: b.BidderLogin, lotID: b.LotID}
		s, ok := pairs[k]
		if !ok {
			pairs[k] = &pairStats{count: 1, min: b.BidAmount, max: b.BidAmount}
			continue
		}
		s.count++
		if b.BidAmount < s.min {
			s.min = b.BidAmount
		}
		if b.BidAmount > s.max {
			s.max = b.BidAmount
		}
	}

	out := make(ResultSet)
	for k, s := range pairs {
		if _, ok := out[k.login]; !ok {
			out[k.login] = scored(domain.DetectorBaiting, k.login, 0)
		}
		if s.count < cfg.MinBidsPerLot || s.min <= 0 {
			continue
		}

		increasePct := (s.max - s.min) / s.min * 100
		var score float64
		switch {
		case increasePct > cfg.IncreaseHighPct:
			score = cfg.ScoreHigh
		case increasePct > cfg.IncreaseMidPct:
			score = cfg.ScoreMid
		case increasePct > cfg.IncreaseLowPct:
			score = cfg.ScoreLow
		default:
			continue
		}
		if out[k.login].Score >= score {
			continue
		}
		out[k.login] = scored(domain.DetectorBaiting, k.login, score, Evidence{
			Description: "single bidder escalating one lot's price in large steps",
			Facts: map[string]any{
				"lot_id":       k.lotID,
				"bids":         s.count,
				"min_bid":      s.min,
				"max_bid":      s.max,
				"increase_pct": increasePct,
			},
		})
	}
	return out
}
