package scoring

import (
	"auctionWatch/domain"
)

// DetectAutobidTraps scores winners who appear to bait rivals' automatic
// bidding into overpaying. A won lot counts as a trap when the winner bid
// automatically, the lot was genuinely contested, the final price ran well
// past the predicted price, and at least one other participant is a known
// fast bidder. Requires bid history and price predictions, so the runner
// only schedules this detector after the data-availability check passes.
func DetectAutobidTraps(cfg AutobidTrapsConfig, lots []domain.AuctionLot, bids []domain.LotBid, fastBidders map[string]bool) ResultSet {
	if len(lots) == 0 || len(bids) == 0 {
		return nil
	}

	byLot := make(map[uint][]domain.LotBid)
	for _, b := range bids {
		byLot[b.LotID] = append(byLot[b.LotID], b)
	}

	type trap struct {
		lot        domain.AuctionLot
		multiplier float64
	}
	trapsByWinner := make(map[string][]trap)
	winners := make(map[string]bool)

	for _, lot := range lots {
		if lot.WinnerLogin == nil || lot.WinningBid == nil || lot.PredictedPrice == nil || *lot.PredictedPrice <= 0 {
			continue
		}
		winner := *lot.WinnerLogin
		lotBids := byLot[lot.ID]
		if len(lotBids) < cfg.MinTotalBids {
			continue
		}
		winners[winner] = true

		bidders := make(map[string]bool)
		winnerUsedAutobid := false
		rivalFastBidder := false
		for _, b := range lotBids {
			bidders[b.BidderLogin] = true
			if b.BidderLogin == winner && b.IsAutoBid {
				winnerUsedAutobid = true
			}
			if b.BidderLogin != winner && fastBidders[b.BidderLogin] {
				rivalFastBidder = true
			}
		}
		if len(bidders) < cfg.MinUniqueBidders || !winnerUsedAutobid || !rivalFastBidder {
			continue
		}

		mult := *lot.WinningBid / *lot.PredictedPrice
		if mult < cfg.MultiplierLow {
			continue
		}
		trapsByWinner[winner] = append(trapsByWinner[winner], trap{lot: lot, multiplier: mult})
	}

	out := make(ResultSet, len(winners))
	for winner := range winners {
		traps := trapsByWinner[winner]
		if len(traps) == 0 {
			out[winner] = scored(domain.DetectorAutobidTraps, winner, 0)
			continue
		}

		var maxMult, sumMult float64
		lotNumbers := make([]int, 0, len(traps))
		for _, t := range traps {
			if t.multiplier > maxMult {
				maxMult = t.multiplier
			}
			sumMult += t.multiplier
			lotNumbers = append(lotNumbers, t.lot.LotNumber)
		}
		avgMult := sumMult / float64(len(traps))

		var score float64
		switch {
		case maxMult >= cfg.MultiplierHigh:
			score = cfg.ScoreHigh
		case maxMult >= cfg.MultiplierMid:
			score = cfg.ScoreMid
		case avgMult >= cfg.MultiplierLow:
			score = cfg.ScoreLow
		}
		out[winner] = scored(domain.DetectorAutobidTraps, winner, score, Evidence{
			Description: "won contested lots far above predicted price using autobid",
			Facts: map[string]any{
				"trapped_lots":   lotNumbers,
				"max_multiplier": maxMult,
				"avg_multiplier": avgMult,
			},
		})
	}
	return out
}
