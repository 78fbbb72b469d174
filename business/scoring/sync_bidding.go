package scoring

import (
	"sort"

	"auctionWatch/domain"
)

// DetectSyncBidding scores pairs of bidders whose bids on the same lot land
// within a short window of each other, a pattern typical of coordinated
// accounts. Bids are scanned forward-only per lot so each pair is measured
// once; both members of a flagged pair receive their strongest pair score.
func DetectSyncBidding(cfg SyncBiddingConfig, bids []domain.LotBid) ResultSet {
	if len(bids) == 0 {
		return nil
	}

	byLot := make(map[uint][]domain.LotBid)
	for _, b := range bids {
		byLot[b.LotID] = append(byLot[b.LotID], b)
	}

	out := make(ResultSet)
	mark := func(login string, score float64, ev Evidence) {
		prev, ok := out[login]
		if ok && prev.Score >= score {
			return
		}
		if score > 0 {
			out[login] = scored(domain.DetectorSyncBidding, login, score, ev)
		} else if !ok {
			out[login] = scored(domain.DetectorSyncBidding, login, 0)
		}
	}

	for _, lotBids := range byLot {
		sort.Slice(lotBids, func(i, j int) bool {
			return lotBids[i].BidTimestamp.Before(lotBids[j].BidTimestamp)
		})

		for i := range lotBids {
			mark(lotBids[i].BidderLogin, 0, Evidence{})
			for j := i + 1; j < len(lotBids); j++ {
				gap := lotBids[j].BidTimestamp.Sub(lotBids[i].BidTimestamp).Seconds()
				if gap >= cfg.WindowSec {
					break
				}
				if lotBids[i].BidderLogin == lotBids[j].BidderLogin {
					continue
				}

				var score float64
				switch {
				case gap < cfg.CriticalGapSec:
					score = cfg.ScoreCritical
				case gap < cfg.SuspiciousGapSec:
					score = cfg.ScoreSuspicious
				default:
					score = cfg.ScoreWarning
				}
				ev := Evidence{
					Description: "near-simultaneous bids on one lot by two logins",
					Facts: map[string]any{
						"lot_id":  lotBids[i].LotID,
						"first":   lotBids[i].BidderLogin,
						"second":  lotBids[j].BidderLogin,
						"gap_sec": gap,
					},
				}
				mark(lotBids[i].BidderLogin, score, ev)
				mark(lotBids[j].BidderLogin, score, ev)
			}
		}
	}
	return out
}
