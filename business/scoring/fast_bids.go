package scoring

import (
	"sort"

	"auctionWatch/domain"
)

// DetectFastBids scores bidders whose manual bids land implausibly close
// together in time. Candidate selection is two-tier: prefer entities already
// flagged by a previous run, and fall back to every bidder active on
// contested lots when no prior flags exist. Automated bids are excluded
// before interval measurement so autobid bursts do not pollute the signal.
func DetectFastBids(cfg FastBidsConfig, bids []domain.LotBid, priorFlagged map[string]bool) ResultSet {
	manual := make([]domain.LotBid, 0, len(bids))
	for _, b := range bids {
		if !b.IsAutoBid {
			manual = append(manual, b)
		}
	}
	if len(manual) == 0 {
		return nil
	}

	candidates := fastBidCandidates(cfg, manual, priorFlagged)
	if len(candidates) == 0 {
		return nil
	}

	byBidder := make(map[string][]domain.LotBid)
	for _, b := range manual {
		if candidates[b.BidderLogin] {
			byBidder[b.BidderLogin] = append(byBidder[b.BidderLogin], b)
		}
	}

	out := make(ResultSet, len(byBidder))
	for login, bb := range byBidder {
		out[login] = scoreFastBidder(cfg, login, bb)
	}
	return out
}

func fastBidCandidates(cfg FastBidsConfig, manual []domain.LotBid, priorFlagged map[string]bool) map[string]bool {
	if len(priorFlagged) > 0 {
		return priorFlagged
	}

	// Fallback: bidders on lots with enough manual activity to be contested.
	perLot := make(map[uint]int)
	for _, b := range manual {
		perLot[b.LotID]++
	}
	candidates := make(map[string]bool)
	for _, b := range manual {
		if perLot[b.LotID] > cfg.FallbackMinManualBids {
			candidates[b.BidderLogin] = true
		}
	}
	return candidates
}

func scoreFastBidder(cfg FastBidsConfig, login string, bids []domain.LotBid) Result {
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].BidTimestamp.Before(bids[j].BidTimestamp)
	})

	var subCritical, subSuspicious, subWarning int
	var minInterval float64 = -1
	for i := 1; i < len(bids); i++ {
		gap := bids[i].BidTimestamp.Sub(bids[i-1].BidTimestamp).Seconds()
		if gap < 0 {
			continue
		}
		if minInterval < 0 || gap < minInterval {
			minInterval = gap
		}
		switch {
		case gap < cfg.CriticalIntervalSec:
			subCritical++
		case gap < cfg.SuspiciousIntervalSec:
			subSuspicious++
		case gap < cfg.WarningIntervalSec:
			subWarning++
		}
	}

	facts := map[string]any{
		"manual_bids":          len(bids),
		"min_interval_sec":     minInterval,
		"sub_critical_count":   subCritical,
		"sub_suspicious_count": subCritical + subSuspicious,
		"sub_warning_count":    subCritical + subSuspicious + subWarning,
	}

	// Tiers are strictly escalating and the strongest one wins.
	switch {
	case subCritical > 0:
		return scored(domain.DetectorFastBids, login, cfg.ScoreCritical, Evidence{
			Description: "manual bids placed under the critical interval",
			Facts:       facts,
		})
	case subCritical+subSuspicious > cfg.SuspiciousCountMin:
		return scored(domain.DetectorFastBids, login, cfg.ScoreSuspicious, Evidence{
			Description: "repeated manual bids inside the suspicious interval",
			Facts:       facts,
		})
	case subCritical+subSuspicious+subWarning > cfg.WarningCountMin:
		return scored(domain.DetectorFastBids, login, cfg.ScoreWarning, Evidence{
			Description: "sustained rapid manual bidding",
			Facts:       facts,
		})
	}
	return scored(domain.DetectorFastBids, login, 0)
}
