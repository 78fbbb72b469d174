package scoring

import (
	"auctionWatch/domain"
)

// DetectDeadLots scores sellers sitting on abnormal volumes of unsold lots,
// which often indicates inventory listed only to dress up a ring's other
// activity. This is the one seller-side signal; all other detectors target
// bidders and winners.
func DetectDeadLots(cfg DeadLotsConfig, lots []domain.AuctionLot) ResultSet {
	perSeller := make(map[string]int)
	sellers := make(map[string]bool)
	for _, lot := range lots {
		if lot.SellerLogin == nil || *lot.SellerLogin == "" {
			continue
		}
		sellers[*lot.SellerLogin] = true
		if lot.IsDead() {
			perSeller[*lot.SellerLogin]++
		}
	}
	if len(sellers) == 0 {
		return nil
	}

	out := make(ResultSet, len(sellers))
	for seller := range sellers {
		dead := perSeller[seller]
		var score float64
		switch {
		case dead >= cfg.VerySuspiciousCount:
			score = cfg.ScoreVerySuspicious
		case dead >= cfg.SuspiciousCount:
			score = cfg.ScoreSuspicious
		default:
			out[seller] = scored(domain.DetectorDeadLots, seller, 0)
			continue
		}
		out[seller] = scored(domain.DetectorDeadLots, seller, score, Evidence{
			Description: "seller with an abnormal count of unsold lots",
			Facts:       map[string]any{"dead_lots": dead},
		})
	}
	return out
}
