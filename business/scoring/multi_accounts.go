package scoring

import (
	"auctionWatch/domain"
)

// DetectMultiAccounts scores groups of logins that bid from one shared
// origin (source IP when present, otherwise session id). Every login in a
// flagged origin receives the same score. Origins on the allowlist, such as
// known office networks, are skipped. Needs origin metadata on bids, so it
// runs only in the extended phase.
func DetectMultiAccounts(cfg MultiAccountsConfig, bids []domain.LotBid) ResultSet {
	allowed := make(map[string]bool, len(cfg.SharedOriginAllowlist))
	for _, o := range cfg.SharedOriginAllowlist {
		allowed[o] = true
	}

	byOrigin := make(map[string]map[string]bool)
	sawOrigin := false
	for _, b := range bids {
		origin := b.Origin()
		if origin == "" {
			continue
		}
		sawOrigin = true
		if allowed[origin] {
			continue
		}
		logins, ok := byOrigin[origin]
		if !ok {
			logins = make(map[string]bool)
			byOrigin[origin] = logins
		}
		logins[b.BidderLogin] = true
	}
	if !sawOrigin {
		return nil
	}

	out := make(ResultSet)
	for origin, logins := range byOrigin {
		var score float64
		switch {
		case len(logins) >= cfg.LoginsHigh:
			score = cfg.ScoreHigh
		case len(logins) >= cfg.LoginsMid:
			score = cfg.ScoreMid
		case len(logins) >= cfg.LoginsLow:
			score = cfg.ScoreLow
		}

		all := make([]string, 0, len(logins))
		for l := range logins {
			all = append(all, l)
		}
		ev := Evidence{
			Description: "multiple logins bidding from one origin",
			Facts: map[string]any{
				"origin": origin,
				"logins": all,
			},
		}
		for login := range logins {
			if prev, ok := out[login]; ok && prev.Score >= score {
				continue
			}
			if score > 0 {
				out[login] = scored(domain.DetectorMultiAccounts, login, score, ev)
			} else {
				out[login] = scored(domain.DetectorMultiAccounts, login, 0)
			}
		}
	}
	return out
}
