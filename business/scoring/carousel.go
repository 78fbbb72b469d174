package scoring

import (
	"sort"

	"auctionWatch/domain"
)

// carouselGroup is a set of completed sales of the same physical item,
// keyed by the normalized coin identity.
type carouselGroup struct {
	itemKey string
	sales   []domain.AuctionLot
}

// DetectCarousel scores rings that resell the same coin between themselves
// to fabricate a price history. Sales of one item are grouped by the
// normalized description, year and condition; each group accrues points for
// a short resale span, price growth, resale frequency across distinct
// auctions and concentration of bidding among few participants. Everyone who
// won in a flagged group is scored. Concentration counts every bidder active
// on the group's lots so that losing ring members are visible; winners stand
// in for them only when no bid history was collected.
func DetectCarousel(cfg CarouselConfig, lots []domain.AuctionLot, bids []domain.LotBid) ResultSet {
	biddersByLot := make(map[uint]map[string]bool)
	for _, b := range bids {
		m, ok := biddersByLot[b.LotID]
		if !ok {
			m = make(map[string]bool)
			biddersByLot[b.LotID] = m
		}
		m[b.BidderLogin] = true
	}

	groups := make(map[string]*carouselGroup)
	for _, lot := range lots {
		if lot.WinnerLogin == nil || lot.WinningBid == nil || *lot.WinningBid <= 0 {
			continue
		}
		key := lot.ItemKey()
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &carouselGroup{itemKey: key}
			groups[key] = g
		}
		g.sales = append(g.sales, lot)
	}

	out := make(ResultSet)
	analyzed := make(map[string]bool)
	for _, g := range groups {
		if len(g.sales) < cfg.MinSales {
			continue
		}
		for _, s := range g.sales {
			analyzed[*s.WinnerLogin] = true
		}

		groupScore, facts := scoreCarouselGroup(cfg, g, biddersByLot)

		var entityScore float64
		switch {
		case groupScore >= cfg.CriticalCutoff:
			entityScore = cfg.ScoreCritical
		case groupScore >= cfg.SuspiciousCutoff:
			entityScore = cfg.ScoreSuspicious
		case groupScore >= cfg.AttentionCutoff:
			entityScore = cfg.ScoreAttention
		default:
			continue
		}

		ev := Evidence{
			Description: "repeated resale of the same item inside a tight buyer circle",
			Facts:       facts,
		}
		for _, s := range g.sales {
			login := *s.WinnerLogin
			// A winner in several rings keeps the worst group's score.
			if prev, ok := out[login]; !ok || entityScore > prev.Score {
				out[login] = scored(domain.DetectorCarousel, login, entityScore, ev)
			}
		}
	}

	// Winners whose groups stayed below every cutoff still count as analyzed.
	for login := range analyzed {
		if _, ok := out[login]; !ok {
			out[login] = scored(domain.DetectorCarousel, login, 0)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func scoreCarouselGroup(cfg CarouselConfig, g *carouselGroup, biddersByLot map[uint]map[string]bool) (float64, map[string]any) {
	sales := g.sales
	sort.Slice(sales, func(i, j int) bool {
		return sales[i].AuctionEndDate.Before(sales[j].AuctionEndDate)
	})

	var score float64

	spanWeeks := sales[len(sales)-1].AuctionEndDate.Sub(sales[0].AuctionEndDate).Hours() / (24 * 7)
	if spanWeeks < cfg.ShortSpanWeeks {
		score += cfg.ShortSpanPoints
	}

	first, last := *sales[0].WinningBid, *sales[len(sales)-1].WinningBid
	var growthPct float64
	if first > 0 {
		growthPct = (last - first) / first * 100
	}
	switch {
	case growthPct > cfg.GrowthHighPct:
		score += cfg.GrowthHighPoints
	case growthPct > cfg.GrowthMidPct:
		score += cfg.GrowthMidPoints
	}

	// Resale frequency counts distinct auctions, not listings; the same
	// auction relisting an item twice is one event.
	auctions := make(map[int]bool)
	for _, s := range sales {
		auctions[s.AuctionNumber] = true
	}
	switch {
	case len(auctions) >= cfg.ManyAuctions:
		score += cfg.ManyAuctionsPoints
	case len(auctions) >= cfg.SomeAuctions:
		score += cfg.SomeAuctionsPoints
	}

	bidders := make(map[string]bool)
	for _, s := range sales {
		for login := range biddersByLot[s.ID] {
			bidders[login] = true
		}
	}
	if len(bidders) == 0 {
		// No bid rows for these lots; the winners approximate the circle.
		for _, s := range sales {
			bidders[*s.WinnerLogin] = true
		}
	}
	ratio := float64(len(bidders)) / float64(len(auctions))
	if ratio > 1 {
		ratio = 1
	}
	concentration := 1 - ratio
	switch {
	case concentration > cfg.ConcentrationHigh:
		score += cfg.ConcentrationHighPoints
	case concentration > cfg.ConcentrationMid:
		score += cfg.ConcentrationMidPoints
	}

	return score, map[string]any{
		"item_key":       g.itemKey,
		"sales":          len(sales),
		"auctions":       len(auctions),
		"span_weeks":     spanWeeks,
		"growth_pct":     growthPct,
		"unique_bidders": len(bidders),
		"concentration":  concentration,
		"group_score":    score,
	}
}
