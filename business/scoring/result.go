package scoring

import (
	"auctionWatch/domain"
)

// Evidence is one concrete observed fact backing a detector result. Facts
// holds the raw numbers so a reviewer can re-check the tier by hand.
type Evidence struct {
	Description string
	Facts       map[string]any
}

// Result is one detector's verdict for one entity. A detector returns a
// Result for every entity it actually analyzed, including zero-score ones;
// entities missing from a detector's output were not analyzable and keep
// their previously stored component score.
type Result struct {
	Detector string
	Entity   string
	Score    float64
	Risk     domain.RiskLevel
	Evidence []Evidence
}

// ResultSet maps entity login to the detector's verdict.
type ResultSet map[string]Result

func riskForScore(score float64) domain.RiskLevel {
	switch {
	case score >= 50:
		return domain.RiskCritical
	case score >= 30:
		return domain.RiskSuspicious
	case score > 0:
		return domain.RiskAttention
	default:
		return domain.RiskNormal
	}
}

func scored(detector, entity string, score float64, ev ...Evidence) Result {
	return Result{
		Detector: detector,
		Entity:   entity,
		Score:    score,
		Risk:     riskForScore(score),
		Evidence: ev,
	}
}
