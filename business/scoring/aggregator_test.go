//go:build !integration

package scoring

import (
	"testing"

	"auctionWatch/domain"
)

func TestAggregate_CompositeIsPlainSum(t *testing.T) {
	sets := map[string]ResultSet{
		domain.DetectorFastBids: {
			"wolf": scored(domain.DetectorFastBids, "wolf", 50),
		},
		domain.DetectorCarousel: {
			"wolf": scored(domain.DetectorCarousel, "wolf", 40),
		},
		domain.DetectorDeadLots: {
			"wolf": scored(domain.DetectorDeadLots, "wolf", 0),
		},
	}

	entities := Aggregate(sets)
	if len(entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(entities))
	}
	e := entities[0]
	if got := e.Composite(); got != 90 {
		t.Errorf("composite = %.0f, want 90", got)
	}
	if len(e.Components) != 3 {
		t.Errorf("components = %d, want 3 including the zero score", len(e.Components))
	}
}

func TestAggregate_MissingDetectorLeavesNoComponent(t *testing.T) {
	sets := map[string]ResultSet{
		domain.DetectorFastBids: {
			"wolf": scored(domain.DetectorFastBids, "wolf", 30),
		},
	}

	e := Aggregate(sets)[0]
	if _, ok := e.Components[domain.DetectorCarousel]; ok {
		t.Error("unanalyzed detector produced a component")
	}
}

func TestAggregate_Ordering(t *testing.T) {
	sets := map[string]ResultSet{
		domain.DetectorFastBids: {
			"alpha": scored(domain.DetectorFastBids, "alpha", 30),
			"beta":  scored(domain.DetectorFastBids, "beta", 50),
			"gamma": scored(domain.DetectorFastBids, "gamma", 15),
			"delta": scored(domain.DetectorFastBids, "delta", 15),
		},
		domain.DetectorBaiting: {
			// alpha ties beta on composite but fires two detectors.
			"alpha": scored(domain.DetectorBaiting, "alpha", 20),
			"beta":  scored(domain.DetectorBaiting, "beta", 0),
		},
	}

	entities := Aggregate(sets)
	want := []string{"alpha", "beta", "delta", "gamma"}
	for i, login := range want {
		if entities[i].Login != login {
			t.Fatalf("position %d = %s, want %s", i, entities[i].Login, login)
		}
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	sets := map[string]ResultSet{
		domain.DetectorSyncBidding: {
			"wolf": scored(domain.DetectorSyncBidding, "wolf", 50),
			"fox":  scored(domain.DetectorSyncBidding, "fox", 50),
		},
	}

	first := Aggregate(sets)
	second := Aggregate(sets)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Login != second[i].Login || first[i].Composite() != second[i].Composite() {
			t.Errorf("run mismatch at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestHypotheses(t *testing.T) {
	sets := map[string]ResultSet{
		domain.DetectorFastBids: {
			"wolf": scored(domain.DetectorFastBids, "wolf", 50),
		},
		domain.DetectorDeadLots: {
			"seller": scored(domain.DetectorDeadLots, "seller", 0),
		},
	}

	hyp := Hypotheses(sets)
	if hyp[domain.DetectorFastBids] != domain.HypothesisConfirmed {
		t.Errorf("fast bids = %s, want CONFIRMED", hyp[domain.DetectorFastBids])
	}
	if hyp[domain.DetectorDeadLots] != domain.HypothesisNotConfirmed {
		t.Errorf("dead lots = %s, want NOT_CONFIRMED", hyp[domain.DetectorDeadLots])
	}
	// Detectors that never ran must read NO_DATA, not NOT_CONFIRMED.
	for _, det := range []string{domain.DetectorCarousel, domain.DetectorSyncBidding, domain.DetectorBaiting} {
		if hyp[det] != domain.HypothesisNoData {
			t.Errorf("%s = %s, want NO_DATA", det, hyp[det])
		}
	}
}

func TestRiskForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{50, domain.RiskCritical},
		{35, domain.RiskSuspicious},
		{15, domain.RiskAttention},
		{0, domain.RiskNormal},
	}
	for _, tc := range cases {
		if got := riskForScore(tc.score); got != tc.want {
			t.Errorf("riskForScore(%.0f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
