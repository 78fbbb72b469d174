package scoring

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config carries every detector threshold as an injectable policy value.
// The defaults mirror the heuristics tuned on the production corpus; the
// carousel weights and tier cutoffs in particular were tuned ad hoc and
// should be recalibrated against labeled data when any becomes available.
type Config struct {
	FastBids      FastBidsConfig      `validate:"required"`
	AutobidTraps  AutobidTrapsConfig  `validate:"required"`
	Carousel      CarouselConfig      `validate:"required"`
	MultiAccounts MultiAccountsConfig `validate:"required"`
	SyncBidding   SyncBiddingConfig   `validate:"required"`
	Baiting       BaitingConfig       `validate:"required"`
	DeadLots      DeadLotsConfig      `validate:"required"`

	// UpsertRetries bounds retry attempts after a transient rating store
	// failure before the entity is marked failed.
	UpsertRetries int `validate:"gte=1,lte=10"`
}

type FastBidsConfig struct {
	// Interval buckets in seconds, strictly escalating.
	CriticalIntervalSec   float64 `validate:"gt=0"`
	SuspiciousIntervalSec float64 `validate:"gt=0"`
	WarningIntervalSec    float64 `validate:"gt=0"`

	// Bucket counts required for the mid and low tiers.
	SuspiciousCountMin int `validate:"gte=1"`
	WarningCountMin    int `validate:"gte=1"`

	ScoreCritical   float64 `validate:"gte=0,lte=50"`
	ScoreSuspicious float64 `validate:"gte=0,lte=50"`
	ScoreWarning    float64 `validate:"gte=0,lte=50"`

	// Full-scan fallback: when no prior flagged entities exist, analyze all
	// bidders active on lots with more than this many manual bids.
	FallbackMinManualBids int `validate:"gte=1"`
}

type AutobidTrapsConfig struct {
	MinTotalBids     int `validate:"gte=1"`
	MinUniqueBidders int `validate:"gte=2"`

	// Final-price / predicted-price multiplier tiers.
	MultiplierLow  float64 `validate:"gt=1"`
	MultiplierMid  float64 `validate:"gt=1"`
	MultiplierHigh float64 `validate:"gt=1"`

	ScoreLow  float64 `validate:"gte=0,lte=50"`
	ScoreMid  float64 `validate:"gte=0,lte=50"`
	ScoreHigh float64 `validate:"gte=0,lte=50"`
}

type CarouselConfig struct {
	MinSales int `validate:"gte=2"`

	ShortSpanWeeks     float64 `validate:"gt=0"`
	ShortSpanPoints    float64 `validate:"gte=0"`
	GrowthHighPct      float64 `validate:"gt=0"`
	GrowthHighPoints   float64 `validate:"gte=0"`
	GrowthMidPct       float64 `validate:"gt=0"`
	GrowthMidPoints    float64 `validate:"gte=0"`
	ManyAuctions       int     `validate:"gte=2"`
	ManyAuctionsPoints float64 `validate:"gte=0"`
	SomeAuctions       int     `validate:"gte=2"`
	SomeAuctionsPoints float64 `validate:"gte=0"`

	ConcentrationHigh       float64 `validate:"gt=0,lte=1"`
	ConcentrationHighPoints float64 `validate:"gte=0"`
	ConcentrationMid        float64 `validate:"gt=0,lte=1"`
	ConcentrationMidPoints  float64 `validate:"gte=0"`

	// Group score cutoffs for the risk tiers.
	AttentionCutoff  float64 `validate:"gt=0"`
	SuspiciousCutoff float64 `validate:"gt=0"`
	CriticalCutoff   float64 `validate:"gt=0"`

	// Entity component score assigned per tier.
	ScoreAttention  float64 `validate:"gte=0,lte=50"`
	ScoreSuspicious float64 `validate:"gte=0,lte=50"`
	ScoreCritical   float64 `validate:"gte=0,lte=50"`
}

type MultiAccountsConfig struct {
	// Distinct-login tiers for one shared origin.
	LoginsLow  int `validate:"gte=2"`
	LoginsMid  int `validate:"gte=2"`
	LoginsHigh int `validate:"gte=2"`

	ScoreLow  float64 `validate:"gte=0,lte=50"`
	ScoreMid  float64 `validate:"gte=0,lte=50"`
	ScoreHigh float64 `validate:"gte=0,lte=50"`

	// SharedOriginAllowlist suppresses known shared origins (office NAT,
	// family networks). Matching origins are skipped entirely.
	SharedOriginAllowlist []string
}

type SyncBiddingConfig struct {
	WindowSec        float64 `validate:"gt=0"`
	CriticalGapSec   float64 `validate:"gt=0"`
	SuspiciousGapSec float64 `validate:"gt=0"`

	ScoreCritical   float64 `validate:"gte=0,lte=50"`
	ScoreSuspicious float64 `validate:"gte=0,lte=50"`
	ScoreWarning    float64 `validate:"gte=0,lte=50"`
}

type BaitingConfig struct {
	MinBidsPerLot int `validate:"gte=2"`

	// Percentage increase tiers between a bidder's min and max bid on a lot.
	IncreaseLowPct  float64 `validate:"gt=0"`
	IncreaseMidPct  float64 `validate:"gt=0"`
	IncreaseHighPct float64 `validate:"gt=0"`

	ScoreLow  float64 `validate:"gte=0,lte=50"`
	ScoreMid  float64 `validate:"gte=0,lte=50"`
	ScoreHigh float64 `validate:"gte=0,lte=50"`
}

type DeadLotsConfig struct {
	SuspiciousCount     int `validate:"gte=1"`
	VerySuspiciousCount int `validate:"gte=1"`

	ScoreSuspicious     float64 `validate:"gte=0,lte=50"`
	ScoreVerySuspicious float64 `validate:"gte=0,lte=50"`
}

func DefaultConfig() Config {
	return Config{
		FastBids: FastBidsConfig{
			CriticalIntervalSec:   1,
			SuspiciousIntervalSec: 5,
			WarningIntervalSec:    30,
			SuspiciousCountMin:    5,
			WarningCountMin:       10,
			ScoreCritical:         50,
			ScoreSuspicious:       30,
			ScoreWarning:          15,
			FallbackMinManualBids: 3,
		},
		AutobidTraps: AutobidTrapsConfig{
			MinTotalBids:     10,
			MinUniqueBidders: 3,
			MultiplierLow:    1.5,
			MultiplierMid:    2.0,
			MultiplierHigh:   3.0,
			ScoreLow:         15,
			ScoreMid:         30,
			ScoreHigh:        50,
		},
		Carousel: CarouselConfig{
			MinSales:                2,
			ShortSpanWeeks:          4,
			ShortSpanPoints:         25,
			GrowthHighPct:           50,
			GrowthHighPoints:        20,
			GrowthMidPct:            20,
			GrowthMidPoints:         10,
			ManyAuctions:            4,
			ManyAuctionsPoints:      25,
			SomeAuctions:            3,
			SomeAuctionsPoints:      15,
			ConcentrationHigh:       0.8,
			ConcentrationHighPoints: 20,
			ConcentrationMid:        0.6,
			ConcentrationMidPoints:  10,
			AttentionCutoff:         30,
			SuspiciousCutoff:        50,
			CriticalCutoff:          70,
			ScoreAttention:          30,
			ScoreSuspicious:         40,
			ScoreCritical:           50,
		},
		MultiAccounts: MultiAccountsConfig{
			LoginsLow:  2,
			LoginsMid:  3,
			LoginsHigh: 5,
			ScoreLow:   20,
			ScoreMid:   35,
			ScoreHigh:  50,
		},
		SyncBidding: SyncBiddingConfig{
			WindowSec:        10,
			CriticalGapSec:   2,
			SuspiciousGapSec: 5,
			ScoreCritical:    50,
			ScoreSuspicious:  30,
			ScoreWarning:     15,
		},
		Baiting: BaitingConfig{
			MinBidsPerLot:   3,
			IncreaseLowPct:  100,
			IncreaseMidPct:  200,
			IncreaseHighPct: 500,
			ScoreLow:        15,
			ScoreMid:        30,
			ScoreHigh:       50,
		},
		DeadLots: DeadLotsConfig{
			SuspiciousCount:     10,
			VerySuspiciousCount: 20,
			ScoreSuspicious:     25,
			ScoreVerySuspicious: 40,
		},
		UpsertRetries: 3,
	}
}

// Validate fails fast on malformed threshold values. Called once at startup;
// a validation error aborts the process before any analysis runs.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid scoring config: %w", err)
	}

	// Cross-field ordering that struct tags cannot express.
	if !(c.FastBids.CriticalIntervalSec < c.FastBids.SuspiciousIntervalSec &&
		c.FastBids.SuspiciousIntervalSec < c.FastBids.WarningIntervalSec) {
		return fmt.Errorf("invalid scoring config: fast-bid interval buckets must escalate")
	}
	if !(c.AutobidTraps.MultiplierLow < c.AutobidTraps.MultiplierMid &&
		c.AutobidTraps.MultiplierMid < c.AutobidTraps.MultiplierHigh) {
		return fmt.Errorf("invalid scoring config: autobid-trap multiplier tiers must escalate")
	}
	if !(c.SyncBidding.CriticalGapSec < c.SyncBidding.SuspiciousGapSec &&
		c.SyncBidding.SuspiciousGapSec < c.SyncBidding.WindowSec) {
		return fmt.Errorf("invalid scoring config: synchronous-bid gap tiers must escalate")
	}
	if !(c.Baiting.IncreaseLowPct < c.Baiting.IncreaseMidPct &&
		c.Baiting.IncreaseMidPct < c.Baiting.IncreaseHighPct) {
		return fmt.Errorf("invalid scoring config: baiting increase tiers must escalate")
	}
	if !(c.Carousel.AttentionCutoff < c.Carousel.SuspiciousCutoff &&
		c.Carousel.SuspiciousCutoff < c.Carousel.CriticalCutoff) {
		return fmt.Errorf("invalid scoring config: carousel tier cutoffs must escalate")
	}
	if !(c.MultiAccounts.LoginsLow <= c.MultiAccounts.LoginsMid &&
		c.MultiAccounts.LoginsMid < c.MultiAccounts.LoginsHigh) {
		return fmt.Errorf("invalid scoring config: multi-account login tiers must escalate")
	}
	if c.DeadLots.SuspiciousCount >= c.DeadLots.VerySuspiciousCount {
		return fmt.Errorf("invalid scoring config: dead-lot tiers must escalate")
	}

	return nil
}
