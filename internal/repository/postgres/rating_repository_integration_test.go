//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"auctionWatch/domain"

	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := db.AutoMigrate(&domain.WinnerRating{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := db.Exec("DELETE FROM winner_ratings").Error; err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}
	return db
}

func TestUpsertScoresMergeKeepsAbsentColumns(t *testing.T) {
	r := NewRatingRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	if err := r.UpsertScores(ctx, "wolf", map[string]float64{domain.DetectorFastBids: 50}, now); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := r.UpsertScores(ctx, "wolf", map[string]float64{domain.DetectorCarousel: 40}, now.Add(time.Hour)); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	rating, err := r.ByLogin(ctx, "wolf")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rating.FastBidsScore != 50 {
		t.Errorf("fast bids score = %.0f, want 50 preserved across the second upsert", rating.FastBidsScore)
	}
	if rating.CarouselScore != 40 {
		t.Errorf("carousel score = %.0f, want 40", rating.CarouselScore)
	}
	if rating.SuspiciousScore != 90 {
		t.Errorf("composite = %.0f, want 90 recomputed from both columns", rating.SuspiciousScore)
	}
}

func TestUpsertScoresIdempotent(t *testing.T) {
	r := NewRatingRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()
	scores := map[string]float64{domain.DetectorSyncBidding: 30, domain.DetectorBaiting: 15}

	for i := 0; i < 3; i++ {
		if err := r.UpsertScores(ctx, "wolf", scores, now); err != nil {
			t.Fatalf("upsert %d failed: %v", i+1, err)
		}
	}

	rating, err := r.ByLogin(ctx, "wolf")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rating.SuspiciousScore != 45 {
		t.Errorf("composite = %.0f, want 45 after repeated upserts", rating.SuspiciousScore)
	}

	var count int64
	if err := r.DB.Model(&domain.WinnerRating{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestUpsertScoresExplicitZeroClears(t *testing.T) {
	r := NewRatingRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	if err := r.UpsertScores(ctx, "wolf", map[string]float64{domain.DetectorFastBids: 50}, now); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := r.UpsertScores(ctx, "wolf", map[string]float64{domain.DetectorFastBids: 0}, now); err != nil {
		t.Fatalf("clearing upsert failed: %v", err)
	}

	rating, err := r.ByLogin(ctx, "wolf")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rating.FastBidsScore != 0 || rating.SuspiciousScore != 0 {
		t.Errorf("scores = %.0f/%.0f, want both cleared", rating.FastBidsScore, rating.SuspiciousScore)
	}
}

func TestTopRankingTieBreak(t *testing.T) {
	r := NewRatingRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	// alpha and beta tie on composite; alpha fired two detectors, beta one.
	seed := []struct {
		login  string
		scores map[string]float64
	}{
		{"beta", map[string]float64{domain.DetectorFastBids: 50}},
		{"alpha", map[string]float64{domain.DetectorFastBids: 30, domain.DetectorBaiting: 20}},
		{"gamma", map[string]float64{domain.DetectorDeadLots: 25}},
	}
	for _, s := range seed {
		if err := r.UpsertScores(ctx, s.login, s.scores, now); err != nil {
			t.Fatalf("seeding %s failed: %v", s.login, err)
		}
	}

	top, err := r.Top(ctx, 0, 10)
	if err != nil {
		t.Fatalf("top query failed: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(top) != len(want) {
		t.Fatalf("rows = %d, want %d", len(top), len(want))
	}
	for i, login := range want {
		if top[i].WinnerLogin != login {
			t.Errorf("position %d = %s, want %s", i, top[i].WinnerLogin, login)
		}
	}

	// Threshold filters below the line.
	filtered, err := r.Top(ctx, 30, 10)
	if err != nil {
		t.Fatalf("threshold query failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("rows above threshold = %d, want 2", len(filtered))
	}
}
