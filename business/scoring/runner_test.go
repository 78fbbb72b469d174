//go:build !integration

package scoring

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"auctionWatch/domain"
)

type fakeLotRepo struct {
	lots    []domain.AuctionLot
	release chan struct{}
}

func (f *fakeLotRepo) LotsInWindow(ctx context.Context, w domain.AnalysisWindow) ([]domain.AuctionLot, error) {
	if f.release != nil {
		<-f.release
	}
	return f.lots, nil
}

type fakeBidRepo struct {
	bids []domain.LotBid
}

func (f *fakeBidRepo) BidsInWindow(ctx context.Context, w domain.AnalysisWindow) ([]domain.LotBid, error) {
	return f.bids, nil
}

func (f *fakeBidRepo) HasHistory(ctx context.Context, w domain.AnalysisWindow) (bool, error) {
	return len(f.bids) > 0, nil
}

type fakeRatingRepo struct {
	mu       sync.Mutex
	upserts  map[string]map[string]float64
	attempts map[string]int
	failures map[string]int
	flagged  []string
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{
		upserts:  make(map[string]map[string]float64),
		attempts: make(map[string]int),
		failures: make(map[string]int),
	}
}

func (f *fakeRatingRepo) UpsertScores(ctx context.Context, login string, scores map[string]float64, analyzedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[login]++
	if f.failures[login] != 0 {
		if f.failures[login] > 0 {
			f.failures[login]--
		}
		return errors.New("transient store failure")
	}
	copied := make(map[string]float64, len(scores))
	for k, v := range scores {
		copied[k] = v
	}
	f.upserts[login] = copied
	return nil
}

func (f *fakeRatingRepo) ByLogin(ctx context.Context, login string) (domain.WinnerRating, error) {
	return domain.WinnerRating{}, ErrRatingNotFound
}

func (f *fakeRatingRepo) Top(ctx context.Context, threshold float64, limit int) ([]domain.WinnerRating, error) {
	return nil, nil
}

func (f *fakeRatingRepo) FlaggedLogins(ctx context.Context) ([]string, error) {
	return f.flagged, nil
}

type fakeEvidenceRepo struct {
	mu   sync.Mutex
	rows []domain.AnalysisEvidence
}

func (f *fakeEvidenceRepo) Append(ctx context.Context, rows []domain.AnalysisEvidence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeEvidenceRepo) ByRun(ctx context.Context, runID string) ([]domain.AnalysisEvidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, nil
}

func ghostSellerLots(n int) []domain.AuctionLot {
	var lots []domain.AuctionLot
	for i := 0; i < n; i++ {
		lots = append(lots, deadLot(uint(i+1), "ghost", false))
	}
	return lots
}

func testRunner(lots *fakeLotRepo, bids *fakeBidRepo, ratings *fakeRatingRepo, evidence *fakeEvidenceRepo) *Runner {
	return newRunner(DefaultConfig(), 2, lots, bids, ratings, evidence)
}

func testWindow() domain.AnalysisWindow {
	return domain.AnalysisWindow{From: testBase.AddDate(0, -6, 0), To: testBase.AddDate(0, 1, 0)}
}

func TestRunner_NoBidHistorySkipsExtendedDetectors(t *testing.T) {
	lots := &fakeLotRepo{lots: ghostSellerLots(12)}
	ratings := newFakeRatingRepo()
	r := testRunner(lots, &fakeBidRepo{}, ratings, &fakeEvidenceRepo{})

	report, err := r.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.HasBidHistory {
		t.Error("report claims bid history with an empty bid table")
	}
	for _, det := range []string{
		domain.DetectorAutobidTraps,
		domain.DetectorMultiAccounts,
		domain.DetectorSyncBidding,
		domain.DetectorBaiting,
	} {
		if report.Hypotheses[det] != domain.HypothesisNoData {
			t.Errorf("%s = %s, want NO_DATA", det, report.Hypotheses[det])
		}
	}
	if report.Hypotheses[domain.DetectorDeadLots] != domain.HypothesisConfirmed {
		t.Errorf("dead lots = %s, want CONFIRMED", report.Hypotheses[domain.DetectorDeadLots])
	}
	if scores, ok := ratings.upserts["ghost"]; !ok {
		t.Error("ghost rating never persisted")
	} else if scores[domain.DetectorDeadLots] != 25 {
		t.Errorf("dead lots score = %.0f, want 25", scores[domain.DetectorDeadLots])
	}
}

func TestRunner_SecondRunRejectedWhileActive(t *testing.T) {
	release := make(chan struct{})
	lots := &fakeLotRepo{lots: ghostSellerLots(12), release: release}
	r := testRunner(lots, &fakeBidRepo{}, newFakeRatingRepo(), &fakeEvidenceRepo{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), testWindow())
		done <- err
	}()

	// Wait until the first run holds the slot.
	for i := 0; r.State() == domain.RunIdle && i < 100; i++ {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := r.Run(context.Background(), testWindow()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("concurrent run error = %v, want ErrRunInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if r.State() != domain.RunDone {
		t.Errorf("state = %s, want DONE", r.State())
	}

	// A fresh run after completion must be accepted again.
	if _, err := r.Run(context.Background(), testWindow()); err != nil {
		t.Errorf("rerun after completion failed: %v", err)
	}
}

func TestRunner_TransientUpsertFailureRetried(t *testing.T) {
	ratings := newFakeRatingRepo()
	ratings.failures["ghost"] = 2

	r := testRunner(&fakeLotRepo{lots: ghostSellerLots(12)}, &fakeBidRepo{}, ratings, &fakeEvidenceRepo{})
	report, err := r.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(report.EntitiesFailed) != 0 {
		t.Errorf("entities failed = %v, want none after retries", report.EntitiesFailed)
	}
	if ratings.attempts["ghost"] != 3 {
		t.Errorf("attempts = %d, want 3", ratings.attempts["ghost"])
	}
	if _, ok := ratings.upserts["ghost"]; !ok {
		t.Error("rating not persisted after retries")
	}
}

func TestRunner_PersistentFailureIsolatedPerEntity(t *testing.T) {
	lots := ghostSellerLots(12)
	lots = append(lots, deadLot(100, "clean-seller", true))

	ratings := newFakeRatingRepo()
	ratings.failures["ghost"] = -1 // never succeeds

	r := testRunner(&fakeLotRepo{lots: lots}, &fakeBidRepo{}, ratings, &fakeEvidenceRepo{})
	report, err := r.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(report.EntitiesFailed) != 1 || report.EntitiesFailed[0] != "ghost" {
		t.Errorf("entities failed = %v, want [ghost]", report.EntitiesFailed)
	}
	if _, ok := ratings.upserts["clean-seller"]; !ok {
		t.Error("healthy entity not persisted alongside a failing one")
	}
}

func TestRunner_FullRunWithBidHistory(t *testing.T) {
	lotRows := []domain.AuctionLot{
		carouselLot(1, "wolf", 100, testBase),
		carouselLot(2, "fox", 120, testBase.AddDate(0, 0, 7)),
		carouselLot(3, "wolf", 140, testBase.AddDate(0, 0, 14)),
		carouselLot(4, "fox", 160, testBase.AddDate(0, 0, 21)),
	}
	bidRows := append(
		bidBurst(1, "wolf", 5, 500*time.Millisecond, testBase),
		manualBid(1, "fox", 300, testBase.Add(1200*time.Millisecond)),
	)

	ratings := newFakeRatingRepo()
	evidence := &fakeEvidenceRepo{}
	r := testRunner(&fakeLotRepo{lots: lotRows}, &fakeBidRepo{bids: bidRows}, ratings, evidence)

	report, err := r.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !report.HasBidHistory {
		t.Fatal("bid history not detected")
	}
	if report.Hypotheses[domain.DetectorFastBids] != domain.HypothesisConfirmed {
		t.Errorf("fast bids = %s, want CONFIRMED", report.Hypotheses[domain.DetectorFastBids])
	}
	if report.Hypotheses[domain.DetectorCarousel] != domain.HypothesisConfirmed {
		t.Errorf("carousel = %s, want CONFIRMED", report.Hypotheses[domain.DetectorCarousel])
	}

	wolf, ok := ratings.upserts["wolf"]
	if !ok {
		t.Fatal("wolf rating never persisted")
	}
	if wolf[domain.DetectorFastBids] != 50 {
		t.Errorf("wolf fast bids = %.0f, want 50", wolf[domain.DetectorFastBids])
	}
	if wolf[domain.DetectorCarousel] != 50 {
		t.Errorf("wolf carousel = %.0f, want 50", wolf[domain.DetectorCarousel])
	}

	rows, _ := evidence.ByRun(context.Background(), report.RunID)
	if len(rows) == 0 {
		t.Error("no evidence rows written for a run with findings")
	}
	for _, row := range rows {
		if row.RunID != report.RunID {
			t.Errorf("evidence row run id = %s, want %s", row.RunID, report.RunID)
		}
	}

	last := r.LastReport()
	if last == nil || last.RunID != report.RunID {
		t.Error("last report does not match the completed run")
	}
}

func TestRunner_MalformedBidsSkipped(t *testing.T) {
	lotRows := ghostSellerLots(12)
	bidRows := bidBurst(1, "wolf", 6, time.Minute, testBase)
	// A negative-amount bid landing 300ms after a real one would otherwise
	// flag both logins for synchronous bidding.
	bad := manualBid(1, "mallory", -5, testBase.Add(300*time.Millisecond))
	bidRows = append(bidRows, bad, domain.LotBid{LotID: 1, BidAmount: 10, BidTimestamp: testBase.Add(time.Second)})

	ratings := newFakeRatingRepo()
	r := testRunner(&fakeLotRepo{lots: lotRows}, &fakeBidRepo{bids: bidRows}, ratings, &fakeEvidenceRepo{})
	report, err := r.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, ok := ratings.upserts["mallory"]; ok {
		t.Error("malformed bid produced a rating")
	}
	if _, ok := ratings.upserts[""]; ok {
		t.Error("empty-login bid produced a rating")
	}
	wolf, ok := ratings.upserts["wolf"]
	if !ok {
		t.Fatal("valid bidder not analyzed alongside malformed bids")
	}
	if wolf[domain.DetectorSyncBidding] != 0 {
		t.Errorf("sync score = %.0f, want 0 once malformed bids are dropped", wolf[domain.DetectorSyncBidding])
	}
	if !report.HasBidHistory {
		t.Error("valid bids not detected")
	}
}

func TestRunner_DoubleRunConverges(t *testing.T) {
	lotRows := append(ghostSellerLots(12),
		carouselLot(100, "wolf", 100, testBase),
		carouselLot(101, "fox", 120, testBase.AddDate(0, 0, 7)),
		carouselLot(102, "wolf", 140, testBase.AddDate(0, 0, 14)),
		carouselLot(103, "fox", 160, testBase.AddDate(0, 0, 21)),
	)
	bidRows := bidBurst(100, "wolf", 5, 500*time.Millisecond, testBase)

	ratings := newFakeRatingRepo()
	r := testRunner(&fakeLotRepo{lots: lotRows}, &fakeBidRepo{bids: bidRows}, ratings, &fakeEvidenceRepo{})

	if _, err := r.Run(context.Background(), testWindow()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := snapshotUpserts(ratings)

	if _, err := r.Run(context.Background(), testWindow()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second := snapshotUpserts(ratings)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rerun over unchanged data diverged:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func snapshotUpserts(f *fakeRatingRepo) map[string]map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]float64, len(f.upserts))
	for login, scores := range f.upserts {
		copied := make(map[string]float64, len(scores))
		for k, v := range scores {
			copied[k] = v
		}
		out[login] = copied
	}
	return out
}
