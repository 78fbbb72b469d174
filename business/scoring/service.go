package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auctionWatch/domain"
)

var (
	// ErrRunInProgress is returned when a run is requested while another one
	// is still executing. Runs never queue; the caller retries later.
	ErrRunInProgress = errors.New("analysis run already in progress")

	// ErrRatingNotFound means no rating row exists for the requested login.
	ErrRatingNotFound = errors.New("rating not found")
)

type LotRepository interface {
	LotsInWindow(ctx context.Context, w domain.AnalysisWindow) ([]domain.AuctionLot, error)
}

type BidRepository interface {
	BidsInWindow(ctx context.Context, w domain.AnalysisWindow) ([]domain.LotBid, error)
	HasHistory(ctx context.Context, w domain.AnalysisWindow) (bool, error)
}

type RatingRepository interface {
	// UpsertScores writes the given detector scores for one login and
	// recomputes the stored composite from all columns, atomically.
	// Detectors absent from scores keep their stored value.
	UpsertScores(ctx context.Context, login string, scores map[string]float64, analyzedAt time.Time) error
	ByLogin(ctx context.Context, login string) (domain.WinnerRating, error)
	// Top ranks by composite desc, then fired detector count, then login.
	Top(ctx context.Context, threshold float64, limit int) ([]domain.WinnerRating, error)
	// FlaggedLogins returns logins whose stored composite is above zero,
	// used to focus the fast-bid detector on known suspects.
	FlaggedLogins(ctx context.Context) ([]string, error)
}

type EvidenceRepository interface {
	Append(ctx context.Context, rows []domain.AnalysisEvidence) error
	ByRun(ctx context.Context, runID string) ([]domain.AnalysisEvidence, error)
}

// Service is the scoring subsystem's entry point: one batch runner plus the
// read paths the HTTP layer exposes.
type Service struct {
	runner   *Runner
	ratings  RatingRepository
	evidence EvidenceRepository
}

func NewService(cfg Config, workers int, lots LotRepository, bids BidRepository, ratings RatingRepository, evidence EvidenceRepository) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("scoring service needs at least one worker, got %d", workers)
	}
	return &Service{
		runner:   newRunner(cfg, workers, lots, bids, ratings, evidence),
		ratings:  ratings,
		evidence: evidence,
	}, nil
}

// RunAnalysis executes one full batch run over the window. Returns
// ErrRunInProgress when called while a run is active.
func (s *Service) RunAnalysis(ctx context.Context, w domain.AnalysisWindow) (*domain.RunReport, error) {
	return s.runner.Run(ctx, w)
}

// Status reports the runner's current state machine position.
func (s *Service) Status() domain.RunState {
	return s.runner.State()
}

// LastReport returns the most recent completed run's report, or nil when no
// run has finished yet.
func (s *Service) LastReport() *domain.RunReport {
	return s.runner.LastReport()
}

func (s *Service) Rating(ctx context.Context, login string) (domain.WinnerRating, error) {
	return s.ratings.ByLogin(ctx, login)
}

func (s *Service) TopRatings(ctx context.Context, threshold float64, limit int) ([]domain.WinnerRating, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.ratings.Top(ctx, threshold, limit)
}

func (s *Service) RunEvidence(ctx context.Context, runID string) ([]domain.AnalysisEvidence, error) {
	return s.evidence.ByRun(ctx, runID)
}
