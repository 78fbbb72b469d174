package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/datatypes"

	"auctionWatch/domain"
	"auctionWatch/pkg/logger"
	"auctionWatch/pkg/metrics"
)

// Runner drives one batch analysis through its phases: data availability
// check, base detectors, extended detectors, aggregation and persistence.
// Base detectors need only the lot table; extended detectors need bid
// history and are reported NO_DATA when none exists for the window.
type Runner struct {
	cfg      Config
	workers  int
	lots     LotRepository
	bids     BidRepository
	ratings  RatingRepository
	evidence EvidenceRepository

	mu         sync.Mutex
	running    bool
	state      domain.RunState
	lastReport *domain.RunReport
}

func newRunner(cfg Config, workers int, lots LotRepository, bids BidRepository, ratings RatingRepository, evidence EvidenceRepository) *Runner {
	return &Runner{
		cfg:      cfg,
		workers:  workers,
		lots:     lots,
		bids:     bids,
		ratings:  ratings,
		evidence: evidence,
		state:    domain.RunIdle,
	}
}

func (r *Runner) State() domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) LastReport() *domain.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastReport == nil {
		return nil
	}
	report := *r.lastReport
	return &report
}

func (r *Runner) setState(s domain.RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes one batch analysis. Exactly one run may be active; a second
// call while running fails fast with ErrRunInProgress instead of queueing.
func (r *Runner) Run(ctx context.Context, window domain.AnalysisWindow) (*domain.RunReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.state = domain.RunCheckingData
	r.mu.Unlock()

	started := time.Now()
	report, err := r.run(ctx, window, started)

	r.mu.Lock()
	r.running = false
	if err != nil {
		r.state = domain.RunIdle
	} else {
		r.state = domain.RunDone
		r.lastReport = report
	}
	r.mu.Unlock()

	metrics.AnalysisRunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("failed").Inc()
		logger.Error("analysis run failed", err)
		return nil, err
	}
	metrics.AnalysisRunsTotal.WithLabelValues("success").Inc()
	return report, nil
}

func (r *Runner) run(ctx context.Context, window domain.AnalysisWindow, started time.Time) (*domain.RunReport, error) {
	runID := uuid.NewString()
	logger.Info("analysis run started", "run_id", runID, "from", window.From, "to", window.To)

	lots, err := r.lots.LotsInWindow(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("load lots: %w", err)
	}
	hasBids, err := r.bids.HasHistory(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("check bid history: %w", err)
	}
	var bids []domain.LotBid
	if hasBids {
		if bids, err = r.bids.BidsInWindow(ctx, window); err != nil {
			return nil, fmt.Errorf("load bids: %w", err)
		}
	}

	// Malformed records are skipped with a warning, never fatal.
	validLots := lots[:0]
	for _, lot := range lots {
		if verr := lot.Validate(); verr != nil {
			logger.Warn("skipping malformed lot", "error", verr.Error())
			continue
		}
		validLots = append(validLots, lot)
	}
	lots = validLots

	validBids := bids[:0]
	for _, b := range bids {
		if verr := b.Validate(); verr != nil {
			logger.Warn("skipping malformed bid", "error", verr.Error())
			continue
		}
		validBids = append(validBids, b)
	}
	bids = validBids

	priorFlagged, err := r.priorFlagged(ctx)
	if err != nil {
		logger.Warn("loading prior flagged logins failed, falling back to full scan", "error", err.Error())
		priorFlagged = nil
	}

	resultSets := make(map[string]ResultSet, len(domain.AllDetectors))
	var rsMu sync.Mutex
	record := func(detector string, set ResultSet) {
		rsMu.Lock()
		resultSets[detector] = set
		rsMu.Unlock()
	}

	// Base phase: lot-table detectors plus fast bids, which degrades to
	// NO_DATA on its own when no manual bids exist.
	r.setState(domain.RunBaseDetectors)
	base := pool.New().WithMaxGoroutines(r.workers)
	base.Go(func() {
		record(domain.DetectorFastBids, r.safeDetect(domain.DetectorFastBids, func() ResultSet {
			return DetectFastBids(r.cfg.FastBids, bids, priorFlagged)
		}))
	})
	base.Go(func() {
		record(domain.DetectorCarousel, r.safeDetect(domain.DetectorCarousel, func() ResultSet {
			return DetectCarousel(r.cfg.Carousel, lots, bids)
		}))
	})
	base.Go(func() {
		record(domain.DetectorDeadLots, r.safeDetect(domain.DetectorDeadLots, func() ResultSet {
			return DetectDeadLots(r.cfg.DeadLots, lots)
		}))
	})
	base.Wait()

	// Extended phase: bid-history detectors, skipped wholesale without data.
	r.setState(domain.RunExtendedDetectors)
	if hasBids {
		fastBidders := flaggedFrom(resultSets[domain.DetectorFastBids])
		ext := pool.New().WithMaxGoroutines(r.workers)
		ext.Go(func() {
			record(domain.DetectorAutobidTraps, r.safeDetect(domain.DetectorAutobidTraps, func() ResultSet {
				return DetectAutobidTraps(r.cfg.AutobidTraps, lots, bids, fastBidders)
			}))
		})
		ext.Go(func() {
			record(domain.DetectorMultiAccounts, r.safeDetect(domain.DetectorMultiAccounts, func() ResultSet {
				return DetectMultiAccounts(r.cfg.MultiAccounts, bids)
			}))
		})
		ext.Go(func() {
			record(domain.DetectorSyncBidding, r.safeDetect(domain.DetectorSyncBidding, func() ResultSet {
				return DetectSyncBidding(r.cfg.SyncBidding, bids)
			}))
		})
		ext.Go(func() {
			record(domain.DetectorBaiting, r.safeDetect(domain.DetectorBaiting, func() ResultSet {
				return DetectBaiting(r.cfg.Baiting, bids)
			}))
		})
		ext.Wait()
	} else {
		logger.Info("no bid history in window, extended detectors skipped", "run_id", runID)
	}

	r.setState(domain.RunAggregating)
	entities := Aggregate(resultSets)
	failed := r.persist(ctx, runID, entities, started)

	report := &domain.RunReport{
		RunID:            runID,
		Window:           window,
		StartedAt:        started,
		FinishedAt:       time.Now(),
		HasBidHistory:    hasBids,
		Hypotheses:       Hypotheses(resultSets),
		Findings:         buildFindings(entities),
		EntitiesAnalyzed: len(entities),
		EntitiesFailed:   failed,
	}
	metrics.AnalysisEntitiesTotal.Add(float64(len(entities)))
	logger.Info("analysis run finished",
		"run_id", runID,
		"entities", len(entities),
		"findings", len(report.Findings),
		"failed", len(failed),
	)
	return report, nil
}

// safeDetect isolates one detector: a panic is downgraded to a missing
// result set, which the report surfaces as NO_DATA for that hypothesis.
func (r *Runner) safeDetect(detector string, fn func() ResultSet) (set ResultSet) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("detector panicked", fmt.Errorf("%s: %v", detector, rec))
			set = nil
		}
	}()
	return fn()
}

func (r *Runner) priorFlagged(ctx context.Context) (map[string]bool, error) {
	logins, err := r.ratings.FlaggedLogins(ctx)
	if err != nil {
		return nil, err
	}
	flagged := make(map[string]bool, len(logins))
	for _, l := range logins {
		flagged[l] = true
	}
	return flagged, nil
}

// persist upserts every entity's scores with a bounded retry and writes the
// evidence trail. A persistently failing entity is reported, not fatal.
func (r *Runner) persist(ctx context.Context, runID string, entities []EntityScores, analyzedAt time.Time) []string {
	var failedMu sync.Mutex
	var failed []string

	p := pool.New().WithMaxGoroutines(r.workers)
	for _, e := range entities {
		p.Go(func() {
			if err := r.upsertWithRetry(ctx, e.Login, e.Components, analyzedAt); err != nil {
				logger.Error("rating upsert failed", err)
				failedMu.Lock()
				failed = append(failed, e.Login)
				failedMu.Unlock()
				return
			}
			if rows := evidenceRows(runID, e); len(rows) > 0 {
				if err := r.evidence.Append(ctx, rows); err != nil {
					// Evidence is an audit trail; losing it degrades the
					// report but never the scores.
					logger.Warn("evidence append failed", "login", e.Login, "error", err.Error())
				}
			}
		})
	}
	p.Wait()

	sort.Strings(failed)
	return failed
}

func (r *Runner) upsertWithRetry(ctx context.Context, login string, scores map[string]float64, analyzedAt time.Time) error {
	var err error
	for attempt := 1; attempt <= r.cfg.UpsertRetries; attempt++ {
		if err = r.ratings.UpsertScores(ctx, login, scores, analyzedAt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < r.cfg.UpsertRetries {
			metrics.RatingUpsertRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return err
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("upsert rating for %s after %d attempts: %w", login, r.cfg.UpsertRetries, err)
}

func flaggedFrom(set ResultSet) map[string]bool {
	out := make(map[string]bool, len(set))
	for login, res := range set {
		if res.Score > 0 {
			out[login] = true
		}
	}
	return out
}

func confidenceFor(risk domain.RiskLevel) float64 {
	switch risk {
	case domain.RiskCritical:
		return 0.9
	case domain.RiskSuspicious:
		return 0.7
	case domain.RiskAttention:
		return 0.5
	default:
		return 0
	}
}

func buildFindings(entities []EntityScores) []domain.Finding {
	var findings []domain.Finding
	for _, e := range entities {
		for detector, score := range e.Components {
			if score <= 0 {
				continue
			}
			risk := riskForScore(score)
			metrics.DetectorFindingsTotal.WithLabelValues(detector, string(risk)).Inc()
			findings = append(findings, domain.Finding{
				Entity:     e.Login,
				Detector:   detector,
				Score:      score,
				Risk:       risk,
				Evidence:   findingDescription(e, detector),
				Confidence: confidenceFor(risk),
				Facts:      findingFacts(e, detector),
			})
		}
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Score != findings[j].Score {
			return findings[i].Score > findings[j].Score
		}
		if findings[i].Entity != findings[j].Entity {
			return findings[i].Entity < findings[j].Entity
		}
		return findings[i].Detector < findings[j].Detector
	})
	return findings
}

func evidenceRows(runID string, e EntityScores) []domain.AnalysisEvidence {
	var rows []domain.AnalysisEvidence
	for detector, score := range e.Components {
		if score <= 0 {
			continue
		}
		risk := riskForScore(score)
		rows = append(rows, domain.AnalysisEvidence{
			RunID:       runID,
			EntityLogin: e.Login,
			Detector:    detector,
			Description: findingDescription(e, detector),
			Confidence:  confidenceFor(risk),
			Facts:       datatypes.JSONMap(findingFacts(e, detector)),
		})
	}
	return rows
}

func findingDescription(e EntityScores, detector string) string {
	evs := e.Evidence[detector]
	if len(evs) == 0 {
		return ""
	}
	return evs[0].Description
}

// findingFacts merges a detector's evidence facts, first writer wins on key
// collisions.
func findingFacts(e EntityScores, detector string) map[string]any {
	evs := e.Evidence[detector]
	if len(evs) == 0 {
		return nil
	}
	facts := make(map[string]any)
	for _, ev := range evs {
		for k, v := range ev.Facts {
			if _, ok := facts[k]; !ok {
				facts[k] = v
			}
		}
	}
	return facts
}
