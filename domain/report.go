package domain

import (
	"time"

	"gorm.io/datatypes"
)

// HypothesisStatus says what a detector concluded for a run. NO_DATA means
// the detector could not run; NOT_CONFIRMED means it ran and found nothing.
// The two are never collapsed into each other.
type HypothesisStatus string

const (
	HypothesisConfirmed    HypothesisStatus = "CONFIRMED"
	HypothesisNotConfirmed HypothesisStatus = "NOT_CONFIRMED"
	HypothesisNoData       HypothesisStatus = "NO_DATA"
)

// RiskLevel tiers a finding for human triage.
type RiskLevel string

const (
	RiskNormal     RiskLevel = "NORMAL"
	RiskAttention  RiskLevel = "ATTENTION"
	RiskSuspicious RiskLevel = "SUSPICIOUS"
	RiskCritical   RiskLevel = "CRITICAL"
)

// RunState is the Analysis Runner's position in its state machine.
type RunState string

const (
	RunIdle              RunState = "IDLE"
	RunCheckingData      RunState = "CHECKING_DATA_AVAILABILITY"
	RunBaseDetectors     RunState = "RUNNING_BASE_DETECTORS"
	RunExtendedDetectors RunState = "RUNNING_EXTENDED_DETECTORS"
	RunAggregating       RunState = "AGGREGATING"
	RunDone              RunState = "DONE"
)

// Finding is one detector hit on one entity, with a human-readable evidence
// string for the report.
type Finding struct {
	Entity     string         `json:"entity"`
	Detector   string         `json:"detector"`
	Score      float64        `json:"score"`
	Risk       RiskLevel      `json:"risk"`
	Evidence   string         `json:"evidence"`
	Confidence float64        `json:"confidence"`
	Facts      map[string]any `json:"facts,omitempty"`
}

// RunReport bundles the outcome of one batch run.
type RunReport struct {
	RunID            string                      `json:"run_id"`
	Window           AnalysisWindow              `json:"window"`
	StartedAt        time.Time                   `json:"started_at"`
	FinishedAt       time.Time                   `json:"finished_at"`
	HasBidHistory    bool                        `json:"has_bid_history"`
	Hypotheses       map[string]HypothesisStatus `json:"hypotheses"`
	Findings         []Finding                   `json:"findings"`
	EntitiesAnalyzed int                         `json:"entities_analyzed"`
	EntitiesFailed   []string                    `json:"entities_failed,omitempty"`
}

// AnalysisEvidence is the append-only audit row behind a Finding, keyed by
// (entity, detector, run).
type AnalysisEvidence struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	RunID       string            `gorm:"column:run_id;not null;index" json:"run_id"`
	EntityLogin string            `gorm:"column:entity_login;not null;index" json:"entity_login"`
	Detector    string            `gorm:"column:detector;not null" json:"detector"`
	Description string            `gorm:"column:description" json:"description"`
	Confidence  float64           `gorm:"column:confidence" json:"confidence"`
	Facts       datatypes.JSONMap `gorm:"column:facts;type:jsonb" json:"facts"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AnalysisEvidence) TableName() string {
	return "analysis_evidence"
}
