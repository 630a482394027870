// Package learn holds the data model behind the fleet's self-improvement
// loop: outcomes observed after a response is shown to a user, routing
// history used to tune tier selection, and the periodic self-evaluation
// report synthesized from both.
package learn

// Outcome records what happened after an AI response was shown to the
// user.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeCorrected   Outcome = "corrected"
	OutcomeRegenerated Outcome = "regenerated"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeUnknown     Outcome = "unknown"
)

// BaseQualityScore returns the prior quality score implied by an outcome
// before any edit-distance or follow-up signal is folded in.
func (o Outcome) BaseQualityScore() float64 {
	switch o {
	case OutcomeAccepted:
		return 0.9
	case OutcomeCorrected:
		return 0.5
	case OutcomeRegenerated:
		return 0.2
	case OutcomeIgnored:
		return 0.1
	default:
		return 0.5
	}
}

// OutcomeRecord is a single observed outcome for one AI response.
type OutcomeRecord struct {
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id"`
	ModelID        string   `json:"model_id"`
	TaskType       string   `json:"task_type"`
	Tier           string   `json:"tier"`
	Persona        *string  `json:"persona,omitempty"`
	Outcome        Outcome  `json:"outcome"`
	EditDistance   *float64 `json:"edit_distance,omitempty"`
	FollowUpCount  int      `json:"follow_up_count"`
	QualityScore   float64  `json:"quality_score"`
	Cost           float64  `json:"cost"`
	LatencyMs      int64    `json:"latency_ms"`
	Timestamp      string   `json:"timestamp"`
}

// RoutingHistoryEntry tracks a single routing decision against the quality
// it produced, feeding the tier-adjustment learner.
type RoutingHistoryEntry struct {
	TaskType         string   `json:"task_type"`
	ClassifiedTier   string   `json:"classified_tier"`
	ActualTierNeeded *string  `json:"actual_tier_needed,omitempty"`
	ModelID          string   `json:"model_id"`
	QualityScore     float64  `json:"quality_score"`
	Cost             float64  `json:"cost"`
	Timestamp        string   `json:"timestamp"`
}

// RoutingAdjustment is a learned change to how a task type is routed.
type RoutingAdjustment struct {
	TaskType   string  `json:"task_type"`
	FromTier   string  `json:"from_tier"`
	ToTier     string  `json:"to_tier"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// UserPreference is a learned preference inferred from repeated behavior.
type UserPreference struct {
	Key              string  `json:"key"`
	Value            string  `json:"value"`
	Confidence       float64 `json:"confidence"`
	ObservationCount int     `json:"observation_count"`
	LastUpdated      string  `json:"last_updated"`
}

// PromptVersion is one revision of a persona's system prompt, tracked
// alongside the quality it has produced so far.
type PromptVersion struct {
	Persona     string  `json:"persona"`
	Version     int     `json:"version"`
	PromptText  string  `json:"prompt_text"`
	AvgQuality  float64 `json:"avg_quality"`
	SampleCount int     `json:"sample_count"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

// PromptRefinement is a suggested next revision for a persona's prompt.
type PromptRefinement struct {
	Persona          string `json:"persona"`
	CurrentVersion   int    `json:"current_version"`
	SuggestedPrompt  string `json:"suggested_prompt"`
	Reason           string `json:"reason"`
}

// CodePattern is a reusable snippet distilled from accepted responses.
type CodePattern struct {
	ID           int64   `json:"id"`
	Pattern      string  `json:"pattern"`
	Language     string  `json:"language"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	QualityScore float64 `json:"quality_score"`
	UseCount     int     `json:"use_count"`
	CreatedAt    string  `json:"created_at"`
}

// LearningLogEntry is one entry in the transparent learning log shown to
// the user so every adaptation the system makes is auditable.
type LearningLogEntry struct {
	ID          int64  `json:"id"`
	EventType   string `json:"event_type"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Reversible  bool   `json:"reversible"`
	Timestamp   string `json:"timestamp"`
}

// QualityTrend is the direction quality has moved over a recent window.
type QualityTrend string

const (
	QualityTrendImproving QualityTrend = "improving"
	QualityTrendDeclining QualityTrend = "declining"
	QualityTrendStable    QualityTrend = "stable"
)

// SelfEvaluationReport summarizes routing and response quality over a
// reporting period.
type SelfEvaluationReport struct {
	OverallQuality      float64      `json:"overall_quality"`
	Trend               QualityTrend `json:"trend"`
	BestModel           *string      `json:"best_model,omitempty"`
	WorstModel          *string      `json:"worst_model,omitempty"`
	MisrouteRate        float64      `json:"misroute_rate"`
	CostPerQualityPoint float64      `json:"cost_per_quality_point"`
	WeakAreas           []string     `json:"weak_areas"`
	CorrectionRate      float64      `json:"correction_rate"`
	RegenerationRate    float64      `json:"regeneration_rate"`
	TotalInteractions   int64        `json:"total_interactions"`
	GeneratedAt         string       `json:"generated_at"`
}
