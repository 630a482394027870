package learn

import (
	"encoding/json"
	"testing"
)

func TestOutcomeBaseQualityScores(t *testing.T) {
	cases := map[Outcome]float64{
		OutcomeAccepted:    0.9,
		OutcomeCorrected:   0.5,
		OutcomeRegenerated: 0.2,
		OutcomeIgnored:     0.1,
		OutcomeUnknown:     0.5,
	}
	for outcome, want := range cases {
		if got := outcome.BaseQualityScore(); got != want {
			t.Errorf("%v.BaseQualityScore() = %v, want %v", outcome, got, want)
		}
	}
}

func TestOutcomeSerdeRoundtrip(t *testing.T) {
	outcomes := []Outcome{OutcomeAccepted, OutcomeCorrected, OutcomeRegenerated, OutcomeIgnored, OutcomeUnknown}
	for _, outcome := range outcomes {
		data, err := json.Marshal(outcome)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var parsed Outcome
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if parsed != outcome {
			t.Errorf("got %v, want %v", parsed, outcome)
		}
	}
}

func TestOutcomeSerdeSnakeCase(t *testing.T) {
	cases := map[Outcome]string{
		OutcomeAccepted:    `"accepted"`,
		OutcomeCorrected:   `"corrected"`,
		OutcomeRegenerated: `"regenerated"`,
		OutcomeIgnored:     `"ignored"`,
		OutcomeUnknown:     `"unknown"`,
	}
	for outcome, want := range cases {
		data, err := json.Marshal(outcome)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != want {
			t.Errorf("got %s, want %s", data, want)
		}
	}
}

func TestOutcomeRecordSerdeRoundtrip(t *testing.T) {
	persona := "coder"
	editDistance := 0.15
	record := OutcomeRecord{
		ConversationID: "conv-001",
		MessageID:      "msg-001",
		ModelID:        "gpt-4o",
		TaskType:       "code_generation",
		Tier:           "premium",
		Persona:        &persona,
		Outcome:        OutcomeAccepted,
		EditDistance:   &editDistance,
		FollowUpCount:  2,
		QualityScore:   0.85,
		Cost:           0.003,
		LatencyMs:      1200,
		Timestamp:      "2026-02-10T12:00:00Z",
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed OutcomeRecord
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if parsed.ConversationID != record.ConversationID {
		t.Errorf("conversation id mismatch: %q", parsed.ConversationID)
	}
	if parsed.Outcome != OutcomeAccepted {
		t.Errorf("outcome mismatch: %v", parsed.Outcome)
	}
	if parsed.Persona == nil || *parsed.Persona != "coder" {
		t.Errorf("persona mismatch: %v", parsed.Persona)
	}
	if parsed.EditDistance == nil || *parsed.EditDistance != 0.15 {
		t.Errorf("edit distance mismatch: %v", parsed.EditDistance)
	}
}

func TestOutcomeRecordWithNoneFields(t *testing.T) {
	record := OutcomeRecord{
		ConversationID: "conv-002",
		MessageID:      "msg-002",
		ModelID:        "claude-3",
		TaskType:       "chat",
		Tier:           "standard",
		Outcome:        OutcomeUnknown,
		QualityScore:   0.5,
		Cost:           0.001,
		LatencyMs:      500,
		Timestamp:      "2026-02-10T13:00:00Z",
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed OutcomeRecord
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if parsed.Persona != nil {
		t.Errorf("expected nil persona, got %v", *parsed.Persona)
	}
	if parsed.EditDistance != nil {
		t.Errorf("expected nil edit distance, got %v", *parsed.EditDistance)
	}
	if parsed.Outcome != OutcomeUnknown {
		t.Errorf("got outcome %v, want Unknown", parsed.Outcome)
	}
}

func TestQualityTrendSerde(t *testing.T) {
	trends := []QualityTrend{QualityTrendImproving, QualityTrendDeclining, QualityTrendStable}
	for _, trend := range trends {
		data, err := json.Marshal(trend)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var parsed QualityTrend
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if parsed != trend {
			t.Errorf("got %v, want %v", parsed, trend)
		}
	}
}

func TestRoutingHistoryEntrySerde(t *testing.T) {
	actualTier := "premium"
	entry := RoutingHistoryEntry{
		TaskType:         "code_review",
		ClassifiedTier:   "standard",
		ActualTierNeeded: &actualTier,
		ModelID:          "gpt-4o-mini",
		QualityScore:     0.6,
		Cost:             0.001,
		Timestamp:        "2026-02-10T14:00:00Z",
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed RoutingHistoryEntry
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if parsed.TaskType != "code_review" {
		t.Errorf("task type mismatch: %q", parsed.TaskType)
	}
	if parsed.ActualTierNeeded == nil || *parsed.ActualTierNeeded != "premium" {
		t.Errorf("actual tier mismatch: %v", parsed.ActualTierNeeded)
	}
}

func TestSelfEvaluationReportSerde(t *testing.T) {
	best := "claude-3-opus"
	worst := "local-7b"
	report := SelfEvaluationReport{
		OverallQuality:       0.78,
		Trend:                QualityTrendImproving,
		BestModel:            &best,
		WorstModel:           &worst,
		MisrouteRate:         0.12,
		CostPerQualityPoint:  0.004,
		WeakAreas:            []string{"code_review", "debugging"},
		CorrectionRate:       0.15,
		RegenerationRate:     0.08,
		TotalInteractions:    500,
		GeneratedAt:          "2026-02-10T15:00:00Z",
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed SelfEvaluationReport
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if parsed.OverallQuality != 0.78 {
		t.Errorf("overall quality mismatch: %v", parsed.OverallQuality)
	}
	if parsed.Trend != QualityTrendImproving {
		t.Errorf("trend mismatch: %v", parsed.Trend)
	}
	if parsed.BestModel == nil || *parsed.BestModel != "claude-3-opus" {
		t.Errorf("best model mismatch: %v", parsed.BestModel)
	}
	if len(parsed.WeakAreas) != 2 {
		t.Errorf("weak areas mismatch: %v", parsed.WeakAreas)
	}
	if parsed.TotalInteractions != 500 {
		t.Errorf("total interactions mismatch: %v", parsed.TotalInteractions)
	}
}
