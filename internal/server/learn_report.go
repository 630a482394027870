package server

import (
	"context"
	"time"

	"github.com/howard-nolan/hive/internal/learn"
)

// reportWindow bounds how many recent routing decisions feed the
// self-evaluation report.
const reportWindow = 500

// buildSelfEvaluationReport synthesizes a learn.SelfEvaluationReport from
// the router's routing-history ledger. It's a read-only view: the actual
// learning (tier adjustments, prompt refinement) is out of scope for this
// endpoint, which only reports what has been observed so far.
func (s *Server) buildSelfEvaluationReport(ctx context.Context) (*learn.SelfEvaluationReport, error) {
	if s.history == nil {
		return &learn.SelfEvaluationReport{
			Trend:       learn.QualityTrendStable,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		}, nil
	}

	entries, err := s.history.Recent(ctx, reportWindow)
	if err != nil {
		return nil, err
	}

	report := &learn.SelfEvaluationReport{
		Trend:       learn.QualityTrendStable,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if len(entries) == 0 {
		return report, nil
	}

	costByModel := make(map[string]float64)
	qualityByModel := make(map[string]float64)
	countByModel := make(map[string]int)

	var totalQuality, totalCost float64
	for _, e := range entries {
		totalQuality += e.QualityScore
		totalCost += e.Cost
		costByModel[e.ModelID] += e.Cost
		qualityByModel[e.ModelID] += e.QualityScore
		countByModel[e.ModelID]++
	}

	report.TotalInteractions = int64(len(entries))
	report.OverallQuality = totalQuality / float64(len(entries))
	if report.OverallQuality > 0 {
		report.CostPerQualityPoint = totalCost / report.OverallQuality
	}

	report.Trend = trendFromHalves(entries)

	best, worst := "", ""
	var bestAvg, worstAvg float64
	for model, count := range countByModel {
		avg := qualityByModel[model] / float64(count)
		if best == "" || avg > bestAvg {
			best, bestAvg = model, avg
		}
		if worst == "" || avg < worstAvg {
			worst, worstAvg = model, avg
		}
	}
	if best != "" {
		report.BestModel = &best
	}
	if worst != "" {
		report.WorstModel = &worst
	}

	return report, nil
}

// trendFromHalves compares the average quality score of the first and
// second half of the window to classify the recent trend. A fixed 5%
// band around equal is treated as stable rather than noise.
func trendFromHalves(entries []learn.RoutingHistoryEntry) learn.QualityTrend {
	if len(entries) < 4 {
		return learn.QualityTrendStable
	}
	mid := len(entries) / 2
	firstAvg := averageQuality(entries[:mid])
	secondAvg := averageQuality(entries[mid:])

	switch {
	case secondAvg > firstAvg*1.05:
		return learn.QualityTrendImproving
	case secondAvg < firstAvg*0.95:
		return learn.QualityTrendDeclining
	default:
		return learn.QualityTrendStable
	}
}

func averageQuality(entries []learn.RoutingHistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var total float64
	for _, e := range entries {
		total += e.QualityScore
	}
	return total / float64(len(entries))
}
