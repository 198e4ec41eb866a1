package domain

// HighRiskThreshold is the policy cutoff for simulation risk scores. Scores
// at or above it classify as high risk and block execution. Defined once
// here so the simulation engine and the execution dispatcher cannot drift.
const HighRiskThreshold = 0.7

// Risk classifications produced by simulation.
const (
	ClassificationSafe     = "safe"
	ClassificationHighRisk = "high_risk"
)

// Reputation risk levels derived from the latest simulation score.
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// ClassifyRisk maps a simulation risk score to its classification.
func ClassifyRisk(score float64) string {
	if score > HighRiskThreshold {
		return ClassificationHighRisk
	}
	return ClassificationSafe
}

// ReputationLevel maps a risk score to the coarser reputation level kept on
// the agent's reputation row.
func ReputationLevel(score float64) string {
	switch {
	case score >= HighRiskThreshold:
		return RiskLevelHigh
	case score >= 0.4:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// HighRisk reports whether a score must short-circuit execution.
func HighRisk(score float64) bool {
	return score >= HighRiskThreshold
}
