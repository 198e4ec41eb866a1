package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRisk(t *testing.T) {
	assert.Equal(t, ClassificationSafe, ClassifyRisk(0.0))
	assert.Equal(t, ClassificationSafe, ClassifyRisk(0.5))
	// Classification keeps the boundary score on the safe side; the
	// execution gate below does not.
	assert.Equal(t, ClassificationSafe, ClassifyRisk(HighRiskThreshold))
	assert.Equal(t, ClassificationHighRisk, ClassifyRisk(0.71))
	assert.Equal(t, ClassificationHighRisk, ClassifyRisk(1.0))
}

func TestHighRisk(t *testing.T) {
	assert.False(t, HighRisk(0.0))
	assert.False(t, HighRisk(0.69))
	assert.True(t, HighRisk(HighRiskThreshold))
	assert.True(t, HighRisk(1.0))
}

func TestReputationLevel(t *testing.T) {
	assert.Equal(t, RiskLevelLow, ReputationLevel(0.0))
	assert.Equal(t, RiskLevelLow, ReputationLevel(0.39))
	assert.Equal(t, RiskLevelMedium, ReputationLevel(0.4))
	assert.Equal(t, RiskLevelMedium, ReputationLevel(0.69))
	assert.Equal(t, RiskLevelHigh, ReputationLevel(0.7))
	assert.Equal(t, RiskLevelHigh, ReputationLevel(1.0))
}
