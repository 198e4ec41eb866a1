package validator

import (
	"strings"

	"github.com/google/uuid"
)

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

func ValidateUUID(value string) bool {
	if value == "" {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}

func ValidateRiskScore(score float64) bool {
	return score >= 0 && score <= 1
}
