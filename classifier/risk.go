package classifier

import (
	"fmt"
	"strings"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Band boundaries. Each band includes its lower bound.
const (
	MediumRiskThreshold = 0.3
	HighRiskThreshold   = 0.6
)

// RiskLevelFor buckets a probability into Low, Medium or High.
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p < MediumRiskThreshold:
		return RiskLow
	case p < HighRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

const (
	OutcomePositive = "Positive"
	OutcomeNegative = "Negative"
)

// OutcomeFor labels a treatment-outcome probability. 0.5 itself is Negative.
func OutcomeFor(p float64) string {
	if p > 0.5 {
		return OutcomePositive
	}
	return OutcomeNegative
}
