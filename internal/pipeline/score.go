package pipeline

import "github.com/catherinevee/importmgr/pkg/models"

// securityScore computes the posture score from the derived gaps.
// Low-severity gaps are advisory and do not deduct. The result is
// clamped to [0, 100] regardless of weight configuration.
func securityScore(weights ScoreWeights, gaps []models.SecurityGap) int {
	critical, high, medium, _ := countBySeverity(gaps)

	score := 100 - weights.Critical*critical - weights.High*high - weights.Medium*medium
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func countBySeverity(gaps []models.SecurityGap) (critical, high, medium, low int) {
	for _, gap := range gaps {
		switch gap.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		default:
			low++
		}
	}
	return
}
