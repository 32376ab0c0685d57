package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// NormalizeScore coerces a raw AI protection score into [0, 100].
// Non-numeric and non-finite input defaults to 0. The stored score is
// never trusted from the model verbatim.
func NormalizeScore(raw any) float64 {
	var score float64

	switch v := raw.(type) {
	case float64:
		score = v
	case float32:
		score = float64(v)
	case int:
		score = float64(v)
	case int64:
		score = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		score = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		score = f
	default:
		return 0
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// NormalizeRisk coerces a raw AI risk label into {low, medium, high}.
// Matching is by substring, with medium as the default including on
// empty input.
func NormalizeRisk(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "low"):
		return models.RiskLow
	case strings.Contains(lower, "high"):
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

// NormalizeSeverity coerces an issue severity into {high, medium, warning}.
// Unknown labels degrade to medium so an issue is never silently dropped
// from the risky bucket.
func NormalizeSeverity(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch lower {
	case models.SeverityHigh, models.SeverityMedium, models.SeverityWarning:
		return lower
	case "critical":
		return models.SeverityHigh
	case "missing", "info", "low":
		return models.SeverityWarning
	default:
		return models.SeverityMedium
	}
}
