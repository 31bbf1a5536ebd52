package rules

import "github.com/liamcoop/aquasens/scoring"

var recommendations = map[scoring.Level]scoring.Recommendation{
	scoring.LevelHigh: {
		Action: "Immediate irrigation required",
		Advice: []string{
			"Apply drip irrigation if available",
			"Monitor soil moisture daily",
			"Avoid irrigation during peak sunlight hours",
		},
	},
	scoring.LevelMedium: {
		Action: "Moderate irrigation recommended",
		Advice: []string{
			"Irrigate within 24–48 hours",
			"Check weather forecast for rainfall",
			"Use mulching to reduce evaporation",
		},
	},
	scoring.LevelLow: {
		Action: "No irrigation required",
		Advice: []string{
			"Soil moisture is sufficient",
			"Re-evaluate in 3–5 days",
			"Avoid unnecessary watering",
		},
	},
}

// RecommendationFor returns a copy of the fixed recommendation for level.
// Unknown levels get the Low recommendation.
func RecommendationFor(level scoring.Level) scoring.Recommendation {
	rec, ok := recommendations[level]
	if !ok {
		rec = recommendations[scoring.LevelLow]
	}
	return scoring.Recommendation{
		Action: rec.Action,
		Advice: append([]string(nil), rec.Advice...),
	}
}
