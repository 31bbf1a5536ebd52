package explain

import "github.com/liamcoop/aquasens/scoring"

// Presentation describes how a classification level is rendered.
// Ordinal sorts levels High > Medium > Low.
type Presentation struct {
	Level         scoring.Level `json:"level"`
	Ordinal       int           `json:"ordinal"`
	EmphasisClass string        `json:"emphasisClass"`
	Label         string        `json:"label"`
}

var presentations = map[scoring.Level]Presentation{
	scoring.LevelHigh:   {Level: scoring.LevelHigh, Ordinal: 3, EmphasisClass: "accent", Label: "HIGH"},
	scoring.LevelMedium: {Level: scoring.LevelMedium, Ordinal: 2, EmphasisClass: "warning", Label: "MEDIUM"},
	scoring.LevelLow:    {Level: scoring.LevelLow, Ordinal: 1, EmphasisClass: "success", Label: "LOW"},
}

// LevelPresentation maps a level string to its presentation. Unrecognized
// levels render as Low.
func LevelPresentation(level string) Presentation {
	if p, ok := presentations[scoring.Level(level)]; ok {
		return p
	}
	return presentations[scoring.LevelLow]
}
