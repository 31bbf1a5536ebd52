package rules

import (
	"sort"

	"github.com/liamcoop/aquasens/features"
)

var numericFacts = []string{
	features.WireSoilPH,
	features.WireSoilMoisture,
	features.WireOrganicCarbon,
	features.WireTemperature,
	features.WireHumidity,
	features.WireRainfall,
	features.WireSunlightHours,
	features.WireWindSpeed,
	features.WirePreviousIrrigation,
	features.WireMulchingUsed,
}

var categoricalFacts = []struct {
	field  string
	values []string
}{
	{features.WireSoilType, features.SoilTypes},
	{features.WireCropType, features.CropTypes},
	{features.WireCropGrowthStage, features.GrowthStages},
	{features.WireSeason, features.Seasons},
	{features.WireRegion, features.Regions},
}

// FactNames lists every variable a split may test, sorted. Categorical fields
// appear one-hot encoded as <Field>_<Value>.
func FactNames() []string {
	names := append([]string(nil), numericFacts...)
	for _, c := range categoricalFacts {
		for _, v := range c.values {
			names = append(names, c.field+"_"+v)
		}
	}
	sort.Strings(names)
	return names
}

// Facts encodes fs the way the tree sees it: every value is a double,
// Mulching_Used is 1 or 0, and each categorical value becomes an indicator.
func Facts(fs features.FeatureSet) map[string]any {
	mulch := 0.0
	if fs.MulchingUsed {
		mulch = 1
	}

	facts := map[string]any{
		features.WireSoilPH:             fs.SoilPH,
		features.WireSoilMoisture:       fs.SoilMoisture,
		features.WireOrganicCarbon:      fs.OrganicCarbon,
		features.WireTemperature:        fs.Temperature,
		features.WireHumidity:           fs.Humidity,
		features.WireRainfall:           fs.Rainfall,
		features.WireSunlightHours:      fs.SunlightHours,
		features.WireWindSpeed:          fs.WindSpeed,
		features.WirePreviousIrrigation: fs.PreviousIrrigation,
		features.WireMulchingUsed:       mulch,
	}

	chosen := map[string]string{
		features.WireSoilType:        fs.SoilType,
		features.WireCropType:        fs.CropType,
		features.WireCropGrowthStage: fs.CropGrowthStage,
		features.WireSeason:          fs.Season,
		features.WireRegion:          fs.Region,
	}
	for _, c := range categoricalFacts {
		for _, v := range c.values {
			indicator := 0.0
			if chosen[c.field] == v {
				indicator = 1
			}
			facts[c.field+"_"+v] = indicator
		}
	}
	return facts
}
