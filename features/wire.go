package features

// Wire is a FeatureSet under the scoring service's field names. Fields are
// pointers so stored documents with absent fields survive a decode.
type Wire struct {
	SoilType           *string  `json:"Soil_Type,omitempty"`
	SoilPH             *float64 `json:"Soil_pH,omitempty"`
	SoilMoisture       *float64 `json:"Soil_Moisture,omitempty"`
	OrganicCarbon      *float64 `json:"Organic_Carbon,omitempty"`
	Temperature        *float64 `json:"Temperature_C,omitempty"`
	Humidity           *float64 `json:"Humidity,omitempty"`
	Rainfall           *float64 `json:"Rainfall_mm,omitempty"`
	SunlightHours      *float64 `json:"Sunlight_Hours,omitempty"`
	WindSpeed          *float64 `json:"Wind_Speed_kmh,omitempty"`
	CropType           *string  `json:"Crop_Type,omitempty"`
	CropGrowthStage    *string  `json:"Crop_Growth_Stage,omitempty"`
	Season             *string  `json:"Season,omitempty"`
	MulchingUsed       *string  `json:"Mulching_Used,omitempty"`
	PreviousIrrigation *float64 `json:"Previous_Irrigation_mm,omitempty"`
	Region             *string  `json:"Region,omitempty"`
}

// Wire field names.
const (
	WireSoilType           = "Soil_Type"
	WireSoilPH             = "Soil_pH"
	WireSoilMoisture       = "Soil_Moisture"
	WireOrganicCarbon      = "Organic_Carbon"
	WireTemperature        = "Temperature_C"
	WireHumidity           = "Humidity"
	WireRainfall           = "Rainfall_mm"
	WireSunlightHours      = "Sunlight_Hours"
	WireWindSpeed          = "Wind_Speed_kmh"
	WireCropType           = "Crop_Type"
	WireCropGrowthStage    = "Crop_Growth_Stage"
	WireSeason             = "Season"
	WireMulchingUsed       = "Mulching_Used"
	WirePreviousIrrigation = "Previous_Irrigation_mm"
	WireRegion             = "Region"
)

// WireNames maps each canonical field name to its wire name.
var WireNames = map[string]string{
	FieldSoilType:           WireSoilType,
	FieldSoilPH:             WireSoilPH,
	FieldSoilMoisture:       WireSoilMoisture,
	FieldOrganicCarbon:      WireOrganicCarbon,
	FieldTemperature:        WireTemperature,
	FieldHumidity:           WireHumidity,
	FieldRainfall:           WireRainfall,
	FieldSunlightHours:      WireSunlightHours,
	FieldWindSpeed:          WireWindSpeed,
	FieldMulchingUsed:       WireMulchingUsed,
	FieldPreviousIrrigation: WirePreviousIrrigation,
	FieldCropType:           WireCropType,
	FieldCropGrowthStage:    WireCropGrowthStage,
	FieldSeason:             WireSeason,
	FieldRegion:             WireRegion,
}

const (
	mulchYes = "Yes"
	mulchNo  = "No"
)

// ToWire renames a FeatureSet into the scoring service's convention.
func ToWire(fs FeatureSet) Wire {
	mulch := mulchNo
	if fs.MulchingUsed {
		mulch = mulchYes
	}
	return Wire{
		SoilType:           ptr(fs.SoilType),
		SoilPH:             ptr(fs.SoilPH),
		SoilMoisture:       ptr(fs.SoilMoisture),
		OrganicCarbon:      ptr(fs.OrganicCarbon),
		Temperature:        ptr(fs.Temperature),
		Humidity:           ptr(fs.Humidity),
		Rainfall:           ptr(fs.Rainfall),
		SunlightHours:      ptr(fs.SunlightHours),
		WindSpeed:          ptr(fs.WindSpeed),
		CropType:           ptr(fs.CropType),
		CropGrowthStage:    ptr(fs.CropGrowthStage),
		Season:             ptr(fs.Season),
		MulchingUsed:       ptr(mulch),
		PreviousIrrigation: ptr(fs.PreviousIrrigation),
		Region:             ptr(fs.Region),
	}
}

// Canonical is a possibly incomplete FeatureSet recovered from wire form.
// Absent wire fields stay nil and are omitted when encoded.
type Canonical struct {
	SoilType           *string  `json:"soil_type,omitempty"`
	SoilPH             *float64 `json:"soil_ph,omitempty"`
	SoilMoisture       *float64 `json:"soil_moisture,omitempty"`
	OrganicCarbon      *float64 `json:"organic_carbon,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	Humidity           *float64 `json:"humidity,omitempty"`
	Rainfall           *float64 `json:"rainfall,omitempty"`
	SunlightHours      *float64 `json:"sunlight_hours,omitempty"`
	WindSpeed          *float64 `json:"wind_speed,omitempty"`
	MulchingUsed       *bool    `json:"mulching_used,omitempty"`
	PreviousIrrigation *float64 `json:"previous_irrigation,omitempty"`
	CropType           *string  `json:"crop_type,omitempty"`
	CropGrowthStage    *string  `json:"crop_growth_stage,omitempty"`
	Season             *string  `json:"season,omitempty"`
	Region             *string  `json:"region,omitempty"`
}

// FromWire is the inverse of ToWire. Mulching is true only for "Yes".
func FromWire(w Wire) Canonical {
	c := Canonical{
		SoilType:           clone(w.SoilType),
		SoilPH:             clone(w.SoilPH),
		SoilMoisture:       clone(w.SoilMoisture),
		OrganicCarbon:      clone(w.OrganicCarbon),
		Temperature:        clone(w.Temperature),
		Humidity:           clone(w.Humidity),
		Rainfall:           clone(w.Rainfall),
		SunlightHours:      clone(w.SunlightHours),
		WindSpeed:          clone(w.WindSpeed),
		PreviousIrrigation: clone(w.PreviousIrrigation),
		CropType:           clone(w.CropType),
		CropGrowthStage:    clone(w.CropGrowthStage),
		Season:             clone(w.Season),
		Region:             clone(w.Region),
	}
	if w.MulchingUsed != nil {
		c.MulchingUsed = ptr(*w.MulchingUsed == mulchYes)
	}
	return c
}

// FeatureSet returns the complete FeatureSet, or false if any field is absent.
func (c Canonical) FeatureSet() (FeatureSet, bool) {
	if c.SoilType == nil || c.SoilPH == nil || c.SoilMoisture == nil ||
		c.OrganicCarbon == nil || c.Temperature == nil || c.Humidity == nil ||
		c.Rainfall == nil || c.SunlightHours == nil || c.WindSpeed == nil ||
		c.MulchingUsed == nil || c.PreviousIrrigation == nil || c.CropType == nil ||
		c.CropGrowthStage == nil || c.Season == nil || c.Region == nil {
		return FeatureSet{}, false
	}
	return FeatureSet{
		SoilType:           *c.SoilType,
		SoilPH:             *c.SoilPH,
		SoilMoisture:       *c.SoilMoisture,
		OrganicCarbon:      *c.OrganicCarbon,
		Temperature:        *c.Temperature,
		Humidity:           *c.Humidity,
		Rainfall:           *c.Rainfall,
		SunlightHours:      *c.SunlightHours,
		WindSpeed:          *c.WindSpeed,
		MulchingUsed:       *c.MulchingUsed,
		PreviousIrrigation: *c.PreviousIrrigation,
		CropType:           *c.CropType,
		CropGrowthStage:    *c.CropGrowthStage,
		Season:             *c.Season,
		Region:             *c.Region,
	}, true
}

func ptr[T any](v T) *T {
	return &v
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of w.
func (w Wire) Clone() Wire {
	return Wire{
		SoilType:           clone(w.SoilType),
		SoilPH:             clone(w.SoilPH),
		SoilMoisture:       clone(w.SoilMoisture),
		OrganicCarbon:      clone(w.OrganicCarbon),
		Temperature:        clone(w.Temperature),
		Humidity:           clone(w.Humidity),
		Rainfall:           clone(w.Rainfall),
		SunlightHours:      clone(w.SunlightHours),
		WindSpeed:          clone(w.WindSpeed),
		CropType:           clone(w.CropType),
		CropGrowthStage:    clone(w.CropGrowthStage),
		Season:             clone(w.Season),
		MulchingUsed:       clone(w.MulchingUsed),
		PreviousIrrigation: clone(w.PreviousIrrigation),
		Region:             clone(w.Region),
	}
}
