package features

// FeatureSet is the validated, canonical-named bundle of agronomic and
// environmental measurements submitted for a prediction.
type FeatureSet struct {
	SoilType           string  `json:"soil_type"`
	SoilPH             float64 `json:"soil_ph"`
	SoilMoisture       float64 `json:"soil_moisture"`
	OrganicCarbon      float64 `json:"organic_carbon"`
	Temperature        float64 `json:"temperature"`
	Humidity           float64 `json:"humidity"`
	Rainfall           float64 `json:"rainfall"`
	SunlightHours      float64 `json:"sunlight_hours"`
	WindSpeed          float64 `json:"wind_speed"`
	MulchingUsed       bool    `json:"mulching_used"`
	PreviousIrrigation float64 `json:"previous_irrigation"`
	CropType           string  `json:"crop_type"`
	CropGrowthStage    string  `json:"crop_growth_stage"`
	Season             string  `json:"season"`
	Region             string  `json:"region"`
}

// Canonical field names.
const (
	FieldSoilType           = "soil_type"
	FieldSoilPH             = "soil_ph"
	FieldSoilMoisture       = "soil_moisture"
	FieldOrganicCarbon      = "organic_carbon"
	FieldTemperature        = "temperature"
	FieldHumidity           = "humidity"
	FieldRainfall           = "rainfall"
	FieldSunlightHours      = "sunlight_hours"
	FieldWindSpeed          = "wind_speed"
	FieldMulchingUsed       = "mulching_used"
	FieldPreviousIrrigation = "previous_irrigation"
	FieldCropType           = "crop_type"
	FieldCropGrowthStage    = "crop_growth_stage"
	FieldSeason             = "season"
	FieldRegion             = "region"
)

// Allowed values for the enumerated fields. These match the categories the
// scoring model was trained on.
var (
	SoilTypes    = []string{"Clay", "Sandy", "Loamy", "Silt", "Peat", "Chalky"}
	CropTypes    = []string{"Wheat", "Rice", "Maize", "Cotton", "Sugarcane", "Soybean", "Vegetables", "Fruits"}
	GrowthStages = []string{"Germination", "Seedling", "Vegetative", "Flowering", "Fruit_Development", "Maturity", "Harvest"}
	Seasons      = []string{"Rabi", "Kharif", "Zaid"}
	Regions      = []string{"North", "South", "East", "West"}
)
