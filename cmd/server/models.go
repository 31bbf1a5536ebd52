package main

import (
	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/internal/logger"
	"github.com/liamcoop/aquasens/predictions"
)

// API request and response models

// CreatePredictionRequest is the body of POST /api/v1/predictions. Fields
// are decoded loosely and type-checked by the validator.
type CreatePredictionRequest struct {
	SoilType           any `json:"soil_type" example:"Loamy"`
	SoilPH             any `json:"soil_ph" example:"6.5"`
	SoilMoisture       any `json:"soil_moisture" example:"18"`
	OrganicCarbon      any `json:"organic_carbon" example:"0.8"`
	Temperature        any `json:"temperature" example:"35"`
	Humidity           any `json:"humidity" example:"40"`
	Rainfall           any `json:"rainfall" example:"2"`
	SunlightHours      any `json:"sunlight_hours" example:"9"`
	WindSpeed          any `json:"wind_speed" example:"12"`
	MulchingUsed       any `json:"mulching_used" example:"false"`
	PreviousIrrigation any `json:"previous_irrigation" example:"10"`
	CropType           any `json:"crop_type" example:"Wheat"`
	CropGrowthStage    any `json:"crop_growth_stage" example:"Flowering"`
	Season             any `json:"season" example:"Rabi"`
	Region             any `json:"region" example:"North"`
} // @name CreatePredictionRequest

// raw returns the submitted values keyed by canonical field name.
func (r CreatePredictionRequest) raw() map[string]any {
	return map[string]any{
		features.FieldSoilType:           r.SoilType,
		features.FieldSoilPH:             r.SoilPH,
		features.FieldSoilMoisture:       r.SoilMoisture,
		features.FieldOrganicCarbon:      r.OrganicCarbon,
		features.FieldTemperature:        r.Temperature,
		features.FieldHumidity:           r.Humidity,
		features.FieldRainfall:           r.Rainfall,
		features.FieldSunlightHours:      r.SunlightHours,
		features.FieldWindSpeed:          r.WindSpeed,
		features.FieldMulchingUsed:       r.MulchingUsed,
		features.FieldPreviousIrrigation: r.PreviousIrrigation,
		features.FieldCropType:           r.CropType,
		features.FieldCropGrowthStage:    r.CropGrowthStage,
		features.FieldSeason:             r.Season,
		features.FieldRegion:             r.Region,
	}
}

// HistoryResponse lists an owner's predictions, newest first
type HistoryResponse struct {
	Predictions []predictions.Summary `json:"predictions"`
} // @name HistoryResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string                `json:"error" example:"invalid input"`
	Details   string                `json:"details,omitempty"`
	Fields    []features.FieldError `json:"fields,omitempty"`
	Retryable bool                  `json:"retryable,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string          `json:"status" example:"healthy"`
	Error    string          `json:"error,omitempty"`
	Counters logger.Counters `json:"counters"`
} // @name HealthResponse
