package features

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// FieldError describes a single invalid field in a submission.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether the error contains a violation for field.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindBool
	kindEnum
)

// fieldSpec declares the type and bounds of one canonical field.
type fieldSpec struct {
	name    string
	kind    fieldKind
	min     float64
	max     float64
	hasMax  bool
	allowed []string
}

func number(name string, min, max float64) fieldSpec {
	return fieldSpec{name: name, kind: kindNumber, min: min, max: max, hasMax: true}
}

func atLeast(name string, min float64) fieldSpec {
	return fieldSpec{name: name, kind: kindNumber, min: min}
}

func enum(name string, allowed []string) fieldSpec {
	return fieldSpec{name: name, kind: kindEnum, allowed: allowed}
}

// schema lists the fields in the order violations are reported.
var schema = []fieldSpec{
	enum(FieldSoilType, SoilTypes),
	number(FieldSoilPH, 0, 14),
	number(FieldSoilMoisture, 0, 100),
	number(FieldOrganicCarbon, 0, 10),
	number(FieldTemperature, -50, 60),
	number(FieldHumidity, 0, 100),
	atLeast(FieldRainfall, 0),
	number(FieldSunlightHours, 0, 24),
	atLeast(FieldWindSpeed, 0),
	{name: FieldMulchingUsed, kind: kindBool},
	atLeast(FieldPreviousIrrigation, 0),
	enum(FieldCropType, CropTypes),
	enum(FieldCropGrowthStage, GrowthStages),
	enum(FieldSeason, Seasons),
	enum(FieldRegion, Regions),
}

// Validate checks a decoded JSON submission against the feature schema.
// All violations are collected; on failure no FeatureSet is returned and the
// error is a *ValidationError.
func Validate(raw map[string]any) (FeatureSet, error) {
	var (
		fs      FeatureSet
		nums    = make(map[string]float64, len(schema))
		strs    = make(map[string]string, len(schema))
		mulch   bool
		invalid []FieldError
	)

	for _, rule := range schema {
		value, present := raw[rule.name]
		if !present || value == nil || isBlank(value) {
			invalid = append(invalid, FieldError{Field: rule.name, Message: "is required"})
			continue
		}

		switch rule.kind {
		case kindNumber:
			n, msg := checkNumber(rule, value)
			if msg != "" {
				invalid = append(invalid, FieldError{Field: rule.name, Message: msg})
				continue
			}
			nums[rule.name] = n

		case kindBool:
			b, ok := value.(bool)
			if !ok {
				invalid = append(invalid, FieldError{Field: rule.name, Message: "must be a boolean"})
				continue
			}
			mulch = b

		case kindEnum:
			s, msg := checkEnum(rule, value)
			if msg != "" {
				invalid = append(invalid, FieldError{Field: rule.name, Message: msg})
				continue
			}
			strs[rule.name] = s
		}
	}

	if len(invalid) > 0 {
		return FeatureSet{}, &ValidationError{Fields: invalid}
	}

	fs = FeatureSet{
		SoilType:           strs[FieldSoilType],
		SoilPH:             nums[FieldSoilPH],
		SoilMoisture:       nums[FieldSoilMoisture],
		OrganicCarbon:      nums[FieldOrganicCarbon],
		Temperature:        nums[FieldTemperature],
		Humidity:           nums[FieldHumidity],
		Rainfall:           nums[FieldRainfall],
		SunlightHours:      nums[FieldSunlightHours],
		WindSpeed:          nums[FieldWindSpeed],
		MulchingUsed:       mulch,
		PreviousIrrigation: nums[FieldPreviousIrrigation],
		CropType:           strs[FieldCropType],
		CropGrowthStage:    strs[FieldCropGrowthStage],
		Season:             strs[FieldSeason],
		Region:             strs[FieldRegion],
	}
	return fs, nil
}

func isBlank(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

// ValidateFeatureSet re-checks an already typed FeatureSet, e.g. one built
// in code rather than decoded from a request.
func ValidateFeatureSet(fs FeatureSet) error {
	_, err := Validate(fs.asMap())
	return err
}

func checkNumber(rule fieldSpec, value any) (float64, string) {
	n, ok := value.(float64)
	if !ok {
		switch v := value.(type) {
		case int:
			n, ok = float64(v), true
		case int64:
			n, ok = float64(v), true
		}
	}
	if !ok {
		return 0, "must be a number"
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, "must be a finite number"
	}
	if rule.hasMax && (n < rule.min || n > rule.max) {
		return 0, fmt.Sprintf("must be between %g and %g", rule.min, rule.max)
	}
	if n < rule.min {
		return 0, fmt.Sprintf("must be %g or more", rule.min)
	}
	return n, ""
}

func checkEnum(rule fieldSpec, value any) (string, string) {
	s, ok := value.(string)
	if !ok {
		return "", "must be a string"
	}
	if strings.TrimSpace(s) == "" {
		return "", "is required"
	}
	if !slices.Contains(rule.allowed, s) {
		return "", fmt.Sprintf("must be one of: %s", strings.Join(rule.allowed, ", "))
	}
	return s, ""
}

func (fs FeatureSet) asMap() map[string]any {
	return map[string]any{
		FieldSoilType:           fs.SoilType,
		FieldSoilPH:             fs.SoilPH,
		FieldSoilMoisture:       fs.SoilMoisture,
		FieldOrganicCarbon:      fs.OrganicCarbon,
		FieldTemperature:        fs.Temperature,
		FieldHumidity:           fs.Humidity,
		FieldRainfall:           fs.Rainfall,
		FieldSunlightHours:      fs.SunlightHours,
		FieldWindSpeed:          fs.WindSpeed,
		FieldMulchingUsed:       fs.MulchingUsed,
		FieldPreviousIrrigation: fs.PreviousIrrigation,
		FieldCropType:           fs.CropType,
		FieldCropGrowthStage:    fs.CropGrowthStage,
		FieldSeason:             fs.Season,
		FieldRegion:             fs.Region,
	}
}
