package template

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.New().String()
}

// OptionValue derives an option's value token from its display text.
func OptionValue(text string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "_")
}

// NewOption builds an option whose value is derived from text.
func NewOption(text string, order int) Option {
	return Option{ID: newID(), Text: text, Value: OptionValue(text), Order: order}
}

func defaultOptions(n int) OptionList {
	opts := make(OptionList, n)
	for i := range opts {
		opts[i] = NewOption(fmt.Sprintf("Option %d", i+1), i)
	}
	return opts
}

// NewSection returns an empty active section titled after its position.
func NewSection(order int) Section {
	return Section{
		ID:        newID(),
		Title:     fmt.Sprintf("Section %d", order+1),
		Order:     order,
		IsActive:  true,
		Questions: []Question{},
	}
}

// NewQuestion returns the default question appended by AddQuestion: an
// optional RADIO question with three placeholder options.
func NewQuestion(order int) Question {
	return Question{
		ID:     newID(),
		Type:   TypeRadio,
		Order:  order,
		Config: defaultOptions(3),
	}
}

func ptr(f float64) *float64 { return &f }

// DefaultVitalFields are the seven vitals recorded at a wellness visit
// with their accepted clinical ranges.
func DefaultVitalFields() []VitalField {
	return []VitalField{
		{Type: "temperature", Unit: "°F", Min: ptr(95), Max: ptr(105), Required: true},
		{Type: "bloodPressure", Unit: "mmHg", Min: ptr(70), Max: ptr(200), Required: true},
		{Type: "heartRate", Unit: "bpm", Min: ptr(40), Max: ptr(200), Required: true},
		{Type: "respiratoryRate", Unit: "breaths/min", Min: ptr(8), Max: ptr(40), Required: true},
		{Type: "oxygenSaturation", Unit: "%", Min: ptr(90), Max: ptr(100), Required: true},
		{Type: "weight", Unit: "lbs", Min: ptr(50), Max: ptr(500), Required: true},
		{Type: "height", Unit: "inches", Min: ptr(24), Max: ptr(96), Required: true},
	}
}

func bmiFields() []VitalField {
	var out []VitalField
	for _, f := range DefaultVitalFields() {
		if f.Type == "weight" || f.Type == "height" {
			out = append(out, f)
		}
	}
	return out
}

// DefaultScoringScale is a PHQ style four-point instrument with the usual
// five severity bands.
func DefaultScoringScale() *ScoringScaleConfig {
	return &ScoringScaleConfig{
		Type: "custom",
		Questions: []ScoringItem{{
			Text: "Question 1",
			Options: []ScoringOption{
				{Text: "Not at all", Value: 0},
				{Text: "Several days", Value: 1},
				{Text: "More than half the days", Value: 2},
				{Text: "Nearly every day", Value: 3},
			},
		}},
		ScoringRules: ScoringRules{Ranges: []ScoreRange{
			{Min: 0, Max: 4, Label: "Minimal", Recommendations: []string{"No action needed"}},
			{Min: 5, Max: 9, Label: "Mild", Recommendations: []string{"Consider follow-up"}},
			{Min: 10, Max: 14, Label: "Moderate", Recommendations: []string{"Schedule follow-up"}},
			{Min: 15, Max: 19, Label: "Moderately Severe", Recommendations: []string{"Schedule urgent follow-up"}},
			{Min: 20, Max: 27, Label: "Severe", Recommendations: []string{"Schedule immediate follow-up"}},
		}},
	}
}

// DefaultConfig returns a fresh configuration for t, or nil for the plain
// input types.
func DefaultConfig(t QuestionType) QuestionConfig {
	switch t.ConfigKind() {
	case KindOptions:
		return defaultOptions(2)
	case KindScale:
		return &ScaleConfig{
			Min:    0,
			Max:    10,
			Step:   1,
			Labels: ScaleLabels{Min: "Not at all", Max: "Very much"},
		}
	case KindMatrix:
		return &MatrixConfig{
			Rows:    []string{"Row 1", "Row 2"},
			Columns: []string{"Column 1", "Column 2"},
		}
	case KindVitalSigns:
		if t == TypeBMICalculator {
			return &VitalSignsConfig{Fields: bmiFields()}
		}
		return &VitalSignsConfig{Fields: DefaultVitalFields()}
	case KindScoringScale:
		return DefaultScoringScale()
	default:
		return nil
	}
}
