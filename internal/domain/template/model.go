package template

import (
	"time"
)

// QuestionType is the wire value of a question's type. The string values
// are part of the stored contract.
type QuestionType string

const (
	TypeText          QuestionType = "TEXT"
	TypeTextarea      QuestionType = "TEXTAREA"
	TypeSelect        QuestionType = "SELECT"
	TypeMultiselect   QuestionType = "MULTISELECT"
	TypeCheckbox      QuestionType = "CHECKBOX"
	TypeRadio         QuestionType = "RADIO"
	TypeDate          QuestionType = "DATE"
	TypeNumber        QuestionType = "NUMBER"
	TypeScale         QuestionType = "SCALE"
	TypeMatrix        QuestionType = "MATRIX"
	TypeVitalSigns    QuestionType = "VITAL_SIGNS"
	TypeBMICalculator QuestionType = "BMI_CALCULATOR"
	TypeScoringScale  QuestionType = "SCORING_SCALE"
)

var validQuestionTypes = map[QuestionType]bool{
	TypeText: true, TypeTextarea: true, TypeSelect: true, TypeMultiselect: true,
	TypeCheckbox: true, TypeRadio: true, TypeDate: true, TypeNumber: true,
	TypeScale: true, TypeMatrix: true, TypeVitalSigns: true, TypeBMICalculator: true,
	TypeScoringScale: true,
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	return validQuestionTypes[t]
}

// HasOptions reports whether answers to t are picked from an option list.
func (t QuestionType) HasOptions() bool {
	return t.ConfigKind() == KindOptions
}

// ConfigKind returns the configuration shape a question of type t carries.
func (t QuestionType) ConfigKind() ConfigKind {
	switch t {
	case TypeSelect, TypeMultiselect, TypeCheckbox, TypeRadio:
		return KindOptions
	case TypeScale:
		return KindScale
	case TypeMatrix:
		return KindMatrix
	case TypeVitalSigns, TypeBMICalculator:
		return KindVitalSigns
	case TypeScoringScale:
		return KindScoringScale
	default:
		return KindNone
	}
}

// Category groups recommendations for reporting.
type Category string

const (
	CategoryPreventiveCare     Category = "Preventive Care"
	CategoryLifestyle          Category = "Lifestyle"
	CategoryExercise           Category = "Exercise"
	CategoryNutrition          Category = "Nutrition"
	CategoryFollowUp           Category = "Follow-up"
	CategoryMedication         Category = "Medication"
	CategoryMentalHealth       Category = "Mental Health"
	CategorySpecialistReferral Category = "Specialist Referral"
	CategoryScreenings         Category = "Screenings"
	CategoryOther              Category = "Other"
)

var validCategories = map[Category]bool{
	CategoryPreventiveCare: true, CategoryLifestyle: true, CategoryExercise: true,
	CategoryNutrition: true, CategoryFollowUp: true, CategoryMedication: true,
	CategoryMentalHealth: true, CategorySpecialistReferral: true,
	CategoryScreenings: true, CategoryOther: true,
}

// Valid reports whether c is one of the fixed recommendation categories.
func (c Category) Valid() bool {
	return validCategories[c]
}

// Template is a reusable questionnaire definition. It owns its whole tree.
type Template struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	IsActive      bool       `json:"isActive"`
	UserID        string     `json:"userId,omitempty"`
	Sections      []Section  `json:"sections"`
	SectionCount  int        `json:"sectionCount"`
	QuestionCount int        `json:"questionCount"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type Section struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"order"`
	IsActive    bool       `json:"isActive"`
	Questions   []Question `json:"questions"`
}

// Question carries exactly one configuration shape, chosen by Type. See
// config.go for the wire encoding.
type Question struct {
	ID                     string           `json:"id"`
	Text                   string           `json:"text"`
	Type                   QuestionType     `json:"type"`
	Order                  int              `json:"order"`
	Required               bool             `json:"required"`
	Config                 QuestionConfig   `json:"-"`
	SkipLogicRules         []SkipLogicRule  `json:"skipLogicRules,omitempty"`
	DefaultRecommendations []Recommendation `json:"defaultRecommendations,omitempty"`
}

// Options returns the question's option list, or nil for non-option types.
func (q *Question) Options() []Option {
	if list, ok := q.Config.(OptionList); ok {
		return list
	}
	return nil
}

type Option struct {
	ID              string           `json:"id"`
	Text            string           `json:"text"`
	Value           string           `json:"value"`
	Order           int              `json:"order"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

type Recommendation struct {
	ID        string   `json:"id,omitempty"`
	Text      string   `json:"text"`
	Category  Category `json:"category"`
	IsDefault bool     `json:"isDefault,omitempty"`
}

// Operator compares a source answer with a rule's value.
type Operator string

const (
	OpEquals        Operator = "EQUALS"
	OpNotEquals     Operator = "NOT_EQUALS"
	OpContains      Operator = "CONTAINS"
	OpGreaterThan   Operator = "GREATER_THAN"
	OpLessThan      Operator = "LESS_THAN"
	OpIsAnswered    Operator = "IS_ANSWERED"
	OpIsNotAnswered Operator = "IS_NOT_ANSWERED"
)

var validOperators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true, OpContains: true, OpGreaterThan: true,
	OpLessThan: true, OpIsAnswered: true, OpIsNotAnswered: true,
}

type Action string

const (
	ActionShow Action = "SHOW"
	ActionHide Action = "HIDE"
)

type TargetType string

const (
	TargetQuestion TargetType = "QUESTION"
	TargetSection  TargetType = "SECTION"
)

type Condition struct {
	QuestionID string      `json:"questionId"`
	Operator   Operator    `json:"operator"`
	Value      interface{} `json:"value,omitempty"`
}

// SkipLogicRule shows or hides its target when Condition holds. An empty
// TargetID with TargetQuestion refers to the question owning the rule.
type SkipLogicRule struct {
	ID         string     `json:"id"`
	Condition  Condition  `json:"condition"`
	Action     Action     `json:"action"`
	TargetType TargetType `json:"targetType"`
	TargetID   string     `json:"targetId,omitempty"`
}
