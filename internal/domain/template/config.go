package template

import (
	"encoding/json"
)

// ConfigKind identifies the shape of a question's configuration.
type ConfigKind int

const (
	KindNone ConfigKind = iota
	KindOptions
	KindScale
	KindMatrix
	KindVitalSigns
	KindScoringScale
)

func (k ConfigKind) String() string {
	switch k {
	case KindOptions:
		return "options"
	case KindScale:
		return "scaleConfig"
	case KindMatrix:
		return "matrixConfig"
	case KindVitalSigns:
		return "vitalSignsConfig"
	case KindScoringScale:
		return "scoringScaleConfig"
	default:
		return "none"
	}
}

// QuestionConfig is the sum of the per-type configuration shapes:
// OptionList, *ScaleConfig, *MatrixConfig, *VitalSignsConfig and
// *ScoringScaleConfig. A nil QuestionConfig means the type takes none.
type QuestionConfig interface {
	Kind() ConfigKind
}

type OptionList []Option

func (OptionList) Kind() ConfigKind { return KindOptions }

type ScaleLabels struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type ScaleConfig struct {
	Min    float64     `json:"min"`
	Max    float64     `json:"max"`
	Step   float64     `json:"step"`
	Labels ScaleLabels `json:"labels"`
}

func (*ScaleConfig) Kind() ConfigKind { return KindScale }

type MatrixConfig struct {
	Rows          []string `json:"rows"`
	Columns       []string `json:"columns"`
	AllowMultiple bool     `json:"allowMultiple"`
}

func (*MatrixConfig) Kind() ConfigKind { return KindMatrix }

type VitalField struct {
	Type     string   `json:"type"`
	Unit     string   `json:"unit"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Required bool     `json:"required"`
}

type VitalSignsConfig struct {
	Fields []VitalField `json:"fields"`
}

func (*VitalSignsConfig) Kind() ConfigKind { return KindVitalSigns }

type ScoringOption struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type ScoringItem struct {
	Text    string          `json:"text"`
	Options []ScoringOption `json:"options"`
}

// ScoreRange maps an inclusive total-score band to a severity label.
type ScoreRange struct {
	Min             int      `json:"min"`
	Max             int      `json:"max"`
	Label           string   `json:"label"`
	Recommendations []string `json:"recommendations"`
}

type ScoringRules struct {
	Ranges []ScoreRange `json:"ranges"`
}

type ScoringScaleConfig struct {
	Type         string        `json:"type"`
	Questions    []ScoringItem `json:"questions"`
	ScoringRules ScoringRules  `json:"scoringRules"`
}

func (*ScoringScaleConfig) Kind() ConfigKind { return KindScoringScale }

// questionAlias drops Question's methods so the wire structs below can
// embed it without recursing into MarshalJSON.
type questionAlias Question

type questionWire struct {
	questionAlias
	Options            *OptionList         `json:"options,omitempty"`
	ScaleConfig        *ScaleConfig        `json:"scaleConfig,omitempty"`
	MatrixConfig       *MatrixConfig       `json:"matrixConfig,omitempty"`
	VitalSignsConfig   *VitalSignsConfig   `json:"vitalSignsConfig,omitempty"`
	ScoringScaleConfig *ScoringScaleConfig `json:"scoringScaleConfig,omitempty"`
}

// MarshalJSON writes the configuration into the single wire field that
// matches its kind.
func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{questionAlias: questionAlias(q)}
	switch c := q.Config.(type) {
	case OptionList:
		// An empty list is still written so it reads back as options.
		if c == nil {
			c = OptionList{}
		}
		w.Options = &c
	case *ScaleConfig:
		w.ScaleConfig = c
	case *MatrixConfig:
		w.MatrixConfig = c
	case *VitalSignsConfig:
		w.VitalSignsConfig = c
	case *ScoringScaleConfig:
		w.ScoringScaleConfig = c
	}
	return json.Marshal(w)
}

// UnmarshalJSON picks the wire field matching the question type. When the
// type expects nothing (or its field is absent) the first populated field
// is kept so that Validate can report the mismatch.
func (q *Question) UnmarshalJSON(b []byte) error {
	var w questionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*q = Question(w.questionAlias)

	present := map[ConfigKind]QuestionConfig{}
	if w.Options != nil {
		list := *w.Options
		if list == nil {
			list = OptionList{}
		}
		present[KindOptions] = list
	}
	if w.ScaleConfig != nil {
		present[KindScale] = w.ScaleConfig
	}
	if w.MatrixConfig != nil {
		present[KindMatrix] = w.MatrixConfig
	}
	if w.VitalSignsConfig != nil {
		present[KindVitalSigns] = w.VitalSignsConfig
	}
	if w.ScoringScaleConfig != nil {
		present[KindScoringScale] = w.ScoringScaleConfig
	}

	q.Config = nil
	if c, ok := present[q.Type.ConfigKind()]; ok {
		q.Config = c
		return nil
	}
	for _, k := range []ConfigKind{KindOptions, KindScale, KindMatrix, KindVitalSigns, KindScoringScale} {
		if c, ok := present[k]; ok {
			q.Config = c
			break
		}
	}
	return nil
}
