package template

import (
	"github.com/spf13/cast"
)

// Sources of a derived recommendation.
const (
	SourceOption  = "option"
	SourceDefault = "default"
	SourceScoring = "scoring"
)

// Suggestion is a recommendation derived from a visit's responses.
type Suggestion struct {
	Text       string   `json:"text"`
	Category   Category `json:"category"`
	Source     string   `json:"source"`
	QuestionID string   `json:"questionId"`
}

// Score totals a scoring scale answer: a single number, a list of item
// values, or an object of item values. Non-numeric parts count as zero.
func Score(answer interface{}) int {
	switch t := answer.(type) {
	case []interface{}:
		total := 0
		for _, v := range t {
			total += cast.ToInt(v)
		}
		return total
	case map[string]interface{}:
		total := 0
		for _, v := range t {
			total += cast.ToInt(v)
		}
		return total
	default:
		f, ok := toNumber(answer)
		if !ok {
			return 0
		}
		return int(f)
	}
}

// Band returns the range containing score, or nil.
func (c *ScoringScaleConfig) Band(score int) *ScoreRange {
	for i := range c.ScoringRules.Ranges {
		r := &c.ScoringRules.Ranges[i]
		if score >= r.Min && score <= r.Max {
			return r
		}
	}
	return nil
}

// Suggest derives recommendations for every visible, answered question:
// those attached to selected options, the question's defaults, and the
// band of a scoring scale total. Duplicate texts are reported once.
func Suggest(t *Template, responses Responses, vis Visibility) []Suggestion {
	var out []Suggestion
	seen := map[string]bool{}
	add := func(s Suggestion) {
		if s.Text == "" || seen[s.Text] {
			return
		}
		if s.Category == "" {
			s.Category = CategoryOther
		}
		seen[s.Text] = true
		out = append(out, s)
	}

	for _, sec := range t.Sections {
		if !vis.SectionVisible(sec.ID) {
			continue
		}
		for _, q := range sec.Questions {
			if !vis.QuestionVisible(q.ID) {
				continue
			}
			answer, ok := responses[q.ID]
			if !ok || !IsAnswered(answer) {
				continue
			}

			if opts, ok := q.Config.(OptionList); ok {
				selected := selectedValues(answer)
				for _, opt := range opts {
					if !selected[opt.Value] && !selected[opt.Text] && !selected[opt.ID] {
						continue
					}
					for _, r := range opt.Recommendations {
						add(Suggestion{Text: r.Text, Category: r.Category, Source: SourceOption, QuestionID: q.ID})
					}
				}
			}

			if sc, ok := q.Config.(*ScoringScaleConfig); ok {
				if band := sc.Band(Score(answer)); band != nil {
					for _, text := range band.Recommendations {
						add(Suggestion{Text: text, Category: CategoryFollowUp, Source: SourceScoring, QuestionID: q.ID})
					}
				}
			}

			for _, r := range q.DefaultRecommendations {
				add(Suggestion{Text: r.Text, Category: r.Category, Source: SourceDefault, QuestionID: q.ID})
			}
		}
	}
	return out
}

func selectedValues(answer interface{}) map[string]bool {
	out := map[string]bool{}
	switch t := answer.(type) {
	case []interface{}:
		for _, v := range t {
			out[stringify(v)] = true
		}
	case []string:
		for _, v := range t {
			out[v] = true
		}
	case map[string]interface{}:
		// checkbox answers may arrive as {"value": true}
		for k, v := range t {
			if cast.ToBool(v) {
				out[k] = true
			}
		}
	default:
		out[stringify(answer)] = true
	}
	return out
}
