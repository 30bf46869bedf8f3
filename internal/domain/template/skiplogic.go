package template

import (
	"strings"

	"github.com/spf13/cast"
)

// Responses maps question ids to collected answers. Answers are whatever
// the client sent: strings, numbers, booleans, lists for multi-value
// questions, or objects for matrix and vitals questions.
type Responses map[string]interface{}

// Visibility is the outcome of evaluating every skip logic rule of a
// template against a set of responses.
type Visibility struct {
	Questions map[string]bool `json:"questions"`
	Sections  map[string]bool `json:"sections"`
}

// QuestionVisible reports whether a question is shown. Unknown ids are
// visible.
func (v Visibility) QuestionVisible(id string) bool {
	visible, ok := v.Questions[id]
	return !ok || visible
}

func (v Visibility) SectionVisible(id string) bool {
	visible, ok := v.Sections[id]
	return !ok || visible
}

// Evaluate computes visibility from scratch. Everything starts visible;
// rules run in section-then-question order and, within a question, in list
// order, so the last rule that fires for a target decides it. A section
// target applies to the section and every question in it.
func Evaluate(t *Template, responses Responses) Visibility {
	vis := Visibility{
		Questions: make(map[string]bool),
		Sections:  make(map[string]bool),
	}
	known := make(map[string]bool)
	sectionQuestions := make(map[string][]string)
	for _, sec := range t.Sections {
		vis.Sections[sec.ID] = true
		for _, q := range sec.Questions {
			vis.Questions[q.ID] = true
			known[q.ID] = true
			sectionQuestions[sec.ID] = append(sectionQuestions[sec.ID], q.ID)
		}
	}

	for _, sec := range t.Sections {
		for _, q := range sec.Questions {
			for _, rule := range q.SkipLogicRules {
				if !known[rule.Condition.QuestionID] {
					continue
				}
				answer, answered := responses[rule.Condition.QuestionID]
				if !ConditionHolds(rule.Condition, answer, answered) {
					continue
				}
				show := rule.Action == ActionShow
				switch rule.TargetType {
				case TargetSection:
					if _, exists := vis.Sections[rule.TargetID]; !exists {
						continue
					}
					vis.Sections[rule.TargetID] = show
					for _, id := range sectionQuestions[rule.TargetID] {
						vis.Questions[id] = show
					}
				default:
					target := rule.TargetID
					if target == "" {
						target = q.ID
					}
					if !known[target] {
						continue
					}
					vis.Questions[target] = show
				}
			}
		}
	}
	return vis
}

// ConditionHolds evaluates one condition against the source answer.
// present is false when the source question has no response at all.
func ConditionHolds(c Condition, answer interface{}, present bool) bool {
	answered := present && IsAnswered(answer)

	switch c.Operator {
	case OpIsAnswered:
		return answered
	case OpIsNotAnswered:
		return !answered
	case OpEquals:
		return answered && stringify(answer) == stringify(c.Value)
	case OpNotEquals:
		if !answered {
			return stringify(c.Value) != ""
		}
		return stringify(answer) != stringify(c.Value)
	case OpContains:
		if !answered {
			return false
		}
		want := stringify(c.Value)
		if list, ok := answer.([]interface{}); ok {
			for _, item := range list {
				if stringify(item) == want {
					return true
				}
			}
			return false
		}
		if list, ok := answer.([]string); ok {
			for _, item := range list {
				if item == want {
					return true
				}
			}
			return false
		}
		return strings.Contains(stringify(answer), want)
	case OpGreaterThan, OpLessThan:
		if !answered {
			return false
		}
		a, ok := toNumber(answer)
		if !ok {
			return false
		}
		b, ok := toNumber(c.Value)
		if !ok {
			return false
		}
		if c.Operator == OpGreaterThan {
			return a > b
		}
		return a < b
	default:
		return false
	}
}

// IsAnswered reports whether v holds any value: nil, blank strings, empty
// lists and empty objects count as unanswered.
func IsAnswered(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
		v = strings.TrimSpace(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}
