package template

import (
	"fmt"
	"strings"
)

// ValidationError locates the first field that blocks a save.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks that t is complete enough to save and returns a
// *ValidationError for the first offending location, or nil.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("name", "template name is required")
	}
	if len(t.Sections) == 0 {
		return invalid("sections", "template must have at least one section")
	}

	position := map[string]int{}
	pos := 0
	for _, sec := range t.Sections {
		for _, q := range sec.Questions {
			if q.ID != "" {
				position[q.ID] = pos
			}
			pos++
		}
	}

	var verr *ValidationError
	_ = Walk(t, func(n Node) error {
		switch n.Kind {
		case NodeSection:
			verr = validateSection(n)
		case NodeQuestion:
			verr = validateQuestion(n)
		case NodeOption:
			if strings.TrimSpace(n.Option.Text) == "" {
				verr = invalid(n.Path+".text", "option text is required")
			}
		case NodeRecommendation:
			verr = validateRecommendation(n)
		case NodeRule:
			verr = validateRule(n, position)
		}
		if verr != nil {
			return verr
		}
		return nil
	})
	if verr != nil {
		return verr
	}
	return nil
}

func validateSection(n Node) *ValidationError {
	if strings.TrimSpace(n.Section.Title) == "" {
		return invalid(n.Path+".title", "section title is required")
	}
	if len(n.Section.Questions) == 0 {
		return invalid(n.Path+".questions", "section must have at least one question")
	}
	return nil
}

func validateQuestion(n Node) *ValidationError {
	q := n.Question
	if strings.TrimSpace(q.Text) == "" {
		return invalid(n.Path+".text", "question text is required")
	}
	if !q.Type.Valid() {
		return invalid(n.Path+".type", "unknown question type %q", q.Type)
	}
	want := q.Type.ConfigKind()
	got := KindNone
	if q.Config != nil {
		got = q.Config.Kind()
	}
	if got != want {
		return invalid(n.Path+"."+got.String(), "%s questions take %s, not %s", q.Type, want, got)
	}
	if want == KindOptions && len(q.Options()) == 0 {
		return invalid(n.Path+".options", "question must have at least one option")
	}
	if sc, ok := q.Config.(*ScaleConfig); ok {
		if sc.Max <= sc.Min {
			return invalid(n.Path+".scaleConfig.max", "scale max must be greater than min")
		}
		if sc.Step <= 0 {
			return invalid(n.Path+".scaleConfig.step", "scale step must be positive")
		}
	}
	return nil
}

func validateRecommendation(n Node) *ValidationError {
	r := n.Recommendation
	if strings.TrimSpace(r.Text) == "" {
		return invalid(n.Path+".text", "recommendation text is required")
	}
	if r.Category != "" && !r.Category.Valid() {
		return invalid(n.Path+".category", "unknown recommendation category %q", r.Category)
	}
	return nil
}

// validateRule rejects malformed rules and rules whose source question does
// not come before the owning question. A source that no longer exists is
// accepted; it simply never fires.
func validateRule(n Node, position map[string]int) *ValidationError {
	r := n.Rule
	if !validOperators[r.Condition.Operator] {
		return invalid(n.Path+".condition.operator", "unknown operator %q", r.Condition.Operator)
	}
	if r.Action != ActionShow && r.Action != ActionHide {
		return invalid(n.Path+".action", "action must be SHOW or HIDE")
	}
	if r.TargetType != TargetQuestion && r.TargetType != TargetSection {
		return invalid(n.Path+".targetType", "target type must be QUESTION or SECTION")
	}
	if r.TargetType == TargetSection && r.TargetID == "" {
		return invalid(n.Path+".targetId", "section target requires an id")
	}
	if r.Condition.QuestionID == "" {
		return invalid(n.Path+".condition.questionId", "source question is required")
	}
	src, ok := position[r.Condition.QuestionID]
	if !ok {
		return nil
	}
	if src >= position[n.Question.ID] {
		return invalid(n.Path+".condition.questionId", "source question must come before the question owning the rule")
	}
	return nil
}
