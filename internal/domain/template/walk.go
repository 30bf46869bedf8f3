package template

import (
	"encoding/json"
	"fmt"
)

// NodeKind tells a WalkFunc which pointer in Node is set.
type NodeKind int

const (
	NodeSection NodeKind = iota
	NodeQuestion
	NodeOption
	NodeRecommendation
	NodeRule
)

// Node is one entity in a template tree. Exactly the pointer matching Kind
// is non-nil; Section (and Question below the section level) always point
// at the enclosing entities. Path locates the node, e.g.
// "sections[1].questions[0].options[2]".
type Node struct {
	Kind           NodeKind
	Path           string
	Section        *Section
	Question       *Question
	Option         *Option
	Recommendation *Recommendation
	Rule           *SkipLogicRule
}

// WalkFunc is called for every node in depth-first, list order.
// Returning an error stops the walk.
type WalkFunc func(n Node) error

// Walk visits every section, question, option, recommendation and skip
// logic rule of t in section-then-question order. Nodes may be mutated in
// place but not added or removed.
func Walk(t *Template, fn WalkFunc) error {
	for i := range t.Sections {
		sec := &t.Sections[i]
		sp := fmt.Sprintf("sections[%d]", i)
		if err := fn(Node{Kind: NodeSection, Path: sp, Section: sec}); err != nil {
			return err
		}
		for j := range sec.Questions {
			q := &sec.Questions[j]
			qp := fmt.Sprintf("%s.questions[%d]", sp, j)
			if err := fn(Node{Kind: NodeQuestion, Path: qp, Section: sec, Question: q}); err != nil {
				return err
			}
			if opts, ok := q.Config.(OptionList); ok {
				for k := range opts {
					op := fmt.Sprintf("%s.options[%d]", qp, k)
					if err := fn(Node{Kind: NodeOption, Path: op, Section: sec, Question: q, Option: &opts[k]}); err != nil {
						return err
					}
					for r := range opts[k].Recommendations {
						if err := fn(Node{
							Kind: NodeRecommendation, Path: fmt.Sprintf("%s.recommendations[%d]", op, r),
							Section: sec, Question: q, Option: &opts[k], Recommendation: &opts[k].Recommendations[r],
						}); err != nil {
							return err
						}
					}
				}
			}
			for r := range q.DefaultRecommendations {
				if err := fn(Node{
					Kind: NodeRecommendation, Path: fmt.Sprintf("%s.defaultRecommendations[%d]", qp, r),
					Section: sec, Question: q, Recommendation: &q.DefaultRecommendations[r],
				}); err != nil {
					return err
				}
			}
			for r := range q.SkipLogicRules {
				if err := fn(Node{
					Kind: NodeRule, Path: fmt.Sprintf("%s.skipLogicRules[%d]", qp, r),
					Section: sec, Question: q, Rule: &q.SkipLogicRules[r],
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Counts returns the number of sections and questions in t.
func Counts(t *Template) (sections, questions int) {
	_ = Walk(t, func(n Node) error {
		switch n.Kind {
		case NodeSection:
			sections++
		case NodeQuestion:
			questions++
		}
		return nil
	})
	return sections, questions
}

func (n Node) id() *string {
	switch n.Kind {
	case NodeSection:
		return &n.Section.ID
	case NodeQuestion:
		return &n.Question.ID
	case NodeOption:
		return &n.Option.ID
	case NodeRecommendation:
		return &n.Recommendation.ID
	case NodeRule:
		return &n.Rule.ID
	}
	return nil
}

// AssignIDs gives every node lacking an id a fresh one.
func AssignIDs(t *Template) {
	_ = Walk(t, func(n Node) error {
		if p := n.id(); p != nil && *p == "" {
			*p = newID()
		}
		return nil
	})
}

// Clone returns a deep copy of t with new ids on every node, including the
// template itself (cleared so the store assigns one). Skip logic references
// are remapped to the new question and section ids.
func Clone(t *Template) (*Template, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("clone template: %w", err)
	}
	out := &Template{}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("clone template: %w", err)
	}
	out.ID = ""
	out.CreatedAt = nil
	out.UpdatedAt = nil

	remap := map[string]string{}
	_ = Walk(out, func(n Node) error {
		if p := n.id(); p != nil {
			fresh := newID()
			if *p != "" && (n.Kind == NodeSection || n.Kind == NodeQuestion) {
				remap[*p] = fresh
			}
			*p = fresh
		}
		return nil
	})
	_ = Walk(out, func(n Node) error {
		if n.Kind != NodeRule {
			return nil
		}
		if id, ok := remap[n.Rule.Condition.QuestionID]; ok {
			n.Rule.Condition.QuestionID = id
		}
		if id, ok := remap[n.Rule.TargetID]; ok {
			n.Rule.TargetID = id
		}
		return nil
	})
	return out, nil
}

// Normalize brings a tree into its canonical stored form: dense order
// fields, ids on every node, option values derived from text when blank,
// uncategorized recommendations filed under Other, and fresh counts.
func (t *Template) Normalize() {
	t.renumber()
	AssignIDs(t)
	_ = Walk(t, func(n Node) error {
		switch n.Kind {
		case NodeOption:
			if n.Option.Value == "" {
				n.Option.Value = OptionValue(n.Option.Text)
			}
		case NodeRecommendation:
			if n.Recommendation.Category == "" {
				n.Recommendation.Category = CategoryOther
			}
		}
		return nil
	})
	t.SectionCount, t.QuestionCount = Counts(t)
}
