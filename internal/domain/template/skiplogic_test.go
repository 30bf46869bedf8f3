package template

import (
	"testing"
)

func TestEvaluate_HideOnAnswer(t *testing.T) {
	tmpl := sampleTemplate()

	vis := Evaluate(tmpl, Responses{"q1": "no"})
	if vis.QuestionVisible("q2") {
		t.Error("expected q2 hidden when q1 is no")
	}

	vis = Evaluate(tmpl, Responses{"q1": "yes"})
	if !vis.QuestionVisible("q2") {
		t.Error("expected q2 visible when q1 is yes")
	}

	vis = Evaluate(tmpl, Responses{})
	if !vis.QuestionVisible("q2") {
		t.Error("expected q2 visible with no responses")
	}
	if !vis.QuestionVisible("q1") || !vis.SectionVisible("s1") {
		t.Error("expected untargeted entities to stay visible")
	}
}

func TestEvaluate_IsNotAnswered(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.Sections[0].Questions[1].SkipLogicRules[0].Condition = Condition{QuestionID: "q1", Operator: OpIsNotAnswered}

	if Evaluate(tmpl, Responses{}).QuestionVisible("q2") {
		t.Error("expected q2 hidden while q1 is unanswered")
	}
	if Evaluate(tmpl, Responses{"q1": "   "}).QuestionVisible("q2") {
		t.Error("expected blank answer to count as unanswered")
	}
	if !Evaluate(tmpl, Responses{"q1": "yes"}).QuestionVisible("q2") {
		t.Error("expected q2 visible once q1 is answered")
	}
}

func TestEvaluate_SectionTarget(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.Sections[0].Questions[1].SkipLogicRules = append(tmpl.Sections[0].Questions[1].SkipLogicRules, SkipLogicRule{
		ID:         "r2",
		Condition:  Condition{QuestionID: "q1", Operator: OpEquals, Value: "yes"},
		Action:     ActionHide,
		TargetType: TargetSection,
		TargetID:   "s2",
	})

	vis := Evaluate(tmpl, Responses{"q1": "yes"})
	if vis.SectionVisible("s2") {
		t.Error("expected s2 hidden")
	}
	if vis.QuestionVisible("q3") {
		t.Error("expected questions of a hidden section to be hidden")
	}
	if !vis.QuestionVisible("q2") {
		t.Error("expected q2 to stay visible")
	}
}

func TestEvaluate_LastFiredRuleWins(t *testing.T) {
	tmpl := sampleTemplate()
	q2 := &tmpl.Sections[0].Questions[1]
	q2.SkipLogicRules = append(q2.SkipLogicRules, SkipLogicRule{
		ID:         "r2",
		Condition:  Condition{QuestionID: "q1", Operator: OpIsAnswered},
		Action:     ActionShow,
		TargetType: TargetQuestion,
	})

	if !Evaluate(tmpl, Responses{"q1": "no"}).QuestionVisible("q2") {
		t.Error("expected later SHOW rule to override earlier HIDE")
	}
}

func TestEvaluate_DeletedSourceNeverFires(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.Sections[0].Questions[1].SkipLogicRules[0].Condition = Condition{QuestionID: "removed", Operator: OpIsNotAnswered}

	if !Evaluate(tmpl, Responses{}).QuestionVisible("q2") {
		t.Error("expected rule with deleted source to be ignored")
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	tmpl := sampleTemplate()
	first := Evaluate(tmpl, Responses{"q1": "no"})
	second := Evaluate(tmpl, Responses{"q1": "no"})
	for id, v := range first.Questions {
		if second.Questions[id] != v {
			t.Errorf("expected same visibility for %s across runs", id)
		}
	}
}

func TestConditionHolds(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		answer  interface{}
		present bool
		want    bool
	}{
		{"equals string", Condition{Operator: OpEquals, Value: "yes"}, "yes", true, true},
		{"equals number and string", Condition{Operator: OpEquals, Value: "3"}, float64(3), true, true},
		{"equals unanswered", Condition{Operator: OpEquals, Value: ""}, nil, false, false},
		{"not equals answered", Condition{Operator: OpNotEquals, Value: "yes"}, "no", true, true},
		{"not equals unanswered", Condition{Operator: OpNotEquals, Value: "yes"}, nil, false, true},
		{"not equals unanswered empty value", Condition{Operator: OpNotEquals, Value: ""}, nil, false, false},
		{"contains list member", Condition{Operator: OpContains, Value: "b"}, []interface{}{"a", "b"}, true, true},
		{"contains list miss", Condition{Operator: OpContains, Value: "c"}, []interface{}{"a", "b"}, true, false},
		{"contains substring", Condition{Operator: OpContains, Value: "pain"}, "chest pain", true, true},
		{"greater than", Condition{Operator: OpGreaterThan, Value: 5}, "7", true, true},
		{"greater than equal", Condition{Operator: OpGreaterThan, Value: 7}, float64(7), true, false},
		{"less than", Condition{Operator: OpLessThan, Value: "10"}, float64(2.5), true, true},
		{"less than not numeric", Condition{Operator: OpLessThan, Value: 10}, "lots", true, false},
		{"is answered empty list", Condition{Operator: OpIsAnswered}, []interface{}{}, true, false},
		{"is answered bool", Condition{Operator: OpIsAnswered}, false, true, true},
		{"unknown operator", Condition{Operator: "MATCHES"}, "x", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConditionHolds(tt.cond, tt.answer, tt.present); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
