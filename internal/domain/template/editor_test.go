package template

import (
	"errors"
	"math/rand"
	"testing"
)

func assertDenseOrders(t *testing.T, tmpl *Template) {
	t.Helper()
	for i, sec := range tmpl.Sections {
		if sec.Order != i {
			t.Errorf("section %d has order %d", i, sec.Order)
		}
		for j, q := range sec.Questions {
			if q.Order != j {
				t.Errorf("question %d of section %d has order %d", j, i, q.Order)
			}
			for k, o := range q.Options() {
				if o.Order != k {
					t.Errorf("option %d of question %s has order %d", k, q.ID, o.Order)
				}
			}
		}
	}
}

func TestReorder(t *testing.T) {
	list := []string{"a", "b", "c", "d"}

	got, err := Reorder(list, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"b", "c", "a", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if list[0] != "a" {
		t.Error("expected input list to be left untouched")
	}

	got, err = Reorder(list, 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []string{"d", "a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if _, err := Reorder(list, 1, 4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestAddSection(t *testing.T) {
	tmpl := &Template{Name: "Blank"}

	if idx := tmpl.AddSection(); idx != 0 {
		t.Errorf("expected first section at 0, got %d", idx)
	}
	if idx := tmpl.AddSection(); idx != 1 {
		t.Errorf("expected second section at 1, got %d", idx)
	}
	if tmpl.Sections[1].Title != "Section 2" {
		t.Errorf("expected title Section 2, got %q", tmpl.Sections[1].Title)
	}
	if !tmpl.Sections[1].IsActive {
		t.Error("expected new section to be active")
	}
	assertDenseOrders(t, tmpl)
}

func TestRemoveAndMoveSection(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.AddSection()

	if err := tmpl.MoveSection(2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Sections[1].ID != "s1" {
		t.Errorf("expected s1 at 1, got %s", tmpl.Sections[1].ID)
	}
	assertDenseOrders(t, tmpl)

	if err := tmpl.RemoveSection(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Sections) != 2 || tmpl.Sections[0].ID != "s1" {
		t.Errorf("expected s1 first after removal, got %+v", tmpl.Sections)
	}
	assertDenseOrders(t, tmpl)

	if err := tmpl.RemoveSection(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestSectionEdits_KeepDenseOrders(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tmpl := sampleTemplate()
	tmpl.Normalize()
	ids := []string{tmpl.Sections[0].ID, tmpl.Sections[1].ID}

	for step := 0; step < 300; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			idx := tmpl.AddSection()
			ids = append(ids, tmpl.Sections[idx].ID)
		case op == 1:
			i := rng.Intn(len(ids))
			if err := tmpl.RemoveSection(i); err != nil {
				t.Fatalf("step %d: remove %d: %v", step, i, err)
			}
			ids = append(ids[:i], ids[i+1:]...)
		default:
			from, to := rng.Intn(len(ids)), rng.Intn(len(ids))
			if err := tmpl.MoveSection(from, to); err != nil {
				t.Fatalf("step %d: move %d -> %d: %v", step, from, to, err)
			}
			ids, _ = Reorder(ids, from, to)
		}

		assertDenseOrders(t, tmpl)
		if len(tmpl.Sections) != len(ids) {
			t.Fatalf("step %d: expected %d sections, got %d", step, len(ids), len(tmpl.Sections))
		}
		for i, id := range ids {
			if tmpl.Sections[i].ID != id {
				t.Fatalf("step %d: expected %s at %d, got %s", step, id, i, tmpl.Sections[i].ID)
			}
		}
		if t.Failed() {
			t.Fatalf("orders not dense after step %d", step)
		}
	}
}

func TestAddQuestion(t *testing.T) {
	tmpl := sampleTemplate()

	q, err := tmpl.AddQuestion(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Type != TypeRadio {
		t.Errorf("expected RADIO, got %s", q.Type)
	}
	if len(q.Options()) != 3 {
		t.Errorf("expected 3 default options, got %d", len(q.Options()))
	}
	if q.Order != 1 {
		t.Errorf("expected order 1, got %d", q.Order)
	}
	if _, err := tmpl.AddQuestion(9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveAndMoveQuestion(t *testing.T) {
	tmpl := sampleTemplate()

	if err := tmpl.MoveQuestion(0, 1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Sections[0].Questions[0].ID != "q2" {
		t.Errorf("expected q2 first, got %s", tmpl.Sections[0].Questions[0].ID)
	}
	assertDenseOrders(t, tmpl)

	if err := tmpl.RemoveQuestion(0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Sections[0].Questions) != 1 || tmpl.Sections[0].Questions[0].ID != "q1" {
		t.Errorf("expected only q1 left, got %+v", tmpl.Sections[0].Questions)
	}
	assertDenseOrders(t, tmpl)
}

func TestChangeQuestionType_ScaleToRadio(t *testing.T) {
	tmpl := sampleTemplate()
	if err := tmpl.ChangeQuestionType(0, 1, TypeScale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, ok := tmpl.Sections[0].Questions[1].Config.(*ScaleConfig)
	if !ok {
		t.Fatalf("expected scale config, got %T", tmpl.Sections[0].Questions[1].Config)
	}
	if sc.Min != 0 || sc.Max != 10 || sc.Step != 1 {
		t.Errorf("unexpected scale defaults: %+v", sc)
	}

	if err := tmpl.ChangeQuestionType(0, 1, TypeRadio); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := tmpl.Sections[0].Questions[1]
	if len(q.Options()) != 2 {
		t.Errorf("expected 2 options, got %d", len(q.Options()))
	}
	if _, ok := q.Config.(*ScaleConfig); ok {
		t.Error("expected scale config to be discarded")
	}
}

func TestChangeQuestionType_Unknown(t *testing.T) {
	tmpl := sampleTemplate()
	err := tmpl.ChangeQuestionType(0, 0, "SLIDER")
	if got := validationField(t, err); got != "type" {
		t.Errorf("expected type error, got %q", got)
	}
}

func TestChangeQuestionType_PlainTypeDropsConfig(t *testing.T) {
	tmpl := sampleTemplate()
	if err := tmpl.ChangeQuestionType(0, 0, TypeText); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Sections[0].Questions[0].Config != nil {
		t.Errorf("expected no config, got %T", tmpl.Sections[0].Questions[0].Config)
	}
}

func TestOptions(t *testing.T) {
	tmpl := sampleTemplate()

	opt, err := tmpl.AddOption(0, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Text != "Option 3" || opt.Value != "option_3" {
		t.Errorf("unexpected placeholder option: %+v", opt)
	}

	if err := tmpl.MoveOption(0, 0, 2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Sections[0].Questions[0].Options()[0].Text != "Option 3" {
		t.Errorf("expected moved option first, got %+v", tmpl.Sections[0].Questions[0].Options())
	}
	assertDenseOrders(t, tmpl)

	if err := tmpl.RemoveOption(0, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(tmpl.Sections[0].Questions[0].Options()); n != 2 {
		t.Errorf("expected 2 options, got %d", n)
	}
	assertDenseOrders(t, tmpl)

	if err := tmpl.RemoveOption(0, 0, 7); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := tmpl.AddOption(0, 1, "x"); validationField(t, err) != "type" {
		t.Error("expected type error adding an option to a NUMBER question")
	}
}
