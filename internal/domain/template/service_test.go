package template

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/internal/platform/events"
	"github.com/awv/awv/pkg/pagination"
)

// -- Mock Template Repository --

type mockTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*Template
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[string]*Template)}
}

func (m *mockTemplateRepo) Create(_ context.Context, t *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = &now
	t.UpdatedAt = &now
	stored, _ := snapshot(t)
	m.templates[t.ID] = stored
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id string) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("get template: %w", docstore.ErrNotFound)
	}
	return snapshot(t)
}

func (m *mockTemplateRepo) Update(_ context.Context, t *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.templates[t.ID]
	if !ok {
		return fmt.Errorf("update template: %w", docstore.ErrNotFound)
	}
	now := time.Now()
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = &now
	stored, _ := snapshot(t)
	m.templates[t.ID] = stored
	return nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return fmt.Errorf("delete template: %w", docstore.ErrNotFound)
	}
	delete(m.templates, id)
	return nil
}

func (m *mockTemplateRepo) ListByOwner(_ context.Context, userID string, limit, offset int) ([]*Template, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Template
	for _, t := range m.templates {
		if userID == "" || t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(*out[j].UpdatedAt) })
	return pagination.Slice(out, limit, offset), len(out), nil
}

// -- Tests --

func newTestService() *Service {
	return NewService(newMockTemplateRepo(), zerolog.Nop())
}

func TestCreateTemplate(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	tmpl := &Template{Name: "Quick check", Sections: []Section{{
		Title: "Only",
		Questions: []Question{{
			Text:   "Feeling well?",
			Type:   TypeRadio,
			Config: OptionList{{Text: "Yes"}, {Text: "No"}},
		}},
	}}}
	if err := svc.CreateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.ID == "" {
		t.Error("expected ID to be set")
	}
	if tmpl.SectionCount != 1 || tmpl.QuestionCount != 1 {
		t.Errorf("expected counts 1/1, got %d/%d", tmpl.SectionCount, tmpl.QuestionCount)
	}

	fetched, err := svc.GetTemplate(context.Background(), tmpl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetched.Sections[0].Questions[0].Options()) != 2 {
		t.Errorf("expected 2 options, got %d", len(fetched.Sections[0].Questions[0].Options()))
	}
}

func TestCreateTemplate_Invalid(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	err := svc.CreateTemplate(context.Background(), &Template{Name: "Empty"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "sections" {
		t.Errorf("expected sections, got %s", verr.Field)
	}
}

func TestCreateDraft(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	draft := &Template{Name: "Work in progress"}
	if err := svc.CreateDraft(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Sections == nil {
		t.Error("expected empty section list")
	}
	if err := svc.CreateDraft(context.Background(), &Template{}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestUpdateTemplate(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	tmpl := sampleTemplate()
	tmpl.UserID = "dr-a"
	if err := svc.CreateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := sampleTemplate()
	update.ID = tmpl.ID
	update.Name = "AWV 2026"
	if err := svc.UpdateTemplate(context.Background(), update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.UserID != "dr-a" {
		t.Errorf("expected owner to be kept, got %q", update.UserID)
	}

	takeover := sampleTemplate()
	takeover.ID = tmpl.ID
	takeover.UserID = "dr-b"
	if err := svc.UpdateTemplate(context.Background(), takeover); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored, _ := svc.GetTemplate(context.Background(), tmpl.ID); stored.UserID != "dr-a" {
		t.Errorf("expected update to leave the owner alone, got %q", stored.UserID)
	}

	missing := sampleTemplate()
	missing.ID = "nope"
	if err := svc.UpdateTemplate(context.Background(), missing); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTemplate(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	tmpl := sampleTemplate()
	svc.CreateTemplate(context.Background(), tmpl)

	if err := svc.DeleteTemplate(context.Background(), tmpl.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetTemplate(context.Background(), tmpl.ID); err == nil {
		t.Error("expected error after deletion")
	}
}

func TestListTemplates(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	for i, owner := range []string{"dr-a", "dr-a", "dr-b"} {
		tmpl := sampleTemplate()
		tmpl.Name = fmt.Sprintf("T%d", i)
		tmpl.UserID = owner
		svc.CreateTemplate(context.Background(), tmpl)
	}

	items, total, err := svc.ListTemplates(context.Background(), "dr-a", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestDuplicateTemplate(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	src := sampleTemplate()
	src.UserID = "dr-a"
	svc.CreateTemplate(context.Background(), src)

	dup, err := svc.DuplicateTemplate(context.Background(), src.ID, "dr-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup.ID == "" || dup.ID == src.ID {
		t.Errorf("expected a new id, got %q", dup.ID)
	}
	if dup.Name != "Annual Wellness Visit (Copy)" {
		t.Errorf("unexpected name %q", dup.Name)
	}
	if dup.UserID != "dr-b" {
		t.Errorf("expected dr-b, got %q", dup.UserID)
	}
	if dup.Sections[0].Questions[1].SkipLogicRules[0].Condition.QuestionID != dup.Sections[0].Questions[0].ID {
		t.Error("expected skip logic to reference the copied question")
	}
}

func TestEditOperations(t *testing.T) {
	svc := newTestService()
	defer svc.Close()
	ctx := context.Background()

	tmpl := sampleTemplate()
	svc.CreateTemplate(ctx, tmpl)

	got, idx, err := svc.AddSection(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 2 || got.SectionCount != 3 {
		t.Errorf("expected new section at 2 of 3, got %d of %d", idx, got.SectionCount)
	}

	got, err = svc.AddQuestion(ctx, tmpl.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.QuestionCount != 4 {
		t.Errorf("expected 4 questions, got %d", got.QuestionCount)
	}

	got, err = svc.ChangeQuestionType(ctx, tmpl.ID, 2, 0, TypeMatrix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.Sections[2].Questions[0].Config.(*MatrixConfig); !ok {
		t.Errorf("expected matrix config, got %T", got.Sections[2].Questions[0].Config)
	}

	got, err = svc.AddOption(ctx, tmpl.ID, 0, 0, "Former smoker")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(got.Sections[0].Questions[0].Options()); n != 3 {
		t.Errorf("expected 3 options, got %d", n)
	}

	got, err = svc.MoveSection(ctx, tmpl.ID, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Sections[1].ID != "s1" {
		t.Errorf("expected s1 second, got %s", got.Sections[1].ID)
	}

	if _, err := svc.RemoveSection(ctx, tmpl.ID, 9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}

	stored, _ := svc.GetTemplate(ctx, tmpl.ID)
	if stored.Sections[0].Questions[0].Type != TypeMatrix {
		t.Errorf("expected edits to be persisted, got %s", stored.Sections[0].Questions[0].Type)
	}
}

func TestEvaluateVisibility(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	tmpl := sampleTemplate()
	svc.CreateTemplate(context.Background(), tmpl)

	vis, err := svc.EvaluateVisibility(context.Background(), tmpl.ID, Responses{"q1": "no"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vis.QuestionVisible("q2") {
		t.Error("expected q2 hidden")
	}
}

func TestScheduleAutoSave(t *testing.T) {
	svc := newTestService()
	defer svc.Close()
	svc.SetAutoSaveDelay(10 * time.Millisecond)

	tmpl := sampleTemplate()
	svc.CreateTemplate(context.Background(), tmpl)

	tmpl.Name = "Autosaved"
	if !svc.ScheduleAutoSave(tmpl) {
		t.Fatal("expected autosave to be queued")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stored, _ := svc.GetTemplate(context.Background(), tmpl.ID)
		if stored.Name == "Autosaved" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected autosave to persist the draft")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func TestSavePublishesEvent(t *testing.T) {
	svc := newTestService()
	defer svc.Close()
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	tmpl := sampleTemplate()
	if err := svc.CreateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no event on create, got %d", len(pub.events))
	}

	if err := svc.UpdateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.AddSection(context.Background(), tmpl.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	for _, ev := range pub.events {
		if ev.Type != events.TypeTemplateSaved || ev.Topic != "template/"+tmpl.ID {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}
