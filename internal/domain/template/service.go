package template

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/awv/awv/internal/platform/events"
)

type Service struct {
	repo     Repository
	autosave *AutoSaver
	events   events.Publisher
	logger   zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	s := &Service{repo: repo, logger: logger}
	s.autosave = NewAutoSaver(DefaultAutoSaveDelay, s.SaveDraft, logger)
	return s
}

// SetAutoSaveDelay replaces the auto-saver, abandoning pending drafts.
func (s *Service) SetAutoSaveDelay(d time.Duration) {
	s.autosave.Stop()
	s.autosave = NewAutoSaver(d, s.SaveDraft, s.logger)
}

// SetPublisher announces saved templates to p so that open editors can
// refresh.
func (s *Service) SetPublisher(p events.Publisher) {
	s.events = p
}

func (s *Service) notifySaved(ctx context.Context, t *Template, draft bool) {
	if s.events == nil {
		return
	}
	ev := events.NewEvent(events.TypeTemplateSaved, "template", t.ID, map[string]interface{}{
		"name":          t.Name,
		"draft":         draft,
		"sectionCount":  t.SectionCount,
		"questionCount": t.QuestionCount,
	})
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("template_id", t.ID).Msg("failed to publish template event")
	}
}

// Close abandons pending auto-saves.
func (s *Service) Close() {
	s.autosave.Stop()
}

// CreateTemplate validates and stores a complete template.
func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, t)
}

// CreateDraft stores a template that only needs a name. Structure can be
// filled in later through the editing operations.
func (s *Service) CreateDraft(ctx context.Context, t *Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("name", "template name is required")
	}
	if t.Sections == nil {
		t.Sections = []Section{}
	}
	t.Normalize()
	return s.repo.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateTemplate is the explicit save: the tree must validate. The stored
// owner is kept whatever t carries.
func (s *Service) UpdateTemplate(ctx context.Context, t *Template) error {
	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	s.autosave.Cancel(t.ID)
	t.UserID = existing.UserID
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.notifySaved(ctx, t, false)
	return nil
}

// SaveDraft stores t without structural validation. It is the auto-save
// target and the persistence step of every editing operation.
func (s *Service) SaveDraft(ctx context.Context, t *Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("name", "template name is required")
	}
	t.Normalize()
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.notifySaved(ctx, t, true)
	return nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	s.autosave.Cancel(id)
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, userID string, limit, offset int) ([]*Template, int, error) {
	return s.repo.ListByOwner(ctx, userID, limit, offset)
}

// DuplicateTemplate copies a template under a new name with fresh ids,
// owned by userID.
func (s *Service) DuplicateTemplate(ctx context.Context, id, userID string) (*Template, error) {
	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dup, err := Clone(src)
	if err != nil {
		return nil, err
	}
	dup.Name = src.Name + " (Copy)"
	if userID != "" {
		dup.UserID = userID
	}
	dup.Normalize()
	if err := s.repo.Create(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// ScheduleAutoSave queues t for a debounced draft save and reports whether
// it was queued.
func (s *Service) ScheduleAutoSave(t *Template) bool {
	return s.autosave.Schedule(t)
}

// Edit loads a template, applies fn and stores the result as a draft. A
// pending auto-save is dropped since the edit supersedes it.
func (s *Service) Edit(ctx context.Context, id string, fn func(t *Template) error) (*Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	s.autosave.Cancel(id)
	if err := s.SaveDraft(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddSection appends a section and returns the template with the new
// section's index.
func (s *Service) AddSection(ctx context.Context, id string) (*Template, int, error) {
	var idx int
	t, err := s.Edit(ctx, id, func(t *Template) error {
		idx = t.AddSection()
		return nil
	})
	return t, idx, err
}

func (s *Service) RemoveSection(ctx context.Context, id string, index int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error { return t.RemoveSection(index) })
}

func (s *Service) MoveSection(ctx context.Context, id string, from, to int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error { return t.MoveSection(from, to) })
}

func (s *Service) AddQuestion(ctx context.Context, id string, sectionIndex int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error {
		_, err := t.AddQuestion(sectionIndex)
		return err
	})
}

func (s *Service) RemoveQuestion(ctx context.Context, id string, sectionIndex, questionIndex int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error { return t.RemoveQuestion(sectionIndex, questionIndex) })
}

func (s *Service) MoveQuestion(ctx context.Context, id string, sectionIndex, from, to int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error { return t.MoveQuestion(sectionIndex, from, to) })
}

func (s *Service) ChangeQuestionType(ctx context.Context, id string, sectionIndex, questionIndex int, newType QuestionType) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error {
		return t.ChangeQuestionType(sectionIndex, questionIndex, newType)
	})
}

func (s *Service) AddOption(ctx context.Context, id string, sectionIndex, questionIndex int, text string) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error {
		_, err := t.AddOption(sectionIndex, questionIndex, text)
		return err
	})
}

func (s *Service) RemoveOption(ctx context.Context, id string, sectionIndex, questionIndex, optionIndex int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error {
		return t.RemoveOption(sectionIndex, questionIndex, optionIndex)
	})
}

func (s *Service) MoveOption(ctx context.Context, id string, sectionIndex, questionIndex, from, to int) (*Template, error) {
	return s.Edit(ctx, id, func(t *Template) error {
		return t.MoveOption(sectionIndex, questionIndex, from, to)
	})
}

// EvaluateVisibility runs the template's skip logic against responses.
func (s *Service) EvaluateVisibility(ctx context.Context, id string, responses Responses) (Visibility, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Visibility{}, err
	}
	return Evaluate(t, responses), nil
}
