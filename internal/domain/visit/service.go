package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/awv/awv/internal/domain/patient"
	"github.com/awv/awv/internal/domain/template"
	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/internal/platform/events"
	"github.com/awv/awv/pkg/dates"
	"github.com/awv/awv/pkg/validation"
)

// Patients is the part of the patient service visits depend on.
type Patients interface {
	GetPatient(ctx context.Context, id string) (*patient.Patient, error)
	TouchLastVisit(ctx context.Context, id, date string) error
}

// Templates is the part of the template service visits depend on.
type Templates interface {
	GetTemplate(ctx context.Context, id string) (*template.Template, error)
}

type Service struct {
	repo      Repository
	patients  Patients
	templates Templates
	events    events.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, patients Patients, templates Templates, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, templates: templates, logger: logger}
}

// SetPublisher sends visit lifecycle events to p.
func (s *Service) SetPublisher(p events.Publisher) {
	s.events = p
}

// notify publishes typ on the visit's topic and on its patient's topic.
func (s *Service) notify(ctx context.Context, typ string, v *Visit) {
	if s.events == nil {
		return
	}
	data := map[string]string{"visitId": v.ID, "patientId": v.PatientID, "status": string(v.Status)}
	for _, ev := range []events.Event{
		events.NewEvent(typ, "visit", v.ID, data),
		events.NewEvent(typ, "patient", v.PatientID, data),
	} {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("visit_id", v.ID).Str("event", typ).Msg("failed to publish visit event")
		}
	}
}

// ScheduleVisit validates v and stores it with snapshots of the patient
// name and the template's name and sections. A visit starts scheduled or in
// progress.
func (s *Service) ScheduleVisit(ctx context.Context, v *Visit) error {
	if v.Status == "" {
		v.Status = StatusScheduled
	}
	st, err := ParseStatus(string(v.Status))
	if err != nil {
		return validation.Field("status", err.Error())
	}
	if st.Closed() {
		return validation.Field("status", "a new visit must be scheduled or in-progress")
	}
	v.Status = st

	at, err := dates.NormalizeDateTime(v.Date)
	if err != nil {
		return validation.Field("date", err.Error())
	}
	v.Date = at
	v.Provider = strings.TrimSpace(v.Provider)
	if v.Responses == nil {
		v.Responses = template.Responses{}
	}
	if v.Recommendations == nil {
		v.Recommendations = []Recommendation{}
	}
	if err := validation.Struct(v); err != nil {
		return err
	}

	p, err := s.patients.GetPatient(ctx, v.PatientID)
	if err != nil {
		return fmt.Errorf("patient %s: %w", v.PatientID, err)
	}
	if !p.IsActive {
		return fmt.Errorf("patient %s: %w", v.PatientID, patient.ErrInactive)
	}
	t, err := s.templates.GetTemplate(ctx, v.TemplateID)
	if err != nil {
		return fmt.Errorf("template %s: %w", v.TemplateID, err)
	}
	v.PatientName = p.Name
	v.TemplateName = t.Name
	v.Sections = t.Sections
	if err := s.repo.Create(ctx, v); err != nil {
		return err
	}
	s.notify(ctx, events.TypeVisitScheduled, v)
	return nil
}

func (s *Service) GetVisit(ctx context.Context, id string) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteVisit(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, filter ListFilter, limit, offset int) ([]*Visit, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// Transition moves a visit to status. Completing goes through
// CompleteVisit so that recommendations are always derived.
func (s *Service) Transition(ctx context.Context, id string, status string) (*Visit, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, validation.Field("status", err.Error())
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(v.Status, to); err != nil {
		return nil, err
	}
	if to == v.Status {
		return v, nil
	}
	if to == StatusCompleted {
		return s.complete(ctx, v, nil)
	}
	v.Status = to
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info().Str("visit_id", id).Str("status", string(to)).Msg("visit status changed")
	s.notify(ctx, events.TypeVisitStatusChanged, v)
	return v, nil
}

// RecordResponses replaces the visit's responses. Recording on a scheduled
// visit starts it.
func (s *Service) RecordResponses(ctx context.Context, id string, responses template.Responses) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status.Closed() {
		return nil, fmt.Errorf("visit is %s: %w", v.Status, ErrInvalidTransition)
	}
	if responses == nil {
		responses = template.Responses{}
	}
	v.Responses = responses
	started := v.Status == StatusScheduled
	if started {
		v.Status = StatusInProgress
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	if started {
		s.notify(ctx, events.TypeVisitStatusChanged, v)
	}
	return v, nil
}

// CompleteVisit closes the visit, deriving recommendations from its
// responses. manual recommendations are kept alongside the derived ones.
func (s *Service) CompleteVisit(ctx context.Context, id string, manual []Recommendation) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(v.Status, StatusCompleted); err != nil {
		return nil, err
	}
	if v.Status == StatusCompleted {
		return nil, fmt.Errorf("visit already completed: %w", ErrInvalidTransition)
	}
	return s.complete(ctx, v, manual)
}

func (s *Service) complete(ctx context.Context, v *Visit, manual []Recommendation) (*Visit, error) {
	for i := range manual {
		manual[i].Text = strings.TrimSpace(manual[i].Text)
		manual[i].Source = SourceManual
		manual[i].Linked = false
		if manual[i].Category == "" {
			manual[i].Category = template.CategoryOther
		}
		if err := validation.Struct(manual[i]); err != nil {
			return nil, err
		}
	}

	var recs []Recommendation
	seen := map[string]bool{}
	t, err := s.visitTemplate(ctx, v)
	if err != nil {
		return nil, err
	}
	if t != nil {
		vis := template.Evaluate(t, v.Responses)
		for _, sg := range template.Suggest(t, v.Responses, vis) {
			seen[sg.Text] = true
			recs = append(recs, Recommendation{
				Text:       sg.Text,
				Source:     sg.Source,
				Category:   sg.Category,
				QuestionID: sg.QuestionID,
				Linked:     true,
			})
		}
	}

	for _, r := range append(unlinked(v.Recommendations), manual...) {
		if seen[r.Text] {
			continue
		}
		seen[r.Text] = true
		recs = append(recs, r)
	}
	if recs == nil {
		recs = []Recommendation{}
	}

	v.Recommendations = recs
	v.Status = StatusCompleted
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	if err := s.patients.TouchLastVisit(ctx, v.PatientID, visitDay(v.Date)); err != nil {
		s.logger.Error().Err(err).Str("visit_id", v.ID).Str("patient_id", v.PatientID).
			Msg("failed to update patient last visit date")
	}
	s.logger.Info().Str("visit_id", v.ID).Int("recommendations", len(recs)).Msg("visit completed")
	s.notify(ctx, events.TypeVisitCompleted, v)
	return v, nil
}

// visitTemplate returns the tree the visit was scheduled against. Visits
// stored without a snapshot fall back to the live template; nil means it
// has since been deleted.
func (s *Service) visitTemplate(ctx context.Context, v *Visit) (*template.Template, error) {
	if len(v.Sections) > 0 {
		return &template.Template{ID: v.TemplateID, Name: v.TemplateName, Sections: v.Sections}, nil
	}
	t, err := s.templates.GetTemplate(ctx, v.TemplateID)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, docstore.ErrNotFound):
		s.logger.Warn().Str("visit_id", v.ID).Str("template_id", v.TemplateID).
			Msg("template deleted, completing visit without derived recommendations")
		return nil, nil
	default:
		return nil, err
	}
}

// visitDay is the calendar date of a visit timestamp.
func visitDay(at string) string {
	t, err := dates.ParseDateTime(at)
	if err != nil {
		return at
	}
	return dates.FormatISO(t)
}

func unlinked(recs []Recommendation) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if !r.Linked {
			out = append(out, r)
		}
	}
	return out
}
