package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/pkg/dates"
	"github.com/awv/awv/pkg/validation"
)

// ErrDuplicateMRN is returned when another patient already has the MRN.
var ErrDuplicateMRN = fmt.Errorf("mrn already in use: %w", docstore.ErrConflict)

// ErrInactive is returned when a visit is scheduled for a deactivated patient.
var ErrInactive = errors.New("patient is inactive")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// prepare trims and normalizes p in place and validates the result.
func prepare(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.MRN = strings.TrimSpace(p.MRN)
	p.Email = strings.TrimSpace(p.Email)

	dob, err := dates.Normalize(p.DateOfBirth)
	if err != nil {
		return validation.Field("dateOfBirth", err.Error())
	}
	p.DateOfBirth = dob
	if p.LastVisitDate != "" {
		last, err := dates.Normalize(p.LastVisitDate)
		if err != nil {
			return validation.Field("lastVisitDate", err.Error())
		}
		p.LastVisitDate = last
	}

	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.Medications == nil {
		p.Medications = []string{}
	}
	return validation.Struct(p)
}

func (s *Service) checkMRN(ctx context.Context, mrn, selfID string) error {
	existing, err := s.repo.GetByMRN(ctx, mrn)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return ErrDuplicateMRN
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := prepare(p); err != nil {
		return err
	}
	if err := s.checkMRN(ctx, p.MRN, ""); err != nil {
		return err
	}
	p.IsActive = true
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdatePatient replaces the editable fields of an existing patient. The
// owner and active flag are kept from the stored record.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := prepare(p); err != nil {
		return err
	}
	if p.MRN != existing.MRN {
		if err := s.checkMRN(ctx, p.MRN, p.ID); err != nil {
			return err
		}
	}
	p.UserID = existing.UserID
	p.IsActive = existing.IsActive
	if p.LastVisitDate == "" {
		p.LastVisitDate = existing.LastVisitDate
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, userID string, includeInactive bool, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, SearchParams{UserID: userID, IncludeInactive: includeInactive}, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// DeactivatePatient is the only way to retire a patient record.
func (s *Service) DeactivatePatient(ctx context.Context, id string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return p, nil
	}
	p.IsActive = false
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// TouchLastVisit moves the patient's lastVisitDate forward to date. Older
// dates are ignored so that completing a backdated visit never rewinds it.
func (s *Service) TouchLastVisit(ctx context.Context, id, date string) error {
	day, err := dates.Normalize(date)
	if err != nil {
		return validation.Field("date", err.Error())
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if day == "" || day <= p.LastVisitDate {
		return nil
	}
	p.LastVisitDate = day
	return s.repo.Update(ctx, p)
}
