package patient

import (
	"time"
)

type Gender string

const (
	GenderMale        Gender = "Male"
	GenderFemale      Gender = "Female"
	GenderOther       Gender = "Other"
	GenderUndisclosed Gender = "Prefer not to say"
)

// Patient is a person seen at wellness visits. Patients are deactivated,
// never deleted, so that past visits keep a valid reference.
type Patient struct {
	ID                string     `json:"id,omitempty"`
	Name              string     `json:"name" validate:"required,max=200"`
	DateOfBirth       string     `json:"dateOfBirth" validate:"required"`
	Gender            Gender     `json:"gender" validate:"required,oneof=Male Female Other 'Prefer not to say'"`
	Email             string     `json:"email" validate:"omitempty,email"`
	Phone             string     `json:"phone" validate:"max=40"`
	Address           string     `json:"address" validate:"max=500"`
	MRN               string     `json:"mrn" validate:"required,max=64"`
	InsuranceProvider string     `json:"insuranceProvider"`
	InsuranceNumber   string     `json:"insuranceNumber"`
	Allergies         []string   `json:"allergies"`
	Medications       []string   `json:"medications"`
	Notes             string     `json:"notes"`
	IsActive          bool       `json:"isActive"`
	UserID            string     `json:"userId"`
	LastVisitDate     string     `json:"lastVisitDate"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// SearchParams narrows a patient listing. Empty fields do not filter.
type SearchParams struct {
	UserID          string
	Query           string
	MRN             string
	IncludeInactive bool
}
