package visit

import (
	"time"

	"github.com/awv/awv/internal/domain/template"
)

// Recommendation is a follow-up item recorded on a visit. Linked items were
// derived from the template; unlinked ones were added by the provider.
type Recommendation struct {
	Text       string            `json:"text" validate:"required"`
	Source     string            `json:"source"`
	Category   template.Category `json:"category"`
	QuestionID string            `json:"questionId,omitempty"`
	Linked     bool              `json:"linked"`
}

// SourceManual marks recommendations typed in by the provider.
const SourceManual = "manual"

// Visit is one wellness visit. Date is an RFC 3339 UTC timestamp. Sections
// is a copy of the template tree taken at scheduling time; completion
// evaluates against it so later template edits do not change the outcome.
type Visit struct {
	ID              string             `json:"id,omitempty"`
	PatientID       string             `json:"patientId" validate:"required"`
	PatientName     string             `json:"patientName"`
	TemplateID      string             `json:"templateId" validate:"required"`
	TemplateName    string             `json:"templateName"`
	Date            string             `json:"date" validate:"required"`
	Status          Status             `json:"status"`
	Provider        string             `json:"provider" validate:"max=200"`
	Notes           string             `json:"notes"`
	Duration        int                `json:"duration" validate:"min=0"`
	Responses       template.Responses `json:"responses"`
	Recommendations []Recommendation   `json:"recommendations" validate:"dive"`
	Sections        []template.Section `json:"sections,omitempty"`
	UserID          string             `json:"userId"`
	CreatedAt       *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time         `json:"updatedAt,omitempty"`
}

// ListFilter narrows a visit listing. Empty fields do not filter.
type ListFilter struct {
	UserID    string
	PatientID string
	Status    Status
}
