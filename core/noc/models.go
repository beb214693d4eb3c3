package noc

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/workflow"
)

var errDates = errors.New("end date must be after start date")

// Request is a student's No-Objection Certificate request.
type Request struct {
	workflow.Submission

	Company       string    `json:"company"`
	Role          string    `json:"role"`
	DurationWeeks int       `json:"duration_weeks,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Stipend       int       `json:"stipend,omitempty"` // monthly, in local currency
	DocumentRef   string    `json:"document_ref,omitempty"`
}

// NewRequest contains information needed to create a new Request.
type NewRequest struct {
	Company       string    `json:"company" validate:"required"`
	Role          string    `json:"role" validate:"required"`
	DurationWeeks int       `json:"duration_weeks" validate:"omitempty,min=1"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	Stipend       int       `json:"stipend" validate:"omitempty,min=0"`
	DocumentRef   string    `json:"document_ref"`
}

func (nr *NewRequest) Validate() error {
	nr.Company = core.CleanString(nr.Company)
	nr.Role = core.CleanString(nr.Role)
	nr.DocumentRef = core.CleanString(nr.DocumentRef)

	if err := core.Validate.Struct(nr); err != nil {
		return err
	}
	if nr.EndDate.Before(nr.StartDate) {
		return core.NewValidationError(errDates, core.FieldError{Field: "end_date", Error: errDates.Error()})
	}
	return nil
}

type QueryFilter struct {
	SubmitterID string          `query:"-"` // set by the API layer, never bound
	Status      workflow.Status `query:"status"`
	Search      string          `query:"search"`
	CreatedFrom time.Time       `query:"created_from"`
	CreatedTo   time.Time       `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SubmitterID == "" && qf.Status == "" && qf.Search == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
