package report

import (
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/workflow"
)

// Kind discriminates the two submissions students file during an internship.
type Kind string

const (
	KindWeekly     Kind = "weekly"
	KindCompletion Kind = "completion"
)

var (
	errKind        = errors.New("kind must be one of: weekly, completion")
	errWeek        = errors.New("week number is required for weekly reports")
	errCertificate = errors.New("certificate document is required for completion reports")
)

// Report is a student's weekly progress report or completion certificate.
type Report struct {
	workflow.Submission

	Kind        Kind   `json:"kind"`
	Week        int    `json:"week,omitempty"` // 1-based, weekly reports only
	Summary     string `json:"summary,omitempty"`
	DocumentRef string `json:"document_ref,omitempty"`
}

// NewReport contains information needed to file a new Report.
type NewReport struct {
	Kind        Kind   `json:"kind" validate:"required"`
	Week        int    `json:"week"`
	Summary     string `json:"summary"`
	DocumentRef string `json:"document_ref"`
}

func (nr *NewReport) Validate() error {
	nr.Summary = core.CleanString(nr.Summary)
	nr.DocumentRef = core.CleanString(nr.DocumentRef)

	if err := core.Validate.Struct(nr); err != nil {
		return err
	}
	switch nr.Kind {
	case KindWeekly:
		if nr.Week < 1 {
			return core.NewValidationError(errWeek, core.FieldError{Field: "week", Error: errWeek.Error()})
		}
	case KindCompletion:
		if nr.DocumentRef == "" {
			return core.NewValidationError(errCertificate, core.FieldError{Field: "document_ref", Error: errCertificate.Error()})
		}
	default:
		return core.NewValidationError(errKind, core.FieldError{Field: "kind", Error: errKind.Error()})
	}
	return nil
}

type QueryFilter struct {
	SubmitterID string          `query:"-"` // set by the API layer, never bound
	Kind        Kind            `query:"kind"`
	Status      workflow.Status `query:"status"`
	Week        int             `query:"week"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SubmitterID == "" && qf.Kind == "" && qf.Status == "" && qf.Week == 0
}
