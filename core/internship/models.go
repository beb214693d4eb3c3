package internship

import (
	"time"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/workflow"
)

// Opportunity is an internship opening posted by a T&P officer.
type Opportunity struct {
	ID          string    `json:"id"`
	PostedByID  string    `json:"posted_by_id"`
	Company     string    `json:"company"`
	Role        string    `json:"role"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Stipend     int       `json:"stipend,omitempty"` // monthly, in local currency
	Deadline    time.Time `json:"deadline"`
	IsOpen      bool      `json:"is_open"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// AcceptsApplications reports whether students may still apply.
func (o *Opportunity) AcceptsApplications(now time.Time) bool {
	return o.IsOpen && now.Before(o.Deadline)
}

// NewOpportunity contains information needed to post a new Opportunity.
type NewOpportunity struct {
	Company     string    `json:"company" validate:"required"`
	Role        string    `json:"role" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Stipend     int       `json:"stipend" validate:"omitempty,min=0"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

func (no *NewOpportunity) Validate() error {
	no.Company = core.CleanString(no.Company)
	no.Role = core.CleanString(no.Role)
	no.Description = core.CleanString(no.Description)
	no.Location = core.CleanString(no.Location)
	return core.Validate.Struct(no)
}

// UpdateOpportunity defines what information may be provided to modify an
// existing Opportunity. Zero-valued fields are left unchanged.
type UpdateOpportunity struct {
	Company     string     `json:"company"`
	Role        string     `json:"role"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Stipend     *int       `json:"stipend" validate:"omitempty"`
	Deadline    *time.Time `json:"deadline"`
	IsOpen      *bool      `json:"is_open"`
}

func (uo *UpdateOpportunity) Validate() error {
	uo.Company = core.CleanString(uo.Company)
	uo.Role = core.CleanString(uo.Role)
	uo.Description = core.CleanString(uo.Description)
	uo.Location = core.CleanString(uo.Location)
	return core.Validate.Struct(uo)
}

type OpportunityQueryFilter struct {
	Search   string    `query:"search"`
	IsOpen   *bool     `query:"is_open"`
	Location string    `query:"location"`
	Deadline time.Time `query:"deadline_after"`
}

func (qf *OpportunityQueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsOpen == nil && qf.Location == "" && qf.Deadline.IsZero()
}

func (qf *OpportunityQueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Location = core.CleanString(qf.Location)
}

// Application is a student's application to an Opportunity.
type Application struct {
	workflow.Submission

	OpportunityID string `json:"opportunity_id"`
	ResumeRef     string `json:"resume_ref"`
	CoverLetter   string `json:"cover_letter,omitempty"`
}

// NewApplication contains information needed to apply to an Opportunity.
type NewApplication struct {
	OpportunityID string `json:"opportunity_id" validate:"required"`
	ResumeRef     string `json:"resume_ref" validate:"required"`
	CoverLetter   string `json:"cover_letter"`
}

func (na *NewApplication) Validate() error {
	na.OpportunityID = core.CleanString(na.OpportunityID)
	na.ResumeRef = core.CleanString(na.ResumeRef)
	na.CoverLetter = core.CleanString(na.CoverLetter)
	return core.Validate.Struct(na)
}

type ApplicationQueryFilter struct {
	SubmitterID   string          `query:"-"` // set by the API layer, never bound
	OpportunityID string          `query:"opportunity_id"`
	Status        workflow.Status `query:"status"`
	CreatedFrom   time.Time       `query:"created_from"`
	CreatedTo     time.Time       `query:"created_to"`
}

func (qf *ApplicationQueryFilter) IsEmpty() bool {
	return qf.SubmitterID == "" && qf.OpportunityID == "" && qf.Status == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}
