package internship

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
)

var (
	ErrOpportunityNotFound = errors.New("internship opportunity not found")
	ErrApplicationNotFound = errors.New("internship application not found")

	errClosed    = errors.New("this opportunity is no longer accepting applications")
	errDuplicate = errors.New("you have already applied to this opportunity")
)

type (
	OpportunityRepository interface {
		CreateOpportunity(ctx context.Context, opp Opportunity, exec ...core.DBExecutor) (Opportunity, error)
		GetOpportunityByID(ctx context.Context, id string, exec ...core.DBExecutor) (Opportunity, error)
		// FilterOpportunities applies AND operation on available OpportunityQueryFilter fields.
		// OpportunityQueryFilter.Search does a case-insensitive match on Company or Role.
		FilterOpportunities(ctx context.Context, filter *OpportunityQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Opportunity, error)
		UpdateOpportunity(ctx context.Context, opp Opportunity, exec ...core.DBExecutor) (Opportunity, error)
		DeleteOpportunity(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ApplicationRepository interface {
		CreateApplication(ctx context.Context, app Application, exec ...core.DBExecutor) (Application, error)
		GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (Application, error)
		// GetApplication returns the submitter's application to the given
		// opportunity, if any.
		GetApplication(ctx context.Context, submitterID, opportunityID string, exec ...core.DBExecutor) (Application, error)
		// FilterApplications applies AND operation on available ApplicationQueryFilter fields.
		FilterApplications(ctx context.Context, filter *ApplicationQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Application, error)
		// UpdateApplicationStatus applies upd iff the stored status still equals
		// expected; returns workflow.ErrStatusConflict otherwise.
		UpdateApplicationStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (Application, error)
	}

	Repository interface {
		OpportunityRepository
		ApplicationRepository
	}

	Service interface {
		CreateOpportunity(ctx context.Context, poster user.User, no NewOpportunity) (Opportunity, error)
		GetOpportunityByID(ctx context.Context, id string) (Opportunity, error)
		QueryOpportunities(ctx context.Context, filter *OpportunityQueryFilter, ordering []core.DBOrdering) ([]Opportunity, error)
		UpdateOpportunity(ctx context.Context, id string, uo UpdateOpportunity) (Opportunity, error)
		DeleteOpportunity(ctx context.Context, id string) error

		Apply(ctx context.Context, submitter user.User, na NewApplication) (Application, error)
		GetApplicationByID(ctx context.Context, id string) (Application, error)
		QueryApplications(ctx context.Context, filter *ApplicationQueryFilter, ordering []core.DBOrdering) ([]Application, error)
		ReviewApplication(ctx context.Context, id string, actor user.User, rd workflow.ReviewDecision) (Application, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
	}
}

func (svc *service) CreateOpportunity(ctx context.Context, poster user.User, no NewOpportunity) (Opportunity, error) {
	now := time.Now().UTC()
	opp := Opportunity{
		PostedByID:  poster.ID,
		Company:     no.Company,
		Role:        no.Role,
		Description: no.Description,
		Location:    no.Location,
		Stipend:     no.Stipend,
		Deadline:    no.Deadline.UTC(),
		IsOpen:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateOpportunity(ctx, opp)
}

func (svc *service) GetOpportunityByID(ctx context.Context, id string) (Opportunity, error) {
	return svc.repo.GetOpportunityByID(ctx, id)
}

func (svc *service) QueryOpportunities(ctx context.Context, filter *OpportunityQueryFilter, ordering []core.DBOrdering) ([]Opportunity, error) {
	if filter != nil && filter.IsEmpty() {
		filter = nil
	}
	return svc.repo.FilterOpportunities(ctx, filter, ordering)
}

func (svc *service) UpdateOpportunity(ctx context.Context, id string, uo UpdateOpportunity) (Opportunity, error) {
	opp, err := svc.repo.GetOpportunityByID(ctx, id)
	if err != nil {
		return Opportunity{}, err
	}

	if uo.Company != "" {
		opp.Company = uo.Company
	}
	if uo.Role != "" {
		opp.Role = uo.Role
	}
	if uo.Description != "" {
		opp.Description = uo.Description
	}
	if uo.Location != "" {
		opp.Location = uo.Location
	}
	if uo.Stipend != nil {
		opp.Stipend = *uo.Stipend
	}
	if uo.Deadline != nil {
		opp.Deadline = uo.Deadline.UTC()
	}
	if uo.IsOpen != nil {
		opp.IsOpen = *uo.IsOpen
	}
	opp.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateOpportunity(ctx, opp)
}

func (svc *service) DeleteOpportunity(ctx context.Context, id string) error {
	return svc.repo.DeleteOpportunity(ctx, id)
}

func (svc *service) Apply(ctx context.Context, submitter user.User, na NewApplication) (Application, error) {
	opp, err := svc.repo.GetOpportunityByID(ctx, na.OpportunityID)
	if err != nil {
		return Application{}, err
	}
	if !opp.AcceptsApplications(time.Now().UTC()) {
		return Application{}, core.NewValidationError(errClosed, core.FieldError{Field: "opportunity_id", Error: errClosed.Error()})
	}

	if _, err = svc.repo.GetApplication(ctx, submitter.ID, opp.ID); err == nil {
		return Application{}, core.NewValidationError(errDuplicate, core.FieldError{Field: "opportunity_id", Error: errDuplicate.Error()})
	} else if errors.Cause(err) != ErrApplicationNotFound {
		return Application{}, err
	}

	app := Application{
		Submission:    workflow.NewSubmission(submitter),
		OpportunityID: opp.ID,
		ResumeRef:     na.ResumeRef,
		CoverLetter:   na.CoverLetter,
	}
	return svc.repo.CreateApplication(ctx, app)
}

func (svc *service) GetApplicationByID(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplicationByID(ctx, id)
}

func (svc *service) QueryApplications(ctx context.Context, filter *ApplicationQueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	if filter != nil && filter.IsEmpty() {
		filter = nil
	}
	return svc.repo.FilterApplications(ctx, filter, ordering)
}

func (svc *service) ReviewApplication(ctx context.Context, id string, actor user.User, rd workflow.ReviewDecision) (Application, error) {
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return Application{}, err
	}

	upd, err := workflow.Review(app.Status, actor, rd)
	if err != nil {
		return Application{}, err
	}

	// keep the read status for the conflict error; the repo returns the
	// zero Application alongside ErrStatusConflict
	cur := app.Status
	app, err = svc.repo.UpdateApplicationStatus(ctx, id, cur, upd)
	if err != nil {
		if errors.Cause(err) == workflow.ErrStatusConflict {
			return Application{}, workflow.NewForbiddenTransition(cur, "the application was reviewed concurrently; refresh and retry")
		}
		return Application{}, err
	}

	svc.notifyStatusChange(ctx, app)
	return app, nil
}

// notifyStatusChange emails the submitter about the new status.
// Best-effort: the transition has already been committed and is never rolled
// back on notification failure.
func (svc *service) notifyStatusChange(ctx context.Context, app Application) {
	usr, err := svc.usrSvc.GetByID(ctx, app.SubmitterID)
	if err != nil {
		return
	}
	title := app.OpportunityID
	if opp, err := svc.repo.GetOpportunityByID(ctx, app.OpportunityID); err == nil {
		title = opp.Company + " - " + opp.Role
	}
	lbl := app.Label()
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Internship Application: " + lbl.Text,
		TemplateName: "submission-status",
		TemplateData: struct {
			Name   string
			Kind   string
			Title  string
			Status string
			Reason string
		}{
			Name:   usr.Name,
			Kind:   "internship application",
			Title:  title,
			Status: lbl.Text,
			Reason: app.RejectionReason,
		},
	})
}
