package noc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
)

var ErrNotFound = errors.New("NOC request not found")

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request, exec ...core.DBExecutor) (Request, error)
		GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
		// FilterRequests applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Company or Role.
		FilterRequests(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Request, error)
		// UpdateRequestStatus applies upd iff the stored status still equals
		// expected; returns workflow.ErrStatusConflict otherwise.
		UpdateRequestStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (Request, error)
	}

	Service interface {
		Create(ctx context.Context, submitter user.User, nr NewRequest) (Request, error)
		GetByID(ctx context.Context, id string) (Request, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error)
		Review(ctx context.Context, id string, actor user.User, rd workflow.ReviewDecision) (Request, error)
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

func (svc *service) Create(ctx context.Context, submitter user.User, nr NewRequest) (Request, error) {
	req := Request{
		Submission:    workflow.NewSubmission(submitter),
		Company:       nr.Company,
		Role:          nr.Role,
		DurationWeeks: nr.DurationWeeks,
		StartDate:     nr.StartDate.UTC(),
		EndDate:       nr.EndDate.UTC(),
		Stipend:       nr.Stipend,
		DocumentRef:   nr.DocumentRef,
	}
	return svc.repo.CreateRequest(ctx, req)
}

func (svc *service) GetByID(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error) {
	if filter != nil && filter.IsEmpty() {
		filter = nil
	}
	return svc.repo.FilterRequests(ctx, filter, ordering)
}

func (svc *service) Review(ctx context.Context, id string, actor user.User, rd workflow.ReviewDecision) (Request, error) {
	req, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}

	upd, err := workflow.Review(req.Status, actor, rd)
	if err != nil {
		return Request{}, err
	}

	// keep the read status for the conflict error; the repo returns the
	// zero Request alongside ErrStatusConflict
	cur := req.Status
	req, err = svc.repo.UpdateRequestStatus(ctx, id, cur, upd)
	if err != nil {
		if errors.Cause(err) == workflow.ErrStatusConflict {
			return Request{}, workflow.NewForbiddenTransition(cur, "the request was reviewed concurrently; refresh and retry")
		}
		return Request{}, err
	}

	svc.notifyStatusChange(ctx, req)
	return req, nil
}

// notifyStatusChange emails the submitter about the new status.
// Best-effort: the transition has already been committed and is never rolled
// back on notification failure.
func (svc *service) notifyStatusChange(ctx context.Context, req Request) {
	usr, err := svc.usrSvc.GetByID(ctx, req.SubmitterID)
	if err != nil {
		return
	}
	lbl := req.Label()
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "NOC Request: " + lbl.Text,
		TemplateName: "submission-status",
		TemplateData: struct {
			Name   string
			Kind   string
			Title  string
			Status string
			Reason string
		}{
			Name:   usr.Name,
			Kind:   "NOC request",
			Title:  req.Company + " - " + req.Role,
			Status: lbl.Text,
			Reason: req.RejectionReason,
		},
	})
}
