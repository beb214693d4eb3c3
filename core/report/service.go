package report

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
)

var (
	ErrNotFound = errors.New("report not found")

	errDuplicateWeek = errors.New("a report for this week has already been filed")
)

type (
	Repository interface {
		CreateReport(ctx context.Context, rep Report, exec ...core.DBExecutor) (Report, error)
		GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (Report, error)
		// GetWeeklyReport returns the submitter's weekly report for the given
		// week, if any.
		GetWeeklyReport(ctx context.Context, submitterID string, week int, exec ...core.DBExecutor) (Report, error)
		// FilterReports applies AND operation on available QueryFilter fields.
		FilterReports(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Report, error)
		// UpdateReportStatus applies upd iff the stored status still equals
		// expected; returns workflow.ErrStatusConflict otherwise.
		UpdateReportStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (Report, error)
	}

	Service interface {
		Create(ctx context.Context, submitter user.User, nr NewReport) (Report, error)
		GetByID(ctx context.Context, id string) (Report, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Report, error)
		Review(ctx context.Context, id string, actor user.User, rd workflow.ReviewDecision) (Report, error)
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

func (svc *service) Create(ctx context.Context, submitter user.User, nr NewReport) (Report, error) {
	if nr.Kind == KindWeekly {
		if _, err := svc.repo.GetWeeklyReport(ctx, submitter.ID, nr.Week); err == nil {
			return Report{}, core.NewValidationError(errDuplicateWeek, core.FieldError{Field: "week", Error: errDuplicateWeek.Error()})
		} else if errors.Cause(err) != ErrNotFound {
			return Report{}, err
		}
	}

	rep := Report{
		Submission:  workflow.NewSubmission(submitter),
		Kind:        nr.Kind,
		Week:        nr.Week,
		Summary:     nr.Summary,
		DocumentRef: nr.DocumentRef,
	}
	return svc.repo.CreateReport(ctx, rep)
}

func (svc *service) GetByID(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReportByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Report, error) {
	if filter != nil && filter.IsEmpty() {
		filter = nil
	}
	return svc.repo.FilterReports(ctx, filter, ordering)
}

func (svc *service) Review(ctx context.Context, id string, actor user.User, rd workflow.ReviewDecision) (Report, error) {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}

	upd, err := workflow.Review(rep.Status, actor, rd)
	if err != nil {
		return Report{}, err
	}

	// keep the read status for the conflict error; the repo returns the
	// zero Report alongside ErrStatusConflict
	cur := rep.Status
	rep, err = svc.repo.UpdateReportStatus(ctx, id, cur, upd)
	if err != nil {
		if errors.Cause(err) == workflow.ErrStatusConflict {
			return Report{}, workflow.NewForbiddenTransition(cur, "the report was reviewed concurrently; refresh and retry")
		}
		return Report{}, err
	}

	svc.notifyStatusChange(ctx, rep)
	return rep, nil
}

// notifyStatusChange emails the submitter about the new status.
// Best-effort: the transition has already been committed and is never rolled
// back on notification failure.
func (svc *service) notifyStatusChange(ctx context.Context, rep Report) {
	usr, err := svc.usrSvc.GetByID(ctx, rep.SubmitterID)
	if err != nil {
		return
	}
	title := "Completion certificate"
	kind := "completion report"
	if rep.Kind == KindWeekly {
		title = fmt.Sprintf("Week %d progress report", rep.Week)
		kind = "weekly report"
	}
	lbl := rep.Label()
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Internship Report: " + lbl.Text,
		TemplateName: "submission-status",
		TemplateData: struct {
			Name   string
			Kind   string
			Title  string
			Status string
			Reason string
		}{
			Name:   usr.Name,
			Kind:   kind,
			Title:  title,
			Status: lbl.Text,
			Reason: rep.RejectionReason,
		},
	})
}
