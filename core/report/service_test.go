package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
	emailsvc "github.com/trezcool/mafunzo/services/email"
	dummydb "github.com/trezcool/mafunzo/storage/database/dummy"
	testutil "github.com/trezcool/mafunzo/tests"
)

func setup(t *testing.T) (report.Service, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc)
	return report.NewService(dummydb.NewReportRepository(db), usrSvc, mailSvc), usrRepo
}

func requireValidationError(t *testing.T, err error, field string) {
	t.Helper()

	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "error = %v; want ValidationError", err)
	require.NotEmpty(t, vErr.Fields)
	assert.Equal(t, field, vErr.Fields[0].Field)
}

func TestNewReport_Validate(t *testing.T) {
	nr := report.NewReport{Kind: report.KindWeekly, Week: 1, Summary: "Set up the dev environment."}
	assert.NoError(t, nr.Validate())

	// weekly reports need a week number
	nr = report.NewReport{Kind: report.KindWeekly, Summary: "lorem"}
	requireValidationError(t, nr.Validate(), "week")

	// completion reports need the certificate document
	nr = report.NewReport{Kind: report.KindCompletion}
	requireValidationError(t, nr.Validate(), "document_ref")

	nr = report.NewReport{Kind: report.KindCompletion, DocumentRef: "docs/certificate.pdf"}
	assert.NoError(t, nr.Validate())

	nr = report.NewReport{Kind: report.Kind("monthly"), Week: 1}
	requireValidationError(t, nr.Validate(), "kind")

	nr = report.NewReport{}
	assert.Error(t, nr.Validate())
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo := setup(t)
	student := testutil.CreateUser(t, usrRepo, "Jane Doe", "janedoe", "jane@test.cm", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "John Doe", "johndoe", "john@test.cm", "", []string{user.RoleStudent}, true)

	rep, err := svc.Create(ctx, student, report.NewReport{Kind: report.KindWeekly, Week: 1, Summary: "Set up the dev environment."})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTeacher, rep.Status)
	assert.Equal(t, 1, rep.Week)

	// one report per week per student
	_, err = svc.Create(ctx, student, report.NewReport{Kind: report.KindWeekly, Week: 1, Summary: "again"})
	requireValidationError(t, err, "week")

	// other students and other weeks are unaffected
	_, err = svc.Create(ctx, other, report.NewReport{Kind: report.KindWeekly, Week: 1, Summary: "Shadowed the ops team."})
	require.NoError(t, err)
	_, err = svc.Create(ctx, student, report.NewReport{Kind: report.KindWeekly, Week: 2, Summary: "Shipped the first feature."})
	require.NoError(t, err)

	// completion report
	rep, err = svc.Create(ctx, student, report.NewReport{Kind: report.KindCompletion, DocumentRef: "docs/certificate.pdf"})
	require.NoError(t, err)
	assert.Equal(t, report.KindCompletion, rep.Kind)

	// query
	reps, err := svc.Query(ctx, &report.QueryFilter{SubmitterID: student.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, reps, 3)

	reps, err = svc.Query(ctx, &report.QueryFilter{Kind: report.KindWeekly, Week: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, reps, 2)

	reps, err = svc.Query(ctx, &report.QueryFilter{Kind: report.KindCompletion}, nil)
	require.NoError(t, err)
	assert.Len(t, reps, 1)
}

func TestService_Review(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo := setup(t)
	student := testutil.CreateUser(t, usrRepo, "Jane Doe", "janedoe", "jane@test.cm", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Mr Smith", "mrsmith", "smith@test.cm", "", []string{user.RoleTeacher}, true)
	tpo := testutil.CreateUser(t, usrRepo, "Ms Jones", "msjones", "jones@test.cm", "", []string{user.RoleTPOfficer}, true)

	rep, err := svc.Create(ctx, student, report.NewReport{Kind: report.KindWeekly, Week: 1, Summary: "Set up the dev environment."})
	require.NoError(t, err)

	rep, err = svc.Review(ctx, rep.ID, teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove, Comments: "good progress"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTPO, rep.Status)

	rep, err = svc.Review(ctx, rep.ID, tpo, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, rep.Status)

	// terminal
	_, err = svc.Review(ctx, rep.ID, tpo, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	assert.True(t, workflow.IsForbiddenTransition(err))

	_, err = svc.Review(ctx, "dd3cc95a-ba37-4126-b387-8a8b2a54ed17", teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	assert.Equal(t, report.ErrNotFound, err)
}

// staleReadRepo serves reads from an outdated snapshot, forcing the
// status CAS to fail the way a lost review race does.
type staleReadRepo struct {
	report.Repository
	staleStatus workflow.Status
}

func (repo staleReadRepo) GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (report.Report, error) {
	rep, err := repo.Repository.GetReportByID(ctx, id, exec...)
	rep.Status = repo.staleStatus
	return rep, err
}

func TestService_Review_staleStatus(t *testing.T) {
	ctx := context.Background()

	db, err := dummydb.Open()
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc)
	repo := dummydb.NewReportRepository(db)
	svc := report.NewService(repo, usrSvc, mailSvc)

	student := testutil.CreateUser(t, usrRepo, "Jane Doe", "janedoe", "jane@test.cm", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Mr Smith", "mrsmith", "smith@test.cm", "", []string{user.RoleTeacher}, true)

	rep, err := svc.Create(ctx, student, report.NewReport{Kind: report.KindWeekly, Week: 1, Summary: "Set up the dev environment."})
	require.NoError(t, err)
	_, err = svc.Review(ctx, rep.ID, teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	require.NoError(t, err) // stored status is now pending_tpo

	// this service still sees pending_teacher; its update must lose
	staleSvc := report.NewService(staleReadRepo{Repository: repo, staleStatus: workflow.StatusPendingTeacher}, usrSvc, mailSvc)
	_, err = staleSvc.Review(ctx, rep.ID, teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove})

	ftErr, ok := err.(*workflow.ForbiddenTransitionError)
	require.True(t, ok, "Review() error = %v; want ForbiddenTransitionError", err)
	assert.Equal(t, workflow.StatusPendingTeacher, ftErr.Current)
}
