package internship_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/internship"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
	emailsvc "github.com/trezcool/mafunzo/services/email"
	dummydb "github.com/trezcool/mafunzo/storage/database/dummy"
	testutil "github.com/trezcool/mafunzo/tests"
)

func setup(t *testing.T) (internship.Service, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc)
	return internship.NewService(dummydb.NewInternshipRepository(db), usrSvc, mailSvc), usrRepo
}

func newOpportunity() internship.NewOpportunity {
	return internship.NewOpportunity{
		Company:     "Acme Corp",
		Role:        "Backend Intern",
		Description: "Work on the billing platform.",
		Location:    "Douala",
		Stipend:     15000,
		Deadline:    time.Now().AddDate(0, 1, 0),
	}
}

func requireValidationError(t *testing.T, err error, field string) {
	t.Helper()

	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "error = %v; want ValidationError", err)
	require.NotEmpty(t, vErr.Fields)
	assert.Equal(t, field, vErr.Fields[0].Field)
}

func TestService_Opportunities(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo := setup(t)
	tpo := testutil.CreateUser(t, usrRepo, "Ms Jones", "msjones", "jones@test.cm", "", []string{user.RoleTPOfficer}, true)

	opp, err := svc.CreateOpportunity(ctx, tpo, newOpportunity())
	require.NoError(t, err)
	assert.NotEmpty(t, opp.ID)
	assert.Equal(t, tpo.ID, opp.PostedByID)
	assert.True(t, opp.IsOpen)

	// update
	closed := false
	opp, err = svc.UpdateOpportunity(ctx, opp.ID, internship.UpdateOpportunity{Role: "Platform Intern", IsOpen: &closed})
	require.NoError(t, err)
	assert.Equal(t, "Platform Intern", opp.Role)
	assert.False(t, opp.IsOpen)
	assert.Equal(t, "Acme Corp", opp.Company) // untouched

	// query
	no := newOpportunity()
	no.Company = "Globex"
	no.Location = "Yaounde"
	_, err = svc.CreateOpportunity(ctx, tpo, no)
	require.NoError(t, err)

	opps, err := svc.QueryOpportunities(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, opps, 2)

	open := true
	opps, err = svc.QueryOpportunities(ctx, &internship.OpportunityQueryFilter{IsOpen: &open}, nil)
	require.NoError(t, err)
	assert.Len(t, opps, 1)

	opps, err = svc.QueryOpportunities(ctx, &internship.OpportunityQueryFilter{Search: "globex"}, nil)
	require.NoError(t, err)
	assert.Len(t, opps, 1)

	// delete
	require.NoError(t, svc.DeleteOpportunity(ctx, opp.ID))
	_, err = svc.GetOpportunityByID(ctx, opp.ID)
	assert.Equal(t, internship.ErrOpportunityNotFound, err)
}

func TestService_Apply(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo := setup(t)
	tpo := testutil.CreateUser(t, usrRepo, "Ms Jones", "msjones", "jones@test.cm", "", []string{user.RoleTPOfficer}, true)
	student := testutil.CreateUser(t, usrRepo, "Jane Doe", "janedoe", "jane@test.cm", "", []string{user.RoleStudent}, true)

	opp, err := svc.CreateOpportunity(ctx, tpo, newOpportunity())
	require.NoError(t, err)

	na := internship.NewApplication{OpportunityID: opp.ID, ResumeRef: "docs/resume.pdf"}
	app, err := svc.Apply(ctx, student, na)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTeacher, app.Status)
	assert.Equal(t, student.ID, app.SubmitterID)

	// no double application
	_, err = svc.Apply(ctx, student, na)
	requireValidationError(t, err, "opportunity_id")

	// closed opportunity
	closed := false
	_, err = svc.UpdateOpportunity(ctx, opp.ID, internship.UpdateOpportunity{IsOpen: &closed})
	require.NoError(t, err)

	other := testutil.CreateUser(t, usrRepo, "John Doe", "johndoe", "john@test.cm", "", []string{user.RoleStudent}, true)
	_, err = svc.Apply(ctx, other, na)
	requireValidationError(t, err, "opportunity_id")

	// past deadline
	open := true
	past := time.Now().AddDate(0, 0, -1)
	_, err = svc.UpdateOpportunity(ctx, opp.ID, internship.UpdateOpportunity{IsOpen: &open, Deadline: &past})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, other, na)
	requireValidationError(t, err, "opportunity_id")

	// unknown opportunity
	_, err = svc.Apply(ctx, other, internship.NewApplication{OpportunityID: "dd3cc95a-ba37-4126-b387-8a8b2a54ed17", ResumeRef: "docs/resume.pdf"})
	assert.Equal(t, internship.ErrOpportunityNotFound, err)
}

func TestNewApplication_Validate(t *testing.T) {
	na := internship.NewApplication{OpportunityID: "dd3cc95a-ba37-4126-b387-8a8b2a54ed17", ResumeRef: "docs/resume.pdf"}
	assert.NoError(t, na.Validate())

	na.ResumeRef = "  "
	assert.Error(t, na.Validate())
}

func TestService_ReviewApplication(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo := setup(t)
	tpo := testutil.CreateUser(t, usrRepo, "Ms Jones", "msjones", "jones@test.cm", "", []string{user.RoleTPOfficer}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Mr Smith", "mrsmith", "smith@test.cm", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Jane Doe", "janedoe", "jane@test.cm", "", []string{user.RoleStudent}, true)

	opp, err := svc.CreateOpportunity(ctx, tpo, newOpportunity())
	require.NoError(t, err)
	app, err := svc.Apply(ctx, student, internship.NewApplication{OpportunityID: opp.ID, ResumeRef: "docs/resume.pdf"})
	require.NoError(t, err)

	// student cannot review their own application
	_, err = svc.ReviewApplication(ctx, app.ID, student, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	assert.True(t, workflow.IsForbiddenTransition(err))

	app, err = svc.ReviewApplication(ctx, app.ID, teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTPO, app.Status)

	app, err = svc.ReviewApplication(ctx, app.ID, tpo, workflow.ReviewDecision{Decision: workflow.DecisionReject, Reason: "position filled"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, app.Status)
	assert.Equal(t, "position filled", app.RejectionReason)

	// terminal
	_, err = svc.ReviewApplication(ctx, app.ID, tpo, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	assert.True(t, workflow.IsForbiddenTransition(err))

	// applications remain queryable by status
	apps, err := svc.QueryApplications(ctx, &internship.ApplicationQueryFilter{Status: workflow.StatusRejected}, nil)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

// staleReadRepo serves application reads from an outdated snapshot,
// forcing the status CAS to fail the way a lost review race does.
type staleReadRepo struct {
	internship.Repository
	staleStatus workflow.Status
}

func (repo staleReadRepo) GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (internship.Application, error) {
	app, err := repo.Repository.GetApplicationByID(ctx, id, exec...)
	app.Status = repo.staleStatus
	return app, err
}

func TestService_ReviewApplication_staleStatus(t *testing.T) {
	ctx := context.Background()

	db, err := dummydb.Open()
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc)
	repo := dummydb.NewInternshipRepository(db)
	svc := internship.NewService(repo, usrSvc, mailSvc)

	tpo := testutil.CreateUser(t, usrRepo, "Ms Jones", "msjones", "jones@test.cm", "", []string{user.RoleTPOfficer}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Mr Smith", "mrsmith", "smith@test.cm", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Jane Doe", "janedoe", "jane@test.cm", "", []string{user.RoleStudent}, true)

	opp, err := svc.CreateOpportunity(ctx, tpo, newOpportunity())
	require.NoError(t, err)
	app, err := svc.Apply(ctx, student, internship.NewApplication{OpportunityID: opp.ID, ResumeRef: "docs/resume.pdf"})
	require.NoError(t, err)
	_, err = svc.ReviewApplication(ctx, app.ID, teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove})
	require.NoError(t, err) // stored status is now pending_tpo

	// this service still sees pending_teacher; its update must lose
	staleSvc := internship.NewService(staleReadRepo{Repository: repo, staleStatus: workflow.StatusPendingTeacher}, usrSvc, mailSvc)
	_, err = staleSvc.ReviewApplication(ctx, app.ID, teacher, workflow.ReviewDecision{Decision: workflow.DecisionApprove})

	ftErr, ok := err.(*workflow.ForbiddenTransitionError)
	require.True(t, ok, "ReviewApplication() error = %v; want ForbiddenTransitionError", err)
	assert.Equal(t, workflow.StatusPendingTeacher, ftErr.Current)
}
