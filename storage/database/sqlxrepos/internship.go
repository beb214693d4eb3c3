package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/internship"
	"github.com/trezcool/mafunzo/core/workflow"
)

type opportunityRow struct {
	ID          string    `db:"id"`
	PostedByID  string    `db:"posted_by_id"`
	Company     string    `db:"company"`
	Role        string    `db:"role"`
	Description string    `db:"description"`
	Location    string    `db:"location"`
	Stipend     int       `db:"stipend"`
	Deadline    time.Time `db:"deadline"`
	IsOpen      bool      `db:"is_open"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row opportunityRow) opportunity() internship.Opportunity {
	return internship.Opportunity{
		ID:          row.ID,
		PostedByID:  row.PostedByID,
		Company:     row.Company,
		Role:        row.Role,
		Description: row.Description,
		Location:    row.Location,
		Stipend:     row.Stipend,
		Deadline:    row.Deadline,
		IsOpen:      row.IsOpen,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type applicationRow struct {
	ID               string    `db:"id"`
	SubmitterID      string    `db:"submitter_id"`
	OpportunityID    string    `db:"opportunity_id"`
	Status           string    `db:"status"`
	ReviewerComments string    `db:"reviewer_comments"`
	RejectionReason  string    `db:"rejection_reason"`
	ResumeRef        string    `db:"resume_ref"`
	CoverLetter      string    `db:"cover_letter"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row applicationRow) application() internship.Application {
	return internship.Application{
		Submission: workflow.Submission{
			ID:               row.ID,
			SubmitterID:      row.SubmitterID,
			Status:           workflow.Status(row.Status),
			ReviewerComments: row.ReviewerComments,
			RejectionReason:  row.RejectionReason,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		},
		OpportunityID: row.OpportunityID,
		ResumeRef:     row.ResumeRef,
		CoverLetter:   row.CoverLetter,
	}
}

type internshipRepository struct {
	db *sqlx.DB
}

var _ internship.Repository = (*internshipRepository)(nil) // interface compliance check

func NewInternshipRepository(db *sqlx.DB) internship.Repository {
	return &internshipRepository{db: db}
}

func (repo *internshipRepository) CreateOpportunity(ctx context.Context, opp internship.Opportunity, exec ...core.DBExecutor) (internship.Opportunity, error) {
	ext := getExt(repo.db, exec)

	opp.ID = uuid.NewString()
	const query = `
		INSERT INTO internship_opportunity (id, posted_by_id, company, role, description, location,
		                                    stipend, deadline, is_open, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := ext.ExecContext(ctx, query,
		opp.ID, opp.PostedByID, opp.Company, opp.Role, opp.Description, opp.Location,
		opp.Stipend, opp.Deadline, opp.IsOpen, opp.CreatedAt, opp.UpdatedAt,
	)
	if err != nil {
		return internship.Opportunity{}, errors.Wrap(err, "inserting opportunity")
	}
	return opp, nil
}

func (repo *internshipRepository) GetOpportunityByID(ctx context.Context, id string, exec ...core.DBExecutor) (internship.Opportunity, error) {
	ext := getExt(repo.db, exec)

	var row opportunityRow
	if err := sqlx.GetContext(ctx, ext, &row, `SELECT * FROM internship_opportunity WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return internship.Opportunity{}, internship.ErrOpportunityNotFound
		}
		return internship.Opportunity{}, errors.Wrap(err, "getting opportunity")
	}
	return row.opportunity(), nil
}

func (repo *internshipRepository) FilterOpportunities(ctx context.Context, filter *internship.OpportunityQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]internship.Opportunity, error) {
	ext := getExt(repo.db, exec)

	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			clauses = append(clauses, fmt.Sprintf("(company ILIKE %[1]s OR role ILIKE %[1]s)", p))
		}
		if filter.IsOpen != nil {
			clauses = append(clauses, fmt.Sprintf("is_open = %s", arg(*filter.IsOpen)))
		}
		if filter.Location != "" {
			clauses = append(clauses, fmt.Sprintf("location ILIKE %s", arg("%"+filter.Location+"%")))
		}
		if !filter.Deadline.IsZero() {
			clauses = append(clauses, fmt.Sprintf("deadline > %s", arg(filter.Deadline.UTC())))
		}
	}

	query := `SELECT * FROM internship_opportunity` + where(clauses) + orderBy(ordering, "created_at ASC")
	var rows []opportunityRow
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying opportunities")
	}

	opps := make([]internship.Opportunity, 0, len(rows))
	for _, row := range rows {
		opps = append(opps, row.opportunity())
	}
	return opps, nil
}

func (repo *internshipRepository) UpdateOpportunity(ctx context.Context, opp internship.Opportunity, exec ...core.DBExecutor) (internship.Opportunity, error) {
	ext := getExt(repo.db, exec)

	const query = `
		UPDATE internship_opportunity
		SET company = $1, role = $2, description = $3, location = $4, stipend = $5,
		    deadline = $6, is_open = $7, updated_at = $8
		WHERE id = $9
		RETURNING *`
	var row opportunityRow
	err := sqlx.GetContext(ctx, ext, &row, query,
		opp.Company, opp.Role, opp.Description, opp.Location, opp.Stipend,
		opp.Deadline, opp.IsOpen, opp.UpdatedAt, opp.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return internship.Opportunity{}, internship.ErrOpportunityNotFound
		}
		return internship.Opportunity{}, errors.Wrap(err, "updating opportunity")
	}
	return row.opportunity(), nil
}

func (repo *internshipRepository) DeleteOpportunity(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ext := getExt(repo.db, exec)

	res, err := ext.ExecContext(ctx, `DELETE FROM internship_opportunity WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting opportunity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return internship.ErrOpportunityNotFound
	}
	return nil
}

func (repo *internshipRepository) CreateApplication(ctx context.Context, app internship.Application, exec ...core.DBExecutor) (internship.Application, error) {
	ext := getExt(repo.db, exec)

	app.ID = uuid.NewString()
	const query = `
		INSERT INTO internship_application (id, submitter_id, opportunity_id, status, reviewer_comments,
		                                    rejection_reason, resume_ref, cover_letter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := ext.ExecContext(ctx, query,
		app.ID, app.SubmitterID, app.OpportunityID, app.Status, app.ReviewerComments,
		app.RejectionReason, app.ResumeRef, app.CoverLetter, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return internship.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *internshipRepository) GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (internship.Application, error) {
	ext := getExt(repo.db, exec)

	var row applicationRow
	if err := sqlx.GetContext(ctx, ext, &row, `SELECT * FROM internship_application WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return internship.Application{}, internship.ErrApplicationNotFound
		}
		return internship.Application{}, errors.Wrap(err, "getting application")
	}
	return row.application(), nil
}

func (repo *internshipRepository) GetApplication(ctx context.Context, submitterID, opportunityID string, exec ...core.DBExecutor) (internship.Application, error) {
	ext := getExt(repo.db, exec)

	var row applicationRow
	const query = `SELECT * FROM internship_application WHERE submitter_id = $1 AND opportunity_id = $2`
	if err := sqlx.GetContext(ctx, ext, &row, query, submitterID, opportunityID); err != nil {
		if err == sql.ErrNoRows {
			return internship.Application{}, internship.ErrApplicationNotFound
		}
		return internship.Application{}, errors.Wrap(err, "getting application")
	}
	return row.application(), nil
}

func (repo *internshipRepository) FilterApplications(ctx context.Context, filter *internship.ApplicationQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]internship.Application, error) {
	ext := getExt(repo.db, exec)

	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.SubmitterID != "" {
			clauses = append(clauses, fmt.Sprintf("submitter_id = %s", arg(filter.SubmitterID)))
		}
		if filter.OpportunityID != "" {
			clauses = append(clauses, fmt.Sprintf("opportunity_id = %s", arg(filter.OpportunityID)))
		}
		if filter.Status != "" {
			clauses = append(clauses, fmt.Sprintf("status = %s", arg(string(filter.Status))))
		}
		if !filter.CreatedFrom.IsZero() {
			clauses = append(clauses, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			clauses = append(clauses, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
		}
	}

	query := `SELECT * FROM internship_application` + where(clauses) + orderBy(ordering, "created_at ASC")
	var rows []applicationRow
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}

	apps := make([]internship.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.application())
	}
	return apps, nil
}

func (repo *internshipRepository) UpdateApplicationStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (internship.Application, error) {
	ext := getExt(repo.db, exec)

	const query = `
		UPDATE internship_application
		SET status = $1, reviewer_comments = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING *`
	var row applicationRow
	err := sqlx.GetContext(ctx, ext, &row, query,
		string(upd.Status), upd.ReviewerComments, upd.RejectionReason, upd.UpdatedAt, id, string(expected))
	if err != nil {
		if err == sql.ErrNoRows {
			// either the row is gone or another reviewer got there first
			if _, getErr := repo.GetApplicationByID(ctx, id, exec...); getErr != nil {
				return internship.Application{}, getErr
			}
			return internship.Application{}, workflow.ErrStatusConflict
		}
		return internship.Application{}, errors.Wrap(err, "updating application status")
	}
	return row.application(), nil
}
