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
	"github.com/trezcool/mafunzo/core/noc"
	"github.com/trezcool/mafunzo/core/workflow"
)

type nocRow struct {
	ID               string    `db:"id"`
	SubmitterID      string    `db:"submitter_id"`
	Status           string    `db:"status"`
	ReviewerComments string    `db:"reviewer_comments"`
	RejectionReason  string    `db:"rejection_reason"`
	Company          string    `db:"company"`
	Role             string    `db:"role"`
	DurationWeeks    int       `db:"duration_weeks"`
	StartDate        time.Time `db:"start_date"`
	EndDate          time.Time `db:"end_date"`
	Stipend          int       `db:"stipend"`
	DocumentRef      string    `db:"document_ref"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row nocRow) request() noc.Request {
	return noc.Request{
		Submission: workflow.Submission{
			ID:               row.ID,
			SubmitterID:      row.SubmitterID,
			Status:           workflow.Status(row.Status),
			ReviewerComments: row.ReviewerComments,
			RejectionReason:  row.RejectionReason,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		},
		Company:       row.Company,
		Role:          row.Role,
		DurationWeeks: row.DurationWeeks,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		Stipend:       row.Stipend,
		DocumentRef:   row.DocumentRef,
	}
}

type nocRepository struct {
	db *sqlx.DB
}

var _ noc.Repository = (*nocRepository)(nil) // interface compliance check

func NewNOCRepository(db *sqlx.DB) noc.Repository {
	return &nocRepository{db: db}
}

func (repo *nocRepository) CreateRequest(ctx context.Context, req noc.Request, exec ...core.DBExecutor) (noc.Request, error) {
	ext := getExt(repo.db, exec)

	req.ID = uuid.NewString()
	const query = `
		INSERT INTO noc_request (id, submitter_id, status, reviewer_comments, rejection_reason,
		                         company, role, duration_weeks, start_date, end_date, stipend, document_ref,
		                         created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := ext.ExecContext(ctx, query,
		req.ID, req.SubmitterID, req.Status, req.ReviewerComments, req.RejectionReason,
		req.Company, req.Role, req.DurationWeeks, req.StartDate, req.EndDate, req.Stipend, req.DocumentRef,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return noc.Request{}, errors.Wrap(err, "inserting NOC request")
	}
	return req, nil
}

func (repo *nocRepository) GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (noc.Request, error) {
	ext := getExt(repo.db, exec)

	var row nocRow
	if err := sqlx.GetContext(ctx, ext, &row, `SELECT * FROM noc_request WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return noc.Request{}, noc.ErrNotFound
		}
		return noc.Request{}, errors.Wrap(err, "getting NOC request")
	}
	return row.request(), nil
}

func (repo *nocRepository) FilterRequests(ctx context.Context, filter *noc.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]noc.Request, error) {
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
		if filter.Status != "" {
			clauses = append(clauses, fmt.Sprintf("status = %s", arg(string(filter.Status))))
		}
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			clauses = append(clauses, fmt.Sprintf("(company ILIKE %[1]s OR role ILIKE %[1]s)", p))
		}
		if !filter.CreatedFrom.IsZero() {
			clauses = append(clauses, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			clauses = append(clauses, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
		}
	}

	query := `SELECT * FROM noc_request` + where(clauses) + orderBy(ordering, "created_at ASC")
	var rows []nocRow
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying NOC requests")
	}

	reqs := make([]noc.Request, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, row.request())
	}
	return reqs, nil
}

func (repo *nocRepository) UpdateRequestStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (noc.Request, error) {
	ext := getExt(repo.db, exec)

	const query = `
		UPDATE noc_request
		SET status = $1, reviewer_comments = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING *`
	var row nocRow
	err := sqlx.GetContext(ctx, ext, &row, query,
		string(upd.Status), upd.ReviewerComments, upd.RejectionReason, upd.UpdatedAt, id, string(expected))
	if err != nil {
		if err == sql.ErrNoRows {
			// either the row is gone or another reviewer got there first
			if _, getErr := repo.GetRequestByID(ctx, id, exec...); getErr != nil {
				return noc.Request{}, getErr
			}
			return noc.Request{}, workflow.ErrStatusConflict
		}
		return noc.Request{}, errors.Wrap(err, "updating NOC request status")
	}
	return row.request(), nil
}
