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
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/workflow"
)

type reportRow struct {
	ID               string    `db:"id"`
	SubmitterID      string    `db:"submitter_id"`
	Status           string    `db:"status"`
	ReviewerComments string    `db:"reviewer_comments"`
	RejectionReason  string    `db:"rejection_reason"`
	Kind             string    `db:"kind"`
	Week             int       `db:"week"`
	Summary          string    `db:"summary"`
	DocumentRef      string    `db:"document_ref"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row reportRow) report() report.Report {
	return report.Report{
		Submission: workflow.Submission{
			ID:               row.ID,
			SubmitterID:      row.SubmitterID,
			Status:           workflow.Status(row.Status),
			ReviewerComments: row.ReviewerComments,
			RejectionReason:  row.RejectionReason,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		},
		Kind:        report.Kind(row.Kind),
		Week:        row.Week,
		Summary:     row.Summary,
		DocumentRef: row.DocumentRef,
	}
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(ctx context.Context, rep report.Report, exec ...core.DBExecutor) (report.Report, error) {
	ext := getExt(repo.db, exec)

	rep.ID = uuid.NewString()
	const query = `
		INSERT INTO progress_report (id, submitter_id, status, reviewer_comments, rejection_reason,
		                             kind, week, summary, document_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := ext.ExecContext(ctx, query,
		rep.ID, rep.SubmitterID, rep.Status, rep.ReviewerComments, rep.RejectionReason,
		string(rep.Kind), rep.Week, rep.Summary, rep.DocumentRef, rep.CreatedAt, rep.UpdatedAt,
	)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "inserting report")
	}
	return rep, nil
}

func (repo *reportRepository) GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (report.Report, error) {
	ext := getExt(repo.db, exec)

	var row reportRow
	if err := sqlx.GetContext(ctx, ext, &row, `SELECT * FROM progress_report WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, errors.Wrap(err, "getting report")
	}
	return row.report(), nil
}

func (repo *reportRepository) GetWeeklyReport(ctx context.Context, submitterID string, week int, exec ...core.DBExecutor) (report.Report, error) {
	ext := getExt(repo.db, exec)

	var row reportRow
	const query = `SELECT * FROM progress_report WHERE kind = $1 AND submitter_id = $2 AND week = $3`
	if err := sqlx.GetContext(ctx, ext, &row, query, string(report.KindWeekly), submitterID, week); err != nil {
		if err == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, errors.Wrap(err, "getting weekly report")
	}
	return row.report(), nil
}

func (repo *reportRepository) FilterReports(ctx context.Context, filter *report.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]report.Report, error) {
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
		if filter.Kind != "" {
			clauses = append(clauses, fmt.Sprintf("kind = %s", arg(string(filter.Kind))))
		}
		if filter.Status != "" {
			clauses = append(clauses, fmt.Sprintf("status = %s", arg(string(filter.Status))))
		}
		if filter.Week != 0 {
			clauses = append(clauses, fmt.Sprintf("week = %s", arg(filter.Week)))
		}
	}

	query := `SELECT * FROM progress_report` + where(clauses) + orderBy(ordering, "created_at ASC")
	var rows []reportRow
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}

	reps := make([]report.Report, 0, len(rows))
	for _, row := range rows {
		reps = append(reps, row.report())
	}
	return reps, nil
}

func (repo *reportRepository) UpdateReportStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (report.Report, error) {
	ext := getExt(repo.db, exec)

	const query = `
		UPDATE progress_report
		SET status = $1, reviewer_comments = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING *`
	var row reportRow
	err := sqlx.GetContext(ctx, ext, &row, query,
		string(upd.Status), upd.ReviewerComments, upd.RejectionReason, upd.UpdatedAt, id, string(expected))
	if err != nil {
		if err == sql.ErrNoRows {
			// either the row is gone or another reviewer got there first
			if _, getErr := repo.GetReportByID(ctx, id, exec...); getErr != nil {
				return report.Report{}, getErr
			}
			return report.Report{}, workflow.ErrStatusConflict
		}
		return report.Report{}, errors.Wrap(err, "updating report status")
	}
	return row.report(), nil
}
