package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/workflow"
)

type reportRepository struct {
	db *reportTable
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db.report}
}

func (repo *reportRepository) query() []report.Report {
	reps := make([]report.Report, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		reps = append(reps, *r)
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i].CreatedAt.Before(reps[j].CreatedAt) })
	return reps
}

func (repo *reportRepository) CreateReport(ctx context.Context, rep report.Report, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep.ID = uuid.NewString()
	repo.db.table[rep.ID] = &rep
	return rep, nil
}

func (repo *reportRepository) GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rep, ok := repo.db.table[id]; ok {
		return *rep, nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) GetWeeklyReport(ctx context.Context, submitterID string, week int, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rep := range repo.query() {
		if rep.Kind == report.KindWeekly && rep.SubmitterID == submitterID && rep.Week == week {
			return rep, nil
		}
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) FilterReports(ctx context.Context, filter *report.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reps := repo.query()
	if filter == nil {
		return reps, nil
	}

	if filter.SubmitterID != "" {
		var filtered []report.Report
		for _, r := range reps {
			if r.SubmitterID == filter.SubmitterID {
				filtered = append(filtered, r)
			}
		}
		reps = filtered
	}
	if reps != nil && filter.Kind != "" {
		var filtered []report.Report
		for _, r := range reps {
			if r.Kind == filter.Kind {
				filtered = append(filtered, r)
			}
		}
		reps = filtered
	}
	if reps != nil && filter.Status != "" {
		var filtered []report.Report
		for _, r := range reps {
			if r.Status == filter.Status {
				filtered = append(filtered, r)
			}
		}
		reps = filtered
	}
	if reps != nil && filter.Week != 0 {
		var filtered []report.Report
		for _, r := range reps {
			if r.Week == filter.Week {
				filtered = append(filtered, r)
			}
		}
		reps = filtered
	}

	return reps, nil
}

func (repo *reportRepository) UpdateReportStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep, ok := repo.db.table[id]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	if rep.Status != expected {
		return report.Report{}, workflow.ErrStatusConflict
	}
	rep.Status = upd.Status
	rep.ReviewerComments = upd.ReviewerComments
	rep.RejectionReason = upd.RejectionReason
	rep.UpdatedAt = upd.UpdatedAt
	return *rep, nil
}
