package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/internship"
	"github.com/trezcool/mafunzo/core/workflow"
)

type internshipRepository struct {
	oppDB *opportunityTable
	appDB *applicationTable
}

var _ internship.Repository = (*internshipRepository)(nil) // interface compliance check

func NewInternshipRepository(db *DB) internship.Repository {
	return &internshipRepository{oppDB: db.opportunity, appDB: db.application}
}

func (repo *internshipRepository) queryOpportunities() []internship.Opportunity {
	opps := make([]internship.Opportunity, 0, len(repo.oppDB.table))
	for _, o := range repo.oppDB.table {
		opps = append(opps, *o)
	}
	sort.Slice(opps, func(i, j int) bool { return opps[i].CreatedAt.Before(opps[j].CreatedAt) })
	return opps
}

func (repo *internshipRepository) queryApplications() []internship.Application {
	apps := make([]internship.Application, 0, len(repo.appDB.table))
	for _, a := range repo.appDB.table {
		apps = append(apps, *a)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.Before(apps[j].CreatedAt) })
	return apps
}

func (repo *internshipRepository) CreateOpportunity(ctx context.Context, opp internship.Opportunity, exec ...core.DBExecutor) (internship.Opportunity, error) {
	repo.oppDB.Lock()
	defer repo.oppDB.Unlock()

	opp.ID = uuid.NewString()
	repo.oppDB.table[opp.ID] = &opp
	return opp, nil
}

func (repo *internshipRepository) GetOpportunityByID(ctx context.Context, id string, exec ...core.DBExecutor) (internship.Opportunity, error) {
	repo.oppDB.RLock()
	defer repo.oppDB.RUnlock()

	if opp, ok := repo.oppDB.table[id]; ok {
		return *opp, nil
	}
	return internship.Opportunity{}, internship.ErrOpportunityNotFound
}

func (repo *internshipRepository) FilterOpportunities(ctx context.Context, filter *internship.OpportunityQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]internship.Opportunity, error) {
	repo.oppDB.RLock()
	defer repo.oppDB.RUnlock()

	opps := repo.queryOpportunities()
	if filter == nil {
		return opps, nil
	}

	if filter.Search != "" {
		var filtered []internship.Opportunity
		search := strings.ToLower(filter.Search)
		for _, o := range opps {
			if strings.Contains(strings.ToLower(o.Company), search) ||
				strings.Contains(strings.ToLower(o.Role), search) {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}
	if opps != nil && filter.IsOpen != nil {
		var filtered []internship.Opportunity
		for _, o := range opps {
			if o.IsOpen == *filter.IsOpen {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}
	if opps != nil && filter.Location != "" {
		var filtered []internship.Opportunity
		loc := strings.ToLower(filter.Location)
		for _, o := range opps {
			if strings.Contains(strings.ToLower(o.Location), loc) {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}
	if opps != nil && !filter.Deadline.IsZero() {
		var filtered []internship.Opportunity
		timeUTC := filter.Deadline.UTC()
		for _, o := range opps {
			if o.Deadline.After(timeUTC) {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}

	return opps, nil
}

func (repo *internshipRepository) UpdateOpportunity(ctx context.Context, opp internship.Opportunity, exec ...core.DBExecutor) (internship.Opportunity, error) {
	repo.oppDB.Lock()
	defer repo.oppDB.Unlock()

	if _, ok := repo.oppDB.table[opp.ID]; !ok {
		return internship.Opportunity{}, internship.ErrOpportunityNotFound
	}
	repo.oppDB.table[opp.ID] = &opp
	return opp, nil
}

func (repo *internshipRepository) DeleteOpportunity(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.oppDB.Lock()
	defer repo.oppDB.Unlock()

	if _, ok := repo.oppDB.table[id]; !ok {
		return internship.ErrOpportunityNotFound
	}
	delete(repo.oppDB.table, id)
	return nil
}

func (repo *internshipRepository) CreateApplication(ctx context.Context, app internship.Application, exec ...core.DBExecutor) (internship.Application, error) {
	repo.appDB.Lock()
	defer repo.appDB.Unlock()

	app.ID = uuid.NewString()
	repo.appDB.table[app.ID] = &app
	return app, nil
}

func (repo *internshipRepository) GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (internship.Application, error) {
	repo.appDB.RLock()
	defer repo.appDB.RUnlock()

	if app, ok := repo.appDB.table[id]; ok {
		return *app, nil
	}
	return internship.Application{}, internship.ErrApplicationNotFound
}

func (repo *internshipRepository) GetApplication(ctx context.Context, submitterID, opportunityID string, exec ...core.DBExecutor) (internship.Application, error) {
	repo.appDB.RLock()
	defer repo.appDB.RUnlock()

	for _, app := range repo.queryApplications() {
		if app.SubmitterID == submitterID && app.OpportunityID == opportunityID {
			return app, nil
		}
	}
	return internship.Application{}, internship.ErrApplicationNotFound
}

func (repo *internshipRepository) FilterApplications(ctx context.Context, filter *internship.ApplicationQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]internship.Application, error) {
	repo.appDB.RLock()
	defer repo.appDB.RUnlock()

	apps := repo.queryApplications()
	if filter == nil {
		return apps, nil
	}

	if filter.SubmitterID != "" {
		var filtered []internship.Application
		for _, a := range apps {
			if a.SubmitterID == filter.SubmitterID {
				filtered = append(filtered, a)
			}
		}
		apps = filtered
	}
	if apps != nil && filter.OpportunityID != "" {
		var filtered []internship.Application
		for _, a := range apps {
			if a.OpportunityID == filter.OpportunityID {
				filtered = append(filtered, a)
			}
		}
		apps = filtered
	}
	if apps != nil && filter.Status != "" {
		var filtered []internship.Application
		for _, a := range apps {
			if a.Status == filter.Status {
				filtered = append(filtered, a)
			}
		}
		apps = filtered
	}
	if apps != nil && !filter.CreatedFrom.IsZero() {
		var filtered []internship.Application
		timeUTC := filter.CreatedFrom.UTC()
		for _, a := range apps {
			if a.CreatedAt.Equal(timeUTC) || a.CreatedAt.After(timeUTC) {
				filtered = append(filtered, a)
			}
		}
		apps = filtered
	}
	if apps != nil && !filter.CreatedTo.IsZero() {
		var filtered []internship.Application
		timeUTC := filter.CreatedTo.UTC()
		for _, a := range apps {
			if a.CreatedAt.Before(timeUTC) || a.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, a)
			}
		}
		apps = filtered
	}

	return apps, nil
}

func (repo *internshipRepository) UpdateApplicationStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (internship.Application, error) {
	repo.appDB.Lock()
	defer repo.appDB.Unlock()

	app, ok := repo.appDB.table[id]
	if !ok {
		return internship.Application{}, internship.ErrApplicationNotFound
	}
	if app.Status != expected {
		return internship.Application{}, workflow.ErrStatusConflict
	}
	app.Status = upd.Status
	app.ReviewerComments = upd.ReviewerComments
	app.RejectionReason = upd.RejectionReason
	app.UpdatedAt = upd.UpdatedAt
	return *app, nil
}
