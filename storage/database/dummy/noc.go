package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/noc"
	"github.com/trezcool/mafunzo/core/workflow"
)

type nocRepository struct {
	db *nocTable
}

var _ noc.Repository = (*nocRepository)(nil) // interface compliance check

func NewNOCRepository(db *DB) noc.Repository {
	return &nocRepository{db: db.noc}
}

func (repo *nocRepository) query() []noc.Request {
	reqs := make([]noc.Request, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		reqs = append(reqs, *r)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
	return reqs
}

func (repo *nocRepository) CreateRequest(ctx context.Context, req noc.Request, exec ...core.DBExecutor) (noc.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	req.ID = uuid.NewString()
	repo.db.table[req.ID] = &req
	return req, nil
}

func (repo *nocRepository) GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (noc.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.table[id]; ok {
		return *req, nil
	}
	return noc.Request{}, noc.ErrNotFound
}

func (repo *nocRepository) FilterRequests(ctx context.Context, filter *noc.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]noc.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := repo.query()
	if filter == nil {
		return reqs, nil
	}

	if filter.SubmitterID != "" {
		var filtered []noc.Request
		for _, r := range reqs {
			if r.SubmitterID == filter.SubmitterID {
				filtered = append(filtered, r)
			}
		}
		reqs = filtered
	}
	if reqs != nil && filter.Status != "" {
		var filtered []noc.Request
		for _, r := range reqs {
			if r.Status == filter.Status {
				filtered = append(filtered, r)
			}
		}
		reqs = filtered
	}
	if reqs != nil && filter.Search != "" {
		var filtered []noc.Request
		search := strings.ToLower(filter.Search)
		for _, r := range reqs {
			if strings.Contains(strings.ToLower(r.Company), search) ||
				strings.Contains(strings.ToLower(r.Role), search) {
				filtered = append(filtered, r)
			}
		}
		reqs = filtered
	}
	if reqs != nil && !filter.CreatedFrom.IsZero() {
		var filtered []noc.Request
		timeUTC := filter.CreatedFrom.UTC()
		for _, r := range reqs {
			if r.CreatedAt.Equal(timeUTC) || r.CreatedAt.After(timeUTC) {
				filtered = append(filtered, r)
			}
		}
		reqs = filtered
	}
	if reqs != nil && !filter.CreatedTo.IsZero() {
		var filtered []noc.Request
		timeUTC := filter.CreatedTo.UTC()
		for _, r := range reqs {
			if r.CreatedAt.Before(timeUTC) || r.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, r)
			}
		}
		reqs = filtered
	}

	return reqs, nil
}

func (repo *nocRepository) UpdateRequestStatus(ctx context.Context, id string, expected workflow.Status, upd workflow.StatusUpdate, exec ...core.DBExecutor) (noc.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	req, ok := repo.db.table[id]
	if !ok {
		return noc.Request{}, noc.ErrNotFound
	}
	if req.Status != expected {
		return noc.Request{}, workflow.ErrStatusConflict
	}
	req.Status = upd.Status
	req.ReviewerComments = upd.ReviewerComments
	req.RejectionReason = upd.RejectionReason
	req.UpdatedAt = upd.UpdatedAt
	return *req, nil
}
