package dummydb

import (
	"sync"

	"github.com/trezcool/mafunzo/core/internship"
	"github.com/trezcool/mafunzo/core/noc"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/user"
)

type (
	DB struct {
		user        *userTable
		noc         *nocTable
		opportunity *opportunityTable
		application *applicationTable
		report      *reportTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	nocTable struct {
		sync.RWMutex
		table map[string]*noc.Request
	}

	opportunityTable struct {
		sync.RWMutex
		table map[string]*internship.Opportunity
	}

	applicationTable struct {
		sync.RWMutex
		table map[string]*internship.Application
	}

	reportTable struct {
		sync.RWMutex
		table map[string]*report.Report
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		noc:         &nocTable{table: make(map[string]*noc.Request)},
		opportunity: &opportunityTable{table: make(map[string]*internship.Opportunity)},
		application: &applicationTable{table: make(map[string]*internship.Application)},
		report:      &reportTable{table: make(map[string]*report.Report)},
	}
	return db, nil
}
