// Package dummydb provides in-memory repositories for tests and local
// development without a running Postgres.
package dummydb

import (
	"sync"

	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/school"
)

type (
	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*school.Student
	}

	teacherTable struct {
		sync.RWMutex
		table map[string]*school.Teacher
	}

	DB struct {
		account *accountTable
		student *studentTable
		teacher *teacherTable
	}
)

func Open() (*DB, error) {
	db := &DB{
		account: &accountTable{table: make(map[string]*account.Account)},
		student: &studentTable{table: make(map[string]*school.Student)},
		teacher: &teacherTable{table: make(map[string]*school.Teacher)},
	}
	return db, nil
}
