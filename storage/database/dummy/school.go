package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/school"
)

type schoolRepository struct {
	students *studentTable
	teachers *teacherTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{students: db.student, teachers: db.teacher}
}

func (repo *schoolRepository) CreateStudent(_ context.Context, st school.Student) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	st.ID = uuid.New().String()
	repo.students.table[st.ID] = &st
	return st, nil
}

func (repo *schoolRepository) GetStudentByID(_ context.Context, id string) (school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if st, ok := repo.students.table[id]; ok {
		return *st, nil
	}
	return school.Student{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter *school.QueryFilter, _ []core.DBOrdering) ([]school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	students := make([]school.Student, 0, len(repo.students.table))
	for _, st := range repo.students.table {
		if filter != nil {
			if filter.Search != "" && !matches(filter.Search, st.FirstName, st.LastName, st.Email) {
				continue
			}
			if filter.Gender != "" && st.Gender != filter.Gender {
				continue
			}
			if filter.ClassName != "" && st.ClassName != filter.ClassName {
				continue
			}
		}
		students = append(students, *st)
	}
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, st school.Student) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	if _, ok := repo.students.table[st.ID]; !ok {
		return school.Student{}, school.ErrNotFound
	}
	repo.students.table[st.ID] = &st
	return st, nil
}

func (repo *schoolRepository) DeleteStudentsByID(_ context.Context, ids []string) (int, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.students.table[id]; ok {
			delete(repo.students.table, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *schoolRepository) CreateTeacher(_ context.Context, tch school.Teacher) (school.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	tch.ID = uuid.New().String()
	repo.teachers.table[tch.ID] = &tch
	return tch, nil
}

func (repo *schoolRepository) GetTeacherByID(_ context.Context, id string) (school.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	if tch, ok := repo.teachers.table[id]; ok {
		return *tch, nil
	}
	return school.Teacher{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryTeachers(_ context.Context, filter *school.QueryFilter, _ []core.DBOrdering) ([]school.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.teachers.table))
	for _, tch := range repo.teachers.table {
		if filter != nil {
			if filter.Search != "" && !matches(filter.Search, tch.FirstName, tch.LastName, tch.Email) {
				continue
			}
			if filter.Gender != "" && tch.Gender != filter.Gender {
				continue
			}
			if filter.Subject != "" && tch.Subject != filter.Subject {
				continue
			}
		}
		teachers = append(teachers, *tch)
	}
	return teachers, nil
}

func (repo *schoolRepository) UpdateTeacher(_ context.Context, tch school.Teacher) (school.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	if _, ok := repo.teachers.table[tch.ID]; !ok {
		return school.Teacher{}, school.ErrNotFound
	}
	repo.teachers.table[tch.ID] = &tch
	return tch, nil
}

func (repo *schoolRepository) DeleteTeachersByID(_ context.Context, ids []string) (int, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.teachers.table[id]; ok {
			delete(repo.teachers.table, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *schoolRepository) Counts(_ context.Context) (school.Counts, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	counts := school.Counts{
		Students: len(repo.students.table),
		Teachers: len(repo.teachers.table),
	}
	for _, st := range repo.students.table {
		switch st.Gender {
		case school.GenderMale:
			counts.MaleStudents++
		case school.GenderFemale:
			counts.FemaleStudents++
		}
	}
	return counts, nil
}

func matches(search string, attrs ...string) bool {
	search = strings.ToLower(search)
	for _, attr := range attrs {
		if strings.Contains(strings.ToLower(attr), search) {
			return true
		}
	}
	return false
}
