package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/school"
)

type studentRow struct {
	ID        string      `db:"id"`
	AccountID string      `db:"account_id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Email     string      `db:"email"`
	Photo     null.String `db:"photo"`
	Gender    null.String `db:"gender"`
	ClassName null.String `db:"class_name"`
	CreatedAt null.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

type teacherRow struct {
	ID        string      `db:"id"`
	AccountID string      `db:"account_id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Email     string      `db:"email"`
	Photo     null.String `db:"photo"`
	Gender    null.String `db:"gender"`
	Subject   null.String `db:"subject"`
	CreatedAt null.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

type SchoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*SchoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *SchoolRepository) studentRow(st school.Student) studentRow {
	return studentRow{
		ID:        st.ID,
		AccountID: st.AccountID,
		FirstName: st.FirstName,
		LastName:  st.LastName,
		Email:     st.Email,
		Photo:     null.NewString(st.Photo, st.Photo != ""),
		Gender:    null.NewString(st.Gender, st.Gender != ""),
		ClassName: null.NewString(st.ClassName, st.ClassName != ""),
		CreatedAt: null.NewTime(st.CreatedAt.UTC(), !st.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(st.UpdatedAt.UTC(), !st.UpdatedAt.IsZero()),
	}
}

func (repo *SchoolRepository) unrowStudent(row studentRow) school.Student {
	return school.Student{
		ID:        row.ID,
		AccountID: row.AccountID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		Photo:     row.Photo.String,
		Gender:    row.Gender.String,
		ClassName: row.ClassName.String,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo *SchoolRepository) teacherRow(tch school.Teacher) teacherRow {
	return teacherRow{
		ID:        tch.ID,
		AccountID: tch.AccountID,
		FirstName: tch.FirstName,
		LastName:  tch.LastName,
		Email:     tch.Email,
		Photo:     null.NewString(tch.Photo, tch.Photo != ""),
		Gender:    null.NewString(tch.Gender, tch.Gender != ""),
		Subject:   null.NewString(tch.Subject, tch.Subject != ""),
		CreatedAt: null.NewTime(tch.CreatedAt.UTC(), !tch.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(tch.UpdatedAt.UTC(), !tch.UpdatedAt.IsZero()),
	}
}

func (repo *SchoolRepository) unrowTeacher(row teacherRow) school.Teacher {
	return school.Teacher{
		ID:        row.ID,
		AccountID: row.AccountID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		Photo:     row.Photo.String,
		Gender:    row.Gender.String,
		Subject:   row.Subject.String,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo *SchoolRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	st.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO student (id, account_id, first_name, last_name, email, photo, gender, class_name, created_at, updated_at)
		VALUES (:id, :account_id, :first_name, :last_name, :email, :photo, :gender, :class_name, :created_at, :updated_at)`,
		repo.studentRow(st))
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *SchoolRepository) GetStudentByID(ctx context.Context, id string) (school.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Student{}, school.ErrNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return school.Student{}, trapNoRowsErr(err, "finding student")
	}
	return repo.unrowStudent(row), nil
}

func (repo *SchoolRepository) QueryStudents(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.Student, error) {
	query := `SELECT * FROM student`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s)", p))
		}
		if filter.Gender != "" {
			conds = append(conds, fmt.Sprintf("gender = %s", arg(filter.Gender)))
		}
		if filter.ClassName != "" {
			conds = append(conds, fmt.Sprintf("class_name = %s", arg(filter.ClassName)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering)

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unrowStudent(row))
	}
	return students, nil
}

func (repo *SchoolRepository) UpdateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE student
		SET first_name = :first_name, last_name = :last_name, photo = :photo,
		    gender = :gender, class_name = :class_name, updated_at = :updated_at
		WHERE id = :id`,
		repo.studentRow(st))
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Student{}, school.ErrNotFound
	}
	return st, nil
}

func (repo *SchoolRepository) DeleteStudentsByID(ctx context.Context, ids []string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return int(cnt), nil
}

func (repo *SchoolRepository) CreateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	tch.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO teacher (id, account_id, first_name, last_name, email, photo, gender, subject, created_at, updated_at)
		VALUES (:id, :account_id, :first_name, :last_name, :email, :photo, :gender, :subject, :created_at, :updated_at)`,
		repo.teacherRow(tch))
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo *SchoolRepository) GetTeacherByID(ctx context.Context, id string) (school.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Teacher{}, school.ErrNotFound
	}
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teacher WHERE id = $1`, id); err != nil {
		return school.Teacher{}, trapNoRowsErr(err, "finding teacher")
	}
	return repo.unrowTeacher(row), nil
}

func (repo *SchoolRepository) QueryTeachers(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.Teacher, error) {
	query := `SELECT * FROM teacher`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s)", p))
		}
		if filter.Gender != "" {
			conds = append(conds, fmt.Sprintf("gender = %s", arg(filter.Gender)))
		}
		if filter.Subject != "" {
			conds = append(conds, fmt.Sprintf("subject = %s", arg(filter.Subject)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering)

	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, repo.unrowTeacher(row))
	}
	return teachers, nil
}

func (repo *SchoolRepository) UpdateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE teacher
		SET first_name = :first_name, last_name = :last_name, photo = :photo,
		    gender = :gender, subject = :subject, updated_at = :updated_at
		WHERE id = :id`,
		repo.teacherRow(tch))
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Teacher{}, school.ErrNotFound
	}
	return tch, nil
}

func (repo *SchoolRepository) DeleteTeachersByID(ctx context.Context, ids []string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM teacher WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting teachers")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting teachers")
	}
	return int(cnt), nil
}

func (repo *SchoolRepository) Counts(ctx context.Context) (school.Counts, error) {
	var counts school.Counts
	err := repo.db.GetContext(ctx, &counts, `
		SELECT
			(SELECT COUNT(*) FROM student)                        AS students,
			(SELECT COUNT(*) FROM teacher)                        AS teachers,
			(SELECT COUNT(*) FROM student WHERE gender = 'male')  AS male_students,
			(SELECT COUNT(*) FROM student WHERE gender = 'female') AS female_students`)
	if err != nil {
		return school.Counts{}, errors.Wrap(err, "counting records")
	}
	return counts, nil
}
