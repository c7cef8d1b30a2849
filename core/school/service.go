package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
)

var (
	// errors
	ErrNotFound = errors.New("record not found")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []string) (int, error)

		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		DeleteTeachersByID(ctx context.Context, ids []string) (int, error)

		Counts(ctx context.Context) (Counts, error)
	}

	Service struct {
		repo Repository
	}
)

var _ account.ProfileCreator = (*Service)(nil) // interface compliance check

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateProfile creates the student/teacher record linked to a freshly
// registered Account. Roles without a profile record are a no-op.
func (svc *Service) CreateProfile(ctx context.Context, acct account.Account, fields account.ProfileFields) error {
	now := time.Now().UTC()
	switch acct.Role {
	case account.RoleStudent:
		_, err := svc.repo.CreateStudent(ctx, Student{
			AccountID: acct.ID,
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
			Email:     acct.Email,
			Photo:     acct.Photo,
			Gender:    fields.Gender,
			ClassName: fields.ClassName,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return errors.Wrap(err, "creating student profile")
	case account.RoleTeacher:
		_, err := svc.repo.CreateTeacher(ctx, Teacher{
			AccountID: acct.ID,
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
			Email:     acct.Email,
			Photo:     acct.Photo,
			Gender:    fields.Gender,
			Subject:   fields.Subject,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return errors.Wrap(err, "creating teacher profile")
	}
	return nil
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.FirstName != "" {
		st.FirstName = core.CleanString(us.FirstName)
	}
	if us.LastName != "" {
		st.LastName = core.CleanString(us.LastName)
	}
	if us.Photo != "" {
		st.Photo = us.Photo
	}
	if us.Gender != "" {
		st.Gender = us.Gender
	}
	if us.ClassName != "" {
		st.ClassName = core.CleanString(us.ClassName)
	}
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) DeleteStudents(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, ids)
	return err
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, ordering)
}

func (svc *Service) UpdateTeacher(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error) {
	tch, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if ut.FirstName != "" {
		tch.FirstName = core.CleanString(ut.FirstName)
	}
	if ut.LastName != "" {
		tch.LastName = core.CleanString(ut.LastName)
	}
	if ut.Photo != "" {
		tch.Photo = ut.Photo
	}
	if ut.Gender != "" {
		tch.Gender = ut.Gender
	}
	if ut.Subject != "" {
		tch.Subject = core.CleanString(ut.Subject)
	}
	tch.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, tch)
}

func (svc *Service) DeleteTeachers(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteTeachersByID(ctx, ids)
	return err
}

func (svc *Service) Counts(ctx context.Context) (Counts, error) {
	return svc.repo.Counts(ctx)
}
