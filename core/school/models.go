package school

import (
	"time"

	"github.com/darasahq/darasa/core"
)

// Genders
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Student is the academic profile record linked to a student Account.
type Student struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Photo     string    `json:"photo,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	ClassName string    `json:"className,omitempty"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Teacher is the academic profile record linked to a teacher Account.
type Teacher struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Photo     string    `json:"photo,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Counts are the dashboard aggregates derived from the profile records.
type Counts struct {
	Students       int `json:"students" db:"students"`
	Teachers       int `json:"teachers" db:"teachers"`
	MaleStudents   int `json:"maleStudents" db:"male_students"`
	FemaleStudents int `json:"femaleStudents" db:"female_students"`
}

type QueryFilter struct {
	Search    string `query:"search"`
	Gender    string `query:"gender"`
	ClassName string `query:"class_name"`
	Subject   string `query:"subject"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Gender = core.CleanString(qf.Gender, true /* lower */)
}

// UpdateStudent defines what information may be provided to modify a Student.
type UpdateStudent struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Photo     string `json:"photo" validate:"omitempty,url"`
	Gender    string `json:"gender" validate:"omitempty,oneof=male female"`
	ClassName string `json:"className"`
}

// UpdateTeacher defines what information may be provided to modify a Teacher.
type UpdateTeacher struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Photo     string `json:"photo" validate:"omitempty,url"`
	Gender    string `json:"gender" validate:"omitempty,oneof=male female"`
	Subject   string `json:"subject"`
}
