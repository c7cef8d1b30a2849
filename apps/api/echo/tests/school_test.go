package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/school"
	testutil "github.com/darasahq/darasa/tests"
)

type schoolFixture struct {
	app          *testApp
	adminToken   string
	teacherToken string
	studentToken string
	student      school.Student
	teacher      school.Teacher
}

func setupSchool(t *testing.T) schoolFixture {
	t.Helper()
	app := setup(t)
	ctx := context.Background()

	admin := testutil.CreateAccount(t, app.acctRepo, "Head", "Master", "admin@test.cd", "s3cr3t-pwd", account.RoleAdmin, true)
	teacherAcct := testutil.CreateAccount(t, app.acctRepo, "Ms", "Chalk", "chalk@test.cd", "s3cr3t-pwd", account.RoleTeacher, true)
	studentAcct := testutil.CreateAccount(t, app.acctRepo, "Hero", "Kid", "hero@test.cd", "s3cr3t-pwd", account.RoleStudent, true)

	if err := app.schoolSvc.CreateProfile(ctx, teacherAcct, account.ProfileFields{Gender: school.GenderFemale, Subject: "Math"}); err != nil {
		t.Fatalf("CreateProfile(): %v", err)
	}
	if err := app.schoolSvc.CreateProfile(ctx, studentAcct, account.ProfileFields{Gender: school.GenderMale, ClassName: "4A"}); err != nil {
		t.Fatalf("CreateProfile(): %v", err)
	}

	students, err := app.schoolSvc.QueryStudents(ctx, nil, nil)
	if err != nil || len(students) != 1 {
		t.Fatalf("QueryStudents() = (%v, %v)", students, err)
	}
	teachers, err := app.schoolSvc.QueryTeachers(ctx, nil, nil)
	if err != nil || len(teachers) != 1 {
		t.Fatalf("QueryTeachers() = (%v, %v)", teachers, err)
	}

	return schoolFixture{
		app:          app,
		adminToken:   getToken(t, app.authority, admin),
		teacherToken: getToken(t, app.authority, teacherAcct),
		studentToken: getToken(t, app.authority, studentAcct),
		student:      students[0],
		teacher:      teachers[0],
	}
}

func Test_schoolApi_studentQuery(t *testing.T) {
	fix := setupSchool(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students not allowed", path: "/v1/students", token: fix.studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Teachers can list", path: "/v1/students", token: fix.teacherToken,
			wantCode: http.StatusOK, wantData: marchallList(t, fix.student),
		},
		{
			name: "Admin can list", path: "/v1/students", token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, fix.student),
		},
		{
			name: "search (unknown)", path: "/v1/students?search=lol", token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "search", path: "/v1/students?search=hero", token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, fix.student),
		},
		{
			name: "Retrieve", path: "/v1/students/" + fix.student.ID, token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, fix.student),
		},
		{
			name: "Retrieve (unknown)", path: "/v1/students/nope", token: fix.adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "record not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fix.app.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_schoolApi_studentUpdate(t *testing.T) {
	fix := setupSchool(t)
	path := "/v1/students/" + fix.student.ID

	// only admin may modify
	req, rec := newAuthRequest(http.MethodPut, path, fix.teacherToken, []byte(`{"className":"5B"}`))
	fix.app.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
	checkCodeAndData(t, tt, rec)

	// invalid gender
	req, rec = newAuthRequest(http.MethodPut, path, fix.adminToken, []byte(`{"gender":"robot"}`))
	fix.app.app.ServeHTTP(rec, req)
	tt = httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"gender": "gender must be one of [male female]"})}
	checkCodeAndData(t, tt, rec)

	// partial update
	req, rec = newAuthRequest(http.MethodPut, path, fix.adminToken, []byte(`{"className":"5B"}`))
	fix.app.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var updated school.Student
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if updated.ClassName != "5B" {
		t.Errorf("ClassName = %q, want %q", updated.ClassName, "5B")
	}
	if updated.FirstName != fix.student.FirstName || updated.Email != fix.student.Email {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func Test_schoolApi_studentDestroy(t *testing.T) {
	fix := setupSchool(t)
	path := "/v1/students/" + fix.student.ID

	req, rec := newAuthRequest(http.MethodDelete, path, fix.teacherToken)
	fix.app.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
	checkCodeAndData(t, tt, rec)

	req, rec = newAuthRequest(http.MethodDelete, path, fix.adminToken)
	fix.app.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	students, err := fix.app.schoolSvc.QueryStudents(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("QueryStudents(): %v", err)
	}
	if len(students) != 0 {
		t.Errorf("len(students) = %d, want 0", len(students))
	}

	// deleting again is a 404
	req, rec = newAuthRequest(http.MethodDelete, path, fix.adminToken)
	fix.app.app.ServeHTTP(rec, req)
	tt = httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "record not found"})}
	checkCodeAndData(t, tt, rec)
}

func Test_schoolApi_teachers(t *testing.T) {
	fix := setupSchool(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/teachers", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/teachers", token: fix.teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/teachers", token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, fix.teacher),
		},
		{
			name: "subject filter (unknown)", path: "/v1/teachers?subject=Art", token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "Retrieve", path: "/v1/teachers/" + fix.teacher.ID, token: fix.adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, fix.teacher),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fix.app.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_schoolApi_counts(t *testing.T) {
	fix := setupSchool(t)

	want := school.Counts{Students: 1, Teachers: 1, MaleStudents: 1, FemaleStudents: 0}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Students not allowed", token: fix.studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Teachers can read", token: fix.teacherToken, wantCode: http.StatusOK, wantData: marchallObj(t, want)},
		{name: "Admin can read", token: fix.adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, want)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/stats/counts"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fix.app.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
