package account_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/school"
	emailsvc "github.com/darasahq/darasa/services/email"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
	testutil "github.com/darasahq/darasa/tests"
)

type testDeps struct {
	conf      *core.Config
	acctRepo  account.Repository
	schoolSvc *school.Service
	authority *account.TokenAuthority
	svc       *account.Service
}

func setup(t *testing.T) testDeps {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	conf := testutil.NewConfig()
	acctRepo := dummydb.NewAccountRepository(db)
	schoolSvc := school.NewService(dummydb.NewSchoolRepository(db))
	authority := testutil.NewTokenAuthority(conf)
	mailSvc := emailsvc.NewConsoleServiceMock()
	emailsvc.ClearSentMessages()

	svc := account.NewService(acctRepo, schoolSvc, authority, mailSvc, conf, testutil.NewLogger())
	return testDeps{
		conf:      conf,
		acctRepo:  acctRepo,
		schoolSvc: schoolSvc,
		authority: authority,
		svc:       svc,
	}
}

// failingProfiles breaks profile creation to exercise registration rollback.
type failingProfiles struct{}

func (failingProfiles) CreateProfile(context.Context, account.Account, account.ProfileFields) error {
	return errors.New("profile store is down")
}

func TestService_Register(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	na := account.NewAccount{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@test.cd",
		Password:  "s3cr3t-pwd",
		Role:      account.RoleStudent,
		ProfileFields: account.ProfileFields{
			Gender:    school.GenderFemale,
			ClassName: "4A",
		},
	}
	acct, token, err := deps.svc.Register(ctx, na)
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	if acct.ID == "" {
		t.Error("registered account has no ID")
	}
	if acct.Deactivated() {
		t.Error("registered account should be active")
	}

	// the returned token must authenticate as the new account
	claims, err := deps.authority.Verify(token)
	if err != nil {
		t.Fatalf("Verify(): %v", err)
	}
	if claims.Subject != acct.ID || claims.Role != account.RoleStudent {
		t.Errorf("claims = (%q, %q), want (%q, %q)", claims.Subject, claims.Role, acct.ID, account.RoleStudent)
	}

	// a linked student profile must exist
	students, err := deps.schoolSvc.QueryStudents(ctx, nil, nil)
	if err != nil {
		t.Fatalf("QueryStudents(): %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("len(students) = %d, want 1", len(students))
	}
	if students[0].AccountID != acct.ID {
		t.Errorf("student.AccountID = %q, want %q", students[0].AccountID, acct.ID)
	}
	if students[0].ClassName != "4A" {
		t.Errorf("student.ClassName = %q, want %q", students[0].ClassName, "4A")
	}

	// welcome email
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("len(SentMessages) = %d, want 1", len(emailsvc.SentMessages))
	}
}

func TestService_Register_duplicateEmail(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	na := account.NewAccount{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@test.cd",
		Password:  "s3cr3t-pwd",
		Role:      account.RoleParent,
	}
	if _, _, err := deps.svc.Register(ctx, na); err != nil {
		t.Fatalf("Register(): %v", err)
	}

	na.FirstName = "Janet"
	_, _, err := deps.svc.Register(ctx, na)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Register() error = %v, want *core.ValidationError", err)
	}

	// only the first registration survives
	accts, err := deps.acctRepo.QueryAccounts(ctx, nil, nil)
	if err != nil {
		t.Fatalf("QueryAccounts(): %v", err)
	}
	if len(accts) != 1 {
		t.Fatalf("len(accts) = %d, want 1", len(accts))
	}
	if accts[0].FirstName != "Jane" {
		t.Errorf("surviving account FirstName = %q, want %q", accts[0].FirstName, "Jane")
	}
}

func TestService_Register_rollbackOnProfileFailure(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	svc := account.NewService(
		deps.acctRepo,
		failingProfiles{},
		deps.authority,
		emailsvc.NewConsoleServiceMock(),
		deps.conf,
		testutil.NewLogger(),
	)

	na := account.NewAccount{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@test.cd",
		Password:  "s3cr3t-pwd",
		Role:      account.RoleTeacher,
	}
	_, _, err := svc.Register(ctx, na)
	if err == nil {
		t.Fatal("Register() should fail when profile creation fails")
	}

	// the account must have been deleted again
	accts, err := deps.acctRepo.QueryAccounts(ctx, nil, nil)
	if err != nil {
		t.Fatalf("QueryAccounts(): %v", err)
	}
	if len(accts) != 0 {
		t.Errorf("len(accts) = %d, want 0", len(accts))
	}

	// a parent does not need a profile; the same service must succeed
	na.Role = account.RoleParent
	if _, _, err = svc.Register(ctx, na); err != nil {
		t.Errorf("Register() without profile: %v", err)
	}
}

func TestService_Login(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	testutil.CreateAccount(t, deps.acctRepo, "Jane", "Doe", "jane@test.cd", "s3cr3t-pwd", account.RoleAdmin, true)
	testutil.CreateAccount(t, deps.acctRepo, "N", "Dog", "ndog@test.cd", "s3cr3t-pwd", account.RoleStudent, false)

	tests := []struct {
		name    string
		creds   account.Credentials
		wantErr error
	}{
		{name: "unknown email", creds: account.Credentials{Email: "who@test.cd", Password: "s3cr3t-pwd"}, wantErr: account.ErrNotFound},
		{name: "wrong password", creds: account.Credentials{Email: "jane@test.cd", Password: "nope"}, wantErr: account.ErrInvalidCredentials},
		{name: "deactivated", creds: account.Credentials{Email: "ndog@test.cd", Password: "s3cr3t-pwd"}, wantErr: account.ErrDeactivated},
		{name: "ok", creds: account.Credentials{Email: "jane@test.cd", Password: "s3cr3t-pwd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, token, err := deps.svc.Login(ctx, tt.creds)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Login() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if token == "" {
					t.Error("Login() returned an empty token")
				}
				if acct.LastLogin.IsZero() {
					t.Error("Login() did not set LastLogin")
				}
			}
		})
	}
}

func TestService_Login_emailIsExactMatch(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	testutil.CreateAccount(t, deps.acctRepo, "Jane", "Doe", "Jane@Test.cd", "s3cr3t-pwd", account.RoleAdmin, true)

	// emails are stored as provided; lookup is exact-match on the stored form
	if _, _, err := deps.svc.Login(ctx, account.Credentials{Email: "jane@test.cd", Password: "s3cr3t-pwd"}); errors.Cause(err) != account.ErrNotFound {
		t.Errorf("Login() with differently-cased email error = %v, wantErr %v", err, account.ErrNotFound)
	}
	if _, _, err := deps.svc.Login(ctx, account.Credentials{Email: "Jane@Test.cd", Password: "s3cr3t-pwd"}); err != nil {
		t.Errorf("Login() with stored form: %v", err)
	}
}

func TestService_Refresh(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	acct := testutil.CreateAccount(t, deps.acctRepo, "Jane", "Doe", "jane@test.cd", "s3cr3t-pwd", account.RoleAdmin, true)
	naughty := testutil.CreateAccount(t, deps.acctRepo, "N", "Dog", "ndog@test.cd", "s3cr3t-pwd", account.RoleStudent, false)

	if token, err := deps.svc.Refresh(ctx, deps.authority.Claims(acct)); err != nil || token == "" {
		t.Errorf("Refresh() = (%q, %v), want a fresh token", token, err)
	}

	if _, err := deps.svc.Refresh(ctx, deps.authority.Claims(naughty)); errors.Cause(err) != account.ErrDeactivated {
		t.Errorf("Refresh() for deactivated account error = %v, wantErr %v", err, account.ErrDeactivated)
	}

	// past the refresh window
	stale := deps.authority.Claims(acct, time.Now().Add(-2*deps.conf.Server.JWTRefreshExpirationDelta).Unix())
	if _, err := deps.svc.Refresh(ctx, stale); errors.Cause(err) != account.ErrTokenExpired {
		t.Errorf("Refresh() past window error = %v, wantErr %v", err, account.ErrTokenExpired)
	}
}

var resetURLRegex = regexp.MustCompile(`/password-reset/(?P<uid>[\w-]+)/(?P<token>[\w-]+)`)

func TestService_PasswordReset(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	acct := testutil.CreateAccount(t, deps.acctRepo, "Jane", "Doe", "jane@test.cd", "old-pwd-123", account.RoleParent, true)

	if err := deps.svc.RequestPasswordReset(ctx, "who@test.cd"); errors.Cause(err) != account.ErrNotFound {
		t.Errorf("RequestPasswordReset() for unknown email error = %v, wantErr %v", err, account.ErrNotFound)
	}

	if err := deps.svc.RequestPasswordReset(ctx, acct.Email); err != nil {
		t.Fatalf("RequestPasswordReset(): %v", err)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("len(SentMessages) = %d, want 1", len(emailsvc.SentMessages))
	}

	match := resetURLRegex.FindStringSubmatch(emailsvc.SentMessages[0].Body)
	if match == nil {
		t.Fatalf("no reset URL in email body:\n%s", emailsvc.SentMessages[0].Body)
	}
	uid, token := match[1], match[2]

	if err := deps.svc.ResetPassword(ctx, account.ResetAccountPassword{
		UID:             uid,
		Token:           "tampered-token",
		Password:        "new-pwd-123",
		PasswordConfirm: "new-pwd-123",
	}); err == nil {
		t.Error("ResetPassword() with a tampered token should fail")
	}

	if err := deps.svc.ResetPassword(ctx, account.ResetAccountPassword{
		UID:             uid,
		Token:           token,
		Password:        "new-pwd-123",
		PasswordConfirm: "new-pwd-123",
	}); err != nil {
		t.Fatalf("ResetPassword(): %v", err)
	}

	refreshed, err := deps.svc.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if err = refreshed.CheckPassword("new-pwd-123"); err != nil {
		t.Errorf("CheckPassword() with new password: %v", err)
	}
	if err = refreshed.CheckPassword("old-pwd-123"); err == nil {
		t.Error("old password should no longer verify")
	}

	// the hash changed, so the token is single-use
	if err = deps.svc.ResetPassword(ctx, account.ResetAccountPassword{
		UID:             uid,
		Token:           token,
		Password:        "another-pwd-123",
		PasswordConfirm: "another-pwd-123",
	}); err == nil {
		t.Error("ResetPassword() should reject an already-used token")
	}
}
