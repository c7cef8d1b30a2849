package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeactivated        = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Account) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		// QueryAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on names or email.
		QueryAccounts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		DeleteAccountsByID(ctx context.Context, ids []string) (int, error)
	}

	// ProfileCreator creates the linked profile record for roles that require
	// one (student, teacher). It is the resource-store side of registration.
	ProfileCreator interface {
		CreateProfile(ctx context.Context, acct Account, fields ProfileFields) error
	}

	Service struct {
		repo      Repository
		profiles  ProfileCreator
		authority *TokenAuthority
		mailSvc   core.EmailService
		conf      *core.Config
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	profiles ProfileCreator,
	authority *TokenAuthority,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		profiles:  profiles,
		authority: authority,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
	}
}

func (svc *Service) checkUniqueness(email string, excl ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excl...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates an Account, its linked profile record when the role
// requires one, and returns the account together with a fresh token.
//
// When profile creation fails after the account was persisted, the account is
// deleted again before the error is surfaced: either both records exist or
// neither does.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, string, error) {
	if err := svc.checkUniqueness(na.Email); err != nil {
		return Account{}, "", err
	}

	now := time.Now().UTC()
	acct := Account{
		FirstName: na.FirstName,
		LastName:  na.LastName,
		Email:     na.Email,
		Role:      na.Role,
		Photo:     na.Photo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	acct.SetActive(true)
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, "", errors.Wrap(err, "hashing password")
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			// lost the race to a concurrent registration; the storage-level
			// unique index is the arbiter
			return Account{}, "", core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Account{}, "", errors.Wrap(err, "creating account")
	}

	if acct.IsStudent() || acct.IsTeacher() {
		if err = svc.profiles.CreateProfile(ctx, acct, na.ProfileFields); err != nil {
			if _, delErr := svc.repo.DeleteAccountsByID(ctx, []string{acct.ID}); delErr != nil {
				// the original error is what the caller gets; the failed
				// rollback must still be visible to operators
				svc.logger.Error("rolling back account after profile creation failure", delErr, acct)
			}
			return Account{}, "", errors.Wrap(err, "creating linked profile")
		}
	}

	token, err := svc.authority.Issue(svc.authority.Claims(acct))
	if err != nil {
		return Account{}, "", errors.Wrap(err, "signing token")
	}

	svc.sendWelcomeEmail(acct)
	return acct, token, nil
}

// Login authenticates credentials and returns the account with a fresh token.
func (svc *Service) Login(ctx context.Context, creds Credentials) (Account, string, error) {
	acct, err := svc.repo.GetAccount(ctx, GetFilter{Email: creds.Email})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, "", ErrNotFound
		}
		return Account{}, "", errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(creds.Password); err != nil {
		return Account{}, "", ErrInvalidCredentials
	}
	if acct.Deactivated() {
		return Account{}, "", ErrDeactivated
	}

	acct, err = svc.SetLastLogin(ctx, acct)
	if err != nil {
		return Account{}, "", errors.Wrap(err, "setting lastLogin")
	}

	token, err := svc.authority.Issue(svc.authority.Claims(acct))
	if err != nil {
		return Account{}, "", errors.Wrap(err, "signing token")
	}
	return acct, token, nil
}

// Refresh re-issues a token for the account behind claims, preserving the
// original issue time so the refresh window stays bounded.
func (svc *Service) Refresh(ctx context.Context, claims *Claims) (string, error) {
	acct, err := svc.GetByID(ctx, claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "finding account by ID")
	}
	if acct.Deactivated() {
		return "", ErrDeactivated
	}
	if svc.authority.RefreshWindowExpired(claims) {
		return "", ErrTokenExpired
	}
	return svc.authority.Issue(svc.authority.Claims(acct, claims.OrigIssuedAt))
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, filter, ordering)
}

func (svc *Service) SetLastLogin(ctx context.Context, acct Account) (Account, error) {
	acct.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

// RequestPasswordReset emails a signed reset link to the account behind email.
// ErrNotFound is returned untouched so callers can choose not to reveal it.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email)})
	if err != nil {
		return err
	}
	if acct.Deactivated() {
		return ErrNotFound
	}

	token := svc.makeResetToken(acct)
	url := fmt.Sprintf("%s/password-reset/%s/%s", svc.conf.FrontendBaseURL, EncodeUID(acct), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: acct.FullName(), Address: acct.Email}},
		Subject: "Password Reset",
		Body: fmt.Sprintf(
			"Hi %s,\n\nFollow the link below to reset your password. "+
				"It expires in %v.\n\n%s\n", acct.FirstName, svc.conf.Server.PasswordResetTimeoutDelta, url),
	})
	return nil
}

// ResetPassword sets a new password after verifying the emailed reset token.
func (svc *Service) ResetPassword(ctx context.Context, data ResetAccountPassword) error {
	uid, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(errResetTokenInvalid)
	}
	acct, err := svc.repo.GetAccount(ctx, GetFilter{ID: uid})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errResetTokenInvalid)
		}
		return errors.Wrap(err, "finding account by ID")
	}

	if err = svc.verifyResetToken(acct, data.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = acct.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	acct.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateAccount(ctx, acct); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return nil
}

func (svc *Service) sendWelcomeEmail(acct Account) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: acct.FullName(), Address: acct.Email}},
		Subject: "Welcome to " + svc.conf.AppName,
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s %s account is ready. Sign in at %s.\n",
			acct.FirstName, svc.conf.AppName, acct.Role, svc.conf.FrontendBaseURL),
	})
}
