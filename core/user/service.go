package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when taken by a user not in excludedUsers.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		secret     []byte
		now        func() time.Time
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator, conf *core.Config) *Service {
	return &Service{
		repo:       repo,
		validate:   validate,
		translator: translator,
		secret:     []byte(conf.Auth.RefreshSecretKey),
		now:        time.Now,
	}
}

// SetClock replaces the wall clock. For tests.
func (svc *Service) SetClock(now func() time.Time) {
	svc.now = now
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Validate cleans nu and applies the registration rules.
func (svc *Service) Validate(ctx context.Context, nu *NewUser) error {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return svc.checkUniqueness(ctx, nu.Username, nu.Email)
}

// Register validates nu and creates an active member.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.Validate(ctx, &nu); err != nil {
		return User{}, err
	}
	now := svc.now().UTC()
	usr := User{
		FullName:  nu.FullName,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     []string{RoleMember},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = svc.now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetRefreshToken stores the fingerprint of token on usr, revoking any previous refresh token.
func (svc *Service) SetRefreshToken(ctx context.Context, usr User, token string) (User, error) {
	fp, err := fingerprint(svc.secret, token)
	if err != nil {
		return User{}, err
	}
	usr.RefreshTokenHash = fp
	usr.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// VerifyRefreshToken checks that token is the refresh token last issued to usr.
func (svc *Service) VerifyRefreshToken(usr User, token string) error {
	return verifyFingerprint(svc.secret, usr.RefreshTokenHash, token)
}

func (svc *Service) ClearRefreshToken(ctx context.Context, usr User) (User, error) {
	usr.RefreshTokenHash = ""
	usr.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// ResetPassword sets a new password for the user matching uname (username or email).
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.RefreshTokenHash = ""
	usr.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Upsert updates or creates the user matching uname or email. Used by the admin CLI.
func (svc *Service) Upsert(ctx context.Context, fullName, uname, email, pwd string, isAdmin bool) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := svc.now().UTC()

	usr, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: uname})
	if err != nil && email != "" && core.IsNotFound(err) {
		usr, err = svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: email})
	}
	exists := err == nil
	if err != nil {
		if !core.IsNotFound(err) {
			return User{}, err
		}
		usr = User{Username: uname, Email: email, CreatedAt: now}
	}
	if name := core.CleanString(fullName); name != "" {
		usr.FullName = name
	}
	usr.Roles = []string{RoleMember}
	if isAdmin {
		usr.Roles = AllRoles
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if exists {
		return svc.repo.UpdateUser(ctx, usr)
	}
	return svc.repo.CreateUser(ctx, usr)
}
