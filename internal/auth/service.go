package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/internal/users"
	pkgAuth "github.com/angelmondragon/hostelhub-backend/pkg/auth"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	lockedBySystem            = "system"
	defaultMaxFailedLogins    = 5
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Unlock(ctx context.Context, actor Actor, userID string) (docstore.Record, error)
}

type transactor interface {
	Transact(ctx context.Context, collections []enums.Collection, fn func(tx *repository.Tx) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Repo         transactor
	JWTConfig    config.JWTConfig
	AuthConfig   config.AuthConfig
	Provisioning config.ProvisioningConfig
	Password     config.PasswordConfig
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	repo     transactor
	jwtCfg   config.JWTConfig
	authCfg  config.AuthConfig
	provCfg  config.ProvisioningConfig
	password config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	authCfg := params.AuthConfig
	if authCfg.MaxFailedLogins <= 0 {
		authCfg.MaxFailedLogins = defaultMaxFailedLogins
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		jwtCfg:   params.JWTConfig,
		authCfg:  authCfg,
		provCfg:  params.Provisioning,
		password: params.Password,
		logg:     params.Logger,
		now:      now,
	}, nil
}

var loginCollections = []enums.Collection{enums.CollectionUsers, enums.CollectionHostels}

// loginCandidate is the account state read before the password check.
type loginCandidate struct {
	userID   string
	password string
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	now := s.now().UTC()

	candidate, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	// The hash check runs without collection locks held.
	valid, upgrade, err := s.checkPassword(req.Password, candidate.password)
	if err != nil {
		return nil, err
	}
	var rehashed string
	if valid && upgrade {
		if rehashed, err = security.HashPassword(req.Password, s.password); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
	}

	user, err := s.settle(ctx, candidate, valid, rehashed, now)
	if err != nil {
		return nil, err
	}

	dto := users.FromRecord(user)
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   dto.ID,
		Role:     dto.Role,
		HostelID: dto.HostelID,
		Email:    dto.Email,
		Name:     dto.Name,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	s.logg.Info(s.logg.WithUserID(ctx, dto.ID), "login succeeded")
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.jwtCfg.Expiration()),
		User:        users.Public(user),
	}, nil
}

// lookup applies the checks that precede the password: unknown email, locked
// account and the domain gate.
func (s *service) lookup(ctx context.Context, email string) (loginCandidate, error) {
	var (
		candidate loginCandidate
		loginErr  error
	)
	err := s.repo.Transact(ctx, loginCollections, func(tx *repository.Tx) error {
		rec, ok := users.FindByEmail(tx, email)
		if !ok {
			loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
			return nil
		}
		dto := users.FromRecord(rec)
		if !dto.Role.IsValid() {
			loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
			return nil
		}
		if dto.IsLocked {
			loginErr = lockedError()
			return nil
		}
		var hostel docstore.Record
		if dto.Role.IsHostelScoped() {
			hostel, _ = tx.Get(enums.CollectionHostels, dto.HostelID)
		}
		if !s.domainAllowed(dto, hostel) {
			loginErr = pkgerrors.New(pkgerrors.CodeDomainMismatch, "email domain is not permitted for this hostel")
			return nil
		}
		candidate = loginCandidate{userID: rec.ID(), password: rec.String("password")}
		return nil
	})
	if err != nil {
		return loginCandidate{}, err
	}
	if loginErr != nil {
		return loginCandidate{}, loginErr
	}
	return candidate, nil
}

// settle records the outcome of a password check. The account is read again
// and a password or lock change since lookup fails the attempt.
func (s *service) settle(ctx context.Context, candidate loginCandidate, valid bool, rehashed string, now time.Time) (docstore.Record, error) {
	var (
		user     docstore.Record
		loginErr error
	)
	err := s.repo.Transact(ctx, loginCollections, func(tx *repository.Tx) error {
		rec, err := tx.Get(enums.CollectionUsers, candidate.userID)
		if err != nil || rec.String("password") != candidate.password {
			loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
			return nil
		}
		dto := users.FromRecord(rec)
		if dto.IsLocked {
			loginErr = lockedError()
			return nil
		}
		if !valid {
			loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
			return s.recordFailure(ctx, tx, rec, now)
		}

		if dto.Status != "" && dto.Status != "active" {
			loginErr = pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
			return nil
		}
		if dto.Role.IsHostelScoped() {
			hostel, err := tx.Get(enums.CollectionHostels, dto.HostelID)
			if err != nil || hostel.String("status") != enums.HostelStatusActive.String() {
				loginErr = pkgerrors.New(pkgerrors.CodeForbidden, "hostel is not active")
				return nil
			}
		}

		rec["failedLoginAttempts"] = 0
		rec["lastLoginAt"] = docstore.FormatTime(now)
		if rehashed != "" {
			rec["password"] = rehashed
		}
		user, err = tx.Replace(enums.CollectionUsers, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	if loginErr != nil {
		return nil, loginErr
	}
	return user, nil
}

func lockedError() error {
	return pkgerrors.New(pkgerrors.CodeAccountLocked, "account is locked; contact your administrator")
}

func (s *service) Unlock(ctx context.Context, actor Actor, userID string) (docstore.Record, error) {
	role := actor.Role
	if role != enums.RoleMasterAdmin && role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can unlock accounts")
	}

	var unlocked docstore.Record
	err := s.repo.Transact(ctx, []enums.Collection{enums.CollectionUsers}, func(tx *repository.Tx) error {
		rec, err := tx.Get(enums.CollectionUsers, userID)
		if err != nil {
			return err
		}
		if role == enums.RoleAdmin && rec.HostelID() != actor.HostelID {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "users record '%s' not found", userID)
		}
		rec["isLocked"] = false
		rec["failedLoginAttempts"] = 0
		rec["unlockedAt"] = docstore.FormatTime(s.now())
		rec["unlockedBy"] = actor.UserID
		delete(rec, "lockedAt")
		delete(rec, "lockedBy")
		unlocked, err = tx.Replace(enums.CollectionUsers, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID, "unlocked_by": actor.UserID}), "account unlocked")
	return users.Public(unlocked), nil
}

func (s *service) recordFailure(ctx context.Context, tx *repository.Tx, rec docstore.Record, now time.Time) error {
	attempts := users.FailedAttempts(rec) + 1
	rec["failedLoginAttempts"] = attempts
	if attempts >= s.authCfg.MaxFailedLogins {
		rec["isLocked"] = true
		rec["lockedAt"] = docstore.FormatTime(now)
		rec["lockedBy"] = lockedBySystem
		s.logg.Warn(s.logg.WithUserID(ctx, rec.ID()), "account locked after repeated failed logins")
	}
	_, err := tx.Replace(enums.CollectionUsers, rec)
	return err
}

// domainAllowed applies the login domain gate. master_admin accounts are only
// bound by the allow-list, and only when one is configured.
func (s *service) domainAllowed(user users.UserDTO, hostel docstore.Record) bool {
	allow := s.provCfg.AllowList()
	if user.Role == enums.RoleMasterAdmin {
		if len(allow) == 0 {
			return true
		}
		return provisioning.DomainAllowed(user.Email, nil, allow, s.provCfg.DomainSuffix)
	}
	return provisioning.DomainAllowed(user.Email, hostel, allow, s.provCfg.DomainSuffix)
}

// checkPassword verifies against the stored argon2id hash. Plaintext values
// left by older data are compared in constant time and flagged for upgrade.
func (s *service) checkPassword(password, stored string) (valid bool, upgrade bool, err error) {
	if stored == "" {
		return false, false, nil
	}
	if !security.IsHashed(stored) {
		ok := subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
		return ok, ok, nil
	}
	ok, err := security.VerifyPassword(password, stored)
	if err != nil {
		return false, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	return ok, false, nil
}
