package auth

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	pkgAuth "github.com/angelmondragon/hostelhub-backend/pkg/auth"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPasswordCfg = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	testJWTCfg      = config.JWTConfig{Secret: "secret", Issuer: "hostelhub", ExpirationMinutes: 30}
	fixedNow        = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

type memStore struct {
	doc docstore.Document
}

func (m *memStore) Load(context.Context) (docstore.Document, error) { return m.doc, nil }

func (m *memStore) Enqueue(_ context.Context, doc docstore.Document) error {
	m.doc = doc
	return nil
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	require.NoError(t, err)
	return hash
}

func buildTestService(t *testing.T, doc docstore.Document, prov config.ProvisioningConfig) (Service, *repository.Repository) {
	t.Helper()
	store := &memStore{doc: doc}
	repo, err := repository.New(context.Background(), repository.Params{
		Store: store, Writer: store, Logger: logger.Nop(),
		Now: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:         repo,
		JWTConfig:    testJWTCfg,
		AuthConfig:   config.AuthConfig{MaxFailedLogins: 3},
		Provisioning: prov,
		Password:     testPasswordCfg,
		Logger:       logger.Nop(),
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, repo
}

// steppedRepo runs before ahead of each transaction so a test can change
// state between the login lookup and commit.
type steppedRepo struct {
	*repository.Repository
	calls  int
	before func(call int)
}

func (r *steppedRepo) Transact(ctx context.Context, collections []enums.Collection, fn func(tx *repository.Tx) error) error {
	r.calls++
	if r.before != nil {
		r.before(r.calls)
	}
	return r.Repository.Transact(ctx, collections, fn)
}

func seedDoc(t *testing.T) docstore.Document {
	doc := docstore.NewDocument()
	doc["hostels"] = []docstore.Record{
		{"id": "h1", "name": "Sunrise PG", "status": "active", "adminEmail": "owner@sunrise.co"},
		{"id": "h2", "name": "Closed Inn", "status": "inactive"},
	}
	doc["users"] = []docstore.Record{
		{"id": "u1", "email": "ravi@sunrisepg.com", "role": "tenant", "hostelId": "h1", "status": "active", "password": mustHashPassword(t, "pw-ravi")},
		{"id": "u2", "email": "meera@gmail.com", "role": "admin", "hostelId": "h1", "status": "active", "password": mustHashPassword(t, "pw-meera")},
		{"id": "u3", "email": "sam@closedinn.com", "role": "admin", "hostelId": "h2", "status": "active", "password": mustHashPassword(t, "pw-sam")},
		{"id": "u4", "email": "root@hostelhub.io", "role": "master_admin", "status": "active", "password": mustHashPassword(t, "pw-root")},
		{"id": "u5", "email": "legacy@sunrise.co", "role": "receptionist", "hostelId": "h1", "status": "active", "password": "plain-old"},
	}
	return doc
}

func TestLoginSuccessMintsToken(t *testing.T) {
	svc, repo := buildTestService(t, seedDoc(t), config.ProvisioningConfig{DomainSuffix: ".com"})
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: " RAVI@sunrisepg.com ", Password: "pw-ravi"})
	require.NoError(t, err)
	assert.NotContains(t, resp.User, "password")
	assert.Equal(t, "Bearer", resp.TokenType)

	claims, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, enums.RoleTenant, claims.Role)
	assert.Equal(t, "h1", claims.HostelID)

	stored, err := repo.Get(ctx, enums.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T10:00:00.000Z", stored.String("lastLoginAt"))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := buildTestService(t, seedDoc(t), config.ProvisioningConfig{})
	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@sunrisepg.com", Password: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginDomainMismatchIsDistinct(t *testing.T) {
	svc, repo := buildTestService(t, seedDoc(t), config.ProvisioningConfig{DomainSuffix: ".com"})
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "meera@gmail.com", Password: "wrong"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDomainMismatch))

	stored, err := repo.Get(ctx, enums.CollectionUsers, "u2")
	require.NoError(t, err)
	assert.Empty(t, stored.String("failedLoginAttempts"), "mismatch does not count as a bad password")
}

func TestLoginAllowListAdmitsDomain(t *testing.T) {
	svc, _ := buildTestService(t, seedDoc(t), config.ProvisioningConfig{DomainSuffix: ".com", AllowedDomains: "gmail.com, hostelhub.io"})
	_, err := svc.Login(context.Background(), LoginRequest{Email: "meera@gmail.com", Password: "pw-meera"})
	require.NoError(t, err)
}

func TestLoginContactDomainAccepted(t *testing.T) {
	svc, repo := buildTestService(t, seedDoc(t), config.ProvisioningConfig{DomainSuffix: ".com"})
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "legacy@sunrise.co", Password: "plain-old"})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, enums.CollectionUsers, "u5")
	require.NoError(t, err)
	assert.True(t, security.IsHashed(stored.String("password")), "plaintext upgraded on login")
}

func TestLoginMasterAdminAllowList(t *testing.T) {
	svc, _ := buildTestService(t, seedDoc(t), config.ProvisioningConfig{})
	_, err := svc.Login(context.Background(), LoginRequest{Email: "root@hostelhub.io", Password: "pw-root"})
	require.NoError(t, err, "no allow-list, no gate")

	svc, _ = buildTestService(t, seedDoc(t), config.ProvisioningConfig{AllowedDomains: "example.org"})
	_, err = svc.Login(context.Background(), LoginRequest{Email: "root@hostelhub.io", Password: "pw-root"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDomainMismatch))
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, repo := buildTestService(t, seedDoc(t), config.ProvisioningConfig{DomainSuffix: ".com"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, LoginRequest{Email: "ravi@sunrisepg.com", Password: "nope"})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	}

	stored, err := repo.Get(ctx, enums.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.True(t, stored.Bool("isLocked"))
	assert.Equal(t, "system", stored.String("lockedBy"))
	assert.Equal(t, "3", stored.String("failedLoginAttempts"))

	_, err = svc.Login(ctx, LoginRequest{Email: "ravi@sunrisepg.com", Password: "pw-ravi"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAccountLocked))

	_, err = svc.Unlock(ctx, Actor{UserID: "u2", Role: enums.RoleAdmin, HostelID: "h1"}, "u1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "ravi@sunrisepg.com", Password: "pw-ravi"})
	require.NoError(t, err)
}

func TestLoginInactiveHostelForbidden(t *testing.T) {
	svc, _ := buildTestService(t, seedDoc(t), config.ProvisioningConfig{DomainSuffix: ".com"})
	_, err := svc.Login(context.Background(), LoginRequest{Email: "sam@closedinn.com", Password: "pw-sam"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestUnlockScopedToHostel(t *testing.T) {
	svc, _ := buildTestService(t, seedDoc(t), config.ProvisioningConfig{})
	ctx := context.Background()

	_, err := svc.Unlock(ctx, Actor{UserID: "u3", Role: enums.RoleAdmin, HostelID: "h2"}, "u1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Unlock(ctx, Actor{UserID: "u1", Role: enums.RoleTenant, HostelID: "h1"}, "u1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	rec, err := svc.Unlock(ctx, Actor{UserID: "u4", Role: enums.RoleMasterAdmin}, "u1")
	require.NoError(t, err)
	assert.False(t, rec.Bool("isLocked"))
	assert.NotContains(t, rec, "password")
}

func TestLoginContactEmailDomainOfApprovedHostel(t *testing.T) {
	doc := seedDoc(t)
	doc["hostels"] = append(doc["hostels"], docstore.Record{
		"id": "h3", "name": "Lotus Stay", "status": "active",
		"contactEmail": "priya@gmail.com", "adminEmail": "priya.shah@lotusstay.com",
	})
	doc["users"] = append(doc["users"], docstore.Record{
		"id": "u6", "email": "manager@gmail.com", "role": "receptionist", "hostelId": "h3",
		"status": "active", "password": mustHashPassword(t, "pw-manager"),
	})
	svc, _ := buildTestService(t, doc, config.ProvisioningConfig{DomainSuffix: ".com"})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "manager@gmail.com", Password: "pw-manager"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "meera@gmail.com", Password: "pw-meera"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDomainMismatch), "other hostels keep their own gate")
}

func TestLoginPasswordChangedDuringCheckFailsWithoutPenalty(t *testing.T) {
	store := &memStore{doc: seedDoc(t)}
	inner, err := repository.New(context.Background(), repository.Params{
		Store: store, Writer: store, Logger: logger.Nop(),
		Now: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	ctx := context.Background()

	repo := &steppedRepo{Repository: inner}
	repo.before = func(call int) {
		if call != 2 {
			return
		}
		_, err := inner.Update(ctx, enums.CollectionUsers, "u1", docstore.Record{"password": mustHashPassword(t, "rotated")})
		require.NoError(t, err)
	}
	svc, err := NewService(ServiceParams{
		Repo:         repo,
		JWTConfig:    testJWTCfg,
		AuthConfig:   config.AuthConfig{MaxFailedLogins: 3},
		Provisioning: config.ProvisioningConfig{DomainSuffix: ".com"},
		Password:     testPasswordCfg,
		Logger:       logger.Nop(),
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "ravi@sunrisepg.com", Password: "pw-ravi"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, 2, repo.calls)

	stored, err := inner.Get(ctx, enums.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Empty(t, stored.String("failedLoginAttempts"))
	assert.Empty(t, stored.String("lastLoginAt"))

	_, err = svc.Login(ctx, LoginRequest{Email: "ravi@sunrisepg.com", Password: "rotated"})
	require.NoError(t, err)
}
