package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/auth"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "hostelhub", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, role enums.Role, hostelID string) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:   "1772359200000",
		Role:     role,
		HostelID: hostelID,
		Email:    "anil.sharma@sunrisepg.com",
		Name:     "Anil Sharma",
	})
	require.NoError(t, err)
	return token
}

func captureIdentity(dst *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	var id Identity
	handler := Auth(testJWT, nil)(captureIdentity(&id))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	var id Identity
	handler := Auth(testJWT, nil)(captureIdentity(&id))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsIdentity(t *testing.T) {
	var id Identity
	handler := Auth(testJWT, nil)(captureIdentity(&id))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, enums.RoleAdmin, "h1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "1772359200000", id.UserID)
	assert.Equal(t, enums.RoleAdmin, id.Role)
	assert.Equal(t, "h1", id.HostelID)
	assert.Equal(t, "Anil Sharma", id.Name)
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	var id Identity
	handler := OptionalAuth(testJWT, nil)(captureIdentity(&id))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/hostelRequests", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, id.UserID)
}

func TestQueryTokenAuth(t *testing.T) {
	var id Identity
	token := mintTestToken(t, enums.RoleTenant, "h1")

	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(captureIdentity(&id)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/ws?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "header auth must ignore the query token")

	resp = httptest.NewRecorder()
	QueryTokenAuth(testJWT, nil)(captureIdentity(&id)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.RoleTenant, id.Role)
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(nil, enums.RoleMasterAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name string
		id   Identity
		want int
	}{
		{"anonymous", Identity{}, http.StatusUnauthorized},
		{"admin", Identity{UserID: "u1", Role: enums.RoleAdmin, HostelID: "h1"}, http.StatusForbidden},
		{"master", Identity{UserID: "u0", Role: enums.RoleMasterAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), tc.id))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			assert.Equal(t, tc.want, resp.Code)
		})
	}
}
