package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hostelhub-backend/api/controllers"
	"github.com/angelmondragon/hostelhub-backend/internal/auth"
	"github.com/angelmondragon/hostelhub-backend/internal/complaints"
	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/entities"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	pkgAuth "github.com/angelmondragon/hostelhub-backend/pkg/auth"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
)

var (
	testJWT      = config.JWTConfig{Secret: "test-secret", Issuer: "hostelhub", ExpirationMinutes: 60}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	testProv     = config.ProvisioningConfig{DomainSuffix: ".com", TrialDays: 30, PasswordLength: 12}
)

type memStore struct {
	mu  sync.Mutex
	doc docstore.Document
}

func (m *memStore) Load(context.Context) (docstore.Document, error) { return m.doc, nil }

func (m *memStore) Enqueue(_ context.Context, doc docstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	handler http.Handler
	log     *notifications.Log
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	logg := logger.Nop()
	doc := docstore.NewDocument()
	doc["hostels"] = []docstore.Record{
		{"id": "h1", "name": "Sunrise PG", "status": "active", "domain": "sunrisepg.com"},
	}
	doc["users"] = []docstore.Record{
		{"id": "u-master", "name": "Meera", "email": "meera@hostelhub.com", "role": "master_admin", "password": "Master@123"},
	}
	store := &memStore{doc: doc}
	repo, err := repository.New(context.Background(), repository.Params{Store: store, Writer: store, Logger: logg})
	require.NoError(t, err)

	hub := notifications.NewHub(notifications.HubParams{Logger: logg})
	log := notifications.NewLog(50, nil)
	subs := notifications.NewSubscriptionRegistry(nil)
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Hub:           hub,
		Subscriptions: subs,
		Log:           log,
		Directory:     notifications.NewUserDirectory(repo),
		Logger:        logg,
	})
	require.NoError(t, err)

	prov, err := provisioning.NewProvisioner(provisioning.ProvisionerParams{Config: testProv, Password: testPassword, Logger: logg})
	require.NoError(t, err)
	complaintSvc, err := complaints.NewService(complaints.ServiceParams{Repo: repo, Publisher: dispatcher, Logger: logg})
	require.NoError(t, err)
	entitySvc, err := entities.NewService(entities.ServiceParams{
		Repo:        repo,
		Provisioner: prov,
		Complaints:  complaintSvc,
		Publisher:   dispatcher,
		Password:    testPassword,
		Logger:      logg,
	})
	require.NoError(t, err)
	approvals, err := provisioning.NewApprovalService(provisioning.ApprovalParams{Repo: repo, Provisioner: prov, Publisher: dispatcher, Logger: logg})
	require.NoError(t, err)
	authSvc, err := auth.NewService(auth.ServiceParams{
		Repo:         repo,
		JWTConfig:    testJWT,
		Provisioning: testProv,
		Password:     testPassword,
		Logger:       logg,
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	cfg := &config.Config{
		App:           config.AppConfig{Env: "test", CORSOrigins: "*"},
		JWT:           testJWT,
		AuthRateLimit: config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 100, LoginEmailLimit: 3},
	}
	handler := NewRouter(cfg, logg, Dependencies{
		Entities:      entitySvc,
		Complaints:    complaintSvc,
		Approvals:     approvals,
		Auth:          authSvc,
		Hub:           hub,
		Log:           log,
		Subscriptions: subs,
		Pingers:       map[string]controllers.Pinger{"store": okPinger{}},
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Gatherer:      reg,
	})
	return testServer{handler: handler, log: log}
}

func token(t *testing.T, userID string, role enums.Role, hostelID string) string {
	t.Helper()
	tok, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role, HostelID: hostelID, Name: "Test User"})
	require.NoError(t, err)
	return tok
}

func (s testServer) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	var envelope map[string]any
	if resp.Body.Len() > 0 && resp.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	}
	return resp, envelope
}

func errorCode(envelope map[string]any) string {
	e, _ := envelope["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := srv.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-HostelHub-Env"))

	resp, body := srv.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["checks"].(map[string]any)["store"])
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}, JWT: testJWT}
	handler := NewRouter(cfg, logger.Nop(), Dependencies{Pingers: map[string]controllers.Pinger{"redis": failingPinger{}}})
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestLoginThenListHostels(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "meera@hostelhub.com", "password": "Master@123",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := body["data"].(map[string]any)
	accessToken := data["accessToken"].(string)
	require.NotEmpty(t, accessToken)
	assert.NotContains(t, data["user"], "password")

	resp, body = srv.do(t, http.MethodGet, "/api/hostels", accessToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, body["data"], 1)
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "meera@hostelhub.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestLoginRateLimitedPerEmail(t *testing.T) {
	srv := newTestServer(t)
	var resp *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		resp, _ = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "someone@sunrisepg.com", "password": "guess",
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestAnonymousAccess(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, body = srv.do(t, http.MethodPost, "/api/hostelRequests", "", map[string]any{
		"hostelName": "Green Nest", "name": "Kiran Rao", "email": "kiran@greennest.com", "phone": "9876543210",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	record := body["data"].(map[string]any)["record"].(map[string]any)
	assert.Equal(t, "pending", record["status"])
}

func TestUnknownCollectionIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, http.MethodGet, "/api/widgets", token(t, "u-master", enums.RoleMasterAdmin, ""), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRoomLifecycleAndDeleteOverride(t *testing.T) {
	srv := newTestServer(t)
	admin := token(t, "u-admin", enums.RoleAdmin, "h1")
	recep := token(t, "u-recep", enums.RoleReceptionist, "h1")

	resp, body := srv.do(t, http.MethodPost, "/api/rooms", admin, map[string]any{"roomNumber": "R101", "rent": "6500", "capacity": 2})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	room := body["data"].(map[string]any)["record"].(map[string]any)
	assert.Equal(t, "h1", room["hostelId"])
	roomID := room["id"].(string)

	resp, body = srv.do(t, http.MethodPost, "/api/rooms", admin, map[string]any{"roomNumber": "R101"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", errorCode(body))

	resp, _ = srv.do(t, http.MethodPut, "/api/rooms/"+roomID, recep, map[string]any{"floor": 1})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, body = srv.do(t, http.MethodDelete, "/api/rooms/"+roomID+"?override=true", recep, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, _ = srv.do(t, http.MethodDelete, "/api/rooms/"+roomID, admin, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, _ = srv.do(t, http.MethodGet, "/api/rooms/"+roomID, admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHostelRequestApprovalRequiresMaster(t *testing.T) {
	srv := newTestServer(t)
	_, body := srv.do(t, http.MethodPost, "/api/hostelRequests", "", map[string]any{
		"hostelName": "Green Nest", "name": "Kiran Rao", "email": "kiran@greennest.com", "phone": "9876543210",
	})
	requestID := body["data"].(map[string]any)["record"].(map[string]any)["id"].(string)

	resp, _ := srv.do(t, http.MethodPost, "/api/hostelRequests/"+requestID+"/approve", token(t, "u-admin", enums.RoleAdmin, "h1"), nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, body = srv.do(t, http.MethodPost, "/api/hostelRequests/"+requestID+"/approve", token(t, "u-master", enums.RoleMasterAdmin, ""), nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
	data := body["data"].(map[string]any)
	creds := data["credentials"].(map[string]any)
	assert.NotEmpty(t, creds["password"])
	assert.Equal(t, "approved", data["request"].(map[string]any)["status"])

	resp, body = srv.do(t, http.MethodPost, "/api/hostelRequests/"+requestID+"/reject", token(t, "u-master", enums.RoleMasterAdmin, ""), nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "STATE_CONFLICT", errorCode(body))
}

func TestComplaintRoutesNotifyAdmins(t *testing.T) {
	srv := newTestServer(t)
	master := token(t, "u-master", enums.RoleMasterAdmin, "")
	resp, body := srv.do(t, http.MethodPost, "/api/users", master, map[string]any{
		"name": "Anil", "email": "anil@sunrisepg.com", "role": "admin", "hostelId": "h1", "password": "Admin@123",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	adminUser := body["data"].(map[string]any)["record"].(map[string]any)
	assert.NotContains(t, adminUser, "password")
	admin := token(t, adminUser["id"].(string), enums.RoleAdmin, "h1")

	tenant := token(t, "u-tenant", enums.RoleTenant, "h1")
	resp, body = srv.do(t, http.MethodPost, "/api/complaints", tenant, map[string]any{"title": "Leaking tap", "description": "Bathroom tap drips"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	complaintID := body["data"].(map[string]any)["record"].(map[string]any)["id"].(string)

	resp, _ = srv.do(t, http.MethodPost, "/api/complaints/"+complaintID+"/status", tenant, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	resp, body = srv.do(t, http.MethodPost, "/api/complaints/"+complaintID+"/status", admin, map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "open", data["from"])
	assert.Equal(t, "in-progress", data["to"])

	resp, body = srv.do(t, http.MethodPost, "/api/complaints/"+complaintID+"/status", admin, map[string]any{"status": "open"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "STATE_CONFLICT", errorCode(body))

	resp, body = srv.do(t, http.MethodGet, "/api/notifications", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	items := body["data"].(map[string]any)["items"].([]any)
	require.NotEmpty(t, items)
	assert.Equal(t, "complaint.created", items[len(items)-1].(map[string]any)["event"])
}

func TestNotificationRoutes(t *testing.T) {
	srv := newTestServer(t)
	tenant := token(t, "u-tenant", enums.RoleTenant, "h1")
	entry := srv.log.Append("u-tenant", notifications.Message{ID: "n1", Event: enums.NotificationNoticeCreated, Title: "New Notice", Body: "Water off at 10am"})

	resp, body := srv.do(t, http.MethodGet, "/api/notifications?unreadOnly=true", tenant, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 1, data["unread"])
	assert.Len(t, data["items"], 1)

	resp, _ = srv.do(t, http.MethodPost, "/api/notifications/"+entry.ID+"/read", tenant, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp, _ = srv.do(t, http.MethodPost, "/api/notifications/missing/read", tenant, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, _ = srv.do(t, http.MethodPost, "/api/notifications/subscriptions", tenant, map[string]any{"token": "fcm-token-1", "platform": "android"})
	assert.Equal(t, http.StatusCreated, resp.Code)
	resp, _ = srv.do(t, http.MethodDelete, "/api/notifications/subscriptions", tenant, map[string]any{"token": "fcm-token-1"})
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp, _ = srv.do(t, http.MethodDelete, "/api/notifications/subscriptions", tenant, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, _ = srv.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPaymentSummaryRoute(t *testing.T) {
	srv := newTestServer(t)
	admin := token(t, "u-admin", enums.RoleAdmin, "h1")
	for _, amount := range []string{"4500.25", "5000.25"} {
		resp, _ := srv.do(t, http.MethodPost, "/api/payments", admin, map[string]any{"amount": amount, "month": 3, "year": 2026, "status": "paid"})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}
	resp, body := srv.do(t, http.MethodGet, "/api/payments/summary?month=3&year=2026", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "9500.50", data["total"])
	assert.Equal(t, "9500.50", data["collected"])

	resp, _ = srv.do(t, http.MethodGet, "/api/payments/summary?month=13", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodGet, "/health/live", "", nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	srv.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "hostelhub_http_requests_total")
}
