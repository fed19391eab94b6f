package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"accountd/internal/auth"
	"accountd/internal/domain"
	"accountd/internal/repository/sqlite"
	"accountd/internal/service"
	"accountd/internal/storage"
	"accountd/internal/store"
)

type fakeExporter struct {
	users []domain.User
}

func (f *fakeExporter) UploadSnapshot(_ context.Context, users []domain.User, bucket, keyPrefix string) (storage.ExportResult, error) {
	f.users = users
	return storage.ExportResult{Location: "s3://" + bucket + "/" + keyPrefix + "/test.json", Count: len(users)}, nil
}

type testEnv struct {
	router   *gin.Engine
	users    *store.UserStore
	exporter *fakeExporter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	users := store.NewUserStore(repo, store.NewNotifier(logger))
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	accounts := service.NewAccountService(users, hasher, logger)
	authsvc := service.NewAuthService(users, hasher)
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	exporter := &fakeExporter{}

	router := gin.New()
	handler := NewHandler(accounts, authsvc, users, tokens, exporter, "test-bucket", "accounts", logger)
	handler.RegisterRoutes(router)

	return &testEnv{router: router, users: users, exporter: exporter}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) domain.Representation {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/register", "", gin.H{
		"email": email, "name": "Test", "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rep domain.Representation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	return rep
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", "", gin.H{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *testEnv) promote(t *testing.T, id int64, role domain.Role) {
	t.Helper()
	user, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	updated := *user
	updated.Role = role
	require.NoError(t, e.users.Update(context.Background(), &updated))
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	rep := env.register(t, "jane@example.com", "password1")
	assert.Positive(t, rep.ID)
	assert.Equal(t, "user", rep.Role)
	assert.True(t, rep.Active)

	token := env.login(t, "jane@example.com", "password1")

	rec := env.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.Representation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, rep.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "credential")
}

func TestRegisterDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "jane@example.com", "password1")
	rec := env.do(t, http.MethodPost, "/api/register", "", gin.H{
		"email": "JANE@example.com", "name": "Test", "password": "password2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", "", gin.H{
		"email": "jane@example.com", "name": "Test", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane@example.com", "password1")

	missing := env.do(t, http.MethodPost, "/api/login", "", gin.H{
		"email": "ghost@example.com", "password": "whatever",
	})
	wrong := env.do(t, http.MethodPost, "/api/login", "", gin.H{
		"email": "jane@example.com", "password": "wrongpassword",
	})

	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, missing.Body.String(), wrong.Body.String())
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t)

	member := env.register(t, "member@example.com", "password1")
	memberToken := env.login(t, "member@example.com", "password1")

	rec := env.do(t, http.MethodGet, "/api/users", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "plain users cannot administer accounts")

	env.promote(t, member.ID, domain.RoleAdmin)
	adminToken := env.login(t, "member@example.com", "password1")

	rec = env.do(t, http.MethodGet, "/api/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserAdministrationFlow(t *testing.T) {
	env := newTestEnv(t)

	admin := env.register(t, "admin@example.com", "password1")
	env.promote(t, admin.ID, domain.RoleAdmin)
	token := env.login(t, "admin@example.com", "password1")

	target := env.register(t, "target@example.com", "password1")

	// rename and promote
	rec := env.do(t, http.MethodPatch, "/api/users/"+itoa(target.ID), token, gin.H{
		"name": "Renamed", "role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Representation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "admin", updated.Role)

	// soft delete, twice
	rec = env.do(t, http.MethodDelete, "/api/users/"+itoa(target.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/users/"+itoa(target.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "delete is idempotent")

	// record still visible, inactive
	rec = env.do(t, http.MethodGet, "/api/users/"+itoa(target.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Representation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Active)

	// deactivated account can no longer log in
	rec = env.do(t, http.MethodPost, "/api/login", "", gin.H{
		"email": "target@example.com", "password": "password1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// list excludes inactive by default
	rec = env.do(t, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []domain.Representation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	rec = env.do(t, http.MethodGet, "/api/users?include_inactive=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)

	// role filter uses canonical strings; unknown values are rejected
	rec = env.do(t, http.MethodGet, "/api/users?role=wizard", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportUsers(t *testing.T) {
	env := newTestEnv(t)

	admin := env.register(t, "admin@example.com", "password1")
	env.promote(t, admin.ID, domain.RoleAdmin)
	token := env.login(t, "admin@example.com", "password1")
	env.register(t, "other@example.com", "password1")

	rec := env.do(t, http.MethodPost, "/api/users/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Location string `json:"location"`
		Count    int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Contains(t, resp.Location, "s3://test-bucket/")
	assert.Len(t, env.exporter.users, 2)
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "jane@example.com", "password1")
	token := env.login(t, "jane@example.com", "password1")

	rec := env.do(t, http.MethodPost, "/api/me/password", token, gin.H{"password": "password2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", "", gin.H{
		"email": "jane@example.com", "password": "password1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.login(t, "jane@example.com", "password2")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
