package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/hr-service/internal/api/http"
	"github.com/spec-kit/hr-service/internal/api/http/handlers"
	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/config"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/service"
	"github.com/spec-kit/hr-service/internal/testutil"
)

type server struct {
	app      *fiber.App
	db       *testutil.DB
	sessions *testutil.Sessions
	tokens   *auth.TokenManager
	avatars  *testutil.Avatars
}

func newServer(t *testing.T, csrfEnabled bool) *server {
	t.Helper()
	s := &server{
		db:       testutil.NewDB(),
		sessions: testutil.NewSessions(),
		tokens:   auth.NewTokenManager("secret"),
		avatars:  testutil.NewAvatars(),
	}
	cfg := config.Config{
		Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Session: config.SessionConfig{
			CookieName:     "sessionid",
			TTLMinutes:     60,
			CSRFEnabled:    csrfEnabled,
			CSRFCookieName: "csrftoken",
			CSRFHeaderName: "X-CSRFToken",
		},
		Media: config.MediaConfig{URLPrefix: "/media/"},
	}
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		AccountRepo: s.db.Accounts(),
		Sessions:    s.sessions,
		Tokens:      s.tokens,
		Limiter:     &testutil.Limiter{},
		Avatars:     s.avatars,
		Dispatcher:  dispatcher,
	})
	reconciler := service.NewReconciler(service.ReconcilerDependencies{
		AccountRepo:    s.db.Accounts(),
		ProfileRepo:    s.db.Profiles(),
		DepartmentRepo: s.db.Departments(),
		Avatars:        s.avatars,
		Tx:             s.db,
		Dispatcher:     dispatcher,
	})
	accounts := service.NewAccountService(service.AccountDependencies{
		AccountRepo:    s.db.Accounts(),
		ProfileRepo:    s.db.Profiles(),
		DepartmentRepo: s.db.Departments(),
		Avatars:        s.avatars,
		Tx:             s.db,
		Dispatcher:     dispatcher,
	})
	departments := service.NewDepartmentService(s.db.Departments(), dispatcher, nil)

	s.app = fiber.New(fiber.Config{ErrorHandler: httptransport.NewErrorHandler(nil, nil)})
	httptransport.RegisterMiddlewares(s.app, httptransport.MiddlewareConfig{
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Session: cfg.Session,
		Auth:    auth.NewAuthMiddleware(s.tokens, s.sessions, s.db.Accounts(), cfg.Session.CookieName),
	})
	httptransport.RegisterRoutes(s.app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler("hr-service", "test", nil),
		Auth:        handlers.NewAuthHandler(authService, cfg.Session, cfg.Media.URLPrefix),
		AdminUsers:  handlers.NewAdminUsersHandler(accounts, reconciler, cfg.Media.URLPrefix),
		Employee:    handlers.NewEmployeeHandler(accounts, reconciler, cfg.Media.URLPrefix),
		Departments: handlers.NewDepartmentsHandler(departments),
	})
	return s
}

func (s *server) token(t *testing.T, a *domain.Account) string {
	t.Helper()
	session, err := s.sessions.Create(t.Context(), a.ID)
	require.NoError(t, err)
	token, err := s.tokens.GenerateToken(session)
	require.NoError(t, err)
	return token
}

func (s *server) user(username string, role domain.Role) *domain.Account {
	return s.db.AddAccount(domain.Account{Username: username, Email: username + "@example.com", Role: role, IsActive: true})
}

type response struct {
	status  int
	body    map[string]any
	list    []any
	cookies []*http.Cookie
}

func (s *server) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, cookies: resp.Cookies()}
	switch {
	case len(raw) == 0:
	case raw[0] == '[':
		require.NoError(t, json.Unmarshal(raw, &out.list))
	default:
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

func jsonRequest(method, path, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func errorCode(t *testing.T, r response) string {
	t.Helper()
	envelope, ok := r.body["error"].(map[string]any)
	require.True(t, ok, "no error envelope in %v", r.body)
	return envelope["code"].(string)
}

func userPath(a *domain.Account) string {
	return "/api/admin/users/" + strconv.FormatInt(a.ID, 10) + "/"
}

func TestRootAndWhoAmIAnonymous(t *testing.T) {
	s := newServer(t, false)

	r := s.do(t, jsonRequest(http.MethodGet, "/", "", ""))
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "ok", r.body["status"])

	r = s.do(t, jsonRequest(http.MethodGet, "/api/auth/whoami/", "", ""))
	assert.Equal(t, http.StatusOK, r.status)
	assert.Contains(t, r.body, "username")
	assert.Nil(t, r.body["username"])
}

func TestUnknownRouteRendersEnvelope(t *testing.T) {
	s := newServer(t, false)

	r := s.do(t, jsonRequest(http.MethodGet, "/api/nope/", "", ""))
	assert.Equal(t, http.StatusNotFound, r.status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, r))
}

func TestSignupLoginWhoAmI(t *testing.T) {
	s := newServer(t, false)

	r := s.do(t, jsonRequest(http.MethodPost, "/api/auth/register/",
		`{"username":"jane","email":"Jane@Example.com","password":"s3cret-pass","confirm_password":"s3cret-pass","role":"Employee"}`, ""))
	require.Equal(t, http.StatusCreated, r.status, r.body)
	assert.Equal(t, "Signup successful", r.body["message"])
	assert.Equal(t, "Employee", r.body["role"])

	r = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login/",
		`{"username":"JANE@example.com","password":"s3cret-pass"}`, ""))
	require.Equal(t, http.StatusOK, r.status, r.body)
	assert.Equal(t, "Login successful", r.body["message"])
	token, _ := r.body["token"].(string)
	require.NotEmpty(t, token)

	var sessionCookie *http.Cookie
	for _, c := range r.cookies {
		if c.Name == "sessionid" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	req := jsonRequest(http.MethodGet, "/api/auth/whoami/", "", "")
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: sessionCookie.Value})
	r = s.do(t, req)
	assert.Equal(t, "jane", r.body["username"])
	assert.Equal(t, "jane@example.com", r.body["email"])
	assert.Equal(t, "Employee", r.body["role"])
}

func TestSignupRejectsMismatchAndDuplicateEmail(t *testing.T) {
	s := newServer(t, false)
	s.user("taken", domain.RoleEmployee)

	r := s.do(t, jsonRequest(http.MethodPost, "/api/auth/register/",
		`{"username":"new","email":"TAKEN@example.com","password":"s3cret-pass","confirm_password":"different"}`, ""))
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, r))
	details := r.body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "email")
	_, err := s.db.Accounts().GetByUsername(t.Context(), "new")
	assert.Error(t, err)
}

func TestLoginFailures(t *testing.T) {
	s := newServer(t, false)
	r := s.do(t, jsonRequest(http.MethodPost, "/api/auth/login/", `{"username":"ghost","password":"whatever1"}`, ""))
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login/", `{"username":""}`, ""))
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestAdminList_ClientForbidden(t *testing.T) {
	s := newServer(t, false)
	client := s.user("client", domain.RoleClient)
	admin := s.user("admin", domain.RoleAdmin)
	s.user("employee", domain.RoleEmployee)

	r := s.do(t, jsonRequest(http.MethodGet, "/api/admin/users/", "", s.token(t, client)))
	assert.Equal(t, http.StatusForbidden, r.status)

	r = s.do(t, jsonRequest(http.MethodGet, "/api/admin/users/", "", ""))
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = s.do(t, jsonRequest(http.MethodGet, "/api/admin/users/", "", s.token(t, admin)))
	require.Equal(t, http.StatusOK, r.status)
	require.Len(t, r.list, 2)
	newest := r.list[0].(map[string]any)
	assert.Equal(t, "employee", newest["username"])
	assert.Contains(t, newest, "profile")
}

func TestAdminPatch_ReconcilesAccountAndProfile(t *testing.T) {
	s := newServer(t, false)
	admin := s.user("admin", domain.RoleAdmin)
	target := s.user("worker", domain.RoleEmployee)
	hr := s.db.AddDepartment("HR")
	token := s.token(t, admin)

	body := `{"first_name":"Wanda","department":` + strconv.FormatInt(hr.ID, 10) + `,"position":"Clerk","hire_date":"2024-02-01"}`
	r := s.do(t, jsonRequest(http.MethodPatch, userPath(target), body, token))
	require.Equal(t, http.StatusOK, r.status, r.body)
	assert.Equal(t, "Wanda", r.body["first_name"])
	assert.Equal(t, "worker@example.com", r.body["email"])
	assert.Equal(t, "Clerk", r.body["position"])
	assert.Equal(t, "HR", r.body["department_name"])
	assert.Equal(t, "2024-02-01", r.body["hire_date"])
	nested := r.body["profile"].(map[string]any)
	assert.Equal(t, "Clerk", nested["position"])

	r = s.do(t, jsonRequest(http.MethodPatch, userPath(target), `{"department":null}`, token))
	require.Equal(t, http.StatusOK, r.status)
	assert.Nil(t, r.body["department"])
	assert.Equal(t, "Clerk", r.body["position"])

	r = s.do(t, jsonRequest(http.MethodPatch, userPath(target), `{"department":999}`, token))
	assert.Equal(t, http.StatusNotFound, r.status)

	r = s.do(t, jsonRequest(http.MethodPatch, userPath(target), `{"email":null}`, token))
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, r))

	r = s.do(t, jsonRequest(http.MethodPatch, userPath(target), `{"gender":"Robot"}`, token))
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "PROFILE_VALIDATION_FAILED", errorCode(t, r))

	r = s.do(t, jsonRequest(http.MethodPatch, userPath(target), `[1,2]`, token))
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = s.do(t, jsonRequest(http.MethodPatch, "/api/admin/users/abc/", `{}`, token))
	assert.Equal(t, http.StatusNotFound, r.status)
}

func TestAdminPatch_MultipartAvatar(t *testing.T) {
	s := newServer(t, false)
	admin := s.user("admin", domain.RoleAdmin)
	target := s.user("worker", domain.RoleEmployee)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("last_name", "Maximoff"))
	part, err := mw.CreateFormFile("avatar", "face.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, userPath(target), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(t, admin))
	r := s.do(t, req)
	require.Equal(t, http.StatusOK, r.status, r.body)
	assert.Equal(t, "Maximoff", r.body["last_name"])
	assert.Equal(t, "http://example.com/media/avatars/1-face.png", r.body["avatar_url"])
	assert.True(t, s.avatars.Has("avatars/1-face.png"))
}

func TestAdminDeleteGuards(t *testing.T) {
	s := newServer(t, false)
	admin := s.user("admin", domain.RoleAdmin)
	root := s.db.AddAccount(domain.Account{Username: "root", IsSuperuser: true, IsStaff: true, IsActive: true})
	victim := s.user("victim", domain.RoleEmployee)
	token := s.token(t, admin)

	r := s.do(t, jsonRequest(http.MethodDelete, userPath(admin), "", token))
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = s.do(t, jsonRequest(http.MethodDelete, userPath(root), "", token))
	assert.Equal(t, http.StatusForbidden, r.status)

	r = s.do(t, jsonRequest(http.MethodDelete, userPath(victim)+"delete/", "", token))
	assert.Equal(t, http.StatusNoContent, r.status)
	_, ok := s.db.Account(victim.ID)
	assert.False(t, ok)

	r = s.do(t, jsonRequest(http.MethodDelete, userPath(victim), "", token))
	assert.Equal(t, http.StatusNotFound, r.status)
}

func TestAdminBulkDelete(t *testing.T) {
	s := newServer(t, false)
	admin := s.user("admin", domain.RoleAdmin)
	a := s.user("a", domain.RoleEmployee)
	b := s.user("b", domain.RoleClient)
	token := s.token(t, admin)

	r := s.do(t, jsonRequest(http.MethodPost, "/api/admin/users/bulk-delete/", `{"ids":"1,2"}`, token))
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = s.do(t, jsonRequest(http.MethodPost, "/api/admin/users/bulk-delete/", `{}`, token))
	require.Equal(t, http.StatusOK, r.status, r.body)
	assert.EqualValues(t, 0, r.body["deleted"])
	assert.Equal(t, []any{}, r.body["skipped"])

	body := `{"ids":[` + strconv.FormatInt(a.ID, 10) + `,` + strconv.FormatInt(b.ID, 10) + `,` + strconv.FormatInt(admin.ID, 10) + `]}`
	r = s.do(t, jsonRequest(http.MethodPost, "/api/admin/users/bulk-delete/", body, token))
	require.Equal(t, http.StatusOK, r.status, r.body)
	assert.EqualValues(t, 2, r.body["deleted"])
	assert.Equal(t, []any{float64(admin.ID)}, r.body["skipped"])
}

func TestEmployeeProfile(t *testing.T) {
	s := newServer(t, false)
	emp := s.db.AddAccount(domain.Account{Username: "emp", FirstName: "Eve", LastName: "Ng", Role: domain.RoleEmployee, IsActive: true})
	client := s.user("client", domain.RoleClient)
	token := s.token(t, emp)

	r := s.do(t, jsonRequest(http.MethodGet, "/api/employee/profile/", "", s.token(t, client)))
	assert.Equal(t, http.StatusForbidden, r.status)

	r = s.do(t, jsonRequest(http.MethodGet, "/api/employee/profile/", "", token))
	require.Equal(t, http.StatusOK, r.status)
	assert.Nil(t, r.body["position"])

	r = s.do(t, jsonRequest(http.MethodPatch, "/api/employee/profile/", `{"phone":"555-0100"}`, token))
	require.Equal(t, http.StatusOK, r.status, r.body)
	assert.Equal(t, "555-0100", r.body["phone"])

	r = s.do(t, jsonRequest(http.MethodPatch, "/api/employee/profile/", `{"role":"Admin"}`, token))
	assert.Equal(t, http.StatusBadRequest, r.status)
	stored, _ := s.db.Account(emp.ID)
	assert.Equal(t, domain.RoleEmployee, stored.Role)

	r = s.do(t, jsonRequest(http.MethodGet, "/api/dashboard/employee/", "", token))
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Hello Eve Ng", r.body["greeting"])
	assert.Contains(t, r.body, "stats")
}

func TestDepartments(t *testing.T) {
	s := newServer(t, false)
	admin := s.user("admin", domain.RoleAdmin)
	emp := s.user("emp", domain.RoleEmployee)

	r := s.do(t, jsonRequest(http.MethodPost, "/api/departments/", `{"name":"IT"}`, s.token(t, emp)))
	assert.Equal(t, http.StatusForbidden, r.status)

	adminToken := s.token(t, admin)
	r = s.do(t, jsonRequest(http.MethodPost, "/api/departments/", `{"name":"IT","description":"Tech"}`, adminToken))
	require.Equal(t, http.StatusCreated, r.status, r.body)
	id := strconv.FormatInt(int64(r.body["id"].(float64)), 10)

	r = s.do(t, jsonRequest(http.MethodPatch, "/api/departments/"+id+"/", `{"description":"Technology"}`, adminToken))
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Technology", r.body["description"])

	r = s.do(t, jsonRequest(http.MethodGet, "/api/departments/", "", s.token(t, emp)))
	require.Equal(t, http.StatusOK, r.status)
	assert.Len(t, r.list, 1)

	r = s.do(t, jsonRequest(http.MethodDelete, "/api/departments/"+id+"/", "", adminToken))
	assert.Equal(t, http.StatusNoContent, r.status)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newServer(t, false)
	emp := s.user("emp", domain.RoleEmployee)
	token := s.token(t, emp)

	r := s.do(t, jsonRequest(http.MethodPost, "/api/auth/logout/", "", token))
	assert.Equal(t, http.StatusNoContent, r.status)
	assert.Equal(t, 0, s.sessions.Len())

	r = s.do(t, jsonRequest(http.MethodPost, "/api/auth/logout/", "", ""))
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestCSRF(t *testing.T) {
	s := newServer(t, true)
	emp := s.user("emp", domain.RoleEmployee)
	session := s.token(t, emp)

	r := s.do(t, jsonRequest(http.MethodGet, "/api/auth/csrf/", "", ""))
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "CSRF cookie set", r.body["detail"])
	var csrfToken string
	for _, c := range r.cookies {
		if c.Name == "csrftoken" {
			csrfToken = c.Value
		}
	}
	require.NotEmpty(t, csrfToken)

	req := jsonRequest(http.MethodPatch, "/api/employee/profile/", `{"phone":"1"}`, "")
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: session})
	r = s.do(t, req)
	assert.Equal(t, http.StatusForbidden, r.status)

	req = jsonRequest(http.MethodPatch, "/api/employee/profile/", `{"phone":"1"}`, "")
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: session})
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: csrfToken})
	req.Header.Set("X-CSRFToken", csrfToken)
	r = s.do(t, req)
	assert.Equal(t, http.StatusOK, r.status, r.body)

	r = s.do(t, jsonRequest(http.MethodPatch, "/api/employee/profile/", `{"phone":"2"}`, session))
	assert.Equal(t, http.StatusOK, r.status)

	r = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login/", `{"username":"nobody","password":"whatever1"}`, ""))
	assert.Equal(t, http.StatusUnauthorized, r.status)
}
