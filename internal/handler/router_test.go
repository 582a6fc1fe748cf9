package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"admin-console/internal/apiclient"
	"admin-console/internal/authstore"
	"admin-console/internal/config"
	"admin-console/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// platform fakes the upstream REST API with canned replies per route.
type platform struct {
	mu      sync.Mutex
	replies map[string]string
	status  map[string]int
	hits    []string
}

func (p *platform) set(route string, status int, reply string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[route] = status
	p.replies[route] = reply
}

func (p *platform) called(route string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.hits {
		if h == route {
			n++
		}
	}
	return n
}

func (p *platform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	p.mu.Lock()
	p.hits = append(p.hits, route)
	reply, ok := p.replies[route]
	status := p.status[route]
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"no such route"}`)
		return
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

type console struct {
	t        *testing.T
	router   chi.Router
	platform *platform
	cookie   *http.Cookie
}

func newConsole(t *testing.T) *console {
	t.Helper()
	p := &platform{replies: map[string]string{}, status: map[string]int{}}
	p.set("POST /admin-auth/request-otp", http.StatusOK, `{"success":true,"message":"OTP sent"}`)
	p.set("POST /admin-auth/verify-otp", http.StatusOK,
		`{"success":true,"data":{"accessToken":"tok","user":{"user_id":1,"email":"admin@example.com","username":"root","role":"admin"}}}`)
	p.set("POST /auth/logout", http.StatusOK, `{"success":true}`)
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Upstream:    config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
		Login: config.LoginConfig{
			CodeLength:       6,
			ResendCooldown:   60 * time.Second,
			FlowIdleTTL:      time.Minute,
			SessionCookie:    "admin_console_sid",
			LoginRedirectURL: "/admin/login",
		},
	}

	logger := zap.NewNop()
	api := apiclient.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger)
	factory := service.NewServiceFactory(cfg, api, authstore.NewMemoryStore(time.Hour), nil, nil, nil, nil, logger)
	t.Cleanup(factory.Cleanup)

	loginHandler := NewLoginHandler(factory.LoginService(), cfg.Login.LoginRedirectURL, logger)
	adminHandler := NewAdminHandler(factory.AdminService(), loginHandler, cfg, logger)
	return &console{t: t, router: NewRouter(cfg, loginHandler, adminHandler, logger), platform: p}
}

func (c *console) do(method, path, body string) (int, Response) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "admin_console_sid" {
			c.cookie = ck
		}
	}
	var resp Response
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (c *console) signIn() {
	c.t.Helper()
	code, resp := c.do(http.MethodPost, "/api/v1/login/email", `{"email":"admin@example.com"}`)
	require.Equal(c.t, http.StatusOK, code, resp)
	code, resp = c.do(http.MethodPost, "/api/v1/login/otp", `{"action":"paste","text":"123456"}`)
	require.Equal(c.t, http.StatusOK, code, resp)
	require.Equal(c.t, "AUTHENTICATED", resp.Data.(map[string]any)["state"])
}

func TestHealth(t *testing.T) {
	c := newConsole(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin-console")
}

func TestProtectedRouteRedirectsWithoutCredentials(t *testing.T) {
	c := newConsole(t)

	code, resp := c.do(http.MethodGet, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "/admin/login", resp.Redirect)
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)
}

func TestLoginFlowOverHTTP(t *testing.T) {
	c := newConsole(t)

	code, resp := c.do(http.MethodGet, "/api/v1/login", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EMAIL_ENTRY", resp.Data.(map[string]any)["state"])

	code, resp = c.do(http.MethodPost, "/api/v1/login/email", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please enter a valid email address", resp.Message)
	assert.Equal(t, 0, c.platform.called("POST /admin-auth/request-otp"))

	code, resp = c.do(http.MethodPost, "/api/v1/login/email", `{"email":"admin@example.com"}`)
	require.Equal(t, http.StatusOK, code)
	snap := resp.Data.(map[string]any)
	assert.Equal(t, "OTP_ENTRY", snap["state"])
	assert.Equal(t, float64(60), snap["resend_countdown_seconds"])
	assert.Equal(t, "OTP sent to your email", resp.Message)

	code, _ = c.do(http.MethodPost, "/api/v1/login/resend", "")
	assert.Equal(t, http.StatusConflict, code)

	code, resp = c.do(http.MethodPost, "/api/v1/login/otp", `{"action":"input","cell":0,"value":"4"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["focus"])

	code, resp = c.do(http.MethodPost, "/api/v1/login/otp", `{"action":"paste","text":"123456"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AUTHENTICATED", resp.Data.(map[string]any)["state"])
	assert.Equal(t, "Welcome back, Admin!", resp.Message)

	code, resp = c.do(http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, code)
	user := resp.Data.(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "admin@example.com", user["email"])
	assert.Equal(t, "admin", user["role"])
}

func TestLoginRejectedCode(t *testing.T) {
	c := newConsole(t)
	c.platform.set("POST /admin-auth/verify-otp", http.StatusBadRequest, `{"success":false,"message":"Invalid or expired OTP"}`)

	code, _ := c.do(http.MethodPost, "/api/v1/login/email", `{"email":"admin@example.com"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp := c.do(http.MethodPost, "/api/v1/login/otp", `{"action":"paste","text":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired OTP", resp.Message)
	snap := resp.Data.(map[string]any)
	assert.Equal(t, "OTP_ENTRY", snap["state"])
	assert.Equal(t, true, snap["error"])
	assert.Equal(t, float64(2), snap["widget_key"])
}

func TestLoginCodeRejectedWithUpstream401(t *testing.T) {
	c := newConsole(t)
	c.platform.set("POST /admin-auth/verify-otp", http.StatusUnauthorized, `{"success":false,"message":"Invalid or expired OTP"}`)

	code, _ := c.do(http.MethodPost, "/api/v1/login/email", `{"email":"admin@example.com"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp := c.do(http.MethodPost, "/api/v1/login/otp", `{"action":"paste","text":"000000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Empty(t, resp.Redirect)
	assert.Equal(t, "OTP_ENTRY", resp.Data.(map[string]any)["state"])
}

func TestTimeSlotValidationSkipsUpstream(t *testing.T) {
	c := newConsole(t)
	c.signIn()

	code, resp := c.do(http.MethodPost, "/api/v1/timeslots", `{"time":"10:00 AM"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please select a timezone", resp.Message)
	assert.Equal(t, 0, c.platform.called("POST /admin/timeslots"))
}

func TestTimeSlotCreateAndToggle(t *testing.T) {
	c := newConsole(t)
	c.signIn()
	c.platform.set("POST /admin/timeslots", http.StatusOK, `{"success":true,"data":{"timeslot_id":3,"time":"10:00 AM","timezone":"IST","is_active":true}}`)
	c.platform.set("PATCH /admin/timeslots/3/toggle", http.StatusOK, `{"success":true,"message":"Time slot deactivated"}`)

	code, resp := c.do(http.MethodPost, "/api/v1/timeslots", `{"time":"10:00 AM","timezone":"IST"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "3", resp.Data.(map[string]any)["timeslot_id"])

	code, resp = c.do(http.MethodPatch, "/api/v1/timeslots/3/toggle", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Time slot deactivated", resp.Message)
}

func TestUpstreamRejectionClearsSession(t *testing.T) {
	c := newConsole(t)
	c.signIn()
	c.platform.set("GET /admin/users", http.StatusUnauthorized, `{"success":false,"message":"Token expired"}`)

	code, resp := c.do(http.MethodGet, "/api/v1/users", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "/admin/login", resp.Redirect)

	code, _ = c.do(http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpstreamFailureSurfacesServerMessage(t *testing.T) {
	c := newConsole(t)
	c.signIn()
	c.platform.set("GET /admin/bookings", http.StatusInternalServerError, `{"success":false,"message":"database unavailable"}`)

	code, resp := c.do(http.MethodGet, "/api/v1/bookings", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "database unavailable", resp.Message)
}

func TestDashboardFailsWhenAnyLoadFails(t *testing.T) {
	c := newConsole(t)
	c.signIn()
	c.platform.set("GET /admin/users", http.StatusOK, `{"success":true,"data":[]}`)
	c.platform.set("GET /admin/bookings", http.StatusOK, `{"success":true,"data":[]}`)

	code, resp := c.do(http.MethodGet, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)

	c.platform.set("GET /admin/timeslots", http.StatusOK, `{"success":true,"data":[{"timeslot_id":1}]}`)
	code, resp = c.do(http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["totalTimeslots"])
}

func TestPricingPreview(t *testing.T) {
	c := newConsole(t)
	c.signIn()

	code, resp := c.do(http.MethodPost, "/api/v1/pricing/final-price", `{"actual_price":100,"discount_percent":15,"discounted_price":0}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(85), resp.Data.(map[string]any)["discounted_price"])

	code, resp = c.do(http.MethodPost, "/api/v1/pricing/discount-percent", `{"actual_price":200,"discount_percent":0,"discounted_price":150}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(25), resp.Data.(map[string]any)["discount_percent"])
}

func TestAuditReportDisabled(t *testing.T) {
	c := newConsole(t)
	c.signIn()

	code, _ := c.do(http.MethodGet, "/api/v1/reports/audit?days=3", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestLogout(t *testing.T) {
	c := newConsole(t)
	c.signIn()
	c.platform.set("POST /auth/logout", http.StatusInternalServerError, `{"success":false}`)

	code, resp := c.do(http.MethodPost, "/api/v1/logout", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/admin/login", resp.Redirect)
	assert.Equal(t, 1, c.platform.called("POST /auth/logout"))

	code, _ = c.do(http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUserSearchRejectsMarkup(t *testing.T) {
	c := newConsole(t)
	c.signIn()

	code, resp := c.do(http.MethodGet, "/api/v1/users/search?q=%7B%7Bname%7D%7D", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.Zero(t, c.platform.called("GET /admin/users"))
}
