package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/backend/backendtest"
	"github.com/skybi/ticketdesk/internal/config"
	"github.com/skybi/ticketdesk/internal/storage/inmem"
	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	backend *backendtest.Server
	server  *httptest.Server
	service *Service
}

func newTestEnv(t *testing.T, configure ...func(cfg *config.Config)) *testEnv {
	t.Helper()
	fake := backendtest.NewServer()
	t.Cleanup(fake.Close)

	driver := inmem.New()
	require.NoError(t, driver.Initialize(context.Background()))
	t.Cleanup(driver.Close)

	client, err := backend.New(fake.URL)
	require.NoError(t, err)

	cfg := &config.Config{
		SessionLifetime: time.Hour,
		LoginRateLimit:  100,
	}
	for _, fn := range configure {
		fn(cfg)
	}
	service := &Service{
		Config:   cfg,
		Sessions: driver.Sessions(),
		Backend:  client,
	}
	handler, err := service.Handler()
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		service.Shutdown()
	})

	return &testEnv{backend: fake, server: server, service: service}
}

// browser returns a client keeping cookies and not following redirects
func (env *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type response struct {
	status   int
	location string
	body     string
}

func (env *testEnv) get(t *testing.T, browser *http.Client, path string) response {
	t.Helper()
	resp, err := browser.Get(env.server.URL + path)
	require.NoError(t, err)
	return read(t, resp)
}

func (env *testEnv) post(t *testing.T, browser *http.Client, path string, form url.Values) response {
	t.Helper()
	resp, err := browser.PostForm(env.server.URL+path, form)
	require.NoError(t, err)
	return read(t, resp)
}

func read(t *testing.T, resp *http.Response) response {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (env *testEnv) login(t *testing.T, user backendtest.User) *http.Client {
	t.Helper()
	browser := env.browser(t)
	res := env.post(t, browser, "/login", url.Values{"email": {user.Email}, "password": {user.Password}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	require.Equal(t, "/", res.location)
	return browser
}

func (env *testEnv) sessionCookie(browser *http.Client) string {
	parsed, _ := url.Parse(env.server.URL)
	for _, cookie := range browser.Jar.Cookies(parsed) {
		if cookie.Name == cookieNameSession {
			return cookie.Value
		}
	}
	return ""
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	for _, path := range []string{"/", "/tickets/new", "/tickets/1"} {
		res := env.get(t, browser, path)
		assert.Equal(t, http.StatusSeeOther, res.status, path)
		assert.Equal(t, "/login", res.location, path)
	}

	res := env.get(t, browser, "/login")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `action="/login"`)
}

func TestLoginFailure(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	res := env.post(t, browser, "/login", url.Values{"email": {backendtest.Employee.Email}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Incorrect email or password")
	assert.Contains(t, res.body, backendtest.Employee.Email)
	assert.Empty(t, env.sessionCookie(browser))
}

func TestLoginWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	env.backend.OmitAccessToken()

	res := env.post(t, env.browser(t), "/login", url.Values{"email": {backendtest.Admin.Email}, "password": {backendtest.Admin.Password}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Login successful, but no token received.")
}

func TestLoginAndList(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed(backendtest.Employee, "Printer down", "No toner", ticket.PriorityCritical)
	browser := env.login(t, backendtest.Employee)

	rawID := env.sessionCookie(browser)
	require.NotEmpty(t, rawID)
	obj, err := env.service.Sessions.GetByRawID(context.Background(), rawID)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, backendtest.Employee.Email, obj.Subject)
	assert.NotEqual(t, rawID, obj.ID)

	res := env.get(t, browser, "/")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Printer down")
	assert.Contains(t, res.body, "Critique")
	assert.Contains(t, res.body, "Signed in as jane@example.com")

	// Logged in users skip the login page
	res = env.get(t, browser, "/login")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)
}

func TestEmptyList(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)

	res := env.get(t, browser, "/")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "No tickets found.")
}

func TestListBackendError(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)
	env.backend.Fail(http.MethodGet, "/tickets", http.StatusInternalServerError, "")

	res := env.get(t, browser, "/")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "HTTP error! status: 500")
	assert.NotEmpty(t, env.sessionCookie(browser))
}

func TestRejectedSessionForcesLogout(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)
	rawID := env.sessionCookie(browser)
	env.backend.Fail(http.MethodGet, "/tickets", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

	res := env.get(t, browser, "/")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Empty(t, env.sessionCookie(browser))

	obj, err := env.service.Sessions.GetByRawID(context.Background(), rawID)
	require.NoError(t, err)
	assert.Nil(t, obj)

	res = env.get(t, browser, "/login")
	assert.Contains(t, res.body, "Your session has expired. Please log in again.")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)
	rawID := env.sessionCookie(browser)

	res := env.post(t, browser, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Empty(t, env.sessionCookie(browser))

	obj, err := env.service.Sessions.GetByRawID(context.Background(), rawID)
	require.NoError(t, err)
	assert.Nil(t, obj)

	res = env.get(t, browser, "/login")
	assert.Contains(t, res.body, "You have been logged out.")
	res = env.get(t, browser, "/")
	assert.Equal(t, "/login", res.location)
}

func TestCreateTicket(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)

	res := env.get(t, browser, "/tickets/new")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `<option value="Moyenne" selected>`)

	res = env.post(t, browser, "/tickets", url.Values{
		"title":       {"Printer down"},
		"description": {"No toner"},
		"priority":    {"Critique"},
	})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)
	assert.True(t, env.backend.HasTicket(1))

	res = env.get(t, browser, "/")
	assert.Contains(t, res.body, "Ticket created successfully!")
	assert.Contains(t, res.body, "Printer down")
	assert.Contains(t, res.body, "Ouvert")

	// The flash is shown once
	res = env.get(t, browser, "/")
	assert.NotContains(t, res.body, "Ticket created successfully!")
}

func TestCreateTicketFailureKeepsFields(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)

	res := env.post(t, browser, "/tickets", url.Values{
		"title":       {"Printer down"},
		"description": {"No toner"},
		"priority":    {"Urgent"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "priority: must be one of")
	assert.Contains(t, res.body, `value="Printer down"`)
	assert.Contains(t, res.body, "No toner")
	assert.Zero(t, env.backend.Hits(http.MethodPost, "/tickets"))
}

func TestTicketDetailAndComments(t *testing.T) {
	env := newTestEnv(t)
	obj := env.backend.Seed(backendtest.Employee, "Printer down", "**No toner**<script>alert(1)</script>", ticket.PriorityHigh)
	browser := env.login(t, backendtest.Employee)
	path := ticketPath(obj.ID)

	res := env.get(t, browser, path)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Printer down")
	assert.Contains(t, res.body, "<strong>No toner</strong>")
	assert.NotContains(t, res.body, "<script>alert(1)</script>")
	assert.Contains(t, res.body, "No comments yet.")
	assert.Contains(t, res.body, "None")

	res = env.post(t, browser, path+"/comments", url.Values{"content": {"   "}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Comment cannot be empty.")
	assert.Zero(t, env.backend.Hits(http.MethodPost, path+"/comments"))

	res = env.post(t, browser, path+"/comments", url.Values{"content": {"Replaced the cartridge"}})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, path, res.location)

	res = env.get(t, browser, path)
	assert.Contains(t, res.body, "Replaced the cartridge")
	assert.NotContains(t, res.body, "No comments yet.")
}

func TestTicketDetailErrors(t *testing.T) {
	env := newTestEnv(t)
	foreign := env.backend.Seed(backendtest.Admin, "VPN", "", ticket.PriorityLow)
	browser := env.login(t, backendtest.Employee)

	res := env.get(t, browser, "/tickets/abc")
	assert.Equal(t, http.StatusNotFound, res.status)

	res = env.get(t, browser, "/tickets/99")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Ticket not found")

	res = env.get(t, browser, ticketPath(foreign.ID))
	assert.Contains(t, res.body, "Not authorized to view this ticket")
	assert.NotContains(t, res.body, "VPN")
}

func TestDeleteTicket(t *testing.T) {
	env := newTestEnv(t)
	obj := env.backend.Seed(backendtest.Employee, "Printer down", "", ticket.PriorityHigh)
	path := ticketPath(obj.ID)

	employee := env.login(t, backendtest.Employee)
	res := env.post(t, employee, path+"/delete", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Please confirm that you want to delete this ticket.")
	assert.Zero(t, env.backend.Hits(http.MethodDelete, path))

	res = env.post(t, employee, path+"/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Delete failed: Not authorized to delete tickets")
	assert.Contains(t, res.body, "Printer down")
	assert.True(t, env.backend.HasTicket(obj.ID))

	admin := env.login(t, backendtest.Admin)
	res = env.post(t, admin, path+"/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)
	assert.False(t, env.backend.HasTicket(obj.ID))

	res = env.get(t, admin, "/")
	assert.Contains(t, res.body, "Ticket deleted.")
	assert.Contains(t, res.body, "No tickets found.")
}

func TestCatchAllRedirect(t *testing.T) {
	env := newTestEnv(t)
	res := env.get(t, env.browser(t), "/does/not/exist")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)
}

func TestStatic(t *testing.T) {
	env := newTestEnv(t)
	res := env.get(t, env.browser(t), "/static/style.css")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, ".alert")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	res := env.get(t, browser, "/healthz")
	assert.Equal(t, http.StatusOK, res.status)
	var body healthResponse
	require.NoError(t, json.Unmarshal([]byte(res.body), &body))
	assert.Equal(t, healthResponse{Status: "ok", Backend: "ok"}, body)

	env.backend.Close()
	res = env.get(t, browser, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
	assert.True(t, strings.Contains(res.body, "unreachable"))
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.LoginRateLimit = 2
	})
	browser := env.browser(t)
	form := url.Values{"email": {backendtest.Employee.Email}, "password": {"wrong"}}

	assert.Equal(t, http.StatusUnauthorized, env.post(t, browser, "/login", form).status)
	assert.Equal(t, http.StatusUnauthorized, env.post(t, browser, "/login", form).status)
	assert.Equal(t, http.StatusTooManyRequests, env.post(t, browser, "/login", form).status)
}

func TestActionsOnUnloadableTicket(t *testing.T) {
	env := newTestEnv(t)
	browser := env.login(t, backendtest.Employee)

	res := env.post(t, browser, "/tickets/99/comments", url.Values{"content": {"hello"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Ticket not found")
	assert.Zero(t, env.backend.Hits(http.MethodPost, "/tickets/99/comments"))

	res = env.post(t, browser, "/tickets/99/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Ticket not found")
	assert.Zero(t, env.backend.Hits(http.MethodDelete, "/tickets/99"))
}
