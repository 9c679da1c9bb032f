package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-server/auth"
	"github.com/jrsteele09/go-tenant-server/clients"
	fakeclientrepo "github.com/jrsteele09/go-tenant-server/clients/fakerepo"
	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/mailer"
	"github.com/jrsteele09/go-tenant-server/memberships"
	fakemembershiprepo "github.com/jrsteele09/go-tenant-server/memberships/repofake"
	"github.com/jrsteele09/go-tenant-server/server"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/tenancy"
	tenantrepofakes "github.com/jrsteele09/go-tenant-server/tenants/repofakes"
	fakeuserrepo "github.com/jrsteele09/go-tenant-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const cookieName = "tenant_session"

// testConfig pins the settings the tests depend on.
type testConfig struct {
	config.Config
}

func (testConfig) GetEnv() string { return "TEST" }
func (testConfig) GetSessionCookieName() string { return cookieName }
func (testConfig) GetSecureCookies() bool { return false }
func (testConfig) GetAllowedOrigins() config.AllowedOrigins { return config.AllowedOrigins{"https://app.example": {}} }

type testFixture struct {
	server   *httptest.Server
	mail     *mailer.Recorder
	sessions *sessions.MemoryRepo
	down     atomic.Bool
}

// setupTestFixture wires the HTTP server over in-memory repositories
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		mail:     &mailer.Recorder{},
		sessions: sessions.NewMemoryRepo(time.Minute),
	}

	userRepo := fakeuserrepo.NewFakeUserRepo()
	companies := tenantrepofakes.NewFakeTenantRepo()

	credentials, err := auth.NewCredentialService(userRepo, f.mail)
	require.NoError(t, err)
	membershipService, err := memberships.NewService(fakemembershiprepo.NewFakeMembershipRepo(), companies)
	require.NoError(t, err)
	tenancyService, err := tenancy.NewService(membershipService, companies)
	require.NoError(t, err)
	clientService, err := clients.NewService(fakeclientrepo.NewFakeClientRepo(), tenancyService)
	require.NoError(t, err)
	manager, err := sessions.NewManager(f.sessions, time.Hour)
	require.NoError(t, err)
	signer, err := sessions.NewCookieSigner([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	srv, err := server.New(testConfig{Config: config.New()}, server.Services{
		Credentials: credentials,
		Memberships: membershipService,
		Tenancy:     tenancyService,
		Clients:     clientService,
		Users:       userRepo,
		Sessions:    manager,
		Cookies:     signer,
		Ready:       func(context.Context) error {
			if f.down.Load() {
				return errors.New("database unreachable")
			}
			return nil
		},
	})
	require.NoError(t, err)

	f.server = httptest.NewServer(srv)
	t.Cleanup(f.server.Close)
	return f
}

// browser is one cookie jar talking to the test server.
type browser struct {
	t      *testing.T
	f      *testFixture
	client *http.Client
}

func (f *testFixture) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, f: f, client: &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body any) (int, map[string]any) {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.f.server.URL+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(b.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// signupAndConfirm registers a user and logs in with the mailed provisional secret.
func (b *browser) signupAndConfirm(name, email string) map[string]any {
	b.t.Helper()
	status, body := b.do(http.MethodPost, server.RouteSignup, map[string]string{"name": name, "email": email})
	require.Equal(b.t, http.StatusCreated, status, body)
	sent, ok := b.f.mail.Last()
	require.True(b.t, ok)
	require.Equal(b.t, email, sent.To)

	status, body = b.do(http.MethodPost, server.RouteLogin, map[string]string{"email": email, "password": sent.Secret})
	require.Equal(b.t, http.StatusOK, status, body)
	require.Equal(b.t, string(auth.OutcomeConfirmed), body["outcome"])
	return body
}

func (b *browser) createCompany(name, document string) int64 {
	b.t.Helper()
	status, body := b.do(http.MethodPost, server.RouteCompanies, map[string]string{
		"name": name, "documentType": "cnpj", "document": document,
	})
	require.Equal(b.t, http.StatusCreated, status, body)
	company := body["company"].(map[string]any)
	return int64(company["id"].(float64))
}

func (b *browser) createClient(name string) (int64, int64) {
	b.t.Helper()
	status, body := b.do(http.MethodPost, server.RouteClients, map[string]string{"name": name})
	require.Equal(b.t, http.StatusCreated, status, body)
	return int64(body["id"].(float64)), int64(body["version"].(float64))
}

func clientPath(id int64) string {
	return fmt.Sprintf("/clients/%d", id)
}

// TestSignupLoginPasswordLogout tests the credential lifecycle over HTTP
func TestSignupLoginPasswordLogout(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)

	status, body := b.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthenticated", body["error"])

	login := b.signupAndConfirm("Ada", "ada@example.com")
	require.Equal(t, false, login["autoSelected"])

	status, body = b.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ada@example.com", body["email"])
	require.NotContains(t, body, "selection")

	status, body = b.do(http.MethodPost, server.RoutePassword, map[string]string{"password": "short"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "weak_password", body["error"])
	require.Contains(t, body["message"], "at least 8 characters")

	status, body = b.do(http.MethodPost, server.RoutePassword, map[string]string{"password": "Aa1" + strings.Repeat("x", 80)})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "weak_password", body["error"])
	require.Contains(t, body["message"], "at most 72 bytes")

	status, _ = b.do(http.MethodPost, server.RoutePassword, map[string]string{"password": "Str0ngPass"})
	require.Equal(t, http.StatusNoContent, status)

	status, _ = b.do(http.MethodPost, server.RouteLogout, nil)
	require.Equal(t, http.StatusNoContent, status)
	require.Zero(t, f.sessions.Count())

	status, _ = b.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = b.do(http.MethodPost, server.RouteLogin, map[string]string{"email": "ADA@example.com", "password": "Str0ngPass"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, string(auth.OutcomeLoggedIn), body["outcome"])
}

// TestSignup_Errors tests duplicate and malformed signups
func TestSignup_Errors(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)

	status, _ := b.do(http.MethodPost, server.RouteSignup, map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, status)

	status, body := b.do(http.MethodPost, server.RouteSignup, map[string]string{"name": "Ada", "email": " Ada@Example.com"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "duplicate_email", body["error"])

	status, body = b.do(http.MethodPost, server.RouteSignup, map[string]string{"name": "", "email": "nobody"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_argument", body["error"])

	status, _ = b.do(http.MethodPost, server.RouteSignup, map[string]any{"name": "Ada", "email": "x@example.com", "admin": true})
	require.Equal(t, http.StatusBadRequest, status)
}

// TestSignup_MailFailure tests that the user is created even when mail fails
func TestSignup_MailFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.mail.Err = fmt.Errorf("smtp down")
	b := f.browser(t)

	status, body := b.do(http.MethodPost, server.RouteSignup, map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, false, body["mailSent"])
	user := body["user"].(map[string]any)
	require.Equal(t, "ada@example.com", user["email"])
	require.NotContains(t, user, "passwordHash")
}

// TestLogin_InvalidCredentials tests that unknown users and wrong passwords look the same
func TestLogin_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)
	b.signupAndConfirm("Ada", "ada@example.com")

	other := f.browser(t)
	status, wrong := other.do(http.MethodPost, server.RouteLogin, map[string]string{"email": "ada@example.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, status)
	status, unknown := other.do(http.MethodPost, server.RouteLogin, map[string]string{"email": "ghost@example.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, wrong, unknown)
}

// TestForgotPassword tests that the endpoint never reveals registration
func TestForgotPassword(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)
	b.signupAndConfirm("Ada", "ada@example.com")
	before := len(f.mail.Sent())

	status, _ := b.do(http.MethodPost, server.RouteForgotPassword, map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusAccepted, status)
	require.Len(t, f.mail.Sent(), before)

	status, _ = b.do(http.MethodPost, server.RouteForgotPassword, map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusAccepted, status)
	require.Len(t, f.mail.Sent(), before+1)
	sent, _ := f.mail.Last()
	require.Equal(t, mailer.ReasonForgot, sent.Reason)

	status, body := f.browser(t).do(http.MethodPost, server.RouteLogin, map[string]string{"email": "ada@example.com", "password": sent.Secret})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, string(auth.OutcomeConfirmed), body["outcome"])
}

// TestValidatePassword tests the stateless strength check
func TestValidatePassword(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)

	status, body := b.do(http.MethodPost, server.RouteAPIValidatePassword, map[string]string{"password": "abc"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, body["valid"])
	require.NotEmpty(t, body["reasons"])

	status, body = b.do(http.MethodPost, server.RouteAPIValidatePassword, map[string]string{"password": "Str0ngPass"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["valid"])
	require.Empty(t, body["reasons"])
	require.Zero(t, f.sessions.Count())
}

// TestCompanyAndClientLifecycle tests creation, selection and versioned writes
func TestCompanyAndClientLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)
	b.signupAndConfirm("Ada", "ada@example.com")

	status, body := b.do(http.MethodGet, server.RouteClients, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "no_tenant_selected", body["error"])

	companyID := b.createCompany("Acme", "12.345.678/0001-90")

	status, body = b.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	selection := body["selection"].(map[string]any)
	require.Equal(t, float64(companyID), selection["companyId"])
	require.Equal(t, true, selection["admin"])

	status, body = b.do(http.MethodPost, server.RouteCompanies, map[string]string{
		"name": "Acme Again", "documentType": "cnpj", "document": "12345678000190",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "duplicate_document", body["error"])

	id, version := b.createClient("  Bob  ")
	require.Equal(t, int64(1), version)

	status, body = b.do(http.MethodGet, clientPath(id), nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Bob", body["name"])

	status, body = b.do(http.MethodPut, clientPath(id), map[string]any{"name": "Robert", "version": 1})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(2), body["version"])

	status, body = b.do(http.MethodPut, clientPath(id), map[string]any{"name": "Bobby", "version": 1})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "version_conflict", body["error"])

	status, _ = b.do(http.MethodPut, clientPath(id), map[string]any{"name": "Bobby"})
	require.Equal(t, http.StatusBadRequest, status)

	status, body = b.do(http.MethodGet, server.RouteClients+"?limit=10", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["clients"], 1)

	status, _ = b.do(http.MethodDelete, clientPath(id)+"?version=1", nil)
	require.Equal(t, http.StatusConflict, status)
	status, _ = b.do(http.MethodDelete, clientPath(id)+"?version=2", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = b.do(http.MethodGet, clientPath(id), nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = b.do(http.MethodGet, "/clients/abc", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

// TestTenantIsolation tests that one company's records are invisible to another
func TestTenantIsolation(t *testing.T) {
	f := setupTestFixture(t)

	ada := f.browser(t)
	ada.signupAndConfirm("Ada", "ada@example.com")
	acme := ada.createCompany("Acme", "11111111000111")
	clientID, _ := ada.createClient("Bob")

	eve := f.browser(t)
	eve.signupAndConfirm("Eve", "eve@example.com")
	eve.createCompany("Evil", "22222222000122")

	status, _ := eve.do(http.MethodGet, clientPath(clientID), nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = eve.do(http.MethodPut, clientPath(clientID), map[string]any{"name": "Pwned", "version": 1})
	require.Equal(t, http.StatusConflict, status)

	status, body := eve.do(http.MethodPost, server.RouteCompanySelect, map[string]any{"companyId": acme})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "not_a_member", body["error"])

	status, body = ada.do(http.MethodGet, clientPath(clientID), nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Bob", body["name"])
}

// TestMembershipManagement tests admin-only membership routes and auto selection
func TestMembershipManagement(t *testing.T) {
	f := setupTestFixture(t)

	ada := f.browser(t)
	ada.signupAndConfirm("Ada", "ada@example.com")
	acme := ada.createCompany("Acme", "11111111000111")

	bob := f.browser(t)
	bob.signupAndConfirm("Bob", "bob@example.com")

	status, body := ada.do(http.MethodPost, server.RouteCompanyMembers, map[string]any{"email": "BOB@example.com"})
	require.Equal(t, http.StatusCreated, status, body)
	require.Equal(t, false, body["admin"])
	membershipID := body["membershipId"]

	// Adding an existing member changes nothing, admin included.
	status, body = ada.do(http.MethodPost, server.RouteCompanyMembers, map[string]any{"email": "bob@example.com", "admin": true})
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, membershipID, body["membershipId"])
	require.Equal(t, false, body["admin"])

	status, body = ada.do(http.MethodPost, server.RouteCompanyMembers, map[string]any{"email": "ghost@example.com"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "user_not_found", body["error"])

	// A fresh login with a single membership selects it automatically.
	bob2 := f.browser(t)
	status, _ = bob2.do(http.MethodPost, server.RouteForgotPassword, map[string]string{"email": "bob@example.com"})
	require.Equal(t, http.StatusAccepted, status)
	sent, _ := f.mail.Last()
	status, body = bob2.do(http.MethodPost, server.RouteLogin, map[string]string{"email": "bob@example.com", "password": sent.Secret})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["autoSelected"])
	require.Equal(t, float64(acme), body["selection"].(map[string]any)["companyId"])

	status, body = bob2.do(http.MethodGet, server.RouteCompanyMembers, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["members"], 2)

	status, body = bob2.do(http.MethodPost, server.RouteCompanyMembers, map[string]any{"email": "ada@example.com"})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "forbidden", body["error"])

	status, body = bob2.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	bobPath := fmt.Sprintf("/companies/members/%d", int64(body["userId"].(float64)))

	status, body = ada.do(http.MethodPut, bobPath+"/admin", map[string]bool{"admin": true})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(2), body["version"])

	status, _ = ada.do(http.MethodDelete, bobPath, nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = ada.do(http.MethodDelete, bobPath, nil)
	require.Equal(t, http.StatusNotFound, status)

	// Bob's stale selection is dropped on his next tenant request.
	status, body = bob2.do(http.MethodGet, server.RouteClients, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "not_a_member", body["error"])
	status, body = bob2.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "selection")
}

// TestLogin_OtherUserDropsSelection tests that a selection never outlives a change of user
func TestLogin_OtherUserDropsSelection(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)
	b.signupAndConfirm("Ada", "ada@example.com")
	b.createCompany("Acme", "11111111000111")

	status, _ := b.do(http.MethodPost, server.RouteSignup, map[string]string{"name": "Bob", "email": "bob@example.com"})
	require.Equal(t, http.StatusCreated, status)
	sent, _ := f.mail.Last()
	status, body := b.do(http.MethodPost, server.RouteLogin, map[string]string{"email": "bob@example.com", "password": sent.Secret})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, body["autoSelected"])
	require.NotContains(t, body, "selection")

	status, _ = b.do(http.MethodGet, server.RouteClients, nil)
	require.Equal(t, http.StatusConflict, status)
}

// TestLogin_RotatesSessionID tests that a cookie issued before login is useless afterwards
func TestLogin_RotatesSessionID(t *testing.T) {
	f := setupTestFixture(t)
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)

	status, _ := f.browser(t).do(http.MethodPost, server.RouteSignup, map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, status)
	sent, _ := f.mail.Last()

	mallory := f.browser(t)
	status, _ = mallory.do(http.MethodPost, server.RouteForgotPassword, map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusAccepted, status)
	planted := mallory.client.Jar.Cookies(u)
	require.Len(t, planted, 1)

	ada := f.browser(t)
	ada.client.Jar.SetCookies(u, planted)
	status, body := ada.do(http.MethodPost, server.RouteLogin, map[string]string{"email": "ada@example.com", "password": sent.Secret})
	require.Equal(t, http.StatusOK, status, body)
	require.NotEqual(t, planted[0].Value, ada.client.Jar.Cookies(u)[0].Value)

	status, _ = ada.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = mallory.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthenticated", body["error"])
}

// TestDeletedCompanyDropsSelection tests that members lose a selection once the company is deleted
func TestDeletedCompanyDropsSelection(t *testing.T) {
	f := setupTestFixture(t)

	ada := f.browser(t)
	ada.signupAndConfirm("Ada", "ada@example.com")
	acme := ada.createCompany("Acme", "11111111000111")

	bob := f.browser(t)
	bob.signupAndConfirm("Bob", "bob@example.com")
	status, body := ada.do(http.MethodPost, server.RouteCompanyMembers, map[string]any{"email": "bob@example.com"})
	require.Equal(t, http.StatusCreated, status, body)
	status, body = bob.do(http.MethodPost, server.RouteCompanySelect, map[string]any{"companyId": acme})
	require.Equal(t, http.StatusOK, status, body)

	status, _ = ada.do(http.MethodDelete, server.RouteCompanyCurrent+"?version=1", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = bob.do(http.MethodPost, server.RouteClients, map[string]string{"name": "Ghost"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "tenant_not_found", body["error"])

	status, body = bob.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "selection")
	status, body = bob.do(http.MethodGet, server.RouteClients, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "no_tenant_selected", body["error"])
}

// TestSessionCookie tests cookie attributes and that tampered cookies are ignored
func TestSessionCookie(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)
	b.signupAndConfirm("Ada", "ada@example.com")

	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	cookies := b.client.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	require.Equal(t, cookieName, cookies[0].Name)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+server.RouteMe, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: cookies[0].Value + "x"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var issued *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			issued = c
		}
	}
	require.NotNil(t, issued)
	require.True(t, issued.HttpOnly)
	require.NotEqual(t, cookies[0].Value, issued.Value)
	require.Equal(t, 3600, issued.MaxAge)
}

// TestCorsPreflight tests allowed and unknown origins
func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, f.server.URL+server.RouteClients, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := preflight("https://app.example")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = preflight("https://evil.example")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

// TestSystemRoutes tests health and metrics
func TestSystemRoutes(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)

	status, body := b.do(http.MethodGet, server.RouteHealth, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])

	f.down.Store(true)
	status, body = b.do(http.MethodGet, server.RouteHealth, nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "unavailable", body["status"])

	resp, err := http.Get(f.server.URL + server.RouteMetrics)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "tenant_server_http_requests_total")
}

// TestCompanyMaintenance tests rename, delete and restore of the selected company
func TestCompanyMaintenance(t *testing.T) {
	f := setupTestFixture(t)
	b := f.browser(t)
	b.signupAndConfirm("Ada", "ada@example.com")
	acme := b.createCompany("Acme", "11111111000111")

	status, body := b.do(http.MethodPut, server.RouteCompanyCurrent, map[string]any{"name": "Acme Ltd", "version": 1})
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, float64(2), body["version"])

	status, body = b.do(http.MethodGet, server.RouteMe, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Acme Ltd", body["selection"].(map[string]any)["companyName"])

	status, _ = b.do(http.MethodDelete, server.RouteCompanyCurrent+"?version=1", nil)
	require.Equal(t, http.StatusConflict, status)
	status, body = b.do(http.MethodDelete, server.RouteCompanyCurrent+"?version=2", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(3), body["version"])

	status, body = b.do(http.MethodGet, server.RouteCompanyChoices, nil)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, body["choices"])

	status, _ = b.do(http.MethodPost, fmt.Sprintf("/companies/%d/restore", acme), map[string]any{"version": 3})
	require.Equal(t, http.StatusOK, status)

	status, body = b.do(http.MethodGet, server.RouteCompanyChoices, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["choices"], 1)
}
