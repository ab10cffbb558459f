package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keywarden/keywarden/internal/common"
	"github.com/keywarden/keywarden/internal/logging"
	"github.com/keywarden/keywarden/internal/server/config"
	"github.com/keywarden/keywarden/internal/server/models"
	"github.com/keywarden/keywarden/internal/server/services"
)

type fakeVaultService struct {
	user   *models.User
	params *services.CryptoParams
	err    error

	registerCalls int
	lastRegister  services.RegisterInput
	lastEmail     string
	lastKey       string
}

func (f *fakeVaultService) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	f.registerCalls++
	f.lastRegister = in
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeVaultService) GetCryptoParams(_ context.Context, email string) (*services.CryptoParams, error) {
	f.lastEmail = email
	if f.err != nil {
		return nil, f.err
	}
	return f.params, nil
}

func (f *fakeVaultService) Authenticate(_ context.Context, email, authKey string) (*models.User, error) {
	f.lastEmail = email
	f.lastKey = authKey
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeVaultService) GetVault(ctx context.Context, email, authKey string) (*models.User, error) {
	return f.Authenticate(ctx, email, authKey)
}

func newTestRouter(t *testing.T, svc VaultService, rateLimit int) http.Handler {
	t.Helper()
	cfg := &config.Config{ParamsRateLimit: rateLimit, ParamsRateWindow: time.Minute}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s, err := NewHTTPServer("127.0.0.1:0", logger, svc, cfg)
	if err != nil {
		t.Fatalf("NewHTTPServer: %v", err)
	}
	return s.Router()
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("error decoding body %q: %v", rec.Body.String(), err)
	}
	return m
}

func testUser() *models.User {
	return &models.User{
		ID:         "8c7e9c3a-45a6-4f4e-9f2e-0d6b6a1c2d3e",
		Email:      "user@example.com",
		AuthKey:    "secret-key",
		Salt:       "abc123",
		Iterations: 600000,
		Vault:      "ciphertext",
		VaultIV:    "iv123",
	}
}

func TestHandleRegister(t *testing.T) {
	svc := &fakeVaultService{user: testUser()}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodPost, "/register",
		`{"email":"user@example.com","user_key":"secret-key"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	u, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user object in %v", body)
	}
	if u["id"] != testUser().ID || u["email"] != "user@example.com" {
		t.Errorf("unexpected user object: %v", u)
	}
	if body["salt"] != "abc123" || body["iterations"] != float64(600000) {
		t.Errorf("unexpected kdf params: %v", body)
	}
	if body["vault"] != "ciphertext" || body["vaultiv"] != "iv123" {
		t.Errorf("unexpected vault pair: %v", body)
	}
	if strings.Contains(rec.Body.String(), "secret-key") {
		t.Errorf("authentication key leaked into response: %s", rec.Body.String())
	}
	if svc.lastRegister.Email != "user@example.com" || svc.lastRegister.AuthKey != "secret-key" {
		t.Errorf("unexpected register input: %+v", svc.lastRegister)
	}
}

func TestHandleRegisterFullShape(t *testing.T) {
	svc := &fakeVaultService{user: testUser()}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodPost, "/register",
		`{"email":"user@example.com","user_key":"secret-key","salt":"s1","iterations":100000,"vault":"v1","vaultiv":"iv1"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	in := svc.lastRegister
	if in.Salt == nil || *in.Salt != "s1" {
		t.Errorf("salt not forwarded: %+v", in)
	}
	if in.Iterations == nil || *in.Iterations != 100000 {
		t.Errorf("iterations not forwarded: %+v", in)
	}
	if in.Vault == nil || *in.Vault != "v1" || in.VaultIV == nil || *in.VaultIV != "iv1" {
		t.Errorf("vault pair not forwarded: %+v", in)
	}
}

func TestHandleRegisterMalformedBody(t *testing.T) {
	svc := &fakeVaultService{user: testUser()}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodPost, "/register", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "INVALID_INPUT" {
		t.Errorf("unexpected error code: %v", body)
	}
	if svc.registerCalls != 0 {
		t.Errorf("service touched for malformed body")
	}
}

func TestHandleRegisterErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", common.ErrorValidation, http.StatusBadRequest, "INVALID_INPUT"},
		{"duplicate", common.ErrorAlreadyExists, http.StatusConflict, "USER_EXISTS"},
		{"storage", common.ErrorUnavailable, http.StatusInternalServerError, "DB_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeVaultService{err: tt.err}, 0)

			rec := doRequest(t, h, http.MethodPost, "/register",
				`{"email":"user@example.com","user_key":"k"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeBody(t, rec)
			if body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, body["code"])
			}
			if body["error_msg"] == "" {
				t.Errorf("expected non-empty error_msg")
			}
		})
	}
}

func TestHandleAuth(t *testing.T) {
	svc := &fakeVaultService{user: testUser()}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodPost, "/auth",
		`{"email":"user@example.com","user_key":"secret-key"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["vault"] != "ciphertext" || body["salt"] != "abc123" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, present := body["iterations"]; present {
		t.Errorf("iterations must not appear in auth response: %v", body)
	}
	if _, present := body["vaultiv"]; present {
		t.Errorf("vaultiv must not appear in auth response: %v", body)
	}
	if svc.lastEmail != "user@example.com" || svc.lastKey != "secret-key" {
		t.Errorf("credentials not forwarded: %q %q", svc.lastEmail, svc.lastKey)
	}
}

func TestHandleAuthFailed(t *testing.T) {
	h := newTestRouter(t, &fakeVaultService{err: common.ErrorUnauthorized}, 0)

	rec := doRequest(t, h, http.MethodPost, "/auth",
		`{"email":"user@example.com","user_key":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "AUTH_FAILED" {
		t.Errorf("unexpected error code: %v", body)
	}
}

func TestHandleGetVault(t *testing.T) {
	svc := &fakeVaultService{user: testUser()}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodGet,
		"/get_vault?email=user@example.com&user_key=secret-key", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["vault"] != "ciphertext" || body["vaultiv"] != "iv123" {
		t.Errorf("unexpected vault pair: %v", body)
	}
	if body["iterations"] != float64(600000) {
		t.Errorf("unexpected iterations: %v", body)
	}
	if _, present := body["salt"]; present {
		t.Errorf("salt must not appear in get_vault response: %v", body)
	}
	if svc.lastEmail != "user@example.com" || svc.lastKey != "secret-key" {
		t.Errorf("credentials not forwarded: %q %q", svc.lastEmail, svc.lastKey)
	}
}

func TestHandleGetVaultErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"mismatch", common.ErrorUnauthorized, http.StatusUnauthorized, "AUTH_FAILED"},
		{"missing params", common.ErrorValidation, http.StatusBadRequest, "INVALID_INPUT"},
		{"storage", common.ErrorUnavailable, http.StatusInternalServerError, "DB_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeVaultService{err: tt.err}, 0)

			rec := doRequest(t, h, http.MethodGet, "/get_vault?email=a@b.c&user_key=k", "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decodeBody(t, rec); body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, body["code"])
			}
		})
	}
}

func TestHandleGetCryptoParams(t *testing.T) {
	svc := &fakeVaultService{params: &services.CryptoParams{Salt: "abc123", Iterations: 600000}}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodGet, "/get_crypto_params?email=user@example.com", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["salt"] != "abc123" || body["iterations"] != float64(600000) {
		t.Errorf("unexpected body: %v", body)
	}
	if _, present := body["vault"]; present {
		t.Errorf("vault must not appear in crypto params response: %v", body)
	}
}

func TestHandleGetCryptoParamsNotFound(t *testing.T) {
	h := newTestRouter(t, &fakeVaultService{err: common.ErrorNotFound}, 0)

	rec := doRequest(t, h, http.MethodGet, "/get_crypto_params?email=nobody@example.com", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "USER_NOT_FOUND" {
		t.Errorf("unexpected error code: %v", body)
	}
}

func TestHandleGetCryptoParamsMissingEmail(t *testing.T) {
	h := newTestRouter(t, &fakeVaultService{err: common.ErrorValidation}, 0)

	rec := doRequest(t, h, http.MethodGet, "/get_crypto_params", "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetSalt(t *testing.T) {
	svc := &fakeVaultService{params: &services.CryptoParams{Salt: "abc123", Iterations: 600000}}
	h := newTestRouter(t, svc, 0)

	rec := doRequest(t, h, http.MethodGet, "/get_salt?email=user@example.com", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["salt"] != "abc123" {
		t.Errorf("unexpected salt: %v", body)
	}
	if _, present := body["iterations"]; present {
		t.Errorf("legacy salt response must contain only the salt: %v", body)
	}
}

func TestParamsRateLimit(t *testing.T) {
	svc := &fakeVaultService{user: testUser(), params: &services.CryptoParams{Salt: "abc123", Iterations: 600000}}
	h := newTestRouter(t, svc, 2)

	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, http.MethodGet, "/get_crypto_params?email=user@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := doRequest(t, h, http.MethodGet, "/get_crypto_params?email=user@example.com", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "RATE_LIMITED" {
		t.Errorf("unexpected error code: %v", body)
	}

	// Authenticated routes share no budget with the parameter endpoints.
	authRec := doRequest(t, h, http.MethodPost, "/auth",
		`{"email":"user@example.com","user_key":"k"}`)
	if authRec.Code == http.StatusTooManyRequests {
		t.Errorf("auth must not be throttled by the params limiter")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &fakeVaultService{}, 0)

	rec := doRequest(t, h, http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
