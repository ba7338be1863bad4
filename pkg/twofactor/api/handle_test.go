package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relieflink/authcore/pkg/twofactor"
)

// stubService returns canned results per operation
type stubService struct {
	twofactor.NoOpService

	status       twofactor.Status
	setupErr     error
	verifyResult *twofactor.EnableResult
	verifyErr    error
}

func (s *stubService) Status(ctx context.Context, userID uuid.UUID) (twofactor.Status, error) {
	return s.status, nil
}

func (s *stubService) Setup(ctx context.Context, params twofactor.SetupParams) error {
	return s.setupErr
}

func (s *stubService) VerifySetup(ctx context.Context, params twofactor.VerifySetupParams) (*twofactor.EnableResult, error) {
	return s.verifyResult, s.verifyErr
}

func newTestServer(t *testing.T, service twofactor.TwoFactorService) (*httptest.Server, string) {
	t.Helper()

	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	_, tokenString, err := tokenAuth.Encode(map[string]interface{}{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		NewHandle(service).RegisterRoutes(r)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server, tokenString
}

func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestGetStatus(t *testing.T) {
	lastUsed := time.Now().UTC().Add(-time.Hour)
	service := &stubService{
		status: twofactor.Status{
			Enabled:              true,
			BackupCodesRemaining: 5,
			LastUsedAt:           &lastUsed,
		},
	}
	server, token := newTestServer(t, service)

	resp := doRequest(t, server, http.MethodGet, "/2fa/status", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Enabled)
	assert.Equal(t, int32(5), body.BackupCodesRemaining)
	require.NotNil(t, body.LastUsedAt)
}

func TestRequestWithoutToken(t *testing.T) {
	server, _ := newTestServer(t, &stubService{})

	resp := doRequest(t, server, http.MethodGet, "/2fa/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSetup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already enabled", twofactor.ErrAlreadyEnabled, http.StatusConflict, "already_enabled"},
		{"wrong password", twofactor.ErrInvalidPassword, http.StatusUnauthorized, "invalid_password"},
		{"rate limited", &twofactor.RateLimitError{RetryAfter: 90 * time.Second}, http.StatusTooManyRequests, "rate_limited"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, token := newTestServer(t, &stubService{setupErr: tc.err})

			resp := doRequest(t, server, http.MethodPost, "/2fa/setup", token, SetupRequest{CurrentPassword: "pw"})
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.wantCode, body.Code)
		})
	}
}

func TestSetup_RateLimitSetsRetryAfter(t *testing.T) {
	server, token := newTestServer(t, &stubService{
		setupErr: &twofactor.RateLimitError{RetryAfter: 90 * time.Second},
	})

	resp := doRequest(t, server, http.MethodPost, "/2fa/setup", token, SetupRequest{CurrentPassword: "pw"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "90", resp.Header.Get("Retry-After"))
}

func TestVerifySetup(t *testing.T) {
	service := &stubService{
		verifyResult: &twofactor.EnableResult{BackupCodes: []string{"AAAA2222", "BBBB3333"}},
	}
	server, token := newTestServer(t, service)

	resp := doRequest(t, server, http.MethodPost, "/2fa/setup/verify", token, VerifySetupRequest{Passcode: "123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body EnableResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Enabled)
	assert.Equal(t, []string{"AAAA2222", "BBBB3333"}, body.BackupCodes)
}

func TestVerifySetup_MissingPasscode(t *testing.T) {
	server, token := newTestServer(t, &stubService{})

	resp := doRequest(t, server, http.MethodPost, "/2fa/setup/verify", token, VerifySetupRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
