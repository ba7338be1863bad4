package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/relieflink/authcore/pkg/twofactor"
)

// Handle handles HTTP requests for two-factor management
type Handle struct {
	twoFactorService twofactor.TwoFactorService
}

// NewHandle creates a new two-factor handler
func NewHandle(twoFactorService twofactor.TwoFactorService) *Handle {
	return &Handle{twoFactorService: twoFactorService}
}

// RegisterRoutes registers the two-factor routes. The router is expected to
// already carry jwtauth verification middleware; the user ID comes from the
// token's sub claim.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/2fa", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Post("/setup", h.Setup)
		r.Post("/setup/verify", h.VerifySetup)
		r.Post("/disable", h.Disable)
		r.Post("/disable/send", h.SendDisableOTP)
		r.Post("/backup-codes/regenerate", h.RegenerateBackupCodes)
		r.Post("/login/send", h.SendLoginOTP)
		r.Post("/login/verify", h.VerifyLogin)
	})
}

// GetStatus returns the account's two-factor projection
// (GET /2fa/status)
func (h *Handle) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	status, err := h.twoFactorService.Status(r.Context(), userID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	response := StatusResponse{}
	copier.Copy(&response, &status)
	render.JSON(w, r, response)
}

// Setup starts enrollment by sending the setup passcode
// (POST /2fa/setup)
func (h *Handle) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	var data SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.renderBadRequest(w, r, "Invalid request body")
		return
	}

	err := h.twoFactorService.Setup(r.Context(), twofactor.SetupParams{
		UserID:          userID,
		CurrentPassword: data.CurrentPassword,
		IP:              clientIP(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Verification code sent"})
}

// VerifySetup confirms enrollment and returns the backup codes
// (POST /2fa/setup/verify)
func (h *Handle) VerifySetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	var data VerifySetupRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.renderBadRequest(w, r, "Invalid request body")
		return
	}
	if data.Passcode == "" {
		h.renderBadRequest(w, r, "Passcode is required")
		return
	}

	result, err := h.twoFactorService.VerifySetup(r.Context(), twofactor.VerifySetupParams{
		UserID:   userID,
		Passcode: data.Passcode,
		IP:       clientIP(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, EnableResponse{
		Enabled:     true,
		BackupCodes: result.BackupCodes,
	})
}

// Disable turns two-factor auth off
// (POST /2fa/disable)
func (h *Handle) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	var data DisableRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.renderBadRequest(w, r, "Invalid request body")
		return
	}

	err := h.twoFactorService.Disable(r.Context(), twofactor.DisableParams{
		UserID:          userID,
		CurrentPassword: data.CurrentPassword,
		Passcode:        data.Passcode,
		IP:              clientIP(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Two-factor authentication disabled"})
}

// SendDisableOTP issues the passcode confirming a disable request
// (POST /2fa/disable/send)
func (h *Handle) SendDisableOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	err := h.twoFactorService.SendDisableOTP(r.Context(), userID, clientIP(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Verification code sent"})
}

// RegenerateBackupCodes replaces the backup-code batch
// (POST /2fa/backup-codes/regenerate)
func (h *Handle) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	var data RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.renderBadRequest(w, r, "Invalid request body")
		return
	}

	codes, err := h.twoFactorService.RegenerateBackupCodes(r.Context(), twofactor.RegenerateParams{
		UserID:          userID,
		CurrentPassword: data.CurrentPassword,
		Passcode:        data.Passcode,
		IP:              clientIP(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, RegenerateResponse{BackupCodes: codes})
}

// SendLoginOTP issues the login-time challenge passcode
// (POST /2fa/login/send)
func (h *Handle) SendLoginOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	err := h.twoFactorService.SendLoginOTP(r.Context(), twofactor.SendLoginOTPParams{
		UserID: userID,
		IP:     clientIP(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Verification code sent"})
}

// VerifyLogin answers the login-time challenge
// (POST /2fa/login/verify)
func (h *Handle) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUserID(w, r)
	if !ok {
		return
	}

	var data VerifyLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.renderBadRequest(w, r, "Invalid request body")
		return
	}
	if data.Passcode == "" {
		h.renderBadRequest(w, r, "Passcode is required")
		return
	}

	err := h.twoFactorService.VerifyLogin(r.Context(), twofactor.VerifyLoginParams{
		UserID:        userID,
		Passcode:      data.Passcode,
		UseBackupCode: data.UseBackupCode,
		IP:            clientIP(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Verification successful"})
}

// authUserID extracts the authenticated user's UUID from the JWT sub claim
func (h *Handle) authUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		slog.Error("Failed to get token claims", "err", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Code: "unauthorized", Message: "Authentication required"})
		return uuid.Nil, false
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		slog.Error("Invalid sub claim", "sub", sub, "err", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Code: "unauthorized", Message: "Authentication required"})
		return uuid.Nil, false
	}

	return userID, true
}

func (h *Handle) renderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Code: "invalid_request", Message: message})
}

// renderError maps service sentinel errors onto HTTP statuses
func (h *Handle) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var rateErr *twofactor.RateLimitError

	switch {
	case errors.As(err, &rateErr):
		if rateErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rateErr.RetryAfter.Seconds())))
		}
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{Code: "rate_limited", Message: err.Error()})
	case errors.Is(err, twofactor.ErrRateLimited):
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{Code: "rate_limited", Message: err.Error()})
	case errors.Is(err, twofactor.ErrInvalidPassword):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Code: "invalid_password", Message: err.Error()})
	case errors.Is(err, twofactor.ErrPasscodeInvalid):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Code: "invalid_passcode", Message: err.Error()})
	case errors.Is(err, twofactor.ErrPasscodeRequired):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: "passcode_required", Message: err.Error()})
	case errors.Is(err, twofactor.ErrAlreadyEnabled):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Code: "already_enabled", Message: err.Error()})
	case errors.Is(err, twofactor.ErrNotEnabled):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Code: "not_enabled", Message: err.Error()})
	case errors.Is(err, twofactor.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: "not_found", Message: err.Error()})
	default:
		slog.Error("Two-factor operation failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Code: "internal_error", Message: "Internal server error"})
	}
}

// clientIP returns the requester's IP, honoring X-Forwarded-For when set
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// first hop is the original client
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
