package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/backend"
	"github.com/MrEthical07/goReset/internal/validate"
	"github.com/MrEthical07/goReset/middleware"
)

const (
	PathForgotPassword = "/auth/forgot-password"
	PathVerifyOTP      = "/auth/verify-otp"
	PathResetPassword  = "/auth/reset-password"

	defaultMaxBodyBytes = 4 << 10
)

// Error codes returned in the "error" field.
const (
	CodeBadRequest     = "bad_request"
	CodeValidation     = "validation_failed"
	CodeRateLimited    = "rate_limited"
	CodeResendCooldown = "resend_cooldown"
	CodeWeakPassword   = "weak_password"
	CodeInvalidGrant   = "invalid_grant"
	CodeNotVerified    = "not_verified"
	CodeUnavailable    = "unavailable"
)

type Options struct {
	// TrustForwardedFor takes the client IP from X-Forwarded-For.
	TrustForwardedFor bool
	MaxBodyBytes      int64
	Logger            *slog.Logger
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
	Force bool   `json:"force,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyOTPResponse struct {
	Verified   bool   `json:"verified"`
	ResetToken string `json:"reset_token,omitempty"`
	ExpiresIn  int    `json:"expires_in,omitempty"`
}

// ResetPasswordRequest is sent with the reset token as a bearer credential.
type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Handler serves the reset endpoints for a backend.Service.
type Handler struct {
	svc       *backend.Service
	validator *validate.Validator
	logger    *slog.Logger
	maxBody   int64
	root      http.Handler
}

func New(svc *backend.Service, opts Options) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("httpapi: service is required")
	}
	v, err := validate.New(svc.PasswordPolicy())
	if err != nil {
		return nil, err
	}

	h := &Handler{
		svc:       svc,
		validator: v,
		logger:    opts.Logger,
		maxBody:   opts.MaxBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "reset_http")
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathForgotPassword, h.forgotPassword)
	mux.HandleFunc("POST "+PathVerifyOTP, h.verifyOTP)
	mux.Handle("POST "+PathResetPassword, middleware.RequireGrant(svc.Grants())(http.HandlerFunc(h.resetPassword)))

	h.root = middleware.ClientIP(opts.TrustForwardedFor)(mux)
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body ForgotPasswordRequest
	if !h.decode(w, r, &body) {
		return
	}
	if !h.validateForm(w, validate.ResetRequestForm{Email: body.Email}) {
		return
	}

	err := h.svc.RequestReset(r.Context(), body.Email, body.Force)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: goReset.MsgResetRequested})
	case errors.Is(err, backend.ErrResendCooldown):
		if remaining, rerr := h.svc.ResendRemaining(r.Context(), body.Email); rerr == nil && remaining > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(remaining.Seconds()))))
		}
		writeError(w, http.StatusTooManyRequests, CodeResendCooldown, goReset.MsgResendCooldown)
	case errors.Is(err, backend.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, CodeRateLimited, goReset.MsgResendUnavailable)
	default:
		h.unavailable(w, r, err)
	}
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var body VerifyOTPRequest
	if !h.decode(w, r, &body) {
		return
	}

	grant, err := h.svc.VerifyForGrant(r.Context(), body.Email, body.Code)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, VerifyOTPResponse{
			Verified:   true,
			ResetToken: grant,
			ExpiresIn:  int(h.svc.Grants().TTL().Seconds()),
		})
	case errors.Is(err, backend.ErrInvalidCode):
		writeJSON(w, http.StatusOK, VerifyOTPResponse{Verified: false})
	default:
		h.unavailable(w, r, err)
	}
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	grant, _, ok := middleware.GrantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeInvalidGrant, "")
		return
	}

	var body ResetPasswordRequest
	if !h.decode(w, r, &body) {
		return
	}
	if !h.validateForm(w, validate.NewPasswordForm{Password: body.Password, Confirm: body.Confirm}) {
		return
	}

	err := h.svc.CommitWithGrant(r.Context(), body.Email, grant, body.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: goReset.MsgResetComplete})
	case errors.Is(err, backend.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, CodeWeakPassword, goReset.MsgWeakPassword)
	case errors.Is(err, backend.ErrInvalidGrant):
		writeError(w, http.StatusUnauthorized, CodeInvalidGrant, goReset.MsgRequestAgain)
	case errors.Is(err, backend.ErrNotVerified):
		writeError(w, http.StatusConflict, CodeNotVerified, goReset.MsgRequestAgain)
	default:
		h.unavailable(w, r, err)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "malformed request body")
		return false
	}
	return true
}

func (h *Handler) validateForm(w http.ResponseWriter, form any) bool {
	err := h.validator.Struct(form)
	if err == nil {
		return true
	}

	var fields validate.FieldErrors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: CodeValidation, Fields: fields})
		return false
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "")
	return false
}

func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "reset request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
