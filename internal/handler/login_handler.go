package handler

import (
	"errors"
	"net/http"
	"time"

	"admin-console/internal/apiclient"
	"admin-console/internal/login"
	"admin-console/internal/models"
	"admin-console/internal/service"
	"admin-console/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const msgLoginRequired = "Please sign in to continue"

// LoginHandler serves the OTP sign-in screens and the console session.
type LoginHandler struct {
	responder
	login       *service.LoginService
	redirectURL string
}

func NewLoginHandler(loginService *service.LoginService, redirectURL string, logger *zap.Logger) *LoginHandler {
	return &LoginHandler{
		responder:   responder{logger: logger},
		login:       loginService,
		redirectURL: redirectURL,
	}
}

// RegisterRoutes registers the public sign-in routes
func (h *LoginHandler) RegisterRoutes(router chi.Router) {
	router.Route("/login", func(r chi.Router) {
		r.Get("/", h.Status)
		r.Post("/email", h.SubmitEmail)
		r.Post("/otp", h.OTP)
		r.Post("/resend", h.Resend)
		r.Post("/change-email", h.ChangeEmail)
	})
}

// RegisterAuthenticatedRoutes registers routes that need a signed-in session
func (h *LoginHandler) RegisterAuthenticatedRoutes(router chi.Router) {
	router.Get("/session", h.Session)
	router.Post("/logout", h.Logout)
}

// RequireAuth loads the session's credentials or answers 401 with the
// login redirect.
func (h *LoginHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, err := h.login.Credentials(r.Context(), SessionID(r.Context()))
		if err != nil || creds.AccessToken == "" {
			if err == nil {
				err = apiclient.ErrNoToken
			}
			h.unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withCredentials(r.Context(), creds)))
	})
}

func (h *LoginHandler) unauthorized(w http.ResponseWriter, err error) {
	resp := errorResponse(err, msgLoginRequired)
	resp.Redirect = h.redirectURL
	h.respondWithJSON(w, http.StatusUnauthorized, resp)
}

func (h *LoginHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, successResponse(h.login.Status(SessionID(r.Context())), ""))
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *LoginHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err, "Invalid request body")
		return
	}
	snap, err := h.login.SubmitEmail(r.Context(), SessionID(r.Context()), req.Email)
	h.respondWithSnapshot(w, snap, err)
}

func (h *LoginHandler) OTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var action service.OTPAction
	if err := decodeJSON(r, &action); err != nil {
		h.respondWithError(w, err, "Invalid request body")
		return
	}
	snap, err := h.login.Edit(r.Context(), SessionID(r.Context()), action)
	h.respondWithSnapshot(w, snap, err)

	if snap.State == login.StateAuthenticated {
		h.logger.Info("Admin signed in via HTTP",
			util.Duration("duration", time.Since(startTime)),
			util.String("method", "OTP"),
		)
	}
}

func (h *LoginHandler) Resend(w http.ResponseWriter, r *http.Request) {
	snap, err := h.login.Resend(r.Context(), SessionID(r.Context()))
	h.respondWithSnapshot(w, snap, err)
}

func (h *LoginHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	snap, err := h.login.ChangeEmail(SessionID(r.Context()))
	h.respondWithSnapshot(w, snap, err)
}

// respondWithSnapshot always returns the login screen so the client can
// render the notice alongside the error. An upstream 401 here rejects the
// email or code and is sent as 422; 401 is reserved for the auth gate.
func (h *LoginHandler) respondWithSnapshot(w http.ResponseWriter, snap login.Snapshot, err error) {
	message := ""
	if snap.Notice != nil {
		message = snap.Notice.Message
	}
	if err != nil {
		status := getStatusCode(err)
		if status == http.StatusUnauthorized {
			status = http.StatusUnprocessableEntity
		}
		h.respondWithErrorStatus(w, status, err, message, snap)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(snap, message))
}

type sessionView struct {
	User     models.AdminProfile `json:"user"`
	IssuedAt time.Time           `json:"issued_at"`
}

func (h *LoginHandler) Session(w http.ResponseWriter, r *http.Request) {
	creds := CredentialsFrom(r.Context())
	h.respondWithJSON(w, http.StatusOK, successResponse(sessionView{User: creds.User, IssuedAt: creds.IssuedAt}, ""))
}

func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.login.Logout(ctx, SessionID(ctx), CredentialsFrom(ctx)); err != nil {
		h.respondWithError(w, err, "Failed to sign out")
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out", Redirect: h.redirectURL})
}

// rejected reports whether upstream refused the session's token, in which
// case the stored credentials are dropped and the client sent to sign in.
func (h *LoginHandler) rejected(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	h.login.Invalidate(r.Context(), SessionID(r.Context()))
	h.unauthorized(w, err)
	return true
}
