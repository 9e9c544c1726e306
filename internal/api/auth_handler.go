package api

import (
	"net/http"

	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/middleware"
	"github.com/2beens/pushpullrun/internal/telemetry/metrics"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
	"github.com/2beens/pushpullrun/pkg"

	log "github.com/sirupsen/logrus"
)

type AuthHandler struct {
	service        authService
	metricsManager *metrics.Manager
}

func NewAuthHandler(service authService, metricsManager *metrics.Manager) *AuthHandler {
	return &AuthHandler{
		service:        service,
		metricsManager: metricsManager,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

type SessionResponse struct {
	Token   string              `json:"token"`
	UID     string              `json:"uid"`
	Profile fitness.UserProfile `json:"profile"`
}

func (handler *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signup")
	defer span.End()

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "sign up", err)
		return
	}

	session, profile, err := handler.service.SignUp(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		writeError(w, "sign up", err)
		return
	}

	handler.metricsManager.CounterSignUps.Inc()
	log.Debugf("new user signed up: %s", session.UID)
	pkg.WriteJSON(w, http.StatusCreated, SessionResponse{
		Token:   session.Token,
		UID:     session.UID,
		Profile: *profile,
	})
}

func (handler *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signin")
	defer span.End()

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "sign in", err)
		return
	}

	session, profile, err := handler.service.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		handler.metricsManager.CounterSignIns.WithLabelValues("failed").Inc()
		writeError(w, "sign in", err)
		return
	}

	handler.metricsManager.CounterSignIns.WithLabelValues("ok").Inc()
	pkg.WriteJSON(w, http.StatusOK, SessionResponse{
		Token:   session.Token,
		UID:     session.UID,
		Profile: *profile,
	})
}

func (handler *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signout")
	defer span.End()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "no user logged in")
		return
	}

	if err := handler.service.SignOut(ctx, session.Token); err != nil {
		writeError(w, "sign out", err)
		return
	}

	log.Debugf("user %s signed out", session.UID)
	w.WriteHeader(http.StatusNoContent)
}

type resetRequest struct {
	Email string `json:"email"`
}

func (handler *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.reset")
	defer span.End()

	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "reset password", err)
		return
	}

	if err := handler.service.ResetPassword(ctx, req.Email); err != nil {
		writeError(w, "reset password", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type confirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (handler *AuthHandler) HandleConfirmReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.reset_confirm")
	defer span.End()

	var req confirmResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "confirm password reset", err)
		return
	}

	if err := handler.service.ConfirmPasswordReset(ctx, req.Token, req.Password); err != nil {
		writeError(w, "confirm password reset", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
