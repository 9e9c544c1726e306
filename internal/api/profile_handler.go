package api

import (
	"net/http"

	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/store"
	"github.com/2beens/pushpullrun/internal/telemetry/metrics"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
	"github.com/2beens/pushpullrun/pkg"

	log "github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	store          profileStore
	metricsManager *metrics.Manager
}

func NewProfileHandler(store profileStore, metricsManager *metrics.Manager) *ProfileHandler {
	return &ProfileHandler{
		store:          store,
		metricsManager: metricsManager,
	}
}

func (handler *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.get")
	defer span.End()

	uid, ok := currentUID(w, r)
	if !ok {
		return
	}

	profile, err := handler.store.FetchProfile(ctx, uid)
	if err != nil {
		writeError(w, "get profile", err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, profile)
}

// HandleUpdate overwrites the whole profile document with the request body.
func (handler *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.update")
	defer span.End()

	uid, ok := currentUID(w, r)
	if !ok {
		return
	}

	var profile fitness.UserProfile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, "update profile", err)
		return
	}

	if err := handler.store.SaveProfile(ctx, profile, uid); err != nil {
		writeError(w, "update profile", err)
		return
	}

	log.Debugf("profile of user %s updated", uid)
	pkg.WriteJSON(w, http.StatusOK, profile.Normalized())
}

func (handler *ProfileHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.upload_image")
	defer span.End()

	uid, ok := currentUID(w, r)
	if !ok {
		return
	}

	profile, err := handler.store.FetchProfile(ctx, uid)
	if err != nil {
		writeError(w, "upload profile image", err)
		return
	}

	data, err := readImage(r)
	if err != nil {
		writeError(w, "upload profile image", err)
		return
	}

	url, err := handler.store.UploadImage(ctx, data, store.ProfileImageKey(uid))
	if err != nil {
		writeError(w, "upload profile image", err)
		return
	}

	profile.ProfileImage = &url
	if err := handler.store.SaveProfile(ctx, *profile, uid); err != nil {
		writeError(w, "upload profile image", err)
		return
	}

	handler.metricsManager.CounterImageUploads.WithLabelValues("profile").Inc()
	pkg.WriteJSON(w, http.StatusCreated, imageResponse{URL: url})
}
