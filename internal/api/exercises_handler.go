package api

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/store"
	"github.com/2beens/pushpullrun/internal/telemetry/metrics"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
	"github.com/2beens/pushpullrun/pkg"
)

type ExercisesHandler struct {
	store          exerciseStore
	metricsManager *metrics.Manager
}

func NewExercisesHandler(store exerciseStore, metricsManager *metrics.Manager) *ExercisesHandler {
	return &ExercisesHandler{
		store:          store,
		metricsManager: metricsManager,
	}
}

type ExercisesResponse struct {
	Exercises []fitness.Exercise `json:"exercises"`
	Total     int                `json:"total"`
}

func (handler *ExercisesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	exercises, err := handler.store.FetchAllExercises(ctx)
	if err != nil {
		writeError(w, "list exercises", err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, ExercisesResponse{
		Exercises: exercises,
		Total:     len(exercises),
	})
}

// HandleSave upserts the exercise, a missing id gets a new one.
func (handler *ExercisesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.save")
	defer span.End()

	var exercise fitness.Exercise
	if err := decodeJSON(r, &exercise); err != nil {
		writeError(w, "save exercise", err)
		return
	}
	if exercise.ID == uuid.Nil {
		exercise.ID = uuid.New()
	}

	if err := handler.store.SaveExercise(ctx, exercise); err != nil {
		writeError(w, "save exercise", err)
		return
	}

	log.Debugf("exercise saved: %s [%s]", exercise.Name, exercise.ID)
	pkg.WriteJSON(w, http.StatusOK, exercise.Normalized())
}

func (handler *ExercisesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := handler.store.DeleteExercise(ctx, id); err != nil {
		writeError(w, "delete exercise", err)
		return
	}

	log.Debugf("exercise deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage stores the image and adds its URL to the exercise imageNames.
func (handler *ExercisesHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.upload_image")
	defer span.End()

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	exercise, err := handler.store.FetchExercise(ctx, id)
	if err != nil {
		writeError(w, "upload exercise image", err)
		return
	}

	data, err := readImage(r)
	if err != nil {
		writeError(w, "upload exercise image", err)
		return
	}

	url, err := handler.store.UploadImage(ctx, data, store.ExerciseImageKey(id))
	if err != nil {
		writeError(w, "upload exercise image", err)
		return
	}

	// the key is per exercise, a new upload replaces the old image under the same URL
	if !slices.Contains(exercise.ImageNames, url) {
		exercise.ImageNames = append(exercise.ImageNames, url)
		if err := handler.store.SaveExercise(ctx, *exercise); err != nil {
			writeError(w, "upload exercise image", err)
			return
		}
	}

	handler.metricsManager.CounterImageUploads.WithLabelValues("exercise").Inc()
	pkg.WriteJSON(w, http.StatusCreated, imageResponse{URL: url})
}
