package api

import (
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/telemetry/metrics"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
	"github.com/2beens/pushpullrun/pkg"
)

type WorkoutsHandler struct {
	store          workoutStore
	metricsManager *metrics.Manager
}

func NewWorkoutsHandler(store workoutStore, metricsManager *metrics.Manager) *WorkoutsHandler {
	return &WorkoutsHandler{
		store:          store,
		metricsManager: metricsManager,
	}
}

type WorkoutsResponse struct {
	Workouts []fitness.Workout `json:"workouts"`
	Total    int               `json:"total"`
}

// HandleList returns the workouts of the signed-in user, newest first.
func (handler *WorkoutsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	uid, ok := currentUID(w, r)
	if !ok {
		return
	}

	workouts, err := handler.store.FetchWorkouts(ctx, uid)
	if err != nil {
		writeError(w, "list workouts", err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, WorkoutsResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
}

func (handler *WorkoutsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.save")
	defer span.End()

	uid, ok := currentUID(w, r)
	if !ok {
		return
	}

	var workout fitness.Workout
	if err := decodeJSON(r, &workout); err != nil {
		writeError(w, "save workout", err)
		return
	}
	if workout.ID == uuid.Nil {
		workout.ID = uuid.New()
	}

	if err := handler.store.SaveWorkout(ctx, workout, uid); err != nil {
		writeError(w, "save workout", err)
		return
	}

	handler.metricsManager.CounterWorkoutsSaved.Inc()
	log.Debugf("workout %s saved for user %s", workout.ID, uid)
	pkg.WriteJSON(w, http.StatusOK, workout.Normalized())
}

func (handler *WorkoutsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	uid, ok := currentUID(w, r)
	if !ok {
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := handler.store.DeleteWorkout(ctx, id, uid); err != nil {
		writeError(w, "delete workout", err)
		return
	}

	log.Debugf("workout %s of user %s deleted", id, uid)
	w.WriteHeader(http.StatusNoContent)
}
