package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/2beens/pushpullrun/internal/middleware"
	"github.com/2beens/pushpullrun/internal/telemetry/metrics"
	"github.com/2beens/pushpullrun/pkg"
)

type RoutesParams struct {
	Auth      *AuthHandler
	Profile   *ProfileHandler
	Exercises *ExercisesHandler
	Workouts  *WorkoutsHandler
	Misc      *MiscHandler

	RateLimiter         middleware.RequestRateLimiter
	SignInAllowedPerMin int
	TrustedProxies      pkg.TrustedProxies
	MetricsManager      *metrics.Manager
}

// SetupRoutes registers all the API endpoints on the main router.
func SetupRoutes(mainRouter *mux.Router, params RoutesParams) {
	mainRouter.HandleFunc("/health", params.Misc.HandleHealth).Methods("GET").Name("health")
	mainRouter.HandleFunc("/images/{key:.+}", params.Misc.HandleImage).Methods("GET").Name("image")

	authRouter := mainRouter.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/signup", params.Auth.HandleSignUp).Methods("POST", "OPTIONS").Name("signup")
	authRouter.HandleFunc("/signout", params.Auth.HandleSignOut).Methods("POST", "OPTIONS").Name("signout")
	authRouter.HandleFunc("/reset", params.Auth.HandleResetPassword).Methods("POST", "OPTIONS").Name("reset")
	authRouter.HandleFunc("/reset/confirm", params.Auth.HandleConfirmReset).Methods("POST", "OPTIONS").Name("reset-confirm")

	// sign in is rate limited per client ip
	signInRouter := authRouter.PathPrefix("/signin").Subrouter()
	signInRouter.HandleFunc("", params.Auth.HandleSignIn).Methods("POST", "OPTIONS").Name("signin")
	if params.RateLimiter != nil {
		signInRouter.Use(middleware.RateLimit(
			params.RateLimiter,
			"signin",
			params.SignInAllowedPerMin,
			params.TrustedProxies,
			params.MetricsManager,
		))
	}

	mainRouter.HandleFunc("/profile", params.Profile.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	mainRouter.HandleFunc("/profile", params.Profile.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-profile")
	mainRouter.HandleFunc("/profile/image", params.Profile.HandleUploadImage).Methods("POST", "OPTIONS").Name("profile-image")

	mainRouter.HandleFunc("/exercises", params.Exercises.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	mainRouter.HandleFunc("/exercises", params.Exercises.HandleSave).Methods("PUT", "OPTIONS").Name("save-exercise")
	mainRouter.HandleFunc("/exercises/{id}", params.Exercises.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	mainRouter.HandleFunc("/exercises/{id}/image", params.Exercises.HandleUploadImage).Methods("POST", "OPTIONS").Name("exercise-image")

	mainRouter.HandleFunc("/workouts", params.Workouts.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	mainRouter.HandleFunc("/workouts", params.Workouts.HandleSave).Methods("PUT", "OPTIONS").Name("save-workout")
	mainRouter.HandleFunc("/workouts/{id}", params.Workouts.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")

	// all the rest - unhandled paths
	mainRouter.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")
}
