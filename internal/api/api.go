package api

//go:generate mockgen -source=$GOFILE -destination=api_mocks_test.go -package=api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/middleware"
	"github.com/2beens/pushpullrun/internal/store"
	"github.com/2beens/pushpullrun/pkg"
)

// MaxImageSize caps the multipart body of image uploads.
const MaxImageSize = 10 << 20

var (
	_ authService   = (*auth.Service)(nil)
	_ profileStore  = (*store.Adapter)(nil)
	_ exerciseStore = (*store.Adapter)(nil)
	_ workoutStore  = (*store.Adapter)(nil)
)

type authService interface {
	SignUp(ctx context.Context, email, password, username string) (*auth.Session, *fitness.UserProfile, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, *fitness.UserProfile, error)
	SignOut(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error
}

type profileStore interface {
	SaveProfile(ctx context.Context, profile fitness.UserProfile, userID string) error
	FetchProfile(ctx context.Context, userID string) (*fitness.UserProfile, error)
	UploadImage(ctx context.Context, data []byte, key store.ImageKey) (string, error)
}

type exerciseStore interface {
	SaveExercise(ctx context.Context, exercise fitness.Exercise) error
	FetchExercise(ctx context.Context, exerciseID uuid.UUID) (*fitness.Exercise, error)
	FetchAllExercises(ctx context.Context) ([]fitness.Exercise, error)
	DeleteExercise(ctx context.Context, exerciseID uuid.UUID) error
	UploadImage(ctx context.Context, data []byte, key store.ImageKey) (string, error)
}

type workoutStore interface {
	SaveWorkout(ctx context.Context, workout fitness.Workout, userID string) error
	FetchWorkouts(ctx context.Context, userID string) ([]fitness.Workout, error)
	DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID string) error
}

var errBadBody = errors.New("invalid request body")

// statusFor maps store and auth errors to the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody), store.IsEncodingError(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidResetToken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server side failures and writes the error body. Internal
// errors are not exposed to the client.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s: %s", op, err)
		pkg.WriteJSONError(w, status, op+" failed")
		return
	}

	log.Debugf("%s: %s", op, err)
	message := err.Error()
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		message = authErr.Err.Error()
	}
	pkg.WriteJSONError(w, status, message)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errBadBody, err)
	}
	return nil
}

// currentUID returns the uid of the session put in place by the auth middleware.
func currentUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, auth.ErrNoSession.Error())
		return "", false
	}
	return session.UID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// readImage reads the "image" multipart field.
func readImage(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errBadBody, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("close uploaded file: %s", err)
		}
	}()

	log.Debugf(
		"upload image, filename: %s, size: %d, content-type: %s",
		header.Filename, header.Size, header.Header.Get("Content-Type"),
	)

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errBadBody, err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: image larger than %d bytes", errBadBody, MaxImageSize)
	}
	return data, nil
}

type imageResponse struct {
	URL string `json:"url"`
}
