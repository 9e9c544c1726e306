package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushpullrun/internal/blobstore"
	"github.com/2beens/pushpullrun/internal/cache"
	"github.com/2beens/pushpullrun/internal/docstore"
	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
)

const (
	usersCollection     = "users"
	workoutsCollection  = "workouts"
	exercisesCollection = "exercises"

	// WorkoutOrderField is the document field workouts are sorted by.
	WorkoutOrderField = "date"

	DefaultJPEGQuality = 50

	ExercisesCacheKey = "exercises||all"
)

type ImageKey string

func ProfileImageKey(userID string) ImageKey {
	return ImageKey("profile_images/" + userID + ".jpg")
}

func ExerciseImageKey(exerciseID uuid.UUID) ImageKey {
	return ImageKey("exercise_images/" + exerciseID.String() + ".jpg")
}

func ProfilePath(userID string) docstore.Path {
	return docstore.Doc(usersCollection, userID)
}

func WorkoutsCollection(userID string) docstore.Path {
	return docstore.Doc(usersCollection, userID, workoutsCollection)
}

func WorkoutPath(userID string, workoutID uuid.UUID) docstore.Path {
	return docstore.Doc(usersCollection, userID, workoutsCollection, workoutID.String())
}

func ExercisePath(exerciseID uuid.UUID) docstore.Path {
	return docstore.Doc(exercisesCollection, exerciseID.String())
}

// Adapter maps fitness records to documents of the document store:
//
//	users/{userId}                        -> UserProfile
//	users/{userId}/workouts/{workoutId}   -> Workout
//	exercises/{exerciseId}                -> Exercise
//
// and images to blobs under profile_images/ and exercise_images/.
type Adapter struct {
	docs           docstore.Store
	blobs          blobstore.Store
	exercisesCache cache.Cache
	jpegQuality    int

	// bumped on every exercise write, a fill started before it is dropped
	cacheMu  sync.Mutex
	cacheGen uint64
}

type NewAdapterParams struct {
	Docs  docstore.Store
	Blobs blobstore.Store
	// ExercisesCache is optional.
	ExercisesCache cache.Cache
	JPEGQuality    int
}

func NewAdapter(params NewAdapterParams) *Adapter {
	quality := params.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Adapter{
		docs:           params.Docs,
		blobs:          params.Blobs,
		exercisesCache: params.ExercisesCache,
		jpegQuality:    quality,
	}
}

func encode(record any) ([]byte, error) {
	if err := fitness.Validate(record); err != nil {
		return nil, &EncodingError{Err: err}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

func decode[T any](path docstore.Path, data []byte) (T, error) {
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return record, &DecodeError{Path: path.String(), Err: err}
	}
	if err := fitness.Validate(record); err != nil {
		return record, &DecodeError{Path: path.String(), Err: err}
	}
	return record, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}

func checkUserID(userID string) error {
	if userID == "" {
		return &EncodingError{Err: errors.New("empty user id")}
	}
	return nil
}

func (a *Adapter) SaveProfile(ctx context.Context, profile fitness.UserProfile, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.saveProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := checkUserID(userID); err != nil {
		return err
	}
	data, err := encode(profile.Normalized())
	if err != nil {
		return err
	}
	if err := a.docs.Set(ctx, ProfilePath(userID), data); err != nil {
		return storeErr("save profile", err)
	}
	return nil
}

func (a *Adapter) FetchProfile(ctx context.Context, userID string) (_ *fitness.UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.fetchProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	path := ProfilePath(userID)
	data, err := a.docs.Get(ctx, path)
	if err != nil {
		return nil, storeErr("fetch profile", err)
	}
	profile, err := decode[fitness.UserProfile](path, data)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (a *Adapter) SaveExercise(ctx context.Context, exercise fitness.Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.saveExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", exercise.ID.String()))

	data, err := encode(exercise.Normalized())
	if err != nil {
		return err
	}
	defer a.invalidateExercises()
	if err := a.docs.Set(ctx, ExercisePath(exercise.ID), data); err != nil {
		return storeErr("save exercise", err)
	}
	return nil
}

func (a *Adapter) FetchExercise(ctx context.Context, exerciseID uuid.UUID) (_ *fitness.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.fetchExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", exerciseID.String()))

	path := ExercisePath(exerciseID)
	data, err := a.docs.Get(ctx, path)
	if err != nil {
		return nil, storeErr("fetch exercise", err)
	}
	exercise, err := decode[fitness.Exercise](path, data)
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// FetchAllExercises returns the whole exercise library, an empty library is not an error.
func (a *Adapter) FetchAllExercises(ctx context.Context) (_ []fitness.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.fetchAllExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cached, ok, err := a.cachedExercises()
	if err != nil {
		return nil, err
	}
	if ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	gen := a.cacheGeneration()
	docs, err := a.docs.Query(ctx, docstore.Query{Collection: exercisesCollection})
	if err != nil {
		return nil, storeErr("fetch exercises", err)
	}

	exercises, err := decodeExercises(docs)
	if err != nil {
		return nil, err
	}

	a.cacheExercises(gen, docs)
	return exercises, nil
}

func (a *Adapter) DeleteExercise(ctx context.Context, exerciseID uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.deleteExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", exerciseID.String()))

	defer a.invalidateExercises()
	if err := a.docs.Delete(ctx, ExercisePath(exerciseID)); err != nil {
		return storeErr("delete exercise", err)
	}
	return nil
}

func (a *Adapter) SaveWorkout(ctx context.Context, workout fitness.Workout, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.saveWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.String("workout.id", workout.ID.String()))

	if err := checkUserID(userID); err != nil {
		return err
	}
	data, err := encode(workout.Normalized())
	if err != nil {
		return err
	}
	if err := a.docs.Set(ctx, WorkoutPath(userID, workout.ID), data); err != nil {
		return storeErr("save workout", err)
	}
	return nil
}

// FetchWorkouts returns the user's workouts, newest first. The ordering is done by the store query.
func (a *Adapter) FetchWorkouts(ctx context.Context, userID string) (_ []fitness.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.fetchWorkouts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	collection := WorkoutsCollection(userID)
	docs, err := a.docs.Query(ctx, docstore.Query{
		Collection: collection,
		OrderBy:    WorkoutOrderField,
		Descending: true,
	})
	if err != nil {
		return nil, storeErr("fetch workouts", err)
	}

	workouts := make([]fitness.Workout, 0, len(docs))
	for _, data := range docs {
		w, err := decode[fitness.Workout](collection, data)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	span.SetAttributes(attribute.Int("workouts.count", len(workouts)))

	return workouts, nil
}

func (a *Adapter) DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.deleteWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.String("workout.id", workoutID.String()))

	if err := checkUserID(userID); err != nil {
		return err
	}
	if err := a.docs.Delete(ctx, WorkoutPath(userID, workoutID)); err != nil {
		return storeErr("delete workout", err)
	}
	return nil
}

// UploadImage re-encodes the image as JPEG and stores it under key, returning its URL.
func (a *Adapter) UploadImage(ctx context.Context, data []byte, key ImageKey) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.uploadImage")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("image.key", string(key)))
	span.SetAttributes(attribute.Int("image.size", len(data)))

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &EncodingError{Err: fmt.Errorf("decode image: %w", err)}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.jpegQuality}); err != nil {
		return "", &EncodingError{Err: fmt.Errorf("encode jpeg: %w", err)}
	}
	log.Tracef("upload image %s: %s %d bytes -> jpeg %d bytes", key, format, len(data), buf.Len())

	url, err := a.blobs.Put(ctx, string(key), buf.Bytes(), "image/jpeg")
	if err != nil {
		if errors.Is(err, blobstore.ErrInvalidKey) {
			return "", &EncodingError{Err: err}
		}
		return "", &StoreError{Op: "upload image", Err: err}
	}
	return url, nil
}

func decodeExercises(docs [][]byte) ([]fitness.Exercise, error) {
	exercises := make([]fitness.Exercise, 0, len(docs))
	for _, data := range docs {
		ex, err := decode[fitness.Exercise](exercisesCollection, data)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, ex)
	}
	return exercises, nil
}

// cachedExercises decodes a cache hit like a store read; a corrupt entry is dropped
// and reported as a DecodeError.
func (a *Adapter) cachedExercises() ([]fitness.Exercise, bool, error) {
	if a.exercisesCache == nil {
		return nil, false, nil
	}
	data, ok := a.exercisesCache.Get(ExercisesCacheKey)
	if !ok {
		return nil, false, nil
	}

	var docs []json.RawMessage
	err := json.Unmarshal(data, &docs)
	var exercises []fitness.Exercise
	if err == nil {
		raw := make([][]byte, len(docs))
		for i := range docs {
			raw[i] = docs[i]
		}
		exercises, err = decodeExercises(raw)
	}
	if err != nil {
		a.invalidateExercises()
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return nil, false, err
		}
		return nil, false, &DecodeError{Path: ExercisesCacheKey, Err: err}
	}
	return exercises, true, nil
}

func (a *Adapter) cacheGeneration() uint64 {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	return a.cacheGen
}

// cacheExercises stores the raw documents read at generation gen,
// unless an exercise write happened since.
func (a *Adapter) cacheExercises(gen uint64, docs [][]byte) {
	if a.exercisesCache == nil {
		return
	}
	raw := make([]json.RawMessage, len(docs))
	for i := range docs {
		raw[i] = docs[i]
	}
	data, err := json.Marshal(raw)
	if err != nil {
		log.Errorf("marshal exercises for cache: %s", err)
		return
	}

	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if gen != a.cacheGen {
		log.Debugln("exercise library changed during fetch, not caching")
		return
	}
	a.exercisesCache.Set(ExercisesCacheKey, data)
}

func (a *Adapter) invalidateExercises() {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	a.cacheGen++
	if a.exercisesCache != nil {
		a.exercisesCache.Del(ExercisesCacheKey)
	}
}
