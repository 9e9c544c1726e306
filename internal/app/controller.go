package app

//go:generate mockgen -source=$GOFILE -destination=controller_mocks_test.go -package=app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal/async"
	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/store"
)

var (
	_ Store    = (*store.Adapter)(nil)
	_ Sessions = (*auth.Manager)(nil)
)

type Store interface {
	SaveProfile(ctx context.Context, profile fitness.UserProfile, userID string) error
	SaveExercise(ctx context.Context, exercise fitness.Exercise) error
	FetchAllExercises(ctx context.Context) ([]fitness.Exercise, error)
	SaveWorkout(ctx context.Context, workout fitness.Workout, userID string) error
	FetchWorkouts(ctx context.Context, userID string) ([]fitness.Workout, error)
	DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID string) error
}

type Sessions interface {
	SignUp(ctx context.Context, email, password, username string) (*fitness.UserProfile, error)
	SignIn(ctx context.Context, email, password string) (*fitness.UserProfile, error)
	Resume(ctx context.Context, token string) (*fitness.UserProfile, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	CurrentUserID() (string, bool)
}

// Controller owns the client side state. Operations return immediately; their
// results are applied one at a time by a single update goroutine, in the
// order they resolve. Two racing writes end with the one resolved last.
//
// Subscriber callbacks run on the update goroutine and must not call
// controller operations synchronously.
type Controller struct {
	ctx      context.Context
	cancel   context.CancelFunc
	sessions Sessions
	store    Store

	updates  chan update
	done     chan struct{}
	loopDone chan struct{}
	closing  sync.Once
	pending  sync.WaitGroup

	// owned by the update goroutine
	state       State
	inFlight    int
	subscribers map[int]func(State)
	nextSubID   int

	snapshot atomic.Pointer[State]
}

type update struct {
	apply func(*State)
	// applied, if set, runs after the new state is published
	applied func()
}

func NewController(sessions Sessions, store Store) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:         ctx,
		cancel:      cancel,
		sessions:    sessions,
		store:       store,
		updates:     make(chan update),
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		state:       State{Phase: PhaseUnauthenticated},
		subscribers: map[int]func(State){},
	}
	initial := c.state.clone()
	c.snapshot.Store(&initial)

	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case u := <-c.updates:
			u.apply(&c.state)
			c.publish()
			if u.applied != nil {
				u.applied()
			}
		case <-c.done:
			return
		}
	}
}

func (c *Controller) publish() {
	snapshot := c.state.clone()
	c.snapshot.Store(&snapshot)
	for _, fn := range c.subscribers {
		fn(snapshot.clone())
	}
}

func (c *Controller) enqueue(apply func(*State), applied func()) bool {
	select {
	case c.updates <- update{apply: apply, applied: applied}:
		return true
	case <-c.done:
		return false
	}
}

// State returns a copy of the last published state.
func (c *Controller) State() State {
	return c.snapshot.Load().clone()
}

// Subscribe registers fn to be called with the state after every applied
// update, starting with the current one.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	idCh := make(chan int, 1)
	if !c.enqueue(func(*State) {
		c.nextSubID++
		c.subscribers[c.nextSubID] = fn
		idCh <- c.nextSubID
	}, nil) {
		return func() {}
	}
	id := <-idCh

	var once sync.Once
	return func() {
		once.Do(func() {
			c.enqueue(func(*State) {
				delete(c.subscribers, id)
			}, nil)
		})
	}
}

// Wait blocks until every operation dispatched so far has been applied.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// Close stops the update goroutine. Results resolved afterwards are dropped.
func (c *Controller) Close() {
	c.closing.Do(func() {
		c.cancel()
		close(c.done)
		<-c.loopDone
	})
}

// dispatch runs one operation. prepare runs on the update goroutine and
// returns the call to run asynchronously, or an error that is shown without
// starting the call.
func dispatch[T any](
	c *Controller,
	prepare func(s *State) (func(ctx context.Context) (T, error), error),
	onSuccess func(s *State, value T),
	onError func(s *State, err error),
) {
	c.pending.Add(1)
	started := false
	if !c.enqueue(func(s *State) {
		call, err := prepare(s)
		if err != nil {
			s.ErrorMessage = errorMessage(err)
			return
		}

		started = true
		c.inFlight++
		s.IsLoading = true
		s.ErrorMessage = ""

		async.Go(c.ctx, call).OnResolve(func(result async.Result[T]) {
			if !c.enqueue(func(s *State) {
				c.inFlight--
				s.IsLoading = c.inFlight > 0
				if result.Err != nil {
					s.ErrorMessage = errorMessage(result.Err)
					if onError != nil {
						onError(s, result.Err)
					}
					return
				}
				if onSuccess != nil {
					onSuccess(s, result.Value)
				}
			}, c.pending.Done) {
				c.pending.Done()
			}
		})
	}, func() {
		if !started {
			c.pending.Done()
		}
	}) {
		c.pending.Done()
	}
}

func (c *Controller) authenticate(call func(ctx context.Context) (*fitness.UserProfile, error)) {
	dispatch(c,
		func(s *State) (func(ctx context.Context) (*fitness.UserProfile, error), error) {
			s.Phase = PhaseAuthenticating
			return call, nil
		},
		func(s *State, profile *fitness.UserProfile) {
			s.signedIn(profile)
		},
		func(s *State, _ error) {
			// a failed attempt leaves an existing session in place
			if _, ok := c.sessions.CurrentUserID(); ok && s.CurrentUser != nil {
				s.Phase = PhaseAuthenticated
				return
			}
			s.signedOut()
		},
	)
}

func (c *Controller) Login(email, password string) {
	c.authenticate(func(ctx context.Context) (*fitness.UserProfile, error) {
		return c.sessions.SignIn(ctx, email, password)
	})
}

func (c *Controller) Register(username, email, password string) {
	c.authenticate(func(ctx context.Context) (*fitness.UserProfile, error) {
		return c.sessions.SignUp(ctx, email, password, username)
	})
}

// Restore resumes a session from a token kept by a previous run.
func (c *Controller) Restore(token string) {
	c.authenticate(func(ctx context.Context) (*fitness.UserProfile, error) {
		return c.sessions.Resume(ctx, token)
	})
}

func (c *Controller) Logout() {
	dispatch(c,
		func(s *State) (func(ctx context.Context) (struct{}, error), error) {
			return func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.sessions.SignOut(ctx)
			}, nil
		},
		func(s *State, _ struct{}) {
			s.signedOut()
		},
		nil,
	)
}

// ResetPassword requests a reset email. done, if set, reports whether the
// request was accepted.
func (c *Controller) ResetPassword(email string, done func(ok bool)) {
	dispatch(c,
		func(s *State) (func(ctx context.Context) (struct{}, error), error) {
			return func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.sessions.ResetPassword(ctx, email)
			}, nil
		},
		func(s *State, _ struct{}) {
			if done != nil {
				done(true)
			}
		},
		func(s *State, _ error) {
			if done != nil {
				done(false)
			}
		},
	)
}

// UpdateProfile overwrites the current user's height, weight and goals.
func (c *Controller) UpdateProfile(height, weight *float64, goals []string) {
	dispatch(c,
		func(s *State) (func(ctx context.Context) (*fitness.UserProfile, error), error) {
			uid, ok := c.sessions.CurrentUserID()
			if s.CurrentUser == nil || !ok {
				return nil, errors.New(msgNoUser)
			}
			updated := *s.CurrentUser
			updated.Height = height
			updated.Weight = weight
			updated.FitnessGoals = append([]string{}, goals...)

			return func(ctx context.Context) (*fitness.UserProfile, error) {
				if err := c.store.SaveProfile(ctx, updated, uid); err != nil {
					return nil, err
				}
				return &updated, nil
			}, nil
		},
		func(s *State, profile *fitness.UserProfile) {
			s.CurrentUser = profile
		},
		nil,
	)
}

// LoadExercises fetches the exercise library. An empty library is replaced
// by the sample exercises, which are also saved for the next load.
func (c *Controller) LoadExercises() {
	dispatch(c,
		func(s *State) (func(ctx context.Context) ([]fitness.Exercise, error), error) {
			return c.store.FetchAllExercises, nil
		},
		func(s *State, exercises []fitness.Exercise) {
			if len(exercises) > 0 {
				s.Exercises = exercises
				return
			}
			s.Exercises = fitness.SampleExercises()
			c.seedExercises(s.Exercises)
		},
		func(s *State, _ error) {
			s.Exercises = fitness.SampleExercises()
		},
	)
}

func (c *Controller) seedExercises(exercises []fitness.Exercise) {
	for _, ex := range exercises {
		c.pending.Add(1)
		async.Go(c.ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.store.SaveExercise(ctx, ex)
		}).OnResolve(func(result async.Result[struct{}]) {
			defer c.pending.Done()
			if result.Err != nil {
				log.Errorf("seed exercise %s: %s", ex.Name, result.Err)
			}
		})
	}
}

func (c *Controller) LoadWorkouts() {
	dispatch(c,
		func(s *State) (func(ctx context.Context) ([]fitness.Workout, error), error) {
			uid, ok := c.sessions.CurrentUserID()
			if !ok {
				return nil, errors.New(msgLoginToViewWorkouts)
			}
			return func(ctx context.Context) ([]fitness.Workout, error) {
				return c.store.FetchWorkouts(ctx, uid)
			}, nil
		},
		func(s *State, workouts []fitness.Workout) {
			s.Workouts = workouts
		},
		nil,
	)
}

// SaveWorkout stores the workout and adds it to the list, newest first.
func (c *Controller) SaveWorkout(workout fitness.Workout) {
	dispatch(c,
		func(s *State) (func(ctx context.Context) (fitness.Workout, error), error) {
			uid, ok := c.sessions.CurrentUserID()
			if !ok {
				return nil, errors.New(msgLoginToSaveWorkouts)
			}
			return func(ctx context.Context) (fitness.Workout, error) {
				if err := c.store.SaveWorkout(ctx, workout, uid); err != nil {
					return fitness.Workout{}, err
				}
				return workout, nil
			}, nil
		},
		func(s *State, saved fitness.Workout) {
			s.Workouts = append(s.Workouts, saved)
			fitness.SortWorkoutsByDateDesc(s.Workouts)
		},
		nil,
	)
}

// DeleteWorkout removes the workout from the list right away. A failed remote
// delete only sets the error message, LoadWorkouts brings the list back in sync.
func (c *Controller) DeleteWorkout(workoutID uuid.UUID) {
	dispatch(c,
		func(s *State) (func(ctx context.Context) (struct{}, error), error) {
			uid, ok := c.sessions.CurrentUserID()
			if !ok {
				return nil, errors.New(msgLoginToDeleteWorkouts)
			}
			kept := make([]fitness.Workout, 0, len(s.Workouts))
			for _, w := range s.Workouts {
				if w.ID != workoutID {
					kept = append(kept, w)
				}
			}
			s.Workouts = kept

			return func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.store.DeleteWorkout(ctx, workoutID, uid)
			}, nil
		},
		nil,
		nil,
	)
}
