package app

import (
	"errors"

	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/store"
)

type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
)

const (
	msgNoUser                = "No user logged in"
	msgLoginToViewWorkouts   = "You must be logged in to view workouts"
	msgLoginToSaveWorkouts   = "You must be logged in to save workouts"
	msgLoginToDeleteWorkouts = "You must be logged in to delete workouts"
)

// State is what the controller publishes to its subscribers.
type State struct {
	Phase           Phase
	IsAuthenticated bool
	CurrentUser     *fitness.UserProfile
	IsLoading       bool
	ErrorMessage    string
	Exercises       []fitness.Exercise
	Workouts        []fitness.Workout
}

func (s *State) clone() State {
	c := *s
	if s.CurrentUser != nil {
		user := s.CurrentUser.Clone()
		c.CurrentUser = &user
	}
	c.Exercises = nil
	for _, ex := range s.Exercises {
		c.Exercises = append(c.Exercises, ex.Clone())
	}
	c.Workouts = nil
	for _, w := range s.Workouts {
		c.Workouts = append(c.Workouts, w.Clone())
	}
	return c
}

func (s *State) signedIn(user *fitness.UserProfile) {
	s.Phase = PhaseAuthenticated
	s.IsAuthenticated = true
	s.CurrentUser = user
}

func (s *State) signedOut() {
	s.Phase = PhaseUnauthenticated
	s.IsAuthenticated = false
	s.CurrentUser = nil
	s.Workouts = nil
}

// errorMessage turns an operation error into the text shown to the user.
func errorMessage(err error) string {
	var authErr *auth.AuthError
	switch {
	case errors.As(err, &authErr):
		return authErr.Err.Error()
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	default:
		return err.Error()
	}
}
