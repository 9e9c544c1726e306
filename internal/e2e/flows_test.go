//go:build integration_test || all_tests

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/2beens/pushpullrun/internal/api"
	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/middleware"
)

func (s *IntegrationTestSuite) do(method, path, token string, body any) (int, []byte) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-Ip", s.clientIP)
	if token != "" {
		req.Header.Set(middleware.TokenHeader, token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) signUp(email, password string) api.SessionResponse {
	code, body := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    email,
		"password": password,
	})
	s.Require().Equal(http.StatusCreated, code, string(body))

	var session api.SessionResponse
	s.Require().NoError(json.Unmarshal(body, &session))
	s.Require().NotEmpty(session.Token)
	return session
}

func (s *IntegrationTestSuite) TestUserFlow() {
	email := gofakeit.Email()
	password := gofakeit.Password(true, true, true, false, false, 12)
	session := s.signUp(email, password)

	code, body := s.do(http.MethodGet, "/profile", session.Token, nil)
	s.Require().Equal(http.StatusOK, code, string(body))
	var profile fitness.UserProfile
	s.Require().NoError(json.Unmarshal(body, &profile))
	s.Equal(session.UID, profile.ID.String())

	height := 182.5
	profile.Height = &height
	profile.FitnessGoals = []string{"sub 20 5k"}
	code, body = s.do(http.MethodPut, "/profile", session.Token, profile)
	s.Require().Equal(http.StatusOK, code, string(body))

	// sessions live in redis, so a second sign in gets its own token
	code, body = s.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email":    email,
		"password": password,
	})
	s.Require().Equal(http.StatusOK, code, string(body))
	var second api.SessionResponse
	s.Require().NoError(json.Unmarshal(body, &second))
	s.NotEqual(session.Token, second.Token)
	s.Require().NotNil(second.Profile.Height)
	s.Equal(height, *second.Profile.Height)

	exercises := fitness.SampleExercises()
	base := time.Now().UTC().Truncate(time.Second)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		w := fitness.NewWorkout(gofakeit.Word(), base.Add(time.Duration(-i)*24*time.Hour), fitness.WorkoutStrength)
		w.Exercises = append(w.Exercises, fitness.NewWorkoutExercise(
			exercises[i],
			fitness.NewStrengthSet(8, 60),
		))
		code, body = s.do(http.MethodPut, "/workouts", second.Token, w)
		s.Require().Equal(http.StatusOK, code, string(body))
		ids = append(ids, w.ID)
	}

	code, body = s.do(http.MethodGet, "/workouts", session.Token, nil)
	s.Require().Equal(http.StatusOK, code, string(body))
	var listed struct {
		Workouts []fitness.Workout `json:"workouts"`
		Total    int               `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(body, &listed))
	s.Require().Equal(3, listed.Total)
	for i, w := range listed.Workouts {
		s.Equal(ids[i], w.ID, "newest first")
	}

	code, _ = s.do(http.MethodDelete, "/workouts/"+ids[1].String(), session.Token, nil)
	s.Equal(http.StatusNoContent, code)

	code, body = s.do(http.MethodGet, "/workouts", session.Token, nil)
	s.Require().Equal(http.StatusOK, code)
	s.Require().NoError(json.Unmarshal(body, &listed))
	s.Equal(2, listed.Total)

	code, _ = s.do(http.MethodPost, "/auth/signout", session.Token, nil)
	s.Equal(http.StatusNoContent, code)
	code, _ = s.do(http.MethodGet, "/workouts", session.Token, nil)
	s.Equal(http.StatusUnauthorized, code)

	// the other session is untouched
	code, _ = s.do(http.MethodGet, "/workouts", second.Token, nil)
	s.Equal(http.StatusOK, code)
}

func (s *IntegrationTestSuite) TestExerciseLibrarySeeded() {
	code, body := s.do(http.MethodGet, "/exercises", "", nil)
	s.Require().Equal(http.StatusOK, code, string(body))

	var resp struct {
		Exercises []fitness.Exercise `json:"exercises"`
		Total     int                `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(body, &resp))
	s.Equal(len(fitness.SampleExercises()), resp.Total)
}

func (s *IntegrationTestSuite) TestSignUpDuplicateEmail() {
	email := gofakeit.Email()
	s.signUp(email, "secret1")

	code, _ := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    email,
		"password": "secret1",
	})
	s.Equal(http.StatusConflict, code)
}

func (s *IntegrationTestSuite) TestSignInRateLimited() {
	creds := map[string]string{
		"email":    gofakeit.Email(),
		"password": "nope",
	}

	limited := false
	for i := 0; i < 10 && !limited; i++ {
		code, _ := s.do(http.MethodPost, "/auth/signin", "", creds)
		if code == http.StatusTooManyRequests {
			limited = true
			break
		}
		s.Equal(http.StatusUnauthorized, code)
	}
	s.True(limited, "sign in never got rate limited")
}
