package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal/app"
	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/fitness"
)

var errNotLoggedIn = errors.New("not logged in, run the login command first")

type cli struct {
	controller *app.Controller
	sessions   *auth.Manager
	session    sessionFile
	out        io.Writer
}

type command struct {
	name    string
	summary string
	// restore resumes the persisted session before running
	restore bool
	run     func(c *cli, fs *flag.FlagSet, args []string) error
}

var commands = []command{
	{name: "register", summary: "create an account and log in", run: (*cli).register},
	{name: "login", summary: "log in with email and password", run: (*cli).login},
	{name: "logout", summary: "log out and forget the session", restore: true, run: (*cli).logout},
	{name: "reset-password", summary: "send a password reset email", run: (*cli).resetPassword},
	{name: "profile", summary: "show the profile of the logged in user", restore: true, run: (*cli).profile},
	{name: "update-profile", summary: "set height, weight and fitness goals", restore: true, run: (*cli).updateProfile},
	{name: "exercises", summary: "list the exercise library", run: (*cli).exercises},
	{name: "workouts", summary: "list logged workouts, newest first", restore: true, run: (*cli).workouts},
	{name: "log-workout", summary: "log a new workout", restore: true, run: (*cli).logWorkout},
	{name: "delete-workout", summary: "delete a logged workout", restore: true, run: (*cli).deleteWorkout},
}

func newCLI(controller *app.Controller, sessions *auth.Manager, session sessionFile, out io.Writer) *cli {
	c := &cli{
		controller: controller,
		sessions:   sessions,
		session:    session,
		out:        out,
	}
	controller.Subscribe(func(s app.State) {
		log.Tracef("state: phase=%s loading=%t error=%q", s.Phase, s.IsLoading, s.ErrorMessage)
	})
	return c
}

func (c *cli) usage() {
	_, _ = fmt.Fprintln(c.out, "usage: pushpullrun [flags] <command> [command flags]")
	_, _ = fmt.Fprintln(c.out, "\ncommands:")
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, cmd := range commands {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", cmd.name, cmd.summary)
	}
	_ = w.Flush()
}

// Run executes one command with its arguments.
func (c *cli) Run(args []string) error {
	if len(args) == 0 {
		c.usage()
		return errors.New("no command given")
	}

	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
		fs.SetOutput(c.out)
		if cmd.restore {
			if err := c.restore(); err != nil {
				return err
			}
		}
		return cmd.run(c, fs, args[1:])
	}

	c.usage()
	return fmt.Errorf("unknown command: %s", args[0])
}

// await waits for the dispatched operations and returns the error message they left, if any.
func (c *cli) await() error {
	c.controller.Wait()
	if msg := c.controller.State().ErrorMessage; msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (c *cli) restore() error {
	token, ok := c.session.Load()
	if !ok {
		return errNotLoggedIn
	}

	c.controller.Restore(token)
	c.controller.Wait()
	if !c.controller.State().IsAuthenticated {
		if err := c.session.Remove(); err != nil {
			log.Warnf("remove stale session: %s", err)
		}
		return errors.New("session expired, log in again")
	}
	return nil
}

func (c *cli) persistSession() error {
	session, ok := c.sessions.Session()
	if !ok {
		return errNotLoggedIn
	}
	return c.session.Save(session.Token)
}

func (c *cli) register(fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	username := fs.String("username", "", "display name, defaults to the email local part")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.controller.Register(*username, *email, *password)
	if err := c.await(); err != nil {
		return err
	}
	if err := c.persistSession(); err != nil {
		return err
	}

	user := c.controller.State().CurrentUser
	_, _ = fmt.Fprintf(c.out, "welcome, %s\n", user.Username)
	return nil
}

func (c *cli) login(fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.controller.Login(*email, *password)
	if err := c.await(); err != nil {
		return err
	}
	if err := c.persistSession(); err != nil {
		return err
	}

	user := c.controller.State().CurrentUser
	_, _ = fmt.Fprintf(c.out, "logged in as %s\n", user.Username)
	return nil
}

func (c *cli) logout(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.controller.Logout()
	if err := c.await(); err != nil {
		return err
	}
	if err := c.session.Remove(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "logged out")
	return nil
}

func (c *cli) resetPassword(fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	accepted := false
	c.controller.ResetPassword(*email, func(ok bool) {
		accepted = ok
	})
	if err := c.await(); err != nil {
		return err
	}
	if !accepted {
		return errors.New("password reset not accepted")
	}
	_, _ = fmt.Fprintf(c.out, "password reset email sent to %s\n", *email)
	return nil
}

func (c *cli) profile(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	out, err := json.MarshalIndent(c.controller.State().CurrentUser, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, _ = fmt.Fprintln(c.out, string(out))
	return nil
}

func (c *cli) updateProfile(fs *flag.FlagSet, args []string) error {
	height := fs.Float64("height", 0, "height in cm")
	weight := fs.Float64("weight", 0, "weight in kg")
	goals := fs.String("goals", "", "comma separated fitness goals")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// flags left out keep the current values
	current := c.controller.State().CurrentUser
	newHeight, newWeight, newGoals := current.Height, current.Weight, current.FitnessGoals
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "height":
			newHeight = height
		case "weight":
			newWeight = weight
		case "goals":
			newGoals = splitList(*goals)
		}
	})

	c.controller.UpdateProfile(newHeight, newWeight, newGoals)
	if err := c.await(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "profile updated")
	return nil
}

func (c *cli) exercises(fs *flag.FlagSet, args []string) error {
	category := fs.String("category", "", "only list exercises of this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.controller.LoadExercises()
	// a failed fetch still leaves the sample library in place
	if err := c.await(); err != nil {
		log.Warnf("load exercises: %s", err)
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCATEGORY\tDIFFICULTY\tMUSCLE GROUPS")
	for _, ex := range c.controller.State().Exercises {
		if *category != "" && !strings.EqualFold(string(ex.Category), *category) {
			continue
		}
		groups := make([]string, 0, len(ex.MuscleGroups))
		for _, g := range ex.MuscleGroups {
			groups = append(groups, string(g))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ex.Name, ex.Category, ex.DifficultyLevel, strings.Join(groups, ", "))
	}
	return w.Flush()
}

func (c *cli) workouts(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.controller.LoadWorkouts()
	if err := c.await(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATE\tNAME\tTYPE\tEXERCISES\tSETS")
	for _, workout := range c.controller.State().Workouts {
		sets := 0
		for _, we := range workout.Exercises {
			sets += len(we.Sets)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			workout.ID,
			workout.Date.Local().Format("2006-01-02 15:04"),
			workout.Name,
			workout.WorkoutType,
			len(workout.Exercises),
			sets,
		)
	}
	return w.Flush()
}

// exerciseEntries collects repeated -exercise "Name:8x60,8x60" flags.
type exerciseEntries []string

func (e *exerciseEntries) String() string {
	return strings.Join(*e, "; ")
}

func (e *exerciseEntries) Set(value string) error {
	*e = append(*e, value)
	return nil
}

func (c *cli) logWorkout(fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "workout name")
	workoutType := fs.String("type", string(fitness.WorkoutStrength), "workout type")
	date := fs.String("date", "", "workout date, 2006-01-02 or RFC3339 (default now)")
	duration := fs.Duration("duration", 0, "workout duration, e.g. 45m")
	notes := fs.String("notes", "", "workout notes")
	var entries exerciseEntries
	fs.Var(&entries, "exercise", `exercise and its sets, "Name:REPSxKG,..." or "Name:MIN/KM,...", repeatable`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	wType, ok := fitness.ParseWorkoutType(*workoutType)
	if !ok {
		return fmt.Errorf("unknown workout type: %s", *workoutType)
	}
	when, err := parseDate(*date)
	if err != nil {
		return err
	}
	if *name == "" {
		*name = fmt.Sprintf("%s workout", wType)
	}

	workout := fitness.NewWorkout(*name, when, wType)
	workout.Duration = duration.Seconds()
	if *notes != "" {
		workout.Notes = notes
	}

	if len(entries) > 0 {
		c.controller.LoadExercises()
		if err := c.await(); err != nil {
			log.Warnf("load exercises: %s", err)
		}
		library := c.controller.State().Exercises
		for _, entry := range entries {
			we, err := parseExerciseEntry(entry, library)
			if err != nil {
				return err
			}
			workout.Exercises = append(workout.Exercises, we)
		}
	}

	c.controller.SaveWorkout(workout)
	if err := c.await(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "workout logged: %s\n", workout.ID)
	return nil
}

func (c *cli) deleteWorkout(fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "workout id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	workoutID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("invalid workout id %q: %w", *id, err)
	}

	c.controller.LoadWorkouts()
	if err := c.await(); err != nil {
		return err
	}
	c.controller.DeleteWorkout(workoutID)
	if err := c.await(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "workout deleted: %s\n", workoutID)
	return nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t, nil
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseExerciseEntry reads "Name:8x60,8x60" (reps x kg) or "Name:30/5" (minutes / km).
func parseExerciseEntry(entry string, library []fitness.Exercise) (fitness.WorkoutExercise, error) {
	name, setsValue, _ := strings.Cut(entry, ":")
	name = strings.TrimSpace(name)

	idx := -1
	for i, ex := range library {
		if strings.EqualFold(ex.Name, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fitness.WorkoutExercise{}, fmt.Errorf("unknown exercise: %s", name)
	}

	var sets []fitness.ExerciseSet
	for _, raw := range splitList(setsValue) {
		set, err := parseSet(raw)
		if err != nil {
			return fitness.WorkoutExercise{}, fmt.Errorf("exercise %s: %w", name, err)
		}
		sets = append(sets, set)
	}
	return fitness.NewWorkoutExercise(library[idx], sets...), nil
}

func parseSet(raw string) (fitness.ExerciseSet, error) {
	if reps, weight, ok := strings.Cut(raw, "x"); ok {
		r, err := strconv.Atoi(reps)
		if err != nil {
			return fitness.ExerciseSet{}, fmt.Errorf("invalid reps in set %q", raw)
		}
		w, err := strconv.ParseFloat(weight, 64)
		if err != nil {
			return fitness.ExerciseSet{}, fmt.Errorf("invalid weight in set %q", raw)
		}
		set := fitness.NewStrengthSet(r, w)
		set.Completed = true
		return set, nil
	}
	if minutes, km, ok := strings.Cut(raw, "/"); ok {
		m, err := strconv.ParseFloat(minutes, 64)
		if err != nil {
			return fitness.ExerciseSet{}, fmt.Errorf("invalid minutes in set %q", raw)
		}
		d, err := strconv.ParseFloat(km, 64)
		if err != nil {
			return fitness.ExerciseSet{}, fmt.Errorf("invalid distance in set %q", raw)
		}
		set := fitness.NewCardioSet(m*60, d)
		set.Completed = true
		return set, nil
	}
	return fitness.ExerciseSet{}, fmt.Errorf("invalid set %q, use REPSxKG or MIN/KM", raw)
}
