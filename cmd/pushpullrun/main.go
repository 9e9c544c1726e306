package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal"
	"github.com/2beens/pushpullrun/internal/app"
	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/config"
	"github.com/2beens/pushpullrun/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file with the PPR_* secrets")
	sessionPath := flag.String("session-file", defaultSessionFilePath(), "where the session token is kept between runs")
	logLevel := flag.String("log-level", "warn", "log level [trace | debug | info | warn | error]")
	timeout := flag.Duration("timeout", 30*time.Second, "timeout for connecting to the backends")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load env file %s: %s\n", *envFile, err)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %s\n", err)
		return 1
	}

	logging.Setup(logging.LoggerSetupParams{
		LogLevel:    *logLevel,
		LogToStdout: true,
		Environment: cfg.Environment,
	})
	// keep stdout for command output
	log.SetOutput(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backends, err := internal.NewBackends(ctx, internal.NewBackendsParams{
		Config:  cfg,
		Secrets: internal.SecretsFromEnv(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect backends: %s\n", err)
		return 1
	}
	defer backends.Close(context.Background())

	sessions := auth.NewManager(auth.NewService(backends.Identity, backends.Store))
	controller := app.NewController(sessions, backends.Store)
	defer controller.Close()

	c := newCLI(controller, sessions, sessionFile{path: *sessionPath}, os.Stdout)
	if err := c.Run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	return 0
}
