package testing

import (
	"fmt"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

// NewDockerPool connects to the local docker daemon, failing the test if it is not reachable.
func NewDockerPool(t *testing.T) *dockertest.Pool {
	t.Helper()

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not create new dockertest pool")
	require.NoError(t, pool.Client.Ping(), "could not ping dockertest pool")

	return pool
}

func runContainer(t *testing.T, pool *dockertest.Pool, opts *dockertest.RunOptions) *dockertest.Resource {
	t.Helper()

	resource, err := pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err, "run %s", opts.Repository)

	// hard stop for containers left behind by a killed test binary
	_ = resource.Expire(120)

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("%s teardown: %s", opts.Repository, err)
		}
	})

	return resource
}

// RunRedis starts a passwordless redis and returns its host port.
func RunRedis(t *testing.T, pool *dockertest.Pool) string {
	t.Helper()
	resource := runContainer(t, pool, &dockertest.RunOptions{
		Repository: "redis",
		Tag:        "6.2",
	})
	return resource.GetPort("6379/tcp")
}

// RunPostgres starts postgres with trust auth for the postgres user and returns its host port.
func RunPostgres(t *testing.T, pool *dockertest.Pool, dbName string) string {
	t.Helper()
	resource := runContainer(t, pool, &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=" + dbName,
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	})
	return resource.GetPort("5432/tcp")
}

// RunMongo starts a single mongo node and returns its connection URI.
func RunMongo(t *testing.T, pool *dockertest.Pool) string {
	t.Helper()
	resource := runContainer(t, pool, &dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	})
	return fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))
}
