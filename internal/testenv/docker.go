// Package testenv launches ephemeral Docker containers for the domain
// connectors' integration tests (connect/pgx, connect/redisx): it dials
// the Docker SDK directly, publishes a random host port, and waits for
// the published port to accept a TCP connection.
package testenv

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/docker/docker/client"
)

var (
	sharedClient *client.Client
	clientOnce   sync.Once
	clientErr    error
)

// dockerClient returns a process-wide shared Docker client, probing common
// socket paths when DOCKER_HOST is unset so the SDK finds Docker Desktop
// and Colima installs without extra configuration. Callers must not Close
// the returned client.
func dockerClient() (*client.Client, error) {
	clientOnce.Do(func() {
		opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
		if os.Getenv("DOCKER_HOST") == "" {
			if sock := findSocket(); sock != "" {
				opts = append(opts, client.WithHost("unix://"+sock))
			}
		}
		sharedClient, clientErr = client.NewClientWithOpts(opts...)
	})
	return sharedClient, clientErr
}

func findSocket() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	candidates := []string{"/var/run/docker.sock"}
	if home != "" {
		candidates = append(candidates,
			filepath.Join(home, ".docker", "run", "docker.sock"),
			filepath.Join(home, ".colima", "default", "docker.sock"),
		)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Ping fails fast with a clear message when no Docker daemon is reachable,
// so integration tests can t.Skip instead of hanging on a dial timeout.
func Ping(ctx context.Context) error {
	cli, err := dockerClient()
	if err != nil {
		return err
	}
	_, err = cli.Ping(ctx)
	return err
}
