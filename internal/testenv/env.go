package testenv

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-connections/nat"

	"github.com/matgreaves/loom/connect"
)

// drain reads rc to completion and closes it — an ImagePull response
// isn't done until its body has been fully read.
func drain(rc io.ReadCloser) {
	io.Copy(io.Discard, rc)
	rc.Close()
}

// ServiceDef describes one container to launch, trimmed to the fields a
// domain-connector integration test actually needs: image, one exposed
// port, and the attributes to publish on the resolved connect.Endpoint.
type ServiceDef struct {
	Image         string
	ContainerPort int
	Env           []string
	Attributes    func(hostPort int) map[string]any
}

// Postgres returns a ServiceDef for a disposable postgres:16-alpine
// container with a throwaway superuser password, publishing the PG*
// attributes connect.PostgresDSN expects.
func Postgres() ServiceDef {
	return ServiceDef{
		Image:         "postgres:16-alpine",
		ContainerPort: 5432,
		Env:           []string{"POSTGRES_PASSWORD=postgres", "POSTGRES_DB=testdb"},
		Attributes: func(hostPort int) map[string]any {
			return map[string]any{
				"PGHOST":     "127.0.0.1",
				"PGPORT":     fmt.Sprint(hostPort),
				"PGUSER":     "postgres",
				"PGPASSWORD": "postgres",
				"PGDATABASE": "testdb",
			}
		},
	}
}

// Redis returns a ServiceDef for a disposable redis:7-alpine container,
// publishing REDIS_URL.
func Redis() ServiceDef {
	return ServiceDef{
		Image:         "redis:7-alpine",
		ContainerPort: 6379,
		Attributes: func(hostPort int) map[string]any {
			return map[string]any{
				"REDIS_URL": fmt.Sprintf("redis://127.0.0.1:%d", hostPort),
			}
		},
	}
}

// Temporal returns a ServiceDef for a disposable temporalio/auto-setup
// container (it bootstraps the default namespace and its backing
// datastore on startup, so no separate schema-setup step is needed),
// publishing the TEMPORAL_ADDRESS/TEMPORAL_NAMESPACE attributes
// connect/temporalx.Addr and Namespace expect.
func Temporal() ServiceDef {
	return ServiceDef{
		Image:         "temporalio/auto-setup:1.24",
		ContainerPort: 7233,
		Env:           []string{"DEFAULT_NAMESPACE=default", "SKIP_SCHEMA_SETUP=false"},
		Attributes: func(hostPort int) map[string]any {
			return map[string]any{
				"TEMPORAL_ADDRESS":   fmt.Sprintf("127.0.0.1:%d", hostPort),
				"TEMPORAL_NAMESPACE": "default",
			}
		},
	}
}

// Environment is the set of containers launched by Up, keyed by name.
type Environment struct {
	endpoints map[string]connect.Endpoint
}

// Endpoint returns the resolved endpoint for a named service launched by
// Up.
func (e *Environment) Endpoint(name string) connect.Endpoint {
	ep, ok := e.endpoints[name]
	if !ok {
		panic(fmt.Sprintf("testenv: no such service %q", name))
	}
	return ep
}

// Services maps a service name to its definition.
type Services map[string]ServiceDef

// Up launches one container per entry in services, waits for each
// container's published port to accept a TCP connection, and registers
// t.Cleanup to stop and remove every container. It calls t.Skip if no
// Docker daemon is reachable, since these are opt-in integration tests.
func Up(t testing.TB, services Services) *Environment {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := Ping(ctx); err != nil {
		t.Skipf("testenv: no docker daemon reachable: %v", err)
	}

	cli, err := dockerClient()
	if err != nil {
		t.Fatalf("testenv: docker client: %v", err)
	}

	env := &Environment{endpoints: map[string]connect.Endpoint{}}

	for name, def := range services {
		if _, _, err := cli.ImageInspectWithRaw(ctx, def.Image); err != nil {
			rc, err := cli.ImagePull(ctx, def.Image, image.PullOptions{})
			if err != nil {
				t.Fatalf("testenv: pull %s: %v", def.Image, err)
			}
			drain(rc)
		}

		containerPort := nat.Port(fmt.Sprintf("%d/tcp", def.ContainerPort))
		resp, err := cli.ContainerCreate(ctx,
			&container.Config{
				Image:        def.Image,
				Env:          def.Env,
				ExposedPorts: nat.PortSet{containerPort: struct{}{}},
			},
			&container.HostConfig{
				PortBindings: nat.PortMap{containerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "0"}}},
				AutoRemove:   false,
			}, nil, nil, "")
		if err != nil {
			t.Fatalf("testenv: create %s container: %v", name, err)
		}
		containerID := resp.ID

		t.Cleanup(func() {
			timeout := 3
			cli.ContainerStop(context.Background(), containerID, container.StopOptions{Timeout: &timeout})
			cli.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
		})

		if err := cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
			t.Fatalf("testenv: start %s container: %v", name, err)
		}

		inspect, err := cli.ContainerInspect(ctx, containerID)
		if err != nil {
			t.Fatalf("testenv: inspect %s container: %v", name, err)
		}
		bindings := inspect.NetworkSettings.Ports[containerPort]
		if len(bindings) == 0 {
			t.Fatalf("testenv: %s container has no published port", name)
		}
		hostPort := 0
		fmt.Sscanf(bindings[0].HostPort, "%d", &hostPort)

		if err := waitReady(ctx, "127.0.0.1", hostPort); err != nil {
			t.Fatalf("testenv: %s never became ready: %v", name, err)
		}

		env.endpoints[name] = connect.Endpoint{
			Host:       "127.0.0.1",
			Port:       hostPort,
			Protocol:   connect.TCP,
			Attributes: def.Attributes(hostPort),
		}
	}

	return env
}

// waitReady polls a TCP dial until it succeeds or ctx is done.
func waitReady(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	d := net.Dialer{Timeout: 200 * time.Millisecond}
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
