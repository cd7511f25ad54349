// Command loomd runs a loom HTTP server: one Scheduler per process, one
// or more ports each attached to a Router, and an optional admin gRPC
// control plane reporting connection counts.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"google.golang.org/grpc"

	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/connect"
	"github.com/matgreaves/loom/httpcore"
	"github.com/matgreaves/loom/internal/admin"
	"github.com/matgreaves/loom/internal/tracing"
	"github.com/matgreaves/loom/loomserver"
)

// portList collects repeated -port flags.
type portList []int

func (p *portList) String() string { return fmt.Sprint([]int(*p)) }
func (p *portList) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", v, err)
	}
	*p = append(*p, n)
	return nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1", "bind address")
	var ports portList
	flag.Var(&ports, "port", "port to attach the example router to (repeatable, default 8080)")
	adminAddr := flag.String("admin-addr", "", "admin gRPC listen address (empty disables the admin plane)")
	tlsCert := flag.String("tls-cert", "", "PEM certificate path (enables TLS when set with -tls-key)")
	tlsKey := flag.String("tls-key", "", "PEM private key path")

	postgresHost := flag.String("postgres-host", "", "Postgres host, enables the Postgres resource")
	postgresPort := flag.String("postgres-port", "5432", "Postgres port")
	postgresUser := flag.String("postgres-user", "postgres", "Postgres user")
	postgresPassword := flag.String("postgres-password", "", "Postgres password")
	postgresDB := flag.String("postgres-db", "postgres", "Postgres database")
	redisAddr := flag.String("redis-addr", "", "host:port of a Redis server, enables the cache resource")
	s3Bucket := flag.String("s3-bucket", "", "S3 bucket name, enables the artifact resource")
	sqsQueueURL := flag.String("sqs-queue-url", "", "SQS queue URL, enables the work-queue resource")
	temporalHost := flag.String("temporal-host", "", "host:port of a Temporal frontend, enables the workflow resource")
	flag.Parse()

	// With no -port flags, fall back to the process wiring (LOOM_WIRING
	// or HOST/PORT in the environment), then to 8080.
	if len(ports) == 0 {
		if w, err := connect.ParseWiring(context.Background()); err == nil {
			ports = w.IngressPorts()
		}
	}
	if len(ports) == 0 {
		ports = portList{8080}
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s, err := sched.New()
	if err != nil {
		fatal("scheduler: %v", err)
	}
	defer s.Close()

	reg := httpcore.NewResourceRegistry()
	registerResources(reg, resourceConfig{
		postgresHost:     *postgresHost,
		postgresPort:     *postgresPort,
		postgresUser:     *postgresUser,
		postgresPassword: *postgresPassword,
		postgresDB:       *postgresDB,
		redisAddr:        *redisAddr,
		s3Bucket:         *s3Bucket,
		sqsQueueURL:      *sqsQueueURL,
		temporalHost:     *temporalHost,
	})

	tracer, err := tracing.New(context.Background(), "loomd")
	if err != nil {
		fatal("tracing: %v", err)
	}
	defer tracer.Shutdown(context.Background())

	logCtx := connect.WithLogWriter(context.Background(), os.Stderr)
	rt := httpcore.NewRouter(reg)
	rt.SetLogger(connect.Logger(logCtx))
	mustAttach(rt, "/echo", echoFactory{})
	mustAttach(rt, "/authors/:[uint]id", authorFactory{})
	mustAttach(rt, "/artifacts/:key", artifactFactory{tracer: tracer})
	mustAttach(rt, "/work", workFactory{tracer: tracer})
	mustAttach(rt, "/workflows/:name", workflowFactory{tracer: tracer})

	srv := loomserver.New(s, *addr)

	var tlsConfig *tls.Config
	if *tlsCert != "" && *tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(*tlsCert, *tlsKey)
		if err != nil {
			fatal("load TLS identity: %v", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	adminSrv := admin.New()
	for _, port := range ports {
		var attachErr error
		if tlsConfig != nil {
			attachErr = srv.AttachSecureRouter(port, rt, tlsConfig)
		} else {
			attachErr = srv.AttachRouter(port, rt)
		}
		if attachErr != nil {
			fatal("attach router on port %d: %v", port, attachErr)
		}
		adminSrv.Register(fmt.Sprintf("port %d", port), rt)
	}

	if err := srv.Listen(); err != nil {
		fatal("listen: %v", err)
	}
	fmt.Fprintf(os.Stderr, "loomd listening on %s:%s\n", *addr, joinPorts(ports))

	var grpcServer *grpc.Server
	if *adminAddr != "" {
		lis, err := net.Listen("tcp", *adminAddr)
		if err != nil {
			fatal("admin listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		adminSrv.Install(grpcServer)
		go grpcServer.Serve(lis)
		fmt.Fprintf(os.Stderr, "loomd admin plane on %s\n", lis.Addr())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "loomd: received %s, shutting down\n", sig)
		if grpcServer != nil {
			grpcServer.Stop()
		}
		srv.ForceClose()
	}()

	if err := srv.Run(); err != nil {
		fatal("run: %v", err)
	}
}

func mustAttach(rt *httpcore.Router, route string, factory httpcore.HandlerFactory) {
	if err := rt.AttachRoute(route, factory); err != nil {
		fatal("attach %s: %v", route, err)
	}
}

func joinPorts(ports portList) string {
	strs := make([]string, len(ports))
	for i, p := range ports {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ",")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "loomd: "+format+"\n", args...)
	os.Exit(1)
}
