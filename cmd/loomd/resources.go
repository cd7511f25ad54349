package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"

	"github.com/matgreaves/loom/connect"
	"github.com/matgreaves/loom/connect/pgx"
	"github.com/matgreaves/loom/connect/redisx"
	"github.com/matgreaves/loom/connect/s3x"
	"github.com/matgreaves/loom/connect/sqsx"
	"github.com/matgreaves/loom/connect/temporalx"
	"github.com/matgreaves/loom/httpcore"
)

// resourceConfig collects the CLI flags that gate which Server Resources
// get registered: a connector with no flag set has no home in the
// registry at all, rather than dialing a backend nobody configured.
type resourceConfig struct {
	postgresHost, postgresPort, postgresUser, postgresPassword, postgresDB string
	redisAddr                                                              string
	s3Bucket                                                               string
	sqsQueueURL                                                            string
	temporalHost                                                           string
}

// registerResources wires one Server Resource factory per configured
// backing connector, all registered on the builder at startup. Each
// factory dials lazily on first use within a request via
// httpcore.Resource[T].
func registerResources(reg *httpcore.ResourceRegistry, cfg resourceConfig) {
	if cfg.postgresHost != "" {
		httpcore.Register(reg, func(*httpcore.ResourceContext) (*pgxpool.Pool, error) {
			ep := connect.Endpoint{
				Host: cfg.postgresHost,
				Attributes: map[string]any{
					"PGHOST":     cfg.postgresHost,
					"PGPORT":     cfg.postgresPort,
					"PGUSER":     cfg.postgresUser,
					"PGPASSWORD": cfg.postgresPassword,
					"PGDATABASE": cfg.postgresDB,
				},
			}
			return pgx.Connect(context.Background(), ep)
		})

		// AuthorStore depends on the *pgxpool.Pool resource above: the
		// authors route's handler only ever asks for *pgx.AuthorStore,
		// never the pool directly, and the memo constructs the pool
		// first.
		httpcore.Register(reg, func(rc *httpcore.ResourceContext) (*pgx.AuthorStore, error) {
			pool, err := httpcore.Resource[*pgxpool.Pool](rc)
			if err != nil {
				return nil, err
			}
			return pgx.NewAuthorStore(pool), nil
		})
	}

	if cfg.redisAddr != "" {
		httpcore.Register(reg, func(*httpcore.ResourceContext) (*redis.Client, error) {
			ep := connect.Endpoint{
				Attributes: map[string]any{"REDIS_URL": "redis://" + cfg.redisAddr},
			}
			return redisx.Connect(context.Background(), ep)
		})
	}

	if cfg.s3Bucket != "" {
		httpcore.Register(reg, func(*httpcore.ResourceContext) (*s3x.Store, error) {
			ep := connect.Endpoint{Attributes: map[string]any{"S3_BUCKET": cfg.s3Bucket}}
			return s3x.Connect(context.Background(), ep)
		})
	}

	if cfg.sqsQueueURL != "" {
		httpcore.Register(reg, func(*httpcore.ResourceContext) (*sqsx.Queue, error) {
			ep := connect.Endpoint{Attributes: map[string]any{"SQS_QUEUE_URL": cfg.sqsQueueURL}}
			return sqsx.Connect(context.Background(), ep)
		})
	}

	if cfg.temporalHost != "" {
		httpcore.Register(reg, func(*httpcore.ResourceContext) (client.Client, error) {
			ep := connect.Endpoint{Attributes: map[string]any{
				"TEMPORAL_ADDRESS":   cfg.temporalHost,
				"TEMPORAL_NAMESPACE": "default",
			}}
			return temporalx.Dial(ep)
		})

		// Launcher depends on the client.Client resource above, the same
		// two-level chain AuthorStore demonstrates for Postgres: the
		// workflows route's handler only ever asks for the Launcher.
		httpcore.Register(reg, func(rc *httpcore.ResourceContext) (*temporalx.Launcher, error) {
			c, err := httpcore.Resource[client.Client](rc)
			if err != nil {
				return nil, err
			}
			return temporalx.NewLauncher(c, "loomd"), nil
		})
	}
}
