// Command server assembles the portico gateway: configuration, backends,
// the handler pipeline and the HTTP host. Mediation logic lives in the
// internal packages; this file only wires them together.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"portico/internal/audit"
	auditconsumer "portico/internal/audit/consumer"
	kafkasink "portico/internal/audit/sink/kafka"
	auditmemory "portico/internal/audit/store/memory"
	auditpostgres "portico/internal/audit/store/postgres"
	"portico/internal/bearer"
	"portico/internal/bearer/revocation"
	"portico/internal/dispatch"
	"portico/internal/gateway"
	gwmetrics "portico/internal/gateway/metrics"
	"portico/internal/oidc"
	"portico/internal/platform/config"
	"portico/internal/platform/httpserver"
	kafkaconsumer "portico/internal/platform/kafka/consumer"
	"portico/internal/platform/kafka/producer"
	"portico/internal/platform/logger"
	platformmetrics "portico/internal/platform/metrics"
	redisplatform "portico/internal/platform/redis"
	"portico/internal/platform/secrets"
	"portico/internal/ratelimit"
	rlmetrics "portico/internal/ratelimit/metrics"
	"portico/internal/ratelimit/store/window"
	"portico/internal/render"
	httptransport "portico/internal/transport/http"
)

const (
	postgresPingTimeout  = 5 * time.Second
	shutdownTimeout      = 10 * time.Second
	auditTopicPartitions = 3
)

// revocationList is the union of what the bearer handler and the sign-out
// revoker need from a revocation store.
type revocationList interface {
	bearer.RevocationChecker
	bearer.TokenRevoker
}

func main() {
	if err := run(); err != nil {
		slog.Error("portico failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backends. Redis and PostgreSQL are both optional; store selection
	// below degrades to in-memory when neither is configured.
	cache, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close()
		log.Info("redis connected")
	}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = openPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("postgres connected")
	}

	validator := bearer.NewValidator(cfg.Token.SigningKey, cfg.Server.Issuer, cfg.Token.Audience)
	revocations := buildRevocations(cache, db)

	var windows ratelimit.WindowStore = window.NewMemoryStore()
	if cache != nil {
		windows = window.NewRedisStore(cache.Client)
	}

	// Audit trail. The publisher decouples emission from persistence; the
	// worker drains the queue into whichever store the backend selects.
	publisher := audit.NewPublisher(cfg.Audit.Buffer,
		audit.WithLogger(log),
		audit.WithSampler(audit.NewSampler(cfg.Audit.SampleRate)),
	)

	var auditStore audit.Store
	var materializer *kafkaconsumer.Consumer
	switch cfg.Audit.Backend {
	case "postgres":
		auditStore = auditpostgres.New(db)
	case "kafka":
		broker, err := producer.New(producer.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: "portico-server",
		})
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer broker.Close()
		if err := broker.EnsureTopic(ctx, cfg.Kafka.AuditTopic, auditTopicPartitions); err != nil {
			return err
		}
		auditStore = kafkasink.New(broker, cfg.Kafka.AuditTopic,
			kafkasink.WithLogger(log),
			kafkasink.WithMetrics(kafkasink.NewMetrics()),
		)

		// Materialize the topic back into PostgreSQL when one is
		// configured, so the trail stays queryable.
		if db != nil {
			router := auditconsumer.NewRouter(log, nil)
			router.Register(cfg.Kafka.AuditTopic, auditconsumer.NewEventsHandler(auditpostgres.New(db), log))
			materializer, err = kafkaconsumer.New(kafkaconsumer.Config{
				Brokers:  cfg.Kafka.Brokers,
				Group:    cfg.Kafka.ConsumerGroup,
				Topics:   []string{cfg.Kafka.AuditTopic},
				ClientID: "portico-audit-consumer",
			}, router, log)
			if err != nil {
				return fmt.Errorf("start audit materializer: %w", err)
			}
			defer materializer.Close()
		} else {
			log.Warn("audit topic has no materializer, postgres not configured")
		}
	default:
		auditStore = auditmemory.New()
	}
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)
	log.Info("audit trail ready", "backend", cfg.Audit.Backend)

	// Handler pipeline. Orders group into bands: request pre-processing
	// below 100, renderers at 100, the passthrough fallback last.
	pipeline := dispatch.NewPipeline()
	pipeline.Register("ratelimit",
		ratelimit.NewHandler(windows, cfg.RateLimit.Limit, cfg.RateLimit.Window.Std(),
			ratelimit.WithLogger(log),
			ratelimit.WithMetrics(rlmetrics.New()),
			ratelimit.WithAuditPublisher(publisher),
		),
		dispatch.WithOrder(10), dispatch.ForOps(dispatch.OpRequest))
	pipeline.Register("discovery",
		oidc.NewDiscoveryHandler(oidc.NewProviderMetadata(cfg.Server.Issuer, cfg.Server.Scopes)),
		dispatch.WithOrder(15), dispatch.ForOps(dispatch.OpRequest))
	pipeline.Register("bearer",
		bearer.NewHandler(validator,
			bearer.WithRevocation(revocations),
			bearer.WithLogger(log),
			bearer.WithAuditPublisher(publisher),
		),
		dispatch.WithOrder(20), dispatch.ForOps(dispatch.OpRequest))
	pipeline.Register("sign-out-revoker",
		bearer.NewSignOutRevoker(revocations, log),
		dispatch.WithOrder(50), dispatch.ForOps(dispatch.OpSignOut))
	pipeline.Register("challenge-renderer",
		render.NewChallengeRenderer(render.WithChallengeRealm(cfg.Server.Realm)),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpChallenge))
	pipeline.Register("sign-in-renderer",
		render.NewSignInRenderer(validator, render.WithTokenTTL(cfg.Token.TTL.Std())),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpSignIn))
	pipeline.Register("sign-out-renderer",
		render.NewSignOutRenderer(),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpSignOut))
	pipeline.Register("error-renderer",
		render.NewErrorRenderer(render.WithRealm(cfg.Server.Realm)),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpError))
	pipeline.Register("passthrough",
		render.NewPassthrough(),
		dispatch.WithOrder(1000), dispatch.ForOps(dispatch.OpRequest))

	gw := gateway.New(dispatch.NewTracingDispatcher(pipeline),
		gateway.WithLogger(log),
		gateway.WithMetrics(gwmetrics.New()),
		gateway.WithAuditPublisher(publisher),
	)

	// Host routes around the mediation middleware.
	health := httptransport.NewHealthHandler(log)
	if cache != nil {
		health.AddCheck("redis", cache.Health)
	}
	if db != nil {
		health.AddCheck("postgres", db.PingContext)
	}

	deps := httptransport.Deps{
		Gateway:  gw,
		Logger:   log,
		Metrics:  platformmetrics.New(),
		Health:   health,
		Userinfo: httptransport.NewUserinfoHandler(gw, log),
		Logout:   httptransport.NewLogoutHandler(gw, log),
	}
	if cfg.Server.DevSignIn {
		devToken, err := buildDevTokenHandler(cfg.Server, gw, log)
		if err != nil {
			return err
		}
		deps.DevToken = devToken
	}

	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	if materializer != nil {
		g.Go(func() error {
			return materializer.Run(gctx)
		})
	}
	g.Go(func() error {
		log.Info("portico listening", "addr", cfg.Server.Addr, "issuer", cfg.Server.Issuer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "dropped_audit_events", publisher.Dropped())
		if err := httpserver.Shutdown(srv, shutdownTimeout); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("portico stopped")
	return nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// buildRevocations prefers shared stores so revocation survives restarts
// and spans instances: Redis first, then PostgreSQL, then process memory.
func buildRevocations(cache *redisplatform.Client, db *sql.DB) revocationList {
	switch {
	case cache != nil:
		return revocation.NewRedisStore(cache.Client)
	case db != nil:
		return revocation.NewPostgresStore(db)
	default:
		return revocation.NewMemoryStore()
	}
}

// buildDevTokenHandler mounts the development sign-in route. Without a
// configured secret hash it mints an ephemeral secret and logs it once, so
// a bare dev setup is usable out of the box.
func buildDevTokenHandler(cfg config.ServerConfig, gw *gateway.Gateway, log *slog.Logger) (*httptransport.DevTokenHandler, error) {
	clientID := cfg.DevClientID
	if clientID == "" {
		clientID = "portico-dev"
	}
	hash := cfg.DevClientSecretHash
	if hash == "" {
		secret, err := secrets.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate dev client secret: %w", err)
		}
		hash, err = secrets.Hash(secret)
		if err != nil {
			return nil, fmt.Errorf("hash dev client secret: %w", err)
		}
		log.Warn("dev sign-in enabled with ephemeral client secret",
			"client_id", clientID,
			"client_secret", secret,
		)
	}
	return httptransport.NewDevTokenHandler(gw, clientID, hash, log), nil
}
