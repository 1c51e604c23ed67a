package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"deedblock/internal/location"
	"deedblock/internal/objectstore"
	"deedblock/internal/platform/config"
	"deedblock/internal/platform/httpserver"
	"deedblock/internal/platform/logger"
	"deedblock/internal/platform/metrics"
	"deedblock/internal/platform/middleware"
	"deedblock/internal/platform/postgres"
	platformredis "deedblock/internal/platform/redis"
	"deedblock/internal/ratelimit"
	"deedblock/internal/registration/handler"
	"deedblock/internal/registration/service"
	regstore "deedblock/internal/registration/store"
	"deedblock/internal/submission"
	"deedblock/internal/verification"
	"deedblock/internal/wizard"
	audit "deedblock/pkg/platform/audit"
	auditmem "deedblock/pkg/platform/audit/store/memory"
	auditpg "deedblock/pkg/platform/audit/store/postgres"
	auditworker "deedblock/pkg/platform/audit/worker"
)

// main wires dependencies and owns the process lifecycle. Every component
// degrades to an in-memory implementation when its backing service is not
// configured, so a bare `go run` gives a working single-process server.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	dataset, err := location.Load()
	if err != nil {
		log.Error("loading location dataset failed", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.Postgres.URL != "" {
		db, err = postgres.Open(cfg.Postgres)
		if err != nil {
			log.Error("opening postgres failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	signer := objectstore.NewURLSigner(cfg.Storage.SigningKey, cfg.Storage.BaseURL, cfg.Storage.URLTTL)
	objects, err := objectstore.NewFS(cfg.Storage.RootDir, signer)
	if err != nil {
		log.Error("initializing object storage failed", "error", err)
		os.Exit(1)
	}

	var draftStore regstore.DraftStore = regstore.NewMemory()
	var finalized submission.Store = submission.NewMemoryStore()
	if db != nil {
		draftStore = regstore.NewPostgres(db)
		finalized = submission.NewPostgresStore(db)
	}

	drafts := service.New(draftStore, objects, m, log, cfg.Draft.AutosaveDebounce)
	wizardCtl := wizard.NewController(drafts)

	var challenges verification.ChallengeStore = verification.NewMemoryChallengeStore()
	var guard submission.Guard = submission.NewMemoryGuard()
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if redisClient != nil {
		challenges = verification.NewRedisChallengeStore(redisClient.Client)
		guard = submission.NewRedisGuard(redisClient.Client, 0)
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
	}

	verify := verification.New(
		challenges,
		&verification.LogSender{Logger: log},
		verification.MockPaymentGateway{},
		verification.MockFingerprintVerifier{},
		cfg.Verification.ChallengeTTL,
		log,
	)

	var content submission.ContentStore = submission.NewMemoryContentStore()
	if cfg.ContentStore.BaseURL != "" {
		content = submission.NewHTTPContentStore(cfg.ContentStore.BaseURL, &http.Client{Timeout: cfg.ContentStore.Timeout})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditStore := buildAuditPipeline(ctx, cfg, db, log)

	pipeline := submission.NewPipeline(drafts, objects, content, finalized, guard, auditStore, m, log)
	limiter := ratelimit.NewLimiter(limitStore, ratelimit.DefaultRequestLimit, ratelimit.DefaultRequestWindow, log)

	h := handler.New(
		drafts,
		wizardCtl,
		pipeline,
		verify,
		finalized,
		dataset,
		limiter,
		m,
		middleware.NewJWTValidator(cfg.Server.JWTSigningKey),
		log,
	)

	router := chi.NewRouter()
	h.Register(router)
	router.Method(http.MethodGet, "/v1/objects/*", objectstore.DownloadHandler(objects, signer))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", readyHandler(db, redisClient))

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting deedblock server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildAuditPipeline picks the audit path for the configured backends:
// postgres outbox (+ Kafka publisher when brokers are set), or the in-memory
// store for local runs. Events always flow through a buffered worker so the
// request path never blocks on audit writes.
func buildAuditPipeline(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) audit.Store {
	var sink audit.Store = auditmem.NewInMemoryStore()
	if db != nil {
		sink = auditpg.New(db)
	}

	buffered := auditworker.NewBuffered(256, log)
	go func() {
		if err := auditworker.NewWorker(sink, buffered.Inbox(), log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			log.Error("creating kafka client failed, outbox rows will accumulate", "error", err)
			return buffered
		}
		publisher := auditworker.NewOutboxPublisher(db, client, cfg.Kafka.TopicPrefix, log,
			auditworker.WithPollInterval(cfg.Kafka.OutboxPollPeriod))
		if err := publisher.EnsureTopic(ctx); err != nil {
			log.Error("ensuring audit topic failed", "error", err)
		}
		go func() {
			defer client.Close()
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox publisher stopped", "error", err)
			}
		}()
	}

	return buffered
}

func readyHandler(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
