package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"aroundtable/internal/events"
	familyhandler "aroundtable/internal/family/handler"
	familyservice "aroundtable/internal/family/service"
	familystore "aroundtable/internal/family/store"
	groupinghandler "aroundtable/internal/grouping/handler"
	groupingmetrics "aroundtable/internal/grouping/metrics"
	groupingservice "aroundtable/internal/grouping/service"
	groupingstore "aroundtable/internal/grouping/store"
	jwttoken "aroundtable/internal/jwt_token"
	"aroundtable/internal/platform/config"
	"aroundtable/internal/platform/database"
	"aroundtable/internal/platform/metrics"
	"aroundtable/internal/platform/middleware"
	"aroundtable/internal/platform/redis"
	sessionhandler "aroundtable/internal/session/handler"
	sessionservice "aroundtable/internal/session/service"
	sessionstore "aroundtable/internal/session/store"
	"aroundtable/pkg/platform/circuit"
	"aroundtable/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// infra holds the backing services selected by configuration. Nil fields
// mean the in-memory fallback is used.
type infra struct {
	db        *sql.DB
	redis     *redis.Client
	kafka     *events.KafkaPublisher
	publisher events.Publisher
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{publisher: events.NewLogPublisher(log)}

	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		in.db = db
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set; families and sessions are kept in memory")
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if client != nil {
		in.redis = client
		log.Info("using redis draft store")
	}

	if cfg.Kafka.Enabled() {
		kafka, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			in.Close()
			return nil, err
		}
		if err := kafka.Ping(ctx); err != nil {
			log.Warn("kafka not reachable at startup; events fall back to the log", "error", err)
		}
		in.kafka = kafka
		in.publisher = events.NewResilientPublisher(kafka, in.publisher, circuit.New("kafka"), log)
		log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	}
	return in, nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

// health reports the first backing service that does not answer.
func (in *infra) health(ctx context.Context) error {
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func newRouter(cfg config.Server, in *infra, reg prometheus.Registerer, log *slog.Logger) http.Handler {
	var families familyservice.Store = familystore.NewInMemoryStore()
	var sessions sessionservice.Store = sessionstore.NewInMemoryStore()
	var drafts groupingservice.Store = groupingstore.NewInMemoryStore()
	conflict := func(error) bool { return false }
	if in.db != nil {
		families = familystore.NewPostgres(in.db)
		sessions = sessionstore.NewPostgres(in.db)
	}
	if in.redis != nil {
		drafts = groupingstore.NewRedis(in.redis.Client)
		conflict = func(err error) bool { return errors.Is(err, groupingstore.ErrConflict) }
	}

	familySvc := familyservice.New(families,
		familyservice.WithLogger(log),
		familyservice.WithPublisher(in.publisher),
	)
	sessionSvc := sessionservice.New(sessions, familySvc,
		sessionservice.WithLogger(log),
		sessionservice.WithPublisher(in.publisher),
		sessionservice.WithLocation(time.Local),
	)
	groupingSvc := groupingservice.New(drafts, familySvc, sessionSvc,
		groupingservice.WithLogger(log),
		groupingservice.WithPublisher(in.publisher),
		groupingservice.WithMetrics(groupingmetrics.New(reg)),
		groupingservice.WithDefaultGroupSize(cfg.DefaultGroupSize),
		groupingservice.WithDraftTTL(cfg.DraftTTL),
		groupingservice.WithConflictDetector(conflict),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.LatencyMiddleware(metrics.New(reg)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := in.health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if cfg.AuthEnabled {
			validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer))
			r.Use(middleware.RequireAuth(validator, log))
		}
		familyhandler.New(familySvc, log).Register(r)
		sessionhandler.New(sessionSvc, log).Register(r)
		groupinghandler.New(groupingSvc, log).Register(r)
	})
	return r
}
