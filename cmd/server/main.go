package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	jwttoken "civic/internal/jwt_token"
	notificationhandler "civic/internal/notification/handler"
	notificationpublisher "civic/internal/notification/publisher"
	notificationservice "civic/internal/notification/service"
	notificationstore "civic/internal/notification/store"
	"civic/internal/permission/gate"
	permissionhandler "civic/internal/permission/handler"
	permissionmetrics "civic/internal/permission/metrics"
	permission "civic/internal/permission/models"
	permissionservice "civic/internal/permission/service"
	permissionstore "civic/internal/permission/store"
	"civic/internal/platform/config"
	"civic/internal/platform/httpserver"
	"civic/internal/platform/kafka"
	"civic/internal/platform/logger"
	"civic/internal/platform/metrics"
	"civic/internal/platform/otel"
	"civic/internal/platform/postgres"
	"civic/internal/platform/redis"
	httptransport "civic/internal/transport/http"
	trustscorehandler "civic/internal/trustscore/handler"
	trustscoremetrics "civic/internal/trustscore/metrics"
	trustscoreservice "civic/internal/trustscore/service"
	trustscorestore "civic/internal/trustscore/store"
	"civic/internal/verification/emailcode"
	verificationhandler "civic/internal/verification/handler"
	verificationmetrics "civic/internal/verification/metrics"
	verificationservice "civic/internal/verification/service"
	verificationstore "civic/internal/verification/store"
	id "civic/pkg/domain"
	"civic/pkg/email"
	"civic/pkg/platform/audit"
	audithandler "civic/pkg/platform/audit/handler"
	auditmemory "civic/pkg/platform/audit/store/memory"
	auditpostgres "civic/pkg/platform/audit/store/postgres"
	"civic/pkg/platform/middleware/ratelimit"
	"civic/pkg/platform/tx"
)

const serviceName = "civic"

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// stores groups the persistence choice made at startup.
type stores struct {
	runner        tx.Runner
	audit         audit.Store
	permissions   permissionservice.Store
	verifications verificationservice.Store
	notifications notificationservice.Store
	evidence      trustscoreservice.Evidence
}

func memoryStores() stores {
	return stores{
		runner:        tx.Passthrough{},
		audit:         auditmemory.NewInMemoryStore(),
		permissions:   permissionstore.NewInMemory(),
		verifications: verificationstore.NewInMemory(),
		notifications: notificationstore.NewInMemory(),
		evidence:      trustscorestore.NewInMemory(),
	}
}

func postgresStores(db *sql.DB) stores {
	return stores{
		runner:        postgres.NewTxRunner(db),
		audit:         auditpostgres.New(db),
		permissions:   permissionstore.NewPostgres(db),
		verifications: verificationstore.NewPostgres(db),
		notifications: notificationstore.NewPostgres(db),
		evidence:      trustscorestore.NewPostgres(db),
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	readiness := map[string]httptransport.ReadinessCheck{}
	st := memoryStores()
	if cfg.InMemory() {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	} else {
		db, err := postgres.OpenWithConfig(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		st = postgresStores(db)
		readiness["postgres"] = db.PingContext
	}

	codeStore := emailcode.Store(emailcode.NewInMemory())
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		codeStore = emailcode.NewRedisStore(rc.Client)
		readiness["redis"] = rc.Health
		log.Info("email codes stored in redis")
	}

	producer, err := kafka.New(cfg.Kafka)
	if err != nil {
		return err
	}
	notificationOpts := []notificationservice.Option{notificationservice.WithLogger(log)}
	if producer != nil {
		defer producer.Close(context.Background())
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			return err
		}
		notificationOpts = append(notificationOpts, notificationservice.WithPublisher(notificationpublisher.NewKafka(producer)))
		readiness["kafka"] = producer.Health
		log.Info("notifications published to kafka", "topic", cfg.Kafka.Topic)
	}

	auditPublisher := audit.NewPublisher(st.audit, log)

	permissions := permissionservice.New(st.permissions,
		permissionservice.WithLogger(log),
		permissionservice.WithAuditPublisher(auditPublisher),
		permissionservice.WithMetrics(permissionmetrics.New()),
	)
	if err := bootstrapAdmins(ctx, permissions, cfg.BootstrapAdmins); err != nil {
		return err
	}

	notifications := notificationservice.New(st.notifications, notificationOpts...)

	verifications := verificationservice.New(st.verifications, permissions, st.runner,
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(verificationmetrics.New()),
		verificationservice.WithNotifier(notifications),
		verificationservice.WithAuditPublisher(auditPublisher),
		verificationservice.WithEmailCodes(
			emailcode.New(codeStore, cfg.EmailCode.TTL, cfg.EmailCode.MaxAttempts),
			email.LogSender{Logger: log},
		),
	)

	trustScores := trustscoreservice.New(st.evidence,
		trustscoreservice.WithLogger(log),
		trustscoreservice.WithMetrics(trustscoremetrics.New()),
	)

	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	go limiter.Run(ctx, time.Minute)

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Validator:     jwttoken.NewJWTServiceAdapter(tokens),
		Gate:          gate.New(permissions, log, gate.WithAuditPublisher(auditPublisher)),
		Limiter:       limiter,
		Metrics:       metrics.New(),
		Readiness:     readiness,
		Verification:  verificationhandler.New(verifications, log),
		Permissions:   permissionhandler.New(permissions, log),
		AuditTrail:    audithandler.New(st.audit, log),
		Notifications: notificationhandler.New(notifications, log),
		TrustScores:   trustscorehandler.New(trustScores, log),
	})

	log.Info("starting civic", "addr", cfg.Addr, "in_memory", cfg.InMemory())
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), cfg.ShutdownGrace, log)
}

// bootstrapAdmins grants both admin permissions to each configured user.
func bootstrapAdmins(ctx context.Context, permissions *permissionservice.Service, userIDs []string) error {
	for _, raw := range userIDs {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return fmt.Errorf("CIVIC_BOOTSTRAP_ADMINS: %w", err)
		}
		if err := permissions.GrantBundle(ctx, userID, []permission.Name{
			permission.AdminIdentityReview,
			permission.AdminPermissionsManage,
		}); err != nil {
			return fmt.Errorf("bootstrap admin %s: %w", userID, err)
		}
	}
	return nil
}
