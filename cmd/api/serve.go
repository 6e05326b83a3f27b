package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/config"
	dbpkg "github.com/BruksfildServices01/clinic-api/internal/db"
	infraRepo "github.com/BruksfildServices01/clinic-api/internal/infra/repository"
	"github.com/BruksfildServices01/clinic-api/internal/jobs"
	"github.com/BruksfildServices01/clinic-api/internal/notify"
	"github.com/BruksfildServices01/clinic-api/internal/outbox"
	"github.com/BruksfildServices01/clinic-api/internal/payment"
	"github.com/BruksfildServices01/clinic-api/internal/routes"
	"github.com/BruksfildServices01/clinic-api/internal/storage"
	ucPayment "github.com/BruksfildServices01/clinic-api/internal/usecase/payment"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg.IsDev()), !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply the schema on startup")
	return cmd
}

func runServer(cfg *config.Config, log zerolog.Logger, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ======================================================
	// INFRA
	// ======================================================
	db, err := dbpkg.NewDB(cfg, log)
	if err != nil {
		return err
	}
	if migrate {
		if err := dbpkg.Migrate(db); err != nil {
			return err
		}
	}

	store, err := cache.New(ctx, cfg.RedisURL, log)
	if err != nil {
		return err
	}
	defer store.Close()

	auditDispatcher := audit.NewDispatcher(audit.New(db), log)
	defer auditDispatcher.Close()

	gateway, err := payment.New(cfg)
	if err != nil {
		return err
	}
	if gateway == nil {
		log.Warn().Msg("PAYMENT_PROVIDER not set, checkout disabled")
	} else {
		log.Info().Str("provider", gateway.Name()).Msg("payments enabled")
	}

	var objects storage.Store
	if s3 := storage.New(cfg); s3 != nil {
		objects = s3
		log.Info().Str("bucket", cfg.S3Bucket).Msg("object storage enabled")
	} else {
		log.Warn().Msg("S3_BUCKET not set, pdfs and logos are not stored")
	}

	policy := authz.DefaultPolicy()
	settler := ucPayment.NewSettler(
		infraRepo.NewInvoiceGormRepository(db),
		gateway,
		store,
		policy,
		auditDispatcher,
		log,
	)

	// ======================================================
	// OUTBOX SINKS
	// ======================================================
	var sinks []outbox.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafka := outbox.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		sinks = append(sinks, kafka)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka sink enabled")
	}
	if cfg.FirebaseCredentialsFile != "" {
		sender, err := notify.NewFirebaseSender(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			return err
		}
		sinks = append(sinks, notify.NewPushSink(db, sender, log))
		log.Info().Msg("push sink enabled")
	}

	// ======================================================
	// JOBS
	// ======================================================
	scheduler := jobs.New(log)
	if err := scheduler.AddOutboxRelay(outbox.NewRelay(db, log, sinks...), cfg.OutboxPollInterval); err != nil {
		return err
	}
	if gateway != nil {
		if err := scheduler.AddPaymentReconcile(settler, cfg.PaymentReconcileInterval); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ======================================================
	// HTTP
	// ======================================================
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	routes.RegisterRoutes(r, routes.Deps{
		DB:      db,
		Config:  cfg,
		Log:     log,
		Cache:   store,
		Audit:   auditDispatcher,
		Policy:  policy,
		Issuer:  authz.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Gateway: gateway,
		Storage: objects,
		Settler: settler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http drain incomplete")
	}
	return nil
}
