package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/cache"
	"dental-clinic-server/internal/config"
	"dental-clinic-server/internal/contacts"
	"dental-clinic-server/internal/logging"
	"dental-clinic-server/internal/metrics"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/notify"
	"dental-clinic-server/internal/reports"
	"dental-clinic-server/internal/routes"
	"dental-clinic-server/internal/store"
	"dental-clinic-server/internal/tracing"
	"dental-clinic-server/internal/uploads"
	"dental-clinic-server/internal/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "dental-clinic-server",
		Short: "Dental clinic appointments and reports API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal outside local development.
			_ = godotenv.Load()
		},
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := models.OpenDB(models.DatabaseConfig{DSN: cfg.Database.DSN, Verbose: cfg.Database.Verbose})
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN, Verbose: cfg.Database.Verbose})
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}

			admin, err := models.CreateAdmin(cmd.Context(), db, username, password)
			if err != nil {
				return err
			}
			logger.Info().Str("admin_id", admin.ID).Str("username", admin.Username).Msg("admin created")
			return nil
		},
	}
	cmd.Flags().String("username", "", "Admin username")
	cmd.Flags().String("password", "", "Admin password")
	return cmd
}

func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.Environment), nil
}

func runServer() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.ExposeDetails = !cfg.IsProduction()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN, Verbose: cfg.Database.Verbose})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB(db, logger)

	ctx := context.Background()

	tp, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: "dental-clinic-server",
		Environment: cfg.Environment,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, os.Stdout)
	if err != nil {
		return err
	}
	if tp != nil {
		logger.Info().Str("exporter", cfg.Tracing.Exporter).Msg("tracing enabled")
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(flushCtx); err != nil {
				logger.Warn().Err(err).Msg("flush traces")
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	trigger := notify.NewTrigger(notify.TriggerOptions{
		Sender: buildSender(cfg, sesv2.NewFromConfig(awsCfg), logger),
		Renderer: notify.NewRenderer(notify.Branding{
			ClinicName: cfg.Clinic.Name,
			Phone:      cfg.Clinic.Phone,
			Address:    cfg.Clinic.Address,
			Hours:      cfg.Clinic.Hours,
			DoctorName: cfg.Clinic.DoctorName,
			BookingURL: cfg.PublicBaseURL,
		}),
		ClinicInbox:   cfg.Mailer.ClinicInbox,
		PublicBaseURL: cfg.PublicBaseURL,
		Metrics:       m,
		Logger:        logger,
	})

	backend := store.NewGormBackend(db, models.Collections())

	apptOpts := appointments.Options{
		Notifier: trigger,
		Metrics:  m,
		Logger:   logger,
		Location: loc,
	}
	redisClient := cache.NewClient(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
		apptOpts.Index = cache.NewTrackingIndex(redisClient, cache.DefaultTTL, logger)
	}
	apptSvc := appointments.NewService(backend, apptOpts)

	reportSvc := reports.NewService(backend, reports.Options{
		Appointments: apptSvc,
		Notifier:     trigger,
		Metrics:      m,
		Logger:       logger,
	})
	contactSvc := contacts.NewService(backend, trigger, logger)

	var uploader *uploads.Uploader
	if cfg.Storage.Bucket != "" {
		uploader = uploads.NewUploader(s3.NewFromConfig(awsCfg), uploads.Config{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.AWS.Region,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			MaxBytes:      int64(cfg.Storage.MaxUploadMB) << 20,
		}, logger)
	} else {
		logger.Warn().Msg("S3_BUCKET not set, document uploads disabled")
	}

	router := routes.NewRouter(cfg, routes.Services{
		DB:           db,
		Appointments: apptSvc,
		Reports:      reportSvc,
		Contacts:     contactSvc,
		Uploader:     uploader,
		Metrics:      m,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	trigger.Wait()
	logger.Info().Msg("server stopped")
	return nil
}

// buildSender picks the email transport. A misconfigured transport falls back
// to the stub so bookings keep working.
func buildSender(cfg *config.Config, ses notify.SESAPI, logger zerolog.Logger) notify.EmailSender {
	fromName := cfg.Mailer.FromName
	if fromName == "" {
		fromName = cfg.Clinic.Name
	}

	switch cfg.Mailer.Transport {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.Mailer.SendGridAPIKey,
			FromEmail: cfg.Mailer.FromEmail,
			FromName:  fromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn().Msg("SENDGRID_API_KEY not set, emails will only be logged")
	case "ses":
		if s := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.Mailer.FromEmail,
			FromName:  fromName,
		}, logger); s != nil {
			return s
		}
	}
	return notify.NewStubEmailSender(logger)
}

func closeDB(db *gorm.DB, logger zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("close database")
	}
}
