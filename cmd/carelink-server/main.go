package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/domain/discharge"
	"github.com/carelink/carelink/internal/domain/profile"
	"github.com/carelink/carelink/internal/domain/reminder"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/blobstore"
	"github.com/carelink/carelink/internal/platform/calendar"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/internal/platform/email"
	"github.com/carelink/carelink/internal/platform/middleware"
	"github.com/carelink/carelink/internal/platform/notify"
	"github.com/carelink/carelink/internal/platform/pdf"
	"github.com/carelink/carelink/internal/platform/phi"
	"github.com/carelink/carelink/internal/platform/summarize"
	"github.com/carelink/carelink/internal/platform/transcribe"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelink-server",
		Short: "Healthcare discharge assistant API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(schedulesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default from MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default from MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for API access",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is not configured")
			}

			token, err := auth.GenerateToken(auth.Config{
				SigningKey: []byte(cfg.AuthSigningKey),
				Issuer:     cfg.AuthIssuer,
				TokenTTL:   cfg.TokenTTL(),
			}, subject, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "dev-user", "Token subject (user ID)")
	cmd.Flags().String("role", auth.RoleClinician, "Token role")
	return cmd
}

func schedulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "Print active reminder schedules from the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			mgr, err := reminder.NewManager(reminder.NewFileStore(cfg.ReminderSnapshot), zerolog.Nop())
			if err != nil {
				return fmt.Errorf("load schedules: %w", err)
			}
			fmt.Println(mgr.SummaryText())
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// PHI encryption
	var encryptor *phi.Encryptor
	if cfg.PHIPassphrase != "" {
		encryptor, err = phi.NewEncryptor(cfg.PHIPassphrase, []byte(cfg.PHISalt))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create PHI encryptor")
		}
		logger.Info().Msg("PHI encryption enabled for stored documents")
	} else {
		logger.Warn().Msg("PHI_PASSPHRASE not set; stored documents are not encrypted at rest")
	}

	// Blob storage
	var blobs blobstore.BlobStore
	if encryptor != nil {
		blobs, err = blobstore.NewEncryptedDiskBlobStore(cfg.BlobDir, encryptor)
	} else {
		blobs, err = blobstore.NewDiskBlobStore(cfg.BlobDir)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open blob store")
	}

	// Reminder scheduler
	if err := os.MkdirAll(filepath.Dir(cfg.ReminderSnapshot), 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create snapshot directory")
	}
	manager, err := reminder.NewManager(reminder.NewFileStore(cfg.ReminderSnapshot), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load reminder schedules")
	}

	// Outbound gateway
	var gateway notify.Gateway
	if cfg.TelegramBotToken != "" {
		gateway, err = notify.NewTelegramGateway(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create telegram gateway")
		}
	} else {
		logger.Warn().Msg("TELEGRAM_BOT_TOKEN not set; reminders are logged instead of delivered")
		gateway = notify.NewLogGateway(logger)
	}

	dispatcher := reminder.NewDispatcher(manager, gateway, logger)
	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	dispatcher.Start(dispatcherCtx)
	defer func() {
		stopDispatcher()
		dispatcher.Stop()
	}()

	// AI adapters
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set; transcription and summarization will fail")
	}
	transcriber := transcribe.NewWhisperClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.TranscribeModel, logger)
	summarizer := summarize.NewLLMClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.SummarizeModel, logger)
	embedder := profile.NewHTTPEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel)

	// Outbound channels
	mailer := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, logger)
	events := calendar.NewRESTClient(cfg.CalendarBaseURL, cfg.CalendarID, cfg.CalendarToken, cfg.CalendarTimeZone, logger)

	// Domain services
	profileSvc := profile.NewService(profile.NewRepoPG(pool), embedder, logger)
	dischargeSvc := discharge.NewService(discharge.Deps{
		Transcriber: transcriber,
		Summarizer:  summarizer,
		Renderer:    pdf.NewRenderer(cfg.HospitalName),
		Blobs:       blobs,
		Mailer:      mailer,
		Gateway:     gateway,
		Events:      events,
		Profiles:    profileSvc,
		Reminders:   manager,
	}, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(3 * time.Minute))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group with auth and PHI access audit
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevMiddleware())
	} else {
		apiV1.Use(auth.Middleware(auth.Config{
			SigningKey: []byte(cfg.AuthSigningKey),
			Issuer:     cfg.AuthIssuer,
			TokenTTL:   cfg.TokenTTL(),
		}))
	}
	apiV1.Use(middleware.AccessAudit(logger))

	discharge.NewHandler(dischargeSvc).Register(apiV1)
	profile.NewHandler(profileSvc).RegisterRoutes(apiV1)
	reminder.NewHandler(manager).RegisterRoutes(apiV1)
	blobstore.NewBlobHandler(blobs).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
