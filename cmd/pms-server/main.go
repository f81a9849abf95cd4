package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/account"
	"github.com/clinicore/clinicore/internal/domain/appointment"
	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/claim"
	"github.com/clinicore/clinicore/internal/domain/clinic"
	"github.com/clinicore/clinicore/internal/domain/contact"
	"github.com/clinicore/clinicore/internal/domain/note"
	"github.com/clinicore/clinicore/internal/domain/notification"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/report"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/messaging"
	"github.com/clinicore/clinicore/internal/platform/middleware"
	"github.com/clinicore/clinicore/internal/platform/phi"
	"github.com/clinicore/clinicore/internal/platform/reporting"
	"github.com/clinicore/clinicore/internal/platform/scope"
	"github.com/clinicore/clinicore/internal/platform/websocket"
	"github.com/clinicore/clinicore/pkg/money"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pms-server",
		Short: "Clinic practice management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(genKeyCmd())

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
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	var adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo clinic with an admin user, service catalog and note templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			return runSeed(ctx, pool, adminEmail, adminPassword)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@demo.clinicore.ph", "email for the seeded admin user")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for the seeded admin user (generated when empty)")
	return cmd
}

func runSeed(ctx context.Context, pool *pgxpool.Pool, adminEmail, adminPassword string) error {
	userRepo := account.NewUserRepoPG(pool)

	// Seeding is idempotent on the admin email so it is safe in start
	// scripts that run it on every boot.
	if _, err := userRepo.GetByEmail(ctx, adminEmail); err == nil {
		fmt.Printf("Seed skipped: user %s already exists.\n", adminEmail)
		return nil
	} else if !errors.Is(err, account.ErrNotFound) {
		return err
	}

	if adminPassword == "" {
		generated, err := auth.GenerateTempPassword(12)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		adminPassword = generated
	}
	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	clinicSvc := clinic.NewService(
		clinic.NewClinicRepoPG(pool),
		clinic.NewLocationRepoPG(pool),
		clinic.NewPractitionerRepoPG(pool),
		db.NewSequencer(pool))

	demo := &clinic.Clinic{
		Name:             "Demo Physical Therapy Clinic",
		Email:            "hello@demo.clinicore.ph",
		Phone:            "+63 2 8123 4567",
		Address:          "12 Katipunan Ave",
		City:             "Quezon City",
		Province:         "Metro Manila",
		PostalCode:       "1108",
		SubscriptionPlan: clinic.PlanProfessional,
	}
	if err := clinicSvc.CreateClinic(ctx, demo); err != nil {
		return fmt.Errorf("create demo clinic: %w", err)
	}

	admin := &account.User{
		ClinicID:            &demo.ID,
		Email:               adminEmail,
		PasswordHash:        passwordHash,
		FirstName:           "Demo",
		LastName:            "Admin",
		Role:                auth.RoleAdmin,
		IsActive:            true,
		NeedsPasswordChange: true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	catalog := billing.NewServiceRepoPG(pool)
	services := []*billing.CatalogService{
		{Name: "Initial Evaluation", ServiceCode: "PT-EVAL", Category: "EVALUATION", DefaultPrice: money.Cents(150000)},
		{Name: "Therapeutic Exercise", ServiceCode: "PT-EX", Category: "TREATMENT", DefaultPrice: money.Cents(80000)},
		{Name: "Manual Therapy", ServiceCode: "PT-MT", Category: "TREATMENT", DefaultPrice: money.Cents(100000)},
		{Name: "Electrotherapy", ServiceCode: "PT-ES", Category: "MODALITY", DefaultPrice: money.Cents(60000)},
	}
	for _, cs := range services {
		cs.ClinicID = demo.ID
		cs.IsActive = true
		if err := catalog.Create(ctx, cs); err != nil {
			return fmt.Errorf("create catalog service %s: %w", cs.ServiceCode, err)
		}
	}

	templates := note.NewTemplateRepoPG(pool)
	soap := &note.ClinicalTemplate{
		ClinicID:    demo.ID,
		Name:        "SOAP Note",
		Description: "Standard subjective/objective/assessment/plan note",
		Category:    note.CategorySOAP,
		Structure: map[string]interface{}{
			"sections": []interface{}{
				map[string]interface{}{"key": "subjective", "label": "Subjective", "type": "text"},
				map[string]interface{}{"key": "objective", "label": "Objective", "type": "text"},
				map[string]interface{}{"key": "assessment", "label": "Assessment", "type": "text"},
				map[string]interface{}{"key": "plan", "label": "Plan", "type": "text"},
			},
		},
		Version:  1,
		IsActive: true,
	}
	if err := templates.Create(ctx, soap); err != nil {
		return fmt.Errorf("create SOAP template: %w", err)
	}

	fmt.Printf("Seeded clinic %q (%s)\n", demo.Name, demo.ID)
	fmt.Printf("Admin login: %s / %s (password change required on first login)\n", adminEmail, adminPassword)
	return nil
}

func genKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Generate a hex-encoded AES-256 key for NOTE_ENCRYPTION_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := cryptorand.Read(key); err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(key))
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	zlog.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Development convenience: generate ephemeral secrets so a fresh
	// checkout runs without a .env. Validate rejects the blanks in any
	// other environment.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = randomHex(32)
		logger.Warn().Msg("JWT_SECRET not set, using ephemeral secret; sessions will not survive restarts")
	}
	noteKey, err := cfg.NoteKeyBytes()
	if err != nil {
		noteKey = make([]byte, 32)
		if _, err := cryptorand.Read(noteKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate note key")
		}
		logger.Warn().Msg("NOTE_ENCRYPTION_KEY not set, using ephemeral key; existing notes will not decrypt")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Platform services
	sequencer := db.NewSequencer(pool)
	issuer := auth.NewTokenIssuer(jwtSecret,
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLHr)*time.Hour)
	revoked := auth.NewRevocationStore()
	hub := websocket.NewHub()

	encryptor, err := phi.NewEncryptor(noteKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize note encryption")
	}

	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	// Repositories
	clinicRepo := clinic.NewClinicRepoPG(pool)
	locationRepo := clinic.NewLocationRepoPG(pool)
	practitionerRepo := clinic.NewPractitionerRepoPG(pool)
	userRepo := account.NewUserRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	intakeRepo := patient.NewIntakeFormRepoPG(pool)
	apptRepo := appointment.NewRepoPG(pool)
	scheduleRepo := appointment.NewScheduleRepoPG(pool)
	templateRepo := note.NewTemplateRepoPG(pool)
	noteRepo := note.NewNoteRepoPG(pool)
	auditRepo := note.NewAuditRepoPG(pool)
	invoiceRepo := billing.NewInvoiceRepoPG(pool)
	itemRepo := billing.NewItemRepoPG(pool)
	paymentRepo := billing.NewPaymentRepoPG(pool)
	catalogRepo := billing.NewServiceRepoPG(pool)
	claimRepo := claim.NewRepoPG(pool)
	contactRepo := contact.NewRepoPG(pool)
	notifRepo := notification.NewRepoPG(pool)
	logRepo := notification.NewLogRepoPG(pool)
	reportRepo := report.NewRepoPG(pool)
	statsRepo := report.NewStatsRepoPG(pool)

	// Notifications persist every outbound message, so the dispatcher
	// records through the notification service.
	notifSvc := notification.NewService(notifRepo, logRepo, hub)
	dispatcher := messaging.NewDispatcher(
		&messaging.LogEmailSender{Logger: logger},
		&messaging.LogSMSSender{Logger: logger},
		messaging.NewTemplateEngine(),
		notifSvc)

	clinicSvc := clinic.NewService(clinicRepo, locationRepo, practitionerRepo, sequencer)
	accountSvc := account.NewService(userRepo, clinicSvc, issuer, revoked, dispatcher, runTx, logger)
	patientSvc := patient.NewService(patientRepo, intakeRepo, sequencer)
	apptSvc := appointment.NewService(apptRepo, scheduleRepo, hub, dispatcher)
	noteSvc := note.NewService(templateRepo, noteRepo, auditRepo, encryptor, hub)
	billingSvc := billing.NewService(invoiceRepo, itemRepo, paymentRepo, catalogRepo, sequencer, dispatcher)
	claimSvc := claim.NewService(claimRepo)
	contactSvc := contact.NewService(contactRepo, sequencer)
	reportSvc := report.NewService(reportRepo, statsRepo)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Route groups: public carries no auth, api requires a valid access
	// token and a resolved clinic scope.
	public := e.Group("/api", middleware.RateLimit(rateLimitCfg))
	api := e.Group("/api",
		middleware.RateLimit(rateLimitCfg),
		auth.Middleware(issuer),
		scope.Middleware(clinicRepo))

	account.NewHandler(accountSvc).RegisterRoutes(public, api)
	clinic.NewHandler(clinicSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	appointment.NewHandler(apptSvc).RegisterRoutes(api)
	note.NewHandler(noteSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	claim.NewHandler(claimSvc).RegisterRoutes(api)
	contact.NewHandler(contactSvc).RegisterRoutes(api)
	notification.NewHandler(notifSvc).RegisterRoutes(api)
	report.NewHandler(reportSvc).RegisterRoutes(api)
	reporting.NewHandler(pool).RegisterRoutes(api)
	websocket.NewWebSocketHandler(hub).RegisterRoutes(api)

	e.GET("/health", db.HealthHandler(pool))

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

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := cryptorand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
