package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm/logger"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/handlers"
	"github.com/statuspulse/statuspulse/internal/jobs"
	"github.com/statuspulse/statuspulse/internal/middleware"
	"github.com/statuspulse/statuspulse/internal/notify"
	"github.com/statuspulse/statuspulse/internal/services"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting StatusPulse monitoring engine...")

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	db := database.GetDB()

	// Settings provider: dynamic settings from the database, static config
	// defaults as the fallback when the dynamic store is unavailable.
	var settingsProvider database.SettingsProvider = database.NewDBSettingsProvider(db)
	if _, err := settingsProvider.MonitorSettings(); err != nil {
		log.Printf("Warning: dynamic monitor settings unavailable, using static defaults: %v", err)
		settingsProvider = &database.StaticSettingsProvider{
			Settings: database.MonitorSettings{
				Enabled:                 cfg.Monitor.Enabled,
				TickIntervalSeconds:     cfg.Monitor.TickIntervalSeconds,
				WorkerPoolSize:          cfg.Monitor.WorkerPoolSize,
				DefaultFailureThreshold: cfg.Monitor.DefaultFailureThreshold,
				DefaultTimeoutSeconds:   cfg.Monitor.DefaultTimeoutSeconds,
			},
		}
	}

	// Initialize notification channels
	emailSender, err := notify.NewEmailSender(notify.EmailConfig{
		Enabled:     cfg.EmailEnabled,
		SMTPHost:    cfg.SMTPHost,
		SMTPPort:    cfg.SMTPPort,
		SMTPUser:    cfg.SMTPUser,
		SMTPassword: cfg.SMTPPassword,
		FromAddress: cfg.SMTPFrom,
	})
	if err != nil {
		log.Fatalf("Failed to initialize email sender: %v", err)
	}
	dispatcher := notify.NewDispatcher(
		emailSender,
		notify.NewSlackSender(),
		notify.NewWebhookSender(0),
	)
	log.Printf("Notification channels initialized (email enabled: %t)", cfg.EmailEnabled)

	// Initialize services
	subscriberMailer := notify.NewSubscriberMailer(db, emailSender)
	incidentService := services.NewIncidentService(db, subscriberMailer)
	statusService := services.NewStatusService(db, incidentService)

	// Initialize background jobs
	scheduler := jobs.NewHealthCheckScheduler(db, settingsProvider, statusService)
	aggregator := jobs.NewLogMetricAggregator(db)
	evaluator := jobs.NewAlertRuleEvaluator(db, dispatcher)
	calculator := jobs.NewUptimeCalculator(db)

	stop := make(chan struct{})
	go scheduler.Start(stop)
	go aggregator.Start(stop)
	go evaluator.Start(stop)
	go calculator.Start(stop)
	log.Printf("Background jobs started: scheduler, aggregator, evaluator, uptime calculator")

	// Set up HTTP server routes
	httpHandler := handlers.NewHTTPHandler(db, scheduler, evaluator, calculator)
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	wrapped := corsMiddleware.Wrap(middleware.RequestIDMiddleware(mux))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: wrapped,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Received shutdown signal, cleaning up...")

	close(stop)
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
