package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/api"
	"simplyinvoicing/api/internal/api/handlers"
	"simplyinvoicing/api/internal/cache"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/email"
	"simplyinvoicing/api/internal/logging"
	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/payments"
	"simplyinvoicing/api/internal/plans"
	"simplyinvoicing/api/internal/repository"
	"simplyinvoicing/api/internal/services"
	"simplyinvoicing/api/internal/storage"
	"simplyinvoicing/api/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	mongoClient, mongoDb, err := db.ConnectDB(context.Background(), cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.WithError(err).Error("Error disconnecting from MongoDB")
		}
	}()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	cancelIndexes()

	redisClient, err := cache.ConnectRedis(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.WithError(err).Error("Error disconnecting from Redis")
		}
	}()

	archive, err := storage.NewS3Storage(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	// Email sender
	var primaryEmailSender email.Sender
	if cfg.MockServices {
		log.Info("MOCK_SERVICES enabled: using Redis email sender")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(cfg.LogEmailsPath, cfg)
		if err != nil {
			log.WithError(err).WithField("path", cfg.LogEmailsPath).Warn("Failed to initialize file email sender, proceeding without it")
		} else {
			compositeSender.AddSender(fileSender)
			log.WithField("path", cfg.LogEmailsPath).Info("File email logger enabled")
		}
	}

	m := metrics.New()
	planTable := plans.NewTable(cfg)
	gateway := payments.NewStripeGateway(cfg)

	taskClient := tasks.NewClient(cfg)
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.WithError(err).Error("Error closing task client")
		}
	}()
	queue := tasks.NewQueue(taskClient)

	// Repositories
	userRepo := repository.NewUserRepository(mongoDb)
	invoiceRepo := repository.NewInvoiceRepository(mongoDb)
	clientRepo := repository.NewClientRepository(mongoDb)
	settingsRepo := repository.NewSettingsRepository(mongoDb)
	roleRepo := repository.NewRoleRepository(mongoDb)
	emailLogRepo := repository.NewEmailLogRepository(mongoDb)
	templateRepo := repository.NewEmailTemplateRepository(mongoDb)

	// Services
	roleService := services.NewRoleService(roleRepo, cfg)
	settingsService := services.NewSettingsService(settingsRepo, cfg)
	userService := services.NewUserService(userRepo, roleService, settingsService, planTable, queue)
	clientService := services.NewClientService(clientRepo, userRepo, planTable, nil)
	usageService := services.NewUsageService(userRepo, invoiceRepo, planTable, nil)
	invoiceService := services.NewInvoiceService(invoiceRepo, clientService, settingsService, usageService, archive, cfg, nil)
	subscriptionService := services.NewSubscriptionService(userRepo, usageService, gateway, planTable, cfg)
	webhookService := services.NewWebhookService(userRepo, gateway, planTable, nil)
	emailService := services.NewEmailService(services.EmailServiceDeps{
		Invoices:  invoiceRepo,
		Users:     userRepo,
		Logs:      emailLogRepo,
		Templates: services.NewEmailTemplateService(templateRepo),
		Sender:    compositeSender,
		Archive:   archive,
		Queue:     queue,
		Metrics:   m,
		Config:    cfg,
	})

	taskProcessor := tasks.NewTaskProcessor(invoiceService, emailService, m)

	var wg sync.WaitGroup

	// Signalled by the service API
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, m, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("port", cfg.ServiceApiPort).Info("Service API listening")
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Info("Service API server stopped")
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server
	var scheduler *asynq.Scheduler

	log.WithField("mode", cfg.RunMode).Info("Starting application")

	apiMode := func() {
		jsonApiHandler := handlers.NewJsonApiHandler(cfg, m, handlers.Services{
			Users:         userService,
			Roles:         roleService,
			Invoices:      invoiceService,
			Clients:       clientService,
			Settings:      settingsService,
			Usage:         usageService,
			Subscriptions: subscriptionService,
			Emails:        emailService,
		})
		webhookHandler := handlers.NewWebhookHandler(gateway, webhookService, m)

		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, m, jsonApiHandler, webhookHandler),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.WithField("port", cfg.ApiPort).Info("Main API listening")
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Info("Main API server stopped")
		}()
	}

	bgMode := func() {
		backgroundTaskSrv = tasks.NewServer(cfg)
		// Start returns once workers are up; Shutdown below stops them.
		if err := backgroundTaskSrv.Start(taskProcessor.Mux()); err != nil {
			log.Fatalf("Background task server error: %v", err)
		}
		log.Info("Background task server started")

		scheduler, err = tasks.NewScheduler(cfg)
		if err != nil {
			log.Fatalf("Failed to set up scheduler: %v", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode: %s", cfg.RunMode)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down gracefully")
	case <-shutdownChan:
		log.Info("Shutdown requested via Service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("Service API server shutdown error")
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.WithError(err).Error("Main API server shutdown error")
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
		log.Info("Background task server stopped")
	}

	wg.Wait()
	log.Info("Server gracefully stopped")
}
