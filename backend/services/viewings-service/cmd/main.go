package main

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/rentwell/mono-repo/backend/shared/go-middleware"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/app"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/controllers"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/metrics"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/routes"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/services"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize viewings-service:", err)
	}
	defer application.Close()

	vrRepo := repositories.NewViewingRequestRepository(application.DB)
	releaseRepo := repositories.NewPaymentReleaseRepository(application.DB)
	txnRepo := repositories.NewTransactionRepository(application.DB)
	propertyRepo := repositories.NewPropertyRepository(application.DB)
	profileRepo := repositories.NewProfileRepository(application.DB, cfg.DBEncryptionKey)

	if cfg.LDFlag_SeedDbWithTestData {
		if err := app.SeedAllTestData(context.Background(), cfg, profileRepo, propertyRepo, vrRepo, txnRepo); err != nil {
			utils.Logger.WithError(err).Fatal("Failed to seed test data")
		}
	}

	m := metrics.New()

	var locker services.SweepLocker
	if application.Redis != nil {
		locker = services.NewRedisSweepLocker(application.Redis)
	} else {
		locker = services.NewLocalSweepLocker()
	}

	notifier := services.NewNotificationService(cfg, profileRepo, propertyRepo)
	releaser := services.NewPaymentReleaser(cfg, vrRepo, txnRepo, profileRepo)
	releaseService := services.NewReleaseRetryService(releaseRepo, releaser, notifier, locker, m)
	viewingService := services.NewViewingService(vrRepo, propertyRepo, releaseService, notifier, m)

	viewingsController := controllers.NewViewingsController(viewingService)
	adminController := controllers.NewAdminController(viewingService, releaseService)
	healthController := controllers.NewHealthController(application)

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.Handle(routes.Metrics, m.Handler()).Methods(http.MethodGet)

	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))

	secured.HandleFunc(routes.Viewings, viewingsController.CreateViewingHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ViewingsTenant, viewingsController.ListTenantViewingsHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ViewingsLandlord, viewingsController.ListLandlordViewingsHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ViewingByID, viewingsController.GetViewingHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ViewingSchedule, viewingsController.ScheduleViewingHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ViewingCancel, viewingsController.CancelViewingHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ViewingConfirm, viewingsController.ConfirmViewingHandler).Methods(http.MethodPost)

	admin := router.NewRoute().Subrouter()
	admin.Use(middleware.AuthMiddleware(cfg.RSAPublicKey), middleware.RequireRoles(utils.AdminAccountType))

	admin.HandleFunc(routes.AdminViewings, adminController.ListViewingsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminViewingByID, adminController.GetViewingHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminReleaseRetry, adminController.RetryReleaseHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminReleaseSweep, adminController.SweepReleasesHandler).Methods(http.MethodPost)

	c := cron.New()
	_, sweepErr := c.AddFunc(constants.ReleaseSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ReleaseSweepLockTTL)
		defer cancel()
		report, e := releaseService.RunSweep(ctx)
		if e != nil {
			utils.Logger.WithError(e).Error("Scheduled payment release sweep failed")
			return
		}
		if report.Claimed > 0 {
			utils.Logger.WithField("report", report).Info("Payment release sweep finished")
		}
	})
	if sweepErr != nil {
		utils.Logger.WithError(sweepErr).Fatal("Failed to schedule payment release sweep cron")
	}
	c.Start()
	defer c.Stop()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "ngrok-skip-browser-warning"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("viewings-service failed to start:", err)
	}
}
