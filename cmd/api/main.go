package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/slotwise/schedulr/internal/cache"
	"github.com/slotwise/schedulr/internal/http/handlers"
	httpmw "github.com/slotwise/schedulr/internal/http/middleware"
	"github.com/slotwise/schedulr/internal/notify"
	"github.com/slotwise/schedulr/internal/platform/mailer"
	"github.com/slotwise/schedulr/internal/platform/payments"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/internal/service"
	"github.com/slotwise/schedulr/pkg/config"
	"github.com/slotwise/schedulr/pkg/database"
	"github.com/slotwise/schedulr/pkg/events"
	"github.com/slotwise/schedulr/pkg/logger"
	mw "github.com/slotwise/schedulr/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to redis
	redisClient, err := cache.Connect(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Initialize repositories
	userRepo := postgres.NewUserRepo(pool)
	eventTypeRepo := postgres.NewEventTypeRepo(pool)
	scheduleRepo := postgres.NewScheduleRepo(pool)
	bookingRepo := postgres.NewBookingRepo(pool)
	notificationRepo := postgres.NewNotificationRepo(pool)

	// Initialize platform pieces
	bookingMailer := mailer.NewBookingMailer(selectMailer(cfg))
	paymentIntents := payments.NewStripeIntents(cfg.Stripe.SecretKey)
	slotCache := cache.NewSlotCache(redisClient, cfg.Booking.SlotCacheTTL)
	idempotencyStore := cache.NewIdempotencyStore(redisClient)
	rateLimiter := cache.NewRateLimiter(redisClient, 60, time.Minute)

	// Initialize services
	hostService := service.NewHostService(userRepo, eventTypeRepo, cfg)
	scheduleService := service.NewScheduleService(scheduleRepo, eventTypeRepo)
	availabilityService := service.NewAvailabilityService(userRepo, eventTypeRepo, scheduleRepo, bookingRepo, slotCache, cfg)
	bookingService := service.NewBookingService(userRepo, eventTypeRepo, scheduleRepo, bookingRepo, eventBus, bookingMailer, paymentIntents, slotCache, cfg)

	// Notification worker consumes booking events off the bus
	worker := notify.NewWorker(eventBus, notificationRepo)
	if err := worker.Start(); err != nil {
		logger.Error("Failed to start notification worker", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(hostService)
	publicHandler := handlers.NewPublicHandler(hostService, availabilityService, bookingService)
	guestHandler := handlers.NewGuestBookingHandler(bookingService)
	hostHandler := handlers.NewHostHandler(hostService, scheduleService, bookingService, notificationRepo)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.CORS)

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Public booking page routes
	r.Route("/public/{handle}", func(r chi.Router) {
		r.Get("/", publicHandler.GetProfile)
		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", publicHandler.GetEventType)
			r.Get("/slots", publicHandler.GetSlots)
			r.With(
				httpmw.RateLimitByIP(rateLimiter.Allow),
				mw.Idempotency(idempotencyStore),
			).Post("/bookings", publicHandler.CreateBooking)
		})
	})

	// Guest self-service routes (manage token in query string)
	r.Route("/bookings/{id}", func(r chi.Router) {
		r.Get("/", guestHandler.Get)
		r.Patch("/", guestHandler.Reschedule)
		r.Delete("/", guestHandler.Cancel)
	})

	// Host routes (JWT required)
	r.Route("/host", func(r chi.Router) {
		r.Use(httpmw.RequireHost(cfg.Auth.JWTSecret))

		r.Get("/me", hostHandler.GetMe)
		r.Patch("/me", hostHandler.UpdateMe)

		r.Get("/schedule", hostHandler.GetSchedule)
		r.Put("/schedule", hostHandler.PutSchedule)

		r.Route("/overrides", func(r chi.Router) {
			r.Get("/", hostHandler.ListOverrides)
			r.Get("/{date}", hostHandler.GetOverride)
			r.Put("/{date}", hostHandler.PutOverride)
			r.Delete("/{date}", hostHandler.DeleteOverride)
		})

		r.Route("/event-types", func(r chi.Router) {
			r.Get("/", hostHandler.ListEventTypes)
			r.Post("/", hostHandler.CreateEventType)
			r.Get("/{id}", hostHandler.GetEventType)
			r.Patch("/{id}", hostHandler.UpdateEventType)
			r.Delete("/{id}", hostHandler.DeleteEventType)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", hostHandler.ListBookings)
			r.Delete("/{id}", hostHandler.CancelBooking)
			r.Post("/{id}/remind", hostHandler.RemindBooking)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", hostHandler.ListNotifications)
			r.Post("/{id}/read", hostHandler.MarkNotificationRead)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}

// selectMailer picks the email backend from config: MailerSend when an API
// key is present, SMTP when a host is configured, dev logging otherwise.
func selectMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFromName, cfg.Email.SMTPFrom)
	}
	if cfg.Email.SMTPHost != "" {
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
	return mailer.NewDevMailer()
}
