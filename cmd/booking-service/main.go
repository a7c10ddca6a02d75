package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/tickify/ticketing/internal/booking"
	bookingapi "github.com/tickify/ticketing/internal/booking/api"
	bookingdb "github.com/tickify/ticketing/internal/booking/db"
	bookingredis "github.com/tickify/ticketing/internal/booking/redis"
	"github.com/tickify/ticketing/internal/config"
	"github.com/tickify/ticketing/internal/database/migrations"
	"github.com/tickify/ticketing/internal/logger"
	"github.com/tickify/ticketing/internal/notify"
	"github.com/tickify/ticketing/internal/otp"
	otpapi "github.com/tickify/ticketing/internal/otp/api"
	"github.com/tickify/ticketing/internal/payment"
	"github.com/tickify/ticketing/internal/verify"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", "Failed to open Postgres: "+err.Error())
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", "Failed to connect to Postgres: "+err.Error())
	}
	log.Info("DATABASE", "Postgres connection successful")

	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.New("booking-service")
	defer log.Close()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", "Migrations failed: "+err.Error())
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("REDIS", "Failed to connect to Redis: "+err.Error())
	}
	defer redisClient.Close()

	var notifier *notify.Producer
	if cfg.Kafka.Enabled {
		if err := notify.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic); err != nil {
			log.Warn("KAFKA", "Could not ensure notifications topic: "+err.Error())
		}
		notifier = notify.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
		defer notifier.Close()
	}

	payment.InitStripe()

	store := bookingdb.New(bunDB)
	holds := bookingredis.NewHolds(redisClient, log)
	codec := verify.NewCodec(cfg.Verify.Origin)

	var bookingNotifier booking.Notifier
	if notifier != nil {
		bookingNotifier = notifier
	}
	service := booking.NewService(store, holds, bookingNotifier, payment.NewStripeConfirmer())
	handler := bookingapi.NewHandler(service, holds, codec, log)

	otpStore := otp.NewStore(redisClient)
	otpStore.TTL = cfg.OTP.TTL
	otpStore.MaxAttempts = cfg.OTP.MaxAttempts
	var otpNotifier otpapi.Notifier
	if notifier != nil {
		otpNotifier = notifier
	}
	otpHandler := otpapi.NewHandler(otpStore, otpNotifier, log)

	r := chi.NewRouter()
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", handler.CreateBooking)
		r.Get("/{bookingID}", handler.GetBooking)
		r.Get("/{bookingID}/qr", handler.TicketQR)
		r.Get("/reference/{reference}", handler.GetBookingByReference)
	})
	r.Route("/events", func(r chi.Router) {
		r.Post("/", handler.CreateEvent)
		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/seatmap", handler.SeatMap)
			r.Post("/holds", handler.HoldSeats)
			r.Post("/holds/release", handler.ReleaseSeats)
		})
	})
	r.Route("/otp", func(r chi.Router) {
		r.Post("/request", otpHandler.RequestCode)
		r.Post("/verify", otpHandler.VerifyCode)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Booking service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "HTTP error: "+err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Booking service shutdown complete")
}
