// Command cityweather-go is a personal weather-tracking web application:
// users register, log in, keep a per-user list of cities, and fetch current
// weather for them from an Open-Meteo compatible service. Everything is
// wired here: configuration, database pool, migrations, seeding, services,
// router, and graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/user/cityweather-go/auth"
	"github.com/user/cityweather-go/cities"
	"github.com/user/cityweather-go/config"
	"github.com/user/cityweather-go/db"
	"github.com/user/cityweather-go/seed"
	"github.com/user/cityweather-go/weather"
	"github.com/user/cityweather-go/web"
)

func main() {
	// .env is a development convenience; in production the variables are
	// set directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not found or not readable: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Server.Debug)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		logger.Fatal("failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, cfg.Server.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pages, err := web.NewPages()
	if err != nil {
		logger.Fatal("failed to load page templates", zap.Error(err))
	}

	// Services and handlers, dependency-injected by hand.
	userStore := auth.NewPgUserStore(pool)
	tokens := auth.NewTokenIssuer(cfg.Auth)
	authService := auth.NewService(userStore, cfg.Auth, logger)
	authHandlers := auth.NewHandlers(authService, tokens, pages, logger)

	cityStore := cities.NewPgStore(pool)
	weatherClient := weather.NewClient(cfg.Weather, logger)
	cityService := cities.NewService(cityStore, weatherClient, cfg.Weather, logger)
	cityHandlers := cities.NewHandlers(cityService, pages, logger)

	// Seed default cities; a missing CSV falls back to the built-in list,
	// so startup cannot fail on the seed source alone.
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := cityService.Bootstrap(bootCtx, seed.Load(cfg.Seed.CitiesCSV, logger)); err != nil {
		bootCancel()
		logger.Fatal("failed to seed default cities", zap.Error(err))
	}
	bootCancel()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The access gate runs on every request: it resolves the session
	// cookie to a user (or clears a stale cookie) and lets the request
	// continue either way. RequireUser below enforces authentication on
	// the protected group only.
	r.Use(auth.ResolveUser(tokens, userStore, logger))

	r.Get("/", cityHandlers.HandleHome())
	r.Get("/health", handleHealth)

	r.Get("/register", authHandlers.HandleRegisterPage())
	r.Post("/register", authHandlers.HandleRegister())
	r.Get("/login", authHandlers.HandleLoginPage())
	r.Post("/login", authHandlers.HandleLogin())
	r.Post("/logout", authHandlers.HandleLogout())

	r.Route("/cities", func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Post("/add", cityHandlers.HandleAdd())
		r.Post("/remove/{cityID}", cityHandlers.HandleRemove())
		r.Post("/reset", cityHandlers.HandleReset())
		r.Post("/update", cityHandlers.HandleUpdateAll())
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/weather/{cityID}", cityHandlers.HandleCityWeather())
		r.Post("/weather/{cityID}", cityHandlers.HandleRefreshCity())
		r.Get("/test-weather", cityHandlers.HandleTestWeather())
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// requestLogger logs one structured line per completed request.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	auth.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
