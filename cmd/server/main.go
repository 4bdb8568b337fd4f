package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/restaurant_api/internal/config"
	"github.com/Skotchmaster/restaurant_api/internal/handlers"
	"github.com/Skotchmaster/restaurant_api/internal/logging"
	authmw "github.com/Skotchmaster/restaurant_api/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/restaurant_api/internal/middleware/logging"
	"github.com/Skotchmaster/restaurant_api/internal/mykafka"
	httpserver "github.com/Skotchmaster/restaurant_api/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := config.Bootstrap(db, configuration); err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:          db,
		Auth:        &authmw.Middleware{DB: db, JWTSecret: jwtSecret},
		AuthHandler: &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		MenuHandler: &handlers.MenuHandler{DB: db, Producer: prod},
		CartHandler: &handlers.CartHandler{
			DB:                  db,
			Producer:            prod,
			RefreshPriceOnMerge: configuration.RefreshCartPrices(),
		},
		OrderHandler: &handlers.OrderHandler{DB: db, Producer: prod},
		GroupHandler: &handlers.GroupHandler{DB: db, Producer: prod},
		RateLimit:    rate.Limit(configuration.RequestsPerSecond()),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
