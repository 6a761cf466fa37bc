package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/qlphonglab/labauth/internal/config"
	"github.com/qlphonglab/labauth/internal/es"
	"github.com/qlphonglab/labauth/internal/httpserver"
	"github.com/qlphonglab/labauth/internal/logging"
	loggingmw "github.com/qlphonglab/labauth/internal/middleware/logging"
	"github.com/qlphonglab/labauth/internal/mykafka"
	"github.com/qlphonglab/labauth/internal/repo"
	"github.com/qlphonglab/labauth/internal/service"
	"github.com/qlphonglab/labauth/internal/service/search"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LOG_LEVEL)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *mykafka.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer(cfg.KAFKA_ADDRESS, "user_events")
	}

	var userSearch *search.UserSearch
	if cfg.ES_URL != "" {
		client, err := es.NewClient(es.Config{
			URL:      cfg.ES_URL,
			Username: cfg.ES_USER,
			Password: cfg.ES_PASSWORD,
		})
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		userSearch = &search.UserSearch{ES: client, Index: "users"}
	}

	svc := &service.AuthService{
		Repo:   &repo.GormRepo{DB: db},
		Secret: []byte(cfg.JWT_SECRET),
		Search: userSearch,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	if len(cfg.ALLOWED_ORIGINS) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.ALLOWED_ORIGINS,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}))
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc, Producer: producer},
		JWTSecret:   []byte(cfg.JWT_SECRET),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.SERVER_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
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
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
