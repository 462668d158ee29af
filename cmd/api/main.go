//	@title			Picstream API
//	@version		1.0
//	@description	Content-posting backend: image uploads to blob storage with post metadata in Postgres.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						access_token
//	@description				Opaque access token validated against the external identity verifier together with the username cookie.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/picstream/service/internal/auth"
	"github.com/picstream/service/internal/config"
	"github.com/picstream/service/internal/db"
	appMiddleware "github.com/picstream/service/internal/middleware"
	"github.com/picstream/service/internal/post"
	"github.com/picstream/service/internal/storage"

	_ "github.com/picstream/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	blobs, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("blob storage init failed: %v", err)
	}

	verifier := auth.NewClient(cfg.AuthVerifyURL, cfg.AuthTimeout)

	// Wire dependencies: repository → service → handler
	postRepo := post.NewRepository(pool)
	postSvc := post.NewService(postRepo, blobs)
	postHandler := post.NewHandler(postSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1 — everything behind the auth gateway
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appMiddleware.RequireAuthorized(verifier))

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", postHandler.Upload)
			r.Get("/{id}", postHandler.Get)
			r.Delete("/{id}", postHandler.Delete)
			r.Patch("/{id}", postHandler.UpdateCaption)
		})

		r.Get("/users/{username}/posts", postHandler.ListByUsername)
		r.Post("/feed", postHandler.Feed)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

// newStorage builds the blob store selected by STORAGE_DRIVER.
func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == "fs" {
		return storage.NewFileStorage(cfg.FileStorageDir, cfg.StoragePublicBase)
	}
	return storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
}
