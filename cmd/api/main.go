package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/catalog-service/cmd/api/book"
	"github.com/catalog-service/cmd/api/database"
	bookhttp "github.com/catalog-service/cmd/api/http"
	"github.com/catalog-service/cmd/api/inmemory"
	"github.com/catalog-service/cmd/api/notifications"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"

	_ "github.com/lib/pq"
)

func main() {
	err := run()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		parsed, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("parsing PORT: %w", err)
		}
		port = parsed
	}

	//This ENV must be written with a unit suffix, like "5s".
	if reqTimeoutStr := os.Getenv("HTTP_REQUEST_TIMEOUT"); reqTimeoutStr != "" {
		reqTimeout, err := time.ParseDuration(reqTimeoutStr)
		if err != nil {
			return fmt.Errorf("parsing HTTP_REQUEST_TIMEOUT: %w", err)
		}
		bookhttp.RequestTimeout = reqTimeout
	}

	ntfy, err := setupNotifications()
	if err != nil {
		return err
	}

	//pick the catalog store:
	var repo book.Repository
	connStr := os.Getenv("DATABASE_URL")
	if connStr != "" {
		dbObject, err := database.ConnectDb(connStr)
		if err != nil {
			return fmt.Errorf("connecting with db: %w", err)
		}
		defer dbObject.Close()

		//apply migrations:
		store := database.NewStore(dbObject)
		path := os.Getenv("DATABASE_MIGRATIONS_PATH")
		if path == "" {
			path = "./migrations"
		}
		err = database.MigrationUp(store, path)
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrating: %w", err)
		}
		repo = store
	} else {
		log.Println("DATABASE_URL not set, running with the in-memory catalog store.")
		memStore, err := inmemory.NewInMemoryStore()
		if err != nil {
			return fmt.Errorf("creating in-memory store: %w", err)
		}
		repo = memStore
	}

	bookService := book.NewService(repo, ntfy)
	bookHandler := bookhttp.NewBookHandler(bookService)

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{Port: port}, bookHandler)

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println(fmt.Errorf("unexpected http server error: %w", err))
		}
	}()
	log.Printf("catalog service listening on :%d", port)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	ctx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	log.Println("Graceful shutdown complete.")
	return nil
}

func setupNotifications() (*notifications.Ntfy, error) {
	enabled := os.Getenv("NOTIFICATIONS_ENABLED") == "true"
	baseURL := os.Getenv("NOTIFICATIONS_BASE_URL")
	if enabled && baseURL == "" {
		return nil, errors.New("NOTIFICATIONS_ENABLED is true but NOTIFICATIONS_BASE_URL is not set")
	}

	timeout := 1 * time.Second
	if timeoutStr := os.Getenv("NOTIFICATIONS_TIMEOUT"); timeoutStr != "" {
		parsed, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("parsing NOTIFICATIONS_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	return notifications.NewNtfy(enabled, timeout, baseURL), nil
}
