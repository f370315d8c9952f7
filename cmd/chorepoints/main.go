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

	"github.com/dukerupert/chorepoints/internal/backup"
	"github.com/dukerupert/chorepoints/internal/database"
	"github.com/dukerupert/chorepoints/internal/logging"
	"github.com/dukerupert/chorepoints/internal/server"
)

func main() {
	port := os.Getenv("CHOREPOINTS_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CHOREPOINTS_DB_PATH")
	if dbPath == "" {
		dbPath = "chorepoints.db"
	}

	logger := logging.Setup(os.Getenv("CHOREPOINTS_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := srv.ResetScheduler()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	if backupDir := os.Getenv("CHOREPOINTS_BACKUP_DIR"); backupDir != "" {
		backups := backup.NewScheduler(db, backupDir, logger.With("component", "backup"))
		backups.Start(ctx)
		defer backups.Stop()
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("ChorePoints running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
