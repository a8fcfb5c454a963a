package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/diamonds/logging"
	"github.com/brensch/diamonds/strategy"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", getEnvOrDefault("DIAMONDS_LISTEN", ":8080"), "HTTP listen address")
	tuningPath := fs.String("tuning", getEnvOrDefault("DIAMONDS_TUNING", ""), "Optional YAML file overriding the strategy tuning")
	logFormat := fs.String("log-format", getEnvOrDefault("DIAMONDS_LOG_FORMAT", logging.FormatText), "Log format: text, json or pretty")
	logLevel := fs.String("log-level", getEnvOrDefault("DIAMONDS_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	shutdownGrace := fs.Duration("shutdown-grace", getEnvDurationOrDefault("DIAMONDS_SHUTDOWN_GRACE", 5*time.Second), "Time allowed for in-flight requests on shutdown")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	logger, err := logging.New(os.Stderr, *logFormat, level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	tuning := strategy.DefaultTuning()
	if *tuningPath != "" {
		tuning, err = strategy.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("load tuning: %v", err)
		}
		logger.Info("loaded tuning", "path", *tuningPath)
	}

	server := NewServer(tuning, logger, NewHub(logger))
	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}()

	logger.Info("bot server listening", "addr", fmt.Sprintf("http://%s", *listen))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("bot server stopped", "seats", server.Seats())
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
