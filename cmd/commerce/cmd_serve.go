// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/AleutianCommerce/services/commerce"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// serveAddr, serveDBPath, and serveSeedDemo hold flag values for the
// serve command; empty/unset values defer to the environment config.
var (
	serveAddr     string
	serveDBPath   string
	serveSeedDemo bool
	serveDebug    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the commerce API server",
	Run:   runServeCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides COMMERCE_LISTEN_ADDR)")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "SQLite database path (overrides COMMERCE_DB_PATH)")
	serveCmd.Flags().BoolVar(&serveSeedDemo, "seed-demo", false, "Seed demo users and products on startup")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug mode (request logging, gin debug)")
}

func runServeCommand(cmd *cobra.Command, _ []string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.ServerConfigFromEnv()
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}
	if serveDBPath != "" {
		cfg.DBPath = serveDBPath
	}
	if cmd.Flags().Changed("seed-demo") {
		cfg.SeedDemoData = serveSeedDemo
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	shutdownTracing, err := setupTracing()
	if err != nil {
		log.Fatalf("tracing setup failed: %v", err)
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database %q: %v", cfg.DBPath, err)
	}
	if cfg.SeedDemoData {
		if err := s.SeedDemoData(context.Background()); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		slog.Info("demo data seeded", slog.String("db", cfg.DBPath))
	}

	client, err := llm.NewOpenAIClient()
	if err != nil {
		log.Fatalf("llm backend unavailable: %v", err)
	}

	svc, err := commerce.NewService(commerce.ServiceConfig{
		Store:         s,
		Client:        client,
		ChatRateLimit: cfg.ChatRateLimit,
		ChatRateBurst: cfg.ChatRateBurst,
	})
	if err != nil {
		log.Fatalf("assemble service: %v", err)
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-commerce"))
	if serveDebug {
		router.Use(gin.Logger())
	}

	handlers := commerce.NewHandlers(svc)
	commerce.RegisterRoutes(router.Group("/api/v1"), handlers)
	router.GET("/healthz", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("commerce server listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("db", cfg.DBPath),
			slog.Int("tools", len(svc.Dispatcher().Names())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down commerce server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracer shutdown failed", slog.String("error", err.Error()))
	}
}

// setupTracing installs a stdout span exporter when COMMERCE_TRACE_STDOUT
// is set; spans stay no-op otherwise. Returns the provider shutdown hook.
func setupTracing() (func(context.Context) error, error) {
	if os.Getenv("COMMERCE_TRACE_STDOUT") == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := stdouttrace.New()
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "aleutian-commerce"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
