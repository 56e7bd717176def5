// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ERPHealthChecker verifies the ERP session for the deep health check.
type ERPHealthChecker interface {
	Login(ctx context.Context) (int64, error)
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP server configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (DB ping).
	Health HealthChecker
	// ERPHealth is used for the deep ERP connectivity check.
	ERPHealth ERPHealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
