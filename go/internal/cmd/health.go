package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/gateway"
	"github.com/mcdev12/quizparty/go/internal/party/sweeper"
	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

type HealthStatus struct {
	Healthy           bool                    `json:"healthy"`
	DatabaseConnected bool                    `json:"database_connected"`
	StampsConnected   bool                    `json:"stamps_connected"`
	Connections       gateway.ConnectionStats `json:"connections"`
	Sweeper           sweeper.Stats           `json:"sweeper"`
	Errors            []string                `json:"errors"`
}

type healthChecker struct {
	db       *sql.DB
	bus      events.Bus
	services *Services
}

func newHealthChecker(db *sql.DB, bus events.Bus, services *Services) *healthChecker {
	return &healthChecker{db: db, bus: bus, services: services}
}

func (h *healthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:           true,
		DatabaseConnected: true,
		StampsConnected:   true,
		Connections:       h.services.Connections.GetConnectionStats(),
		Sweeper:           h.services.Sweeper.Stats(),
		Errors:            []string{},
	}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status.DatabaseConnected = false
			status.Errors = append(status.Errors, "database: "+err.Error())
		}
	}

	if kv, ok := h.bus.(interface{ Healthy() bool }); ok && !kv.Healthy() {
		status.StampsConnected = false
		status.Errors = append(status.Errors, "nats: not connected")
	}

	status.Healthy = status.DatabaseConnected && status.StampsConnected
	return status
}

func (h *healthChecker) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	rpcutil.WriteJSON(w, code, status)
}
