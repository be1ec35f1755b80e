package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

// downBus reports its connection as lost
type downBus struct {
	*events.MemoryBus
}

func (downBus) Healthy() bool { return false }

func TestHealthReportsLostStampBus(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bus := downBus{events.NewMemoryBus(clock, time.Hour)}
	services := setupServices(store.NewMemoryStore(), bus, clock, defaultConfig())
	t.Cleanup(services.Connections.CloseAll)

	rec := httptest.NewRecorder()
	newHealthChecker(nil, bus, services).Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Healthy || status.StampsConnected || !status.DatabaseConnected {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Errors) != 1 || status.Errors[0] != "nats: not connected" {
		t.Fatalf("errors = %v", status.Errors)
	}
}
