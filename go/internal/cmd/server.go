package main

import (
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

func setupServer(services *Services, health *healthChecker) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", getEnvAsInt("PORT", 8080)),
		Handler:           newHandler(services, health),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// newHandler builds the full HTTP surface: connect procedures, the plain
// state endpoint, both live feed transports and the health check.
func newHandler(services *Services, health *healthChecker) http.Handler {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Connect-Protocol-Version"},
	})

	registerServices(mux, services)

	services.StateHTTP.RegisterStateRoutes(mux)
	services.Stream.RegisterRoutes(mux)
	services.WebSocket.RegisterRoutes(mux)

	mux.HandleFunc("/health", health.Handle)

	// Wrap with CORS
	handler := c.Handler(mux)

	return h2c.NewHandler(handler, &http2.Server{})
}

func registerServices(mux *http.ServeMux, services *Services) {
	services.Sessions.Register(mux)
	services.Memberships.Register(mux)
	services.Submissions.Register(mux)
	services.State.Register(mux)

	// Everything else under the service prefix is an unknown procedure
	mux.Handle("/"+rpcutil.ServiceName+"/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcutil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"code":    connect.CodeUnimplemented.String(),
			"message": "unknown procedure " + r.URL.Path,
		})
	}))
}
