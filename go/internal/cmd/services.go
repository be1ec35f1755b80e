package main

import (
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizparty/go/internal/party/deck"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/gateway"
	"github.com/mcdev12/quizparty/go/internal/party/membership"
	"github.com/mcdev12/quizparty/go/internal/party/session"
	"github.com/mcdev12/quizparty/go/internal/party/state"
	"github.com/mcdev12/quizparty/go/internal/party/store"
	"github.com/mcdev12/quizparty/go/internal/party/submission"
	"github.com/mcdev12/quizparty/go/internal/party/sweeper"
)

type Services struct {
	Sessions    *session.Service
	Memberships *membership.Service
	Submissions *submission.Service
	State       *state.Service
	StateHTTP   *state.StateHandler
	Stream      *gateway.SSEHandler
	WebSocket   *gateway.WebSocketHandler
	Connections *gateway.ConnectionManager
	Sweeper     *sweeper.Worker
}

func setupServices(repo store.Store, bus events.Bus, clock clockwork.Clock, cfg Config) *Services {
	// Wire up dependency injection chain
	// Store → App layer → Service / transport layer
	decks := deck.NewCatalog(repo)

	// Sessions
	sessionApp := session.NewApp(repo, decks, bus, clock, cfg.Party)
	sessionService := session.NewService(sessionApp)

	// Memberships
	membershipApp := membership.NewApp(repo, bus, clock, cfg.membership())
	membershipService := membership.NewService(membershipApp)

	// Submissions
	submissionApp := submission.NewApp(repo, decks, bus, clock)
	submissionService := submission.NewService(submissionApp)

	// State
	projector := state.NewApp(repo, decks, bus, clock, cfg.Presence)

	// Live feed
	feed := gateway.NewFeed(projector, bus, clock, cfg.Feed)
	connections := gateway.NewConnectionManager(feed, gateway.DefaultConnectionConfig())

	return &Services{
		Sessions:    sessionService,
		Memberships: membershipService,
		Submissions: submissionService,
		State:       state.NewService(projector),
		StateHTTP:   state.NewStateHandler(projector),
		Stream:      gateway.NewSSEHandler(feed),
		WebSocket:   gateway.NewWebSocketHandler(connections),
		Connections: connections,
		Sweeper:     sweeper.NewWorker(repo, clock, cfg.Sweeper),
	}
}
