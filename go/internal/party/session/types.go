package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/timer"
)

// Config holds the party-level tunables
type Config struct {
	Timer      timer.Bounds  `yaml:",inline"`
	MaxPlayers int           `yaml:"max_players"`
	Retention  time.Duration `yaml:"retention"`
}

// DefaultConfig returns 20s questions, 50 seats and two days of retention
func DefaultConfig() Config {
	return Config{
		Timer:      timer.DefaultBounds(),
		MaxPlayers: 50,
		Retention:  48 * time.Hour,
	}
}

// CreateRequest represents a request to host a new party
type CreateRequest struct {
	AccountID *string            `json:"account_id"`
	DeckID    uuid.UUID          `json:"deck_id"`
	HostName  string             `json:"host_name"`
	AvatarID  string             `json:"avatar_id"`
	Mode      models.SessionMode `json:"mode"`
}

// CreateResult is a freshly created party and its host seat
type CreateResult struct {
	Session    *models.Session
	Host       *models.Membership
	MaxPlayers int
}
