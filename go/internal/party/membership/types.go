package membership

import (
	"github.com/mcdev12/quizparty/go/internal/models"
)

// MaxNameRunes caps display names after trimming
const MaxNameRunes = 24

// Config bounds the roster of a party
type Config struct {
	MaxPlayers int `yaml:"max_players"`
}

// DefaultConfig returns the stock 50-seat roster
func DefaultConfig() Config {
	return Config{MaxPlayers: 50}
}

// JoinRequest represents a request to join or rejoin a party
type JoinRequest struct {
	// Code is a join code or a party id
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	AvatarID  string  `json:"avatar_id"`
	Token     string  `json:"player_token"`
	AccountID *string `json:"account_id"`
}

// JoinResult is the seat a join landed on
type JoinResult struct {
	Session     *models.Session
	Membership  *models.Membership
	Reconnected bool
}

// Avatar is a selectable player portrait
type Avatar struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Avatars is the catalog of portraits a player may pick
var Avatars = []Avatar{
	{ID: "wizard", Label: "Merlin, the Water Mage"},
	{ID: "knight", Label: "Michael, of the Iron Night"},
	{ID: "archer", Label: "Circe, the Elven Assassin"},
	{ID: "rogue", Label: "Russell, the Feline Rogue"},
	{ID: "pepe", Label: "Cinder, the Koala Mage"},
	{ID: "rider", Label: "Daniel, the Great Spartan"},
	{ID: "paladin", Label: "Bartholomew, the Sun Crusader"},
}

// DefaultAvatarID is used when a client sends no or an unknown avatar
const DefaultAvatarID = "wizard"

// ResolveAvatarID returns id if it names a catalog avatar, else the default
func ResolveAvatarID(id string) string {
	for _, a := range Avatars {
		if a.ID == id {
			return id
		}
	}
	return DefaultAvatarID
}
