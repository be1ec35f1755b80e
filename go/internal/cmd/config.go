package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/quizparty/go/internal/party/gateway"
	"github.com/mcdev12/quizparty/go/internal/party/membership"
	"github.com/mcdev12/quizparty/go/internal/party/session"
	"github.com/mcdev12/quizparty/go/internal/party/state"
	"github.com/mcdev12/quizparty/go/internal/party/sweeper"
)

// Config holds the tunables read from PARTY_CONFIG. Anything the file
// leaves out keeps its default.
type Config struct {
	Party    session.Config `yaml:"party"`
	Presence state.Config   `yaml:"presence"`
	Feed     gateway.Config `yaml:"feed"`
	Sweeper  sweeper.Config `yaml:"sweeper"`
}

func defaultConfig() Config {
	return Config{
		Party:    session.DefaultConfig(),
		Presence: state.DefaultConfig(),
		Feed:     gateway.DefaultConfig(),
		Sweeper:  sweeper.DefaultConfig(),
	}
}

func (c Config) membership() membership.Config {
	return membership.Config{MaxPlayers: c.Party.MaxPlayers}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	b := c.Party.Timer
	switch {
	case b.MinSeconds <= 0 || b.MinSeconds > b.MaxSeconds:
		return fmt.Errorf("invalid question bounds %d..%d", b.MinSeconds, b.MaxSeconds)
	case b.DefaultSeconds < b.MinSeconds || b.DefaultSeconds > b.MaxSeconds:
		return fmt.Errorf("question_seconds %d outside %d..%d", b.DefaultSeconds, b.MinSeconds, b.MaxSeconds)
	case c.Party.MaxPlayers <= 0:
		return fmt.Errorf("max_players must be positive")
	case c.Feed.PollInterval <= 0 || c.Feed.Heartbeat < c.Feed.PollInterval:
		return fmt.Errorf("feed heartbeat must be at least the poll interval")
	case c.Sweeper.Interval <= 0:
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}
