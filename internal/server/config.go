package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/kelseyhightower/envconfig"

	"github.com/lox/pokerroom/internal/game"
)

// EnvPrefix prefixes every environment override, e.g. POKERROOM_SERVER_PORT
const EnvPrefix = "pokerroom"

// Config represents the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block" envconfig:"server"`
	Lobby  *LobbySettings  `hcl:"lobby,block" envconfig:"lobby"`
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address        string   `hcl:"address,optional" envconfig:"address"`
	Port           int      `hcl:"port,optional" envconfig:"port"`
	LogLevel       string   `hcl:"log_level,optional" envconfig:"log_level"`
	AllowedOrigins []string `hcl:"allowed_origins,optional" envconfig:"allowed_origins"`
}

// LobbySettings limits the tables clients may request
type LobbySettings struct {
	DecisionTimeout string   `hcl:"decision_timeout,optional" envconfig:"decision_timeout"`
	MinSeats        int      `hcl:"min_seats,optional" envconfig:"min_seats"`
	MaxSeats        int      `hcl:"max_seats,optional" envconfig:"max_seats"`
	MaxStack        int      `hcl:"max_stack,optional" envconfig:"max_stack"`
	MaxRounds       int      `hcl:"max_rounds,optional" envconfig:"max_rounds"`
	Variants        []string `hcl:"variants,optional" envconfig:"variants"`
	Seed            int64    `hcl:"seed,optional" envconfig:"seed"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads an HCL file, fills in defaults, then applies POKERROOM_*
// environment overrides. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	var config Config

	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}

		diags = gohcl.DecodeBody(file.Body, nil, &config)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config.applyDefaults()

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Lobby == nil {
		c.Lobby = &LobbySettings{}
	}
	if c.Lobby.DecisionTimeout == "" {
		c.Lobby.DecisionTimeout = "5s"
	}
	if c.Lobby.MinSeats == 0 {
		c.Lobby.MinSeats = game.MinSeats
	}
	if c.Lobby.MaxSeats == 0 {
		c.Lobby.MaxSeats = 10
	}
	if c.Lobby.MaxStack == 0 {
		c.Lobby.MaxStack = 100_000
	}
	if len(c.Lobby.Variants) == 0 {
		for _, v := range game.Variants() {
			c.Lobby.Variants = append(c.Lobby.Variants, v.String())
		}
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server == nil || c.Lobby == nil {
		return fmt.Errorf("server and lobby settings are required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}

	timeout, err := time.ParseDuration(c.Lobby.DecisionTimeout)
	if err != nil {
		return fmt.Errorf("invalid decision timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("decision timeout must be positive, got %s", timeout)
	}

	if c.Lobby.MinSeats < game.MinSeats || c.Lobby.MaxSeats > game.MaxSeats {
		return fmt.Errorf("seats must be between %d and %d", game.MinSeats, game.MaxSeats)
	}
	if c.Lobby.MinSeats > c.Lobby.MaxSeats {
		return fmt.Errorf("min seats %d exceeds max seats %d", c.Lobby.MinSeats, c.Lobby.MaxSeats)
	}
	if c.Lobby.MaxStack <= 0 {
		return fmt.Errorf("max stack must be positive")
	}
	if c.Lobby.MaxRounds < 0 {
		return fmt.Errorf("max rounds cannot be negative")
	}
	if _, err := c.Lobby.AllowedVariants(); err != nil {
		return err
	}
	return nil
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Timeout returns the parsed decision timeout
func (l *LobbySettings) Timeout() time.Duration {
	d, _ := time.ParseDuration(l.DecisionTimeout)
	return d
}

// AllowedVariants parses the configured variant names
func (l *LobbySettings) AllowedVariants() ([]game.Variant, error) {
	if len(l.Variants) == 0 {
		return nil, fmt.Errorf("at least one variant must be allowed")
	}
	variants := make([]game.Variant, 0, len(l.Variants))
	for _, name := range l.Variants {
		v, err := game.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}
