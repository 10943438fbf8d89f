// Package config provides Viper-based configuration loading for the imposter server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (IMPOSTER_GAME_TIME_UNIT, ...).
const EnvPrefix = "IMPOSTER"

// GameRounds is the fixed number of clue rounds per game.
const GameRounds = 3

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameConfig holds the session timing and rule settings.
//
// All phase durations are expressed in whole time units so a deployment can
// speed the whole game up or down by changing TimeUnit alone.
type GameConfig struct {
	// TimeUnit is the wall-clock length of one time unit.
	TimeUnit time.Duration `mapstructure:"time_unit"`
	// TurnUnits is the per-turn time limit.
	TurnUnits int `mapstructure:"turn_units"`
	// VotingUnits is the length of the voting window.
	VotingUnits int `mapstructure:"voting_units"`
	// StartDelayUnits is the grace delay between word distribution and round 1.
	StartDelayUnits int `mapstructure:"start_delay_units"`
	// RoundDelayUnits is the grace delay between rounds.
	RoundDelayUnits int `mapstructure:"round_delay_units"`
	// Rounds is the number of clue rounds. Only GameRounds is accepted.
	Rounds int `mapstructure:"rounds"`
	// MinPlayers is the number of players required to start.
	MinPlayers int `mapstructure:"min_players"`
	// MaxPlayers is the roster capacity.
	MaxPlayers int `mapstructure:"max_players"`
	// OneVotePerPlayer rejects repeat votes from the same voter when true.
	OneVotePerPlayer bool `mapstructure:"one_vote_per_player"`
	// WordsFile optionally points at a YAML word table; empty uses the built-in table.
	WordsFile string `mapstructure:"words_file"`
}

// TurnLimit returns the per-turn time limit as a duration.
func (g GameConfig) TurnLimit() time.Duration {
	return time.Duration(g.TurnUnits) * g.TimeUnit
}

// VotingWindow returns the voting window as a duration.
func (g GameConfig) VotingWindow() time.Duration {
	return time.Duration(g.VotingUnits) * g.TimeUnit
}

// StartDelay returns the pre-round-1 grace delay as a duration.
func (g GameConfig) StartDelay() time.Duration {
	return time.Duration(g.StartDelayUnits) * g.TimeUnit
}

// RoundDelay returns the between-rounds grace delay as a duration.
func (g GameConfig) RoundDelay() time.Duration {
	return time.Duration(g.RoundDelayUnits) * g.TimeUnit
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Enabled controls whether the Telnet frontend is started.
	Enabled bool `mapstructure:"enabled"`
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// WebConfig holds the HTTP/WebSocket frontend settings.
type WebConfig struct {
	// Enabled controls whether the web frontend is started.
	Enabled bool `mapstructure:"enabled"`
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// Prefix is prepended to every route, for use behind a reverse proxy.
	Prefix string `mapstructure:"prefix"`
}

// Addr returns the "host:port" listen address.
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
	Telnet  TelnetConfig  `mapstructure:"telnet"`
	Web     WebConfig     `mapstructure:"web"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWeb(c.Web); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Telnet.Enabled && c.Web.Enabled && c.Telnet.Port == c.Web.Port && c.Telnet.Host == c.Web.Host {
		errs = append(errs, "telnet and web must not listen on the same address")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TimeUnit <= 0 {
		errs = append(errs, fmt.Sprintf("game.time_unit must be > 0, got %s", g.TimeUnit))
	}
	if g.TurnUnits < 1 {
		errs = append(errs, fmt.Sprintf("game.turn_units must be >= 1, got %d", g.TurnUnits))
	}
	if g.VotingUnits < 1 {
		errs = append(errs, fmt.Sprintf("game.voting_units must be >= 1, got %d", g.VotingUnits))
	}
	if g.StartDelayUnits < 0 {
		errs = append(errs, fmt.Sprintf("game.start_delay_units must be >= 0, got %d", g.StartDelayUnits))
	}
	if g.RoundDelayUnits < 0 {
		errs = append(errs, fmt.Sprintf("game.round_delay_units must be >= 0, got %d", g.RoundDelayUnits))
	}
	if g.Rounds != GameRounds {
		errs = append(errs, fmt.Sprintf("game.rounds must be %d, got %d", GameRounds, g.Rounds))
	}
	if g.MinPlayers < 3 {
		errs = append(errs, fmt.Sprintf("game.min_players must be >= 3, got %d", g.MinPlayers))
	}
	if g.MaxPlayers > 6 {
		errs = append(errs, fmt.Sprintf("game.max_players must be <= 6, got %d", g.MaxPlayers))
	}
	if g.MaxPlayers < g.MinPlayers {
		errs = append(errs, "game.max_players must not be less than game.min_players")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	if !t.Enabled {
		return nil
	}
	var errs []string
	if t.Port < 1 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateWeb(w WebConfig) error {
	if !w.Enabled {
		return nil
	}
	var errs []string
	if w.Port < 1 || w.Port > 65535 {
		errs = append(errs, fmt.Sprintf("web.port must be 1-65535, got %d", w.Port))
	}
	if w.Prefix != "" && !strings.HasPrefix(w.Prefix, "/") {
		errs = append(errs, fmt.Sprintf("web.prefix must start with '/', got %q", w.Prefix))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// NewViper returns a Viper instance with defaults and environment overrides
// applied. If path is non-empty it is registered as the config file.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Web.Prefix = strings.TrimSuffix(cfg.Web.Prefix, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.time_unit", "1s")
	v.SetDefault("game.turn_units", 30)
	v.SetDefault("game.voting_units", 30)
	v.SetDefault("game.start_delay_units", 3)
	v.SetDefault("game.round_delay_units", 2)
	v.SetDefault("game.rounds", GameRounds)
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.max_players", 6)
	v.SetDefault("game.one_vote_per_player", true)
	v.SetDefault("game.words_file", "")

	v.SetDefault("telnet.enabled", true)
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 8080)
	v.SetDefault("web.prefix", "")
}
