package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	PokeAPIBaseURL string        `env:"POKEAPI_BASE_URL" envDefault:"https://pokeapi.co/api/v2"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	CacheEnabled bool          `env:"CACHE_ENABLED" envDefault:"true"`
	CacheExpiry  time.Duration `env:"CACHE_EXPIRY" envDefault:"1h"`

	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"12"`
	MaxPageSize     int `env:"MAX_PAGE_SIZE" envDefault:"50"`
	RosterSize      int `env:"ROSTER_SIZE" envDefault:"151"`

	// LoreBaseURL is the Pokédex site scraped when PokeAPI has no English
	// flavor text.
	LoreEnabled bool   `env:"LORE_ENABLED" envDefault:"true"`
	LoreBaseURL string `env:"LORE_BASE_URL" envDefault:"https://pokemondb.net/pokedex"`

	DBPath         string `env:"DB_PATH" envDefault:"battles.db"`
	FontPath       string `env:"FONT_PATH"`
	BackgroundPath string `env:"BACKGROUND_PATH"`
	CombatTuning   string `env:"COMBAT_TUNING"`
	Seed           int64  `env:"SEED"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) is below DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.RosterSize <= 0 {
		return fmt.Errorf("ROSTER_SIZE must be positive, got %d", c.RosterSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
