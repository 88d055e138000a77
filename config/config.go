// Package config provides configuration management for the skl tool.
// It loads settings from an optional YAML file, then from environment
// variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Workbook string `yaml:"workbook"` // ledger workbook path
	Mirror   string `yaml:"mirror"`   // optional second copy saved after each change
	Currency string `yaml:"currency"` // ledger currency ISO code
	History  string `yaml:"history"`  // run history database path

	Steam     SteamConfig     `yaml:"steam"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Inventory InventoryConfig `yaml:"inventory"`

	Verbose bool `yaml:"verbose"`
}

// SteamConfig configures the live market price source.
type SteamConfig struct {
	URL      string        `yaml:"url"`
	AppID    int           `yaml:"app_id"`
	Currency int           `yaml:"currency"` // market currency code
	Retries  int           `yaml:"retries"`
	Throttle time.Duration `yaml:"throttle"`
}

// SnapshotConfig configures the bulk price index and its conversion rate.
type SnapshotConfig struct {
	URL    string `yaml:"url"`
	FxURL  string `yaml:"fx_url"`
	FxPath string `yaml:"fx_path"` // jsonpath of the rate in the fx payload, derived from Currency when empty
	FxRate string `yaml:"fx_rate"` // fixed rate, skips the fx lookup
}

// InventoryConfig configures the inventory import.
type InventoryConfig struct {
	ChromePath string            `yaml:"chrome_path"`
	Wearables  []string          `yaml:"wearables"` // categories of items with a wear condition
	Rarities   map[string]string `yaml:"rarities"`  // rarity tag to #RRGGBB colour
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Workbook: "ledger.xlsx",
		Currency: "GBP",
		History:  filepath.Join(".skl", "history.db"),
		Steam: SteamConfig{
			URL:      "https://steamcommunity.com/market/priceoverview/",
			AppID:    730,
			Currency: 2,
			Retries:  1,
			Throttle: 3 * time.Second,
		},
		Snapshot: SnapshotConfig{
			URL:   "https://prices.csgotrader.app/latest/prices_v6.json",
			FxURL: "https://open.er-api.com/v6/latest/USD",
		},
		Inventory: InventoryConfig{
			Wearables: []string{"Rifle", "SMG", "Shotgun", "Pistol", "Sniper Rifle", "Knife", "Machinegun", "Gloves"},
			Rarities: map[string]string{
				"Consumer Grade":   "#B0C3D9",
				"Industrial Grade": "#5E98D9",
				"Mil-Spec Grade":   "#4B69FF",
				"Restricted":       "#8847FF",
				"Classified":       "#D32CE6",
				"Covert":           "#EB4B4B",
				"Contraband":       "#E4AE33",
				"Clandestine":      "#E4AE33",
				"UNNAMED":          "#ADE55C",
				"Base Grade":       "#B0C3D9",
				"Medium Grade":     "#5E98D9",
				"High Grade":       "#4B69FF",
				"Remarkable":       "#8847FF",
				"Exotic":           "#D32CE6",
				"Distinguished":    "#4B69FF",
				"Exceptional":      "#8847FF",
				"Superior":         "#D32CE6",
				"Master":           "#EB4B4B",
			},
		},
	}
}

// Load returns the configuration read from the YAML file at path, then
// overridden by environment variables. A missing file is not an error.
//
// It automatically loads the .env file from the current directory if available.
func Load(path string) (*Config, error) {
	// Try to load .env from current directory (ignore error if not found)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
			}
		}
	}

	cfg.Workbook = getEnvOrDefault("SKL_WORKBOOK", cfg.Workbook)
	cfg.Mirror = getEnvOrDefault("SKL_MIRROR", cfg.Mirror)
	cfg.Currency = getEnvOrDefault("SKL_CURRENCY", cfg.Currency)
	cfg.History = getEnvOrDefault("SKL_HISTORY_DB", cfg.History)
	cfg.Inventory.ChromePath = getEnvOrDefault("SKL_CHROME_PATH", cfg.Inventory.ChromePath)
	cfg.Snapshot.FxRate = getEnvOrDefault("SKL_FX_RATE", cfg.Snapshot.FxRate)
	if v := os.Getenv("SKL_VERBOSE"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SKL_VERBOSE: %w", err)
		}
		cfg.Verbose = verbose
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be fixed by a default.
func (c *Config) Validate() error {
	var errs error
	if c.Workbook == "" {
		errs = errors.Join(errs, errors.New("workbook path is not set"))
	}
	if len(c.Currency) != 3 {
		errs = errors.Join(errs, fmt.Errorf("invalid currency %q", c.Currency))
	}
	if c.Steam.Throttle < 0 {
		errs = errors.Join(errs, fmt.Errorf("negative throttle %v", c.Steam.Throttle))
	}
	return errs
}

// steamCurrencies maps the market currency codes whose prices are written
// with a decimal point to their ISO code.
var steamCurrencies = map[int]string{1: "USD", 2: "GBP"}

// ValidateSteam checks that the live market quotes in the ledger currency.
// Snapshot modes convert prices and do not need it.
func (c *Config) ValidateSteam() error {
	iso, ok := steamCurrencies[c.Steam.Currency]
	if !ok {
		return fmt.Errorf("steam currency %d is not supported, use 1 (USD) or 2 (GBP)", c.Steam.Currency)
	}
	if iso != c.Currency {
		return fmt.Errorf("steam currency %d quotes in %s, not in the ledger currency %s", c.Steam.Currency, iso, c.Currency)
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
