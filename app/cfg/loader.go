package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./venuecomb.db" description:"Path to the SQLite database file"`

	// Application configuration
	RunsDir      string `long:"runs-dir" env:"RUNS_DIR" default:"./runs" description:"Directory containing run configuration files"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://comb.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Provider configuration; keys come from the environment, never from code
	PlacesAPIURL string `long:"places-api-url" env:"PLACES_API_URL" default:"https://places.example.com/api" description:"Place search provider base URL"`
	PlacesAPIKey string `long:"places-api-key" env:"PLACES_API_KEY" description:"Place search provider API key (required)" required:"true"`
	MenuAPIURL   string `long:"menu-api-url" env:"MENU_API_URL" default:"https://menus.example.com/api" description:"Menu source provider base URL"`
	MenuAPIKey   string `long:"menu-api-key" env:"MENU_API_KEY" description:"Menu source provider API key"`

	// Pipeline configuration
	BatchSize           int     `long:"batch-size" env:"BATCH_SIZE" default:"10" description:"Number of input names processed per batch"`
	SimilarityThreshold float64 `long:"similarity-threshold" env:"SIMILARITY_THRESHOLD" default:"0.85" description:"Minimum similarity score for a fuzzy resolution match"`
	MaxRetries          int     `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Maximum retries for transient provider failures"`
	RetryDelaySec       int     `long:"retry-delay" env:"RETRY_DELAY" default:"5" description:"Delay between provider retries in seconds"`
	RequestIntervalMs   int     `long:"request-interval" env:"REQUEST_INTERVAL" default:"150" description:"Minimum inter-request delay for provider calls in milliseconds"`
	MaxPhotos           int     `long:"max-photos" env:"MAX_PHOTOS" default:"5" description:"Maximum photos persisted per establishment"`

	// Duplicate detection thresholds
	DedupNameThreshold      float64 `long:"dedup-name-threshold" env:"DEDUP_NAME_THRESHOLD" default:"0.9" description:"Name similarity threshold for duplicate detection"`
	DedupAddressThreshold   float64 `long:"dedup-address-threshold" env:"DEDUP_ADDRESS_THRESHOLD" default:"0.8" description:"Address similarity threshold for duplicate detection"`
	DedupExactAddrThreshold float64 `long:"dedup-exact-addr-threshold" env:"DEDUP_EXACT_ADDR_THRESHOLD" default:"0.6" description:"Address similarity threshold when names match exactly"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Venue Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                  raw.DBPath,
		RunsDir:                 raw.RunsDir,
		Port:                    raw.Port,
		BaseUrl:                 raw.BaseUrl,
		APIAccessKey:            raw.APIAccessKey,
		PlacesAPIURL:            raw.PlacesAPIURL,
		PlacesAPIKey:            raw.PlacesAPIKey,
		MenuAPIURL:              raw.MenuAPIURL,
		MenuAPIKey:              raw.MenuAPIKey,
		BatchSize:               raw.BatchSize,
		SimilarityThreshold:     raw.SimilarityThreshold,
		MaxRetries:              raw.MaxRetries,
		RetryDelaySec:           raw.RetryDelaySec,
		RequestIntervalMs:       raw.RequestIntervalMs,
		MaxPhotos:               raw.MaxPhotos,
		DedupNameThreshold:      raw.DedupNameThreshold,
		DedupAddressThreshold:   raw.DedupAddressThreshold,
		DedupExactAddrThreshold: raw.DedupExactAddrThreshold,
		UserAgent:               raw.UserAgent,
		Timezone:                raw.Timezone,
		Debug:                   raw.Debug,
		Version:                 GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
