package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath     string `long:"db-path" env:"DB_PATH" description:"SQLite database file (empty keeps the catalog in memory)"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	SeedFile   string `long:"seed-file" env:"SEED_FILE" default:"./sources/seed.yml" description:"YAML file with courses loaded at startup"`

	// Application configuration
	Port            string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for catalog tasks"`
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"3600" description:"Catalog refresh interval in seconds (0 disables periodic refresh)"`
	AdapterTimeout  int    `long:"adapter-timeout" env:"ADAPTER_TIMEOUT" default:"60" description:"Per-source fetch timeout in seconds"`
	RefreshOnStart  string `long:"refresh-on-start" env:"REFRESH_ON_START" default:"true" description:"Refresh the catalog once at startup"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key guarding the refresh endpoint (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"CourseComb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	cfg, err := Parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

// Parse builds a Cfg from args and the environment without touching global state.
// It returns nil, nil when help was requested.
func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	refreshOnStart, err := strconv.ParseBool(raw.RefreshOnStart)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh-on-start value %q: %w", raw.RefreshOnStart, err)
	}
	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker-count must be at least 1, got %d", raw.WorkerCount)
	}
	if raw.RefreshInterval < 0 || raw.AdapterTimeout < 0 {
		return nil, fmt.Errorf("refresh-interval and adapter-timeout cannot be negative")
	}

	return &Cfg{
		DBPath:          raw.DBPath,
		SourcesDir:      raw.SourcesDir,
		SeedFile:        raw.SeedFile,
		Port:            raw.Port,
		WorkerCount:     raw.WorkerCount,
		RefreshInterval: time.Duration(raw.RefreshInterval) * time.Second,
		AdapterTimeout:  time.Duration(raw.AdapterTimeout) * time.Second,
		RefreshOnStart:  refreshOnStart,
		APIAccessKey:    raw.APIAccessKey,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}, nil
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
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
