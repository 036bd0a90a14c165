package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./feedgrove.db" description:"Path to the SQLite database file"`

	// Catalog configuration
	DirectoryURL string `long:"directory-url" env:"DIRECTORY_URL" default:"https://raw.githubusercontent.com/daveverwer/iOSDevDirectory/master/blogs.json" description:"URL of the site directory JSON document"`
	StatusFile   string `long:"status-file" env:"STATUS_FILE" description:"YAML file mapping feed URLs to channel statuses (e.g. ignore)"`

	// Enrichment configuration
	YouTubeAPIKey    string `long:"youtube-api-key" env:"YOUTUBE_API_KEY" required:"true" description:"YouTube Data API key (required)"`
	YouTubeAPIURL    string `long:"youtube-api-url" env:"YOUTUBE_API_URL" default:"https://www.googleapis.com/youtube/v3/videos" description:"YouTube Data API videos endpoint"`
	PodcastSearchURL string `long:"podcast-search-url" env:"PODCAST_SEARCH_URL" default:"https://itunes.apple.com/search" description:"Apple Podcast search endpoint"`

	// Application configuration
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers; keep at 1 so sync runs never overlap"`
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"28800" description:"Catalog refresh interval in seconds"`
	FetchTimeout    int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Per-feed HTTP timeout in seconds"`
	ExtractContent  bool   `long:"extract-content" env:"EXTRACT_CONTENT" description:"Fetch pages of entries without content and extract readable HTML"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Refresh         bool   `long:"refresh" description:"Run one synchronous refresh pass and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"feedgrove/1.0" description:"User agent string for HTTP requests"`
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
		DBPath:           raw.DBPath,
		DirectoryURL:     raw.DirectoryURL,
		StatusFile:       raw.StatusFile,
		YouTubeAPIKey:    raw.YouTubeAPIKey,
		YouTubeAPIURL:    raw.YouTubeAPIURL,
		PodcastSearchURL: raw.PodcastSearchURL,
		Port:             raw.Port,
		WorkerCount:      raw.WorkerCount,
		RefreshInterval:  raw.RefreshInterval,
		FetchTimeout:     raw.FetchTimeout,
		ExtractContent:   raw.ExtractContent,
		APIAccessKey:     raw.APIAccessKey,
		Refresh:          raw.Refresh,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
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
