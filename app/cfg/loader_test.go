package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestGetPanicsBeforeLoad(t *testing.T) {
	if globalCfg != nil {
		t.Skip("configuration already loaded in this process")
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()
	Get()
}

func TestApplyTimezone(t *testing.T) {
	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("Expected UTC to be valid, got: %v", err)
	}
	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:          "./test.db",
		DirectoryURL:    "https://example.com/blogs.json",
		YouTubeAPIKey:   "test-key",
		Port:            "8080",
		WorkerCount:     1,
		RefreshInterval: 28800,
		FetchTimeout:    10,
		UserAgent:       "Test Agent",
		APIAccessKey:    "secret",
		Debug:           true,
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected db path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.DirectoryURL != "https://example.com/blogs.json" {
		t.Errorf("Expected directory URL, got '%s'", cfg.DirectoryURL)
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("Expected worker count 1, got %d", cfg.WorkerCount)
	}
	if cfg.RefreshInterval != 28800 {
		t.Errorf("Expected refresh interval 28800, got %d", cfg.RefreshInterval)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}
