package config

import (
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Analyzer.TeamThresholdPct != 0.1 {
		t.Errorf("default team threshold = %v, want 0.1", cfg.Analyzer.TeamThresholdPct)
	}
	if cfg.Analyzer.BundleTxLimit != 10 {
		t.Errorf("default bundle tx limit = %d, want 10", cfg.Analyzer.BundleTxLimit)
	}
	if cfg.Watcher.BatchSize != 3 {
		t.Errorf("default batch size = %d, want 3", cfg.Watcher.BatchSize)
	}
	if cfg.Watcher.PollIntervalSec != 25 {
		t.Errorf("default poll interval = %d, want 25", cfg.Watcher.PollIntervalSec)
	}
	if cfg.Watcher.SellThresholdPct != 1 {
		t.Errorf("default sell threshold = %v, want 1", cfg.Watcher.SellThresholdPct)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Analyzer.TeamThresholdPct = 2.5
	cfg.Watcher.BatchSize = 10
	cfg.ApplyDefaults()

	if cfg.Analyzer.TeamThresholdPct != 2.5 {
		t.Errorf("team threshold overwritten: %v", cfg.Analyzer.TeamThresholdPct)
	}
	if cfg.Watcher.BatchSize != 10 {
		t.Errorf("batch size overwritten: %d", cfg.Watcher.BatchSize)
	}
}
