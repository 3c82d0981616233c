package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:         "8091",
		ArchiveDir:   "/archive",
		APIKey:       "secret",
		StorageMode:  "file",
		StorageDir:   "./data",
		WorkerCount:  4,
		MaxQueueSize: 1000,
		JobTTL:       time.Hour,
		ChunkMin:     200,
		ChunkTarget:  500,
		ChunkMax:     800,
		ChunkOverlap: 50,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8091" {
		t.Errorf("default port = %q", cfg.Port)
	}
	if cfg.StorageMode != "file" {
		t.Errorf("default storage mode = %q", cfg.StorageMode)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 1000 {
		t.Errorf("default pool = %d/%d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	cc := cfg.ChunkerConfig()
	if cc.MinSize != 200 || cc.TargetSize != 500 || cc.MaxSize != 800 || cc.Overlap != 50 {
		t.Errorf("default chunker config = %+v", cc)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SHRED_CHUNK_TARGET", "300")
	t.Setenv("STORAGE_MODE", "remote")
	t.Setenv("JOB_TTL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkTarget != 300 {
		t.Errorf("chunk target = %d", cfg.ChunkTarget)
	}
	if cfg.StorageMode != "remote" {
		t.Errorf("storage mode = %q", cfg.StorageMode)
	}
	if cfg.JobTTL != 15*time.Minute {
		t.Errorf("job ttl = %v", cfg.JobTTL)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	mutations := map[string]func(*Config){
		"missing archive dir": func(c *Config) { c.ArchiveDir = "" },
		"missing api key":     func(c *Config) { c.APIKey = "" },
		"unknown mode":        func(c *Config) { c.StorageMode = "s3" },
		"file mode no dir":    func(c *Config) { c.StorageDir = "" },
		"remote mode no url":  func(c *Config) { c.StorageMode = "remote"; c.StorageURL = "" },
		"zero workers":        func(c *Config) { c.WorkerCount = 0 },
		"zero queue":          func(c *Config) { c.MaxQueueSize = 0 },
		"zero ttl":            func(c *Config) { c.JobTTL = 0 },
		"min above target":    func(c *Config) { c.ChunkMin = 600 },
		"target above max":    func(c *Config) { c.ChunkTarget = 900 },
		"overlap at target":   func(c *Config) { c.ChunkOverlap = 500 },
	}
	for name, mutate := range mutations {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: accepted, want error", name)
		}
	}
}
