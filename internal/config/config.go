// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/dgallion1/zimshred/internal/chunker"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8091"`

	// Archive source
	ArchiveDir string `env:"ARCHIVE_DIR"`

	// Auth for the control API
	APIKey string `env:"SHRED_API_KEY"`

	// Storage backend: "file" or "remote"
	StorageMode   string `env:"STORAGE_MODE" envDefault:"file"`
	StorageDir    string `env:"STORAGE_DIR" envDefault:"./data"`
	StorageURL    string `env:"STORAGE_URL"`
	StorageAPIKey string `env:"STORAGE_API_KEY"`

	// Worker pool
	WorkerCount  int `env:"WORKER_COUNT" envDefault:"4"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" envDefault:"1000"`

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// Chunk sizing, in runes
	ChunkMin     int `env:"SHRED_CHUNK_MIN" envDefault:"200"`
	ChunkTarget  int `env:"SHRED_CHUNK_TARGET" envDefault:"500"`
	ChunkMax     int `env:"SHRED_CHUNK_MAX" envDefault:"800"`
	ChunkOverlap int `env:"SHRED_CHUNK_OVERLAP" envDefault:"50"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ChunkerConfig assembles the chunk sizing policy.
func (c Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		MinSize:    c.ChunkMin,
		TargetSize: c.ChunkTarget,
		MaxSize:    c.ChunkMax,
		Overlap:    c.ChunkOverlap,
	}
}

// Validate rejects unusable configuration before any processing begins.
// Invalid chunk thresholds are fatal here, never discovered mid-batch.
func (c Config) Validate() error {
	if c.ArchiveDir == "" {
		return fmt.Errorf("ARCHIVE_DIR is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("SHRED_API_KEY is required")
	}
	switch c.StorageMode {
	case "file":
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for file storage")
		}
	case "remote":
		if c.StorageURL == "" {
			return fmt.Errorf("STORAGE_URL is required for remote storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q", c.StorageMode)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive")
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be positive")
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive")
	}
	return c.ChunkerConfig().Validate()
}
