// Package config holds the application configuration. A Config is built
// once (defaults, optional JSON file, flag overrides applied by the CLI)
// and passed by value into each component at construction; there is no
// ambient configuration state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"imagedup/suggest"
)

// PerceptualHash gates the similarity stage.
type PerceptualHash struct {
	Enabled bool `json:"enabled"`
	// SimilarityThreshold is the maximum Hamming distance, on the 0-64
	// scale, at which two fingerprints join the same cluster.
	SimilarityThreshold int `json:"similarity_threshold"`
}

// Config is the validated settings value consumed by the core.
type Config struct {
	SupportedExtensions  []string       `json:"supported_extensions"`
	MinFileSizeBytes     int64          `json:"min_file_size_bytes"`
	IncludeHiddenFolders bool           `json:"include_hidden_folders"`
	PerceptualHash       PerceptualHash `json:"perceptual_hash"`
	SuggestionStrategy   string         `json:"suggestion_strategy"`
	MaxWorkerThreads     int            `json:"max_worker_threads"`
	HashChunkSizeKB      int            `json:"hash_chunk_size_kb"`
	AuditLogDir          string         `json:"audit_log_dir"`
	LogDir               string         `json:"log_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SupportedExtensions:  []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff"},
		MinFileSizeBytes:     1024,
		IncludeHiddenFolders: false,
		PerceptualHash: PerceptualHash{
			Enabled:             false,
			SimilarityThreshold: 5,
		},
		SuggestionStrategy: string(suggest.KeepHighestResolution),
		MaxWorkerThreads:   runtime.NumCPU(),
		HashChunkSizeKB:    64,
		AuditLogDir:        "deletion_logs",
		LogDir:             "logs",
	}
}

// Load reads a JSON config file over the defaults. A missing file is not
// an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects out-of-range values before any work begins.
func (c Config) Validate() error {
	if c.MinFileSizeBytes < 0 {
		return fmt.Errorf("min_file_size_bytes must be >= 0, got %d", c.MinFileSizeBytes)
	}
	if t := c.PerceptualHash.SimilarityThreshold; t < 0 || t > 64 {
		return fmt.Errorf("perceptual_hash.similarity_threshold must be within 0-64, got %d", t)
	}
	if c.MaxWorkerThreads < 1 {
		return fmt.Errorf("max_worker_threads must be >= 1, got %d", c.MaxWorkerThreads)
	}
	if c.HashChunkSizeKB < 1 {
		return fmt.Errorf("hash_chunk_size_kb must be >= 1, got %d", c.HashChunkSizeKB)
	}
	if _, err := suggest.Parse(c.SuggestionStrategy); err != nil {
		return err
	}
	return nil
}

// ExtensionSet normalizes the supported extensions into a lookup set.
func (c Config) ExtensionSet() map[string]bool {
	set := make(map[string]bool, len(c.SupportedExtensions))
	for _, ext := range c.SupportedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// Strategy returns the parsed suggestion strategy. Call Validate first.
func (c Config) Strategy() suggest.Strategy {
	s, err := suggest.Parse(c.SuggestionStrategy)
	if err != nil {
		return suggest.KeepHighestResolution
	}
	return s
}
