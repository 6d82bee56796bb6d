// Package config loads vsomcore's runtime configuration from a YAML file,
// environment variables, or both — environment variables always win over
// file values.
//
// Example:
//
//	cfg := config.LoadFromEnvOrFile("./vsomcore.yaml")
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the VSOM engine, relevance scoring,
// enhancement broker, adaptive search, and fusion core.
type Config struct {
	SOM         SOMConfig         `yaml:"som"`
	Relevance   RelevanceConfig   `yaml:"relevance"`
	Enhancement EnhancementConfig `yaml:"enhancement"`
	Adaptive    AdaptiveConfig    `yaml:"adaptive"`
	Fusion      FusionConfig      `yaml:"fusion"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SOMConfig bounds map creation and training.
type SOMConfig struct {
	MinMapDim        int     `yaml:"min_map_dim"`
	MaxMapDim        int     `yaml:"max_map_dim"`
	MinEmbeddingDim  int     `yaml:"min_embedding_dim"`
	MaxEmbeddingDim  int     `yaml:"max_embedding_dim"`
	MaxEntries       int     `yaml:"max_entries"`
	MaxIterationsCap int     `yaml:"max_iterations_cap"`
	DefaultAlpha     float64 `yaml:"default_alpha_final"`
	DefaultRadius    float64 `yaml:"default_radius_final"`
}

// RelevanceConfig overrides the default scoring weights.
type RelevanceConfig struct {
	DomainWeight    float64 `yaml:"domain_weight"`
	TemporalWeight  float64 `yaml:"temporal_weight"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	FrequencyWeight float64 `yaml:"frequency_weight"`
}

// EnhancementConfig controls the external broker.
type EnhancementConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// AdaptiveConfig controls the multi-pass local search.
type AdaptiveConfig struct {
	MaxPasses     int `yaml:"max_passes"`
	TargetResults int `yaml:"target_results"`
}

// FusionConfig controls the branch-weighting factors.
type FusionConfig struct {
	QualityWeight    float64 `yaml:"quality_weight"`
	ZPTAlignWeight   float64 `yaml:"zpt_align_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
	CoverageWeight   float64 `yaml:"coverage_weight"`
	ConfidenceWeight float64 `yaml:"confidence_weight"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // "memory" or "badger"
	DataDir  string `yaml:"data_dir"`
	InMemory bool   `yaml:"in_memory"`
}

// LoggingConfig holds the level/format/output knobs for structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the documented defaults for every section.
func Default() *Config {
	return &Config{
		SOM: SOMConfig{
			MinMapDim:        3,
			MaxMapDim:        100,
			MinEmbeddingDim:  100,
			MaxEmbeddingDim:  2000,
			MaxEntries:       5000,
			MaxIterationsCap: 2000,
			DefaultAlpha:     0.01,
			DefaultRadius:    1.0,
		},
		Relevance: RelevanceConfig{
			DomainWeight:    0.35,
			TemporalWeight:  0.20,
			SemanticWeight:  0.30,
			FrequencyWeight: 0.15,
		},
		Enhancement: EnhancementConfig{
			Timeout:     10 * time.Second,
			MinInterval: 200 * time.Millisecond,
		},
		Adaptive: AdaptiveConfig{
			MaxPasses:     3,
			TargetResults: 5,
		},
		Fusion: FusionConfig{
			QualityWeight:    0.4,
			ZPTAlignWeight:   0.25,
			RecencyWeight:    0.15,
			CoverageWeight:   0.15,
			ConfidenceWeight: 0.05,
		},
		Storage: StorageConfig{
			Backend: "memory",
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadConfig loads configuration from a YAML file, applying defaults for
// any field the file omits.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads path, or returns Default() if the file can't be
// read (e.g. it doesn't exist yet — no config file is required to run).
func LoadConfigOrDefault(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFromEnvOrFile loads path (or defaults if absent), then overrides every
// field that has a corresponding VSOMCORE_ environment variable set.
// Environment variables always take precedence over the file.
func LoadFromEnvOrFile(path string) *Config {
	cfg := LoadConfigOrDefault(path)

	cfg.SOM.MaxEntries = getEnvInt("VSOMCORE_SOM_MAX_ENTRIES", cfg.SOM.MaxEntries)
	cfg.SOM.MaxIterationsCap = getEnvInt("VSOMCORE_SOM_MAX_ITERATIONS", cfg.SOM.MaxIterationsCap)

	cfg.Relevance.DomainWeight = getEnvFloat("VSOMCORE_RELEVANCE_DOMAIN_WEIGHT", cfg.Relevance.DomainWeight)
	cfg.Relevance.TemporalWeight = getEnvFloat("VSOMCORE_RELEVANCE_TEMPORAL_WEIGHT", cfg.Relevance.TemporalWeight)
	cfg.Relevance.SemanticWeight = getEnvFloat("VSOMCORE_RELEVANCE_SEMANTIC_WEIGHT", cfg.Relevance.SemanticWeight)
	cfg.Relevance.FrequencyWeight = getEnvFloat("VSOMCORE_RELEVANCE_FREQUENCY_WEIGHT", cfg.Relevance.FrequencyWeight)

	cfg.Enhancement.Timeout = getEnvDuration("VSOMCORE_ENHANCEMENT_TIMEOUT", cfg.Enhancement.Timeout)
	cfg.Enhancement.MinInterval = getEnvDuration("VSOMCORE_ENHANCEMENT_MIN_INTERVAL", cfg.Enhancement.MinInterval)

	cfg.Adaptive.MaxPasses = getEnvInt("VSOMCORE_ADAPTIVE_MAX_PASSES", cfg.Adaptive.MaxPasses)
	cfg.Adaptive.TargetResults = getEnvInt("VSOMCORE_ADAPTIVE_TARGET_RESULTS", cfg.Adaptive.TargetResults)

	cfg.Storage.Backend = getEnv("VSOMCORE_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.DataDir = getEnv("VSOMCORE_STORAGE_DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.InMemory = getEnvBool("VSOMCORE_STORAGE_IN_MEMORY", cfg.Storage.InMemory)

	cfg.Logging.Level = getEnv("VSOMCORE_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("VSOMCORE_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("VSOMCORE_LOG_OUTPUT", cfg.Logging.Output)

	return cfg
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.SOM.MinMapDim <= 0 || c.SOM.MaxMapDim < c.SOM.MinMapDim {
		return fmt.Errorf("config: invalid map dim bounds [%d, %d]", c.SOM.MinMapDim, c.SOM.MaxMapDim)
	}
	if c.SOM.MinEmbeddingDim <= 0 || c.SOM.MaxEmbeddingDim < c.SOM.MinEmbeddingDim {
		return fmt.Errorf("config: invalid embedding dim bounds [%d, %d]", c.SOM.MinEmbeddingDim, c.SOM.MaxEmbeddingDim)
	}
	sum := c.Relevance.DomainWeight + c.Relevance.TemporalWeight + c.Relevance.SemanticWeight + c.Relevance.FrequencyWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("config: relevance weights must sum to ~1.0, got %.4f", sum)
	}
	if c.Enhancement.Timeout <= 0 {
		return fmt.Errorf("config: enhancement timeout must be positive")
	}
	if c.Adaptive.MaxPasses <= 0 {
		return fmt.Errorf("config: adaptive max_passes must be positive")
	}
	switch c.Storage.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
