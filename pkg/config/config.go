// Package config loads the process-wide settings from a YAML file,
// applies environment-variable overrides, and fills in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/docuquery/pkg/chunk"
	"github.com/kadirpekel/docuquery/pkg/llm"
	"github.com/kadirpekel/docuquery/pkg/pipeline"
)

// Config is the root configuration object: retrieval/chunking/cache
// knobs plus the ambient concerns (storage root, logging, LLM
// endpoint).
type Config struct {
	StorageRoot string `yaml:"storage_root"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Chunk    ChunkConfig    `yaml:"chunk"`
	Cache    CacheConfig    `yaml:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
}

// ChunkConfig mirrors pkg/chunk.Config (chunk_size, chunk_overlap).
type ChunkConfig struct {
	TargetTokens  int `yaml:"target_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// CacheConfig mirrors pkg/cache.New's parameters (cache_ttl_seconds and
// a bound on the number of distinct cached queries).
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxEntries int `yaml:"max_entries"`
}

// PipelineConfig mirrors pkg/pipeline.Config.
type PipelineConfig struct {
	RetrieveTopK        int     `yaml:"retrieve_top_k"`
	RerankTopN          int     `yaml:"rerank_top_n"`
	MaxRewrites         int     `yaml:"max_rewrites"`
	MaxAltQueries       int     `yaml:"max_alt_queries"`
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	UnsureThreshold     float32 `yaml:"unsure_threshold"`
	SummaryCharBudget   int     `yaml:"summary_char_budget"`
}

// LLMConfig mirrors pkg/llm.Config.
type LLMConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	CtxFull  int    `yaml:"ctx_full"`
	CtxSmall int    `yaml:"ctx_small"`
}

// Load reads path, parses it as YAML, applies environment-variable
// overrides, fills defaults, and validates the result. A missing file
// is not itself an error: Load continues from environment overrides and
// defaults, but validation still fails unless llm.model is supplied
// (e.g. via DOCUQUERY_LLM_MODEL), since it has no default.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps DOCUQUERY_-prefixed environment variables
// onto struct fields, scoped to the handful of knobs an operator
// plausibly overrides at deploy time without editing YAML.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCUQUERY_STORAGE_ROOT"); v != "" {
		c.StorageRoot = v
	}
	if v := os.Getenv("DOCUQUERY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DOCUQUERY_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("DOCUQUERY_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("DOCUQUERY_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("DOCUQUERY_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.TTLSeconds = n
		}
	}
}

func (c *Config) setDefaults() {
	if c.StorageRoot == "" {
		c.StorageRoot = "./data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "simple"
	}

	chunkDefaults := chunk.DefaultConfig()
	if c.Chunk.TargetTokens <= 0 {
		c.Chunk.TargetTokens = chunkDefaults.TargetTokens
	}
	if c.Chunk.OverlapTokens <= 0 {
		c.Chunk.OverlapTokens = chunkDefaults.OverlapTokens
	}

	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 3600
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1024
	}

	pd := pipeline.DefaultConfig()
	if c.Pipeline.RetrieveTopK <= 0 {
		c.Pipeline.RetrieveTopK = pd.RetrieveTopK
	}
	if c.Pipeline.RerankTopN <= 0 {
		c.Pipeline.RerankTopN = pd.RerankTopN
	}
	if c.Pipeline.MaxRewrites <= 0 {
		c.Pipeline.MaxRewrites = pd.MaxRewrites
	}
	if c.Pipeline.MaxAltQueries <= 0 {
		c.Pipeline.MaxAltQueries = pd.MaxAltQueries
	}
	if c.Pipeline.ConfidenceThreshold <= 0 {
		c.Pipeline.ConfidenceThreshold = pd.ConfidenceThreshold
	}
	if c.Pipeline.UnsureThreshold <= 0 {
		c.Pipeline.UnsureThreshold = pd.UnsureThreshold
	}
	if c.Pipeline.SummaryCharBudget <= 0 {
		c.Pipeline.SummaryCharBudget = pd.SummaryCharBudget
	}

	if c.LLM.CtxFull <= 0 {
		c.LLM.CtxFull = 8192
	}
	if c.LLM.CtxSmall <= 0 {
		c.LLM.CtxSmall = 2048
	}
}

func (c *Config) validate() error {
	if c.Pipeline.UnsureThreshold > c.Pipeline.ConfidenceThreshold {
		return fmt.Errorf("config: unsure_threshold (%v) must be <= confidence_threshold (%v)",
			c.Pipeline.UnsureThreshold, c.Pipeline.ConfidenceThreshold)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm.model is required")
	}
	return nil
}

// PipelineConfig converts to pkg/pipeline.Config.
func (p PipelineConfig) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		RetrieveTopK:        p.RetrieveTopK,
		RerankTopN:          p.RerankTopN,
		MaxRewrites:         p.MaxRewrites,
		MaxAltQueries:       p.MaxAltQueries,
		ConfidenceThreshold: p.ConfidenceThreshold,
		UnsureThreshold:     p.UnsureThreshold,
		SummaryCharBudget:   p.SummaryCharBudget,
	}
}

// ChunkConfig converts to pkg/chunk.Config.
func (cc ChunkConfig) ChunkConfig() chunk.Config {
	return chunk.Config{TargetTokens: cc.TargetTokens, OverlapTokens: cc.OverlapTokens}
}

// ClientConfig converts to pkg/llm.Config.
func (l LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		BaseURL:  l.BaseURL,
		APIKey:   l.APIKey,
		Model:    l.Model,
		CtxFull:  l.CtxFull,
		CtxSmall: l.CtxSmall,
	}
}

// Duration converts TTLSeconds to the time.Duration cache.New expects.
func (cc CacheConfig) Duration() time.Duration {
	return time.Duration(cc.TTLSeconds) * time.Second
}
