package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	AI            AIConfig         `json:"ai"`
	Ingest        IngestConfig     `json:"ingest"`
	Search        SearchConfig     `json:"search"`
	EmbedCache    EmbedCacheConfig `json:"embed_cache"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIConfig struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	EmbedModel string      `json:"embed_model"`
	Data       interface{} `json:"data"`
}

type IngestConfig struct {
	ChunkSeconds      int              `json:"chunk_seconds"`
	VideoDelayMS      int              `json:"video_delay_ms"`
	RequestIntervalMS int              `json:"request_interval_ms"`
	CaptionArchive    *FileStoreConfig `json:"caption_archive"`
}

type SearchConfig struct {
	IntroSkipSeconds    int `json:"intro_skip_seconds"`
	CandidateMultiplier int `json:"candidate_multiplier"`
}

type EmbedCacheConfig struct {
	LRUSize       int    `json:"lru_size"`
	LRUTTLMinutes int    `json:"lru_ttl_minutes"`
	MaxAgeDays    int    `json:"max_age_days"`
	CleanupSpec   string `json:"cleanup_spec"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.Ingest.CaptionArchive != nil && cfg.Ingest.CaptionArchive.Type == "" {
		return nil, fmt.Errorf("ingest.caption_archive.type is required when archive is configured")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-004"
	}
	if cfg.Ingest.ChunkSeconds <= 0 {
		cfg.Ingest.ChunkSeconds = 60
	}
	if cfg.Ingest.VideoDelayMS <= 0 {
		cfg.Ingest.VideoDelayMS = 500
	}
	if cfg.Ingest.RequestIntervalMS <= 0 {
		cfg.Ingest.RequestIntervalMS = 1500
	}
	if cfg.Search.IntroSkipSeconds <= 0 {
		cfg.Search.IntroSkipSeconds = 120
	}
	if cfg.Search.CandidateMultiplier <= 0 {
		cfg.Search.CandidateMultiplier = 2
	}
	if cfg.EmbedCache.LRUSize <= 0 {
		cfg.EmbedCache.LRUSize = 4096
	}
	if cfg.EmbedCache.LRUTTLMinutes <= 0 {
		cfg.EmbedCache.LRUTTLMinutes = 120
	}
	if cfg.EmbedCache.MaxAgeDays <= 0 {
		cfg.EmbedCache.MaxAgeDays = 30
	}
	if cfg.EmbedCache.CleanupSpec == "" {
		cfg.EmbedCache.CleanupSpec = "0 4 * * *"
	}
	return &cfg, nil
}
