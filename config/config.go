// Package config loads khabar's runtime configuration from YAML, an
// optional .env file and KHABAR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/khabar/ai"
	"gopkg.in/yaml.v3"
)

const (
	defaultFeedURL        = "https://feeds.bbci.co.uk/news/world/middle_east/rss.xml"
	defaultPollInterval   = 60 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxStored      = 100
	defaultServerAddr     = ":8000"
	defaultLogLevel       = "info"
	envPrefix             = "KHABAR_"
)

// Config defines all runtime configuration.
type Config struct {
	Feed       FeedConfig       `yaml:"feed"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Search     SearchConfig     `yaml:"search"`
	Server     ServerConfig     `yaml:"server"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	LogLevel   string           `yaml:"log_level"`
}

type FeedConfig struct {
	URL               string        `yaml:"url"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxStoredArticles int           `yaml:"max_stored_articles"`
}

type EmbeddingConfig struct {
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

type ClusteringConfig struct {
	Threshold    int `yaml:"threshold"`
	MinTopicSize int `yaml:"min_topic_size"`
	TopKeywords  int `yaml:"top_keywords"`
}

type SearchConfig struct {
	MinKeywordLength    int     `yaml:"min_keyword_length"`
	MaxLatest           int     `yaml:"max_latest"`
	DefaultMinThreshold float64 `yaml:"default_min_threshold"`
	DefaultMaxResults   int     `yaml:"default_max_results"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// TelegramConfig enables the Telegram notifier when both Token and ChatID
// are set.
type TelegramConfig struct {
	Token      string `yaml:"token"`
	ChatID     int64  `yaml:"chat_id"`
	DateFormat string `yaml:"date_format"`
}

// Enabled reports whether notifications should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// Default returns a Config populated with default values.
func Default() Config {
	aiDefaults := ai.DefaultConfig()
	return Config{
		Feed: FeedConfig{
			URL:               defaultFeedURL,
			PollInterval:      defaultPollInterval,
			RequestTimeout:    defaultRequestTimeout,
			MaxStoredArticles: defaultMaxStored,
		},
		Embedding: EmbeddingConfig{
			Host:       aiDefaults.EmbeddingHost,
			Model:      aiDefaults.EmbeddingModel,
			Dimensions: aiDefaults.Dimensions,
		},
		Clustering: ClusteringConfig{
			Threshold:    5,
			MinTopicSize: aiDefaults.MinTopicSize,
			TopKeywords:  aiDefaults.TopKeywords,
		},
		Search: SearchConfig{
			MinKeywordLength:    2,
			MaxLatest:           50,
			DefaultMinThreshold: 0.5,
			DefaultMaxResults:   10,
		},
		Server:   ServerConfig{Addr: defaultServerAddr},
		LogLevel: defaultLogLevel,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory if one exists, and
// KHABAR_* environment variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures configuration is complete and valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Feed.URL) == "" {
		return errors.New("feed.url is required")
	}
	if c.Feed.PollInterval <= 0 {
		return errors.New("feed.poll_interval must be positive")
	}
	if c.Feed.RequestTimeout <= 0 {
		return errors.New("feed.request_timeout must be positive")
	}
	if c.Feed.MaxStoredArticles <= 0 {
		return errors.New("feed.max_stored_articles must be positive")
	}
	if c.Clustering.Threshold <= 0 {
		return errors.New("clustering.threshold must be positive")
	}
	if c.Clustering.Threshold > c.Feed.MaxStoredArticles {
		return fmt.Errorf("clustering.threshold (%d) cannot exceed feed.max_stored_articles (%d)",
			c.Clustering.Threshold, c.Feed.MaxStoredArticles)
	}
	if c.Search.MinKeywordLength <= 0 {
		return errors.New("search.min_keyword_length must be positive")
	}
	if c.Search.MaxLatest <= 0 {
		return errors.New("search.max_latest must be positive")
	}
	if c.Search.DefaultMaxResults <= 0 {
		return errors.New("search.default_max_results must be positive")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if (c.Telegram.Token == "") != (c.Telegram.ChatID == 0) {
		return errors.New("telegram.token and telegram.chat_id must be set together")
	}
	if err := c.AI().Validate(); err != nil {
		return err
	}
	return nil
}

// AI returns the provider configuration derived from c.
func (c Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithMinTopicSize(c.Clustering.MinTopicSize),
		ai.WithTopKeywords(c.Clustering.TopKeywords),
	)
}

// applyEnv overrides fields from KHABAR_* variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"FEED_URL":             &c.Feed.URL,
		"EMBEDDING_HOST":       &c.Embedding.Host,
		"EMBEDDING_MODEL":      &c.Embedding.Model,
		"SERVER_ADDR":          &c.Server.Addr,
		"TELEGRAM_TOKEN":       &c.Telegram.Token,
		"TELEGRAM_DATE_FORMAT": &c.Telegram.DateFormat,
		"LOG_LEVEL":            &c.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_STORED_ARTICLES":  &c.Feed.MaxStoredArticles,
		"EMBEDDING_DIMENSIONS": &c.Embedding.Dimensions,
		"CLUSTER_THRESHOLD":    &c.Clustering.Threshold,
	}
	for name, dst := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"POLL_INTERVAL":   &c.Feed.PollInterval,
		"REQUEST_TIMEOUT": &c.Feed.RequestTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(envPrefix + "TELEGRAM_CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %sTELEGRAM_CHAT_ID: %w", envPrefix, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}
