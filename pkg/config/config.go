// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Embeddings, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// WritesPerMinute caps document adds and admin calls per client; 0
	// disables the limit.
	WritesPerMinute int `yaml:"writesPerMinute"`
}

// IndexerConfig locates the persisted index and controls shard caching.
// TotalDocuments is the N used by idf; it is a fixed corpus parameter.
type IndexerConfig struct {
	DataDir        string `yaml:"dataDir"`
	BarrelsDir     string `yaml:"barrelsDir"`
	LexiconFile    string `yaml:"lexiconFile"`
	BarrelMapFile  string `yaml:"barrelMapFile"`
	DFFile         string `yaml:"dfFile"`
	LockFile       string `yaml:"lockFile"`
	ShardCacheSize int    `yaml:"shardCacheSize"`
	TotalDocuments int    `yaml:"totalDocuments"`
}

// LexiconPath returns the lexicon file, resolved against DataDir.
func (c IndexerConfig) LexiconPath() string { return c.resolve(c.LexiconFile) }

// BarrelMapPath returns the barrel map file, resolved against DataDir.
func (c IndexerConfig) BarrelMapPath() string { return c.resolve(c.BarrelMapFile) }

// DFPath returns the document-frequency file, resolved against DataDir.
func (c IndexerConfig) DFPath() string { return c.resolve(c.DFFile) }

// BarrelsPath returns the shard directory, resolved against DataDir.
func (c IndexerConfig) BarrelsPath() string { return c.resolve(c.BarrelsDir) }

// LockPath returns the writer lock file, or "" when cross-process locking
// is disabled.
func (c IndexerConfig) LockPath() string {
	if c.LockFile == "" {
		return ""
	}
	return c.resolve(c.LockFile)
}

func (c IndexerConfig) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// EmbeddingsConfig points at the externally precomputed vector files.
type EmbeddingsConfig struct {
	WordVectorsFile string `yaml:"wordVectorsFile"`
	DocVectorsFile  string `yaml:"docVectorsFile"`
	QueryCacheSize  int    `yaml:"queryCacheSize"`
}

// SearchConfig controls query result limits.
type SearchConfig struct {
	MaxResults        int `yaml:"maxResults"`
	DefaultLimit      int `yaml:"defaultLimit"`
	AutocompleteLimit int `yaml:"autocompleteLimit"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentAdd   string `yaml:"documentAdd"`
	IndexComplete string `yaml:"indexComplete"`
}

// PostgresConfig holds PostgreSQL connection parameters for the corpus
// source.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	CorpusQuery     string        `yaml:"corpusQuery"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Configf("reading config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Configf("parsing config file %s: %v", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Indexer.DataDir == "" {
		return apperrors.Configf("indexer.dataDir must be set")
	}
	if c.Indexer.TotalDocuments <= 0 {
		return apperrors.Configf("indexer.totalDocuments must be positive, got %d", c.Indexer.TotalDocuments)
	}
	if c.Indexer.ShardCacheSize < 0 {
		return apperrors.Configf("indexer.shardCacheSize must not be negative")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return apperrors.Configf("search limits invalid: defaultLimit=%d maxResults=%d",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	if c.Search.AutocompleteLimit <= 0 {
		return apperrors.Configf("search.autocompleteLimit must be positive")
	}
	return nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			WritesPerMinute: 120,
		},
		Indexer: IndexerConfig{
			DataDir:        "data/index",
			BarrelsDir:     "barrels",
			LexiconFile:    "lexicon.json",
			BarrelMapFile:  "barrel_map.json",
			DFFile:         "df_map.json",
			LockFile:       ".lumi.lock",
			ShardCacheSize: 0,
			TotalDocuments: 50000,
		},
		Embeddings: EmbeddingsConfig{
			QueryCacheSize: 1000,
		},
		Search: SearchConfig{
			MaxResults:        100,
			DefaultLimit:      10,
			AutocompleteLimit: 5,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "lumi-searcher",
			Topics: KafkaTopics{
				DocumentAdd:   "lumi.document-add",
				IndexComplete: "lumi.index-complete",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "lumi",
			User:            "lumi",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			CorpusQuery:     "SELECT id, body FROM documents ORDER BY id",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads LUMI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LUMI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LUMI_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("LUMI_TOTAL_DOCUMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.TotalDocuments = n
		}
	}
	if v := os.Getenv("LUMI_SHARD_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.ShardCacheSize = n
		}
	}
	if v := os.Getenv("LUMI_WORD_VECTORS"); v != "" {
		cfg.Embeddings.WordVectorsFile = v
	}
	if v := os.Getenv("LUMI_DOC_VECTORS"); v != "" {
		cfg.Embeddings.DocVectorsFile = v
	}
	if v := os.Getenv("LUMI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("LUMI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LUMI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("LUMI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LUMI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("LUMI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("LUMI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("LUMI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LUMI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LUMI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
