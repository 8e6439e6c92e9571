package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/duplicates"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/kafka"
	"github.com/Ramsey-B/iris/pkg/logging"
	"github.com/Ramsey-B/iris/pkg/matching"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/normalizers"
	"github.com/Ramsey-B/iris/pkg/providers"
	"github.com/Ramsey-B/iris/pkg/redis"
	"github.com/Ramsey-B/iris/pkg/tracing"
	"github.com/Ramsey-B/iris/pkg/validation"
)

// Load builds a Config from, in order of precedence, the environment, envFiles
// (missing files are skipped), configFile and the env-default tags.
// configFile may be empty; keys in it are the env names, nested keys joined by "_".
func Load(configFile string, envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	if configFile != "" {
		if err := exportConfigFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)
	cfg.ProviderMaxIDsBySource = trimAll(cfg.ProviderMaxIDsBySource)
	cfg.DuplicateTitleNormalizers = trimAll(cfg.DuplicateTitleNormalizers)

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := parseSourceLimits(cfg.ProviderMaxIDsBySource); err != nil {
		return nil, fmt.Errorf("invalid configuration: PROVIDER_MAX_IDS_BY_SOURCE: %w", err)
	}
	for _, name := range cfg.DuplicateTitleNormalizers {
		if _, ok := normalizers.Get(name); !ok {
			return nil, fmt.Errorf("invalid configuration: DUPLICATE_TITLE_NORMALIZERS: unknown normalizer %q", name)
		}
	}
	return cfg, nil
}

// exportConfigFile reads a yaml, toml or json file with viper and exports every key the
// environment does not already set
func exportConfigFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		if _, set := os.LookupEnv(name); set {
			continue
		}

		value := v.GetString(key)
		if _, isList := v.Get(key).([]any); isList {
			value = strings.Join(v.GetStringSlice(key), ",")
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}
	return nil
}

func trimAll(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseSourceLimits reads SOURCE=N pairs
func parseSourceLimits(pairs []string) (map[models.SourceTag]int, error) {
	limits := make(map[models.SourceTag]int, len(pairs))
	for _, pair := range pairs {
		source, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected SOURCE=N, got %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("limit for %s must be a positive integer, got %q", source, raw)
		}
		limits[models.SourceTag(strings.ToUpper(strings.TrimSpace(source)))] = n
	}
	return limits, nil
}

func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Pretty:     c.PrettyLogs,
		File:       c.LogFile,
		MaxSizeMB:  c.LogFileMaxSizeMB,
		MaxBackups: c.LogFileMaxBackups,
		MaxAgeDays: c.LogFileMaxAgeDays,
	}
}

func (c *Config) Database() database.Config {
	return database.Config{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c *Config) Migration() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DatabaseMigrationFolderPath,
		Version:             uint(c.DatabaseMigrationVersion),
		Force:               c.DatabaseMigrationForce,
		AutoRollback:        c.DatabaseMigrationAutoRollback,
	}
}

// RedisEnabled reports whether the job lock is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c *Config) Kafka() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      c.KafkaBrokers,
		Topic:        c.KafkaTopic,
		BatchSize:    c.KafkaBatchSize,
		BatchTimeout: time.Duration(c.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: c.KafkaRequiredAcks,
		Compression:  c.KafkaCompression,
	}
}

func (c *Config) Tracing() tracing.OTLPConfig {
	cfg := tracing.DefaultOTLPConfig()
	cfg.Endpoint = c.OtelEndpoint
	cfg.Protocol = c.OtelProtocol
	cfg.Insecure = c.OtelInsecure
	return cfg
}

func (c *Config) Matcher() matching.Config {
	return matching.Config{
		DateToleranceDays: c.MatchDateToleranceDays,
		StrictSingleDates: c.MatchStrictSingleDates,
	}
}

func (c *Config) Jobs(dryRun bool) jobs.Config {
	return jobs.Config{
		CheckpointEvery: c.CheckpointEvery,
		ErrorSampleSize: c.ErrorSampleSize,
		DryRun:          dryRun,
	}
}

func (c *Config) Duplicates() duplicates.Config {
	cfg := duplicates.DefaultConfig()
	cfg.DateToleranceDays = c.DuplicateDateToleranceDays
	cfg.MinScore = c.DuplicateMinScore
	cfg.TitleNormalizers = c.DuplicateTitleNormalizers
	return cfg
}

func (c *Config) Fetcher() providers.FetcherConfig {
	cfg := providers.DefaultFetcherConfig()
	cfg.MinDelay = c.ProviderMinDelay
	cfg.MaxIDsPerCall = c.ProviderMaxIDsPerCall
	// Load has already rejected malformed pairs
	cfg.SourceMaxIDsPerCall, _ = parseSourceLimits(c.ProviderMaxIDsBySource)
	cfg.Timeout = c.ProviderTimeout
	return cfg
}
