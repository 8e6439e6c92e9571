package config

import "time"

type Config struct {
	AppName            string `env:"APP_NAME" env-default:"iris" validate:"required"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" env-default:"false"`
	LogFile            string `env:"LOG_FILE" env-default:""`
	LogFileMaxSizeMB   int    `env:"LOG_FILE_MAX_SIZE_MB" env-default:"100"`
	LogFileMaxBackups  int    `env:"LOG_FILE_MAX_BACKUPS" env-default:"5"`
	LogFileMaxAgeDays  int    `env:"LOG_FILE_MAX_AGE_DAYS" env-default:"30"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5" validate:"min=1"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"" validate:"required"`
	DatabasePort                  int           `env:"DB_PORT" env-default:"5432" validate:"min=1,max=65535"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"iris" validate:"required"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0" validate:"min=0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis job lock, disabled when REDIS_HOST is empty
	RedisHost     string        `env:"REDIS_HOST" env-default:""`
	RedisPort     int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	LockTTL       time.Duration `env:"LOCK_TTL" env-default:"2m" validate:"min=1s"`

	// Kafka domain events
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaTopic        string   `env:"KAFKA_TOPIC" env-default:"iris-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1" validate:"oneof=-1 0 1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`

	// Tracing
	OtelEnabled  bool   `env:"OTEL_ENABLED" env-default:"false"`
	OtelEndpoint string `env:"OTEL_ENDPOINT" env-default:"localhost:4317"`
	OtelProtocol string `env:"OTEL_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	OtelInsecure bool   `env:"OTEL_INSECURE" env-default:"true"`

	MetricsPushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL" env-default:"" validate:"omitempty,url"`

	// Matching and jobs
	MatchDateToleranceDays     int     `env:"MATCH_DATE_TOLERANCE_DAYS" env-default:"5" validate:"min=0"`
	MatchStrictSingleDates     bool    `env:"MATCH_STRICT_SINGLE_DATES" env-default:"false"`
	CheckpointEvery            int     `env:"CHECKPOINT_EVERY" env-default:"25" validate:"min=1"`
	ErrorSampleSize            int     `env:"ERROR_SAMPLE_SIZE" env-default:"10" validate:"min=0"`
	DuplicateDateToleranceDays int     `env:"DUPLICATE_DATE_TOLERANCE_DAYS" env-default:"30" validate:"min=0"`
	DuplicateMinScore          float64 `env:"DUPLICATE_MIN_SCORE" env-default:"0.5" validate:"min=0,max=1"`
	// registered normalizer names applied in order to affair titles
	DuplicateTitleNormalizers []string `env:"DUPLICATE_TITLE_NORMALIZERS" env-default:"ntitle"`

	// Providers
	ProviderMinDelay      time.Duration `env:"PROVIDER_MIN_DELAY" env-default:"500ms"`
	ProviderMaxIDsPerCall int           `env:"PROVIDER_MAX_IDS_PER_CALL" env-default:"50" validate:"min=1"`
	// SOURCE=N pairs; sources not listed use PROVIDER_MAX_IDS_PER_CALL
	ProviderMaxIDsBySource []string `env:"PROVIDER_MAX_IDS_BY_SOURCE" env-default:"WIKIDATA=50,PARLEMENT_EUROPEEN=25,ASSEMBLEE_NATIONALE=20,SENAT=20"`
	ProviderTimeout       time.Duration `env:"PROVIDER_TIMEOUT" env-default:"30s"`
}
